package mocks

import (
	"context"

	"shop-service/internal/domain"
	"shop-service/internal/infra/cache"
	"shop-service/internal/repository"

	"github.com/stretchr/testify/mock"
)

type MockOrderRepository struct {
	mock.Mock
}

type MockProductRepository struct {
	mock.Mock
}

type MockStockReserver struct {
	mock.Mock
}

type MockPublisher struct {
	mock.Mock
}

type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, message interface{}) error {
	args := m.Called(ctx, topic, message)
	return args.Error(0)
}

func (m *MockOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Order), args.Error(1)
}

func (m *MockOrderRepository) List(ctx context.Context, offset, limit int) ([]domain.Order, int64, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]domain.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) error {
	args := m.Called(ctx, id, from, to)
	return args.Error(0)
}

func (m *MockProductRepository) Create(ctx context.Context, p *domain.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockProductRepository) Update(ctx context.Context, p *domain.Product, replaceSizes bool) error {
	args := m.Called(ctx, p, replaceSizes)
	return args.Error(0)
}

func (m *MockProductRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockProductRepository) FindForUpdate(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockProductRepository) List(ctx context.Context, q repository.ProductQuery) ([]domain.Product, int64, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]domain.Product), args.Get(1).(int64), args.Error(2)
}

// ForEachBatch hands the configured products to fn as a single batch.
func (m *MockProductRepository) ForEachBatch(ctx context.Context, size int, fn func(batch []domain.Product) error) error {
	args := m.Called(ctx, size)
	if batch, ok := args.Get(0).([]domain.Product); ok && len(batch) > 0 {
		if err := fn(batch); err != nil {
			return err
		}
	}
	return args.Error(1)
}

func (m *MockProductRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProductRepository) IsReferenced(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockProductRepository) DecrementStock(ctx context.Context, id string, size domain.SizeLabel, qty int) (bool, error) {
	args := m.Called(ctx, id, size, qty)
	return args.Bool(0), args.Error(1)
}

func (m *MockProductRepository) IncrementStock(ctx context.Context, id string, size domain.SizeLabel, qty int) error {
	args := m.Called(ctx, id, size, qty)
	return args.Error(0)
}

func (m *MockProductRepository) UpdateDerived(ctx context.Context, id string, prevCount int, prevStatus domain.ProductStatus, count int, status domain.ProductStatus) (bool, error) {
	args := m.Called(ctx, id, prevCount, prevStatus, count, status)
	return args.Bool(0), args.Error(1)
}

func (m *MockStockReserver) ReserveStock(ctx context.Context, productID string, size domain.SizeLabel, quantity int) (*domain.Reservation, error) {
	args := m.Called(ctx, productID, size, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}

func (m *MockStockReserver) ReleaseStock(ctx context.Context, productID string, size domain.SizeLabel, quantity int) error {
	args := m.Called(ctx, productID, size, quantity)
	return args.Error(0)
}

func (m *MockIdempotencyStore) Begin(ctx context.Context, key string) (cache.Claim, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(cache.Claim), args.Error(1)
}

func (m *MockIdempotencyStore) Complete(ctx context.Context, key, orderID string) error {
	args := m.Called(ctx, key, orderID)
	return args.Error(0)
}

func (m *MockIdempotencyStore) Abort(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

var (
	_ repository.OrderRepository   = (*MockOrderRepository)(nil)
	_ repository.ProductRepository = (*MockProductRepository)(nil)
)
