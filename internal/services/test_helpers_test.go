package services

import (
	"context"
	"testing"
	"time"

	"shop-service/internal/domain"
	"shop-service/internal/infra/cache"
	rabbit "shop-service/internal/infra/rabbitmq"
	"shop-service/internal/repository"
	repo "shop-service/internal/repository/mysql"
	"shop-service/internal/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	TestProductName  = "Test Product"
	TestProductPrice = "25.50"
	TestShipping     = "1 Main St"
)

// PassthroughTransactor runs fn on the caller's context. Unit tests use it
// with repository mocks.
type PassthroughTransactor struct{}

func (PassthroughTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func nopCache() *cache.ProductCache {
	return cache.NewProductCache(nil, time.Minute, zap.NewNop())
}

func CreateMockProduct(name string, price string, count int) *domain.Product {
	return &domain.Product{
		ID:           uuid.NewString(),
		Name:         name,
		Category:     "Accessory",
		Brand:        "Acme",
		Price:        decimal.RequireFromString(price),
		CountInStock: count,
		Status:       domain.StockStatus(count),
	}
}

func CreateMockOrder(status domain.OrderStatus, items ...domain.OrderItem) *domain.Order {
	o := &domain.Order{
		ID:              uuid.NewString(),
		Items:           items,
		ShippingAddress: TestShipping,
		Status:          status,
		CreatedAt:       time.Now(),
	}
	o.TotalAmount = domain.ItemsTotal(items)
	return o
}

func sizeStock(pairs ...any) []domain.ProductSize {
	out := make([]domain.ProductSize, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, domain.ProductSize{Label: domain.SizeLabel(pairs[i].(string)), Stock: pairs[i+1].(int)})
	}
	return out
}

func intPtr(n int) *int { return &n }

func strPtr(s string) *string { return &s }

// testEnv wires the services to a throwaway sqlite database.
type testEnv struct {
	ctx        context.Context
	db         *gorm.DB
	products   repository.ProductRepository
	orders     repository.OrderRepository
	tx         repository.Transactor
	inventory  *InventoryService
	catalog    *ProductService
	ordersSvc  *OrderService
	categories *CategoryService
	auth       *AuthService
}

func newTestEnv(t testing.TB) *testEnv {
	t.Helper()
	db := testutil.NewTestDB(t)
	log := zap.NewNop()
	policy := domain.NewInventoryPolicy()
	pc := nopCache()

	env := &testEnv{
		ctx:      context.Background(),
		db:       db,
		products: repo.NewProductRepository(db),
		orders:   repo.NewOrderRepository(db),
		tx:       repo.NewTransactor(db),
	}
	env.inventory = NewInventoryService(env.products, env.tx, policy, pc, log)
	env.catalog = NewProductService(env.products, env.tx, policy, pc, log)
	env.ordersSvc = NewOrderService(env.orders, env.inventory, env.tx, rabbit.NewNopPublisher(log), pc, log)
	env.categories = NewCategoryService(repo.NewCategoryRepository(db), log)
	env.auth = NewAuthService(repo.NewUserRepository(db), staticTokens{}, log).WithHashCost(bcrypt.MinCost)
	return env
}

func (e *testEnv) sizedProduct(t testing.TB, name string, pairs ...any) *domain.Product {
	t.Helper()
	p, err := e.catalog.CreateProduct(e.ctx, ProductInput{
		Name:     name,
		Category: "Top",
		Brand:    "Acme",
		Price:    decimal.RequireFromString(TestProductPrice),
		Sizes:    sizeStock(pairs...),
	})
	require.NoError(t, err)
	return p
}

func (e *testEnv) plainProduct(t testing.TB, name, price string, count int) *domain.Product {
	t.Helper()
	p, err := e.catalog.CreateProduct(e.ctx, ProductInput{
		Name:         name,
		Category:     "Accessory",
		Brand:        "Acme",
		Price:        decimal.RequireFromString(price),
		CountInStock: intPtr(count),
	})
	require.NoError(t, err)
	return p
}

func (e *testEnv) reload(t testing.TB, id string) *domain.Product {
	t.Helper()
	p, err := e.products.FindByID(e.ctx, id)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p
}

// staticTokens issues the user id as the token.
type staticTokens struct{}

func (staticTokens) Issue(u *domain.User) (string, error) { return "token-" + u.ID, nil }

func (staticTokens) Parse(raw string) (*domain.Principal, error) {
	return nil, domain.NewUnauthorized("unauthorized")
}
