package repository

import (
	"context"
	"errors"

	"shop-service/internal/domain"

	"github.com/shopspring/decimal"
)

// Transactor runs fn inside a storage transaction. Repositories called with the
// context handed to fn take part in that transaction; a nested call joins the
// enclosing one.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type ProductSort string

const (
	SortNewest    ProductSort = "newest"
	SortPriceAsc  ProductSort = "price_asc"
	SortPriceDesc ProductSort = "price_desc"
	SortNameAsc   ProductSort = "name_asc"
	SortNameDesc  ProductSort = "name_desc"
)

type ProductQuery struct {
	Category string
	Keyword  string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	InStock  bool
	Sort     ProductSort
	Offset   int
	Limit    int
}

type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	// Update persists every column of p; when replaceSizes is set the stored
	// size buckets are replaced by p.Sizes.
	Update(ctx context.Context, p *domain.Product, replaceSizes bool) error
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	// FindForUpdate is FindByID that also locks the row until the enclosing
	// transaction ends.
	FindForUpdate(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context, q ProductQuery) ([]domain.Product, int64, error)
	ForEachBatch(ctx context.Context, size int, fn func(batch []domain.Product) error) error
	Delete(ctx context.Context, id string) error
	IsReferenced(ctx context.Context, id string) (bool, error)
	// DecrementStock removes qty units in a single conditional update and
	// reports false, without changing anything, when fewer than qty remain.
	// A non-empty size decrements that bucket together with the aggregate.
	DecrementStock(ctx context.Context, id string, size domain.SizeLabel, qty int) (bool, error)
	IncrementStock(ctx context.Context, id string, size domain.SizeLabel, qty int) error
	// UpdateDerived stores recomputed countInStock and status, provided the
	// stored count and status still equal prevCount and prevStatus. It
	// reports whether a row changed.
	UpdateDerived(ctx context.Context, id string, prevCount int, prevStatus domain.ProductStatus, count int, status domain.ProductStatus) (bool, error)
}

type OrderRepository interface {
	Save(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	FindByUser(ctx context.Context, userID string) ([]domain.Order, error)
	List(ctx context.Context, offset, limit int) ([]domain.Order, int64, error)
	// UpdateStatus moves an order from one status to another. It returns
	// ErrNotFound when no order with that id currently has status from.
	UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) error
}

type CategoryRepository interface {
	Create(ctx context.Context, c *domain.Category) error
	Update(ctx context.Context, c *domain.Category) error
	FindByID(ctx context.Context, id string) (*domain.Category, error)
	FindBySlug(ctx context.Context, slug string) (*domain.Category, error)
	List(ctx context.Context) ([]domain.Category, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByLogin(ctx context.Context, userNameOrEmail string) (*domain.User, error)
	Exists(ctx context.Context, userName, email string) (bool, error)
}

// ErrNotFound is returned by write operations that target a missing row.
// Lookups report a missing row as (nil, nil) instead.
var ErrNotFound = errors.New("record not found")
