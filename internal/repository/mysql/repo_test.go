package mysql

import (
	"context"
	"errors"
	"testing"

	"shop-service/internal/domain"
	"shop-service/internal/repository"
	"shop-service/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type RepositoryTestSuite struct {
	suite.Suite
	ctx        context.Context
	db         *gorm.DB
	products   repository.ProductRepository
	orders     repository.OrderRepository
	categories repository.CategoryRepository
	users      repository.UserRepository
	tx         repository.Transactor
}

func (s *RepositoryTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = testutil.NewTestDB(s.T())
	s.products = NewProductRepository(s.db)
	s.orders = NewOrderRepository(s.db)
	s.categories = NewCategoryRepository(s.db)
	s.users = NewUserRepository(s.db)
	s.tx = NewTransactor(s.db)
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func (s *RepositoryTestSuite) sizedProduct(name string, stocks ...int) *domain.Product {
	p := &domain.Product{
		Name:     name,
		Category: "Top",
		Brand:    "Acme",
		Price:    decimal.RequireFromString("19.99"),
		Status:   domain.ProductAvailable,
	}
	for i, n := range stocks {
		p.Sizes = append(p.Sizes, domain.ProductSize{Label: domain.SizeLabels[i], Stock: n, Position: i})
		p.CountInStock += n
	}
	if p.CountInStock == 0 {
		p.Status = domain.ProductOutOfStock
	}
	s.Require().NoError(s.products.Create(s.ctx, p))
	return p
}

func (s *RepositoryTestSuite) plainProduct(name, price string, count int) *domain.Product {
	p := &domain.Product{
		Name:         name,
		Category:     "Accessory",
		Brand:        "Acme",
		Price:        decimal.RequireFromString(price),
		CountInStock: count,
		Status:       domain.StockStatus(count),
	}
	s.Require().NoError(s.products.Create(s.ctx, p))
	return p
}

func (s *RepositoryTestSuite) reload(id string) *domain.Product {
	p, err := s.products.FindByID(s.ctx, id)
	s.Require().NoError(err)
	s.Require().NotNil(p)
	return p
}

func (s *RepositoryTestSuite) TestProductCreateAndFind() {
	p := s.sizedProduct("Shirt", 1, 0, 4)

	got := s.reload(p.ID)
	s.Equal("Shirt", got.Name)
	s.True(got.Price.Equal(decimal.RequireFromString("19.99")))
	s.Equal(5, got.CountInStock)
	s.Require().Len(got.Sizes, 3)
	s.Equal(domain.SizeXS, got.Sizes[0].Label)
	s.Equal(domain.SizeM, got.Sizes[2].Label)
	s.Equal(4, got.Sizes[2].Stock)

	missing, err := s.products.FindByID(s.ctx, "00000000-0000-0000-0000-000000000000")
	s.NoError(err)
	s.Nil(missing)
}

func (s *RepositoryTestSuite) TestDecrementStock_Unsized() {
	p := s.plainProduct("Cap", "5.00", 3)

	ok, err := s.products.DecrementStock(s.ctx, p.ID, "", 2)
	s.Require().NoError(err)
	s.True(ok)
	got := s.reload(p.ID)
	s.Equal(1, got.CountInStock)
	s.Equal(domain.ProductAvailable, got.Status)

	ok, err = s.products.DecrementStock(s.ctx, p.ID, "", 2)
	s.Require().NoError(err)
	s.False(ok)
	s.Equal(1, s.reload(p.ID).CountInStock)

	ok, err = s.products.DecrementStock(s.ctx, p.ID, "", 1)
	s.Require().NoError(err)
	s.True(ok)
	got = s.reload(p.ID)
	s.Equal(0, got.CountInStock)
	s.Equal(domain.ProductOutOfStock, got.Status)
}

func (s *RepositoryTestSuite) TestDecrementStock_SizeBucket() {
	p := s.sizedProduct("Shirt", 0, 1, 5)

	ok, err := s.products.DecrementStock(s.ctx, p.ID, domain.SizeS, 2)
	s.Require().NoError(err)
	s.False(ok, "bucket S holds 1")
	got := s.reload(p.ID)
	s.Equal(6, got.CountInStock)
	s.Equal(1, got.Sizes[1].Stock)

	ok, err = s.products.DecrementStock(s.ctx, p.ID, domain.SizeM, 5)
	s.Require().NoError(err)
	s.True(ok)
	got = s.reload(p.ID)
	s.Equal(1, got.CountInStock)
	s.Equal(0, got.Sizes[2].Stock)
	s.Equal(got.SizesTotal(), got.CountInStock)
	s.Equal(domain.ProductAvailable, got.Status)
}

func (s *RepositoryTestSuite) TestShortBucketUndoesAggregateInsideTransaction() {
	p := s.sizedProduct("Shirt", 0, 1, 5)

	err := s.tx.WithinTransaction(s.ctx, func(ctx context.Context) error {
		ok, err := s.products.DecrementStock(ctx, p.ID, domain.SizeS, 2)
		s.Require().NoError(err)
		s.Require().False(ok)
		return nil
	})
	s.Require().NoError(err)

	got := s.reload(p.ID)
	s.Equal(6, got.CountInStock)
	s.Equal(1, got.Sizes[1].Stock)
	s.Equal(got.SizesTotal(), got.CountInStock)
}

func (s *RepositoryTestSuite) TestDecrementStockRefusesAfterStaleRead() {
	p := s.sizedProduct("Shirt", 0, 3)

	seen := s.reload(p.ID)
	s.Require().Equal(3, seen.Sizes[1].Stock)

	ok, err := s.products.DecrementStock(s.ctx, p.ID, domain.SizeS, 2)
	s.Require().NoError(err)
	s.Require().True(ok)

	// seen still reports 3 in bucket S; the write must check the stored value.
	ok, err = s.products.DecrementStock(s.ctx, p.ID, domain.SizeS, seen.Sizes[1].Stock-1)
	s.Require().NoError(err)
	s.False(ok)

	got := s.reload(p.ID)
	s.Equal(1, got.CountInStock)
	s.Equal(1, got.Sizes[1].Stock)
}

func (s *RepositoryTestSuite) TestStockAdjustmentsKeepDiscontinued() {
	p := s.plainProduct("Old", "1.00", 2)
	p.Status = domain.ProductDiscontinued
	s.Require().NoError(s.products.Update(s.ctx, p, false))

	ok, err := s.products.DecrementStock(s.ctx, p.ID, "", 2)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(domain.ProductDiscontinued, s.reload(p.ID).Status)

	s.Require().NoError(s.products.IncrementStock(s.ctx, p.ID, "", 4))
	got := s.reload(p.ID)
	s.Equal(4, got.CountInStock)
	s.Equal(domain.ProductDiscontinued, got.Status)
}

func (s *RepositoryTestSuite) TestIncrementStock() {
	p := s.sizedProduct("Shirt", 0, 0)

	s.Require().NoError(s.products.IncrementStock(s.ctx, p.ID, domain.SizeS, 3))
	got := s.reload(p.ID)
	s.Equal(3, got.CountInStock)
	s.Equal(3, got.Sizes[1].Stock)
	s.Equal(domain.ProductAvailable, got.Status)

	err := s.products.IncrementStock(s.ctx, "00000000-0000-0000-0000-000000000000", "", 1)
	s.ErrorIs(err, repository.ErrNotFound)
}

func (s *RepositoryTestSuite) TestUpdateReplacesSizes() {
	p := s.sizedProduct("Shirt", 1, 1, 1)

	got := s.reload(p.ID)
	got.Price = decimal.RequireFromString("25.50")
	got.Sizes = []domain.ProductSize{{Label: domain.SizeXL, Stock: 7}}
	got.CountInStock = 7
	s.Require().NoError(s.products.Update(s.ctx, got, true))

	after := s.reload(p.ID)
	s.True(after.Price.Equal(decimal.RequireFromString("25.50")))
	s.Require().Len(after.Sizes, 1)
	s.Equal(domain.SizeXL, after.Sizes[0].Label)
	s.Equal(7, after.CountInStock)

	after.Name = "Renamed"
	s.Require().NoError(s.products.Update(s.ctx, after, false))
	again := s.reload(p.ID)
	s.Equal("Renamed", again.Name)
	s.Len(again.Sizes, 1)
}

func (s *RepositoryTestSuite) TestListFiltersSortsAndPages() {
	s.plainProduct("Alpha Cap", "10.00", 0)
	s.plainProduct("Beta Belt", "30.00", 2)
	s.plainProduct("Gamma Bag", "20.00", 1)
	disc := s.plainProduct("Delta Bag", "15.00", 9)
	disc.Status = domain.ProductDiscontinued
	s.Require().NoError(s.products.Update(s.ctx, disc, false))
	s.sizedProduct("Shirt", 1)

	items, total, err := s.products.List(s.ctx, repository.ProductQuery{Sort: repository.SortPriceAsc, Limit: 2})
	s.Require().NoError(err)
	s.EqualValues(5, total)
	s.Require().Len(items, 2)
	s.Equal("Alpha Cap", items[0].Name)
	s.Equal("Delta Bag", items[1].Name)

	items, _, err = s.products.List(s.ctx, repository.ProductQuery{Sort: repository.SortPriceAsc, Offset: 4, Limit: 2})
	s.Require().NoError(err)
	s.Require().Len(items, 1)
	s.Equal("Beta Belt", items[0].Name)

	items, total, err = s.products.List(s.ctx, repository.ProductQuery{Keyword: "bag", Sort: repository.SortNameAsc, Limit: 10})
	s.Require().NoError(err)
	s.EqualValues(2, total)
	s.Equal("Delta Bag", items[0].Name)
	s.Equal("Gamma Bag", items[1].Name)

	items, total, err = s.products.List(s.ctx, repository.ProductQuery{Category: "Accessory", InStock: true, Sort: repository.SortNameDesc, Limit: 10})
	s.Require().NoError(err)
	s.EqualValues(2, total)
	s.Equal("Gamma Bag", items[0].Name)
	s.Equal("Beta Belt", items[1].Name)

	minPrice := decimal.RequireFromString("15")
	maxPrice := decimal.RequireFromString("25")
	items, total, err = s.products.List(s.ctx, repository.ProductQuery{MinPrice: &minPrice, MaxPrice: &maxPrice, Sort: repository.SortPriceDesc, Limit: 10})
	s.Require().NoError(err)
	s.EqualValues(3, total)
	s.Equal("Gamma Bag", items[0].Name)
}

func (s *RepositoryTestSuite) TestForEachBatch() {
	for i := 0; i < 5; i++ {
		s.plainProduct("P", "1.00", i)
	}
	var seen, batches int
	err := s.products.ForEachBatch(s.ctx, 2, func(batch []domain.Product) error {
		batches++
		seen += len(batch)
		return nil
	})
	s.Require().NoError(err)
	s.Equal(5, seen)
	s.Equal(3, batches)
}

func (s *RepositoryTestSuite) TestDeleteAndIsReferenced() {
	p := s.sizedProduct("Shirt", 1)
	q := s.plainProduct("Cap", "2.00", 1)

	order := &domain.Order{
		Items:       []domain.OrderItem{{ProductID: q.ID, Quantity: 1, UnitPrice: q.Price}},
		TotalAmount: q.Price,
		Status:      domain.StatusPending,
	}
	s.Require().NoError(s.orders.Save(s.ctx, order))

	ref, err := s.products.IsReferenced(s.ctx, q.ID)
	s.Require().NoError(err)
	s.True(ref)
	ref, err = s.products.IsReferenced(s.ctx, p.ID)
	s.Require().NoError(err)
	s.False(ref)

	s.Require().NoError(s.products.Delete(s.ctx, p.ID))
	gone, err := s.products.FindByID(s.ctx, p.ID)
	s.NoError(err)
	s.Nil(gone)
	s.ErrorIs(s.products.Delete(s.ctx, p.ID), repository.ErrNotFound)

	var sizes int64
	s.Require().NoError(s.db.Model(&domain.ProductSize{}).Where("product_id = ?", p.ID).Count(&sizes).Error)
	s.Zero(sizes)
}

func (s *RepositoryTestSuite) TestTransactionRollsBackEveryWrite() {
	a := s.plainProduct("A", "1.00", 5)
	b := s.sizedProduct("B", 0, 2)
	boom := errors.New("boom")

	err := s.tx.WithinTransaction(s.ctx, func(ctx context.Context) error {
		ok, err := s.products.DecrementStock(ctx, a.ID, "", 5)
		s.Require().NoError(err)
		s.Require().True(ok)
		ok, err = s.products.DecrementStock(ctx, b.ID, domain.SizeS, 1)
		s.Require().NoError(err)
		s.Require().True(ok)
		return boom
	})
	s.ErrorIs(err, boom)

	s.Equal(5, s.reload(a.ID).CountInStock)
	got := s.reload(b.ID)
	s.Equal(2, got.CountInStock)
	s.Equal(2, got.Sizes[1].Stock)
}

func (s *RepositoryTestSuite) TestShortDecrementInsideTransactionKeepsEarlierWrites() {
	a := s.plainProduct("A", "1.00", 5)
	b := s.sizedProduct("B", 1)

	err := s.tx.WithinTransaction(s.ctx, func(ctx context.Context) error {
		ok, err := s.products.DecrementStock(ctx, a.ID, "", 1)
		s.Require().NoError(err)
		s.Require().True(ok)
		ok, err = s.products.DecrementStock(ctx, b.ID, domain.SizeXS, 3)
		s.Require().NoError(err)
		s.Require().False(ok)
		return nil
	})
	s.Require().NoError(err)

	s.Equal(4, s.reload(a.ID).CountInStock)
	s.Equal(1, s.reload(b.ID).CountInStock)
}

func (s *RepositoryTestSuite) TestOrders() {
	p := s.plainProduct("Cap", "2.50", 5)
	user := "2f0d7a8e-6a43-4c1b-9d8e-5c1f2a3b4c5d"

	first := &domain.Order{
		UserID: &user,
		Items: []domain.OrderItem{
			{ProductID: p.ID, Quantity: 2, UnitPrice: p.Price},
			{ProductID: p.ID, Quantity: 1, UnitPrice: p.Price},
		},
		TotalAmount: decimal.RequireFromString("7.50"),
		Status:      domain.StatusPending,
	}
	s.Require().NoError(s.orders.Save(s.ctx, first))
	second := &domain.Order{
		UserID:      &user,
		Items:       []domain.OrderItem{{ProductID: p.ID, Quantity: 1, UnitPrice: p.Price}},
		TotalAmount: p.Price,
		Status:      domain.StatusPending,
	}
	s.Require().NoError(s.orders.Save(s.ctx, second))
	s.Require().NoError(s.orders.Save(s.ctx, &domain.Order{TotalAmount: decimal.Zero, Status: domain.StatusPending}))

	got, err := s.orders.FindByID(s.ctx, first.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Require().Len(got.Items, 2)
	s.Equal(2, got.Items[0].Quantity)
	s.True(got.TotalAmount.Equal(decimal.RequireFromString("7.5")))

	mine, err := s.orders.FindByUser(s.ctx, user)
	s.Require().NoError(err)
	s.Require().Len(mine, 2)
	s.Equal(second.ID, mine[0].ID)

	all, total, err := s.orders.List(s.ctx, 0, 2)
	s.Require().NoError(err)
	s.EqualValues(3, total)
	s.Len(all, 2)

	s.Require().NoError(s.orders.UpdateStatus(s.ctx, first.ID, domain.StatusPending, domain.StatusPaid))
	s.ErrorIs(s.orders.UpdateStatus(s.ctx, first.ID, domain.StatusPending, domain.StatusCancelled), repository.ErrNotFound)
	got, err = s.orders.FindByID(s.ctx, first.ID)
	s.Require().NoError(err)
	s.Equal(domain.StatusPaid, got.Status)

	s.ErrorIs(s.orders.UpdateStatus(s.ctx, "00000000-0000-0000-0000-000000000000", domain.StatusPending, domain.StatusPaid), repository.ErrNotFound)
	missing, err := s.orders.FindByID(s.ctx, "00000000-0000-0000-0000-000000000000")
	s.NoError(err)
	s.Nil(missing)
}

func (s *RepositoryTestSuite) TestCategories() {
	c := &domain.Category{Name: "Tops", Slug: "tops"}
	s.Require().NoError(s.categories.Create(s.ctx, c))
	s.Require().NoError(s.categories.Create(s.ctx, &domain.Category{Name: "Bags", Slug: "bags"}))
	s.Error(s.categories.Create(s.ctx, &domain.Category{Name: "Tops", Slug: "tops"}))

	got, err := s.categories.FindBySlug(s.ctx, "tops")
	s.Require().NoError(err)
	s.Equal(c.ID, got.ID)

	list, err := s.categories.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal("Bags", list[0].Name)

	got.Description = "upper body"
	s.Require().NoError(s.categories.Update(s.ctx, got))
	got, err = s.categories.FindByID(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal("upper body", got.Description)

	deleted, err := s.categories.Delete(s.ctx, c.ID)
	s.Require().NoError(err)
	s.True(deleted)
	deleted, err = s.categories.Delete(s.ctx, c.ID)
	s.Require().NoError(err)
	s.False(deleted)
}

func (s *RepositoryTestSuite) TestUsers() {
	u := &domain.User{UserName: "jane", Email: " Jane@Example.com ", PasswordHash: "x", Role: domain.RoleCustomer}
	s.Require().NoError(s.users.Create(s.ctx, u))
	s.Equal("jane@example.com", u.Email)

	byName, err := s.users.FindByLogin(s.ctx, "jane")
	s.Require().NoError(err)
	s.Equal(u.ID, byName.ID)
	byEmail, err := s.users.FindByLogin(s.ctx, "JANE@example.com")
	s.Require().NoError(err)
	s.Equal(u.ID, byEmail.ID)

	exists, err := s.users.Exists(s.ctx, "someone", "jane@example.com")
	s.Require().NoError(err)
	s.True(exists)
	exists, err = s.users.Exists(s.ctx, "someone", "else@example.com")
	s.Require().NoError(err)
	s.False(exists)

	nobody, err := s.users.FindByLogin(s.ctx, "nobody")
	s.NoError(err)
	s.Nil(nobody)
	byID, err := s.users.FindByID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal("jane", byID.UserName)
}

func (s *RepositoryTestSuite) TestFindForUpdateInsideTransaction() {
	p := s.sizedProduct("Shirt", 2)

	err := s.tx.WithinTransaction(s.ctx, func(ctx context.Context) error {
		got, err := s.products.FindForUpdate(ctx, p.ID)
		s.Require().NoError(err)
		s.Require().NotNil(got)
		s.Equal(2, got.CountInStock)
		s.Len(got.Sizes, 1)

		missing, err := s.products.FindForUpdate(ctx, "00000000-0000-0000-0000-000000000000")
		s.NoError(err)
		s.Nil(missing)
		return nil
	})
	s.NoError(err)
}

func (s *RepositoryTestSuite) TestUpdateDerivedIsOptimistic() {
	p := s.plainProduct("Cap", "1.00", 3)

	changed, err := s.products.UpdateDerived(s.ctx, p.ID, 4, domain.ProductAvailable, 0, domain.ProductOutOfStock)
	s.Require().NoError(err)
	s.False(changed)
	s.Equal(3, s.reload(p.ID).CountInStock)

	changed, err = s.products.UpdateDerived(s.ctx, p.ID, 3, domain.ProductAvailable, 0, domain.ProductOutOfStock)
	s.Require().NoError(err)
	s.True(changed)
	got := s.reload(p.ID)
	s.Equal(0, got.CountInStock)
	s.Equal(domain.ProductOutOfStock, got.Status)
}

func (s *RepositoryTestSuite) TestUpdateDerivedRequiresUnchangedStatus() {
	p := s.plainProduct("Scarf", "1.00", 3)
	s.Require().NoError(s.db.Model(&domain.Product{}).Where("id = ?", p.ID).
		UpdateColumn("status", string(domain.ProductDiscontinued)).Error)

	changed, err := s.products.UpdateDerived(s.ctx, p.ID, 3, domain.ProductAvailable, 3, domain.ProductAvailable)
	s.Require().NoError(err)
	s.False(changed)
	s.Equal(domain.ProductDiscontinued, s.reload(p.ID).Status)
}
