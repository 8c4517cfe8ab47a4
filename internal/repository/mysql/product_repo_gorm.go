package mysql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"shop-service/internal/domain"
	"shop-service/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errStockShort = errors.New("stock short")

var productSorts = map[repository.ProductSort]string{
	repository.SortNewest:    "created_at DESC, id",
	repository.SortPriceAsc:  "price ASC, id",
	repository.SortPriceDesc: "price DESC, id",
	repository.SortNameAsc:   "name ASC, id",
	repository.SortNameDesc:  "name DESC, id",
}

type productRepo struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) repository.ProductRepository {
	return &productRepo{db: db}
}

func orderedSizes(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func (r *productRepo) Create(ctx context.Context, p *domain.Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	for i := range p.Sizes {
		p.Sizes[i].ProductID = p.ID
	}
	if err := conn(ctx, r.db).Create(p).Error; err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func (r *productRepo) Update(ctx context.Context, p *domain.Product, replaceSizes bool) error {
	return withinTx(ctx, r.db, func(tx *gorm.DB) error {
		if replaceSizes {
			if err := tx.Where("product_id = ?", p.ID).Delete(&domain.ProductSize{}).Error; err != nil {
				return fmt.Errorf("clear sizes: %w", err)
			}
			for i := range p.Sizes {
				p.Sizes[i].ID = 0
				p.Sizes[i].ProductID = p.ID
			}
			if len(p.Sizes) > 0 {
				if err := tx.Create(&p.Sizes).Error; err != nil {
					return fmt.Errorf("create sizes: %w", err)
				}
			}
		}
		if err := tx.Omit(clause.Associations).Save(p).Error; err != nil {
			return fmt.Errorf("update product: %w", err)
		}
		return nil
	})
}

func (r *productRepo) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := conn(ctx, r.db).Preload("Sizes", orderedSizes).First(&p, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find product: %w", err)
	}
	return &p, nil
}

func (r *productRepo) FindForUpdate(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := conn(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Sizes", orderedSizes).
		First(&p, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find product for update: %w", err)
	}
	return &p, nil
}

func (r *productRepo) filtered(ctx context.Context, q repository.ProductQuery) *gorm.DB {
	db := conn(ctx, r.db).Model(&domain.Product{})
	if q.Category != "" {
		db = db.Where("category = ?", q.Category)
	}
	if kw := strings.TrimSpace(q.Keyword); kw != "" {
		like := "%" + kw + "%"
		db = db.Where("(name LIKE ? OR brand LIKE ? OR category LIKE ?)", like, like, like)
	}
	if q.MinPrice != nil {
		db = db.Where("price >= ?", *q.MinPrice)
	}
	if q.MaxPrice != nil {
		db = db.Where("price <= ?", *q.MaxPrice)
	}
	if q.InStock {
		db = db.Where("count_in_stock > 0 AND status <> ?", string(domain.ProductDiscontinued))
	}
	return db
}

func (r *productRepo) List(ctx context.Context, q repository.ProductQuery) ([]domain.Product, int64, error) {
	var total int64
	if err := r.filtered(ctx, q).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	order, ok := productSorts[q.Sort]
	if !ok {
		order = productSorts[repository.SortNewest]
	}
	var out []domain.Product
	err := r.filtered(ctx, q).
		Preload("Sizes", orderedSizes).
		Order(order).
		Offset(q.Offset).
		Limit(q.Limit).
		Find(&out).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	return out, total, nil
}

func (r *productRepo) ForEachBatch(ctx context.Context, size int, fn func(batch []domain.Product) error) error {
	var batch []domain.Product
	res := conn(ctx, r.db).Preload("Sizes", orderedSizes).FindInBatches(&batch, size, func(_ *gorm.DB, _ int) error {
		return fn(batch)
	})
	return res.Error
}

func (r *productRepo) Delete(ctx context.Context, id string) error {
	return withinTx(ctx, r.db, func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&domain.ProductSize{}).Error; err != nil {
			return fmt.Errorf("delete sizes: %w", err)
		}
		res := tx.Delete(&domain.Product{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("delete product: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return repository.ErrNotFound
		}
		return nil
	})
}

func (r *productRepo) IsReferenced(ctx context.Context, id string) (bool, error) {
	var n int64
	if err := conn(ctx, r.db).Model(&domain.OrderItem{}).Where("product_id = ?", id).Count(&n).Error; err != nil {
		return false, fmt.Errorf("count order items: %w", err)
	}
	return n > 0, nil
}

// DecrementStock and IncrementStock write the products row before its
// product_sizes rows, the lock order FindForUpdate callers also take.
func (r *productRepo) DecrementStock(ctx context.Context, id string, size domain.SizeLabel, qty int) (bool, error) {
	err := withinTx(ctx, r.db, func(tx *gorm.DB) error {
		res := tx.Model(&domain.Product{}).
			Where("id = ? AND count_in_stock >= ?", id, qty).
			Update("count_in_stock", gorm.Expr("count_in_stock - ?", qty))
		if res.Error != nil {
			return fmt.Errorf("decrement stock: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return errStockShort
		}
		if size != "" {
			res := tx.Model(&domain.ProductSize{}).
				Where("product_id = ? AND label = ? AND stock >= ?", id, string(size), qty).
				UpdateColumn("stock", gorm.Expr("stock - ?", qty))
			if res.Error != nil {
				return fmt.Errorf("decrement size stock: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return errStockShort
			}
		}
		return refreshStatus(tx, id)
	})
	if errors.Is(err, errStockShort) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *productRepo) IncrementStock(ctx context.Context, id string, size domain.SizeLabel, qty int) error {
	return withinTx(ctx, r.db, func(tx *gorm.DB) error {
		res := tx.Model(&domain.Product{}).
			Where("id = ?", id).
			Update("count_in_stock", gorm.Expr("count_in_stock + ?", qty))
		if res.Error != nil {
			return fmt.Errorf("increment stock: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return repository.ErrNotFound
		}
		if size != "" {
			res := tx.Model(&domain.ProductSize{}).
				Where("product_id = ? AND label = ?", id, string(size)).
				UpdateColumn("stock", gorm.Expr("stock + ?", qty))
			if res.Error != nil {
				return fmt.Errorf("increment size stock: %w", res.Error)
			}
		}
		return refreshStatus(tx, id)
	})
}

func (r *productRepo) UpdateDerived(ctx context.Context, id string, prevCount int, prevStatus domain.ProductStatus, count int, status domain.ProductStatus) (bool, error) {
	res := conn(ctx, r.db).Model(&domain.Product{}).
		Where("id = ? AND count_in_stock = ? AND status = ?", id, prevCount, string(prevStatus)).
		Updates(map[string]any{"count_in_stock": count, "status": string(status)})
	if res.Error != nil {
		return false, fmt.Errorf("update derived stock: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// refreshStatus re-derives availability from the stored count. Discontinued
// products are left alone.
func refreshStatus(tx *gorm.DB, id string) error {
	err := tx.Model(&domain.Product{}).
		Where("id = ? AND status <> ?", id, string(domain.ProductDiscontinued)).
		UpdateColumn("status", gorm.Expr("CASE WHEN count_in_stock > 0 THEN ? ELSE ? END",
			string(domain.ProductAvailable), string(domain.ProductOutOfStock))).Error
	if err != nil {
		return fmt.Errorf("refresh status: %w", err)
	}
	return nil
}
