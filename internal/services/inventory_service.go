package services

import (
	"context"
	"errors"
	"fmt"

	"shop-service/internal/domain"
	"shop-service/internal/repository"

	"go.uber.org/zap"
)

const resyncBatchSize = 100

type InventoryService struct {
	products repository.ProductRepository
	tx       repository.Transactor
	policy   domain.InventoryPolicy
	cache    ProductCache
	log      *zap.Logger
}

func NewInventoryService(products repository.ProductRepository, tx repository.Transactor, policy domain.InventoryPolicy, cache ProductCache, log *zap.Logger) *InventoryService {
	return &InventoryService{products: products, tx: tx, policy: policy, cache: cache, log: log}
}

// ReserveStock takes quantity units of a product out of stock. Products that
// track sizes need a size naming one of their buckets; others ignore size.
// When ctx carries a transaction the reservation joins it.
func (s *InventoryService) ReserveStock(ctx context.Context, productID string, size domain.SizeLabel, quantity int) (*domain.Reservation, error) {
	if quantity < 1 {
		return nil, domain.NewBadRequest("quantity must be at least 1")
	}

	var reserved *domain.Reservation
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		p, err := s.products.FindByID(ctx, productID)
		if err != nil {
			return err
		}
		if p == nil {
			return domain.NewNotFound("product not found: " + productID)
		}

		bucket, available, err := s.bucketFor(p, size)
		if err != nil {
			return err
		}

		ok, err := s.products.DecrementStock(ctx, p.ID, bucket, quantity)
		if err != nil {
			return err
		}
		if !ok {
			return &domain.InsufficientStockError{
				ProductID: p.ID,
				Name:      p.Name,
				Size:      bucket,
				Requested: quantity,
				Available: available,
			}
		}
		reserved = &domain.Reservation{
			ProductID: p.ID,
			Name:      p.Name,
			Size:      bucket,
			Quantity:  quantity,
			UnitPrice: p.Price,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reserved, nil
}

func (s *InventoryService) bucketFor(p *domain.Product, size domain.SizeLabel) (domain.SizeLabel, int, error) {
	if !s.policy.TracksSizes(p) {
		return "", p.CountInStock, nil
	}
	// A sized product without buckets holds no stock at all.
	if len(p.Sizes) == 0 {
		return "", 0, &domain.InsufficientStockError{ProductID: p.ID, Name: p.Name, Size: size, Available: 0}
	}
	if size == "" {
		return "", 0, domain.BadRequestf("size is required for %s", p.Name)
	}
	b, ok := p.SizeStock(size)
	if !ok {
		return "", 0, domain.BadRequestf("size %s is not available for %s", size, p.Name)
	}
	return size, b.Stock, nil
}

// ReleaseStock puts quantity units back. A size bucket that no longer
// exists is skipped, since crediting only the aggregate would break the
// size total.
func (s *InventoryService) ReleaseStock(ctx context.Context, productID string, size domain.SizeLabel, quantity int) error {
	if quantity < 1 {
		return nil
	}
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		p, err := s.products.FindByID(ctx, productID)
		if err != nil {
			return err
		}
		if p == nil {
			s.log.Warn("stock release skipped, product gone", zap.String("product_id", productID))
			return nil
		}

		bucket := domain.SizeLabel("")
		if s.policy.TracksSizes(p) {
			if _, ok := p.SizeStock(size); !ok {
				s.log.Warn("stock release skipped, size bucket gone",
					zap.String("product_id", productID),
					zap.String("size", string(size)),
					zap.Int("quantity", quantity),
				)
				return nil
			}
			bucket = size
		}

		if err := s.products.IncrementStock(ctx, p.ID, bucket, quantity); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.NewNotFound("product not found: " + productID)
			}
			return err
		}
		return nil
	})
}

// Resync re-derives countInStock and status for every product and stores
// the ones that drifted. It returns how many were fixed.
func (s *InventoryService) Resync(ctx context.Context) (int, error) {
	type fix struct {
		id         string
		prevCount  int
		prevStatus domain.ProductStatus
		count      int
		status     domain.ProductStatus
	}
	var fixes []fix

	err := s.products.ForEachBatch(ctx, resyncBatchSize, func(batch []domain.Product) error {
		for i := range batch {
			p := batch[i]
			prevCount, prevStatus := p.CountInStock, p.Status
			if p.CountInStock < 0 {
				p.CountInStock = 0
			}
			if err := s.policy.DeriveAfterWrite(&p, domain.DeriveOptions{}); err != nil {
				s.log.Error("resync cannot derive product", zap.String("product_id", p.ID), zap.Error(err))
				continue
			}
			if p.CountInStock != prevCount || p.Status != prevStatus {
				fixes = append(fixes, fix{id: p.ID, prevCount: prevCount, prevStatus: prevStatus, count: p.CountInStock, status: p.Status})
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan products: %w", err)
	}

	fixed := 0
	for _, f := range fixes {
		ok, err := s.products.UpdateDerived(ctx, f.id, f.prevCount, f.prevStatus, f.count, f.status)
		if err != nil {
			return fixed, err
		}
		if !ok {
			s.log.Info("resync skipped product changed concurrently", zap.String("product_id", f.id))
			continue
		}
		fixed++
		s.cache.Invalidate(ctx, f.id)
		s.log.Info("resynced product stock",
			zap.String("product_id", f.id),
			zap.Int("from", f.prevCount),
			zap.Int("to", f.count),
			zap.String("status", string(f.status)),
		)
	}
	return fixed, nil
}
