package services

import (
	"context"
	"errors"
	"strings"

	"shop-service/internal/domain"
	"shop-service/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductInput is the full shape of a product as an admin creates it.
// Status may only request "discontinued" or lift it; the value stored is
// always derived.
type ProductInput struct {
	Name         string
	Category     string
	Brand        string
	Image        string
	Description  string
	Price        decimal.Decimal
	Sizes        []domain.ProductSize
	CountInStock *int
	Status       domain.ProductStatus
	Rating       float64
	NumReviews   int
}

// ProductPatch carries the fields an update supplied. Nil means untouched.
type ProductPatch struct {
	Name         *string
	Category     *string
	Brand        *string
	Image        *string
	Description  *string
	Price        *decimal.Decimal
	Sizes        *[]domain.ProductSize
	CountInStock *int
	Status       *domain.ProductStatus
	Rating       *float64
	NumReviews   *int
}

type ProductListParams struct {
	Category string
	Keyword  string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	InStock  bool
	Sort     string
	Page     int
	Limit    int
}

type ProductPage struct {
	Meta  PageMeta         `json:"meta"`
	Items []domain.Product `json:"items"`
}

type ProductService struct {
	products repository.ProductRepository
	tx       repository.Transactor
	policy   domain.InventoryPolicy
	cache    ProductCache
	log      *zap.Logger
}

func NewProductService(products repository.ProductRepository, tx repository.Transactor, policy domain.InventoryPolicy, cache ProductCache, log *zap.Logger) *ProductService {
	return &ProductService{products: products, tx: tx, policy: policy, cache: cache, log: log}
}

func (s *ProductService) CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error) {
	p := &domain.Product{
		Name:        strings.TrimSpace(in.Name),
		Category:    strings.TrimSpace(in.Category),
		Brand:       strings.TrimSpace(in.Brand),
		Image:       strings.TrimSpace(in.Image),
		Description: in.Description,
		Price:       in.Price,
		Sizes:       in.Sizes,
		Rating:      in.Rating,
		NumReviews:  in.NumReviews,
	}
	if in.CountInStock != nil {
		p.CountInStock = *in.CountInStock
	}
	if err := validateCatalogFields(p); err != nil {
		return nil, err
	}

	opts := domain.DeriveOptions{CountSupplied: in.CountInStock != nil, RequestedStatus: in.Status}
	if err := s.policy.DeriveAfterWrite(p, opts); err != nil {
		return nil, err
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, err
	}

	s.log.Info("product created",
		zap.String("product_id", p.ID),
		zap.Int("count_in_stock", p.CountInStock),
		zap.String("status", string(p.Status)),
	)
	return p, nil
}

// UpdateProduct applies patch to a stored product. With replace set the
// patch must carry every required catalog field and unsupplied sizes,
// stock and description are reset, as a PUT would.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, patch ProductPatch, replace bool) (*domain.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.NewNotFound("product not found")
	}
	if replace && (patch.Name == nil || patch.Category == nil || patch.Brand == nil || patch.Image == nil || patch.Price == nil) {
		return nil, domain.NewBadRequest("name, category, brand, image and price are required")
	}

	var updated *domain.Product
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		p, err := s.products.FindForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return domain.NewNotFound("product not found")
		}

		replaceSizes := patch.Sizes != nil
		if replace {
			p.Description = ""
			p.CountInStock = 0
			if patch.Sizes == nil {
				p.Sizes = nil
				replaceSizes = true
			}
		}
		applyPatch(p, patch)
		if err := validateCatalogFields(p); err != nil {
			return err
		}

		opts := domain.DeriveOptions{Strict: true, CountSupplied: patch.CountInStock != nil}
		if patch.Status != nil {
			opts.RequestedStatus = *patch.Status
		}
		if err := s.policy.DeriveAfterWrite(p, opts); err != nil {
			return err
		}
		if err := s.products.Update(ctx, p, replaceSizes); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, id)
	s.log.Info("product updated",
		zap.String("product_id", id),
		zap.Int("count_in_stock", updated.CountInStock),
		zap.String("status", string(updated.Status)),
	)
	return updated, nil
}

func applyPatch(p *domain.Product, patch ProductPatch) {
	if patch.Name != nil {
		p.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Category != nil {
		p.Category = strings.TrimSpace(*patch.Category)
	}
	if patch.Brand != nil {
		p.Brand = strings.TrimSpace(*patch.Brand)
	}
	if patch.Image != nil {
		p.Image = strings.TrimSpace(*patch.Image)
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Sizes != nil {
		p.Sizes = append([]domain.ProductSize(nil), (*patch.Sizes)...)
	}
	if patch.CountInStock != nil {
		p.CountInStock = *patch.CountInStock
	}
	if patch.Rating != nil {
		p.Rating = *patch.Rating
	}
	if patch.NumReviews != nil {
		p.NumReviews = *patch.NumReviews
	}
}

func validateCatalogFields(p *domain.Product) error {
	switch {
	case p.Name == "":
		return domain.NewBadRequest("name is required")
	case p.Category == "":
		return domain.NewBadRequest("category is required")
	case p.Brand == "":
		return domain.NewBadRequest("brand is required")
	case p.Rating < 0 || p.Rating > 5:
		return domain.NewBadRequest("rating must be between 0 and 5")
	case p.NumReviews < 0:
		return domain.NewBadRequest("numReviews must not be negative")
	}
	return nil
}

// GetProduct reads through the cache and refuses to serve a record whose
// stored stock fields disagree.
func (s *ProductService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.NewNotFound("product not found")
	}
	p, err := s.cache.Fetch(ctx, id, func(ctx context.Context) (*domain.Product, error) {
		return s.products.FindByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.NewNotFound("product not found")
	}
	if err := s.policy.CheckInvariant(p); err != nil {
		s.log.Error("stored product violates stock invariant", zap.String("product_id", id), zap.Error(err))
		return nil, err
	}
	return p, nil
}

func (s *ProductService) ListProducts(ctx context.Context, params ProductListParams) (*ProductPage, error) {
	page, limit := normalizePage(params.Page, params.Limit)
	if params.MinPrice != nil && params.MaxPrice != nil && params.MinPrice.GreaterThan(*params.MaxPrice) {
		return nil, domain.NewBadRequest("minPrice must not exceed maxPrice")
	}

	items, total, err := s.products.List(ctx, repository.ProductQuery{
		Category: strings.TrimSpace(params.Category),
		Keyword:  params.Keyword,
		MinPrice: params.MinPrice,
		MaxPrice: params.MaxPrice,
		InStock:  params.InStock,
		Sort:     repository.ProductSort(strings.ToLower(params.Sort)),
		Offset:   offsetOf(page, limit),
		Limit:    limit,
	})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Product{}
	}
	return &ProductPage{Meta: NewPageMeta(page, limit, total), Items: items}, nil
}

// DeleteProduct removes a product nobody ordered. A product referenced by
// an order is discontinued instead and returned.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) (*domain.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.NewNotFound("product not found")
	}

	var discontinued *domain.Product
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		p, err := s.products.FindForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return domain.NewNotFound("product not found")
		}

		referenced, err := s.products.IsReferenced(ctx, id)
		if err != nil {
			return err
		}
		if !referenced {
			if err := s.products.Delete(ctx, id); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return domain.NewNotFound("product not found")
				}
				return err
			}
			return nil
		}

		if err := s.policy.DeriveAfterWrite(p, domain.DeriveOptions{RequestedStatus: domain.ProductDiscontinued}); err != nil {
			return err
		}
		if err := s.products.Update(ctx, p, false); err != nil {
			return err
		}
		discontinued = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, id)
	if discontinued != nil {
		s.log.Info("product discontinued instead of deleted", zap.String("product_id", id))
	} else {
		s.log.Info("product deleted", zap.String("product_id", id))
	}
	return discontinued, nil
}

// WarmupCache loads the newest n products into the cache.
func (s *ProductService) WarmupCache(ctx context.Context, n int) (int, error) {
	if n <= 0 {
		return 0, nil
	}
	items, _, err := s.products.List(ctx, repository.ProductQuery{Sort: repository.SortNewest, Limit: n})
	if err != nil {
		return 0, err
	}
	for i := range items {
		s.cache.Put(ctx, &items[i])
	}
	s.log.Info("product cache warmed", zap.Int("products", len(items)))
	return len(items), nil
}
