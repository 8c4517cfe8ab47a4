package domain

import "strings"

// DefaultSizedCategories are the categories that carry per-size stock.
var DefaultSizedCategories = []string{"Top", "Bottom"}

// InventoryPolicy owns the rules that tie a product's size buckets, its
// aggregate stock and its availability status together.
type InventoryPolicy struct {
	sized map[string]struct{}
}

func NewInventoryPolicy(sizedCategories ...string) InventoryPolicy {
	if len(sizedCategories) == 0 {
		sizedCategories = DefaultSizedCategories
	}
	sized := make(map[string]struct{}, len(sizedCategories))
	for _, c := range sizedCategories {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" {
			sized[c] = struct{}{}
		}
	}
	return InventoryPolicy{sized: sized}
}

func (p InventoryPolicy) IsSizedCategory(category string) bool {
	_, ok := p.sized[strings.ToLower(strings.TrimSpace(category))]
	return ok
}

// TracksSizes reports whether the aggregate stock of prod is derived from its
// size buckets. A non-empty breakdown counts even outside sized categories.
func (p InventoryPolicy) TracksSizes(prod *Product) bool {
	return p.IsSizedCategory(prod.Category) || len(prod.Sizes) > 0
}

// DeriveOptions describes the write that produced the record being derived.
type DeriveOptions struct {
	// Strict rejects a supplied countInStock that disagrees with the sizes.
	Strict bool
	// CountSupplied is set when the caller sent countInStock explicitly.
	CountSupplied bool
	// RequestedStatus is the status the caller sent, or "" for none.
	RequestedStatus ProductStatus
}

// DeriveAfterWrite validates prod and recomputes its derived fields in place.
// It must run on every write path that touches sizes, stock or status.
func (p InventoryPolicy) DeriveAfterWrite(prod *Product, opts DeriveOptions) error {
	if err := validateStock(prod); err != nil {
		return err
	}
	if opts.RequestedStatus != "" && !opts.RequestedStatus.Valid() {
		return BadRequestf("invalid product status: %s", opts.RequestedStatus)
	}

	if p.TracksSizes(prod) {
		total := prod.SizesTotal()
		if opts.Strict && opts.CountSupplied && prod.CountInStock != total {
			return InvariantViolationf("countInStock %d does not match size total %d for %s",
				prod.CountInStock, total, prod.Name)
		}
		prod.CountInStock = total
	}

	switch {
	case opts.RequestedStatus == ProductDiscontinued:
		prod.Status = ProductDiscontinued
	case opts.RequestedStatus == "" && prod.Status == ProductDiscontinued:
	default:
		prod.Status = StockStatus(prod.CountInStock)
	}
	return nil
}

// CheckInvariant verifies a stored record without modifying it.
func (p InventoryPolicy) CheckInvariant(prod *Product) error {
	if prod.CountInStock < 0 {
		return storedViolation("product %s has negative stock %d", prod.ID, prod.CountInStock)
	}
	if p.TracksSizes(prod) && prod.CountInStock != prod.SizesTotal() {
		return storedViolation("product %s countInStock %d does not match size total %d",
			prod.ID, prod.CountInStock, prod.SizesTotal())
	}
	if prod.Status != ProductDiscontinued && prod.Status != StockStatus(prod.CountInStock) {
		return storedViolation("product %s status %s does not match stock %d",
			prod.ID, prod.Status, prod.CountInStock)
	}
	return nil
}

// StockStatus is the status a non-discontinued product has at the given stock.
func StockStatus(count int) ProductStatus {
	if count > 0 {
		return ProductAvailable
	}
	return ProductOutOfStock
}

func validateStock(prod *Product) error {
	if prod.CountInStock < 0 {
		return NewBadRequest("countInStock must not be negative")
	}
	if prod.Price.IsNegative() {
		return NewBadRequest("price must not be negative")
	}
	seen := make(map[SizeLabel]struct{}, len(prod.Sizes))
	for i := range prod.Sizes {
		s := &prod.Sizes[i]
		if !s.Label.Valid() {
			return BadRequestf("invalid size: %s", s.Label)
		}
		if _, dup := seen[s.Label]; dup {
			return BadRequestf("duplicate size: %s", s.Label)
		}
		seen[s.Label] = struct{}{}
		if s.Stock < 0 {
			return BadRequestf("stock for size %s must not be negative", s.Label)
		}
		s.Position = i
	}
	return nil
}

func storedViolation(format string, args ...any) *Error {
	e := InvariantViolationf(format, args...)
	e.Stored = true
	return e
}
