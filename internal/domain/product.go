package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProductStatus string

const (
	ProductAvailable    ProductStatus = "available"
	ProductOutOfStock   ProductStatus = "out_of_stock"
	ProductDiscontinued ProductStatus = "discontinued"
)

func (s ProductStatus) Valid() bool {
	switch s {
	case ProductAvailable, ProductOutOfStock, ProductDiscontinued:
		return true
	}
	return false
}

type SizeLabel string

const (
	SizeXS  SizeLabel = "XS"
	SizeS   SizeLabel = "S"
	SizeM   SizeLabel = "M"
	SizeL   SizeLabel = "L"
	SizeXL  SizeLabel = "XL"
	SizeXXL SizeLabel = "XXL"
)

// SizeLabels lists the closed set of size labels, smallest first.
var SizeLabels = []SizeLabel{SizeXS, SizeS, SizeM, SizeL, SizeXL, SizeXXL}

func (l SizeLabel) Valid() bool {
	for _, s := range SizeLabels {
		if l == s {
			return true
		}
	}
	return false
}

type Product struct {
	ID           string          `json:"id" gorm:"type:char(36);primaryKey"`
	Name         string          `json:"name" gorm:"size:160;not null;index"`
	Category     string          `json:"category" gorm:"size:80;not null;index:idx_products_catalog,priority:1"`
	Brand        string          `json:"brand" gorm:"size:120;not null;index:idx_products_catalog,priority:2"`
	Image        string          `json:"image" gorm:"size:512"`
	Price        decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null;index:idx_products_catalog,priority:3"`
	Sizes        []ProductSize   `json:"sizes" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CountInStock int             `json:"countInStock" gorm:"not null;default:0"`
	Status       ProductStatus   `json:"status" gorm:"size:20;not null;default:'out_of_stock';index"`
	Rating       float64         `json:"rating" gorm:"not null;default:0"`
	NumReviews   int             `json:"numReviews" gorm:"not null;default:0"`
	Description  string          `json:"description" gorm:"type:text"`
	CreatedAt    time.Time       `json:"createdAt" gorm:"autoCreateTime;index"`
	UpdatedAt    time.Time       `json:"updatedAt" gorm:"autoUpdateTime"`
}

// ProductSize is one stock bucket of a sized product.
type ProductSize struct {
	ID        uint64    `json:"-" gorm:"primaryKey;autoIncrement"`
	ProductID string    `json:"-" gorm:"type:char(36);not null;uniqueIndex:idx_product_sizes_label,priority:1"`
	Label     SizeLabel `json:"label" gorm:"size:4;not null;uniqueIndex:idx_product_sizes_label,priority:2"`
	Position  int       `json:"-" gorm:"not null;default:0"`
	Stock     int       `json:"stock" gorm:"not null;default:0"`
}

// SizeStock returns the bucket for label, if the product offers it.
func (p *Product) SizeStock(label SizeLabel) (ProductSize, bool) {
	for _, s := range p.Sizes {
		if s.Label == label {
			return s, true
		}
	}
	return ProductSize{}, false
}

// SizesTotal sums the stock of every size bucket.
func (p *Product) SizesTotal() int {
	total := 0
	for _, s := range p.Sizes {
		total += s.Stock
	}
	return total
}
