package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusPaid       OrderStatus = "paid"
	StatusShipped    OrderStatus = "shipped"
	StatusCompleted  OrderStatus = "completed"
	StatusCancelled  OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusProcessing, StatusPaid, StatusCancelled},
	StatusProcessing: {StatusPaid, StatusShipped, StatusCancelled},
	StatusPaid:       {StatusProcessing, StatusShipped, StatusCancelled},
	StatusShipped:    {StatusCompleted},
}

func ParseOrderStatus(s string) (OrderStatus, bool) {
	st := OrderStatus(s)
	switch st {
	case StatusPending, StatusProcessing, StatusPaid, StatusShipped, StatusCompleted, StatusCancelled:
		return st, true
	}
	return "", false
}

// CanTransitionTo reports whether an order may move from s to next.
// Staying on the same status is always allowed.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Order struct {
	ID              string          `json:"id" gorm:"type:char(36);primaryKey"`
	UserID          *string         `json:"userId" gorm:"type:char(36);index"`
	Items           []OrderItem     `json:"items" gorm:"foreignKey:OrderID"`
	TotalAmount     decimal.Decimal `json:"totalAmount" gorm:"type:decimal(14,2);not null"`
	ShippingAddress string          `json:"shippingAddress" gorm:"size:512"`
	CustomerName    string          `json:"customerName" gorm:"size:160"`
	Phone           string          `json:"phone" gorm:"size:40"`
	Status          OrderStatus     `json:"status" gorm:"size:20;not null;default:'pending';index"`
	CreatedAt       time.Time       `json:"createdAt" gorm:"autoCreateTime;index"`
	UpdatedAt       time.Time       `json:"updatedAt" gorm:"autoUpdateTime"`
}

// OrderItem freezes the price of a product at the moment it was ordered.
type OrderItem struct {
	ID        uint64          `json:"-" gorm:"primaryKey;autoIncrement"`
	OrderID   string          `json:"-" gorm:"type:char(36);not null;index"`
	Position  int             `json:"-" gorm:"not null;default:0"`
	ProductID string          `json:"productId" gorm:"type:char(36);not null;index"`
	Size      SizeLabel       `json:"size,omitempty" gorm:"size:4"`
	Quantity  int             `json:"quantity" gorm:"not null"`
	UnitPrice decimal.Decimal `json:"unitPrice" gorm:"type:decimal(12,2);not null"`
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Reservation records units taken out of stock at the price they had.
type Reservation struct {
	ProductID string
	Name      string
	Size      SizeLabel
	Quantity  int
	UnitPrice decimal.Decimal
}

// ItemsTotal sums the line totals of items.
func ItemsTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal())
	}
	return total
}
