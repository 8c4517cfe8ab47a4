package http

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"shop-service/internal/domain"
	"shop-service/internal/services"

	"github.com/shopspring/decimal"
)

type sizeRequest struct {
	Label string `json:"label" binding:"required"`
	Stock int    `json:"stock" binding:"min=0"`
}

func toSizes(in []sizeRequest) []domain.ProductSize {
	out := make([]domain.ProductSize, 0, len(in))
	for _, s := range in {
		out = append(out, domain.ProductSize{Label: domain.SizeLabel(strings.ToUpper(strings.TrimSpace(s.Label))), Stock: s.Stock})
	}
	return out
}

type CreateProductRequest struct {
	Name         string           `json:"name" binding:"required,min=2,max=160"`
	Category     string           `json:"category" binding:"required"`
	Image        string           `json:"image" binding:"required,url"`
	Price        *decimal.Decimal `json:"price" binding:"required"`
	Brand        string           `json:"brand" binding:"required"`
	CountInStock *int             `json:"countInStock" binding:"omitempty,min=0"`
	Rating       float64          `json:"rating" binding:"min=0,max=5"`
	NumReviews   int              `json:"numReviews" binding:"min=0"`
	Description  string           `json:"description"`
	Sizes        []sizeRequest    `json:"sizes" binding:"omitempty,dive"`
	Status       string           `json:"status" binding:"omitempty,oneof=available out_of_stock discontinued"`
}

func (r CreateProductRequest) toInput() services.ProductInput {
	return services.ProductInput{
		Name:         r.Name,
		Category:     r.Category,
		Brand:        r.Brand,
		Image:        r.Image,
		Description:  r.Description,
		Price:        *r.Price,
		Sizes:        toSizes(r.Sizes),
		CountInStock: r.CountInStock,
		Status:       domain.ProductStatus(r.Status),
		Rating:       r.Rating,
		NumReviews:   r.NumReviews,
	}
}

// UpdateProductRequest serves both PATCH and PUT; PUT completeness is
// checked by the service.
type UpdateProductRequest struct {
	Name         *string          `json:"name" binding:"omitempty,min=2,max=160"`
	Category     *string          `json:"category" binding:"omitempty,min=1"`
	Image        *string          `json:"image" binding:"omitempty,url"`
	Price        *decimal.Decimal `json:"price"`
	Brand        *string          `json:"brand" binding:"omitempty,min=1"`
	CountInStock *int             `json:"countInStock" binding:"omitempty,min=0"`
	Rating       *float64         `json:"rating" binding:"omitempty,min=0,max=5"`
	NumReviews   *int             `json:"numReviews" binding:"omitempty,min=0"`
	Description  *string          `json:"description"`
	Sizes        *[]sizeRequest   `json:"sizes"`
	Status       *string          `json:"status" binding:"omitempty,oneof=available out_of_stock discontinued"`
}

func (r UpdateProductRequest) toPatch() services.ProductPatch {
	patch := services.ProductPatch{
		Name:         r.Name,
		Category:     r.Category,
		Brand:        r.Brand,
		Image:        r.Image,
		Description:  r.Description,
		Price:        r.Price,
		CountInStock: r.CountInStock,
		Rating:       r.Rating,
		NumReviews:   r.NumReviews,
	}
	if r.Sizes != nil {
		sizes := toSizes(*r.Sizes)
		patch.Sizes = &sizes
	}
	if r.Status != nil {
		st := domain.ProductStatus(*r.Status)
		patch.Status = &st
	}
	return patch
}

type CategoryRequest struct {
	Name        string `json:"name" binding:"required,min=2,max=80"`
	Description string `json:"description"`
}

type UpdateCategoryRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=2,max=80"`
	Description *string `json:"description"`
}

type RegisterRequest struct {
	UserName       string `json:"userName"`
	UserNameSnake  string `json:"user_name"`
	Email          string `json:"email" binding:"required,email"`
	Password       string `json:"password" binding:"required,min=6"`
	FullName       string `json:"fullName"`
	FullNameSnake  string `json:"full_name"`
	Address        string `json:"address"`
	PhoneNumber    string `json:"phoneNumber"`
	PhoneNumberAlt string `json:"phone_number"`
}

func (r RegisterRequest) toInput() services.RegisterInput {
	return services.RegisterInput{
		UserName:    firstNonEmpty(r.UserName, r.UserNameSnake),
		Email:       r.Email,
		Password:    r.Password,
		FullName:    firstNonEmpty(r.FullName, r.FullNameSnake),
		Address:     r.Address,
		PhoneNumber: firstNonEmpty(r.PhoneNumber, r.PhoneNumberAlt),
	}
}

type LoginRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail" binding:"required"`
	Password        string `json:"password" binding:"required"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// OrderItemRequest accepts the product reference and quantity under every
// name older clients send.
type OrderItemRequest struct {
	ProductID      json.RawMessage `json:"productId"`
	ProductIDSnake json.RawMessage `json:"product_id"`
	Product        json.RawMessage `json:"product"`
	UnderscoreID   json.RawMessage `json:"_id"`
	ID             json.RawMessage `json:"id"`
	Quantity       json.RawMessage `json:"quantity"`
	Qty            json.RawMessage `json:"qty"`
	Size           string          `json:"size"`
}

func (r OrderItemRequest) ref() string {
	for _, raw := range []json.RawMessage{r.ProductID, r.ProductIDSnake, r.Product, r.UnderscoreID, r.ID} {
		if s := rawText(raw); s != "" {
			return s
		}
	}
	return ""
}

// quantity coerces the requested amount: missing or unparsable becomes 1,
// fractions are truncated and anything below 1 is raised to 1.
func (r OrderItemRequest) quantity() int {
	raw := r.Quantity
	if rawText(raw) == "" {
		raw = r.Qty
	}
	f, err := strconv.ParseFloat(rawText(raw), 64)
	if err != nil || math.IsNaN(f) || f < 1 {
		return 1
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(f)
}

// rawText returns a JSON string's contents or any other scalar's literal
// text. null and absent values yield "".
func rawText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	}
	return string(raw)
}

type CreateOrderRequest struct {
	Items                []OrderItemRequest `json:"items"`
	ShippingAddress      string             `json:"shippingAddress"`
	ShippingAddressSnake string             `json:"shipping_address"`
	Address              string             `json:"address"`
	CustomerName         string             `json:"customerName"`
	CustomerNameSnake    string             `json:"customer_name"`
	FullName             string             `json:"fullName"`
	Name                 string             `json:"name"`
	Phone                string             `json:"phone"`
	PhoneNumber          string             `json:"phoneNumber"`
	ShippingPhone        string             `json:"shipping_phone"`
}

func (r CreateOrderRequest) toCart(idempotencyKey string) services.Cart {
	cart := services.Cart{
		ShippingAddress: firstNonEmpty(r.ShippingAddress, r.ShippingAddressSnake, r.Address),
		CustomerName:    firstNonEmpty(r.CustomerName, r.CustomerNameSnake, r.FullName, r.Name),
		Phone:           firstNonEmpty(r.Phone, r.PhoneNumber, r.ShippingPhone),
		IdempotencyKey:  idempotencyKey,
	}
	for _, it := range r.Items {
		cart.Items = append(cart.Items, services.CartItem{
			ProductRef: it.ref(),
			Quantity:   it.quantity(),
			Size:       domain.SizeLabel(strings.ToUpper(strings.TrimSpace(it.Size))),
		})
	}
	return cart
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
