package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shop-service/internal/domain"
	rabbit "shop-service/internal/infra/rabbitmq"
	"shop-service/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultOrderTimeout = 5 * time.Second

// StockReserver is the part of the inventory the order flow depends on.
type StockReserver interface {
	ReserveStock(ctx context.Context, productID string, size domain.SizeLabel, quantity int) (*domain.Reservation, error)
	ReleaseStock(ctx context.Context, productID string, size domain.SizeLabel, quantity int) error
}

type CartItem struct {
	ProductRef string
	Quantity   int
	Size       domain.SizeLabel
}

type Cart struct {
	Items           []CartItem
	ShippingAddress string
	CustomerName    string
	Phone           string
	// IdempotencyKey, when set, makes a retried request return the order
	// the first attempt created.
	IdempotencyKey string
}

type OrderPage struct {
	Meta  PageMeta       `json:"meta"`
	Items []domain.Order `json:"items"`
}

type OrderService struct {
	orders      repository.OrderRepository
	inventory   StockReserver
	tx          repository.Transactor
	publisher   rabbit.PublisherInterface
	cache       ProductCache
	idempotency IdempotencyStore
	timeout     time.Duration
	log         *zap.Logger
}

func NewOrderService(r repository.OrderRepository, inv StockReserver, tx repository.Transactor, pub rabbit.PublisherInterface, cache ProductCache, log *zap.Logger) *OrderService {
	return &OrderService{
		orders:    r,
		inventory: inv,
		tx:        tx,
		publisher: pub,
		cache:     cache,
		timeout:   DefaultOrderTimeout,
		log:       log,
	}
}

func (u *OrderService) SetIdempotencyStore(store IdempotencyStore) {
	u.idempotency = store
}

func (u *OrderService) SetTimeout(d time.Duration) {
	if d > 0 {
		u.timeout = d
	}
}

// PlaceOrder reserves stock for every cart item, in cart order, and records
// the order in a single transaction. The first failing item decides the
// error. Either all items are reserved and the order exists, or nothing
// changed.
func (u *OrderService) PlaceOrder(ctx context.Context, cart Cart, principal *domain.Principal) (*domain.Order, error) {
	if len(cart.Items) == 0 {
		return nil, domain.NewBadRequest("items is required")
	}

	key := strings.TrimSpace(cart.IdempotencyKey)
	if key == "" || u.idempotency == nil {
		return u.place(ctx, cart, principal)
	}

	claim, err := u.idempotency.Begin(ctx, key)
	if err != nil {
		return nil, err
	}
	if !claim.Acquired {
		if claim.OrderID == "" {
			return nil, domain.NewConflict("an order with this idempotency key is in progress")
		}
		u.log.Info("replaying order for idempotency key", zap.String("order_id", claim.OrderID))
		return u.GetOrder(ctx, claim.OrderID)
	}

	order, err := u.place(ctx, cart, principal)
	if err != nil {
		if abortErr := u.idempotency.Abort(context.WithoutCancel(ctx), key); abortErr != nil {
			u.log.Warn("failed to release idempotency key", zap.Error(abortErr))
		}
		return nil, err
	}
	if err := u.idempotency.Complete(context.WithoutCancel(ctx), key, order.ID); err != nil {
		u.log.Warn("failed to record idempotency key", zap.String("order_id", order.ID), zap.Error(err))
	}
	return order, nil
}

func (u *OrderService) place(ctx context.Context, cart Cart, principal *domain.Principal) (*domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	order := &domain.Order{
		ShippingAddress: strings.TrimSpace(cart.ShippingAddress),
		CustomerName:    strings.TrimSpace(cart.CustomerName),
		Phone:           strings.TrimSpace(cart.Phone),
		Status:          domain.StatusPending,
	}
	if principal != nil {
		userID := principal.ID
		order.UserID = &userID
	}

	err := u.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		for _, it := range cart.Items {
			ref := strings.TrimSpace(it.ProductRef)
			if ref == "" {
				return domain.NewBadRequest("invalid product: undefined")
			}
			if _, err := uuid.Parse(ref); err != nil {
				return domain.NewBadRequest("invalid product: " + ref)
			}
			qty := it.Quantity
			if qty < 1 {
				qty = 1
			}

			r, err := u.inventory.ReserveStock(ctx, ref, it.Size, qty)
			if err != nil {
				if domain.IsKind(err, domain.KindNotFound) {
					return domain.NewBadRequest("product not found: " + ref)
				}
				return err
			}
			order.Items = append(order.Items, domain.OrderItem{
				ProductID: r.ProductID,
				Size:      r.Size,
				Quantity:  r.Quantity,
				UnitPrice: r.UnitPrice,
			})
		}
		order.TotalAmount = domain.ItemsTotal(order.Items)
		return u.orders.Save(ctx, order)
	})
	if err != nil {
		if ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			u.log.Warn("order placement timed out", zap.Duration("timeout", u.timeout), zap.Error(err))
			return nil, &domain.Error{Kind: domain.KindTimeout, Message: "order placement timed out", Err: err}
		}
		return nil, err
	}

	u.cache.Invalidate(ctx, productIDs(order.Items)...)
	u.log.Info("order placed",
		zap.String("order_id", order.ID),
		zap.Int("items", len(order.Items)),
		zap.String("total", order.TotalAmount.StringFixed(2)),
	)
	u.publish(context.WithoutCancel(ctx), domain.EventOrderCreated, domain.NewOrderCreatedEvent(order))
	return order, nil
}

func productIDs(items []domain.OrderItem) []string {
	ids := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if _, ok := seen[it.ProductID]; ok {
			continue
		}
		seen[it.ProductID] = struct{}{}
		ids = append(ids, it.ProductID)
	}
	return ids
}

func (u *OrderService) publish(ctx context.Context, pattern string, evt any) {
	if err := u.publisher.Publish(ctx, pattern, evt); err != nil {
		u.log.Error("failed to publish event", zap.String("pattern", pattern), zap.Error(err))
	}
}

func (u *OrderService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.NewNotFound("order not found")
	}
	o, err := u.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, domain.NewNotFound("order not found")
	}
	return o, nil
}

// ListOrdersForUser returns the user's orders, newest first.
func (u *OrderService) ListOrdersForUser(ctx context.Context, userID string) ([]domain.Order, error) {
	if userID == "" {
		return nil, domain.NewUnauthorized("unauthorized")
	}
	orders, err := u.orders.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}

func (u *OrderService) ListAllOrders(ctx context.Context, page, limit int) (*OrderPage, error) {
	page, limit = normalizePage(page, limit)
	orders, total, err := u.orders.List(ctx, offsetOf(page, limit), limit)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return &OrderPage{Meta: NewPageMeta(page, limit, total), Items: orders}, nil
}

// UpdateOrderStatus moves an order along the status graph. Cancelling
// returns the order's units to stock in the same transaction.
func (u *OrderService) UpdateOrderStatus(ctx context.Context, id, status string) (*domain.Order, error) {
	next, ok := domain.ParseOrderStatus(strings.TrimSpace(status))
	if !ok {
		return nil, domain.NewBadRequest("invalid status")
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.NewNotFound("order not found")
	}

	var (
		order   *domain.Order
		from    domain.OrderStatus
		changed bool
	)
	err := u.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		o, err := u.orders.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if o == nil {
			return domain.NewNotFound("order not found")
		}
		order, from = o, o.Status
		if from == next {
			return nil
		}
		if !from.CanTransitionTo(next) {
			return domain.BadRequestf("invalid status transition from %s to %s", from, next)
		}

		if err := u.orders.UpdateStatus(ctx, id, from, next); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.NewConflict("order status changed concurrently")
			}
			return err
		}
		if next == domain.StatusCancelled {
			for _, it := range o.Items {
				if err := u.inventory.ReleaseStock(ctx, it.ProductID, it.Size, it.Quantity); err != nil {
					return fmt.Errorf("release stock for %s: %w", it.ProductID, err)
				}
			}
		}
		o.Status = next
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return order, nil
	}

	if next == domain.StatusCancelled {
		u.cache.Invalidate(ctx, productIDs(order.Items)...)
	}
	order.UpdatedAt = time.Now()
	u.log.Info("order status changed",
		zap.String("order_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(next)),
	)
	u.publish(ctx, domain.EventOrderStatusChanged, domain.OrderStatusChangedEvent{
		OrderID:   id,
		From:      from,
		To:        next,
		ChangedAt: order.UpdatedAt,
	})
	return order, nil
}
