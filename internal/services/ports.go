package services

import (
	"context"

	"shop-service/internal/domain"
	"shop-service/internal/infra/cache"
)

type ProductCache interface {
	Fetch(ctx context.Context, id string, load cache.LoadFunc) (*domain.Product, error)
	Put(ctx context.Context, p *domain.Product)
	Invalidate(ctx context.Context, ids ...string)
}

type IdempotencyStore interface {
	Begin(ctx context.Context, key string) (cache.Claim, error)
	Complete(ctx context.Context, key, orderID string) error
	Abort(ctx context.Context, key string) error
}

type TokenIssuer interface {
	Issue(u *domain.User) (string, error)
	Parse(raw string) (*domain.Principal, error)
}

var (
	_ ProductCache     = (*cache.ProductCache)(nil)
	_ IdempotencyStore = (*cache.IdempotencyStore)(nil)
)
