package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"shop-service/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const productKeyPrefix = "product:"

// LoadFunc reads a product from the system of record. A nil product means
// it does not exist.
type LoadFunc func(ctx context.Context) (*domain.Product, error)

// ProductCache is a read-through product cache. Concurrent misses for the
// same id share one load. A nil redis client turns it into a pass-through
// that still collapses concurrent loads.
type ProductCache struct {
	client redis.Cmdable
	ttl    time.Duration
	group  singleflight.Group
	log    *zap.Logger
}

func NewProductCache(client redis.Cmdable, ttl time.Duration, log *zap.Logger) *ProductCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProductCache{client: client, ttl: ttl, log: log}
}

func productKey(id string) string { return productKeyPrefix + id }

// Fetch returns the cached product or loads, stores and returns it. Redis
// failures are logged and never fail the read.
func (c *ProductCache) Fetch(ctx context.Context, id string, load LoadFunc) (*domain.Product, error) {
	if p, ok := c.get(ctx, id); ok {
		return p, nil
	}

	v, err, _ := c.group.Do(id, func() (interface{}, error) {
		if p, ok := c.get(ctx, id); ok {
			return p, nil
		}
		p, err := load(ctx)
		if err != nil || p == nil {
			return p, err
		}
		c.Put(ctx, p)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	p, _ := v.(*domain.Product)
	if p == nil {
		return nil, nil
	}
	return clone(p), nil
}

func (c *ProductCache) get(ctx context.Context, id string) (*domain.Product, bool) {
	if c.client == nil {
		return nil, false
	}
	b, err := c.client.Get(ctx, productKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("product cache read failed", zap.String("product_id", id), zap.Error(err))
		}
		return nil, false
	}
	var p domain.Product
	if err := json.Unmarshal(b, &p); err != nil {
		c.log.Warn("product cache entry corrupt", zap.String("product_id", id), zap.Error(err))
		return nil, false
	}
	return &p, true
}

func (c *ProductCache) Put(ctx context.Context, p *domain.Product) {
	if c.client == nil || p == nil {
		return
	}
	b, err := json.Marshal(p)
	if err != nil {
		c.log.Warn("product cache encode failed", zap.String("product_id", p.ID), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, productKey(p.ID), b, c.ttl).Err(); err != nil {
		c.log.Warn("product cache write failed", zap.String("product_id", p.ID), zap.Error(err))
	}
}

func (c *ProductCache) Invalidate(ctx context.Context, ids ...string) {
	if c.client == nil || len(ids) == 0 {
		return
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = productKey(id)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn("product cache invalidate failed", zap.Strings("product_ids", ids), zap.Error(err))
	}
}

// clone keeps callers sharing one singleflight result from aliasing sizes.
func clone(p *domain.Product) *domain.Product {
	cp := *p
	cp.Sizes = append([]domain.ProductSize(nil), p.Sizes...)
	return &cp
}
