package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idempotencyPrefix = "idem:order:"
	inFlight          = "pending"
)

// Claim is the outcome of claiming an idempotency key.
type Claim struct {
	// Acquired is set when the caller now owns the key and must finish
	// with Complete or Abort.
	Acquired bool
	// OrderID is set when an earlier request with the key already succeeded.
	OrderID string
}

// IdempotencyStore remembers which order an Idempotency-Key produced.
type IdempotencyStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewIdempotencyStore(client redis.Cmdable, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{client: client, ttl: ttl}
}

func idempotencyKey(key string) string { return idempotencyPrefix + key }

// Begin claims key with SET NX. When the key is taken, the stored order id
// is returned, or an empty Claim while the first request is still running.
func (s *IdempotencyStore) Begin(ctx context.Context, key string) (Claim, error) {
	ok, err := s.client.SetNX(ctx, idempotencyKey(key), inFlight, s.ttl).Result()
	if err != nil {
		return Claim{}, fmt.Errorf("claim idempotency key: %w", err)
	}
	if ok {
		return Claim{Acquired: true}, nil
	}

	v, err := s.client.Get(ctx, idempotencyKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		// expired between the two calls
		return s.Begin(ctx, key)
	}
	if err != nil {
		return Claim{}, fmt.Errorf("read idempotency key: %w", err)
	}
	if v == inFlight {
		return Claim{}, nil
	}
	return Claim{OrderID: v}, nil
}

func (s *IdempotencyStore) Complete(ctx context.Context, key, orderID string) error {
	if err := s.client.Set(ctx, idempotencyKey(key), orderID, s.ttl).Err(); err != nil {
		return fmt.Errorf("complete idempotency key: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) Abort(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, idempotencyKey(key)).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}
