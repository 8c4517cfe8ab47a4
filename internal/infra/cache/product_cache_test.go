package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"shop-service/internal/domain"

	"github.com/go-redis/redismock/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func sampleProduct() *domain.Product {
	return &domain.Product{
		ID:           "7b1c4a52-2f3e-4c55-9f0e-1f7a3c1d9e10",
		Name:         "Linen Shirt",
		Category:     "Top",
		Brand:        "Acme",
		Price:        decimal.RequireFromString("19.99"),
		Sizes:        []domain.ProductSize{{Label: domain.SizeS, Stock: 2}, {Label: domain.SizeM, Stock: 3}},
		CountInStock: 5,
		Status:       domain.ProductAvailable,
	}
}

func TestProductCache_Hit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewProductCache(db, time.Minute, zaptest.NewLogger(t))
	p := sampleProduct()
	b, err := json.Marshal(p)
	require.NoError(t, err)

	mock.ExpectGet(productKey(p.ID)).SetVal(string(b))

	got, err := c.Fetch(context.Background(), p.ID, func(context.Context) (*domain.Product, error) {
		t.Fatal("loader must not run on a hit")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
	assert.True(t, p.Price.Equal(got.Price))
	assert.Equal(t, p.Sizes, got.Sizes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductCache_MissLoadsAndStores(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewProductCache(db, time.Minute, zaptest.NewLogger(t))
	p := sampleProduct()
	b, err := json.Marshal(p)
	require.NoError(t, err)

	mock.ExpectGet(productKey(p.ID)).RedisNil()
	mock.ExpectGet(productKey(p.ID)).RedisNil()
	mock.ExpectSet(productKey(p.ID), b, time.Minute).SetVal("OK")

	got, err := c.Fetch(context.Background(), p.ID, func(context.Context) (*domain.Product, error) {
		return p, nil
	})
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductCache_MissingProductIsNotCached(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewProductCache(db, time.Minute, zaptest.NewLogger(t))

	mock.ExpectGet(productKey("gone")).RedisNil()
	mock.ExpectGet(productKey("gone")).RedisNil()

	got, err := c.Fetch(context.Background(), "gone", func(context.Context) (*domain.Product, error) {
		return nil, nil
	})
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductCache_RedisErrorFallsBackToLoader(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewProductCache(db, time.Minute, zaptest.NewLogger(t))
	p := sampleProduct()
	b, err := json.Marshal(p)
	require.NoError(t, err)

	mock.ExpectGet(productKey(p.ID)).SetErr(errors.New("connection refused"))
	mock.ExpectGet(productKey(p.ID)).SetErr(errors.New("connection refused"))
	mock.ExpectSet(productKey(p.ID), b, time.Minute).SetErr(errors.New("connection refused"))

	got, err := c.Fetch(context.Background(), p.ID, func(context.Context) (*domain.Product, error) {
		return p, nil
	})
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
}

func TestProductCache_LoaderErrorPropagates(t *testing.T) {
	c := NewProductCache(nil, time.Minute, nil)
	boom := errors.New("boom")

	_, err := c.Fetch(context.Background(), "x", func(context.Context) (*domain.Product, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestProductCache_ConcurrentMissesShareOneLoad(t *testing.T) {
	c := NewProductCache(nil, time.Minute, nil)
	p := sampleProduct()

	var loads atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) (*domain.Product, error) {
		loads.Add(1)
		<-release
		return p, nil
	}

	var wg sync.WaitGroup
	results := make([]*domain.Product, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := c.Fetch(context.Background(), p.ID, load)
			assert.NoError(t, err)
			results[i] = got
		}(i)
	}
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())
	for _, got := range results {
		require.NotNil(t, got)
		assert.Equal(t, p.ID, got.ID)
	}
	results[0].Sizes[0].Stock = 99
	assert.Equal(t, 2, results[1].Sizes[0].Stock)
}

func TestProductCache_Invalidate(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewProductCache(db, time.Minute, zaptest.NewLogger(t))

	mock.ExpectDel(productKey("a"), productKey("b")).SetVal(2)

	c.Invalidate(context.Background(), "a", "b")
	c.Invalidate(context.Background())
	assert.NoError(t, mock.ExpectationsWereMet())
}
