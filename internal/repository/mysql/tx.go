package mysql

import (
	"context"

	"shop-service/internal/repository"

	"gorm.io/gorm"
)

type txKey struct{}

type transactor struct {
	db *gorm.DB
}

func NewTransactor(db *gorm.DB) repository.Transactor {
	return &transactor{db: db}
}

func (t *transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return withinTx(ctx, t.db, func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// conn returns the transaction carried by ctx, or db bound to ctx.
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}

// withinTx runs fn in a transaction. Inside an existing transaction gorm
// uses a savepoint, so a failing fn only undoes its own writes.
func withinTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return conn(ctx, db).Transaction(fn)
}
