package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Repository level errors. Services translate them into their own taxonomy.
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// TxManager runs a function inside one database transaction. Repositories called with the
// context handed to fn take part in that transaction.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type txKey struct{}

// GORMTxManager is the GORM implementation of TxManager.
type GORMTxManager struct {
	db *gorm.DB
}

// NewGORMTxManager creates a new GORMTxManager.
func NewGORMTxManager(db *gorm.DB) *GORMTxManager {
	return &GORMTxManager{db: db}
}

// RunInTx commits when fn returns nil and rolls back otherwise (including on panic).
// A call made while a transaction is already open joins it.
func (m *GORMTxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// conn returns the transaction carried by ctx, or the base handle.
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}

// translate maps GORM errors onto the repository errors, keeping the original message.
func translate(err error, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", msg, ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", msg, ErrDuplicate)
	default:
		return fmt.Errorf("%s: %w", msg, err)
	}
}
