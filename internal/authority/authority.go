// Package authority runs an engine operation as the single writer for one
// receipt (or lot): the key is locked, the work runs in one transaction, and
// the lock is released as soon as the transaction commits or rolls back.
package authority

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/dairy-dwr/internal/domain/models"
	"github.com/mamadbah2/dairy-dwr/internal/lock"
)

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Authority serializes mutations per key and makes them transactional.
type Authority struct {
	locks  lock.Locker
	tx     txManager
	logger *zap.Logger
}

// New wires an Authority.
func New(locks lock.Locker, tx txManager, logger *zap.Logger) *Authority {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authority{locks: locks, tx: tx, logger: logger}
}

// Do runs fn inside a transaction while holding key. A lock that cannot be
// obtained in time surfaces as models.ErrConflict.
func (a *Authority) Do(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	unlock, err := a.locks.Lock(ctx, key)
	if err != nil {
		if errors.Is(err, lock.ErrNotObtained) {
			a.logger.Debug("lock contention", zap.String("key", key))
			return fmt.Errorf("acquire %s: %w: %w", key, models.ErrConflict, err)
		}
		return fmt.Errorf("acquire %s: %w", key, err)
	}
	defer unlock()

	return a.tx.RunInTx(ctx, fn)
}

// Receipt is Do keyed by a receipt id.
func (a *Authority) Receipt(ctx context.Context, receiptID string, fn func(ctx context.Context) error) error {
	return a.Do(ctx, lock.ReceiptKey(receiptID), fn)
}

// Lot is Do keyed by a lot id.
func (a *Authority) Lot(ctx context.Context, lotID string, fn func(ctx context.Context) error) error {
	return a.Do(ctx, lock.LotKey(lotID), fn)
}
