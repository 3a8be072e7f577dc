package receipts

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/dairy-dwr/internal/auth"
	"github.com/mamadbah2/dairy-dwr/internal/domain/models"
)

// workflowOwned maps statuses whose entry or exit must go through the
// workflow that keeps dependent records in step with the receipt.
var workflowOwned = map[models.ReceiptStatus]string{
	models.ReceiptPendingSale:   "sale contract",
	models.ReceiptAdvanceActive: "advance ledger",
	models.ReceiptDisputed:      "dispute workflow",
	models.ReceiptSold:          "payment confirmation",
	models.ReceiptReleased:      "release workflow",
}

// Get returns a receipt by id.
func (s *Service) Get(ctx context.Context, id string) (models.Receipt, error) {
	return s.store.GetReceipt(ctx, id)
}

// Transition applies an administrative status change. Edges that enter or
// leave a workflow-owned status are rejected so that a receipt's status never
// disagrees with its advances, contracts, disputes or release orders.
func (s *Service) Transition(ctx context.Context, actor models.Actor, receiptID string, to models.ReceiptStatus) (models.Receipt, error) {
	if err := s.oracle.Authorize(actor, auth.OpTransitionReceipt); err != nil {
		return models.Receipt{}, err
	}

	var r models.Receipt
	err := s.authority.Receipt(ctx, receiptID, func(ctx context.Context) error {
		var err error
		if r, err = s.store.GetReceipt(ctx, receiptID); err != nil {
			return err
		}
		if !models.CanTransition(r.Status, to) {
			return &models.TransitionError{Entity: "dwr", From: string(r.Status), To: string(to)}
		}
		if owner, ok := workflowOwned[to]; ok {
			return fmt.Errorf("%s -> %s goes through the %s: %w", r.Status, to, owner, models.ErrIllegalTransition)
		}
		if owner, ok := workflowOwned[r.Status]; ok {
			return fmt.Errorf("%s -> %s goes through the %s: %w", r.Status, to, owner, models.ErrIllegalTransition)
		}
		return Apply(ctx, s.store, actor, &r, to, s.now())
	})
	if err != nil {
		s.logger.Debug("receipt transition rejected",
			zap.String("receipt_id", receiptID),
			zap.String("to", string(to)),
			zap.Error(err))
		return models.Receipt{}, fmt.Errorf("transition %s: %w", receiptID, err)
	}

	s.logger.Info("receipt transitioned",
		zap.String("receipt_id", r.ID),
		zap.String("status", string(r.Status)),
		zap.String("actor", actor.Username))
	return r, nil
}

// SweepExpired expires active receipts whose deadline has passed, one
// receipt authority at a time. Receipts whose lock is busy are left for the
// next sweep.
func (s *Service) SweepExpired(ctx context.Context, actor models.Actor) (int, error) {
	active, err := s.store.ListReceiptsByStatus(ctx, models.ReceiptActive)
	if err != nil {
		return 0, fmt.Errorf("list active receipts: %w", err)
	}

	expired := 0
	for _, candidate := range active {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		if !candidate.IsExpired(s.now()) {
			continue
		}

		swept := false
		err := s.authority.Receipt(ctx, candidate.ID, func(ctx context.Context) error {
			r, err := s.store.GetReceipt(ctx, candidate.ID)
			if err != nil {
				return err
			}
			now := s.now()
			if r.Status != models.ReceiptActive || !r.IsExpired(now) {
				return nil
			}
			swept = true
			return Apply(ctx, s.store, actor, &r, models.ReceiptExpired, now)
		})
		switch {
		case errors.Is(err, models.ErrConflict):
			s.logger.Debug("receipt busy, skipped by sweep", zap.String("receipt_id", candidate.ID))
			continue
		case err != nil:
			return expired, fmt.Errorf("expire %s: %w", candidate.ID, err)
		}
		if swept {
			expired++
			s.logger.Info("receipt expired", zap.String("receipt_id", candidate.ID))
		}
	}
	return expired, nil
}
