package receipts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/dairy-dwr/internal/auth"
	"github.com/mamadbah2/dairy-dwr/internal/domain/models"
)

// Issue creates an active receipt backed by an active lot. A lot backs at
// most one receipt.
func (s *Service) Issue(ctx context.Context, actor models.Actor, lotID string) (models.Receipt, error) {
	if err := s.oracle.Authorize(actor, auth.OpIssueReceipt); err != nil {
		return models.Receipt{}, err
	}

	var receipt models.Receipt
	err := s.authority.Lot(ctx, lotID, func(ctx context.Context) error {
		now := s.now()

		lot, err := s.store.GetLot(ctx, lotID)
		if err != nil {
			return err
		}
		if lot.Status != models.LotActive {
			return &models.TransitionError{Entity: "dwr", From: "lot_" + string(lot.Status), To: string(models.ReceiptActive)}
		}
		if now.After(lot.ExpiresAt) {
			return fmt.Errorf("lot %s expired at %s: %w", lot.ID, lot.ExpiresAt.Format(time.RFC3339), models.ErrExpired)
		}

		existing, err := s.store.FindReceiptByLot(ctx, lotID)
		switch {
		case err == nil:
			return fmt.Errorf("lot %s already backs %s: %w", lotID, existing.ID, models.ErrConflict)
		case !errors.Is(err, models.ErrNotFound):
			return err
		}

		receipt = models.Receipt{
			ID:            models.NewID(models.ReceiptIDPrefix),
			LotID:         lot.ID,
			OwnerEntityID: lot.OwnerEntityID,
			CustodianID:   lot.CustodianID,
			Status:        models.ReceiptActive,
			IssuedAt:      now,
			ExpiresAt:     lot.ExpiresAt,
			UpdatedAt:     now,
		}
		if err := s.store.InsertReceipt(ctx, receipt); err != nil {
			return err
		}

		details := map[string]any{
			"lot_id":          lot.ID,
			"owner_entity_id": lot.OwnerEntityID,
			"custodian_id":    lot.CustodianID,
			"expiry_ts":       lot.ExpiresAt.UTC().Format(time.RFC3339),
		}
		return s.store.AppendAudit(ctx, models.NewAuditEvent(actor, models.EventReceiptIssued, models.AuditEntityReceipt, receipt.ID, receipt.ID, details, now))
	})
	if err != nil {
		return models.Receipt{}, fmt.Errorf("issue receipt for %s: %w", lotID, err)
	}

	s.logger.Info("receipt issued",
		zap.String("receipt_id", receipt.ID),
		zap.String("lot_id", lotID),
		zap.String("actor", actor.Username))
	return receipt, nil
}
