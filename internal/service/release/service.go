// Package release dispatches sold lots to their buyers. Confirming a release
// order closes the receipt for good.
package release

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/dairy-dwr/internal/auth"
	"github.com/mamadbah2/dairy-dwr/internal/authority"
	"github.com/mamadbah2/dairy-dwr/internal/domain/models"
	"github.com/mamadbah2/dairy-dwr/internal/service/receipts"
)

type store interface {
	GetReceipt(ctx context.Context, id string) (models.Receipt, error)
	UpdateReceipt(ctx context.Context, r *models.Receipt) error
	InsertReleaseOrder(ctx context.Context, o models.ReleaseOrder) error
	GetReleaseOrder(ctx context.Context, id string) (models.ReleaseOrder, error)
	UpdateReleaseOrder(ctx context.Context, o models.ReleaseOrder) error
	FindPendingReleaseOrder(ctx context.Context, receiptID string) (models.ReleaseOrder, error)
	AppendAudit(ctx context.Context, e models.AuditEvent) error
}

type directory interface {
	Entity(id string) (models.Entity, error)
}

type notifier interface {
	ReleaseConfirmed(ctx context.Context, o models.ReleaseOrder, r models.Receipt)
}

// Service implements the release workflow.
type Service struct {
	store     store
	dir       directory
	authority *authority.Authority
	oracle    *auth.Oracle
	notifier  notifier
	logger    *zap.Logger
	now       func() time.Time
}

// NewService wires a release service. notifier may be nil.
func NewService(store store, dir directory, authority *authority.Authority, oracle *auth.Oracle, notifier notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     store,
		dir:       dir,
		authority: authority,
		oracle:    oracle,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock replaces the service clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Get returns a release order by id.
func (s *Service) Get(ctx context.Context, id string) (models.ReleaseOrder, error) {
	return s.store.GetReleaseOrder(ctx, id)
}

// CreateReleaseOrder asks the receipt's custodian to dispatch a sold lot.
func (s *Service) CreateReleaseOrder(ctx context.Context, actor models.Actor, receiptID, buyerEntityID, notes string) (models.ReleaseOrder, error) {
	if err := s.oracle.Authorize(actor, auth.OpCreateReleaseOrder); err != nil {
		return models.ReleaseOrder{}, err
	}
	if receiptID == "" {
		return models.ReleaseOrder{}, models.NewValidationError("receipt_id", "required")
	}
	if _, err := s.dir.Entity(buyerEntityID); err != nil {
		return models.ReleaseOrder{}, err
	}

	var o models.ReleaseOrder
	err := s.authority.Receipt(ctx, receiptID, func(ctx context.Context) error {
		now := s.now()

		r, err := s.store.GetReceipt(ctx, receiptID)
		if err != nil {
			return err
		}
		if r.Status != models.ReceiptSold {
			return &models.TransitionError{Entity: "release_order", From: string(r.Status), To: string(models.ReleasePending)}
		}
		existing, err := s.store.FindPendingReleaseOrder(ctx, r.ID)
		switch {
		case err == nil:
			return fmt.Errorf("receipt %s already has pending order %s: %w", r.ID, existing.ID, models.ErrConflict)
		case !errors.Is(err, models.ErrNotFound):
			return err
		}

		o = models.ReleaseOrder{
			ID:            models.NewID(models.ReleaseIDPrefix),
			ReceiptID:     r.ID,
			CustodianID:   r.CustodianID,
			BuyerEntityID: buyerEntityID,
			Status:        models.ReleasePending,
			Notes:         strings.TrimSpace(notes),
			CreatedAt:     now,
		}
		if err := s.store.InsertReleaseOrder(ctx, o); err != nil {
			return err
		}
		details := map[string]any{
			"buyer_entity_id": o.BuyerEntityID,
			"custodian_id":    o.CustodianID,
		}
		return s.store.AppendAudit(ctx, models.NewAuditEvent(actor, models.EventReleaseOrderCreated, models.AuditEntityReleaseOrder, o.ID, r.ID, details, now))
	})
	if err != nil {
		s.logger.Debug("release order rejected", zap.String("receipt_id", receiptID), zap.Error(err))
		return models.ReleaseOrder{}, fmt.Errorf("create release order for %s: %w", receiptID, err)
	}

	s.logger.Info("release order created",
		zap.String("release_order_id", o.ID),
		zap.String("receipt_id", o.ReceiptID),
		zap.String("custodian_id", o.CustodianID))
	return o, nil
}

// ConfirmRelease records the dispatch. Custodians may only confirm orders
// addressed to their own site.
func (s *Service) ConfirmRelease(ctx context.Context, actor models.Actor, orderID string) (models.ReleaseOrder, error) {
	if err := s.oracle.Authorize(actor, auth.OpConfirmRelease); err != nil {
		return models.ReleaseOrder{}, err
	}
	pending, err := s.store.GetReleaseOrder(ctx, orderID)
	if err != nil {
		return models.ReleaseOrder{}, err
	}

	var (
		o models.ReleaseOrder
		r models.Receipt
	)
	err = s.authority.Receipt(ctx, pending.ReceiptID, func(ctx context.Context) error {
		now := s.now()

		var err error
		if o, err = s.store.GetReleaseOrder(ctx, orderID); err != nil {
			return err
		}
		if err := s.oracle.AuthorizeCustodian(actor, auth.OpConfirmRelease, o.CustodianID); err != nil {
			return err
		}
		if o.Status != models.ReleasePending {
			return fmt.Errorf("release order %s is %s: %w", o.ID, o.Status, models.ErrNotPending)
		}
		if r, err = s.store.GetReceipt(ctx, o.ReceiptID); err != nil {
			return err
		}

		o.Status = models.ReleaseReleased
		o.ConfirmedAt = &now
		o.ConfirmedBy = actor.Username
		if err := s.store.UpdateReleaseOrder(ctx, o); err != nil {
			return err
		}
		details := map[string]any{"confirmed_by": actor.Username}
		if err := s.store.AppendAudit(ctx, models.NewAuditEvent(actor, models.EventReleaseConfirmed, models.AuditEntityReleaseOrder, o.ID, r.ID, details, now)); err != nil {
			return err
		}
		return receipts.Apply(ctx, s.store, actor, &r, models.ReceiptReleased, now)
	})
	if err != nil {
		s.logger.Debug("release confirmation rejected", zap.String("release_order_id", orderID), zap.Error(err))
		return models.ReleaseOrder{}, fmt.Errorf("confirm release %s: %w", orderID, err)
	}

	s.logger.Info("release confirmed",
		zap.String("release_order_id", o.ID),
		zap.String("receipt_id", r.ID),
		zap.String("actor", actor.Username))

	if s.notifier != nil {
		s.notifier.ReleaseConfirmed(ctx, o, r)
	}
	return o, nil
}
