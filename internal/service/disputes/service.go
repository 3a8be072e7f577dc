// Package disputes opens and resolves disputes. An open dispute freezes its
// receipt in the disputed status; resolution hands it back the status it held
// before.
package disputes

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
	InsertDispute(ctx context.Context, d models.Dispute) error
	GetDispute(ctx context.Context, id string) (models.Dispute, error)
	UpdateDispute(ctx context.Context, d models.Dispute) error
	FindOpenDispute(ctx context.Context, receiptID string) (models.Dispute, error)
	AppendAudit(ctx context.Context, e models.AuditEvent) error
}

type notifier interface {
	DisputeFiled(ctx context.Context, d models.Dispute, r models.Receipt)
}

// Service implements the dispute workflow.
type Service struct {
	store     store
	authority *authority.Authority
	oracle    *auth.Oracle
	notifier  notifier
	logger    *zap.Logger
	now       func() time.Time
}

// NewService wires a dispute service. notifier may be nil.
func NewService(store store, authority *authority.Authority, oracle *auth.Oracle, notifier notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     store,
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

// Get returns a dispute by id.
func (s *Service) Get(ctx context.Context, id string) (models.Dispute, error) {
	return s.store.GetDispute(ctx, id)
}

// File opens a dispute and freezes the receipt. Any stakeholder may file.
// A receipt carries at most one open dispute.
func (s *Service) File(ctx context.Context, actor models.Actor, in FileInput) (models.Dispute, error) {
	if err := in.Validate(); err != nil {
		return models.Dispute{}, err
	}
	if err := s.oracle.Authorize(actor, auth.OpFileDispute); err != nil {
		return models.Dispute{}, err
	}

	var (
		d models.Dispute
		r models.Receipt
	)
	err := s.authority.Receipt(ctx, in.ReceiptID, func(ctx context.Context) error {
		now := s.now()

		var err error
		if r, err = s.store.GetReceipt(ctx, in.ReceiptID); err != nil {
			return err
		}
		open, err := s.store.FindOpenDispute(ctx, r.ID)
		switch {
		case err == nil:
			return fmt.Errorf("receipt %s already disputed by %s: %w", r.ID, open.ID, models.ErrConflict)
		case !errors.Is(err, models.ErrNotFound):
			return err
		}

		d = models.Dispute{
			ID:               models.NewID(models.DisputeIDPrefix),
			ReceiptID:        r.ID,
			RaisedByEntityID: actor.EntityID,
			RaisedBy:         actor.Username,
			Type:             in.Type,
			Description:      strings.TrimSpace(in.Description),
			Status:           models.DisputeOpen,
			PriorStatus:      r.Status,
			CreatedAt:        now,
		}
		if err := receipts.Apply(ctx, s.store, actor, &r, models.ReceiptDisputed, now); err != nil {
			return err
		}
		if err := s.store.InsertDispute(ctx, d); err != nil {
			return err
		}
		details := map[string]any{
			"dispute_type": string(d.Type),
			"prior_status": string(d.PriorStatus),
			"description":  d.Description,
		}
		return s.store.AppendAudit(ctx, models.NewAuditEvent(actor, models.EventDisputeFiled, models.AuditEntityDispute, d.ID, r.ID, details, now))
	})
	if err != nil {
		s.logger.Debug("dispute rejected", zap.String("receipt_id", in.ReceiptID), zap.Error(err))
		return models.Dispute{}, fmt.Errorf("file dispute on %s: %w", in.ReceiptID, err)
	}

	s.logger.Info("dispute filed",
		zap.String("dispute_id", d.ID),
		zap.String("receipt_id", d.ReceiptID),
		zap.String("prior_status", string(d.PriorStatus)))

	if s.notifier != nil {
		s.notifier.DisputeFiled(ctx, d, r)
	}
	return d, nil
}

// Resolve closes an open dispute. The receipt goes back to its pre-dispute
// status only if it is still disputed.
func (s *Service) Resolve(ctx context.Context, actor models.Actor, disputeID, resolution string) (models.Dispute, error) {
	if err := s.oracle.Authorize(actor, auth.OpResolveDispute); err != nil {
		return models.Dispute{}, err
	}
	if strings.TrimSpace(resolution) == "" {
		return models.Dispute{}, models.NewValidationError("resolution", "required")
	}
	pending, err := s.store.GetDispute(ctx, disputeID)
	if err != nil {
		return models.Dispute{}, err
	}

	var (
		d        models.Dispute
		restored bool
	)
	err = s.authority.Receipt(ctx, pending.ReceiptID, func(ctx context.Context) error {
		now := s.now()

		var err error
		if d, err = s.store.GetDispute(ctx, disputeID); err != nil {
			return err
		}
		if d.Status != models.DisputeOpen {
			return fmt.Errorf("dispute %s: %w", d.ID, models.ErrAlreadyResolved)
		}

		d.Status = models.DisputeResolved
		d.Resolution = strings.TrimSpace(resolution)
		d.ResolvedBy = actor.Username
		d.ResolvedAt = &now
		if err := s.store.UpdateDispute(ctx, d); err != nil {
			return err
		}
		details := map[string]any{"resolution": d.Resolution}
		if err := s.store.AppendAudit(ctx, models.NewAuditEvent(actor, models.EventDisputeResolved, models.AuditEntityDispute, d.ID, d.ReceiptID, details, now)); err != nil {
			return err
		}

		r, err := s.store.GetReceipt(ctx, d.ReceiptID)
		if err != nil {
			return err
		}
		if r.Status != models.ReceiptDisputed {
			return nil
		}
		restored = true
		return receipts.Apply(ctx, s.store, actor, &r, d.PriorStatus, now)
	})
	if err != nil {
		s.logger.Debug("dispute resolution rejected", zap.String("dispute_id", disputeID), zap.Error(err))
		return models.Dispute{}, fmt.Errorf("resolve dispute %s: %w", disputeID, err)
	}

	s.logger.Info("dispute resolved",
		zap.String("dispute_id", d.ID),
		zap.String("receipt_id", d.ReceiptID),
		zap.Bool("receipt_restored", restored))
	return d, nil
}
