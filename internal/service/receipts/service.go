// Package receipts owns the receipt lifecycle: issuance from an active lot,
// guarded status transitions, verification and the expiry sweep.
package receipts

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/dairy-dwr/internal/auth"
	"github.com/mamadbah2/dairy-dwr/internal/authority"
	"github.com/mamadbah2/dairy-dwr/internal/domain/models"
)

type store interface {
	GetLot(ctx context.Context, id string) (models.DairyLot, error)
	InsertReceipt(ctx context.Context, r models.Receipt) error
	GetReceipt(ctx context.Context, id string) (models.Receipt, error)
	UpdateReceipt(ctx context.Context, r *models.Receipt) error
	FindReceiptByLot(ctx context.Context, lotID string) (models.Receipt, error)
	ListReceiptsByStatus(ctx context.Context, status models.ReceiptStatus) ([]models.Receipt, error)
	FindActiveAdvance(ctx context.Context, receiptID string) (models.Advance, error)
	FindOpenDispute(ctx context.Context, receiptID string) (models.Dispute, error)
	AppendAudit(ctx context.Context, e models.AuditEvent) error
}

// Service implements receipt operations.
type Service struct {
	store     store
	authority *authority.Authority
	oracle    *auth.Oracle
	logger    *zap.Logger
	now       func() time.Time
}

// NewService wires a receipt service.
func NewService(store store, authority *authority.Authority, oracle *auth.Oracle, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     store,
		authority: authority,
		oracle:    oracle,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock replaces the service clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Writer is what Apply needs from a store.
type Writer interface {
	UpdateReceipt(ctx context.Context, r *models.Receipt) error
	AppendAudit(ctx context.Context, e models.AuditEvent) error
}

// Apply moves r to the target status and records the change with its audit
// event. It must run inside the receipt's authority. Callers may set lien
// fields on r beforehand; they are persisted with the status change.
func Apply(ctx context.Context, w Writer, actor models.Actor, r *models.Receipt, to models.ReceiptStatus, now time.Time) error {
	from := r.Status
	if err := r.Transition(to, now); err != nil {
		return err
	}
	if err := w.UpdateReceipt(ctx, r); err != nil {
		return err
	}

	details := map[string]any{
		"from":        string(from),
		"to":          string(to),
		"lien_active": r.LienActive,
	}
	if r.LienHolderID != "" {
		details["lien_holder_id"] = r.LienHolderID
	}
	return w.AppendAudit(ctx, models.NewAuditEvent(actor, models.EventReceiptTransitioned, models.AuditEntityReceipt, r.ID, r.ID, details, now))
}
