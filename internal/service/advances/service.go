// Package advances is the advance ledger: cash advances collateralized by a
// receipt, their valuation limit and their repayment.
package advances

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy-dwr/internal/auth"
	"github.com/mamadbah2/dairy-dwr/internal/authority"
	"github.com/mamadbah2/dairy-dwr/internal/domain/models"
	"github.com/mamadbah2/dairy-dwr/internal/service/receipts"
)

type store interface {
	GetLot(ctx context.Context, id string) (models.DairyLot, error)
	GetReceipt(ctx context.Context, id string) (models.Receipt, error)
	UpdateReceipt(ctx context.Context, r *models.Receipt) error
	InsertAdvance(ctx context.Context, a models.Advance) error
	GetAdvance(ctx context.Context, id string) (models.Advance, error)
	UpdateAdvance(ctx context.Context, a models.Advance) error
	FindActiveAdvance(ctx context.Context, receiptID string) (models.Advance, error)
	ListActiveAdvances(ctx context.Context) ([]models.Advance, error)
	AppendAudit(ctx context.Context, e models.AuditEvent) error
}

type pricer interface {
	Entity(id string) (models.Entity, error)
	PricePerLiter(product models.ProductType, region string) decimal.Decimal
}

// Policy is the lending policy the ledger enforces.
type Policy struct {
	MaxLTV decimal.Decimal
	// LenderID is the entity holding the lien of in-house advances.
	LenderID string
}

// Service implements advance ledger operations.
type Service struct {
	store     store
	prices    pricer
	authority *authority.Authority
	oracle    *auth.Oracle
	policy    Policy
	logger    *zap.Logger
	now       func() time.Time
}

// NewService wires an advance ledger.
func NewService(store store, prices pricer, authority *authority.Authority, oracle *auth.Oracle, policy Policy, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     store,
		prices:    prices,
		authority: authority,
		oracle:    oracle,
		policy:    policy,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock replaces the service clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// EstimateValue values a lot at the reference price of its product in the
// owner's region.
func (s *Service) EstimateValue(lot models.DairyLot) decimal.Decimal {
	region := ""
	if owner, err := s.prices.Entity(lot.OwnerEntityID); err == nil {
		region = owner.Region
	}
	return lot.QuantityLiters.Mul(s.prices.PricePerLiter(lot.ProductType, region))
}

// Get returns an advance by id.
func (s *Service) Get(ctx context.Context, id string) (models.Advance, error) {
	return s.store.GetAdvance(ctx, id)
}

// Issue creates an advance against an active receipt, places the lien and
// moves the receipt to advance_active in one transaction.
func (s *Service) Issue(ctx context.Context, actor models.Actor, in IssueInput) (models.Advance, error) {
	if err := in.Validate(); err != nil {
		return models.Advance{}, err
	}
	ltv := in.LTV
	if ltv.IsZero() {
		ltv = s.policy.MaxLTV
	}
	if ltv.GreaterThan(s.policy.MaxLTV) {
		return models.Advance{}, models.NewValidationError("ltv", fmt.Sprintf("must not exceed %s", s.policy.MaxLTV))
	}
	if err := s.oracle.Authorize(actor, auth.OpIssueAdvance); err != nil {
		return models.Advance{}, err
	}

	var adv models.Advance
	err := s.authority.Receipt(ctx, in.ReceiptID, func(ctx context.Context) error {
		now := s.now()

		r, err := s.store.GetReceipt(ctx, in.ReceiptID)
		if err != nil {
			return err
		}
		if err := s.oracle.AuthorizeOwner(actor, auth.OpIssueAdvance, r.OwnerEntityID); err != nil {
			return err
		}

		existing, err := s.store.FindActiveAdvance(ctx, r.ID)
		switch {
		case err == nil:
			return fmt.Errorf("advance %s outstanding: %w", existing.ID, models.ErrDuplicateAdvance)
		case !errors.Is(err, models.ErrNotFound):
			return err
		}
		if r.Status != models.ReceiptActive {
			return fmt.Errorf("receipt is %s: %w", r.Status, models.ErrReceiptNotActive)
		}

		lot, err := s.store.GetLot(ctx, r.LotID)
		if err != nil {
			return err
		}
		if err := r.CheckLienable(lot.Status); err != nil {
			return err
		}

		value := s.EstimateValue(lot)
		limit := value.Mul(ltv)
		if in.Principal.GreaterThan(limit) {
			return fmt.Errorf("principal %s above %s (value %s at ltv %s): %w",
				in.Principal, limit, value, ltv, models.ErrOverCollateralized)
		}

		providerType, providerID := in.ProviderType, in.ProviderID
		if providerType == "" {
			providerType = "platform"
		}
		if providerID == "" {
			providerID = s.policy.LenderID
		}
		adv = models.Advance{
			ID:           models.NewID(models.AdvanceIDPrefix),
			ReceiptID:    r.ID,
			ProviderType: providerType,
			ProviderID:   providerID,
			Principal:    in.Principal,
			FeeRate:      in.FeeRate,
			Fee:          in.Principal.Mul(in.FeeRate),
			TenorDays:    in.TenorDays,
			Status:       models.AdvanceActive,
			CreatedAt:    now,
			DueAt:        now.AddDate(0, 0, in.TenorDays),
			Notes:        in.Notes,
		}
		if err := s.store.InsertAdvance(ctx, adv); err != nil {
			return err
		}
		details := map[string]any{
			"principal_xof":   adv.Principal.String(),
			"fee_xof":         adv.Fee.String(),
			"due_at":          adv.DueAt.UTC().Format(time.RFC3339),
			"ltv":             ltv.String(),
			"estimated_value": value.String(),
		}
		if err := s.store.AppendAudit(ctx, models.NewAuditEvent(actor, models.EventAdvanceCreated, models.AuditEntityAdvance, adv.ID, r.ID, details, now)); err != nil {
			return err
		}

		r.LienActive = true
		r.LienHolderID = providerID
		return receipts.Apply(ctx, s.store, actor, &r, models.ReceiptAdvanceActive, now)
	})
	if err != nil {
		s.logger.Debug("advance rejected", zap.String("receipt_id", in.ReceiptID), zap.Error(err))
		return models.Advance{}, fmt.Errorf("issue advance on %s: %w", in.ReceiptID, err)
	}

	s.logger.Info("advance issued",
		zap.String("advance_id", adv.ID),
		zap.String("receipt_id", adv.ReceiptID),
		zap.String("principal_xof", adv.Principal.String()),
		zap.Time("due_at", adv.DueAt))
	return adv, nil
}

// Repay settles an advance directly, lifts the lien and returns the receipt
// to active. Repaying an already repaid advance returns it unchanged.
func (s *Service) Repay(ctx context.Context, actor models.Actor, advanceID string) (models.Advance, error) {
	if err := s.oracle.Authorize(actor, auth.OpRepayAdvance); err != nil {
		return models.Advance{}, err
	}
	adv, err := s.store.GetAdvance(ctx, advanceID)
	if err != nil {
		return models.Advance{}, err
	}

	changed := false
	err = s.authority.Receipt(ctx, adv.ReceiptID, func(ctx context.Context) error {
		var err error
		if adv, err = s.store.GetAdvance(ctx, advanceID); err != nil {
			return err
		}
		r, err := s.store.GetReceipt(ctx, adv.ReceiptID)
		if err != nil {
			return err
		}
		if err := s.oracle.AuthorizeOwner(actor, auth.OpRepayAdvance, r.OwnerEntityID); err != nil {
			return err
		}
		if adv.Status == models.AdvanceRepaid {
			return nil
		}
		if r.Status != models.ReceiptAdvanceActive {
			return &models.TransitionError{Entity: "dwr", From: string(r.Status), To: string(models.ReceiptActive)}
		}

		now := s.now()
		if changed, err = MarkRepaid(ctx, s.store, actor, &adv, now); err != nil {
			return err
		}
		r.LienActive = false
		r.LienHolderID = ""
		return receipts.Apply(ctx, s.store, actor, &r, models.ReceiptActive, now)
	})
	if err != nil {
		return models.Advance{}, fmt.Errorf("repay %s: %w", advanceID, err)
	}

	if changed {
		s.logger.Info("advance repaid", zap.String("advance_id", adv.ID), zap.String("receipt_id", adv.ReceiptID))
	}
	return adv, nil
}

// Overdue lists active advances past their due date.
func (s *Service) Overdue(ctx context.Context) ([]models.Advance, error) {
	active, err := s.store.ListActiveAdvances(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active advances: %w", err)
	}
	now := s.now()
	var out []models.Advance
	for _, a := range active {
		if a.IsOverdue(now) {
			out = append(out, a)
		}
	}
	return out, nil
}

// LedgerWriter is what MarkRepaid needs from a store.
type LedgerWriter interface {
	UpdateAdvance(ctx context.Context, a models.Advance) error
	AppendAudit(ctx context.Context, e models.AuditEvent) error
}

// MarkRepaid records repayment of a, leaving the receipt to the caller. It is
// idempotent: an already repaid advance is left untouched and reports false.
// It must run inside the receipt's authority.
func MarkRepaid(ctx context.Context, w LedgerWriter, actor models.Actor, a *models.Advance, at time.Time) (bool, error) {
	if a.Status == models.AdvanceRepaid {
		return false, nil
	}
	a.Status = models.AdvanceRepaid
	a.RepaidAt = &at
	if err := w.UpdateAdvance(ctx, *a); err != nil {
		return false, err
	}
	details := map[string]any{"amount_xof": a.Outstanding().String()}
	if err := w.AppendAudit(ctx, models.NewAuditEvent(actor, models.EventAdvanceRepaid, models.AuditEntityAdvance, a.ID, a.ReceiptID, details, at)); err != nil {
		return false, err
	}
	return true, nil
}
