// Package settlement creates sale contracts and settles them on payment:
// the payment, the automatic repayment of any active advance, the contract
// and the receipt change together or not at all.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/dairy-dwr/internal/auth"
	"github.com/mamadbah2/dairy-dwr/internal/authority"
	"github.com/mamadbah2/dairy-dwr/internal/domain/models"
	"github.com/mamadbah2/dairy-dwr/internal/service/advances"
	"github.com/mamadbah2/dairy-dwr/internal/service/receipts"
)

type store interface {
	GetReceipt(ctx context.Context, id string) (models.Receipt, error)
	UpdateReceipt(ctx context.Context, r *models.Receipt) error
	FindOpenDispute(ctx context.Context, receiptID string) (models.Dispute, error)
	FindActiveAdvance(ctx context.Context, receiptID string) (models.Advance, error)
	UpdateAdvance(ctx context.Context, a models.Advance) error
	InsertContract(ctx context.Context, c models.SalesContract) error
	GetContract(ctx context.Context, id string) (models.SalesContract, error)
	UpdateContract(ctx context.Context, c models.SalesContract) error
	InsertPayment(ctx context.Context, p models.Payment) error
	AppendAudit(ctx context.Context, e models.AuditEvent) error
}

type directory interface {
	Entity(id string) (models.Entity, error)
}

type notifier interface {
	SaleSettled(ctx context.Context, s models.Settlement)
}

// Service implements sale and settlement operations.
type Service struct {
	store     store
	dir       directory
	authority *authority.Authority
	oracle    *auth.Oracle
	notifier  notifier
	logger    *zap.Logger
	now       func() time.Time
}

// NewService wires a settlement service. notifier may be nil.
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

// GetContract returns a sale contract by id.
func (s *Service) GetContract(ctx context.Context, id string) (models.SalesContract, error) {
	return s.store.GetContract(ctx, id)
}

// CreateContract lists a receipt for sale to a buyer. Only active or
// advance_active receipts without an open dispute are listable.
func (s *Service) CreateContract(ctx context.Context, actor models.Actor, in CreateContractInput) (models.SalesContract, error) {
	if err := in.Validate(); err != nil {
		return models.SalesContract{}, err
	}
	if err := s.oracle.Authorize(actor, auth.OpCreateContract); err != nil {
		return models.SalesContract{}, err
	}
	if _, err := s.dir.Entity(in.BuyerEntityID); err != nil {
		return models.SalesContract{}, err
	}

	var contract models.SalesContract
	err := s.authority.Receipt(ctx, in.ReceiptID, func(ctx context.Context) error {
		now := s.now()

		r, err := s.store.GetReceipt(ctx, in.ReceiptID)
		if err != nil {
			return err
		}
		if err := s.oracle.AuthorizeOwner(actor, auth.OpCreateContract, r.OwnerEntityID); err != nil {
			return err
		}

		_, err = s.store.FindOpenDispute(ctx, r.ID)
		openDispute := err == nil
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return err
		}
		if err := r.CheckListable(openDispute); err != nil {
			return err
		}

		contract = models.SalesContract{
			ID:            models.NewID(models.ContractIDPrefix),
			ReceiptID:     r.ID,
			BuyerEntityID: in.BuyerEntityID,
			Price:         in.Price,
			Terms:         in.Terms,
			Status:        models.ContractPendingPayment,
			CreatedAt:     now,
		}
		if err := s.store.InsertContract(ctx, contract); err != nil {
			return err
		}
		details := map[string]any{
			"buyer_entity_id": contract.BuyerEntityID,
			"price_xof":       contract.Price.String(),
			"payment_terms":   string(contract.Terms),
		}
		if err := s.store.AppendAudit(ctx, models.NewAuditEvent(actor, models.EventContractCreated, models.AuditEntityContract, contract.ID, r.ID, details, now)); err != nil {
			return err
		}
		return receipts.Apply(ctx, s.store, actor, &r, models.ReceiptPendingSale, now)
	})
	if err != nil {
		s.logger.Debug("sale contract rejected", zap.String("receipt_id", in.ReceiptID), zap.Error(err))
		return models.SalesContract{}, fmt.Errorf("create contract on %s: %w", in.ReceiptID, err)
	}

	s.logger.Info("sale contract created",
		zap.String("contract_id", contract.ID),
		zap.String("receipt_id", contract.ReceiptID),
		zap.String("price_xof", contract.Price.String()))
	return contract, nil
}

// ConfirmPayment settles a pending contract: it records the payment,
// repays any active advance out of the price, settles the contract and marks
// the receipt sold, all in one transaction. net_to_owner may be negative when
// the advance exceeds the price; it is recorded as is.
func (s *Service) ConfirmPayment(ctx context.Context, actor models.Actor, in ConfirmPaymentInput) (models.Settlement, error) {
	if err := in.Validate(); err != nil {
		return models.Settlement{}, err
	}
	if err := s.oracle.Authorize(actor, auth.OpConfirmPayment); err != nil {
		return models.Settlement{}, err
	}
	pending, err := s.store.GetContract(ctx, in.ContractID)
	if err != nil {
		return models.Settlement{}, err
	}

	var out models.Settlement
	err = s.authority.Receipt(ctx, pending.ReceiptID, func(ctx context.Context) error {
		now := s.now()
		out = models.Settlement{}

		c, err := s.store.GetContract(ctx, in.ContractID)
		if err != nil {
			return err
		}
		if c.Status != models.ContractPendingPayment {
			return fmt.Errorf("contract %s is %s: %w", c.ID, c.Status, models.ErrNotPending)
		}
		r, err := s.store.GetReceipt(ctx, c.ReceiptID)
		if err != nil {
			return err
		}

		payment := models.Payment{
			ID:          models.NewID(models.PaymentIDPrefix),
			ContractID:  c.ID,
			PayerID:     c.BuyerEntityID,
			PayeeID:     r.OwnerEntityID,
			Amount:      c.Price,
			Method:      in.Method,
			Status:      models.PaymentConfirmed,
			ProviderRef: in.ProviderRef,
			CreatedAt:   now,
			ConfirmedAt: now,
		}
		if err := s.store.InsertPayment(ctx, payment); err != nil {
			return err
		}
		details := map[string]any{
			"amount_xof":   payment.Amount.String(),
			"method":       string(payment.Method),
			"provider_ref": payment.ProviderRef,
		}
		if err := s.store.AppendAudit(ctx, models.NewAuditEvent(actor, models.EventPaymentConfirmed, models.AuditEntityPayment, payment.ID, r.ID, details, now)); err != nil {
			return err
		}

		net := c.Price
		adv, err := s.store.FindActiveAdvance(ctx, r.ID)
		switch {
		case err == nil:
			net = c.Price.Sub(adv.Outstanding())
			if _, err := advances.MarkRepaid(ctx, s.store, actor, &adv, now); err != nil {
				return err
			}
			out.RepaidAdvance = &adv
		case !errors.Is(err, models.ErrNotFound):
			return err
		}

		c.Status = models.ContractSettled
		c.NetToOwner = net
		c.PaymentID = payment.ID
		c.SettledAt = &now
		if err := s.store.UpdateContract(ctx, c); err != nil {
			return err
		}
		details = map[string]any{
			"price_xof":        c.Price.String(),
			"net_to_owner_xof": net.String(),
			"payment_id":       payment.ID,
		}
		if out.RepaidAdvance != nil {
			details["advance_id"] = out.RepaidAdvance.ID
		}
		if err := s.store.AppendAudit(ctx, models.NewAuditEvent(actor, models.EventSaleSettled, models.AuditEntityContract, c.ID, r.ID, details, now)); err != nil {
			return err
		}

		r.LienActive = false
		r.LienHolderID = ""
		if err := receipts.Apply(ctx, s.store, actor, &r, models.ReceiptSold, now); err != nil {
			return err
		}

		out.Contract = c
		out.Payment = payment
		out.Receipt = r
		return nil
	})
	if err != nil {
		s.logger.Debug("payment confirmation rejected", zap.String("contract_id", in.ContractID), zap.Error(err))
		return models.Settlement{}, fmt.Errorf("confirm payment for %s: %w", in.ContractID, err)
	}

	fields := []zap.Field{
		zap.String("contract_id", out.Contract.ID),
		zap.String("receipt_id", out.Receipt.ID),
		zap.String("net_to_owner_xof", out.Contract.NetToOwner.String()),
	}
	if out.RepaidAdvance != nil {
		fields = append(fields, zap.String("repaid_advance_id", out.RepaidAdvance.ID))
	}
	if out.Contract.NetToOwner.IsNegative() {
		s.logger.Warn("sale settled below advance outstanding", fields...)
	} else {
		s.logger.Info("sale settled", fields...)
	}

	if s.notifier != nil {
		s.notifier.SaleSettled(ctx, out)
	}
	return out, nil
}
