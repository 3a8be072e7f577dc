// Package lots is the lot registry: physical intake, quality results and
// the physical status of custodied product.
package lots

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/dairy-dwr/internal/auth"
	"github.com/mamadbah2/dairy-dwr/internal/authority"
	"github.com/mamadbah2/dairy-dwr/internal/domain/models"
)

type store interface {
	InsertLot(ctx context.Context, l models.DairyLot) error
	GetLot(ctx context.Context, id string) (models.DairyLot, error)
	UpdateLot(ctx context.Context, l models.DairyLot) error
	ListLotsByCustodian(ctx context.Context, custodianID string) ([]models.DairyLot, error)
	AppendAudit(ctx context.Context, e models.AuditEvent) error
}

type directory interface {
	Entity(id string) (models.Entity, error)
	Custodian(id string) (models.Custodian, error)
	Tank(id string) (models.Tank, error)
}

// Service implements lot registry operations.
type Service struct {
	store     store
	dir       directory
	authority *authority.Authority
	oracle    *auth.Oracle
	logger    *zap.Logger
	now       func() time.Time
}

// NewService wires a lot registry service.
func NewService(store store, dir directory, authority *authority.Authority, oracle *auth.Oracle, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     store,
		dir:       dir,
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

// RecordIntake registers a lot received by a custodian. A failed antibiotic
// test puts the lot straight into quarantine.
func (s *Service) RecordIntake(ctx context.Context, actor models.Actor, in IntakeInput) (models.DairyLot, error) {
	if err := in.Validate(); err != nil {
		return models.DairyLot{}, err
	}
	if err := s.oracle.AuthorizeCustodian(actor, auth.OpRecordIntake, in.CustodianID); err != nil {
		return models.DairyLot{}, err
	}

	if _, err := s.dir.Entity(in.OwnerEntityID); err != nil {
		return models.DairyLot{}, err
	}
	if _, err := s.dir.Custodian(in.CustodianID); err != nil {
		return models.DairyLot{}, err
	}
	tank, err := s.dir.Tank(in.TankID)
	if err != nil {
		return models.DairyLot{}, err
	}
	if tank.CustodianID != in.CustodianID {
		return models.DairyLot{}, models.NewValidationError("tank_id", fmt.Sprintf("tank %s is not held by %s", tank.TankID, in.CustodianID))
	}
	if in.QuantityLiters.GreaterThan(tank.CapacityLiters) {
		return models.DairyLot{}, models.NewValidationError("quantity_liters", fmt.Sprintf("exceeds tank capacity of %s L", tank.CapacityLiters))
	}

	now := s.now()
	shelfLife, _ := in.ProductType.ShelfLife()
	lot := models.DairyLot{
		ID:              models.NewID(models.LotIDPrefix),
		OwnerEntityID:   in.OwnerEntityID,
		CustodianID:     in.CustodianID,
		TankID:          in.TankID,
		ProductType:     in.ProductType,
		QuantityLiters:  in.QuantityLiters,
		FatPct:          in.FatPct,
		SNFPct:          in.SNFPct,
		Acidity:         in.Acidity,
		AntibioticTest:  in.AntibioticTest,
		QualityGrade:    in.QualityGrade,
		TempAvgC:        in.TempAvgC,
		TempMinC:        in.TempMinC,
		TempMaxC:        in.TempMaxC,
		TempBreachCount: in.TempBreachCount,
		Status:          models.LotActive,
		Notes:           in.Notes,
		CreatedAt:       now,
		ExpiresAt:       now.Add(shelfLife),
		UpdatedAt:       now,
	}
	if in.AntibioticTest == models.AntibioticFail {
		lot.Status = models.LotQuarantined
	}

	err = s.authority.Lot(ctx, lot.ID, func(ctx context.Context) error {
		if err := s.store.InsertLot(ctx, lot); err != nil {
			return err
		}
		details := map[string]any{
			"product_type":    string(lot.ProductType),
			"quantity_liters": lot.QuantityLiters.String(),
			"status":          string(lot.Status),
			"antibiotic_test": string(lot.AntibioticTest),
		}
		return s.store.AppendAudit(ctx, models.NewAuditEvent(actor, models.EventLotCreated, models.AuditEntityLot, lot.ID, "", details, now))
	})
	if err != nil {
		return models.DairyLot{}, fmt.Errorf("record intake: %w", err)
	}

	s.logger.Info("lot recorded",
		zap.String("lot_id", lot.ID),
		zap.String("custodian_id", lot.CustodianID),
		zap.String("status", string(lot.Status)))
	return lot, nil
}

// Quarantine isolates an active lot.
func (s *Service) Quarantine(ctx context.Context, actor models.Actor, lotID, reason string) (models.DairyLot, error) {
	return s.setStatus(ctx, actor, lotID, models.LotQuarantined, reason)
}

// MarkSpoiled records that a lot is no longer sellable.
func (s *Service) MarkSpoiled(ctx context.Context, actor models.Actor, lotID, reason string) (models.DairyLot, error) {
	return s.setStatus(ctx, actor, lotID, models.LotSpoiled, reason)
}

func (s *Service) setStatus(ctx context.Context, actor models.Actor, lotID string, to models.LotStatus, reason string) (models.DairyLot, error) {
	if err := s.oracle.Authorize(actor, auth.OpUpdateLot); err != nil {
		return models.DairyLot{}, err
	}

	var lot models.DairyLot
	err := s.authority.Lot(ctx, lotID, func(ctx context.Context) error {
		var err error
		if lot, err = s.store.GetLot(ctx, lotID); err != nil {
			return err
		}
		if err := s.oracle.AuthorizeCustodian(actor, auth.OpUpdateLot, lot.CustodianID); err != nil {
			return err
		}

		from := lot.Status
		now := s.now()
		if err := lot.Transition(to, now); err != nil {
			return err
		}
		if reason != "" {
			lot.Notes = reason
		}
		if err := s.store.UpdateLot(ctx, lot); err != nil {
			return err
		}
		details := map[string]any{"from": string(from), "to": string(to), "reason": reason}
		return s.store.AppendAudit(ctx, models.NewAuditEvent(actor, models.EventLotStatusChanged, models.AuditEntityLot, lot.ID, "", details, now))
	})
	if err != nil {
		return models.DairyLot{}, fmt.Errorf("set lot %s %s: %w", lotID, to, err)
	}

	s.logger.Info("lot status changed", zap.String("lot_id", lotID), zap.String("status", string(to)))
	return lot, nil
}

// Get returns a lot by id.
func (s *Service) Get(ctx context.Context, id string) (models.DairyLot, error) {
	return s.store.GetLot(ctx, id)
}

// ListByCustodian returns the lots a custodian received in [from, to).
// A zero bound is open.
func (s *Service) ListByCustodian(ctx context.Context, custodianID string, from, to time.Time) ([]models.DairyLot, error) {
	all, err := s.store.ListLotsByCustodian(ctx, custodianID)
	if err != nil {
		return nil, fmt.Errorf("list lots of %s: %w", custodianID, err)
	}
	return InPeriod(all, from, to), nil
}

// InPeriod keeps lots created in [from, to). A zero bound is open.
func InPeriod(lots []models.DairyLot, from, to time.Time) []models.DairyLot {
	var out []models.DairyLot
	for _, l := range lots {
		if !from.IsZero() && l.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && !l.CreatedAt.Before(to) {
			continue
		}
		out = append(out, l)
	}
	return out
}
