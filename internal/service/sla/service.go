// Package sla scores custodians on cold-chain compliance. It reads lots,
// receipts and disputes and writes nothing but per-month snapshots.
package sla

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/dairy-dwr/internal/auth"
	"github.com/mamadbah2/dairy-dwr/internal/authority"
	"github.com/mamadbah2/dairy-dwr/internal/domain/models"
	"github.com/mamadbah2/dairy-dwr/internal/lock"
	"github.com/mamadbah2/dairy-dwr/internal/service/lots"
)

// MonthLayout is the format of a snapshot period.
const MonthLayout = "2006-01"

type store interface {
	ListLotsByCustodian(ctx context.Context, custodianID string) ([]models.DairyLot, error)
	ListReceiptsByCustodian(ctx context.Context, custodianID string) ([]models.Receipt, error)
	ListDisputesByReceipts(ctx context.Context, receiptIDs []string) ([]models.Dispute, error)
	UpsertSLASnapshot(ctx context.Context, snap models.SLASnapshot) error
	ListSLASnapshots(ctx context.Context, month string) ([]models.SLASnapshot, error)
	AppendAudit(ctx context.Context, e models.AuditEvent) error
}

type directory interface {
	Custodians() []models.Custodian
}

// Service computes and stores SLA snapshots.
type Service struct {
	store     store
	dir       directory
	authority *authority.Authority
	oracle    *auth.Oracle
	loc       *time.Location
	logger    *zap.Logger
	now       func() time.Time
}

// NewService wires an SLA service. Months are cut in loc; nil means UTC.
func NewService(store store, dir directory, authority *authority.Authority, oracle *auth.Oracle, loc *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		store:     store,
		dir:       dir,
		authority: authority,
		oracle:    oracle,
		loc:       loc,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock replaces the service clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CurrentMonth is the period the clock is in.
func (s *Service) CurrentMonth() string {
	return s.now().In(s.loc).Format(MonthLayout)
}

// PreviousMonth is the last complete period.
func (s *Service) PreviousMonth() string {
	now := s.now().In(s.loc)
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc)
	return first.AddDate(0, -1, 0).Format(MonthLayout)
}

// Bounds returns the [from, to) range of a month.
func (s *Service) Bounds(month string) (time.Time, time.Time, error) {
	from, err := time.ParseInLocation(MonthLayout, month, s.loc)
	if err != nil {
		return time.Time{}, time.Time{}, models.NewValidationError("month", "expected YYYY-MM")
	}
	return from, from.AddDate(0, 1, 0), nil
}

// ComputeMonth scores every custodian for the month and replaces the
// month's snapshots. Lots count in the month they were received; disputes in
// the month they were filed.
func (s *Service) ComputeMonth(ctx context.Context, actor models.Actor, month string) ([]models.SLASnapshot, error) {
	if err := s.oracle.Authorize(actor, auth.OpComputeSLA); err != nil {
		return nil, err
	}
	from, to, err := s.Bounds(month)
	if err != nil {
		return nil, err
	}

	var snaps []models.SLASnapshot
	err = s.authority.Do(ctx, lock.SLAKey(month), func(ctx context.Context) error {
		now := s.now()
		snaps = snaps[:0]

		for _, c := range s.dir.Custodians() {
			snap, err := s.summarize(ctx, c.CustodianID, month, from, to)
			if err != nil {
				return err
			}
			snap.ComputedAt = now
			if err := s.store.UpsertSLASnapshot(ctx, snap); err != nil {
				return fmt.Errorf("upsert snapshot %s: %w", snap.ID, err)
			}
			details := map[string]any{
				"month":          month,
				"sla_score":      snap.Score,
				"category":       snap.Category,
				"penalty_status": snap.PenaltyStatus,
			}
			if err := s.store.AppendAudit(ctx, models.NewAuditEvent(actor, models.EventSLASaved, models.AuditEntitySLA, snap.ID, "", details, now)); err != nil {
				return err
			}
			snaps = append(snaps, snap)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("compute sla %s: %w", month, err)
	}

	s.logger.Info("sla snapshots saved", zap.String("month", month), zap.Int("custodians", len(snaps)))
	return snaps, nil
}

func (s *Service) summarize(ctx context.Context, custodianID, month string, from, to time.Time) (models.SLASnapshot, error) {
	all, err := s.store.ListLotsByCustodian(ctx, custodianID)
	if err != nil {
		return models.SLASnapshot{}, fmt.Errorf("list lots of %s: %w", custodianID, err)
	}
	received := lots.InPeriod(all, from, to)

	receipts, err := s.store.ListReceiptsByCustodian(ctx, custodianID)
	if err != nil {
		return models.SLASnapshot{}, fmt.Errorf("list receipts of %s: %w", custodianID, err)
	}
	ids := make([]string, len(receipts))
	for i, r := range receipts {
		ids[i] = r.ID
	}

	var disputes []models.Dispute
	if len(ids) > 0 {
		filed, err := s.store.ListDisputesByReceipts(ctx, ids)
		if err != nil {
			return models.SLASnapshot{}, fmt.Errorf("list disputes of %s: %w", custodianID, err)
		}
		for _, d := range filed {
			if !d.CreatedAt.Before(from) && d.CreatedAt.Before(to) {
				disputes = append(disputes, d)
			}
		}
	}

	return Summarize(custodianID, month, received, len(receipts), disputes), nil
}

// Snapshots returns a month's snapshots, worst score first.
func (s *Service) Snapshots(ctx context.Context, month string) ([]models.SLASnapshot, error) {
	snaps, err := s.store.ListSLASnapshots(ctx, month)
	if err != nil {
		return nil, fmt.Errorf("list sla snapshots %s: %w", month, err)
	}
	sort.SliceStable(snaps, func(i, j int) bool { return snaps[i].Score < snaps[j].Score })
	return snaps, nil
}
