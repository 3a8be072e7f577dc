// Package reporting publishes SLA snapshots to the shared spreadsheet and
// summarizes what has been published.
package reporting

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/dairy-dwr/internal/domain/models"
	repo "github.com/mamadbah2/dairy-dwr/internal/repository/sheets"
)

type snapshotSource interface {
	Snapshots(ctx context.Context, month string) ([]models.SLASnapshot, error)
}

// Service exports SLA snapshots to Google Sheets.
type Service struct {
	repo      repo.Repository
	snapshots snapshotSource
	exportRng string
	logger    *zap.Logger
}

// NewService wires a new reporting service instance.
func NewService(repository repo.Repository, snapshots snapshotSource, exportRange string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repository, snapshots: snapshots, exportRng: exportRange, logger: logger}
}

// ExportSLA appends the month's snapshots to the export range and returns
// how many rows were written. Rows already published for the month are not
// written again.
func (s *Service) ExportSLA(ctx context.Context, month string) (int, error) {
	published, err := s.publishedCustodians(ctx, month)
	if err != nil {
		return 0, err
	}

	snaps, err := s.snapshots.Snapshots(ctx, month)
	if err != nil {
		return 0, fmt.Errorf("load sla snapshots: %w", err)
	}
	var fresh []models.SLASnapshot
	for _, snap := range snaps {
		if _, ok := published[snap.CustodianID]; ok {
			s.logger.Debug("skip published sla row", zap.String("custodian_id", snap.CustodianID), zap.String("month", month))
			continue
		}
		fresh = append(fresh, snap)
	}

	if err := s.repo.WriteRows(ctx, s.exportRng, repo.SLASnapshotRows(fresh)); err != nil {
		return 0, fmt.Errorf("export sla %s: %w", month, err)
	}
	s.logger.Info("sla snapshots exported", zap.String("month", month), zap.Int("rows", len(fresh)))
	return len(fresh), nil
}

// SummarizeSLA reads the published rows of a month back and returns a one
// line summary for operators.
func (s *Service) SummarizeSLA(ctx context.Context, month string) (string, error) {
	rows, err := s.repo.ReadRange(ctx, s.exportRng)
	if err != nil {
		return "", fmt.Errorf("load sla range: %w", err)
	}

	var (
		entries   int
		breaches  int
		suspended int
		worstID   string
		worst     = 101.0
	)
	for _, row := range rows {
		if len(row) < 9 || fmt.Sprint(row[0]) != month {
			continue
		}
		score, err := parseFloat(row[6])
		if err != nil {
			s.logger.Debug("skip sla row with invalid score", zap.Any("value", row[6]), zap.Error(err))
			continue
		}
		if n, err := parseInt(row[3]); err == nil {
			breaches += n
		}
		if fmt.Sprint(row[8]) == string(models.PenaltySuspendReview) {
			suspended++
		}
		if score < worst {
			worst, worstID = score, fmt.Sprint(row[1])
		}
		entries++
	}

	if entries == 0 {
		return fmt.Sprintf("Cold chain SLA (%s): nothing published yet.", month), nil
	}
	return fmt.Sprintf("Cold chain SLA (%s): %d custodians, %d temperature breaches, %d under suspension review. Lowest score %.1f (%s).",
		month, entries, breaches, suspended, worst, worstID), nil
}

func (s *Service) publishedCustodians(ctx context.Context, month string) (map[string]struct{}, error) {
	rows, err := s.repo.ReadRange(ctx, s.exportRng)
	if err != nil {
		return nil, fmt.Errorf("load sla range: %w", err)
	}
	out := map[string]struct{}{}
	for _, row := range rows {
		if len(row) < 2 || fmt.Sprint(row[0]) != month {
			continue
		}
		out[fmt.Sprint(row[1])] = struct{}{}
	}
	return out, nil
}

func parseInt(value interface{}) (int, error) {
	str := strings.TrimSpace(fmt.Sprint(value))
	if str == "" {
		return 0, fmt.Errorf("empty numeric value")
	}
	return strconv.Atoi(str)
}

func parseFloat(value interface{}) (float64, error) {
	str := strings.TrimSpace(fmt.Sprint(value))
	if str == "" {
		return 0, fmt.Errorf("empty numeric value")
	}
	return strconv.ParseFloat(str, 64)
}
