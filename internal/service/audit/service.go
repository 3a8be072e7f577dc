// Package audit answers queries over the append-only audit log.
package audit

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/mamadbah2/dairy-dwr/internal/domain/models"
)

type store interface {
	ListAudit(ctx context.Context, f models.AuditFilter) ([]models.AuditEvent, error)
}

// Service reads the audit log.
type Service struct {
	store store
}

// NewService wires an audit query service.
func NewService(store store) *Service {
	return &Service{store: store}
}

// List returns matching events, newest first. A zero limit means
// models.DefaultAuditLimit.
func (s *Service) List(ctx context.Context, f models.AuditFilter) ([]models.AuditEvent, error) {
	if f.Limit <= 0 {
		f.Limit = models.DefaultAuditLimit
	}
	f.Search = strings.TrimSpace(f.Search)

	events, err := s.store.ListAudit(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	return events, nil
}

// ReceiptTrail returns every event recorded against a receipt and its
// dependent records, oldest first.
func (s *Service) ReceiptTrail(ctx context.Context, receiptID string) ([]models.AuditEvent, error) {
	events, err := s.store.ListAudit(ctx, models.AuditFilter{ReceiptID: receiptID})
	if err != nil {
		return nil, fmt.Errorf("receipt trail %s: %w", receiptID, err)
	}
	slices.Reverse(events)
	return events, nil
}
