package receipts

import (
	"context"
	"errors"
	"fmt"

	"github.com/mamadbah2/dairy-dwr/internal/domain/models"
)

// Verification is what a third party learns by scanning a receipt payload.
type Verification struct {
	Receipt       models.Receipt  `json:"receipt"`
	Expired       bool            `json:"expired"`
	ActiveAdvance *models.Advance `json:"active_advance,omitempty"`
	OpenDispute   *models.Dispute `json:"open_dispute,omitempty"`
	Verified      bool            `json:"verified"`
	Payload       string          `json:"payload"`
}

// VerificationPayload returns the stable machine-readable payload of a receipt.
func (s *Service) VerificationPayload(ctx context.Context, receiptID string) (string, error) {
	r, err := s.store.GetReceipt(ctx, receiptID)
	if err != nil {
		return "", err
	}
	return r.VerificationPayload(), nil
}

// Verify resolves a receipt id or payload and reports its standing. It is a
// read-only operation open to anyone holding the payload.
func (s *Service) Verify(ctx context.Context, query string) (Verification, error) {
	id, ok := models.ReceiptIDFromQuery(query)
	if !ok {
		return Verification{}, models.NewValidationError("q", "expected a receipt id or verification payload")
	}

	r, err := s.store.GetReceipt(ctx, id)
	if err != nil {
		return Verification{}, err
	}

	v := Verification{
		Receipt: r,
		Expired: r.Status == models.ReceiptExpired || r.IsExpired(s.now()),
		Payload: r.VerificationPayload(),
	}

	adv, err := s.store.FindActiveAdvance(ctx, id)
	switch {
	case err == nil:
		v.ActiveAdvance = &adv
	case !errors.Is(err, models.ErrNotFound):
		return Verification{}, fmt.Errorf("lookup advance: %w", err)
	}

	d, err := s.store.FindOpenDispute(ctx, id)
	switch {
	case err == nil:
		v.OpenDispute = &d
	case !errors.Is(err, models.ErrNotFound):
		return Verification{}, fmt.Errorf("lookup dispute: %w", err)
	}

	v.Verified = !v.Expired && v.OpenDispute == nil
	return v, nil
}
