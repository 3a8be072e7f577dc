package advances

import (
	"github.com/shopspring/decimal"

	"github.com/mamadbah2/dairy-dwr/internal/domain/models"
)

var one = decimal.NewFromInt(1)

// IssueInput holds parameters for issuing an advance against a receipt.
type IssueInput struct {
	ReceiptID string
	Principal decimal.Decimal
	FeeRate   decimal.Decimal
	TenorDays int
	// LTV is the requested advance rate; zero means the configured maximum.
	LTV          decimal.Decimal
	ProviderType string
	ProviderID   string
	Notes        string
}

// Validate validates the issue input.
func (i IssueInput) Validate() error {
	var errs []models.FieldError

	if i.ReceiptID == "" {
		errs = append(errs, models.FieldError{Field: "receipt_id", Message: "required"})
	}
	if !i.Principal.IsPositive() {
		errs = append(errs, models.FieldError{Field: "principal", Message: "must be positive"})
	}
	if i.FeeRate.IsNegative() || i.FeeRate.GreaterThanOrEqual(one) {
		errs = append(errs, models.FieldError{Field: "fee_rate", Message: "must be in [0,1)"})
	}
	if i.TenorDays < 1 {
		errs = append(errs, models.FieldError{Field: "tenor_days", Message: "must be at least 1"})
	}
	if !i.LTV.IsZero() && (i.LTV.IsNegative() || i.LTV.GreaterThanOrEqual(one)) {
		errs = append(errs, models.FieldError{Field: "ltv", Message: "must be in (0,1)"})
	}

	if len(errs) > 0 {
		return &models.ValidationError{Errors: errs}
	}
	return nil
}
