package settlement

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/dairy-dwr/internal/domain/models"
)

// CreateContractInput holds parameters for listing a receipt for sale.
type CreateContractInput struct {
	ReceiptID     string
	BuyerEntityID string
	Price         decimal.Decimal
	Terms         models.PaymentTerms
}

// Validate validates the contract input.
func (i CreateContractInput) Validate() error {
	var errs []models.FieldError

	if i.ReceiptID == "" {
		errs = append(errs, models.FieldError{Field: "receipt_id", Message: "required"})
	}
	if i.BuyerEntityID == "" {
		errs = append(errs, models.FieldError{Field: "buyer_entity_id", Message: "required"})
	}
	if !i.Price.IsPositive() {
		errs = append(errs, models.FieldError{Field: "price_xof", Message: "must be positive"})
	}
	if !i.Terms.Valid() {
		errs = append(errs, models.FieldError{Field: "payment_terms", Message: "unknown terms"})
	}

	if len(errs) > 0 {
		return &models.ValidationError{Errors: errs}
	}
	return nil
}

// ConfirmPaymentInput is a payment confirmation from a mobile-money provider
// or an operator.
type ConfirmPaymentInput struct {
	ContractID  string
	Method      models.PaymentMethod
	ProviderRef string
}

// Validate validates the confirmation input.
func (i ConfirmPaymentInput) Validate() error {
	var errs []models.FieldError

	if i.ContractID == "" {
		errs = append(errs, models.FieldError{Field: "contract_id", Message: "required"})
	}
	if !i.Method.Valid() {
		errs = append(errs, models.FieldError{Field: "method", Message: "unknown payment method"})
	}
	if strings.TrimSpace(i.ProviderRef) == "" {
		errs = append(errs, models.FieldError{Field: "provider_ref", Message: "required"})
	}

	if len(errs) > 0 {
		return &models.ValidationError{Errors: errs}
	}
	return nil
}
