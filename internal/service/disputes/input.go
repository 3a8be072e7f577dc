package disputes

import (
	"strings"

	"github.com/mamadbah2/dairy-dwr/internal/domain/models"
)

// FileInput holds parameters for filing a dispute.
type FileInput struct {
	ReceiptID   string
	Type        models.DisputeType
	Description string
}

// Validate validates the filing input.
func (i FileInput) Validate() error {
	var errs []models.FieldError

	if i.ReceiptID == "" {
		errs = append(errs, models.FieldError{Field: "receipt_id", Message: "required"})
	}
	if !i.Type.Valid() {
		errs = append(errs, models.FieldError{Field: "dispute_type", Message: "unknown dispute type"})
	}
	if strings.TrimSpace(i.Description) == "" {
		errs = append(errs, models.FieldError{Field: "description", Message: "required"})
	}

	if len(errs) > 0 {
		return &models.ValidationError{Errors: errs}
	}
	return nil
}
