package lots

import (
	"github.com/shopspring/decimal"

	"github.com/mamadbah2/dairy-dwr/internal/domain/models"
)

// IntakeInput holds the readings taken when a lot is received.
type IntakeInput struct {
	OwnerEntityID   string
	CustodianID     string
	TankID          string
	ProductType     models.ProductType
	QuantityLiters  decimal.Decimal
	FatPct          float64
	SNFPct          float64
	Acidity         float64
	AntibioticTest  models.AntibioticResult
	QualityGrade    string
	TempAvgC        float64
	TempMinC        float64
	TempMaxC        float64
	TempBreachCount int
	Notes           string
}

// Validate validates the intake input.
func (i IntakeInput) Validate() error {
	var errs []models.FieldError

	if i.OwnerEntityID == "" {
		errs = append(errs, models.FieldError{Field: "owner_entity_id", Message: "required"})
	}
	if i.CustodianID == "" {
		errs = append(errs, models.FieldError{Field: "custodian_id", Message: "required"})
	}
	if i.TankID == "" {
		errs = append(errs, models.FieldError{Field: "tank_id", Message: "required"})
	}
	if _, ok := i.ProductType.ShelfLife(); !ok {
		errs = append(errs, models.FieldError{Field: "product_type", Message: "unknown product"})
	}
	if !i.QuantityLiters.IsPositive() {
		errs = append(errs, models.FieldError{Field: "quantity_liters", Message: "must be positive"})
	}
	if i.FatPct < 0 || i.FatPct > 100 {
		errs = append(errs, models.FieldError{Field: "fat_pct", Message: "must be between 0 and 100"})
	}
	switch i.AntibioticTest {
	case models.AntibioticPass, models.AntibioticFail, models.AntibioticNotTested:
	default:
		errs = append(errs, models.FieldError{Field: "antibiotic_test", Message: "must be pass, fail or not_tested"})
	}
	if i.TempMinC > i.TempMaxC {
		errs = append(errs, models.FieldError{Field: "temp_min_c", Message: "must not exceed temp_max_c"})
	}
	if i.TempBreachCount < 0 {
		errs = append(errs, models.FieldError{Field: "temp_breach_count", Message: "must not be negative"})
	}

	if len(errs) > 0 {
		return &models.ValidationError{Errors: errs}
	}
	return nil
}
