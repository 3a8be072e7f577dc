package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductType is the dairy product held in a lot.
type ProductType string

const (
	ProductRawMilk ProductType = "raw_milk"
	ProductYogurt  ProductType = "yogurt"
	ProductButter  ProductType = "butter"
	ProductGhee    ProductType = "ghee"
	ProductCheese  ProductType = "cheese"
)

var shelfLife = map[ProductType]time.Duration{
	ProductRawMilk: 48 * time.Hour,
	ProductYogurt:  240 * time.Hour,
	ProductButter:  720 * time.Hour,
	ProductGhee:    2160 * time.Hour,
	ProductCheese:  1440 * time.Hour,
}

// ShelfLife returns how long the product stays sellable after intake.
func (p ProductType) ShelfLife() (time.Duration, bool) {
	d, ok := shelfLife[p]
	return d, ok
}

// AntibioticResult is the outcome of the rapid antibiotic test at intake.
type AntibioticResult string

const (
	AntibioticPass      AntibioticResult = "pass"
	AntibioticFail      AntibioticResult = "fail"
	AntibioticNotTested AntibioticResult = "not_tested"
)

// LotStatus is the physical status of a lot.
type LotStatus string

const (
	LotActive      LotStatus = "active"
	LotQuarantined LotStatus = "quarantined"
	LotSpoiled     LotStatus = "spoiled"
)

var lotTransitions = map[LotStatus][]LotStatus{
	LotActive:      {LotQuarantined, LotSpoiled},
	LotQuarantined: {LotSpoiled},
}

// DairyLot is a physical quantity of product taken into custody.
type DairyLot struct {
	ID              string           `bson:"_id" json:"lot_id"`
	OwnerEntityID   string           `bson:"owner_entity_id" json:"owner_entity_id"`
	CustodianID     string           `bson:"custodian_id" json:"custodian_id"`
	TankID          string           `bson:"tank_id" json:"tank_id"`
	ProductType     ProductType      `bson:"product_type" json:"product_type"`
	QuantityLiters  decimal.Decimal  `bson:"quantity_liters" json:"quantity_liters"`
	FatPct          float64          `bson:"fat_pct" json:"fat_pct"`
	SNFPct          float64          `bson:"snf_pct,omitempty" json:"snf_pct,omitempty"`
	Acidity         float64          `bson:"acidity,omitempty" json:"acidity,omitempty"`
	AntibioticTest  AntibioticResult `bson:"antibiotic_test" json:"antibiotic_test"`
	QualityGrade    string           `bson:"quality_grade" json:"quality_grade"`
	TempAvgC        float64          `bson:"temp_avg_c" json:"temp_avg_c"`
	TempMinC        float64          `bson:"temp_min_c" json:"temp_min_c"`
	TempMaxC        float64          `bson:"temp_max_c" json:"temp_max_c"`
	TempBreachCount int              `bson:"temp_breach_count" json:"temp_breach_count"`
	Status          LotStatus        `bson:"status" json:"status"`
	Notes           string           `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt       time.Time        `bson:"created_at" json:"created_at"`
	ExpiresAt       time.Time        `bson:"expires_at" json:"expiry_ts"`
	UpdatedAt       time.Time        `bson:"updated_at" json:"updated_at"`
}

// Transition moves the lot to the target status if the edge exists.
func (l *DairyLot) Transition(to LotStatus, now time.Time) error {
	for _, next := range lotTransitions[l.Status] {
		if next == to {
			l.Status = to
			l.UpdatedAt = now
			return nil
		}
	}
	return &TransitionError{Entity: "dairy_lot", From: string(l.Status), To: string(to)}
}
