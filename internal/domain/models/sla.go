package models

import "time"

// SLACategory is the display tier of a cold-chain score.
type SLACategory string

const (
	SLAExcellent SLACategory = "Excellent"
	SLAGood      SLACategory = "Good"
	SLAWatch     SLACategory = "Watch"
	SLABreach    SLACategory = "Breach"
)

// SLAColor is the traffic-light colour shown next to the category.
type SLAColor string

const (
	SLAGreen SLAColor = "Green"
	SLAAmber SLAColor = "Amber"
	SLARed   SLAColor = "Red"
)

// PenaltyStatus is the enforcement view of a cold-chain score.
type PenaltyStatus string

const (
	PenaltyOK            PenaltyStatus = "ok"
	PenaltyWarning       PenaltyStatus = "warning"
	PenaltySuspendReview PenaltyStatus = "suspend_review"
)

// SLASnapshot is a custodian's cold-chain compliance for one month.
type SLASnapshot struct {
	ID            string        `bson:"_id" json:"id"`
	CustodianID   string        `bson:"custodian_id" json:"custodian_id"`
	Month         string        `bson:"month" json:"month"`
	LotsReceived  int           `bson:"lots_received" json:"lots_received"`
	AvgTempC      *float64      `bson:"avg_temp_c,omitempty" json:"avg_temp_c,omitempty"`
	MaxTempC      *float64      `bson:"max_temp_c,omitempty" json:"max_temp_c,omitempty"`
	MinTempC      *float64      `bson:"min_temp_c,omitempty" json:"min_temp_c,omitempty"`
	TempBreaches  int           `bson:"temp_breaches" json:"temp_breaches"`
	SpoiledLots   int           `bson:"spoiled_lots" json:"spoiled_lots"`
	Disputes      int           `bson:"disputes" json:"disputes"`
	DisputeRate   float64       `bson:"dispute_rate" json:"dispute_rate"`
	Score         float64       `bson:"sla_score" json:"sla_score"`
	Category      SLACategory   `bson:"category" json:"category"`
	Color         SLAColor      `bson:"color" json:"color"`
	PenaltyStatus PenaltyStatus `bson:"penalty_status" json:"penalty_status"`
	ComputedAt    time.Time     `bson:"computed_at" json:"computed_at"`
}

// SnapshotID is the key of the snapshot for a custodian and month.
func SnapshotID(custodianID, month string) string {
	return custodianID + "|" + month
}
