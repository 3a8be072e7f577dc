package models

import "time"

// DisputeType classifies a dispute.
type DisputeType string

const (
	DisputeQuality      DisputeType = "quality"
	DisputeSpoilage     DisputeType = "spoilage"
	DisputePaymentDelay DisputeType = "payment_delay"
	DisputeGrading      DisputeType = "grading"
	DisputeCustody      DisputeType = "custody"
)

// Valid reports whether the type is known.
func (t DisputeType) Valid() bool {
	switch t {
	case DisputeQuality, DisputeSpoilage, DisputePaymentDelay, DisputeGrading, DisputeCustody:
		return true
	}
	return false
}

// DisputeStatus is the status of a dispute.
type DisputeStatus string

const (
	DisputeOpen     DisputeStatus = "open"
	DisputeResolved DisputeStatus = "resolved"
)

// Dispute freezes a receipt until platform or government resolves it.
type Dispute struct {
	ID               string        `bson:"_id" json:"dispute_id"`
	ReceiptID        string        `bson:"receipt_id" json:"receipt_id"`
	RaisedByEntityID string        `bson:"raised_by_entity_id" json:"raised_by_entity_id"`
	RaisedBy         string        `bson:"raised_by" json:"raised_by"`
	Type             DisputeType   `bson:"dispute_type" json:"dispute_type"`
	Description      string        `bson:"description" json:"description"`
	Status           DisputeStatus `bson:"status" json:"status"`
	PriorStatus      ReceiptStatus `bson:"prior_status" json:"prior_status"`
	CreatedAt        time.Time     `bson:"created_at" json:"created_at"`
	ResolvedAt       *time.Time    `bson:"resolved_at,omitempty" json:"resolved_at,omitempty"`
	ResolvedBy       string        `bson:"resolved_by,omitempty" json:"resolved_by,omitempty"`
	Resolution       string        `bson:"resolution,omitempty" json:"resolution,omitempty"`
}
