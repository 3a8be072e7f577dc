package models

import "time"

// ReleaseStatus is the status of a release order.
type ReleaseStatus string

const (
	ReleasePending  ReleaseStatus = "pending"
	ReleaseReleased ReleaseStatus = "released"
)

// ReleaseOrder authorizes the custodian to dispatch a sold lot to its buyer.
type ReleaseOrder struct {
	ID            string        `bson:"_id" json:"release_order_id"`
	ReceiptID     string        `bson:"receipt_id" json:"receipt_id"`
	CustodianID   string        `bson:"custodian_id" json:"custodian_id"`
	BuyerEntityID string        `bson:"buyer_entity_id" json:"buyer_entity_id"`
	Status        ReleaseStatus `bson:"status" json:"status"`
	Notes         string        `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt     time.Time     `bson:"created_at" json:"created_at"`
	ConfirmedAt   *time.Time    `bson:"confirmed_at,omitempty" json:"confirmed_at,omitempty"`
	ConfirmedBy   string        `bson:"confirmed_by,omitempty" json:"confirmed_by,omitempty"`
}
