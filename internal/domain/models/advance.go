package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AdvanceStatus is the status of a collateralized advance.
type AdvanceStatus string

const (
	AdvanceActive AdvanceStatus = "active"
	AdvanceRepaid AdvanceStatus = "repaid"
)

// Advance is a cash advance collateralized by a receipt.
type Advance struct {
	ID           string          `bson:"_id" json:"advance_id"`
	ReceiptID    string          `bson:"receipt_id" json:"receipt_id"`
	ProviderType string          `bson:"provider_type" json:"provider_type"`
	ProviderID   string          `bson:"provider_id" json:"provider_id"`
	Principal    decimal.Decimal `bson:"principal_xof" json:"advance_xof"`
	FeeRate      decimal.Decimal `bson:"fee_rate" json:"fee_rate"`
	Fee          decimal.Decimal `bson:"fee_xof" json:"fee_xof"`
	TenorDays    int             `bson:"tenor_days" json:"tenor_days"`
	Status       AdvanceStatus   `bson:"status" json:"status"`
	CreatedAt    time.Time       `bson:"created_at" json:"created_at"`
	DueAt        time.Time       `bson:"due_at" json:"due_at"`
	RepaidAt     *time.Time      `bson:"repaid_at,omitempty" json:"repaid_at,omitempty"`
	Notes        string          `bson:"notes,omitempty" json:"notes,omitempty"`
}

// Outstanding is what must be repaid: principal plus fee.
func (a Advance) Outstanding() decimal.Decimal {
	return a.Principal.Add(a.Fee)
}

// IsOverdue reports whether an active advance has passed its due date.
func (a Advance) IsOverdue(now time.Time) bool {
	return a.Status == AdvanceActive && now.After(a.DueAt)
}
