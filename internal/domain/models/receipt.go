package models

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ReceiptStatus is the lifecycle status of a digital warehouse receipt.
type ReceiptStatus string

const (
	ReceiptActive        ReceiptStatus = "active"
	ReceiptPendingSale   ReceiptStatus = "pending_sale"
	ReceiptAdvanceActive ReceiptStatus = "advance_active"
	ReceiptDisputed      ReceiptStatus = "disputed"
	ReceiptSold          ReceiptStatus = "sold"
	ReceiptReleased      ReceiptStatus = "released"
	ReceiptExpired       ReceiptStatus = "expired"
)

// receiptTransitions is the single source of truth for receipt status edges.
// Edges out of disputed are further restricted to the status held before the dispute.
var receiptTransitions = map[ReceiptStatus][]ReceiptStatus{
	ReceiptActive:        {ReceiptPendingSale, ReceiptAdvanceActive, ReceiptDisputed, ReceiptExpired},
	ReceiptPendingSale:   {ReceiptSold, ReceiptDisputed},
	ReceiptAdvanceActive: {ReceiptActive, ReceiptPendingSale, ReceiptDisputed},
	ReceiptDisputed:      {ReceiptActive, ReceiptPendingSale, ReceiptAdvanceActive},
	ReceiptSold:          {ReceiptReleased},
}

// IsTerminal reports whether no edge leaves the status.
func (s ReceiptStatus) IsTerminal() bool {
	return len(receiptTransitions[s]) == 0
}

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to ReceiptStatus) bool {
	for _, next := range receiptTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Receipt is a digital warehouse receipt (DWR/BDN) issued against a lot.
type Receipt struct {
	ID            string        `bson:"_id" json:"receipt_id"`
	LotID         string        `bson:"lot_id" json:"lot_id"`
	OwnerEntityID string        `bson:"owner_entity_id" json:"owner_entity_id"`
	CustodianID   string        `bson:"custodian_id" json:"custodian_id"`
	Status        ReceiptStatus `bson:"status" json:"status"`
	PriorStatus   ReceiptStatus `bson:"prior_status,omitempty" json:"prior_status,omitempty"`
	IssuedAt      time.Time     `bson:"issued_at" json:"issued_at"`
	ExpiresAt     time.Time     `bson:"expires_at" json:"expiry_ts"`
	LienActive    bool          `bson:"lien_active" json:"lien_active"`
	LienHolderID  string        `bson:"lien_holder_id,omitempty" json:"lien_holder_id,omitempty"`
	Version       int64         `bson:"version" json:"version"`
	UpdatedAt     time.Time     `bson:"updated_at" json:"updated_at"`
}

// IsExpired reports whether the passive expiry deadline has passed.
func (r Receipt) IsExpired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && now.After(r.ExpiresAt)
}

// Transition applies a status change after checking the edge table, the
// pre-dispute restriction and the expiry deadline. Moving into expired or
// disputed, leaving disputed, and releasing a sold receipt are exempt from the expiry check.
func (r *Receipt) Transition(to ReceiptStatus, now time.Time) error {
	if !CanTransition(r.Status, to) {
		return &TransitionError{Entity: "dwr", From: string(r.Status), To: string(to)}
	}
	if r.Status == ReceiptDisputed && to != r.PriorStatus {
		return &TransitionError{Entity: "dwr", From: string(r.Status), To: string(to)}
	}

	// A sold receipt is paid for; dispatch ignores the collateral deadline.
	exempt := to == ReceiptExpired || to == ReceiptDisputed ||
		r.Status == ReceiptDisputed || (r.Status == ReceiptSold && to == ReceiptReleased)
	if !exempt && r.IsExpired(now) {
		return fmt.Errorf("receipt %s expired at %s: %w", r.ID, r.ExpiresAt.Format(time.RFC3339), ErrExpired)
	}

	switch {
	case to == ReceiptDisputed:
		r.PriorStatus = r.Status
	case r.Status == ReceiptDisputed:
		r.PriorStatus = ""
	}
	r.Status = to
	r.UpdatedAt = now
	return nil
}

// CheckListable enforces the listing guard: only active or advance_active
// receipts without an open dispute may be offered for sale.
func (r Receipt) CheckListable(openDispute bool) error {
	if openDispute {
		return fmt.Errorf("receipt %s has an open dispute: %w", r.ID, ErrNotListable)
	}
	switch r.Status {
	case ReceiptActive, ReceiptAdvanceActive:
		return nil
	case ReceiptPendingSale:
		return fmt.Errorf("receipt %s already listed: %w", r.ID, ErrConflict)
	default:
		return fmt.Errorf("receipt %s is %s: %w", r.ID, r.Status, ErrNotListable)
	}
}

// CheckLienable enforces the lien guard against the receipt and its lot.
func (r Receipt) CheckLienable(lotStatus LotStatus) error {
	switch r.Status {
	case ReceiptSold, ReceiptReleased, ReceiptExpired, ReceiptDisputed:
		return &TransitionError{Entity: "lien", From: string(r.Status), To: "lien_active"}
	}
	if lotStatus == LotQuarantined || lotStatus == LotSpoiled {
		return &TransitionError{Entity: "lien", From: "lot_" + string(lotStatus), To: "lien_active"}
	}
	return nil
}

// VerificationPayload encodes the fields a verifier needs as a stable,
// url-encoded string suitable for a QR code.
func (r Receipt) VerificationPayload() string {
	v := url.Values{}
	v.Set("receipt_id", r.ID)
	v.Set("lot_id", r.LotID)
	v.Set("owner_entity_id", r.OwnerEntityID)
	v.Set("custodian_id", r.CustodianID)
	v.Set("status", string(r.Status))
	v.Set("issued_at", r.IssuedAt.UTC().Format(time.RFC3339))
	v.Set("expiry_ts", r.ExpiresAt.UTC().Format(time.RFC3339))
	return v.Encode()
}

// ReceiptIDFromQuery accepts either a bare receipt id or a verification
// payload and returns the receipt id it refers to.
func ReceiptIDFromQuery(q string) (string, bool) {
	q = strings.TrimSpace(q)
	if strings.HasPrefix(q, ReceiptIDPrefix) {
		return q, true
	}
	if !strings.Contains(q, "receipt_id=") {
		return "", false
	}
	values, err := url.ParseQuery(q)
	if err != nil {
		return "", false
	}
	id := values.Get("receipt_id")
	return id, id != ""
}
