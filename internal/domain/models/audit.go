package models

import (
	"fmt"
	"strings"
	"time"
)

// AuditEntityType names the kind of entity an audit event refers to.
type AuditEntityType string

const (
	AuditEntityLot          AuditEntityType = "dairy_lot"
	AuditEntityReceipt      AuditEntityType = "dwr"
	AuditEntityAdvance      AuditEntityType = "advance"
	AuditEntityContract     AuditEntityType = "sale_contract"
	AuditEntityPayment      AuditEntityType = "payment"
	AuditEntityDispute      AuditEntityType = "dispute"
	AuditEntityReleaseOrder AuditEntityType = "release_order"
	AuditEntitySLA          AuditEntityType = "sla"
)

// Audit event types.
const (
	EventLotCreated          = "lot_created"
	EventLotStatusChanged    = "lot_status_changed"
	EventReceiptIssued       = "receipt_issued"
	EventReceiptTransitioned = "receipt_status_changed"
	EventAdvanceCreated      = "advance_created"
	EventAdvanceRepaid       = "advance_repaid"
	EventContractCreated     = "sale_contract_created"
	EventPaymentConfirmed    = "payment_confirmed"
	EventSaleSettled         = "sale_settled"
	EventDisputeFiled        = "dispute_filed"
	EventDisputeResolved     = "dispute_resolved"
	EventReleaseOrderCreated = "release_order_created"
	EventReleaseConfirmed    = "release_confirmed"
	EventSLASaved            = "sla_saved"
)

// AuditEvent is one append-only audit log record. Seq is assigned by the
// store at commit time and orders the events of one receipt exactly as they
// were committed.
type AuditEvent struct {
	ID         string          `bson:"_id" json:"event_id"`
	Seq        int64           `bson:"seq" json:"seq"`
	Timestamp  time.Time       `bson:"timestamp" json:"timestamp"`
	Actor      string          `bson:"actor" json:"actor"`
	EventType  string          `bson:"event_type" json:"event_type"`
	EntityType AuditEntityType `bson:"entity_type" json:"entity_type"`
	EntityID   string          `bson:"entity_id" json:"entity_id"`
	ReceiptID  string          `bson:"receipt_id,omitempty" json:"receipt_id,omitempty"`
	Details    map[string]any  `bson:"details,omitempty" json:"details,omitempty"`
}

// NewAuditEvent builds an event for the given actor and entity.
func NewAuditEvent(actor Actor, eventType string, entityType AuditEntityType, entityID, receiptID string, details map[string]any, at time.Time) AuditEvent {
	return AuditEvent{
		ID:         NewID(EventIDPrefix),
		Timestamp:  at,
		Actor:      actor.Username,
		EventType:  eventType,
		EntityType: entityType,
		EntityID:   entityID,
		ReceiptID:  receiptID,
		Details:    details,
	}
}

// AuditFilter narrows an audit log query. Zero values match everything.
type AuditFilter struct {
	EventType  string
	EntityType AuditEntityType
	EntityID   string
	ReceiptID  string
	Search     string
	Limit      int
}

// Matches reports whether the lowercase needle occurs in the entity id or the
// rendered details of the event.
func (e AuditEvent) Matches(needle string) bool {
	if strings.Contains(strings.ToLower(e.EntityID), needle) {
		return true
	}
	return strings.Contains(strings.ToLower(fmt.Sprint(e.Details)), needle)
}

// DefaultAuditLimit caps audit queries that do not set a limit.
const DefaultAuditLimit = 400
