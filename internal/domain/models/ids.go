package models

import (
	"strings"

	"github.com/google/uuid"
)

// Identifier prefixes, one per entity kind.
const (
	LotIDPrefix      = "LOT-"
	ReceiptIDPrefix  = "DWR-"
	AdvanceIDPrefix  = "ADV-"
	ContractIDPrefix = "SC-"
	PaymentIDPrefix  = "PAY-"
	DisputeIDPrefix  = "DSP-"
	ReleaseIDPrefix  = "RO-"
	EventIDPrefix    = "EVT-"
)

// NewID returns a short, human-friendly identifier such as DWR-1A2B3C4D.
func NewID(prefix string) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + strings.ToUpper(raw[:8])
}
