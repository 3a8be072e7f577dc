// Package testhelper builds an in-memory engine environment and seeds
// entities for service tests.
package testhelper

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/dairy-dwr/internal/auth"
	"github.com/mamadbah2/dairy-dwr/internal/authority"
	"github.com/mamadbah2/dairy-dwr/internal/domain/models"
	"github.com/mamadbah2/dairy-dwr/internal/lock"
	"github.com/mamadbah2/dairy-dwr/internal/repository/memory"
	"github.com/mamadbah2/dairy-dwr/internal/service/directory"
)

// Now is the fixed instant test clocks start from.
var Now = time.Date(2026, 9, 14, 8, 0, 0, 0, time.UTC)

// Pilot actors.
var (
	Platform   = models.Actor{Username: "admin", Role: models.RolePlatform, EntityID: "E-PLAT-001"}
	Government = models.Actor{Username: "inspector", Role: models.RoleGovernment}
	Owner      = models.Actor{Username: "awa", Role: models.RoleOwner, EntityID: "E-WG-001"}
	OtherOwner = models.Actor{Username: "fatoumata", Role: models.RoleOwner, EntityID: "E-WI-001"}
	Custodian  = models.Actor{Username: "mcc", Role: models.RoleCustodian, EntityID: "C-MCC-001"}
	Buyer      = models.Actor{Username: "hospital", Role: models.RoleBuyer, EntityID: "E-BUY-001"}
)

// Clock is a settable test clock.
type Clock struct{ T time.Time }

// Now returns the current test time.
func (c *Clock) Now() time.Time { return c.T }

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) { c.T = c.T.Add(d) }

// Env holds the collaborators every service is built from.
type Env struct {
	Store     *memory.Store
	Authority *authority.Authority
	Oracle    *auth.Oracle
	Directory *directory.Directory
	Clock     *Clock
}

// NewEnv returns a fresh in-memory environment.
func NewEnv(t *testing.T) *Env {
	t.Helper()
	store := memory.New(nil)
	return &Env{
		Store:     store,
		Authority: authority.New(lock.NewKeyedLocker(time.Second), store, nil),
		Oracle:    auth.NewOracle(nil),
		Directory: directory.New(decimal.NewFromInt(500), nil),
		Clock:     &Clock{T: Now},
	}
}

// SeedLot stores an active 500 L raw milk lot held at C-MCC-001.
func SeedLot(t *testing.T, env *Env, mutate ...func(*models.DairyLot)) models.DairyLot {
	t.Helper()
	lot := models.DairyLot{
		ID:             models.NewID(models.LotIDPrefix),
		OwnerEntityID:  "E-WG-001",
		CustodianID:    "C-MCC-001",
		TankID:         "T-500-001",
		ProductType:    models.ProductRawMilk,
		QuantityLiters: decimal.NewFromInt(500),
		FatPct:         3.8,
		AntibioticTest: models.AntibioticPass,
		QualityGrade:   "A",
		TempAvgC:       4.0,
		TempMinC:       3.0,
		TempMaxC:       5.0,
		Status:         models.LotActive,
		CreatedAt:      env.Clock.Now(),
		ExpiresAt:      env.Clock.Now().Add(48 * time.Hour),
		UpdatedAt:      env.Clock.Now(),
	}
	for _, m := range mutate {
		m(&lot)
	}
	if err := env.Store.InsertLot(context.Background(), lot); err != nil {
		t.Fatalf("testhelper: seed lot: %v", err)
	}
	return lot
}

// SeedReceipt stores a receipt for lot in the given status.
func SeedReceipt(t *testing.T, env *Env, lot models.DairyLot, status models.ReceiptStatus, mutate ...func(*models.Receipt)) models.Receipt {
	t.Helper()
	r := models.Receipt{
		ID:            models.NewID(models.ReceiptIDPrefix),
		LotID:         lot.ID,
		OwnerEntityID: lot.OwnerEntityID,
		CustodianID:   lot.CustodianID,
		Status:        status,
		IssuedAt:      env.Clock.Now(),
		ExpiresAt:     lot.ExpiresAt,
		UpdatedAt:     env.Clock.Now(),
	}
	for _, m := range mutate {
		m(&r)
	}
	if err := env.Store.InsertReceipt(context.Background(), r); err != nil {
		t.Fatalf("testhelper: seed receipt: %v", err)
	}
	return r
}

// Trail returns the audit events of a receipt in commit order.
func Trail(t *testing.T, env *Env, receiptID string) []models.AuditEvent {
	t.Helper()
	events, err := env.Store.ListAudit(context.Background(), models.AuditFilter{ReceiptID: receiptID})
	if err != nil {
		t.Fatalf("testhelper: list audit: %v", err)
	}
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events
}

// EventTypes extracts event types, in order.
func EventTypes(events []models.AuditEvent) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.EventType
	}
	return out
}
