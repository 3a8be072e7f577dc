// Package engine assembles the lot registry, receipt state machine, advance
// ledger, settlement, dispute, release and SLA services over one store and
// one per-receipt authority.
package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/dairy-dwr/internal/auth"
	"github.com/mamadbah2/dairy-dwr/internal/authority"
	"github.com/mamadbah2/dairy-dwr/internal/domain/models"
	"github.com/mamadbah2/dairy-dwr/internal/lock"
	"github.com/mamadbah2/dairy-dwr/internal/repository/memory"
	"github.com/mamadbah2/dairy-dwr/internal/repository/mongodb"
	"github.com/mamadbah2/dairy-dwr/internal/service/advances"
	"github.com/mamadbah2/dairy-dwr/internal/service/audit"
	"github.com/mamadbah2/dairy-dwr/internal/service/directory"
	"github.com/mamadbah2/dairy-dwr/internal/service/disputes"
	"github.com/mamadbah2/dairy-dwr/internal/service/lots"
	"github.com/mamadbah2/dairy-dwr/internal/service/receipts"
	"github.com/mamadbah2/dairy-dwr/internal/service/release"
	"github.com/mamadbah2/dairy-dwr/internal/service/settlement"
	"github.com/mamadbah2/dairy-dwr/internal/service/sla"
)

// Store is everything the engine persists. Both the in-memory and the
// MongoDB store implement it.
type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error

	InsertLot(ctx context.Context, l models.DairyLot) error
	GetLot(ctx context.Context, id string) (models.DairyLot, error)
	UpdateLot(ctx context.Context, l models.DairyLot) error
	ListLotsByCustodian(ctx context.Context, custodianID string) ([]models.DairyLot, error)

	InsertReceipt(ctx context.Context, r models.Receipt) error
	GetReceipt(ctx context.Context, id string) (models.Receipt, error)
	UpdateReceipt(ctx context.Context, r *models.Receipt) error
	FindReceiptByLot(ctx context.Context, lotID string) (models.Receipt, error)
	ListReceiptsByStatus(ctx context.Context, status models.ReceiptStatus) ([]models.Receipt, error)
	ListReceiptsByCustodian(ctx context.Context, custodianID string) ([]models.Receipt, error)

	InsertAdvance(ctx context.Context, a models.Advance) error
	GetAdvance(ctx context.Context, id string) (models.Advance, error)
	UpdateAdvance(ctx context.Context, a models.Advance) error
	FindActiveAdvance(ctx context.Context, receiptID string) (models.Advance, error)
	ListActiveAdvances(ctx context.Context) ([]models.Advance, error)
	ListAdvancesByReceipt(ctx context.Context, receiptID string) ([]models.Advance, error)

	InsertContract(ctx context.Context, c models.SalesContract) error
	GetContract(ctx context.Context, id string) (models.SalesContract, error)
	UpdateContract(ctx context.Context, c models.SalesContract) error
	InsertPayment(ctx context.Context, p models.Payment) error
	GetPayment(ctx context.Context, id string) (models.Payment, error)

	InsertDispute(ctx context.Context, d models.Dispute) error
	GetDispute(ctx context.Context, id string) (models.Dispute, error)
	UpdateDispute(ctx context.Context, d models.Dispute) error
	FindOpenDispute(ctx context.Context, receiptID string) (models.Dispute, error)
	ListDisputesByReceipts(ctx context.Context, receiptIDs []string) ([]models.Dispute, error)

	InsertReleaseOrder(ctx context.Context, o models.ReleaseOrder) error
	GetReleaseOrder(ctx context.Context, id string) (models.ReleaseOrder, error)
	UpdateReleaseOrder(ctx context.Context, o models.ReleaseOrder) error
	FindPendingReleaseOrder(ctx context.Context, receiptID string) (models.ReleaseOrder, error)

	UpsertSLASnapshot(ctx context.Context, snap models.SLASnapshot) error
	ListSLASnapshots(ctx context.Context, month string) ([]models.SLASnapshot, error)

	AppendAudit(ctx context.Context, e models.AuditEvent) error
	ListAudit(ctx context.Context, f models.AuditFilter) ([]models.AuditEvent, error)
}

var (
	_ Store = (*memory.Store)(nil)
	_ Store = (*mongodb.Store)(nil)
)

// Notifier receives post-commit events.
type Notifier interface {
	SaleSettled(ctx context.Context, s models.Settlement)
	DisputeFiled(ctx context.Context, d models.Dispute, r models.Receipt)
	ReleaseConfirmed(ctx context.Context, o models.ReleaseOrder, r models.Receipt)
}

// Deps are the collaborators an Engine is built from. Notifier, Oracle,
// Location, Logger and Now are optional.
type Deps struct {
	Store     Store
	Locker    lock.Locker
	Directory *directory.Directory
	Notifier  Notifier
	Oracle    *auth.Oracle
	Policy    advances.Policy
	Location  *time.Location
	Logger    *zap.Logger
	Now       func() time.Time
}

// Engine exposes every engine operation, grouped by component.
type Engine struct {
	Directory  *directory.Directory
	Lots       *lots.Service
	Receipts   *receipts.Service
	Advances   *advances.Service
	Settlement *settlement.Service
	Disputes   *disputes.Service
	Releases   *release.Service
	SLA        *sla.Service
	Audit      *audit.Service
}

// New wires an Engine.
func New(d Deps) *Engine {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	oracle := d.Oracle
	if oracle == nil {
		oracle = auth.NewOracle(nil)
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}

	guard := authority.New(d.Locker, d.Store, logger.Named("authority"))
	return &Engine{
		Directory:  d.Directory,
		Lots:       lots.NewService(d.Store, d.Directory, guard, oracle, logger.Named("lots")).WithClock(now),
		Receipts:   receipts.NewService(d.Store, guard, oracle, logger.Named("receipts")).WithClock(now),
		Advances:   advances.NewService(d.Store, d.Directory, guard, oracle, d.Policy, logger.Named("advances")).WithClock(now),
		Settlement: settlement.NewService(d.Store, d.Directory, guard, oracle, d.Notifier, logger.Named("settlement")).WithClock(now),
		Disputes:   disputes.NewService(d.Store, guard, oracle, d.Notifier, logger.Named("disputes")).WithClock(now),
		Releases:   release.NewService(d.Store, d.Directory, guard, oracle, d.Notifier, logger.Named("release")).WithClock(now),
		SLA:        sla.NewService(d.Store, d.Directory, guard, oracle, d.Location, logger.Named("sla")).WithClock(now),
		Audit:      audit.NewService(d.Store),
	}
}
