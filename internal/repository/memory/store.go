// Package memory is an in-process store with the same transactional
// semantics as the MongoDB store: writes made inside RunInTx are staged in a
// per-transaction buffer and committed in one step, or discarded.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/mamadbah2/dairy-dwr/internal/domain/models"
)

type txKey struct{}

type state struct {
	lots      map[string]models.DairyLot
	receipts  map[string]models.Receipt
	advances  map[string]models.Advance
	contracts map[string]models.SalesContract
	payments  map[string]models.Payment
	disputes  map[string]models.Dispute
	releases  map[string]models.ReleaseOrder
	snapshots map[string]models.SLASnapshot
}

func newState() state {
	return state{
		lots:      map[string]models.DairyLot{},
		receipts:  map[string]models.Receipt{},
		advances:  map[string]models.Advance{},
		contracts: map[string]models.SalesContract{},
		payments:  map[string]models.Payment{},
		disputes:  map[string]models.Dispute{},
		releases:  map[string]models.ReleaseOrder{},
		snapshots: map[string]models.SLASnapshot{},
	}
}

// txn is the write-ahead staging buffer of one transaction.
type txn struct {
	staged state
	// receiptBase holds the committed version each staged receipt was read
	// at; -1 marks an insert.
	receiptBase map[string]int64
	events      []models.AuditEvent
}

func txFrom(ctx context.Context) *txn {
	tx, _ := ctx.Value(txKey{}).(*txn)
	return tx
}

// Store keeps every entity in maps guarded by one RWMutex. The mutex only
// covers map access; per-receipt serialization is the caller's job.
type Store struct {
	mu     sync.RWMutex
	state  state
	events []models.AuditEvent
	seq    int64
	logger *zap.Logger
}

// New creates an empty store.
func New(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{state: newState(), logger: logger}
}

// RunInTx runs fn with a staging buffer in its context and commits the
// buffer if fn succeeds. Nested calls join the outer transaction.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}

	tx := &txn{staged: newState(), receiptBase: map[string]int64{}}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	return s.commit(tx)
}

func (s *Store) commit(tx *txn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validate(tx); err != nil {
		s.logger.Debug("transaction rejected at commit", zap.Error(err))
		return err
	}

	apply(s.state.lots, tx.staged.lots)
	apply(s.state.receipts, tx.staged.receipts)
	apply(s.state.advances, tx.staged.advances)
	apply(s.state.contracts, tx.staged.contracts)
	apply(s.state.payments, tx.staged.payments)
	apply(s.state.disputes, tx.staged.disputes)
	apply(s.state.releases, tx.staged.releases)
	apply(s.state.snapshots, tx.staged.snapshots)

	for _, e := range tx.events {
		s.seq++
		e.Seq = s.seq
		s.events = append(s.events, e)
	}
	return nil
}

// validate re-checks, against committed state, the invariants that concurrent
// transactions could otherwise break. Caller holds s.mu.
func (s *Store) validate(tx *txn) error {
	for id, base := range tx.receiptBase {
		cur, exists := s.state.receipts[id]
		switch {
		case base < 0 && exists:
			return fmt.Errorf("receipt %s: %w", id, models.ErrConflict)
		case base >= 0 && (!exists || cur.Version != base):
			return fmt.Errorf("receipt %s modified concurrently: %w", id, models.ErrConflict)
		}
	}

	for id, r := range tx.staged.receipts {
		if tx.receiptBase[id] >= 0 {
			continue
		}
		for _, other := range s.state.receipts {
			if other.LotID == r.LotID {
				return fmt.Errorf("lot %s already backs receipt %s: %w", r.LotID, other.ID, models.ErrConflict)
			}
		}
	}

	for id, a := range tx.staged.advances {
		if a.Status != models.AdvanceActive {
			continue
		}
		for _, other := range merged(tx.staged.advances, s.state.advances) {
			if other.ID != id && other.ReceiptID == a.ReceiptID && other.Status == models.AdvanceActive {
				return fmt.Errorf("receipt %s: %w", a.ReceiptID, models.ErrDuplicateAdvance)
			}
		}
	}

	for id, d := range tx.staged.disputes {
		if d.Status != models.DisputeOpen {
			continue
		}
		for _, other := range merged(tx.staged.disputes, s.state.disputes) {
			if other.ID != id && other.ReceiptID == d.ReceiptID && other.Status == models.DisputeOpen {
				return fmt.Errorf("receipt %s already has an open dispute: %w", d.ReceiptID, models.ErrConflict)
			}
		}
	}
	return nil
}

// write runs fn against the context transaction, or against a fresh one
// committed immediately when the caller is not in a transaction.
func (s *Store) write(ctx context.Context, fn func(tx *txn) error) error {
	if tx := txFrom(ctx); tx != nil {
		return fn(tx)
	}
	return s.RunInTx(ctx, func(ctx context.Context) error { return fn(txFrom(ctx)) })
}

func (s *Store) staged(ctx context.Context) state {
	if tx := txFrom(ctx); tx != nil {
		return tx.staged
	}
	return state{}
}

func apply[T any](dst, src map[string]T) {
	for k, v := range src {
		dst[k] = v
	}
}

func lookup[T any](staged, committed map[string]T, id string) (T, bool) {
	if v, ok := staged[id]; ok {
		return v, true
	}
	v, ok := committed[id]
	return v, ok
}

// merged lists committed rows overlaid by staged ones, ordered by key.
func merged[T any](staged, committed map[string]T) []T {
	keys := make([]string, 0, len(committed)+len(staged))
	for k := range committed {
		keys = append(keys, k)
	}
	for k := range staged {
		if _, ok := committed[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := make([]T, 0, len(keys))
	for _, k := range keys {
		v, _ := lookup(staged, committed, k)
		out = append(out, v)
	}
	return out
}

func get[T any](s *Store, ctx context.Context, pick func(state) map[string]T, entity, id string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := lookup(pick(s.staged(ctx)), pick(s.state), id)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s %s: %w", entity, id, models.ErrNotFound)
	}
	return v, nil
}

func list[T any](s *Store, ctx context.Context, pick func(state) map[string]T, keep func(T) bool) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []T
	for _, v := range merged(pick(s.staged(ctx)), pick(s.state)) {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

func insert[T any](s *Store, ctx context.Context, pick func(state) map[string]T, entity, id string, v T) error {
	return s.write(ctx, func(tx *txn) error {
		s.mu.RLock()
		_, exists := lookup(pick(tx.staged), pick(s.state), id)
		s.mu.RUnlock()
		if exists {
			return fmt.Errorf("%s %s already exists: %w", entity, id, models.ErrConflict)
		}
		pick(tx.staged)[id] = v
		return nil
	})
}

func update[T any](s *Store, ctx context.Context, pick func(state) map[string]T, entity, id string, v T) error {
	return s.write(ctx, func(tx *txn) error {
		s.mu.RLock()
		_, exists := lookup(pick(tx.staged), pick(s.state), id)
		s.mu.RUnlock()
		if !exists {
			return fmt.Errorf("%s %s: %w", entity, id, models.ErrNotFound)
		}
		pick(tx.staged)[id] = v
		return nil
	})
}

func pickLots(st state) map[string]models.DairyLot { return st.lots }
func pickReceipts(st state) map[string]models.Receipt { return st.receipts }
func pickAdvances(st state) map[string]models.Advance { return st.advances }
func pickContracts(st state) map[string]models.SalesContract { return st.contracts }
func pickPayments(st state) map[string]models.Payment { return st.payments }
func pickDisputes(st state) map[string]models.Dispute { return st.disputes }
func pickReleases(st state) map[string]models.ReleaseOrder { return st.releases }
func pickSnapshots(st state) map[string]models.SLASnapshot { return st.snapshots }

// AppendAudit stages an audit event; it becomes visible at commit.
func (s *Store) AppendAudit(ctx context.Context, e models.AuditEvent) error {
	return s.write(ctx, func(tx *txn) error {
		tx.events = append(tx.events, e)
		return nil
	})
}

// ListAudit returns committed events, newest first.
func (s *Store) ListAudit(_ context.Context, f models.AuditFilter) ([]models.AuditEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(f.Search))
	var out []models.AuditEvent
	for i := len(s.events) - 1; i >= 0; i-- {
		e := s.events[i]
		if f.EventType != "" && e.EventType != f.EventType {
			continue
		}
		if f.EntityType != "" && e.EntityType != f.EntityType {
			continue
		}
		if f.EntityID != "" && e.EntityID != f.EntityID {
			continue
		}
		if f.ReceiptID != "" && e.ReceiptID != f.ReceiptID {
			continue
		}
		if search != "" && !e.Matches(search) {
			continue
		}
		out = append(out, e)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}
