package memory

import (
	"context"
	"fmt"

	"github.com/mamadbah2/dairy-dwr/internal/domain/models"
)

// InsertLot stores a new lot.
func (s *Store) InsertLot(ctx context.Context, l models.DairyLot) error {
	return insert(s, ctx, pickLots, "dairy_lot", l.ID, l)
}

// GetLot returns a lot by id.
func (s *Store) GetLot(ctx context.Context, id string) (models.DairyLot, error) {
	return get(s, ctx, pickLots, "dairy_lot", id)
}

// UpdateLot replaces a stored lot.
func (s *Store) UpdateLot(ctx context.Context, l models.DairyLot) error {
	return update(s, ctx, pickLots, "dairy_lot", l.ID, l)
}

// ListLotsByCustodian returns every lot held by a custodian.
func (s *Store) ListLotsByCustodian(ctx context.Context, custodianID string) ([]models.DairyLot, error) {
	return list(s, ctx, pickLots, func(l models.DairyLot) bool { return l.CustodianID == custodianID }), nil
}

// InsertReceipt stores a newly issued receipt.
func (s *Store) InsertReceipt(ctx context.Context, r models.Receipt) error {
	return s.write(ctx, func(tx *txn) error {
		s.mu.RLock()
		_, exists := lookup(tx.staged.receipts, s.state.receipts, r.ID)
		s.mu.RUnlock()
		if exists {
			return fmt.Errorf("dwr %s already exists: %w", r.ID, models.ErrConflict)
		}
		tx.staged.receipts[r.ID] = r
		tx.receiptBase[r.ID] = -1
		return nil
	})
}

// GetReceipt returns a receipt by id.
func (s *Store) GetReceipt(ctx context.Context, id string) (models.Receipt, error) {
	return get(s, ctx, pickReceipts, "dwr", id)
}

// UpdateReceipt writes r if the stored version still equals r.Version and
// bumps r.Version. A stale version yields ErrConflict.
func (s *Store) UpdateReceipt(ctx context.Context, r *models.Receipt) error {
	return s.write(ctx, func(tx *txn) error {
		s.mu.RLock()
		cur, ok := lookup(tx.staged.receipts, s.state.receipts, r.ID)
		s.mu.RUnlock()
		if !ok {
			return fmt.Errorf("dwr %s: %w", r.ID, models.ErrNotFound)
		}
		if cur.Version != r.Version {
			return fmt.Errorf("dwr %s at version %d, have %d: %w", r.ID, cur.Version, r.Version, models.ErrConflict)
		}
		if _, seen := tx.receiptBase[r.ID]; !seen {
			tx.receiptBase[r.ID] = cur.Version
		}
		next := *r
		next.Version++
		tx.staged.receipts[r.ID] = next
		r.Version = next.Version
		return nil
	})
}

// FindReceiptByLot returns the receipt backed by a lot.
func (s *Store) FindReceiptByLot(ctx context.Context, lotID string) (models.Receipt, error) {
	found := list(s, ctx, pickReceipts, func(r models.Receipt) bool { return r.LotID == lotID })
	if len(found) == 0 {
		return models.Receipt{}, fmt.Errorf("dwr for lot %s: %w", lotID, models.ErrNotFound)
	}
	return found[0], nil
}

// ListReceiptsByStatus returns receipts in the given status.
func (s *Store) ListReceiptsByStatus(ctx context.Context, status models.ReceiptStatus) ([]models.Receipt, error) {
	return list(s, ctx, pickReceipts, func(r models.Receipt) bool { return r.Status == status }), nil
}

// ListReceiptsByCustodian returns receipts held by a custodian.
func (s *Store) ListReceiptsByCustodian(ctx context.Context, custodianID string) ([]models.Receipt, error) {
	return list(s, ctx, pickReceipts, func(r models.Receipt) bool { return r.CustodianID == custodianID }), nil
}

// InsertAdvance stores a new advance.
func (s *Store) InsertAdvance(ctx context.Context, a models.Advance) error {
	return insert(s, ctx, pickAdvances, "advance", a.ID, a)
}

// GetAdvance returns an advance by id.
func (s *Store) GetAdvance(ctx context.Context, id string) (models.Advance, error) {
	return get(s, ctx, pickAdvances, "advance", id)
}

// UpdateAdvance replaces a stored advance.
func (s *Store) UpdateAdvance(ctx context.Context, a models.Advance) error {
	return update(s, ctx, pickAdvances, "advance", a.ID, a)
}

// FindActiveAdvance returns the active advance against a receipt.
func (s *Store) FindActiveAdvance(ctx context.Context, receiptID string) (models.Advance, error) {
	found := list(s, ctx, pickAdvances, func(a models.Advance) bool {
		return a.ReceiptID == receiptID && a.Status == models.AdvanceActive
	})
	if len(found) == 0 {
		return models.Advance{}, fmt.Errorf("active advance for %s: %w", receiptID, models.ErrNotFound)
	}
	return found[0], nil
}

// ListActiveAdvances returns every active advance.
func (s *Store) ListActiveAdvances(ctx context.Context) ([]models.Advance, error) {
	return list(s, ctx, pickAdvances, func(a models.Advance) bool { return a.Status == models.AdvanceActive }), nil
}

// ListAdvancesByReceipt returns every advance ever issued against a receipt.
func (s *Store) ListAdvancesByReceipt(ctx context.Context, receiptID string) ([]models.Advance, error) {
	return list(s, ctx, pickAdvances, func(a models.Advance) bool { return a.ReceiptID == receiptID }), nil
}

// InsertContract stores a new sale contract.
func (s *Store) InsertContract(ctx context.Context, c models.SalesContract) error {
	return insert(s, ctx, pickContracts, "sale_contract", c.ID, c)
}

// GetContract returns a sale contract by id.
func (s *Store) GetContract(ctx context.Context, id string) (models.SalesContract, error) {
	return get(s, ctx, pickContracts, "sale_contract", id)
}

// UpdateContract replaces a stored sale contract.
func (s *Store) UpdateContract(ctx context.Context, c models.SalesContract) error {
	return update(s, ctx, pickContracts, "sale_contract", c.ID, c)
}

// InsertPayment stores a confirmed payment.
func (s *Store) InsertPayment(ctx context.Context, p models.Payment) error {
	return insert(s, ctx, pickPayments, "payment", p.ID, p)
}

// GetPayment returns a payment by id.
func (s *Store) GetPayment(ctx context.Context, id string) (models.Payment, error) {
	return get(s, ctx, pickPayments, "payment", id)
}

// InsertDispute stores a new dispute.
func (s *Store) InsertDispute(ctx context.Context, d models.Dispute) error {
	return insert(s, ctx, pickDisputes, "dispute", d.ID, d)
}

// GetDispute returns a dispute by id.
func (s *Store) GetDispute(ctx context.Context, id string) (models.Dispute, error) {
	return get(s, ctx, pickDisputes, "dispute", id)
}

// UpdateDispute replaces a stored dispute.
func (s *Store) UpdateDispute(ctx context.Context, d models.Dispute) error {
	return update(s, ctx, pickDisputes, "dispute", d.ID, d)
}

// FindOpenDispute returns the open dispute against a receipt.
func (s *Store) FindOpenDispute(ctx context.Context, receiptID string) (models.Dispute, error) {
	found := list(s, ctx, pickDisputes, func(d models.Dispute) bool {
		return d.ReceiptID == receiptID && d.Status == models.DisputeOpen
	})
	if len(found) == 0 {
		return models.Dispute{}, fmt.Errorf("open dispute for %s: %w", receiptID, models.ErrNotFound)
	}
	return found[0], nil
}

// ListDisputesByReceipts returns every dispute filed against the given receipts.
func (s *Store) ListDisputesByReceipts(ctx context.Context, receiptIDs []string) ([]models.Dispute, error) {
	ids := make(map[string]struct{}, len(receiptIDs))
	for _, id := range receiptIDs {
		ids[id] = struct{}{}
	}
	return list(s, ctx, pickDisputes, func(d models.Dispute) bool {
		_, ok := ids[d.ReceiptID]
		return ok
	}), nil
}

// InsertReleaseOrder stores a new release order.
func (s *Store) InsertReleaseOrder(ctx context.Context, o models.ReleaseOrder) error {
	return insert(s, ctx, pickReleases, "release_order", o.ID, o)
}

// GetReleaseOrder returns a release order by id.
func (s *Store) GetReleaseOrder(ctx context.Context, id string) (models.ReleaseOrder, error) {
	return get(s, ctx, pickReleases, "release_order", id)
}

// UpdateReleaseOrder replaces a stored release order.
func (s *Store) UpdateReleaseOrder(ctx context.Context, o models.ReleaseOrder) error {
	return update(s, ctx, pickReleases, "release_order", o.ID, o)
}

// FindPendingReleaseOrder returns the pending release order for a receipt.
func (s *Store) FindPendingReleaseOrder(ctx context.Context, receiptID string) (models.ReleaseOrder, error) {
	found := list(s, ctx, pickReleases, func(o models.ReleaseOrder) bool {
		return o.ReceiptID == receiptID && o.Status == models.ReleasePending
	})
	if len(found) == 0 {
		return models.ReleaseOrder{}, fmt.Errorf("pending release order for %s: %w", receiptID, models.ErrNotFound)
	}
	return found[0], nil
}

// UpsertSLASnapshot replaces the snapshot for the same custodian and month.
func (s *Store) UpsertSLASnapshot(ctx context.Context, snap models.SLASnapshot) error {
	snap.ID = models.SnapshotID(snap.CustodianID, snap.Month)
	return s.write(ctx, func(tx *txn) error {
		tx.staged.snapshots[snap.ID] = snap
		return nil
	})
}

// ListSLASnapshots returns the snapshots of a month.
func (s *Store) ListSLASnapshots(ctx context.Context, month string) ([]models.SLASnapshot, error) {
	return list(s, ctx, pickSnapshots, func(snap models.SLASnapshot) bool { return snap.Month == month }), nil
}
