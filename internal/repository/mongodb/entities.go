package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy-dwr/internal/domain/models"
)

func findOne[T any](ctx context.Context, coll *mongo.Collection, filter any, what string) (T, error) {
	var v T
	err := coll.FindOne(ctx, filter).Decode(&v)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return v, fmt.Errorf("%s: %w", what, models.ErrNotFound)
	}
	if err != nil {
		return v, fmt.Errorf("failed to find %s: %w", what, err)
	}
	return v, nil
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter any, opts ...*options.FindOptions) ([]T, error) {
	cur, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", coll.Name(), err)
	}
	var out []T
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", coll.Name(), err)
	}
	return out, nil
}

func insertOne(ctx context.Context, coll *mongo.Collection, doc any, what string) error {
	_, err := coll.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%s: %w", what, models.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to insert %s: %w", what, err)
	}
	return nil
}

func replaceOne(ctx context.Context, coll *mongo.Collection, id string, doc any, what string) error {
	res, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%s: %w", what, models.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", what, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", what, models.ErrNotFound)
	}
	return nil
}

var byID = options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})

// InsertLot stores a new lot.
func (s *Store) InsertLot(ctx context.Context, l models.DairyLot) error {
	return insertOne(ctx, s.coll(collLots), l, "dairy_lot "+l.ID)
}

// GetLot returns a lot by id.
func (s *Store) GetLot(ctx context.Context, id string) (models.DairyLot, error) {
	return findOne[models.DairyLot](ctx, s.coll(collLots), bson.M{"_id": id}, "dairy_lot "+id)
}

// UpdateLot replaces a stored lot.
func (s *Store) UpdateLot(ctx context.Context, l models.DairyLot) error {
	return replaceOne(ctx, s.coll(collLots), l.ID, l, "dairy_lot "+l.ID)
}

// ListLotsByCustodian returns every lot held by a custodian.
func (s *Store) ListLotsByCustodian(ctx context.Context, custodianID string) ([]models.DairyLot, error) {
	return findAll[models.DairyLot](ctx, s.coll(collLots), bson.M{"custodian_id": custodianID}, byID)
}

// InsertReceipt stores a newly issued receipt. The unique lot_id index
// rejects a second receipt for the same lot.
func (s *Store) InsertReceipt(ctx context.Context, r models.Receipt) error {
	return insertOne(ctx, s.coll(collReceipts), r, "dwr "+r.ID)
}

// GetReceipt returns a receipt by id.
func (s *Store) GetReceipt(ctx context.Context, id string) (models.Receipt, error) {
	return findOne[models.Receipt](ctx, s.coll(collReceipts), bson.M{"_id": id}, "dwr "+id)
}

// UpdateReceipt writes r only if the stored version still equals r.Version,
// then bumps r.Version.
func (s *Store) UpdateReceipt(ctx context.Context, r *models.Receipt) error {
	next := *r
	next.Version++
	res, err := s.coll(collReceipts).ReplaceOne(ctx, bson.M{"_id": r.ID, "version": r.Version}, next)
	if err != nil {
		return fmt.Errorf("failed to update dwr %s: %w", r.ID, err)
	}
	if res.MatchedCount == 0 {
		if _, err := s.GetReceipt(ctx, r.ID); err != nil {
			return err
		}
		s.logger.Debug("stale receipt version", zap.String("receipt_id", r.ID), zap.Int64("version", r.Version))
		return fmt.Errorf("dwr %s modified concurrently: %w", r.ID, models.ErrConflict)
	}
	r.Version = next.Version
	return nil
}

// FindReceiptByLot returns the receipt backed by a lot.
func (s *Store) FindReceiptByLot(ctx context.Context, lotID string) (models.Receipt, error) {
	return findOne[models.Receipt](ctx, s.coll(collReceipts), bson.M{"lot_id": lotID}, "dwr for lot "+lotID)
}

// ListReceiptsByStatus returns receipts in the given status.
func (s *Store) ListReceiptsByStatus(ctx context.Context, status models.ReceiptStatus) ([]models.Receipt, error) {
	return findAll[models.Receipt](ctx, s.coll(collReceipts), bson.M{"status": status}, byID)
}

// ListReceiptsByCustodian returns receipts held by a custodian.
func (s *Store) ListReceiptsByCustodian(ctx context.Context, custodianID string) ([]models.Receipt, error) {
	return findAll[models.Receipt](ctx, s.coll(collReceipts), bson.M{"custodian_id": custodianID}, byID)
}

// InsertAdvance stores a new advance. The partial unique index on active
// advances rejects a second one for the same receipt.
func (s *Store) InsertAdvance(ctx context.Context, a models.Advance) error {
	_, err := s.coll(collAdvances).InsertOne(ctx, a)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("receipt %s: %w", a.ReceiptID, models.ErrDuplicateAdvance)
	}
	if err != nil {
		return fmt.Errorf("failed to insert advance %s: %w", a.ID, err)
	}
	return nil
}

// GetAdvance returns an advance by id.
func (s *Store) GetAdvance(ctx context.Context, id string) (models.Advance, error) {
	return findOne[models.Advance](ctx, s.coll(collAdvances), bson.M{"_id": id}, "advance "+id)
}

// UpdateAdvance replaces a stored advance.
func (s *Store) UpdateAdvance(ctx context.Context, a models.Advance) error {
	return replaceOne(ctx, s.coll(collAdvances), a.ID, a, "advance "+a.ID)
}

// FindActiveAdvance returns the active advance against a receipt.
func (s *Store) FindActiveAdvance(ctx context.Context, receiptID string) (models.Advance, error) {
	filter := bson.M{"receipt_id": receiptID, "status": models.AdvanceActive}
	return findOne[models.Advance](ctx, s.coll(collAdvances), filter, "active advance for "+receiptID)
}

// ListActiveAdvances returns every active advance.
func (s *Store) ListActiveAdvances(ctx context.Context) ([]models.Advance, error) {
	return findAll[models.Advance](ctx, s.coll(collAdvances), bson.M{"status": models.AdvanceActive}, byID)
}

// ListAdvancesByReceipt returns every advance ever issued against a receipt.
func (s *Store) ListAdvancesByReceipt(ctx context.Context, receiptID string) ([]models.Advance, error) {
	return findAll[models.Advance](ctx, s.coll(collAdvances), bson.M{"receipt_id": receiptID}, byID)
}

// InsertContract stores a new sale contract.
func (s *Store) InsertContract(ctx context.Context, c models.SalesContract) error {
	return insertOne(ctx, s.coll(collContracts), c, "sale_contract "+c.ID)
}

// GetContract returns a sale contract by id.
func (s *Store) GetContract(ctx context.Context, id string) (models.SalesContract, error) {
	return findOne[models.SalesContract](ctx, s.coll(collContracts), bson.M{"_id": id}, "sale_contract "+id)
}

// UpdateContract replaces a stored sale contract.
func (s *Store) UpdateContract(ctx context.Context, c models.SalesContract) error {
	return replaceOne(ctx, s.coll(collContracts), c.ID, c, "sale_contract "+c.ID)
}

// InsertPayment stores a confirmed payment.
func (s *Store) InsertPayment(ctx context.Context, p models.Payment) error {
	return insertOne(ctx, s.coll(collPayments), p, "payment "+p.ID)
}

// GetPayment returns a payment by id.
func (s *Store) GetPayment(ctx context.Context, id string) (models.Payment, error) {
	return findOne[models.Payment](ctx, s.coll(collPayments), bson.M{"_id": id}, "payment "+id)
}

// InsertDispute stores a new dispute. The partial unique index on open
// disputes rejects a second one for the same receipt.
func (s *Store) InsertDispute(ctx context.Context, d models.Dispute) error {
	return insertOne(ctx, s.coll(collDisputes), d, "open dispute on "+d.ReceiptID)
}

// GetDispute returns a dispute by id.
func (s *Store) GetDispute(ctx context.Context, id string) (models.Dispute, error) {
	return findOne[models.Dispute](ctx, s.coll(collDisputes), bson.M{"_id": id}, "dispute "+id)
}

// UpdateDispute replaces a stored dispute.
func (s *Store) UpdateDispute(ctx context.Context, d models.Dispute) error {
	return replaceOne(ctx, s.coll(collDisputes), d.ID, d, "dispute "+d.ID)
}

// FindOpenDispute returns the open dispute against a receipt.
func (s *Store) FindOpenDispute(ctx context.Context, receiptID string) (models.Dispute, error) {
	filter := bson.M{"receipt_id": receiptID, "status": models.DisputeOpen}
	return findOne[models.Dispute](ctx, s.coll(collDisputes), filter, "open dispute for "+receiptID)
}

// ListDisputesByReceipts returns every dispute filed against the given receipts.
func (s *Store) ListDisputesByReceipts(ctx context.Context, receiptIDs []string) ([]models.Dispute, error) {
	if len(receiptIDs) == 0 {
		return nil, nil
	}
	filter := bson.M{"receipt_id": bson.M{"$in": receiptIDs}}
	return findAll[models.Dispute](ctx, s.coll(collDisputes), filter, byID)
}

// InsertReleaseOrder stores a new release order.
func (s *Store) InsertReleaseOrder(ctx context.Context, o models.ReleaseOrder) error {
	return insertOne(ctx, s.coll(collReleases), o, "release_order "+o.ID)
}

// GetReleaseOrder returns a release order by id.
func (s *Store) GetReleaseOrder(ctx context.Context, id string) (models.ReleaseOrder, error) {
	return findOne[models.ReleaseOrder](ctx, s.coll(collReleases), bson.M{"_id": id}, "release_order "+id)
}

// UpdateReleaseOrder replaces a stored release order.
func (s *Store) UpdateReleaseOrder(ctx context.Context, o models.ReleaseOrder) error {
	return replaceOne(ctx, s.coll(collReleases), o.ID, o, "release_order "+o.ID)
}

// FindPendingReleaseOrder returns the pending release order for a receipt.
func (s *Store) FindPendingReleaseOrder(ctx context.Context, receiptID string) (models.ReleaseOrder, error) {
	filter := bson.M{"receipt_id": receiptID, "status": models.ReleasePending}
	return findOne[models.ReleaseOrder](ctx, s.coll(collReleases), filter, "pending release order for "+receiptID)
}

// UpsertSLASnapshot replaces the snapshot for the same custodian and month.
func (s *Store) UpsertSLASnapshot(ctx context.Context, snap models.SLASnapshot) error {
	snap.ID = models.SnapshotID(snap.CustodianID, snap.Month)
	opts := options.Replace().SetUpsert(true)
	if _, err := s.coll(collSnapshots).ReplaceOne(ctx, bson.M{"_id": snap.ID}, snap, opts); err != nil {
		return fmt.Errorf("failed to upsert sla snapshot %s: %w", snap.ID, err)
	}
	return nil
}

// ListSLASnapshots returns the snapshots of a month.
func (s *Store) ListSLASnapshots(ctx context.Context, month string) ([]models.SLASnapshot, error) {
	return findAll[models.SLASnapshot](ctx, s.coll(collSnapshots), bson.M{"month": month}, byID)
}
