// Package mongodb persists the engine's entities in MongoDB. Multi-document
// transactions carry their session in the context, so every store method
// called with that context joins the transaction.
package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy-dwr/internal/domain/models"
)

const (
	collLots      = "dairy_lots"
	collReceipts  = "receipts"
	collAdvances  = "advances"
	collContracts = "sale_contracts"
	collPayments  = "payments"
	collDisputes  = "disputes"
	collReleases  = "release_orders"
	collSnapshots = "sla_snapshots"
	collAudit     = "audit_events"
	collCounters  = "counters"
)

// Store implements the engine's persistence on MongoDB.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

// NewStore connects to MongoDB and verifies the connection.
func NewStore(ctx context.Context, uri string, dbName string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	clientOptions := options.Client().ApplyURI(uri).SetRegistry(NewRegistry())
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &Store{
		client: client,
		db:     client.Database(dbName),
		logger: logger,
	}, nil
}

func (s *Store) coll(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// EnsureIndexes creates the indexes the engine's invariants rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	unique := func(keys bson.D, partial bson.M) mongo.IndexModel {
		opts := options.Index().SetUnique(true)
		if partial != nil {
			opts.SetPartialFilterExpression(partial)
		}
		return mongo.IndexModel{Keys: keys, Options: opts}
	}

	indexes := map[string][]mongo.IndexModel{
		collLots: {
			{Keys: bson.D{{Key: "custodian_id", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		collReceipts: {
			unique(bson.D{{Key: "lot_id", Value: 1}}, nil),
			{Keys: bson.D{{Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "custodian_id", Value: 1}}},
		},
		collAdvances: {
			unique(bson.D{{Key: "receipt_id", Value: 1}}, bson.M{"status": models.AdvanceActive}),
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "due_at", Value: 1}}},
		},
		collContracts: {
			{Keys: bson.D{{Key: "receipt_id", Value: 1}}},
		},
		collDisputes: {
			unique(bson.D{{Key: "receipt_id", Value: 1}}, bson.M{"status": models.DisputeOpen}),
			{Keys: bson.D{{Key: "receipt_id", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		collReleases: {
			{Keys: bson.D{{Key: "receipt_id", Value: 1}, {Key: "status", Value: 1}}},
		},
		collSnapshots: {
			{Keys: bson.D{{Key: "month", Value: 1}}},
		},
		collAudit: {
			unique(bson.D{{Key: "receipt_id", Value: 1}, {Key: "seq", Value: -1}}, bson.M{"receipt_id": bson.M{"$exists": true}}),
			{Keys: bson.D{{Key: "timestamp", Value: -1}, {Key: "seq", Value: -1}}},
			{Keys: bson.D{{Key: "entity_type", Value: 1}, {Key: "entity_id", Value: 1}}},
		},
	}

	for name, idx := range indexes {
		if _, err := s.coll(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	s.logger.Info("mongodb indexes ensured", zap.Int("collections", len(indexes)))
	return nil
}

// RunInTx runs fn in a multi-document transaction. A context that already
// carries a session joins it. The driver may retry fn on transient errors,
// so fn must re-read what it mutates.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer sess.EndSession(ctx)

	txOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	}, txOpts)
	if err != nil {
		if isWriteConflict(err) {
			s.logger.Debug("transaction write conflict", zap.Error(err))
			return fmt.Errorf("transaction aborted: %w: %w", models.ErrConflict, err)
		}
		return err
	}
	return nil
}

// Close closes the MongoDB connection.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func isWriteConflict(err error) bool {
	var se mongo.ServerError
	if errors.As(err, &se) {
		return se.HasErrorCode(112) || se.HasErrorLabel("TransientTransactionError")
	}
	return false
}
