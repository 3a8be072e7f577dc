package mongodb

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/dairy-dwr/internal/domain/models"
)

type counter struct {
	ID  string `bson:"_id"`
	Seq int64  `bson:"seq"`
}

// counterID names the sequence an event is numbered in. Events of one receipt
// share a counter; other events are numbered per entity. Writers holding
// different receipt locks never touch the same counter document.
func counterID(e models.AuditEvent) string {
	if e.ReceiptID != "" {
		return "audit:dwr:" + e.ReceiptID
	}
	return "audit:" + string(e.EntityType) + ":" + e.EntityID
}

// auditSort orders a receipt trail by its own sequence. Across streams the
// sequences are unrelated, so wider queries order by time first.
func auditSort(f models.AuditFilter) bson.D {
	if f.ReceiptID != "" {
		return bson.D{{Key: "seq", Value: -1}}
	}
	return bson.D{{Key: "timestamp", Value: -1}, {Key: "seq", Value: -1}}
}

// nextSeq increments the event's counter in the caller's transaction, so a
// rolled back operation does not consume a sequence number.
func (s *Store) nextSeq(ctx context.Context, e models.AuditEvent) (int64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var c counter
	err := s.coll(collCounters).
		FindOneAndUpdate(ctx, bson.M{"_id": counterID(e)}, bson.M{"$inc": bson.M{"seq": 1}}, opts).
		Decode(&c)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate audit seq: %w", err)
	}
	return c.Seq, nil
}

// AppendAudit writes an audit event inside the caller's transaction.
func (s *Store) AppendAudit(ctx context.Context, e models.AuditEvent) error {
	return s.RunInTx(ctx, func(ctx context.Context) error {
		seq, err := s.nextSeq(ctx, e)
		if err != nil {
			return err
		}
		e.Seq = seq
		return insertOne(ctx, s.coll(collAudit), e, "audit event "+e.ID)
	})
}

// ListAudit returns events newest first. Free-text search runs over the
// decoded events since details have no fixed shape.
func (s *Store) ListAudit(ctx context.Context, f models.AuditFilter) ([]models.AuditEvent, error) {
	filter := bson.M{}
	if f.EventType != "" {
		filter["event_type"] = f.EventType
	}
	if f.EntityType != "" {
		filter["entity_type"] = f.EntityType
	}
	if f.EntityID != "" {
		filter["entity_id"] = f.EntityID
	}
	if f.ReceiptID != "" {
		filter["receipt_id"] = f.ReceiptID
	}

	search := strings.ToLower(strings.TrimSpace(f.Search))
	opts := options.Find().SetSort(auditSort(f))
	if search == "" && f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}

	cur, err := s.coll(collAudit).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer cur.Close(ctx)

	var out []models.AuditEvent
	for cur.Next(ctx) {
		var e models.AuditEvent
		if err := cur.Decode(&e); err != nil {
			return nil, fmt.Errorf("failed to decode audit event: %w", err)
		}
		if search != "" && !e.Matches(search) {
			continue
		}
		out = append(out, e)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, cur.Err()
}
