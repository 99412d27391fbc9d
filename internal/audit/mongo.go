package audit

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRecorder appends entries to a capped-growth audit collection. Reads
// decode details into Freeform maps; the typed variants exist for writers.
type MongoRecorder struct {
	col *mongo.Collection
	seq atomic.Int64
}

func NewMongoRecorder(col *mongo.Collection) *MongoRecorder {
	col.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys: bson.D{{Key: "documentId", Value: 1}, {Key: "at", Value: 1}},
	})
	return &MongoRecorder{col: col}
}

func (r *MongoRecorder) Record(ctx context.Context, e Entry) error {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	if e.ID == "" {
		e.ID = fmt.Sprintf("aud_%s_%d", e.At.Format("20060102T150405.000000000"), r.seq.Add(1))
	}
	if _, err := r.col.InsertOne(ctx, e); err != nil {
		return fmt.Errorf("record audit: %w", err)
	}
	return nil
}

func (r *MongoRecorder) ByDocument(ctx context.Context, documentID string) ([]Entry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "at", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"documentId": documentID}, opts)
	if err != nil {
		return nil, fmt.Errorf("audit by document: %w", err)
	}
	defer cur.Close(ctx)

	out := []Entry{}
	for cur.Next(ctx) {
		var raw struct {
			ID         string    `bson:"_id"`
			DocumentID string    `bson:"documentId"`
			Action     string    `bson:"action"`
			Actor      string    `bson:"actor"`
			At         time.Time `bson:"at"`
			Details    bson.M    `bson:"details"`
		}
		if err := cur.Decode(&raw); err != nil {
			return nil, err
		}
		e := Entry{ID: raw.ID, DocumentID: raw.DocumentID, Action: raw.Action, Actor: raw.Actor, At: raw.At}
		if raw.Details != nil {
			e.Details = Freeform(raw.Details)
		}
		out = append(out, e)
	}
	return out, cur.Err()
}
