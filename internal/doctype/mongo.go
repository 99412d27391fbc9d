package doctype

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/veridoc/veridoc/internal/document"
)

// MongoRepository implements Repository on a Mongo collection. Allocation
// uses a single FindOneAndUpdate with $inc so the read-and-increment cannot
// interleave with another caller's.
type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	idx := mongo.IndexModel{
		Keys:    bson.D{{Key: "tenantId", Value: 1}, {Key: "prefix", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	col.Indexes().CreateOne(context.Background(), idx)
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Create(ctx context.Context, dt *DocumentType) error {
	now := time.Now().UTC()
	dt.CreatedAt = now
	dt.UpdatedAt = now
	if dt.ID == "" {
		dt.ID = primitiveID()
	}
	if _, err := r.col.InsertOne(ctx, dt); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return &document.ConflictError{Reason: fmt.Sprintf("prefix %s already in use", dt.Prefix)}
		}
		return fmt.Errorf("insert document type: %w", err)
	}
	return nil
}

func (r *MongoRepository) Get(ctx context.Context, tenantID, id string) (*DocumentType, error) {
	var dt DocumentType
	err := r.col.FindOne(ctx, bson.M{"_id": id, "tenantId": tenantID}).Decode(&dt)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &document.NotFoundError{Entity: "document type", ID: id}
		}
		return nil, fmt.Errorf("get document type: %w", err)
	}
	return &dt, nil
}

func (r *MongoRepository) List(ctx context.Context, tenantID string) ([]*DocumentType, error) {
	cur, err := r.col.Find(ctx, bson.M{"tenantId": tenantID})
	if err != nil {
		return nil, fmt.Errorf("list document types: %w", err)
	}
	defer cur.Close(ctx)
	out := []*DocumentType{}
	for cur.Next(ctx) {
		var dt DocumentType
		if err := cur.Decode(&dt); err != nil {
			return nil, err
		}
		out = append(out, &dt)
	}
	return out, cur.Err()
}

func (r *MongoRepository) SetActive(ctx context.Context, tenantID, id string, active bool) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "tenantId": tenantID},
		bson.M{"$set": bson.M{"active": active, "updatedAt": time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	if res.MatchedCount == 0 {
		return &document.NotFoundError{Entity: "document type", ID: id}
	}
	return nil
}

func (r *MongoRepository) Allocate(ctx context.Context, tenantID, id string) (*DocumentType, int64, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)
	var dt DocumentType
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "tenantId": tenantID},
		bson.M{"$inc": bson.M{"nextNumber": 1}, "$set": bson.M{"updatedAt": time.Now().UTC()}},
		opts).Decode(&dt)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, 0, &document.NotFoundError{Entity: "document type", ID: id}
		}
		return nil, 0, fmt.Errorf("allocate number: %w", err)
	}
	return &dt, dt.NextNumber, nil
}

func primitiveID() string {
	return "dt_" + time.Now().UTC().Format("20060102T150405.000000000")
}
