package repository

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/veridoc/veridoc/internal/document"
)

// MongoRepository implements Repository on two collections. A unique
// compound index on (tenantId, number, version, production) backs the
// version-uniqueness invariant; status updates carry the loaded rev in the
// filter so a stale writer matches nothing and gets a ConflictError.
type MongoRepository struct {
	docs      *mongo.Collection
	approvers *mongo.Collection
	idSeq     atomic.Int64
}

func NewMongoRepository(docs, approvers *mongo.Collection) *MongoRepository {
	ctx := context.Background()
	docs.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "tenantId", Value: 1},
			{Key: "number", Value: 1},
			{Key: "version", Value: 1},
			{Key: "production", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	approvers.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "documentId", Value: 1}, {Key: "userId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return &MongoRepository{docs: docs, approvers: approvers}
}

func (r *MongoRepository) newID(prefix string) string {
	return fmt.Sprintf("%s_%s_%d", prefix, time.Now().UTC().Format("20060102T150405.000000000"), r.idSeq.Add(1))
}

func (r *MongoRepository) Insert(ctx context.Context, d *document.Document) error {
	if d.ID == "" {
		d.ID = r.newID("doc")
	}
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	d.Rev = 1
	if _, err := r.docs.InsertOne(ctx, d); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return &document.ConflictError{Reason: fmt.Sprintf("%s %s already exists", d.Number, d.Version)}
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *MongoRepository) Get(ctx context.Context, tenantID, id string) (*document.Document, error) {
	var d document.Document
	err := r.docs.FindOne(ctx, bson.M{"_id": id, "tenantId": tenantID}).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &document.NotFoundError{Entity: "document", ID: id}
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &d, nil
}

func (r *MongoRepository) Update(ctx context.Context, d *document.Document) error {
	loaded := d.Rev
	d.Rev = loaded + 1
	d.UpdatedAt = time.Now().UTC()
	res, err := r.docs.ReplaceOne(ctx,
		bson.M{"_id": d.ID, "tenantId": d.TenantID, "rev": loaded}, d)
	if err != nil {
		d.Rev = loaded
		return fmt.Errorf("update document: %w", err)
	}
	if res.MatchedCount == 0 {
		d.Rev = loaded
		// distinguish "gone" from "stale"
		if _, gerr := r.Get(ctx, d.TenantID, d.ID); gerr != nil {
			return gerr
		}
		return &document.ConflictError{Reason: fmt.Sprintf("document %s was modified concurrently", d.ID)}
	}
	return nil
}

func (r *MongoRepository) Delete(ctx context.Context, tenantID, id string) error {
	res, err := r.docs.DeleteOne(ctx, bson.M{"_id": id, "tenantId": tenantID})
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if res.DeletedCount == 0 {
		return &document.NotFoundError{Entity: "document", ID: id}
	}
	return nil
}

func (r *MongoRepository) Lineage(ctx context.Context, tenantID, number string) ([]*document.Document, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cur, err := r.docs.Find(ctx, bson.M{"tenantId": tenantID, "number": number}, opts)
	if err != nil {
		return nil, fmt.Errorf("lineage: %w", err)
	}
	defer cur.Close(ctx)
	out := []*document.Document{}
	for cur.Next(ctx) {
		var d document.Document
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, cur.Err()
}

func (r *MongoRepository) FindVersion(ctx context.Context, tenantID, number, version string, production bool) (*document.Document, error) {
	var d document.Document
	err := r.docs.FindOne(ctx, bson.M{
		"tenantId": tenantID, "number": number, "version": version, "production": production,
	}).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &document.NotFoundError{Entity: "document", ID: number + " " + version}
		}
		return nil, fmt.Errorf("find version: %w", err)
	}
	return &d, nil
}

func (r *MongoRepository) InsertApprover(ctx context.Context, a *document.Approver) error {
	if a.ID == "" {
		a.ID = r.newID("apr")
	}
	if _, err := r.approvers.InsertOne(ctx, a); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return &document.ConflictError{Reason: fmt.Sprintf("user %s is already an approver", a.UserID)}
		}
		return fmt.Errorf("insert approver: %w", err)
	}
	return nil
}

func (r *MongoRepository) Approvers(ctx context.Context, documentID string) ([]*document.Approver, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := r.approvers.Find(ctx, bson.M{"documentId": documentID}, opts)
	if err != nil {
		return nil, fmt.Errorf("approvers: %w", err)
	}
	defer cur.Close(ctx)
	out := []*document.Approver{}
	for cur.Next(ctx) {
		var a document.Approver
		if err := cur.Decode(&a); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, cur.Err()
}

func (r *MongoRepository) GetApprover(ctx context.Context, documentID, approverID string) (*document.Approver, error) {
	var a document.Approver
	err := r.approvers.FindOne(ctx, bson.M{"_id": approverID, "documentId": documentID}).Decode(&a)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &document.NotFoundError{Entity: "approver", ID: approverID}
		}
		return nil, fmt.Errorf("get approver: %w", err)
	}
	return &a, nil
}

func (r *MongoRepository) Decide(ctx context.Context, documentID, approverID string, status document.ApproverStatus, comments string, at time.Time) error {
	res, err := r.approvers.UpdateOne(ctx,
		bson.M{"_id": approverID, "documentId": documentID, "status": document.ApproverPending},
		bson.M{"$set": bson.M{"status": status, "comments": comments, "actionDate": at}})
	if err != nil {
		return fmt.Errorf("decide: %w", err)
	}
	if res.MatchedCount == 0 {
		a, gerr := r.GetApprover(ctx, documentID, approverID)
		if gerr != nil {
			return gerr
		}
		return &document.AlreadyDecidedError{ApproverID: approverID, Status: a.Status}
	}
	return nil
}

func (r *MongoRepository) ResetApprovers(ctx context.Context, documentID string) error {
	_, err := r.approvers.UpdateMany(ctx,
		bson.M{"documentId": documentID},
		bson.M{"$set": bson.M{"status": document.ApproverPending},
			"$unset": bson.M{"comments": "", "actionDate": ""}})
	if err != nil {
		return fmt.Errorf("reset approvers: %w", err)
	}
	return nil
}

func (r *MongoRepository) DeleteApprover(ctx context.Context, documentID, approverID string) error {
	res, err := r.approvers.DeleteOne(ctx, bson.M{"_id": approverID, "documentId": documentID})
	if err != nil {
		return fmt.Errorf("delete approver: %w", err)
	}
	if res.DeletedCount == 0 {
		return &document.NotFoundError{Entity: "approver", ID: approverID}
	}
	return nil
}

func (r *MongoRepository) DeleteApproversFor(ctx context.Context, documentID string) error {
	if _, err := r.approvers.DeleteMany(ctx, bson.M{"documentId": documentID}); err != nil {
		return fmt.Errorf("delete approvers: %w", err)
	}
	return nil
}
