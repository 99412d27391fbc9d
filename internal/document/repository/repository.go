package repository

import (
	"context"
	"time"

	"github.com/veridoc/veridoc/internal/document"
)

// Repository persists document version rows and their approver rows.
//
// Concurrency contract: Insert fails with ConflictError when a row with the
// same (tenant, number, version, production) already exists. Update is an
// optimistic write — it matches the Rev the caller loaded and bumps it, or
// fails with ConflictError so the caller can re-read and retry. Decide is a
// pending-only compare-and-set on the approver row; it is the serialization
// point for concurrent decisions.
type Repository interface {
	Insert(ctx context.Context, d *document.Document) error
	Get(ctx context.Context, tenantID, id string) (*document.Document, error)
	Update(ctx context.Context, d *document.Document) error
	Delete(ctx context.Context, tenantID, id string) error
	// Lineage returns every row sharing the number within the tenant,
	// regardless of class, ordered by creation time.
	Lineage(ctx context.Context, tenantID, number string) ([]*document.Document, error)
	FindVersion(ctx context.Context, tenantID, number, version string, production bool) (*document.Document, error)

	InsertApprover(ctx context.Context, a *document.Approver) error
	Approvers(ctx context.Context, documentID string) ([]*document.Approver, error)
	GetApprover(ctx context.Context, documentID, approverID string) (*document.Approver, error)
	// Decide flips one approver row from pending to the given status. A row
	// that is no longer pending yields AlreadyDecidedError.
	Decide(ctx context.Context, documentID, approverID string, status document.ApproverStatus, comments string, at time.Time) error
	// ResetApprovers returns every approver row of the document to pending
	// with no comments and no action date.
	ResetApprovers(ctx context.Context, documentID string) error
	DeleteApprover(ctx context.Context, documentID, approverID string) error
	DeleteApproversFor(ctx context.Context, documentID string) error
}
