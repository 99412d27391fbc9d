package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/veridoc/veridoc/internal/document"
)

func draft(number, version string) *document.Document {
	return &document.Document{
		TenantID: "t1",
		TypeID:   "dt_1",
		Number:   number,
		Version:  version,
		Status:   document.StatusDraft,
		Title:    "test",
	}
}

func TestInsertRejectsDuplicateVersion(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, r.Insert(ctx, draft("WI-00001", "vA")))

	err := r.Insert(ctx, draft("WI-00001", "vA"))
	var ce *document.ConflictError
	require.ErrorAs(t, err, &ce)

	// same version label for the production class is a different row
	prod := draft("WI-00001", "vA")
	prod.Production = true
	require.NoError(t, r.Insert(ctx, prod))
}

func TestUpdateIsRevGuarded(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()
	d := draft("WI-00001", "vA")
	require.NoError(t, r.Insert(ctx, d))

	first, err := r.Get(ctx, "t1", d.ID)
	require.NoError(t, err)
	second, err := r.Get(ctx, "t1", d.ID)
	require.NoError(t, err)

	first.Status = document.StatusInApproval
	require.NoError(t, r.Update(ctx, first))

	// second still holds the old rev; its write must lose
	second.Status = document.StatusReleased
	err = r.Update(ctx, second)
	var ce *document.ConflictError
	require.ErrorAs(t, err, &ce)

	got, err := r.Get(ctx, "t1", d.ID)
	require.NoError(t, err)
	require.Equal(t, document.StatusInApproval, got.Status)
}

func TestLineageOrderedByCreation(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	a := draft("WI-00001", "vA")
	a.CreatedAt = time.Now().UTC().Add(-2 * time.Hour)
	b := draft("WI-00001", "vB")
	b.CreatedAt = time.Now().UTC().Add(-1 * time.Hour)
	require.NoError(t, r.Insert(ctx, b))
	require.NoError(t, r.Insert(ctx, a))
	require.NoError(t, r.Insert(ctx, draft("WI-00002", "vA")))

	lin, err := r.Lineage(ctx, "t1", "WI-00001")
	require.NoError(t, err)
	require.Len(t, lin, 2)
	require.Equal(t, "vA", lin[0].Version)
	require.Equal(t, "vB", lin[1].Version)
}

func TestDecideIsPendingOnly(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()
	d := draft("WI-00001", "vA")
	require.NoError(t, r.Insert(ctx, d))

	a := &document.Approver{DocumentID: d.ID, UserID: "u1", UserEmail: "u1@x", Status: document.ApproverPending}
	require.NoError(t, r.InsertApprover(ctx, a))

	now := time.Now().UTC()
	require.NoError(t, r.Decide(ctx, d.ID, a.ID, document.ApproverApproved, "", now))

	err := r.Decide(ctx, d.ID, a.ID, document.ApproverApproved, "", now)
	var ad *document.AlreadyDecidedError
	require.ErrorAs(t, err, &ad)
	require.Equal(t, document.ApproverApproved, ad.Status)
}

func TestResetApproversClearsDecisions(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()
	d := draft("WI-00001", "vA")
	require.NoError(t, r.Insert(ctx, d))

	now := time.Now().UTC()
	a1 := &document.Approver{DocumentID: d.ID, UserID: "u1", Status: document.ApproverPending}
	a2 := &document.Approver{DocumentID: d.ID, UserID: "u2", Status: document.ApproverPending}
	require.NoError(t, r.InsertApprover(ctx, a1))
	require.NoError(t, r.InsertApprover(ctx, a2))
	require.NoError(t, r.Decide(ctx, d.ID, a1.ID, document.ApproverRejected, "needs work", now))

	require.NoError(t, r.ResetApprovers(ctx, d.ID))

	list, err := r.Approvers(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, a := range list {
		require.Equal(t, document.ApproverPending, a.Status)
		require.Empty(t, a.Comments)
		require.Nil(t, a.ActionDate)
	}
}

func TestDuplicateApproverRejected(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()
	d := draft("WI-00001", "vA")
	require.NoError(t, r.Insert(ctx, d))

	require.NoError(t, r.InsertApprover(ctx, &document.Approver{DocumentID: d.ID, UserID: "u1", Status: document.ApproverPending}))
	err := r.InsertApprover(ctx, &document.Approver{DocumentID: d.ID, UserID: "u1", Status: document.ApproverPending})
	var ce *document.ConflictError
	require.ErrorAs(t, err, &ce)
}
