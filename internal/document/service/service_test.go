package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridoc/veridoc/internal/audit"
	"github.com/veridoc/veridoc/internal/doctype"
	"github.com/veridoc/veridoc/internal/document"
	"github.com/veridoc/veridoc/internal/document/repository"
	"github.com/veridoc/veridoc/internal/notify"
)

var (
	alice = document.Actor{UserID: "u_alice", Email: "alice@example.com", TenantID: "t1"}
	bob   = document.Actor{UserID: "u_bob", Email: "bob@example.com", TenantID: "t1"}
	carol = document.Actor{UserID: "u_carol", Email: "carol@example.com", TenantID: "t1"}
	dave  = document.Actor{UserID: "u_dave", Email: "dave@example.com", TenantID: "t1"}
	admin = document.Actor{UserID: "u_admin", TenantID: "t1", Admin: true}
)

type fixture struct {
	svc      *Service
	types    *doctype.Service
	audit    *audit.MemoryRecorder
	notifier *notify.MemoryNotifier
	typeID   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	types := doctype.NewService(doctype.NewMemoryRepository())
	dt, err := types.Create(context.Background(), alice, "WI", "Work Instructions", "")
	require.NoError(t, err)
	rec := audit.NewMemoryRecorder()
	n := notify.NewMemoryNotifier()
	return &fixture{
		svc:      NewService(repository.NewMemoryRepository(), types, rec, n),
		types:    types,
		audit:    rec,
		notifier: n,
		typeID:   dt.ID,
	}
}

func (f *fixture) createDraft(t *testing.T) *document.Document {
	t.Helper()
	d, err := f.svc.Create(context.Background(), alice, CreateInput{TypeID: f.typeID, Title: "Assembly WI"})
	require.NoError(t, err)
	return d
}

// createReleased walks a fresh draft through direct release.
func (f *fixture) createReleased(t *testing.T) *document.Document {
	t.Helper()
	d := f.createDraft(t)
	released, err := f.svc.ReleaseDirect(context.Background(), alice, d.ID, false)
	require.NoError(t, err)
	return released
}

func (f *fixture) addApprovers(t *testing.T, docID string, users ...document.Actor) []*document.Approver {
	t.Helper()
	out := []*document.Approver{}
	for _, u := range users {
		a, err := f.svc.AddApprover(context.Background(), alice, docID, u.UserID, u.Email)
		require.NoError(t, err)
		out = append(out, a)
	}
	return out
}

func TestCreateOpensLineageAtFirstVersion(t *testing.T) {
	f := newFixture(t)
	d := f.createDraft(t)

	require.Equal(t, "WI-00001", d.Number)
	require.Equal(t, "vA", d.Version)
	require.Equal(t, document.StatusDraft, d.Status)
	require.False(t, d.Production)
	require.Equal(t, alice.UserID, d.CreatedBy)

	d2, err := f.svc.Create(context.Background(), alice, CreateInput{TypeID: f.typeID, Title: "Another"})
	require.NoError(t, err)
	require.Equal(t, "WI-00002", d2.Number)
}

func TestCreateProductionDirectlyIsRejected(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), alice, CreateInput{TypeID: f.typeID, Title: "x", Production: true})
	var ve *document.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestDeletedDraftDoesNotReturnItsNumber(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.createDraft(t)
	require.Equal(t, "WI-00001", d.Number)

	require.NoError(t, f.svc.Delete(ctx, alice, d.ID))

	d2, err := f.svc.Create(ctx, alice, CreateInput{TypeID: f.typeID, Title: "next"})
	require.NoError(t, err)
	require.Equal(t, "WI-00002", d2.Number)
}

func TestSubmitRequiresApprover(t *testing.T) {
	f := newFixture(t)
	d := f.createDraft(t)
	err := f.svc.Submit(context.Background(), alice, d.ID)
	var ve *document.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestSubmitIsCreatorOnly(t *testing.T) {
	f := newFixture(t)
	d := f.createDraft(t)
	f.addApprovers(t, d.ID, bob)
	err := f.svc.Submit(context.Background(), bob, d.ID)
	var ae *document.AuthorizationError
	require.ErrorAs(t, err, &ae)
}

func TestDirectReleaseOfApproverlessDraft(t *testing.T) {
	f := newFixture(t)
	d := f.createDraft(t)

	released, err := f.svc.ReleaseDirect(context.Background(), alice, d.ID, false)
	require.NoError(t, err)
	require.Equal(t, document.StatusReleased, released.Status)
	require.NotNil(t, released.ReleasedAt)
	require.Equal(t, alice.UserID, released.ReleasedBy)
}

func TestDirectReleaseWithApproversNeedsBypass(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.createDraft(t)
	f.addApprovers(t, d.ID, bob)

	_, err := f.svc.ReleaseDirect(ctx, alice, d.ID, false)
	var ve *document.ValidationError
	require.ErrorAs(t, err, &ve)

	// prototypes may bypass explicitly
	released, err := f.svc.ReleaseDirect(ctx, alice, d.ID, true)
	require.NoError(t, err)
	require.Equal(t, document.StatusReleased, released.Status)
}

func TestConsensusIsStrictUnanimity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.createDraft(t)
	approvers := f.addApprovers(t, d.ID, bob, carol, dave)
	require.NoError(t, f.svc.Submit(ctx, alice, d.ID))

	all, err := f.svc.RecordDecision(ctx, bob, d.ID, approvers[0].ID, document.DecisionApproved, "")
	require.NoError(t, err)
	require.False(t, all)

	all, err = f.svc.RecordDecision(ctx, carol, d.ID, approvers[1].ID, document.DecisionApproved, "")
	require.NoError(t, err)
	require.False(t, all)

	got, _, err := f.svc.Get(ctx, alice, d.ID)
	require.NoError(t, err)
	require.Equal(t, document.StatusInApproval, got.Status)

	all, err = f.svc.RecordDecision(ctx, dave, d.ID, approvers[2].ID, document.DecisionApproved, "")
	require.NoError(t, err)
	require.True(t, all)

	got, _, err = f.svc.Get(ctx, alice, d.ID)
	require.NoError(t, err)
	require.Equal(t, document.StatusReleased, got.Status)
	require.NotNil(t, got.ReleasedAt)
	require.Equal(t, dave.UserID, got.ReleasedBy)
}

func TestSecondDecisionFailsAndChangesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.createDraft(t)
	approvers := f.addApprovers(t, d.ID, bob, carol)
	require.NoError(t, f.svc.Submit(ctx, alice, d.ID))

	_, err := f.svc.RecordDecision(ctx, bob, d.ID, approvers[0].ID, document.DecisionApproved, "")
	require.NoError(t, err)

	_, err = f.svc.RecordDecision(ctx, bob, d.ID, approvers[0].ID, document.DecisionApproved, "")
	var ad *document.AlreadyDecidedError
	require.ErrorAs(t, err, &ad)

	got, _, err := f.svc.Get(ctx, alice, d.ID)
	require.NoError(t, err)
	require.Equal(t, document.StatusInApproval, got.Status)
}

func TestDecisionRequiresAssignedApprover(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.createDraft(t)
	approvers := f.addApprovers(t, d.ID, bob)
	require.NoError(t, f.svc.Submit(ctx, alice, d.ID))

	// carol tries to vote on bob's row
	_, err := f.svc.RecordDecision(ctx, carol, d.ID, approvers[0].ID, document.DecisionApproved, "")
	var ae *document.AuthorizationError
	require.ErrorAs(t, err, &ae)
}

func TestDecisionOutsideApprovalIsInvalidState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.createDraft(t)
	approvers := f.addApprovers(t, d.ID, bob)

	_, err := f.svc.RecordDecision(ctx, bob, d.ID, approvers[0].ID, document.DecisionApproved, "")
	var ise *document.InvalidStateError
	require.ErrorAs(t, err, &ise)
	require.Equal(t, document.StatusDraft, ise.Current)
}

func TestRejectionRevertsAndResetsEveryApprover(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.createDraft(t)
	approvers := f.addApprovers(t, d.ID, bob, carol, dave)
	require.NoError(t, f.svc.Submit(ctx, alice, d.ID))

	_, err := f.svc.RecordDecision(ctx, bob, d.ID, approvers[0].ID, document.DecisionApproved, "")
	require.NoError(t, err)
	_, err = f.svc.RecordDecision(ctx, carol, d.ID, approvers[1].ID, document.DecisionApproved, "")
	require.NoError(t, err)

	all, err := f.svc.RecordDecision(ctx, dave, d.ID, approvers[2].ID, document.DecisionRejected, "missing torque spec")
	require.NoError(t, err)
	require.False(t, all)

	got, rows, err := f.svc.Get(ctx, alice, d.ID)
	require.NoError(t, err)
	require.Equal(t, document.StatusDraft, got.Status)
	require.Len(t, rows, 3)
	for _, a := range rows {
		assert.Equal(t, document.ApproverPending, a.Status)
		assert.Empty(t, a.Comments)
		assert.Nil(t, a.ActionDate)
	}
}

func TestRejectionRequiresComments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.createDraft(t)
	approvers := f.addApprovers(t, d.ID, bob)
	require.NoError(t, f.svc.Submit(ctx, alice, d.ID))

	_, err := f.svc.RecordDecision(ctx, bob, d.ID, approvers[0].ID, document.DecisionRejected, "")
	var ve *document.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestRejectionSurvivesInAuditLog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.createDraft(t)
	approvers := f.addApprovers(t, d.ID, bob)
	require.NoError(t, f.svc.Submit(ctx, alice, d.ID))

	_, err := f.svc.RecordDecision(ctx, bob, d.ID, approvers[0].ID, document.DecisionRejected, "wrong template")
	require.NoError(t, err)

	// live row shows pending again, the log keeps the verdict
	trail, err := f.svc.AuditTrail(ctx, alice, d.ID)
	require.NoError(t, err)
	var found bool
	for _, e := range trail {
		if e.Action == audit.ActionDecision {
			det, ok := e.Details.(audit.DecisionDetails)
			require.True(t, ok)
			require.Equal(t, string(document.DecisionRejected), det.Decision)
			require.Equal(t, "wrong template", det.Comments)
			found = true
		}
	}
	require.True(t, found)
}

func TestResubmissionStartsCleanAfterPartialApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.createDraft(t)
	approvers := f.addApprovers(t, d.ID, bob, carol)
	require.NoError(t, f.svc.Submit(ctx, alice, d.ID))

	_, err := f.svc.RecordDecision(ctx, bob, d.ID, approvers[0].ID, document.DecisionApproved, "")
	require.NoError(t, err)
	_, err = f.svc.RecordDecision(ctx, carol, d.ID, approvers[1].ID, document.DecisionRejected, "redo section 2")
	require.NoError(t, err)

	// resubmit: nobody's earlier approval carries over
	require.NoError(t, f.svc.Submit(ctx, alice, d.ID))
	_, rows, err := f.svc.Get(ctx, alice, d.ID)
	require.NoError(t, err)
	for _, a := range rows {
		require.Equal(t, document.ApproverPending, a.Status)
	}

	// bob must approve again before consensus can complete
	all, err := f.svc.RecordDecision(ctx, carol, d.ID, approvers[1].ID, document.DecisionApproved, "")
	require.NoError(t, err)
	require.False(t, all)
	all, err = f.svc.RecordDecision(ctx, bob, d.ID, approvers[0].ID, document.DecisionApproved, "")
	require.NoError(t, err)
	require.True(t, all)
}

func TestWithdrawReturnsToDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.createDraft(t)
	f.addApprovers(t, d.ID, bob)
	require.NoError(t, f.svc.Submit(ctx, alice, d.ID))

	err := f.svc.Withdraw(ctx, bob, d.ID)
	var ae *document.AuthorizationError
	require.ErrorAs(t, err, &ae)

	require.NoError(t, f.svc.Withdraw(ctx, alice, d.ID))
	got, _, err := f.svc.Get(ctx, alice, d.ID)
	require.NoError(t, err)
	require.Equal(t, document.StatusDraft, got.Status)
}

func TestNewVersionRequiresReleasedSource(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.createDraft(t)

	_, err := f.svc.NewVersion(ctx, alice, d.ID)
	var ise *document.InvalidStateError
	require.ErrorAs(t, err, &ise)
}

func TestNewVersionSucceedsReleasedSource(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	released := f.createReleased(t)

	next, err := f.svc.NewVersion(ctx, bob, released.ID)
	require.NoError(t, err)
	require.Equal(t, released.Number, next.Number)
	require.Equal(t, "vB", next.Version)
	require.Equal(t, document.StatusDraft, next.Status)
	require.Equal(t, bob.UserID, next.CreatedBy)
	require.Equal(t, released.Title, next.Title)

	// the still-open vB blocks another new version
	_, err = f.svc.NewVersion(ctx, alice, released.ID)
	var ce *document.ConflictError
	require.ErrorAs(t, err, &ce)
}

func TestReleaseObsoletesExactPredecessor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	vA := f.createReleased(t)

	vB, err := f.svc.NewVersion(ctx, alice, vA.ID)
	require.NoError(t, err)
	_, err = f.svc.ReleaseDirect(ctx, alice, vB.ID, false)
	require.NoError(t, err)

	gotA, _, err := f.svc.Get(ctx, alice, vA.ID)
	require.NoError(t, err)
	require.Equal(t, document.StatusObsolete, gotA.Status)
	require.Equal(t, "superseded", gotA.ObsoleteReason)

	gotB, _, err := f.svc.Get(ctx, alice, vB.ID)
	require.NoError(t, err)
	require.Equal(t, document.StatusReleased, gotB.Status)

	// the demotion is audited against the obsoleted document
	trail, err := f.svc.AuditTrail(ctx, alice, vA.ID)
	require.NoError(t, err)
	var audited bool
	for _, e := range trail {
		if e.Action == audit.ActionObsoleted {
			det := e.Details.(audit.ObsoletedDetails)
			require.Equal(t, vB.Number+" vB", det.SupersededBy)
			audited = true
		}
	}
	require.True(t, audited)
}

func TestFirstVersionReleaseObsoletesNothing(t *testing.T) {
	f := newFixture(t)
	released := f.createReleased(t)
	require.Equal(t, document.StatusReleased, released.Status)

	trail, err := f.svc.AuditTrail(context.Background(), alice, released.ID)
	require.NoError(t, err)
	for _, e := range trail {
		require.NotEqual(t, audit.ActionObsoleted, e.Action)
	}
}

func TestPromotePreconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	draft := f.createDraft(t)
	_, err := f.svc.Promote(ctx, alice, draft.ID)
	var ve *document.ValidationError
	require.ErrorAs(t, err, &ve)

	released := f.createReleased(t)
	_, err = f.svc.Promote(ctx, bob, released.ID)
	var ae *document.AuthorizationError
	require.ErrorAs(t, err, &ae)

	// admins may promote someone else's prototype
	prod, err := f.svc.Promote(ctx, admin, released.ID)
	require.NoError(t, err)

	_, err = f.svc.Promote(ctx, admin, prod.ID)
	require.ErrorAs(t, err, &ve)
}

func TestPromoteSeedsNewProductionLineage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	released := f.createReleased(t)

	prod, err := f.svc.Promote(ctx, alice, released.ID)
	require.NoError(t, err)
	require.True(t, prod.Production)
	require.Equal(t, "v1", prod.Version)
	require.Equal(t, document.StatusDraft, prod.Status)
	require.NotEqual(t, released.Number, prod.Number)
	require.Equal(t, released.Number, prod.PromotedFrom)
	require.Equal(t, released.Title, prod.Title)

	// promotion is audited on both ends
	srcTrail, err := f.svc.AuditTrail(ctx, alice, released.ID)
	require.NoError(t, err)
	var linked bool
	for _, e := range srcTrail {
		if e.Action == audit.ActionPromotionSource {
			linked = true
		}
	}
	require.True(t, linked)
}

func TestProductionV1ReleaseObsoletesLatestReleasedPrototype(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// build a prototype lineage released through vC
	vA := f.createReleased(t)
	vB, err := f.svc.NewVersion(ctx, alice, vA.ID)
	require.NoError(t, err)
	_, err = f.svc.ReleaseDirect(ctx, alice, vB.ID, false)
	require.NoError(t, err)
	vC, err := f.svc.NewVersion(ctx, alice, vB.ID)
	require.NoError(t, err)
	_, err = f.svc.ReleaseDirect(ctx, alice, vC.ID, false)
	require.NoError(t, err)

	prod, err := f.svc.Promote(ctx, alice, vC.ID)
	require.NoError(t, err)
	_, err = f.svc.ReleaseDirect(ctx, alice, prod.ID, false)
	require.NoError(t, err)

	gotC, _, err := f.svc.Get(ctx, alice, vC.ID)
	require.NoError(t, err)
	require.Equal(t, document.StatusObsolete, gotC.Status)
	require.Equal(t, "superseded_by_production", gotC.ObsoleteReason)

	// vB was already obsolete; vA too — only the latest released one changes
	gotP, _, err := f.svc.Get(ctx, alice, prod.ID)
	require.NoError(t, err)
	require.Equal(t, document.StatusReleased, gotP.Status)
}

func TestProductionVersioningIsNumeric(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	released := f.createReleased(t)

	prod, err := f.svc.Promote(ctx, alice, released.ID)
	require.NoError(t, err)
	_, err = f.svc.ReleaseDirect(ctx, alice, prod.ID, false)
	require.NoError(t, err)

	v2, err := f.svc.NewVersion(ctx, alice, prod.ID)
	require.NoError(t, err)
	require.Equal(t, "v2", v2.Version)
	require.True(t, v2.Production)

	_, err = f.svc.ReleaseDirect(ctx, alice, v2.ID, false)
	require.NoError(t, err)

	gotV1, _, err := f.svc.Get(ctx, alice, prod.ID)
	require.NoError(t, err)
	require.Equal(t, document.StatusObsolete, gotV1.Status)
}

func TestEndToEndConsensusScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	d, err := f.svc.Create(ctx, alice, CreateInput{TypeID: f.typeID, Title: "Torque procedure"})
	require.NoError(t, err)
	require.Equal(t, "WI-00001", d.Number)
	require.Equal(t, "vA", d.Version)

	approvers := f.addApprovers(t, d.ID, bob, carol)
	require.NoError(t, f.svc.Submit(ctx, alice, d.ID))

	all, err := f.svc.RecordDecision(ctx, bob, d.ID, approvers[0].ID, document.DecisionApproved, "")
	require.NoError(t, err)
	require.False(t, all)
	all, err = f.svc.RecordDecision(ctx, carol, d.ID, approvers[1].ID, document.DecisionApproved, "")
	require.NoError(t, err)
	require.True(t, all)

	got, _, err := f.svc.Get(ctx, alice, d.ID)
	require.NoError(t, err)
	require.Equal(t, document.StatusReleased, got.Status)
	require.NotNil(t, got.ReleasedAt)

	// next version, then a second createNewVersion from the open draft fails
	vB, err := f.svc.NewVersion(ctx, alice, d.ID)
	require.NoError(t, err)
	require.Equal(t, "vB", vB.Version)
	require.Equal(t, document.StatusDraft, vB.Status)

	_, err = f.svc.NewVersion(ctx, alice, vB.ID)
	var ise *document.InvalidStateError
	require.ErrorAs(t, err, &ise)
}

func TestNotificationsAreEmitted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.createDraft(t)
	approvers := f.addApprovers(t, d.ID, bob)
	require.NoError(t, f.svc.Submit(ctx, alice, d.ID))

	_, err := f.svc.RecordDecision(ctx, bob, d.ID, approvers[0].ID, document.DecisionApproved, "")
	require.NoError(t, err)

	events := f.notifier.Events()
	require.Len(t, events, 2)
	require.Equal(t, notify.EventSubmitted, events[0].Type)
	require.Equal(t, []string{bob.Email}, events[0].Recipients)
	require.Equal(t, notify.EventReleased, events[1].Type)
	require.Equal(t, []string{alice.UserID}, events[1].Recipients)
}

func TestEditRulesAndTenantIsolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.createDraft(t)

	title := "Updated title"
	_, err := f.svc.UpdateDraft(ctx, bob, d.ID, UpdateInput{Title: &title})
	var ae *document.AuthorizationError
	require.ErrorAs(t, err, &ae)

	got, err := f.svc.UpdateDraft(ctx, alice, d.ID, UpdateInput{Title: &title})
	require.NoError(t, err)
	require.Equal(t, title, got.Title)

	released := f.createReleased(t)
	_, err = f.svc.UpdateDraft(ctx, alice, released.ID, UpdateInput{Title: &title})
	var ise *document.InvalidStateError
	require.ErrorAs(t, err, &ise)

	// another tenant cannot see the document at all
	mallory := document.Actor{UserID: "u_mallory", TenantID: "t2"}
	_, _, err = f.svc.Get(ctx, mallory, d.ID)
	var nf *document.NotFoundError
	require.ErrorAs(t, err, &nf)
}
