package service

import (
	"context"
	"time"

	"github.com/veridoc/veridoc/internal/audit"
	"github.com/veridoc/veridoc/internal/doctype"
	"github.com/veridoc/veridoc/internal/document"
	"github.com/veridoc/veridoc/internal/document/repository"
	"github.com/veridoc/veridoc/internal/notify"
	"github.com/veridoc/veridoc/internal/storage"
	"github.com/veridoc/veridoc/pkg/logger"
	"github.com/veridoc/veridoc/pkg/metrics"
)

// Service is the document-control engine: numbering, versioning, the
// approval workflow and the obsolescence pass. Handlers call it; it calls
// persistence, the audit recorder and the notifier. Audit and notify
// failures are logged and swallowed — they never fail a committed
// transition.
type Service struct {
	repo     repository.Repository
	types    *doctype.Service
	audit    audit.Recorder
	notifier notify.Notifier

	// optional; wired by ConfigureAttachments
	store   *storage.AttachmentStore
	scanner storage.Scanner
}

func NewService(repo repository.Repository, types *doctype.Service, rec audit.Recorder, notifier notify.Notifier) *Service {
	if rec == nil {
		rec = audit.NewMemoryRecorder()
	}
	if notifier == nil {
		notifier = notify.NopNotifier{}
	}
	return &Service{repo: repo, types: types, audit: rec, notifier: notifier}
}

// CreateInput is the payload for a brand-new document lineage.
type CreateInput struct {
	TypeID      string
	Title       string
	Description string
	ProjectCode string
	Production  bool
}

// Create allocates the next number for the type and opens a new lineage at
// its first version, in Draft. Direct creation is prototype-only:
// production lineages originate from promotion.
func (s *Service) Create(ctx context.Context, actor document.Actor, in CreateInput) (*document.Document, error) {
	if in.Title == "" {
		return nil, &document.ValidationError{Field: "title", Reason: "required"}
	}
	if in.Production {
		return nil, &document.ValidationError{Field: "production", Reason: "production lineages are created by promotion, not directly"}
	}
	number, err := s.types.Allocate(ctx, actor, in.TypeID)
	if err != nil {
		return nil, err
	}
	d := &document.Document{
		TenantID:    actor.TenantID,
		TypeID:      in.TypeID,
		Number:      number,
		Version:     document.FirstVersion(false),
		Production:  false,
		Status:      document.StatusDraft,
		Title:       in.Title,
		Description: in.Description,
		ProjectCode: in.ProjectCode,
		CreatedBy:   actor.UserID,
	}
	if err := s.repo.Insert(ctx, d); err != nil {
		return nil, err
	}
	metrics.DocumentsCreated.WithLabelValues("prototype").Inc()
	s.record(ctx, d.ID, audit.ActionCreated, actor, audit.CreatedDetails{
		Number: d.Number, Version: d.Version, TypeID: d.TypeID, Production: false,
	})
	return d, nil
}

// Get returns a document and its approver rows.
func (s *Service) Get(ctx context.Context, actor document.Actor, id string) (*document.Document, []*document.Approver, error) {
	d, err := s.repo.Get(ctx, actor.TenantID, id)
	if err != nil {
		return nil, nil, err
	}
	approvers, err := s.repo.Approvers(ctx, d.ID)
	if err != nil {
		return nil, nil, err
	}
	return d, approvers, nil
}

// Lineage returns every version row sharing the document's number.
func (s *Service) Lineage(ctx context.Context, actor document.Actor, number string) ([]*document.Document, error) {
	return s.repo.Lineage(ctx, actor.TenantID, number)
}

// AuditTrail returns the append-only history for a document.
func (s *Service) AuditTrail(ctx context.Context, actor document.Actor, id string) ([]audit.Entry, error) {
	if _, err := s.repo.Get(ctx, actor.TenantID, id); err != nil {
		return nil, err
	}
	return s.audit.ByDocument(ctx, id)
}

// UpdateInput carries the draft-editable content fields.
type UpdateInput struct {
	Title       *string
	Description *string
	ProjectCode *string
}

// UpdateDraft edits content fields. Drafts only, creator only.
func (s *Service) UpdateDraft(ctx context.Context, actor document.Actor, id string, in UpdateInput) (*document.Document, error) {
	d, err := s.repo.Get(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}
	if d.CreatedBy != actor.UserID {
		return nil, &document.AuthorizationError{UserID: actor.UserID, Action: "edit document"}
	}
	if !document.CanEdit(d.Status) {
		return nil, &document.InvalidStateError{Current: d.Status, Op: "edit"}
	}
	if in.Title != nil {
		if *in.Title == "" {
			return nil, &document.ValidationError{Field: "title", Reason: "required"}
		}
		d.Title = *in.Title
	}
	if in.Description != nil {
		d.Description = *in.Description
	}
	if in.ProjectCode != nil {
		d.ProjectCode = *in.ProjectCode
	}
	if err := s.repo.Update(ctx, d); err != nil {
		return nil, err
	}
	s.record(ctx, d.ID, audit.ActionEdited, actor, nil)
	return d, nil
}

// Delete removes a Draft row and its approvers. The allocated number is not
// returned to the counter; numbers are never reused.
func (s *Service) Delete(ctx context.Context, actor document.Actor, id string) error {
	d, err := s.repo.Get(ctx, actor.TenantID, id)
	if err != nil {
		return err
	}
	if d.CreatedBy != actor.UserID {
		return &document.AuthorizationError{UserID: actor.UserID, Action: "delete document"}
	}
	if !document.CanDelete(d.Status) {
		return &document.InvalidStateError{Current: d.Status, Op: "delete"}
	}
	if err := s.repo.Delete(ctx, actor.TenantID, id); err != nil {
		return err
	}
	if err := s.repo.DeleteApproversFor(ctx, id); err != nil {
		logger.Warnf("delete approvers for %s: %v", id, err)
	}
	s.record(ctx, id, audit.ActionDeleted, actor, audit.Freeform{"number": d.Number, "version": d.Version})
	return nil
}

// AddApprover assigns a reviewer to a Draft document. Creator only.
func (s *Service) AddApprover(ctx context.Context, actor document.Actor, id, userID, userEmail string) (*document.Approver, error) {
	if userID == "" {
		return nil, &document.ValidationError{Field: "userId", Reason: "required"}
	}
	d, err := s.repo.Get(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}
	if d.CreatedBy != actor.UserID {
		return nil, &document.AuthorizationError{UserID: actor.UserID, Action: "add approver"}
	}
	if !document.CanEdit(d.Status) {
		return nil, &document.InvalidStateError{Current: d.Status, Op: "add approver"}
	}
	a := &document.Approver{
		DocumentID: d.ID,
		UserID:     userID,
		UserEmail:  userEmail,
		Status:     document.ApproverPending,
	}
	if err := s.repo.InsertApprover(ctx, a); err != nil {
		return nil, err
	}
	s.record(ctx, d.ID, audit.ActionApproverAdded, actor, audit.Freeform{"userId": userID})
	return a, nil
}

// RemoveApprover detaches a reviewer from a Draft document. Creator only.
func (s *Service) RemoveApprover(ctx context.Context, actor document.Actor, id, approverID string) error {
	d, err := s.repo.Get(ctx, actor.TenantID, id)
	if err != nil {
		return err
	}
	if d.CreatedBy != actor.UserID {
		return &document.AuthorizationError{UserID: actor.UserID, Action: "remove approver"}
	}
	if !document.CanEdit(d.Status) {
		return &document.InvalidStateError{Current: d.Status, Op: "remove approver"}
	}
	if err := s.repo.DeleteApprover(ctx, d.ID, approverID); err != nil {
		return err
	}
	s.record(ctx, d.ID, audit.ActionApproverRemoved, actor, audit.Freeform{"approverId": approverID})
	return nil
}

// Submit moves a Draft with at least one approver into approval. Every
// approver row is reset to a clean pending state first, so resubmission
// after a rejection always starts a full re-review.
func (s *Service) Submit(ctx context.Context, actor document.Actor, id string) error {
	d, err := s.repo.Get(ctx, actor.TenantID, id)
	if err != nil {
		return err
	}
	if d.CreatedBy != actor.UserID {
		return &document.AuthorizationError{UserID: actor.UserID, Action: "submit document"}
	}
	next, err := document.Transition(d.Status, document.EventSubmit)
	if err != nil {
		return err
	}
	approvers, err := s.repo.Approvers(ctx, d.ID)
	if err != nil {
		return err
	}
	if len(approvers) == 0 {
		return &document.ValidationError{Field: "approvers", Reason: "at least one approver is required; use direct release for approver-less documents"}
	}
	if err := s.resetApprovers(ctx, d.ID); err != nil {
		return err
	}
	prev := d.Status
	d.Status = next
	if err := s.repo.Update(ctx, d); err != nil {
		return err
	}
	s.record(ctx, d.ID, audit.ActionSubmitted, actor, audit.StatusChange{From: string(prev), To: string(next)})
	s.send(ctx, notify.Event{
		Type: notify.EventSubmitted, DocumentID: d.ID, Number: d.Number, Version: d.Version,
		Recipients: approverEmails(approvers),
		Payload:    map[string]string{"title": d.Title},
	})
	return nil
}

// Withdraw pulls a document out of approval back to Draft. Creator only.
// Approver rows keep whatever state they had; the next Submit resets them.
func (s *Service) Withdraw(ctx context.Context, actor document.Actor, id string) error {
	d, err := s.repo.Get(ctx, actor.TenantID, id)
	if err != nil {
		return err
	}
	if d.CreatedBy != actor.UserID {
		return &document.AuthorizationError{UserID: actor.UserID, Action: "withdraw document"}
	}
	next, err := document.Transition(d.Status, document.EventWithdraw)
	if err != nil {
		return err
	}
	prev := d.Status
	d.Status = next
	if err := s.repo.Update(ctx, d); err != nil {
		return err
	}
	s.record(ctx, d.ID, audit.ActionWithdrawn, actor, audit.StatusChange{From: string(prev), To: string(next)})
	s.send(ctx, notify.Event{
		Type: notify.EventWithdrawn, DocumentID: d.ID, Number: d.Number, Version: d.Version,
		Recipients: []string{d.CreatedBy},
	})
	return nil
}

// ReleaseDirect releases a Draft without the approval workflow. Allowed
// when the document has no approver rows, or — for prototypes only — when
// the creator explicitly bypasses approval.
func (s *Service) ReleaseDirect(ctx context.Context, actor document.Actor, id string, bypassApproval bool) (*document.Document, error) {
	d, err := s.repo.Get(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}
	if d.CreatedBy != actor.UserID {
		return nil, &document.AuthorizationError{UserID: actor.UserID, Action: "release document"}
	}
	if _, err := document.Transition(d.Status, document.EventRelease); err != nil {
		return nil, err
	}
	approvers, err := s.repo.Approvers(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	if len(approvers) > 0 {
		if d.Production || !bypassApproval {
			return nil, &document.ValidationError{Field: "approvers", Reason: "document has assigned approvers; submit it for approval"}
		}
	}
	if err := s.release(ctx, d, document.EventRelease, actor.UserID, "direct"); err != nil {
		return nil, err
	}
	s.send(ctx, notify.Event{
		Type: notify.EventReleased, DocumentID: d.ID, Number: d.Number, Version: d.Version,
		Recipients: []string{d.CreatedBy},
	})
	return d, nil
}

// NewVersion opens the next version of a lineage from its Released source.
// The new row starts in Draft with the source's content fields; the caller
// becomes its creator.
func (s *Service) NewVersion(ctx context.Context, actor document.Actor, sourceID string) (*document.Document, error) {
	src, err := s.repo.Get(ctx, actor.TenantID, sourceID)
	if err != nil {
		return nil, err
	}
	if src.Status != document.StatusReleased {
		return nil, &document.InvalidStateError{Current: src.Status, Op: "create new version (source must be released)"}
	}
	nextVersion, err := document.NextVersion(src.Version, src.Production)
	if err != nil {
		return nil, err
	}
	// one open (draft / in-approval) row per lineage and class
	lineage, err := s.repo.Lineage(ctx, actor.TenantID, src.Number)
	if err != nil {
		return nil, err
	}
	for _, row := range lineage {
		if row.Production == src.Production &&
			(row.Status == document.StatusDraft || row.Status == document.StatusInApproval) {
			return nil, &document.ConflictError{Reason: "lineage already has an open version " + row.Version}
		}
	}
	d := &document.Document{
		TenantID:     actor.TenantID,
		TypeID:       src.TypeID,
		Number:       src.Number,
		Version:      nextVersion,
		Production:   src.Production,
		Status:       document.StatusDraft,
		Title:        src.Title,
		Description:  src.Description,
		ProjectCode:  src.ProjectCode,
		PromotedFrom: src.PromotedFrom,
		CreatedBy:    actor.UserID,
	}
	if err := s.repo.Insert(ctx, d); err != nil {
		// lost a race with a concurrent NewVersion; the caller retries
		// against a freshly computed version
		return nil, err
	}
	class := "prototype"
	if d.Production {
		class = "production"
	}
	metrics.DocumentsCreated.WithLabelValues(class).Inc()
	s.record(ctx, d.ID, audit.ActionCreated, actor, audit.CreatedDetails{
		Number: d.Number, Version: d.Version, TypeID: d.TypeID, Production: d.Production,
	})
	return d, nil
}

// resetApprovers is the single authoritative "start the review over" rule,
// called from Submit and from the rejection path only.
func (s *Service) resetApprovers(ctx context.Context, documentID string) error {
	return s.repo.ResetApprovers(ctx, documentID)
}

// release commits the transition to Released and runs the obsolescence
// pass. The pass is best-effort cleanup: its failure is logged, never
// propagated.
func (s *Service) release(ctx context.Context, d *document.Document, ev document.Event, releasedBy, path string) error {
	next, err := document.Transition(d.Status, ev)
	if err != nil {
		return err
	}
	prev := d.Status
	now := time.Now().UTC()
	d.Status = next
	d.ReleasedBy = releasedBy
	d.ReleasedAt = &now
	if err := s.repo.Update(ctx, d); err != nil {
		return err
	}
	metrics.Releases.WithLabelValues(path).Inc()
	s.record(ctx, d.ID, audit.ActionReleased, document.Actor{UserID: releasedBy, TenantID: d.TenantID},
		audit.StatusChange{From: string(prev), To: string(next)})
	if err := s.resolveObsolescence(ctx, d); err != nil {
		logger.Warnf("obsolescence pass for %s %s: %v", d.Number, d.Version, err)
	}
	return nil
}

// record appends an audit entry, logging and swallowing failures.
func (s *Service) record(ctx context.Context, documentID, action string, actor document.Actor, details audit.Details) {
	err := s.audit.Record(ctx, audit.Entry{
		DocumentID: documentID,
		Action:     action,
		Actor:      actor.UserID,
		At:         time.Now().UTC(),
		Details:    details,
	})
	if err != nil {
		logger.Warnf("audit %s for %s: %v", action, documentID, err)
	}
}

// send hands an event to the notifier, logging and swallowing failures.
func (s *Service) send(ctx context.Context, ev notify.Event) {
	if err := s.notifier.Notify(ctx, ev); err != nil {
		logger.Warnf("notify %s for %s: %v", ev.Type, ev.DocumentID, err)
	}
}

func approverEmails(approvers []*document.Approver) []string {
	out := make([]string, 0, len(approvers))
	for _, a := range approvers {
		if a.UserEmail != "" {
			out = append(out, a.UserEmail)
		} else {
			out = append(out, a.UserID)
		}
	}
	return out
}
