package service

import (
	"context"
	"errors"
	"time"

	"github.com/veridoc/veridoc/internal/audit"
	"github.com/veridoc/veridoc/internal/document"
	"github.com/veridoc/veridoc/internal/notify"
	"github.com/veridoc/veridoc/pkg/metrics"
)

// RecordDecision applies one approver's verdict to a document in approval.
//
// Consensus is strict unanimity. An approval that completes the set
// releases the document; any rejection reverts it to Draft and resets every
// approver row so a resubmission starts clean. The pending-only update of
// the approver row is the serialization point for concurrent decisions; the
// document update is rev-guarded, and a lost release race is resolved by
// re-reading (the concurrent completion already released, or a concurrent
// rejection broke consensus).
//
// The returned bool reports whether this decision completed consensus.
func (s *Service) RecordDecision(ctx context.Context, actor document.Actor, documentID, approverID string, decision document.Decision, comments string) (bool, error) {
	d, err := s.repo.Get(ctx, actor.TenantID, documentID)
	if err != nil {
		return false, err
	}
	if d.Status != document.StatusInApproval {
		return false, &document.InvalidStateError{Current: d.Status, Op: "record decision"}
	}
	a, err := s.repo.GetApprover(ctx, d.ID, approverID)
	if err != nil {
		return false, err
	}
	if a.UserID != actor.UserID {
		return false, &document.AuthorizationError{UserID: actor.UserID, Action: "decide for approver " + approverID}
	}

	var status document.ApproverStatus
	switch decision {
	case document.DecisionApproved:
		status = document.ApproverApproved
	case document.DecisionRejected:
		if n := len(comments); n < 1 || n > 1000 {
			return false, &document.ValidationError{Field: "comments", Reason: "rejection comments must be 1-1000 characters"}
		}
		status = document.ApproverRejected
	default:
		return false, &document.ValidationError{Field: "decision", Reason: "must be approved or rejected"}
	}

	now := time.Now().UTC()
	if err := s.repo.Decide(ctx, d.ID, approverID, status, comments, now); err != nil {
		return false, err
	}
	metrics.Decisions.WithLabelValues(string(decision)).Inc()
	// durable record of the verdict; the live row may be reset to pending
	// later, the audit entry never is
	s.record(ctx, d.ID, audit.ActionDecision, actor, audit.DecisionDetails{
		ApproverID: approverID, UserID: actor.UserID, Decision: string(decision), Comments: comments,
	})

	if decision == document.DecisionRejected {
		return false, s.reject(ctx, actor, d, comments)
	}

	approvers, err := s.repo.Approvers(ctx, d.ID)
	if err != nil {
		return false, err
	}
	for _, row := range approvers {
		if row.Status != document.ApproverApproved {
			return false, nil
		}
	}
	return true, s.completeConsensus(ctx, actor, d)
}

// reject reverts the document to Draft and resets every approver row.
func (s *Service) reject(ctx context.Context, actor document.Actor, d *document.Document, comments string) error {
	for {
		next, err := document.Transition(d.Status, document.EventReject)
		if err != nil {
			return err
		}
		d.Status = next
		uerr := s.repo.Update(ctx, d)
		if uerr == nil {
			break
		}
		var conflict *document.ConflictError
		if !errors.As(uerr, &conflict) {
			return uerr
		}
		// stale rev: re-read and retry from the current status
		fresh, gerr := s.repo.Get(ctx, actor.TenantID, d.ID)
		if gerr != nil {
			return gerr
		}
		if fresh.Status == document.StatusDraft {
			*d = *fresh
			break
		}
		*d = *fresh
	}
	if err := s.resetApprovers(ctx, d.ID); err != nil {
		return err
	}
	s.send(ctx, notify.Event{
		Type: notify.EventRejected, DocumentID: d.ID, Number: d.Number, Version: d.Version,
		Recipients: []string{d.CreatedBy},
		Payload:    map[string]string{"comments": comments},
	})
	return nil
}

// completeConsensus releases the document after the last approval landed.
// releasedBy records the user whose approval completed the set — the
// release itself is the workflow acting, not that user releasing directly.
func (s *Service) completeConsensus(ctx context.Context, actor document.Actor, d *document.Document) error {
	err := s.release(ctx, d, document.EventApprove, actor.UserID, "consensus")
	if err != nil {
		var conflict *document.ConflictError
		if errors.As(err, &conflict) {
			fresh, gerr := s.repo.Get(ctx, actor.TenantID, d.ID)
			if gerr != nil {
				return gerr
			}
			if fresh.Status == document.StatusReleased {
				// a concurrent completion won the race; same outcome
				*d = *fresh
				err = nil
			} else {
				return err
			}
		} else {
			return err
		}
	}
	s.send(ctx, notify.Event{
		Type: notify.EventReleased, DocumentID: d.ID, Number: d.Number, Version: d.Version,
		Recipients: []string{d.CreatedBy},
	})
	return nil
}
