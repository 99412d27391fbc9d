package service

import (
	"context"

	"github.com/veridoc/veridoc/internal/audit"
	"github.com/veridoc/veridoc/internal/document"
	"github.com/veridoc/veridoc/internal/notify"
	"github.com/veridoc/veridoc/pkg/metrics"
)

// Promote creates a production lineage from a released prototype. A fresh
// number is allocated from the same document type — the prototype keeps its
// own number — and the new lineage starts at v1 in Draft, carrying a
// back-reference to the prototype's number. When that v1 is eventually
// released, the obsolescence pass follows the back-reference to demote the
// prototype.
func (s *Service) Promote(ctx context.Context, actor document.Actor, sourceID string) (*document.Document, error) {
	src, err := s.repo.Get(ctx, actor.TenantID, sourceID)
	if err != nil {
		return nil, err
	}
	if src.Production {
		return nil, &document.ValidationError{Field: "source", Reason: "document is already production"}
	}
	if src.Status != document.StatusReleased {
		return nil, &document.ValidationError{Field: "source", Reason: "only released prototypes can be promoted"}
	}
	if src.CreatedBy != actor.UserID && !actor.Admin {
		return nil, &document.AuthorizationError{UserID: actor.UserID, Action: "promote document"}
	}

	number, err := s.types.Allocate(ctx, actor, src.TypeID)
	if err != nil {
		return nil, err
	}
	d := &document.Document{
		TenantID:     actor.TenantID,
		TypeID:       src.TypeID,
		Number:       number,
		Version:      document.FirstVersion(true),
		Production:   true,
		Status:       document.StatusDraft,
		Title:        src.Title,
		Description:  src.Description,
		ProjectCode:  src.ProjectCode,
		PromotedFrom: src.Number,
		CreatedBy:    actor.UserID,
	}
	// the number is freshly allocated, so a duplicate v1 can only come from
	// a double submission; the unique index turns it into a ConflictError
	if err := s.repo.Insert(ctx, d); err != nil {
		return nil, err
	}
	metrics.DocumentsCreated.WithLabelValues("production").Inc()
	metrics.Promotions.Inc()

	link := audit.PromotionDetails{
		SourceID: src.ID, SourceNumber: src.Number,
		NewID: d.ID, NewNumber: d.Number,
	}
	s.record(ctx, d.ID, audit.ActionPromoted, actor, link)
	s.record(ctx, src.ID, audit.ActionPromotionSource, actor, link)
	s.send(ctx, notify.Event{
		Type: notify.EventPromoted, DocumentID: d.ID, Number: d.Number, Version: d.Version,
		Recipients: []string{src.CreatedBy},
		Payload:    map[string]string{"sourceNumber": src.Number},
	})
	return d, nil
}
