package service

import (
	"context"
	"errors"

	"github.com/veridoc/veridoc/internal/audit"
	"github.com/veridoc/veridoc/internal/document"
	"github.com/veridoc/veridoc/pkg/logger"
	"github.com/veridoc/veridoc/pkg/metrics"
)

// Obsolescence reasons recorded on the demoted document.
const (
	reasonSuperseded   = "superseded"
	reasonByProduction = "superseded_by_production"
)

// resolveObsolescence demotes whatever the just-released document
// supersedes. Runs immediately after every release, on both release paths.
//
// Production v1 supersedes the latest released version of the prototype
// lineage it was promoted from (located through the back-reference, since
// promotion allocated a fresh number). Every other release supersedes the
// exact predecessor version in its own lineage — located by version
// arithmetic, not by row order, so out-of-order historical rows cannot
// demote the wrong document.
//
// A missing predecessor is a no-op; failures here never undo the release.
func (s *Service) resolveObsolescence(ctx context.Context, released *document.Document) error {
	if released.Production && released.Version == document.FirstVersion(true) {
		if released.PromotedFrom == "" {
			logger.Warnf("production %s v1 has no promotion back-reference; skipping prototype obsolescence", released.Number)
		} else if err := s.obsoletePromotionSource(ctx, released); err != nil {
			return err
		}
	}

	prev, err := document.PrevVersion(released.Version, released.Production)
	if err != nil {
		return err
	}
	if prev == "" {
		// first version of its lineage, nothing to supersede
		return nil
	}
	pred, err := s.repo.FindVersion(ctx, released.TenantID, released.Number, prev, released.Production)
	if err != nil {
		var nf *document.NotFoundError
		if errors.As(err, &nf) {
			logger.Warnf("predecessor %s %s of %s not found; skipping obsolescence", released.Number, prev, released.Version)
			return nil
		}
		return err
	}
	if pred.Status != document.StatusReleased {
		return nil
	}
	return s.markObsolete(ctx, pred, released, reasonSuperseded)
}

// obsoletePromotionSource demotes the most recent released prototype of the
// lineage this production document was promoted from.
func (s *Service) obsoletePromotionSource(ctx context.Context, released *document.Document) error {
	lineage, err := s.repo.Lineage(ctx, released.TenantID, released.PromotedFrom)
	if err != nil {
		return err
	}
	var latest *document.Document
	latestOrd := 0
	for _, row := range lineage {
		if row.Production || row.Status != document.StatusReleased {
			continue
		}
		ord, err := document.VersionOrdinal(row.Version, false)
		if err != nil {
			logger.Warnf("prototype %s has malformed version %q; skipping row", row.Number, row.Version)
			continue
		}
		if ord > latestOrd {
			latest, latestOrd = row, ord
		}
	}
	if latest == nil {
		logger.Warnf("no released prototype left in lineage %s; nothing to obsolete", released.PromotedFrom)
		return nil
	}
	return s.markObsolete(ctx, latest, released, reasonByProduction)
}

// markObsolete demotes one released document, retrying a lost rev race as
// long as the row is still released.
func (s *Service) markObsolete(ctx context.Context, target, supersededBy *document.Document, reason string) error {
	for {
		next, err := document.Transition(target.Status, document.EventObsolete)
		if err != nil {
			return err
		}
		target.Status = next
		target.ObsoleteReason = reason
		uerr := s.repo.Update(ctx, target)
		if uerr == nil {
			break
		}
		var conflict *document.ConflictError
		if !errors.As(uerr, &conflict) {
			return uerr
		}
		fresh, gerr := s.repo.Get(ctx, target.TenantID, target.ID)
		if gerr != nil {
			return gerr
		}
		if fresh.Status != document.StatusReleased {
			// someone else already demoted it
			return nil
		}
		*target = *fresh
	}
	metrics.Obsoletions.WithLabelValues(reason).Inc()
	s.record(ctx, target.ID, audit.ActionObsoleted,
		document.Actor{UserID: supersededBy.ReleasedBy, TenantID: target.TenantID},
		audit.ObsoletedDetails{
			SupersededBy: supersededBy.Number + " " + supersededBy.Version,
			Reason:       reason,
		})
	return nil
}
