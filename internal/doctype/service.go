package doctype

import (
	"context"
	"fmt"
	"regexp"

	"github.com/veridoc/veridoc/internal/document"
	"github.com/veridoc/veridoc/pkg/metrics"
)

var prefixPattern = regexp.MustCompile(`^[A-Z]{2,10}$`)

// Service owns document-type administration and number allocation.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

// Create registers a new document type for the actor's tenant. Counters
// start at 1.
func (s *Service) Create(ctx context.Context, actor document.Actor, prefix, name, description string) (*DocumentType, error) {
	if !prefixPattern.MatchString(prefix) {
		return nil, &document.ValidationError{Field: "prefix", Reason: "must be 2-10 uppercase letters"}
	}
	if name == "" {
		return nil, &document.ValidationError{Field: "name", Reason: "required"}
	}
	dt := &DocumentType{
		TenantID:    actor.TenantID,
		Prefix:      prefix,
		Name:        name,
		Description: description,
		NextNumber:  1,
		Active:      true,
	}
	if err := s.repo.Create(ctx, dt); err != nil {
		return nil, err
	}
	return dt, nil
}

func (s *Service) Get(ctx context.Context, actor document.Actor, id string) (*DocumentType, error) {
	return s.repo.Get(ctx, actor.TenantID, id)
}

func (s *Service) List(ctx context.Context, actor document.Actor) ([]*DocumentType, error) {
	return s.repo.List(ctx, actor.TenantID)
}

// SetActive archives or restores a type. Archived types refuse allocation
// for non-admins but keep their counter, so numbering resumes where it
// stopped if the type is restored.
func (s *Service) SetActive(ctx context.Context, actor document.Actor, id string, active bool) error {
	if !actor.Admin {
		return &document.AuthorizationError{UserID: actor.UserID, Action: "archive document type"}
	}
	return s.repo.SetActive(ctx, actor.TenantID, id, active)
}

// Allocate reserves the next sequential number for the type and formats it
// as PREFIX-00001. Numbers are never reused: deleting the document created
// from an allocation does not roll the counter back.
func (s *Service) Allocate(ctx context.Context, actor document.Actor, typeID string) (string, error) {
	dt, err := s.repo.Get(ctx, actor.TenantID, typeID)
	if err != nil {
		return "", err
	}
	if !dt.Active && !actor.Admin {
		return "", &document.ValidationError{Field: "documentType", Reason: fmt.Sprintf("type %s is archived", dt.Prefix)}
	}
	_, n, err := s.repo.Allocate(ctx, actor.TenantID, typeID)
	if err != nil {
		return "", err
	}
	metrics.NumbersAllocated.WithLabelValues(dt.Prefix).Inc()
	return fmt.Sprintf("%s-%05d", dt.Prefix, n), nil
}
