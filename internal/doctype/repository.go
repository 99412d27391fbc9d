package doctype

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/veridoc/veridoc/internal/document"
)

// Repository provides document-type persistence. Allocate must behave as a
// single atomic read-and-increment: under concurrent calls for one type, the
// returned numbers are distinct and gap-free.
type Repository interface {
	Create(ctx context.Context, dt *DocumentType) error
	Get(ctx context.Context, tenantID, id string) (*DocumentType, error)
	List(ctx context.Context, tenantID string) ([]*DocumentType, error)
	SetActive(ctx context.Context, tenantID, id string, active bool) error
	// Allocate returns the type and the counter value reserved for the
	// caller (the pre-increment NextNumber).
	Allocate(ctx context.Context, tenantID, id string) (*DocumentType, int64, error)
}

// MemoryRepository is the in-memory implementation used for unit tests and
// single-process deployments.
type MemoryRepository struct {
	mu    sync.Mutex
	types map[string]*DocumentType
	seq   int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{types: make(map[string]*DocumentType)}
}

func (m *MemoryRepository) Create(ctx context.Context, dt *DocumentType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.types {
		if t.TenantID == dt.TenantID && t.Prefix == dt.Prefix {
			return &document.ConflictError{Reason: fmt.Sprintf("prefix %s already in use", dt.Prefix)}
		}
	}
	if dt.ID == "" {
		m.seq++
		dt.ID = fmt.Sprintf("dt_%d", m.seq)
	}
	now := time.Now().UTC()
	dt.CreatedAt = now
	dt.UpdatedAt = now
	cp := *dt
	m.types[dt.ID] = &cp
	return nil
}

func (m *MemoryRepository) Get(ctx context.Context, tenantID, id string) (*DocumentType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	dt, ok := m.types[id]
	if !ok || dt.TenantID != tenantID {
		return nil, &document.NotFoundError{Entity: "document type", ID: id}
	}
	cp := *dt
	return &cp, nil
}

func (m *MemoryRepository) List(ctx context.Context, tenantID string) ([]*DocumentType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*DocumentType{}
	for _, dt := range m.types {
		if dt.TenantID == tenantID {
			cp := *dt
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemoryRepository) SetActive(ctx context.Context, tenantID, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	dt, ok := m.types[id]
	if !ok || dt.TenantID != tenantID {
		return &document.NotFoundError{Entity: "document type", ID: id}
	}
	dt.Active = active
	dt.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryRepository) Allocate(ctx context.Context, tenantID, id string) (*DocumentType, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	dt, ok := m.types[id]
	if !ok || dt.TenantID != tenantID {
		return nil, 0, &document.NotFoundError{Entity: "document type", ID: id}
	}
	n := dt.NextNumber
	dt.NextNumber++
	dt.UpdatedAt = time.Now().UTC()
	cp := *dt
	return &cp, n, nil
}
