package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/veridoc/veridoc/internal/document"
)

// MemoryRepository is the in-memory implementation used for unit tests and
// single-process deployments. One mutex guards both stores so a decision
// plus its consensus read observe a consistent snapshot.
type MemoryRepository struct {
	mu        sync.Mutex
	docs      map[string]*document.Document
	approvers map[string]*document.Approver
	seq       int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		docs:      make(map[string]*document.Document),
		approvers: make(map[string]*document.Approver),
	}
}

func (m *MemoryRepository) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s_%d", prefix, m.seq)
}

func (m *MemoryRepository) Insert(ctx context.Context, d *document.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ex := range m.docs {
		if ex.TenantID == d.TenantID && ex.Number == d.Number &&
			ex.Version == d.Version && ex.Production == d.Production {
			return &document.ConflictError{Reason: fmt.Sprintf("%s %s already exists", d.Number, d.Version)}
		}
	}
	if d.ID == "" {
		d.ID = m.nextID("doc")
	}
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	d.Rev = 1
	cp := *d
	m.docs[d.ID] = &cp
	return nil
}

func (m *MemoryRepository) Get(ctx context.Context, tenantID, id string) (*document.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok || d.TenantID != tenantID {
		return nil, &document.NotFoundError{Entity: "document", ID: id}
	}
	cp := *d
	return &cp, nil
}

func (m *MemoryRepository) Update(ctx context.Context, d *document.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.docs[d.ID]
	if !ok || cur.TenantID != d.TenantID {
		return &document.NotFoundError{Entity: "document", ID: d.ID}
	}
	if cur.Rev != d.Rev {
		return &document.ConflictError{Reason: fmt.Sprintf("document %s was modified concurrently", d.ID)}
	}
	d.Rev++
	d.UpdatedAt = time.Now().UTC()
	cp := *d
	m.docs[d.ID] = &cp
	return nil
}

func (m *MemoryRepository) Delete(ctx context.Context, tenantID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok || d.TenantID != tenantID {
		return &document.NotFoundError{Entity: "document", ID: id}
	}
	delete(m.docs, id)
	return nil
}

func (m *MemoryRepository) Lineage(ctx context.Context, tenantID, number string) ([]*document.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*document.Document{}
	for _, d := range m.docs {
		if d.TenantID == tenantID && d.Number == number {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryRepository) FindVersion(ctx context.Context, tenantID, number, version string, production bool) (*document.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.docs {
		if d.TenantID == tenantID && d.Number == number && d.Version == version && d.Production == production {
			cp := *d
			return &cp, nil
		}
	}
	return nil, &document.NotFoundError{Entity: "document", ID: number + " " + version}
}

func (m *MemoryRepository) InsertApprover(ctx context.Context, a *document.Approver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ex := range m.approvers {
		if ex.DocumentID == a.DocumentID && ex.UserID == a.UserID {
			return &document.ConflictError{Reason: fmt.Sprintf("user %s is already an approver", a.UserID)}
		}
	}
	if a.ID == "" {
		a.ID = m.nextID("apr")
	}
	cp := *a
	m.approvers[a.ID] = &cp
	return nil
}

func (m *MemoryRepository) Approvers(ctx context.Context, documentID string) ([]*document.Approver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*document.Approver{}
	for _, a := range m.approvers {
		if a.DocumentID == documentID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryRepository) GetApprover(ctx context.Context, documentID, approverID string) (*document.Approver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.approvers[approverID]
	if !ok || a.DocumentID != documentID {
		return nil, &document.NotFoundError{Entity: "approver", ID: approverID}
	}
	cp := *a
	return &cp, nil
}

func (m *MemoryRepository) Decide(ctx context.Context, documentID, approverID string, status document.ApproverStatus, comments string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.approvers[approverID]
	if !ok || a.DocumentID != documentID {
		return &document.NotFoundError{Entity: "approver", ID: approverID}
	}
	if a.Status != document.ApproverPending {
		return &document.AlreadyDecidedError{ApproverID: approverID, Status: a.Status}
	}
	a.Status = status
	a.Comments = comments
	a.ActionDate = &at
	return nil
}

func (m *MemoryRepository) ResetApprovers(ctx context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.approvers {
		if a.DocumentID == documentID {
			a.Status = document.ApproverPending
			a.Comments = ""
			a.ActionDate = nil
		}
	}
	return nil
}

func (m *MemoryRepository) DeleteApprover(ctx context.Context, documentID, approverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.approvers[approverID]
	if !ok || a.DocumentID != documentID {
		return &document.NotFoundError{Entity: "approver", ID: approverID}
	}
	delete(m.approvers, approverID)
	return nil
}

func (m *MemoryRepository) DeleteApproversFor(ctx context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, a := range m.approvers {
		if a.DocumentID == documentID {
			delete(m.approvers, id)
		}
	}
	return nil
}
