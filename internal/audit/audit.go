package audit

import (
	"context"
	"sync"
	"time"
)

// Action names for audit entries.
const (
	ActionCreated         = "created"
	ActionEdited          = "edited"
	ActionSubmitted       = "submitted"
	ActionWithdrawn       = "withdrawn"
	ActionDecision        = "decision"
	ActionReleased        = "released"
	ActionObsoleted       = "obsoleted"
	ActionPromoted        = "promoted"
	ActionPromotionSource = "promotion_source"
	ActionDeleted         = "deleted"
	ActionApproverAdded   = "approver_added"
	ActionApproverRemoved = "approver_removed"
	ActionAttachment      = "attachment"
)

// Entry is one append-only audit record, keyed by the document it concerns.
type Entry struct {
	ID         string    `json:"id" bson:"_id,omitempty"`
	DocumentID string    `json:"documentId" bson:"documentId"`
	Action     string    `json:"action" bson:"action"`
	Actor      string    `json:"actor" bson:"actor"`
	At         time.Time `json:"at" bson:"at"`
	Details    Details   `json:"details,omitempty" bson:"details,omitempty"`
}

// Details is a tagged payload; each action carries its own struct so the
// log stays structured without a rigid one-schema-per-table design.
// Freeform is the catch-all for genuinely ad hoc data.
type Details interface{ isAuditDetails() }

// StatusChange records a lifecycle transition.
type StatusChange struct {
	From string `json:"from" bson:"from"`
	To   string `json:"to" bson:"to"`
}

// DecisionDetails records a single approver's verdict. The rejecting
// approver's live row is later reset to pending, so this entry is the
// durable record of the rejection.
type DecisionDetails struct {
	ApproverID string `json:"approverId" bson:"approverId"`
	UserID     string `json:"userId" bson:"userId"`
	Decision   string `json:"decision" bson:"decision"`
	Comments   string `json:"comments,omitempty" bson:"comments,omitempty"`
}

// ObsoletedDetails records why a released version was demoted and which
// version superseded it.
type ObsoletedDetails struct {
	SupersededBy string `json:"supersededBy" bson:"supersededBy"`
	Reason       string `json:"reason" bson:"reason"`
}

// PromotionDetails links the two ends of a prototype-to-production
// promotion; it is written against both documents.
type PromotionDetails struct {
	SourceID     string `json:"sourceId" bson:"sourceId"`
	SourceNumber string `json:"sourceNumber" bson:"sourceNumber"`
	NewID        string `json:"newId" bson:"newId"`
	NewNumber    string `json:"newNumber" bson:"newNumber"`
}

// CreatedDetails records a new document version row, including the number
// the allocator reserved for it.
type CreatedDetails struct {
	Number     string `json:"number" bson:"number"`
	Version    string `json:"version" bson:"version"`
	TypeID     string `json:"typeId" bson:"typeId"`
	Production bool   `json:"production" bson:"production"`
}

// AttachmentDetails records a stored or removed file.
type AttachmentDetails struct {
	Filename string `json:"filename" bson:"filename"`
	Key      string `json:"key" bson:"key"`
	Size     int64  `json:"size" bson:"size"`
}

// Freeform is unstructured detail data.
type Freeform map[string]interface{}

func (StatusChange) isAuditDetails()      {}
func (CreatedDetails) isAuditDetails()    {}
func (DecisionDetails) isAuditDetails()   {}
func (ObsoletedDetails) isAuditDetails()  {}
func (PromotionDetails) isAuditDetails()  {}
func (AttachmentDetails) isAuditDetails() {}
func (Freeform) isAuditDetails()          {}

// Recorder appends audit entries. Implementations must be safe for
// concurrent use; failures are the caller's to log and swallow — auditing
// never blocks a state change.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
	ByDocument(ctx context.Context, documentID string) ([]Entry, error)
}

// MemoryRecorder keeps entries in memory, for tests and single-process use.
type MemoryRecorder struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemoryRecorder() *MemoryRecorder { return &MemoryRecorder{} }

func (m *MemoryRecorder) Record(ctx context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *MemoryRecorder) ByDocument(ctx context.Context, documentID string) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Entry{}
	for _, e := range m.entries {
		if e.DocumentID == documentID {
			out = append(out, e)
		}
	}
	return out, nil
}

// All returns every recorded entry; test helper.
func (m *MemoryRecorder) All() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry{}, m.entries...)
}
