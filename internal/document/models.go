package document

import "time"

// Status is the lifecycle state of a controlled document.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusInApproval Status = "in_approval"
	StatusReleased   Status = "released"
	StatusObsolete   Status = "obsolete"
)

// ApproverStatus is the decision state of a single assigned approver.
type ApproverStatus string

const (
	ApproverPending  ApproverStatus = "pending"
	ApproverApproved ApproverStatus = "approved"
	ApproverRejected ApproverStatus = "rejected"
)

// Decision is an approver's verdict on a document in approval.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

// Document is one version row of a controlled document. All rows sharing a
// Number within a tenant form a lineage, ordered by version.
type Document struct {
	ID          string `json:"id" bson:"_id,omitempty"`
	TenantID    string `json:"tenantId" bson:"tenantId"`
	TypeID      string `json:"typeId" bson:"typeId"`
	Number      string `json:"number" bson:"number"`
	Version     string `json:"version" bson:"version"`
	Production  bool   `json:"production" bson:"production"`
	Status      Status `json:"status" bson:"status"`
	Title       string `json:"title" bson:"title"`
	Description string `json:"description,omitempty" bson:"description,omitempty"`
	ProjectCode string `json:"projectCode,omitempty" bson:"projectCode,omitempty"`
	// PromotedFrom holds the prototype lineage's document number when this
	// row heads a production lineage created by promotion. Consumed by the
	// obsolescence pass when v1 is released.
	PromotedFrom   string     `json:"promotedFrom,omitempty" bson:"promotedFrom,omitempty"`
	ObsoleteReason string     `json:"obsoleteReason,omitempty" bson:"obsoleteReason,omitempty"`
	CreatedBy      string     `json:"createdBy" bson:"createdBy"`
	CreatedAt      time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt" bson:"updatedAt"`
	ReleasedBy     string     `json:"releasedBy,omitempty" bson:"releasedBy,omitempty"`
	ReleasedAt     *time.Time `json:"releasedAt,omitempty" bson:"releasedAt,omitempty"`
	// Rev guards concurrent status updates: every repository update must
	// match the current value and bumps it by one.
	Rev int64 `json:"-" bson:"rev"`
}

// Approver is one assigned reviewer row for a document version.
type Approver struct {
	ID         string         `json:"id" bson:"_id,omitempty"`
	DocumentID string         `json:"documentId" bson:"documentId"`
	UserID     string         `json:"userId" bson:"userId"`
	UserEmail  string         `json:"userEmail" bson:"userEmail"`
	Status     ApproverStatus `json:"status" bson:"status"`
	Comments   string         `json:"comments,omitempty" bson:"comments,omitempty"`
	ActionDate *time.Time     `json:"actionDate,omitempty" bson:"actionDate,omitempty"`
}

// Actor is the authenticated principal performing an operation, extracted
// from verified token claims by the HTTP layer.
type Actor struct {
	UserID   string
	Email    string
	TenantID string
	Admin    bool
}
