package doctype

import "time"

// DocumentType is a tenant-owned numbering class for controlled documents.
// Prefix is unique per tenant; NextNumber is a monotonic counter that only
// the allocator increments. Archived (inactive) types refuse allocation for
// non-admin callers.
type DocumentType struct {
	ID          string    `json:"id" bson:"_id,omitempty"`
	TenantID    string    `json:"tenantId" bson:"tenantId"`
	Prefix      string    `json:"prefix" bson:"prefix"`
	Name        string    `json:"name" bson:"name"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	NextNumber  int64     `json:"nextNumber" bson:"nextNumber"`
	Active      bool      `json:"active" bson:"active"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}
