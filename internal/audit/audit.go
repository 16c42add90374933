// Package audit records who did what to which document. Writes are
// fire-and-forget from the caller's point of view: a failed audit write never
// fails the business operation it describes.
package audit

import (
	"context"
	"time"
)

// Entry is a single audit trail record.
type Entry struct {
	ID          int64          `json:"id,omitempty"`
	TenantID    int64          `json:"tenant_id"`
	BranchID    int64          `json:"branch_id,omitempty"`
	Action      string         `json:"action"`
	Entity      string         `json:"entity"`
	EntityID    string         `json:"entity_id"`
	PerformedBy int64          `json:"performed_by"`
	Details     map[string]any `json:"details,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Recorder accepts audit entries. Implementations must not block business
// flows on persistence.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}
