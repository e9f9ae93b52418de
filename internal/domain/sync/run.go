package sync

import "time"

// Run statuses. A run is terminal once completed, completed_with_gaps or
// failed; at most one run may be running at a time.
const (
	RunStatusRunning           = "running"
	RunStatusCompleted         = "completed"
	RunStatusCompletedWithGaps = "completed_with_gaps"
	RunStatusFailed            = "failed"
)

// Run types.
const (
	RunTypeScheduled = "scheduled"
	RunTypeManual    = "manual"
)

// Run is one full-sync attempt from bulk export to finalization.
type Run struct {
	ID                string
	Status            string
	RunType           string
	ShopifyBulkID     string
	ShopifyBulkURL    string
	TotalShopifySkus  int
	ChangeCount       int
	StartedAt         time.Time
	FinishedAt        *time.Time
	WebhookReceivedAt *time.Time
}

// Terminal reports whether the run has reached a final status.
func (r *Run) Terminal() bool {
	return r.Status != RunStatusRunning
}
