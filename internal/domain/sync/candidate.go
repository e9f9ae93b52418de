package sync

// ChangeCandidate records one SKU whose master row changed during a run,
// with the exact field mask and new values. Unique per (RunID, SkuCode).
type ChangeCandidate struct {
	RunID         string
	SkuCode       string
	ChangedFields []string
	NewValues     map[string]interface{}
}

// ChangeCount is the size of the field mask.
func (c *ChangeCandidate) ChangeCount() int {
	return len(c.ChangedFields)
}
