package sync

import "time"

// Chunk statuses.
const (
	ChunkStatusPending   = "pending"
	ChunkStatusRunning   = "running"
	ChunkStatusSucceeded = "succeeded"
	ChunkStatusFailed    = "failed"
)

// exampleLimit bounds every example list carried on a chunk.
const exampleLimit = 50

// Chunk is one slice of a run's SKU stream. Identified by (RunID, ChunkIdx)
// so re-streaming the same bulk file lands on the same rows.
type Chunk struct {
	RunID    string
	ChunkIdx int
	Status   string
	SkuCodes []string
	SkuCount int

	Stats ChunkStats

	LastError  string
	StartedAt  *time.Time
	FinishedAt *time.Time
}

// ChunkStats carries the supplier health counters for one processed chunk.
// Example lists are capped; counters are exact.
type ChunkStats struct {
	RequestedTotal     int
	ReturnedTotal      int
	MissingCount       int
	ExtraCount         int
	FailedBatchesCount int
	FailedSkusCount    int
	MissingExamples    []string
	FailedExamples     []string
	ExtraExamples      []string
}

// Merge accumulates another stats bag into this one, keeping example lists
// bounded.
func (s *ChunkStats) Merge(o ChunkStats) {
	s.RequestedTotal += o.RequestedTotal
	s.ReturnedTotal += o.ReturnedTotal
	s.MissingCount += o.MissingCount
	s.ExtraCount += o.ExtraCount
	s.FailedBatchesCount += o.FailedBatchesCount
	s.FailedSkusCount += o.FailedSkusCount
	s.MissingExamples = capExamples(append(s.MissingExamples, o.MissingExamples...))
	s.FailedExamples = capExamples(append(s.FailedExamples, o.FailedExamples...))
	s.ExtraExamples = capExamples(append(s.ExtraExamples, o.ExtraExamples...))
}

func capExamples(in []string) []string {
	if len(in) > exampleLimit {
		return in[:exampleLimit]
	}
	return in
}
