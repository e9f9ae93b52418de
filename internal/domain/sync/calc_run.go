package sync

import "time"

// Freight calculation run statuses.
const (
	CalcStatusRunning   = "running"
	CalcStatusCompleted = "completed"
	CalcStatusNoOp      = "no_op"
	CalcStatusFailed    = "failed"
)

// Freight calculation triggers.
const (
	CalcTriggerAuto     = "auto"
	CalcTriggerPostSync = "post_sync"
	CalcTriggerManual   = "manual"
)

// CalcRun is one freight calculation pass over a candidate set.
type CalcRun struct {
	ID             string
	Status         string
	Trigger        string
	ProductRunID   string
	CandidateCount int
	ChangedCount   int
	Message        string
	StartedAt      time.Time
	FinishedAt     *time.Time
}
