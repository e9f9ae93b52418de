package export

import "time"

// Export job statuses. Apply is only valid from exported.
const (
	StatusPending     = "pending"
	StatusExported    = "exported"
	StatusFailed      = "failed"
	StatusApplied     = "applied"
	StatusApplyFailed = "apply_failed"
)

// Job is one generated diff CSV for a country. The CSV blob is immutable
// after creation; apply only flips status and clears dirty flags.
type Job struct {
	ID        string
	Country   string
	Status    string
	FileName  string
	RowCount  int
	CsvBlob   []byte
	Error     string
	CreatedBy string
	AppliedBy string
	CreatedAt time.Time
	AppliedAt *time.Time
}

// JobSku is one row of a job with its template payload and the columns that
// differed from the baseline.
type JobSku struct {
	JobID          string
	SkuCode        string
	Payload        map[string]string
	ChangedColumns []string
}
