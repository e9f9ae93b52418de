package shared

import "fmt"

// DomainError is the base error type for all domain errors
type DomainError struct {
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func NewDomainError(message string) *DomainError {
	return &DomainError{Message: message}
}

// Export job errors

// NoDirtySkuError is returned when an export is requested for a country
// that has no SKUs flagged dirty.
type NoDirtySkuError struct {
	*DomainError
	Country string
}

func NewNoDirtySkuError(country string) *NoDirtySkuError {
	return &NoDirtySkuError{
		DomainError: &DomainError{Message: fmt.Sprintf("no dirty SKUs for country %s", country)},
		Country:     country,
	}
}

// ExportJobNotFoundError is returned when an export job id does not exist.
type ExportJobNotFoundError struct {
	*DomainError
	JobID string
}

func NewExportJobNotFoundError(jobID string) *ExportJobNotFoundError {
	return &ExportJobNotFoundError{
		DomainError: &DomainError{Message: fmt.Sprintf("export job not found: %s", jobID)},
		JobID:       jobID,
	}
}

// ExportJobNotApplicableError is returned when apply is requested on a job
// that is not in the exported state.
type ExportJobNotApplicableError struct {
	*DomainError
	JobID  string
	Status string
}

func NewExportJobNotApplicableError(jobID, status string) *ExportJobNotApplicableError {
	return &ExportJobNotApplicableError{
		DomainError: &DomainError{Message: fmt.Sprintf("export job %s is not applicable in status %s", jobID, status)},
		JobID:       jobID,
		Status:      status,
	}
}

// Sync errors

// RunNotFoundError is returned when a product sync run id does not exist.
type RunNotFoundError struct {
	*DomainError
	RunID string
}

func NewRunNotFoundError(runID string) *RunNotFoundError {
	return &RunNotFoundError{
		DomainError: &DomainError{Message: fmt.Sprintf("product sync run not found: %s", runID)},
		RunID:       runID,
	}
}

// BulkConflictError is returned when the storefront reports a bulk operation
// already in progress and its query filter does not match ours.
type BulkConflictError struct {
	*DomainError
	CurrentBulkID string
}

func NewBulkConflictError(currentBulkID string) *BulkConflictError {
	return &BulkConflictError{
		DomainError:   &DomainError{Message: fmt.Sprintf("conflicting bulk operation in progress: %s", currentBulkID)},
		CurrentBulkID: currentBulkID,
	}
}

// ValidationError reports a field-level validation failure
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
