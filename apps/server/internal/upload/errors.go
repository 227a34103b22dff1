package upload

import "fmt"

// BatchActiveError is returned when Run is called while another batch is
// still in flight. Batches are single-flight; the caller retries after the
// active one finishes.
type BatchActiveError struct {
	BatchID string
}

// Error implements the error interface.
func (e BatchActiveError) Error() string {
	return fmt.Sprintf("batch %q is already running", e.BatchID)
}

// InvalidBatchError is returned when a batch request fails validation before
// any upload is attempted.
type InvalidBatchError struct {
	Reason string
}

// Error implements the error interface.
func (e InvalidBatchError) Error() string {
	return "invalid batch: " + e.Reason
}
