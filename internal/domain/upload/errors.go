package upload

import "errors"

// Sentinel errors for the batch lifecycle operations. Both are fatal for
// the invocation that hits them; per-row problems are reported as
// RowError entries instead.
var (
	// ErrBatchNotFound is returned when an operation references a batch
	// number with no stored rows.
	ErrBatchNotFound = errors.New("batch not found")

	// ErrBatchProcessed is returned when a delete is attempted on a batch
	// whose records are already marked processed. Processed batches are
	// immutable.
	ErrBatchProcessed = errors.New("cannot delete processed batch")
)
