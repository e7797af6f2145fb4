// Package repository persists accepted upload records and answers the
// batch lifecycle queries.
package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vrbank/batch-upload/internal/domain/upload"
)

// DB is the subset of pgxpool.Pool the repository needs; pgxmock
// satisfies it for tests.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// UploadRepository is the storage collaborator for the batch pipeline.
// Batch uniqueness is enforced at the storage level: concurrent uploads
// of the same batch number collide on the (batch_no, curr_no) unique
// index rather than on application-level locking.
type UploadRepository interface {
	// SaveAll persists the accepted records of one invocation as a
	// single batch write.
	SaveAll(ctx context.Context, details []*upload.Detail) error

	ExistsByBatch(ctx context.Context, batchNo string) (bool, error)
	ExistsByBatchAndStatus(ctx context.Context, batchNo, status string) (bool, error)

	// DeleteByBatch removes every row of a batch and reports how many
	// rows were deleted.
	DeleteByBatch(ctx context.Context, batchNo string) (int64, error)

	// UpdateStatusByBatch flips the upload status across all rows of a
	// batch.
	UpdateStatusByBatch(ctx context.Context, batchNo, status string) (int64, error)

	// BatchSummary lists per-batch row counts, most recent upload first.
	BatchSummary(ctx context.Context) ([]upload.BatchSummary, error)

	// BatchStatistics returns total/processed/pending counts for one
	// batch, or upload.ErrBatchNotFound.
	BatchStatistics(ctx context.Context, batchNo string) (*upload.BatchStats, error)

	// PurgeSoftDeleted removes rows flagged with delete_stat = 'Y'.
	PurgeSoftDeleted(ctx context.Context) (int64, error)
}
