package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vrbank/batch-upload/internal/domain/upload"
)

// amountScale is the fixed storage scale for amounts.
const amountScale = 2

var detailColumns = []string{
	"batch_no", "branch_code", "source_code", "rel_cust", "account",
	"account_branch", "dr_cr", "ccy_cd", "amount", "lcy_equivalent",
	"txn_code", "addl_text", "exch_rate", "initiation_date", "value_date",
	"upload_date", "fin_cycle", "period_code", "curr_no", "upload_stat",
	"delete_stat",
}

// PostgresUploadRepository is the pgx implementation of UploadRepository.
type PostgresUploadRepository struct {
	db DB
}

// NewPostgresUploadRepository creates the Postgres-backed repository.
func NewPostgresUploadRepository(db DB) *PostgresUploadRepository {
	return &PostgresUploadRepository{db: db}
}

var _ UploadRepository = (*PostgresUploadRepository)(nil)

// SaveAll writes the accepted records with COPY. The unique index on
// (batch_no, curr_no) makes the second of two racing uploads fail here.
func (r *PostgresUploadRepository) SaveAll(ctx context.Context, details []*upload.Detail) error {
	if len(details) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(details))
	for _, d := range details {
		var relCust *string
		if d.RelCust != "" {
			relCust = &d.RelCust
		}
		var addlText *string
		if d.AddlText != "" {
			addlText = &d.AddlText
		}
		rows = append(rows, []any{
			d.BatchNo, d.BranchCode, d.SourceCode, relCust, d.Account,
			d.AccountBranch, d.DrCr, d.CcyCd,
			d.Amount.Round(amountScale), d.LcyEquivalent.Round(amountScale),
			d.TxnCode, addlText, d.ExchRate,
			d.InitiationDate, d.ValueDate, d.UploadDate,
			d.FinCycle, d.PeriodCode, d.CurrNo,
			d.UploadStat, d.DeleteStat,
		})
	}

	copied, err := r.db.CopyFrom(ctx,
		pgx.Identifier{"detb_upload_detail"},
		detailColumns,
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to save upload details: %w", err)
	}
	if copied != int64(len(details)) {
		return fmt.Errorf("expected to save %d records, saved %d", len(details), copied)
	}
	return nil
}

func (r *PostgresUploadRepository) ExistsByBatch(ctx context.Context, batchNo string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM detb_upload_detail WHERE batch_no = $1)`,
		batchNo,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check batch existence: %w", err)
	}
	return exists, nil
}

func (r *PostgresUploadRepository) ExistsByBatchAndStatus(ctx context.Context, batchNo, status string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM detb_upload_detail WHERE batch_no = $1 AND upload_stat = $2)`,
		batchNo, status,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check batch status: %w", err)
	}
	return exists, nil
}

func (r *PostgresUploadRepository) DeleteByBatch(ctx context.Context, batchNo string) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM detb_upload_detail WHERE batch_no = $1`,
		batchNo,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete batch %s: %w", batchNo, err)
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresUploadRepository) UpdateStatusByBatch(ctx context.Context, batchNo, status string) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE detb_upload_detail SET upload_stat = $2 WHERE batch_no = $1`,
		batchNo, status,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update batch %s status: %w", batchNo, err)
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresUploadRepository) BatchSummary(ctx context.Context) ([]upload.BatchSummary, error) {
	rows, err := r.db.Query(ctx, `
		SELECT batch_no, COUNT(*), MAX(upload_date)
		FROM detb_upload_detail
		GROUP BY batch_no
		ORDER BY MAX(upload_date) DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get batch summary: %w", err)
	}
	defer rows.Close()

	var summaries []upload.BatchSummary
	for rows.Next() {
		var s upload.BatchSummary
		if err := rows.Scan(&s.BatchNo, &s.Rows, &s.LastUpload); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func (r *PostgresUploadRepository) BatchStatistics(ctx context.Context, batchNo string) (*upload.BatchStats, error) {
	stats := &upload.BatchStats{BatchNo: batchNo}
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN upload_stat = 'Y' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN upload_stat = 'N' OR upload_stat IS NULL THEN 1 ELSE 0 END), 0)
		FROM detb_upload_detail
		WHERE batch_no = $1
	`, batchNo).Scan(&stats.Total, &stats.Processed, &stats.Pending)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, upload.ErrBatchNotFound
		}
		return nil, fmt.Errorf("failed to get batch statistics: %w", err)
	}
	if stats.Total == 0 {
		return nil, upload.ErrBatchNotFound
	}
	return stats, nil
}

func (r *PostgresUploadRepository) PurgeSoftDeleted(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM detb_upload_detail WHERE delete_stat = 'Y'`,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to purge soft-deleted records: %w", err)
	}
	return tag.RowsAffected(), nil
}
