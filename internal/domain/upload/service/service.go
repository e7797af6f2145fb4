// Package service provides the batch upload orchestration logic.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vrbank/batch-upload/internal/domain/upload"
	"github.com/vrbank/batch-upload/internal/domain/upload/parser"
	"github.com/vrbank/batch-upload/internal/domain/upload/repository"
	"github.com/vrbank/batch-upload/pkg/metrics"
)

// Config holds the upload processing limits.
type Config struct {
	// MaxRows is the per-batch row limit; rows past it are dropped.
	MaxRows int
	// AllowedExtensions are the accepted upload file extensions,
	// lower-case with the leading dot.
	AllowedExtensions []string
}

// DefaultConfig returns the standard processing limits.
func DefaultConfig() Config {
	return Config{
		MaxRows:           10000,
		AllowedExtensions: []string{".xlsx", ".xlsm"},
	}
}

// UploadService orchestrates one upload invocation: parameter and
// duplicate checks, the sheet row loop, persistence and the final
// result, plus the batch lifecycle operations.
type UploadService struct {
	repo      repository.UploadRepository
	validator *upload.Validator
	extractor *parser.Extractor
	cfg       Config
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewUploadService creates the upload orchestrator.
func NewUploadService(repo repository.UploadRepository, validator *upload.Validator, cfg Config, logger *slog.Logger) *UploadService {
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = DefaultConfig().MaxRows
	}
	if len(cfg.AllowedExtensions) == 0 {
		cfg.AllowedExtensions = DefaultConfig().AllowedExtensions
	}
	return &UploadService{
		repo:      repo,
		validator: validator,
		extractor: parser.NewExtractor(),
		cfg:       cfg,
		logger:    logger,
	}
}

// WithMetrics adds Prometheus instrumentation to the service.
func (s *UploadService) WithMetrics(m *metrics.Metrics) *UploadService {
	s.metrics = m
	return s
}

// ProcessUpload runs one complete upload invocation. A batch-level
// rejection (bad parameters, duplicate batch, unreadable or empty file)
// comes back as a failed Result with a nil error; a returned Go error
// means the invocation itself failed and nothing was persisted beyond
// what the error says.
//
// The row loop never aborts on a bad row: every judged row either
// produces an accepted record or at least one error entry, and all
// accepted records are persisted even when other rows failed.
func (s *UploadService) ProcessUpload(ctx context.Context, filename string, file io.Reader, params upload.Params) (*upload.Result, error) {
	start := time.Now()
	logger := s.logger.With(
		slog.String("invocation_id", uuid.NewString()),
		slog.String("batch_no", params.BatchNo),
		slog.String("filename", filename),
	)
	logger.Info("starting batch upload")

	if err := params.Validate(); err != nil {
		logger.Warn("upload parameters rejected", slog.Any("error", err))
		return s.finish(upload.ErrorResult(params.BatchNo, err.Error()), start, logger), nil
	}

	if ext := strings.ToLower(filepath.Ext(filename)); !s.extensionAllowed(ext) {
		logger.Warn("file extension rejected", slog.String("ext", ext))
		return s.finish(upload.ErrorResult(params.BatchNo,
			fmt.Sprintf("Invalid file format '%s'. Please upload an Excel file (%s)",
				ext, strings.Join(s.cfg.AllowedExtensions, ", "))), start, logger), nil
	}

	exists, err := s.repo.ExistsByBatch(ctx, params.BatchNo)
	if err != nil {
		return nil, fmt.Errorf("failed to check for duplicate batch: %w", err)
	}
	if exists {
		logger.Warn("duplicate batch rejected")
		return s.finish(upload.ErrorResult(params.BatchNo,
			fmt.Sprintf("Batch %s already exists in the system", params.BatchNo)), start, logger), nil
	}

	wb, err := parser.OpenWorkbook(file, logger)
	if err != nil {
		logger.Warn("failed to open workbook", slog.Any("error", err))
		return s.finish(upload.ErrorResult(params.BatchNo,
			"Failed to read Excel file. The file may be corrupted or not a valid workbook"), start, logger), nil
	}
	defer wb.Close()

	rows, err := wb.DataRows()
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet rows: %w", err)
	}
	if len(rows) == 0 {
		logger.Warn("workbook has no data rows")
		return s.finish(upload.ErrorResult(params.BatchNo,
			fmt.Sprintf("Excel file contains no data rows. Expected data starting from row %d", parser.HeaderRows+1)), start, logger), nil
	}

	var (
		accepted  []*upload.Detail
		rowErrors []upload.RowError
		judged    int
	)
	for _, row := range rows {
		if judged >= s.cfg.MaxRows {
			logger.Warn("row limit reached, dropping remaining rows",
				slog.Int("limit", s.cfg.MaxRows),
				slog.Int("first_dropped_row", row.Number),
			)
			break
		}

		detail, rowErr := s.extractor.Extract(row, params, row.Number)
		if detail == nil && rowErr == nil {
			continue
		}
		judged++

		if rowErr != nil {
			rowErrors = append(rowErrors, *rowErr)
			continue
		}
		if errs := s.validator.Validate(ctx, detail, row.Number); len(errs) > 0 {
			rowErrors = append(rowErrors, errs...)
			continue
		}
		accepted = append(accepted, detail)
	}

	if len(accepted) > 0 {
		if err := s.repo.SaveAll(ctx, accepted); err != nil {
			return nil, fmt.Errorf("failed to persist batch %s: %w", params.BatchNo, err)
		}
	}

	result := upload.PartialSuccess(params.BatchNo, judged, len(accepted), judged-len(accepted))
	if rowErrors != nil {
		result.Errors = rowErrors
	}
	logger.Info("batch upload finished",
		slog.Int("total_rows", result.TotalRows),
		slog.Int("success_count", result.SuccessCount),
		slog.Int("error_count", result.ErrorCount),
	)
	return s.finish(result, start, logger), nil
}

func (s *UploadService) extensionAllowed(ext string) bool {
	for _, allowed := range s.cfg.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// finish stamps timing onto the result and records metrics.
func (s *UploadService) finish(r *upload.Result, start time.Time, logger *slog.Logger) *upload.Result {
	elapsed := time.Since(start)
	r.ProcessingTimeMs = elapsed.Milliseconds()
	r.UploadedAt = time.Now()

	if s.metrics != nil {
		s.metrics.ObserveUpload(r.Success, elapsed)
		s.metrics.AddRows(r.SuccessCount)
		for _, e := range r.Errors {
			s.metrics.CountRowError(string(e.Code))
		}
	}
	logger.Debug("upload timing", slog.Duration("elapsed", elapsed))
	return r
}

// BatchExists reports whether any record of the batch is stored.
func (s *UploadService) BatchExists(ctx context.Context, batchNo string) (bool, error) {
	return s.repo.ExistsByBatch(ctx, batchNo)
}

// DeleteBatch removes every record of a pending batch. A batch with any
// processed record cannot be deleted and returns ErrBatchProcessed; an
// unknown batch returns ErrBatchNotFound.
func (s *UploadService) DeleteBatch(ctx context.Context, batchNo string) (int64, error) {
	processed, err := s.repo.ExistsByBatchAndStatus(ctx, batchNo, upload.StatusProcessed)
	if err != nil {
		return 0, fmt.Errorf("failed to check batch %s status: %w", batchNo, err)
	}
	if processed {
		return 0, upload.ErrBatchProcessed
	}

	deleted, err := s.repo.DeleteByBatch(ctx, batchNo)
	if err != nil {
		return 0, fmt.Errorf("failed to delete batch %s: %w", batchNo, err)
	}
	if deleted == 0 {
		return 0, upload.ErrBatchNotFound
	}
	s.logger.Info("batch deleted",
		slog.String("batch_no", batchNo),
		slog.Int64("rows", deleted),
	)
	return deleted, nil
}

// UpdateBatchStatus flips the upload status across a whole batch, for
// the downstream processor to mark a batch picked up.
func (s *UploadService) UpdateBatchStatus(ctx context.Context, batchNo, status string) (int64, error) {
	if status != upload.StatusPending && status != upload.StatusProcessed {
		return 0, fmt.Errorf("invalid upload status %q", status)
	}
	updated, err := s.repo.UpdateStatusByBatch(ctx, batchNo, status)
	if err != nil {
		return 0, fmt.Errorf("failed to update batch %s: %w", batchNo, err)
	}
	if updated == 0 {
		return 0, upload.ErrBatchNotFound
	}
	return updated, nil
}

// BatchSummary lists the stored batches, most recent first.
func (s *UploadService) BatchSummary(ctx context.Context) ([]upload.BatchSummary, error) {
	return s.repo.BatchSummary(ctx)
}

// BatchStatistics returns processing counters for one batch.
func (s *UploadService) BatchStatistics(ctx context.Context, batchNo string) (*upload.BatchStats, error) {
	stats, err := s.repo.BatchStatistics(ctx, batchNo)
	if err != nil {
		if errors.Is(err, upload.ErrBatchNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get statistics for batch %s: %w", batchNo, err)
	}
	return stats, nil
}

// PurgeSoftDeleted removes records flagged for deletion. Wired to the
// nightly maintenance schedule.
func (s *UploadService) PurgeSoftDeleted(ctx context.Context) (int64, error) {
	purged, err := s.repo.PurgeSoftDeleted(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to purge soft-deleted records: %w", err)
	}
	if purged > 0 {
		s.logger.Info("purged soft-deleted upload records", slog.Int64("rows", purged))
	}
	return purged, nil
}
