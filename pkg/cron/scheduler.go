// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vrbank/batch-upload/internal/domain/upload/service"
)

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron      *cron.Cron
	uploadSvc *service.UploadService
	logger    *slog.Logger
}

// NewScheduler creates a new job scheduler.
func NewScheduler(uploadSvc *service.UploadService, logger *slog.Logger) *Scheduler {
	// Create cron with seconds disabled (standard 5-field format)
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:      c,
		uploadSvc: uploadSvc,
		logger:    logger,
	}
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	// Soft-delete purge: runs daily at 2:00 AM
	_, err := s.cron.AddFunc("0 2 * * *", s.purgeSoftDeleted)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow manually triggers the purge (for testing/admin).
func (s *Scheduler) RunNow() {
	go s.purgeSoftDeleted()
}

// purgeSoftDeleted removes upload records flagged for deletion.
func (s *Scheduler) purgeSoftDeleted() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	s.logger.Info("starting nightly soft-delete purge")

	purged, err := s.uploadSvc.PurgeSoftDeleted(ctx)
	if err != nil {
		s.logger.Error("soft-delete purge failed", slog.Any("error", err))
		return
	}

	s.logger.Info("nightly soft-delete purge completed",
		slog.Int64("rows_purged", purged),
	)
}
