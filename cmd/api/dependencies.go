package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vrbank/batch-upload/internal/domain/account"
	"github.com/vrbank/batch-upload/internal/domain/upload"
	uploadhandler "github.com/vrbank/batch-upload/internal/domain/upload/handler"
	uploadrepo "github.com/vrbank/batch-upload/internal/domain/upload/repository"
	uploadservice "github.com/vrbank/batch-upload/internal/domain/upload/service"

	"github.com/vrbank/batch-upload/pkg/config"
	"github.com/vrbank/batch-upload/pkg/cron"
	"github.com/vrbank/batch-upload/pkg/db"
	"github.com/vrbank/batch-upload/pkg/metrics"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	Logger *slog.Logger

	// Repositories
	UploadRepo uploadrepo.UploadRepository

	// Services
	AccountValidator *account.Validator
	RecordValidator  *upload.Validator
	UploadService    *uploadservice.UploadService
	Metrics          *metrics.Metrics
	Scheduler        *cron.Scheduler

	// Handlers
	UploadHandler *uploadhandler.UploadHandler
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	deps.initRepositories()
	deps.initServices()
	deps.initHandlers()

	logger.Info("all dependencies initialized successfully")

	return deps, nil
}

// initDatabase initializes the database connection and runs migrations
func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database

	if err := d.DB.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initRepositories initializes the repository layer
func (d *Dependencies) initRepositories() {
	d.UploadRepo = uploadrepo.NewPostgresUploadRepository(d.DB.Pool)

	d.Logger.Info("repositories initialized")
}

// initServices initializes the service layer
func (d *Dependencies) initServices() {
	d.AccountValidator = account.NewValidator(d.DB.Pool, d.Logger)
	d.RecordValidator = upload.NewValidator(d.AccountValidator, d.Logger)

	if d.Config.Observability.MetricsEnabled {
		d.Metrics = metrics.New(prometheus.DefaultRegisterer)
	}

	d.UploadService = uploadservice.NewUploadService(
		d.UploadRepo,
		d.RecordValidator,
		uploadservice.Config{
			MaxRows:           d.Config.Upload.MaxRowsPerBatch,
			AllowedExtensions: splitExtensions(d.Config.Upload.AllowedExtensions),
		},
		d.Logger,
	)
	if d.Metrics != nil {
		d.UploadService.WithMetrics(d.Metrics)
	}

	d.Scheduler = cron.NewScheduler(d.UploadService, d.Logger)

	d.Logger.Info("services initialized")
}

// initHandlers initializes the handler layer
func (d *Dependencies) initHandlers() {
	d.UploadHandler = uploadhandler.NewUploadHandler(
		d.UploadService,
		d.AccountValidator,
		int64(d.Config.Upload.MaxFileSizeMB),
		d.Logger,
	)

	d.Logger.Info("handlers initialized")
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.Scheduler != nil {
		<-d.Scheduler.Stop().Done()
	}
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}

func splitExtensions(raw string) []string {
	var exts []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		if !strings.HasPrefix(part, ".") {
			part = "." + part
		}
		exts = append(exts, part)
	}
	return exts
}
