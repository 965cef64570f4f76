package service

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/student-management-api/internal/dto"
	"github.com/noah-isme/student-management-api/internal/models"
	"github.com/noah-isme/student-management-api/internal/repository"
	appErrors "github.com/noah-isme/student-management-api/pkg/errors"
	"github.com/noah-isme/student-management-api/pkg/jobs"
)

const (
	cleanupBatchSize = 100
	recoverBatchSize = 50
)

type reportJobStore interface {
	Create(ctx context.Context, job *models.ReportJob) error
	GetByID(ctx context.Context, id string) (*models.ReportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error
	ListPending(ctx context.Context, after *models.ReportJob, limit int) ([]models.ReportJob, error)
	ListSettledBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error)
	Delete(ctx context.Context, id string) error
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type exportFiles interface {
	ParseToken(token string) (jobID, relPath string, expiresAt time.Time, err error)
	VerifyToken(token string) (jobID, relPath string, err error)
	Open(relPath string) (*os.File, error)
	Delete(relPath string) error
	ContentType(format models.ReportFormat) string
}

type exportGenerator interface {
	Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error)
}

// ReportServiceConfig governs retention of generated files.
type ReportServiceConfig struct {
	ResultTTL time.Duration
}

// ReportDownload aggregates resolved download data.
type ReportDownload struct {
	File        *os.File
	Filename    string
	Format      models.ReportFormat
	ContentType string
	ExpiresAt   time.Time
}

// ReportService orchestrates the report job lifecycle.
type ReportService struct {
	repo      reportJobStore
	queue     jobDispatcher
	files     exportFiles
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ReportServiceConfig
	now       func() time.Time
}

// NewReportService constructs the report service.
func NewReportService(repo reportJobStore, queue jobDispatcher, files exportFiles, validate *validator.Validate, logger *zap.Logger, cfg ReportServiceConfig) *ReportService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ReportService{
		repo:      repo,
		queue:     queue,
		files:     files,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// CreateJob validates the request, persists a QUEUED job and hands it to the
// worker queue.
func (s *ReportService) CreateJob(ctx context.Context, req dto.ReportRequest, actorID int64) (*dto.ReportJobResponse, error) {
	if req.Format == "" {
		req.Format = models.ReportFormatCSV
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid report payload")
	}
	params := req.Params()
	if req.Type == models.ReportTypeRoster && !params.Scoped() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "roster reports require departmentId or courseId")
	}

	job := &models.ReportJob{
		Type:      req.Type,
		Params:    params,
		Status:    models.ReportStatusQueued,
		CreatedBy: actorID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Internal(err, "failed to create report job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
		status := models.ReportStatusFailed
		msg := "failed to enqueue job"
		now := s.now().UTC()
		progress := 100
		if updateErr := s.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
			Status:       &status,
			Progress:     &progress,
			ErrorMessage: &msg,
			FinishedAt:   &now,
		}); updateErr != nil {
			s.logger.Warn("failed to mark unqueued job failed", zap.String("job_id", job.ID), zap.Error(updateErr))
		}
		return nil, appErrors.Internal(err, "failed to enqueue report job")
	}
	s.logger.Info("report job queued", zap.String("job_id", job.ID), zap.String("type", string(job.Type)), zap.Int64("actor_id", actorID))
	return &dto.ReportJobResponse{ID: job.ID, Status: job.Status, Progress: job.Progress}, nil
}

// GetStatus exposes job progress. Staff may only inspect their own jobs.
func (s *ReportService) GetStatus(ctx context.Context, id string, actorID int64, role models.UserRole) (*dto.ReportStatusResponse, error) {
	job, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if role != models.RoleAdmin && job.CreatedBy != actorID {
		return nil, appErrors.ErrForbidden
	}
	return dto.NewReportStatusResponse(job), nil
}

// ResolveDownload validates a signed token and opens the stored file.
func (s *ReportService) ResolveDownload(ctx context.Context, token string) (*ReportDownload, error) {
	jobID, relPath, expiresAt, err := s.files.ParseToken(token)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.load(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.ResultURL == nil || path.Base(*job.ResultURL) != token {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	if job.Status != models.ReportStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "report not ready")
	}
	file, err := s.files.Open(relPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report file no longer available")
		}
		return nil, appErrors.Internal(err, "failed to open export file")
	}
	return &ReportDownload{
		File:        file,
		Filename:    filepath.Base(relPath),
		Format:      job.Params.Format,
		ContentType: s.files.ContentType(job.Params.Format),
		ExpiresAt:   expiresAt,
	}, nil
}

// RecoverPendingJobs re-enqueues jobs a previous process left unsettled.
func (s *ReportService) RecoverPendingJobs(ctx context.Context) int {
	recovered := 0
	var after *models.ReportJob
	for {
		pending, err := s.repo.ListPending(ctx, after, recoverBatchSize)
		if err != nil {
			s.logger.Warn("failed to recover queued report jobs", zap.Error(err))
			break
		}
		for _, job := range pending {
			if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
				s.logger.Warn("failed to requeue pending job", zap.String("job_id", job.ID), zap.Error(err))
				continue
			}
			recovered++
		}
		if len(pending) < recoverBatchSize {
			break
		}
		after = &pending[len(pending)-1]
	}
	if recovered > 0 {
		s.logger.Info("recovered queued report jobs", zap.Int("count", recovered))
	}
	return recovered
}

// CleanupExpired deletes the files and rows of jobs that settled longer than
// the retention period ago. It returns how many jobs were removed.
func (s *ReportService) CleanupExpired(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.cfg.ResultTTL)
	removed := 0
	for {
		expired, err := s.repo.ListSettledBefore(ctx, cutoff, cleanupBatchSize)
		if err != nil {
			return removed, err
		}
		batchRemoved := 0
		for _, job := range expired {
			if job.ResultURL != nil {
				if _, relPath, err := s.files.VerifyToken(path.Base(*job.ResultURL)); err == nil {
					if err := s.files.Delete(relPath); err != nil {
						s.logger.Warn("cleanup delete failed", zap.String("job_id", job.ID), zap.Error(err))
						continue
					}
				}
			}
			if err := s.repo.Delete(ctx, job.ID); err != nil && !errors.Is(err, sql.ErrNoRows) {
				return removed, err
			}
			removed++
			batchRemoved++
		}
		if len(expired) < cleanupBatchSize || batchRemoved == 0 {
			break
		}
	}
	if removed > 0 {
		s.logger.Info("expired reports removed", zap.Int("count", removed))
	}
	return removed, nil
}

func (s *ReportService) load(ctx context.Context, id string) (*models.ReportJob, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, appErrors.Internal(err, "failed to load report job")
	}
	return job, nil
}

// ReportWorker bridges queue jobs to the export generator.
type ReportWorker struct {
	repo       reportJobStore
	exporter   exportGenerator
	metrics    *MetricsService
	logger     *zap.Logger
	maxRetries int
}

// NewReportWorker constructs a worker. maxRetries must match the queue's
// retry budget so the last attempt marks the job FAILED.
func NewReportWorker(repo reportJobStore, exporter exportGenerator, metrics *MetricsService, maxRetries int, logger *zap.Logger) *ReportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &ReportWorker{
		repo:       repo,
		exporter:   exporter,
		metrics:    metrics,
		logger:     logger,
		maxRetries: maxRetries,
	}
}

// Handle processes a queue job.
func (w *ReportWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.repo.GetByID(ctx, job.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			w.logger.Warn("report job vanished before processing", zap.String("job_id", job.ID))
			return nil
		}
		return err
	}
	if record.Status.Settled() {
		return nil
	}

	processing := models.ReportStatusProcessing
	progress := 10
	if err := w.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{Status: &processing, Progress: &progress}); err != nil {
		return err
	}

	started := time.Now()
	result, err := w.exporter.Generate(ctx, record)
	w.metrics.ObserveReportDuration(record.Type, time.Since(started))
	if err != nil {
		w.recordFailure(ctx, record, job.Attempt, err)
		return err
	}

	finished := models.ReportStatusFinished
	progress = 100
	now := time.Now().UTC()
	clear := ""
	if err := w.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
		Status:       &finished,
		Progress:     &progress,
		ResultURL:    &result.URL,
		ErrorMessage: &clear,
		FinishedAt:   &now,
	}); err != nil {
		w.logger.Warn("failed to mark job finished", zap.String("job_id", job.ID), zap.Error(err))
		return err
	}
	w.metrics.ObserveReportJob(record.Type, finished)
	w.logger.Info("report job finished", zap.String("job_id", job.ID), zap.Int("rows", result.Rows))
	return nil
}

func (w *ReportWorker) recordFailure(ctx context.Context, record *models.ReportJob, attempt int, cause error) {
	msg := cause.Error()
	params := repository.UpdateReportJobParams{ErrorMessage: &msg}
	status := models.ReportStatusQueued
	progress := 0
	if attempt >= w.maxRetries {
		status = models.ReportStatusFailed
		progress = 100
		now := time.Now().UTC()
		params.FinishedAt = &now
	}
	params.Status = &status
	params.Progress = &progress
	if err := w.repo.Update(ctx, record.ID, params); err != nil {
		w.logger.Warn("failed to record job failure", zap.String("job_id", record.ID), zap.Error(err))
	}
	if status == models.ReportStatusFailed {
		w.metrics.ObserveReportJob(record.Type, status)
		w.logger.Error("report job failed", zap.String("job_id", record.ID), zap.Int("attempt", attempt), zap.Error(cause))
	}
}
