package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	_ "github.com/noah-isme/student-management-api/api/swagger"
	"github.com/noah-isme/student-management-api/internal/handler"
	"github.com/noah-isme/student-management-api/internal/repository"
	"github.com/noah-isme/student-management-api/internal/router"
	"github.com/noah-isme/student-management-api/internal/service"
	"github.com/noah-isme/student-management-api/migrations"
	"github.com/noah-isme/student-management-api/pkg/cache"
	"github.com/noah-isme/student-management-api/pkg/config"
	"github.com/noah-isme/student-management-api/pkg/database"
	"github.com/noah-isme/student-management-api/pkg/jobs"
	"github.com/noah-isme/student-management-api/pkg/logger"
	"github.com/noah-isme/student-management-api/pkg/scheduler"
	"github.com/noah-isme/student-management-api/pkg/storage"
)

// @title Student Management API
// @version 1.0.0
// @description Departments, students, courses and enrollments with asynchronous exports.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(ctx, cfg.Database, logr)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if _, err := database.Migrate(ctx, db, migrations.Files, logr); err != nil {
			return err
		}
	}

	metrics := service.NewMetricsService()
	validate := service.NewValidator()
	checks := map[string]handler.Pinger{"database": db}

	var cacheRepo service.CacheRepository
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			defer client.Close()
			checks["redis"] = cache.Pinger{Client: client}
			cacheRepo = repository.NewCacheRepository(client, cfg.Redis.Namespace)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled)

	departmentRepo := repository.NewDepartmentRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	userRepo := repository.NewUserRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	departmentSvc := service.NewDepartmentService(departmentRepo, studentRepo, cacheSvc, cfg.Cache.TTL, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, departmentRepo, cacheSvc, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, studentRepo, courseRepo,
		service.GradeScale{Min: cfg.Grading.MinGrade, Max: cfg.Grading.MaxGrade}, metrics, validate, logr)

	handlers := router.Handlers{
		Auth:        handler.NewAuthHandler(authSvc),
		Departments: handler.NewDepartmentHandler(departmentSvc),
		Students:    handler.NewStudentHandler(studentSvc),
		Courses:     handler.NewCourseHandler(courseSvc),
		Enrollments: handler.NewEnrollmentHandler(enrollmentSvc),
		Metrics:     handler.NewMetricsHandler(metrics, checks),
	}

	var (
		queue *jobs.Queue
		cron  *scheduler.Scheduler
	)
	if cfg.Reports.Enabled {
		reports, q, s, err := setupReports(ctx, cfg, db, enrollmentRepo, metrics, validate, logr)
		if err != nil {
			return err
		}
		handlers.Reports = handler.NewReportHandler(reports)
		queue, cron = q, s
	}

	engine := router.New(router.Dependencies{
		Config:   cfg,
		Logger:   logr,
		Tokens:   authSvc,
		Requests: metrics,
	}, handlers)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("http shutdown", zap.Error(err))
	}
	if cron != nil {
		if err := cron.Stop(shutdownCtx); err != nil {
			logr.Warn("scheduler shutdown", zap.Error(err))
		}
	}
	if queue != nil {
		queue.Stop()
	}
	return nil
}

func setupReports(
	ctx context.Context,
	cfg *config.Config,
	db *sqlx.DB,
	enrollments *repository.EnrollmentRepository,
	metrics *service.MetricsService,
	validate *validator.Validate,
	logr *zap.Logger,
) (*service.ReportService, *jobs.Queue, *scheduler.Scheduler, error) {
	store, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init report storage: %w", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
	exporter := service.NewExportService(enrollments, store, signer, service.ExportConfig{
		APIPrefix:        cfg.APIPrefix,
		CSVByteOrderMark: cfg.Reports.CSVByteOrderMark,
	}, logr)

	reportRepo := repository.NewReportRepository(db)
	worker := service.NewReportWorker(reportRepo, exporter, metrics, cfg.Reports.WorkerRetries, logr)
	queue := jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		Logger:     logr,
	})
	queue.Start(ctx)

	reports := service.NewReportService(reportRepo, queue, exporter, validate, logr, service.ReportServiceConfig{
		ResultTTL: signer.TTL(),
	})
	if n := reports.RecoverPendingJobs(ctx); n > 0 {
		logr.Info("re-queued pending report jobs", zap.Int("count", n))
	}

	cron := scheduler.New(logr)
	if err := cron.Register("report-cleanup", cfg.Reports.CleanupSchedule, func(ctx context.Context) error {
		_, err := reports.CleanupExpired(ctx)
		return err
	}); err != nil {
		queue.Stop()
		return nil, nil, nil, fmt.Errorf("schedule report cleanup: %w", err)
	}
	cron.Start()
	if next, ok := cron.Next("report-cleanup"); ok {
		logr.Info("report cleanup scheduled", zap.Time("next_run", next))
	}

	return reports, queue, cron, nil
}
