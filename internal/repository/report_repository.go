package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/student-management-api/internal/models"
)

const reportColumns = `id, type, params, status, progress, result_url, created_by, created_at, finished_at, error_message`

// ReportRepository persists export jobs in report_jobs.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create inserts job, assigning a uuid and QUEUED status when unset.
func (r *ReportRepository) Create(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.ReportStatusQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO report_jobs (` + reportColumns + `)
VALUES (:id, :type, :params, :status, :progress, :result_url, :created_by, :created_at, :finished_at, :error_message)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create report job: %w", err)
	}
	return nil
}

// GetByID returns sql.ErrNoRows when the job does not exist.
func (r *ReportRepository) GetByID(ctx context.Context, id string) (*models.ReportJob, error) {
	var job models.ReportJob
	err := r.db.GetContext(ctx, &job, `SELECT `+reportColumns+` FROM report_jobs WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get report job: %w", err)
	}
	return &job, nil
}

// UpdateReportJobParams lists the mutable columns; nil fields are left as is.
type UpdateReportJobParams struct {
	Status       *models.ReportStatus
	Progress     *int
	ResultURL    *string
	ErrorMessage *string
	FinishedAt   *time.Time
}

func (p UpdateReportJobParams) assignments() ([]string, []interface{}) {
	var (
		set  []string
		args []interface{}
	)
	add := func(column string, value interface{}) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if p.Status != nil {
		add("status", *p.Status)
	}
	if p.Progress != nil {
		add("progress", *p.Progress)
	}
	if p.ResultURL != nil {
		add("result_url", *p.ResultURL)
	}
	if p.ErrorMessage != nil {
		add("error_message", *p.ErrorMessage)
	}
	if p.FinishedAt != nil {
		add("finished_at", *p.FinishedAt)
	}
	return set, args
}

// Update applies params to the job. It returns sql.ErrNoRows when the job is
// gone, which happens when cleanup races a late worker.
func (r *ReportRepository) Update(ctx context.Context, id string, params UpdateReportJobParams) error {
	set, args := params.assignments()
	if len(set) == 0 {
		return nil
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE report_jobs SET %s WHERE id = $%d", strings.Join(set, ", "), len(args))

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update report job: %w", err)
	}
	return expectAffected(res)
}

// ListPending returns jobs that never reached a final state, oldest first.
// PROCESSING rows are included because a worker that died mid-export leaves
// them behind. Pages are keyed on (created_at, id): pass the last row of the
// previous page as after, or nil for the first page.
func (r *ReportRepository) ListPending(ctx context.Context, after *models.ReportJob, limit int) ([]models.ReportJob, error) {
	if limit <= 0 {
		limit = 20
	}
	var afterCreated time.Time
	var afterID string
	if after != nil {
		afterCreated, afterID = after.CreatedAt, after.ID
	}
	query := `SELECT ` + reportColumns + ` FROM report_jobs WHERE status IN ('QUEUED', 'PROCESSING') AND (created_at, id) > ($1, $2) ORDER BY created_at ASC, id ASC LIMIT $3`
	var jobs []models.ReportJob
	if err := r.db.SelectContext(ctx, &jobs, query, afterCreated, afterID, limit); err != nil {
		return nil, fmt.Errorf("list pending report jobs: %w", err)
	}
	return jobs, nil
}

// ListSettledBefore returns FINISHED and FAILED jobs whose finished_at is older
// than cutoff.
func (r *ReportRepository) ListSettledBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + reportColumns + ` FROM report_jobs WHERE status IN ('FINISHED', 'FAILED') AND finished_at < $1 ORDER BY finished_at ASC LIMIT $2`
	var jobs []models.ReportJob
	if err := r.db.SelectContext(ctx, &jobs, query, cutoff, limit); err != nil {
		return nil, fmt.Errorf("list settled report jobs: %w", err)
	}
	return jobs, nil
}

// Delete removes a job row, returning sql.ErrNoRows when it is already gone.
func (r *ReportRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM report_jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete report job: %w", err)
	}
	return expectAffected(res)
}
