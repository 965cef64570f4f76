package dto

import (
	"time"

	"github.com/noah-isme/student-management-api/internal/models"
)

// ReportRequest is the body of POST /reports.
type ReportRequest struct {
	Type         models.ReportType   `json:"type" validate:"required,oneof=roster grades"`
	DepartmentID *int64              `json:"departmentId,omitempty" validate:"omitempty,min=1"`
	CourseID     *int64              `json:"courseId,omitempty" validate:"omitempty,min=1"`
	Status       models.Status       `json:"status,omitempty" validate:"omitempty,oneof=PENDING ACTIVE COMPLETED DROPPED"`
	Format       models.ReportFormat `json:"format" validate:"omitempty,oneof=csv pdf"`
}

// Params converts the request into the persisted job parameters.
func (r ReportRequest) Params() models.ReportJobParams {
	return models.ReportJobParams{
		DepartmentID: r.DepartmentID,
		CourseID:     r.CourseID,
		Status:       r.Status,
		Format:       r.Format,
	}
}

// ReportJobResponse is returned after enqueueing a report.
type ReportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ReportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ReportStatusResponse is the body of GET /reports/:id.
type ReportStatusResponse struct {
	ID         string              `json:"id"`
	Type       models.ReportType   `json:"type,omitempty"`
	Format     models.ReportFormat `json:"format,omitempty"`
	Status     models.ReportStatus `json:"status"`
	Progress   int                 `json:"progress"`
	ResultURL  *string             `json:"resultUrl,omitempty"`
	Error      *string             `json:"error,omitempty"`
	CreatedAt  *time.Time          `json:"createdAt,omitempty"`
	FinishedAt *time.Time          `json:"finishedAt,omitempty"`
}

// NewReportStatusResponse exposes job without its owner. The download URL is
// only shown once the job finished.
func NewReportStatusResponse(job *models.ReportJob) *ReportStatusResponse {
	resp := &ReportStatusResponse{
		ID:         job.ID,
		Type:       job.Type,
		Format:     job.Params.Format,
		Status:     job.Status,
		Progress:   job.Progress,
		FinishedAt: job.FinishedAt,
	}
	if !job.CreatedAt.IsZero() {
		created := job.CreatedAt
		resp.CreatedAt = &created
	}
	if job.Status == models.ReportStatusFinished {
		resp.ResultURL = job.ResultURL
	}
	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		resp.Error = job.ErrorMessage
	}
	return resp
}
