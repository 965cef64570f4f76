package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ReportType enumerates supported asynchronous report categories.
type ReportType string

const (
	// ReportTypeRoster lists every enrollment of a department or course.
	ReportTypeRoster ReportType = "roster"
	// ReportTypeGrades lists graded enrollments only.
	ReportTypeGrades ReportType = "grades"
)

// ReportFormat enumerates supported export formats.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// ReportStatus is the lifecycle of an export job:
// QUEUED -> PROCESSING -> FINISHED | FAILED, with failed attempts going back to
// QUEUED until the retry budget is spent.
type ReportStatus string

const (
	ReportStatusQueued     ReportStatus = "QUEUED"
	ReportStatusProcessing ReportStatus = "PROCESSING"
	ReportStatusFinished   ReportStatus = "FINISHED"
	ReportStatusFailed     ReportStatus = "FAILED"
)

// Settled reports whether the job reached a final state.
func (s ReportStatus) Settled() bool {
	return s == ReportStatusFinished || s == ReportStatusFailed
}

// Scoped reports whether the params narrow the export to a department or a
// course. Roster exports require a scope.
func (p ReportJobParams) Scoped() bool {
	return p.DepartmentID != nil || p.CourseID != nil
}

// ReportJob is one export request and its progress.
type ReportJob struct {
	ID           string          `db:"id" json:"id"`
	Type         ReportType      `db:"type" json:"type"`
	Params       ReportJobParams `db:"params" json:"params"`
	Status       ReportStatus    `db:"status" json:"status"`
	Progress     int             `db:"progress" json:"progress"`
	ResultURL    *string         `db:"result_url" json:"result_url,omitempty"`
	CreatedBy    int64           `db:"created_by" json:"created_by"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	FinishedAt   *time.Time      `db:"finished_at" json:"finished_at,omitempty"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
}

// ReportJobParams selects the enrollments to export. Stored as JSONB.
type ReportJobParams struct {
	DepartmentID *int64       `json:"departmentId,omitempty"`
	CourseID     *int64       `json:"courseId,omitempty"`
	Status       Status       `json:"status,omitempty"`
	Format       ReportFormat `json:"format"`
}

// Value implements driver.Valuer.
func (p ReportJobParams) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements sql.Scanner for the JSONB params column.
func (p *ReportJobParams) Scan(src interface{}) error {
	*p = ReportJobParams{}
	var raw []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("report job params: cannot scan %T", src)
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, p)
}
