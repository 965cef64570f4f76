package dto

import "github.com/noah-isme/student-management-api/internal/models"

// EnrollRequest registers a student to a course. Date defaults to today and
// status to PENDING.
type EnrollRequest struct {
	StudentID      int64         `json:"student_id" validate:"required,min=1"`
	CourseID       int64         `json:"course_id" validate:"required,min=1"`
	EnrollmentDate *models.Date  `json:"enrollment_date"`
	Status         models.Status `json:"status" validate:"omitempty,oneof=PENDING ACTIVE"`
}

// UpdateGradeRequest sets or clears (null) the grade.
type UpdateGradeRequest struct {
	Grade *float64 `json:"grade"`
}

// ChangeStatusRequest moves an enrollment along its lifecycle. Grade may be
// supplied together with COMPLETED.
type ChangeStatusRequest struct {
	Status models.Status `json:"status" validate:"required,oneof=PENDING ACTIVE COMPLETED DROPPED"`
	Grade  *float64      `json:"grade"`
}
