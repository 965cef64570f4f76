package models

import (
	"fmt"
	"strconv"
)

// Enrollment records a student's registration to a course. Grade, StudentID
// and CourseID are optional; nil means absent.
type Enrollment struct {
	ID             int64    `db:"id" json:"id"`
	EnrollmentDate Date     `db:"enrollment_date" json:"enrollment_date"`
	Grade          *float64 `db:"grade" json:"grade"`
	Status         Status   `db:"status" json:"status"`
	StudentID      *int64   `db:"student_id" json:"student_id,omitempty"`
	CourseID       *int64   `db:"course_id" json:"course_id,omitempty"`
}

// NewEnrollment builds an enrollment from all of its fields without validation.
func NewEnrollment(id int64, date Date, grade *float64, status Status, studentID, courseID *int64) *Enrollment {
	return &Enrollment{
		ID:             id,
		EnrollmentDate: date,
		Grade:          grade,
		Status:         status,
		StudentID:      studentID,
		CourseID:       courseID,
	}
}

// SetGrade stores a copy of g as the grade.
func (e *Enrollment) SetGrade(g float64) {
	e.Grade = &g
}

// ClearGrade removes the grade.
func (e *Enrollment) ClearGrade() {
	e.Grade = nil
}

// HasGrade reports whether a grade is present.
func (e Enrollment) HasGrade() bool {
	return e.Grade != nil
}

func (e Enrollment) String() string {
	return fmt.Sprintf("Enrollment{id=%d, enrollmentDate=%s, grade=%s, status=%s, student=%s, course=%s}",
		e.ID, e.EnrollmentDate, formatGrade(e.Grade), e.Status, formatRef(e.StudentID), formatRef(e.CourseID))
}

func formatGrade(g *float64) string {
	if g == nil {
		return "null"
	}
	return strconv.FormatFloat(*g, 'f', -1, 64)
}

func formatRef(id *int64) string {
	if id == nil {
		return "null"
	}
	return strconv.FormatInt(*id, 10)
}

// EnrollmentDetail enriches Enrollment with student and course info.
type EnrollmentDetail struct {
	Enrollment
	StudentName    *string `db:"student_name" json:"student_name,omitempty"`
	CourseCode     *string `db:"course_code" json:"course_code,omitempty"`
	CourseName     *string `db:"course_name" json:"course_name,omitempty"`
	DepartmentName *string `db:"department_name" json:"department_name,omitempty"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID    *int64
	CourseID     *int64
	DepartmentID *int64
	Status       Status
	GradedOnly   bool
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
