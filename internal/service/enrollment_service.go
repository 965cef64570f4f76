package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/student-management-api/internal/dto"
	"github.com/noah-isme/student-management-api/internal/models"
	"github.com/noah-isme/student-management-api/internal/repository"
	appErrors "github.com/noah-isme/student-management-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id int64) (*models.Enrollment, error)
	FindDetailByID(ctx context.Context, id int64) (*models.EnrollmentDetail, error)
	ExistsOpen(ctx context.Context, studentID, courseID int64) (bool, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	UpdateGrade(ctx context.Context, id int64, grade *float64) error
	UpdateStatus(ctx context.Context, id int64, from, to models.Status, grade *float64) error
	Delete(ctx context.Context, id int64) error
}

type studentLookup interface {
	FindByID(ctx context.Context, id int64) (*models.StudentDetail, error)
}

type courseLookup interface {
	FindByID(ctx context.Context, id int64) (*models.Course, error)
}

// GradeScale bounds accepted grades, inclusive on both ends.
type GradeScale struct {
	Min float64
	Max float64
}

// Contains reports whether g lies on the scale.
func (g GradeScale) Contains(grade float64) bool {
	return grade >= g.Min && grade <= g.Max
}

// EnrollmentService applies the enrollment lifecycle rules.
type EnrollmentService struct {
	repo      enrollmentRepository
	students  studentLookup
	courses   courseLookup
	scale     GradeScale
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	today     func() models.Date
}

// NewEnrollmentService constructs the service. An empty scale falls back to 0-20.
func NewEnrollmentService(repo enrollmentRepository, students studentLookup, courses courseLookup, scale GradeScale, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if scale.Max <= scale.Min {
		scale = GradeScale{Min: 0, Max: 20}
	}
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		repo:      repo,
		students:  students,
		courses:   courses,
		scale:     scale,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		today:     models.Today,
	}
}

// List returns enrollments with pagination.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown enrollment status")
	}
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list enrollments")
	}
	if enrollments == nil {
		enrollments = []models.EnrollmentDetail{}
	}
	return enrollments, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns one enrollment with student and course names.
func (s *EnrollmentService) Get(ctx context.Context, id int64) (*models.EnrollmentDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Internal(err, "failed to load enrollment")
	}
	return detail, nil
}

// Enroll registers a student to a course.
func (s *EnrollmentService) Enroll(ctx context.Context, req dto.EnrollRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid enrollment payload")
	}
	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		return nil, lookupError(err, "student")
	}
	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		return nil, lookupError(err, "course")
	}

	open, err := s.repo.ExistsOpen(ctx, req.StudentID, req.CourseID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check existing enrollment")
	}
	if open {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already holds an open enrollment in this course")
	}

	date := s.today()
	if req.EnrollmentDate != nil && !req.EnrollmentDate.IsZero() {
		date = *req.EnrollmentDate
	}
	status := req.Status
	if status == "" {
		status = models.StatusPending
	}
	studentID, courseID := req.StudentID, req.CourseID
	enrollment := models.NewEnrollment(0, date, nil, status, &studentID, &courseID)
	if err := s.repo.Create(ctx, enrollment); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student already holds an open enrollment in this course")
		}
		return nil, appErrors.Internal(err, "failed to create enrollment")
	}
	s.logger.Info("student enrolled",
		zap.Int64("enrollment_id", enrollment.ID),
		zap.Int64("student_id", studentID),
		zap.Int64("course_id", courseID),
		zap.String("status", status.String()),
	)
	return s.Get(ctx, enrollment.ID)
}

// UpdateGrade sets the grade, or clears it when req.Grade is nil.
func (s *EnrollmentService) UpdateGrade(ctx context.Context, id int64, req dto.UpdateGradeRequest) (*models.EnrollmentDetail, error) {
	enrollment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Grade != nil {
		if err := s.checkGrade(*req.Grade); err != nil {
			return nil, err
		}
	} else if enrollment.Status.RequiresGrade() {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "grade of a completed enrollment cannot be cleared")
	}
	if err := s.repo.UpdateGrade(ctx, id, req.Grade); err != nil {
		return nil, s.conditionalWriteError(ctx, id, err, appErrors.ErrPreconditionFailed,
			"grade of a completed enrollment cannot be cleared", "failed to update grade")
	}
	return s.Get(ctx, id)
}

// ChangeStatus moves an enrollment to a new status following the lifecycle.
func (s *EnrollmentService) ChangeStatus(ctx context.Context, id int64, req dto.ChangeStatusRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid status payload")
	}
	enrollment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	current, target := enrollment.Status, req.Status
	if !current.CanTransitionTo(target) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot move enrollment from %s to %s", current, target))
	}
	if req.Grade != nil {
		if err := s.checkGrade(*req.Grade); err != nil {
			return nil, err
		}
	}
	if target.RequiresGrade() && !enrollment.HasGrade() && req.Grade == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "a grade is required to complete an enrollment")
	}

	if err := s.repo.UpdateStatus(ctx, id, current, target, req.Grade); err != nil {
		return nil, s.conditionalWriteError(ctx, id, err, appErrors.ErrInvalidTransition,
			fmt.Sprintf("enrollment left %s before it could move to %s", current, target), "failed to update status")
	}
	if current != target {
		s.metrics.ObserveStatusTransition(current, target)
		s.logger.Info("enrollment status changed",
			zap.Int64("enrollment_id", id),
			zap.String("from", current.String()),
			zap.String("to", target.String()),
		)
	}
	return s.Get(ctx, id)
}

// conditionalWriteError maps a guarded write that matched no row. The row is
// either gone or no longer in the state the write was checked against.
func (s *EnrollmentService) conditionalWriteError(ctx context.Context, id int64, err error, stale *appErrors.Error, staleMsg, internalMsg string) error {
	if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Internal(err, internalMsg)
	}
	if _, lookupErr := s.repo.FindByID(ctx, id); lookupErr != nil {
		if errors.Is(lookupErr, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Internal(lookupErr, internalMsg)
	}
	return appErrors.Clone(stale, staleMsg)
}

// Delete removes an enrollment.
func (s *EnrollmentService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.writeError(err, "failed to delete enrollment")
	}
	return nil
}

func (s *EnrollmentService) load(ctx context.Context, id int64) (*models.Enrollment, error) {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Internal(err, "failed to load enrollment")
	}
	return enrollment, nil
}

func (s *EnrollmentService) checkGrade(grade float64) error {
	if !s.scale.Contains(grade) {
		return appErrors.Clone(appErrors.ErrGradeOutOfRange, fmt.Sprintf("grade must be between %g and %g", s.scale.Min, s.scale.Max))
	}
	return nil
}

func (s *EnrollmentService) writeError(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
	}
	return appErrors.Internal(err, message)
}

func lookupError(err error, entity string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, entity+" not found")
	}
	return appErrors.Internal(err, "failed to load "+entity)
}
