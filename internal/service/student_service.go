package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/student-management-api/internal/dto"
	"github.com/noah-isme/student-management-api/internal/models"
	"github.com/noah-isme/student-management-api/internal/repository"
	appErrors "github.com/noah-isme/student-management-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, id int64) (*models.StudentDetail, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id int64) error
}

type departmentLookup interface {
	FindByID(ctx context.Context, id int64) (*models.Department, error)
}

// StudentService handles student use-cases.
type StudentService struct {
	repo        studentRepository
	departments departmentLookup
	cache       readCache
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewStudentService constructs the student service. Writes evict cached
// department reads because those embed the student list.
func NewStudentService(repo studentRepository, departments departmentLookup, cache readCache, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, departments: departments, cache: cache, validator: validate, logger: logger}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list students")
	}
	if students == nil {
		students = []models.StudentDetail{}
	}
	return students, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns detailed student information.
func (s *StudentService) Get(ctx context.Context, id int64) (*models.StudentDetail, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Internal(err, "failed to load student")
	}
	return student, nil
}

// Create registers a new student.
func (s *StudentService) Create(ctx context.Context, req dto.StudentRequest) (*models.Student, error) {
	req = normaliseStudent(req)
	if err := s.validate(ctx, req); err != nil {
		return nil, err
	}
	student := &models.Student{}
	applyStudent(student, req)
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, s.writeError(err, "failed to create student")
	}
	invalidateDepartments(ctx, s.cache)
	return student, nil
}

// Update modifies an existing student record.
func (s *StudentService) Update(ctx context.Context, id int64, req dto.StudentRequest) (*models.Student, error) {
	req = normaliseStudent(req)
	if err := s.validate(ctx, req); err != nil {
		return nil, err
	}
	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	student := detail.Student
	applyStudent(&student, req)
	if err := s.repo.Update(ctx, &student); err != nil {
		return nil, s.writeError(err, "failed to update student")
	}
	invalidateDepartments(ctx, s.cache)
	return &student, nil
}

// Delete removes a student. Enrollments keep their rows without the student reference.
func (s *StudentService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Internal(err, "failed to delete student")
	}
	invalidateDepartments(ctx, s.cache)
	s.logger.Info("student deleted", zap.Int64("student_id", id))
	return nil
}

func (s *StudentService) validate(ctx context.Context, req dto.StudentRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Validation(err, "invalid student payload")
	}
	if req.DateOfBirth != nil && req.DateOfBirth.Time().After(models.Today().Time()) {
		return appErrors.Clone(appErrors.ErrValidation, "date of birth cannot be in the future")
	}
	if req.DepartmentID == nil {
		return nil
	}
	if _, err := s.departments.FindByID(ctx, *req.DepartmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "department not found")
		}
		return appErrors.Internal(err, "failed to load department")
	}
	return nil
}

func (s *StudentService) writeError(err error, message string) error {
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return appErrors.Clone(appErrors.ErrConflict, "email already used")
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	default:
		return appErrors.Internal(err, message)
	}
}

func normaliseStudent(req dto.StudentRequest) dto.StudentRequest {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Phone = strings.TrimSpace(req.Phone)
	req.Address = strings.TrimSpace(req.Address)
	return req
}

func applyStudent(student *models.Student, req dto.StudentRequest) {
	student.FirstName = req.FirstName
	student.LastName = req.LastName
	student.Email = req.Email
	student.Phone = req.Phone
	student.DateOfBirth = req.DateOfBirth
	student.Address = req.Address
	student.DepartmentID = req.DepartmentID
}
