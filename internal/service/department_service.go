package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/student-management-api/internal/dto"
	"github.com/noah-isme/student-management-api/internal/models"
	appErrors "github.com/noah-isme/student-management-api/pkg/errors"
)

const departmentCachePattern = "departments:*"

type departmentRepository interface {
	List(ctx context.Context, filter models.DepartmentFilter) ([]models.Department, int, error)
	FindByID(ctx context.Context, id int64) (*models.Department, error)
	Create(ctx context.Context, department *models.Department) error
	Update(ctx context.Context, department *models.Department) error
	Delete(ctx context.Context, id int64) error
}

type departmentMemberLister interface {
	ListByDepartment(ctx context.Context, departmentID int64) ([]models.Student, error)
}

// readCache is the subset of CacheService used for cache-aside reads.
type readCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
}

type cachedDepartmentPage struct {
	Items []models.Department `json:"items"`
	Total int                 `json:"total"`
}

// DepartmentService coordinates department use-cases with a read-through cache.
type DepartmentService struct {
	repo      departmentRepository
	members   departmentMemberLister
	cache     readCache
	ttl       time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDepartmentService constructs the department service. cache may be nil.
func NewDepartmentService(repo departmentRepository, members departmentMemberLister, cache readCache, ttl time.Duration, validate *validator.Validate, logger *zap.Logger) *DepartmentService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DepartmentService{repo: repo, members: members, cache: cache, ttl: ttl, validator: validate, logger: logger}
}

// List returns departments and pagination. The boolean reports a cache hit.
func (s *DepartmentService) List(ctx context.Context, filter models.DepartmentFilter) ([]models.Department, *models.Pagination, bool, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	key := fmt.Sprintf("departments:list:%s:%d:%d:%s:%s", filter.Search, filter.Page, filter.PageSize, filter.SortBy, filter.SortOrder)

	var page cachedDepartmentPage
	if s.cacheGet(ctx, key, &page) {
		return page.Items, models.NewPagination(filter.Page, filter.PageSize, page.Total), true, nil
	}

	departments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, false, appErrors.Internal(err, "failed to list departments")
	}
	if departments == nil {
		departments = []models.Department{}
	}
	s.cacheSet(ctx, key, cachedDepartmentPage{Items: departments, Total: total})
	return departments, models.NewPagination(filter.Page, filter.PageSize, total), false, nil
}

// Get returns a department with its students. The boolean reports a cache hit.
func (s *DepartmentService) Get(ctx context.Context, id int64) (*models.Department, bool, error) {
	key := fmt.Sprintf("departments:%d", id)

	var cached models.Department
	if s.cacheGet(ctx, key, &cached) {
		return &cached, true, nil
	}

	department, err := s.load(ctx, id)
	if err != nil {
		return nil, false, err
	}
	students, err := s.members.ListByDepartment(ctx, id)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to load department students")
	}
	department.Students = students
	s.cacheSet(ctx, key, department)
	return department, false, nil
}

// Create registers a new department.
func (s *DepartmentService) Create(ctx context.Context, req dto.DepartmentRequest) (*models.Department, error) {
	req = normaliseDepartment(req)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid department payload")
	}
	department := models.NewDepartment(0, req.Name, req.Location, req.Phone, req.Head, nil)
	if err := s.repo.Create(ctx, department); err != nil {
		return nil, appErrors.Internal(err, "failed to create department")
	}
	s.invalidate(ctx)
	s.logger.Info("department created", zap.Int64("department_id", department.ID), zap.String("name", department.Name))
	return department, nil
}

// Update replaces the mutable fields of a department.
func (s *DepartmentService) Update(ctx context.Context, id int64, req dto.DepartmentRequest) (*models.Department, error) {
	req = normaliseDepartment(req)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid department payload")
	}
	department, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	department.Name = req.Name
	department.Location = req.Location
	department.Phone = req.Phone
	department.Head = req.Head
	if err := s.repo.Update(ctx, department); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "department not found")
		}
		return nil, appErrors.Internal(err, "failed to update department")
	}
	s.invalidate(ctx)
	return department, nil
}

// Delete removes a department; its students become unassigned.
func (s *DepartmentService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "department not found")
		}
		return appErrors.Internal(err, "failed to delete department")
	}
	s.invalidate(ctx)
	s.logger.Info("department deleted", zap.Int64("department_id", id))
	return nil
}

func (s *DepartmentService) load(ctx context.Context, id int64) (*models.Department, error) {
	department, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "department not found")
		}
		return nil, appErrors.Internal(err, "failed to load department")
	}
	return department, nil
}

func (s *DepartmentService) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dest)
	return err == nil && hit
}

func (s *DepartmentService) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Set(ctx, key, value, s.ttl)
}

func (s *DepartmentService) invalidate(ctx context.Context) {
	invalidateDepartments(ctx, s.cache)
}

// invalidateDepartments drops every cached department read. Failures are
// logged by the cache and otherwise ignored; entries expire with their TTL.
func invalidateDepartments(ctx context.Context, cache readCache) {
	if cache == nil {
		return
	}
	_ = cache.Invalidate(ctx, departmentCachePattern)
}

func normaliseDepartment(req dto.DepartmentRequest) dto.DepartmentRequest {
	req.Name = strings.TrimSpace(req.Name)
	req.Location = strings.TrimSpace(req.Location)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Head = strings.TrimSpace(req.Head)
	return req
}
