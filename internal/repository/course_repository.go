package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/student-management-api/internal/models"
)

const courseColumns = `id, code, name, credits, COALESCE(description, '') AS description, created_at, updated_at`

// CourseRepository persists courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns courses ordered and paginated.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	var where whereBuilder
	where.addSearch(filter.Search, "code", "name")

	order := orderBy(map[string]string{
		"code":    "code",
		"name":    "name",
		"credits": "credits",
	}, filter.SortBy, "code", filter.SortOrder, "ASC")
	limit, offset := pageBounds(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s FROM courses%s ORDER BY %s LIMIT %d OFFSET %d", courseColumns, where.clause(), order, limit, offset)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM courses"+where.clause(), where.args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// FindByID fetches a course by ID.
func (r *CourseRepository) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	var course models.Course
	if err := r.db.GetContext(ctx, &course, fmt.Sprintf("SELECT %s FROM courses WHERE id = $1", courseColumns), id); err != nil {
		return nil, err
	}
	return &course, nil
}

// Create inserts a course. A duplicate code yields ErrDuplicate.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now
	const query = `INSERT INTO courses (code, name, credits, description, created_at, updated_at)
        VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, course.Code, course.Name, course.Credits, course.Description, now, now).Scan(&course.ID); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update modifies a course.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET code = $2, name = $3, credits = $4, description = NULLIF($5, ''), updated_at = $6 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, course.ID, course.Code, course.Name, course.Credits, course.Description, course.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("update course: %w", err)
	}
	return expectAffected(res)
}

// Delete removes a course.
func (r *CourseRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return expectAffected(res)
}
