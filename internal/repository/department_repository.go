package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/student-management-api/internal/models"
)

const departmentColumns = `id, name, location, COALESCE(phone, '') AS phone, COALESCE(head, '') AS head, created_at, updated_at`

// DepartmentRepository handles persistence of departments.
type DepartmentRepository struct {
	db *sqlx.DB
}

// NewDepartmentRepository constructs the repository.
func NewDepartmentRepository(db *sqlx.DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

// List returns departments matching the filter plus the total count.
func (r *DepartmentRepository) List(ctx context.Context, filter models.DepartmentFilter) ([]models.Department, int, error) {
	var where whereBuilder
	where.addSearch(filter.Search, "name", "location", "head")

	order := orderBy(map[string]string{
		"id":       "id",
		"name":     "name",
		"location": "location",
	}, filter.SortBy, "name", filter.SortOrder, "ASC")
	limit, offset := pageBounds(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s FROM departments%s ORDER BY %s LIMIT %d OFFSET %d", departmentColumns, where.clause(), order, limit, offset)
	var departments []models.Department
	if err := r.db.SelectContext(ctx, &departments, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list departments: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM departments"+where.clause(), where.args...); err != nil {
		return nil, 0, fmt.Errorf("count departments: %w", err)
	}
	return departments, total, nil
}

// FindByID returns a department by its ID.
func (r *DepartmentRepository) FindByID(ctx context.Context, id int64) (*models.Department, error) {
	query := fmt.Sprintf("SELECT %s FROM departments WHERE id = $1", departmentColumns)
	var department models.Department
	if err := r.db.GetContext(ctx, &department, query, id); err != nil {
		return nil, err
	}
	return &department, nil
}

// Create inserts a department and assigns its identity.
func (r *DepartmentRepository) Create(ctx context.Context, department *models.Department) error {
	now := time.Now().UTC()
	department.CreatedAt = now
	department.UpdatedAt = now
	const query = `INSERT INTO departments (name, location, phone, head, created_at, updated_at)
        VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, department.Name, department.Location, department.Phone, department.Head, now, now).Scan(&department.ID); err != nil {
		return fmt.Errorf("create department: %w", err)
	}
	return nil
}

// Update overwrites the mutable fields of a department.
func (r *DepartmentRepository) Update(ctx context.Context, department *models.Department) error {
	department.UpdatedAt = time.Now().UTC()
	const query = `UPDATE departments SET name = $2, location = $3, phone = NULLIF($4, ''), head = NULLIF($5, ''), updated_at = $6 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, department.ID, department.Name, department.Location, department.Phone, department.Head, department.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update department: %w", err)
	}
	return expectAffected(res)
}

// Delete removes a department. Students keep existing with a NULL department.
func (r *DepartmentRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM departments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete department: %w", err)
	}
	return expectAffected(res)
}

// expectAffected maps a zero-row write to sql.ErrNoRows.
func expectAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
