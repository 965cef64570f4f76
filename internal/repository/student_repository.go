package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/student-management-api/internal/models"
)

const studentColumns = `s.id, s.first_name, s.last_name, s.email, COALESCE(s.phone, '') AS phone, s.date_of_birth,
        COALESCE(s.address, '') AS address, s.department_id, s.created_at, s.updated_at`

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	var where whereBuilder
	if filter.DepartmentID != nil {
		where.add("s.department_id = $%d", *filter.DepartmentID)
	}
	where.addSearch(filter.Search, "s.first_name", "s.last_name", "s.email")

	order := orderBy(map[string]string{
		"last_name":  "s.last_name",
		"first_name": "s.first_name",
		"email":      "s.email",
		"created_at": "s.created_at",
	}, filter.SortBy, "created_at", filter.SortOrder, "DESC")
	limit, offset := pageBounds(filter.Page, filter.PageSize)

	base := "FROM students s LEFT JOIN departments d ON d.id = s.department_id" + where.clause()
	query := fmt.Sprintf("SELECT %s, d.name AS department_name %s ORDER BY %s LIMIT %d OFFSET %d", studentColumns, base, order, limit, offset)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, where.args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student detail by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id int64) (*models.StudentDetail, error) {
	query := fmt.Sprintf(`SELECT %s, d.name AS department_name
        FROM students s LEFT JOIN departments d ON d.id = s.department_id
        WHERE s.id = $1`, studentColumns)
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListByDepartment returns every student attached to a department ordered by name.
func (r *StudentRepository) ListByDepartment(ctx context.Context, departmentID int64) ([]models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students s WHERE s.department_id = $1 ORDER BY s.last_name, s.first_name", studentColumns)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, departmentID); err != nil {
		return nil, fmt.Errorf("list department students: %w", err)
	}
	return students, nil
}

// Create inserts a new student.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now
	const query = `INSERT INTO students (first_name, last_name, email, phone, date_of_birth, address, department_id, created_at, updated_at)
        VALUES ($1, $2, $3, NULLIF($4, ''), $5, NULLIF($6, ''), $7, $8, $9) RETURNING id`
	err := r.db.QueryRowxContext(ctx, query, student.FirstName, student.LastName, student.Email, student.Phone,
		student.DateOfBirth, student.Address, student.DepartmentID, now, now).Scan(&student.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies an existing student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET first_name = $2, last_name = $3, email = $4, phone = NULLIF($5, ''), date_of_birth = $6,
        address = NULLIF($7, ''), department_id = $8, updated_at = $9 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, student.ID, student.FirstName, student.LastName, student.Email, student.Phone,
		student.DateOfBirth, student.Address, student.DepartmentID, student.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("update student: %w", err)
	}
	return expectAffected(res)
}

// Delete removes a student. Their enrollments keep existing without a student reference.
func (r *StudentRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return expectAffected(res)
}
