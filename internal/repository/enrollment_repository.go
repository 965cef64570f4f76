package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/student-management-api/internal/models"
)

const enrollmentDetailSelect = `SELECT e.id, e.enrollment_date, e.grade, e.status, e.student_id, e.course_id,
        s.first_name || ' ' || s.last_name AS student_name, c.code AS course_code, c.name AS course_name, d.name AS department_name
        FROM enrollments e
        LEFT JOIN students s ON s.id = e.student_id
        LEFT JOIN courses c ON c.id = e.course_id
        LEFT JOIN departments d ON d.id = s.department_id`

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

func enrollmentWhere(filter models.EnrollmentFilter) *whereBuilder {
	where := &whereBuilder{}
	if filter.StudentID != nil {
		where.add("e.student_id = $%d", *filter.StudentID)
	}
	if filter.CourseID != nil {
		where.add("e.course_id = $%d", *filter.CourseID)
	}
	if filter.DepartmentID != nil {
		where.add("s.department_id = $%d", *filter.DepartmentID)
	}
	if filter.Status != "" {
		where.add("e.status = $%d", filter.Status)
	}
	if filter.GradedOnly {
		where.conditions = append(where.conditions, "e.grade IS NOT NULL")
	}
	return where
}

func enrollmentOrder(filter models.EnrollmentFilter) string {
	return orderBy(map[string]string{
		"enrollment_date": "e.enrollment_date",
		"grade":           "e.grade",
		"status":          "e.status",
		"student_name":    "s.last_name",
		"course_code":     "c.code",
	}, filter.SortBy, "enrollment_date", filter.SortOrder, "DESC") + ", e.id"
}

// List returns enrollments filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	where := enrollmentWhere(filter)
	limit, offset := pageBounds(filter.Page, filter.PageSize)

	query := fmt.Sprintf("%s%s ORDER BY %s LIMIT %d OFFSET %d", enrollmentDetailSelect, where.clause(), enrollmentOrder(filter), limit, offset)
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := `SELECT COUNT(*) FROM enrollments e LEFT JOIN students s ON s.id = e.student_id` + where.clause()
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, where.args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// ListAll returns every enrollment matching the filter without pagination.
// Used by exports and the roster CLI.
func (r *EnrollmentRepository) ListAll(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, error) {
	where := enrollmentWhere(filter)
	query := fmt.Sprintf("%s%s ORDER BY %s", enrollmentDetailSelect, where.clause(), enrollmentOrder(filter))
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, where.args...); err != nil {
		return nil, fmt.Errorf("list all enrollments: %w", err)
	}
	return enrollments, nil
}

// FindByID returns the bare enrollment row.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id int64) (*models.Enrollment, error) {
	const query = `SELECT id, enrollment_date, grade, status, student_id, course_id FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindDetailByID returns the enrollment joined with student and course names.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id int64) (*models.EnrollmentDetail, error) {
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, enrollmentDetailSelect+" WHERE e.id = $1", id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsOpen reports whether the student holds a PENDING or ACTIVE enrollment
// in the course.
func (r *EnrollmentRepository) ExistsOpen(ctx context.Context, studentID, courseID int64) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2 AND status IN ('PENDING', 'ACTIVE') LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check open enrollment: %w", err)
	}
	return true, nil
}

// Create inserts a new enrollment row. A second open enrollment of the same
// student in the same course violates uq_enrollments_open and yields
// ErrDuplicate.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	const query = `INSERT INTO enrollments (enrollment_date, grade, status, student_id, course_id)
        VALUES ($1, $2, $3, $4, $5) RETURNING id`
	err := r.db.QueryRowxContext(ctx, query, enrollment.EnrollmentDate, enrollment.Grade, enrollment.Status,
		enrollment.StudentID, enrollment.CourseID).Scan(&enrollment.ID)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// UpdateGrade sets the grade, or clears it when grade is nil. Clearing never
// touches a COMPLETED row; that case, like a missing row, returns
// sql.ErrNoRows.
func (r *EnrollmentRepository) UpdateGrade(ctx context.Context, id int64, grade *float64) error {
	var (
		res sql.Result
		err error
	)
	if grade == nil {
		res, err = r.db.ExecContext(ctx, `UPDATE enrollments SET grade = NULL WHERE id = $1 AND status <> 'COMPLETED'`, id)
	} else {
		res, err = r.db.ExecContext(ctx, `UPDATE enrollments SET grade = $2 WHERE id = $1`, id, *grade)
	}
	if err != nil {
		return fmt.Errorf("update enrollment grade: %w", err)
	}
	return expectAffected(res)
}

// UpdateStatus moves the row from status `from` to `to`. A non-nil grade is
// stored in the same statement; nil keeps the current grade. The write only
// applies while the row still holds `from` and, when completing, ends up with
// a grade; otherwise sql.ErrNoRows is returned.
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, id int64, from, to models.Status, grade *float64) error {
	const query = `UPDATE enrollments SET status = $2, grade = COALESCE($3, grade)
        WHERE id = $1 AND status = $4 AND ($2 <> 'COMPLETED' OR COALESCE($3, grade) IS NOT NULL)`
	res, err := r.db.ExecContext(ctx, query, id, to, grade, from)
	if err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	return expectAffected(res)
}

// Delete removes an enrollment.
func (r *EnrollmentRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	return expectAffected(res)
}
