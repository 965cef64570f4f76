package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-management-api/internal/models"
)

var enrollmentDetailColumns = []string{"id", "enrollment_date", "grade", "status", "student_id", "course_id", "student_name", "course_code", "course_name", "department_name"}

func TestEnrollmentRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	courseID := int64(3)
	deptID := int64(1)
	rows := sqlmock.NewRows(enrollmentDetailColumns).
		AddRow(10, time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC), 18.5, "COMPLETED", 1, 3, "Ada Lovelace", "CS101", "Intro", "Computer Science")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE e.course_id = $1 AND s.department_id = $2 AND e.status = $3 AND e.grade IS NOT NULL ORDER BY e.grade DESC, e.id LIMIT 20 OFFSET 0")).
		WithArgs(courseID, deptID, models.StatusCompleted).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments e LEFT JOIN students s ON s.id = e.student_id WHERE")).
		WithArgs(courseID, deptID, models.StatusCompleted).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	enrollments, total, err := repo.List(context.Background(), models.EnrollmentFilter{
		CourseID:     &courseID,
		DepartmentID: &deptID,
		Status:       models.StatusCompleted,
		GradedOnly:   true,
		SortBy:       "grade",
	})
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	assert.Equal(t, 1, total)

	got := enrollments[0]
	require.NotNil(t, got.Grade)
	assert.Equal(t, 18.5, *got.Grade)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.Equal(t, models.NewDate(2024, time.September, 1), got.EnrollmentDate)
	require.NotNil(t, got.CourseCode)
	assert.Equal(t, "CS101", *got.CourseCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListAllHasNoLimit(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows(enrollmentDetailColumns).
		AddRow(1, time.Now(), nil, "PENDING", nil, nil, nil, nil, nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY e.enrollment_date DESC, e.id") + "$").WillReturnRows(rows)

	enrollments, err := repo.ListAll(context.Background(), models.EnrollmentFilter{})
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	assert.Nil(t, enrollments[0].Grade)
	assert.Nil(t, enrollments[0].StudentID)
	assert.Nil(t, enrollments[0].StudentName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "enrollment_date", "grade", "status", "student_id", "course_id"}).
		AddRow(4, "2024-02-01", "15.75", "ACTIVE", 2, 8)
	mock.ExpectQuery(regexp.QuoteMeta("FROM enrollments WHERE id = $1")).
		WithArgs(int64(4)).
		WillReturnRows(rows)

	enrollment, err := repo.FindByID(context.Background(), 4)
	require.NoError(t, err)
	require.NotNil(t, enrollment.Grade)
	assert.Equal(t, 15.75, *enrollment.Grade)
	assert.Equal(t, models.StatusActive, enrollment.Status)
	require.NotNil(t, enrollment.CourseID)
	assert.Equal(t, int64(8), *enrollment.CourseID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryExistsOpen(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	query := regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2 AND status IN ('PENDING', 'ACTIVE') LIMIT 1")
	mock.ExpectQuery(query).WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(1))
	mock.ExpectQuery(query).WithArgs(int64(1), int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}))

	exists, err := repo.ExistsOpen(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsOpen(context.Background(), 1, 3)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	studentID, courseID := int64(1), int64(2)
	date := models.NewDate(2024, time.January, 15)
	mock.ExpectQuery("INSERT INTO enrollments").
		WithArgs(date, nil, models.StatusPending, studentID, courseID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(21))

	enrollment := models.NewEnrollment(0, date, nil, models.StatusPending, &studentID, &courseID)
	require.NoError(t, repo.Create(context.Background(), enrollment))
	assert.Equal(t, int64(21), enrollment.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

const updateStatusQuery = `UPDATE enrollments SET status = $2, grade = COALESCE($3, grade)
        WHERE id = $1 AND status = $4 AND ($2 <> 'COMPLETED' OR COALESCE($3, grade) IS NOT NULL)`

func TestEnrollmentRepositoryCreateOpenDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery("INSERT INTO enrollments").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "uq_enrollments_open"})

	studentID, courseID := int64(1), int64(2)
	enrollment := models.NewEnrollment(0, models.NewDate(2024, time.January, 15), nil, models.StatusPending, &studentID, &courseID)
	assert.ErrorIs(t, repo.Create(context.Background(), enrollment), ErrDuplicate)
	assert.Zero(t, enrollment.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUpdateStatusKeepsGradeWhenNil(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(updateStatusQuery)).
		WithArgs(int64(4), models.StatusDropped, nil, models.StatusActive).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), 4, models.StatusActive, models.StatusDropped, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUpdateStatusRequiresExpectedStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	// The row was completed by someone else, so status = 'ACTIVE' no longer matches.
	mock.ExpectExec(regexp.QuoteMeta(updateStatusQuery)).
		WithArgs(int64(4), models.StatusDropped, nil, models.StatusActive).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), 4, models.StatusActive, models.StatusDropped, nil)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUpdateGrade(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	grade := 15.755
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET grade = $2 WHERE id = $1")).
		WithArgs(int64(4), grade).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateGrade(context.Background(), 4, &grade))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryClearGradeSkipsCompleted(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	query := regexp.QuoteMeta("UPDATE enrollments SET grade = NULL WHERE id = $1 AND status <> 'COMPLETED'")
	mock.ExpectExec(query).WithArgs(int64(4)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(query).WithArgs(int64(5)).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.UpdateGrade(context.Background(), 4, nil))
	assert.ErrorIs(t, repo.UpdateGrade(context.Background(), 5, nil), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
