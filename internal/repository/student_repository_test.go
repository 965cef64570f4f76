package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-management-api/internal/models"
)

var studentRowColumns = []string{"id", "first_name", "last_name", "email", "phone", "date_of_birth", "address", "department_id", "created_at", "updated_at"}

func TestStudentRepositoryListByDepartment(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	deptID := int64(4)
	rows := sqlmock.NewRows(append(studentRowColumns, "department_name")).
		AddRow(1, "Ada", "Lovelace", "ada@example.com", "", time.Date(2001, 12, 10, 0, 0, 0, 0, time.UTC), "", deptID, time.Now(), time.Now(), "Mathematics")
	mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN departments d ON d.id = s.department_id WHERE s.department_id = $1 ORDER BY s.created_at DESC LIMIT 20 OFFSET 0")).
		WithArgs(deptID).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students s")).
		WithArgs(deptID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	students, total, err := repo.List(context.Background(), models.StudentFilter{DepartmentID: &deptID})
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, 1, total)
	require.NotNil(t, students[0].DateOfBirth)
	assert.Equal(t, "2001-12-10", students[0].DateOfBirth.String())
	require.NotNil(t, students[0].DepartmentName)
	assert.Equal(t, "Mathematics", *students[0].DepartmentName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListDepartmentMembers(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows(studentRowColumns).
		AddRow(1, "Ada", "Lovelace", "ada@example.com", "", nil, "", 4, time.Now(), time.Now()).
		AddRow(2, "Alan", "Turing", "alan@example.com", "555", nil, "Bletchley", 4, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM students s WHERE s.department_id = $1 ORDER BY s.last_name, s.first_name")).
		WithArgs(int64(4)).
		WillReturnRows(rows)

	students, err := repo.ListByDepartment(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Nil(t, students[0].DateOfBirth)
	assert.Equal(t, "Alan Turing", students[1].FullName())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("INSERT INTO students").
		WithArgs("Ada", "Lovelace", "ada@example.com", "", sqlmock.AnyArg(), "", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))

	student := &models.Student{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}
	require.NoError(t, repo.Create(context.Background(), student))
	assert.Equal(t, int64(11), student.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateDuplicateEmail(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("INSERT INTO students").WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.Student{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestStudentRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM students WHERE id = $1")).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), 5))
	assert.NoError(t, mock.ExpectationsWereMet())
}
