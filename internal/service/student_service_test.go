package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/student-management-api/internal/dto"
	"github.com/noah-isme/student-management-api/internal/models"
	"github.com/noah-isme/student-management-api/internal/repository"
	appErrors "github.com/noah-isme/student-management-api/pkg/errors"
)

type mockStudentRepo struct {
	students   map[int64]models.Student
	emails     map[string]int64
	nextID     int64
	lastFilter models.StudentFilter
	listTotal  int
}

func newMockStudentRepo(items ...models.Student) *mockStudentRepo {
	repo := &mockStudentRepo{students: map[int64]models.Student{}, emails: map[string]int64{}}
	for _, s := range items {
		repo.students[s.ID] = s
		repo.emails[s.Email] = s.ID
	}
	return repo
}

func (m *mockStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	m.lastFilter = filter
	details := make([]models.StudentDetail, 0, len(m.students))
	for _, s := range m.students {
		details = append(details, models.StudentDetail{Student: s})
	}
	return details, m.listTotal, nil
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id int64) (*models.StudentDetail, error) {
	if s, ok := m.students[id]; ok {
		return &models.StudentDetail{Student: s}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) Create(ctx context.Context, student *models.Student) error {
	if _, taken := m.emails[student.Email]; taken {
		return repository.ErrDuplicate
	}
	m.nextID++
	student.ID = m.nextID
	m.students[student.ID] = *student
	m.emails[student.Email] = student.ID
	return nil
}

func (m *mockStudentRepo) Update(ctx context.Context, student *models.Student) error {
	if owner, taken := m.emails[student.Email]; taken && owner != student.ID {
		return repository.ErrDuplicate
	}
	m.students[student.ID] = *student
	m.emails[student.Email] = student.ID
	return nil
}

func (m *mockStudentRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.students[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.students, id)
	return nil
}

func int64Ptr(v int64) *int64 { return &v }

func newStudentFixture(items ...models.Student) (*StudentService, *mockStudentRepo, *memoryCacheRepo) {
	repo := newMockStudentRepo(items...)
	departments := newMockDepartmentRepo(models.Department{ID: 1, Name: "Mathematics", Location: "B"})
	cacheRepo := newMemoryCacheRepo()
	cache := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	return NewStudentService(repo, departments, cache, nil, zap.NewNop()), repo, cacheRepo
}

func TestStudentServiceCreate(t *testing.T) {
	svc, repo, cacheRepo := newStudentFixture()
	cacheRepo.items["departments:1"] = []byte(`{}`)

	dob := models.NewDate(2002, time.May, 4)
	student, err := svc.Create(context.Background(), dto.StudentRequest{
		FirstName:    " Emmy ",
		LastName:     "Noether",
		Email:        "Emmy@Example.com",
		DateOfBirth:  &dob,
		DepartmentID: int64Ptr(1),
	})
	require.NoError(t, err)
	assert.Equal(t, "Emmy", student.FirstName)
	assert.Equal(t, "emmy@example.com", student.Email)
	assert.Contains(t, repo.students, student.ID)
	assert.NotContains(t, cacheRepo.items, "departments:1")
}

func TestStudentServiceCreateRejectsUnknownDepartment(t *testing.T) {
	svc, _, _ := newStudentFixture()

	_, err := svc.Create(context.Background(), dto.StudentRequest{
		FirstName: "Emmy", LastName: "Noether", Email: "emmy@example.com", DepartmentID: int64Ptr(99),
	})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestStudentServiceCreateRejectsFutureBirthDate(t *testing.T) {
	svc, _, _ := newStudentFixture()

	future := models.Today().AddDays(30)
	_, err := svc.Create(context.Background(), dto.StudentRequest{
		FirstName: "Emmy", LastName: "Noether", Email: "emmy@example.com", DateOfBirth: &future,
	})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestStudentServiceCreateDuplicateEmail(t *testing.T) {
	svc, _, _ := newStudentFixture(models.Student{ID: 1, FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"})

	_, err := svc.Create(context.Background(), dto.StudentRequest{FirstName: "A", LastName: "L", Email: "ada@example.com"})
	assert.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestStudentServiceCreateValidation(t *testing.T) {
	svc, _, _ := newStudentFixture()

	_, err := svc.Create(context.Background(), dto.StudentRequest{FirstName: "Ada", LastName: "Lovelace", Email: "nope"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestStudentServiceUpdate(t *testing.T) {
	svc, repo, _ := newStudentFixture(models.Student{ID: 1, FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Phone: "555"})

	updated, err := svc.Update(context.Background(), 1, dto.StudentRequest{
		FirstName: "Ada", LastName: "King", Email: "ada@example.com", DepartmentID: int64Ptr(1),
	})
	require.NoError(t, err)
	assert.Equal(t, "King", updated.LastName)
	assert.Empty(t, updated.Phone)
	require.NotNil(t, repo.students[1].DepartmentID)
	assert.Equal(t, int64(1), *repo.students[1].DepartmentID)

	_, err = svc.Update(context.Background(), 2, dto.StudentRequest{FirstName: "X", LastName: "Y", Email: "x@example.com"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestStudentServiceListNormalisesPagination(t *testing.T) {
	svc, repo, _ := newStudentFixture(models.Student{ID: 1, FirstName: "Ada"})
	repo.listTotal = 1

	students, pagination, err := svc.List(context.Background(), models.StudentFilter{Search: "  ada ", Page: 0, PageSize: 500})
	require.NoError(t, err)
	assert.Len(t, students, 1)
	assert.Equal(t, "ada", repo.lastFilter.Search)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 1, pagination.TotalCount)
}

func TestStudentServiceDelete(t *testing.T) {
	svc, repo, _ := newStudentFixture(models.Student{ID: 1, FirstName: "Ada"})

	require.NoError(t, svc.Delete(context.Background(), 1))
	assert.NotContains(t, repo.students, int64(1))
	assert.ErrorIs(t, svc.Delete(context.Background(), 1), appErrors.ErrNotFound)
}
