package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-management-api/internal/dto"
	"github.com/noah-isme/student-management-api/internal/models"
	"github.com/noah-isme/student-management-api/internal/repository"
	appErrors "github.com/noah-isme/student-management-api/pkg/errors"
)

type mockCourseRepo struct {
	courses map[int64]models.Course
	nextID  int64
}

func newMockCourseRepo(items ...models.Course) *mockCourseRepo {
	repo := &mockCourseRepo{courses: map[int64]models.Course{}}
	for _, c := range items {
		repo.courses[c.ID] = c
	}
	return repo
}

func (m *mockCourseRepo) codeTaken(code string, exclude int64) bool {
	for id, c := range m.courses {
		if c.Code == code && id != exclude {
			return true
		}
	}
	return false
}

func (m *mockCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	out := make([]models.Course, 0, len(m.courses))
	for _, c := range m.courses {
		out = append(out, c)
	}
	return out, len(out), nil
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) Create(ctx context.Context, course *models.Course) error {
	if m.codeTaken(course.Code, 0) {
		return repository.ErrDuplicate
	}
	m.nextID++
	course.ID = m.nextID
	m.courses[course.ID] = *course
	return nil
}

func (m *mockCourseRepo) Update(ctx context.Context, course *models.Course) error {
	if m.codeTaken(course.Code, course.ID) {
		return repository.ErrDuplicate
	}
	m.courses[course.ID] = *course
	return nil
}

func (m *mockCourseRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.courses[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.courses, id)
	return nil
}

func TestCourseServiceCreateUppercasesCode(t *testing.T) {
	svc := NewCourseService(newMockCourseRepo(), nil, nil)

	course, err := svc.Create(context.Background(), dto.CourseRequest{Code: " cs101 ", Name: "Intro", Credits: 4})
	require.NoError(t, err)
	assert.Equal(t, "CS101", course.Code)
	assert.NotZero(t, course.ID)
}

func TestCourseServiceCreateDuplicate(t *testing.T) {
	svc := NewCourseService(newMockCourseRepo(models.Course{ID: 1, Code: "CS101", Name: "Intro"}), nil, nil)

	_, err := svc.Create(context.Background(), dto.CourseRequest{Code: "cs101", Name: "Other"})
	assert.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestCourseServiceValidation(t *testing.T) {
	svc := NewCourseService(newMockCourseRepo(), nil, nil)

	_, err := svc.Create(context.Background(), dto.CourseRequest{Code: "CS1", Name: "", Credits: 3})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Create(context.Background(), dto.CourseRequest{Code: "CS1", Name: "Intro", Credits: -1})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestCourseServiceUpdateAndDelete(t *testing.T) {
	repo := newMockCourseRepo(models.Course{ID: 1, Code: "CS101", Name: "Intro"}, models.Course{ID: 2, Code: "CS102", Name: "DS"})
	svc := NewCourseService(repo, nil, nil)

	updated, err := svc.Update(context.Background(), 1, dto.CourseRequest{Code: "CS101", Name: "Intro to CS", Credits: 5})
	require.NoError(t, err)
	assert.Equal(t, "Intro to CS", updated.Name)

	_, err = svc.Update(context.Background(), 1, dto.CourseRequest{Code: "CS102", Name: "Clash"})
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	_, err = svc.Get(context.Background(), 3)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	require.NoError(t, svc.Delete(context.Background(), 2))
	assert.ErrorIs(t, svc.Delete(context.Background(), 2), appErrors.ErrNotFound)
}
