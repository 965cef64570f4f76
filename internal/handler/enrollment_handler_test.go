package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-management-api/internal/dto"
	"github.com/noah-isme/student-management-api/internal/models"
	appErrors "github.com/noah-isme/student-management-api/pkg/errors"
)

type enrollmentServiceMock struct {
	detail *models.EnrollmentDetail
	err    error

	filter       models.EnrollmentFilter
	enroll       dto.EnrollRequest
	gradeRequest dto.UpdateGradeRequest
	statusReq    dto.ChangeStatusRequest
}

func (m *enrollmentServiceMock) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	m.filter = filter
	if m.err != nil {
		return nil, nil, m.err
	}
	return []models.EnrollmentDetail{}, models.NewPagination(filter.Page, filter.PageSize, 0), nil
}

func (m *enrollmentServiceMock) Get(ctx context.Context, id int64) (*models.EnrollmentDetail, error) {
	return m.detail, m.err
}

func (m *enrollmentServiceMock) Enroll(ctx context.Context, req dto.EnrollRequest) (*models.EnrollmentDetail, error) {
	m.enroll = req
	return m.detail, m.err
}

func (m *enrollmentServiceMock) UpdateGrade(ctx context.Context, id int64, req dto.UpdateGradeRequest) (*models.EnrollmentDetail, error) {
	m.gradeRequest = req
	return m.detail, m.err
}

func (m *enrollmentServiceMock) ChangeStatus(ctx context.Context, id int64, req dto.ChangeStatusRequest) (*models.EnrollmentDetail, error) {
	m.statusReq = req
	return m.detail, m.err
}

func (m *enrollmentServiceMock) Delete(ctx context.Context, id int64) error {
	return m.err
}

func TestEnrollmentHandlerListFilters(t *testing.T) {
	svc := &enrollmentServiceMock{}
	handler := NewEnrollmentHandler(svc)

	c, w := newGinContext(http.MethodGet, "/enrollments?studentId=4&courseId=7&status=active&graded=true", nil)
	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.filter.StudentID)
	assert.Equal(t, int64(4), *svc.filter.StudentID)
	assert.Equal(t, int64(7), *svc.filter.CourseID)
	assert.Nil(t, svc.filter.DepartmentID)
	assert.Equal(t, models.StatusActive, svc.filter.Status)
	assert.True(t, svc.filter.GradedOnly)
}

func TestEnrollmentHandlerListRejectsBadFilters(t *testing.T) {
	handler := NewEnrollmentHandler(&enrollmentServiceMock{})
	for _, url := range []string{"/enrollments?status=lost", "/enrollments?studentId=x", "/enrollments?courseId=-2"} {
		c, w := newGinContext(http.MethodGet, url, nil)
		handler.List(c)
		assert.Equal(t, http.StatusBadRequest, w.Code, url)
	}
}

func TestEnrollmentHandlerEnroll(t *testing.T) {
	svc := &enrollmentServiceMock{detail: &models.EnrollmentDetail{Enrollment: models.Enrollment{ID: 1, Status: models.StatusPending}}}
	handler := NewEnrollmentHandler(svc)

	c, w := newGinContext(http.MethodPost, "/enrollments", []byte(`{"student_id":2,"course_id":3,"enrollment_date":"2024-09-01"}`))
	handler.Enroll(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, int64(2), svc.enroll.StudentID)
	require.NotNil(t, svc.enroll.EnrollmentDate)
	assert.Equal(t, "2024-09-01", svc.enroll.EnrollmentDate.String())

	c, w = newGinContext(http.MethodPost, "/enrollments", []byte(`{"student_id":2,"course_id":3,"status":"active"}`))
	handler.Enroll(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, models.StatusActive, svc.enroll.Status)

	c, w = newGinContext(http.MethodPost, "/enrollments", []byte(`{"student_id":2,"course_id":3,"status":"enrolled"}`))
	handler.Enroll(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.err = appErrors.Clone(appErrors.ErrConflict, "student already holds an open enrollment in this course")
	c, w = newGinContext(http.MethodPost, "/enrollments", []byte(`{"student_id":2,"course_id":3}`))
	handler.Enroll(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestEnrollmentHandlerUpdateGradeNullClears(t *testing.T) {
	svc := &enrollmentServiceMock{detail: &models.EnrollmentDetail{}}
	handler := NewEnrollmentHandler(svc)

	c, w := newGinContext(http.MethodPut, "/enrollments/5/grade", []byte(`{"grade":null}`))
	c.Params = gin.Params{{Key: "id", Value: "5"}}
	handler.UpdateGrade(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, svc.gradeRequest.Grade)

	svc.err = appErrors.ErrGradeOutOfRange
	c, w = newGinContext(http.MethodPut, "/enrollments/5/grade", []byte(`{"grade":25}`))
	c.Params = gin.Params{{Key: "id", Value: "5"}}
	handler.UpdateGrade(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "GRADE_OUT_OF_RANGE", decodeEnvelope(t, w).Error.Code)
}

func TestEnrollmentHandlerChangeStatus(t *testing.T) {
	svc := &enrollmentServiceMock{detail: &models.EnrollmentDetail{}}
	handler := NewEnrollmentHandler(svc)

	c, w := newGinContext(http.MethodPut, "/enrollments/5/status", []byte(`{"status":" completed ","grade":14}`))
	c.Params = gin.Params{{Key: "id", Value: "5"}}
	handler.ChangeStatus(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StatusCompleted, svc.statusReq.Status)
	require.NotNil(t, svc.statusReq.Grade)
	assert.Equal(t, 14.0, *svc.statusReq.Grade)

	svc.err = appErrors.ErrInvalidTransition
	c, w = newGinContext(http.MethodPut, "/enrollments/5/status", []byte(`{"status":"PENDING"}`))
	c.Params = gin.Params{{Key: "id", Value: "5"}}
	handler.ChangeStatus(c)
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
}
