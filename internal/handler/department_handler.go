package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-management-api/internal/dto"
	"github.com/noah-isme/student-management-api/internal/middleware"
	"github.com/noah-isme/student-management-api/internal/models"
	"github.com/noah-isme/student-management-api/pkg/response"
)

type departmentService interface {
	List(ctx context.Context, filter models.DepartmentFilter) ([]models.Department, *models.Pagination, bool, error)
	Get(ctx context.Context, id int64) (*models.Department, bool, error)
	Create(ctx context.Context, req dto.DepartmentRequest) (*models.Department, error)
	Update(ctx context.Context, id int64, req dto.DepartmentRequest) (*models.Department, error)
	Delete(ctx context.Context, id int64) error
}

// DepartmentHandler exposes department endpoints.
type DepartmentHandler struct {
	departments departmentService
}

// NewDepartmentHandler constructs DepartmentHandler.
func NewDepartmentHandler(departments departmentService) *DepartmentHandler {
	return &DepartmentHandler{departments: departments}
}

// List godoc
// @Summary List departments
// @Tags Departments
// @Produce json
// @Param search query string false "Search by name, location or head"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param sort query string false "Sort field (id, name, location)"
// @Param order query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Router /departments [get]
func (h *DepartmentHandler) List(c *gin.Context) {
	var filter models.DepartmentFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.Page, filter.PageSize, filter.SortBy, filter.SortOrder = pageQuery(c)

	departments, pagination, hit, err := h.departments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, departments, pagination, middleware.ExtractMetaWithTiming(c))
}

// Get godoc
// @Summary Get department with its students
// @Tags Departments
// @Produce json
// @Param id path int true "Department ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /departments/{id} [get]
func (h *DepartmentHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	department, hit, err := h.departments.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, department, nil, middleware.ExtractMetaWithTiming(c))
}

// Create godoc
// @Summary Create department
// @Tags Departments
// @Accept json
// @Produce json
// @Param payload body dto.DepartmentRequest true "Department payload"
// @Success 201 {object} response.Envelope
// @Router /departments [post]
func (h *DepartmentHandler) Create(c *gin.Context) {
	var req dto.DepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	department, err := h.departments.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, resourceLocation(c, department.ID), department)
}

// Update godoc
// @Summary Update department
// @Tags Departments
// @Accept json
// @Produce json
// @Param id path int true "Department ID"
// @Param payload body dto.DepartmentRequest true "Department payload"
// @Success 200 {object} response.Envelope
// @Router /departments/{id} [put]
func (h *DepartmentHandler) Update(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.DepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	department, err := h.departments.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, department, nil)
}

// Delete godoc
// @Summary Delete department
// @Description Students of the department are kept without a department.
// @Tags Departments
// @Param id path int true "Department ID"
// @Success 204
// @Router /departments/{id} [delete]
func (h *DepartmentHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.departments.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
