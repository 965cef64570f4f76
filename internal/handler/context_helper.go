package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-management-api/internal/middleware"
	"github.com/noah-isme/student-management-api/internal/models"
	appErrors "github.com/noah-isme/student-management-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.Claims(c)
	if !ok {
		return nil
	}
	return claims
}

// pathID parses a positive integer path parameter.
func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "invalid "+name)
	}
	return id, nil
}

// optionalInt64Query parses an optional positive integer query parameter.
func optionalInt64Query(c *gin.Context, name string) (*int64, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 1 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid "+name)
	}
	return &v, nil
}

// pageQuery reads page, limit, sort and order. Bad numbers fall back to the
// defaults applied by models.NewPagination.
func pageQuery(c *gin.Context) (page, size int, sortBy, order string) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	return page, size, c.Query("sort"), c.Query("order")
}

func invalidPayload(err error) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload")
}

func resourceLocation(c *gin.Context, id int64) string {
	return strings.TrimRight(c.Request.URL.Path, "/") + "/" + strconv.FormatInt(id, 10)
}
