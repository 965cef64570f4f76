package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/student-management-api/pkg/errors"
	"github.com/noah-isme/student-management-api/pkg/middleware/requestid"
)

func serve(t *testing.T, h gin.HandlerFunc) (*httptest.ResponseRecorder, Envelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(requestid.Middleware())
	r.GET("/", h)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-7")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var env Envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestErrorCarriesRequestID(t *testing.T) {
	rec, env := serve(t, func(c *gin.Context) {
		Error(c, appErrors.Clone(appErrors.ErrNotFound, "course not found"))
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "course not found", env.Error.Message)
	assert.Equal(t, "req-7", env.Meta["request_id"])
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestErrorHidesUnknownErrors(t *testing.T) {
	rec, env := serve(t, func(c *gin.Context) { Error(c, errors.New("pq: connection refused")) })
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotNil(t, env.Error)
	assert.NotContains(t, env.Error.Message, "pq:")
}

func TestCreatedSetsLocation(t *testing.T) {
	rec, env := serve(t, func(c *gin.Context) { Created(c, "/api/v1/courses/3", gin.H{"id": 3}) })
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "/api/v1/courses/3", rec.Header().Get("Location"))
	assert.NotNil(t, env.Data)
}

func TestNoContent(t *testing.T) {
	rec, _ := serve(t, NoContent)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, rec.Body.Len())
}
