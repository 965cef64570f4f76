package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/student-management-api/internal/handler"
	"github.com/noah-isme/student-management-api/internal/middleware"
	"github.com/noah-isme/student-management-api/internal/models"
	"github.com/noah-isme/student-management-api/pkg/config"
	"github.com/noah-isme/student-management-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/student-management-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/student-management-api/pkg/middleware/requestid"
)

// Handlers bundles everything the router mounts. Reports may be nil when
// report generation is disabled.
type Handlers struct {
	Auth        *handler.AuthHandler
	Departments *handler.DepartmentHandler
	Students    *handler.StudentHandler
	Courses     *handler.CourseHandler
	Enrollments *handler.EnrollmentHandler
	Reports     *handler.ReportHandler
	Metrics     *handler.MetricsHandler
}

// Dependencies carries the cross-cutting pieces used by middleware.
type Dependencies struct {
	Config   *config.Config
	Logger   *zap.Logger
	Tokens   middleware.TokenValidator
	Requests middleware.RequestObserver
}

// New builds the gin engine with the global middleware chain and every route.
func New(deps Dependencies, h Handlers) *gin.Engine {
	cfg := deps.Config
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Requests))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())
	api.POST("/auth/login", h.Auth.Login)
	if h.Reports != nil {
		api.GET("/export/:token", h.Reports.DownloadReport)
	}

	secured := api.Group("")
	secured.Use(middleware.JWT(deps.Tokens))
	secured.GET("/auth/me", h.Auth.Me)

	read := middleware.RequireRoles(models.RoleAdmin, models.RoleStaff)
	write := middleware.RequireRoles(models.RoleAdmin)

	departments := secured.Group("/departments")
	departments.GET("", read, h.Departments.List)
	departments.GET("/:id", read, h.Departments.Get)
	departments.POST("", write, h.Departments.Create)
	departments.PUT("/:id", write, h.Departments.Update)
	departments.DELETE("/:id", write, h.Departments.Delete)

	students := secured.Group("/students")
	students.GET("", read, h.Students.List)
	students.GET("/:id", read, h.Students.Get)
	students.POST("", write, h.Students.Create)
	students.PUT("/:id", write, h.Students.Update)
	students.DELETE("/:id", write, h.Students.Delete)

	courses := secured.Group("/courses")
	courses.GET("", read, h.Courses.List)
	courses.GET("/:id", read, h.Courses.Get)
	courses.POST("", write, h.Courses.Create)
	courses.PUT("/:id", write, h.Courses.Update)
	courses.DELETE("/:id", write, h.Courses.Delete)

	enrollments := secured.Group("/enrollments")
	enrollments.GET("", read, h.Enrollments.List)
	enrollments.GET("/:id", read, h.Enrollments.Get)
	enrollments.POST("", write, h.Enrollments.Enroll)
	enrollments.PUT("/:id/grade", write, h.Enrollments.UpdateGrade)
	enrollments.PUT("/:id/status", write, h.Enrollments.ChangeStatus)
	enrollments.DELETE("/:id", write, h.Enrollments.Delete)

	if h.Reports != nil {
		reports := secured.Group("/reports", read)
		reports.POST("", h.Reports.GenerateReport)
		reports.GET("/:id", h.Reports.ReportStatus)
	}

	return r
}
