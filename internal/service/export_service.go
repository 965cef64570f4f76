package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/student-management-api/internal/models"
	"github.com/noah-isme/student-management-api/pkg/export"
	"github.com/noah-isme/student-management-api/pkg/storage"
)

type enrollmentExportSource interface {
	ListAll(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, error)
}

type fileStorage interface {
	Save(name string, data []byte) (string, error)
	Open(name string) (*os.File, error)
	Delete(name string) error
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	// CSVByteOrderMark prefixes CSV files with a UTF-8 BOM for spreadsheet tools.
	CSVByteOrderMark bool
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	Rows         int
	ExpiresAt    time.Time
}

// ExportService builds enrollment datasets and persists rendered files.
type ExportService struct {
	enrollments enrollmentExportSource
	storage     fileStorage
	renderers   map[models.ReportFormat]datasetRenderer
	signer      *storage.SignedURLSigner
	logger      *zap.Logger
	cfg         ExportConfig
	now         func() time.Time
}

// NewExportService constructs an ExportService with the CSV and PDF renderers.
func NewExportService(enrollments enrollmentExportSource, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	var csvOpts []export.CSVOption
	if cfg.CSVByteOrderMark {
		csvOpts = append(csvOpts, export.WithByteOrderMark())
	}
	return &ExportService{
		enrollments: enrollments,
		storage:     store,
		renderers: map[models.ReportFormat]datasetRenderer{
			models.ReportFormatCSV: export.NewCSVExporter(csvOpts...),
			models.ReportFormatPDF: export.NewPDFExporter(),
		},
		signer: signer,
		logger: logger,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Generate builds the dataset described by job, stores the rendered file and
// signs a download URL for it.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	renderer, ok := s.renderers[job.Params.Format]
	if !ok {
		return nil, fmt.Errorf("unsupported format %q", job.Params.Format)
	}
	dataset, err := s.BuildDataset(ctx, job.Type, job.Params)
	if err != nil {
		return nil, err
	}
	payload, err := renderer.Render(dataset)
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(s.filename(job, renderer.Extension()), payload)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		_ = s.storage.Delete(relPath)
		return nil, err
	}

	s.logger.Debug("export generated", zap.String("job_id", job.ID), zap.String("path", relPath), zap.Int("rows", len(dataset.Rows)))
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/export/%s", strings.TrimRight(s.cfg.APIPrefix, "/"), token),
		Format:       job.Params.Format,
		Rows:         len(dataset.Rows),
		ExpiresAt:    expiresAt,
	}, nil
}

// BuildDataset loads the enrollments selected by params and shapes them for
// the given report type.
func (s *ExportService) BuildDataset(ctx context.Context, reportType models.ReportType, params models.ReportJobParams) (export.Dataset, error) {
	filter := models.EnrollmentFilter{
		DepartmentID: params.DepartmentID,
		CourseID:     params.CourseID,
		Status:       params.Status,
		SortBy:       "student_name",
		SortOrder:    "ASC",
	}
	switch reportType {
	case models.ReportTypeRoster:
	case models.ReportTypeGrades:
		filter.GradedOnly = true
		filter.SortBy = "course_code"
	default:
		return export.Dataset{}, fmt.Errorf("unsupported report type %q", reportType)
	}

	rows, err := s.enrollments.ListAll(ctx, filter)
	if err != nil {
		return export.Dataset{}, err
	}
	if reportType == models.ReportTypeGrades {
		return s.gradesDataset(rows), nil
	}
	return s.rosterDataset(rows), nil
}

func (s *ExportService) rosterDataset(rows []models.EnrollmentDetail) export.Dataset {
	headers := []string{"Enrollment ID", "Student", "Department", "Course", "Enrolled On", "Status", "Grade"}
	data := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		data = append(data, map[string]string{
			"Enrollment ID": strconv.FormatInt(row.ID, 10),
			"Student":       derefString(row.StudentName),
			"Department":    derefString(row.DepartmentName),
			"Course":        courseLabel(row),
			"Enrolled On":   row.EnrollmentDate.String(),
			"Status":        string(row.Status),
			"Grade":         formatExportGrade(row.Grade),
		})
	}
	return export.Dataset{
		Title:   "Enrollment Roster",
		Headers: headers,
		Rows:    data,
		Footer:  s.footer(len(rows)),
	}
}

func (s *ExportService) gradesDataset(rows []models.EnrollmentDetail) export.Dataset {
	headers := []string{"Course", "Student", "Status", "Grade"}
	data := make([]map[string]string, 0, len(rows)+1)
	var sum float64
	for _, row := range rows {
		if row.Grade != nil {
			sum += *row.Grade
		}
		data = append(data, map[string]string{
			"Course":  courseLabel(row),
			"Student": derefString(row.StudentName),
			"Status":  string(row.Status),
			"Grade":   formatExportGrade(row.Grade),
		})
	}
	if len(rows) > 0 {
		avg := sum / float64(len(rows))
		data = append(data, map[string]string{"Course": "Average", "Grade": formatExportGrade(&avg)})
	}
	return export.Dataset{
		Title:   "Grade Report",
		Headers: headers,
		Rows:    data,
		Footer:  s.footer(len(rows)),
	}
}

// ContentType returns the MIME type served for format.
func (s *ExportService) ContentType(format models.ReportFormat) string {
	if r, ok := s.renderers[format]; ok {
		return r.ContentType()
	}
	return "application/octet-stream"
}

// ParseToken validates a download token.
func (s *ExportService) ParseToken(token string) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token)
}

// VerifyToken checks only the token signature, ignoring expiry.
func (s *ExportService) VerifyToken(token string) (jobID, relPath string, err error) {
	jobID, relPath, _, err = s.signer.Verify(token)
	return jobID, relPath, err
}

// Open returns a handle to a stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

func (s *ExportService) filename(job *models.ReportJob, ext string) string {
	return fmt.Sprintf("%s/%s_%s.%s", job.Type, s.now().UTC().Format("20060102_150405"), job.ID, ext)
}

func (s *ExportService) footer(rows int) string {
	return fmt.Sprintf("%d rows, generated %s", rows, s.now().UTC().Format(time.RFC3339))
}

func courseLabel(row models.EnrollmentDetail) string {
	code, name := derefString(row.CourseCode), derefString(row.CourseName)
	switch {
	case code == "":
		return name
	case name == "":
		return code
	default:
		return code + " " + name
	}
}

func formatExportGrade(grade *float64) string {
	if grade == nil {
		return ""
	}
	return strconv.FormatFloat(*grade, 'f', 2, 64)
}

func derefString(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
