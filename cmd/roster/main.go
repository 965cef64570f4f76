// Command roster prints department enrollments as a terminal table and seeds
// administrator accounts.
//
//	roster list -department 3 [-course 7] [-status ACTIVE]
//	roster seed-admin -email admin@example.com -password secret [-name "Admin"]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/noah-isme/student-management-api/internal/models"
	"github.com/noah-isme/student-management-api/internal/repository"
	"github.com/noah-isme/student-management-api/internal/service"
	"github.com/noah-isme/student-management-api/pkg/config"
	"github.com/noah-isme/student-management-api/pkg/database"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		color.Red("config: %v", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	switch os.Args[1] {
	case "list":
		err = runList(ctx, cfg, os.Args[2:])
	case "seed-admin":
		err = runSeedAdmin(ctx, cfg, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		color.Red("%v", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: roster list -department ID [-course ID] [-status STATUS]")
	fmt.Fprintln(os.Stderr, "       roster seed-admin -email EMAIL -password PASSWORD [-name NAME]")
}

func runList(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	departmentID := fs.Int64("department", 0, "department id")
	courseID := fs.Int64("course", 0, "restrict to one course")
	status := fs.String("status", "", "restrict to one enrollment status")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *departmentID <= 0 {
		return errors.New("-department is required")
	}

	filter := models.EnrollmentFilter{DepartmentID: departmentID, SortBy: "student_name", SortOrder: "ASC"}
	if *courseID > 0 {
		filter.CourseID = courseID
	}
	if *status != "" {
		parsed, err := models.ParseStatus(*status)
		if err != nil {
			return err
		}
		filter.Status = parsed
	}

	db, err := database.NewPostgres(ctx, cfg.Database, nil)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	department, err := repository.NewDepartmentRepository(db).FindByID(ctx, *departmentID)
	if err != nil {
		return fmt.Errorf("load department %d: %w", *departmentID, err)
	}
	rows, err := repository.NewEnrollmentRepository(db).ListAll(ctx, filter)
	if err != nil {
		return err
	}

	color.Cyan("\n=== %s (%d enrollments) ===", department.Name, len(rows))
	renderRoster(os.Stdout, rows)
	return nil
}

func renderRoster(w io.Writer, rows []models.EnrollmentDetail) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Student", "Course", "Enrolled", "Status", "Grade"})
	table.SetAutoWrapText(false)
	for _, row := range rows {
		table.Append([]string{
			strconv.FormatInt(row.ID, 10),
			deref(row.StudentName),
			strings.TrimSpace(deref(row.CourseCode) + " " + deref(row.CourseName)),
			row.EnrollmentDate.String(),
			statusLabel(row.Status),
			gradeLabel(row.Grade),
		})
	}
	table.Render()
}

func statusLabel(s models.Status) string {
	switch s {
	case models.StatusActive:
		return color.GreenString(string(s))
	case models.StatusCompleted:
		return color.CyanString(string(s))
	case models.StatusDropped:
		return color.RedString(string(s))
	default:
		return color.YellowString(string(s))
	}
}

func gradeLabel(grade *float64) string {
	if grade == nil {
		return "-"
	}
	return strconv.FormatFloat(*grade, 'f', 2, 64)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func runSeedAdmin(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("seed-admin", flag.ContinueOnError)
	email := fs.String("email", "", "login email")
	password := fs.String("password", "", "initial password")
	name := fs.String("name", "Administrator", "display name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || len(*password) < 8 {
		return errors.New("-email and a -password of at least 8 characters are required")
	}

	hash, err := service.HashPassword(*password)
	if err != nil {
		return err
	}

	db, err := database.NewPostgres(ctx, cfg.Database, nil)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	user := &models.User{
		Email:        strings.ToLower(strings.TrimSpace(*email)),
		PasswordHash: hash,
		FullName:     *name,
		Role:         models.RoleAdmin,
		Active:       true,
	}
	if err := repository.NewUserRepository(db).Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			color.Yellow("user %s already exists", user.Email)
			return nil
		}
		return err
	}
	color.Green("created admin %s (id %d)", user.Email, user.ID)
	return nil
}
