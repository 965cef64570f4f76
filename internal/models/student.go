package models

import (
	"fmt"
	"time"
)

// Student represents a learner, optionally attached to a department.
type Student struct {
	ID           int64     `db:"id" json:"id"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	Email        string    `db:"email" json:"email"`
	Phone        string    `db:"phone" json:"phone,omitempty"`
	DateOfBirth  *Date     `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Address      string    `db:"address" json:"address,omitempty"`
	DepartmentID *int64    `db:"department_id" json:"department_id,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// FullName joins first and last name.
func (s Student) FullName() string {
	return s.FirstName + " " + s.LastName
}

func (s Student) String() string {
	return fmt.Sprintf("Student{id=%d, name=%s, email=%s}", s.ID, s.FullName(), s.Email)
}

// StudentDetail adds the department name to a student.
type StudentDetail struct {
	Student
	DepartmentName *string `db:"department_name" json:"department_name,omitempty"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search       string
	DepartmentID *int64
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
