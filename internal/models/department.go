package models

import (
	"fmt"
	"time"
)

// Department is an academic department. Phone and Head are optional and
// stored as NULL when empty.
type Department struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Location  string    `db:"location" json:"location"`
	Phone     string    `db:"phone" json:"phone,omitempty"`
	Head      string    `db:"head" json:"head,omitempty"`
	Students  []Student `db:"-" json:"students,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// NewDepartment builds a department from all of its fields. No validation is
// performed; students may be nil.
func NewDepartment(id int64, name, location, phone, head string, students []Student) *Department {
	return &Department{
		ID:       id,
		Name:     name,
		Location: location,
		Phone:    phone,
		Head:     head,
		Students: students,
	}
}

func (d Department) String() string {
	return fmt.Sprintf("Department{id=%d, name=%s, location=%s, phone=%s, head=%s, students=%d}",
		d.ID, d.Name, d.Location, d.Phone, d.Head, len(d.Students))
}

// DepartmentFilter defines filter criteria for listing departments.
type DepartmentFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
