package dto

import "github.com/noah-isme/student-management-api/internal/models"

// StudentRequest is the payload for creating or replacing a student.
type StudentRequest struct {
	FirstName    string       `json:"first_name" validate:"required,max=80"`
	LastName     string       `json:"last_name" validate:"required,max=80"`
	Email        string       `json:"email" validate:"required,email"`
	Phone        string       `json:"phone" validate:"omitempty,max=40"`
	DateOfBirth  *models.Date `json:"date_of_birth"`
	Address      string       `json:"address" validate:"omitempty,max=255"`
	DepartmentID *int64       `json:"department_id" validate:"omitempty,min=1"`
}
