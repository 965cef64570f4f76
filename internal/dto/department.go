package dto

// DepartmentRequest is the payload for creating or replacing a department.
type DepartmentRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Location string `json:"location" validate:"required,max=120"`
	Phone    string `json:"phone" validate:"omitempty,max=40"`
	Head     string `json:"head" validate:"omitempty,max=120"`
}
