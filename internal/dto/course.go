package dto

// CourseRequest is the payload for creating or replacing a course.
type CourseRequest struct {
	Code        string `json:"code" validate:"required,max=20"`
	Name        string `json:"name" validate:"required,max=120"`
	Credits     int    `json:"credits" validate:"min=0,max=30"`
	Description string `json:"description"`
}
