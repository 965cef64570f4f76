package dto

import (
	"time"

	"github.com/noah-isme/student-management-api/internal/models"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=72"`
}

// LoginResponse carries the issued access token.
type LoginResponse struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	ExpiresIn   int64           `json:"expires_in"`
	IssuedAt    time.Time       `json:"issued_at"`
	User        models.UserInfo `json:"user"`
}
