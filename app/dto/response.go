package dto

import (
	"time"

	"github.com/zuricore/identity-service/app/models"
)

// SuccessResponse is the envelope for every successful response.
type SuccessResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       any    `json:"data,omitempty"`
}

// ErrorResponse is the envelope for every failure.
type ErrorResponse struct {
	StatusCode int    `json:"statusCode"`
	ErrorCode  string `json:"errorCode"`
	Message    string `json:"message"`
}

// AccountResponse is the public view of an account; it never carries the
// password hash.
type AccountResponse struct {
	ID               int64  `json:"id"`
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	Email            string `json:"email"`
	RoleID           int    `json:"roleId"`
	IsVerified       bool   `json:"isVerified"`
	TwoFactorEnabled bool   `json:"twoFactorEnabled"`
	CreatedAt        string `json:"createdAt"`
}

// LoginResponse pairs the account with its session token.
type LoginResponse struct {
	Account AccountResponse `json:"account"`
	Token   string          `json:"token"`
}

type RoleResponse struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// NewAccountResponse maps a stored user to its API shape.
func NewAccountResponse(u *models.User) AccountResponse {
	return AccountResponse{
		ID:               u.ID,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		Email:            u.Email,
		RoleID:           u.RoleID,
		IsVerified:       u.IsVerified,
		TwoFactorEnabled: u.TwoFactorEnabled,
		CreatedAt:        u.CreatedAt.Format(time.RFC3339),
	}
}
