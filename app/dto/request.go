package dto

// SignUpRequest creates a new unverified account.
type SignUpRequest struct {
	FirstName string `json:"firstName" validate:"required,min=1,max=100,name_format"`
	LastName  string `json:"lastName" validate:"required,min=1,max=100,name_format"`
	Email     string `json:"email" validate:"required,email,max=255"`
	Password  string `json:"password" validate:"required,min=8,max=128,password_strength"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type ResendVerificationRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

// ResetPasswordRequest carries the new password; the reset token travels in
// the URL path.
type ResetPasswordRequest struct {
	NewPassword string `json:"newPassword" validate:"required,min=8,max=128,password_strength"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required,max=128"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=128,password_strength"`
}

type RequestEmailChangeRequest struct {
	NewEmail string `json:"newEmail" validate:"required,email,max=255"`
}

type TwoFactorVerifyRequest struct {
	Code string `json:"code" validate:"required,len=4,numeric"`
}

type UpdateUserRequest struct {
	FirstName string `json:"firstName" validate:"required,min=1,max=100,name_format"`
	LastName  string `json:"lastName" validate:"required,min=1,max=100,name_format"`
}
