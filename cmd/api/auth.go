package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zuricore/identity-service/app/dto"
	"github.com/zuricore/identity-service/app/errors"
	"github.com/zuricore/identity-service/app/metrics"
	idmw "github.com/zuricore/identity-service/app/middleware"
)

// signUpHandler creates an unverified account and triggers the verification
// notification.
func (app *application) signUpHandler(w http.ResponseWriter, r *http.Request) {
	var req dto.SignUpRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		writeError(w, appErr)
		return
	}

	req.FirstName = sanitizeName(req.FirstName, 100)
	req.LastName = sanitizeName(req.LastName, 100)
	req.Email = sanitizeEmail(req.Email, 255)
	req.Password = sanitizeInput(req.Password, 128, true)

	if appErr := validateRequest(&req); appErr != nil {
		writeError(w, appErr)
		return
	}

	user, appErr := app.identity.SignUp(r.Context(), req.FirstName, req.LastName, req.Email, req.Password)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	metrics.RecordSignup()
	writeSuccess(w, http.StatusCreated, "account created, please verify your email", dto.NewAccountResponse(user))
}

func (app *application) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		writeError(w, appErr)
		return
	}

	req.Email = sanitizeEmail(req.Email, 255)
	req.Password = sanitizeInput(req.Password, 128, true)

	if appErr := validateRequest(&req); appErr != nil {
		writeError(w, appErr)
		return
	}

	user, token, appErr := app.identity.Login(r.Context(), req.Email, req.Password)
	if appErr != nil {
		metrics.RecordLoginFailed()
		writeError(w, appErr)
		return
	}

	metrics.RecordLogin()
	w.Header().Set("Authorization", "Bearer "+token)
	writeSuccess(w, http.StatusOK, "login successful", dto.LoginResponse{
		Account: dto.NewAccountResponse(user),
		Token:   token,
	})
}

// verifyHandler consumes the verification token from the link sent at signup.
func (app *application) verifyHandler(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		writeError(w, errors.NewBadRequest("verification token is required"))
		return
	}

	user, appErr := app.identity.Verify(r.Context(), token)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	metrics.RecordEmailVerification()
	writeSuccess(w, http.StatusOK, "account verified", dto.NewAccountResponse(user))
}

func (app *application) resendVerificationHandler(w http.ResponseWriter, r *http.Request) {
	var req dto.ResendVerificationRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		writeError(w, appErr)
		return
	}

	req.Email = sanitizeEmail(req.Email, 255)
	if appErr := validateRequest(&req); appErr != nil {
		writeError(w, appErr)
		return
	}

	if appErr := app.identity.ResendVerification(r.Context(), req.Email); appErr != nil {
		writeError(w, appErr)
		return
	}
	writeSuccess(w, http.StatusOK, "verification email sent", nil)
}

func (app *application) forgotPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req dto.ForgotPasswordRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		writeError(w, appErr)
		return
	}

	req.Email = sanitizeEmail(req.Email, 255)
	if appErr := validateRequest(&req); appErr != nil {
		writeError(w, appErr)
		return
	}

	if appErr := app.identity.ForgotPassword(r.Context(), req.Email); appErr != nil {
		writeError(w, appErr)
		return
	}
	writeSuccess(w, http.StatusOK, "password reset email sent", nil)
}

// resetPasswordHandler applies a new password under a reset token from the
// URL path.
func (app *application) resetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		writeError(w, errors.NewBadRequest("reset token is required"))
		return
	}

	var req dto.ResetPasswordRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		writeError(w, appErr)
		return
	}

	req.NewPassword = sanitizeInput(req.NewPassword, 128, true)
	if appErr := validateRequest(&req); appErr != nil {
		writeError(w, appErr)
		return
	}

	if appErr := app.identity.ResetPassword(r.Context(), token, req.NewPassword); appErr != nil {
		writeError(w, appErr)
		return
	}

	metrics.RecordPasswordReset()
	writeSuccess(w, http.StatusOK, "password updated, please login", nil)
}

func (app *application) changePasswordHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := idmw.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, errors.NewUnauthorized("user not found in context"))
		return
	}

	var req dto.ChangePasswordRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		writeError(w, appErr)
		return
	}

	req.CurrentPassword = sanitizeInput(req.CurrentPassword, 128, true)
	req.NewPassword = sanitizeInput(req.NewPassword, 128, true)
	if appErr := validateRequest(&req); appErr != nil {
		writeError(w, appErr)
		return
	}

	if appErr := app.identity.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); appErr != nil {
		writeError(w, appErr)
		return
	}
	writeSuccess(w, http.StatusOK, "password updated", nil)
}

func (app *application) requestEmailChangeHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := idmw.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, errors.NewUnauthorized("user not found in context"))
		return
	}

	var req dto.RequestEmailChangeRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		writeError(w, appErr)
		return
	}

	req.NewEmail = sanitizeEmail(req.NewEmail, 255)
	if appErr := validateRequest(&req); appErr != nil {
		writeError(w, appErr)
		return
	}

	if appErr := app.identity.RequestEmailChange(r.Context(), userID, req.NewEmail); appErr != nil {
		writeError(w, appErr)
		return
	}
	writeSuccess(w, http.StatusOK, "confirmation sent to the new address", nil)
}

// changeEmailHandler consumes the email-change token mailed to the new
// address.
func (app *application) changeEmailHandler(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		writeError(w, errors.NewBadRequest("email change token is required"))
		return
	}

	user, appErr := app.identity.ChangeEmail(r.Context(), token)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	metrics.RecordEmailChange()
	writeSuccess(w, http.StatusOK, "email updated", dto.NewAccountResponse(user))
}

func (app *application) enable2FAHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := idmw.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, errors.NewUnauthorized("user not found in context"))
		return
	}

	if appErr := app.identity.Enable2FA(r.Context(), userID); appErr != nil {
		writeError(w, appErr)
		return
	}
	writeSuccess(w, http.StatusOK, "two-factor auth enabled", nil)
}

func (app *application) send2FACodeHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := idmw.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, errors.NewUnauthorized("user not found in context"))
		return
	}

	if appErr := app.identity.Send2FACode(r.Context(), userID); appErr != nil {
		writeError(w, appErr)
		return
	}

	metrics.RecordTwoFactorCode()
	writeSuccess(w, http.StatusOK, "verification code sent", nil)
}

func (app *application) verify2FACodeHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := idmw.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, errors.NewUnauthorized("user not found in context"))
		return
	}

	var req dto.TwoFactorVerifyRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		writeError(w, appErr)
		return
	}
	if appErr := validateRequest(&req); appErr != nil {
		writeError(w, appErr)
		return
	}

	if appErr := app.identity.Verify2FACode(r.Context(), userID, req.Code); appErr != nil {
		writeError(w, appErr)
		return
	}
	writeSuccess(w, http.StatusOK, "code verified", nil)
}
