package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/zuricore/identity-service/app/errors"
	"github.com/zuricore/identity-service/app/logger"
	"github.com/zuricore/identity-service/app/models"
	"github.com/zuricore/identity-service/app/notify"
	"github.com/zuricore/identity-service/app/store"
)

// IdentityConfig carries the tunables the lifecycle manager needs. Everything
// is injected; the service reads no process-wide state.
type IdentityConfig struct {
	// FrontendBaseURL is prepended to verification/reset/email-change links.
	FrontendBaseURL string
	VerificationTTL time.Duration
	ResetTTL        time.Duration
	EmailChangeTTL  time.Duration
}

// IdentityService orchestrates the credential lifecycle: signup,
// verification, login, password reset, email change and two-factor issuance.
// Every state transition is guarded by a conditional update at the store, so
// concurrent requests touching the same account cannot both apply it.
type IdentityService struct {
	store     store.Storage
	codec     *TokenCodec
	sessions  *SessionManager
	notifier  notify.Notifier
	consumed  *ConsumedTokenStore
	twoFactor *TwoFactorCodeStore
	cfg       IdentityConfig
}

func NewIdentityService(
	st store.Storage,
	codec *TokenCodec,
	sessions *SessionManager,
	notifier notify.Notifier,
	consumed *ConsumedTokenStore,
	twoFactor *TwoFactorCodeStore,
	cfg IdentityConfig,
) *IdentityService {
	return &IdentityService{
		store:     st,
		codec:     codec,
		sessions:  sessions,
		notifier:  notifier,
		consumed:  consumed,
		twoFactor: twoFactor,
		cfg:       cfg,
	}
}

// SignUp creates an unverified account with the default role, issues a
// verification token and notifies the new address. Duplicate emails fail
// with Conflict; the unique index catches the race two concurrent signups
// would otherwise win together.
func (s *IdentityService) SignUp(ctx context.Context, firstName, lastName, email, password string) (*models.User, *apperrors.AppError) {
	existing, err := s.store.Users.GetByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, apperrors.NewConflict("email already in use")
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewInternal("database error while checking email")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.NewInternal("error hashing password")
	}

	user := &models.User{
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: string(passwordHash),
	}
	if err := s.store.Users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return nil, apperrors.NewConflict("email already in use")
		}
		return nil, apperrors.NewInternal("error creating user")
	}

	s.sendVerificationLink(ctx, user)

	return user, nil
}

// Verify consumes an email-verification token and flips the account to
// verified. The transition is one conditional UPDATE: zero rows affected
// means the precondition no longer holds, and a follow-up read distinguishes
// a vanished account from one that was already verified.
func (s *IdentityService) Verify(ctx context.Context, token string) (*models.User, *apperrors.AppError) {
	decoded, err := s.codec.Verify(token, PurposeEmailVerification)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid or expired verification token")
	}

	err = s.store.Users.MarkVerified(ctx, decoded.AccountID)
	if errors.Is(err, store.ErrPreconditionFailed) {
		if _, getErr := s.store.Users.GetByID(ctx, decoded.AccountID); getErr != nil {
			return nil, apperrors.NewUnauthorized("invalid or expired verification token")
		}
		return nil, apperrors.NewBadRequest("account already verified, please login")
	}
	if err != nil {
		return nil, apperrors.NewInternal("failed to update verification status")
	}

	user, err := s.store.Users.GetByID(ctx, decoded.AccountID)
	if err != nil {
		return nil, apperrors.NewInternal("failed to load verified account")
	}

	if notifyErr := s.notifier.SendWelcome(ctx, user.Email, user.FullName(), s.cfg.FrontendBaseURL); notifyErr != nil {
		s.log(ctx).Error().Err(notifyErr).Str("email", user.Email).Msg("failed to send welcome notification")
	}

	return user, nil
}

// Login authenticates a verified account and issues a session token.
func (s *IdentityService) Login(ctx context.Context, email, password string) (*models.User, string, *apperrors.AppError) {
	user, err := s.store.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", apperrors.NewNotFound("user")
		}
		return nil, "", apperrors.NewInternal("error getting user by email")
	}

	if !user.IsVerified {
		return nil, "", apperrors.NewUnauthorized("please verify your account")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, "", apperrors.NewUnauthorized("invalid password")
		}
		return nil, "", apperrors.NewInternal("error verifying password")
	}

	token, err := s.sessions.Generate(user.ID, user.RoleID)
	if err != nil {
		return nil, "", apperrors.NewInternal("error generating session token")
	}
	return user, token, nil
}

// ResendVerification issues a fresh verification token for an unverified
// account.
func (s *IdentityService) ResendVerification(ctx context.Context, email string) *apperrors.AppError {
	user, err := s.store.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NewNotFound("user")
		}
		return apperrors.NewInternal("error getting user by email")
	}

	if user.IsVerified {
		return apperrors.NewForbidden("account already verified")
	}

	s.sendVerificationLink(ctx, user)
	return nil
}

// ForgotPassword issues a reset token for a verified account.
func (s *IdentityService) ForgotPassword(ctx context.Context, email string) *apperrors.AppError {
	user, err := s.store.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NewNotFound("user")
		}
		return apperrors.NewInternal("error getting user by email")
	}

	if !user.IsVerified {
		return apperrors.NewForbidden("account not verified")
	}

	token, err := s.codec.Issue(PurposePasswordReset, user.ID, user.Email, s.cfg.ResetTTL)
	if err != nil {
		return apperrors.NewInternal("error issuing reset token")
	}

	link := fmt.Sprintf("%s/auth/reset-password?token=%s", s.cfg.FrontendBaseURL, token)
	if notifyErr := s.notifier.SendPasswordReset(ctx, user.Email, user.FullName(), link); notifyErr != nil {
		s.log(ctx).Error().Err(notifyErr).Str("email", user.Email).Msg("failed to send password reset notification")
	}
	return nil
}

// ResetPassword validates a reset token, claims its JTI so the token cannot
// be replayed, and writes the new hash. Of two concurrent calls with the same
// token, at most one mutates the password.
func (s *IdentityService) ResetPassword(ctx context.Context, token, newPassword string) *apperrors.AppError {
	decoded, err := s.codec.Verify(token, PurposePasswordReset)
	if err != nil {
		return apperrors.NewUnauthorized("invalid or expired reset token")
	}

	first, err := s.consumed.Consume(ctx, decoded.JTI, decoded.ExpiresAt)
	if err != nil {
		return apperrors.NewInternal("failed to consume reset token")
	}
	if !first {
		return apperrors.NewUnauthorized("reset token already used")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperrors.NewInternal("error hashing password")
	}

	if err := s.store.Users.UpdatePassword(ctx, decoded.AccountID, string(passwordHash)); err != nil {
		if errors.Is(err, store.ErrPreconditionFailed) {
			return apperrors.NewNotFound("user")
		}
		return apperrors.NewInternal("failed to update password")
	}
	return nil
}

// ChangePassword rotates the hash for an authenticated account after
// re-checking the current password.
func (s *IdentityService) ChangePassword(ctx context.Context, accountID int64, currentPassword, newPassword string) *apperrors.AppError {
	user, err := s.store.Users.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NewNotFound("user")
		}
		return apperrors.NewInternal("error loading user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return apperrors.NewForbidden("current password does not match")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperrors.NewInternal("error hashing password")
	}

	if err := s.store.Users.UpdatePassword(ctx, accountID, string(passwordHash)); err != nil {
		return apperrors.NewInternal("failed to update password")
	}
	return nil
}

// RequestEmailChange issues an email-change token bound to the new address
// and mails it there, proving the requester controls it.
func (s *IdentityService) RequestEmailChange(ctx context.Context, accountID int64, newEmail string) *apperrors.AppError {
	user, err := s.store.Users.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NewNotFound("user")
		}
		return apperrors.NewInternal("error loading user")
	}

	if existing, err := s.store.Users.GetByEmail(ctx, newEmail); err == nil && existing != nil {
		return apperrors.NewConflict("email already in use")
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return apperrors.NewInternal("database error while checking email")
	}

	token, err := s.codec.Issue(PurposeEmailChange, user.ID, newEmail, s.cfg.EmailChangeTTL)
	if err != nil {
		return apperrors.NewInternal("error issuing email change token")
	}

	link := fmt.Sprintf("%s/auth/change-email?token=%s", s.cfg.FrontendBaseURL, token)
	if notifyErr := s.notifier.SendVerification(ctx, newEmail, user.FullName(), link); notifyErr != nil {
		s.log(ctx).Error().Err(notifyErr).Str("email", newEmail).Msg("failed to send email change notification")
	}
	return nil
}

// ChangeEmail consumes an email-change token and applies the new address.
// The token carries the new email; the unique index rejects an address taken
// in the meantime.
func (s *IdentityService) ChangeEmail(ctx context.Context, token string) (*models.User, *apperrors.AppError) {
	decoded, err := s.codec.Verify(token, PurposeEmailChange)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid or expired email change token")
	}

	first, err := s.consumed.Consume(ctx, decoded.JTI, decoded.ExpiresAt)
	if err != nil {
		return nil, apperrors.NewInternal("failed to consume email change token")
	}
	if !first {
		return nil, apperrors.NewUnauthorized("email change token already used")
	}

	if err := s.store.Users.UpdateEmail(ctx, decoded.AccountID, decoded.Email); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateEmail):
			return nil, apperrors.NewConflict("email already in use")
		case errors.Is(err, store.ErrPreconditionFailed):
			return nil, apperrors.NewNotFound("user")
		default:
			return nil, apperrors.NewInternal("failed to update email")
		}
	}

	user, err := s.store.Users.GetByID(ctx, decoded.AccountID)
	if err != nil {
		return nil, apperrors.NewInternal("failed to load account")
	}
	return user, nil
}

// Enable2FA turns on two-factor issuance for the account.
func (s *IdentityService) Enable2FA(ctx context.Context, accountID int64) *apperrors.AppError {
	if err := s.store.Users.SetTwoFactor(ctx, accountID, true); err != nil {
		if errors.Is(err, store.ErrPreconditionFailed) {
			return apperrors.NewNotFound("user")
		}
		return apperrors.NewInternal("failed to enable two-factor auth")
	}
	return nil
}

// Send2FACode generates a short numeric code, stores it hashed with a TTL and
// notifies the account's address.
func (s *IdentityService) Send2FACode(ctx context.Context, accountID int64) *apperrors.AppError {
	user, err := s.store.Users.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NewNotFound("user")
		}
		return apperrors.NewInternal("error loading user")
	}

	if !user.TwoFactorEnabled {
		return apperrors.NewForbidden("two-factor auth is not enabled")
	}

	code, err := GenerateCode()
	if err != nil {
		return apperrors.NewInternal("failed to generate code")
	}
	if err := s.twoFactor.Save(ctx, user.ID, code); err != nil {
		return apperrors.NewInternal("failed to store code")
	}

	if notifyErr := s.notifier.SendTwoFactorCode(ctx, user.Email, user.FullName(), code); notifyErr != nil {
		s.log(ctx).Error().Err(notifyErr).Str("email", user.Email).Msg("failed to send two-factor code")
	}
	return nil
}

// Verify2FACode checks a submitted code against the stored one. The code is
// consumed on the attempt, matching or not.
func (s *IdentityService) Verify2FACode(ctx context.Context, accountID int64, code string) *apperrors.AppError {
	if err := s.twoFactor.Consume(ctx, accountID, code); err != nil {
		if errors.Is(err, ErrCodeMismatch) {
			return apperrors.NewUnauthorized("code invalid or expired")
		}
		return apperrors.NewInternal("failed to verify code")
	}
	return nil
}

// ListUsers returns every account.
func (s *IdentityService) ListUsers(ctx context.Context) ([]models.User, *apperrors.AppError) {
	users, err := s.store.Users.GetAll(ctx)
	if err != nil {
		return nil, apperrors.NewInternal("failed to list users")
	}
	return users, nil
}

// GetUser returns one account by id.
func (s *IdentityService) GetUser(ctx context.Context, accountID int64) (*models.User, *apperrors.AppError) {
	user, err := s.store.Users.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound("user")
		}
		return nil, apperrors.NewInternal("failed to load user")
	}
	return user, nil
}

// UpdateUser changes the account's display names.
func (s *IdentityService) UpdateUser(ctx context.Context, accountID int64, firstName, lastName string) (*models.User, *apperrors.AppError) {
	if err := s.store.Users.UpdateNames(ctx, accountID, firstName, lastName); err != nil {
		if errors.Is(err, store.ErrPreconditionFailed) {
			return nil, apperrors.NewNotFound("user")
		}
		return nil, apperrors.NewInternal("failed to update user")
	}
	return s.GetUser(ctx, accountID)
}

// DeleteUser removes the account.
func (s *IdentityService) DeleteUser(ctx context.Context, accountID int64) *apperrors.AppError {
	if err := s.store.Users.Delete(ctx, accountID); err != nil {
		if errors.Is(err, store.ErrPreconditionFailed) {
			return apperrors.NewNotFound("user")
		}
		return apperrors.NewInternal("failed to delete user")
	}
	return nil
}

// ListRoles returns the role catalogue.
func (s *IdentityService) ListRoles(ctx context.Context) ([]models.Role, *apperrors.AppError) {
	roles, err := s.store.Roles.GetAll(ctx)
	if err != nil {
		return nil, apperrors.NewInternal("failed to list roles")
	}
	return roles, nil
}

// sendVerificationLink issues a verification token and notifies the address.
// Failures are logged only; signup must not fail because mail did not go out.
func (s *IdentityService) sendVerificationLink(ctx context.Context, user *models.User) {
	token, err := s.codec.Issue(PurposeEmailVerification, user.ID, user.Email, s.cfg.VerificationTTL)
	if err != nil {
		s.log(ctx).Error().Err(err).Int64("user_id", user.ID).Msg("failed to issue verification token")
		return
	}

	link := fmt.Sprintf("%s/auth/verification-complete?token=%s", s.cfg.FrontendBaseURL, token)
	if err := s.notifier.SendVerification(ctx, user.Email, user.FullName(), link); err != nil {
		s.log(ctx).Error().Err(err).Str("email", user.Email).Msg("failed to send verification notification")
	}
}

func (s *IdentityService) log(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &logger.Logger
}
