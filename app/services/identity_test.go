package services

import (
	"context"
	"database/sql"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/zuricore/identity-service/app/models"
	"github.com/zuricore/identity-service/app/store"
)

/*
IdentityService test cases:

1. SignUp success — unverified account, hashed password, verification notice sent
2. SignUp duplicate email — Conflict, no second record
3. SignUp insert race — store duplicate error mapped to Conflict
4. Verify success — false -> true, welcome notice sent
5. Verify already verified — BadRequest (idempotent in effect, not in result)
6. Verify tampered/expired token — Unauthorized
7. Login — not found / unverified / wrong password / success
8. ForgotPassword — not found / unverified Forbidden / success sends reset link
9. ResetPassword — expired token Unauthorized; valid token updates hash;
   same token replayed is Unauthorized (single-use)
10. ResetPassword concurrent replay — at most one consumer wins
11. ChangePassword — mismatch Forbidden, success rotates hash
12. Enable2FA / Send2FACode / Verify2FACode — Forbidden when disabled,
    compare-and-consume on verification
13. ResendVerification — Forbidden when already verified
14. Email change — Conflict on taken address, token applies new address once
15. Scenario: signUp -> verify(token from notification) -> login ok -> wrong
    password Unauthorized
*/

// mockUsersStore lets each test script the store per call.
type mockUsersStore struct {
	getAllFunc         func(ctx context.Context) ([]models.User, error)
	getByIDFunc        func(ctx context.Context, id int64) (*models.User, error)
	getByEmailFunc     func(ctx context.Context, email string) (*models.User, error)
	createFunc         func(ctx context.Context, user *models.User) error
	markVerifiedFunc   func(ctx context.Context, id int64) error
	updatePasswordFunc func(ctx context.Context, id int64, hash string) error
	updateEmailFunc    func(ctx context.Context, id int64, email string) error
	updateNamesFunc    func(ctx context.Context, id int64, first, last string) error
	setTwoFactorFunc   func(ctx context.Context, id int64, enabled bool) error
	deleteFunc         func(ctx context.Context, id int64) error
}

func (m *mockUsersStore) GetAll(ctx context.Context) ([]models.User, error) {
	return m.getAllFunc(ctx)
}
func (m *mockUsersStore) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return m.getByIDFunc(ctx, id)
}
func (m *mockUsersStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.getByEmailFunc(ctx, email)
}
func (m *mockUsersStore) Create(ctx context.Context, user *models.User) error {
	return m.createFunc(ctx, user)
}
func (m *mockUsersStore) MarkVerified(ctx context.Context, id int64) error {
	return m.markVerifiedFunc(ctx, id)
}
func (m *mockUsersStore) UpdatePassword(ctx context.Context, id int64, hash string) error {
	return m.updatePasswordFunc(ctx, id, hash)
}
func (m *mockUsersStore) UpdateEmail(ctx context.Context, id int64, email string) error {
	return m.updateEmailFunc(ctx, id, email)
}
func (m *mockUsersStore) UpdateNames(ctx context.Context, id int64, first, last string) error {
	return m.updateNamesFunc(ctx, id, first, last)
}
func (m *mockUsersStore) SetTwoFactor(ctx context.Context, id int64, enabled bool) error {
	return m.setTwoFactorFunc(ctx, id, enabled)
}
func (m *mockUsersStore) Delete(ctx context.Context, id int64) error {
	return m.deleteFunc(ctx, id)
}

type mockRolesStore struct{}

func (m *mockRolesStore) GetAll(ctx context.Context) ([]models.Role, error) {
	return []models.Role{{ID: 1, Name: "admin"}, {ID: 2, Name: "user"}}, nil
}
func (m *mockRolesStore) GetByName(ctx context.Context, name string) (*models.Role, error) {
	return &models.Role{ID: 2, Name: name}, nil
}

// mockNotifier records the last notification per kind.
type mockNotifier struct {
	mu                sync.Mutex
	verificationLink  string
	verificationEmail string
	welcomeEmail      string
	resetLink         string
	resetEmail        string
	code              string
	err               error
}

func (m *mockNotifier) SendVerification(ctx context.Context, recipient, name, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verificationEmail, m.verificationLink = recipient, link
	return m.err
}
func (m *mockNotifier) SendWelcome(ctx context.Context, recipient, name, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.welcomeEmail = recipient
	return m.err
}
func (m *mockNotifier) SendPasswordReset(ctx context.Context, recipient, name, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetEmail, m.resetLink = recipient, link
	return m.err
}
func (m *mockNotifier) SendTwoFactorCode(ctx context.Context, recipient, name, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.code = code
	return m.err
}

func newTestService(t *testing.T, users *mockUsersStore) (*IdentityService, *mockNotifier) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	notifier := &mockNotifier{}
	st := store.Storage{Users: users, Roles: &mockRolesStore{}}
	codec := NewTokenCodec([]byte("test-secret"))
	sessions := NewSessionManager([]byte("session-secret"), 15*time.Minute)

	svc := NewIdentityService(
		st,
		codec,
		sessions,
		notifier,
		NewConsumedTokenStore(rdb),
		NewTwoFactorCodeStore(rdb, 5*time.Minute),
		IdentityConfig{
			FrontendBaseURL: "https://app.example.com",
			VerificationTTL: 24 * time.Hour,
			ResetTTL:        time.Hour,
			EmailChangeTTL:  time.Hour,
		},
	)
	return svc, notifier
}

func hashPassword(t *testing.T, plain string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func tokenFromLink(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	token := u.Query().Get("token")
	require.NotEmpty(t, token, "link should carry a token: %s", link)
	return token
}

func TestSignUp_Success(t *testing.T) {
	var created *models.User
	users := &mockUsersStore{
		getByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return nil, sql.ErrNoRows
		},
		createFunc: func(ctx context.Context, user *models.User) error {
			user.ID = 1
			user.RoleID = 2
			user.CreatedAt = time.Now()
			created = user
			return nil
		},
	}
	svc, notifier := newTestService(t, users)

	user, appErr := svc.SignUp(context.Background(), "Ada", "Obi", "ada@example.com", "Sup3rSecret")

	require.Nil(t, appErr)
	require.NotNil(t, created)
	assert.False(t, user.IsVerified)
	assert.NotEqual(t, "Sup3rSecret", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("Sup3rSecret")))
	assert.Equal(t, "ada@example.com", notifier.verificationEmail)
	assert.True(t, strings.HasPrefix(notifier.verificationLink, "https://app.example.com/auth/verification-complete?token="))
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	users := &mockUsersStore{
		getByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return &models.User{ID: 1, Email: email}, nil
		},
	}
	svc, _ := newTestService(t, users)

	user, appErr := svc.SignUp(context.Background(), "Ada", "Obi", "ada@example.com", "Sup3rSecret")

	assert.Nil(t, user)
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusConflict, appErr.Status)
}

func TestSignUp_InsertRace(t *testing.T) {
	users := &mockUsersStore{
		getByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return nil, sql.ErrNoRows
		},
		createFunc: func(ctx context.Context, user *models.User) error {
			return store.ErrDuplicateEmail
		},
	}
	svc, _ := newTestService(t, users)

	_, appErr := svc.SignUp(context.Background(), "Ada", "Obi", "ada@example.com", "Sup3rSecret")

	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusConflict, appErr.Status)
}

func TestVerify_Success(t *testing.T) {
	verified := false
	account := &models.User{ID: 7, FirstName: "Ada", Email: "ada@example.com"}
	users := &mockUsersStore{
		markVerifiedFunc: func(ctx context.Context, id int64) error {
			verified = true
			account.IsVerified = true
			return nil
		},
		getByIDFunc: func(ctx context.Context, id int64) (*models.User, error) {
			return account, nil
		},
	}
	svc, notifier := newTestService(t, users)

	token, err := svc.codec.Issue(PurposeEmailVerification, 7, "ada@example.com", time.Hour)
	require.NoError(t, err)

	user, appErr := svc.Verify(context.Background(), token)

	require.Nil(t, appErr)
	assert.True(t, verified)
	assert.True(t, user.IsVerified)
	assert.Equal(t, "ada@example.com", notifier.welcomeEmail)
}

func TestVerify_AlreadyVerified(t *testing.T) {
	users := &mockUsersStore{
		markVerifiedFunc: func(ctx context.Context, id int64) error {
			return store.ErrPreconditionFailed
		},
		getByIDFunc: func(ctx context.Context, id int64) (*models.User, error) {
			return &models.User{ID: 7, IsVerified: true}, nil
		},
	}
	svc, _ := newTestService(t, users)

	token, err := svc.codec.Issue(PurposeEmailVerification, 7, "ada@example.com", time.Hour)
	require.NoError(t, err)

	user, appErr := svc.Verify(context.Background(), token)

	assert.Nil(t, user)
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
}

func TestVerify_InvalidToken(t *testing.T) {
	svc, _ := newTestService(t, &mockUsersStore{})

	expired, err := svc.codec.Issue(PurposeEmailVerification, 7, "ada@example.com", -time.Minute)
	require.NoError(t, err)

	for _, token := range []string{"garbage", expired} {
		_, appErr := svc.Verify(context.Background(), token)
		require.NotNil(t, appErr)
		assert.Equal(t, http.StatusUnauthorized, appErr.Status)
	}
}

func TestVerify_VanishedAccount(t *testing.T) {
	users := &mockUsersStore{
		markVerifiedFunc: func(ctx context.Context, id int64) error {
			return store.ErrPreconditionFailed
		},
		getByIDFunc: func(ctx context.Context, id int64) (*models.User, error) {
			return nil, sql.ErrNoRows
		},
	}
	svc, _ := newTestService(t, users)

	token, err := svc.codec.Issue(PurposeEmailVerification, 7, "ada@example.com", time.Hour)
	require.NoError(t, err)

	_, appErr := svc.Verify(context.Background(), token)

	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusUnauthorized, appErr.Status)
}

func TestLogin_UserNotFound(t *testing.T) {
	users := &mockUsersStore{
		getByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return nil, sql.ErrNoRows
		},
	}
	svc, _ := newTestService(t, users)

	_, _, appErr := svc.Login(context.Background(), "nobody@example.com", "Sup3rSecret")

	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
}

func TestLogin_Unverified(t *testing.T) {
	hash := hashPassword(t, "Sup3rSecret")
	users := &mockUsersStore{
		getByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return &models.User{ID: 7, Email: email, PasswordHash: hash, IsVerified: false}, nil
		},
	}
	svc, _ := newTestService(t, users)

	// correct password must not rescue an unverified account
	_, _, appErr := svc.Login(context.Background(), "ada@example.com", "Sup3rSecret")

	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusUnauthorized, appErr.Status)
}

func TestLogin_WrongPassword(t *testing.T) {
	hash := hashPassword(t, "Sup3rSecret")
	users := &mockUsersStore{
		getByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return &models.User{ID: 7, Email: email, PasswordHash: hash, IsVerified: true}, nil
		},
	}
	svc, _ := newTestService(t, users)

	_, _, appErr := svc.Login(context.Background(), "ada@example.com", "WrongSecret1")

	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusUnauthorized, appErr.Status)
}

func TestLogin_Success(t *testing.T) {
	hash := hashPassword(t, "Sup3rSecret")
	users := &mockUsersStore{
		getByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return &models.User{ID: 7, RoleID: 2, Email: email, PasswordHash: hash, IsVerified: true}, nil
		},
	}
	svc, _ := newTestService(t, users)

	user, token, appErr := svc.Login(context.Background(), "ada@example.com", "Sup3rSecret")

	require.Nil(t, appErr)
	assert.Equal(t, int64(7), user.ID)
	require.NotEmpty(t, token)

	claims, err := svc.sessions.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, 2, claims.RoleID)
}

func TestForgotPassword_Unverified(t *testing.T) {
	users := &mockUsersStore{
		getByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return &models.User{ID: 7, Email: email, IsVerified: false}, nil
		},
	}
	svc, _ := newTestService(t, users)

	appErr := svc.ForgotPassword(context.Background(), "ada@example.com")

	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusForbidden, appErr.Status)
}

func TestForgotPassword_NotFound(t *testing.T) {
	users := &mockUsersStore{
		getByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return nil, sql.ErrNoRows
		},
	}
	svc, _ := newTestService(t, users)

	appErr := svc.ForgotPassword(context.Background(), "nobody@example.com")

	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
}

func TestForgotPassword_SendsResetLink(t *testing.T) {
	users := &mockUsersStore{
		getByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return &models.User{ID: 7, FirstName: "Ada", Email: email, IsVerified: true}, nil
		},
	}
	svc, notifier := newTestService(t, users)

	appErr := svc.ForgotPassword(context.Background(), "ada@example.com")

	require.Nil(t, appErr)
	assert.Equal(t, "ada@example.com", notifier.resetEmail)

	// the link must carry a token verifiable for the reset purpose only
	token := tokenFromLink(t, notifier.resetLink)
	decoded, err := svc.codec.Verify(token, PurposePasswordReset)
	require.NoError(t, err)
	assert.Equal(t, int64(7), decoded.AccountID)

	_, err = svc.codec.Verify(token, PurposeEmailVerification)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResetPassword_InvalidToken(t *testing.T) {
	svc, _ := newTestService(t, &mockUsersStore{})

	expired, err := svc.codec.Issue(PurposePasswordReset, 7, "ada@example.com", -time.Minute)
	require.NoError(t, err)

	for _, token := range []string{"tampered", expired} {
		appErr := svc.ResetPassword(context.Background(), token, "NewSecret123")
		require.NotNil(t, appErr)
		assert.Equal(t, http.StatusUnauthorized, appErr.Status)
	}
}

func TestResetPassword_SingleUse(t *testing.T) {
	updates := 0
	users := &mockUsersStore{
		updatePasswordFunc: func(ctx context.Context, id int64, hash string) error {
			updates++
			return nil
		},
	}
	svc, _ := newTestService(t, users)

	token, err := svc.codec.Issue(PurposePasswordReset, 7, "ada@example.com", time.Hour)
	require.NoError(t, err)

	appErr := svc.ResetPassword(context.Background(), token, "NewSecret123")
	require.Nil(t, appErr)
	assert.Equal(t, 1, updates)

	// replay of the same token must not mutate again
	appErr = svc.ResetPassword(context.Background(), token, "OtherSecret123")
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusUnauthorized, appErr.Status)
	assert.Equal(t, 1, updates)
}

func TestResetPassword_ConcurrentReplay(t *testing.T) {
	var mu sync.Mutex
	updates := 0
	users := &mockUsersStore{
		updatePasswordFunc: func(ctx context.Context, id int64, hash string) error {
			mu.Lock()
			defer mu.Unlock()
			updates++
			return nil
		},
	}
	svc, _ := newTestService(t, users)

	token, err := svc.codec.Issue(PurposePasswordReset, 7, "ada@example.com", time.Hour)
	require.NoError(t, err)

	var wg sync.WaitGroup
	failures := make(chan int, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if appErr := svc.ResetPassword(context.Background(), token, "NewSecret123"); appErr != nil {
				failures <- appErr.Status
			}
		}()
	}
	wg.Wait()
	close(failures)

	assert.Equal(t, 1, updates, "exactly one request may mutate the password")
	count := 0
	for status := range failures {
		assert.Equal(t, http.StatusUnauthorized, status)
		count++
	}
	assert.Equal(t, 7, count)
}

func TestChangePassword_Mismatch(t *testing.T) {
	hash := hashPassword(t, "CurrentSecret1")
	users := &mockUsersStore{
		getByIDFunc: func(ctx context.Context, id int64) (*models.User, error) {
			return &models.User{ID: 7, PasswordHash: hash}, nil
		},
	}
	svc, _ := newTestService(t, users)

	appErr := svc.ChangePassword(context.Background(), 7, "WrongSecret1", "NewSecret123")

	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusForbidden, appErr.Status)
}

func TestChangePassword_Success(t *testing.T) {
	hash := hashPassword(t, "CurrentSecret1")
	var newHash string
	users := &mockUsersStore{
		getByIDFunc: func(ctx context.Context, id int64) (*models.User, error) {
			return &models.User{ID: 7, PasswordHash: hash}, nil
		},
		updatePasswordFunc: func(ctx context.Context, id int64, h string) error {
			newHash = h
			return nil
		},
	}
	svc, _ := newTestService(t, users)

	appErr := svc.ChangePassword(context.Background(), 7, "CurrentSecret1", "NewSecret123")

	require.Nil(t, appErr)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(newHash), []byte("NewSecret123")))
}

func TestEnable2FA_NotFound(t *testing.T) {
	users := &mockUsersStore{
		setTwoFactorFunc: func(ctx context.Context, id int64, enabled bool) error {
			return store.ErrPreconditionFailed
		},
	}
	svc, _ := newTestService(t, users)

	appErr := svc.Enable2FA(context.Background(), 99)

	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
}

func TestSend2FACode_Disabled(t *testing.T) {
	users := &mockUsersStore{
		getByIDFunc: func(ctx context.Context, id int64) (*models.User, error) {
			return &models.User{ID: 7, Email: "ada@example.com", TwoFactorEnabled: false}, nil
		},
	}
	svc, _ := newTestService(t, users)

	appErr := svc.Send2FACode(context.Background(), 7)

	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusForbidden, appErr.Status)
}

func TestSend2FACode_ThenVerify(t *testing.T) {
	users := &mockUsersStore{
		getByIDFunc: func(ctx context.Context, id int64) (*models.User, error) {
			return &models.User{ID: 7, Email: "ada@example.com", TwoFactorEnabled: true}, nil
		},
	}
	svc, notifier := newTestService(t, users)

	require.Nil(t, svc.Send2FACode(context.Background(), 7))
	require.Len(t, notifier.code, 4)

	// correct code is accepted once, then consumed
	require.Nil(t, svc.Verify2FACode(context.Background(), 7, notifier.code))

	appErr := svc.Verify2FACode(context.Background(), 7, notifier.code)
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusUnauthorized, appErr.Status)
}

func TestVerify2FACode_WrongCode(t *testing.T) {
	users := &mockUsersStore{
		getByIDFunc: func(ctx context.Context, id int64) (*models.User, error) {
			return &models.User{ID: 7, Email: "ada@example.com", TwoFactorEnabled: true}, nil
		},
	}
	svc, notifier := newTestService(t, users)

	require.Nil(t, svc.Send2FACode(context.Background(), 7))

	wrong := "0000"
	if notifier.code == wrong {
		wrong = "1111"
	}
	appErr := svc.Verify2FACode(context.Background(), 7, wrong)
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusUnauthorized, appErr.Status)
}

func TestResendVerification_AlreadyVerified(t *testing.T) {
	users := &mockUsersStore{
		getByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return &models.User{ID: 7, Email: email, IsVerified: true}, nil
		},
	}
	svc, _ := newTestService(t, users)

	appErr := svc.ResendVerification(context.Background(), "ada@example.com")

	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusForbidden, appErr.Status)
}

func TestRequestEmailChange_Taken(t *testing.T) {
	users := &mockUsersStore{
		getByIDFunc: func(ctx context.Context, id int64) (*models.User, error) {
			return &models.User{ID: 7, Email: "ada@example.com"}, nil
		},
		getByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return &models.User{ID: 8, Email: email}, nil
		},
	}
	svc, _ := newTestService(t, users)

	appErr := svc.RequestEmailChange(context.Background(), 7, "taken@example.com")

	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusConflict, appErr.Status)
}

func TestChangeEmail_AppliesOnce(t *testing.T) {
	var appliedEmail string
	account := &models.User{ID: 7, Email: "ada@example.com"}
	users := &mockUsersStore{
		getByIDFunc: func(ctx context.Context, id int64) (*models.User, error) {
			return account, nil
		},
		getByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return nil, sql.ErrNoRows
		},
		updateEmailFunc: func(ctx context.Context, id int64, email string) error {
			appliedEmail = email
			account.Email = email
			return nil
		},
	}
	svc, notifier := newTestService(t, users)

	require.Nil(t, svc.RequestEmailChange(context.Background(), 7, "new@example.com"))
	assert.Equal(t, "new@example.com", notifier.verificationEmail)

	token := tokenFromLink(t, notifier.verificationLink)
	user, appErr := svc.ChangeEmail(context.Background(), token)

	require.Nil(t, appErr)
	assert.Equal(t, "new@example.com", appliedEmail)
	assert.Equal(t, "new@example.com", user.Email)

	// token is single-use
	_, appErr = svc.ChangeEmail(context.Background(), token)
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusUnauthorized, appErr.Status)
}

// TestLifecycleScenario drives the happy path end to end over an in-memory
// account: signUp -> verify with the token from the notification link ->
// login succeeds -> login with a wrong password is Unauthorized.
func TestLifecycleScenario(t *testing.T) {
	var mu sync.Mutex
	var account *models.User

	users := &mockUsersStore{
		getByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			mu.Lock()
			defer mu.Unlock()
			if account == nil || account.Email != email {
				return nil, sql.ErrNoRows
			}
			copy := *account
			return &copy, nil
		},
		getByIDFunc: func(ctx context.Context, id int64) (*models.User, error) {
			mu.Lock()
			defer mu.Unlock()
			if account == nil || account.ID != id {
				return nil, sql.ErrNoRows
			}
			copy := *account
			return &copy, nil
		},
		createFunc: func(ctx context.Context, user *models.User) error {
			mu.Lock()
			defer mu.Unlock()
			user.ID = 1
			user.RoleID = 2
			user.CreatedAt = time.Now()
			stored := *user
			account = &stored
			return nil
		},
		markVerifiedFunc: func(ctx context.Context, id int64) error {
			mu.Lock()
			defer mu.Unlock()
			if account == nil || account.ID != id || account.IsVerified {
				return store.ErrPreconditionFailed
			}
			account.IsVerified = true
			return nil
		},
	}
	svc, notifier := newTestService(t, users)
	ctx := context.Background()

	_, appErr := svc.SignUp(ctx, "Ada", "Obi", "a@x.com", "Password1x")
	require.Nil(t, appErr)

	// login before verification must fail even with the right password
	_, _, appErr = svc.Login(ctx, "a@x.com", "Password1x")
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusUnauthorized, appErr.Status)

	token := tokenFromLink(t, notifier.verificationLink)
	verified, appErr := svc.Verify(ctx, token)
	require.Nil(t, appErr)
	assert.True(t, verified.IsVerified)

	user, session, appErr := svc.Login(ctx, "a@x.com", "Password1x")
	require.Nil(t, appErr)
	assert.Equal(t, int64(1), user.ID)
	assert.NotEmpty(t, session)

	_, _, appErr = svc.Login(ctx, "a@x.com", "wrong-password")
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusUnauthorized, appErr.Status)
}
