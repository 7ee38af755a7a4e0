package services

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenPurpose scopes an action token to the single lifecycle transition it
// was issued for.
type TokenPurpose string

const (
	PurposeEmailVerification TokenPurpose = "email-verification"
	PurposePasswordReset     TokenPurpose = "password-reset"
	PurposeEmailChange       TokenPurpose = "email-change"
)

// ErrInvalidToken covers every verification failure: bad signature, malformed
// payload, expiry, and purpose mismatch. Callers translate it to 401 without
// leaking which check failed.
var ErrInvalidToken = errors.New("invalid or expired token")

// ActionToken is the decoded payload of a verified action token.
type ActionToken struct {
	AccountID int64
	Email     string
	JTI       string
	ExpiresAt time.Time
}

type actionClaims struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// TokenCodec issues and verifies signed, time-limited action tokens. It is
// stateless: validity is derived purely from the signature and embedded
// expiry. The signing secret is injected, never read from process state.
type TokenCodec struct {
	secret []byte
}

func NewTokenCodec(secret []byte) *TokenCodec {
	return &TokenCodec{secret: secret}
}

// Issue produces an opaque signed token binding accountID and email to a
// purpose, expiring after ttl.
func (c *TokenCodec) Issue(purpose TokenPurpose, accountID int64, email string, ttl time.Duration) (string, error) {
	jti, err := randomToken()
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := actionClaims{
		Email:   email,
		Purpose: string(purpose),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(accountID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        jti,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Verify checks signature, expiry and purpose, returning the embedded
// identity. Any failure is ErrInvalidToken.
func (c *TokenCodec) Verify(tokenStr string, expected TokenPurpose) (*ActionToken, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &actionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return c.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*actionClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Purpose != string(expected) {
		return nil, ErrInvalidToken
	}
	if claims.ExpiresAt == nil {
		return nil, ErrInvalidToken
	}

	accountID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, ErrInvalidToken
	}

	return &ActionToken{
		AccountID: accountID,
		Email:     claims.Email,
		JTI:       claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
