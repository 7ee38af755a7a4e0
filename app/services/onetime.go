package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCodeMismatch is returned when a submitted two-factor code is absent,
// expired, or does not match the stored one.
var ErrCodeMismatch = errors.New("code invalid or expired")

// ConsumedTokenStore makes stateless action tokens single-use. A token's JTI
// is claimed with SETNX before the guarded mutation runs, so of two
// concurrent requests replaying the same token at most one proceeds. Keys
// expire with the token itself.
type ConsumedTokenStore struct {
	rdb *redis.Client
}

func NewConsumedTokenStore(rdb *redis.Client) *ConsumedTokenStore {
	return &ConsumedTokenStore{rdb: rdb}
}

// Consume claims a JTI. Returns false when the token was already used.
func (s *ConsumedTokenStore) Consume(ctx context.Context, jti string, expiresAt time.Time) (bool, error) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return false, nil
	}
	first, err := s.rdb.SetNX(ctx, consumedKey(jti), "used", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("consume token: %w", err)
	}
	return first, nil
}

func consumedKey(jti string) string {
	return "consumed_token:" + jti
}

// TwoFactorCodeStore holds short-lived numeric login codes, hashed, keyed by
// account. Verification is compare-and-consume: GETDEL removes the code
// atomically so it cannot be replayed.
type TwoFactorCodeStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewTwoFactorCodeStore(rdb *redis.Client, ttl time.Duration) *TwoFactorCodeStore {
	return &TwoFactorCodeStore{rdb: rdb, ttl: ttl}
}

// GenerateCode produces a random four-digit code.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}

// Save stores the hashed code for the account, replacing any previous one.
func (s *TwoFactorCodeStore) Save(ctx context.Context, accountID int64, code string) error {
	if err := s.rdb.Set(ctx, twoFactorKey(accountID), hashCode(code), s.ttl).Err(); err != nil {
		return fmt.Errorf("store two-factor code: %w", err)
	}
	return nil
}

// Consume verifies and deletes the stored code in one step.
func (s *TwoFactorCodeStore) Consume(ctx context.Context, accountID int64, code string) error {
	stored, err := s.rdb.GetDel(ctx, twoFactorKey(accountID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCodeMismatch
		}
		return fmt.Errorf("look up two-factor code: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(hashCode(code))) != 1 {
		return ErrCodeMismatch
	}
	return nil
}

func twoFactorKey(accountID int64) string {
	return fmt.Sprintf("two_factor_code:%d", accountID)
}

func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
