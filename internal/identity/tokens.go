package identity

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrTokenNotFound indicates an unknown or expired API token.
var ErrTokenNotFound = errors.New("identity: token not found")

// TokenManager issues and resolves opaque bearer tokens backed by Redis.
type TokenManager struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTokenManager constructs a TokenManager.
func NewTokenManager(client *redis.Client, ttl time.Duration) *TokenManager {
	return &TokenManager{client: client, ttl: ttl}
}

// Issue creates a fresh token mapped to the principal id.
func (tm *TokenManager) Issue(ctx context.Context, principalID int64) (string, error) {
	token := generateToken()
	if err := tm.client.Set(ctx, tm.redisKey(token), strconv.FormatInt(principalID, 10), tm.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Resolve returns the principal id for a token, refreshing its TTL.
func (tm *TokenManager) Resolve(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, ErrTokenNotFound
	}
	raw, err := tm.client.Get(ctx, tm.redisKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrTokenNotFound
		}
		return 0, err
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, ErrTokenNotFound
	}
	_ = tm.client.Expire(ctx, tm.redisKey(token), tm.ttl).Err()
	return id, nil
}

// Revoke deletes a token.
func (tm *TokenManager) Revoke(ctx context.Context, token string) error {
	err := tm.client.Del(ctx, tm.redisKey(token)).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

// TTL exposes the configured token lifetime.
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}

func (tm *TokenManager) redisKey(token string) string {
	return "token:" + token
}

func generateToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return uuid.NewString()
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
