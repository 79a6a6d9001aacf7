// Package security keeps short-lived account secrets: email verification
// tokens, password reset tokens and failed-login counters with lockout.
package security

import (
	"context"
	"errors"
	"time"
)

// ErrTokenNotFound is returned when a key is missing or has expired.
var ErrTokenNotFound = errors.New("token not found or expired")

// TokenStore is a string key/value store with per-key expiry.
type TokenStore interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Take returns the value and deletes the key in one step.
	Take(ctx context.Context, key string) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
	// Incr increments a counter. The ttl starts on the first increment.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Delete(ctx context.Context, keys ...string) error
}
