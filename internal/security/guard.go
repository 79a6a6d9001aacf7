package security

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"libraryhub/internal/config"
)

const (
	verifyPrefix   = "verify:"
	resetPrefix    = "reset:"
	failuresPrefix = "login_failures:"
	lockPrefix     = "lock:"
)

type GuardConfig struct {
	VerificationTTL   time.Duration
	ResetTTL          time.Duration
	MaxFailedLogins   int
	FailedLoginWindow time.Duration
	LockTTL           time.Duration
}

func GuardConfigFrom(cfg *config.Config) GuardConfig {
	return GuardConfig{
		VerificationTTL:   cfg.VerificationTokenTTL,
		ResetTTL:          cfg.ResetTokenTTL,
		MaxFailedLogins:   cfg.MaxFailedLogins,
		FailedLoginWindow: cfg.FailedLoginWindow,
		LockTTL:           cfg.AccountLockTTL,
	}
}

// Guard issues single-use tokens and tracks failed logins per username.
type Guard struct {
	store TokenStore
	cfg   GuardConfig
}

func NewGuard(store TokenStore, cfg GuardConfig) *Guard {
	return &Guard{store: store, cfg: cfg}
}

func (g *Guard) IssueVerificationToken(ctx context.Context, userID string) (string, error) {
	return g.issue(ctx, verifyPrefix, userID, g.cfg.VerificationTTL)
}

// ConsumeVerificationToken returns the user id the token was issued for.
// A token works once.
func (g *Guard) ConsumeVerificationToken(ctx context.Context, token string) (string, error) {
	return g.store.Take(ctx, verifyPrefix+token)
}

func (g *Guard) IssueResetToken(ctx context.Context, userID string) (string, error) {
	return g.issue(ctx, resetPrefix, userID, g.cfg.ResetTTL)
}

func (g *Guard) ConsumeResetToken(ctx context.Context, token string) (string, error) {
	return g.store.Take(ctx, resetPrefix+token)
}

func (g *Guard) IsLocked(ctx context.Context, username string) (bool, error) {
	return g.store.Exists(ctx, lockPrefix+username)
}

// RecordFailedLogin counts a failure inside the window and locks the
// account once the limit is reached. It reports whether the account is
// now locked.
func (g *Guard) RecordFailedLogin(ctx context.Context, username string) (bool, error) {
	if g.cfg.MaxFailedLogins <= 0 {
		return false, nil
	}
	n, err := g.store.Incr(ctx, failuresPrefix+username, g.cfg.FailedLoginWindow)
	if err != nil {
		return false, fmt.Errorf("count failed login: %w", err)
	}
	if n < int64(g.cfg.MaxFailedLogins) {
		return false, nil
	}
	if err := g.store.Set(ctx, lockPrefix+username, "1", g.cfg.LockTTL); err != nil {
		return false, fmt.Errorf("lock account: %w", err)
	}
	return true, g.store.Delete(ctx, failuresPrefix+username)
}

func (g *Guard) ClearFailedLogins(ctx context.Context, username string) error {
	return g.store.Delete(ctx, failuresPrefix+username)
}

// Unlock lifts a lock early, used after a successful password reset.
func (g *Guard) Unlock(ctx context.Context, username string) error {
	return g.store.Delete(ctx, lockPrefix+username, failuresPrefix+username)
}

func (g *Guard) issue(ctx context.Context, prefix, userID string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	if err := g.store.Set(ctx, prefix+token, userID, ttl); err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}
	return token, nil
}
