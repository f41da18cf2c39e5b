package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/ikkim/coach-portal-backend/internal/app/model"
	"github.com/ikkim/coach-portal-backend/internal/app/repository"
	"github.com/ikkim/coach-portal-backend/pkg/logger"
	"gorm.io/gorm"
)

const (
	// DefaultResetTokenTTL is how long an issued reset secret stays usable.
	DefaultResetTokenTTL = 1 * time.Hour
	// ResetSecretLength is the byte length of the raw reset secret.
	ResetSecretLength = 32
)

// TokenVault issues and redeems single-use reset secrets. Only the SHA-256
// digest of a secret is ever persisted.
type TokenVault interface {
	// Issue replaces any token of the owner and returns the raw secret.
	Issue(ctx context.Context, ownerEmail string) (string, error)
	// Verify reports whether the secret is live for the owner without using it.
	Verify(ctx context.Context, ownerEmail, rawSecret string) (bool, error)
	// Consume deletes the owner's token and runs action in the same
	// transaction. Either both happen or neither does.
	Consume(ctx context.Context, ownerEmail, rawSecret string, action func(tx *gorm.DB) error) error
	SweepExpired(ctx context.Context) (int64, error)
}

type VaultOption func(*tokenVault)

// WithVaultClock overrides the vault's time source.
func WithVaultClock(now func() time.Time) VaultOption {
	return func(v *tokenVault) {
		v.now = now
	}
}

type tokenVault struct {
	repo    repository.ResetTokenRepository
	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time
}

func NewTokenVault(repo repository.ResetTokenRepository, ttl, timeout time.Duration, opts ...VaultOption) TokenVault {
	if ttl <= 0 {
		ttl = DefaultResetTokenTTL
	}
	v := &tokenVault{
		repo:    repo,
		ttl:     ttl,
		timeout: timeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// actionError marks failures returned by a Consume action so they reach the
// caller unchanged.
type actionError struct {
	err error
}

func (e *actionError) Error() string { return e.err.Error() }
func (e *actionError) Unwrap() error { return e.err }

func (v *tokenVault) Issue(ctx context.Context, ownerEmail string) (string, error) {
	raw, digest, err := newSecret()
	if err != nil {
		return "", fmt.Errorf("failed to generate reset secret: %w", err)
	}

	now := v.clock()
	token := &model.ResetToken{
		OwnerEmail: ownerEmail,
		TokenHash:  digest,
		ExpiresAt:  now.Add(v.ttl),
		CreatedAt:  now,
	}

	ctx, cancel := v.withTimeout(ctx)
	defer cancel()

	if err := v.repo.Replace(ctx, token); err != nil {
		return "", dependencyError("issue reset token", err)
	}

	logger.Debug("Reset token issued", map[string]interface{}{
		"owner_email": ownerEmail,
		"expires_at":  token.ExpiresAt,
	})
	return raw, nil
}

func (v *tokenVault) Verify(ctx context.Context, ownerEmail, rawSecret string) (bool, error) {
	digest := digestSecret(rawSecret)
	now := v.clock()

	ctx, cancel := v.withTimeout(ctx)
	defer cancel()

	token, err := v.repo.FindLive(ctx, ownerEmail, now)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, dependencyError("verify reset token", err)
	}
	return token.IsLive(now) && digestsEqual(token.TokenHash, digest), nil
}

func (v *tokenVault) Consume(ctx context.Context, ownerEmail, rawSecret string, action func(tx *gorm.DB) error) error {
	digest := digestSecret(rawSecret)
	now := v.clock()

	ctx, cancel := v.withTimeout(ctx)
	defer cancel()

	err := v.repo.Transaction(ctx, func(repo repository.ResetTokenRepository, tx *gorm.DB) error {
		token, err := repo.FindLive(ctx, ownerEmail, now)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTokenNotFoundOrExpired
			}
			return err
		}
		if !token.IsLive(now) || !digestsEqual(token.TokenHash, digest) {
			return ErrTokenNotFoundOrExpired
		}

		claimed, err := repo.Claim(ctx, token.ID, digest)
		if err != nil {
			return err
		}
		if !claimed {
			return ErrTokenNotFoundOrExpired
		}

		if err := action(tx); err != nil {
			return &actionError{err: err}
		}
		return nil
	})

	var aerr *actionError
	switch {
	case err == nil:
		logger.Info("Reset token consumed", map[string]interface{}{
			"owner_email": ownerEmail,
		})
		return nil
	case errors.Is(err, ErrTokenNotFoundOrExpired):
		v.discardExpired(ctx, ownerEmail, now)
		return ErrTokenNotFoundOrExpired
	case errors.As(err, &aerr):
		return aerr.err
	default:
		return dependencyError("consume reset token", err)
	}
}

func (v *tokenVault) SweepExpired(ctx context.Context) (int64, error) {
	ctx, cancel := v.withTimeout(ctx)
	defer cancel()

	n, err := v.repo.DeleteExpired(ctx, v.clock())
	if err != nil {
		return 0, dependencyError("sweep expired reset tokens", err)
	}
	return n, nil
}

// discardExpired lazily removes the owner's expired token after a failed lookup.
func (v *tokenVault) discardExpired(ctx context.Context, ownerEmail string, now time.Time) {
	if ctx.Err() != nil {
		return
	}
	n, err := v.repo.DeleteExpiredForOwner(ctx, ownerEmail, now)
	if err != nil {
		logger.Warn("Failed to discard expired reset token", map[string]interface{}{
			"owner_email": ownerEmail,
			"error":       err.Error(),
		})
		return
	}
	if n > 0 {
		logger.Debug("Expired reset token discarded", map[string]interface{}{
			"owner_email": ownerEmail,
		})
	}
}

func (v *tokenVault) clock() time.Time {
	return v.now().UTC()
}

func (v *tokenVault) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if v.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, v.timeout)
}

// newSecret returns a random hex secret and its digest.
func newSecret() (raw, digest string, err error) {
	buf := make([]byte, ResetSecretLength)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(buf)
	return raw, digestSecret(raw), nil
}

func digestSecret(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func digestsEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
