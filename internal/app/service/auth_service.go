package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ikkim/coach-portal-backend/internal/app/model"
	"github.com/ikkim/coach-portal-backend/internal/app/repository"
	"github.com/ikkim/coach-portal-backend/internal/notify"
	"github.com/ikkim/coach-portal-backend/pkg/logger"
	"github.com/ikkim/coach-portal-backend/pkg/util"
	"gorm.io/gorm"
)

type AuthService interface {
	Register(ctx context.Context, input RegistrationInput) (*model.Account, error)
	Login(ctx context.Context, email, password string) (*model.Account, *Session, error)
	GetAccount(ctx context.Context, id uint) (*model.Account, error)
	// ForgotPassword returns nil for unknown emails so callers cannot tell
	// whether an account exists. Every request past validation lasts at
	// least the configured response floor.
	ForgotPassword(ctx context.Context, email, locale string) error
	VerifyResetToken(ctx context.Context, email, token string) (bool, error)
	ResetPassword(ctx context.Context, email, token, newPassword string) error
}

// Session is a freshly issued session token.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

type AuthServiceConfig struct {
	// AppBaseURL prefixes links embedded in outgoing mail.
	AppBaseURL    string
	StoreTimeout  time.Duration
	NotifyTimeout time.Duration
	// ResponseFloor pads forgot-password so known and unknown emails take
	// the same time.
	ResponseFloor time.Duration
}

type authService struct {
	accounts    repository.AccountRepository
	credentials CredentialManager
	vault       TokenVault
	notifier    notify.Notifier
	sessions    *util.SessionManager
	cfg         AuthServiceConfig

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(
	accounts repository.AccountRepository,
	credentials CredentialManager,
	vault TokenVault,
	notifier notify.Notifier,
	sessions *util.SessionManager,
	cfg AuthServiceConfig,
) AuthService {
	cfg.AppBaseURL = strings.TrimRight(cfg.AppBaseURL, "/")
	return &authService{
		accounts:    accounts,
		credentials: credentials,
		vault:       vault,
		notifier:    notifier,
		sessions:    sessions,
		cfg:         cfg,
	}
}

func (s *authService) Register(ctx context.Context, input RegistrationInput) (*model.Account, error) {
	validated, err := s.credentials.ValidateRegistration(input)
	if err != nil {
		return nil, err
	}

	logger.Info("Attempting account registration", map[string]interface{}{
		"email": validated.Email,
	})

	hash, err := s.credentials.HashPassword(validated.Password)
	if err != nil {
		logger.Error("Failed to hash password", err, map[string]interface{}{
			"email": validated.Email,
		})
		return nil, err
	}

	account := &model.Account{
		Email:        validated.Email,
		Name:         validated.Name,
		PasswordHash: hash,
	}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			logger.Warn("Registration failed: email already exists", map[string]interface{}{
				"email": validated.Email,
			})
			return nil, ErrEmailAlreadyExists
		}
		return nil, dependencyError("create account", err)
	}

	logger.Info("Account registered successfully", map[string]interface{}{
		"account_id": account.ID,
		"email":      account.Email,
	})
	return account, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*model.Account, *Session, error) {
	email = strings.TrimSpace(email)
	logger.Info("Login attempt", map[string]interface{}{
		"email": email,
	})

	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Keep the unknown-email path as slow as a real comparison.
			_, _ = s.credentials.VerifyPassword(password, s.placeholderHash())
			logger.Warn("Login failed: account not found", map[string]interface{}{
				"email": email,
			})
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, dependencyError("find account", err)
	}

	ok, err := s.credentials.VerifyPassword(password, account.PasswordHash)
	if err != nil {
		logger.Error("Stored password hash is malformed", err, map[string]interface{}{
			"account_id": account.ID,
		})
		return nil, nil, err
	}
	if !ok {
		logger.Warn("Login failed: invalid password", map[string]interface{}{
			"account_id": account.ID,
		})
		return nil, nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.sessions.Issue(account.ID, account.Email)
	if err != nil {
		logger.Error("Failed to issue session token", err, map[string]interface{}{
			"account_id": account.ID,
		})
		return nil, nil, err
	}

	logger.Info("Login successful", map[string]interface{}{
		"account_id": account.ID,
	})
	return account, &Session{Token: token, ExpiresAt: expiresAt}, nil
}

func (s *authService) GetAccount(ctx context.Context, id uint) (*model.Account, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	account, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, dependencyError("find account", err)
	}
	return account, nil
}

func (s *authService) ForgotPassword(ctx context.Context, email, locale string) error {
	email = strings.TrimSpace(email)
	if err := s.credentials.ValidateEmail(email); err != nil {
		return err
	}

	logger.Info("Processing password reset request", map[string]interface{}{
		"email": email,
	})

	defer s.padResponse(ctx, time.Now())

	lookupCtx, cancel := s.storeContext(ctx)
	account, err := s.accounts.FindByEmail(lookupCtx, email)
	cancel()
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_, _, _ = newSecret()
			logger.Warn("Password reset requested for unknown email", map[string]interface{}{
				"email": email,
			})
			return nil
		}
		return dependencyError("find account", err)
	}

	raw, err := s.vault.Issue(ctx, account.Email)
	if err != nil {
		logger.Error("Failed to issue reset token", err, map[string]interface{}{
			"account_id": account.ID,
		})
		return err
	}

	notifyCtx := ctx
	if s.cfg.NotifyTimeout > 0 {
		var cancelNotify context.CancelFunc
		notifyCtx, cancelNotify = context.WithTimeout(ctx, s.cfg.NotifyTimeout)
		defer cancelNotify()
	}

	payload := map[string]string{
		"name": account.Name,
		"link": s.resetLink(locale, raw, account.Email),
	}
	if err := s.notifier.Send(notifyCtx, account.Email, notify.TemplatePasswordReset, payload); err != nil {
		logger.Error("Failed to send password reset email", err, map[string]interface{}{
			"account_id": account.ID,
		})
		return fmt.Errorf("%w: %v", ErrNotificationFailed, err)
	}

	logger.Info("Password reset email sent", map[string]interface{}{
		"account_id": account.ID,
	})
	return nil
}

func (s *authService) VerifyResetToken(ctx context.Context, email, token string) (bool, error) {
	email = strings.TrimSpace(email)
	token = strings.TrimSpace(token)
	if email == "" || token == "" {
		return false, nil
	}
	return s.vault.Verify(ctx, email, token)
}

func (s *authService) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	if err := s.credentials.ValidatePassword(newPassword); err != nil {
		return err
	}

	email = strings.TrimSpace(email)
	token = strings.TrimSpace(token)
	if email == "" || token == "" {
		return ErrTokenNotFoundOrExpired
	}

	hash, err := s.credentials.HashPassword(newPassword)
	if err != nil {
		logger.Error("Failed to hash new password", err, nil)
		return err
	}

	err = s.vault.Consume(ctx, email, token, func(tx *gorm.DB) error {
		return s.accounts.WithTx(tx).UpdatePasswordHash(tx.Statement.Context, email, hash)
	})
	switch {
	case err == nil:
		logger.Info("Password reset successful", map[string]interface{}{
			"email": email,
		})
		return nil
	case errors.Is(err, ErrTokenNotFoundOrExpired), errors.Is(err, gorm.ErrRecordNotFound):
		logger.Warn("Invalid reset token provided", map[string]interface{}{
			"email": email,
		})
		return ErrTokenNotFoundOrExpired
	case errors.Is(err, ErrDependencyUnavailable):
		return err
	default:
		return dependencyError("update password", err)
	}
}

func (s *authService) resetLink(locale, token, email string) string {
	q := url.Values{}
	q.Set("token", token)
	q.Set("email", email)
	return fmt.Sprintf("%s/%s/auth/reset-password?%s", s.cfg.AppBaseURL, locale, q.Encode())
}

func (s *authService) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.StoreTimeout)
}

// padResponse blocks until floor has elapsed since start or ctx ends.
func (s *authService) padResponse(ctx context.Context, start time.Time) {
	if s.cfg.ResponseFloor <= 0 {
		return
	}
	remaining := s.cfg.ResponseFloor - time.Since(start)
	if remaining <= 0 {
		logger.Warn("Password reset request exceeded response floor", map[string]interface{}{
			"floor_ms":   s.cfg.ResponseFloor.Milliseconds(),
			"elapsed_ms": time.Since(start).Milliseconds(),
		})
		return
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// placeholderHash is compared against when no account matches a login.
func (s *authService) placeholderHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.credentials.HashPassword("placeholder-Password-1")
		if err != nil {
			logger.Error("Failed to build placeholder hash", err, nil)
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}
