package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/ikkim/coach-portal-backend/internal/app/model"
	"github.com/ikkim/coach-portal-backend/pkg/logger"
	"gorm.io/gorm"
)

// ErrDuplicateEmail is returned by Create when the email is already registered.
var ErrDuplicateEmail = errors.New("account email already exists")

type AccountRepository interface {
	Create(ctx context.Context, account *model.Account) error
	FindByID(ctx context.Context, id uint) (*model.Account, error)
	FindByEmail(ctx context.Context, email string) (*model.Account, error)
	UpdatePasswordHash(ctx context.Context, email, passwordHash string) error
	// WithTx returns a repository bound to an open transaction.
	WithTx(tx *gorm.DB) AccountRepository
}

type accountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) WithTx(tx *gorm.DB) AccountRepository {
	return &accountRepository{db: tx}
}

func (r *accountRepository) Create(ctx context.Context, account *model.Account) error {
	logger.Debug("Creating account in database", map[string]interface{}{
		"email": account.Email,
	})

	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateEmail
		}
		logger.Error("Failed to create account in database", err, map[string]interface{}{
			"email": account.Email,
		})
		return err
	}

	logger.Debug("Account created in database", map[string]interface{}{
		"account_id": account.ID,
		"email":      account.Email,
	})
	return nil
}

func (r *accountRepository) FindByID(ctx context.Context, id uint) (*model.Account, error) {
	var account model.Account
	if err := r.db.WithContext(ctx).First(&account, id).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// FindByEmail returns gorm.ErrRecordNotFound for unknown emails.
func (r *accountRepository) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	logger.Debug("Finding account by email in database", map[string]interface{}{
		"email": email,
	})

	var account model.Account
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&account).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find account by email in database", err, map[string]interface{}{
				"email": email,
			})
		}
		return nil, err
	}
	return &account, nil
}

// UpdatePasswordHash returns gorm.ErrRecordNotFound when no account matches.
func (r *accountRepository) UpdatePasswordHash(ctx context.Context, email, passwordHash string) error {
	logger.Debug("Updating account password hash in database", map[string]interface{}{
		"email": email,
	})

	result := r.db.WithContext(ctx).Model(&model.Account{}).
		Where("email = ?", email).
		Update("password_hash", passwordHash)
	if result.Error != nil {
		logger.Error("Failed to update account password hash in database", result.Error, map[string]interface{}{
			"email": email,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// isUniqueConstraintError covers drivers with and without gorm error translation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "duplicate key") || strings.Contains(s, "unique constraint")
}
