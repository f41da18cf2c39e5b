package repository

import (
	"context"
	"time"

	"github.com/ikkim/coach-portal-backend/internal/app/model"
	"github.com/ikkim/coach-portal-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ResetTokenRepository interface {
	// Replace stores token as the owner's only token, overwriting any previous one.
	Replace(ctx context.Context, token *model.ResetToken) error
	// FindLive returns the owner's token if it expires after now,
	// otherwise gorm.ErrRecordNotFound.
	FindLive(ctx context.Context, ownerEmail string, now time.Time) (*model.ResetToken, error)
	// Claim deletes the token with the given id and digest and reports whether
	// this call removed it.
	Claim(ctx context.Context, id uint, tokenHash string) (bool, error)
	DeleteExpiredForOwner(ctx context.Context, ownerEmail string, now time.Time) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	// Transaction runs fn with a repository and handle bound to one transaction.
	Transaction(ctx context.Context, fn func(repo ResetTokenRepository, tx *gorm.DB) error) error
}

type resetTokenRepository struct {
	db *gorm.DB
}

func NewResetTokenRepository(db *gorm.DB) ResetTokenRepository {
	return &resetTokenRepository{db: db}
}

func (r *resetTokenRepository) Replace(ctx context.Context, token *model.ResetToken) error {
	logger.Debug("Replacing reset token in database", map[string]interface{}{
		"owner_email": token.OwnerEmail,
	})

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_email"}},
		DoUpdates: clause.AssignmentColumns([]string{"token_hash", "expires_at", "created_at"}),
	}).Create(token).Error
	if err != nil {
		logger.Error("Failed to replace reset token in database", err, map[string]interface{}{
			"owner_email": token.OwnerEmail,
		})
		return err
	}
	return nil
}

func (r *resetTokenRepository) FindLive(ctx context.Context, ownerEmail string, now time.Time) (*model.ResetToken, error) {
	var token model.ResetToken
	err := r.db.WithContext(ctx).
		Where("owner_email = ? AND expires_at > ?", ownerEmail, now).
		First(&token).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *resetTokenRepository) Claim(ctx context.Context, id uint, tokenHash string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND token_hash = ?", id, tokenHash).
		Delete(&model.ResetToken{})
	if result.Error != nil {
		logger.Error("Failed to claim reset token in database", result.Error, map[string]interface{}{
			"id": id,
		})
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *resetTokenRepository) DeleteExpiredForOwner(ctx context.Context, ownerEmail string, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("owner_email = ? AND expires_at <= ?", ownerEmail, now).
		Delete(&model.ResetToken{})
	return result.RowsAffected, result.Error
}

func (r *resetTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	logger.Debug("Deleting expired reset tokens from database")

	result := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&model.ResetToken{})
	if result.Error != nil {
		logger.Error("Failed to delete expired reset tokens from database", result.Error, nil)
		return 0, result.Error
	}

	logger.Debug("Expired reset tokens deleted from database", map[string]interface{}{
		"count": result.RowsAffected,
	})
	return result.RowsAffected, nil
}

func (r *resetTokenRepository) Transaction(ctx context.Context, fn func(repo ResetTokenRepository, tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&resetTokenRepository{db: tx}, tx)
	})
}
