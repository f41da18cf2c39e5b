package model

import (
	"time"
)

// ResetToken binds an owner to the digest of a single-use password reset
// secret. The unique owner index keeps at most one token per account.
type ResetToken struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	OwnerEmail string    `gorm:"size:255;not null;uniqueIndex" json:"owner_email"`
	TokenHash  string    `gorm:"size:64;not null" json:"-"`
	ExpiresAt  time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
}

func (ResetToken) TableName() string {
	return "reset_tokens"
}

// IsLive reports whether the token is still usable at now.
func (t *ResetToken) IsLive(now time.Time) bool {
	return t.ExpiresAt.After(now)
}
