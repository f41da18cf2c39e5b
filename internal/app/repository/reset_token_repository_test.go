package repository

import (
	"context"
	"testing"
	"time"

	"github.com/ikkim/coach-portal-backend/internal/app/model"
	"github.com/ikkim/coach-portal-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupResetTokenTest(t *testing.T) (*gorm.DB, ResetTokenRepository) {
	testDB, err := db.SetupTestDB(t)
	require.NoError(t, err)

	return testDB, NewResetTokenRepository(testDB)
}

func TestResetTokenRepository_ReplaceKeepsOneTokenPerOwner(t *testing.T) {
	testDB, repo := setupResetTokenTest(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Replace(ctx, &model.ResetToken{
		OwnerEmail: "coach@example.com",
		TokenHash:  "first",
		ExpiresAt:  now.Add(time.Hour),
		CreatedAt:  now,
	}))
	require.NoError(t, repo.Replace(ctx, &model.ResetToken{
		OwnerEmail: "coach@example.com",
		TokenHash:  "second",
		ExpiresAt:  now.Add(time.Hour),
		CreatedAt:  now,
	}))

	var count int64
	require.NoError(t, testDB.Model(&model.ResetToken{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	live, err := repo.FindLive(ctx, "coach@example.com", now)
	require.NoError(t, err)
	assert.Equal(t, "second", live.TokenHash)
}

func TestResetTokenRepository_FindLive(t *testing.T) {
	_, repo := setupResetTokenTest(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Replace(ctx, &model.ResetToken{
		OwnerEmail: "expired@example.com",
		TokenHash:  "h",
		ExpiresAt:  now.Add(-time.Minute),
		CreatedAt:  now.Add(-time.Hour),
	}))

	tests := []struct {
		name  string
		email string
	}{
		{name: "Expired token", email: "expired@example.com"},
		{name: "No token", email: "missing@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.FindLive(ctx, tt.email, now)
			assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
		})
	}
}

func TestResetTokenRepository_Claim(t *testing.T) {
	_, repo := setupResetTokenTest(t)
	ctx := context.Background()
	now := time.Now().UTC()

	token := &model.ResetToken{OwnerEmail: "coach@example.com", TokenHash: "h", ExpiresAt: now.Add(time.Hour), CreatedAt: now}
	require.NoError(t, repo.Replace(ctx, token))
	live, err := repo.FindLive(ctx, "coach@example.com", now)
	require.NoError(t, err)

	claimed, err := repo.Claim(ctx, live.ID, "other-hash")
	require.NoError(t, err)
	assert.False(t, claimed)

	claimed, err = repo.Claim(ctx, live.ID, "h")
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = repo.Claim(ctx, live.ID, "h")
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestResetTokenRepository_DeleteExpired(t *testing.T) {
	_, repo := setupResetTokenTest(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, tok := range []*model.ResetToken{
		{OwnerEmail: "a@example.com", TokenHash: "a", ExpiresAt: now.Add(-2 * time.Hour), CreatedAt: now},
		{OwnerEmail: "b@example.com", TokenHash: "b", ExpiresAt: now.Add(-time.Minute), CreatedAt: now},
		{OwnerEmail: "c@example.com", TokenHash: "c", ExpiresAt: now.Add(time.Hour), CreatedAt: now},
	} {
		require.NoError(t, repo.Replace(ctx, tok))
	}

	n, err := repo.DeleteExpiredForOwner(ctx, "a@example.com", now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.FindLive(ctx, "c@example.com", now)
	assert.NoError(t, err)
}

func TestResetTokenRepository_TransactionRollsBack(t *testing.T) {
	_, repo := setupResetTokenTest(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Replace(ctx, &model.ResetToken{OwnerEmail: "coach@example.com", TokenHash: "h", ExpiresAt: now.Add(time.Hour), CreatedAt: now}))

	err := repo.Transaction(ctx, func(txRepo ResetTokenRepository, tx *gorm.DB) error {
		live, err := txRepo.FindLive(ctx, "coach@example.com", now)
		require.NoError(t, err)
		claimed, err := txRepo.Claim(ctx, live.ID, "h")
		require.NoError(t, err)
		require.True(t, claimed)
		return gorm.ErrInvalidData
	})
	assert.ErrorIs(t, err, gorm.ErrInvalidData)

	_, err = repo.FindLive(ctx, "coach@example.com", now)
	assert.NoError(t, err, "claim must be rolled back")
}
