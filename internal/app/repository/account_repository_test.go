package repository

import (
	"context"
	"testing"

	"github.com/ikkim/coach-portal-backend/internal/app/model"
	"github.com/ikkim/coach-portal-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupAccountTest(t *testing.T) (*gorm.DB, AccountRepository) {
	testDB, err := db.SetupTestDB(t)
	require.NoError(t, err)

	return testDB, NewAccountRepository(testDB)
}

func TestAccountRepository_Create(t *testing.T) {
	_, repo := setupAccountTest(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		account *model.Account
		wantErr error
	}{
		{
			name:    "Valid account",
			account: &model.Account{Email: "coach@example.com", Name: "Coach", PasswordHash: "hash"},
		},
		{
			name:    "Duplicate email",
			account: &model.Account{Email: "coach@example.com", Name: "Other", PasswordHash: "hash"},
			wantErr: ErrDuplicateEmail,
		},
		{
			name:    "Email differing only in case is a different account",
			account: &model.Account{Email: "Coach@example.com", Name: "Upper", PasswordHash: "hash"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.Create(ctx, tt.account)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
				assert.NotZero(t, tt.account.ID)
			}
		})
	}
}

func TestAccountRepository_FindByEmail(t *testing.T) {
	_, repo := setupAccountTest(t)
	ctx := context.Background()

	account := &model.Account{Email: "coach@example.com", Name: "Coach", PasswordHash: "hash"}
	require.NoError(t, repo.Create(ctx, account))

	found, err := repo.FindByEmail(ctx, "coach@example.com")
	require.NoError(t, err)
	assert.Equal(t, account.ID, found.ID)

	byID, err := repo.FindByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "Coach", byID.Name)

	_, err = repo.FindByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestAccountRepository_UpdatePasswordHash(t *testing.T) {
	testDB, repo := setupAccountTest(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &model.Account{Email: "coach@example.com", Name: "Coach", PasswordHash: "old"}))

	require.NoError(t, repo.UpdatePasswordHash(ctx, "coach@example.com", "new"))
	found, err := repo.FindByEmail(ctx, "coach@example.com")
	require.NoError(t, err)
	assert.Equal(t, "new", found.PasswordHash)

	err = repo.UpdatePasswordHash(ctx, "missing@example.com", "new")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// Rolled back transactions leave the hash untouched.
	_ = testDB.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, repo.WithTx(tx).UpdatePasswordHash(ctx, "coach@example.com", "rolled-back"))
		return gorm.ErrInvalidTransaction
	})
	found, err = repo.FindByEmail(ctx, "coach@example.com")
	require.NoError(t, err)
	assert.Equal(t, "new", found.PasswordHash)
}
