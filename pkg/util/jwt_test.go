package util

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-session-testing"

func TestGenerateSessionToken(t *testing.T) {
	token, expiresAt, err := GenerateSessionToken(42, "coach@example.com", testSecret, time.Hour)

	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)
}

func TestValidateToken(t *testing.T) {
	token, _, err := GenerateSessionToken(123, "test@example.com", testSecret, 15*time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		secret  string
		wantErr error
	}{
		{
			name:    "Valid token",
			token:   token,
			secret:  testSecret,
			wantErr: nil,
		},
		{
			name:    "Invalid secret",
			token:   token,
			secret:  "wrong-secret",
			wantErr: ErrInvalidToken,
		},
		{
			name:    "Invalid token format",
			token:   "invalid.token.format",
			secret:  testSecret,
			wantErr: ErrInvalidToken,
		},
		{
			name:    "Empty token",
			token:   "",
			secret:  testSecret,
			wantErr: ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ValidateToken(tt.token, tt.secret)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, claims)
			} else {
				require.NoError(t, err)
				require.NotNil(t, claims)
				assert.Equal(t, uint(123), claims.AccountID)
				assert.Equal(t, "test@example.com", claims.Email)
				assert.Equal(t, "123", claims.Subject)
			}
		})
	}
}

func TestExpiredToken(t *testing.T) {
	token, _, err := GenerateSessionToken(1, "test@example.com", testSecret, -time.Minute)
	require.NoError(t, err)

	claims, err := ValidateToken(token, testSecret)
	assert.ErrorIs(t, err, ErrExpiredToken)
	assert.Nil(t, claims)
}

func TestValidateToken_RejectsOtherAlgorithms(t *testing.T) {
	claims := SessionClaims{
		AccountID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = ValidateToken(token, testSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessionManager_Verify(t *testing.T) {
	m := NewSessionManager(testSecret, time.Hour, "session_token", false)
	token, _, err := m.Issue(7, "coach@example.com")
	require.NoError(t, err)

	tests := []struct {
		name    string
		prepare func(r *http.Request)
		wantOK  bool
	}{
		{
			name:    "No credentials",
			prepare: func(r *http.Request) {},
			wantOK:  false,
		},
		{
			name: "Cookie",
			prepare: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: "session_token", Value: token})
			},
			wantOK: true,
		},
		{
			name: "Bearer header",
			prepare: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+token)
			},
			wantOK: true,
		},
		{
			name: "Malformed header",
			prepare: func(r *http.Request) {
				r.Header.Set("Authorization", "Token "+token)
			},
			wantOK: false,
		},
		{
			name: "Tampered cookie",
			prepare: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: "session_token", Value: token + "x"})
			},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/en/dashboard", nil)
			tt.prepare(req)

			claims, ok := m.Verify(req)

			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				require.NotNil(t, claims)
				assert.Equal(t, uint(7), claims.AccountID)
			}
		})
	}
}
