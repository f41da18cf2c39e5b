package util

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

const sessionIssuer = "coach-portal"

// SessionClaims is the payload of a signed session token.
type SessionClaims struct {
	AccountID uint   `json:"account_id"`
	Email     string `json:"email"`
	jwt.RegisteredClaims
}

// GenerateSessionToken signs an HS256 session token for the account.
func GenerateSessionToken(accountID uint, email, secret string, expiry time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(expiry)
	claims := SessionClaims{
		AccountID: accountID,
		Email:     email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(accountID), 10),
			Issuer:    sessionIssuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateToken parses a session token, accepting HS256 only.
func ValidateToken(tokenString, secret string) (*SessionClaims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// SessionManager issues session tokens and reads them back from requests.
type SessionManager struct {
	secret     string
	expiry     time.Duration
	cookieName string
	secure     bool
}

func NewSessionManager(secret string, expiry time.Duration, cookieName string, secure bool) *SessionManager {
	return &SessionManager{
		secret:     secret,
		expiry:     expiry,
		cookieName: cookieName,
		secure:     secure,
	}
}

func (m *SessionManager) CookieName() string { return m.cookieName }
func (m *SessionManager) Expiry() time.Duration { return m.expiry }
func (m *SessionManager) Secure() bool { return m.secure }

func (m *SessionManager) Issue(accountID uint, email string) (string, time.Time, error) {
	return GenerateSessionToken(accountID, email, m.secret, m.expiry)
}

// Parse validates a raw session token with the manager's secret.
func (m *SessionManager) Parse(token string) (*SessionClaims, error) {
	return ValidateToken(token, m.secret)
}

// Verify returns the session carried by the request's cookie or bearer header.
func (m *SessionManager) Verify(r *http.Request) (*SessionClaims, bool) {
	token := m.TokenFromRequest(r)
	if token == "" {
		return nil, false
	}
	claims, err := m.Parse(token)
	if err != nil {
		return nil, false
	}
	return claims, true
}

// TokenFromRequest prefers the session cookie over an Authorization header.
func (m *SessionManager) TokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(m.cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	parts := strings.Split(r.Header.Get("Authorization"), " ")
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}
