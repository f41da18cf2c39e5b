package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/ikkim/coach-portal-backend/internal/errors"
	"github.com/ikkim/coach-portal-backend/pkg/util"
)

// Context keys for session information
const (
	AccountIDKey    = "account_id"
	AccountEmailKey = "account_email"
)

type AuthMiddleware struct {
	sessions *util.SessionManager
}

func NewAuthMiddleware(sessions *util.SessionManager) *AuthMiddleware {
	return &AuthMiddleware{
		sessions: sessions,
	}
}

// Authenticate requires a valid session cookie or bearer token.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		token := m.sessions.TokenFromRequest(c.Request)
		if token == "" {
			log.Warn("Missing session token", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			apperrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		claims, err := m.sessions.Parse(token)
		if err != nil {
			log.Warn("Session validation failed", map[string]interface{}{
				"path":  c.Request.URL.Path,
				"error": err.Error(),
			})

			if errors.Is(err, util.ErrExpiredToken) {
				apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTokenExpired, "Your session has expired. Please sign in again")
			} else {
				apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTokenInvalid, "Invalid session")
			}
			c.Abort()
			return
		}

		c.Set(AccountIDKey, claims.AccountID)
		c.Set(AccountEmailKey, claims.Email)

		log.Debug("Session authenticated", map[string]interface{}{
			"account_id": claims.AccountID,
		})

		c.Next()
	}
}

// GetAccountID extracts the authenticated account ID from context
func GetAccountID(c *gin.Context) (uint, bool) {
	id, exists := c.Get(AccountIDKey)
	if !exists {
		return 0, false
	}
	v, ok := id.(uint)
	return v, ok
}

// GetAccountEmail extracts the authenticated account email from context
func GetAccountEmail(c *gin.Context) (string, bool) {
	email, exists := c.Get(AccountEmailKey)
	if !exists {
		return "", false
	}
	v, ok := email.(string)
	return v, ok
}
