package middleware

import (
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/coach-portal-backend/internal/gate"
)

// LocaleKey holds the locale the access gate resolved for a page request.
const LocaleKey = "locale"

// AccessGate redirects page requests that the gate does not let through.
// API and health routes are not pages and are left alone.
func AccessGate(g *gate.Gate, verifier gate.SessionVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if !isPageRequest(c.Request.Method, path) {
			c.Next()
			return
		}

		_, hasSession := verifier.Verify(c.Request)
		decision := g.Decide(path, hasSession)
		c.Set(LocaleKey, decision.Locale)

		if decision.Action == gate.Redirect {
			GetLoggerFromContext(c).Debug("Access gate redirect", map[string]interface{}{
				"class":    decision.Class.String(),
				"location": decision.Location,
			})
			c.Redirect(http.StatusTemporaryRedirect, decision.Location)
			c.Abort()
			return
		}

		c.Next()
	}
}

func isPageRequest(method, requestPath string) bool {
	if method != http.MethodGet && method != http.MethodHead {
		return false
	}
	cleaned := path.Clean("/" + requestPath)
	return !strings.HasPrefix(cleaned, "/api/") && cleaned != "/api" && cleaned != "/health"
}
