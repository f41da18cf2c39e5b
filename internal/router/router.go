package router

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/coach-portal-backend/config"
	"github.com/ikkim/coach-portal-backend/internal/app/controller"
	apperrors "github.com/ikkim/coach-portal-backend/internal/errors"
	"github.com/ikkim/coach-portal-backend/internal/gate"
	"github.com/ikkim/coach-portal-backend/internal/middleware"
	"github.com/ikkim/coach-portal-backend/internal/ratelimit"
	"github.com/ikkim/coach-portal-backend/pkg/logger"
)

type Router struct {
	authController *controller.AuthController
	authMiddleware *middleware.AuthMiddleware
	limiter        *ratelimit.Limiter
	gate           *gate.Gate
	verifier       gate.SessionVerifier
	config         *config.Config
}

func NewRouter(
	authController *controller.AuthController,
	authMiddleware *middleware.AuthMiddleware,
	limiter *ratelimit.Limiter,
	g *gate.Gate,
	verifier gate.SessionVerifier,
	cfg *config.Config,
) *Router {
	return &Router{
		authController: authController,
		authMiddleware: authMiddleware,
		limiter:        limiter,
		gate:           g,
		verifier:       verifier,
		config:         cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()
	if err := router.SetTrustedProxies(r.config.Server.TrustedProxies); err != nil {
		logger.Error("Invalid TRUSTED_PROXIES, forwarded client addresses ignored", err, map[string]interface{}{
			"trusted_proxies": r.config.Server.TrustedProxies,
		})
		_ = router.SetTrustedProxies(nil)
	}

	router.Use(gin.CustomRecovery(recoverWithEnvelope))
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))
	router.Use(middleware.AccessGate(r.gate, r.verifier))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "Coach portal API is running",
		})
	})

	strict := middleware.RateLimit(r.limiter, ratelimit.Strict(r.config.RateLimit.StrictMax, r.config.RateLimit.StrictWindow))
	lenient := middleware.RateLimit(r.limiter, ratelimit.Lenient(r.config.RateLimit.LenientMax, r.config.RateLimit.LenientWindow))

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", strict, r.authController.Register)
			auth.POST("/login", strict, r.authController.Login)
			auth.POST("/logout", r.authController.Logout)
			auth.GET("/session", lenient, r.authMiddleware.Authenticate(), r.authController.GetSession)
			auth.POST("/forgot-password", strict, r.authController.ForgotPassword)
			auth.POST("/verify-reset-token", lenient, r.authController.VerifyResetToken)
			auth.POST("/reset-password", strict, r.authController.ResetPassword)
		}
	}

	router.NoRoute(r.noRouteHandler())

	return router
}

// noRouteHandler forwards page requests that passed the access gate to the
// frontend when one is configured.
func (r *Router) noRouteHandler() gin.HandlerFunc {
	var proxy *httputil.ReverseProxy
	if r.config.Server.FrontendURL != "" {
		target, err := url.Parse(r.config.Server.FrontendURL)
		if err != nil || target.Host == "" {
			logger.Error("Invalid FRONTEND_URL, page proxy disabled", err, map[string]interface{}{
				"frontend_url": r.config.Server.FrontendURL,
			})
		} else {
			proxy = httputil.NewSingleHostReverseProxy(target)
		}
	}

	return func(c *gin.Context) {
		if proxy == nil || strings.HasPrefix(c.Request.URL.Path, "/api/") {
			apperrors.NotFound(c, apperrors.ResourceNotFound, "The requested resource was not found")
			return
		}
		proxy.ServeHTTP(c.Writer, c.Request)
	}
}

// recoverWithEnvelope answers a panicking handler with the generic 500 envelope.
func recoverWithEnvelope(c *gin.Context, recovered interface{}) {
	logger.Error("Panic recovered", fmt.Errorf("%v", recovered), map[string]interface{}{
		"method": c.Request.Method,
		"path":   c.Request.URL.Path,
	})
	apperrors.InternalError(c, "")
	c.Abort()
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-Request-ID, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Retry-After, X-RateLimit-Limit, X-RateLimit-Remaining, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
