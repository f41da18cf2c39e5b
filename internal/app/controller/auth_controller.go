package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/coach-portal-backend/internal/app/model"
	"github.com/ikkim/coach-portal-backend/internal/app/service"
	apperrors "github.com/ikkim/coach-portal-backend/internal/errors"
	"github.com/ikkim/coach-portal-backend/internal/gate"
	"github.com/ikkim/coach-portal-backend/internal/middleware"
	"github.com/ikkim/coach-portal-backend/pkg/util"
)

// MsgResetRequested is returned for every forgot-password request, whether
// or not the account exists.
const MsgResetRequested = "If an account exists for this email, a password reset link has been sent"

type AuthController struct {
	authService service.AuthService
	sessions    *util.SessionManager
	gate        *gate.Gate
}

func NewAuthController(authService service.AuthService, sessions *util.SessionManager, g *gate.Gate) *AuthController {
	return &AuthController{
		authService: authService,
		sessions:    sessions,
		gate:        g,
	}
}

// Field rules live in the credential manager so the first violated rule is
// reported; binding only checks the JSON shape.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Website  string `json:"website"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type ForgotPasswordRequest struct {
	Email  string `json:"email"`
	Locale string `json:"locale"`
}

type VerifyResetTokenRequest struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email"`
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// Register handles account registration
// POST /api/v1/auth/register
func (ctrl *AuthController) Register(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid registration request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request body")
		return
	}

	account, err := ctrl.authService.Register(c.Request.Context(), service.RegistrationInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Website:  req.Website,
	})
	if err != nil {
		ctrl.respondWithError(c, "Registration failed", err)
		return
	}

	log.Info("Account registered successfully", map[string]interface{}{
		"account_id": account.ID,
	})

	apperrors.RespondWithSuccess(c, http.StatusCreated, "Account created successfully", gin.H{
		"account": accountResponse(account),
	})
}

// Login verifies credentials and sets the session cookie
// POST /api/v1/auth/login
func (ctrl *AuthController) Login(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid login request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Email and password are required")
		return
	}

	account, session, err := ctrl.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		ctrl.respondWithError(c, "Login failed", err)
		return
	}

	ctrl.setSessionCookie(c, session.Token, int(ctrl.sessions.Expiry().Seconds()))

	apperrors.RespondWithSuccess(c, http.StatusOK, "Signed in successfully", gin.H{
		"account":    accountResponse(account),
		"token":      session.Token,
		"expires_at": session.ExpiresAt,
	})
}

// Logout clears the session cookie
// POST /api/v1/auth/logout
func (ctrl *AuthController) Logout(c *gin.Context) {
	ctrl.setSessionCookie(c, "", -1)
	apperrors.RespondWithSuccess(c, http.StatusOK, "Signed out successfully", nil)
}

// GetSession returns the account behind the current session
// GET /api/v1/auth/session
func (ctrl *AuthController) GetSession(c *gin.Context) {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	account, err := ctrl.authService.GetAccount(c.Request.Context(), accountID)
	if err != nil {
		ctrl.respondWithError(c, "Failed to load session account", err)
		return
	}

	apperrors.RespondWithSuccess(c, http.StatusOK, "Session is active", gin.H{
		"account": accountResponse(account),
	})
}

// ForgotPassword starts a password reset
// POST /api/v1/auth/forgot-password
func (ctrl *AuthController) ForgotPassword(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid forgot password request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request body")
		return
	}

	locale := ctrl.gate.ResolveLocale(req.Locale)
	if err := ctrl.authService.ForgotPassword(c.Request.Context(), req.Email, locale); err != nil {
		ctrl.respondWithError(c, "Forgot password failed", err)
		return
	}

	apperrors.RespondWithSuccess(c, http.StatusOK, MsgResetRequested, nil)
}

// VerifyResetToken reports whether a reset link is still usable
// POST /api/v1/auth/verify-reset-token
func (ctrl *AuthController) VerifyResetToken(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req VerifyResetTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid verify reset token request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request body")
		return
	}

	valid, err := ctrl.authService.VerifyResetToken(c.Request.Context(), req.Email, req.Token)
	if err != nil {
		ctrl.respondWithError(c, "Verify reset token failed", err)
		return
	}

	message := "Reset link is valid"
	if !valid {
		message = "This reset link is invalid or has expired"
	}
	apperrors.RespondWithSuccess(c, http.StatusOK, message, gin.H{
		"valid": valid,
	})
}

// ResetPassword sets a new password using a reset token
// POST /api/v1/auth/reset-password
func (ctrl *AuthController) ResetPassword(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid reset password request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request body")
		return
	}

	if err := ctrl.authService.ResetPassword(c.Request.Context(), req.Email, req.Token, req.NewPassword); err != nil {
		ctrl.respondWithError(c, "Reset password failed", err)
		return
	}

	apperrors.RespondWithSuccess(c, http.StatusOK, "Your password has been reset", nil)
}

// respondWithError logs server-side failures with detail and answers with
// the generic envelope for err.
func (ctrl *AuthController) respondWithError(c *gin.Context, msg string, err error) {
	log := middleware.GetLoggerFromContext(c)
	info := apperrors.ParseError(err)
	if info.Status >= http.StatusInternalServerError {
		log.Error(msg, err)
	} else {
		log.Warn(msg, map[string]interface{}{
			"code": info.Code,
		})
	}
	apperrors.RespondWithError(c, info.Status, info.Code, info.Message)
}

func (ctrl *AuthController) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(ctrl.sessions.CookieName(), value, maxAge, "/", "", ctrl.sessions.Secure(), true)
}

func accountResponse(account *model.Account) gin.H {
	return gin.H{
		"id":         account.ID,
		"email":      account.Email,
		"name":       account.Name,
		"created_at": account.CreatedAt,
	}
}
