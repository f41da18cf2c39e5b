package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the failure envelope.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`   // code from codes.go
	Message string `json:"message"` // safe to show to the user
}

// RespondWithError writes a failure envelope.
func RespondWithError(c *gin.Context, statusCode int, errorCode string, message string) {
	c.JSON(statusCode, ErrorResponse{
		Success: false,
		Error:   errorCode,
		Message: message,
	})
}

// RespondWithSuccess writes a success envelope merged with extra fields.
func RespondWithSuccess(c *gin.Context, statusCode int, message string, extra gin.H) {
	body := gin.H{
		"success": true,
		"message": message,
	}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(statusCode, body)
}

// RespondWithServiceError maps an error from the service layer to an envelope.
// Internal details never reach the client.
func RespondWithServiceError(c *gin.Context, err error) {
	info := ParseError(err)
	RespondWithError(c, info.Status, info.Code, info.Message)
}

func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "Please sign in to continue"
	}
	RespondWithError(c, http.StatusUnauthorized, AuthUnauthorized, message)
}

func BadRequest(c *gin.Context, errorCode string, message string) {
	RespondWithError(c, http.StatusBadRequest, errorCode, message)
}

func NotFound(c *gin.Context, errorCode string, message string) {
	RespondWithError(c, http.StatusNotFound, errorCode, message)
}

func TooManyRequests(c *gin.Context, message string) {
	if message == "" {
		message = msgRateLimited
	}
	RespondWithError(c, http.StatusTooManyRequests, RateLimited, message)
}

func ServiceUnavailableError(c *gin.Context, message string) {
	if message == "" {
		message = msgRetryLater
	}
	RespondWithError(c, http.StatusServiceUnavailable, ServiceUnavailable, message)
}

func InternalError(c *gin.Context, message string) {
	if message == "" {
		message = msgInternal
	}
	RespondWithError(c, http.StatusInternalServerError, InternalServerError, message)
}
