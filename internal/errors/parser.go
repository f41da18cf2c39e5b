package errors

import (
	"errors"
	"net/http"

	"github.com/ikkim/coach-portal-backend/internal/app/service"
	"github.com/ikkim/coach-portal-backend/internal/ratelimit"
)

const (
	msgInternal        = "Something went wrong. Please try again later"
	msgRetryLater      = "The service is temporarily unavailable. Please try again shortly"
	msgRateLimited     = "Too many requests. Please wait and try again"
	msgTokenInvalid    = "This reset link is invalid or has expired"
	msgEmailExists     = "An account with this email already exists"
	msgBadCredentials  = "Invalid email or password"
	msgNotifyFailed    = "We could not send the email. Please try again"
	msgAccountNotFound = "Account not found"
)

// ErrorInfo is the client-facing form of an error.
type ErrorInfo struct {
	Status  int
	Code    string
	Message string
}

// ParseError translates service and limiter errors to a status, code and
// user-facing message. Unknown errors become a generic 500.
func ParseError(err error) ErrorInfo {
	var verr *service.ValidationError
	switch {
	case err == nil:
		return ErrorInfo{Status: http.StatusInternalServerError, Code: InternalServerError, Message: msgInternal}
	case errors.As(err, &verr):
		return ErrorInfo{Status: http.StatusBadRequest, Code: ValidationInvalidInput, Message: verr.Message}
	case errors.Is(err, service.ErrEmailAlreadyExists):
		return ErrorInfo{Status: http.StatusConflict, Code: AuthEmailAlreadyExists, Message: msgEmailExists}
	case errors.Is(err, service.ErrTokenNotFoundOrExpired):
		return ErrorInfo{Status: http.StatusBadRequest, Code: AuthTokenInvalid, Message: msgTokenInvalid}
	case errors.Is(err, service.ErrInvalidCredentials):
		return ErrorInfo{Status: http.StatusUnauthorized, Code: AuthInvalidCredentials, Message: msgBadCredentials}
	case errors.Is(err, service.ErrAccountNotFound):
		return ErrorInfo{Status: http.StatusNotFound, Code: ResourceNotFound, Message: msgAccountNotFound}
	case errors.Is(err, service.ErrNotificationFailed):
		return ErrorInfo{Status: http.StatusServiceUnavailable, Code: NotificationFailed, Message: msgNotifyFailed}
	case errors.Is(err, service.ErrDependencyUnavailable), errors.Is(err, ratelimit.ErrStoreUnavailable):
		return ErrorInfo{Status: http.StatusServiceUnavailable, Code: ServiceUnavailable, Message: msgRetryLater}
	default:
		return ErrorInfo{Status: http.StatusInternalServerError, Code: InternalServerError, Message: msgInternal}
	}
}
