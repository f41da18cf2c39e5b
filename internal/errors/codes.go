package errors

// Error codes returned in the "error" field of every failure envelope.
// Format: CATEGORY_SPECIFIC_DETAIL. Clients map these to localized text.

const (
	// ==================== Auth (AUTH_) ====================
	AuthUnauthorized       = "AUTH_UNAUTHORIZED"        // login required
	AuthInvalidCredentials = "AUTH_INVALID_CREDENTIALS" // wrong email or password
	AuthTokenExpired       = "AUTH_TOKEN_EXPIRED"       // session expired
	AuthTokenInvalid       = "AUTH_TOKEN_INVALID"       // bad session or reset token
	AuthEmailAlreadyExists = "AUTH_EMAIL_EXISTS"        // duplicate registration

	// ==================== Validation (VALIDATION_) ====================
	ValidationInvalidInput = "VALIDATION_INVALID_INPUT"

	// ==================== Resource (RESOURCE_) ====================
	ResourceNotFound = "RESOURCE_NOT_FOUND"

	// ==================== Rate limit (RATE_) ====================
	RateLimited = "RATE_LIMITED"

	// ==================== Server (SERVER_) ====================
	InternalServerError = "SERVER_INTERNAL_ERROR"
	ServiceUnavailable  = "SERVER_SERVICE_UNAVAILABLE" // store or notifier down, retry later
	NotificationFailed  = "SERVER_NOTIFICATION_FAILED"
)
