package handlers

const (
	// maxBodyBytes bounds JSON request bodies
	maxBodyBytes = 1 << 20

	ErrInvalidRequest      = "Invalid request body"
	ErrUnauthorized        = "Unauthorized"
	ErrForbidden           = "Forbidden"
	ErrTooManyRequests     = "Too many requests"
	ErrInternalServerError = "Internal server error"
)
