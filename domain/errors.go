package domain

// ValidationError reports a malformed or missing input field. It is surfaced
// to the caller with a field-specific message and is never fatal.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NotFoundError reports an operation targeting an entity the owner does not
// have.
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string { return e.Entity + " not found" }

// AuthError reports the absence of an authenticated owner or rejected
// credentials.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

var (
	ErrTaskNotFound       = &NotFoundError{Entity: "Task"}
	ErrUserNotFound       = &NotFoundError{Entity: "User"}
	ErrInvalidCredentials = &AuthError{Message: "Invalid email or password"}
	ErrDuplicateEmail     = &ValidationError{Field: "email", Message: "User with this email already exists"}
)
