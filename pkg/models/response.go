package models

// ErrorType categorizes API failures so clients can branch on them
// without parsing messages.
type ErrorType string

const (
	GeneralErrorType        ErrorType = "general"
	ValidationErrorType     ErrorType = "validation"
	NotFoundErrorType       ErrorType = "not_found"
	ConflictErrorType       ErrorType = "conflict"
	AuthenticationErrorType ErrorType = "authentication"
	AuthorizationErrorType  ErrorType = "authorization"
	DatabaseErrorType       ErrorType = "database"
)

// APIResponse is the success envelope returned by every endpoint.
type APIResponse struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data,omitempty"`
}

// APIError is the error envelope returned by every endpoint.
type APIError struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	ErrorType ErrorType `json:"error_type,omitempty"`
}
