package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeProvider      = "PROVIDER_ERROR"
	ErrCodeIndex         = "INDEX_ERROR"
	ErrCodeStore         = "STORE_ERROR"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrEmptyQuery           = NewDomainError(ErrCodeValidation, "query cannot be empty")
	ErrEmptyResponse        = NewDomainError(ErrCodeValidation, "response cannot be empty")
	ErrNonPositiveTTL       = NewDomainError(ErrCodeValidation, "ttl must be positive")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrChunkNotFound      = NewDomainError(ErrCodeNotFound, "knowledge chunk not found")
	ErrCacheEntryNotFound = NewDomainError(ErrCodeNotFound, "cache entry not found")
	ErrDocumentNotFound   = NewDomainError(ErrCodeNotFound, "document not found")
)

// External collaborator errors
var (
	ErrEmbeddingFailed   = NewDomainError(ErrCodeProvider, "embedding generation failed")
	ErrIndexUnavailable  = NewDomainError(ErrCodeIndex, "vector index unavailable")
	ErrCacheStoreFailure = NewDomainError(ErrCodeStore, "cache store operation failed")
)
