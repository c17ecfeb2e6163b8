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
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeProviderUnavailable = "PROVIDER_UNAVAILABLE"
	ErrCodeIrrelevantQuery     = "IRRELEVANT_QUERY"
	ErrCodeGeneration          = "GENERATION_ERROR"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeInternalError       = "INTERNAL_ERROR"
	ErrCodeUnavailable         = "SERVICE_UNAVAILABLE"
)

// Validation errors
var (
	ErrEmptyQuery            = NewDomainError(ErrCodeValidation, "query cannot be empty")
	ErrInvalidSentimentScore = NewDomainError(ErrCodeValidation, "sentiment score must be between 0 and 100")
	ErrInvalidSentimentLabel = NewDomainError(ErrCodeValidation, "invalid sentiment label")
	ErrInvalidBackfillStatus = NewDomainError(ErrCodeValidation, "invalid backfill job status")
	ErrMissingRequiredField  = NewDomainError(ErrCodeValidation, "missing required field")
)

// Pipeline outcome errors. These are the only failure shapes the caller sees;
// provider-level failures are absorbed inside the aggregation and indexing
// stages, and an unresolved or ambiguous entity is a nil Entity, not an error.
var (
	ErrIrrelevantQuery = NewDomainError(ErrCodeIrrelevantQuery, "query is not financially relevant")
	ErrGeneration      = NewDomainError(ErrCodeGeneration, "model output failed schema validation")
)

// Provider errors (recovered locally, never surfaced to callers)
var (
	ErrProviderUnavailable = NewDomainError(ErrCodeProviderUnavailable, "provider failed or timed out")
	ErrProviderQuota       = NewDomainError(ErrCodeProviderUnavailable, "provider rejected request over quota")
)

// Index errors
var (
	ErrChunkNotFound     = NewDomainError(ErrCodeNotFound, "chunk not found")
	ErrPipelineSaturated = NewDomainError(ErrCodeUnavailable, "pipeline worker pool is saturated")
)
