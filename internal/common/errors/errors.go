// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"chatdb-workers/internal/translator"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Translation errors. All of them are caused by the question itself and are
// never retried.
const (
	ErrCodeUnrecognizedQuery  ErrorCode = "UNRECOGNIZED_QUERY"
	ErrCodeUnknownField       ErrorCode = "UNKNOWN_FIELD"
	ErrCodeTypeMismatch       ErrorCode = "TYPE_MISMATCH"
	ErrCodeMalformedLimit     ErrorCode = "MALFORMED_LIMIT"
	ErrCodeMalformedFragments ErrorCode = "MALFORMED_FRAGMENTS"
	ErrCodeUnsupportedBackend ErrorCode = "UNSUPPORTED_BACKEND"
	ErrCodeMissingTarget      ErrorCode = "MISSING_TARGET"
	ErrCodeTranslationFailed  ErrorCode = "TRANSLATION_FAILED"
)

// Executor errors.
const (
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"

	ErrCodeMongoDBConnectionFailed ErrorCode = "MONGODB_CONNECTION_FAILED"
	ErrCodeMongoDBQueryFailed      ErrorCode = "MONGODB_QUERY_FAILED"

	ErrCodeElasticsearchConnectionFailed ErrorCode = "ELASTICSEARCH_CONNECTION_FAILED"
	ErrCodeSearchQueryFailed             ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeSearchTimeout                 ErrorCode = "SEARCH_TIMEOUT"
	ErrCodeIndexNotFound                 ErrorCode = "INDEX_NOT_FOUND"

	ErrCodeInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata attaches a key to the error's metadata and returns the error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: IsRetryableErrorCode(code),
		Timestamp: time.Now().UTC(),
	}
}

var translationMessages = map[ErrorCode]string{
	ErrCodeUnrecognizedQuery:  "Question does not match any supported query pattern",
	ErrCodeUnknownField:       "Filter refers to a field the dataset does not know",
	ErrCodeTypeMismatch:       "Filter value does not fit the field type",
	ErrCodeMalformedLimit:     "Result limit must be a positive whole number",
	ErrCodeMalformedFragments: "Question is missing a required part",
	ErrCodeUnsupportedBackend: "Requested backend is not supported",
	ErrCodeMissingTarget:      "Target table, collection or index is required",
	ErrCodeTranslationFailed:  "Question could not be translated",
}

// FromTranslationError maps a translator failure onto its error code.
// Errors that are already StandardErrors pass through untouched.
func FromTranslationError(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	code := ErrorCode(translator.Code(err))
	if _, known := translationMessages[code]; !known {
		code = ErrCodeTranslationFailed
	}
	return newError(code, translationMessages[code], err.Error())
}

// NewInvalidInputError creates a non-retryable input error.
func NewInvalidInputError(details string) *StandardError {
	return newError(ErrCodeInvalidInput, "Invalid job input", details)
}

// NewDatabaseConnectionFailedError creates a retryable connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Failed to connect to SQL database", err.Error())
}

// NewQueryExecutionFailedError creates a retryable SQL execution error.
func NewQueryExecutionFailedError(intent string, err error) *StandardError {
	return newError(ErrCodeQueryExecutionFailed, "SQL query execution failed", err.Error()).
		WithMetadata("intent", intent)
}

// NewQueryTimeoutError creates a retryable SQL timeout error.
func NewQueryTimeoutError(intent string) *StandardError {
	return newError(ErrCodeQueryTimeout, "SQL query timed out", "").
		WithMetadata("intent", intent)
}

// NewMongoDBConnectionFailedError creates a retryable connection error.
func NewMongoDBConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeMongoDBConnectionFailed, "Failed to connect to MongoDB", err.Error())
}

// NewMongoDBQueryFailedError creates a retryable aggregation error.
func NewMongoDBQueryFailedError(collection string, err error) *StandardError {
	return newError(ErrCodeMongoDBQueryFailed, "MongoDB aggregation failed", err.Error()).
		WithMetadata("collection", collection)
}

// NewElasticsearchConnectionFailedError creates a retryable connection error.
func NewElasticsearchConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeElasticsearchConnectionFailed, "Failed to connect to Elasticsearch", err.Error())
}

// NewSearchQueryFailedError creates a retryable search error.
func NewSearchQueryFailedError(index string, err error) *StandardError {
	return newError(ErrCodeSearchQueryFailed, "Elasticsearch query failed", err.Error()).
		WithMetadata("index", index)
}

// NewSearchTimeoutError creates a retryable search timeout error.
func NewSearchTimeoutError(index string) *StandardError {
	return newError(ErrCodeSearchTimeout, "Elasticsearch query timed out", "").
		WithMetadata("index", index)
}

// NewIndexNotFoundError creates a non-retryable error for a missing index.
func NewIndexNotFoundError(index string) *StandardError {
	return newError(ErrCodeIndexNotFound, "Index not found", fmt.Sprintf("index %q does not exist", index))
}

// NewInternalError wraps an unexpected failure.
func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternalError, "Unexpected error", err.Error())
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeMongoDBConnectionFailed,
		ErrCodeMongoDBQueryFailed,
		ErrCodeElasticsearchConnectionFailed,
		ErrCodeSearchQueryFailed:
		return 3

	case ErrCodeQueryTimeout,
		ErrCodeSearchTimeout:
		return 2

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
// BPMN codes are identical to internal codes.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           string(stdErr.Code),
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	if _, ok := translationMessages[code]; ok {
		return "TRANSLATION"
	}
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "MONGODB"):
		return "DOCUMENT_STORE"
	case strings.Contains(codeStr, "ELASTICSEARCH") || strings.Contains(codeStr, "SEARCH") || strings.Contains(codeStr, "INDEX"):
		return "SEARCH"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
