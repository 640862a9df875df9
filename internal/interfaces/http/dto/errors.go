package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeValidationRequired is used when a required field is missing
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	// ErrCodeValidationFormat is used when a field has invalid format
	ErrCodeValidationFormat = "ERR_VALIDATION_FORMAT"
	// ErrCodeValidationRange is used when a value is out of range
	ErrCodeValidationRange = "ERR_VALIDATION_RANGE"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeStaleRetrieval is used when a newer retrieval superseded the request
	ErrCodeStaleRetrieval = "ERR_STALE_RETRIEVAL"
)

// Commission error codes
const (
	// ErrCodeCommissionSplit is used when an override split is out of range
	ErrCodeCommissionSplit = "ERR_COMMISSION_SPLIT"
	// ErrCodeCommissionScope is used for an unknown override scope
	ErrCodeCommissionScope = "ERR_COMMISSION_SCOPE"
	// ErrCodeCommissionScopeKey is used when a currency or service override has no key
	ErrCodeCommissionScopeKey = "ERR_COMMISSION_SCOPE_KEY"
	// ErrCodeCommissionFeed is used when the commission feed is not a JSON object
	ErrCodeCommissionFeed = "ERR_COMMISSION_FEED"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodeRequestTooLarge is used when the body exceeds the configured limit
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
)

// Rate limiting error codes
const (
	// ErrCodeRateLimited is used when rate limit is exceeded
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,
	ErrCodeValidationRange:    http.StatusBadRequest,

	// Resource errors
	ErrCodeNotFound:       http.StatusNotFound,
	ErrCodeAlreadyExists:  http.StatusConflict,
	ErrCodeConflict:       http.StatusConflict,
	ErrCodeStaleRetrieval: http.StatusConflict,

	// Commission errors -> 400 Bad Request
	ErrCodeCommissionSplit:    http.StatusBadRequest,
	ErrCodeCommissionScope:    http.StatusBadRequest,
	ErrCodeCommissionScopeKey: http.StatusBadRequest,
	ErrCodeCommissionFeed:     http.StatusBadRequest,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	// Rate limiting -> 429 Too Many Requests
	ErrCodeRateLimited: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to the API codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":                    ErrCodeNotFound,
	"ALREADY_EXISTS":               ErrCodeAlreadyExists,
	"INVALID_INPUT":                ErrCodeInvalidInput,
	"CONCURRENCY_CONFLICT":         ErrCodeConflict,
	"VALIDATION_ERROR":             ErrCodeValidation,
	"BAD_REQUEST":                  ErrCodeBadRequest,
	"INTERNAL_ERROR":               ErrCodeInternal,
	"INVALID_COMMISSION_SPLIT":     ErrCodeCommissionSplit,
	"INVALID_COMMISSION_SCOPE":     ErrCodeCommissionScope,
	"MISSING_COMMISSION_SCOPE_KEY": ErrCodeCommissionScopeKey,
	"MALFORMED_COMMISSION_FEED":    ErrCodeCommissionFeed,
}

// NormalizeErrorCode converts a domain error code to the API format
// If the code is already in the API format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
