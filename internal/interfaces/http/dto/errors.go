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
	// ErrCodeConcurrencyConflict is used when optimistic locking fails
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Business rule error codes
const (
	// ErrCodeInvalidState is used when an operation is invalid for current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeBusinessRule is used for generic business rule violations
	ErrCodeBusinessRule = "ERR_BUSINESS_RULE"
	// ErrCodePayoutSettingsMissing is used when a store has no payout settings
	ErrCodePayoutSettingsMissing = "ERR_PAYOUT_SETTINGS_MISSING"
	// ErrCodePayoutSettingsUnverified is used when payout settings exist but were never verified
	ErrCodePayoutSettingsUnverified = "ERR_PAYOUT_SETTINGS_UNVERIFIED"
	// ErrCodeRefundExceedsBalance is used when a refund exceeds the remaining escrow balance
	ErrCodeRefundExceedsBalance = "ERR_REFUND_EXCEEDS_BALANCE"
	// ErrCodeUnsupportedRefund is used when a refund targets already released funds
	ErrCodeUnsupportedRefund = "ERR_UNSUPPORTED_REFUND"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodeRateLimited is used when a client exceeds the request rate limit
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
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidState:             http.StatusUnprocessableEntity,
	ErrCodeBusinessRule:             http.StatusUnprocessableEntity,
	ErrCodePayoutSettingsMissing:    http.StatusUnprocessableEntity,
	ErrCodePayoutSettingsUnverified: http.StatusUnprocessableEntity,
	ErrCodeRefundExceedsBalance:     http.StatusUnprocessableEntity,
	ErrCodeUnsupportedRefund:        http.StatusUnprocessableEntity,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,

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

// DomainErrorCodeMapping maps domain error codes to the standardized
// transport codes. Domain packages raise codes in their own vocabulary;
// the API responds with the ERR_* taxonomy.
var DomainErrorCodeMapping = map[string]string{
	// Lookups
	"NOT_FOUND":            ErrCodeNotFound,
	"ESCROW_NOT_FOUND":     ErrCodeNotFound,
	"ORDER_NOT_FOUND":      ErrCodeNotFound,
	"PAYOUT_NOT_FOUND":     ErrCodeNotFound,
	"SETTLEMENT_NOT_FOUND": ErrCodeNotFound,
	"RULE_NOT_FOUND":       ErrCodeNotFound,

	// Duplicates and races
	"ALREADY_EXISTS":       ErrCodeAlreadyExists,
	"SETTLEMENT_EXISTS":    ErrCodeAlreadyExists,
	"DUPLICATE_SHIPMENT":   ErrCodeConflict,
	"DUPLICATE_ALLOCATION": ErrCodeConflict,
	"RULE_OVERLAP":         ErrCodeConflict,
	"CONCURRENCY_CONFLICT": ErrCodeConcurrencyConflict,

	// State machine violations
	"INVALID_STATE":           ErrCodeInvalidState,
	"ORDER_NOT_PAID":          ErrCodeInvalidState,
	"SETTLEMENT_NOT_APPROVED": ErrCodeInvalidState,

	// Business rules
	"NO_SHIPMENTS":               ErrCodeBusinessRule,
	"NO_SETTLEMENTS":             ErrCodeBusinessRule,
	"CURRENCY_MISMATCH":          ErrCodeBusinessRule,
	"REFUND_EXCEEDS_BALANCE":     ErrCodeRefundExceedsBalance,
	"UNSUPPORTED_REFUND":         ErrCodeUnsupportedRefund,
	"PAYOUT_SETTINGS_MISSING":    ErrCodePayoutSettingsMissing,
	"PAYOUT_SETTINGS_UNVERIFIED": ErrCodePayoutSettingsUnverified,

	// Input problems
	"INVALID_INPUT":    ErrCodeInvalidInput,
	"INVALID_AMOUNT":   ErrCodeInvalidInput,
	"INVALID_APPROVER": ErrCodeInvalidInput,
	"INVALID_CATEGORY": ErrCodeInvalidInput,
	"INVALID_CURRENCY": ErrCodeInvalidInput,
	"INVALID_EVENT":    ErrCodeInvalidInput,
	"INVALID_METHOD":   ErrCodeInvalidInput,
	"INVALID_ORDER":    ErrCodeInvalidInput,
	"INVALID_PERIOD":   ErrCodeInvalidInput,
	"INVALID_RATE":     ErrCodeInvalidInput,
	"INVALID_REASON":   ErrCodeInvalidInput,
	"INVALID_RETRIES":  ErrCodeInvalidInput,
	"INVALID_SCOPE":    ErrCodeInvalidInput,
	"INVALID_SHIPMENT": ErrCodeInvalidInput,
	"INVALID_STORE":    ErrCodeInvalidInput,
	"INVALID_VERSION":  ErrCodeInvalidInput,
	"INVALID_WINDOW":   ErrCodeInvalidInput,
}

// NormalizeErrorCode converts a domain error code to the standardized format
// If the code is already in the new format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
