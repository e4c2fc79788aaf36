// Package errors provides structured error handling for gitlab-search.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (file, disk)
//   - 3XX: Network errors (transport, HTTP status)
//   - 4XX: Validation errors
//   - 5XX: Decode and internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file and disk I/O errors.
	CategoryIO Category = "IO"
	// CategoryNetwork indicates transport errors talking to GitLab.
	CategoryNetwork Category = "NETWORK"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates decode failures and unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
	// SeverityInfo indicates informational only.
	SeverityInfo Severity = "INFO"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound   = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid    = "ERR_102_CONFIG_INVALID"
	ErrCodeConfigPermission = "ERR_103_CONFIG_PERMISSION"
	ErrCodeInstanceNotFound = "ERR_104_INSTANCE_NOT_FOUND"
	ErrCodeAmbiguousDefault = "ERR_105_AMBIGUOUS_DEFAULT"
	ErrCodeNoInstances      = "ERR_106_NO_INSTANCES"

	// IO errors (200-299)
	ErrCodeFileNotFound   = "ERR_201_FILE_NOT_FOUND"
	ErrCodeFilePermission = "ERR_202_FILE_PERMISSION"

	// Network errors (300-399)
	ErrCodeNetworkTimeout     = "ERR_301_NETWORK_TIMEOUT"
	ErrCodeNetworkUnavailable = "ERR_302_NETWORK_UNAVAILABLE"
	ErrCodeRateLimited        = "ERR_303_RATE_LIMITED"
	ErrCodeServerError        = "ERR_304_SERVER_ERROR"
	ErrCodeHTTPStatus         = "ERR_305_HTTP_STATUS"
	ErrCodeUnauthorized       = "ERR_306_UNAUTHORIZED"
	ErrCodeNotFound           = "ERR_307_NOT_FOUND"

	// Validation errors (400-499)
	ErrCodeInvalidInput      = "ERR_401_INVALID_INPUT"
	ErrCodeInvalidProjectRef = "ERR_406_INVALID_PROJECT_REF"

	// Internal errors (500-599)
	ErrCodeInternal          = "ERR_501_INTERNAL"
	ErrCodeDecodeFailed      = "ERR_502_DECODE_FAILED"
	ErrCodeSearchFailed      = "ERR_503_SEARCH_FAILED"
	ErrCodeEnumerationFailed = "ERR_504_ENUMERATION_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract numeric portion (e.g., "303" from "ERR_303_RATE_LIMITED")
	numStr := code[4:7]

	switch numStr[0] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryNetwork
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeEnumerationFailed, ErrCodeNoInstances:
		return SeverityFatal
	}

	// Transient network errors are warnings until retries run out
	if isRetryableCode(code) {
		return SeverityWarning
	}

	return SeverityError
}

// isRetryableCode checks if an error code represents a transient error.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeNetworkTimeout, ErrCodeNetworkUnavailable, ErrCodeRateLimited, ErrCodeServerError:
		return true
	default:
		return false
	}
}
