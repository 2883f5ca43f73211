package domain

import (
	"errors"
	"fmt"
)

// Category sentinels.
var (
	ErrNotFound      = fmt.Errorf("not found")
	ErrInvalidInput  = fmt.Errorf("invalid input")
	ErrProviderError = fmt.Errorf("provider error")
	ErrTimeout       = fmt.Errorf("operation timed out")
)

// Sentinel errors for the domain layer.
var (
	ErrMissingFields       = fmt.Errorf("%w: missing required fields", ErrInvalidInput)
	ErrInvalidBody         = fmt.Errorf("%w: malformed request body", ErrInvalidInput)
	ErrCredentialMissing   = fmt.Errorf("%w: credential is empty", ErrInvalidInput)
	ErrCredentialMalformed = fmt.Errorf("%w: credential is malformed", ErrInvalidInput)
	ErrUnknownPersonality  = fmt.Errorf("personality %w", ErrNotFound)
	ErrUnknownMode         = fmt.Errorf("completion mode %w", ErrNotFound)
	ErrConfigLoad          = fmt.Errorf("failed to load configuration")
	ErrCatalogInvalid      = fmt.Errorf("deployment catalog invalid")

	// Upstream errors.
	ErrAuthInvalid         = fmt.Errorf("authentication failed")
	ErrRateLimit           = fmt.Errorf("rate limit exceeded")
	ErrUpstreamBadRequest  = fmt.Errorf("upstream rejected request")
	ErrUpstreamUnreachable = fmt.Errorf("upstream unreachable")
	ErrCircuitOpen         = fmt.Errorf("%w: circuit open", ErrUpstreamUnreachable)
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op     string // operation name (e.g., "Registry.Lookup")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// UpstreamError is a non-2xx response from the upstream provider.
// Message is the provider's own error.message, if the payload carried one.
type UpstreamError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream API error %d: %s", e.StatusCode, e.Body)
}

// Unwrap maps the status code onto a sentinel so callers can use errors.Is.
func (e *UpstreamError) Unwrap() error {
	switch {
	case e.StatusCode == 401:
		return ErrAuthInvalid
	case e.StatusCode == 429:
		return ErrRateLimit
	case e.StatusCode == 400:
		return ErrUpstreamBadRequest
	default:
		return ErrProviderError
	}
}

// IsUpstreamFault reports whether err should count against upstream health:
// transport failures and 5xx responses. Caller-caused 4xx do not.
func IsUpstreamFault(err error) bool {
	if err == nil {
		return false
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.StatusCode >= 500
	}
	return errors.Is(err, ErrUpstreamUnreachable)
}

// ErrorCode is a machine-parseable error category for monitoring and alerting.
type ErrorCode string

const (
	CodeUnknown             ErrorCode = "UNKNOWN"
	CodeNotFound            ErrorCode = "NOT_FOUND"
	CodeInvalidInput        ErrorCode = "INVALID_INPUT"
	CodeProviderError       ErrorCode = "PROVIDER_ERROR"
	CodeTimeout             ErrorCode = "TIMEOUT"
	CodeMissingFields       ErrorCode = "MISSING_FIELDS"
	CodeInvalidBody         ErrorCode = "INVALID_BODY"
	CodeCredentialMissing   ErrorCode = "CREDENTIAL_MISSING"
	CodeCredentialMalformed ErrorCode = "CREDENTIAL_MALFORMED"
	CodeUnknownPersonality  ErrorCode = "UNKNOWN_PERSONALITY"
	CodeUnknownMode         ErrorCode = "UNKNOWN_MODE"
	CodeConfigLoad          ErrorCode = "CONFIG_LOAD"
	CodeCatalogInvalid      ErrorCode = "CATALOG_INVALID"
	CodeAuthInvalid         ErrorCode = "AUTH_INVALID"
	CodeRateLimit           ErrorCode = "RATE_LIMIT"
	CodeUpstreamBadRequest  ErrorCode = "UPSTREAM_BAD_REQUEST"
	CodeUpstreamUnreachable ErrorCode = "UPSTREAM_UNREACHABLE"
	CodeCircuitOpen         ErrorCode = "CIRCUIT_OPEN"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
var errorCodeMap = map[error]ErrorCode{
	ErrNotFound:      CodeNotFound,
	ErrInvalidInput:  CodeInvalidInput,
	ErrProviderError: CodeProviderError,
	ErrTimeout:       CodeTimeout,

	ErrMissingFields:       CodeMissingFields,
	ErrInvalidBody:         CodeInvalidBody,
	ErrCredentialMissing:   CodeCredentialMissing,
	ErrCredentialMalformed: CodeCredentialMalformed,
	ErrUnknownPersonality:  CodeUnknownPersonality,
	ErrUnknownMode:         CodeUnknownMode,
	ErrConfigLoad:          CodeConfigLoad,
	ErrCatalogInvalid:      CodeCatalogInvalid,
	ErrAuthInvalid:         CodeAuthInvalid,
	ErrRateLimit:           CodeRateLimit,
	ErrUpstreamBadRequest:  CodeUpstreamBadRequest,
	ErrUpstreamUnreachable: CodeUpstreamUnreachable,
	ErrCircuitOpen:         CodeCircuitOpen,
}

// specificity orders the chain walk so that wrapped sentinels resolve to
// the most specific code (ErrCircuitOpen and ErrTimeout before
// ErrUpstreamUnreachable, ErrMissingFields before ErrInvalidInput).
var specificity = []error{
	ErrCircuitOpen,
	ErrTimeout,
	ErrMissingFields,
	ErrInvalidBody,
	ErrCredentialMissing,
	ErrCredentialMalformed,
	ErrUnknownPersonality,
	ErrUnknownMode,
	ErrConfigLoad,
	ErrCatalogInvalid,
	ErrAuthInvalid,
	ErrRateLimit,
	ErrUpstreamBadRequest,
	ErrUpstreamUnreachable,
	ErrNotFound,
	ErrInvalidInput,
	ErrProviderError,
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// It unwraps DomainError and uses errors.Is to match sentinel errors.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	// Fast path: direct sentinel lookup.
	if code, ok := errorCodeMap[err]; ok {
		return code
	}

	for _, sentinel := range specificity {
		if errors.Is(err, sentinel) {
			return errorCodeMap[sentinel]
		}
	}

	return CodeUnknown
}

// Code returns the ErrorCode for this DomainError's underlying sentinel.
func (e *DomainError) Code() ErrorCode {
	return ErrorCodeOf(e.Err)
}
