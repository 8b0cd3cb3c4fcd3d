package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Failure kinds surfaced to callers. Match with errors.Is.
var (
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrDocumentFormat       = errors.New("document format error")
	ErrOracleUnavailable    = errors.New("oracle unavailable")
	ErrAnalysisOutput       = errors.New("analysis output error")
	ErrNotFound             = errors.New("resource not found")
	ErrConflict             = errors.New("conflict")
	ErrInvalidInput         = errors.New("invalid input")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrInternal             = errors.New("internal error")
)

// Error codes carried by AppError.Code.
const (
	CodeUnsupportedMediaType = "UNSUPPORTED_MEDIA_TYPE"
	CodeDocumentFormat       = "DOCUMENT_FORMAT_ERROR"
	CodeOracleUnavailable    = "ORACLE_UNAVAILABLE"
	CodeAnalysisOutput       = "ANALYSIS_OUTPUT_ERROR"
	CodeNotFound             = "NOT_FOUND"
	CodeConflict             = "CONFLICT"
	CodeInvalidInput         = "INVALID_INPUT"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeConfig               = "CONFIG_ERROR"
	CodeInternal             = "INTERNAL_ERROR"
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// InternalError reports a broken server-side invariant. The cause is kept as text only, so its
// own kind never reaches the transport mapping.
func InternalError(message string, cause error) error {
	if cause == nil {
		return NewAppError(CodeInternal, message, ErrInternal)
	}
	return NewAppError(CodeInternal, message, fmt.Errorf("%w: %s", ErrInternal, cause.Error()))
}

// UnsupportedMediaTypeError rejects an upload before any processing.
func UnsupportedMediaTypeError(filename, detected string) error {
	return NewAppError(CodeUnsupportedMediaType,
		fmt.Sprintf("%q is %s, only PDF documents are accepted", filename, detected),
		ErrUnsupportedMediaType)
}

// DocumentFormatError reports bytes that cannot be paginated or text-extracted.
func DocumentFormatError(filename string, cause error) error {
	return NewAppError(CodeDocumentFormat,
		fmt.Sprintf("cannot extract pages from %q", filename),
		errors.Join(ErrDocumentFormat, cause))
}

// OracleUnavailableError reports an unreachable, failing or timed-out oracle.
func OracleUnavailableError(op string, cause error) error {
	return NewAppError(CodeOracleUnavailable,
		fmt.Sprintf("oracle %s request failed", op),
		errors.Join(ErrOracleUnavailable, cause))
}

// AnalysisOutputError carries the raw oracle output that failed validation.
type AnalysisOutputError struct {
	Reason string
	Raw    []byte
	Cause  error
}

// NewAnalysisOutputError keeps a copy of raw so later mutation by the caller cannot alter it.
func NewAnalysisOutputError(reason string, raw []byte, cause error) *AnalysisOutputError {
	cp := make([]byte, len(raw))
	copy(cp, raw)
	return &AnalysisOutputError{Reason: reason, Raw: cp, Cause: cause}
}

func (e *AnalysisOutputError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", CodeAnalysisOutput, e.Reason, e.Cause)
	}
	return fmt.Sprintf("%s: %s", CodeAnalysisOutput, e.Reason)
}

func (e *AnalysisOutputError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrAnalysisOutput}
	}
	return []error{ErrAnalysisOutput, e.Cause}
}

// NotFoundError names which identifier failed to resolve.
type NotFoundError struct {
	Kind string // regulation | version | change | notification | user
	ID   string
}

func NewNotFoundError(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s %q not found", CodeNotFound, e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ConflictError reports a lost optimistic-concurrency race on a regulation.
func ConflictError(regulationID string) error {
	return NewAppError(CodeConflict,
		fmt.Sprintf("regulation %q was modified concurrently, retry against the latest version", regulationID),
		ErrConflict)
}

// InvalidInputError wraps caller-correctable input problems.
func InvalidInputError(message string) error {
	return NewAppError(CodeInvalidInput, message, ErrInvalidInput)
}

// UnauthorizedError is returned for failed logins. The message never says which part was wrong.
func UnauthorizedError() error {
	return NewAppError(CodeUnauthorized, "invalid username or password", ErrUnauthorized)
}
