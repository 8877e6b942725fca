// Package errors provides a structured error system for blokfs with error codes, categories, and the
// conversion of host errno values into the FUSE wire convention.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"syscall"
	"time"
)

// ErrorCode represents a structured error code for blokfs operations.
type ErrorCode string

// Error code constants organized by category.
const (
	// Configuration Errors
	ErrCodeInvalidConfig    ErrorCode = "INVALID_CONFIG"
	ErrCodeMissingConfig    ErrorCode = "MISSING_CONFIG"
	ErrCodeConfigValidation ErrorCode = "CONFIG_VALIDATION"
	ErrCodeConfigLoad       ErrorCode = "CONFIG_LOAD"
	ErrCodeConfigSave       ErrorCode = "CONFIG_SAVE"
	ErrCodeUsage            ErrorCode = "CONFIG_USAGE"

	// Filesystem Errors
	ErrCodeMountFailed   ErrorCode = "MOUNT_FAILED"
	ErrCodeUnmountFailed ErrorCode = "UNMOUNT_FAILED"
	ErrCodePathInvalid   ErrorCode = "PATH_INVALID"
	ErrCodePathTooLong   ErrorCode = "PATH_TOO_LONG"
	ErrCodeHostCall      ErrorCode = "HOST_CALL"
	ErrCodeBadHandle     ErrorCode = "HOST_BAD_HANDLE"

	// Resource Management Errors
	ErrCodeOutOfMemory ErrorCode = "OUT_OF_MEMORY"
	ErrCodeLogOpen     ErrorCode = "RESOURCE_LOG_OPEN"

	// Internal System Errors
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
	ErrCodeUnknownError  ErrorCode = "UNKNOWN_ERROR"
)

// ErrorCategory represents the general category of an error.
type ErrorCategory string

const (
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryFilesystem    ErrorCategory = "filesystem"
	CategoryResource      ErrorCategory = "resource"
	CategoryInternal      ErrorCategory = "internal"
)

// Error represents a structured error with context and metadata. Host failures carry the errno the host
// reported; the errno is also the unwrapped cause so errors.Is(err, syscall.EEXIST) holds.
type Error struct {
	Code     ErrorCode              `json:"code"`
	Category ErrorCategory          `json:"category"`
	Message  string                 `json:"message"`
	Details  map[string]interface{} `json:"details,omitempty"`

	Context   map[string]string `json:"context,omitempty"`
	Cause     error             `json:"-"`
	Timestamp time.Time         `json:"timestamp"`

	Component string        `json:"component,omitempty"`
	Operation string        `json:"operation,omitempty"`
	Path      string        `json:"path,omitempty"`
	Errno     syscall.Errno `json:"errno,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Operation != "" {
		if e.Path != "" {
			return fmt.Sprintf("%s %s: %s", e.Operation, e.Path, e.Message)
		}
		return fmt.Sprintf("%s: %s", e.Operation, e.Message)
	}
	if e.Component != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Component, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error for error wrapping compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target error (for errors.Is compatibility).
func (e *Error) Is(target error) bool {
	if other, ok := target.(*Error); ok {
		return e.Code == other.Code
	}
	return false
}

// String returns a detailed string representation for logging.
func (e *Error) String() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("Code=%s", e.Code))
	parts = append(parts, fmt.Sprintf("Category=%s", e.Category))
	parts = append(parts, fmt.Sprintf("Message=%q", e.Message))

	if e.Component != "" {
		parts = append(parts, fmt.Sprintf("Component=%s", e.Component))
	}
	if e.Operation != "" {
		parts = append(parts, fmt.Sprintf("Operation=%s", e.Operation))
	}
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("Path=%q", e.Path))
	}
	if e.Errno != 0 {
		parts = append(parts, fmt.Sprintf("Errno=%d", int(e.Errno)))
	}
	if len(e.Details) > 0 {
		details, _ := json.Marshal(e.Details)
		parts = append(parts, fmt.Sprintf("Details=%s", details))
	}
	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("Cause=%q", e.Cause.Error()))
	}

	return fmt.Sprintf("Error{%s}", strings.Join(parts, ", "))
}

// JSON returns the error as a JSON string.
func (e *Error) JSON() string {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal error: %s"}`, err.Error())
	}
	return string(data)
}

// NewError creates a new error with default values.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:      code,
		Category:  GetCategory(code),
		Message:   message,
		Timestamp: time.Now(),
		Details:   make(map[string]interface{}),
		Context:   make(map[string]string),
	}
}

// Wrap creates a new error with the given code that wraps cause.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return NewError(code, message).WithCause(cause)
}

// FromErrno records a failed host call. The errno is kept verbatim.
func FromErrno(operation, path string, errno syscall.Errno) *Error {
	code := ErrCodeHostCall
	switch errno {
	case syscall.ENAMETOOLONG:
		code = ErrCodePathTooLong
	case syscall.EBADF:
		code = ErrCodeBadHandle
	case syscall.ENOMEM:
		code = ErrCodeOutOfMemory
	}

	e := NewError(code, errno.Error())
	e.Operation = operation
	e.Path = path
	e.Errno = errno
	e.Cause = errno
	return e
}

// GetCategory determines the category based on the error code.
func GetCategory(code ErrorCode) ErrorCategory {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "INVALID_CONFIG") || strings.HasPrefix(codeStr, "MISSING_CONFIG") ||
		strings.HasPrefix(codeStr, "CONFIG_"):
		return CategoryConfiguration
	case strings.HasPrefix(codeStr, "MOUNT_") || strings.HasPrefix(codeStr, "UNMOUNT_") ||
		strings.HasPrefix(codeStr, "PATH_") || strings.HasPrefix(codeStr, "HOST_"):
		return CategoryFilesystem
	case strings.HasPrefix(codeStr, "OUT_OF_") || strings.HasPrefix(codeStr, "RESOURCE_"):
		return CategoryResource
	default:
		return CategoryInternal
	}
}

// WithContext adds contextual information to an error
func (e *Error) WithContext(key, value string) *Error {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// WithDetail adds detailed information to an error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithComponent sets the component for an error
func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

// WithOperation sets the operation for an error
func (e *Error) WithOperation(operation string) *Error {
	e.Operation = operation
	return e
}

// WithCause sets the underlying cause. An errno cause is also recorded in Errno.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	if errno, ok := ErrnoOf(cause); ok && e.Errno == 0 {
		e.Errno = errno
	}
	return e
}

// GetRecommendation returns a user-friendly recommendation for fixing the error
func (e *Error) GetRecommendation() string {
	recommendations := map[ErrorCode]string{
		ErrCodeInvalidConfig: "Configuration validation failed. " +
			"Check your configuration file syntax and required parameters.",
		ErrCodeUsage: "Pass the backing root directory and the mount point as the last two arguments.",
		ErrCodeMountFailed: "Failed to mount filesystem. " +
			"Check mount point permissions and ensure FUSE is installed.",
		ErrCodeLogOpen: "The diagnostic log could not be created. " +
			"Run blokfs from a writable working directory.",
		ErrCodePathTooLong: "The composed backing path exceeds the platform path limit. " +
			"Use a shorter root directory.",
	}

	if rec, exists := recommendations[e.Code]; exists {
		return rec
	}

	return "Please check the error message for details."
}

// ErrnoOf extracts the host errno carried by err, if any.
func ErrnoOf(err error) (syscall.Errno, bool) {
	if err == nil {
		return 0, false
	}
	var e *Error
	if stderrors.As(err, &e) && e.Errno != 0 {
		return e.Errno, true
	}
	var errno syscall.Errno
	if stderrors.As(err, &errno) {
		return errno, true
	}
	return 0, false
}

// ToErrno maps err to the errno a FUSE binding expects. Errors that carry no errno become EIO.
func ToErrno(err error) syscall.Errno {
	if err == nil {
		return 0
	}
	if errno, ok := ErrnoOf(err); ok {
		return errno
	}
	return syscall.EIO
}

// Status converts err to the sign-flipped status code returned across the FUSE boundary: zero on success,
// the negated errno on failure.
func Status(err error) int {
	return -int(ToErrno(err))
}
