package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorCode represents a unique error code for categorizing errors
type ErrorCode string

const (
	// Configuration errors (1xxx)
	ErrCodeConfigNotFound ErrorCode = "DWP1001"
	ErrCodeConfigInvalid  ErrorCode = "DWP1002"
	ErrCodeConfigMissing  ErrorCode = "DWP1003"

	// Connection errors (2xxx)
	ErrCodeConnectionFailed ErrorCode = "DWP2001"
	ErrCodeConnectionPing   ErrorCode = "DWP2002"

	// Provisioning errors (3xxx)
	ErrCodeResourceExists  ErrorCode = "DWP3001"
	ErrCodeProvisionFailed ErrorCode = "DWP3002"
	ErrCodeClusterTimeout  ErrorCode = "DWP3003"
	ErrCodeClusterNotFound ErrorCode = "DWP3004"
	ErrCodeTeardownFailed  ErrorCode = "DWP3005"

	// Statement errors (4xxx)
	ErrCodeStatementFailed ErrorCode = "DWP4001"
	ErrCodeCopyFailed      ErrorCode = "DWP4002"

	// Transform errors (5xxx)
	ErrCodeFactNotEmpty      ErrorCode = "DWP5001"
	ErrCodeDimensionConflict ErrorCode = "DWP5002"

	// System errors (9xxx)
	ErrCodeInternal ErrorCode = "DWP9001"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	SeverityCritical ErrorSeverity = "CRITICAL" // System failure, requires immediate attention
	SeverityError    ErrorSeverity = "ERROR"    // Operation failed, but system continues
	SeverityWarning  ErrorSeverity = "WARNING"  // Operation succeeded with issues
	SeverityInfo     ErrorSeverity = "INFO"     // Informational, not an error
)

// AppError represents a structured application error with context
type AppError struct {
	Code        ErrorCode
	Message     string
	Severity    ErrorSeverity
	Context     map[string]interface{}
	Cause       error
	Stack       string
	Timestamp   time.Time
	Recoverable bool
	Suggestions []string
}

// Error implements the error interface
func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s] %s: %s", e.Code, e.Severity, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\nCaused by: %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\nSuggestions:")
		for i, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  %d. %s", i+1, suggestion))
		}
	}

	return b.String()
}

// Unwrap returns the cause of the error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:        code,
		Message:     message,
		Severity:    SeverityError,
		Context:     make(map[string]interface{}),
		Stack:       captureStack(),
		Timestamp:   time.Now(),
		Recoverable: false,
	}
}

// Wrap wraps an existing error with AppError
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}

	appErr := New(code, message)
	appErr.Cause = err

	// If wrapping another AppError, inherit its context
	if ae, ok := err.(*AppError); ok {
		for k, v := range ae.Context {
			appErr.Context[k] = v
		}
	}

	return appErr
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithSeverity sets the error severity
func (e *AppError) WithSeverity(severity ErrorSeverity) *AppError {
	e.Severity = severity
	return e
}

// WithSuggestions adds recovery suggestions
func (e *AppError) WithSuggestions(suggestions ...string) *AppError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// AsRecoverable marks the error as recoverable
func (e *AppError) AsRecoverable() *AppError {
	e.Recoverable = true
	return e
}

// captureStack captures the current stack trace
func captureStack() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])

	var b strings.Builder
	frames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			b.WriteString(fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}

	return b.String()
}

// Common error constructors

// ConfigError creates a configuration-related error
func ConfigError(message string, field string) *AppError {
	return New(ErrCodeConfigInvalid, message).
		WithContext("field", field).
		WithSuggestions(
			fmt.Sprintf("Check the '%s' value in the configuration file", field),
			"Every key in the IAM, EC2, REDSHIFT and S3 sections is required",
		)
}

// MissingConfigError reports required keys absent from the configuration file
func MissingConfigError(keys []string) *AppError {
	return New(ErrCodeConfigMissing,
		fmt.Sprintf("Missing required configuration keys: %s", strings.Join(keys, ", "))).
		WithContext("keys", keys).
		WithSuggestions("Add the listed keys to the configuration file")
}

// ConnectionError creates a warehouse-connection error
func ConnectionError(message string, cause error) *AppError {
	return Wrap(cause, ErrCodeConnectionFailed, message).
		WithSuggestions(
			"Check that the cluster is in the 'available' state",
			"Verify the security group opens the configured port",
			"Verify the database credentials in the configuration file",
		)
}

// StatementError creates a SQL statement execution error. Statement failures
// are fatal; statements committed earlier in the same run stay committed.
func StatementError(step string, query string, cause error) *AppError {
	return Wrap(cause, ErrCodeStatementFailed,
		fmt.Sprintf("Statement %q failed", step)).
		WithContext("step", step).
		WithContext("query", truncateString(query, 200))
}

// ProvisionError creates a cloud-provisioning error
func ProvisionError(message string, resource string, cause error) *AppError {
	return Wrap(cause, ErrCodeProvisionFailed, message).
		WithContext("resource", resource)
}

// ResourceExistsError reports a provisioning name conflict. This is the only
// non-fatal class: the existing resource is reused and execution proceeds.
func ResourceExistsError(resource string, name string) *AppError {
	return New(ErrCodeResourceExists,
		fmt.Sprintf("%s %q already exists", resource, name)).
		WithContext("resource", resource).
		WithContext("name", name).
		WithSeverity(SeverityWarning).
		AsRecoverable()
}

// DimensionConflictError reports duplicate keys in a derived dimension
func DimensionConflictError(dimension string, keys []string) *AppError {
	return New(ErrCodeDimensionConflict,
		fmt.Sprintf("Dimension %q derived multiple rows for keys: %s",
			dimension, strings.Join(keys, ", "))).
		WithContext("dimension", dimension).
		WithContext("keys", keys).
		WithSuggestions(
			"Resolve the conflicting attribute values in the staged data",
			"Re-run create-tables and load before running etl again",
		)
}

// IsRecoverable checks if an error is recoverable
func IsRecoverable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Recoverable
	}
	return false
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// truncateString truncates a string to maxLen characters
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
