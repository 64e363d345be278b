package claudebridge

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
// These can be checked with errors.Is().
var (
	// ErrUpstreamFailed indicates the backend event sequence terminated
	// abnormally. Inside a running stream this is converted to a single
	// error frame rather than surfaced as a Go error.
	ErrUpstreamFailed = errors.New("claudebridge: upstream backend failed")

	// ErrBackendUnavailable indicates the backend process or binary could
	// not be started at all.
	ErrBackendUnavailable = errors.New("claudebridge: backend unavailable")

	// ErrInvalidConfig indicates the multiplexer or backend configuration
	// is unusable.
	ErrInvalidConfig = errors.New("claudebridge: invalid configuration")

	// ErrInvalidModel indicates the requested model is not supported by
	// the backend.
	ErrInvalidModel = errors.New("claudebridge: invalid or unsupported model")
)

// UpstreamError represents a failure reported by the backend event source.
type UpstreamError struct {
	Backend string // The backend name
	Message string // Failure description from the backend
	Err     error  // Wrapped error (usually ErrUpstreamFailed)
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("backend '%s': %s (%v)", e.Backend, e.Message, e.Err)
	}
	return fmt.Sprintf("backend '%s': %s", e.Backend, e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// ConfigError represents an error in multiplexer or backend configuration.
type ConfigError struct {
	Field  string // The configuration field that failed validation
	Value  any    // The invalid value
	Reason string // Human-readable explanation
	Err    error  // Wrapped error (usually ErrInvalidConfig)
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config field '%s' (value: %v): %s (%v)", e.Field, e.Value, e.Reason, e.Err)
	}
	return fmt.Sprintf("config field '%s' (value: %v): %s", e.Field, e.Value, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ModelError represents an error related to model validation.
type ModelError struct {
	Model   string // The model that was requested
	Backend string // The backend name
	Reason  string // Human-readable explanation
	Err     error  // Wrapped error (usually ErrInvalidModel)
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model '%s' for backend '%s': %s (%v)", e.Model, e.Backend, e.Reason, e.Err)
	}
	return fmt.Sprintf("model '%s' for backend '%s': %s", e.Model, e.Backend, e.Reason)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// IsUpstreamFailure checks if an error came from the backend event source.
func IsUpstreamFailure(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrUpstreamFailed) {
		return true
	}

	var upstreamErr *UpstreamError
	return errors.As(err, &upstreamErr)
}

// IsConfigError checks if an error indicates unusable configuration.
// These errors are not retryable and require configuration changes.
func IsConfigError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrInvalidConfig) {
		return true
	}

	var configErr *ConfigError
	return errors.As(err, &configErr)
}

// IsBackendUnavailable checks if an error indicates the backend could not
// be reached or started.
func IsBackendUnavailable(err error) bool {
	return err != nil && errors.Is(err, ErrBackendUnavailable)
}
