package claudebridge

import (
	"context"
)

// BackendID represents a unique backend identifier.
// Using a typed constant prevents typos and provides compile-time safety.
type BackendID string

// Known backend identifiers
const (
	// BackendClaudeCode is the Claude Code CLI subprocess backend
	BackendClaudeCode BackendID = "claudecode"

	// BackendScripted is the scripted fake backend for testing
	BackendScripted BackendID = "scripted"
)

// String returns the string representation of the backend ID
func (b BackendID) String() string {
	return string(b)
}

// IsValid returns true if the backend ID is a known backend
func (b BackendID) IsValid() bool {
	switch b {
	case BackendClaudeCode, BackendScripted:
		return true
	default:
		return false
	}
}

// Backend defines the interface for upstream event sources.
// The multiplexer consumes one backend stream per response; the backend is
// treated as an external collaborator that owns its own timeout and retry
// policy.
//
// Contract for the returned channel:
//   - The channel is closed when the backend run completes (the explicit
//     end-of-stream signal).
//   - Abnormal termination is reported in-band as an EventResultError
//     before the channel closes, never as a panic or a half-open channel.
//   - The backend must stop producing and close the channel promptly when
//     ctx is cancelled.
//
// Usage:
//
//	events, err := backend.Stream(ctx, req)
//	if err != nil { return err }
//	for ev := range events {
//	    // ...
//	}
type Backend interface {
	// Stream starts a completion run and returns the upstream event
	// sequence. A non-nil error means the run could not be started at all;
	// failures after start are reported in-band.
	Stream(ctx context.Context, req *CompletionRequest) (<-chan Event, error)

	// Name returns the backend identifier (e.g., "claudecode", "scripted")
	Name() BackendID
}
