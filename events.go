package claudebridge

import "encoding/json"

// EventKind discriminates the upstream event shapes the backend may emit.
// Using a closed set of kinds (with an explicit unknown fallback) instead of
// untyped maps removes whole classes of unhandled-shape bugs.
type EventKind string

const (
	// EventAssistant carries assistant-generated content blocks.
	// A single logical assistant message may span several consecutive
	// assistant events; the boundary is inferred when a non-assistant
	// event interleaves.
	EventAssistant EventKind = "assistant"

	// EventToolUse reports a tool invocation by the backend. Carries no
	// client-visible text.
	EventToolUse EventKind = "tool_use"

	// EventSystem is emitted once at stream start (subtype "init") and
	// carries session metadata such as the sandbox working directory.
	EventSystem EventKind = "system"

	// EventResultSuccess marks successful completion and may carry the
	// final answer in its Result field.
	EventResultSuccess EventKind = "result_success"

	// EventResultError marks abnormal termination of the backend run.
	EventResultError EventKind = "result_error"

	// EventUnknown is the forward-compatibility fallback for shapes the
	// decoder does not recognize.
	EventUnknown EventKind = "unknown"
)

// Block type constants for assistant content blocks.
const (
	BlockTypeText     = "text"
	BlockTypeThinking = "thinking"
	BlockTypeToolUse  = "tool_use"
)

// ContentBlock is one typed block inside an assistant event.
type ContentBlock struct {
	// Type is one of the BlockType* constants.
	Type string `json:"type"`

	// Text contains the block text for text/thinking blocks.
	Text string `json:"text,omitempty"`

	// ToolName is set for tool_use blocks.
	ToolName string `json:"tool_name,omitempty"`
}

// LegacyContent holds the older nested message.content shape, which may be
// either a list of typed blocks or a bare string.
type LegacyContent struct {
	// Blocks is the block-list form (nil when the bare-string form was used).
	Blocks []ContentBlock

	// Text is the bare-string form (empty when the block-list form was used).
	Text string
}

// SessionMeta carries the per-response session identifiers harvested
// opportunistically from system-init and result events.
type SessionMeta struct {
	SessionID string `json:"session_id,omitempty"`
	Cwd       string `json:"cwd,omitempty"`
	Model     string `json:"model,omitempty"`
}

// Event is one upstream record from the backend, normalized to a closed
// tagged variant. Exactly the fields relevant to Kind are populated; the
// rest are zero. Raw preserves the original wire bytes for anomaly logging
// and tolerant fallback probing.
type Event struct {
	// Kind discriminates which of the payload fields below is meaningful.
	Kind EventKind

	// Blocks is the current-format content block list (assistant events).
	Blocks []ContentBlock

	// Legacy is the pre-SDK nested message.content shape, when present.
	Legacy *LegacyContent

	// Result is the final answer text carried by result_success events.
	Result string

	// ErrorMessage describes the failure for result_error events.
	ErrorMessage string

	// Session carries identifiers from system-init and result events.
	Session *SessionMeta

	// Raw is the undecoded wire form, kept for diagnostics.
	Raw json.RawMessage
}

// IsContent reports whether the event can carry client-visible text.
// Non-content events close the currently accumulating candidate message.
func (e Event) IsContent() bool {
	return e.Kind == EventAssistant
}

// IsTerminal reports whether the event ends the backend run.
func (e Event) IsTerminal() bool {
	return e.Kind == EventResultSuccess || e.Kind == EventResultError
}

// TextEvent builds an assistant event carrying a single text block.
// Convenience for scripted backends and tests.
func TextEvent(text string) Event {
	return Event{
		Kind:   EventAssistant,
		Blocks: []ContentBlock{{Type: BlockTypeText, Text: text}},
	}
}

// ToolUseEvent builds a tool_use event for the named tool.
func ToolUseEvent(name string) Event {
	return Event{
		Kind:   EventToolUse,
		Blocks: []ContentBlock{{Type: BlockTypeToolUse, ToolName: name}},
	}
}

// SystemInitEvent builds a system-init event with session metadata.
func SystemInitEvent(sessionID, cwd string) Event {
	return Event{
		Kind:    EventSystem,
		Session: &SessionMeta{SessionID: sessionID, Cwd: cwd},
	}
}

// ResultSuccessEvent builds a result_success event carrying the final text.
func ResultSuccessEvent(result string) Event {
	return Event{Kind: EventResultSuccess, Result: result}
}

// ResultErrorEvent builds a result_error event with the given message.
func ResultErrorEvent(message string) Event {
	return Event{Kind: EventResultError, ErrorMessage: message}
}
