package claudebridge

// FrameKind discriminates the wire-ready frames emitted downstream.
type FrameKind string

const (
	// FrameRoleOpen opens the response envelope. Emitted exactly once per
	// response, always before the first content chunk.
	FrameRoleOpen FrameKind = "role_open"

	// FrameContentChunk carries a client-visible text delta.
	FrameContentChunk FrameKind = "content"

	// FrameFinishStop signals normal completion (finish_reason "stop").
	FrameFinishStop FrameKind = "finish_stop"

	// FrameDone terminates the stream. Always the last frame.
	FrameDone FrameKind = "done"

	// FrameHeartbeat is a transport-level no-op, excluded from any
	// client-visible text. Serialized as an SSE comment.
	FrameHeartbeat FrameKind = "heartbeat"

	// FrameError reports an upstream failure. At most one per response.
	FrameError FrameKind = "error"
)

// Frame is one wire-ready unit in the ordered output sequence. Each frame is
// independently serializable to one SSE data/comment line by the transport
// layer.
type Frame struct {
	// Kind discriminates the frame.
	Kind FrameKind

	// Text is the content delta for FrameContentChunk.
	Text string

	// ErrorMessage is the failure description for FrameError.
	ErrorMessage string
}

// IsContent reports whether the frame carries non-empty client-visible text.
// The progress announcer uses this to decide what counts as real content for
// reset purposes, inspecting the frame kind directly rather than re-parsing
// serialized output.
func (f Frame) IsContent() bool {
	return f.Kind == FrameContentChunk && f.Text != ""
}

// ContentFrame builds a content chunk frame.
func ContentFrame(text string) Frame {
	return Frame{Kind: FrameContentChunk, Text: text}
}

// ErrorFrame builds an error frame with the given message.
func ErrorFrame(message string) Frame {
	return Frame{Kind: FrameError, ErrorMessage: message}
}
