package openai

import (
	"encoding/json"
	"fmt"

	claudebridge "github.com/RichardAtCT/claude-bridge-go"
)

// SSE framing constants. A heartbeat is an SSE comment so JSON-parsing
// clients skip it without seeing a chunk.
const (
	DoneLine      = "data: [DONE]\n\n"
	HeartbeatLine = ": keepalive\n\n"
)

var stopReason = "stop"

// Encoder turns multiplexer frames into SSE lines for one response.
type Encoder struct {
	id    string
	model string
}

// NewEncoder creates an encoder for one streamed response. An empty id gets
// a freshly minted request ID.
func NewEncoder(id, model string) *Encoder {
	if id == "" {
		id = NewRequestID()
	}
	return &Encoder{id: id, model: model}
}

// ID returns the request ID stamped on every chunk.
func (e *Encoder) ID() string { return e.id }

// EncodeFrame serializes one frame to its SSE representation. The returned
// string is written to the wire verbatim; ok is false for frames that have
// no wire form.
func (e *Encoder) EncodeFrame(f claudebridge.Frame) (string, bool) {
	switch f.Kind {
	case claudebridge.FrameRoleOpen:
		empty := ""
		return e.chunkLine(StreamChoice{Delta: Delta{Role: "assistant", Content: &empty}}), true

	case claudebridge.FrameContentChunk:
		text := f.Text
		return e.chunkLine(StreamChoice{Delta: Delta{Content: &text}}), true

	case claudebridge.FrameFinishStop:
		return e.chunkLine(StreamChoice{FinishReason: &stopReason}), true

	case claudebridge.FrameDone:
		return DoneLine, true

	case claudebridge.FrameHeartbeat:
		return HeartbeatLine, true

	case claudebridge.FrameError:
		body, err := json.Marshal(ErrorResponse{Error: ErrorDetail{
			Message: f.ErrorMessage,
			Type:    "upstream_error",
		}})
		if err != nil {
			return "", false
		}
		return fmt.Sprintf("data: %s\n\n", body), true

	default:
		return "", false
	}
}

func (e *Encoder) chunkLine(choice StreamChoice) string {
	chunk := NewChunk(e.id, e.model)
	chunk.Choices = []StreamChoice{choice}
	body, err := json.Marshal(chunk)
	if err != nil {
		// The chunk types contain nothing unmarshalable.
		return ""
	}
	return fmt.Sprintf("data: %s\n\n", body)
}
