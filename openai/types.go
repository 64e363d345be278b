// Package openai holds the OpenAI-compatible wire types and the SSE
// serialization for the streaming chat-completions surface.
package openai

import (
	"time"

	"github.com/google/uuid"
)

// ObjectChunk is the object tag every streaming chunk carries.
const ObjectChunk = "chat.completion.chunk"

// ChatCompletionStreamResponse is one streamed chunk of a chat completion.
type ChatCompletionStreamResponse struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []StreamChoice `json:"choices"`
}

// StreamChoice carries one delta within a chunk.
type StreamChoice struct {
	Index        int     `json:"index"`
	Delta        Delta   `json:"delta"`
	FinishReason *string `json:"finish_reason"`
}

// Delta is the incremental payload: role appears once at stream open,
// content on each text chunk. Content is a pointer so the opening chunk
// sends an explicit empty string, which some clients key on, while the
// finishing chunk's delta stays empty.
type Delta struct {
	Role    string  `json:"role,omitempty"`
	Content *string `json:"content,omitempty"`
}

// ErrorResponse is the body of an in-stream error chunk.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail mirrors the OpenAI error envelope.
type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
}

// NewRequestID mints a chat-completion stream ID.
func NewRequestID() string {
	return "chatcmpl-" + uuid.NewString()
}

// NewChunk builds a chunk skeleton with the shared envelope fields filled.
func NewChunk(id, model string) ChatCompletionStreamResponse {
	return ChatCompletionStreamResponse{
		ID:      id,
		Object:  ObjectChunk,
		Created: time.Now().Unix(),
		Model:   model,
	}
}
