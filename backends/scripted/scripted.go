// Package scripted is a fake backend that replays a scripted event sequence
// with configurable pacing. Used for development and load demos without a
// Claude Code install; lorem filler stands in for generated text.
package scripted

import (
	"context"
	"strings"
	"time"

	loremgen "github.com/bozaro/golorem"

	claudebridge "github.com/RichardAtCT/claude-bridge-go"
)

// Step is one scripted emission: the event, preceded by an optional pause.
type Step struct {
	// Delay is how long the backend stalls before emitting Event.
	Delay time.Duration

	// Event is emitted after the delay passes.
	Event claudebridge.Event
}

// Backend replays its script once per Stream call.
type Backend struct {
	script    []Step
	generator *loremgen.Lorem
}

var _ claudebridge.Backend = (*Backend)(nil)

// New creates a backend that replays script in order.
func New(script []Step) *Backend {
	return &Backend{
		script:    script,
		generator: loremgen.New(),
	}
}

// NewDefault builds a script resembling a typical Claude Code run: init,
// a burst of text, a tool call, a long stall, then more text and a result.
// The stall is long enough to exercise progress indicators downstream.
func NewDefault(stall time.Duration) *Backend {
	b := &Backend{generator: loremgen.New()}
	first := b.generateSentences(3)
	second := b.generateSentences(2)
	b.script = []Step{
		{Event: claudebridge.SystemInitEvent("scripted-session", "/tmp/scripted")},
		{Delay: 200 * time.Millisecond, Event: claudebridge.TextEvent(first)},
		{Delay: 100 * time.Millisecond, Event: claudebridge.ToolUseEvent("search_files")},
		{Delay: stall, Event: claudebridge.TextEvent(second)},
		{Delay: 100 * time.Millisecond, Event: claudebridge.ResultSuccessEvent(second)},
	}
	return b
}

// Name implements claudebridge.Backend.
func (b *Backend) Name() claudebridge.BackendID {
	return claudebridge.BackendScripted
}

// SupportsModel returns true for model names starting with "scripted-".
func (b *Backend) SupportsModel(model string) bool {
	return strings.HasPrefix(model, "scripted-")
}

// Stream implements claudebridge.Backend. Each call replays the full script;
// cancellation stops the replay mid-script.
func (b *Backend) Stream(ctx context.Context, req *claudebridge.CompletionRequest) (<-chan claudebridge.Event, error) {
	if req != nil && req.Model != "" && !b.SupportsModel(req.Model) {
		return nil, &claudebridge.ModelError{
			Model:   req.Model,
			Backend: b.Name().String(),
			Reason:  "model not supported by scripted backend (must start with 'scripted-')",
			Err:     claudebridge.ErrInvalidModel,
		}
	}

	events := make(chan claudebridge.Event, 10)

	go func() {
		defer close(events)

		for _, step := range b.script {
			if step.Delay > 0 {
				select {
				case <-time.After(step.Delay):
				case <-ctx.Done():
					return
				}
			}
			select {
			case events <- step.Event:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}

// generateSentences produces n lorem sentences as one paragraph.
func (b *Backend) generateSentences(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteString(b.generator.Sentence(5, 15))
		sb.WriteString(" ")
	}
	return strings.TrimSpace(sb.String())
}
