package claudebridge

import "strings"

// FinalAnswerSelector folds the buffered event sequence of one response down
// to the single message that should be sent in final-only mode.
//
// A candidate message accumulates across consecutive assistant events; any
// non-content event (tool_use, system, result) closes the open candidate.
// The last completed candidate wins: later candidates supersede earlier ones
// even when the earlier ones are non-empty. This last-write-wins policy is
// preserved exactly from the prior behavior and deliberately not extended.
//
// Not safe for concurrent use; one selector is owned by one multiplexer run.
type FinalAnswerSelector struct {
	events     []Event
	open       strings.Builder
	hasOpen    bool
	candidates []string
}

// NewFinalAnswerSelector creates an empty selector.
func NewFinalAnswerSelector() *FinalAnswerSelector {
	return &FinalAnswerSelector{}
}

// Observe records one upstream event, accumulating candidate text and
// closing candidates at message boundaries.
func (s *FinalAnswerSelector) Observe(ev Event) {
	s.events = append(s.events, ev)

	if ev.IsContent() {
		if text, ok := ExtractText(ev); ok {
			s.open.WriteString(text)
			s.hasOpen = true
		}
		return
	}

	// Non-content event: the currently accumulating message is complete.
	s.closeOpen()

	// The success marker may itself carry the final answer; it supersedes
	// everything accumulated so far.
	if ev.Kind == EventResultSuccess && ev.Result != "" {
		s.candidates = append(s.candidates, ev.Result)
	}
}

// closeOpen finishes the open candidate, if any.
func (s *FinalAnswerSelector) closeOpen() {
	if !s.hasOpen {
		return
	}
	s.candidates = append(s.candidates, s.open.String())
	s.open.Reset()
	s.hasOpen = false
}

// Final returns the selected answer text. Called once, at end of stream.
//
// When no candidate ever completed, a fallback scan collects any extractable
// text across all buffered events. ok=false means nothing was found anywhere
// and the caller should emit the well-formed empty envelope.
func (s *FinalAnswerSelector) Final() (string, bool) {
	s.closeOpen()

	if n := len(s.candidates); n > 0 {
		return s.candidates[n-1], true
	}

	// Fallback scan over everything buffered.
	var sb strings.Builder
	for _, ev := range s.events {
		if text, ok := ExtractText(ev); ok {
			sb.WriteString(text)
		}
	}
	if sb.Len() > 0 {
		return sb.String(), true
	}
	return "", false
}

// EventCount returns how many events were buffered, for diagnostics.
func (s *FinalAnswerSelector) EventCount() int {
	return len(s.events)
}
