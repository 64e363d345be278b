package claudebridge

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Mode selects how the multiplexer synthesizes the output frame sequence.
type Mode string

const (
	// ModeLive forwards every normalized content delta as it arrives.
	ModeLive Mode = "live"

	// ModeFinalOnly buffers the whole run and emits only the selected
	// final answer, with heartbeats during the wait.
	ModeFinalOnly Mode = "final_only"

	// ModeLiveProgress is ModeLive wrapped with the progress announcer and
	// heartbeat scheduler as a consumer-side filter.
	ModeLiveProgress Mode = "live_progress"
)

// IsValid returns true if the mode is one of the known operating modes.
func (m Mode) IsValid() bool {
	switch m {
	case ModeLive, ModeFinalOnly, ModeLiveProgress:
		return true
	default:
		return false
	}
}

// DefaultFallbackText is sent in live mode when the backend produced no
// extractable text at all, so the client still sees a response.
const DefaultFallbackText = "I'm unable to provide a response at the moment."

// Check interval ladder: poll quickly while silence is fresh, coarser as it
// drags on, bounding wasted wakeups on long runs.
func checkInterval(elapsedSilence time.Duration) time.Duration {
	switch {
	case elapsedSilence < 30*time.Second:
		return 500 * time.Millisecond
	case elapsedSilence < 120*time.Second:
		return time.Second
	default:
		return 2 * time.Second
	}
}

// MultiplexerConfig configures one StreamMultiplexer.
type MultiplexerConfig struct {
	// Mode is the operating mode. Required.
	Mode Mode

	// Progress holds the announcer tuning for ModeLiveProgress.
	// Zero value means DefaultTuning().
	Progress ProgressConfig

	// HeartbeatInterval spaces transport keep-alives in ModeFinalOnly and
	// ModeLiveProgress. Zero means DefaultTuning().
	HeartbeatInterval time.Duration

	// FallbackText replaces an empty live-mode answer. Zero value means
	// DefaultFallbackText.
	FallbackText string

	// Logger receives anomaly and lifecycle records. Nil means slog.Default().
	Logger *slog.Logger

	// OnCleanup runs exactly once when the stream ends or is cancelled,
	// receiving whatever session identifiers were captured. Optional.
	OnCleanup func(SessionInfo)
}

// StreamMultiplexer owns one response: it consumes the upstream event
// sequence, merges it with the progress and heartbeat clocks, and yields one
// correctly ordered frame sequence.
//
// Guarantees, regardless of mode or how the stream ends:
//   - exactly one RoleOpen, always before the first content chunk
//   - at most one error frame
//   - FinishStop then Done close the stream, Done last
//   - after cancellation no further frames are yielded
//   - cleanup hooks run exactly once
//
// A multiplexer instance serves exactly one response; all per-response state
// (progress machine, candidate list, session capture) is owned by that run.
type StreamMultiplexer struct {
	cfg         MultiplexerConfig
	logger      *slog.Logger
	session     sessionCapture
	cleanupOnce sync.Once
}

// NewStreamMultiplexer validates cfg and fills defaults.
func NewStreamMultiplexer(cfg MultiplexerConfig) (*StreamMultiplexer, error) {
	if !cfg.Mode.IsValid() {
		return nil, &ConfigError{Field: "mode", Value: cfg.Mode, Reason: "must be live, final_only or live_progress", Err: ErrInvalidConfig}
	}
	if len(cfg.Progress.Phases) == 0 {
		cfg.Progress = DefaultTuning().ProgressConfig()
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = DefaultTuning().HeartbeatInterval()
	}
	if cfg.FallbackText == "" {
		cfg.FallbackText = DefaultFallbackText
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamMultiplexer{cfg: cfg, logger: logger}, nil
}

// Run consumes upstream and returns the ordered, lazily produced frame
// sequence. The returned channel closes after the final Done frame, or
// without further frames when ctx is cancelled.
func (m *StreamMultiplexer) Run(ctx context.Context, upstream <-chan Event) <-chan Frame {
	switch m.cfg.Mode {
	case ModeFinalOnly:
		return m.runFinalOnly(ctx, upstream)
	case ModeLiveProgress:
		// Progress injection is a consumer-side filter: it does not alter
		// upstream consumption, only what is interleaved into the output.
		return m.injectProgress(ctx, m.runLive(ctx, upstream))
	default:
		return m.runLive(ctx, upstream)
	}
}

// Session returns the identifiers captured from upstream init/result events.
// Stable once the frame channel has closed; also delivered to OnCleanup.
func (m *StreamMultiplexer) Session() SessionInfo {
	return m.session.Info()
}

func (m *StreamMultiplexer) fireCleanup() {
	m.cleanupOnce.Do(func() {
		if m.cfg.OnCleanup != nil {
			m.cfg.OnCleanup(m.session.Info())
		}
	})
}

// send delivers one frame unless the request has been cancelled.
// A false return means stop emitting: cancellation yields no further frames.
func send(ctx context.Context, out chan<- Frame, f Frame) bool {
	select {
	case out <- f:
		return true
	case <-ctx.Done():
		return false
	}
}

// runLive is the live-mode core loop: normalize each upstream event and
// forward its text immediately, maintaining the response envelope.
func (m *StreamMultiplexer) runLive(ctx context.Context, upstream <-chan Event) <-chan Frame {
	out := make(chan Frame, 16)

	go func() {
		defer close(out)
		defer m.fireCleanup()

		roleSent := false
		contentSent := false

		for {
			select {
			case <-ctx.Done():
				m.logger.Debug("live stream cancelled")
				return

			case ev, ok := <-upstream:
				if !ok {
					m.finishLive(ctx, out, roleSent, contentSent)
					return
				}
				m.session.Observe(ev)

				if ev.Kind == EventResultError {
					m.finishError(ctx, out, roleSent, ev.ErrorMessage)
					return
				}
				// The success marker repeats text already streamed via
				// assistant events; its payload is for buffered selection
				// only.
				if ev.Kind == EventResultSuccess {
					continue
				}

				text, ok := ExtractText(ev)
				if !ok || text == "" {
					continue
				}
				if !roleSent {
					if !send(ctx, out, Frame{Kind: FrameRoleOpen}) {
						return
					}
					roleSent = true
				}
				if !send(ctx, out, ContentFrame(text)) {
					return
				}
				contentSent = true
			}
		}
	}()

	return out
}

// finishLive closes the live envelope: role if never sent, fallback text if
// the backend produced nothing, then the terminal frames.
func (m *StreamMultiplexer) finishLive(ctx context.Context, out chan<- Frame, roleSent, contentSent bool) {
	if !roleSent {
		if !send(ctx, out, Frame{Kind: FrameRoleOpen}) {
			return
		}
	}
	if !contentSent {
		m.logger.Warn("backend produced no extractable text, sending fallback")
		if !send(ctx, out, ContentFrame(m.cfg.FallbackText)) {
			return
		}
	}
	m.finish(ctx, out)
}

// finishError converts an upstream failure into a single error frame inside
// an otherwise well-formed stream. Output already sent is never retracted.
func (m *StreamMultiplexer) finishError(ctx context.Context, out chan<- Frame, roleSent bool, message string) {
	m.logger.Error("upstream backend failed", "error", message)
	if !roleSent {
		if !send(ctx, out, Frame{Kind: FrameRoleOpen}) {
			return
		}
	}
	if !send(ctx, out, ErrorFrame(message)) {
		return
	}
	m.finish(ctx, out)
}

func (m *StreamMultiplexer) finish(ctx context.Context, out chan<- Frame) {
	if !send(ctx, out, Frame{Kind: FrameFinishStop}) {
		return
	}
	send(ctx, out, Frame{Kind: FrameDone})
}

// runFinalOnly buffers the whole run, keeping the connection alive with
// heartbeats, and emits only the selected final answer.
func (m *StreamMultiplexer) runFinalOnly(ctx context.Context, upstream <-chan Event) <-chan Frame {
	out := make(chan Frame, 16)

	go func() {
		defer close(out)
		defer m.fireCleanup()

		now := time.Now()
		selector := NewFinalAnswerSelector()
		heartbeat := NewHeartbeatScheduler(m.cfg.HeartbeatInterval, now)
		lastActivity := now

		timer := time.NewTimer(checkInterval(0))
		defer timer.Stop()

		var failure string
		failed := false

	consume:
		for {
			select {
			case <-ctx.Done():
				m.logger.Debug("final-only stream cancelled")
				return

			case ev, ok := <-upstream:
				if !ok {
					break consume
				}
				m.session.Observe(ev)

				if ev.Kind == EventResultError {
					failure = ev.ErrorMessage
					failed = true
					break consume
				}
				selector.Observe(ev)

				lastActivity = time.Now()
				resetTimer(timer, checkInterval(0))

			case <-timer.C:
				now = time.Now()
				if heartbeat.Due(now) {
					if !send(ctx, out, Frame{Kind: FrameHeartbeat}) {
						return
					}
				}
				timer.Reset(checkInterval(now.Sub(lastActivity)))
			}
		}

		if failed {
			m.finishError(ctx, out, false, failure)
			return
		}

		if !send(ctx, out, Frame{Kind: FrameRoleOpen}) {
			return
		}
		if text, ok := selector.Final(); ok {
			if !send(ctx, out, ContentFrame(text)) {
				return
			}
		} else {
			// Nothing anywhere: the client still gets a well-formed empty
			// envelope rather than silence.
			m.logger.Warn("no final answer found in buffered events",
				"events", selector.EventCount())
		}
		m.finish(ctx, out)
	}()

	return out
}

// injectProgress wraps a live frame stream with the progress announcer and
// heartbeat scheduler. Frames from the inner stream count as real activity;
// everything the filter adds is interleaved between them without reordering.
func (m *StreamMultiplexer) injectProgress(ctx context.Context, in <-chan Frame) <-chan Frame {
	out := make(chan Frame, 16)

	go func() {
		defer close(out)

		now := time.Now()
		progress := NewProgressState(m.cfg.Progress, now)
		heartbeat := NewHeartbeatScheduler(m.cfg.HeartbeatInterval, now)
		lastActivity := now

		timer := time.NewTimer(checkInterval(0))
		defer timer.Stop()

		roleSent := false

		for {
			select {
			case <-ctx.Done():
				m.logger.Debug("progress injection cancelled")
				return

			case f, ok := <-in:
				if !ok {
					return
				}

				if f.IsContent() {
					now = time.Now()
					// Separate the indicator line from the prose it was
					// holding the place of.
					if sep, due := progress.NoteContent(now); due {
						if !send(ctx, out, ContentFrame(sep)) {
							return
						}
					}
					heartbeat.Reset(now)
					lastActivity = now
				}

				if f.Kind == FrameRoleOpen {
					if roleSent {
						// The filter already opened the envelope for an
						// indicator; drop the inner copy.
						continue
					}
					roleSent = true
				}

				if !send(ctx, out, f) {
					return
				}
				resetTimer(timer, checkInterval(time.Since(lastActivity)))

			case <-timer.C:
				now = time.Now()
				if text, due := progress.Tick(now); due {
					// Indicators are client-visible content; the envelope
					// must open before the first one.
					if !roleSent {
						if !send(ctx, out, Frame{Kind: FrameRoleOpen}) {
							return
						}
						roleSent = true
					}
					if !send(ctx, out, ContentFrame(text)) {
						return
					}
				} else if heartbeat.Due(now) {
					if !send(ctx, out, Frame{Kind: FrameHeartbeat}) {
						return
					}
				}
				timer.Reset(checkInterval(now.Sub(lastActivity)))
			}
		}
	}()

	return out
}

// resetTimer restarts t for the given interval, draining a pending fire so
// a stale tick is never observed after real activity.
func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
