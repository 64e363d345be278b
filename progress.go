package claudebridge

import (
	"strings"
	"time"
)

// ProgressConfig holds the announcer timing knobs in runtime form.
// Zero values are invalid; obtain defaults via DefaultTuning().ProgressConfig().
type ProgressConfig struct {
	// InitialDelay is the silence required before the first indicator.
	InitialDelay time.Duration

	// DotInterval is the base spacing between dots within a phase.
	DotInterval time.Duration

	// PhaseInterval is the base spacing between phase-text changes.
	PhaseInterval time.Duration

	// MaxDots caps the dots shown per phase.
	MaxDots int

	// BackoffFactor multiplies both intervals after BackoffAfter updates.
	BackoffFactor float64

	// BackoffAfter is the update count at which backoff starts.
	BackoffAfter int

	// MaxDotInterval caps the backed-off dot interval.
	MaxDotInterval time.Duration

	// MaxPhaseInterval caps the backed-off phase interval.
	MaxPhaseInterval time.Duration

	// Phases is the ordered list of phase texts. The list cycles back to
	// the first phase once exhausted.
	Phases []string
}

// ProgressState is the announcer's explicit state machine value. All timing
// decisions take the current instant as a parameter, so tests can drive the
// machine with a fake clock instead of real timers.
//
// Lifecycle: created at stream start, reset (not recreated) every time real
// content arrives, discarded when the stream completes. Owned by exactly one
// multiplexer run; no locking.
type ProgressState struct {
	cfg ProgressConfig

	// lastActivity is stream start or the last real-content instant.
	lastActivity time.Time

	phaseIndex int
	dots       int
	lastDot    time.Time
	lastPhase  time.Time

	// Current (possibly backed-off) intervals.
	dotInterval   time.Duration
	phaseInterval time.Duration
	updates       int

	// shown means an indicator is on screen for the current silence period.
	shown bool

	// anyContent means real content has ever been sent on this response.
	anyContent bool

	// owedNewline means the next indicator must open on a fresh line so it
	// never visually collides with prose.
	owedNewline bool
}

// NewProgressState creates the announcer state at stream start.
func NewProgressState(cfg ProgressConfig, now time.Time) *ProgressState {
	return &ProgressState{
		cfg:           cfg,
		lastActivity:  now,
		dotInterval:   cfg.DotInterval,
		phaseInterval: cfg.PhaseInterval,
	}
}

// Tick evaluates the transition rule at the given instant and returns the
// indicator text to emit, if any. ok=false means no visible change is due
// and the caller should fall through to heartbeat consideration.
func (p *ProgressState) Tick(now time.Time) (string, bool) {
	if now.Sub(p.lastActivity) < p.cfg.InitialDelay {
		return "", false
	}

	switch {
	case !p.shown:
		// First indicator of this silence period.
		p.lastPhase = now
		p.lastDot = now
		p.shown = true
		return p.frame(p.phaseText(), false), true

	case now.Sub(p.lastPhase) >= p.phaseInterval:
		// Phase change due; the list wraps rather than terminating.
		p.phaseIndex = (p.phaseIndex + 1) % len(p.cfg.Phases)
		p.dots = 0
		p.lastPhase = now
		p.lastDot = now
		p.bumpPhaseBackoff()
		return p.frame(p.phaseText(), true), true

	case now.Sub(p.lastDot) >= p.dotInterval && p.dots < p.cfg.MaxDots:
		p.dots++
		p.lastDot = now
		p.bumpDotBackoff()
		return p.frame(".", true), true
	}

	return "", false
}

// NoteContent records that real content arrived. Returns the paragraph
// separator to emit before that content when an indicator was on screen.
// All timers, intervals and backoff counters reset to their initial values.
func (p *ProgressState) NoteContent(now time.Time) (separator string, due bool) {
	due = p.shown
	if due {
		separator = "\n\n"
	}

	p.lastActivity = now
	p.phaseIndex = 0
	p.dots = 0
	p.lastDot = time.Time{}
	p.lastPhase = time.Time{}
	p.dotInterval = p.cfg.DotInterval
	p.phaseInterval = p.cfg.PhaseInterval
	p.updates = 0
	p.shown = false
	p.anyContent = true
	p.owedNewline = true
	return separator, due
}

// Shown reports whether an indicator is on screen for the current silence
// period.
func (p *ProgressState) Shown() bool {
	return p.shown
}

// phaseText formats the current phase for display.
func (p *ProgressState) phaseText() string {
	return "*" + p.cfg.Phases[p.phaseIndex] + "*"
}

// frame applies the output framing rules: the first indicator after content
// opens on a fresh line, a mid-run phase change continues the current line,
// and a dot is a bare delimiter appended in place.
func (p *ProgressState) frame(text string, continuing bool) string {
	var sb strings.Builder

	if p.owedNewline {
		sb.WriteString("\n")
		p.owedNewline = false
	}

	switch {
	case text == ".":
		sb.WriteString(".")
	case !continuing && p.anyContent:
		sb.WriteString("\n")
		sb.WriteString(text)
	case continuing:
		sb.WriteString(" ")
		sb.WriteString(text)
	default:
		sb.WriteString(text)
	}
	return sb.String()
}

func (p *ProgressState) bumpDotBackoff() {
	p.updates++
	if p.updates >= p.cfg.BackoffAfter {
		p.dotInterval = capDuration(scaleDuration(p.dotInterval, p.cfg.BackoffFactor), p.cfg.MaxDotInterval)
	}
}

func (p *ProgressState) bumpPhaseBackoff() {
	p.updates++
	if p.updates >= p.cfg.BackoffAfter {
		p.phaseInterval = capDuration(scaleDuration(p.phaseInterval, p.cfg.BackoffFactor), p.cfg.MaxPhaseInterval)
	}
}

func scaleDuration(d time.Duration, factor float64) time.Duration {
	return time.Duration(float64(d) * factor)
}

func capDuration(d, max time.Duration) time.Duration {
	if max > 0 && d > max {
		return max
	}
	return d
}
