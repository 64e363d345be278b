package claudebridge

import (
	_ "embed"
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed config/tuning/defaults.yaml
var defaultTuningYAML []byte

// Tuning Philosophy:
//
// The embedded defaults reproduce the cadence the original deployment
// settled on: a silence of a few seconds before the first indicator, dots
// every few seconds, a new phrase every fifteen, both backing off as the
// wait grows, and a heartbeat comment well inside common proxy idle
// timeouts (nginx and most load balancers default to 60s).
//
// Deployments can override the embedded values by:
//  1. Calling LoadTuningFromFile() with custom YAML
//  2. Building ProgressConfig / HeartbeatConfig values programmatically

// Tuning is the full timing configuration for one deployment.
type Tuning struct {
	Version     string          `yaml:"version"`      // Semantic version (e.g., "1.0.0")
	LastUpdated string          `yaml:"last_updated"` // ISO 8601 date
	Progress    ProgressTuning  `yaml:"progress"`
	Heartbeat   HeartbeatTuning `yaml:"heartbeat"`
}

// ProgressTuning holds the progress announcer timing knobs in YAML form.
// Durations are expressed in (possibly fractional) seconds.
type ProgressTuning struct {
	InitialDelaySeconds    float64  `yaml:"initial_delay_seconds"`
	DotIntervalSeconds     float64  `yaml:"dot_interval_seconds"`
	PhaseIntervalSeconds   float64  `yaml:"phase_interval_seconds"`
	MaxDots                int      `yaml:"max_dots"`
	BackoffFactor          float64  `yaml:"backoff_factor"`
	BackoffAfterUpdates    int      `yaml:"backoff_after_updates"`
	MaxDotIntervalSeconds  float64  `yaml:"max_dot_interval_seconds"`
	MaxPhaseIntervalSeconds float64 `yaml:"max_phase_interval_seconds"`
	Phases                 []string `yaml:"phases"`
}

// HeartbeatTuning holds the keep-alive timing knobs in YAML form.
type HeartbeatTuning struct {
	IntervalSeconds float64 `yaml:"interval_seconds"`
}

var (
	defaultTuning     *Tuning
	defaultTuningOnce sync.Once
)

// DefaultTuning returns the embedded tuning defaults (parsed once).
// Panics only if the embedded YAML is malformed, which is a build defect.
func DefaultTuning() *Tuning {
	defaultTuningOnce.Do(func() {
		t, err := parseTuning(defaultTuningYAML)
		if err != nil {
			panic(fmt.Sprintf("claudebridge: embedded tuning defaults invalid: %v", err))
		}
		defaultTuning = t
	})
	return defaultTuning
}

// LoadTuningFromFile loads tuning overrides from a YAML file.
func LoadTuningFromFile(path string) (*Tuning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tuning file: %w", err)
	}
	return parseTuning(data)
}

func parseTuning(data []byte) (*Tuning, error) {
	var t Tuning
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse tuning yaml: %w", err)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *Tuning) validate() error {
	if t.Progress.InitialDelaySeconds < 0 {
		return &ConfigError{Field: "progress.initial_delay_seconds", Value: t.Progress.InitialDelaySeconds, Reason: "must be >= 0", Err: ErrInvalidConfig}
	}
	if t.Progress.DotIntervalSeconds <= 0 {
		return &ConfigError{Field: "progress.dot_interval_seconds", Value: t.Progress.DotIntervalSeconds, Reason: "must be > 0", Err: ErrInvalidConfig}
	}
	if t.Progress.PhaseIntervalSeconds <= 0 {
		return &ConfigError{Field: "progress.phase_interval_seconds", Value: t.Progress.PhaseIntervalSeconds, Reason: "must be > 0", Err: ErrInvalidConfig}
	}
	if t.Progress.MaxDots <= 0 {
		return &ConfigError{Field: "progress.max_dots", Value: t.Progress.MaxDots, Reason: "must be > 0", Err: ErrInvalidConfig}
	}
	if t.Progress.BackoffAfterUpdates <= 0 {
		return &ConfigError{Field: "progress.backoff_after_updates", Value: t.Progress.BackoffAfterUpdates, Reason: "must be > 0", Err: ErrInvalidConfig}
	}
	if t.Progress.BackoffFactor <= 1.0 {
		return &ConfigError{Field: "progress.backoff_factor", Value: t.Progress.BackoffFactor, Reason: "must be > 1.0", Err: ErrInvalidConfig}
	}
	if len(t.Progress.Phases) == 0 {
		return &ConfigError{Field: "progress.phases", Value: t.Progress.Phases, Reason: "must list at least one phase text", Err: ErrInvalidConfig}
	}
	if t.Heartbeat.IntervalSeconds <= 0 {
		return &ConfigError{Field: "heartbeat.interval_seconds", Value: t.Heartbeat.IntervalSeconds, Reason: "must be > 0", Err: ErrInvalidConfig}
	}
	return nil
}

// ProgressConfig converts the YAML tuning into the announcer's runtime form.
func (t *Tuning) ProgressConfig() ProgressConfig {
	p := t.Progress
	return ProgressConfig{
		InitialDelay:     secondsToDuration(p.InitialDelaySeconds),
		DotInterval:      secondsToDuration(p.DotIntervalSeconds),
		PhaseInterval:    secondsToDuration(p.PhaseIntervalSeconds),
		MaxDots:          p.MaxDots,
		BackoffFactor:    p.BackoffFactor,
		BackoffAfter:     p.BackoffAfterUpdates,
		MaxDotInterval:   secondsToDuration(p.MaxDotIntervalSeconds),
		MaxPhaseInterval: secondsToDuration(p.MaxPhaseIntervalSeconds),
		Phases:           p.Phases,
	}
}

// HeartbeatInterval converts the YAML tuning into the scheduler's interval.
func (t *Tuning) HeartbeatInterval() time.Duration {
	return secondsToDuration(t.Heartbeat.IntervalSeconds)
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
