// Package claudecode runs the Claude Code CLI as a subprocess and adapts its
// stream-json output to the bridge's event contract.
package claudecode

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	claudebridge "github.com/RichardAtCT/claude-bridge-go"
)

const defaultBinary = "claude"

// Line buffer bounds for the JSONL scanner. Assistant messages can carry
// whole files, so the ceiling is generous.
const (
	scanInitialBuf = 64 * 1024
	scanMaxBuf     = 10 * 1024 * 1024
)

// Config configures the CLI backend.
type Config struct {
	// BinaryPath locates the claude binary. Empty means "claude" on PATH.
	BinaryPath string

	// WorkDir is the subprocess working directory, typically a per-session
	// sandbox. Empty inherits the parent's.
	WorkDir string

	// Env replaces the subprocess environment when non-nil.
	Env []string

	// Logger receives subprocess lifecycle records. Nil means slog.Default().
	Logger *slog.Logger
}

// Backend streams completions from a local Claude Code CLI.
type Backend struct {
	cfg    Config
	logger *slog.Logger
}

var _ claudebridge.Backend = (*Backend)(nil)

// New creates a CLI backend.
func New(cfg Config) *Backend {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{cfg: cfg, logger: logger}
}

// Name implements claudebridge.Backend.
func (b *Backend) Name() claudebridge.BackendID {
	return claudebridge.BackendClaudeCode
}

func (b *Backend) binary() string {
	if b.cfg.BinaryPath != "" {
		return b.cfg.BinaryPath
	}
	return defaultBinary
}

// Verify runs a minimal CLI invocation to confirm the binary is reachable
// and responsive. Intended for startup checks, not the request path.
func (b *Backend) Verify(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, b.binary(), "--version")
	out, err := cmd.Output()
	if err != nil {
		return &claudebridge.UpstreamError{
			Backend: string(claudebridge.BackendClaudeCode),
			Message: fmt.Sprintf("claude CLI not reachable at %q", b.binary()),
			Err:     claudebridge.ErrBackendUnavailable,
		}
	}
	b.logger.Info("claude CLI verified", "version", strings.TrimSpace(string(out)))
	return nil
}

// buildArgs maps the request onto CLI flags. The prompt itself travels as
// the positional argument to --print.
func buildArgs(req *claudebridge.CompletionRequest) []string {
	args := []string{
		"--print",
		"--output-format", "stream-json",
		"--verbose",
	}
	if req.Model != "" {
		args = append(args, "--model", req.Model)
	}
	if turns := req.GetMaxTurns(0); turns > 0 {
		args = append(args, "--max-turns", strconv.Itoa(turns))
	}
	if req.SystemPrompt != "" {
		args = append(args, "--system-prompt", req.SystemPrompt)
	}
	if len(req.AllowedTools) > 0 {
		args = append(args, "--allowed-tools", strings.Join(req.AllowedTools, ","))
	}
	if len(req.DisallowedTools) > 0 {
		args = append(args, "--disallowed-tools", strings.Join(req.DisallowedTools, ","))
	}
	if req.SessionID != "" {
		args = append(args, "--resume", req.SessionID)
	} else if req.ContinueSession {
		args = append(args, "--continue")
	}
	args = append(args, req.Prompt)
	return args
}

// Stream implements claudebridge.Backend. The subprocess lives for exactly
// one response; cancelling ctx kills it. Failures after startup arrive
// in-band as a result-error event before the channel closes.
func (b *Backend) Stream(ctx context.Context, req *claudebridge.CompletionRequest) (<-chan claudebridge.Event, error) {
	if req == nil || req.Prompt == "" {
		return nil, &claudebridge.ConfigError{
			Field:  "prompt",
			Reason: "must not be empty",
			Err:    claudebridge.ErrInvalidConfig,
		}
	}

	cmd := exec.CommandContext(ctx, b.binary(), buildArgs(req)...)
	if b.cfg.WorkDir != "" {
		cmd.Dir = b.cfg.WorkDir
	}
	if b.cfg.Env != nil {
		cmd.Env = b.cfg.Env
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &claudebridge.UpstreamError{
			Backend: string(claudebridge.BackendClaudeCode),
			Message: "failed to open stdout pipe",
			Err:     err,
		}
	}
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, &claudebridge.UpstreamError{
			Backend: string(claudebridge.BackendClaudeCode),
			Message: fmt.Sprintf("failed to start %q", b.binary()),
			Err:     claudebridge.ErrBackendUnavailable,
		}
	}
	b.logger.Debug("claude CLI started", "pid", cmd.Process.Pid, "model", req.Model)

	events := make(chan claudebridge.Event, 10)

	go func() {
		defer close(events)

		sawResult := false
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, scanInitialBuf), scanMaxBuf)

		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			ev := decodeLine([]byte(line), b.logger)
			if ev.IsTerminal() {
				sawResult = true
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				// CommandContext kills the process; just reap it.
				_ = cmd.Wait()
				return
			}
		}
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			b.logger.Warn("claude CLI stdout read failed", "error", err)
		}

		err := cmd.Wait()
		if ctx.Err() != nil {
			return
		}
		if err != nil && !sawResult {
			msg := strings.TrimSpace(stderr.String())
			if msg == "" {
				msg = err.Error()
			}
			b.logger.Error("claude CLI exited abnormally", "error", err)
			select {
			case events <- claudebridge.ResultErrorEvent(fmt.Sprintf("claude process failed: %s", msg)):
			case <-ctx.Done():
			}
		}
	}()

	return events, nil
}
