package claudebridge

// SessionInfo carries the per-response identifiers harvested from upstream
// init and result events, surfaced for out-of-scope cleanup hooks (sandbox
// removal, session bookkeeping).
type SessionInfo struct {
	// SessionID is the backend session identifier.
	SessionID string

	// SandboxDir is the working directory the backend ran in.
	SandboxDir string

	// Model is the model the backend reported.
	Model string
}

// sessionCapture records session identifiers write-once: the first event to
// supply a field wins, later values are ignored. Owned by one multiplexer
// run, so no locking is needed.
type sessionCapture struct {
	info SessionInfo
}

// Observe harvests identifiers from one upstream event.
func (c *sessionCapture) Observe(ev Event) {
	if ev.Session == nil {
		return
	}
	if c.info.SessionID == "" && ev.Session.SessionID != "" {
		c.info.SessionID = ev.Session.SessionID
	}
	if c.info.SandboxDir == "" && ev.Session.Cwd != "" {
		c.info.SandboxDir = ev.Session.Cwd
	}
	if c.info.Model == "" && ev.Session.Model != "" {
		c.info.Model = ev.Session.Model
	}
}

// Info returns the identifiers captured so far.
func (c *sessionCapture) Info() SessionInfo {
	return c.info
}
