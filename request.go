package claudebridge

// Turn is one prior conversation turn, reduced to the text the classifier
// and prompt builder care about.
type Turn struct {
	// Role is "user", "assistant" or "system"
	Role string

	// Text is the flattened text content of the turn
	Text string
}

// CompletionRequest contains the parameters for one backend completion run.
// The HTTP layer (out of scope here) builds one of these per request.
type CompletionRequest struct {
	// Prompt is the fully built prompt, including any injections produced
	// by BuildPrompt from the classifier result.
	Prompt string

	// SystemPrompt is the optional system prompt override.
	SystemPrompt string

	// Model is the model identifier to pass through to the backend
	// (empty means backend default).
	Model string

	// MaxTurns caps the number of agent turns (0 means backend default).
	MaxTurns int

	// AllowedTools restricts the backend to the named tools (nil means no
	// restriction).
	AllowedTools []string

	// DisallowedTools forbids the named tools.
	DisallowedTools []string

	// SessionID resumes the named backend session when set.
	SessionID string

	// ContinueSession continues the most recent backend session.
	ContinueSession bool

	// PriorTurns is the conversation history preceding Prompt, used for
	// classification context only. The backend receives Prompt as built.
	PriorTurns []Turn
}

// GetMaxTurns returns MaxTurns, or def when unset.
func (r *CompletionRequest) GetMaxTurns(def int) int {
	if r.MaxTurns <= 0 {
		return def
	}
	return r.MaxTurns
}
