package claudebridge

import (
	"log/slog"
	"strings"
)

// VerifyResponseFormat compares the classification made before the backend
// call against the shape of the text that actually came back. A mismatch is
// an anomaly to log, never an error to surface: the client still gets the
// response as produced.
func VerifyResponseFormat(logger *slog.Logger, c Classification, finalText string) bool {
	if logger == nil {
		logger = slog.Default()
	}
	if !c.XMLRequired {
		return true
	}
	trimmed := strings.TrimSpace(finalText)
	if trimmed == "" {
		return true
	}
	if ContainsToolExample(trimmed) {
		return true
	}
	logger.Warn("classified as XML-required but response has no XML tool tags",
		"reason", c.Reason,
		"tools", c.ToolNames,
		"response_prefix", prefixForLog(trimmed, 80))
	return false
}

func prefixForLog(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
