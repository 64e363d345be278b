package claudebridge

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// Classification is the outcome of format detection for one request.
type Classification struct {
	// XMLRequired reports whether the prompt demands structured XML output.
	XMLRequired bool

	// Reason quotes the rule that decided the outcome.
	Reason string

	// ToolNames lists the tools the prompt declares, sorted and
	// deduplicated. Empty when XMLRequired is false.
	ToolNames []string
}

// FormatClassifier decides, from the prompt text and conversation history
// alone, whether a request demands structured XML tool output. Detection is
// hierarchical rather than scored: exclusions beat triggers, triggers beat
// secondary context rules, and anything else defaults to plain text. The
// same inputs always yield the same outcome.
type FormatClassifier struct {
	primary   []classifierRule
	exclusion []classifierRule
	secondary []classifierRule
	logger    *slog.Logger
}

var (
	defaultClassifier     *FormatClassifier
	defaultClassifierOnce sync.Once
)

// DefaultClassifier returns the shared classifier built from the standard
// rule set. It is safe for concurrent use.
func DefaultClassifier() *FormatClassifier {
	defaultClassifierOnce.Do(func() {
		defaultClassifier = NewFormatClassifier(slog.Default())
	})
	return defaultClassifier
}

// NewFormatClassifier compiles the rule set. A nil logger means
// slog.Default().
func NewFormatClassifier(logger *slog.Logger) *FormatClassifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &FormatClassifier{
		primary:   compileRules(primaryTriggerSpecs),
		exclusion: compileRules(exclusionSpecs),
		secondary: compileRules(secondarySpecs),
		logger:    logger,
	}
}

// Classify runs the rule hierarchy over prompt and the prior conversation
// turns. An empty prompt classifies as not-required.
func (c *FormatClassifier) Classify(prompt string, priorTurns []Turn) Classification {
	// Exclusions win over everything else.
	for i, rule := range c.exclusion {
		if rule.pattern.MatchString(prompt) {
			reason := fmt.Sprintf("exclusion rule #%d: %s", i+1, rule.name)
			c.logger.Debug("format classification", "xml_required", false, "reason", reason)
			return Classification{Reason: reason}
		}
	}

	// Primary triggers are definitive.
	for i, rule := range c.primary {
		if rule.pattern.MatchString(prompt) {
			reason := fmt.Sprintf("primary trigger #%d: %s", i+1, rule.name)
			tools := extractToolNames(prompt)
			c.logger.Info("format classification", "xml_required", true, "reason", reason, "tools", tools)
			return Classification{XMLRequired: true, Reason: reason, ToolNames: tools}
		}
	}

	// Secondary rules only fire with corroborating context.
	if required, reason := c.checkSecondary(prompt, priorTurns); required {
		tools := extractToolNames(prompt)
		c.logger.Info("format classification", "xml_required", true, "reason", reason, "tools", tools)
		return Classification{XMLRequired: true, Reason: reason, ToolNames: tools}
	}

	c.logger.Debug("format classification", "xml_required", false)
	return Classification{Reason: "no XML format indicators found"}
}

func (c *FormatClassifier) checkSecondary(prompt string, priorTurns []Turn) (bool, string) {
	clean := stripCodeBlocks(prompt)

	// Action-oriented tags combined with instructional language.
	var actionTags []string
	for _, rule := range c.secondary {
		for _, m := range rule.pattern.FindAllStringSubmatch(clean, -1) {
			if len(m) > 1 {
				actionTags = append(actionTags, m[1])
			}
		}
	}
	if len(actionTags) > 0 && hasInstructionContext(clean) {
		filtered := filterNonTools(actionTags)
		if len(filtered) > 0 {
			return true, fmt.Sprintf("action-oriented tags with instruction context: %v", filtered)
		}
	}

	// Two or more plausible tool tags plus instructional language.
	var toolTags []string
	for _, m := range bareTagPattern.FindAllStringSubmatch(clean, -1) {
		toolTags = append(toolTags, m[1])
	}
	toolTags = filterNonTools(toolTags)
	if len(toolTags) >= 2 && hasInstructionContext(clean) {
		return true, fmt.Sprintf("multiple tool tags with instruction context: %v", toolTags)
	}

	// A continuation request inherits the format of a history that already
	// used XML tools.
	if hasXMLToolHistory(priorTurns) && isContinuation(prompt) {
		return true, "previous XML tool usage with continuation context"
	}

	return false, ""
}

// stripCodeBlocks removes fenced and 4-space-indented code so markup shown
// as an illustration does not read as a format demand.
func stripCodeBlocks(text string) string {
	text = fencedBlockPattern.ReplaceAllString(text, "")

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(line, "    ") && strings.TrimSpace(line) != "" {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func hasInstructionContext(text string) bool {
	for _, p := range instructionContextPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

func hasXMLToolHistory(turns []Turn) bool {
	for _, turn := range turns {
		lower := strings.ToLower(turn.Text)
		for _, marker := range historyMarkers {
			if strings.Contains(lower, marker) {
				return true
			}
		}
	}
	return false
}

func isContinuation(prompt string) bool {
	lower := strings.ToLower(prompt)
	for _, p := range continuationPatterns {
		if p.MatchString(lower) {
			return true
		}
	}
	return false
}

func filterNonTools(tags []string) []string {
	var out []string
	for _, t := range tags {
		if _, skip := definiteNonTools[strings.ToLower(t)]; !skip {
			out = append(out, t)
		}
	}
	return out
}

// extractToolNames collects the definitively identified tool names from a
// prompt, sorted so identical prompts always yield identical lists.
func extractToolNames(prompt string) []string {
	seen := make(map[string]struct{})

	for _, m := range toolNameTagPattern.FindAllStringSubmatch(prompt, -1) {
		seen[m[1]] = struct{}{}
	}
	for _, m := range useToolPattern.FindAllStringSubmatch(prompt, -1) {
		if _, skip := definiteNonTools[strings.ToLower(m[1])]; !skip {
			seen[m[1]] = struct{}{}
		}
	}
	for _, m := range compoundTagPattern.FindAllStringSubmatch(prompt, -1) {
		if _, skip := definiteNonTools[strings.ToLower(m[1])]; !skip {
			seen[m[1]] = struct{}{}
		}
	}
	for _, m := range toolListPattern.FindAllStringSubmatch(prompt, -1) {
		if _, skip := definiteNonTools[strings.ToLower(m[1])]; !skip {
			seen[m[1]] = struct{}{}
		}
	}

	lower := strings.ToLower(prompt)
	for _, tool := range wellKnownToolNames {
		if strings.Contains(lower, tool) {
			seen[tool] = struct{}{}
		}
	}

	if len(seen) == 0 {
		return nil
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
