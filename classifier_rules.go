package claudebridge

import "regexp"

// classifierRule pairs a compiled pattern with the source text it was built
// from, so classification reasons can quote the rule that fired.
type classifierRule struct {
	name    string
	pattern *regexp.Regexp
}

func compileRules(specs []ruleSpec) []classifierRule {
	rules := make([]classifierRule, 0, len(specs))
	for _, s := range specs {
		rules = append(rules, classifierRule{
			name:    s.source,
			pattern: regexp.MustCompile(s.flags + s.source),
		})
	}
	return rules
}

type ruleSpec struct {
	flags  string
	source string
}

// Primary triggers: any match means structured XML output is required.
var primaryTriggerSpecs = []ruleSpec{
	// Explicit format instructions.
	{"(?i)", `Tool uses are formatted using XML-style tags`},
	{"(?i)", `You (?:must|should|will) (?:use|respond with|format using) (?:the )?XML`},
	{"(?i)", `(?:wrap|format) your (?:entire )?response in (?:proper )?(?:tool )?XML tags`},
	{"(?i)", `respond using (?:the )?<\w+> tool`},
	{"(?i)", `Your response MUST use the XML tool format`},
	{"(?i)", `use XML tags for your response`},
	{"(?i)", `MUST respond using the EXACT XML format`},
	{"(?i)", `(?:must|should) respond using XML format`},
	{"(?i)", `respond (?:with|in|using) XML`},

	// Tool definition patterns.
	{"(?i)", `<tool_name>\w+</tool_name>`},
	{"(?i)", `Available tools?:\s*(?:\n|\r\n)?(?:\s*[-*]\s*)?<\w+>`},
	{"(?i)", `Tools available:\s*<\w+>`},

	// Format enforcement patterns.
	{"(?i)", `use (?:a|the) tool in your (?:previous )?response`},
	{"(?i)", `retry with a tool use`},
	{"(?i)", `CRITICAL - THIS IS MANDATORY:.*XML`},
	{"(?i)", `Your ENTIRE response MUST be wrapped in proper TOOL XML tags`},
}

// Exclusion rules: any match means XML is NOT required, regardless of what
// the triggers would say. Checked first.
var exclusionSpecs = []ruleSpec{
	// Explicit non-XML instructions.
	{"(?is)", `respond in (?:plain text|JSON|markdown)`},
	{"(?is)", `(?:do not|don't) use XML`},
	{"(?is)", `format as JSON`},
	{"(?is)", `return JSON`},
	{"(?is)", `output JSON`},

	// XML appearing inside code blocks is illustrative, not a format demand.
	{"(?is)", "```[^`]*<\\w+>.*</\\w+>[^`]*```"},
	{"(?is)", `    <\w+>.*</\w+>`},

	// Example indicators preceding XML.
	{"(?is)", `(?:example|sample|demo|e\.g\.|for instance):\s*<\w+>`},
	{"(?is)", `(?:here's|this is) (?:an? )?(?:example|sample).*<\w+>`},

	// HTML document indicators.
	{"(?is)", `<!DOCTYPE\s+html`},
	{"(?is)", `<html[^>]*>.*</html>`},
	{"(?is)", `<meta\s+charset=`},
}

// Secondary patterns need corroborating instructional context before they
// count as a format demand.
var secondarySpecs = []ruleSpec{
	// Action-oriented tool names.
	{"(?i)", `<(attempt_completion|ask_followup_question|new_task)>`},
	{"(?i)", `<(\w+_\w+)>`},

	// Tool usage instructions.
	{"(?i)", `use the (\w+) tool`},
	{"(?i)", `invoke the (\w+) tool`},
	{"(?i)", `call the (\w+) tool`},
}

var instructionContextPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:must|should|will|need to|have to)\b`),
	regexp.MustCompile(`(?i)\b(?:use|format|respond|wrap|structure)\b`),
	regexp.MustCompile(`(?i)\b(?:your response|your output|the response)\b`),
}

var continuationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`continue`),
	regexp.MustCompile(`go on`),
	regexp.MustCompile(`proceed`),
	regexp.MustCompile(`what's next`),
	regexp.MustCompile(`keep going`),
	regexp.MustCompile(`retry`),
	regexp.MustCompile(`try again`),
	regexp.MustCompile(`please (?:continue|proceed)`),
}

// Conversation-history markers that show the client has already been using
// XML tool calls in this session.
var historyMarkers = []string{
	"<attempt_completion>",
	"<ask_followup_question>",
	"<new_task>",
	"tool uses are formatted",
	"[error] you did not use a tool",
}

// Tag names that are never tool names, so generic tag matches don't turn
// ordinary markup into a format demand.
var definiteNonTools = map[string]struct{}{
	// HTML tags.
	"html": {}, "head": {}, "body": {}, "div": {}, "span": {}, "p": {},
	"a": {}, "img": {}, "table": {}, "tr": {}, "td": {}, "th": {},
	"ul": {}, "ol": {}, "li": {}, "br": {}, "hr": {},
	"h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {},
	"meta": {}, "link": {}, "script": {}, "style": {},

	// Common XML tags.
	"root": {}, "node": {}, "item": {}, "element": {}, "data": {},
	"config": {}, "settings": {}, "xml": {}, "doc": {}, "document": {},

	// Documentation and structure tags.
	"task": {}, "environment_details": {}, "file": {}, "path": {},
	"content": {}, "description": {}, "parameter": {}, "parameters": {},
	"argument": {}, "arguments": {}, "value": {}, "type": {}, "name": {},
	"required": {}, "mode": {}, "message": {}, "result": {}, "response": {},
}

// Extraction patterns for naming the tools a prompt declares.
var (
	toolNameTagPattern  = regexp.MustCompile(`(?i)<tool_name>(\w+)</tool_name>`)
	useToolPattern      = regexp.MustCompile(`(?i)use the (\w+) tool`)
	compoundTagPattern  = regexp.MustCompile(`<(\w+_\w+)>`)
	toolListPattern     = regexp.MustCompile(`(?i)(?:tools?|commands?):\s*(?:\n|\r\n)?(?:\s*[-*]\s*)?<(\w+)>`)
	bareTagPattern      = regexp.MustCompile(`<(\w+)>`)
	fencedBlockPattern  = regexp.MustCompile("(?s)```[^`]*```")
	wellKnownToolNames  = []string{"attempt_completion", "ask_followup_question", "new_task"}
)
