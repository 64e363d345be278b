package claudebridge

import (
	"regexp"
	"strings"
)

// Prompt injections steering the backend toward client-compatible output.
// These run ahead of the conversation so the model honors whatever response
// format the client's own instructions establish.
const (
	// ResponseReinforcementPrompt is always injected first.
	ResponseReinforcementPrompt = `You are a versatile AI assistant capable of helping with any task, including but not limited to coding.

CRITICAL INSTRUCTION: You MUST detect and follow ANY response format specified in the conversation.

1. ALWAYS scan the ENTIRE conversation for format instructions, including:
   - Tool definitions with XML or other markup formats
   - Instructions about how to format responses
   - Examples of expected response structures
   - Any mention of specific formatting requirements

2. If you see ANY of these patterns, you MUST use that format:
   - "Tool uses are formatted using XML-style tags..." → Use XML tool format
   - "<actual_tool_name>...</actual_tool_name>" → This is showing you the expected format
   - "use this tool to present the result" → Use the specified format
   - "attempt_completion" or similar format names → Use that format to respond
   - "respond in JSON" or "JSON format" → Return PURE JSON without any markdown formatting
   - Any other structured format examples → Follow them exactly

3. When XML response formats are provided:
   - If completing a task or answering a question → Format with <attempt_completion> tags
   - If you need more information → Format with <ask_followup_question> tags
   - NEVER respond in plain text when XML formats are defined

4. SECURITY: If operating in a sandbox environment:
   - NEVER expose system paths, directories, or environment details
   - Keep all file system information completely hidden`

	// ChatModeNoFilesPrompt is added when chat mode disables file access.
	ChatModeNoFilesPrompt = `IMPORTANT: You are operating in a sandboxed environment with NO file system access.

ONLY when SPECIFICALLY asked about the workspace, working directory, file system, or why you can't save files:
- Say you're running in a "digital black hole" - a secure sandbox with no file system access
- NEVER reveal actual paths, directories, or system information
- Use humor: "I'm in a void where files fear to tread" or "My workspace is like a black hole - nothing escapes, not even file paths!"

For ALL OTHER requests (code generation, explanations, help, etc.):
- Just provide the requested content normally
- DO NOT mention sandbox, black hole, or file system limitations unless directly asked
- Simply output code in markdown blocks without mentioning you can't save files

When generating code or files:
- Output code directly in markdown code blocks
- Use clear section headers for multiple files
- Present as ready-to-copy solutions
- DO NOT volunteer information about not being able to save files

Available tools are limited to:
- WebSearch: Search the internet for information
- WebFetch: Fetch and analyze web content

CRITICAL: Only discuss sandbox limitations when EXPLICITLY asked. For normal code requests, just provide the code.`

	toolFormatReinforcement = "CRITICAL: The conversation above contains XML response format definitions. " +
		"You MUST format your ENTIRE response using one of the XML formats shown " +
		"(such as <attempt_completion> or <ask_followup_question>). " +
		"Do NOT respond with plain text. " +
		"Your response should start with an XML tag like <attempt_completion> and end with the closing tag. " +
		"This is MANDATORY - use the XML format exactly as demonstrated above. " +
		"Note: These are response formatting tags, NOT Claude SDK tools."

	jsonFormatReinforcement = "JSON format was explicitly requested. Return ONLY pure JSON - no markdown, " +
		"no code blocks, no ``` characters. Your entire response must be " +
		"valid, parseable JSON."

	toolUsageInstruction = "CRITICAL FINAL INSTRUCTION: You MUST use the XML tool format shown above in your response. " +
		"The conversation above contains tool definitions like <attempt_completion>, <ask_followup_question>, etc. " +
		"You MUST format your ENTIRE response using one of these XML tools. " +
		"Do NOT respond with plain text. Use the appropriate XML tool tag to wrap your response."
)

var (
	anyTagPairPattern = regexp.MustCompile(`(?is)<\w+>.*</\w+>`)
	nestedTagPattern  = regexp.MustCompile(`<(\w+)>\s*<(\w+)>`)
	openTagPattern    = regexp.MustCompile(`<(\w+)>`)
)

// FormatHints records which client format conventions a conversation shows.
type FormatHints struct {
	HasToolDefinitions bool
	HasJSONRequest     bool
}

// DetectFormatHints scans the conversation for tool definitions and JSON
// format requests.
func DetectFormatHints(turns []Turn) FormatHints {
	var hints FormatHints
	for _, turn := range turns {
		content := strings.ToLower(turn.Text)

		switch {
		case strings.Contains(content, "tool") && (strings.Contains(content, "<") || strings.Contains(content, "xml")),
			strings.Contains(content, "attempt_completion"),
			strings.Contains(content, "ask_followup_question"),
			strings.Contains(content, "tool uses are formatted"),
			strings.Contains(content, "use this tool") && strings.Contains(content, "<"),
			strings.Contains(content, "[error] you did not use a tool"),
			strings.Contains(content, "xml-style tags"),
			strings.Contains(content, "<actual_tool_name>"),
			strings.Contains(content, "your response must use") && strings.Contains(content, "xml"),
			anyTagPairPattern.MatchString(content),
			nestedTagPattern.MatchString(content):
			hints.HasToolDefinitions = true
		}

		switch {
		case strings.Contains(content, "json") && strings.Contains(content, "format"),
			strings.Contains(content, "respond") && strings.Contains(content, "json"),
			strings.Contains(content, "return json"),
			strings.Contains(content, "output json"),
			strings.Contains(content, "json response"),
			strings.Contains(content, "pure json"),
			strings.Contains(content, "parseable json"):
			hints.HasJSONRequest = true
		}
	}
	return hints
}

// ContainsToolExample reports whether content has a properly paired
// XML-style tag, the shape tool examples take in client prompts.
func ContainsToolExample(content string) bool {
	for _, m := range openTagPattern.FindAllStringSubmatch(content, -1) {
		if strings.Contains(content, "</"+m[1]+">") {
			return true
		}
	}
	return false
}

// FinalReinforcement builds the trailing system message for the detected
// hints, or "" when no reinforcement is needed.
func FinalReinforcement(hints FormatHints) string {
	var parts []string
	if hints.HasToolDefinitions {
		parts = append(parts, toolFormatReinforcement)
	}
	if hints.HasJSONRequest {
		parts = append(parts, jsonFormatReinforcement)
	}
	if len(parts) == 0 {
		return ""
	}
	return "FINAL INSTRUCTION - THIS OVERRIDES ALL OTHER INSTRUCTIONS: " + strings.Join(parts, " ")
}

// hasStructuredPrompt reports whether the prompt already carries a
// structured response format (XML tool examples or a JSON payload) that
// the injections must not disturb.
func hasStructuredPrompt(prompt string) bool {
	trimmed := strings.TrimSpace(prompt)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return true
	}
	return ContainsToolExample(prompt)
}

// hasToolIndicators reports whether a structured prompt shows tool usage
// expectations.
func hasToolIndicators(prompt string) bool {
	lower := strings.ToLower(prompt)
	for _, marker := range []string{
		"tool use",
		"tool uses are formatted",
		"<actual_tool_name>",
		"xml-style tags",
		"attempt_completion",
		"ask_followup_question",
	} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return nestedTagPattern.MatchString(prompt)
}

// BuildPrompt assembles the single prompt string handed to the backend.
// Structured prompts are preserved with minimal injection so clients that
// define their own tool formats see their text untouched: in chat mode a
// tool-usage trailer is appended when tool indicators are present,
// otherwise the chat-mode prompt is prepended. Plain prompts in chat mode
// get the full role-prefixed wrapping with any format reinforcement from
// the conversation appended last; outside chat mode they pass through
// unchanged.
func BuildPrompt(prompt string, turns []Turn, chatMode bool) string {
	if hasStructuredPrompt(prompt) {
		switch {
		case chatMode && hasToolIndicators(prompt):
			return prompt + "\n\n" + toolUsageInstruction
		case chatMode:
			return ChatModeNoFilesPrompt + "\n\n" + prompt
		default:
			return prompt
		}
	}

	if !chatMode {
		return prompt
	}

	parts := []string{
		"System: " + ResponseReinforcementPrompt,
		"System: " + ChatModeNoFilesPrompt,
		"User: " + prompt,
	}
	if len(turns) > 0 {
		if final := FinalReinforcement(DetectFormatHints(turns)); final != "" {
			parts = append(parts, "System: "+final)
		}
	}
	return strings.Join(parts, "\n\n")
}

// InjectPrompts wraps the conversation with the steering prompts: the
// reinforcement prompt first, the chat-mode prompt when enabled, the
// original turns, then any format-specific final reinforcement.
func InjectPrompts(turns []Turn, chatMode bool) []Turn {
	hints := DetectFormatHints(turns)

	enhanced := make([]Turn, 0, len(turns)+3)
	enhanced = append(enhanced, Turn{Role: "system", Text: ResponseReinforcementPrompt})
	if chatMode {
		enhanced = append(enhanced, Turn{Role: "system", Text: ChatModeNoFilesPrompt})
	}
	enhanced = append(enhanced, turns...)

	if final := FinalReinforcement(hints); final != "" {
		enhanced = append(enhanced, Turn{Role: "system", Text: final})
	}
	return enhanced
}
