package claudebridge

import (
	"strings"
	"testing"
)

func TestDetectFormatHints(t *testing.T) {
	tests := []struct {
		name      string
		turns     []Turn
		wantTools bool
		wantJSON  bool
	}{
		{
			"tool definitions via xml-style tags",
			[]Turn{{Role: "user", Text: "Tool uses are formatted using XML-style tags"}},
			true, false,
		},
		{
			"tool example tags",
			[]Turn{{Role: "user", Text: "Use <attempt_completion>result</attempt_completion> to finish"}},
			true, false,
		},
		{
			"roo error marker",
			[]Turn{{Role: "user", Text: "[ERROR] You did not use a tool in your previous response!"}},
			true, false,
		},
		{
			"json format request",
			[]Turn{{Role: "user", Text: "Please respond in JSON format"}},
			false, true,
		},
		{
			"pure json request",
			[]Turn{{Role: "user", Text: "return pure JSON only"}},
			false, true,
		},
		{
			"both",
			[]Turn{
				{Role: "user", Text: "<tool_name>finish</tool_name>"},
				{Role: "user", Text: "output json"},
			},
			true, true,
		},
		{
			"neither",
			[]Turn{{Role: "user", Text: "What's the weather like?"}},
			false, false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hints := DetectFormatHints(tt.turns)
			if hints.HasToolDefinitions != tt.wantTools {
				t.Errorf("HasToolDefinitions = %v, want %v", hints.HasToolDefinitions, tt.wantTools)
			}
			if hints.HasJSONRequest != tt.wantJSON {
				t.Errorf("HasJSONRequest = %v, want %v", hints.HasJSONRequest, tt.wantJSON)
			}
		})
	}
}

func TestFinalReinforcement(t *testing.T) {
	if got := FinalReinforcement(FormatHints{}); got != "" {
		t.Errorf("FinalReinforcement with no hints = %q, want empty", got)
	}

	got := FinalReinforcement(FormatHints{HasToolDefinitions: true})
	if !strings.HasPrefix(got, "FINAL INSTRUCTION") {
		t.Errorf("reinforcement = %q, want FINAL INSTRUCTION prefix", got)
	}
	if !strings.Contains(got, "attempt_completion") {
		t.Error("tool reinforcement does not name the XML formats")
	}

	got = FinalReinforcement(FormatHints{HasToolDefinitions: true, HasJSONRequest: true})
	if !strings.Contains(got, "parseable JSON") {
		t.Error("combined reinforcement missing JSON instruction")
	}
}

func TestInjectPrompts(t *testing.T) {
	turns := []Turn{
		{Role: "user", Text: "respond in JSON format please"},
	}

	t.Run("chat mode off", func(t *testing.T) {
		out := InjectPrompts(turns, false)
		if len(out) != 3 {
			t.Fatalf("len = %d, want reinforcement + turn + final, got %v", len(out), out)
		}
		if out[0].Text != ResponseReinforcementPrompt {
			t.Error("first injected turn is not the reinforcement prompt")
		}
		if out[1] != turns[0] {
			t.Error("original turn not preserved in order")
		}
		if !strings.HasPrefix(out[2].Text, "FINAL INSTRUCTION") {
			t.Error("trailing reinforcement missing for JSON request")
		}
	})

	t.Run("chat mode on", func(t *testing.T) {
		out := InjectPrompts(turns, true)
		if len(out) != 4 {
			t.Fatalf("len = %d, want 4", len(out))
		}
		if out[1].Text != ChatModeNoFilesPrompt {
			t.Error("chat-mode prompt missing or out of order")
		}
	})

	t.Run("no hints no trailer", func(t *testing.T) {
		out := InjectPrompts([]Turn{{Role: "user", Text: "hello"}}, false)
		if len(out) != 2 {
			t.Fatalf("len = %d, want reinforcement + turn only, got %v", len(out), out)
		}
	})
}

func TestBuildPrompt(t *testing.T) {
	toolPrompt := "Tool uses are formatted using XML-style tags.\n<read_file><path>x</path></read_file>"

	t.Run("structured with tool indicators in chat mode", func(t *testing.T) {
		got := BuildPrompt(toolPrompt, nil, true)
		if !strings.HasPrefix(got, toolPrompt) {
			t.Error("structured prompt was not preserved at the front")
		}
		if !strings.Contains(got, "CRITICAL FINAL INSTRUCTION") {
			t.Error("tool usage trailer missing")
		}
	})

	t.Run("structured without tool indicators in chat mode", func(t *testing.T) {
		prompt := "<greeting>hello there</greeting>"
		got := BuildPrompt(prompt, nil, true)
		if !strings.HasPrefix(got, ChatModeNoFilesPrompt) {
			t.Error("chat-mode prompt not prepended")
		}
		if !strings.HasSuffix(got, prompt) {
			t.Error("original prompt not preserved at the end")
		}
	})

	t.Run("structured outside chat mode passes through", func(t *testing.T) {
		if got := BuildPrompt(toolPrompt, nil, false); got != toolPrompt {
			t.Errorf("prompt modified outside chat mode: %q", got)
		}
	})

	t.Run("json payload treated as structured", func(t *testing.T) {
		prompt := `{"query": "hello"}`
		if got := BuildPrompt(prompt, nil, false); got != prompt {
			t.Errorf("json prompt modified: %q", got)
		}
	})

	t.Run("plain prompt outside chat mode passes through", func(t *testing.T) {
		if got := BuildPrompt("what is 2+2", nil, false); got != "what is 2+2" {
			t.Errorf("plain prompt modified: %q", got)
		}
	})

	t.Run("plain prompt in chat mode gets role prefixes", func(t *testing.T) {
		got := BuildPrompt("what is 2+2", nil, true)
		if !strings.HasPrefix(got, "System: "+ResponseReinforcementPrompt) {
			t.Error("reinforcement prompt missing or out of order")
		}
		if !strings.Contains(got, "System: "+ChatModeNoFilesPrompt) {
			t.Error("chat-mode prompt missing")
		}
		if !strings.Contains(got, "User: what is 2+2") {
			t.Error("user prompt missing role prefix")
		}
		if strings.Contains(got, "FINAL INSTRUCTION -") {
			t.Error("unexpected reinforcement without conversation hints")
		}
	})

	t.Run("plain prompt with json conversation gets trailer", func(t *testing.T) {
		turns := []Turn{{Role: "user", Text: "respond in JSON format"}}
		got := BuildPrompt("what is 2+2", turns, true)
		if !strings.Contains(got, "System: FINAL INSTRUCTION") {
			t.Error("format reinforcement trailer missing")
		}
		idx := strings.LastIndex(got, "System: FINAL INSTRUCTION")
		if strings.Contains(got[idx:], "User: ") {
			t.Error("reinforcement trailer is not last")
		}
	})
}

func TestContainsToolExample(t *testing.T) {
	if !ContainsToolExample("<attempt_completion>done</attempt_completion>") {
		t.Error("paired tag not detected")
	}
	if ContainsToolExample("this has an <open> tag only") {
		t.Error("unpaired tag detected as example")
	}
	if ContainsToolExample("no tags at all") {
		t.Error("plain text detected as example")
	}
}

func TestVerifyResponseFormat(t *testing.T) {
	plainResult := Classification{XMLRequired: false}
	xmlResult := Classification{XMLRequired: true, Reason: "primary trigger", ToolNames: []string{"attempt_completion"}}

	tests := []struct {
		name   string
		result Classification
		text   string
		want   bool
	}{
		{"not required always passes", plainResult, "plain text", true},
		{"required with tags passes", xmlResult, "<attempt_completion>done</attempt_completion>", true},
		{"required with plain text flagged", xmlResult, "just plain text", false},
		{"empty response not flagged", xmlResult, "   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifyResponseFormat(nil, tt.result, tt.text); got != tt.want {
				t.Errorf("VerifyResponseFormat() = %v, want %v", got, tt.want)
			}
		})
	}
}
