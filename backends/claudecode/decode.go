package claudecode

import (
	"encoding/json"
	"log/slog"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/tidwall/gjson"

	claudebridge "github.com/RichardAtCT/claude-bridge-go"
)

// decodeLine normalizes one stream-json line to a bridge event. It never
// fails: unrecognized shapes become EventUnknown with the raw bytes kept,
// so the extractor can still probe them.
func decodeLine(line []byte, logger *slog.Logger) claudebridge.Event {
	raw := json.RawMessage(append([]byte(nil), line...))

	typ := gjson.GetBytes(line, "type").Str
	switch typ {
	case "system":
		return decodeSystem(line, raw)
	case "assistant":
		return decodeAssistant(line, raw, logger)
	case "result":
		return decodeResult(line, raw)
	default:
		logger.Debug("unrecognized claude CLI event", "type", typ)
		return claudebridge.Event{Kind: claudebridge.EventUnknown, Raw: raw}
	}
}

func decodeSystem(line []byte, raw json.RawMessage) claudebridge.Event {
	return claudebridge.Event{
		Kind: claudebridge.EventSystem,
		Session: &claudebridge.SessionMeta{
			SessionID: gjson.GetBytes(line, "session_id").Str,
			Cwd:       gjson.GetBytes(line, "cwd").Str,
			Model:     gjson.GetBytes(line, "model").Str,
		},
		Raw: raw,
	}
}

// decodeAssistant unpacks the embedded Anthropic message. The SDK type
// handles the current block schema; older nested shapes fall back to a
// tolerant probe of message.content.
func decodeAssistant(line []byte, raw json.RawMessage, logger *slog.Logger) claudebridge.Event {
	body := gjson.GetBytes(line, "message")
	if !body.Exists() {
		logger.Warn("assistant event missing message body")
		return claudebridge.Event{Kind: claudebridge.EventUnknown, Raw: raw}
	}

	var msg anthropic.Message
	if err := json.Unmarshal([]byte(body.Raw), &msg); err == nil && len(msg.Content) > 0 {
		blocks := make([]claudebridge.ContentBlock, 0, len(msg.Content))
		for _, content := range msg.Content {
			switch content.Type {
			case "text":
				blocks = append(blocks, claudebridge.ContentBlock{
					Type: claudebridge.BlockTypeText,
					Text: content.Text,
				})
			case "thinking":
				blocks = append(blocks, claudebridge.ContentBlock{
					Type: claudebridge.BlockTypeThinking,
					Text: content.Thinking,
				})
			case "tool_use":
				blocks = append(blocks, claudebridge.ContentBlock{
					Type:     claudebridge.BlockTypeToolUse,
					ToolName: content.Name,
				})
			}
		}
		return claudebridge.Event{Kind: claudebridge.EventAssistant, Blocks: blocks, Raw: raw}
	}

	return decodeLegacyAssistant(body, raw, logger)
}

// decodeLegacyAssistant handles the pre-SDK message.content shape: either a
// bare string or a list of loosely typed blocks.
func decodeLegacyAssistant(body gjson.Result, raw json.RawMessage, logger *slog.Logger) claudebridge.Event {
	content := body.Get("content")
	legacy := &claudebridge.LegacyContent{}

	switch {
	case content.Type == gjson.String:
		legacy.Text = content.Str
	case content.IsArray():
		for _, block := range content.Array() {
			legacy.Blocks = append(legacy.Blocks, claudebridge.ContentBlock{
				Type:     block.Get("type").Str,
				Text:     block.Get("text").Str,
				ToolName: block.Get("name").Str,
			})
		}
	default:
		logger.Warn("assistant message content has unrecognized shape")
		return claudebridge.Event{Kind: claudebridge.EventUnknown, Raw: raw}
	}

	return claudebridge.Event{Kind: claudebridge.EventAssistant, Legacy: legacy, Raw: raw}
}

func decodeResult(line []byte, raw json.RawMessage) claudebridge.Event {
	session := &claudebridge.SessionMeta{
		SessionID: gjson.GetBytes(line, "session_id").Str,
		Model:     gjson.GetBytes(line, "model").Str,
	}

	if gjson.GetBytes(line, "subtype").Str == "success" {
		return claudebridge.Event{
			Kind:    claudebridge.EventResultSuccess,
			Result:  gjson.GetBytes(line, "result").Str,
			Session: session,
			Raw:     raw,
		}
	}

	message := gjson.GetBytes(line, "error").Str
	if message == "" {
		message = gjson.GetBytes(line, "result").Str
	}
	if message == "" {
		message = "error during execution"
	}
	return claudebridge.Event{
		Kind:         claudebridge.EventResultError,
		ErrorMessage: message,
		Session:      session,
		Raw:          raw,
	}
}
