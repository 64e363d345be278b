package claudebridge

import (
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"
)

// ExtractText returns the client-visible text carried by ev, or ok=false
// when the event has none. Absence of text is not an error: tool_use,
// system-init and bare success markers legitimately carry nothing.
//
// Shapes are tried in order, mirroring the formats the backend has emitted
// historically:
//  1. current format: typed content block list (text blocks concatenated)
//  2. legacy format: nested message.content, block list or bare string
//  3. result format: the result field of a result_success event
//  4. raw probe: gjson lookup on the undecoded wire bytes, for events the
//     decoder classified as unknown but which still carry recognizable text
//
// Unknown shapes with no recoverable text are logged as format anomalies
// and resolve to ok=false. This function never fails.
func ExtractText(ev Event) (string, bool) {
	// Current format: typed block list
	if len(ev.Blocks) > 0 {
		var sb strings.Builder
		for _, block := range ev.Blocks {
			if block.Type == BlockTypeText && block.Text != "" {
				sb.WriteString(block.Text)
			}
		}
		if sb.Len() > 0 {
			return sb.String(), true
		}
	}

	// Legacy format: nested message.content
	if ev.Legacy != nil {
		if len(ev.Legacy.Blocks) > 0 {
			var sb strings.Builder
			for _, block := range ev.Legacy.Blocks {
				if block.Type == BlockTypeText && block.Text != "" {
					sb.WriteString(block.Text)
				}
			}
			if sb.Len() > 0 {
				return sb.String(), true
			}
		}
		if ev.Legacy.Text != "" {
			return ev.Legacy.Text, true
		}
	}

	// Result format: final answer on the success marker
	if ev.Kind == EventResultSuccess && ev.Result != "" {
		return ev.Result, true
	}

	// Raw probe: the decoder gave up on the shape but the wire bytes may
	// still carry text under a known path.
	if ev.Kind == EventUnknown && len(ev.Raw) > 0 {
		if text := probeRawText(ev.Raw); text != "" {
			return text, true
		}
		slog.Warn("unrecognized upstream event shape, treating as empty",
			"raw_type", gjson.GetBytes(ev.Raw, "type").String(),
			"raw_subtype", gjson.GetBytes(ev.Raw, "subtype").String(),
		)
	}

	return "", false
}

// probeRawText digs through raw wire bytes for text the typed decoder
// missed. Paths tried, in order: message.content (block list or string),
// content (block list or string), result.
func probeRawText(raw []byte) string {
	for _, path := range []string{"message.content", "content"} {
		value := gjson.GetBytes(raw, path)
		switch {
		case value.IsArray():
			var sb strings.Builder
			value.ForEach(func(_, block gjson.Result) bool {
				if block.Get("type").String() == BlockTypeText {
					sb.WriteString(block.Get("text").String())
				}
				return true
			})
			if sb.Len() > 0 {
				return sb.String()
			}
		case value.Type == gjson.String:
			if s := value.String(); s != "" {
				return s
			}
		}
	}

	if result := gjson.GetBytes(raw, "result"); result.Type == gjson.String {
		return result.String()
	}
	return ""
}
