package toolcall

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// DefaultPreviewValueMax is the rune length after which string parameter
// values are truncated in summaries.
const DefaultPreviewValueMax = 30

var statusGlyphs = map[Status]string{
	StatusPending:            "⏳",
	StatusPermissionRequired: "🔒",
	StatusExecuting:          "⚙",
	StatusCompleted:          "✓",
	StatusError:              "✗",
}

// Summary renders one status line: glyph, tool name, parameter preview, label.
func Summary(tc ToolCall, previewValueMax int) string {
	glyph := statusGlyphs[tc.Status]
	if glyph == "" {
		glyph = "•"
	}
	if isDenied(tc) {
		glyph = "⛔"
	}
	name := tc.Name
	if strings.TrimSpace(name) == "" {
		name = "unknown"
	}
	head := name
	if preview := ParamPreview(tc.Input, previewValueMax); preview != "" {
		head = name + "(" + preview + ")"
	}
	return fmt.Sprintf("%s %s - %s", glyph, head, StatusLabel(tc))
}

func StatusLabel(tc ToolCall) string {
	if isDenied(tc) {
		return "Denied"
	}
	switch tc.Status {
	case StatusPending:
		return "Pending"
	case StatusPermissionRequired:
		return "Awaiting Permission"
	case StatusExecuting:
		return "Executing"
	case StatusCompleted:
		return "Completed"
	case StatusError:
		return "Error"
	default:
		return string(tc.Status)
	}
}

// ParamPreview shows a single parameter inline, two or three as a comma list,
// and only a count beyond that.
func ParamPreview(input map[string]any, valueMax int) string {
	if len(input) == 0 {
		return ""
	}
	if len(input) > 3 {
		return fmt.Sprintf("%d params", len(input))
	}
	keys := make([]string, 0, len(input))
	for k := range input {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+previewValue(input[k], valueMax))
	}
	return strings.Join(parts, ", ")
}

func previewValue(v any, valueMax int) string {
	if valueMax <= 0 {
		valueMax = DefaultPreviewValueMax
	}
	if s, ok := v.(string); ok {
		return `"` + truncate(s, valueMax) + `"`
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "?"
	}
	return truncate(string(b), valueMax)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

func isDenied(tc ToolCall) bool {
	return tc.Status == StatusCompleted && tc.PermissionDecision == DecisionDeny
}
