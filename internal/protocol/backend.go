package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"time"
)

const (
	TypeSystem             = "system"
	TypeAssistant          = "assistant"
	TypeUser               = "user"
	TypeResult             = "result"
	TypePermissionRequest  = "permission_request"
	TypePermissionResponse = "permission_response"
)

const (
	SubtypeInit      = "init"
	SubtypeInterrupt = "interrupt"
)

var ErrMissingType = errors.New("message type is required")

// BackendMessage is one record of the backend event stream, live or from history.
type BackendMessage struct {
	ID        string          `json:"id,omitempty"`
	Type      string          `json:"type"`
	Subtype   string          `json:"subtype,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
	Metadata  MessageMetadata `json:"metadata"`
}

type MessageMetadata struct {
	Subtype                string            `json:"subtype,omitempty"`
	HasToolUses            bool              `json:"has_tool_uses,omitempty"`
	ToolUses               []ToolUseBlock    `json:"tool_uses,omitempty"`
	HasToolResults         bool              `json:"has_tool_results,omitempty"`
	ToolResults            []ToolResultBlock `json:"tool_results,omitempty"`
	ThinkingBlocks         []ThinkingBlock   `json:"thinking_blocks,omitempty"`
	IsLocalCommandResponse bool              `json:"is_local_command_response,omitempty"`

	// permission_request
	RequestID   string            `json:"request_id,omitempty"`
	ToolName    string            `json:"tool_name,omitempty"`
	InputParams json.RawMessage   `json:"input_params,omitempty"`
	Suggestions []json.RawMessage `json:"suggestions,omitempty"`
	ToolUseID   string            `json:"tool_use_id,omitempty"`

	// permission_response
	Decision       string            `json:"decision,omitempty"`
	Reasoning      string            `json:"reasoning,omitempty"`
	AppliedUpdates []json.RawMessage `json:"applied_updates,omitempty"`
}

type ToolUseBlock struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input,omitempty"`
}

type ToolResultBlock struct {
	ToolUseID string          `json:"tool_use_id"`
	Content   json.RawMessage `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

type ThinkingBlock struct {
	Content   string          `json:"content"`
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
}

func DecodeBackendMessage(raw []byte) (BackendMessage, error) {
	var msg BackendMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return BackendMessage{}, err
	}
	msg.Type = strings.TrimSpace(msg.Type)
	if msg.Type == "" {
		return BackendMessage{}, ErrMissingType
	}
	return msg, nil
}

// EffectiveSubtype prefers the top-level subtype and falls back to metadata.subtype.
func (m BackendMessage) EffectiveSubtype() string {
	if s := strings.TrimSpace(m.Subtype); s != "" {
		return s
	}
	return strings.TrimSpace(m.Metadata.Subtype)
}

func (m BackendMessage) HasToolUses() bool {
	return m.Metadata.HasToolUses || len(m.Metadata.ToolUses) > 0
}

func (m BackendMessage) HasToolResults() bool {
	return m.Metadata.HasToolResults || len(m.Metadata.ToolResults) > 0
}

func (m BackendMessage) ContentText() string {
	return flattenText(m.Content)
}

// Time parses the timestamp as unix seconds (possibly fractional) or RFC 3339.
// The zero time is returned when the field is absent or unparsable.
func (m BackendMessage) Time() time.Time {
	return parseTimestamp(m.Timestamp)
}

// InputMap decodes the tool-use input. ok is false when the input is absent or not an object.
func (b ToolUseBlock) InputMap() (map[string]any, bool) {
	return decodeObject(b.Input)
}

func (b ToolResultBlock) Text() string {
	return flattenText(b.Content)
}

// InputParamsMap decodes permission_request.input_params.
func (md MessageMetadata) InputParamsMap() (map[string]any, bool) {
	return decodeObject(md.InputParams)
}

func decodeObject(raw json.RawMessage) (map[string]any, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false
	}
	return out, true
}

// flattenText accepts a JSON string, an array of {type,text} blocks or strings,
// or any other value, which is returned as compact JSON. Typed blocks other
// than text are skipped.
func flattenText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err == nil {
			parts := make([]string, 0, len(items))
			for _, item := range items {
				if text := blockText(item); text != "" {
					parts = append(parts, text)
				}
			}
			return strings.Join(parts, "\n")
		}
	}
	return string(raw)
}

func blockText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	if raw[0] == '"' {
		var s string
		_ = json.Unmarshal(raw, &s)
		return s
	}
	var block struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &block); err != nil {
		return string(raw)
	}
	switch strings.TrimSpace(block.Type) {
	case "text":
		return block.Text
	case "":
		if block.Text != "" {
			return block.Text
		}
		return string(raw)
	default:
		// tool_use, image and other typed blocks carry no display text
		return ""
	}
}

func parseTimestamp(raw json.RawMessage) time.Time {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}
		}
		ts, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
		if err != nil {
			return time.Time{}
		}
		return ts.UTC()
	}
	var secs float64
	if err := json.Unmarshal(raw, &secs); err != nil || secs <= 0 {
		return time.Time{}
	}
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(frac*float64(time.Second))).UTC()
}
