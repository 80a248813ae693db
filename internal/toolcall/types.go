package toolcall

import (
	"encoding/json"
	"time"
)

type Status string

const (
	StatusPending            Status = "pending"
	StatusPermissionRequired Status = "permission_required"
	StatusExecuting          Status = "executing"
	StatusCompleted          Status = "completed"
	StatusError              Status = "error"
)

type Decision string

const (
	DecisionAllow Decision = "allow"
	DecisionDeny  Decision = "deny"
)

// HistoricalIDPrefix marks tool calls synthesized from a permission request
// whose tool-use event was never observed.
const HistoricalIDPrefix = "historical_"

type Result struct {
	Error   bool   `json:"error"`
	Content string `json:"content,omitempty"`
	Message string `json:"message,omitempty"`
}

type ToolCall struct {
	ID                  string            `json:"id"`
	Name                string            `json:"name"`
	Input               map[string]any    `json:"input"`
	Signature           string            `json:"signature"`
	Status              Status            `json:"status"`
	PermissionRequestID string            `json:"permission_request_id,omitempty"`
	PermissionDecision  Decision          `json:"permission_decision,omitempty"`
	Result              *Result           `json:"result,omitempty"`
	Explanation         string            `json:"explanation,omitempty"`
	Suggestions         []json.RawMessage `json:"suggestions,omitempty"`
	AppliedUpdates      []json.RawMessage `json:"applied_updates,omitempty"`
	Timestamp           time.Time         `json:"timestamp"`
	IsExpanded          bool              `json:"is_expanded"`
	IsHistorical        bool              `json:"is_historical"`
}

func (tc ToolCall) IsDone() bool {
	return tc.Status == StatusCompleted || tc.Status == StatusError
}

// Clone returns a copy that shares no mutable state with tc.
func (tc ToolCall) Clone() ToolCall {
	out := tc
	out.Input = cloneMap(tc.Input)
	if tc.Result != nil {
		r := *tc.Result
		out.Result = &r
	}
	out.Suggestions = cloneRawList(tc.Suggestions)
	out.AppliedUpdates = cloneRawList(tc.AppliedUpdates)
	return out
}

type ToolUseEvent struct {
	ID        string
	Name      string
	Input     map[string]any
	Timestamp time.Time
	// Replayed marks records fed from history; they start collapsed.
	Replayed bool
}

type PermissionRequestEvent struct {
	RequestID   string
	ToolName    string
	Input       map[string]any
	Suggestions []json.RawMessage
	ToolUseID   string
	Timestamp   time.Time
}

type PermissionResponseEvent struct {
	RequestID      string
	Decision       string
	Reasoning      string
	AppliedUpdates []json.RawMessage
}

type ToolResultEvent struct {
	ToolUseID string
	Content   string
	IsError   bool
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

func cloneRawList(in []json.RawMessage) []json.RawMessage {
	if in == nil {
		return nil
	}
	out := make([]json.RawMessage, len(in))
	for i, raw := range in {
		out[i] = append(json.RawMessage(nil), raw...)
	}
	return out
}
