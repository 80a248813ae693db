// Package toolcall rebuilds tool-call cards from the backend event stream.
//
// A Manager is single-writer: callers serialize access per session. Every
// handler tolerates partial or malformed events by logging and reporting
// ok=false instead of mutating the collection.
package toolcall

import (
	"log/slog"
	"strings"
	"time"

	"github.com/EdanStarfire/claudecode-webui-sub000/internal/correlation"
)

type Options struct {
	Logger   *slog.Logger
	Strategy correlation.Strategy
	// ModelSuggestions keeps permission suggestions and applied updates on the record.
	ModelSuggestions bool
	Now              func() time.Time
}

type Manager struct {
	logger           *slog.Logger
	strategy         correlation.Strategy
	modelSuggestions bool
	now              func() time.Time

	calls map[string]*ToolCall
	order []string
	// request_id -> tool-use id; responses resolve through this, never through signatures.
	permissions map[string]string
}

func NewManager(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	strategy := opts.Strategy
	if strategy == nil {
		strategy = correlation.NewSignatureStrategy(logger)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		logger:           logger.With("module", "toolcall"),
		strategy:         strategy,
		modelSuggestions: opts.ModelSuggestions,
		now:              now,
		calls:            map[string]*ToolCall{},
		order:            []string{},
		permissions:      map[string]string{},
	}
}

func (m *Manager) HandleToolUse(evt ToolUseEvent) (ToolCall, bool) {
	id := strings.TrimSpace(evt.ID)
	if id == "" {
		m.logger.Warn("tool use without id dropped", "tool", evt.Name)
		return ToolCall{}, false
	}
	if existing, ok := m.calls[id]; ok {
		m.logger.Debug("duplicate tool use ignored", "tool_use_id", id)
		return existing.Clone(), true
	}

	sig := m.signature(evt.Name, evt.Input)
	m.strategy.ObserveToolUse(correlation.ToolUse{ID: id, Name: evt.Name, Input: evt.Input, Signature: sig})

	tc := &ToolCall{
		ID:         id,
		Name:       evt.Name,
		Input:      cloneMap(evt.Input),
		Signature:  sig,
		Status:     StatusPending,
		Timestamp:  m.timestamp(evt.Timestamp),
		IsExpanded: !evt.Replayed,
	}
	m.store(tc)
	return tc.Clone(), true
}

func (m *Manager) HandlePermissionRequest(evt PermissionRequestEvent) (ToolCall, bool) {
	requestID := strings.TrimSpace(evt.RequestID)
	if requestID == "" {
		m.logger.Warn("permission request without request_id dropped", "tool", evt.ToolName)
		return ToolCall{}, false
	}
	if id, seen := m.permissions[requestID]; seen {
		if tc, ok := m.calls[id]; ok {
			return tc.Clone(), true
		}
	}

	req := correlation.PermissionRequest{
		RequestID: requestID,
		ToolName:  evt.ToolName,
		Input:     evt.Input,
		ToolUseID: evt.ToolUseID,
		Signature: m.signature(evt.ToolName, evt.Input),
	}

	var tc *ToolCall
	if id, ok := m.strategy.Resolve(req); ok {
		tc = m.calls[id]
	}
	if tc != nil {
		if !tc.IsDone() {
			tc.Status = StatusPermissionRequired
		}
		tc.PermissionRequestID = requestID
	} else {
		tc = &ToolCall{
			ID:                  HistoricalIDPrefix + requestID,
			Name:                evt.ToolName,
			Input:               cloneMap(evt.Input),
			Signature:           req.Signature,
			Status:              StatusPermissionRequired,
			PermissionRequestID: requestID,
			Timestamp:           m.timestamp(evt.Timestamp),
			IsExpanded:          false,
			IsHistorical:        true,
		}
		m.store(tc)
		m.strategy.Bind(req, tc.ID)
	}
	if m.modelSuggestions && len(evt.Suggestions) > 0 {
		tc.Suggestions = cloneRawList(evt.Suggestions)
	}
	m.permissions[requestID] = tc.ID
	return tc.Clone(), true
}

func (m *Manager) HandlePermissionResponse(evt PermissionResponseEvent) (ToolCall, bool) {
	requestID := strings.TrimSpace(evt.RequestID)
	if requestID == "" {
		m.logger.Warn("permission response without request_id dropped")
		return ToolCall{}, false
	}
	id, ok := m.permissions[requestID]
	if !ok {
		m.logger.Debug("permission response for unknown request", "request_id", requestID)
		return ToolCall{}, false
	}
	tc, ok := m.calls[id]
	if !ok {
		return ToolCall{}, false
	}

	switch Decision(strings.ToLower(strings.TrimSpace(evt.Decision))) {
	case DecisionAllow:
		tc.PermissionDecision = DecisionAllow
		if !tc.IsDone() {
			tc.Status = StatusExecuting
		}
	case DecisionDeny:
		tc.PermissionDecision = DecisionDeny
		tc.Status = StatusCompleted
		tc.Result = &Result{Error: true, Message: evt.Reasoning}
		tc.IsExpanded = false
	default:
		m.logger.Warn("permission response with unknown decision dropped", "request_id", requestID, "decision", evt.Decision)
		return ToolCall{}, false
	}
	if m.modelSuggestions && len(evt.AppliedUpdates) > 0 {
		tc.AppliedUpdates = cloneRawList(evt.AppliedUpdates)
	}
	return tc.Clone(), true
}

func (m *Manager) HandleToolResult(evt ToolResultEvent) (ToolCall, bool) {
	id := strings.TrimSpace(evt.ToolUseID)
	if id == "" {
		m.logger.Warn("tool result without tool_use_id dropped")
		return ToolCall{}, false
	}
	tc, ok := m.calls[id]
	if !ok {
		m.logger.Debug("tool result for unknown tool use", "tool_use_id", id)
		return ToolCall{}, false
	}
	if evt.IsError {
		tc.Status = StatusError
	} else {
		tc.Status = StatusCompleted
	}
	tc.Result = &Result{Error: evt.IsError, Content: evt.Content}
	tc.IsExpanded = false
	return tc.Clone(), true
}

// SetExplanation attaches free-text rationale to an existing tool call.
func (m *Manager) SetExplanation(toolUseID, text string) (ToolCall, bool) {
	tc, ok := m.calls[strings.TrimSpace(toolUseID)]
	if !ok {
		return ToolCall{}, false
	}
	tc.Explanation = strings.TrimSpace(text)
	return tc.Clone(), true
}

func (m *Manager) Get(id string) (ToolCall, bool) {
	tc, ok := m.calls[id]
	if !ok {
		return ToolCall{}, false
	}
	return tc.Clone(), true
}

// List returns every tool call in creation order.
func (m *Manager) List() []ToolCall {
	out := make([]ToolCall, 0, len(m.order))
	for _, id := range m.order {
		if tc, ok := m.calls[id]; ok {
			out = append(out, tc.Clone())
		}
	}
	return out
}

func (m *Manager) Len() int {
	return len(m.order)
}

func (m *Manager) Reset() {
	m.calls = map[string]*ToolCall{}
	m.order = []string{}
	m.permissions = map[string]string{}
	m.strategy.Reset()
}

func (m *Manager) store(tc *ToolCall) {
	m.calls[tc.ID] = tc
	m.order = append(m.order, tc.ID)
}

func (m *Manager) signature(name string, input map[string]any) string {
	sig, err := correlation.ToolSignature(name, input)
	if err != nil {
		m.logger.Warn("tool signature degraded", "err", err, "signature", sig)
	}
	return sig
}

func (m *Manager) timestamp(ts time.Time) time.Time {
	if ts.IsZero() {
		return m.now().UTC()
	}
	return ts.UTC()
}
