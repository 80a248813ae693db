// Package reconcile projects a session's backend message stream onto tool-call
// cards, tasks and the list of displayable messages.
package reconcile

import (
	"log/slog"
	"strings"

	"github.com/EdanStarfire/claudecode-webui-sub000/internal/classify"
	"github.com/EdanStarfire/claudecode-webui-sub000/internal/correlation"
	"github.com/EdanStarfire/claudecode-webui-sub000/internal/protocol"
	"github.com/EdanStarfire/claudecode-webui-sub000/internal/tasks"
	"github.com/EdanStarfire/claudecode-webui-sub000/internal/toolcall"
)

type Mode int

const (
	ModeLive Mode = iota
	ModeHistorical
)

func (m Mode) String() string {
	if m == ModeHistorical {
		return "historical"
	}
	return "live"
}

// Changes lists what one Apply call touched.
type Changes struct {
	ToolCalls    []toolcall.ToolCall
	TasksChanged bool
	Displayed    bool
}

type SessionReconciler struct {
	id       string
	logger   *slog.Logger
	tools    *toolcall.Manager
	tasks    *tasks.Store
	messages []protocol.BackendMessage
}

func newSessionReconciler(id string, strategy correlation.Strategy, store *tasks.Store, opts Options) *SessionReconciler {
	logger := opts.Logger.With("session_id", id)
	store.EnsureSession(id)
	return &SessionReconciler{
		id:     id,
		logger: logger.With("module", "reconcile"),
		tools: toolcall.NewManager(toolcall.Options{
			Logger:           logger,
			Strategy:         strategy,
			ModelSuggestions: opts.ModelSuggestions,
			Now:              opts.Now,
		}),
		tasks:    store,
		messages: []protocol.BackendMessage{},
	}
}

func (r *SessionReconciler) ID() string {
	return r.id
}

// Apply runs one message through the pipeline shared by live delivery and
// history replay. A panic while processing is contained to this message.
func (r *SessionReconciler) Apply(msg protocol.BackendMessage, mode Mode) (ch Changes) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("message processing failed", "panic", rec, "type", msg.Type, "mode", mode.String())
			ch = Changes{}
		}
	}()

	replayed := mode == ModeHistorical
	ts := msg.Time()

	if len(msg.Metadata.ToolUses) > 0 {
		explanation := ""
		if msg.Type == protocol.TypeAssistant {
			explanation = strings.TrimSpace(msg.ContentText())
		}
		for _, use := range msg.Metadata.ToolUses {
			input, ok := use.InputMap()
			if !ok && len(use.Input) > 0 {
				r.logger.Warn("tool use input is not an object", "tool_use_id", use.ID, "tool", use.Name)
			}
			tc, ok := r.tools.HandleToolUse(toolcall.ToolUseEvent{
				ID:        use.ID,
				Name:      use.Name,
				Input:     input,
				Timestamp: ts,
				Replayed:  replayed,
			})
			if !ok {
				continue
			}
			if explanation != "" {
				tc, _ = r.tools.SetExplanation(tc.ID, explanation)
			}
			ch.ToolCalls = append(ch.ToolCalls, tc)
		}
	}

	switch msg.Type {
	case protocol.TypePermissionRequest:
		md := msg.Metadata
		input, _ := md.InputParamsMap()
		if tc, ok := r.tools.HandlePermissionRequest(toolcall.PermissionRequestEvent{
			RequestID:   md.RequestID,
			ToolName:    md.ToolName,
			Input:       input,
			Suggestions: md.Suggestions,
			ToolUseID:   md.ToolUseID,
			Timestamp:   ts,
		}); ok {
			ch.ToolCalls = append(ch.ToolCalls, tc)
		}
	case protocol.TypePermissionResponse:
		md := msg.Metadata
		if tc, ok := r.tools.HandlePermissionResponse(toolcall.PermissionResponseEvent{
			RequestID:      md.RequestID,
			Decision:       md.Decision,
			Reasoning:      md.Reasoning,
			AppliedUpdates: md.AppliedUpdates,
		}); ok {
			ch.ToolCalls = append(ch.ToolCalls, tc)
		}
	}

	for _, res := range msg.Metadata.ToolResults {
		if tc, ok := r.tools.HandleToolResult(toolcall.ToolResultEvent{
			ToolUseID: res.ToolUseID,
			Content:   res.Text(),
			IsError:   res.IsError,
		}); ok {
			ch.ToolCalls = append(ch.ToolCalls, tc)
		}
	}

	if len(msg.Metadata.ToolUses) > 0 || len(msg.Metadata.ToolResults) > 0 {
		r.tasks.ObserveMessage(r.id, msg)
		ch.TasksChanged = len(msg.Metadata.ToolResults) > 0
	}

	if classify.ShouldDisplayMessage(msg) {
		r.messages = append(r.messages, msg)
		ch.Displayed = true
	}
	return ch
}

// Replay discards all state and rebuilds it from msgs in historical mode.
func (r *SessionReconciler) Replay(msgs []protocol.BackendMessage) {
	r.reset()
	for _, msg := range msgs {
		r.Apply(msg, ModeHistorical)
	}
	r.logger.Info("session replayed", "messages", len(msgs), "tool_calls", r.tools.Len())
}

// RebuildTasks rebuilds only the task list from msgs, leaving tool calls alone.
func (r *SessionReconciler) RebuildTasks(msgs []protocol.BackendMessage) {
	r.tasks.ReconstructFromMessages(r.id, msgs)
}

func (r *SessionReconciler) reset() {
	r.tools.Reset()
	r.tasks.ClearSession(r.id)
	r.messages = []protocol.BackendMessage{}
}

func (r *SessionReconciler) ToolCall(id string) (toolcall.ToolCall, bool) {
	return r.tools.Get(id)
}

func (r *SessionReconciler) ToolCalls() []toolcall.ToolCall {
	return r.tools.List()
}

func (r *SessionReconciler) Tasks() []tasks.Task {
	return r.tasks.TasksForSession(r.id)
}

func (r *SessionReconciler) ActiveTask() (tasks.Task, bool) {
	return r.tasks.ActiveTask(r.id)
}

func (r *SessionReconciler) TaskStats() tasks.Stats {
	return r.tasks.Stats(r.id)
}

func (r *SessionReconciler) HasTasks() bool {
	return r.tasks.HasTasks(r.id)
}

// Messages returns the displayable messages in arrival order.
func (r *SessionReconciler) Messages() []protocol.BackendMessage {
	return append([]protocol.BackendMessage{}, r.messages...)
}
