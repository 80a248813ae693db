package localapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/EdanStarfire/claudecode-webui-sub000/internal/historydb"
	"github.com/EdanStarfire/claudecode-webui-sub000/internal/protocol"
	"github.com/EdanStarfire/claudecode-webui-sub000/internal/reconcile"
	"github.com/EdanStarfire/claudecode-webui-sub000/internal/toolcall"
)

var (
	ErrInvalidMessage  = errors.New("invalid backend message")
	ErrHistoryDisabled = errors.New("message history is disabled")
)

type History interface {
	Append(sessionID string, raw []byte) (historydb.Entry, bool, error)
	Messages(sessionID string, limit int) ([]protocol.BackendMessage, error)
	Sessions() ([]historydb.SessionInfo, error)
	Clear(sessionID string) error
}

type Deps struct {
	Registry *reconcile.Registry
	// History journals ingested messages; nil keeps everything in memory only.
	History    History
	Describers *toolcall.Registry
	Logger     *slog.Logger
	// PreviewValueMax bounds parameter values in summaries.
	PreviewValueMax int
	// HistoryReplayLimit caps journaled messages read per replay; 0 reads all.
	HistoryReplayLimit int
}

type Server struct {
	deps   Deps
	logger *slog.Logger
	mux    *http.ServeMux
	hub    *WSHub
}

func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Describers == nil {
		deps.Describers = toolcall.NewBuiltinRegistry()
	}
	if deps.PreviewValueMax <= 0 {
		deps.PreviewValueMax = toolcall.DefaultPreviewValueMax
	}
	logger := deps.Logger.With("module", "localapi")
	s := &Server{deps: deps, logger: logger, mux: http.NewServeMux(), hub: NewWSHub(logger)}
	s.registerSessionRoutes()
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/ws", s.hub.HandleWS)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

type IngestResult struct {
	MessageID string `json:"message_id,omitempty"`
	Duplicate bool   `json:"duplicate"`
	ToolCalls int    `json:"tool_calls"`
	Displayed bool   `json:"displayed"`
}

// Ingest journals one live backend message, applies it to the session and
// publishes what changed. A message already in the journal is not applied again.
func (s *Server) Ingest(_ context.Context, sessionID string, raw []byte) (IngestResult, error) {
	msg, err := protocol.DecodeBackendMessage(raw)
	if err != nil {
		return IngestResult{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	var res IngestResult
	if s.deps.History != nil {
		entry, inserted, err := s.deps.History.Append(sessionID, raw)
		if err != nil {
			return IngestResult{}, err
		}
		res.MessageID = entry.MessageID
		if !inserted {
			res.Duplicate = true
			s.logger.Debug("duplicate message skipped", "session_id", sessionID, "message_id", entry.MessageID)
			return res, nil
		}
	}

	var ch reconcile.Changes
	var tasksView map[string]any
	if err := s.deps.Registry.Do(sessionID, func(r *reconcile.SessionReconciler) {
		ch = r.Apply(msg, reconcile.ModeLive)
		if ch.TasksChanged {
			tasksView = s.tasksPayload(r)
		}
	}); err != nil {
		return IngestResult{}, err
	}

	for _, tc := range ch.ToolCalls {
		s.publish(protocol.OpToolCallUpdated, sessionID, map[string]any{"tool_call": s.toolCallView(tc)})
	}
	if tasksView != nil {
		s.publish(protocol.OpTaskUpdated, sessionID, tasksView)
	}
	if ch.Displayed {
		s.publish(protocol.OpMessageAppended, sessionID, map[string]any{"message": msg})
	}
	res.ToolCalls = len(ch.ToolCalls)
	res.Displayed = ch.Displayed
	return res, nil
}

// Replay rebuilds the session from its journal in historical mode.
func (s *Server) Replay(_ context.Context, sessionID string) (int, error) {
	if s.deps.History == nil {
		return 0, ErrHistoryDisabled
	}
	msgs, err := s.deps.History.Messages(sessionID, s.deps.HistoryReplayLimit)
	if err != nil {
		return 0, err
	}
	if err := s.deps.Registry.Do(sessionID, func(r *reconcile.SessionReconciler) {
		r.Replay(msgs)
	}); err != nil {
		return 0, err
	}
	s.publish(protocol.OpSessionReset, sessionID, map[string]any{"replayed": len(msgs)})
	return len(msgs), nil
}

type toolCallView struct {
	toolcall.ToolCall
	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
}

func (s *Server) toolCallView(tc toolcall.ToolCall) toolCallView {
	return toolCallView{
		ToolCall:    tc,
		Summary:     s.deps.Describers.Summarize(tc, s.deps.PreviewValueMax),
		Description: s.deps.Describers.Describe(tc),
	}
}

func (s *Server) tasksPayload(r *reconcile.SessionReconciler) map[string]any {
	payload := map[string]any{
		"tasks":     r.Tasks(),
		"stats":     r.TaskStats(),
		"has_tasks": r.HasTasks(),
		"active":    nil,
	}
	if active, ok := r.ActiveTask(); ok {
		payload["active"] = active
	}
	return payload
}

func (s *Server) publish(op, sessionID string, payload map[string]any) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(op, sessionID, payload)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondOK(w, map[string]any{"status": "ok"})
}

func respondOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "data": data})
}

func respondError(w http.ResponseWriter, code int, errCode string, msg string) {
	writeJSON(w, code, map[string]any{"ok": false, "error": map[string]any{"code": errCode, "message": msg}})
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
