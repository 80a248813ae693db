package localapi

import (
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/EdanStarfire/claudecode-webui-sub000/internal/protocol"
	"github.com/EdanStarfire/claudecode-webui-sub000/internal/reconcile"
)

const maxMessageBytes = 8 << 20

func (s *Server) registerSessionRoutes() {
	s.mux.HandleFunc("/api/v1/sessions", s.handleSessions)
	s.mux.HandleFunc("/api/v1/sessions/", s.handleSessionByID)
}

type sessionPayload struct {
	SessionID    string `json:"session_id"`
	Loaded       bool   `json:"loaded"`
	MessageCount int64  `json:"message_count"`
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	byID := map[string]*sessionPayload{}
	for _, id := range s.deps.Registry.Sessions() {
		byID[id] = &sessionPayload{SessionID: id, Loaded: true}
	}
	if s.deps.History != nil {
		infos, err := s.deps.History.Sessions()
		if err != nil {
			respondError(w, http.StatusInternalServerError, "SESSIONS_LIST_FAILED", err.Error())
			return
		}
		for _, info := range infos {
			p, ok := byID[info.SessionID]
			if !ok {
				p = &sessionPayload{SessionID: info.SessionID}
				byID[info.SessionID] = p
			}
			p.MessageCount = info.MessageCount
		}
	}
	out := make([]sessionPayload, 0, len(byID))
	for _, p := range byID {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	respondOK(w, out)
}

func (s *Server) handleSessionByID(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/sessions/"), "/"), "/")
	sessionID := strings.TrimSpace(parts[0])
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "INVALID_SESSION_ID", "session id is required")
		return
	}

	switch {
	case len(parts) == 1:
		s.handleSessionRoot(w, r, sessionID)
	case len(parts) == 2 && parts[1] == "messages":
		s.handleSessionMessages(w, r, sessionID)
	case len(parts) == 2 && parts[1] == "replay":
		s.handleSessionReplay(w, r, sessionID)
	case len(parts) == 2 && parts[1] == "tool-calls":
		s.handleToolCalls(w, r, sessionID)
	case len(parts) == 3 && parts[1] == "tool-calls":
		s.handleToolCallByID(w, r, sessionID, parts[2])
	case len(parts) == 2 && parts[1] == "tasks":
		s.handleTasks(w, r, sessionID)
	case len(parts) == 3 && parts[1] == "tasks" && parts[2] == "rebuild":
		s.handleTasksRebuild(w, r, sessionID)
	default:
		respondError(w, http.StatusNotFound, "NOT_FOUND", "route not found")
	}
}

func (s *Server) handleSessionRoot(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodDelete {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	discarded := s.deps.Registry.Discard(sessionID)
	purged := false
	if r.URL.Query().Get("purge") == "1" {
		if s.deps.History == nil {
			respondError(w, http.StatusConflict, "HISTORY_DISABLED", ErrHistoryDisabled.Error())
			return
		}
		if err := s.deps.History.Clear(sessionID); err != nil {
			respondError(w, http.StatusInternalServerError, "HISTORY_CLEAR_FAILED", err.Error())
			return
		}
		purged = true
	}
	s.publish(protocol.OpSessionReset, sessionID, map[string]any{"discarded": true})
	respondOK(w, map[string]any{"session_id": sessionID, "discarded": discarded, "purged": purged})
}

func (s *Server) handleSessionMessages(w http.ResponseWriter, r *http.Request, sessionID string) {
	switch r.Method {
	case http.MethodGet:
		var msgs []protocol.BackendMessage
		if !s.deps.Registry.View(sessionID, func(rec *reconcile.SessionReconciler) {
			msgs = rec.Messages()
		}) {
			respondSessionNotFound(w, sessionID)
			return
		}
		respondOK(w, msgs)
	case http.MethodPost:
		raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxMessageBytes))
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_MESSAGE", err.Error())
			return
		}
		res, err := s.Ingest(r.Context(), sessionID, raw)
		if err != nil {
			if errors.Is(err, ErrInvalidMessage) {
				respondError(w, http.StatusBadRequest, "INVALID_MESSAGE", err.Error())
				return
			}
			respondError(w, http.StatusInternalServerError, "INGEST_FAILED", err.Error())
			return
		}
		respondOK(w, res)
	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	}
}

func (s *Server) handleSessionReplay(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	n, err := s.Replay(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, ErrHistoryDisabled) {
			respondError(w, http.StatusConflict, "HISTORY_DISABLED", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "REPLAY_FAILED", err.Error())
		return
	}
	respondOK(w, map[string]any{"session_id": sessionID, "replayed": n})
}

func (s *Server) handleToolCalls(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	var views []toolCallView
	if !s.deps.Registry.View(sessionID, func(rec *reconcile.SessionReconciler) {
		calls := rec.ToolCalls()
		views = make([]toolCallView, 0, len(calls))
		for _, tc := range calls {
			views = append(views, s.toolCallView(tc))
		}
	}) {
		respondSessionNotFound(w, sessionID)
		return
	}
	respondOK(w, views)
}

func (s *Server) handleToolCallByID(w http.ResponseWriter, r *http.Request, sessionID, toolUseID string) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	var (
		view  toolCallView
		found bool
	)
	if !s.deps.Registry.View(sessionID, func(rec *reconcile.SessionReconciler) {
		tc, ok := rec.ToolCall(toolUseID)
		if ok {
			view, found = s.toolCallView(tc), true
		}
	}) {
		respondSessionNotFound(w, sessionID)
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, "TOOL_CALL_NOT_FOUND", "tool call not found: "+toolUseID)
		return
	}
	respondOK(w, view)
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	var payload map[string]any
	if !s.deps.Registry.View(sessionID, func(rec *reconcile.SessionReconciler) {
		payload = s.tasksPayload(rec)
	}) {
		respondSessionNotFound(w, sessionID)
		return
	}
	respondOK(w, payload)
}

// handleTasksRebuild reconstructs only the task list from the journal.
func (s *Server) handleTasksRebuild(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	if s.deps.History == nil {
		respondError(w, http.StatusConflict, "HISTORY_DISABLED", ErrHistoryDisabled.Error())
		return
	}
	msgs, err := s.deps.History.Messages(sessionID, s.deps.HistoryReplayLimit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "HISTORY_READ_FAILED", err.Error())
		return
	}
	var payload map[string]any
	if err := s.deps.Registry.Do(sessionID, func(rec *reconcile.SessionReconciler) {
		rec.RebuildTasks(msgs)
		payload = s.tasksPayload(rec)
	}); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_SESSION_ID", err.Error())
		return
	}
	s.publish(protocol.OpTaskUpdated, sessionID, payload)
	respondOK(w, payload)
}

func respondSessionNotFound(w http.ResponseWriter, sessionID string) {
	respondError(w, http.StatusNotFound, "SESSION_NOT_FOUND", "session not found: "+sessionID)
}
