package tasks

import (
	"strconv"
	"strings"

	"github.com/EdanStarfire/claudecode-webui-sub000/internal/protocol"
)

// ReconstructFromMessages rebuilds the session's tasks from scratch by
// scanning msgs in order through the same path live messages take.
func (s *Store) ReconstructFromMessages(sessionID string, msgs []protocol.BackendMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := newSessionTasks()
	s.sessions[sessionID] = st
	for _, msg := range msgs {
		s.observeMessageLocked(st, sessionID, msg)
	}
}

// ObserveMessage feeds one message's task-tool invocations and results.
func (s *Store) ObserveMessage(sessionID string, msg protocol.BackendMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[sessionID]
	if !ok {
		st = newSessionTasks()
		s.sessions[sessionID] = st
	}
	s.observeMessageLocked(st, sessionID, msg)
}

func (s *Store) observeMessageLocked(st *sessionTasks, sessionID string, msg protocol.BackendMessage) {
	for _, use := range msg.Metadata.ToolUses {
		if !IsTaskTool(use.Name) {
			continue
		}
		id := strings.TrimSpace(use.ID)
		if id == "" {
			s.logger.Warn("task tool use without id dropped", "session_id", sessionID, "tool", use.Name)
			continue
		}
		input, _ := use.InputMap()
		st.pending[id] = Invocation{Name: use.Name, Input: input}
	}
	for _, res := range msg.Metadata.ToolResults {
		id := strings.TrimSpace(res.ToolUseID)
		inv, ok := st.pending[id]
		if !ok {
			continue
		}
		delete(st.pending, id)
		s.applyResultLocked(st, sessionID, inv, res.Text(), res.IsError)
	}
}

func (s *Store) applyResultLocked(st *sessionTasks, sessionID string, inv Invocation, content string, isError bool) {
	if isError {
		s.logger.Debug("task tool failed, state unchanged", "session_id", sessionID, "tool", inv.Name)
		return
	}
	switch inv.Name {
	case ToolTaskCreate:
		id := explicitTaskID(inv.Input)
		if id == "" {
			extracted, ok := ExtractTaskID(content)
			if !ok {
				s.logger.Warn("task create result without recognizable id", "session_id", sessionID)
				return
			}
			id = extracted
		}
		s.createLocked(st, s.taskFromInput(sessionID, id, inv.Input))
	case ToolTaskUpdate:
		id := explicitTaskID(inv.Input)
		if id == "" {
			s.logger.Warn("task update without task id", "session_id", sessionID)
			return
		}
		s.updateLocked(st, id, s.updateFromInput(sessionID, inv.Input))
	default:
		// TaskList and TaskGet are reads.
	}
}

func (s *Store) taskFromInput(sessionID, id string, input map[string]any) Task {
	t := Task{
		ID:          id,
		Subject:     stringValue(input, "subject"),
		Description: stringValue(input, "description"),
		ActiveForm:  stringValue(input, "activeForm"),
		Owner:       stringValue(input, "owner"),
		Blocks:      stringList(input, "blocks"),
		BlockedBy:   stringList(input, "blockedBy"),
		Metadata:    mapValue(input, "metadata"),
	}
	if raw, ok := input["status"].(string); ok {
		if status, valid := ParseStatus(raw); valid && status != StatusDeleted {
			t.Status = status
		} else {
			s.logger.Warn("task create with invalid status ignored", "session_id", sessionID, "status", raw)
		}
	}
	return t
}

func (s *Store) updateFromInput(sessionID string, input map[string]any) Update {
	upd := Update{
		Subject:      stringPtr(input, "subject"),
		Description:  stringPtr(input, "description"),
		ActiveForm:   stringPtr(input, "activeForm"),
		Owner:        stringPtr(input, "owner"),
		AddBlocks:    stringList(input, "addBlocks"),
		AddBlockedBy: stringList(input, "addBlockedBy"),
		Metadata:     mapValue(input, "metadata"),
	}
	if raw, ok := input["status"].(string); ok {
		if status, valid := ParseStatus(raw); valid {
			upd.Status = &status
		} else {
			s.logger.Warn("task update with invalid status ignored", "session_id", sessionID, "status", raw)
		}
	}
	return upd
}

func explicitTaskID(input map[string]any) string {
	for _, key := range []string{"taskId", "task_id", "id"} {
		switch v := input[key].(type) {
		case string:
			if id := strings.TrimSpace(v); id != "" {
				return id
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func stringValue(input map[string]any, key string) string {
	v, _ := input[key].(string)
	return v
}

func stringPtr(input map[string]any, key string) *string {
	v, ok := input[key].(string)
	if !ok {
		return nil
	}
	return &v
}

func stringList(input map[string]any, key string) []string {
	items, ok := input[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			out = append(out, v)
		case float64:
			out = append(out, strconv.FormatFloat(v, 'f', -1, 64))
		}
	}
	return out
}

func mapValue(input map[string]any, key string) map[string]any {
	v, _ := input[key].(map[string]any)
	return v
}
