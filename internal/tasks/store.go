// Package tasks rebuilds per-session task lists from task-tool invocations
// and their results.
package tasks

import (
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
)

type sessionTasks struct {
	tasks    map[string]*Task
	order    []string
	hasTasks bool
	// tool-use id -> invocation; each entry is consumed by at most one result
	pending map[string]Invocation
}

func newSessionTasks() *sessionTasks {
	return &sessionTasks{
		tasks:   map[string]*Task{},
		order:   []string{},
		pending: map[string]Invocation{},
	}
}

type Store struct {
	mu       sync.RWMutex
	logger   *slog.Logger
	sessions map[string]*sessionTasks
}

func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		logger:   logger.With("module", "tasks"),
		sessions: map[string]*sessionTasks{},
	}
}

// EnsureSession creates an empty collection for sessionID if none exists.
func (s *Store) EnsureSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		s.sessions[sessionID] = newSessionTasks()
	}
}

// ClearSession empties the session's collection and scratch state.
func (s *Store) ClearSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = newSessionTasks()
}

func (s *Store) DropSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// CreateTask upserts task. An existing task with the same id is replaced
// wholesale; use UpdateTask for partial changes.
func (s *Store) CreateTask(sessionID string, task Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[sessionID]
	if !ok {
		st = newSessionTasks()
		s.sessions[sessionID] = st
	}
	s.createLocked(st, task)
}

func (s *Store) UpdateTask(sessionID, taskID string, upd Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[sessionID]
	if !ok {
		s.logger.Warn("task update for session without task collection", "session_id", sessionID, "task_id", taskID)
		return
	}
	s.updateLocked(st, taskID, upd)
}

func (s *Store) Get(sessionID, taskID string) (Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.sessions[sessionID]
	if !ok {
		return Task{}, false
	}
	t, ok := st.tasks[taskID]
	if !ok {
		return Task{}, false
	}
	return t.Clone(), true
}

// TasksForSession returns live tasks ordered by the integer in their id.
// Ids without digits sort as 0; ties keep insertion order.
func (s *Store) TasksForSession(sessionID string) []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.sessions[sessionID]
	if !ok {
		return []Task{}
	}
	out := make([]Task, 0, len(st.order))
	for _, id := range st.order {
		if t, ok := st.tasks[id]; ok {
			out = append(out, t.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return numericID(out[i].ID) < numericID(out[j].ID)
	})
	return out
}

func (s *Store) ActiveTask(sessionID string) (Task, bool) {
	for _, t := range s.TasksForSession(sessionID) {
		if t.Status == StatusInProgress {
			return t, true
		}
	}
	return Task{}, false
}

func (s *Store) Stats(sessionID string) Stats {
	var stats Stats
	for _, t := range s.TasksForSession(sessionID) {
		stats.Total++
		switch t.Status {
		case StatusPending:
			stats.Pending++
		case StatusInProgress:
			stats.InProgress++
		case StatusCompleted:
			stats.Completed++
		}
	}
	return stats
}

func (s *Store) HasTasks(sessionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.sessions[sessionID]
	return ok && st.hasTasks
}

func (s *Store) createLocked(st *sessionTasks, task Task) {
	task.ID = strings.TrimSpace(task.ID)
	if task.ID == "" {
		s.logger.Warn("task create without id dropped")
		return
	}
	if task.Status == "" {
		task.Status = StatusPending
	}
	task.Blocks = dedupe(nil, task.Blocks)
	task.BlockedBy = dedupe(nil, task.BlockedBy)
	stored := task.Clone()
	if _, exists := st.tasks[task.ID]; !exists {
		st.order = append(st.order, task.ID)
	}
	st.tasks[task.ID] = &stored
	st.hasTasks = true
}

func (s *Store) updateLocked(st *sessionTasks, taskID string, upd Update) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		s.logger.Warn("task update without id dropped")
		return
	}
	deleting := upd.Status != nil && *upd.Status == StatusDeleted

	t, ok := st.tasks[taskID]
	if !ok {
		if deleting {
			return
		}
		s.createLocked(st, taskFromUpdate(taskID, upd))
		return
	}
	if deleting {
		s.removeLocked(st, taskID)
		return
	}

	if upd.Subject != nil {
		t.Subject = *upd.Subject
	}
	if upd.Description != nil {
		t.Description = *upd.Description
	}
	if upd.Status != nil {
		t.Status = *upd.Status
	}
	if upd.ActiveForm != nil {
		t.ActiveForm = *upd.ActiveForm
	}
	if upd.Owner != nil {
		t.Owner = *upd.Owner
	}
	if len(upd.Metadata) > 0 {
		if t.Metadata == nil {
			t.Metadata = make(map[string]any, len(upd.Metadata))
		}
		for k, v := range upd.Metadata {
			t.Metadata[k] = v
		}
	}
	t.Blocks = dedupe(t.Blocks, upd.AddBlocks)
	t.BlockedBy = dedupe(t.BlockedBy, upd.AddBlockedBy)
}

func (s *Store) removeLocked(st *sessionTasks, taskID string) {
	delete(st.tasks, taskID)
	for i, id := range st.order {
		if id == taskID {
			st.order = append(st.order[:i], st.order[i+1:]...)
			break
		}
	}
	if len(st.tasks) == 0 {
		st.hasTasks = false
	}
}

func taskFromUpdate(taskID string, upd Update) Task {
	t := Task{ID: taskID, Blocks: upd.AddBlocks, BlockedBy: upd.AddBlockedBy}
	if upd.Subject != nil {
		t.Subject = *upd.Subject
	}
	if upd.Description != nil {
		t.Description = *upd.Description
	}
	if upd.Status != nil {
		t.Status = *upd.Status
	}
	if upd.ActiveForm != nil {
		t.ActiveForm = *upd.ActiveForm
	}
	if upd.Owner != nil {
		t.Owner = *upd.Owner
	}
	if len(upd.Metadata) > 0 {
		t.Metadata = make(map[string]any, len(upd.Metadata))
		for k, v := range upd.Metadata {
			t.Metadata[k] = v
		}
	}
	return t
}

// dedupe appends add to base, skipping ids already present.
func dedupe(base, add []string) []string {
	out := make([]string, 0, len(base)+len(add))
	seen := make(map[string]struct{}, len(base)+len(add))
	for _, list := range [][]string{base, add} {
		for _, id := range list {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

func numericID(id string) int {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, id)
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}
