package reconcile

import (
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/EdanStarfire/claudecode-webui-sub000/internal/correlation"
	"github.com/EdanStarfire/claudecode-webui-sub000/internal/tasks"
)

var ErrMissingSessionID = errors.New("session id is required")

type Options struct {
	Logger *slog.Logger
	// Strategy names the permission correlation strategy; empty means signature.
	Strategy         string
	ModelSuggestions bool
	Now              func() time.Time
}

type sessionEntry struct {
	mu  sync.Mutex
	rec *SessionReconciler
	// discarded is set under mu once the entry has left the registry.
	discarded bool
}

// Registry owns one reconciler per session and a shared task store.
// Work on a session runs under that session's lock; sessions proceed in parallel.
type Registry struct {
	mu       sync.Mutex
	opts     Options
	tasks    *tasks.Store
	sessions map[string]*sessionEntry
}

func NewRegistry(opts Options) (*Registry, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Strategy == "" {
		opts.Strategy = correlation.StrategySignature
	}
	if _, err := correlation.NewStrategy(opts.Strategy, opts.Logger); err != nil {
		return nil, err
	}
	return &Registry{
		opts:     opts,
		tasks:    tasks.NewStore(opts.Logger),
		sessions: map[string]*sessionEntry{},
	}, nil
}

// Do runs fn against the session's reconciler, creating it on first use.
func (g *Registry) Do(sessionID string, fn func(*SessionReconciler)) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return ErrMissingSessionID
	}
	for {
		entry := g.entry(sessionID, true)
		entry.mu.Lock()
		if entry.discarded {
			entry.mu.Unlock()
			continue
		}
		fn(entry.rec)
		entry.mu.Unlock()
		return nil
	}
}

// View runs fn only if the session already exists.
func (g *Registry) View(sessionID string, fn func(*SessionReconciler)) bool {
	entry := g.entry(strings.TrimSpace(sessionID), false)
	if entry == nil {
		return false
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.discarded {
		return false
	}
	fn(entry.rec)
	return true
}

// Reset replaces the session's state with a fresh, empty reconciler.
func (g *Registry) Reset(sessionID string) error {
	return g.Do(sessionID, func(r *SessionReconciler) {
		r.reset()
	})
}

// Discard forgets the session entirely, including its task collection. It
// waits for in-flight work on the session; the registry stays locked until the
// task collection is gone so a recreated session starts clean.
func (g *Registry) Discard(sessionID string) bool {
	sessionID = strings.TrimSpace(sessionID)
	g.mu.Lock()
	defer g.mu.Unlock()
	entry, ok := g.sessions[sessionID]
	if !ok {
		return false
	}
	entry.mu.Lock()
	entry.discarded = true
	delete(g.sessions, sessionID)
	g.tasks.DropSession(sessionID)
	entry.mu.Unlock()
	g.opts.Logger.Info("session discarded", "module", "reconcile", "session_id", sessionID)
	return true
}

func (g *Registry) Sessions() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, len(g.sessions))
	for id := range g.sessions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (g *Registry) entry(sessionID string, create bool) *sessionEntry {
	g.mu.Lock()
	defer g.mu.Unlock()
	if entry, ok := g.sessions[sessionID]; ok {
		return entry
	}
	if !create || sessionID == "" {
		return nil
	}
	// validated in NewRegistry
	strategy, _ := correlation.NewStrategy(g.opts.Strategy, g.opts.Logger)
	entry := &sessionEntry{rec: newSessionReconciler(sessionID, strategy, g.tasks, g.opts)}
	g.sessions[sessionID] = entry
	return entry
}
