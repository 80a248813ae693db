package toolcall

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Describer renders tool-specific text for a tool call.
type Describer interface {
	Summarize(tc ToolCall, previewValueMax int) string
	Describe(tc ToolCall) string
}

type prefixDescriber struct {
	prefix    string
	describer Describer
}

// Registry maps tool names to describers, with prefix patterns as fallback
// and the generic parameter describer as the last resort.
type Registry struct {
	mu       sync.RWMutex
	byName   map[string]Describer
	prefixes []prefixDescriber
	fallback Describer
}

func NewRegistry() *Registry {
	return &Registry{
		byName:   map[string]Describer{},
		fallback: paramDescriber{},
	}
}

// NewBuiltinRegistry returns a registry preloaded with the common agent tools.
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()
	for _, name := range []string{"Read", "Write", "Edit", "MultiEdit", "NotebookEdit"} {
		r.MustRegister(name, fileDescriber{verb: name})
	}
	r.MustRegister("Bash", fieldDescriber{label: "Run", field: "command"})
	r.MustRegister("Grep", fieldDescriber{label: "Search", field: "pattern"})
	r.MustRegister("Glob", fieldDescriber{label: "Find", field: "pattern"})
	r.MustRegister("WebFetch", fieldDescriber{label: "Fetch", field: "url"})
	r.MustRegister("WebSearch", fieldDescriber{label: "Search web", field: "query"})
	r.MustRegister("Task", fieldDescriber{label: "Agent", field: "description"})
	r.MustRegisterPrefix("mcp__", mcpDescriber{})
	return r
}

func (r *Registry) Register(name string, d Describer) error {
	if r == nil {
		return errors.New("registry is nil")
	}
	if d == nil {
		return errors.New("describer is nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("tool name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("describer %q already registered", name)
	}
	r.byName[name] = d
	return nil
}

func (r *Registry) MustRegister(name string, d Describer) {
	if err := r.Register(name, d); err != nil {
		panic(err)
	}
}

func (r *Registry) RegisterPrefix(prefix string, d Describer) error {
	if r == nil {
		return errors.New("registry is nil")
	}
	if d == nil {
		return errors.New("describer is nil")
	}
	if strings.TrimSpace(prefix) == "" {
		return errors.New("prefix is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefixes = append(r.prefixes, prefixDescriber{prefix: prefix, describer: d})
	return nil
}

func (r *Registry) MustRegisterPrefix(prefix string, d Describer) {
	if err := r.RegisterPrefix(prefix, d); err != nil {
		panic(err)
	}
}

func (r *Registry) Lookup(toolName string) Describer {
	if r == nil {
		return paramDescriber{}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if d, ok := r.byName[toolName]; ok {
		return d
	}
	for _, p := range r.prefixes {
		if strings.HasPrefix(toolName, p.prefix) {
			return p.describer
		}
	}
	return r.fallback
}

func (r *Registry) Summarize(tc ToolCall, previewValueMax int) string {
	return r.Lookup(tc.Name).Summarize(tc, previewValueMax)
}

func (r *Registry) Describe(tc ToolCall) string {
	return r.Lookup(tc.Name).Describe(tc)
}

type paramDescriber struct{}

func (paramDescriber) Summarize(tc ToolCall, previewValueMax int) string {
	return Summary(tc, previewValueMax)
}

func (paramDescriber) Describe(tc ToolCall) string {
	if preview := ParamPreview(tc.Input, DefaultPreviewValueMax); preview != "" {
		return tc.Name + " " + preview
	}
	return tc.Name
}

type fileDescriber struct {
	paramDescriber
	verb string
}

func (d fileDescriber) Describe(tc ToolCall) string {
	for _, key := range []string{"file_path", "notebook_path", "path"} {
		if p := stringField(tc.Input, key); p != "" {
			return d.verb + " " + p
		}
	}
	return d.verb
}

type fieldDescriber struct {
	paramDescriber
	label string
	field string
}

func (d fieldDescriber) Describe(tc ToolCall) string {
	if v := stringField(tc.Input, d.field); v != "" {
		return d.label + ": " + truncate(v, 120)
	}
	return d.label
}

// mcpDescriber handles names shaped like mcp__<server>__<tool>.
type mcpDescriber struct {
	paramDescriber
}

func (mcpDescriber) Describe(tc ToolCall) string {
	parts := strings.SplitN(strings.TrimPrefix(tc.Name, "mcp__"), "__", 2)
	if len(parts) == 2 && parts[0] != "" && parts[1] != "" {
		return "MCP " + parts[0] + ": " + parts[1]
	}
	return "MCP " + tc.Name
}

func stringField(input map[string]any, key string) string {
	v, _ := input[key].(string)
	return strings.TrimSpace(v)
}
