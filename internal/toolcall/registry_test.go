package toolcall

import (
	"strings"
	"testing"
)

func TestBuiltinRegistry_DescribesKnownTools(t *testing.T) {
	r := NewBuiltinRegistry()
	cases := []struct {
		tc   ToolCall
		want string
	}{
		{ToolCall{Name: "Read", Input: map[string]any{"file_path": "/a.go"}}, "Read /a.go"},
		{ToolCall{Name: "Bash", Input: map[string]any{"command": "ls -la"}}, "Run: ls -la"},
		{ToolCall{Name: "Grep", Input: map[string]any{"pattern": "TODO"}}, "Search: TODO"},
		{ToolCall{Name: "mcp__github__create_issue"}, "MCP github: create_issue"},
		{ToolCall{Name: "Custom", Input: map[string]any{"x": "y"}}, `Custom x="y"`},
	}
	for _, c := range cases {
		if got := r.Describe(c.tc); got != c.want {
			t.Fatalf("Describe(%s) = %q want %q", c.tc.Name, got, c.want)
		}
	}
}

func TestRegistry_SummarizeFallsBackToGenericPreview(t *testing.T) {
	r := NewBuiltinRegistry()
	tc := ToolCall{Name: "mcp__db__query", Status: StatusPending, Input: map[string]any{"sql": "select 1"}}
	if got := r.Summarize(tc, 0); !strings.Contains(got, `sql="select 1"`) {
		t.Fatalf("unexpected summary: %q", got)
	}
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("Read", paramDescriber{}); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if err := r.Register("Read", paramDescriber{}); err == nil {
		t.Fatal("expected duplicate error")
	}
	if err := r.Register(" ", paramDescriber{}); err == nil {
		t.Fatal("expected blank name error")
	}
}
