package toolcall

import "testing"

func TestSummary_SingleParamInline(t *testing.T) {
	tc := ToolCall{Name: "Read", Status: StatusPending, Input: map[string]any{"file_path": "/a.go"}}
	got := Summary(tc, 0)
	want := `⏳ Read(file_path="/a.go") - Pending`
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestSummary_TwoOrThreeParamsCommaList(t *testing.T) {
	tc := ToolCall{Name: "Grep", Status: StatusExecuting, Input: map[string]any{"pattern": "foo", "path": "src", "-n": true}}
	got := Summary(tc, 0)
	want := `⚙ Grep(-n=true, path="src", pattern="foo") - Executing`
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestSummary_ManyParamsCountOnly(t *testing.T) {
	tc := ToolCall{Name: "Edit", Status: StatusCompleted, Input: map[string]any{"a": 1, "b": 2, "c": 3, "d": 4}}
	got := Summary(tc, 0)
	want := `✓ Edit(4 params) - Completed`
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestSummary_TruncatesLongStrings(t *testing.T) {
	tc := ToolCall{Name: "Bash", Status: StatusError, Input: map[string]any{"command": "abcdefghijklmnopqrstuvwxyz"}}
	got := Summary(tc, 10)
	want := `✗ Bash(command="abcdefg...") - Error`
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestSummary_DeniedLabel(t *testing.T) {
	tc := ToolCall{Name: "Write", Status: StatusCompleted, PermissionDecision: DecisionDeny}
	got := Summary(tc, 0)
	want := `⛔ Write - Denied`
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestStatusLabel_PermissionRequired(t *testing.T) {
	if got := StatusLabel(ToolCall{Status: StatusPermissionRequired}); got != "Awaiting Permission" {
		t.Fatalf("unexpected label: %q", got)
	}
}
