package correlation

import "testing"

func TestSignatureStrategy_ResolveConsumesMapping(t *testing.T) {
	s := NewSignatureStrategy(nil)
	s.ObserveToolUse(ToolUse{ID: "tu_1", Name: "Read", Input: map[string]any{"file_path": "/a"}})

	req := PermissionRequest{RequestID: "r1", ToolName: "Read", Input: map[string]any{"file_path": "/a"}}
	id, ok := s.Resolve(req)
	if !ok || id != "tu_1" {
		t.Fatalf("expected tu_1, got %q ok=%v", id, ok)
	}
	if _, ok := s.Resolve(req); ok {
		t.Fatal("mapping should be consumed after first resolution")
	}
}

func TestSignatureStrategy_MostRecentRegistrationWins(t *testing.T) {
	s := NewSignatureStrategy(nil)
	in := map[string]any{"command": "ls"}
	s.ObserveToolUse(ToolUse{ID: "tu_1", Name: "Bash", Input: in})
	s.ObserveToolUse(ToolUse{ID: "tu_2", Name: "Bash", Input: in})

	id, ok := s.Resolve(PermissionRequest{RequestID: "r1", ToolName: "Bash", Input: in})
	if !ok || id != "tu_2" {
		t.Fatalf("expected tu_2, got %q ok=%v", id, ok)
	}
}

func TestSignatureStrategy_Reset(t *testing.T) {
	s := NewSignatureStrategy(nil)
	s.ObserveToolUse(ToolUse{ID: "tu_1", Name: "Read"})
	s.Reset()
	if _, ok := s.Resolve(PermissionRequest{ToolName: "Read"}); ok {
		t.Fatal("reset should drop all mappings")
	}
}

func TestToolUseIDStrategy_PrefersExplicitID(t *testing.T) {
	s := NewToolUseIDStrategy(NewSignatureStrategy(nil))
	in := map[string]any{"command": "ls"}
	s.ObserveToolUse(ToolUse{ID: "tu_1", Name: "Bash", Input: in})
	s.ObserveToolUse(ToolUse{ID: "tu_2", Name: "Bash", Input: in})

	id, ok := s.Resolve(PermissionRequest{RequestID: "r1", ToolName: "Bash", Input: in, ToolUseID: "tu_1"})
	if !ok || id != "tu_1" {
		t.Fatalf("expected explicit tu_1, got %q ok=%v", id, ok)
	}
}

func TestToolUseIDStrategy_FallsBackToSignature(t *testing.T) {
	s := NewToolUseIDStrategy(NewSignatureStrategy(nil))
	s.ObserveToolUse(ToolUse{ID: "tu_1", Name: "Read", Input: map[string]any{"file_path": "/a"}})

	id, ok := s.Resolve(PermissionRequest{RequestID: "r1", ToolName: "Read", Input: map[string]any{"file_path": "/a"}})
	if !ok || id != "tu_1" {
		t.Fatalf("expected fallback tu_1, got %q ok=%v", id, ok)
	}
}

func TestNewStrategy_SelectsByName(t *testing.T) {
	if s, err := NewStrategy("", nil); err != nil {
		t.Fatalf("default strategy failed: %v", err)
	} else if _, ok := s.(*SignatureStrategy); !ok {
		t.Fatalf("expected signature strategy, got %T", s)
	}
	if s, err := NewStrategy("tool_use_id", nil); err != nil {
		t.Fatalf("tool_use_id strategy failed: %v", err)
	} else if _, ok := s.(*ToolUseIDStrategy); !ok {
		t.Fatalf("expected tool_use_id strategy, got %T", s)
	}
	if _, err := NewStrategy("bogus", nil); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}

func TestSignatureStrategy_UsesPrecomputedSignature(t *testing.T) {
	s := NewSignatureStrategy(nil)
	s.ObserveToolUse(ToolUse{ID: "tu_1", Name: "Read", Signature: "Read:{}"})
	id, ok := s.Resolve(PermissionRequest{RequestID: "req_1", ToolName: "Read", Input: map[string]any{"x": 1}, Signature: "Read:{}"})
	if !ok || id != "tu_1" {
		t.Fatalf("expected precomputed signature to resolve, got %q ok=%v", id, ok)
	}
}
