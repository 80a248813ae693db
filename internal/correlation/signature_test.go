package correlation

import (
	"errors"
	"testing"
)

func TestToolSignature_IsKeyOrderIndependent(t *testing.T) {
	a, err := ToolSignature("Read", map[string]any{"a": 1, "b": 2})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	b, _ := ToolSignature("Read", map[string]any{"b": 2, "a": 1})
	if a != b {
		t.Fatalf("signatures differ: %q vs %q", a, b)
	}
	if a != `Read:{"a":1,"b":2}` {
		t.Fatalf("unexpected signature: %q", a)
	}
}

func TestToolSignature_SortsNestedKeys(t *testing.T) {
	a, _ := ToolSignature("Edit", map[string]any{"opts": map[string]any{"z": true, "a": "x"}})
	b, _ := ToolSignature("Edit", map[string]any{"opts": map[string]any{"a": "x", "z": true}})
	if a != b {
		t.Fatalf("nested signatures differ: %q vs %q", a, b)
	}
}

func TestToolSignature_DoesNotEscapeHTML(t *testing.T) {
	sig, _ := ToolSignature("Bash", map[string]any{"command": "a && b > c"})
	if sig != `Bash:{"command":"a && b > c"}` {
		t.Fatalf("unexpected signature: %q", sig)
	}
}

func TestToolSignature_DegradesOnMissingInput(t *testing.T) {
	sig, err := ToolSignature("Bash", nil)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if sig != "Bash:{}" {
		t.Fatalf("unexpected signature: %q", sig)
	}
}

func TestToolSignature_DegradesOnMissingName(t *testing.T) {
	sig, err := ToolSignature("  ", map[string]any{"a": 1})
	if !errors.Is(err, ErrMissingToolName) {
		t.Fatalf("expected ErrMissingToolName, got %v", err)
	}
	if sig != UnknownSignature {
		t.Fatalf("expected sentinel, got %q", sig)
	}
}
