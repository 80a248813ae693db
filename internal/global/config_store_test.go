package global

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigStore_LoadOrInit_CreatesDefaultFile(t *testing.T) {
	dir := t.TempDir()
	store := NewConfigStore(dir)

	cfg, err := store.LoadOrInit()
	if err != nil {
		t.Fatalf("LoadOrInit failed: %v", err)
	}
	if cfg.Reconciler.PreviewValueMax != 30 {
		t.Fatalf("expected default preview_value_max 30, got %d", cfg.Reconciler.PreviewValueMax)
	}
	if cfg.Reconciler.ModelSuggestions || cfg.Reconciler.HistoryReplayLimit != 0 {
		t.Fatalf("unexpected defaults: %+v", cfg.Reconciler)
	}

	b, err := os.ReadFile(filepath.Join(dir, "config.toml"))
	if err != nil {
		t.Fatalf("read config.toml failed: %v", err)
	}
	text := string(b)
	for _, want := range []string{"[reconciler]", "preview_value_max = 30", "model_suggestions = false", "history_replay_limit = 0"} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in toml, got: %s", want, text)
		}
	}
}

func TestConfigStore_LoadNormalizesExistingFile(t *testing.T) {
	dir := t.TempDir()
	raw := "[reconciler]\nmodel_suggestions = true\npreview_value_max = -4\nhistory_replay_limit = -1\n"
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(raw), 0o644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}

	cfg, err := NewConfigStore(dir).LoadOrInit()
	if err != nil {
		t.Fatalf("LoadOrInit failed: %v", err)
	}
	if !cfg.Reconciler.ModelSuggestions {
		t.Fatal("model_suggestions should be read from file")
	}
	if cfg.Reconciler.PreviewValueMax != 30 || cfg.Reconciler.HistoryReplayLimit != 0 {
		t.Fatalf("invalid values should be normalized, got %+v", cfg.Reconciler)
	}

	b, err := os.ReadFile(filepath.Join(dir, "config.toml"))
	if err != nil {
		t.Fatalf("read config.toml failed: %v", err)
	}
	if !strings.Contains(string(b), "preview_value_max = 30") || !strings.Contains(string(b), "model_suggestions = true") {
		t.Fatalf("normalized config should be written back, got: %s", b)
	}
}

func TestConfigStore_SaveRoundTrip(t *testing.T) {
	store := NewConfigStore(filepath.Join(t.TempDir(), "nested"))
	in := GlobalConfig{Reconciler: ReconcilerConfig{ModelSuggestions: true, PreviewValueMax: 50, HistoryReplayLimit: 500}}
	if err := store.Save(in); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := store.LoadOrInit()
	if err != nil {
		t.Fatalf("LoadOrInit failed: %v", err)
	}
	if got != in {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, in)
	}
}

func TestConfigStore_RejectsMalformedTOML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[reconciler\n"), 0o644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}
	if _, err := NewConfigStore(dir).LoadOrInit(); err == nil {
		t.Fatal("expected error for malformed toml")
	}
}
