package global

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	configTOMLFileName = "config.toml"

	DefaultPreviewValueMax = 30
)

type ReconcilerConfig struct {
	// ModelSuggestions keeps permission suggestions and applied updates on tool calls.
	ModelSuggestions bool `json:"model_suggestions" toml:"model_suggestions"`
	PreviewValueMax  int  `json:"preview_value_max" toml:"preview_value_max"`
	// HistoryReplayLimit caps how many journaled messages a replay reads; 0 reads all.
	HistoryReplayLimit int `json:"history_replay_limit" toml:"history_replay_limit"`
}

type GlobalConfig struct {
	Reconciler ReconcilerConfig `json:"reconciler" toml:"reconciler"`
}

type ConfigStore struct {
	dir string
}

func NewConfigStore(dir string) *ConfigStore {
	return &ConfigStore{dir: dir}
}

// LoadOrInit reads config.toml, writing defaults on first use. Out-of-range
// values are normalized and written back.
func (s *ConfigStore) LoadOrInit() (GlobalConfig, error) {
	path := filepath.Join(s.dir, configTOMLFileName)
	b, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return GlobalConfig{}, err
		}
		cfg := normalizeConfig(GlobalConfig{})
		if err := s.Save(cfg); err != nil {
			return GlobalConfig{}, err
		}
		return cfg, nil
	}

	var raw GlobalConfig
	if err := toml.Unmarshal(b, &raw); err != nil {
		return GlobalConfig{}, err
	}
	cfg := normalizeConfig(raw)
	if cfg != raw {
		if err := s.Save(cfg); err != nil {
			return GlobalConfig{}, err
		}
	}
	return cfg, nil
}

func (s *ConfigStore) Save(cfg GlobalConfig) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	return writeTOMLAtomically(filepath.Join(s.dir, configTOMLFileName), normalizeConfig(cfg))
}

func normalizeConfig(cfg GlobalConfig) GlobalConfig {
	if cfg.Reconciler.PreviewValueMax <= 0 {
		cfg.Reconciler.PreviewValueMax = DefaultPreviewValueMax
	}
	if cfg.Reconciler.HistoryReplayLimit < 0 {
		cfg.Reconciler.HistoryReplayLimit = 0
	}
	return cfg
}

func writeTOMLAtomically(path string, v any) error {
	b, err := toml.Marshal(v)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
