package global

import (
	"os"
	"path/filepath"
	"strings"
)

const defaultDBFileName = "history.db"

// DefaultConfigDir returns ~/.config/claudecode-webui.
func DefaultConfigDir() (string, error) {
	if override := strings.TrimSpace(os.Getenv("WEBUI_CONFIG_DIR")); override != "" {
		return override, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "claudecode-webui"), nil
}

// DefaultDBPath is the journal location used when none is configured.
func DefaultDBPath() (string, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, defaultDBFileName), nil
}
