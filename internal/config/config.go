package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	CorrelationSignature = "signature"
	CorrelationToolUseID = "tool_use_id"
)

type Config struct {
	ListenLogLevel string
	// LogFormat is "json" or "text".
	LogFormat string
	LocalHost string
	LocalPort int
	// BackendWSURL is the backend stream to follow; empty disables the upstream pump.
	BackendWSURL string
	// DBPath is the journal location; empty means history.db in the global config dir.
	DBPath      string
	Correlation string
	// ShutdownTimeout bounds each shutdown step of serve.
	ShutdownTimeout time.Duration
	// UpstreamReadLimit caps one backend frame in bytes.
	UpstreamReadLimit int64
}

const (
	DefaultShutdownTimeout   = 10 * time.Second
	DefaultUpstreamReadLimit = int64(8 << 20)
)

var defaultLocalPort = "8000"

func LoadConfig() Config {
	return loadFromEnv()
}

func loadFromEnv() Config {
	level := os.Getenv("WEBUI_LOG_LEVEL")
	if level == "" {
		level = "info"
	}
	format := strings.ToLower(strings.TrimSpace(os.Getenv("WEBUI_LOG_FORMAT")))
	if format != "text" {
		format = "json"
	}
	localHost := os.Getenv("WEBUI_LOCAL_HOST")
	if localHost == "" {
		localHost = "127.0.0.1"
	}
	fallbackPort := atoiOrDefault(defaultLocalPort, 8000)
	localPort := fallbackPort
	if p := os.Getenv("WEBUI_LOCAL_PORT"); p != "" {
		// malformed values fall back to the default
		localPort = atoiOrDefault(p, fallbackPort)
	}
	correlation := strings.ToLower(strings.TrimSpace(os.Getenv("WEBUI_CORRELATION")))
	switch correlation {
	case CorrelationSignature, CorrelationToolUseID:
	default:
		correlation = CorrelationSignature
	}

	shutdownTimeout := DefaultShutdownTimeout
	if v := strings.TrimSpace(os.Getenv("WEBUI_SHUTDOWN_TIMEOUT")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			shutdownTimeout = d
		}
	}
	readLimit := DefaultUpstreamReadLimit
	if v := strings.TrimSpace(os.Getenv("WEBUI_UPSTREAM_READ_LIMIT")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			readLimit = n
		}
	}

	return Config{
		ListenLogLevel:    level,
		LogFormat:         format,
		LocalHost:         localHost,
		LocalPort:         localPort,
		BackendWSURL:      strings.TrimSpace(os.Getenv("WEBUI_BACKEND_WS_URL")),
		DBPath:            strings.TrimSpace(os.Getenv("WEBUI_DB_PATH")),
		Correlation:       correlation,
		ShutdownTimeout:   shutdownTimeout,
		UpstreamReadLimit: readLimit,
	}
}

func atoiOrDefault(v string, fallback int) int {
	n := 0
	for i := 0; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return fallback
		}
		n = n*10 + int(v[i]-'0')
	}
	if n == 0 {
		return fallback
	}
	return n
}
