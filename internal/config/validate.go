package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	switch cfg.Recognizer.Transport {
	case TransportWebSocket:
		endpoint := strings.TrimSpace(cfg.Recognizer.Endpoint)
		if endpoint == "" {
			return nil, fmt.Errorf("recognizer.endpoint must not be empty when recognizer.transport=websocket")
		}
		u, err := url.Parse(endpoint)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
			return nil, fmt.Errorf("recognizer.endpoint must be a ws:// or wss:// URL")
		}
	case TransportCommand:
		if len(cfg.Recognizer.Command.Argv) == 0 {
			return nil, fmt.Errorf("recognizer.command must not be empty when recognizer.transport=command")
		}
	default:
		return nil, fmt.Errorf("recognizer.transport must be one of: websocket, command")
	}
	if strings.TrimSpace(cfg.Recognizer.Locale) == "" {
		return nil, fmt.Errorf("recognizer.locale must not be empty")
	}
	if cfg.Recognizer.StartTimeoutMS <= 0 {
		return nil, fmt.Errorf("recognizer.start_timeout_ms must be > 0")
	}

	if cfg.Session.PauseMS <= 0 {
		return nil, fmt.Errorf("session.pause_ms must be > 0")
	}
	if cfg.Session.HistoryLimit <= 0 {
		return nil, fmt.Errorf("session.history_limit must be > 0")
	}
	if cfg.Session.RegressionRatio <= 0 || cfg.Session.RegressionRatio >= 1 {
		return nil, fmt.Errorf("session.regression_ratio must be between 0 and 1")
	}
	if cfg.Session.PauseMS < 500 {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("session.pause_ms=%d commits very short pauses", cfg.Session.PauseMS)})
	}

	switch cfg.Store.Backend {
	case BackendFile, BackendSQLite:
	case BackendPostgres:
		if strings.TrimSpace(cfg.Store.DSN) == "" {
			return nil, fmt.Errorf("store.dsn must not be empty when store.backend=postgres")
		}
	default:
		return nil, fmt.Errorf("store.backend must be one of: file, sqlite, postgres")
	}

	if cfg.Cache.RedisDB < 0 {
		return nil, fmt.Errorf("cache.redis_db must be >= 0")
	}
	if cfg.Cache.RedisAddr != "" && cfg.Cache.TTLSeconds <= 0 {
		return nil, fmt.Errorf("cache.ttl_seconds must be > 0 when cache.redis_addr is set")
	}

	if cfg.Indicator.Enable && strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.enable=true")
	}
	if cfg.Indicator.ErrorTimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.error_timeout_ms must be >= 0")
	}

	if cfg.Output.Clipboard && len(cfg.Output.ClipboardCmd.Argv) == 0 {
		return nil, fmt.Errorf("output.clipboard_cmd must not be empty when output.clipboard=true")
	}

	switch cfg.Debug.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("debug.log_level must be one of: debug, info, warn, error")
	}

	if cfg.Audio.KeepRecordings && cfg.Audio.RecordingsDir == "" {
		warnings = append(warnings, Warning{Message: "audio.keep_recordings without audio.recordings_dir stores recordings in the state dir"})
	}

	return warnings, nil
}
