package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	warnings, err := Validate(Default())
	require.NoError(t, err)
	require.Empty(t, warnings)
}

func TestValidateRejectsInvalidFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "unknown transport", mutate: func(c *Config) { c.Recognizer.Transport = "grpc" }, wantErr: "recognizer.transport"},
		{name: "empty endpoint", mutate: func(c *Config) { c.Recognizer.Endpoint = "" }, wantErr: "recognizer.endpoint"},
		{name: "http endpoint", mutate: func(c *Config) { c.Recognizer.Endpoint = "http://127.0.0.1:2700" }, wantErr: "ws://"},
		{name: "command without argv", mutate: func(c *Config) { c.Recognizer.Transport = TransportCommand }, wantErr: "recognizer.command"},
		{name: "empty locale", mutate: func(c *Config) { c.Recognizer.Locale = " " }, wantErr: "recognizer.locale"},
		{name: "zero start timeout", mutate: func(c *Config) { c.Recognizer.StartTimeoutMS = 0 }, wantErr: "start_timeout_ms"},
		{name: "zero pause", mutate: func(c *Config) { c.Session.PauseMS = 0 }, wantErr: "session.pause_ms"},
		{name: "zero history", mutate: func(c *Config) { c.Session.HistoryLimit = 0 }, wantErr: "session.history_limit"},
		{name: "ratio too large", mutate: func(c *Config) { c.Session.RegressionRatio = 1 }, wantErr: "regression_ratio"},
		{name: "unknown backend", mutate: func(c *Config) { c.Store.Backend = "mysql" }, wantErr: "store.backend"},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Store.Backend = BackendPostgres }, wantErr: "store.dsn"},
		{name: "negative redis db", mutate: func(c *Config) { c.Cache.RedisDB = -1 }, wantErr: "cache.redis_db"},
		{name: "redis without ttl", mutate: func(c *Config) {
			c.Cache.RedisAddr = "127.0.0.1:6379"
			c.Cache.TTLSeconds = 0
		}, wantErr: "cache.ttl_seconds"},
		{name: "empty app name", mutate: func(c *Config) { c.Indicator.DesktopAppName = "" }, wantErr: "desktop_app_name"},
		{name: "negative error timeout", mutate: func(c *Config) { c.Indicator.ErrorTimeoutMS = -1 }, wantErr: "error_timeout"},
		{name: "clipboard without command", mutate: func(c *Config) {
			c.Output.Clipboard = true
			c.Output.ClipboardCmd = CommandConfig{}
		}, wantErr: "output.clipboard_cmd"},
		{name: "unknown log level", mutate: func(c *Config) { c.Debug.LogLevel = "trace" }, wantErr: "debug.log_level"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			_, err := Validate(cfg)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestValidateWarnings(t *testing.T) {
	cfg := Default()
	cfg.Session.PauseMS = 200
	cfg.Audio.KeepRecordings = true

	warnings, err := Validate(cfg)
	require.NoError(t, err)
	require.Len(t, warnings, 2)
	require.Contains(t, warnings[0].Message, "session.pause_ms")
}
