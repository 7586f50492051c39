package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Loaded captures resolved config path, parsed values, and non-fatal warnings.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Environment overrides applied after the config file. They keep secrets
// such as the postgres DSN out of the file.
const (
	EnvLogLevel           = "SCRIBE_LOG_LEVEL"
	EnvRecognizerEndpoint = "SCRIBE_RECOGNIZER_ENDPOINT"
	EnvStoreDSN           = "SCRIBE_STORE_DSN"
	EnvRedisAddr          = "SCRIBE_REDIS_ADDR"
)

// Load resolves, reads, parses, and validates the runtime configuration,
// then applies environment overrides.
func Load(explicitPath string) (Loaded, error) {
	resolvedPath, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	loaded := Loaded{Path: resolvedPath, Config: Default()}
	content, err := os.ReadFile(resolvedPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		loaded.Warnings = []Warning{{
			Message: fmt.Sprintf("config file %q not found; using defaults", resolvedPath),
		}}
	case err != nil:
		return Loaded{}, fmt.Errorf("read config %q: %w", resolvedPath, err)
	default:
		cfg, warnings, err := Parse(string(content), loaded.Config)
		if err != nil {
			return Loaded{}, fmt.Errorf("parse config %q: %w", resolvedPath, err)
		}
		loaded.Config = cfg
		loaded.Warnings = warnings
		loaded.Exists = true
	}

	if applyEnvOverrides(&loaded.Config, os.Getenv) {
		if _, err := Validate(loaded.Config); err != nil {
			return Loaded{}, fmt.Errorf("environment overrides: %w", err)
		}
	}
	return loaded, nil
}

// applyEnvOverrides reports whether any override was set.
func applyEnvOverrides(cfg *Config, getenv func(string) string) bool {
	changed := false
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
			changed = true
		}
	}

	set(&cfg.Debug.LogLevel, EnvLogLevel)
	set(&cfg.Recognizer.Endpoint, EnvRecognizerEndpoint)
	set(&cfg.Store.DSN, EnvStoreDSN)
	set(&cfg.Cache.RedisAddr, EnvRedisAddr)
	return changed
}
