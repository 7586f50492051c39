package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const fileName = "config.jsonc"

// ResolvePath applies CLI/XDG/home fallback rules for the config file location.
func ResolvePath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}

	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "scribe", fileName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for config fallback")
	}

	return filepath.Join(home, ".config", "scribe", fileName), nil
}

// StateDir is where scribe keeps transcripts, recordings and debug output.
func StateDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return filepath.Join(xdg, "scribe"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for state dir")
	}
	return filepath.Join(home, ".local", "state", "scribe"), nil
}
