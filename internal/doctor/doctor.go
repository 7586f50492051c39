// Package doctor runs runtime readiness diagnostics for config, storage,
// recognizer, audio and output tools.
package doctor

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rbright/scribe/internal/audio"
	"github.com/rbright/scribe/internal/config"
	"github.com/rbright/scribe/internal/speech"
	"github.com/rbright/scribe/internal/store"
)

const probeTimeout = 2 * time.Second

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment, storage and runtime checks for a loaded config.
// gw is the transcript store the app would use; nil reports a failure.
func Run(ctx context.Context, cfg config.Loaded, gw store.Gateway) Report {
	checks := []Check{checkConfig(cfg)}

	checks = append(checks, checkStore(ctx, gw, cfg.Config.Store.Backend))
	if strings.TrimSpace(cfg.Config.Cache.RedisAddr) != "" {
		checks = append(checks, checkCache(ctx, cfg.Config.Cache))
	}
	checks = append(checks, checkRecognizer(ctx, cfg.Config.Recognizer)...)
	checks = append(checks, checkAudioSelection(ctx, cfg.Config))
	if cfg.Config.Output.Clipboard {
		checks = append(checks, checkCommand(cfg.Config.Output.ClipboardCmd.Argv, "clipboard_cmd"))
	}

	return Report{Checks: checks}
}

func checkConfig(cfg config.Loaded) Check {
	message := fmt.Sprintf("loaded %q", cfg.Path)
	if !cfg.Exists {
		message = fmt.Sprintf("using defaults (%q not found)", cfg.Path)
	}
	if n := len(cfg.Warnings); n > 0 && cfg.Exists {
		message = fmt.Sprintf("%s with %d warning(s)", message, n)
	}
	return Check{Name: "config", Pass: true, Message: message}
}

// checkStore reads one transcript to prove the backend is reachable.
func checkStore(ctx context.Context, gw store.Gateway, backend string) Check {
	name := "store." + backend
	if gw == nil {
		return Check{Name: name, Pass: false, Message: "store is not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	items, err := gw.FetchRecent(ctx, 1)
	if err != nil {
		return Check{Name: name, Pass: false, Message: err.Error()}
	}
	if len(items) == 0 {
		return Check{Name: name, Pass: true, Message: "reachable (no transcripts yet)"}
	}
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("reachable (latest %s)", items[0].ID)}
}

// checkCache pings the configured redis history cache.
func checkCache(ctx context.Context, cfg config.CacheConfig) Check {
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return Check{Name: "cache.redis", Pass: false, Message: fmt.Sprintf("ping %s: %v", cfg.RedisAddr, err)}
	}
	return Check{Name: "cache.redis", Pass: true, Message: fmt.Sprintf("reachable at %s", cfg.RedisAddr)}
}

// checkRecognizer probes the health target when set, then the transport.
func checkRecognizer(ctx context.Context, cfg config.RecognizerConfig) []Check {
	var checks []Check
	if target := strings.TrimSpace(cfg.HealthTarget); target != "" {
		checks = append(checks, checkHealth(ctx, target))
	}
	switch cfg.Transport {
	case config.TransportCommand:
		checks = append(checks, checkCommand(cfg.Command.Argv, "recognizer.command"))
	default:
		checks = append(checks, checkWebSocket(ctx, cfg.Endpoint))
	}
	return checks
}

func checkHealth(ctx context.Context, target string) Check {
	if err := speech.CheckHealth(ctx, target, "", probeTimeout); err != nil {
		return Check{Name: "recognizer.health", Pass: false, Message: err.Error()}
	}
	return Check{Name: "recognizer.health", Pass: true, Message: fmt.Sprintf("serving at %s", target)}
}

// checkWebSocket completes a handshake with the recognizer endpoint and
// closes the socket without starting a session.
func checkWebSocket(ctx context.Context, endpoint string) Check {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return Check{Name: "recognizer.websocket", Pass: false, Message: "recognizer.endpoint is empty"}
	}

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = probeTimeout
	conn, resp, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		if resp != nil {
			return Check{Name: "recognizer.websocket", Pass: false, Message: fmt.Sprintf("HTTP %d from %s", resp.StatusCode, endpoint)}
		}
		return Check{Name: "recognizer.websocket", Pass: false, Message: fmt.Sprintf("handshake failed: %v", err)}
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = conn.Close()
	return Check{Name: "recognizer.websocket", Pass: true, Message: fmt.Sprintf("handshake ok at %s", endpoint)}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.Config) Check {
	selection, err := audio.SelectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}
