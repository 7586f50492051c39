// Package output applies transcript commit side effects.
package output

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/rbright/scribe/internal/config"
)

const clipboardTimeout = 2 * time.Second

// Committer copies saved transcript text to the clipboard.
type Committer struct {
	config config.OutputConfig
	logger *slog.Logger
}

// NewCommitter constructs a transcript committer from output config.
func NewCommitter(cfg config.OutputConfig, logger *slog.Logger) *Committer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Committer{config: cfg, logger: logger}
}

// Commit writes transcript text to the clipboard command's stdin. It is a
// no-op when clipboard output is disabled or text is empty.
func (c *Committer) Commit(ctx context.Context, text string) error {
	if !c.config.Clipboard || text == "" {
		return nil
	}

	clipboardCtx, cancel := context.WithTimeout(ctx, clipboardTimeout)
	defer cancel()
	if err := runCommandWithInput(clipboardCtx, c.config.ClipboardCmd.Argv, text); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}
	c.logger.Debug("transcript copied to clipboard", "bytes", len(text))
	return nil
}

// runCommandWithInput executes argv and optionally writes input to stdin.
func runCommandWithInput(ctx context.Context, argv []string, input string) error {
	if len(argv) == 0 {
		return fmt.Errorf("command argv cannot be empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open stdin for %s: %w", argv[0], err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start command %s: %w", argv[0], err)
	}

	if input != "" {
		if _, err := stdin.Write([]byte(input)); err != nil {
			_ = stdin.Close()
			_ = cmd.Wait()
			return fmt.Errorf("write stdin for %s: %w", argv[0], err)
		}
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait for %s: %w", argv[0], err)
	}
	return nil
}
