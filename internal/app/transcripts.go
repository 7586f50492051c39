package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rbright/scribe/internal/cli"
	"github.com/rbright/scribe/internal/config"
	"github.com/rbright/scribe/internal/session"
	"github.com/rbright/scribe/internal/store"
	"github.com/rbright/scribe/internal/transcript"
)

const previewRunes = 60

func (r Runner) commandHistory(ctx context.Context, cfg config.Config, limit int, logger *slog.Logger) int {
	gw, closeStore, err := openStore(cfg, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer closeStore()

	if limit == 0 {
		limit = engineConfig(cfg).HistoryLimit
	}

	items, err := gw.FetchRecent(ctx, limit)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: load history: %v\n", err)
		return 1
	}
	if len(items) == 0 {
		fmt.Fprintln(r.Stdout, "no transcripts")
		return 0
	}

	for _, item := range items {
		marker := " "
		if item.IsEdited() {
			marker = "*"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s %s | %s | %s\n",
			marker,
			item.ID,
			item.CreatedAt.Local().Format("2006-01-02 15:04"),
			preview(item.DisplayText()),
		)
	}
	return 0
}

func (r Runner) commandShow(ctx context.Context, cfg config.Config, id, format string, logger *slog.Logger) int {
	gw, closeStore, err := openStore(cfg, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer closeStore()

	item, ok := r.find(ctx, gw, id)
	if !ok {
		return 1
	}

	if err := renderTranscript(r.Stdout, item, format); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func (r Runner) commandEdit(ctx context.Context, cfg config.Config, id, text string, logger *slog.Logger) int {
	gw, closeStore, err := openStore(cfg, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer closeStore()

	item, ok := r.find(ctx, gw, id)
	if !ok {
		return 1
	}

	engine := session.NewEngine(engineConfig(cfg), session.Deps{Logger: logger, Store: gw})
	updated, err := engine.UpdateTranscriptText(ctx, item, text)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %s\n", session.NoticeFor(err).Message)
		return 1
	}
	fmt.Fprintln(r.Stdout, updated.DisplayText())
	return 0
}

func (r Runner) commandDelete(ctx context.Context, cfg config.Config, id string, logger *slog.Logger) int {
	gw, closeStore, err := openStore(cfg, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer closeStore()

	if _, ok := r.find(ctx, gw, id); !ok {
		return 1
	}

	engine := session.NewEngine(engineConfig(cfg), session.Deps{Logger: logger, Store: gw})
	if err := engine.DeleteTranscript(ctx, id); err != nil {
		fmt.Fprintf(r.Stderr, "error: %s\n", session.NoticeFor(err).Message)
		return 1
	}
	fmt.Fprintf(r.Stdout, "deleted %s\n", id)
	return 0
}

// commandAnalyze normalizes text, or stdin when no text is given.
func (r Runner) commandAnalyze(cfg config.Config, text string, quick bool) int {
	if strings.TrimSpace(text) == "" && r.Stdin != nil {
		data, err := io.ReadAll(r.Stdin)
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: read stdin: %v\n", err)
			return 1
		}
		text = string(data)
	}

	normalizer := transcript.NewNormalizer(lexicon(cfg.Lexicon))
	var out string
	if quick {
		out = normalizer.QuickAnalyze(text)
	} else {
		out = normalizer.Analyze(text)
	}
	if out != "" {
		fmt.Fprintln(r.Stdout, out)
	}
	return 0
}

func (r Runner) find(ctx context.Context, gw store.Gateway, id string) (store.Transcript, bool) {
	item, err := store.Find(ctx, gw, id)
	if errors.Is(err, store.ErrNotFound) {
		fmt.Fprintf(r.Stderr, "error: transcript %s not found\n", id)
		return store.Transcript{}, false
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: load transcript %s: %v\n", id, err)
		return store.Transcript{}, false
	}
	return item, true
}

func renderTranscript(w io.Writer, item store.Transcript, format string) error {
	switch format {
	case cli.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(item)
	case cli.FormatMarkdown:
		var b strings.Builder
		fmt.Fprintf(&b, "# Transcript %s\n\n", item.ID)
		fmt.Fprintf(&b, "- Created: %s\n", item.CreatedAt.Local().Format(time.RFC1123))
		if item.IsEdited() {
			fmt.Fprintf(&b, "- Edited: %s\n", item.UpdatedAt.Local().Format(time.RFC1123))
		}
		if item.Metadata.Duration > 0 {
			fmt.Fprintf(&b, "- Duration: %s\n", item.Metadata.Duration.Round(time.Second))
		}
		if item.Metadata.Locale != "" {
			fmt.Fprintf(&b, "- Locale: %s\n", item.Metadata.Locale)
		}
		if item.Metadata.AudioRef != "" {
			fmt.Fprintf(&b, "- Audio: `%s`\n", item.Metadata.AudioRef)
		}
		fmt.Fprintf(&b, "\n%s\n", item.DisplayText())
		if item.IsEdited() {
			fmt.Fprintf(&b, "\n## Original\n\n%s\n", item.OriginalText)
		}
		_, err := io.WriteString(w, b.String())
		return err
	default:
		_, err := fmt.Fprintln(w, item.DisplayText())
		return err
	}
}

func preview(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= previewRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:previewRunes-1]) + "…"
}
