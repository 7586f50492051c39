package config

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeJSONCRemovesCommentsAndTrailingCommas(t *testing.T) {
	input := `
{
  // line comment
  "items": [
    "one", /* block comment */
    "two",
  ],
  "nested": {
    "enabled": true,
  },
}
`

	normalized, err := normalizeJSONC(input)
	require.NoError(t, err)
	require.NotContains(t, normalized, "//")
	require.NotContains(t, normalized, "/*")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(normalized), &decoded))
	require.Equal(t, []any{"one", "two"}, decoded["items"])
}

func TestNormalizeJSONCPreservesOffsets(t *testing.T) {
	input := "{\n  /* note */ \"a\": 1, // trailing\n}"
	normalized, err := normalizeJSONC(input)
	require.NoError(t, err)
	require.Len(t, normalized, len(input))
	require.Equal(t, strings.Count(input, "\n"), strings.Count(normalized, "\n"))
}

func TestNormalizeJSONCRetainsCommentLikeTextInsideStrings(t *testing.T) {
	input := `{"value":"contains // and /* comment-like */ text \"quoted,]\"",}`
	normalized, err := normalizeJSONC(input)
	require.NoError(t, err)
	require.Contains(t, normalized, `// and /* comment-like */ text \"quoted,]\"`)
}

func TestNormalizeJSONCUnterminatedBlockCommentFails(t *testing.T) {
	_, err := normalizeJSONC("{ /* unterminated ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unterminated block comment")
}

func TestEnsureSingleJSONValueRejectsExtraPayload(t *testing.T) {
	decoder := json.NewDecoder(strings.NewReader(`{"one":1}{"two":2}`))
	var payload map[string]any
	require.NoError(t, decoder.Decode(&payload))

	err := ensureSingleJSONValue(decoder)
	require.Error(t, err)
	require.Contains(t, err.Error(), "multiple JSON values")
}

func TestOffsetToLineCol(t *testing.T) {
	content := "line1\nline2\nline3"
	line, col := offsetToLineCol(content, 1)
	require.Equal(t, 1, line)
	require.Equal(t, 1, col)

	line, col = offsetToLineCol(content, 8)
	require.Equal(t, 2, line)
	require.Equal(t, 2, col)

	line, col = offsetToLineCol(content, 999)
	require.Equal(t, 3, line)
	require.Equal(t, 5, col)
}

func TestJSONCStringListUnmarshal(t *testing.T) {
	var list jsoncStringList
	require.NoError(t, list.UnmarshalJSON([]byte(`["a"," b ",""]`)))
	require.Equal(t, []string{"a", "b"}, []string(list))

	require.NoError(t, list.UnmarshalJSON([]byte(`"a, b, , c"`)))
	require.Equal(t, []string{"a", "b", "c"}, []string(list))

	err := list.UnmarshalJSON([]byte(`123`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "expected string array")
}

func TestParseJSONCOverlaysDefaults(t *testing.T) {
	cfg, warnings, err := parseJSONC(`{
  // local recognizer over a pipe
  "recognizer": {
    "transport": "command",
    "command": "vosk-stream --rate 16000",
    "locale": "de-DE",
  },
  "session": {"pause_ms": 1500, "intelligent_analysis": false},
  "lexicon": {"question_words": "wer, was, wann"},
  "store": {"backend": " SQLite ", "path": "/tmp/scribe.db"},
  "cache": {"redis_addr": "127.0.0.1:6379", "redis_db": 2},
  "output": {"clipboard": true},
  "debug": {"log_level": "DEBUG", "event_dump": true},
}`, Default())
	require.NoError(t, err)
	require.Empty(t, warnings)

	require.Equal(t, TransportCommand, cfg.Recognizer.Transport)
	require.Equal(t, []string{"vosk-stream", "--rate", "16000"}, cfg.Recognizer.Command.Argv)
	require.Equal(t, "de-DE", cfg.Recognizer.Locale)
	require.True(t, cfg.Recognizer.OnDevice)
	require.Equal(t, 1500, cfg.Session.PauseMS)
	require.False(t, cfg.Session.IntelligentAnalysis)
	require.Equal(t, 25, cfg.Session.HistoryLimit)
	require.Equal(t, []string{"wer", "was", "wann"}, cfg.Lexicon.QuestionWords)
	require.Nil(t, cfg.Lexicon.SentenceEnders)
	require.Equal(t, BackendSQLite, cfg.Store.Backend)
	require.Equal(t, "/tmp/scribe.db", cfg.Store.Path)
	require.Equal(t, "127.0.0.1:6379", cfg.Cache.RedisAddr)
	require.Equal(t, 2, cfg.Cache.RedisDB)
	require.Equal(t, 300, cfg.Cache.TTLSeconds)
	require.True(t, cfg.Output.Clipboard)
	require.Equal(t, "debug", cfg.Debug.LogLevel)
	require.True(t, cfg.Debug.EventDump)
}

func TestParseJSONCRejectsUnknownFields(t *testing.T) {
	_, _, err := parseJSONC(`{"transcriber": {"grpc": "127.0.0.1:50051"}}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown field")
}

func TestParseJSONCRejectsInvalidCommandArgv(t *testing.T) {
	_, _, err := parseJSONC(`{"output":{"clipboard_cmd":"unterminated ' quote"}}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid output.clipboard_cmd")

	_, _, err = parseJSONC(`{"recognizer":{"command":"unterminated ' quote"}}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid recognizer.command")
}

func TestParseJSONCTrimsStrings(t *testing.T) {
	cfg, _, err := parseJSONC(`{
  "indicator": {"desktop_app_name": "  scribe-indicator  "},
  "audio": {"input": " Elgato Wave "}
}`, Default())
	require.NoError(t, err)
	require.Equal(t, "scribe-indicator", cfg.Indicator.DesktopAppName)
	require.Equal(t, "Elgato Wave", cfg.Audio.Input)
}

func TestParseJSONCRejectsMultipleTopLevelValues(t *testing.T) {
	_, _, err := parseJSONC(`{"debug":{"audio_dump":false}}{"debug":{"audio_dump":true}}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "multiple JSON values")
}

func TestParseJSONCTypeErrorIncludesLocation(t *testing.T) {
	_, _, err := parseJSONC(`{
  "session": {"pause_ms": "soon"}
}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "line 2")
	require.Contains(t, err.Error(), "column")
}

func TestParseRejectsNonObject(t *testing.T) {
	_, _, err := Parse("recognizer.locale = en-US", Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "JSONC object")

	cfg, warnings, err := Parse("  \n", Default())
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Equal(t, Default(), cfg)
}
