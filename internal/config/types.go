// Package config resolves, parses, validates, and defaults scribe configuration.
package config

// Config is the fully materialized runtime configuration used by scribe.
type Config struct {
	Recognizer RecognizerConfig
	Audio      AudioConfig
	Session    SessionConfig
	Lexicon    LexiconConfig
	Store      StoreConfig
	Cache      CacheConfig
	Indicator  IndicatorConfig
	Output     OutputConfig
	Debug      DebugConfig
}

// Recognizer transports.
const (
	TransportWebSocket = "websocket"
	TransportCommand   = "command"
)

// RecognizerConfig selects and tunes the streaming speech recognizer.
type RecognizerConfig struct {
	Transport string
	// Endpoint is the websocket URL for the websocket transport.
	Endpoint string
	// Command is the child process for the command transport.
	Command CommandConfig
	// HealthTarget is an optional gRPC health endpoint probed before start.
	HealthTarget   string
	Locale         string
	OnDevice       bool
	StartTimeoutMS int
}

// AudioConfig controls input-source selection and local recordings.
type AudioConfig struct {
	Input          string
	Fallback       string
	RecordingsDir  string
	KeepRecordings bool
}

// SessionConfig tunes segment aggregation and history.
type SessionConfig struct {
	PauseMS             int
	IntelligentAnalysis bool
	HistoryLimit        int
	RegressionRatio     float64
}

// LexiconConfig overrides the normalizer word lists. Empty lists keep the
// built-in defaults.
type LexiconConfig struct {
	SentenceEnders   []string
	QuestionWords    []string
	ExclamationWords []string
}

// Store backends.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// StoreConfig selects the transcript store.
type StoreConfig struct {
	Backend string
	// Path is the file or sqlite database path; empty uses the state dir.
	Path string
	// DSN is the postgres connection string.
	DSN string
}

// CacheConfig enables the redis history cache when RedisAddr is set.
type CacheConfig struct {
	RedisAddr  string
	RedisDB    int
	TTLSeconds int
}

// IndicatorConfig controls desktop notifications and audio cues.
type IndicatorConfig struct {
	Enable            bool
	DesktopAppName    string
	SoundEnable       bool
	SoundStartFile    string
	SoundStopFile     string
	SoundCompleteFile string
	SoundCancelFile   string
	SoundNoticeFile   string
	ErrorTimeoutMS    int
}

// OutputConfig controls post-save dispatch of the final text.
type OutputConfig struct {
	Clipboard    bool
	ClipboardCmd CommandConfig
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// DebugConfig controls log verbosity and optional debug artifacts.
type DebugConfig struct {
	LogLevel  string
	AudioDump bool
	EventDump bool
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
