package config

import (
	"encoding/json"
	"fmt"
	"strings"
)

type jsoncConfig struct {
	Recognizer *jsoncRecognizer `json:"recognizer"`
	Audio      *jsoncAudio      `json:"audio"`
	Session    *jsoncSession    `json:"session"`
	Lexicon    *jsoncLexicon    `json:"lexicon"`
	Store      *jsoncStore      `json:"store"`
	Cache      *jsoncCache      `json:"cache"`
	Indicator  *jsoncIndicator  `json:"indicator"`
	Output     *jsoncOutput     `json:"output"`
	Debug      *jsoncDebug      `json:"debug"`
}

type jsoncRecognizer struct {
	Transport      *string `json:"transport"`
	Endpoint       *string `json:"endpoint"`
	Command        *string `json:"command"`
	HealthTarget   *string `json:"health_target"`
	Locale         *string `json:"locale"`
	OnDevice       *bool   `json:"on_device"`
	StartTimeoutMS *int    `json:"start_timeout_ms"`
}

type jsoncAudio struct {
	Input          *string `json:"input"`
	Fallback       *string `json:"fallback"`
	RecordingsDir  *string `json:"recordings_dir"`
	KeepRecordings *bool   `json:"keep_recordings"`
}

type jsoncSession struct {
	PauseMS             *int     `json:"pause_ms"`
	IntelligentAnalysis *bool    `json:"intelligent_analysis"`
	HistoryLimit        *int     `json:"history_limit"`
	RegressionRatio     *float64 `json:"regression_ratio"`
}

type jsoncLexicon struct {
	SentenceEnders   *jsoncStringList `json:"sentence_enders"`
	QuestionWords    *jsoncStringList `json:"question_words"`
	ExclamationWords *jsoncStringList `json:"exclamation_words"`
}

type jsoncStore struct {
	Backend *string `json:"backend"`
	Path    *string `json:"path"`
	DSN     *string `json:"dsn"`
}

type jsoncCache struct {
	RedisAddr  *string `json:"redis_addr"`
	RedisDB    *int    `json:"redis_db"`
	TTLSeconds *int    `json:"ttl_seconds"`
}

type jsoncIndicator struct {
	Enable            *bool   `json:"enable"`
	DesktopAppName    *string `json:"desktop_app_name"`
	SoundEnable       *bool   `json:"sound_enable"`
	SoundStartFile    *string `json:"sound_start_file"`
	SoundStopFile     *string `json:"sound_stop_file"`
	SoundCompleteFile *string `json:"sound_complete_file"`
	SoundCancelFile   *string `json:"sound_cancel_file"`
	SoundNoticeFile   *string `json:"sound_notice_file"`
	ErrorTimeoutMS    *int    `json:"error_timeout_ms"`
}

type jsoncOutput struct {
	Clipboard    *bool   `json:"clipboard"`
	ClipboardCmd *string `json:"clipboard_cmd"`
}

type jsoncDebug struct {
	LogLevel  *string `json:"log_level"`
	AudioDump *bool   `json:"audio_dump"`
	EventDump *bool   `json:"event_dump"`
}

// jsoncStringList accepts either a string array or one comma-delimited string.
type jsoncStringList []string

func (l *jsoncStringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = trimList(list)
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*l = trimList(strings.Split(single, ","))
		return nil
	}

	return fmt.Errorf("expected string array or comma-delimited string")
}

func trimList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	if err := payload.applyTo(&cfg); err != nil {
		return Config{}, nil, err
	}

	warnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func setValue[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func setList(dst *[]string, src *jsoncStringList) {
	if src != nil {
		*dst = []string(*src)
	}
}

func setCommand(dst *CommandConfig, src *string, key string) error {
	if src == nil {
		return nil
	}
	cmd, err := ParseCommand(*src)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = cmd
	return nil
}

func (payload jsoncConfig) applyTo(cfg *Config) error {
	if r := payload.Recognizer; r != nil {
		setString(&cfg.Recognizer.Transport, r.Transport)
		setString(&cfg.Recognizer.Endpoint, r.Endpoint)
		setString(&cfg.Recognizer.HealthTarget, r.HealthTarget)
		setString(&cfg.Recognizer.Locale, r.Locale)
		setValue(&cfg.Recognizer.OnDevice, r.OnDevice)
		setValue(&cfg.Recognizer.StartTimeoutMS, r.StartTimeoutMS)
		if err := setCommand(&cfg.Recognizer.Command, r.Command, "recognizer.command"); err != nil {
			return err
		}
	}

	if a := payload.Audio; a != nil {
		setString(&cfg.Audio.Input, a.Input)
		setString(&cfg.Audio.Fallback, a.Fallback)
		setString(&cfg.Audio.RecordingsDir, a.RecordingsDir)
		setValue(&cfg.Audio.KeepRecordings, a.KeepRecordings)
	}

	if s := payload.Session; s != nil {
		setValue(&cfg.Session.PauseMS, s.PauseMS)
		setValue(&cfg.Session.IntelligentAnalysis, s.IntelligentAnalysis)
		setValue(&cfg.Session.HistoryLimit, s.HistoryLimit)
		setValue(&cfg.Session.RegressionRatio, s.RegressionRatio)
	}

	if l := payload.Lexicon; l != nil {
		setList(&cfg.Lexicon.SentenceEnders, l.SentenceEnders)
		setList(&cfg.Lexicon.QuestionWords, l.QuestionWords)
		setList(&cfg.Lexicon.ExclamationWords, l.ExclamationWords)
	}

	if s := payload.Store; s != nil {
		if s.Backend != nil {
			cfg.Store.Backend = strings.ToLower(strings.TrimSpace(*s.Backend))
		}
		setString(&cfg.Store.Path, s.Path)
		setString(&cfg.Store.DSN, s.DSN)
	}

	if c := payload.Cache; c != nil {
		setString(&cfg.Cache.RedisAddr, c.RedisAddr)
		setValue(&cfg.Cache.RedisDB, c.RedisDB)
		setValue(&cfg.Cache.TTLSeconds, c.TTLSeconds)
	}

	if i := payload.Indicator; i != nil {
		setValue(&cfg.Indicator.Enable, i.Enable)
		setString(&cfg.Indicator.DesktopAppName, i.DesktopAppName)
		setValue(&cfg.Indicator.SoundEnable, i.SoundEnable)
		setString(&cfg.Indicator.SoundStartFile, i.SoundStartFile)
		setString(&cfg.Indicator.SoundStopFile, i.SoundStopFile)
		setString(&cfg.Indicator.SoundCompleteFile, i.SoundCompleteFile)
		setString(&cfg.Indicator.SoundCancelFile, i.SoundCancelFile)
		setString(&cfg.Indicator.SoundNoticeFile, i.SoundNoticeFile)
		setValue(&cfg.Indicator.ErrorTimeoutMS, i.ErrorTimeoutMS)
	}

	if o := payload.Output; o != nil {
		setValue(&cfg.Output.Clipboard, o.Clipboard)
		if err := setCommand(&cfg.Output.ClipboardCmd, o.ClipboardCmd, "output.clipboard_cmd"); err != nil {
			return err
		}
	}

	if d := payload.Debug; d != nil {
		if d.LogLevel != nil {
			cfg.Debug.LogLevel = strings.ToLower(strings.TrimSpace(*d.LogLevel))
		}
		setValue(&cfg.Debug.AudioDump, d.AudioDump)
		setValue(&cfg.Debug.EventDump, d.EventDump)
	}

	return nil
}
