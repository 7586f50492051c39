package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	clipboard := "wl-copy --trim-newline"

	return Config{
		Recognizer: RecognizerConfig{
			Transport:      TransportWebSocket,
			Endpoint:       "ws://127.0.0.1:2700/v1/stream",
			Locale:         "en-US",
			OnDevice:       true,
			StartTimeoutMS: 5000,
		},
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
		Session: SessionConfig{
			PauseMS:             2000,
			IntelligentAnalysis: true,
			HistoryLimit:        25,
			RegressionRatio:     0.5,
		},
		Store: StoreConfig{Backend: BackendFile},
		Cache: CacheConfig{TTLSeconds: 300},
		Indicator: IndicatorConfig{
			Enable:         true,
			DesktopAppName: "scribe",
			SoundEnable:    true,
			ErrorTimeoutMS: 1600,
		},
		Output: OutputConfig{
			Clipboard:    false,
			ClipboardCmd: mustParseCommand(clipboard),
		},
		Debug: DebugConfig{LogLevel: "info"},
	}
}
