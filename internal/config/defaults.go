package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Audio: AudioConfig{
			Input:      "default",
			Fallback:   "default",
			SampleRate: SampleRate,
			ChunkMS:    500,
		},
		Engine: EngineConfig{
			Backend:   BackendNative,
			Language:  "te",
			BeamSize:  5,
			ServerURL: "http://127.0.0.1:8080",
		},
		Batch: BatchConfig{
			SilenceMS:    500,
			MaxWindowMS:  10000,
			MinSpeechMS:  300,
			RMSThreshold: 0.0092,
		},
		Transcript: TranscriptConfig{
			FilterAnnotations: true,
		},
		Sinks: SinksConfig{
			NATS: NATSConfig{Subject: "vinu.transcript"},
		},
		History: HistoryConfig{Keep: 500},
		Log:     LogConfig{Level: "info"},
		Debug:   DebugConfig{},
	}
}
