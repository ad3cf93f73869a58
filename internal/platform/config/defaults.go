package config

// DefaultConfig returns the configuration used when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			IP:   "0.0.0.0",
			Port: 8000,
		},
		Log: LogConfig{
			Level: "INFO",
			Dir:   "data/logs",
			File:  "server.log",
		},
		Web: WebConfig{
			Enabled: true,
			Port:    8080,
		},
		Generation: GenerationConfig{
			BatchSize:        5,
			NarratorName:     "narrator",
			NarratorGender:   "neutral",
			SynthesisTimeout: 60,
			CloningTimeout:   300,
		},
		Assembly: AssemblyConfig{
			FFmpegPath: "ffmpeg",
			TargetLUFS: -18.0,
			TruePeak:   -1.5,
			Bitrate:    "128k",
			SampleRate: 44100,
			Formats:    []string{"mp3", "m4b"},
		},
		Storage: StorageConfig{
			Dir: "data",
		},
		Catalog: CatalogConfig{
			Type: "memory",
			TTL:  60,
		},
		Classifier: ClassifierConfig{
			Type: "heuristic",
		},
		Providers: map[string]ProviderConfig{
			"elevenlabs": {
				Type:          "elevenlabs",
				BaseURL:       "https://api.elevenlabs.io",
				APIKey:        "${ELEVENLABS_API_KEY}",
				ModelName:     "eleven_multilingual_v2",
				Format:        "mp3",
				CostPerChar:   0.00003,
				TimeoutSecond: 60,
				SupportsClone: true,
			},
			"openai": {
				Type:          "openai",
				APIKey:        "${OPENAI_API_KEY}",
				ModelName:     "tts-1",
				Format:        "mp3",
				CostPerChar:   0.000015,
				TimeoutSecond: 60,
			},
			"edge": {
				Type:   "edge",
				Voice:  "en-US-AriaNeural",
				Format: "mp3",
			},
		},
		Selected: SelectedConfig{
			Primary:  "elevenlabs",
			Fallback: "edge",
		},
	}
}
