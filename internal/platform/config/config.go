package config

// Config is the root server configuration, loaded from YAML with .env
// overlay for secrets.
type Config struct {
	Server     ServerConfig              `yaml:"server"`
	Log        LogConfig                 `yaml:"log"`
	Web        WebConfig                 `yaml:"web"`
	Generation GenerationConfig          `yaml:"generation"`
	Assembly   AssemblyConfig            `yaml:"assembly"`
	Storage    StorageConfig             `yaml:"storage"`
	Catalog    CatalogConfig             `yaml:"catalog_cache"`
	Classifier ClassifierConfig          `yaml:"classifier"`
	Providers  map[string]ProviderConfig `yaml:"providers"`
	Selected   SelectedConfig            `yaml:"selected_providers"`
}

type ServerConfig struct {
	IP   string `yaml:"ip"`
	Port int    `yaml:"port"`
}

type LogConfig struct {
	Level string `yaml:"log_level"`
	Dir   string `yaml:"log_dir"`
	File  string `yaml:"log_file"`
}

type WebConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// GenerationConfig tunes the orchestrator.
type GenerationConfig struct {
	BatchSize        int    `yaml:"batch_size"`
	NarratorName     string `yaml:"narrator_name"`
	NarratorGender   string `yaml:"narrator_gender"`
	SynthesisTimeout int    `yaml:"synthesis_timeout_seconds"`
	CloningTimeout   int    `yaml:"cloning_timeout_seconds"`
}

// AssemblyConfig tunes the audio assembler and its engine.
type AssemblyConfig struct {
	FFmpegPath string   `yaml:"ffmpeg_path"`
	TargetLUFS float64  `yaml:"target_lufs"`
	TruePeak   float64  `yaml:"true_peak_db"`
	Bitrate    string   `yaml:"bitrate"`
	SampleRate int      `yaml:"sample_rate"`
	Formats    []string `yaml:"formats"`
}

type StorageConfig struct {
	Dir string `yaml:"dir"`
}

// CatalogConfig selects the voice catalog cache backend.
type CatalogConfig struct {
	Type  string             `yaml:"type"` // memory | redis
	TTL   int                `yaml:"ttl_minutes"`
	Redis CatalogRedisConfig `yaml:"redis"`
}

type CatalogRedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

// ClassifierConfig selects the character/emotion classifier backend.
type ClassifierConfig struct {
	Type      string `yaml:"type"` // heuristic | openai
	APIKey    string `yaml:"api_key,omitempty"`
	BaseURL   string `yaml:"url,omitempty"`
	ModelName string `yaml:"model_name,omitempty"`
}

// ProviderConfig configures one speech synthesis backend.
type ProviderConfig struct {
	Type          string  `yaml:"type"` // elevenlabs | openai | edge
	APIKey        string  `yaml:"api_key,omitempty"`
	BaseURL       string  `yaml:"url,omitempty"`
	ModelName     string  `yaml:"model_name,omitempty"`
	Voice         string  `yaml:"voice,omitempty"`
	Format        string  `yaml:"format,omitempty"`
	CostPerChar   float64 `yaml:"cost_per_char"`
	TimeoutSecond int     `yaml:"timeout_seconds,omitempty"`
	SupportsClone bool    `yaml:"supports_cloning,omitempty"`
}

// SelectedConfig pins the primary and fallback synthesis providers.
type SelectedConfig struct {
	Primary  string `yaml:"primary"`
	Fallback string `yaml:"fallback"`
}
