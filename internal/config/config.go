package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token    string `yaml:"token"`
	Password string `yaml:"password"` // empty means no password gate
	Workers  int    `yaml:"workers"`  // polling update workers
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type OpsConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"` // bearer key guarding /api/v1/status
}

type RedisConfig struct {
	URL      string `yaml:"url"` // empty disables redis, auth falls back to file
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type STTConfig struct {
	Provider string `yaml:"provider"` // whisper | elevenlabs | google

	OpenAIKey     string `yaml:"openai_key"`
	WhisperModel  string `yaml:"whisper_model"`
	ElevenLabsKey string `yaml:"elevenlabs_key"`
	GoogleKey     string `yaml:"google_key"`
	GoogleModel   string `yaml:"google_model"`

	LanguageHint string `yaml:"language_hint"` // optional BCP-47 tag
}

type PipelineConfig struct {
	QueueCapacity int `yaml:"queue_capacity"`
	Workers       int `yaml:"workers"`
	MaxAttempts   int `yaml:"max_attempts"`

	FetchTimeout      time.Duration `yaml:"fetch_timeout"`
	ConvertTimeout    time.Duration `yaml:"convert_timeout"`
	TranscribeTimeout time.Duration `yaml:"transcribe_timeout"`
	DeliverTimeout    time.Duration `yaml:"deliver_timeout"`

	BackoffBase time.Duration `yaml:"backoff_base"`
	BackoffCap  time.Duration `yaml:"backoff_cap"`

	Retention time.Duration `yaml:"retention"` // terminal jobs kept for status queries
}

type StorageConfig struct {
	TempDir          string `yaml:"temp_dir"`
	FreeSpaceFloorMB int64  `yaml:"free_space_floor_mb"`
	MaxFileSizeMB    int64  `yaml:"max_file_size_mb"`

	AuthFile   string `yaml:"auth_file"`
	RequestLog string `yaml:"request_log"` // empty disables the audit log
}

type Config struct {
	Bot      BotConfig      `yaml:"bot"`
	Log      LogConfig      `yaml:"log"`
	Ops      OpsConfig      `yaml:"ops"`
	Redis    RedisConfig    `yaml:"redis"`
	STT      STTConfig      `yaml:"stt"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Storage  StorageConfig  `yaml:"storage"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	// Minimal validation
	if cfg.Bot.Token == "" {
		return nil, errors.New("bot.token is required")
	}
	if err := cfg.validateProvider(); err != nil {
		return nil, err
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 4
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Ops.Port == 0 {
		cfg.Ops.Port = 8080
	}
	if cfg.STT.Provider == "" {
		cfg.STT.Provider = "whisper"
	}
	if cfg.STT.WhisperModel == "" {
		cfg.STT.WhisperModel = "whisper-1"
	}
	if cfg.STT.GoogleModel == "" {
		cfg.STT.GoogleModel = "gemini-2.0-flash"
	}
	if cfg.Pipeline.QueueCapacity <= 0 {
		cfg.Pipeline.QueueCapacity = 32
	}
	if cfg.Pipeline.Workers <= 0 {
		cfg.Pipeline.Workers = 2
	}
	if cfg.Pipeline.MaxAttempts <= 0 {
		cfg.Pipeline.MaxAttempts = 3
	}
	if cfg.Pipeline.FetchTimeout <= 0 {
		cfg.Pipeline.FetchTimeout = 60 * time.Second
	}
	if cfg.Pipeline.ConvertTimeout <= 0 {
		cfg.Pipeline.ConvertTimeout = 120 * time.Second
	}
	if cfg.Pipeline.TranscribeTimeout <= 0 {
		cfg.Pipeline.TranscribeTimeout = 300 * time.Second
	}
	if cfg.Pipeline.DeliverTimeout <= 0 {
		cfg.Pipeline.DeliverTimeout = 30 * time.Second
	}
	if cfg.Pipeline.BackoffBase <= 0 {
		cfg.Pipeline.BackoffBase = 500 * time.Millisecond
	}
	if cfg.Pipeline.BackoffCap <= 0 {
		cfg.Pipeline.BackoffCap = 30 * time.Second
	}
	if cfg.Pipeline.Retention <= 0 {
		cfg.Pipeline.Retention = 10 * time.Minute
	}
	if cfg.Storage.TempDir == "" {
		cfg.Storage.TempDir = os.TempDir()
	}
	if cfg.Storage.FreeSpaceFloorMB <= 0 {
		cfg.Storage.FreeSpaceFloorMB = 256
	}
	if cfg.Storage.MaxFileSizeMB <= 0 {
		cfg.Storage.MaxFileSizeMB = 50
	}
	if cfg.Storage.AuthFile == "" {
		cfg.Storage.AuthFile = "data/authorized_users.json"
	}
}

func (cfg *Config) validateProvider() error {
	switch cfg.STT.Provider {
	case "whisper":
		if cfg.STT.OpenAIKey == "" {
			return errors.New("stt.openai_key required for whisper")
		}
	case "elevenlabs":
		if cfg.STT.ElevenLabsKey == "" {
			return errors.New("stt.elevenlabs_key required for elevenlabs")
		}
	case "google":
		if cfg.STT.GoogleKey == "" {
			return errors.New("stt.google_key required for google")
		}
	default:
		return fmt.Errorf("unknown stt.provider %q", cfg.STT.Provider)
	}
	return nil
}
