package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreBolt     = "bolt"
	StoreRedis    = "redis"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a default; DATABASE_URL is only required for the postgres
// store driver.
type Config struct {
	// Server
	HTTPPort        string        `env:"HTTP_PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"90s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Reminder store
	StoreDriver   string `env:"STORE_DRIVER" envDefault:"bolt"`
	DatabaseURL   string `env:"DATABASE_URL"`
	DBMaxConns    int32  `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns    int32  `env:"DB_MIN_CONNS" envDefault:"1"`
	BoltPath      string `env:"BOLT_PATH" envDefault:"data/cogbot.db"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"cogbot:"`

	// Reminder reconciliation
	ReminderInterval  time.Duration `env:"REMINDER_INTERVAL" envDefault:"30s"`
	NotifyConcurrency int           `env:"NOTIFY_CONCURRENCY" envDefault:"4"`

	// Voice sessions
	IdleTimeout    time.Duration `env:"IDLE_TIMEOUT" envDefault:"15m"`
	MaxQueueSize   int           `env:"MAX_QUEUE_SIZE" envDefault:"50"`
	MaxTrackLength time.Duration `env:"MAX_TRACK_LENGTH" envDefault:"1h"`

	// External collaborators
	NotifierURL     string        `env:"NOTIFIER_URL" envDefault:"http://localhost:3000/dm"`
	NotifierTimeout time.Duration `env:"NOTIFIER_TIMEOUT" envDefault:"10s"`
	AudioNodeURL    string        `env:"AUDIO_NODE_URL" envDefault:"ws://localhost:2333"`
	AudioNodeToken  string        `env:"AUDIO_NODE_TOKEN"`
	YTDLPPath       string        `env:"YTDLP_PATH" envDefault:"yt-dlp"`
	ResolveTimeout  time.Duration `env:"RESOLVE_TIMEOUT" envDefault:"30s"`
	TTSURL          string        `env:"TTS_URL" envDefault:"http://localhost:5002/synthesize"`
	TTSVoice        string        `env:"TTS_VOICE" envDefault:"en-US-JennyNeural"`
	GeminiAPIKey    string        `env:"GEMINI_API_KEY"`
	GeminiModel     string        `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`
	ChatRetryDelay  time.Duration `env:"CHAT_RETRY_DELAY" envDefault:"5s"`

	// Rate limiting: maximum requests per second per outbound route
	NotifyRate  int `env:"RATE_LIMIT_NOTIFY" envDefault:"5"`
	ResolveRate int `env:"RATE_LIMIT_RESOLVE" envDefault:"2"`
	ChatRate    int `env:"RATE_LIMIT_CHAT" envDefault:"1"`
	SpeechRate  int `env:"RATE_LIMIT_SPEECH" envDefault:"2"`

	// Presence rotation
	PresenceURL      string        `env:"PRESENCE_URL"`
	PresenceStatuses []string      `env:"PRESENCE_STATUSES" envSeparator:"|" envDefault:"with fire|Work in Process...|Prefix: /"`
	PresenceInterval time.Duration `env:"PRESENCE_INTERVAL" envDefault:"30s"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreMemory, StoreBolt, StoreRedis:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for STORE_DRIVER=%s", StorePostgres)
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	if c.ReminderInterval <= 0 {
		return fmt.Errorf("REMINDER_INTERVAL must be positive")
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("IDLE_TIMEOUT must be positive")
	}
	if c.MaxQueueSize < 1 {
		return fmt.Errorf("MAX_QUEUE_SIZE must be at least 1")
	}
	if c.NotifyConcurrency < 1 {
		c.NotifyConcurrency = 1
	}
	return nil
}
