// Package config loads the application configuration from YAML with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Canvas  CanvasConfig  `yaml:"canvas"`
	Actor   ActorConfig   `yaml:"actor"`
	LLM     LLMConfig     `yaml:"llm"`
	Store   StoreConfig   `yaml:"store"`
	Janitor JanitorConfig `yaml:"janitor"`
	Logger  LoggerConfig  `yaml:"logger"`
	Tracer  TracerConfig  `yaml:"tracer"`
}

// ServerConfig holds the HTTP/WebSocket listener settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// AllowedOrigins is the Origin allowlist for browser requests. Empty
	// means same-host only.
	AllowedOrigins []string `yaml:"allowed_origins"`
	// TrustedProxies are CIDRs whose X-Forwarded-For headers are honored
	// when resolving the client IP for rate limiting.
	TrustedProxies []string        `yaml:"trusted_proxies"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig holds the per-IP token bucket settings.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled"`
	RPS     float64 `yaml:"rps"`
	Burst   int     `yaml:"burst"`
}

// CanvasConfig holds the drawing surface settings.
type CanvasConfig struct {
	Width   int     `yaml:"width"`
	Height  int     `yaml:"height"`
	MinZoom float64 `yaml:"min_zoom"`
	MaxZoom float64 `yaml:"max_zoom"`
	// SessionIdleTimeout is how long an untouched session lives.
	SessionIdleTimeout time.Duration `yaml:"session_idle_timeout"`
}

// ActorConfig tunes the drawing actor's hand and turn behavior.
type ActorConfig struct {
	Speed        float64       `yaml:"speed"`
	Jitter       float64       `yaml:"jitter"`
	SystemPrompt string        `yaml:"system_prompt"`
	DrawingMode  string        `yaml:"drawing_mode"`
	Temperature  float64       `yaml:"temperature"`
	MaxTokens    int           `yaml:"max_tokens"`
	TurnTimeout  time.Duration `yaml:"turn_timeout"`
}

// LLMConfig holds the completion endpoint settings.
type LLMConfig struct {
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	ConnTimeout time.Duration `yaml:"conn_timeout"`
	RespTimeout time.Duration `yaml:"resp_timeout"`
	Pool        PoolConfig    `yaml:"pool"`
	Breaker     BreakerConfig `yaml:"breaker"`
}

// PoolConfig configures HTTP connection pooling toward the endpoint.
type PoolConfig struct {
	MaxIdleConns        int           `yaml:"max_idle_conns"`
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host"`
	MaxConnsPerHost     int           `yaml:"max_conns_per_host"`
	IdleConnTimeout     time.Duration `yaml:"idle_conn_timeout"`
}

// BreakerConfig configures the circuit breaker in front of the endpoint.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures before the
	// circuit opens.
	MaxFailures uint32 `yaml:"max_failures"`
	// Timeout is how long the circuit stays open before half-open.
	Timeout time.Duration `yaml:"timeout"`
	// Interval is the cyclic period of the closed state for clearing
	// failure counts. Zero means failures never reset until trip.
	Interval time.Duration `yaml:"interval"`
}

// StoreConfig holds the SQLite settings.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// JanitorConfig holds the maintenance schedule.
type JanitorConfig struct {
	Enabled bool `yaml:"enabled"`
	// MessagePruneSchedule is a cron expression for the message sweep.
	MessagePruneSchedule string        `yaml:"message_prune_schedule"`
	MessageTTL           time.Duration `yaml:"message_ttl"`
	// SessionSweepInterval is how often idle sessions are reaped.
	SessionSweepInterval time.Duration `yaml:"session_sweep_interval"`
	Vacuum               bool          `yaml:"vacuum"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
	Output string `yaml:"output"` // "stdout", "stderr", or a file path
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // "stdout" or "noop"
}

// Defaults returns the configuration used when no file is present.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8080",
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     10,
				Burst:   30,
			},
		},
		Canvas: CanvasConfig{
			Width:              1200,
			Height:             800,
			MinZoom:            0.25,
			MaxZoom:            4,
			SessionIdleTimeout: 30 * time.Minute,
		},
		Actor: ActorConfig{
			Speed:       1,
			Jitter:      1.3,
			MaxTokens:   4096,
			Temperature: 1,
			TurnTimeout: 2 * time.Minute,
		},
		LLM: LLMConfig{
			ConnTimeout: 30 * time.Second,
			RespTimeout: 120 * time.Second,
			Breaker: BreakerConfig{
				MaxFailures: 5,
				Timeout:     30 * time.Second,
				Interval:    60 * time.Second,
			},
		},
		Store: StoreConfig{
			Path: "./data/sketchbook.db",
		},
		Janitor: JanitorConfig{
			Enabled:              true,
			MessagePruneSchedule: "0 4 * * *",
			MessageTTL:           90 * 24 * time.Hour,
			SessionSweepInterval: 5 * time.Minute,
			Vacuum:               true,
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
	}
}

// Load reads a YAML config file and applies env var overrides. A missing
// file is not an error; defaults plus environment apply.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnvOverrides(cfg)
			if err := Validate(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	ApplyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides maps SKETCHBOOK_* env vars to config fields.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SKETCHBOOK_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("SKETCHBOOK_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("SKETCHBOOK_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("SKETCHBOOK_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("SKETCHBOOK_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("SKETCHBOOK_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("SKETCHBOOK_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("SKETCHBOOK_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
	if v := os.Getenv("SKETCHBOOK_ACTOR_SPEED"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.Actor.Speed = f
		}
	}
	if v := os.Getenv("SKETCHBOOK_RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.Server.RateLimit.RPS = f
		}
	}
}

// Validate checks cross-field constraints that YAML parsing cannot.
func Validate(cfg *Config) error {
	if cfg.Server.Addr == "" {
		return fmt.Errorf("config: server.addr must not be empty")
	}
	if cfg.Canvas.Width <= 0 || cfg.Canvas.Height <= 0 {
		return fmt.Errorf("config: canvas dimensions must be positive, got %dx%d",
			cfg.Canvas.Width, cfg.Canvas.Height)
	}
	if cfg.Canvas.MinZoom <= 0 || cfg.Canvas.MaxZoom < cfg.Canvas.MinZoom {
		return fmt.Errorf("config: invalid zoom range [%g, %g]",
			cfg.Canvas.MinZoom, cfg.Canvas.MaxZoom)
	}
	if cfg.Actor.Speed <= 0 {
		return fmt.Errorf("config: actor.speed must be positive, got %g", cfg.Actor.Speed)
	}
	if cfg.Server.RateLimit.Enabled {
		if cfg.Server.RateLimit.RPS <= 0 {
			return fmt.Errorf("config: rate_limit.rps must be positive when enabled")
		}
		if cfg.Server.RateLimit.Burst <= 0 {
			return fmt.Errorf("config: rate_limit.burst must be positive when enabled")
		}
	}
	if cfg.Janitor.Enabled && cfg.Janitor.MessagePruneSchedule == "" {
		return fmt.Errorf("config: janitor.message_prune_schedule must be set when enabled")
	}
	switch cfg.Logger.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("config: unknown logger.format %q", cfg.Logger.Format)
	}
	switch cfg.Tracer.Exporter {
	case "", "noop", "stdout":
	default:
		return fmt.Errorf("config: unknown tracer.exporter %q", cfg.Tracer.Exporter)
	}
	return nil
}
