package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents runtime configuration derived from environment variables.
type Config struct {
	Server    ServerConfig
	Logging   LoggingConfig
	Ingest    IngestConfig
	LLM       LLMConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server runtime parameters.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// LoggingConfig represents structured logging configuration.
type LoggingConfig struct {
	Level  slog.Level
	Format string
}

// IngestConfig holds the /ingest write-path's own runtime parameters,
// separate from auth (see internal/auth).
type IngestConfig struct {
	MaxAgeDays int // satire/temporal gate's max-age window
}

// LLMConfig holds credentials for the optional AI adjudicator (C6/C9).
// Absence of both keys disables the adjudicator gracefully: the pipeline
// falls back to the rule-based classifier and Tier-2 score alone.
type LLMConfig struct {
	OpenAIAPIKey    string
	OpenAIBaseURL   string // set when OPENROUTER_API_KEY is used instead
	OpenAIModel     string
	AnthropicAPIKey string
	AnthropicModel  string
}

// Enabled reports whether at least one backend has credentials configured.
func (c LLMConfig) Enabled() bool {
	return c.OpenAIAPIKey != "" || c.AnthropicAPIKey != ""
}

// CORSConfig holds the exact-match origin allow-list.
type CORSConfig struct {
	AllowedOrigins []string
}

// Allowed reports whether origin is on the allow-list. An unconfigured
// (empty) allow-list permits every origin, matching this deployment's
// dev-mode default rather than locking out every browser caller.
func (c CORSConfig) Allowed(origin string) bool {
	if len(c.AllowedOrigins) == 0 {
		return true
	}
	for _, o := range c.AllowedOrigins {
		if o == origin {
			return true
		}
	}
	return false
}

// RateLimitConfig bounds inbound request rate on the write path.
type RateLimitConfig struct {
	MaxRequests int
	Window      time.Duration
}

const (
	defaultPort            = "8080"
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultShutdownTimeout = 5 * time.Second

	defaultLogFormat = "json"

	defaultMaxAgeDays           = 60
	defaultRateLimitMaxRequests = 60
	defaultRateLimitWindow      = time.Minute

	defaultOpenAIModel    = "gpt-4o-mini"
	defaultAnthropicModel = "claude-3-5-haiku-20241022"
	openRouterBaseURL     = "https://openrouter.ai/api/v1"
)

// Load reads configuration from environment variables, applying defaults when
// values are not provided and returning an error when a value is invalid.
func Load() (Config, error) {
	// Cloud Run sets PORT, but allow SERVER_PORT override for local dev
	port := getEnv("PORT", "")
	if port == "" {
		port = getEnv("SERVER_PORT", defaultPort)
	}

	cfg := Config{
		Server: ServerConfig{
			Port:            port,
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Logging: LoggingConfig{
			Level:  slog.LevelInfo,
			Format: defaultLogFormat,
		},
	}

	if v := os.Getenv("SERVER_READ_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_READ_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.ReadTimeout = d
	}

	if v := os.Getenv("SERVER_WRITE_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_WRITE_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.WriteTimeout = d
	}

	if v := os.Getenv("SERVER_SHUTDOWN_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_SHUTDOWN_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.ShutdownTimeout = d
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		cfg.Logging.Level = level
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		switch v {
		case "json", "text":
			cfg.Logging.Format = v
		default:
			return Config{}, fmt.Errorf("invalid LOG_FORMAT: must be 'json' or 'text'")
		}
	}

	cfg.Ingest = IngestConfig{MaxAgeDays: defaultMaxAgeDays}
	if v := os.Getenv("MAX_AGE_DAYS"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days <= 0 {
			return Config{}, fmt.Errorf("invalid MAX_AGE_DAYS: must be a positive integer")
		}
		cfg.Ingest.MaxAgeDays = days
	}

	cfg.LLM = loadLLMConfig()

	cfg.CORS = CORSConfig{AllowedOrigins: parseCSV(os.Getenv("ALLOWED_ORIGINS"))}

	cfg.RateLimit = RateLimitConfig{
		MaxRequests: defaultRateLimitMaxRequests,
		Window:      defaultRateLimitWindow,
	}
	if v := os.Getenv("RATE_LIMIT_MAX_REQUESTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid RATE_LIMIT_MAX_REQUESTS: must be a positive integer")
		}
		cfg.RateLimit.MaxRequests = n
	}
	if v := os.Getenv("RATE_LIMIT_WINDOW"); v != "" {
		seconds, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RATE_LIMIT_WINDOW: %w", err)
		}
		cfg.RateLimit.Window = seconds
	}

	return cfg, nil
}

// loadLLMConfig resolves the AI adjudicator's backend credentials.
// OPENROUTER_API_KEY takes precedence over OPENAI_API_KEY and redirects the
// OpenAI-compatible client at OpenRouter's endpoint; either, both, or
// neither may be set independent of ANTHROPIC_API_KEY.
func loadLLMConfig() LLMConfig {
	cfg := LLMConfig{
		OpenAIModel:    getEnv("OPENAI_MODEL", defaultOpenAIModel),
		AnthropicModel: getEnv("ANTHROPIC_MODEL", defaultAnthropicModel),
	}

	if key := os.Getenv("OPENROUTER_API_KEY"); key != "" {
		cfg.OpenAIAPIKey = key
		cfg.OpenAIBaseURL = openRouterBaseURL
	} else if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.OpenAIAPIKey = key
	}

	cfg.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")

	return cfg
}

func parseCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseSeconds(raw string) (time.Duration, error) {
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0, fmt.Errorf("must be a non-negative integer")
	}
	return time.Duration(seconds) * time.Second, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch raw {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("must be one of debug, info, warn, error")
	}
}
