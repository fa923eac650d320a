package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Version is set at build time.
var Version = "dev"

var globalConfig atomic.Pointer[Config]

// Config holds all environment backed configuration for plm-chat-api.
type Config struct {
	// HTTP Server
	HTTPPort           int      `env:"HTTP_PORT" envDefault:"8000"`
	MetricsPort        int      `env:"METRICS_PORT" envDefault:"9091"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost,http://localhost:3000,http://localhost:8000,http://127.0.0.1"`

	// OpenBOM
	OpenBOMBaseURL     string        `env:"OPENBOM_API_BASE_URL" envDefault:"https://developer-api.openbom.com"`
	OpenBOMAPIKey      string        `env:"OPENBOM_API_KEY"`
	OpenBOMAccessToken string        `env:"OPENBOM_ACCESS_TOKEN"`
	OpenBOMUsername    string        `env:"OPENBOM_USERNAME"`
	OpenBOMPassword    string        `env:"OPENBOM_PASSWORD"`
	OpenBOMHTTPTimeout time.Duration `env:"OPENBOM_HTTP_TIMEOUT" envDefault:"15s"`

	// LLM
	OpenAIAPIKey   string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL  string        `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	DefaultModel   string        `env:"DEFAULT_MODEL" envDefault:"gpt-3.5-turbo"`
	LLMTemperature float32       `env:"LLM_TEMPERATURE" envDefault:"0.7"`
	LLMTimeout     time.Duration `env:"LLM_TIMEOUT" envDefault:"60s"`

	// Conversation and context assembly
	MaxHistoryLength        int           `env:"MAX_HISTORY_LENGTH" envDefault:"10"`
	PLMLookupTimeout        time.Duration `env:"PLM_LOOKUP_TIMEOUT" envDefault:"10s"`
	PLMMaxCandidates        int           `env:"PLM_MAX_CANDIDATES" envDefault:"5"`
	PLMLookupConcurrency    int           `env:"PLM_LOOKUP_CONCURRENCY" envDefault:"8"`
	ContextMaxFragmentChars int           `env:"CONTEXT_MAX_FRAGMENT_CHARS" envDefault:"2000"`

	// Sessions
	SessionMax                  int           `env:"SESSION_MAX" envDefault:"1000"`
	SessionIdleTTL              time.Duration `env:"SESSION_IDLE_TTL" envDefault:"30m"`
	SessionSweepIntervalMinutes int           `env:"SESSION_SWEEP_INTERVAL_MINUTES" envDefault:"5"`

	// Observability / Logging
	OTLPEndpoint     string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPHeaders      string `env:"OTEL_EXPORTER_OTLP_HEADERS"`
	ServiceName      string `env:"SERVICE_NAME" envDefault:"plm-chat-api"`
	ServiceNamespace string `env:"SERVICE_NAMESPACE" envDefault:"jan"`
	Environment      string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat        string `env:"LOG_FORMAT" envDefault:"console"`
	LogPIILevel      string `env:"LOG_PII_LEVEL" envDefault:"hashed"`

	// Internal
	EnvReloadedAt time.Time
}

// Load reads .env files when present, parses the environment into Config
// and installs the result as the global config.
func Load() (*Config, error) {
	loadEnvFiles()
	cfg, err := parse(env.Options{})
	if err != nil {
		return nil, err
	}
	globalConfig.Store(cfg)
	return cfg, nil
}

// LoadFromMap parses configuration from the given variables only.
func LoadFromMap(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.OpenBOMBaseURL = strings.TrimRight(strings.TrimSpace(cfg.OpenBOMBaseURL), "/")
	cfg.OpenAIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.OpenAIBaseURL), "/")
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	cfg.EnvReloadedAt = time.Now()
	return cfg, nil
}

func (c *Config) validate() error {
	if _, err := url.ParseRequestURI(c.OpenBOMBaseURL); err != nil {
		return fmt.Errorf("invalid OPENBOM_API_BASE_URL: %w", err)
	}
	if _, err := url.ParseRequestURI(c.OpenAIBaseURL); err != nil {
		return fmt.Errorf("invalid OPENAI_BASE_URL: %w", err)
	}
	if c.MaxHistoryLength < 0 {
		return errors.New("MAX_HISTORY_LENGTH must not be negative")
	}
	if c.PLMLookupTimeout <= 0 || c.LLMTimeout <= 0 {
		return errors.New("PLM_LOOKUP_TIMEOUT and LLM_TIMEOUT must be positive")
	}
	if c.PLMMaxCandidates <= 0 || c.PLMLookupConcurrency <= 0 {
		return errors.New("PLM_MAX_CANDIDATES and PLM_LOOKUP_CONCURRENCY must be positive")
	}
	if c.SessionMax <= 0 {
		return errors.New("SESSION_MAX must be positive")
	}
	return nil
}

// HasOpenBOMLogin reports whether username/password login is configured.
func (c *Config) HasOpenBOMLogin() bool {
	return c.OpenBOMUsername != "" && c.OpenBOMPassword != ""
}

// GetGlobal returns the config installed by the last successful Load.
// Components that honour reloads read their knobs from here on every use.
func GetGlobal() *Config {
	return globalConfig.Load()
}

// SetGlobal replaces the global config; nil clears it.
func SetGlobal(cfg *Config) {
	globalConfig.Store(cfg)
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
