// Package config loads the service configuration from .env and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/tanpawarit/research-agent/internal/agent/model"
	"github.com/tanpawarit/research-agent/internal/core"
	logx "github.com/tanpawarit/research-agent/pkg/logger"
	pkgqdrant "github.com/tanpawarit/research-agent/pkg/qdrant"
	pkgredis "github.com/tanpawarit/research-agent/pkg/redis"
	pkgsqlite "github.com/tanpawarit/research-agent/pkg/sqlite"
)

const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

type HTTPConfig struct {
	Addr            string        `envconfig:"HTTP_ADDR" default:":3001"`
	ShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
	CORSOrigin      string        `envconfig:"HTTP_CORS_ORIGIN" default:"*"`
}

// AppConfig defines all configurable parameters of the service,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	HTTP HTTPConfig

	// Infrastructure
	Redis  pkgredis.Config
	SQLite pkgsqlite.Config
	Qdrant pkgqdrant.Config

	// LLM provider and models
	Provider model.ProviderConfig
	Research model.ResearchModelConfig
	Summary  model.SummaryModelConfig

	// Agent configs
	Agent        model.AgentConfig
	Search       model.SearchConfig
	Memory       model.MemoryConfig
	Conversation model.ConversationConfig
}

// Load reads envFile when present, then binds the environment.
func Load(envFile string) (AppConfig, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			logx.Warn().Err(err).Str("file", envFile).Msg("Could not load env file")
		}
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("process environment config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// Validate reports every missing or malformed setting at once.
func (c AppConfig) Validate() error {
	var errs []error

	switch strings.ToLower(c.Provider.Provider) {
	case "gemini":
		if c.Provider.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required for the gemini provider"))
		}
	case "openai":
		if c.Provider.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown LLM_PROVIDER %q", c.Provider.Provider))
	}

	if c.Search.APIKey == "" {
		errs = append(errs, errors.New("TAVILY_API_KEY is required"))
	}

	switch c.StoreBackend() {
	case StoreMemory, StoreRedis, StoreSQLite:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.Conversation.Backend))
	}
	if _, err := c.ConversationTTL(); err != nil {
		errs = append(errs, err)
	}

	if c.Agent.ToolMaxResults < 0 || c.Agent.RecursionLimit < 0 {
		errs = append(errs, errors.New("agent limits must not be negative"))
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("HTTP_SHUTDOWN_TIMEOUT must be > 0"))
	}
	return errors.Join(errs...)
}

// Env returns the parsed deployment environment.
func (c AppConfig) Env() core.Environment {
	return core.ParseEnvironment(c.Environment)
}

// StoreBackend returns the normalized conversation store name.
func (c AppConfig) StoreBackend() string {
	b := strings.ToLower(strings.TrimSpace(c.Conversation.Backend))
	if b == "" {
		return StoreMemory
	}
	return b
}

// ConversationTTL parses CONVERSATION_TTL; zero keeps conversations forever.
func (c AppConfig) ConversationTTL() (time.Duration, error) {
	raw := strings.TrimSpace(c.Conversation.TTL)
	if raw == "" || raw == "0" {
		return 0, nil
	}
	ttl, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid CONVERSATION_TTL %q: %w", c.Conversation.TTL, err)
	}
	if ttl < 0 {
		return 0, fmt.Errorf("invalid CONVERSATION_TTL %q: must not be negative", c.Conversation.TTL)
	}
	return ttl, nil
}
