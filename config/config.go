// Package config provides configuration for the assistant service.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/openhouse-crm/assistant/internal/domain"
)

// Config holds the assistant service configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Database
	DatabaseURL string

	// Provider settings
	Provider        string
	Model           string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	AnthropicAPIKey string
	ProviderTimeout time.Duration

	// Conversation settings
	MaxTurns     int
	HistoryScope domain.HistoryScope
	HistoryLimit int
	ChatTimeout  time.Duration

	// Notifications
	NotifierURL string

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		HTTPPort:        getEnvInt("HTTP_PORT", 8080),
		DatabaseURL:     getEnv("DATABASE_URL", "file:assistant.db?cache=shared&mode=rwc"),
		Provider:        getEnv("LLM_PROVIDER", "openai"),
		Model:           getEnv("LLM_MODEL", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		ProviderTimeout: time.Duration(getEnvInt("LLM_TIMEOUT_MS", 60000)) * time.Millisecond,
		MaxTurns:        getEnvInt("MAX_TURNS", 5),
		HistoryScope:    domain.HistoryScope(getEnv("HISTORY_SCOPE", string(domain.HistoryScopeUser))),
		HistoryLimit:    getEnvInt("HISTORY_LIMIT", 50),
		ChatTimeout:     time.Duration(getEnvInt("CHAT_TIMEOUT_MS", 120000)) * time.Millisecond,
		NotifierURL:     getEnv("NOTIFIER_URL", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}
	if cfg.HistoryScope != domain.HistoryScopeSession {
		cfg.HistoryScope = domain.HistoryScopeUser
	}
	if cfg.MaxTurns < 1 {
		cfg.MaxTurns = 5
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
