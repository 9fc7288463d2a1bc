package provider

import (
	"github.com/pkg/errors"

	"github.com/openhouse-crm/assistant/config"
)

// New creates the provider adapter selected by configuration.
func New(cfg *config.Config) (Adapter, error) {
	switch cfg.Provider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, errors.New("OPENAI_API_KEY is required for the openai provider")
		}
		return NewOpenAIAdapter(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.Model), nil
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, errors.New("ANTHROPIC_API_KEY is required for the anthropic provider")
		}
		return NewAnthropicAdapter(cfg.AnthropicAPIKey, "", cfg.Model, cfg.ProviderTimeout), nil
	case "mock":
		return NewMockAdapter(), nil
	}
	return nil, errors.Errorf("unknown provider %q", cfg.Provider)
}
