package factory

import (
	"fmt"
	"strings"
	"time"

	"github.com/chin3/hat-manager/llm"
	"github.com/chin3/hat-manager/llm/providers/openai"
	"github.com/chin3/hat-manager/llm/providers/openaicompat"
	"go.uber.org/zap"
)

// Config selects and configures a provider.
type Config struct {
	// Provider is "openai" (go-openai SDK) or "openaicompat" (plain HTTP).
	Provider     string
	APIKey       string
	BaseURL      string
	Organization string
	DefaultModel string
	Timeout      time.Duration
}

// NewProvider builds the provider named by cfg.Provider.
func NewProvider(cfg Config, logger *zap.Logger) (llm.Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "openai":
		return openai.New(openai.Config{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			Organization: cfg.Organization,
			DefaultModel: cfg.DefaultModel,
			Timeout:      cfg.Timeout,
		}, logger), nil
	case "openaicompat", "compat", "ollama", "vllm":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("provider %q requires a base_url", cfg.Provider)
		}
		return openaicompat.New(openaicompat.Config{
			ProviderName: strings.ToLower(cfg.Provider),
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.DefaultModel,
			Timeout:      cfg.Timeout,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
