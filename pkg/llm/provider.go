package llm

import (
	"fmt"
	"time"

	"github.com/newsdesk-ai/newsdesk/pkg/config"
)

const (
	zhipuBaseURL      = "https://open.bigmodel.cn/api/paas/v4"
	openRouterBaseURL = "https://openrouter.ai/api/v1"
)

// providerSettings is the resolved transport configuration for one provider
// tag.
type providerSettings struct {
	apiKey  string
	baseURL string
	// thinking-capable providers stream a separate reasoning channel
	thinkingCapable bool
	// modelOverride forces every request onto one model; used when an
	// unknown provider tag is routed through the openrouter gateway with
	// the tag as the model id.
	modelOverride string
}

// resolveProvider maps the configured provider tag to transport settings.
// "zhipu" talks to the bigmodel endpoint directly; "openrouter" uses the
// gateway with the configured models; any other tag is treated as a gateway
// model id, so new models work without code changes.
func resolveProvider(cfg config.LLMConfig) (providerSettings, error) {
	switch cfg.Provider {
	case "zhipu":
		if cfg.ZhipuAPIKey == "" {
			return providerSettings{}, fmt.Errorf("provider %q: missing ZHIPU_API_KEY", cfg.Provider)
		}
		return providerSettings{
			apiKey:          cfg.ZhipuAPIKey,
			baseURL:         orDefault(cfg.BaseURL, zhipuBaseURL),
			thinkingCapable: true,
		}, nil
	case "openrouter":
		if cfg.OpenRouterKey == "" {
			return providerSettings{}, fmt.Errorf("provider %q: missing OPENROUTER_API_KEY", cfg.Provider)
		}
		return providerSettings{
			apiKey:  cfg.OpenRouterKey,
			baseURL: orDefault(cfg.BaseURL, openRouterBaseURL),
		}, nil
	default:
		if cfg.OpenRouterKey == "" {
			return providerSettings{}, fmt.Errorf("provider %q: missing OPENROUTER_API_KEY", cfg.Provider)
		}
		return providerSettings{
			apiKey:        cfg.OpenRouterKey,
			baseURL:       orDefault(cfg.BaseURL, openRouterBaseURL),
			modelOverride: cfg.Provider,
		}, nil
	}
}

func orDefault(val, def string) string {
	if val != "" {
		return val
	}
	return def
}

// NewFromConfig builds the production client stack: an OpenAI-compatible
// streaming client wrapped, when enabled, by the completion cache.
func NewFromConfig(cfg config.LLMConfig, cache config.CacheConfig) (Client, error) {
	settings, err := resolveProvider(cfg)
	if err != nil {
		return nil, err
	}

	client := newOpenAIClient(settings, clientOptions{
		maxRetries:     cfg.MaxRetries,
		retryDelay:     time.Second,
		requestTimeout: cfg.RequestTimeout,
	})

	if cache.Enabled {
		return NewCachingClient(client, cache.MaxSize, cache.TTL), nil
	}
	return client, nil
}
