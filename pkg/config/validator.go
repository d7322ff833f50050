package config

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMissingCredential indicates the selected LLM provider has no API key
	ErrMissingCredential = errors.New("missing provider credential")

	// ErrInvalidValue indicates a field has an invalid value
	ErrInvalidValue = errors.New("invalid field value")
)

// ValidationError wraps configuration validation errors with field context
type ValidationError struct {
	Field string
	Err   error
}

// Error returns formatted error message
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config field '%s': %v", e.Field, e.Err)
}

// Unwrap returns the underlying error
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Validate checks the resolved configuration. The only hard requirement is
// the credential for the selected provider: "zhipu" needs ZHIPU_API_KEY,
// every other provider tag is routed through the openrouter gateway and
// needs OPENROUTER_API_KEY.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "":
		return &ValidationError{Field: "LLM_PROVIDER", Err: ErrInvalidValue}
	case "zhipu":
		if c.LLM.ZhipuAPIKey == "" {
			return &ValidationError{Field: "ZHIPU_API_KEY", Err: ErrMissingCredential}
		}
	default:
		if c.LLM.OpenRouterKey == "" {
			return &ValidationError{Field: "OPENROUTER_API_KEY", Err: ErrMissingCredential}
		}
	}

	if c.Agent.MaxToolIterations < 1 {
		return &ValidationError{Field: "MAX_TOOL_ITERATIONS", Err: ErrInvalidValue}
	}
	if c.Agent.MaxConversationHistory < 1 {
		return &ValidationError{Field: "MAX_CONVERSATION_HISTORY", Err: ErrInvalidValue}
	}
	if c.RSS.MaxArticles < 1 {
		return &ValidationError{Field: "RSS_MAX_ARTICLES", Err: ErrInvalidValue}
	}
	if c.Upload.MaxSize < 1 {
		return &ValidationError{Field: "UPLOAD_MAX_SIZE", Err: ErrInvalidValue}
	}
	if c.Retention.Enabled {
		if c.Retention.ConversationRetentionDays < 1 {
			return &ValidationError{Field: "CONVERSATION_RETENTION_DAYS", Err: ErrInvalidValue}
		}
		if c.Retention.CleanupInterval < time.Minute {
			return &ValidationError{Field: "CLEANUP_INTERVAL", Err: ErrInvalidValue}
		}
	}
	return nil
}
