package agent

import (
	"context"
	"log/slog"
	"strings"

	"github.com/newsdesk-ai/newsdesk/pkg/llm"
	"github.com/newsdesk-ai/newsdesk/pkg/models"
)

// Chat streams a plain conversation turn: one completion, no tools.
type Chat struct {
	llm    llm.Client
	store  MessageStore
	opts   Options
	logger *slog.Logger
}

// NewChat creates a chat streamer. store may be nil when persistence is not
// wanted.
func NewChat(client llm.Client, store MessageStore, opts Options) *Chat {
	return &Chat{
		llm:    client,
		store:  store,
		opts:   opts,
		logger: slog.Default().With("component", "chat"),
	}
}

// Run streams one assistant reply, persists it, and emits a done event.
func (c *Chat) Run(ctx context.Context, conversationID string, history []llm.ChatMessage, thinkingEnabled bool, emit Emitter) error {
	req := llm.Request{
		Model:       c.opts.Model,
		Messages:    history,
		Temperature: c.opts.Temperature,
		MaxTokens:   c.opts.MaxTokens,
		Thinking:    thinkingEnabled,
	}

	deltas, err := c.llm.Stream(ctx, req)
	if err != nil {
		c.logger.Error("LLM stream failed to start", "error", err)
		_ = emit(models.ErrorEvent(err.Error()))
		return err
	}

	var text, thinking strings.Builder
	for delta := range deltas {
		switch {
		case delta.Err != nil:
			c.logger.Error("LLM stream failed", "error", delta.Err)
			_ = emit(models.ErrorEvent(delta.Err.Error()))
			return delta.Err
		case delta.Thinking != "":
			thinking.WriteString(delta.Thinking)
			if err := emit(models.ThinkingEvent(delta.Thinking)); err != nil {
				return err
			}
		case delta.Text != "":
			text.WriteString(delta.Text)
			if err := emit(models.DeltaEvent(delta.Text)); err != nil {
				return err
			}
		}
	}

	if c.store != nil && conversationID != "" {
		if _, err := c.store.Append(ctx, conversationID, models.RoleAssistant, text.String(), thinking.String()); err != nil {
			c.logger.Error("Failed to persist assistant message",
				"conversation_id", conversationID,
				"error", err)
		}
	}
	return emit(models.DoneEvent(""))
}
