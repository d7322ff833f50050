package llm

import (
	"context"
	"log/slog"
	"strings"

	"github.com/newsdesk-ai/newsdesk/pkg/models"
)

// MaxTitleLength caps generated conversation titles, counted in runes.
const MaxTitleLength = 15

const titlePrompt = "Summarize the user's message as a conversation title of at " +
	"most 15 characters. Reply with the title only, no quotes or punctuation."

// GenerateTitle asks the model for a short conversation title based on the
// first user message. Any failure falls back silently to a prefix of the
// message; title generation must never break the conversation flow.
func GenerateTitle(ctx context.Context, client Client, model, firstMessage string) string {
	title, err := client.Complete(ctx, Request{
		Model: model,
		Messages: []ChatMessage{
			{Role: models.RoleSystem, Content: titlePrompt},
			{Role: models.RoleUser, Content: firstMessage},
		},
		Temperature: 0.3,
		MaxTokens:   30,
	})
	if err != nil {
		slog.Warn("Title generation failed, using prefix fallback", "error", err)
		return TruncateTitle(firstMessage)
	}

	title = strings.TrimSpace(strings.Trim(strings.TrimSpace(title), `"'“”`))
	if title == "" {
		return TruncateTitle(firstMessage)
	}
	return TruncateTitle(title)
}

// TruncateTitle trims text to MaxTitleLength runes.
func TruncateTitle(text string) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= MaxTitleLength {
		return text
	}
	return string(runes[:MaxTitleLength])
}
