// Package agent implements the multi-turn tool-calling conversation loop.
package agent

import (
	"context"

	"github.com/newsdesk-ai/newsdesk/pkg/models"
)

// Emitter delivers one stream event to the client. A non-nil error means
// the client is gone and the loop must stop promptly.
type Emitter func(models.StreamEvent) error

// MessageStore persists conversation turns produced by the loop.
// *services.MessageService satisfies it.
type MessageStore interface {
	Append(ctx context.Context, conversationID, role, content, thinking string) (*models.Message, error)
}

// Options configures a loop run.
type Options struct {
	Model         string
	MaxIterations int
	Temperature   float32
	MaxTokens     int
}
