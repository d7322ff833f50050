// Package cleanup provides the data retention background service.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/newsdesk-ai/newsdesk/pkg/config"
	"github.com/newsdesk-ai/newsdesk/pkg/services"
)

// Service periodically deletes conversations idle past the retention window.
// Deletes cascade to messages. Idempotent and safe to run from multiple pods.
type Service struct {
	config        config.RetentionConfig
	conversations *services.ConversationService

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a new cleanup service.
func NewService(cfg config.RetentionConfig, conversations *services.ConversationService) *Service {
	return &Service{
		config:        cfg,
		conversations: conversations,
	}
}

// Start launches the background cleanup loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("Cleanup service started",
		"conversation_retention_days", s.config.ConversationRetentionDays,
		"interval", s.config.CleanupInterval)
}

// Stop signals the cleanup loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("Cleanup service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.deleteIdleConversations(ctx)

	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.deleteIdleConversations(ctx)
		}
	}
}

func (s *Service) deleteIdleConversations(ctx context.Context) {
	count, err := s.conversations.DeleteIdle(ctx, s.config.ConversationRetentionDays)
	if err != nil {
		slog.Error("Retention: delete idle conversations failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("Retention: deleted idle conversations", "count", count)
	}
}
