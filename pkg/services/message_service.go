package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/newsdesk-ai/newsdesk/pkg/models"
)

// MessageService persists conversation turns. The thinking channel is folded
// into the single content column on write and split back out on read.
type MessageService struct {
	db DB
}

// NewMessageService creates a new MessageService
func NewMessageService(db DB) *MessageService {
	return &MessageService{db: db}
}

// Append stores one turn and bumps the conversation's updated_at.
// Ownership is the caller's concern: handlers resolve the conversation
// through ConversationService.Get before appending.
func (s *MessageService) Append(httpCtx context.Context, conversationID, role, content, thinking string) (*models.Message, error) {
	if conversationID == "" {
		return nil, NewValidationError("conversation_id", "required")
	}
	if role == "" {
		return nil, NewValidationError("role", "required")
	}

	ctx, cancel := context.WithTimeout(httpCtx, dbTimeout)
	defer cancel()

	msg := &models.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Thinking:       thinking,
	}
	err := s.db.QueryRow(ctx,
		`INSERT INTO messages (id, conversation_id, role, content)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		msg.ID, conversationID, role, models.EncodeContent(content, thinking),
	).Scan(&msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}

	if _, err := s.db.Exec(ctx,
		`UPDATE conversations SET updated_at = now() WHERE id = $1`, conversationID); err != nil {
		// The message is stored; a stale sort position is not worth failing for.
		slog.Warn("Failed to touch conversation after append",
			"conversation_id", conversationID, "error", err)
	}
	return msg, nil
}

// List returns every message of a conversation in chronological order.
func (s *MessageService) List(httpCtx context.Context, conversationID string) ([]*models.Message, error) {
	ctx, cancel := context.WithTimeout(httpCtx, dbTimeout)
	defer cancel()

	rows, err := s.db.Query(ctx,
		`SELECT id, conversation_id, role, content, created_at
		 FROM messages WHERE conversation_id = $1
		 ORDER BY seq ASC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// Recent returns the newest limit messages in chronological order, forming
// the prompt window for the next model call.
func (s *MessageService) Recent(httpCtx context.Context, conversationID string, limit int) ([]*models.Message, error) {
	if limit <= 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(httpCtx, dbTimeout)
	defer cancel()

	rows, err := s.db.Query(ctx,
		`SELECT id, conversation_id, role, content, created_at
		 FROM messages WHERE conversation_id = $1
		 ORDER BY seq DESC LIMIT $2`, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent messages: %w", err)
	}
	defer rows.Close()

	messages, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}
	// Newest-first from the query; callers want chronological.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func scanMessages(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]*models.Message, error) {
	var messages []*models.Message
	for rows.Next() {
		msg := &models.Message{}
		var stored string
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &stored, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Content, msg.Thinking = models.DecodeContent(stored)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}
	return messages, nil
}
