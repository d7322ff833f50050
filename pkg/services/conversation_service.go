// Package services contains business logic service layer implementations.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/newsdesk-ai/newsdesk/pkg/models"
)

// DB is the query surface services need; *pgxpool.Pool satisfies it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const dbTimeout = 5 * time.Second

// DefaultTitle names conversations before title generation runs.
const DefaultTitle = "New Conversation"

// ConversationService manages visitor-owned conversations.
// Every read and write is scoped by visitor ID; a conversation owned by a
// different visitor behaves exactly like a missing one.
type ConversationService struct {
	db DB
}

// NewConversationService creates a new ConversationService
func NewConversationService(db DB) *ConversationService {
	return &ConversationService{db: db}
}

// Create creates a conversation for a visitor. The type defaults to "chat"
// and the title to DefaultTitle.
func (s *ConversationService) Create(httpCtx context.Context, visitorID string, req models.CreateConversationRequest) (*models.Conversation, error) {
	if visitorID == "" {
		return nil, NewValidationError("visitor_id", "required")
	}
	convType := req.ConversationType
	if convType == "" {
		convType = models.ConversationTypeChat
	}
	if !convType.Valid() {
		return nil, NewValidationError("conversation_type", "must be 'chat' or 'agent'")
	}
	title := req.Title
	if title == "" {
		title = DefaultTitle
	}

	ctx, cancel := context.WithTimeout(httpCtx, dbTimeout)
	defer cancel()

	conv := &models.Conversation{
		ID:        uuid.New().String(),
		VisitorID: visitorID,
		Title:     title,
		Type:      convType,
	}
	err := s.db.QueryRow(ctx,
		`INSERT INTO conversations (id, visitor_id, title, conversation_type)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at, updated_at`,
		conv.ID, conv.VisitorID, conv.Title, string(conv.Type),
	).Scan(&conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conv, nil
}

// Get returns a conversation by ID, scoped to the visitor.
func (s *ConversationService) Get(httpCtx context.Context, id, visitorID string) (*models.Conversation, error) {
	ctx, cancel := context.WithTimeout(httpCtx, dbTimeout)
	defer cancel()

	conv := &models.Conversation{}
	err := s.db.QueryRow(ctx,
		`SELECT id, visitor_id, title, conversation_type, created_at, updated_at
		 FROM conversations WHERE id = $1 AND visitor_id = $2`,
		id, visitorID,
	).Scan(&conv.ID, &conv.VisitorID, &conv.Title, &conv.Type, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return conv, nil
}

// List returns a page of the visitor's conversations ordered by most
// recently updated, optionally filtered by type. The second return value is
// the total matching count before pagination.
func (s *ConversationService) List(httpCtx context.Context, visitorID string, skip, limit int, convType *models.ConversationType) ([]*models.Conversation, int, error) {
	if limit <= 0 {
		limit = 20
	}
	if skip < 0 {
		skip = 0
	}

	ctx, cancel := context.WithTimeout(httpCtx, dbTimeout)
	defer cancel()

	where := `WHERE visitor_id = $1`
	args := []any{visitorID}
	if convType != nil {
		if !convType.Valid() {
			return nil, 0, NewValidationError("conversation_type", "must be 'chat' or 'agent'")
		}
		where += ` AND conversation_type = $2`
		args = append(args, string(*convType))
	}

	var total int
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM conversations `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count conversations: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT id, visitor_id, title, conversation_type, created_at, updated_at
		 FROM conversations %s
		 ORDER BY updated_at DESC
		 OFFSET $%d LIMIT $%d`, where, len(args)+1, len(args)+2)
	args = append(args, skip, limit)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var conversations []*models.Conversation
	for rows.Next() {
		conv := &models.Conversation{}
		if err := rows.Scan(&conv.ID, &conv.VisitorID, &conv.Title, &conv.Type, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan conversation: %w", err)
		}
		conversations = append(conversations, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read conversations: %w", err)
	}
	return conversations, total, nil
}

// UpdateTitle renames a conversation, scoped to the visitor.
func (s *ConversationService) UpdateTitle(httpCtx context.Context, id, visitorID, title string) error {
	if title == "" {
		return NewValidationError("title", "required")
	}

	ctx, cancel := context.WithTimeout(httpCtx, dbTimeout)
	defer cancel()

	tag, err := s.db.Exec(ctx,
		`UPDATE conversations SET title = $1, updated_at = now()
		 WHERE id = $2 AND visitor_id = $3`,
		title, id, visitorID)
	if err != nil {
		return fmt.Errorf("failed to update title: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a conversation and, via cascade, its messages.
func (s *ConversationService) Delete(httpCtx context.Context, id, visitorID string) error {
	ctx, cancel := context.WithTimeout(httpCtx, dbTimeout)
	defer cancel()

	tag, err := s.db.Exec(ctx,
		`DELETE FROM conversations WHERE id = $1 AND visitor_id = $2`,
		id, visitorID)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteIdle removes conversations across all visitors that have seen no
// activity for retentionDays, cascading to their messages. Returns the
// number of conversations deleted. Idempotent and safe to run from multiple
// replicas.
func (s *ConversationService) DeleteIdle(httpCtx context.Context, retentionDays int) (int64, error) {
	if retentionDays < 1 {
		return 0, NewValidationError("retention_days", "must be at least 1")
	}

	ctx, cancel := context.WithTimeout(httpCtx, dbTimeout)
	defer cancel()

	tag, err := s.db.Exec(ctx,
		`DELETE FROM conversations
		 WHERE updated_at < now() - make_interval(days => $1)`,
		retentionDays)
	if err != nil {
		return 0, fmt.Errorf("failed to delete idle conversations: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Touch bumps the conversation's updated_at so it sorts to the top of the
// list after new activity.
func (s *ConversationService) Touch(httpCtx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(httpCtx, dbTimeout)
	defer cancel()

	_, err := s.db.Exec(ctx,
		`UPDATE conversations SET updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	return nil
}
