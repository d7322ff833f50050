// Package models contains request/response models and business domain types.
package models

import (
	"strings"
	"time"
)

// ConversationType distinguishes the plain chat flow from the tool-calling
// agent flow.
type ConversationType string

const (
	ConversationTypeChat  ConversationType = "chat"
	ConversationTypeAgent ConversationType = "agent"
)

// Valid reports whether t is a known conversation type.
func (t ConversationType) Valid() bool {
	return t == ConversationTypeChat || t == ConversationTypeAgent
}

// Message roles as persisted and sent to providers.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// Conversation is a visitor-owned message thread.
type Conversation struct {
	ID        string           `json:"id"`
	VisitorID string           `json:"visitor_id"`
	Title     string           `json:"title"`
	Type      ConversationType `json:"conversation_type"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Message is one turn in a conversation. Thinking holds the reasoning
// channel separated out of the stored content encoding.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	Thinking       string    `json:"thinking,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// CreateConversationRequest contains fields for creating a conversation
type CreateConversationRequest struct {
	Title            string           `json:"title"`
	ConversationType ConversationType `json:"conversation_type"`
}

// UpdateTitleRequest contains fields for renaming a conversation
type UpdateTitleRequest struct {
	Title string `json:"title"`
}

// GenerateTitleRequest carries the first user message for title generation
type GenerateTitleRequest struct {
	FirstMessage string `json:"first_message"`
}

// StreamChatRequest is the body of both streaming endpoints
type StreamChatRequest struct {
	ConversationID  string `json:"conversation_id"`
	Message         string `json:"message"`
	ThinkingEnabled bool   `json:"thinking_enabled"`
}

// ConversationListResponse contains a page of conversations
type ConversationListResponse struct {
	Conversations []*Conversation `json:"conversations"`
	Total         int             `json:"total"`
}

// MessageListResponse contains the messages of one conversation
type MessageListResponse struct {
	Messages []*Message `json:"messages"`
}

const (
	thinkingOpen  = "[THINKING]"
	thinkingClose = "[/THINKING]"
)

// EncodeContent folds the thinking channel into the single stored content
// column: "[THINKING]...[/THINKING]content". Messages without thinking are
// stored verbatim.
func EncodeContent(content, thinking string) string {
	if thinking == "" {
		return content
	}
	return thinkingOpen + thinking + thinkingClose + content
}

// DecodeContent splits a stored content column back into content and
// thinking. Content that does not carry the marker pair passes through.
func DecodeContent(stored string) (content, thinking string) {
	if !strings.HasPrefix(stored, thinkingOpen) {
		return stored, ""
	}
	end := strings.Index(stored, thinkingClose)
	if end < 0 {
		return stored, ""
	}
	thinking = stored[len(thinkingOpen):end]
	content = stored[end+len(thinkingClose):]
	return content, thinking
}
