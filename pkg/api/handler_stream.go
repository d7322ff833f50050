package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/newsdesk-ai/newsdesk/pkg/agent"
	"github.com/newsdesk-ai/newsdesk/pkg/llm"
	"github.com/newsdesk-ai/newsdesk/pkg/models"
)

// chatStreamHandler handles POST /api/chat/stream.
// Streams a plain model reply over SSE; no tools are offered.
func (s *Server) chatStreamHandler(c *echo.Context) error {
	req, conv, err := s.prepareStream(c)
	if err != nil {
		return err
	}

	model := s.cfg.LLM.Model
	if req.ThinkingEnabled {
		model = s.cfg.LLM.ThinkingModel
	}

	history, err := s.loadHistory(c.Request().Context(), conv.ID, agent.ChatSystemPrompt)
	if err != nil {
		return mapServiceError(c, err)
	}

	emit := sseEmitter(c)
	// Errors past this point already reached the client as SSE error
	// events; the response is committed.
	_ = s.newChat(model).Run(c.Request().Context(), conv.ID, history, req.ThinkingEnabled, emit)
	return nil
}

// agentStreamHandler handles POST /api/agent/stream.
// Runs the tool-calling loop and streams every event over SSE.
func (s *Server) agentStreamHandler(c *echo.Context) error {
	req, conv, err := s.prepareStream(c)
	if err != nil {
		return err
	}

	history, err := s.loadHistory(c.Request().Context(), conv.ID, agent.NewsAgentSystemPrompt)
	if err != nil {
		return mapServiceError(c, err)
	}

	emit := sseEmitter(c)
	_ = s.newLoop(s.cfg.LLM.AgentModel).Run(c.Request().Context(), conv.ID, history, req.ThinkingEnabled, emit)
	return nil
}

// prepareStream binds and validates the streaming request, checks
// conversation ownership, and persists the user message.
func (s *Server) prepareStream(c *echo.Context) (*models.StreamChatRequest, *models.Conversation, error) {
	var req models.StreamChatRequest
	if err := c.Bind(&req); err != nil {
		return nil, nil, bindError(c, err)
	}
	if req.Message == "" {
		return nil, nil, validationError(c, "message", "message is required")
	}
	if req.ConversationID == "" {
		return nil, nil, validationError(c, "conversation_id", "conversation_id is required")
	}

	conv, err := s.conversations.Get(c.Request().Context(), req.ConversationID, visitorID(c))
	if err != nil {
		return nil, nil, mapServiceError(c, err)
	}

	if _, err := s.messages.Append(c.Request().Context(), conv.ID, models.RoleUser, req.Message, ""); err != nil {
		return nil, nil, mapServiceError(c, err)
	}
	return &req, conv, nil
}

// loadHistory builds the prompt window: the system prompt followed by the
// newest configured slice of the conversation, which already includes the
// just-persisted user message.
func (s *Server) loadHistory(ctx context.Context, conversationID, systemPrompt string) ([]llm.ChatMessage, error) {
	recent, err := s.messages.Recent(ctx, conversationID, s.cfg.Agent.MaxConversationHistory)
	if err != nil {
		return nil, err
	}

	history := make([]llm.ChatMessage, 0, len(recent)+1)
	history = append(history, llm.ChatMessage{Role: models.RoleSystem, Content: systemPrompt})
	for _, msg := range recent {
		history = append(history, llm.ChatMessage{Role: msg.Role, Content: msg.Content})
	}
	return history, nil
}

// sseEmitter commits the SSE response headers and returns an emitter that
// writes one data frame per event, flushing after each so tokens reach the
// browser as they arrive.
func sseEmitter(c *echo.Context) agent.Emitter {
	h := c.Response().Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	// Tells nginx-style proxies not to buffer the stream.
	h.Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	rc := http.NewResponseController(c.Response())

	return func(ev models.StreamEvent) error {
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(c.Response(), "data: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	}
}
