package api

import (
	"net/http"
	"strconv"

	echo "github.com/labstack/echo/v5"

	"github.com/newsdesk-ai/newsdesk/pkg/llm"
	"github.com/newsdesk-ai/newsdesk/pkg/models"
)

// createConversationHandler handles POST /api/conversations.
func (s *Server) createConversationHandler(c *echo.Context) error {
	var req models.CreateConversationRequest
	if err := c.Bind(&req); err != nil {
		return bindError(c, err)
	}

	conv, err := s.conversations.Create(c.Request().Context(), visitorID(c), req)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, conv)
}

// listConversationsHandler handles GET /api/conversations.
// Supports skip/limit pagination and an optional conversation_type filter.
func (s *Server) listConversationsHandler(c *echo.Context) error {
	skip, _ := strconv.Atoi(c.QueryParam("skip"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	var convType *models.ConversationType
	if raw := c.QueryParam("conversation_type"); raw != "" {
		t := models.ConversationType(raw)
		convType = &t
	}

	conversations, total, err := s.conversations.List(c.Request().Context(), visitorID(c), skip, limit, convType)
	if err != nil {
		return mapServiceError(c, err)
	}
	if conversations == nil {
		conversations = []*models.Conversation{}
	}
	return c.JSON(http.StatusOK, &models.ConversationListResponse{
		Conversations: conversations,
		Total:         total,
	})
}

// getConversationHandler handles GET /api/conversations/:id.
func (s *Server) getConversationHandler(c *echo.Context) error {
	conv, err := s.conversations.Get(c.Request().Context(), c.Param("id"), visitorID(c))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, conv)
}

// deleteConversationHandler handles DELETE /api/conversations/:id.
func (s *Server) deleteConversationHandler(c *echo.Context) error {
	if err := s.conversations.Delete(c.Request().Context(), c.Param("id"), visitorID(c)); err != nil {
		return mapServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// updateTitleHandler handles PUT /api/conversations/:id/title.
func (s *Server) updateTitleHandler(c *echo.Context) error {
	var req models.UpdateTitleRequest
	if err := c.Bind(&req); err != nil {
		return bindError(c, err)
	}

	if err := s.conversations.UpdateTitle(c.Request().Context(), c.Param("id"), visitorID(c), req.Title); err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, &TitleResponse{Title: req.Title})
}

// generateTitleHandler handles POST /api/conversations/:id/generate-title.
// Asks the model for a short title based on the first user message and
// stores it. Model failures degrade to a prefix of the message, never to an
// error response.
func (s *Server) generateTitleHandler(c *echo.Context) error {
	var req models.GenerateTitleRequest
	if err := c.Bind(&req); err != nil {
		return bindError(c, err)
	}
	if req.FirstMessage == "" {
		return validationError(c, "first_message", "first_message is required")
	}

	// Ownership check before spending an LLM call.
	conv, err := s.conversations.Get(c.Request().Context(), c.Param("id"), visitorID(c))
	if err != nil {
		return mapServiceError(c, err)
	}

	title := llm.GenerateTitle(c.Request().Context(), s.llmClient, s.cfg.LLM.Model, req.FirstMessage)
	if err := s.conversations.UpdateTitle(c.Request().Context(), conv.ID, visitorID(c), title); err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, &TitleResponse{Title: title})
}

// listMessagesHandler handles GET /api/conversations/:id/messages.
func (s *Server) listMessagesHandler(c *echo.Context) error {
	// Scope check first: a foreign conversation must look missing.
	conv, err := s.conversations.Get(c.Request().Context(), c.Param("id"), visitorID(c))
	if err != nil {
		return mapServiceError(c, err)
	}

	messages, err := s.messages.List(c.Request().Context(), conv.ID)
	if err != nil {
		return mapServiceError(c, err)
	}
	if messages == nil {
		messages = []*models.Message{}
	}
	return c.JSON(http.StatusOK, &models.MessageListResponse{Messages: messages})
}
