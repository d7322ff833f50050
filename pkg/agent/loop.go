package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/newsdesk-ai/newsdesk/pkg/agent/tools"
	"github.com/newsdesk-ai/newsdesk/pkg/llm"
	"github.com/newsdesk-ai/newsdesk/pkg/models"
)

// softLimitNotice is sent with the done event when the loop stops because it
// hit the iteration cap rather than because the model finished.
const softLimitNotice = "Reached the tool call limit for this turn. The answer above is based on the information gathered so far."

// skipWarningFmt is the tool result sent back to the model when the guard
// rejects a repeated call.
const skipWarningFmt = "⚠️ Skipped repeated call to %s. Use the results already gathered instead of calling it again."

// Loop runs the tool-calling conversation flow: stream a completion, execute
// any requested tools, feed the results back, and repeat until the model
// answers without tools or the iteration cap is reached.
type Loop struct {
	llm    llm.Client
	tools  *tools.Registry
	store  MessageStore
	opts   Options
	logger *slog.Logger
}

// NewLoop creates a loop. store may be nil when persistence is not wanted.
func NewLoop(client llm.Client, registry *tools.Registry, store MessageStore, opts Options) *Loop {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 5
	}
	return &Loop{
		llm:    client,
		tools:  registry,
		store:  store,
		opts:   opts,
		logger: slog.Default().With("component", "agent"),
	}
}

// Run drives one agent turn. history must already include the system prompt
// and the new user message; the user message itself is persisted by the
// caller. Run persists the assistant's answer and emits stream events as the
// turn progresses. A non-nil return means the turn ended with an error event.
func (l *Loop) Run(ctx context.Context, conversationID string, history []llm.ChatMessage, thinkingEnabled bool, emit Emitter) error {
	messages := make([]llm.ChatMessage, len(history))
	copy(messages, history)

	guard := newCallGuard()
	catalogue := l.tools.Catalogue()

	var finalText strings.Builder
	var finalThinking strings.Builder

	for iteration := 1; iteration <= l.opts.MaxIterations; iteration++ {
		text, thinking, calls, err := l.streamOnce(ctx, messages, catalogue, thinkingEnabled, emit)
		if err != nil {
			return err
		}

		if text != "" {
			if finalText.Len() > 0 {
				finalText.WriteString("\n\n")
			}
			finalText.WriteString(text)
		}
		finalThinking.WriteString(thinking)

		if len(calls) == 0 {
			l.persist(ctx, conversationID, finalText.String(), finalThinking.String())
			return emit(models.DoneEvent(""))
		}

		l.logger.Info("Executing tool calls",
			"conversation_id", conversationID,
			"iteration", iteration,
			"calls", len(calls))

		// The assistant turn that requested the tools, then one tool
		// result message per call. Content is "" when the model emitted
		// no text alongside the calls, never absent.
		messages = append(messages, llm.ChatMessage{
			Role:      models.RoleAssistant,
			Content:   text,
			ToolCalls: calls,
		})

		for _, call := range calls {
			resultMsg, err := l.runCall(ctx, conversationID, guard, call, emit)
			if err != nil {
				return err
			}
			messages = append(messages, resultMsg)
		}
	}

	l.persist(ctx, conversationID, finalText.String(), finalThinking.String())
	return emit(models.DoneEvent(softLimitNotice))
}

// streamOnce runs a single streaming completion, forwarding text and thinking
// deltas to the client and assembling any tool call fragments.
func (l *Loop) streamOnce(ctx context.Context, messages []llm.ChatMessage, catalogue []llm.ToolDefinition, thinkingEnabled bool, emit Emitter) (text, thinking string, calls []llm.ToolCall, err error) {
	req := llm.Request{
		Model:       l.opts.Model,
		Messages:    messages,
		Tools:       catalogue,
		Temperature: l.opts.Temperature,
		MaxTokens:   l.opts.MaxTokens,
		Thinking:    thinkingEnabled,
	}

	deltas, err := l.llm.Stream(ctx, req)
	if err != nil {
		l.logger.Error("LLM stream failed to start", "error", err)
		_ = emit(models.ErrorEvent(err.Error()))
		return "", "", nil, err
	}

	asm := newAssembler()
	var textBuf, thinkingBuf strings.Builder

	for delta := range deltas {
		switch {
		case delta.Err != nil:
			l.logger.Error("LLM stream failed", "error", delta.Err)
			_ = emit(models.ErrorEvent(delta.Err.Error()))
			return "", "", nil, delta.Err
		case delta.Thinking != "":
			thinkingBuf.WriteString(delta.Thinking)
			if err := emit(models.ThinkingEvent(delta.Thinking)); err != nil {
				return "", "", nil, err
			}
		case delta.Text != "":
			textBuf.WriteString(delta.Text)
			if err := emit(models.DeltaEvent(delta.Text)); err != nil {
				return "", "", nil, err
			}
		case delta.ToolCall != nil:
			asm.add(delta.ToolCall)
		}
	}

	return textBuf.String(), thinkingBuf.String(), asm.finish(), nil
}

// runCall executes one tool call and returns the tool result message to feed
// back to the model. Tool failures are reported to the model and the client,
// not returned; only a dead client ends the run here.
func (l *Loop) runCall(ctx context.Context, conversationID string, guard *callGuard, call llm.ToolCall, emit Emitter) (llm.ChatMessage, error) {
	args := decodeArgs(call.Arguments)

	if guard.shouldSkip(call.Name, args) {
		warning := fmt.Sprintf(skipWarningFmt, call.Name)
		l.logger.Warn("Skipping repeated tool call",
			"conversation_id", conversationID,
			"tool", call.Name)
		if err := emit(models.ToolResultEvent(call.Name, warning, true)); err != nil {
			return llm.ChatMessage{}, err
		}
		return toolMessage(call.ID, warning), nil
	}
	guard.record(call.Name, args)

	if err := emit(models.ToolCallEvent(call.Name, args)); err != nil {
		return llm.ChatMessage{}, err
	}

	result, err := l.tools.Execute(ctx, call.Name, args)
	if err != nil {
		l.logger.Warn("Tool execution failed",
			"conversation_id", conversationID,
			"tool", call.Name,
			"error", err)
		serialized := err.Error()
		if emitErr := emit(models.ToolResultEvent(call.Name, serialized, true)); emitErr != nil {
			return llm.ChatMessage{}, emitErr
		}
		return toolMessage(call.ID, serialized), nil
	}

	serialized := tools.SerializeResult(result)
	if err := emit(models.ToolResultEvent(call.Name, serialized, false)); err != nil {
		return llm.ChatMessage{}, err
	}
	return toolMessage(call.ID, serialized), nil
}

func (l *Loop) persist(ctx context.Context, conversationID, content, thinking string) {
	if l.store == nil || conversationID == "" {
		return
	}
	if _, err := l.store.Append(ctx, conversationID, models.RoleAssistant, content, thinking); err != nil {
		l.logger.Error("Failed to persist assistant message",
			"conversation_id", conversationID,
			"error", err)
	}
}

func toolMessage(callID, content string) llm.ChatMessage {
	return llm.ChatMessage{
		Role:       models.RoleTool,
		Content:    content,
		ToolCallID: callID,
	}
}

// decodeArgs parses the model's argument JSON. Malformed JSON degrades to an
// empty argument map so schema validation produces the real error message.
func decodeArgs(raw string) map[string]any {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil || args == nil {
		return map[string]any{}
	}
	return args
}
