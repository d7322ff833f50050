package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

type clientOptions struct {
	maxRetries     int
	retryDelay     time.Duration
	requestTimeout time.Duration
}

// openAIClient talks to any OpenAI-compatible chat endpoint.
type openAIClient struct {
	client   *openai.Client
	settings providerSettings
	opts     clientOptions
}

func newOpenAIClient(settings providerSettings, opts clientOptions) *openAIClient {
	if opts.maxRetries < 1 {
		opts.maxRetries = 3
	}
	if opts.retryDelay <= 0 {
		opts.retryDelay = time.Second
	}
	if opts.requestTimeout <= 0 {
		opts.requestTimeout = 60 * time.Second
	}

	cfg := openai.DefaultConfig(settings.apiKey)
	cfg.BaseURL = settings.baseURL
	cfg.HTTPClient = &http.Client{Timeout: opts.requestTimeout}

	return &openAIClient{
		client:   openai.NewClientWithConfig(cfg),
		settings: settings,
		opts:     opts,
	}
}

func (c *openAIClient) buildRequest(req Request, stream bool) openai.ChatCompletionRequest {
	model := req.Model
	if c.settings.modelOverride != "" {
		model = c.settings.modelOverride
	}

	out := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    convertMessages(req.Messages),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      stream,
	}
	for _, tool := range req.Tools {
		out.Tools = append(out.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}
	return out
}

// Stream starts a streaming completion. Stream creation is retried with
// linear backoff on transport-level failures; errors after the stream opens
// surface as a terminal Delta.Err.
func (c *openAIClient) Stream(ctx context.Context, req Request) (<-chan Delta, error) {
	chatReq := c.buildRequest(req, true)

	var stream *openai.ChatCompletionStream
	var lastErr error
	for attempt := 0; attempt < c.opts.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.opts.retryDelay * time.Duration(attempt)):
			}
			slog.Warn("Retrying LLM stream", "attempt", attempt+1, "error", lastErr)
		}

		stream, lastErr = c.client.CreateChatCompletionStream(ctx, chatReq)
		if lastErr == nil {
			break
		}
		if !isRetryable(lastErr) {
			return nil, fmt.Errorf("llm request failed: %w", lastErr)
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("llm request failed after %d attempts: %w", c.opts.maxRetries, lastErr)
	}

	deltas := make(chan Delta)
	go c.pump(ctx, stream, req.Thinking, deltas)
	return deltas, nil
}

// pump converts the provider stream into Delta values. One Delta per
// payload: text and thinking fragments pass through, tool-call fragments
// carry the provider index so the consumer can reassemble calls. Some
// providers send reasoning content unsolicited; when the request did not ask
// for thinking those fragments are dropped.
func (c *openAIClient) pump(ctx context.Context, stream *openai.ChatCompletionStream, thinking bool, deltas chan<- Delta) {
	defer close(deltas)
	defer stream.Close()

	send := func(d Delta) bool {
		select {
		case deltas <- d:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		response, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			send(Delta{Err: err})
			return
		}
		if len(response.Choices) == 0 {
			continue
		}
		choice := response.Choices[0]

		if choice.Delta.ReasoningContent != "" && thinking {
			if !send(Delta{Thinking: choice.Delta.ReasoningContent}) {
				return
			}
		}
		if choice.Delta.Content != "" {
			if !send(Delta{Text: choice.Delta.Content}) {
				return
			}
		}
		for _, tc := range choice.Delta.ToolCalls {
			index := 0
			if tc.Index != nil {
				index = *tc.Index
			}
			fragment := &ToolCallFragment{
				Index:     index,
				ID:        tc.ID,
				Name:      tc.Function.Name,
				ArgsDelta: tc.Function.Arguments,
			}
			if !send(Delta{ToolCall: fragment}) {
				return
			}
		}
		if choice.FinishReason != "" {
			if !send(Delta{FinishReason: string(choice.FinishReason)}) {
				return
			}
		}
	}
}

// Complete runs a non-streaming completion with the same retry policy.
func (c *openAIClient) Complete(ctx context.Context, req Request) (string, error) {
	chatReq := c.buildRequest(req, false)

	var lastErr error
	for attempt := 0; attempt < c.opts.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(c.opts.retryDelay * time.Duration(attempt)):
			}
			slog.Warn("Retrying LLM completion", "attempt", attempt+1, "error", lastErr)
		}

		resp, err := c.client.CreateChatCompletion(ctx, chatReq)
		if err == nil {
			if len(resp.Choices) == 0 {
				return "", errors.New("llm returned no choices")
			}
			return resp.Choices[0].Message.Content, nil
		}
		lastErr = err
		if !isRetryable(err) {
			return "", fmt.Errorf("llm request failed: %w", err)
		}
	}
	return "", fmt.Errorf("llm request failed after %d attempts: %w", c.opts.maxRetries, lastErr)
}

func convertMessages(messages []ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		converted := openai.ChatCompletionMessage{
			Role:       msg.Role,
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
		}
		for _, tc := range msg.ToolCalls {
			converted.ToolCalls = append(converted.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		out = append(out, converted)
	}
	return out
}

// isRetryable classifies transport-level failures worth retrying: rate
// limits, 5xx responses and timeouts. Auth and validation failures are not.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests ||
			apiErr.HTTPStatusCode >= 500
	}

	msg := err.Error()
	return strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "deadline exceeded") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset")
}
