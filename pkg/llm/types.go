// Package llm provides streaming clients for OpenAI-compatible chat
// providers, with retry and a completion cache.
package llm

import "context"

// ChatMessage is a provider-neutral prompt message.
type ChatMessage struct {
	Role       string
	Content    string
	ToolCalls  []ToolCall // set on assistant turns that requested tools
	ToolCallID string     // set on tool result turns
}

// ToolCall is a fully assembled tool invocation request.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // raw JSON
}

// ToolDefinition describes one callable tool in the request.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON Schema
}

// Request is a chat completion request.
type Request struct {
	Model       string
	Messages    []ChatMessage
	Tools       []ToolDefinition
	Temperature float32
	MaxTokens   int
	Thinking    bool // ask for the reasoning channel where the provider supports it
}

// ToolCallFragment is one streamed piece of a tool call. Fragments sharing
// an index belong to the same call; ID and Name arrive on the first
// fragment, ArgsDelta accumulates across the rest.
type ToolCallFragment struct {
	Index     int
	ID        string
	Name      string
	ArgsDelta string
}

// Delta is one fragment of a streamed completion. Exactly one payload field
// is set per delta; Err terminates the stream.
type Delta struct {
	Text         string
	Thinking     string
	ToolCall     *ToolCallFragment
	FinishReason string
	Err          error
}

// Client is the LLM access interface used by the agent and chat flows.
type Client interface {
	// Stream starts a streaming completion. The returned channel is closed
	// when the stream ends; a terminal failure arrives as Delta.Err.
	Stream(ctx context.Context, req Request) (<-chan Delta, error)

	// Complete runs a non-streaming completion and returns the full text.
	Complete(ctx context.Context, req Request) (string, error)
}
