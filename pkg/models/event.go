package models

import "fmt"

// Stream event types emitted over the SSE channel.
const (
	EventThinking   = "thinking"
	EventDelta      = "delta"
	EventToolCall   = "tool_call"
	EventToolResult = "tool_result"
	EventDone       = "done"
	EventError      = "error"
)

// StreamEvent is the envelope serialised as one SSE data frame.
// Type is always set; the remaining fields depend on it. Content carries
// text for thinking/delta, the announcement for tool_call, the serialised
// result or warning for tool_result, and the failure message for error.
type StreamEvent struct {
	Type     string         `json:"type"`
	Content  string         `json:"content,omitempty"`
	ToolName string         `json:"tool_name,omitempty"`
	ToolArgs map[string]any `json:"tool_arguments,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ThinkingEvent carries a reasoning-channel fragment.
func ThinkingEvent(content string) StreamEvent {
	return StreamEvent{Type: EventThinking, Content: content}
}

// DeltaEvent carries a visible text fragment.
func DeltaEvent(content string) StreamEvent {
	return StreamEvent{Type: EventDelta, Content: content}
}

// ToolCallEvent announces a tool invocation before execution.
func ToolCallEvent(tool string, args map[string]any) StreamEvent {
	return StreamEvent{
		Type:     EventToolCall,
		ToolName: tool,
		ToolArgs: args,
		Content:  fmt.Sprintf("Calling tool %s", tool),
	}
}

// ToolResultEvent carries a tool outcome. isError marks failures and
// skipped duplicate calls so clients can render them distinctly.
func ToolResultEvent(tool, result string, isError bool) StreamEvent {
	ev := StreamEvent{Type: EventToolResult, ToolName: tool, Content: result}
	if isError {
		ev.Metadata = map[string]any{"error": true}
	}
	return ev
}

// DoneEvent terminates a stream. Content is empty on normal completion and
// carries a notice when the iteration cap forced the conclusion.
func DoneEvent(content string) StreamEvent {
	return StreamEvent{Type: EventDone, Content: content}
}

// ErrorEvent terminates a stream after an unrecoverable failure.
func ErrorEvent(message string) StreamEvent {
	return StreamEvent{Type: EventError, Content: message}
}
