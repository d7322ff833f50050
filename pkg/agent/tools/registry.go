// Package tools implements the agent's tool registry and built-in tools.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/newsdesk-ai/newsdesk/pkg/llm"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	// ErrUnknownTool indicates the requested tool is not registered.
	ErrUnknownTool = errors.New("unknown tool")
)

// ToolFailure wraps a handler error so callers can distinguish tool-level
// failures from registry-level ones.
type ToolFailure struct {
	Tool string
	Err  error
}

func (e *ToolFailure) Error() string {
	return fmt.Sprintf("tool '%s' failed: %v", e.Tool, e.Err)
}

func (e *ToolFailure) Unwrap() error {
	return e.Err
}

// Handler executes one tool call. The returned value is serialised for the
// model: maps and slices as JSON, everything else as a string.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Definition declares one callable tool.
type Definition struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON Schema for the arguments object
	Handler     Handler
}

type registeredTool struct {
	def    Definition
	schema *jsonschema.Schema
}

// Registry holds the agent's tool set. Registration happens once during
// construction; afterwards the registry is read-only and safe for
// concurrent use.
type Registry struct {
	tools map[string]*registeredTool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*registeredTool)}
}

// Register adds a tool. The parameter schema is compiled eagerly so a
// malformed schema fails at startup, not mid-conversation. Re-registering a
// name overwrites the previous definition with a warning.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return errors.New("tool name required")
	}
	if def.Handler == nil {
		return fmt.Errorf("tool '%s': handler required", def.Name)
	}
	if def.Parameters == nil {
		def.Parameters = map[string]any{"type": "object", "properties": map[string]any{}}
	}

	schemaJSON, err := json.Marshal(def.Parameters)
	if err != nil {
		return fmt.Errorf("tool '%s': failed to encode schema: %w", def.Name, err)
	}
	schema, err := jsonschema.CompileString(def.Name+".json", string(schemaJSON))
	if err != nil {
		return fmt.Errorf("tool '%s': invalid parameter schema: %w", def.Name, err)
	}

	if _, exists := r.tools[def.Name]; exists {
		slog.Warn("Overwriting registered tool", "tool", def.Name)
	}
	r.tools[def.Name] = &registeredTool{def: def, schema: schema}
	return nil
}

// Catalogue returns the tool definitions in stable name order, shaped for
// the LLM request.
func (r *Registry) Catalogue() []llm.ToolDefinition {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]llm.ToolDefinition, 0, len(names))
	for _, name := range names {
		def := r.tools[name].def
		out = append(out, llm.ToolDefinition{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  def.Parameters,
		})
	}
	return out
}

// Execute validates args against the tool's schema and runs its handler.
// Handler errors come back wrapped as *ToolFailure.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	tool, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	if args == nil {
		args = map[string]any{}
	}
	if err := tool.schema.Validate(normalizeForSchema(args)); err != nil {
		return nil, &ToolFailure{Tool: name, Err: fmt.Errorf("invalid arguments: %w", err)}
	}

	result, err := tool.def.Handler(ctx, args)
	if err != nil {
		return nil, &ToolFailure{Tool: name, Err: err}
	}
	return result, nil
}

// SerializeResult renders a tool result for the model: JSON for structured
// values, plain formatting for scalars.
func SerializeResult(result any) string {
	switch result.(type) {
	case map[string]any, []any:
		data, err := json.Marshal(result)
		if err != nil {
			return fmt.Sprintf("%v", result)
		}
		return string(data)
	case string:
		return result.(string)
	default:
		return fmt.Sprintf("%v", result)
	}
}

// normalizeForSchema round-trips args through JSON so numeric types match
// what the validator expects (float64 for all numbers).
func normalizeForSchema(args map[string]any) any {
	data, err := json.Marshal(args)
	if err != nil {
		return args
	}
	decoder := json.NewDecoder(strings.NewReader(string(data)))
	decoder.UseNumber()
	var normalized any
	if err := decoder.Decode(&normalized); err != nil {
		return args
	}
	return normalized
}
