package agent

import "github.com/newsdesk-ai/newsdesk/pkg/llm"

// assembler rebuilds complete tool calls from streamed fragments. Fragments
// are grouped by provider index: ID and name arrive on the first fragment
// for an index, argument JSON accumulates across the rest. Calls surface in
// first-appearance order once the stream ends.
type assembler struct {
	order []int
	calls map[int]*llm.ToolCall
}

func newAssembler() *assembler {
	return &assembler{calls: make(map[int]*llm.ToolCall)}
}

func (a *assembler) add(f *llm.ToolCallFragment) {
	call, ok := a.calls[f.Index]
	if !ok {
		call = &llm.ToolCall{}
		a.calls[f.Index] = call
		a.order = append(a.order, f.Index)
	}
	if f.ID != "" {
		call.ID = f.ID
	}
	if f.Name != "" {
		call.Name = f.Name
	}
	call.Arguments += f.ArgsDelta
}

// finish returns the assembled calls. Fragments that never produced a tool
// name are dropped; there is nothing executable to do with them.
func (a *assembler) finish() []llm.ToolCall {
	out := make([]llm.ToolCall, 0, len(a.order))
	for _, index := range a.order {
		call := a.calls[index]
		if call.Name == "" {
			continue
		}
		out = append(out, *call)
	}
	return out
}
