package openrouter

import (
	"sort"
	"strings"
)

// toolCallEntry is the merge buffer for a single tool call index.
type toolCallEntry struct {
	id   *string
	typ  *string
	name *string
	args strings.Builder
}

// merge folds one fragment into the entry. ID, type and name are
// overwritten when present; arguments are append-only.
func (e *toolCallEntry) merge(partial PartialToolCall) {
	if partial.ID != nil {
		e.id = partial.ID
	}
	if partial.Type != nil {
		e.typ = partial.Type
	}
	if partial.Function != nil {
		if partial.Function.Name != nil {
			e.name = partial.Function.Name
		}
		if partial.Function.Arguments != nil {
			e.args.WriteString(*partial.Function.Arguments)
		}
	}
}

// toolCall converts the entry into a complete ToolCall. Returns false if
// required fields (id, name) were never observed, which indicates an
// incomplete stream.
func (e *toolCallEntry) toolCall() (ToolCall, bool) {
	if e.id == nil || e.name == nil {
		return ToolCall{}, false
	}
	typ := "function"
	if e.typ != nil {
		typ = *e.typ
	}
	return ToolCall{
		ID:   *e.id,
		Type: typ,
		Function: FunctionCall{
			Name:      *e.name,
			Arguments: e.args.String(),
		},
	}, true
}

// ToolCallAccumulator reassembles positionally-fragmented tool calls.
//
// The streaming API delivers tool calls as PartialToolCall fragments spread
// across many chunks, correlated only by index. Add merges each fragment
// into a per-index buffer; Finalize assembles the buffers into complete
// ToolCall values in ascending index order.
//
// The zero value is not usable; construct with NewToolCallAccumulator.
type ToolCallAccumulator struct {
	entries map[int]*toolCallEntry
}

// NewToolCallAccumulator creates an empty accumulator.
func NewToolCallAccumulator() *ToolCallAccumulator {
	return &ToolCallAccumulator{entries: make(map[int]*toolCallEntry)}
}

// Add merges one fragment into the buffer for its index. A fragment with no
// index defaults to index 0. Arguments concatenate in submission order.
func (a *ToolCallAccumulator) Add(partial PartialToolCall) {
	idx := 0
	if partial.Index != nil {
		idx = *partial.Index
	}
	entry, ok := a.entries[idx]
	if !ok {
		entry = &toolCallEntry{}
		a.entries[idx] = entry
	}
	entry.merge(partial)
}

// Len returns the number of distinct tool call indices observed so far.
func (a *ToolCallAccumulator) Len() int {
	return len(a.entries)
}

// Finalize assembles all buffers into complete tool calls, ordered by
// ascending index regardless of fragment arrival order. Indices that never
// received both an id and a name are omitted.
func (a *ToolCallAccumulator) Finalize() []ToolCall {
	if len(a.entries) == 0 {
		return nil
	}

	indices := make([]int, 0, len(a.entries))
	for idx := range a.entries {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	calls := make([]ToolCall, 0, len(indices))
	for _, idx := range indices {
		if call, ok := a.entries[idx].toolCall(); ok {
			calls = append(calls, call)
		}
	}
	return calls
}
