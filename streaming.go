package openrouter

import "io"

// ChatChunkSource is the transport contract consumed by the chat stream
// wrappers. Recv returns the next decoded chunk, a transport/decoding
// error for that unit, or io.EOF once the stream is exhausted.
//
// A non-EOF error does not imply exhaustion; callers may keep polling.
// *ChatStream (returned by Client.StreamChatCompletion) implements this.
type ChatChunkSource interface {
	Recv() (*CompletionsResponse, error)
}

// StreamEventType discriminates StreamEvent variants.
type StreamEventType string

const (
	// EventContentDelta is a fragment of assistant text content.
	EventContentDelta StreamEventType = "content_delta"

	// EventReasoningDelta is a fragment of chain-of-thought text.
	EventReasoningDelta StreamEventType = "reasoning_delta"

	// EventReasoningDetailsDelta carries structured reasoning blocks.
	EventReasoningDetailsDelta StreamEventType = "reasoning_details_delta"

	// EventDone is the terminal event carrying accumulated data.
	EventDone StreamEventType = "done"

	// EventError wraps a transport error. It is not terminal.
	EventError StreamEventType = "error"
)

// StreamDone is the payload of the terminal EventDone event.
type StreamDone struct {
	// ToolCalls holds the fully assembled tool calls, in ascending index
	// order. Empty if the model did not invoke any tools.
	ToolCalls []ToolCall

	// FinishReason is the last finish reason seen ("" if none arrived).
	FinishReason FinishReason

	// Usage is the token accounting, typically present only when the final
	// chunk carried a usage block.
	Usage *ResponseUsage

	// ID is the last seen response ID.
	ID string

	// Model is the last seen model name.
	Model string
}

// StreamEvent is one event of a tool-aware chat stream.
//
// Content and reasoning deltas are yielded immediately as they arrive.
// Tool call fragments are accumulated internally and surface as complete
// ToolCall values only once, in the final Done event.
type StreamEvent struct {
	Type StreamEventType

	// Text holds the delta text for content and reasoning events.
	Text string

	// ReasoningDetails is set for EventReasoningDetailsDelta.
	ReasoningDetails []ReasoningDetail

	// Done is set for EventDone.
	Done *StreamDone

	// Err is set for EventError.
	Err error
}

// ToolAwareStream wraps a raw chat chunk source and yields StreamEvents.
//
// The streaming API delivers tool calls fragmented across many chunks:
//
//	chunk 1: {index: 0, id: "call_abc", function: {name: "get_weather", arguments: ""}}
//	chunk 2: {index: 0, function: {arguments: "{\"loc"}}
//	chunk N: {index: 0, function: {arguments: "ation\":\"NYC\"}"}}
//
// ToolAwareStream merges the fragments by index and emits the complete
// calls in the terminal Done event, while text and reasoning deltas flow
// through unbuffered. Iterate with Next/Event:
//
//	stream := openrouter.NewToolAwareStream(raw)
//	for stream.Next() {
//		switch event := stream.Event(); event.Type {
//		case openrouter.EventContentDelta:
//			fmt.Print(event.Text)
//		case openrouter.EventDone:
//			for _, call := range event.Done.ToolCalls {
//				fmt.Println(call.Function.Name, call.Function.Arguments)
//			}
//		}
//	}
//
// Each Next call pulls at most one chunk from the source and buffers any
// surplus events it produced. Transport errors surface as EventError and
// do not stop iteration. Exactly one Done event is emitted, always last.
type ToolAwareStream struct {
	source      ChatChunkSource
	accumulator *ToolCallAccumulator
	pending     []StreamEvent
	current     StreamEvent
	lastID      string
	lastModel   string
	lastUsage   *ResponseUsage
	lastFinish  FinishReason
	finished    bool
}

// NewToolAwareStream wraps a raw chat chunk source.
func NewToolAwareStream(source ChatChunkSource) *ToolAwareStream {
	return &ToolAwareStream{
		source:      source,
		accumulator: NewToolCallAccumulator(),
	}
}

// Next advances the stream. It returns false once every event, including
// the terminal Done, has been consumed.
func (s *ToolAwareStream) Next() bool {
	for {
		if len(s.pending) > 0 {
			s.current = s.pending[0]
			s.pending = s.pending[1:]
			return true
		}

		if s.finished {
			return false
		}

		chunk, err := s.source.Recv()
		if err == io.EOF {
			s.finalize()
			continue
		}
		if err != nil {
			s.current = StreamEvent{Type: EventError, Err: err}
			return true
		}

		s.processChunk(chunk)
	}
}

// Event returns the event produced by the last successful Next call.
func (s *ToolAwareStream) Event() StreamEvent {
	return s.current
}

// processChunk extracts events from one chunk and accumulates tool call
// fragments and metadata.
func (s *ToolAwareStream) processChunk(chunk *CompletionsResponse) {
	// Metadata is last-write-wins across chunks; usage typically arrives
	// only in the final chunk, so nil usage never clobbers a seen value.
	s.lastID = chunk.ID
	s.lastModel = chunk.Model
	if chunk.Usage != nil {
		s.lastUsage = chunk.Usage
	}

	for _, choice := range chunk.Choices {
		if choice.FinishReason != nil {
			s.lastFinish = *choice.FinishReason
		}

		delta := choice.Delta
		if delta == nil {
			continue
		}

		if delta.Content != nil && *delta.Content != "" {
			s.pending = append(s.pending, StreamEvent{Type: EventContentDelta, Text: *delta.Content})
		}

		if delta.Reasoning != nil && *delta.Reasoning != "" {
			s.pending = append(s.pending, StreamEvent{Type: EventReasoningDelta, Text: *delta.Reasoning})
		}

		if len(delta.ReasoningDetails) > 0 {
			s.pending = append(s.pending, StreamEvent{
				Type:             EventReasoningDetailsDelta,
				ReasoningDetails: delta.ReasoningDetails,
			})
		}

		for _, partial := range delta.ToolCalls {
			s.accumulator.Add(partial)
		}
	}
}

// finalize assembles the accumulated tool calls and queues the terminal
// Done event.
func (s *ToolAwareStream) finalize() {
	s.pending = append(s.pending, StreamEvent{
		Type: EventDone,
		Done: &StreamDone{
			ToolCalls:    s.accumulator.Finalize(),
			FinishReason: s.lastFinish,
			Usage:        s.lastUsage,
			ID:           s.lastID,
			Model:        s.lastModel,
		},
	})
	s.finished = true
}
