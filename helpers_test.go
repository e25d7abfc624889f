package openrouter

import (
	"encoding/json"
	"io"
	"testing"
)

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func finishPtr(f FinishReason) *FinishReason { return &f }

// fragment builds a PartialToolCall for tests. Empty strings mean the
// field is absent from the fragment.
func fragment(index int, id, name, arguments string) PartialToolCall {
	p := PartialToolCall{Index: intPtr(index)}
	if id != "" {
		p.ID = strPtr(id)
	}
	fn := &PartialFunctionCall{}
	if name != "" {
		fn.Name = strPtr(name)
	}
	if arguments != "" {
		fn.Arguments = strPtr(arguments)
	}
	p.Function = fn
	return p
}

// chunkStep is one scripted Recv result.
type chunkStep struct {
	chunk *CompletionsResponse
	err   error
}

// scriptedChatSource replays a fixed sequence of chunks and errors, then
// io.EOF.
type scriptedChatSource struct {
	steps []chunkStep
}

func (s *scriptedChatSource) Recv() (*CompletionsResponse, error) {
	if len(s.steps) == 0 {
		return nil, io.EOF
	}
	step := s.steps[0]
	s.steps = s.steps[1:]
	return step.chunk, step.err
}

// chatChunk builds a single-choice streaming chunk.
func chatChunk(id, model string, delta Delta, finish *FinishReason, usage *ResponseUsage) *CompletionsResponse {
	return &CompletionsResponse{
		ID:      id,
		Model:   model,
		Object:  "chat.completion.chunk",
		Created: 1_700_000_000,
		Choices: []Choice{
			{
				Delta:        &delta,
				FinishReason: finish,
			},
		},
		Usage: usage,
	}
}

// responsesStep is one scripted Recv result for a Responses source.
type responsesStep struct {
	event *ResponsesStreamEvent
	err   error
}

type scriptedResponsesSource struct {
	steps []responsesStep
}

func (s *scriptedResponsesSource) Recv() (*ResponsesStreamEvent, error) {
	if len(s.steps) == 0 {
		return nil, io.EOF
	}
	step := s.steps[0]
	s.steps = s.steps[1:]
	return step.event, step.err
}

// responsesEvent builds an event from its raw JSON payload.
func responsesEvent(eventType, payload string) *ResponsesStreamEvent {
	return &ResponsesStreamEvent{
		Type:    eventType,
		Payload: []byte(payload),
	}
}

// messagesStep is one scripted Recv result for a Messages source.
type messagesStep struct {
	event *MessagesStreamEvent
	err   error
}

type scriptedMessagesSource struct {
	steps []messagesStep
}

func (s *scriptedMessagesSource) Recv() (*MessagesStreamEvent, error) {
	if len(s.steps) == 0 {
		return nil, io.EOF
	}
	step := s.steps[0]
	s.steps = s.steps[1:]
	return step.event, step.err
}

// mustMessagesEvent decodes a Messages wire event from its JSON form.
func mustMessagesEvent(t *testing.T, raw string) *MessagesStreamEvent {
	t.Helper()
	var event MessagesStreamEvent
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	return &event
}

// collect drains a UnifiedStream into a slice.
func collectUnified(stream *UnifiedStream) []UnifiedStreamEvent {
	var events []UnifiedStreamEvent
	for stream.Next() {
		events = append(events, stream.Event())
	}
	return events
}

// collectToolAware drains a ToolAwareStream into a slice.
func collectToolAware(stream *ToolAwareStream) []StreamEvent {
	var events []StreamEvent
	for stream.Next() {
		events = append(events, stream.Event())
	}
	return events
}
