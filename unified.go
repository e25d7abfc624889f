package openrouter

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ResponsesEventSource is the transport contract consumed by the Responses
// unified adapter. Recv returns io.EOF once the stream is exhausted; a
// non-EOF error does not imply exhaustion.
type ResponsesEventSource interface {
	Recv() (*ResponsesStreamEvent, error)
}

// MessagesEventSource is the transport contract consumed by the Messages
// unified adapter, with the same Recv semantics as the other sources.
type MessagesEventSource interface {
	Recv() (*MessagesStreamEvent, error)
}

// UnifiedStreamSource identifies which wire protocol produced a unified
// event.
type UnifiedStreamSource string

const (
	UnifiedSourceChat      UnifiedStreamSource = "chat"
	UnifiedSourceResponses UnifiedStreamSource = "responses"
	UnifiedSourceMessages  UnifiedStreamSource = "messages"
)

// UnifiedEventType discriminates UnifiedStreamEvent variants.
type UnifiedEventType string

const (
	// UnifiedEventContentDelta is a fragment of assistant text content.
	UnifiedEventContentDelta UnifiedEventType = "content_delta"

	// UnifiedEventReasoningDelta is a fragment of chain-of-thought text.
	UnifiedEventReasoningDelta UnifiedEventType = "reasoning_delta"

	// UnifiedEventReasoningDetailsDelta carries structured reasoning blocks
	// (chat protocol only).
	UnifiedEventReasoningDetailsDelta UnifiedEventType = "reasoning_details_delta"

	// UnifiedEventToolDelta is a raw tool call fragment. Unlike
	// ToolAwareStream, unified adapters forward tool data incrementally;
	// consumers merge fragments themselves (see ToolCallAccumulator for the
	// chat shape).
	UnifiedEventToolDelta UnifiedEventType = "tool_delta"

	// UnifiedEventRaw is a native event no routing rule recognized,
	// forwarded whole so no data is silently lost.
	UnifiedEventRaw UnifiedEventType = "raw"

	// UnifiedEventDone is the terminal event.
	UnifiedEventDone UnifiedEventType = "done"

	// UnifiedEventError wraps a transport error. It is not terminal.
	UnifiedEventError UnifiedEventType = "error"
)

// UnifiedDone is the payload of the terminal event. ID, Model and
// FinishReason are empty when the stream never carried them.
type UnifiedDone struct {
	Source       UnifiedStreamSource
	ID           string
	Model        string
	FinishReason string
	Usage        json.RawMessage
}

// UnifiedRawEvent is an unrecognized native event forwarded as-is.
type UnifiedRawEvent struct {
	Source    UnifiedStreamSource
	EventType string
	Payload   json.RawMessage
}

// UnifiedStreamEvent is the shared event vocabulary all three protocol
// adapters translate into. Type selects which payload field is set.
type UnifiedStreamEvent struct {
	Type UnifiedEventType

	// Text holds the delta text for content and reasoning events.
	Text string

	// ReasoningDetails is set for UnifiedEventReasoningDetailsDelta.
	ReasoningDetails []ReasoningDetail

	// ToolDelta is the raw tool fragment payload for UnifiedEventToolDelta.
	ToolDelta json.RawMessage

	// Raw is set for UnifiedEventRaw.
	Raw *UnifiedRawEvent

	// Done is set for UnifiedEventDone.
	Done *UnifiedDone

	// Err is set for UnifiedEventError.
	Err error
}

// streamMeta tracks response metadata across a stream's lifetime,
// last-write-wins per field, consumed exactly once into the Done event.
type streamMeta struct {
	id           string
	model        string
	finishReason string
	usage        json.RawMessage
}

// pullFunc pulls one unit from the underlying source and translates it.
// terminal reports a native end-of-stream signal; io.EOF reports source
// exhaustion without one. Either produces exactly one Done.
type pullFunc func(meta *streamMeta) (events []UnifiedStreamEvent, terminal bool, err error)

// UnifiedStream adapts one native streaming protocol into the shared
// UnifiedStreamEvent vocabulary. Construct with AdaptChatStream,
// AdaptResponsesStream or AdaptMessagesStream and iterate with Next/Event:
//
//	stream := openrouter.AdaptChatStream(raw)
//	for stream.Next() {
//		event := stream.Event()
//		...
//	}
//
// Each Next call pulls at most one unit from the source; surplus events
// from a single unit are buffered for later calls. Transport errors
// surface as UnifiedEventError and do not stop iteration. Exactly one
// Done event is emitted per stream, always last.
type UnifiedStream struct {
	source   UnifiedStreamSource
	pull     pullFunc
	meta     streamMeta
	pending  []UnifiedStreamEvent
	current  UnifiedStreamEvent
	finished bool
}

// Source reports which wire protocol this stream adapts.
func (s *UnifiedStream) Source() UnifiedStreamSource {
	return s.source
}

// Next advances the stream. It returns false once every event, including
// the terminal Done, has been consumed.
func (s *UnifiedStream) Next() bool {
	for {
		if len(s.pending) > 0 {
			s.current = s.pending[0]
			s.pending = s.pending[1:]
			return true
		}

		if s.finished {
			return false
		}

		events, terminal, err := s.pull(&s.meta)
		if err == io.EOF {
			s.queueDone()
			continue
		}
		if err != nil {
			s.current = UnifiedStreamEvent{Type: UnifiedEventError, Err: err}
			return true
		}

		s.pending = append(s.pending, events...)
		if terminal {
			s.queueDone()
		}
	}
}

// Event returns the event produced by the last successful Next call.
func (s *UnifiedStream) Event() UnifiedStreamEvent {
	return s.current
}

func (s *UnifiedStream) queueDone() {
	s.pending = append(s.pending, UnifiedStreamEvent{
		Type: UnifiedEventDone,
		Done: &UnifiedDone{
			Source:       s.source,
			ID:           s.meta.id,
			Model:        s.meta.model,
			FinishReason: s.meta.finishReason,
			Usage:        s.meta.usage,
		},
	})
	s.finished = true
}

// AdaptChatStream adapts a chat completions chunk source. Tool call
// fragments are forwarded immediately as ToolDelta events without
// accumulation; finish reasons map to their string labels.
func AdaptChatStream(source ChatChunkSource) *UnifiedStream {
	return &UnifiedStream{
		source: UnifiedSourceChat,
		pull: func(meta *streamMeta) ([]UnifiedStreamEvent, bool, error) {
			chunk, err := source.Recv()
			if err != nil {
				return nil, false, err
			}
			return translateChatChunk(chunk, meta), false, nil
		},
	}
}

func translateChatChunk(chunk *CompletionsResponse, meta *streamMeta) []UnifiedStreamEvent {
	meta.id = chunk.ID
	meta.model = chunk.Model
	if chunk.Usage != nil {
		if raw, err := json.Marshal(chunk.Usage); err == nil {
			meta.usage = raw
		}
	}

	var events []UnifiedStreamEvent
	for _, choice := range chunk.Choices {
		if choice.FinishReason != nil {
			meta.finishReason = string(*choice.FinishReason)
		}

		delta := choice.Delta
		if delta == nil {
			continue
		}

		if delta.Content != nil && *delta.Content != "" {
			events = append(events, UnifiedStreamEvent{Type: UnifiedEventContentDelta, Text: *delta.Content})
		}
		if delta.Reasoning != nil && *delta.Reasoning != "" {
			events = append(events, UnifiedStreamEvent{Type: UnifiedEventReasoningDelta, Text: *delta.Reasoning})
		}
		if len(delta.ReasoningDetails) > 0 {
			events = append(events, UnifiedStreamEvent{
				Type:             UnifiedEventReasoningDetailsDelta,
				ReasoningDetails: delta.ReasoningDetails,
			})
		}
		for _, partial := range delta.ToolCalls {
			raw, err := json.Marshal(partial)
			if err != nil {
				continue
			}
			events = append(events, UnifiedStreamEvent{Type: UnifiedEventToolDelta, ToolDelta: raw})
		}
	}
	return events
}

// AdaptResponsesStream adapts a Responses lifecycle event source. Routing
// is by substring on the event type, in priority order: output text, then
// reasoning, then tool; "response.completed" (or any ".completed" suffix
// not already claimed by the tool rule) terminates the stream; everything
// else is forwarded as a Raw event.
func AdaptResponsesStream(source ResponsesEventSource) *UnifiedStream {
	return &UnifiedStream{
		source: UnifiedSourceResponses,
		pull: func(meta *streamMeta) ([]UnifiedStreamEvent, bool, error) {
			event, err := source.Recv()
			if err != nil {
				return nil, false, err
			}
			return translateResponsesEvent(event, meta)
		},
	}
}

func translateResponsesEvent(event *ResponsesStreamEvent, meta *streamMeta) ([]UnifiedStreamEvent, bool, error) {
	// Any payload carrying a nested response object updates metadata,
	// regardless of event type.
	if response := gjson.GetBytes(event.Payload, "response"); response.Exists() {
		if id := response.Get("id"); id.Exists() {
			meta.id = id.String()
		}
		if model := response.Get("model"); model.Exists() {
			meta.model = model.String()
		}
		if status := response.Get("status"); status.Exists() {
			meta.finishReason = status.String()
		}
		if usage := response.Get("usage"); usage.Exists() {
			meta.usage = json.RawMessage(usage.Raw)
		}
	}

	switch {
	case strings.Contains(event.Type, "output_text.delta"):
		text := gjson.GetBytes(event.Payload, "delta").String()
		return []UnifiedStreamEvent{{Type: UnifiedEventContentDelta, Text: text}}, false, nil

	case strings.Contains(event.Type, "reasoning"):
		var text string
		for _, field := range []string{"delta", "text", "reasoning"} {
			if value := gjson.GetBytes(event.Payload, field); value.Exists() {
				text = value.String()
				break
			}
		}
		return []UnifiedStreamEvent{{Type: UnifiedEventReasoningDelta, Text: text}}, false, nil

	case strings.Contains(event.Type, "tool"):
		return []UnifiedStreamEvent{{Type: UnifiedEventToolDelta, ToolDelta: event.Payload}}, false, nil

	case event.Type == "response.completed" || strings.HasSuffix(event.Type, ".completed"):
		return nil, true, nil

	default:
		return []UnifiedStreamEvent{{
			Type: UnifiedEventRaw,
			Raw: &UnifiedRawEvent{
				Source:    UnifiedSourceResponses,
				EventType: event.Type,
				Payload:   event.Payload,
			},
		}}, false, nil
	}
}

// AdaptMessagesStream adapts a Messages content-block event source.
// message_stop is the sole terminator; thinking blocks emit their full
// text at block start (they are not incrementally streamed there); tool
// events carry the content-block index so fragment correlation survives
// the translation.
func AdaptMessagesStream(source MessagesEventSource) *UnifiedStream {
	return &UnifiedStream{
		source: UnifiedSourceMessages,
		pull: func(meta *streamMeta) ([]UnifiedStreamEvent, bool, error) {
			event, err := source.Recv()
			if err != nil {
				return nil, false, err
			}
			return translateMessagesEvent(event, meta)
		},
	}
}

func translateMessagesEvent(event *MessagesStreamEvent, meta *streamMeta) ([]UnifiedStreamEvent, bool, error) {
	switch event.Type {
	case MessagesEventMessageStart:
		if event.Message != nil {
			meta.id = event.Message.ID
			meta.model = event.Message.Model
			if event.Message.Usage != nil {
				if raw, err := json.Marshal(event.Message.Usage); err == nil {
					meta.usage = raw
				}
			}
		}
		return nil, false, nil

	case MessagesEventMessageDelta:
		if len(event.Usage) > 0 && string(event.Usage) != "null" {
			meta.usage = event.Usage
		}
		if stopReason := gjson.GetBytes(event.Delta, "stop_reason"); stopReason.Exists() {
			meta.finishReason = stopReason.String()
		}
		for _, field := range []string{"text", "output_text"} {
			if value := gjson.GetBytes(event.Delta, field); value.Exists() {
				return []UnifiedStreamEvent{{Type: UnifiedEventContentDelta, Text: value.String()}}, false, nil
			}
		}
		return nil, false, nil

	case MessagesEventMessageStop:
		return nil, true, nil

	case MessagesEventContentBlockStart:
		return translateContentBlockStart(event), false, nil

	case MessagesEventContentBlockDelta:
		return translateContentBlockDelta(event), false, nil

	case MessagesEventContentBlockStop, MessagesEventPing:
		return nil, false, nil

	case MessagesEventError:
		message := gjson.GetBytes(event.Error, "message").String()
		if message == "" {
			message = string(event.Error)
		}
		streamErr := &StreamError{
			Code:    int(gjson.GetBytes(event.Error, "code").Int()),
			Message: message,
		}
		return []UnifiedStreamEvent{{Type: UnifiedEventError, Err: streamErr}}, false, nil

	default:
		raw, err := json.Marshal(event)
		if err != nil {
			return nil, false, nil
		}
		return []UnifiedStreamEvent{{
			Type: UnifiedEventRaw,
			Raw: &UnifiedRawEvent{
				Source:    UnifiedSourceMessages,
				EventType: event.Type,
				Payload:   raw,
			},
		}}, false, nil
	}
}

func translateContentBlockStart(event *MessagesStreamEvent) []UnifiedStreamEvent {
	block := event.ContentBlock
	if block == nil {
		return nil
	}

	switch block.Type {
	case ContentPartThinking:
		// Thinking blocks arrive with their full text at block start; the
		// delta events that follow carry signature data, not more text.
		return []UnifiedStreamEvent{{Type: UnifiedEventReasoningDelta, Text: block.Thinking}}

	case ContentPartToolUse, ContentPartServerToolUse:
		// The input_json_delta events that follow do not name their tool,
		// so the block index must travel with the start event.
		raw, err := json.Marshal(block)
		if err != nil {
			return nil
		}
		payload := composeIndexedPayload(blockIndex(event), "content_block", raw)
		return []UnifiedStreamEvent{{Type: UnifiedEventToolDelta, ToolDelta: payload}}

	case ContentPartText:
		// Text arrives through text_delta events; the start block is empty.
		return nil

	default:
		raw, err := json.Marshal(event)
		if err != nil {
			return nil
		}
		return []UnifiedStreamEvent{{
			Type: UnifiedEventRaw,
			Raw: &UnifiedRawEvent{
				Source:    UnifiedSourceMessages,
				EventType: event.Type,
				Payload:   raw,
			},
		}}
	}
}

func translateContentBlockDelta(event *MessagesStreamEvent) []UnifiedStreamEvent {
	deltaType := gjson.GetBytes(event.Delta, "type").String()

	switch {
	case deltaType == MessagesDeltaText:
		text := gjson.GetBytes(event.Delta, "text").String()
		return []UnifiedStreamEvent{{Type: UnifiedEventContentDelta, Text: text}}

	case deltaType == MessagesDeltaThinking:
		text := gjson.GetBytes(event.Delta, "thinking").String()
		if text == "" {
			text = gjson.GetBytes(event.Delta, "text").String()
		}
		return []UnifiedStreamEvent{{Type: UnifiedEventReasoningDelta, Text: text}}

	case strings.Contains(deltaType, "tool"), strings.Contains(deltaType, "json"),
		gjson.GetBytes(event.Delta, "partial_json").Exists():
		// Deltas do not self-describe which tool they extend; pair the
		// fragment with its content-block index.
		payload := composeIndexedPayload(blockIndex(event), "delta", event.Delta)
		return []UnifiedStreamEvent{{Type: UnifiedEventToolDelta, ToolDelta: payload}}

	default:
		payload := composeIndexedPayload(blockIndex(event), "delta", event.Delta)
		return []UnifiedStreamEvent{{
			Type: UnifiedEventRaw,
			Raw: &UnifiedRawEvent{
				Source:    UnifiedSourceMessages,
				EventType: event.Type,
				Payload:   payload,
			},
		}}
	}
}

func blockIndex(event *MessagesStreamEvent) int {
	if event.Index != nil {
		return *event.Index
	}
	return 0
}

// composeIndexedPayload builds a {"index": n, "<key>": <value>} object.
func composeIndexedPayload(index int, key string, value json.RawMessage) json.RawMessage {
	payload, err := sjson.SetBytes([]byte(`{}`), "index", index)
	if err != nil {
		payload = []byte(`{}`)
	}
	if len(value) > 0 {
		if composed, err := sjson.SetRawBytes(payload, key, []byte(value)); err == nil {
			payload = composed
		}
	}
	return payload
}
