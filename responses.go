package openrouter

import "encoding/json"

// ResponsesRequest is the request body for the Responses API
// (POST /responses). Input accepts either a plain string or the structured
// input-item array; pass raw JSON for the structured form.
type ResponsesRequest struct {
	Model string `json:"model,omitempty"`

	// Input is the prompt: a JSON string or an array of input items.
	Input json.RawMessage `json:"input,omitempty"`

	Instructions string `json:"instructions,omitempty"`

	Stream bool `json:"stream,omitempty"`

	MaxOutputTokens *int     `json:"max_output_tokens,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"top_p,omitempty"`

	// Tools uses the Responses API's own tool shapes, which differ from the
	// chat completions Tool type; pass them as raw JSON.
	Tools             []json.RawMessage `json:"tools,omitempty"`
	ToolChoice        json.RawMessage   `json:"tool_choice,omitempty"`
	ParallelToolCalls *bool             `json:"parallel_tool_calls,omitempty"`

	// Models is the fallback list routed when Model is unavailable.
	Models []string `json:"models,omitempty"`

	Reasoning json.RawMessage   `json:"reasoning,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// ResponsesResponse is the non-streaming payload returned by
// POST /responses. Upstream adds fields frequently, so everything is
// optional and the raw body is preserved in Raw.
type ResponsesResponse struct {
	ID        string            `json:"id,omitempty"`
	Object    string            `json:"object,omitempty"`
	CreatedAt int64             `json:"created_at,omitempty"`
	Model     string            `json:"model,omitempty"`
	Status    string            `json:"status,omitempty"`
	Output    []json.RawMessage `json:"output,omitempty"`
	Usage     json.RawMessage   `json:"usage,omitempty"`

	// Raw is the complete response body as received.
	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the known fields and keeps the full raw body.
func (r *ResponsesResponse) UnmarshalJSON(data []byte) error {
	type alias ResponsesResponse
	var decoded alias
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*r = ResponsesResponse(decoded)
	r.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// ResponsesStreamEvent is one decoded unit of the Responses streaming
// lifecycle. The API emits dozens of event types ("response.created",
// "response.output_text.delta", "response.completed", ...); Type carries
// the name and Payload the complete raw event object, so consumers can
// probe fields the typed layer does not model.
type ResponsesStreamEvent struct {
	Type           string `json:"type"`
	SequenceNumber *int64 `json:"sequence_number,omitempty"`

	// Payload is the full event object as received, including the type and
	// sequence_number fields.
	Payload json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the event header and keeps the full raw payload.
func (e *ResponsesStreamEvent) UnmarshalJSON(data []byte) error {
	var head struct {
		Type           string `json:"type"`
		SequenceNumber *int64 `json:"sequence_number"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	e.Type = head.Type
	e.SequenceNumber = head.SequenceNumber
	e.Payload = append(json.RawMessage(nil), data...)
	return nil
}
