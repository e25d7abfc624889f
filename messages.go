package openrouter

import "encoding/json"

// Content part types for the Anthropic-compatible Messages API.
const (
	ContentPartText             = "text"
	ContentPartImage            = "image"
	ContentPartDocument         = "document"
	ContentPartToolUse          = "tool_use"
	ContentPartToolResult       = "tool_result"
	ContentPartThinking         = "thinking"
	ContentPartRedactedThinking = "redacted_thinking"
	ContentPartServerToolUse    = "server_tool_use"
	ContentPartWebSearchResult  = "web_search_tool_result"
	ContentPartSearchResult     = "search_result"
)

// ContentPart is a multi-modal content block in a Messages conversation or
// response. Type selects which of the remaining fields are meaningful:
//
//   - "text": Text
//   - "image", "document": Source
//   - "tool_use", "server_tool_use": ID, Name, Input
//   - "tool_result": ToolUseID, Content, IsError
//   - "thinking": Thinking, Signature
//   - "redacted_thinking": Data
type ContentPart struct {
	Type string `json:"type"`

	Text string `json:"text,omitempty"`

	Source json.RawMessage `json:"source,omitempty"`

	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	IsError   *bool           `json:"is_error,omitempty"`

	Thinking  string `json:"thinking,omitempty"`
	Signature string `json:"signature,omitempty"`

	Data string `json:"data,omitempty"`

	Citations []json.RawMessage `json:"citations,omitempty"`
}

// TextPart builds a plain text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: ContentPartText, Text: text}
}

// ToolResultPart builds a tool_result part answering an earlier tool_use.
func ToolResultPart(toolUseID string, content json.RawMessage) ContentPart {
	return ContentPart{Type: ContentPartToolResult, ToolUseID: toolUseID, Content: content}
}

// MessagesContent is either a plain string or a list of content parts,
// matching the wire format's two accepted shapes.
type MessagesContent struct {
	Text  string
	Parts []ContentPart
}

// MessagesText builds string-form content.
func MessagesText(text string) MessagesContent {
	return MessagesContent{Text: text}
}

// MessagesParts builds part-list content.
func MessagesParts(parts ...ContentPart) MessagesContent {
	return MessagesContent{Parts: parts}
}

func (c MessagesContent) MarshalJSON() ([]byte, error) {
	if c.Parts != nil {
		return json.Marshal(c.Parts)
	}
	return json.Marshal(c.Text)
}

func (c *MessagesContent) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		c.Text = ""
		return json.Unmarshal(data, &c.Parts)
	}
	c.Parts = nil
	return json.Unmarshal(data, &c.Text)
}

// MessagesMessage is one conversation turn in a Messages request.
type MessagesMessage struct {
	// Role is "user" or "assistant".
	Role string `json:"role"`

	Content MessagesContent `json:"content"`
}

// MessagesTool is a tool definition in the Messages request format.
type MessagesTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
}

// MessagesRequest is the request body for the Anthropic-compatible
// Messages API (POST /messages).
type MessagesRequest struct {
	Model     string            `json:"model"`
	MaxTokens int               `json:"max_tokens"`
	Messages  []MessagesMessage `json:"messages"`

	// System is the system prompt: a JSON string or an array of text
	// blocks, passed through as raw JSON.
	System json.RawMessage `json:"system,omitempty"`

	Stream bool `json:"stream,omitempty"`

	Temperature   *float64 `json:"temperature,omitempty"`
	TopP          *float64 `json:"top_p,omitempty"`
	TopK          *int     `json:"top_k,omitempty"`
	StopSequences []string `json:"stop_sequences,omitempty"`

	Tools      []MessagesTool  `json:"tools,omitempty"`
	ToolChoice json.RawMessage `json:"tool_choice,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

// MessagesUsage is the usage object of a Messages response. All fields are
// optional on the wire; unknown fields are preserved in Extra.
type MessagesUsage struct {
	InputTokens              *int64
	OutputTokens             *int64
	CacheCreationInputTokens *int64
	CacheReadInputTokens     *int64
	ServiceTier              *string
	Extra                    map[string]json.RawMessage
}

func (u *MessagesUsage) UnmarshalJSON(data []byte) error {
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	take := func(key string, dst any) error {
		raw, ok := fields[key]
		if !ok {
			return nil
		}
		delete(fields, key)
		return json.Unmarshal(raw, dst)
	}

	if err := take("input_tokens", &u.InputTokens); err != nil {
		return err
	}
	if err := take("output_tokens", &u.OutputTokens); err != nil {
		return err
	}
	if err := take("cache_creation_input_tokens", &u.CacheCreationInputTokens); err != nil {
		return err
	}
	if err := take("cache_read_input_tokens", &u.CacheReadInputTokens); err != nil {
		return err
	}
	if err := take("service_tier", &u.ServiceTier); err != nil {
		return err
	}

	if len(fields) > 0 {
		u.Extra = fields
	}
	return nil
}

func (u MessagesUsage) MarshalJSON() ([]byte, error) {
	fields := map[string]any{}
	for key, raw := range u.Extra {
		fields[key] = raw
	}
	if u.InputTokens != nil {
		fields["input_tokens"] = *u.InputTokens
	}
	if u.OutputTokens != nil {
		fields["output_tokens"] = *u.OutputTokens
	}
	if u.CacheCreationInputTokens != nil {
		fields["cache_creation_input_tokens"] = *u.CacheCreationInputTokens
	}
	if u.CacheReadInputTokens != nil {
		fields["cache_read_input_tokens"] = *u.CacheReadInputTokens
	}
	if u.ServiceTier != nil {
		fields["service_tier"] = *u.ServiceTier
	}
	return json.Marshal(fields)
}

// MessagesResponse is the non-streaming payload returned by
// POST /messages, and the embedded initial message of a message_start
// streaming event. Everything is optional on the wire; the raw body is
// preserved in Raw.
type MessagesResponse struct {
	ID           string         `json:"id,omitempty"`
	Type         string         `json:"type,omitempty"`
	Role         string         `json:"role,omitempty"`
	Content      []ContentPart  `json:"content,omitempty"`
	Model        string         `json:"model,omitempty"`
	StopReason   string         `json:"stop_reason,omitempty"`
	StopSequence string         `json:"stop_sequence,omitempty"`
	Usage        *MessagesUsage `json:"usage,omitempty"`

	// Raw is the complete payload as received.
	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the known fields and keeps the full raw body.
func (r *MessagesResponse) UnmarshalJSON(data []byte) error {
	type alias MessagesResponse
	var decoded alias
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*r = MessagesResponse(decoded)
	r.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// Streaming event types for the Messages API.
const (
	MessagesEventMessageStart      = "message_start"
	MessagesEventMessageDelta      = "message_delta"
	MessagesEventMessageStop       = "message_stop"
	MessagesEventContentBlockStart = "content_block_start"
	MessagesEventContentBlockDelta = "content_block_delta"
	MessagesEventContentBlockStop  = "content_block_stop"
	MessagesEventPing              = "ping"
	MessagesEventError             = "error"
)

// Content block delta types within content_block_delta events.
const (
	MessagesDeltaText      = "text_delta"
	MessagesDeltaThinking  = "thinking_delta"
	MessagesDeltaSignature = "signature_delta"
	MessagesDeltaInputJSON = "input_json_delta"
)

// MessagesStreamEvent is one decoded unit of the Messages streaming
// protocol, a tagged union discriminated by Type:
//
//   - "message_start": Message (the initial message with id/model/usage)
//   - "message_delta": Delta (stop_reason etc.) and Usage
//   - "message_stop": no payload; sole terminator of the stream
//   - "content_block_start": Index and ContentBlock
//   - "content_block_delta": Index and Delta (its own "type" tag selects
//     text_delta / thinking_delta / input_json_delta / ...)
//   - "content_block_stop": Index
//   - "ping": no payload
//   - "error": Error (upstream error object)
type MessagesStreamEvent struct {
	Type string `json:"type"`

	Message *MessagesResponse `json:"message,omitempty"`

	Index        *int            `json:"index,omitempty"`
	ContentBlock *ContentPart    `json:"content_block,omitempty"`
	Delta        json.RawMessage `json:"delta,omitempty"`
	Usage        json.RawMessage `json:"usage,omitempty"`

	Error json.RawMessage `json:"error,omitempty"`
}
