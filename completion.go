package openrouter

import "encoding/json"

// FinishReason is the normalized reason the model stopped generating.
// OpenRouter normalizes each provider's native reason into this closed set;
// the raw value is preserved in Choice.NativeFinishReason.
type FinishReason string

const (
	FinishReasonToolCalls     FinishReason = "tool_calls"
	FinishReasonStop          FinishReason = "stop"
	FinishReasonLength        FinishReason = "length"
	FinishReasonContentFilter FinishReason = "content_filter"
	FinishReasonError         FinishReason = "error"
)

// ResponseUsage contains token accounting for a completion.
type ResponseUsage struct {
	// PromptTokens counts the input, including images and tools if any.
	PromptTokens int `json:"prompt_tokens"`

	// CompletionTokens counts the generated output.
	CompletionTokens int `json:"completion_tokens"`

	// TotalTokens is the sum of the above two fields.
	TotalTokens int `json:"total_tokens"`
}

// FunctionCall is the function name and fully assembled arguments of a
// completed tool call.
type FunctionCall struct {
	Name string `json:"name"`

	// Arguments is the raw JSON argument string exactly as produced by the
	// model. It is not validated against the tool's schema.
	Arguments string `json:"arguments"`
}

// ToolCall is a complete tool invocation requested by the model.
type ToolCall struct {
	ID string `json:"id"`

	// Type is always "function" in the current API.
	Type string `json:"type"`

	Function FunctionCall `json:"function"`
}

// PartialFunctionCall is one wire-delivered slice of a function call.
// Name typically arrives only on the first fragment; Arguments arrives in
// many small pieces that must be concatenated in delivery order.
type PartialFunctionCall struct {
	Name      *string `json:"name,omitempty"`
	Arguments *string `json:"arguments,omitempty"`
}

// PartialToolCall is one streaming fragment of a tool call under
// construction. Index is the only correlation key the API guarantees on
// every fragment; ID and the function name may be present only once.
type PartialToolCall struct {
	ID       *string              `json:"id,omitempty"`
	Type     *string              `json:"type,omitempty"`
	Function *PartialFunctionCall `json:"function,omitempty"`
	Index    *int                 `json:"index,omitempty"`
}

// ReasoningDetail is a structured reasoning block attached to a delta.
// Thinking models emit these alongside (or instead of) the plain reasoning
// string; encrypted variants carry provider-opaque data.
type ReasoningDetail struct {
	Type    string  `json:"type"` // "reasoning.text", "reasoning.summary", "reasoning.encrypted"
	Text    *string `json:"text,omitempty"`
	Summary *string `json:"summary,omitempty"`
	Data    *string `json:"data,omitempty"`
	ID      *string `json:"id,omitempty"`
	Format  *string `json:"format,omitempty"`
	Index   *int    `json:"index,omitempty"`
}

// ErrorResponse is the error object OpenRouter embeds in a choice when a
// provider fails mid-generation.
type ErrorResponse struct {
	Code     int                        `json:"code"`
	Message  string                     `json:"message"`
	Metadata map[string]json.RawMessage `json:"metadata,omitempty"`
}

// Delta carries the incremental updates of one streaming chunk.
type Delta struct {
	Content *string `json:"content,omitempty"`
	Role    *string `json:"role,omitempty"`

	// ToolCalls holds positionally-indexed tool call fragments. Use
	// ToolCallAccumulator (or ToolAwareStream) to reassemble them.
	ToolCalls []PartialToolCall `json:"tool_calls,omitempty"`

	// Reasoning is the plain chain-of-thought text delta, when the model
	// streams reasoning separately from content.
	Reasoning *string `json:"reasoning,omitempty"`

	// ReasoningDetails holds structured reasoning blocks (e.g. encrypted
	// reasoning from models that do not expose plain text).
	ReasoningDetails []ReasoningDetail `json:"reasoning_details,omitempty"`

	Refusal *string `json:"refusal,omitempty"`
}

// ChoiceMessage is the assistant message of a non-streaming choice.
type ChoiceMessage struct {
	Content   *string    `json:"content,omitempty"`
	Role      string     `json:"role"`
	Reasoning *string    `json:"reasoning,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// Choice covers both streaming and non-streaming response shapes. Exactly
// one of Message or Delta is populated depending on the request mode:
// blocking responses carry Message, streaming chunks carry Delta. Error is
// set when a provider failed mid-generation for this choice.
type Choice struct {
	FinishReason       *FinishReason  `json:"finish_reason,omitempty"`
	NativeFinishReason *string        `json:"native_finish_reason,omitempty"`
	Message            *ChoiceMessage `json:"message,omitempty"`
	Delta              *Delta         `json:"delta,omitempty"`
	Error              *ErrorResponse `json:"error,omitempty"`
	Index              *int           `json:"index,omitempty"`
}

// CompletionsResponse is one decoded unit of the chat completions API: a
// full response in blocking mode, or a single chunk in streaming mode
// (object "chat.completion.chunk").
type CompletionsResponse struct {
	ID                string         `json:"id"`
	Choices           []Choice       `json:"choices"`
	Created           int64          `json:"created"`
	Model             string         `json:"model"`
	Object            string         `json:"object"`
	Provider          *string        `json:"provider,omitempty"`
	SystemFingerprint *string        `json:"system_fingerprint,omitempty"`
	Usage             *ResponseUsage `json:"usage,omitempty"`
}

// Message is a chat completions conversation message.
type Message struct {
	// Role is "system", "user", "assistant" or "tool".
	Role string `json:"role"`

	Content string `json:"content"`

	// ToolCalls replays assistant tool invocations in conversation history.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID links a role:"tool" result message to the call it answers.
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// Tool is a function tool definition offered to the model.
type Tool struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes one callable function.
type FunctionDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"` // JSON Schema
}

// CompletionsRequest is a chat completions request. Zero-valued optional
// fields are omitted from the wire payload.
type CompletionsRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`

	Stream bool `json:"stream,omitempty"`

	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	TopK        *int     `json:"top_k,omitempty"`
	Seed        *int     `json:"seed,omitempty"`

	Tools      []Tool `json:"tools,omitempty"`
	ToolChoice string `json:"tool_choice,omitempty"`

	// Models is the fallback list routed when Model is unavailable.
	Models []string `json:"models,omitempty"`

	// Reasoning configures provider reasoning effort/tokens.
	Reasoning *ReasoningConfig `json:"reasoning,omitempty"`

	// Usage requests usage accounting in the final streaming chunk.
	Usage *UsageConfig `json:"usage,omitempty"`
}

// ReasoningConfig controls reasoning token budget for thinking models.
type ReasoningConfig struct {
	Effort    string `json:"effort,omitempty"` // "low", "medium", "high"
	MaxTokens *int   `json:"max_tokens,omitempty"`
	Exclude   *bool  `json:"exclude,omitempty"`
}

// UsageConfig opts in to usage accounting on streaming responses.
type UsageConfig struct {
	Include bool `json:"include"`
}
