// Package lorem provides a fake chat chunk source that generates lorem
// ipsum streaming responses. It implements openrouter.ChatChunkSource, so
// the tool-aware and unified wrappers can be exercised offline without an
// API key.
package lorem

import (
	"encoding/json"
	"io"
	"strings"

	loremgen "github.com/bozaro/golorem"

	openrouter "github.com/realmorrisliu/openrouter-go"
)

// DefaultModel is the model name reported in generated chunks.
const DefaultModel = "lorem/lorem-fast"

// Option configures a Stream.
type Option func(*Stream)

// WithModel overrides the reported model name.
func WithModel(model string) Option {
	return func(s *Stream) {
		s.model = model
	}
}

// WithWordCount sets how many content words to stream (default 20).
func WithWordCount(words int) Option {
	return func(s *Stream) {
		s.wordCount = words
	}
}

// WithReasoning streams a reasoning phase before the content phase.
func WithReasoning() Option {
	return func(s *Stream) {
		s.reasoning = true
	}
}

// WithToolCall appends a fragmented tool call after the content phase,
// split across several chunks the way the real API delivers it. The
// finish reason becomes tool_calls.
func WithToolCall(name string, arguments map[string]any) Option {
	return func(s *Stream) {
		s.toolName = name
		s.toolArguments = arguments
	}
}

// Stream is a synchronous fake chat stream. Each Recv call synthesizes the
// next chunk: reasoning words, then content words, then tool call
// fragments, then a final chunk carrying finish reason and usage, then
// io.EOF.
type Stream struct {
	model         string
	wordCount     int
	reasoning     bool
	toolName      string
	toolArguments map[string]any

	generator      *loremgen.Lorem
	reasoningWords []string
	contentWords   []string
	fragments      []openrouter.PartialToolCall
	step           int
	finished       bool
}

// New creates a fake stream.
func New(opts ...Option) *Stream {
	s := &Stream{
		model:     DefaultModel,
		wordCount: 20,
		generator: loremgen.New(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.reasoning {
		s.reasoningWords = s.generateWords(s.wordCount / 2)
	}
	s.contentWords = s.generateWords(s.wordCount)
	if s.toolName != "" {
		s.fragments = buildToolFragments(s.toolName, s.toolArguments)
	}
	return s
}

// Recv returns the next synthesized chunk, or io.EOF once the stream is
// exhausted.
func (s *Stream) Recv() (*openrouter.CompletionsResponse, error) {
	if s.finished {
		return nil, io.EOF
	}

	if len(s.reasoningWords) > 0 {
		word := s.reasoningWords[0] + " "
		s.reasoningWords = s.reasoningWords[1:]
		return s.chunk(openrouter.Delta{Reasoning: &word}, nil, nil), nil
	}

	if len(s.contentWords) > 0 {
		word := s.contentWords[0] + " "
		s.contentWords = s.contentWords[1:]
		return s.chunk(openrouter.Delta{Content: &word}, nil, nil), nil
	}

	if len(s.fragments) > 0 {
		fragment := s.fragments[0]
		s.fragments = s.fragments[1:]
		return s.chunk(openrouter.Delta{ToolCalls: []openrouter.PartialToolCall{fragment}}, nil, nil), nil
	}

	// Final chunk: finish reason plus usage, empty delta.
	s.finished = true
	finish := openrouter.FinishReasonStop
	if s.toolName != "" {
		finish = openrouter.FinishReasonToolCalls
	}
	usage := &openrouter.ResponseUsage{
		PromptTokens:     12,
		CompletionTokens: s.wordCount,
		TotalTokens:      12 + s.wordCount,
	}
	return s.chunk(openrouter.Delta{}, &finish, usage), nil
}

func (s *Stream) chunk(delta openrouter.Delta, finish *openrouter.FinishReason, usage *openrouter.ResponseUsage) *openrouter.CompletionsResponse {
	s.step++
	return &openrouter.CompletionsResponse{
		ID:      "gen-lorem-1",
		Model:   s.model,
		Object:  "chat.completion.chunk",
		Created: 1_700_000_000 + int64(s.step),
		Choices: []openrouter.Choice{
			{
				Delta:        &delta,
				FinishReason: finish,
			},
		},
		Usage: usage,
	}
}

func (s *Stream) generateWords(count int) []string {
	var sb strings.Builder
	for len(strings.Fields(sb.String())) < count {
		sb.WriteString(s.generator.Sentence(5, 15))
		sb.WriteString(" ")
	}
	words := strings.Fields(sb.String())
	if len(words) > count {
		words = words[:count]
	}
	return words
}

// buildToolFragments splits a tool call into wire-shaped fragments: the
// first carries id/type/name, the rest carry argument slices.
func buildToolFragments(name string, arguments map[string]any) []openrouter.PartialToolCall {
	argJSON, err := json.Marshal(arguments)
	if err != nil {
		argJSON = []byte("{}")
	}

	index := 0
	id := "call_lorem_0"
	typ := "function"
	empty := ""

	fragments := []openrouter.PartialToolCall{
		{
			Index: &index,
			ID:    &id,
			Type:  &typ,
			Function: &openrouter.PartialFunctionCall{
				Name:      &name,
				Arguments: &empty,
			},
		},
	}

	const sliceLen = 8
	args := string(argJSON)
	for start := 0; start < len(args); start += sliceLen {
		end := min(start+sliceLen, len(args))
		slice := args[start:end]
		fragments = append(fragments, openrouter.PartialToolCall{
			Index:    &index,
			Function: &openrouter.PartialFunctionCall{Arguments: &slice},
		})
	}
	return fragments
}
