package openrouter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

// sseHandler writes the given payloads as an SSE response.
func sseHandler(t *testing.T, eventName string, payloads ...string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "text/event-stream")
		for _, payload := range payloads {
			if eventName != "" {
				fmt.Fprintf(w, "event: %s\n", eventName)
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
		}
	}
}

func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	client, err := NewClient("sk-or-test", WithBaseURL(server.URL))
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient("")
	assert.ErrorIs(t, err, ErrKeyNotConfigured)
}

func TestSendChatCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-or-test", r.Header.Get("Authorization"))
		assert.Equal(t, "my-app", r.Header.Get("X-Title"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, "openai/gpt-4o", gjson.GetBytes(body, "model").String())
		assert.False(t, gjson.GetBytes(body, "stream").Bool())

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id": "gen-123",
			"model": "openai/gpt-4o",
			"object": "chat.completion",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "Hi!"}}],
			"usage": {"prompt_tokens": 5, "completion_tokens": 2, "total_tokens": 7}
		}`)
	}))
	defer server.Close()

	client, err := NewClient("sk-or-test", WithBaseURL(server.URL), WithXTitle("my-app"))
	require.NoError(t, err)

	resp, err := client.SendChatCompletion(context.Background(), &CompletionsRequest{
		Model:    "openai/gpt-4o",
		Messages: []Message{{Role: "user", Content: "Hello"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "gen-123", resp.ID)
	require.Len(t, resp.Choices, 1)
	require.NotNil(t, resp.Choices[0].Message)
	require.NotNil(t, resp.Choices[0].Message.Content)
	assert.Equal(t, "Hi!", *resp.Choices[0].Message.Content)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 7, resp.Usage.TotalTokens)
}

func TestStreamChatCompletion(t *testing.T) {
	server := httptest.NewServer(sseHandler(t, "",
		`{"id":"gen-1","model":"m","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"role":"assistant","content":"Hel"}}]}`,
		`{"id":"gen-1","model":"m","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":"lo"},"finish_reason":"stop"}]}`,
		`[DONE]`,
	))
	defer server.Close()

	stream, err := newTestClient(t, server).StreamChatCompletion(context.Background(), &CompletionsRequest{
		Model:    "m",
		Messages: []Message{{Role: "user", Content: "Hi"}},
	})
	require.NoError(t, err)
	defer stream.Close()

	first, err := stream.Recv()
	require.NoError(t, err)
	require.NotNil(t, first.Choices[0].Delta.Content)
	assert.Equal(t, "Hel", *first.Choices[0].Delta.Content)

	second, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "lo", *second.Choices[0].Delta.Content)
	require.NotNil(t, second.Choices[0].FinishReason)
	assert.Equal(t, FinishReasonStop, *second.Choices[0].FinishReason)

	_, err = stream.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestStreamChatCompletionSkipsCommentsAndKeepAlives(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": OPENROUTER PROCESSING\n\n")
		fmt.Fprint(w, "data: {\"id\":\"gen-1\",\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n\n")
		fmt.Fprint(w, ": keep-alive\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	stream, err := newTestClient(t, server).StreamChatCompletion(context.Background(), &CompletionsRequest{Model: "m"})
	require.NoError(t, err)
	defer stream.Close()

	chunk, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "x", *chunk.Choices[0].Delta.Content)

	_, err = stream.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestStreamChatCompletionMidStreamError(t *testing.T) {
	server := httptest.NewServer(sseHandler(t, "",
		`{"error":{"code":502,"message":"Provider returned error"}}`,
		`[DONE]`,
	))
	defer server.Close()

	stream, err := newTestClient(t, server).StreamChatCompletion(context.Background(), &CompletionsRequest{Model: "m"})
	require.NoError(t, err)
	defer stream.Close()

	_, err = stream.Recv()
	var streamErr *StreamError
	require.ErrorAs(t, err, &streamErr)
	assert.Equal(t, 502, streamErr.Code)
	assert.Equal(t, "Provider returned error", streamErr.Message)

	// The embedded error does not end the stream; the sentinel does.
	_, err = stream.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestStreamRecvAfterCloseReturnsErrStreamClosed(t *testing.T) {
	server := httptest.NewServer(sseHandler(t, "",
		`{"id":"gen-1","choices":[{"delta":{"content":"a"}}]}`,
		`{"id":"gen-1","choices":[{"delta":{"content":"b"}}]}`,
		`[DONE]`,
	))
	defer server.Close()

	stream, err := newTestClient(t, server).StreamChatCompletion(context.Background(), &CompletionsRequest{Model: "m"})
	require.NoError(t, err)

	_, err = stream.Recv()
	require.NoError(t, err)

	require.NoError(t, stream.Close())

	// Closing mid-stream is distinguishable from normal exhaustion.
	_, err = stream.Recv()
	assert.ErrorIs(t, err, ErrStreamClosed)
	_, err = stream.Recv()
	assert.ErrorIs(t, err, ErrStreamClosed)
}

func TestStreamResponse(t *testing.T) {
	server := httptest.NewServer(sseHandler(t, "response.output_text.delta",
		`{"type":"response.output_text.delta","sequence_number":3,"delta":"Hey"}`,
	))
	defer server.Close()

	stream, err := newTestClient(t, server).StreamResponse(context.Background(), &ResponsesRequest{
		Model: "openai/o4-mini",
		Input: []byte(`"Hello"`),
	})
	require.NoError(t, err)
	defer stream.Close()

	event, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "response.output_text.delta", event.Type)
	require.NotNil(t, event.SequenceNumber)
	assert.Equal(t, int64(3), *event.SequenceNumber)
	assert.Equal(t, "Hey", gjson.GetBytes(event.Payload, "delta").String())

	_, err = stream.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestStreamMessagesUnifiedEndToEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.True(t, gjson.GetBytes(body, "stream").Bool())

		w.Header().Set("Content-Type", "text/event-stream")
		lines := []string{
			`{"type":"message_start","message":{"id":"msg_9","model":"anthropic/claude-sonnet-4","usage":{"input_tokens":6,"output_tokens":1}}}`,
			`{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`,
			`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hi!"}}`,
			`{"type":"content_block_stop","index":0}`,
			`{"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":4}}`,
			`{"type":"message_stop"}`,
		}
		for _, line := range lines {
			fmt.Fprintf(w, "data: %s\n\n", line)
		}
	}))
	defer server.Close()

	stream, err := newTestClient(t, server).StreamMessagesUnified(context.Background(), &MessagesRequest{
		Model:     "anthropic/claude-sonnet-4",
		MaxTokens: 64,
		Messages:  []MessagesMessage{{Role: "user", Content: MessagesText("Hello")}},
	})
	require.NoError(t, err)

	events := collectUnified(stream)
	require.Len(t, events, 2)
	assert.Equal(t, UnifiedEventContentDelta, events[0].Type)
	assert.Equal(t, "Hi!", events[0].Text)
	require.Equal(t, UnifiedEventDone, events[1].Type)
	assert.Equal(t, "msg_9", events[1].Done.ID)
	assert.Equal(t, "end_turn", events[1].Done.FinishReason)
}

func TestCreateMessagePreservesRawBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id": "msg_raw",
			"type": "message",
			"role": "assistant",
			"model": "anthropic/claude-sonnet-4",
			"content": [{"type": "text", "text": "Hello"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 3, "output_tokens": 2, "server_tool_use": {"web_search_requests": 1}}
		}`)
	}))
	defer server.Close()

	resp, err := newTestClient(t, server).CreateMessage(context.Background(), &MessagesRequest{
		Model:     "anthropic/claude-sonnet-4",
		MaxTokens: 16,
		Messages:  []MessagesMessage{{Role: "user", Content: MessagesText("Hi")}},
	})
	require.NoError(t, err)

	assert.Equal(t, "msg_raw", resp.ID)
	require.Len(t, resp.Content, 1)
	assert.Equal(t, "Hello", resp.Content[0].Text)
	require.NotNil(t, resp.Usage)
	require.NotNil(t, resp.Usage.InputTokens)
	assert.Equal(t, int64(3), *resp.Usage.InputTokens)
	require.Contains(t, resp.Usage.Extra, "server_tool_use")

	// The untouched body stays available for fields this struct does not
	// model.
	assert.Equal(t, int64(1),
		gjson.GetBytes(resp.Raw, "usage.server_tool_use.web_search_requests").Int())
}

func TestHandleErrorResponseModeration(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":{"code":403,"message":"flagged","metadata":{
			"reasons": ["violence"],
			"flagged_input": "how to ...",
			"provider_name": "OpenAI",
			"model_slug": "openai/gpt-4o"
		}}}`)
	}))
	defer server.Close()

	_, err := newTestClient(t, server).SendChatCompletion(context.Background(), &CompletionsRequest{Model: "m"})
	var modErr *ModerationError
	require.ErrorAs(t, err, &modErr)
	assert.Equal(t, []string{"violence"}, modErr.Reasons)
	assert.Equal(t, "OpenAI", modErr.ProviderName)
	assert.Equal(t, "openai/gpt-4o", modErr.ModelSlug)
}

func TestHandleErrorResponseProviderUpstream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, `{"error":{"code":502,"message":"upstream failed","metadata":{
			"provider_name": "Anthropic",
			"raw": {"type": "overloaded_error"}
		}}}`)
	}))
	defer server.Close()

	_, err := newTestClient(t, server).SendChatCompletion(context.Background(), &CompletionsRequest{Model: "m"})
	var provErr *ProviderUpstreamError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, "Anthropic", provErr.ProviderName)
	assert.Equal(t, "upstream failed", provErr.Message)
}

func TestHandleErrorResponseSentinels(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		sentinel error
		retry    bool
		auth     bool
	}{
		{"unauthorized", http.StatusUnauthorized, ErrInvalidAPIKey, false, true},
		{"rate limited", http.StatusTooManyRequests, ErrRateLimited, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprintf(w, `{"error":{"code":%d,"message":"nope"}}`, tt.status)
			}))
			defer server.Close()

			_, err := newTestClient(t, server).SendChatCompletion(context.Background(), &CompletionsRequest{Model: "m"})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, tt.retry, IsRetryable(err))
			assert.Equal(t, tt.auth, IsAuthError(err))
		})
	}
}

func TestHandleErrorResponseNonJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "upstream exploded")
	}))
	defer server.Close()

	_, err := newTestClient(t, server).SendChatCompletion(context.Background(), &CompletionsRequest{Model: "m"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, "upstream exploded", apiErr.Message)
	assert.True(t, IsRetryable(err))
}
