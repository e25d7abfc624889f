package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultBaseURL is the production OpenRouter API endpoint.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

// Client talks to the OpenRouter API. All configuration is explicit and
// passed in at construction; there is no process-wide state.
type Client struct {
	apiKey      string
	baseURL     string
	xTitle      string
	httpReferer string
	httpClient  *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API endpoint (e.g. for a proxy or test server).
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient injects a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithXTitle sets the X-Title header used for app attribution on
// openrouter.ai rankings.
func WithXTitle(title string) ClientOption {
	return func(c *Client) {
		c.xTitle = title
	}
}

// WithHTTPReferer sets the HTTP-Referer attribution header.
func WithHTTPReferer(referer string) ClientOption {
	return func(c *Client) {
		c.httpReferer = referer
	}
}

// NewClient creates a client with the given API key.
func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, ErrKeyNotConfigured
	}

	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewClientFromConfig creates a client from a loaded Config. The config's
// API key and base URL apply first; opts may override them.
func NewClientFromConfig(cfg *Config, opts ...ClientOption) (*Client, error) {
	base := []ClientOption{}
	if cfg.BaseURL != "" {
		base = append(base, WithBaseURL(cfg.BaseURL))
	}
	return NewClient(cfg.APIKey, append(base, opts...)...)
}

// newRequest builds an authenticated JSON POST request.
func (c *Client) newRequest(ctx context.Context, path string, payload any, stream bool) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}
	if c.xTitle != "" {
		req.Header.Set("X-Title", c.xTitle)
	}
	if c.httpReferer != "" {
		req.Header.Set("HTTP-Referer", c.httpReferer)
	}
	return req, nil
}

// send executes a blocking request and decodes the JSON response into out.
func (c *Client) send(ctx context.Context, path string, payload, out any) error {
	req, err := c.newRequest(ctx, path, payload, false)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("openrouter HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.handleErrorResponse(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// openStream executes a streaming request and hands back the SSE body.
func (c *Client) openStream(ctx context.Context, path string, payload any) (*sseReader, error) {
	req, err := c.newRequest(ctx, path, payload, true)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openrouter HTTP request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, c.handleErrorResponse(resp)
	}

	return newSSEReader(resp.Body), nil
}

// handleErrorResponse parses error responses from the API into typed
// errors.
func (c *Client) handleErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errResp struct {
		Error struct {
			Code     int            `json:"code"`
			Message  string         `json:"message"`
			Metadata map[string]any `json:"metadata"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error.Message == "" {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}

	meta := errResp.Error.Metadata

	// Moderation errors carry a reasons list in metadata.
	if reasons, ok := meta["reasons"].([]any); ok && len(reasons) > 0 {
		modErr := &ModerationError{}
		for _, reason := range reasons {
			if s, ok := reason.(string); ok {
				modErr.Reasons = append(modErr.Reasons, s)
			}
		}
		modErr.FlaggedInput, _ = meta["flagged_input"].(string)
		modErr.ProviderName, _ = meta["provider_name"].(string)
		modErr.ModelSlug, _ = meta["model_slug"].(string)
		return modErr
	}

	// Upstream provider failures name the provider and relay its raw error.
	if providerName, ok := meta["provider_name"].(string); ok && providerName != "" {
		return &ProviderUpstreamError{
			ProviderName: providerName,
			Raw:          meta["raw"],
			Message:      errResp.Error.Message,
		}
	}

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Message:    errResp.Error.Message,
		Metadata:   meta,
	}
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		apiErr.Err = ErrInvalidAPIKey
	case http.StatusTooManyRequests:
		apiErr.Err = ErrRateLimited
	}
	return apiErr
}

// SendChatCompletion sends a blocking chat completions request.
func (c *Client) SendChatCompletion(ctx context.Context, req *CompletionsRequest) (*CompletionsResponse, error) {
	payload := *req
	payload.Stream = false

	var out CompletionsResponse
	if err := c.send(ctx, "/chat/completions", &payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StreamChatCompletion opens a streaming chat completions request and
// returns the raw chunk stream.
func (c *Client) StreamChatCompletion(ctx context.Context, req *CompletionsRequest) (*ChatStream, error) {
	payload := *req
	payload.Stream = true

	reader, err := c.openStream(ctx, "/chat/completions", &payload)
	if err != nil {
		return nil, err
	}
	return &ChatStream{reader: reader}, nil
}

// StreamChatCompletionToolAware opens a streaming chat completions request
// wrapped in a ToolAwareStream, which reassembles fragmented tool calls.
func (c *Client) StreamChatCompletionToolAware(ctx context.Context, req *CompletionsRequest) (*ToolAwareStream, error) {
	stream, err := c.StreamChatCompletion(ctx, req)
	if err != nil {
		return nil, err
	}
	return NewToolAwareStream(stream), nil
}

// StreamChatCompletionUnified opens a streaming chat completions request
// translated into the unified event vocabulary.
func (c *Client) StreamChatCompletionUnified(ctx context.Context, req *CompletionsRequest) (*UnifiedStream, error) {
	stream, err := c.StreamChatCompletion(ctx, req)
	if err != nil {
		return nil, err
	}
	return AdaptChatStream(stream), nil
}

// CreateResponse sends a blocking Responses API request.
func (c *Client) CreateResponse(ctx context.Context, req *ResponsesRequest) (*ResponsesResponse, error) {
	payload := *req
	payload.Stream = false

	var out ResponsesResponse
	if err := c.send(ctx, "/responses", &payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StreamResponse opens a streaming Responses API request and returns the
// raw lifecycle event stream.
func (c *Client) StreamResponse(ctx context.Context, req *ResponsesRequest) (*ResponsesStream, error) {
	payload := *req
	payload.Stream = true

	reader, err := c.openStream(ctx, "/responses", &payload)
	if err != nil {
		return nil, err
	}
	return &ResponsesStream{reader: reader}, nil
}

// StreamResponseUnified opens a streaming Responses API request translated
// into the unified event vocabulary.
func (c *Client) StreamResponseUnified(ctx context.Context, req *ResponsesRequest) (*UnifiedStream, error) {
	stream, err := c.StreamResponse(ctx, req)
	if err != nil {
		return nil, err
	}
	return AdaptResponsesStream(stream), nil
}

// CreateMessage sends a blocking Messages API request.
func (c *Client) CreateMessage(ctx context.Context, req *MessagesRequest) (*MessagesResponse, error) {
	payload := *req
	payload.Stream = false

	var out MessagesResponse
	if err := c.send(ctx, "/messages", &payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StreamMessages opens a streaming Messages API request and returns the
// raw event stream.
func (c *Client) StreamMessages(ctx context.Context, req *MessagesRequest) (*MessagesStream, error) {
	payload := *req
	payload.Stream = true

	reader, err := c.openStream(ctx, "/messages", &payload)
	if err != nil {
		return nil, err
	}
	return &MessagesStream{reader: reader}, nil
}

// StreamMessagesUnified opens a streaming Messages API request translated
// into the unified event vocabulary.
func (c *Client) StreamMessagesUnified(ctx context.Context, req *MessagesRequest) (*UnifiedStream, error) {
	stream, err := c.StreamMessages(ctx, req)
	if err != nil {
		return nil, err
	}
	return AdaptMessagesStream(stream), nil
}
