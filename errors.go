package openrouter

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
// These can be checked with errors.Is().
var (
	// ErrInvalidAPIKey indicates the API key is missing, malformed, or unauthorized.
	ErrInvalidAPIKey = errors.New("openrouter: invalid API key")

	// ErrKeyNotConfigured indicates no API key was found in config or environment.
	ErrKeyNotConfigured = errors.New("openrouter: API key not configured")

	// ErrConfigNotFound indicates the configuration file does not exist.
	ErrConfigNotFound = errors.New("openrouter: config file not found")

	// ErrRateLimited indicates the API rate limit has been exceeded.
	ErrRateLimited = errors.New("openrouter: rate limit exceeded")

	// ErrStreamClosed indicates Recv was called on a closed stream.
	ErrStreamClosed = errors.New("openrouter: stream closed")
)

// APIError represents an HTTP status error returned by the OpenRouter API.
type APIError struct {
	StatusCode int            // HTTP status code
	Message    string         // Error message from the API
	Metadata   map[string]any // Additional context (provider name, raw error, moderation reasons)
	Err        error          // Wrapped sentinel error, if the status maps to one
}

func (e *APIError) Error() string {
	return fmt.Sprintf("openrouter API error (status %d): %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// ModerationError represents a content moderation violation. OpenRouter
// returns these with a metadata block naming the flagged input and the
// reasons.
type ModerationError struct {
	Reasons      []string // Moderation categories that were violated
	FlaggedInput string   // Truncated excerpt of the offending input
	ProviderName string   // Provider whose moderation flagged the input
	ModelSlug    string   // Model the request was routed to
}

func (e *ModerationError) Error() string {
	return fmt.Sprintf("openrouter: input flagged by %s moderation: %v", e.ProviderName, e.Reasons)
}

// ProviderUpstreamError represents an error raised by the upstream model
// provider and relayed by OpenRouter.
type ProviderUpstreamError struct {
	ProviderName string // Provider that failed
	Raw          any    // Raw provider error payload
	Message      string // Relayed error message
}

func (e *ProviderUpstreamError) Error() string {
	return fmt.Sprintf("openrouter: provider '%s' error: %s", e.ProviderName, e.Message)
}

// StreamError represents a mid-stream error payload delivered inside an
// otherwise healthy SSE stream. Receiving one does not terminate the
// stream; callers decide whether to keep polling.
type StreamError struct {
	Code    int    // Error code from the payload, if present
	Message string // Error message from the payload
}

func (e *StreamError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("openrouter stream error (code %d): %s", e.Code, e.Message)
	}
	return fmt.Sprintf("openrouter stream error: %s", e.Message)
}

// ConfigError represents a configuration parsing or validation failure.
type ConfigError struct {
	Path   string // Config file path, if the error is file-scoped
	Reason string // Human-readable explanation
	Err    error  // Wrapped error (parse error, ErrConfigNotFound, ...)
}

func (e *ConfigError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("openrouter config '%s': %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("openrouter config: %s", e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IsRetryable checks if an error is potentially retryable.
// Returns true for rate limits and transient upstream failures.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrRateLimited) {
		return true
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 408 || apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}

	return false
}

// IsAuthError checks if an error is related to authentication.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrInvalidAPIKey) || errors.Is(err, ErrKeyNotConfigured) {
		return true
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 401 || apiErr.StatusCode == 403
	}

	return false
}
