package openrouter

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// sseReader scans a server-sent-events body and yields the JSON payload of
// each data line. Comment lines, blank keep-alive lines and event-name
// lines are skipped; the terminal "[DONE]" sentinel (chat protocol) maps
// to io.EOF.
type sseReader struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	done    bool
	closed  bool
}

func newSSEReader(body io.ReadCloser) *sseReader {
	scanner := bufio.NewScanner(body)
	// Single events can exceed the default 64KB token limit when a model
	// streams long encrypted reasoning blocks.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &sseReader{body: body, scanner: scanner}
}

// next returns the payload of the next data line, io.EOF when the stream
// is exhausted, or ErrStreamClosed after an explicit close.
func (r *sseReader) next() ([]byte, error) {
	if r.closed {
		return nil, ErrStreamClosed
	}
	if r.done {
		return nil, io.EOF
	}

	for r.scanner.Scan() {
		line := r.scanner.Text()

		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		// Event-name lines are redundant: every payload self-describes its
		// type, so only data lines matter.
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}

		if data == "[DONE]" {
			r.done = true
			return nil, io.EOF
		}

		return []byte(data), nil
	}

	r.done = true
	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading stream: %w", err)
	}
	return nil, io.EOF
}

func (r *sseReader) close() error {
	r.closed = true
	return r.body.Close()
}

// decodeStreamError recognizes the error payload OpenRouter can embed in
// an otherwise healthy SSE stream.
func decodeStreamError(data []byte) (*StreamError, bool) {
	var payload struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || payload.Error.Message == "" {
		return nil, false
	}
	return &StreamError{Code: payload.Error.Code, Message: payload.Error.Message}, true
}

// ChatStream is the raw chat completions SSE stream. It implements
// ChatChunkSource; wrap it in NewToolAwareStream or AdaptChatStream for
// the higher-level vocabularies.
type ChatStream struct {
	reader *sseReader
}

// Recv returns the next decoded chunk. Mid-stream error payloads surface
// as *StreamError without ending the stream; io.EOF marks exhaustion, and
// ErrStreamClosed is returned once Close has been called.
func (s *ChatStream) Recv() (*CompletionsResponse, error) {
	for {
		data, err := s.reader.next()
		if err != nil {
			return nil, err
		}

		var chunk CompletionsResponse
		if err := json.Unmarshal(data, &chunk); err != nil {
			if streamErr, ok := decodeStreamError(data); ok {
				return nil, streamErr
			}
			// Ignore unparseable payloads (keep-alives and the like).
			continue
		}
		return &chunk, nil
	}
}

// Close releases the underlying response body. Safe to call mid-stream.
func (s *ChatStream) Close() error {
	return s.reader.close()
}

// ResponsesStream is the raw Responses API SSE stream. It implements
// ResponsesEventSource; wrap it in AdaptResponsesStream for the unified
// vocabulary.
type ResponsesStream struct {
	reader *sseReader
}

// Recv returns the next decoded lifecycle event, io.EOF on exhaustion, or
// ErrStreamClosed once Close has been called.
func (s *ResponsesStream) Recv() (*ResponsesStreamEvent, error) {
	for {
		data, err := s.reader.next()
		if err != nil {
			return nil, err
		}

		var event ResponsesStreamEvent
		if err := json.Unmarshal(data, &event); err != nil {
			if streamErr, ok := decodeStreamError(data); ok {
				return nil, streamErr
			}
			continue
		}
		return &event, nil
	}
}

// Close releases the underlying response body. Safe to call mid-stream.
func (s *ResponsesStream) Close() error {
	return s.reader.close()
}

// MessagesStream is the raw Messages API SSE stream. It implements
// MessagesEventSource; wrap it in AdaptMessagesStream for the unified
// vocabulary.
type MessagesStream struct {
	reader *sseReader
}

// Recv returns the next decoded event, io.EOF on exhaustion, or
// ErrStreamClosed once Close has been called. Note that upstream "error"
// events are data, not transport failures: they decode into
// MessagesStreamEvent with Type "error".
func (s *MessagesStream) Recv() (*MessagesStreamEvent, error) {
	for {
		data, err := s.reader.next()
		if err != nil {
			return nil, err
		}

		var event MessagesStreamEvent
		if err := json.Unmarshal(data, &event); err != nil {
			if streamErr, ok := decodeStreamError(data); ok {
				return nil, streamErr
			}
			continue
		}
		return &event, nil
	}
}

// Close releases the underlying response body. Safe to call mid-stream.
func (s *MessagesStream) Close() error {
	return s.reader.close()
}
