// Package openrouter is a client for the OpenRouter API.
//
// The package exposes three streaming wire protocols (OpenAI-style chat
// completion chunks, typed Responses lifecycle events, and
// Anthropic-compatible Messages content-block events) plus two
// normalization layers on top of them:
//
//   - ToolAwareStream wraps the chat protocol, forwarding text and
//     reasoning deltas immediately while reassembling fragmented tool
//     calls into complete values delivered in a single terminal event.
//   - UnifiedStream (AdaptChatStream, AdaptResponsesStream,
//     AdaptMessagesStream) translates each native protocol into one shared
//     event vocabulary, with tool data forwarded incrementally.
//
// All streams are pull-based: one Next call consumes at most one unit of
// network input and buffers any surplus events for the following call.
// Dropping a stream mid-iteration is always safe.
package openrouter
