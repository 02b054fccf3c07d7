// Package llm provides an abstraction over answer-generation and embedding backends.
package llm

import "context"

// LLMClient defines the interface for chat completion backends.
type LLMClient interface {
	// CreateChatCompletion sends a chat completion request (non-streaming).
	CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error)

	// CreateChatCompletionStream sends a streaming chat completion request.
	// The callback is called for each chunk received, in order. Returning an
	// error from the callback aborts the stream with that error.
	CreateChatCompletionStream(ctx context.Context, req *ChatCompletionRequest, callback StreamCallback) (*Usage, error)
}

// Embedder turns texts into vectors, one per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// StreamCallback is called for each chunk in a streaming response.
type StreamCallback func(chunk *StreamChunk) error
