// Package llm provides an abstraction for OpenAI-compatible API clients.
package llm

import (
	"context"
	"io"
)

// LLMClient defines the interface for LLM API operations.
type LLMClient interface {
	// CreateChatCompletionStream sends a streaming chat completion request.
	// The callback is called for each chunk received.
	CreateChatCompletionStream(ctx context.Context, req *ChatCompletionRequest, callback StreamCallback) (*Usage, error)

	// CreateSpeech synthesizes speech. The caller must close the returned audio stream.
	CreateSpeech(ctx context.Context, req *SpeechRequest) (io.ReadCloser, error)

	// ListModels retrieves the list of available models.
	ListModels(ctx context.Context) ([]Model, error)
}

// Ensure Client implements LLMClient interface.
var _ LLMClient = (*Client)(nil)
