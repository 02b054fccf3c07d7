package llm

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Provider names.
const (
	ProviderMock      = "mock"
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Options selects and configures a backend.
type Options struct {
	Provider       string
	BaseURL        string
	APIKey         string
	EmbeddingModel string
	Timeout        time.Duration
}

// NewLLMClient creates the chat client named by opts.Provider.
func NewLLMClient(opts Options, log *zap.Logger) (LLMClient, error) {
	switch strings.ToLower(opts.Provider) {
	case ProviderMock:
		log.Info("using mock LLM client")
		return NewMockClient(), nil
	case ProviderOllama, "":
		return NewOllamaClient(opts.BaseURL, opts.EmbeddingModel, opts.Timeout)
	case ProviderOpenAI:
		return NewOpenAIClient(opts.BaseURL, opts.APIKey, opts.EmbeddingModel, opts.Timeout), nil
	case ProviderAnthropic:
		return NewAnthropicClient(opts.BaseURL, opts.APIKey, opts.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", opts.Provider)
	}
}

// NewEmbedder creates the embedding backend named by opts.Provider.
func NewEmbedder(opts Options, log *zap.Logger) (Embedder, error) {
	switch strings.ToLower(opts.Provider) {
	case ProviderMock:
		log.Info("using mock embedder")
		return NewMockClient(), nil
	case ProviderOllama, "":
		return NewOllamaClient(opts.BaseURL, opts.EmbeddingModel, opts.Timeout)
	case ProviderOpenAI:
		return NewOpenAIClient(opts.BaseURL, opts.APIKey, opts.EmbeddingModel, opts.Timeout), nil
	case ProviderAnthropic:
		return nil, fmt.Errorf("provider %q has no embeddings endpoint", opts.Provider)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", opts.Provider)
	}
}
