package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

// errOllamaIncomplete is returned when a chat response ends before Ollama
// marks it done.
var errOllamaIncomplete = errors.New("ollama response ended before done")

// OllamaClient serves chat and embeddings from an Ollama server.
type OllamaClient struct {
	client         *api.Client
	embeddingModel string
	keepAlive      *api.Duration
	// timeout bounds blocking chat and embedding calls. Streams are bounded by
	// the caller's context only.
	timeout time.Duration
}

var (
	_ LLMClient = (*OllamaClient)(nil)
	_ Embedder  = (*OllamaClient)(nil)
)

// NewOllamaClient connects to baseURL, or to OLLAMA_HOST when baseURL is empty.
// timeout applies to CreateChatCompletion and Embed.
func NewOllamaClient(baseURL, embeddingModel string, timeout time.Duration) (*OllamaClient, error) {
	var client *api.Client
	if baseURL == "" {
		c, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("ollama client from environment: %w", err)
		}
		client = c
	} else {
		u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
		if err != nil {
			return nil, fmt.Errorf("parse ollama url: %w", err)
		}
		client = api.NewClient(u, http.DefaultClient)
	}

	return &OllamaClient{
		client:         client,
		embeddingModel: embeddingModel,
		keepAlive:      &api.Duration{Duration: 60 * time.Minute},
		timeout:        timeout,
	}, nil
}

func (c *OllamaClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *OllamaClient) chatRequest(req *ChatCompletionRequest, stream bool) *api.ChatRequest {
	msgs := make([]api.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, api.Message{Role: m.Role, Content: m.Content})
	}

	opts := map[string]any{}
	if req.Temperature != nil {
		opts["temperature"] = *req.Temperature
	}
	if req.MaxTokens != nil {
		opts["num_predict"] = *req.MaxTokens
	}

	return &api.ChatRequest{
		Model:     req.Model,
		Messages:  msgs,
		Stream:    &stream,
		Options:   opts,
		KeepAlive: c.keepAlive,
	}
}

// CreateChatCompletion sends a blocking chat request.
func (c *OllamaClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var (
		out  ChatCompletionResponse
		done bool
	)
	err := c.client.Chat(ctx, c.chatRequest(req, false), func(resp api.ChatResponse) error {
		out.Model = resp.Model
		out.Content += resp.Message.Content
		if resp.Done {
			done = true
			out.FinishReason = resp.DoneReason
			out.Usage = &Usage{
				PromptTokens:     resp.PromptEvalCount,
				CompletionTokens: resp.EvalCount,
				TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat: %w", err)
	}
	if !done {
		return nil, fmt.Errorf("ollama chat: %w", errOllamaIncomplete)
	}
	return &out, nil
}

// CreateChatCompletionStream streams chat content as Ollama produces it.
func (c *OllamaClient) CreateChatCompletionStream(ctx context.Context, req *ChatCompletionRequest, callback StreamCallback) (*Usage, error) {
	var usage *Usage
	err := c.client.Chat(ctx, c.chatRequest(req, true), func(resp api.ChatResponse) error {
		if resp.Done {
			usage = &Usage{
				PromptTokens:     resp.PromptEvalCount,
				CompletionTokens: resp.EvalCount,
				TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
			}
		}
		if resp.Message.Content == "" && !resp.Done {
			return nil
		}
		return callback(&StreamChunk{Content: resp.Message.Content, FinishReason: resp.DoneReason})
	})
	if err != nil {
		return usage, fmt.Errorf("ollama chat stream: %w", err)
	}
	if usage == nil {
		return nil, fmt.Errorf("ollama chat stream: %w", errOllamaIncomplete)
	}
	return usage, nil
}

// Embed calls the embeddings endpoint once per text.
func (c *OllamaClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		emb, err := c.embedOne(ctx, text)
		if err != nil {
			return nil, err
		}
		out = append(out, emb)
	}
	return out, nil
}

func (c *OllamaClient) embedOne(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.client.Embeddings(ctx, &api.EmbeddingRequest{
		Model:     c.embeddingModel,
		Prompt:    text,
		KeepAlive: c.keepAlive,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embeddings: %w", err)
	}

	emb := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		emb[i] = float32(v)
	}
	return emb, nil
}
