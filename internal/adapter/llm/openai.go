package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIClient serves chat and embeddings through the OpenAI API or any
// compatible endpoint.
type OpenAIClient struct {
	client         openai.Client
	embeddingModel string
	timeout        time.Duration
}

var (
	_ LLMClient = (*OpenAIClient)(nil)
	_ Embedder  = (*OpenAIClient)(nil)
)

// NewOpenAIClient creates a client. Empty apiKey and baseURL fall back to the
// SDK's environment defaults. timeout applies to blocking calls only.
func NewOpenAIClient(baseURL, apiKey, embeddingModel string, timeout time.Duration) *OpenAIClient {
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIClient{
		client:         openai.NewClient(opts...),
		embeddingModel: embeddingModel,
		timeout:        timeout,
	}
}

// blocking returns the per-request options of non-streaming calls.
func (c *OpenAIClient) blocking() []option.RequestOption {
	if c.timeout <= 0 {
		return nil
	}
	return []option.RequestOption{option.WithRequestTimeout(c.timeout)}
}

func (c *OpenAIClient) params(req *ChatCompletionRequest) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    req.Model,
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.MaxTokens != nil {
		params.MaxCompletionTokens = openai.Int(int64(*req.MaxTokens))
	}
	return params
}

// CreateChatCompletion sends a chat completion request (non-streaming).
func (c *OpenAIClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	resp, err := c.client.Chat.Completions.New(ctx, c.params(req), c.blocking()...)
	if err != nil {
		return nil, fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai chat: empty choices")
	}

	return &ChatCompletionResponse{
		Model:        resp.Model,
		Content:      resp.Choices[0].Message.Content,
		FinishReason: string(resp.Choices[0].FinishReason),
		Usage: &Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}

// CreateChatCompletionStream streams content deltas.
func (c *OpenAIClient) CreateChatCompletionStream(ctx context.Context, req *ChatCompletionRequest, callback StreamCallback) (*Usage, error) {
	params := c.params(req)
	params.StreamOptions = openai.ChatCompletionStreamOptionsParam{IncludeUsage: openai.Bool(true)}

	stream := c.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	var usage *Usage
	for stream.Next() {
		ck := stream.Current()
		if ck.Usage.TotalTokens > 0 {
			usage = &Usage{
				PromptTokens:     int(ck.Usage.PromptTokens),
				CompletionTokens: int(ck.Usage.CompletionTokens),
				TotalTokens:      int(ck.Usage.TotalTokens),
			}
		}
		for _, ch := range ck.Choices {
			if ch.Delta.Content == "" && ch.FinishReason == "" {
				continue
			}
			if err := callback(&StreamChunk{Content: ch.Delta.Content, FinishReason: string(ch.FinishReason)}); err != nil {
				return usage, err
			}
		}
	}
	if err := stream.Err(); err != nil {
		return usage, fmt.Errorf("openai streaming error: %w", err)
	}
	return usage, nil
}

// Embed embeds all texts in a single request.
func (c *OpenAIClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := c.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: c.embeddingModel,
	}, c.blocking()...)
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if int(d.Index) >= len(out) {
			return nil, fmt.Errorf("openai embeddings: index %d out of range", d.Index)
		}
		emb := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			emb[i] = float32(v)
		}
		out[d.Index] = emb
	}
	return out, nil
}
