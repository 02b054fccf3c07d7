package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicMaxTokens = 1024

// AnthropicClient serves chat through the Anthropic Messages API. It does not
// provide embeddings.
type AnthropicClient struct {
	client  anthropic.Client
	timeout time.Duration
}

var _ LLMClient = (*AnthropicClient)(nil)

// NewAnthropicClient creates a client; an empty apiKey falls back to ANTHROPIC_API_KEY.
// timeout applies to blocking calls only.
func NewAnthropicClient(baseURL, apiKey string, timeout time.Duration) *AnthropicClient {
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &AnthropicClient{client: anthropic.NewClient(opts...), timeout: timeout}
}

func (c *AnthropicClient) blocking() []option.RequestOption {
	if c.timeout <= 0 {
		return nil
	}
	return []option.RequestOption{option.WithRequestTimeout(c.timeout)}
}

func (c *AnthropicClient) params(req *ChatCompletionRequest) anthropic.MessageNewParams {
	system, turns := systemAndTurns(req.Messages)

	messages := make([]anthropic.MessageParam, 0, len(turns))
	for _, m := range turns {
		if m.Role == RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		} else {
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	maxTokens := int64(defaultAnthropicMaxTokens)
	if req.MaxTokens != nil {
		maxTokens = int64(*req.MaxTokens)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		Messages:  messages,
		MaxTokens: maxTokens,
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	return params
}

// CreateChatCompletion sends a blocking Messages request.
func (c *AnthropicClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	resp, err := c.client.Messages.New(ctx, c.params(req), c.blocking()...)
	if err != nil {
		return nil, fmt.Errorf("anthropic api error: %w", err)
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.AsText().Text)
		}
	}

	return &ChatCompletionResponse{
		Model:        string(resp.Model),
		Content:      b.String(),
		FinishReason: string(resp.StopReason),
		Usage: &Usage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}, nil
}

// CreateChatCompletionStream streams text deltas from the Messages API.
func (c *AnthropicClient) CreateChatCompletionStream(ctx context.Context, req *ChatCompletionRequest, callback StreamCallback) (*Usage, error) {
	stream := c.client.Messages.NewStreaming(ctx, c.params(req))
	defer stream.Close()

	message := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		if err := message.Accumulate(event); err != nil {
			return nil, fmt.Errorf("anthropic accumulate: %w", err)
		}

		switch ev := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			if delta, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
				if err := callback(&StreamChunk{Content: delta.Text}); err != nil {
					return nil, err
				}
			}
		case anthropic.MessageStopEvent:
			if err := callback(&StreamChunk{FinishReason: string(message.StopReason)}); err != nil {
				return nil, err
			}
		}
	}
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("anthropic streaming error: %w", err)
	}

	return &Usage{
		PromptTokens:     int(message.Usage.InputTokens),
		CompletionTokens: int(message.Usage.OutputTokens),
		TotalTokens:      int(message.Usage.InputTokens + message.Usage.OutputTokens),
	}, nil
}
