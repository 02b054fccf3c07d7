package llm

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// mockDimensions is the size of vectors produced by MockClient.Embed.
const mockDimensions = 64

// MockClient is a deterministic LLMClient and Embedder for tests and local runs.
type MockClient struct {
	// ChunkSize is the number of bytes per streamed chunk. Defaults to 10.
	ChunkSize int
}

// NewMockClient creates a new mock LLM client.
func NewMockClient() *MockClient {
	return &MockClient{ChunkSize: 10}
}

var (
	_ LLMClient = (*MockClient)(nil)
	_ Embedder  = (*MockClient)(nil)
)

// CreateChatCompletion returns a mock response.
func (m *MockClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content := m.generateMockResponse(req)
	return &ChatCompletionResponse{
		Model:        req.Model,
		Content:      content,
		FinishReason: "stop",
		Usage:        m.usage(req, content),
	}, nil
}

// CreateChatCompletionStream simulates a streaming response.
func (m *MockClient) CreateChatCompletionStream(ctx context.Context, req *ChatCompletionRequest, callback StreamCallback) (*Usage, error) {
	content := m.generateMockResponse(req)
	chunks := m.splitIntoChunks(content)

	for i, chunk := range chunks {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		sc := &StreamChunk{Content: chunk}
		if i == len(chunks)-1 {
			sc.FinishReason = "stop"
		}
		if err := callback(sc); err != nil {
			return nil, err
		}
	}

	return m.usage(req, content), nil
}

// Embed hashes words into a fixed-size bag-of-words vector, so texts sharing
// words end up close under cosine similarity.
func (m *MockClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, mockDimensions)
		for _, word := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		}) {
			h := fnv.New32a()
			h.Write([]byte(word))
			vec[h.Sum32()%mockDimensions]++
		}
		var norm float64
		for _, v := range vec {
			norm += float64(v * v)
		}
		if norm > 0 {
			n := float32(math.Sqrt(norm))
			for j := range vec {
				vec[j] /= n
			}
		}
		out[i] = vec
	}
	return out, nil
}

// generateMockResponse echoes the last user message.
func (m *MockClient) generateMockResponse(req *ChatCompletionRequest) string {
	var lastUserMessage string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == RoleUser {
			lastUserMessage = req.Messages[i].Content
			break
		}
	}

	if lastUserMessage == "" {
		return "[MOCK] This is a mock response from the LLM client."
	}

	return fmt.Sprintf("[MOCK] Received your message: %q. This is a mock response.", truncate(lastUserMessage, 100))
}

func (m *MockClient) usage(req *ChatCompletionRequest, content string) *Usage {
	prompt := 0
	for _, msg := range req.Messages {
		prompt += len(msg.Content) / 4
	}
	return &Usage{
		PromptTokens:     prompt,
		CompletionTokens: len(content) / 4,
		TotalTokens:      prompt + len(content)/4,
	}
}

// splitIntoChunks splits a string into chunks of approximately ChunkSize bytes,
// never splitting a UTF-8 sequence.
func (m *MockClient) splitIntoChunks(s string) []string {
	size := m.ChunkSize
	if size <= 0 {
		size = 10
	}
	if len(s) == 0 {
		return []string{""}
	}

	var chunks []string
	var b strings.Builder
	for _, r := range s {
		b.WriteRune(r)
		if b.Len() >= size {
			chunks = append(chunks, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		chunks = append(chunks, b.String())
	}
	return chunks
}

// truncate truncates a string to the given number of runes.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
