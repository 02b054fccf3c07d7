package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMockClientStreamMatchesCompletion(t *testing.T) {
	m := NewMockClient()
	req := &ChatCompletionRequest{
		Model: "mock",
		Messages: []ChatMessage{
			{Role: RoleSystem, Content: "be nice"},
			{Role: RoleUser, Content: "Is löyly steam?"},
		},
	}

	full, err := m.CreateChatCompletion(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, full.Content, "Is löyly steam?")

	var b strings.Builder
	var chunks []*StreamChunk
	usage, err := m.CreateChatCompletionStream(context.Background(), req, func(chunk *StreamChunk) error {
		chunks = append(chunks, chunk)
		b.WriteString(chunk.Content)
		return nil
	})
	require.NoError(t, err)
	require.NotNil(t, usage)
	assert.Greater(t, len(chunks), 1)
	assert.Equal(t, full.Content, b.String())
	assert.Equal(t, "stop", chunks[len(chunks)-1].FinishReason)
}

func TestMockClientStreamStopsOnCallbackError(t *testing.T) {
	m := NewMockClient()
	boom := errors.New("consumer gone")
	calls := 0

	_, err := m.CreateChatCompletionStream(context.Background(), &ChatCompletionRequest{
		Messages: []ChatMessage{{Role: RoleUser, Content: "a fairly long question to get many chunks"}},
	}, func(*StreamChunk) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestMockClientStreamHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMockClient().CreateChatCompletionStream(ctx, &ChatCompletionRequest{
		Messages: []ChatMessage{{Role: RoleUser, Content: "hi"}},
	}, func(*StreamChunk) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMockEmbedderSimilarity(t *testing.T) {
	vecs, err := NewMockClient().Embed(context.Background(), []string{
		"sauna temperature and humidity",
		"ideal sauna temperature",
		"stock market news",
	})
	require.NoError(t, err)
	require.Len(t, vecs, 3)

	dot := func(a, b []float32) float32 {
		var s float32
		for i := range a {
			s += a[i] * b[i]
		}
		return s
	}
	assert.Greater(t, dot(vecs[0], vecs[1]), dot(vecs[0], vecs[2]))
}

func TestSystemAndTurns(t *testing.T) {
	system, turns := systemAndTurns([]ChatMessage{
		{Role: RoleSystem, Content: "a"},
		{Role: RoleUser, Content: "q"},
		{Role: RoleSystem, Content: "b"},
		{Role: RoleAssistant, Content: "r"},
	})
	assert.Equal(t, "a\n\nb", system)
	assert.Equal(t, []ChatMessage{{Role: RoleUser, Content: "q"}, {Role: RoleAssistant, Content: "r"}}, turns)
}

func TestFactory(t *testing.T) {
	log := zap.NewNop()

	c, err := NewLLMClient(Options{Provider: "MOCK"}, log)
	require.NoError(t, err)
	assert.IsType(t, &MockClient{}, c)

	c, err = NewLLMClient(Options{Provider: ProviderOpenAI, APIKey: "k"}, log)
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, c)

	c, err = NewLLMClient(Options{Provider: ProviderAnthropic, APIKey: "k"}, log)
	require.NoError(t, err)
	assert.IsType(t, &AnthropicClient{}, c)

	c, err = NewLLMClient(Options{Provider: ProviderOllama, BaseURL: "http://localhost:11434"}, log)
	require.NoError(t, err)
	assert.IsType(t, &OllamaClient{}, c)

	_, err = NewLLMClient(Options{Provider: "bard"}, log)
	assert.Error(t, err)

	_, err = NewEmbedder(Options{Provider: ProviderAnthropic}, log)
	assert.Error(t, err)
}
