package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/KaanK026/Harvia/internal/adapter/llm"
	"github.com/KaanK026/Harvia/internal/domain"
	"github.com/KaanK026/Harvia/internal/metrics"
)

// QueryEngine answers questions with retrieved context and prior history.
type QueryEngine interface {
	// Ready reports whether the index has been loaded.
	Ready() bool

	// Answer produces a complete answer.
	Answer(ctx context.Context, history []domain.Exchange, question string) (*domain.Answer, error)

	// Stream calls onToken with each non-empty piece of the answer as it is
	// generated and returns the assembled answer. An error from onToken stops
	// generation and is returned unchanged.
	Stream(ctx context.Context, history []domain.Exchange, question string, onToken func(string) error) (*domain.Answer, error)
}

// EngineConfig tunes retrieval and generation.
type EngineConfig struct {
	ChatModel    string
	Temperature  float64
	MaxTokens    int
	RetrievalK   int
	HistoryTurns int
	ChunkSize    int
	ChunkOverlap int
}

const embedBatchSize = 32

// Engine is the retrieval-augmented QueryEngine.
type Engine struct {
	client   llm.LLMClient
	embedder llm.Embedder
	index    Index
	cfg      EngineConfig
	log      *zap.Logger
	ready    atomic.Bool
}

var _ QueryEngine = (*Engine)(nil)

// NewEngine creates an engine. It is not ready until Load succeeds.
func NewEngine(client llm.LLMClient, embedder llm.Embedder, index Index, cfg EngineConfig, log *zap.Logger) *Engine {
	if cfg.RetrievalK <= 0 {
		cfg.RetrievalK = 4
	}
	return &Engine{
		client:   client,
		embedder: embedder,
		index:    index,
		cfg:      cfg,
		log:      log.Named("rag"),
	}
}

// Ready reports whether the index has been loaded.
func (e *Engine) Ready() bool {
	return e.ready.Load()
}

// Load indexes the corpus under dir and marks the engine ready. An empty or
// missing corpus is not an error; the engine then answers without context.
func (e *Engine) Load(ctx context.Context, dir string) error {
	start := time.Now()

	docs, err := LoadCorpus(dir)
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}

	var chunks []Chunk
	for _, doc := range docs {
		chunks = append(chunks, ChunkDocument(doc, e.cfg.ChunkSize, e.cfg.ChunkOverlap)...)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := 0; i < len(chunks); i += embedBatchSize {
		batch := chunks[i:min(i+embedBatchSize, len(chunks))]
		g.Go(func() error {
			texts := make([]string, len(batch))
			for j, c := range batch {
				texts[j] = c.Text
			}
			vecs, err := e.embedder.Embed(gctx, texts)
			if err != nil {
				return fmt.Errorf("embed chunks: %w", err)
			}
			if len(vecs) != len(batch) {
				return fmt.Errorf("embed chunks: got %d vectors for %d texts", len(vecs), len(batch))
			}
			for j := range batch {
				batch[j].Embedding = vecs[j]
			}
			return e.index.Upsert(gctx, batch)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	size, err := e.index.Len(ctx)
	if err != nil {
		return fmt.Errorf("index size: %w", err)
	}
	metrics.IndexedChunks.Set(float64(size))

	if size == 0 {
		e.log.Warn("retrieval index is empty, answers will have no context", zap.String("corpus_dir", dir))
	}
	e.log.Info("retrieval index loaded",
		zap.Int("documents", len(docs)),
		zap.Int("chunks", len(chunks)),
		zap.Int("index_size", size),
		zap.Duration("took", time.Since(start)))

	e.ready.Store(true)
	return nil
}

// Answer retrieves context and generates a complete answer.
func (e *Engine) Answer(ctx context.Context, history []domain.Exchange, question string) (*domain.Answer, error) {
	req, sources, err := e.prepare(ctx, history, question)
	if err != nil {
		return nil, err
	}

	resp, err := e.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	return &domain.Answer{Answer: resp.Content, Sources: sources}, nil
}

// Stream retrieves context and streams the generated answer.
func (e *Engine) Stream(ctx context.Context, history []domain.Exchange, question string, onToken func(string) error) (*domain.Answer, error) {
	req, sources, err := e.prepare(ctx, history, question)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	var consumerErr error
	_, err = e.client.CreateChatCompletionStream(ctx, req, func(chunk *llm.StreamChunk) error {
		if chunk.Content == "" {
			return nil
		}
		b.WriteString(chunk.Content)
		if err := onToken(chunk.Content); err != nil {
			consumerErr = err
			return err
		}
		return nil
	})
	if consumerErr != nil {
		return nil, consumerErr
	}
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	return &domain.Answer{Answer: b.String(), Sources: sources}, nil
}

func (e *Engine) prepare(ctx context.Context, history []domain.Exchange, question string) (*llm.ChatCompletionRequest, []domain.Source, error) {
	if !e.Ready() {
		return nil, nil, errors.New("engine not loaded")
	}

	hits, err := e.retrieve(ctx, question)
	if err != nil {
		return nil, nil, err
	}

	req := &llm.ChatCompletionRequest{
		Model:    e.cfg.ChatModel,
		Messages: BuildMessages(hits, trimHistory(history, e.cfg.HistoryTurns), question),
	}
	if e.cfg.Temperature > 0 {
		t := e.cfg.Temperature
		req.Temperature = &t
	}
	if e.cfg.MaxTokens > 0 {
		n := e.cfg.MaxTokens
		req.MaxTokens = &n
	}
	return req, sourcesOf(hits), nil
}

func (e *Engine) retrieve(ctx context.Context, question string) ([]Hit, error) {
	vecs, err := e.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embed question: got %d vectors", len(vecs))
	}

	hits, err := e.index.Search(ctx, vecs[0], e.cfg.RetrievalK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	return hits, nil
}

// trimHistory keeps the most recent turns exchanges; turns <= 0 keeps all.
func trimHistory(history []domain.Exchange, turns int) []domain.Exchange {
	if turns <= 0 || len(history) <= turns {
		return history
	}
	return history[len(history)-turns:]
}

// sourcesOf returns one entry per source document with its best score,
// in retrieval order.
func sourcesOf(hits []Hit) []domain.Source {
	sources := []domain.Source{}
	seen := make(map[string]int)
	for _, h := range hits {
		if i, ok := seen[h.Source]; ok {
			if h.Score > sources[i].Score {
				sources[i].Score = h.Score
			}
			continue
		}
		seen[h.Source] = len(sources)
		sources = append(sources, domain.Source{Source: h.Source, Score: h.Score})
	}
	return sources
}
