package helpers

import (
	"context"
	"strings"
	"sync"

	"github.com/KaanK026/Harvia/internal/domain"
)

// StubEngine is a scripted query engine.
type StubEngine struct {
	NotReady bool
	// Tokens are streamed in order. When empty the answer is "Answer: <question>".
	Tokens []string
	// Err fails the call before any token is produced.
	Err error
	// MidErr fails the stream once FailAfter tokens were produced.
	MidErr    error
	FailAfter int
	// Block keeps the stream open after the last token until ctx is done.
	Block bool

	mu        sync.Mutex
	histories [][]domain.Exchange
}

func (e *StubEngine) Ready() bool { return !e.NotReady }

// Histories returns the history passed to each call, in call order.
func (e *StubEngine) Histories() [][]domain.Exchange {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([][]domain.Exchange(nil), e.histories...)
}

func (e *StubEngine) record(history []domain.Exchange) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.histories = append(e.histories, append([]domain.Exchange(nil), history...))
}

func (e *StubEngine) text(question string) string {
	if len(e.Tokens) == 0 {
		return "Answer: " + question
	}
	return strings.Join(e.Tokens, "")
}

func (e *StubEngine) Answer(ctx context.Context, history []domain.Exchange, question string) (*domain.Answer, error) {
	e.record(history)
	if e.Err != nil {
		return nil, e.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &domain.Answer{
		Answer:  e.text(question),
		Sources: []domain.Source{{Source: "sauna-guide.md", Score: 0.9}},
	}, nil
}

func (e *StubEngine) Stream(ctx context.Context, history []domain.Exchange, question string, onToken func(string) error) (*domain.Answer, error) {
	e.record(history)
	if e.Err != nil {
		return nil, e.Err
	}

	tokens := e.Tokens
	if len(tokens) == 0 {
		tokens = []string{e.text(question)}
	}
	for i, tok := range tokens {
		if e.MidErr != nil && i == e.FailAfter {
			return nil, e.MidErr
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := onToken(tok); err != nil {
			return nil, err
		}
	}
	if e.Block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return &domain.Answer{
		Answer:  strings.Join(tokens, ""),
		Sources: []domain.Source{{Source: "sauna-guide.md", Score: 0.9}},
	}, nil
}

// FragmentRecorder collects fragments. When FailAt is positive the Send with
// that 1-based index fails with FailErr.
type FragmentRecorder struct {
	FailAt  int
	FailErr error

	mu        sync.Mutex
	fragments []domain.Fragment
	sends     int
}

func (r *FragmentRecorder) Send(f domain.Fragment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sends++
	if r.FailAt > 0 && r.sends == r.FailAt {
		return r.FailErr
	}
	r.fragments = append(r.fragments, f)
	return nil
}

func (r *FragmentRecorder) Fragments() []domain.Fragment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Fragment(nil), r.fragments...)
}

func (r *FragmentRecorder) Types() []domain.FragmentType {
	var out []domain.FragmentType
	for _, f := range r.Fragments() {
		out = append(out, f.Type)
	}
	return out
}
