package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/KaanK026/Harvia/internal/domain"
	"github.com/KaanK026/Harvia/internal/metrics"
)

var errFragmentOrder = errors.New("fragment out of order")

// Stream is a prepared streaming answer. It is produced by OpenStream after
// validation and the readiness check, so a transport can still reject the
// request before writing any stream bytes.
type Stream struct {
	svc       *Service
	sessionID string
	userID    string
	question  string
	mode      string
	used      atomic.Bool
}

// OpenStream validates req and resolves its session id.
func (s *Service) OpenStream(userID string, req domain.QuestionRequest, mode string) (*Stream, error) {
	question, err := s.validateQuestion(req.Question)
	if err != nil {
		metrics.ChatRequests.WithLabelValues(mode, metrics.OutcomeInvalid).Inc()
		return nil, err
	}
	if !s.Ready() {
		metrics.ChatRequests.WithLabelValues(mode, metrics.OutcomeUnavailable).Inc()
		return nil, domain.Unavailable(msgStreamUnavailable)
	}
	return &Stream{
		svc:       s,
		sessionID: s.resolveSessionID(req.SessionID),
		userID:    userID,
		question:  question,
		mode:      mode,
	}, nil
}

func (st *Stream) SessionID() string {
	return st.sessionID
}

// Run produces the fragments of the answer into sink: session_init, the
// tokens in order, then complete or error. The exchange is persisted before
// complete is sent. Run returns nil once a terminal fragment was delivered,
// the sink or context error when the consumer went away, and
// ErrStreamConsumed when called twice.
func (st *Stream) Run(ctx context.Context, sink domain.FragmentSink) error {
	if !st.used.CompareAndSwap(false, true) {
		return domain.ErrStreamConsumed
	}

	s := st.svc
	log := s.log.With(zap.String("session_id", st.sessionID), zap.String("uid", st.userID), zap.String("mode", st.mode))
	em := newEmitter(st.sessionID, sink)

	outcome := metrics.OutcomeError
	defer func() { metrics.ChatRequests.WithLabelValues(st.mode, outcome).Inc() }()

	release, err := s.locks.acquire(ctx, st.sessionID)
	if err != nil {
		outcome = metrics.OutcomeCancelled
		return err
	}
	defer release()

	log.Info("starting stream")
	if err := em.send(domain.Fragment{Type: domain.FragmentSessionInit}); err != nil {
		outcome = metrics.OutcomeCancelled
		return err
	}

	session, err := s.store.GetSession(ctx, st.sessionID)
	if err != nil {
		log.Error("failed to load session", zap.Error(err))
		return em.fail(msgProcessing)
	}

	genCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	idleTimeout := s.config.StreamIdleTimeout
	var idle *time.Timer
	if idleTimeout > 0 {
		idle = time.AfterFunc(idleTimeout, func() { cancel(domain.ErrStreamIdle) })
		defer idle.Stop()
	}

	start := time.Now()
	answer, err := s.engine.Stream(genCtx, session.Exchanges(), st.question, func(token string) error {
		if idle != nil {
			idle.Reset(idleTimeout)
		}
		return em.send(domain.Fragment{Type: domain.FragmentToken, Content: token})
	})
	if err != nil {
		switch {
		case em.sinkErr() != nil:
			outcome = metrics.OutcomeCancelled
			log.Info("consumer went away", zap.Error(em.sinkErr()))
			return em.sinkErr()
		case ctx.Err() != nil:
			outcome = metrics.OutcomeCancelled
			log.Info("stream cancelled", zap.Error(ctx.Err()))
			return ctx.Err()
		case errors.Is(context.Cause(genCtx), domain.ErrStreamIdle):
			log.Warn("stream idle timeout", zap.Duration("timeout", idleTimeout))
			return em.fail(msgStreamIdle)
		default:
			log.Error("error in streaming", zap.Error(err))
			return em.fail(msgProcessing)
		}
	}

	if err := ctx.Err(); err != nil {
		outcome = metrics.OutcomeCancelled
		return err
	}
	metrics.AnswerLatency.WithLabelValues(st.mode).Observe(time.Since(start).Seconds())

	// The exchange is committed before complete is sent. A consumer that drops
	// while complete is in flight finds the answer in the session history.
	if err := s.store.AppendExchange(ctx, st.sessionID, st.userID, st.question, answer.Answer); err != nil {
		log.Error("failed to save exchange", zap.Error(err))
		return em.fail(msgProcessing)
	}

	if err := em.send(domain.Fragment{Type: domain.FragmentComplete}); err != nil {
		outcome = metrics.OutcomeCancelled
		return err
	}
	outcome = metrics.OutcomeOK
	return nil
}

type emitState int

const (
	stateIdle emitState = iota
	stateOpen
	stateClosed
)

// emitter stamps fragments with the session id and rejects any fragment
// that would break the session_init, token*, terminal order.
type emitter struct {
	mu        sync.Mutex
	sessionID string
	sink      domain.FragmentSink
	state     emitState
	err       error
}

func newEmitter(sessionID string, sink domain.FragmentSink) *emitter {
	return &emitter{sessionID: sessionID, sink: sink}
}

func (e *emitter) send(f domain.Fragment) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.err != nil {
		return e.err
	}
	switch e.state {
	case stateIdle:
		if f.Type != domain.FragmentSessionInit {
			return errFragmentOrder
		}
	case stateOpen:
		if f.Type == domain.FragmentSessionInit {
			return errFragmentOrder
		}
	case stateClosed:
		return errFragmentOrder
	}

	f.SessionID = e.sessionID
	if err := e.sink.Send(f); err != nil {
		e.err = err
		return err
	}
	metrics.StreamFragments.WithLabelValues(string(f.Type)).Inc()

	if f.Type == domain.FragmentSessionInit {
		e.state = stateOpen
	} else if f.Type.IsTerminal() {
		e.state = stateClosed
	}
	return nil
}

// fail emits the error fragment. It returns nil when the fragment reached
// the consumer.
func (e *emitter) fail(msg string) error {
	return e.send(domain.Fragment{Type: domain.FragmentError, Content: msg})
}

func (e *emitter) sinkErr() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}
