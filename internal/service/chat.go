package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/KaanK026/Harvia/internal/domain"
	"github.com/KaanK026/Harvia/internal/metrics"
)

// Request modes used as metric labels.
const (
	ModeSync      = "sync"
	ModeSSE       = "sse"
	ModeWebSocket = "ws"
)

const (
	msgChatUnavailable   = "Chat service unavailable. Index not loaded."
	msgStreamUnavailable = "Service initializing. Please try again."
	msgProcessing        = "Error processing question"
	msgStreamIdle        = "Response timed out"
	msgQuestionRequired  = "Question must not be empty."
	msgQuestionTooLong   = "Question must be at most %d characters."
)

func (s *Service) validateQuestion(q string) (string, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return "", domain.Invalid(msgQuestionRequired)
	}
	if limit := s.config.QuestionMaxLength; limit > 0 && utf8.RuneCountInString(q) > limit {
		return "", domain.Invalid(fmt.Sprintf(msgQuestionTooLong, limit))
	}
	return q, nil
}

func (s *Service) resolveSessionID(id string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	return s.newID()
}

// Ask answers one question synchronously and appends the exchange to the
// session history.
func (s *Service) Ask(ctx context.Context, userID string, req domain.QuestionRequest) (resp *domain.AskResponse, err error) {
	outcome := metrics.OutcomeError
	defer func() { metrics.ChatRequests.WithLabelValues(ModeSync, outcome).Inc() }()

	question, err := s.validateQuestion(req.Question)
	if err != nil {
		outcome = metrics.OutcomeInvalid
		return nil, err
	}
	if !s.Ready() {
		outcome = metrics.OutcomeUnavailable
		return nil, domain.Unavailable(msgChatUnavailable)
	}

	sessionID := s.resolveSessionID(req.SessionID)
	log := s.log.With(zap.String("session_id", sessionID), zap.String("uid", userID))
	log.Info("processing question")

	release, err := s.locks.acquire(ctx, sessionID)
	if err != nil {
		outcome = metrics.OutcomeCancelled
		return nil, domain.Internal(msgProcessing, err)
	}
	defer release()

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		log.Error("failed to load session", zap.Error(err))
		return nil, domain.Internal(msgProcessing, err)
	}

	start := time.Now()
	answer, err := s.engine.Answer(ctx, session.Exchanges(), question)
	if err != nil {
		if ctx.Err() != nil {
			outcome = metrics.OutcomeCancelled
		}
		log.Error("failed to answer question", zap.Error(err))
		return nil, domain.Internal(msgProcessing, err)
	}
	metrics.AnswerLatency.WithLabelValues(ModeSync).Observe(time.Since(start).Seconds())

	if err := s.store.AppendExchange(ctx, sessionID, userID, question, answer.Answer); err != nil {
		log.Error("failed to save exchange", zap.Error(err))
		return nil, domain.Internal(msgProcessing, err)
	}

	outcome = metrics.OutcomeOK
	return &domain.AskResponse{Answer: *answer, SessionID: sessionID}, nil
}
