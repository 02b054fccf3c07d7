package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/KaanK026/Harvia/internal/domain"
)

const (
	msgSessionIDRequired = "session_id is required"
	msgSessionNotFound   = "Session not found"
	msgSessionCleared    = "Session cleared successfully"
)

// ClearSession removes a session. It waits for an in-flight exchange on the
// same session to finish first.
func (s *Service) ClearSession(ctx context.Context, sessionID string) (*domain.ClearSessionResponse, error) {
	if sessionID = strings.TrimSpace(sessionID); sessionID == "" {
		return nil, domain.Invalid(msgSessionIDRequired)
	}

	release, err := s.locks.acquire(ctx, sessionID)
	if err != nil {
		return nil, domain.Internal("Error clearing session", err)
	}
	defer release()

	existed, err := s.store.ClearSession(ctx, sessionID)
	if err != nil {
		s.log.Error("error clearing session", zap.String("session_id", sessionID), zap.Error(err))
		return nil, domain.Internal("Error clearing session", err)
	}
	if !existed {
		return nil, domain.NotFound(msgSessionNotFound)
	}

	s.log.Info("session cleared", zap.String("session_id", sessionID))
	return &domain.ClearSessionResponse{Success: true, Message: msgSessionCleared, SessionID: sessionID}, nil
}

// History returns the ordered messages of a session.
func (s *Service) History(ctx context.Context, sessionID string) (*domain.HistoryResponse, error) {
	if sessionID = strings.TrimSpace(sessionID); sessionID == "" {
		return nil, domain.Invalid(msgSessionIDRequired)
	}

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		s.log.Error("error getting session history", zap.String("session_id", sessionID), zap.Error(err))
		return nil, domain.Internal("Error getting session history", err)
	}
	if session == nil || len(session.History) == 0 {
		return nil, domain.NotFound(msgSessionNotFound)
	}
	return &domain.HistoryResponse{Success: true, SessionID: sessionID, History: session.History}, nil
}
