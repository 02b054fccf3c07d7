package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/KaanK026/Harvia/internal/domain"
	"github.com/KaanK026/Harvia/internal/metrics"
)

const (
	msgModelUnavailable = "Sauna recommendation engine is not initialized."
	msgModelFailed      = "Error generating recommendations"
)

// Recommend fills missing request fields from the stored profile of userID,
// normalizes the result and asks the model for sauna settings.
func (s *Service) Recommend(ctx context.Context, userID string, req domain.RecommendationRequest) (*domain.RecommendationResponse, error) {
	if s.model == nil {
		metrics.Recommendations.WithLabelValues(metrics.OutcomeUnavailable).Inc()
		return nil, domain.Unavailable(msgModelUnavailable)
	}
	log := s.log.With(zap.String("uid", userID))

	if req.NeedsProfile() && s.profiles != nil {
		p, err := s.profiles.Get(ctx, userID)
		switch {
		case err != nil:
			log.Error("error fetching user profile", zap.Error(err))
		case p == nil:
			log.Warn("user profile not found")
		default:
			req = req.BackFill(p)
			log.Info("fetched user profile")
		}
	}

	in, err := domain.NormalizeRecommendation(req)
	if err != nil {
		metrics.Recommendations.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, err
	}

	pred, err := s.model.Predict(ctx, in)
	if err != nil {
		metrics.Recommendations.WithLabelValues(metrics.OutcomeError).Inc()
		log.Error("error generating recommendations", zap.Error(err))
		return nil, domain.Internal(msgModelFailed, err)
	}

	metrics.Recommendations.WithLabelValues(metrics.OutcomeOK).Inc()
	log.Info("generated recommendations",
		zap.Float64("temperature", pred.Temperature),
		zap.Float64("humidity", pred.Humidity),
		zap.Float64("session_length", pred.SessionLength),
	)
	return &domain.RecommendationResponse{Prediction: *pred, UserID: userID, GoalsUsed: in.Goals}, nil
}
