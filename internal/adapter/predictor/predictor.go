// Package predictor adapts recommendation models that turn user features
// into sauna settings.
package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/KaanK026/Harvia/internal/domain"
)

// Model predicts sauna settings for a normalized feature set.
type Model interface {
	Predict(ctx context.Context, in domain.RecommendationInput) (*domain.Prediction, error)
}

// RemoteModel calls an HTTP model server: POST {baseURL}/predict with the
// features as JSON, answered by a domain.Prediction.
type RemoteModel struct {
	baseURL    string
	httpClient *http.Client
}

// NewRemoteModel creates a client for the model server at baseURL.
func NewRemoteModel(baseURL string, timeout time.Duration) *RemoteModel {
	return &RemoteModel{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

var _ Model = (*RemoteModel)(nil)

type predictRequest struct {
	Age           float64  `json:"age"`
	Gender        string   `json:"gender"`
	Height        float64  `json:"height"`
	Weight        float64  `json:"weight"`
	SelectedGoals []string `json:"selected_goals"`
}

func (m *RemoteModel) Predict(ctx context.Context, in domain.RecommendationInput) (*domain.Prediction, error) {
	body, err := json.Marshal(predictRequest{
		Age:           float64(in.Age),
		Gender:        in.Gender,
		Height:        in.Height,
		Weight:        in.Weight,
		SelectedGoals: in.Goals,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model error [%d]: %s", resp.StatusCode, string(respBody))
	}

	var out domain.Prediction
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &out, nil
}
