package predictor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaanK026/Harvia/internal/domain"
)

func TestRemoteModelPredict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/predict", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var body predictRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 30.0, body.Age)
		assert.Equal(t, 1.8, body.Height)
		assert.Equal(t, []string{"relaxation"}, body.SelectedGoals)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"temperature":78.5,"humidity":20,"session_length":12}`)
	}))
	defer server.Close()

	m := NewRemoteModel(server.URL+"/", time.Second)
	p, err := m.Predict(context.Background(), domain.RecommendationInput{
		Age: 30, Gender: "male", Height: 1.8, Weight: 80, Goals: []string{"relaxation"},
	})
	require.NoError(t, err)
	assert.Equal(t, &domain.Prediction{Temperature: 78.5, Humidity: 20, SessionLength: 12}, p)
}

func TestRemoteModelError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "model crashed")
	}))
	defer server.Close()

	_, err := NewRemoteModel(server.URL, time.Second).Predict(context.Background(), domain.RecommendationInput{})
	assert.ErrorContains(t, err, "model crashed")
}

func TestBaselineModel(t *testing.T) {
	m := BaselineModel{}

	p, err := m.Predict(context.Background(), domain.RecommendationInput{
		Age: 30, Height: 1.8, Weight: 75, Goals: []string{"Muscle Recovery"},
	})
	require.NoError(t, err)
	assert.Equal(t, &domain.Prediction{Temperature: 85, Humidity: 15, SessionLength: 20}, p)

	p, err = m.Predict(context.Background(), domain.RecommendationInput{
		Age: 70, Height: 1.6, Weight: 90, Goals: []string{"sleep", "unknown"},
	})
	require.NoError(t, err)
	assert.Equal(t, 60.0, p.Temperature)
	assert.Equal(t, 20.0, p.Humidity)
	assert.Equal(t, 7.0, p.SessionLength)
}
