package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestNormalizeRecommendationHeight(t *testing.T) {
	tests := []struct {
		name   string
		height float64
		want   float64
	}{
		{name: "centimeters", height: 180, want: 1.8},
		{name: "meters", height: 1.8, want: 1.8},
		{name: "boundary", height: 3, want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := NormalizeRecommendation(RecommendationRequest{
				Age:    ptr(30),
				Height: ptr(tt.height),
				Weight: ptr(75.0),
				Goals:  []string{"relax"},
			})
			require.NoError(t, err)
			assert.InDelta(t, tt.want, in.Height, 1e-9)
		})
	}
}

func TestNormalizeRecommendationDefaultsGender(t *testing.T) {
	in, err := NormalizeRecommendation(RecommendationRequest{
		Age:    ptr(40),
		Height: ptr(1.7),
		Weight: ptr(60.0),
		Goals:  []string{"recovery"},
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultGender, in.Gender)

	in, err = NormalizeRecommendation(RecommendationRequest{
		Age:    ptr(40),
		Gender: ptr("female"),
		Height: ptr(1.7),
		Weight: ptr(60.0),
		Goals:  []string{"recovery"},
	})
	require.NoError(t, err)
	assert.Equal(t, "female", in.Gender)
}

func TestNormalizeRecommendationValidation(t *testing.T) {
	tests := []struct {
		name string
		req  RecommendationRequest
		msg  string
	}{
		{
			name: "missing age",
			req:  RecommendationRequest{Height: ptr(1.8), Weight: ptr(80.0), Goals: []string{"relax"}},
			msg:  msgMissingMeasurements,
		},
		{
			name: "missing weight",
			req:  RecommendationRequest{Age: ptr(30), Height: ptr(1.8), Goals: []string{"relax"}},
			msg:  msgMissingMeasurements,
		},
		{
			name: "no goals",
			req:  RecommendationRequest{Age: ptr(30), Height: ptr(1.8), Weight: ptr(80.0)},
			msg:  msgMissingGoals,
		},
		{
			name: "blank goals",
			req:  RecommendationRequest{Age: ptr(30), Height: ptr(1.8), Weight: ptr(80.0), Goals: []string{" ", ""}},
			msg:  msgMissingGoals,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeRecommendation(tt.req)
			require.Error(t, err)

			var de *Error
			require.True(t, errors.As(err, &de))
			assert.Equal(t, KindValidation, de.Kind)
			assert.Equal(t, tt.msg, de.Message)
		})
	}
}

func TestBackFillPrefersRequestValues(t *testing.T) {
	req := RecommendationRequest{Age: ptr(25), Goals: []string{"sleep"}}
	profile := &UserProfile{
		UserID: "u1",
		Age:    ptr(50),
		Gender: ptr("male"),
		Height: ptr(182.0),
		Weight: ptr(90.0),
		Goals:  []string{"detox"},
	}

	filled := req.BackFill(profile)
	assert.Equal(t, 25, *filled.Age)
	assert.Equal(t, "male", *filled.Gender)
	assert.Equal(t, 182.0, *filled.Height)
	assert.Equal(t, []string{"sleep"}, filled.Goals)
	assert.False(t, filled.NeedsProfile())

	assert.Equal(t, req, req.BackFill(nil))
}

func TestSessionExchanges(t *testing.T) {
	s := &Session{History: []Message{
		{Role: RoleUser, Content: "q1"},
		{Role: RoleAssistant, Content: "a1"},
		{Role: RoleUser, Content: "q2"},
		{Role: RoleAssistant, Content: "a2"},
		{Role: RoleUser, Content: "dangling"},
	}}

	assert.Equal(t, []Exchange{{"q1", "a1"}, {"q2", "a2"}}, s.Exchanges())
	assert.Nil(t, (*Session)(nil).Exchanges())
}
