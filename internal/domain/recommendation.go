package domain

import "strings"

// RecommendationRequest carries the optional user features for a recommendation.
// Height may be given in meters or centimeters.
type RecommendationRequest struct {
	Age    *int     `json:"age,omitempty"`
	Gender *string  `json:"gender,omitempty"`
	Height *float64 `json:"height,omitempty"`
	Weight *float64 `json:"weight,omitempty"`
	Goals  []string `json:"goals,omitempty"`
}

// RecommendationInput is a fully populated, normalized feature set.
type RecommendationInput struct {
	Age    int      `json:"age"`
	Gender string   `json:"gender"`
	Height float64  `json:"height"`
	Weight float64  `json:"weight"`
	Goals  []string `json:"goals"`
}

// UserProfile is the stored profile document of a user.
type UserProfile struct {
	UserID string   `json:"user_id" bson:"_id"`
	Age    *int     `json:"age,omitempty" bson:"age,omitempty"`
	Gender *string  `json:"gender,omitempty" bson:"gender,omitempty"`
	Height *float64 `json:"height,omitempty" bson:"height,omitempty"`
	Weight *float64 `json:"weight,omitempty" bson:"weight,omitempty"`
	Goals  []string `json:"goals,omitempty" bson:"goals,omitempty"`
}

// Prediction is the raw output of the recommendation model.
type Prediction struct {
	Temperature   float64 `json:"temperature"`
	Humidity      float64 `json:"humidity"`
	SessionLength float64 `json:"session_length"`
}

// RecommendationResponse is returned by the recommendations endpoint.
type RecommendationResponse struct {
	Prediction
	UserID    string   `json:"user_id"`
	GoalsUsed []string `json:"goals_used"`
}

const (
	msgMissingMeasurements = "Age, height, and weight must be provided either as parameters or in the user profile."
	msgMissingGoals        = "At least one goal must be provided."
)

// NeedsProfile reports whether any field could be filled from a stored profile.
func (r RecommendationRequest) NeedsProfile() bool {
	return r.Age == nil || r.Gender == nil || r.Height == nil || r.Weight == nil || len(r.Goals) == 0
}

// BackFill returns a copy of r where missing fields are taken from p.
// Fields present in r always win.
func (r RecommendationRequest) BackFill(p *UserProfile) RecommendationRequest {
	if p == nil {
		return r
	}
	if r.Age == nil {
		r.Age = p.Age
	}
	if r.Gender == nil {
		r.Gender = p.Gender
	}
	if r.Height == nil {
		r.Height = p.Height
	}
	if r.Weight == nil {
		r.Weight = p.Weight
	}
	if len(r.Goals) == 0 {
		r.Goals = p.Goals
	}
	return r
}

// NormalizeRecommendation validates r and converts it to model input.
// Heights above 3 are treated as centimeters.
func NormalizeRecommendation(r RecommendationRequest) (RecommendationInput, error) {
	if r.Age == nil || r.Height == nil || r.Weight == nil {
		return RecommendationInput{}, Invalid(msgMissingMeasurements)
	}

	var goals []string
	for _, g := range r.Goals {
		if g = strings.TrimSpace(g); g != "" {
			goals = append(goals, g)
		}
	}
	if len(goals) == 0 {
		return RecommendationInput{}, Invalid(msgMissingGoals)
	}

	gender := DefaultGender
	if r.Gender != nil && strings.TrimSpace(*r.Gender) != "" {
		gender = *r.Gender
	}

	height := *r.Height
	if height > 3 {
		height = height / 100
	}

	return RecommendationInput{
		Age:    *r.Age,
		Gender: gender,
		Height: height,
		Weight: *r.Weight,
		Goals:  goals,
	}, nil
}
