package predictor

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/KaanK026/Harvia/internal/domain"
)

// BaselineModel is a rule-based estimator used when no trained model is
// deployed. Results are rounded to one decimal place.
type BaselineModel struct{}

var _ Model = BaselineModel{}

var (
	baseTemperature = decimal.NewFromInt(80)
	baseHumidity    = decimal.NewFromInt(15)
	baseLength      = decimal.NewFromInt(15)
)

// goalAdjustments are added per selected goal: temperature (C), humidity (%), length (min).
var goalAdjustments = map[string][3]int64{
	"relaxation":      {-5, 10, 5},
	"stress_relief":   {-5, 10, 5},
	"muscle_recovery": {5, 0, 5},
	"detox":           {0, 5, 5},
	"sleep":           {-10, 5, 0},
	"cardiovascular":  {5, -5, 0},
	"skin_health":     {-5, 15, 0},
	"social":          {-5, 5, 10},
}

func (BaselineModel) Predict(ctx context.Context, in domain.RecommendationInput) (*domain.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	temp, hum, length := baseTemperature, baseHumidity, baseLength

	switch {
	case in.Age >= 65:
		temp = temp.Sub(decimal.NewFromInt(10))
		length = length.Sub(decimal.NewFromInt(5))
	case in.Age >= 50:
		temp = temp.Sub(decimal.NewFromInt(5))
		length = length.Sub(decimal.NewFromInt(2))
	}

	if in.Height > 0 {
		h := decimal.NewFromFloat(in.Height)
		bmi := decimal.NewFromFloat(in.Weight).Div(h.Mul(h))
		if bmi.GreaterThan(decimal.NewFromInt(30)) {
			temp = temp.Sub(decimal.NewFromInt(5))
			length = length.Sub(decimal.NewFromInt(3))
		}
	}

	for _, g := range in.Goals {
		adj, ok := goalAdjustments[strings.ToLower(strings.ReplaceAll(strings.TrimSpace(g), " ", "_"))]
		if !ok {
			continue
		}
		temp = temp.Add(decimal.NewFromInt(adj[0]))
		hum = hum.Add(decimal.NewFromInt(adj[1]))
		length = length.Add(decimal.NewFromInt(adj[2]))
	}

	return &domain.Prediction{
		Temperature:   clamp(temp, 60, 100),
		Humidity:      clamp(hum, 5, 60),
		SessionLength: clamp(length, 5, 30),
	}, nil
}

func clamp(v decimal.Decimal, lo, hi int64) float64 {
	v = decimal.Max(decimal.NewFromInt(lo), decimal.Min(decimal.NewFromInt(hi), v))
	return v.Round(1).InexactFloat64()
}
