package portfolio

import (
	"context"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Concentration measures how much of the portfolio sits in its largest positions
type Concentration struct {
	HerfindahlIndex float64 `json:"herfindahlIndex"`
	Top5Weight      float64 `json:"top5Weight"`
	Top10Weight     float64 `json:"top10Weight"`
	NumPositions    int     `json:"numPositions"`
}

// Concentration computes the Herfindahl index of current-value weights and the
// share of the top 5 and top 10 positions, in percent.
func (s *Service) Concentration(ctx context.Context, userID int64) (*Concentration, error) {
	view, err := s.GetPortfolio(ctx, userID)
	if err != nil {
		return nil, err
	}

	values := make([]float64, 0, len(view.Holdings))
	for _, h := range view.Holdings {
		values = append(values, h.CurrentValue.InexactFloat64())
	}
	return concentrationOf(values), nil
}

func concentrationOf(values []float64) *Concentration {
	c := &Concentration{NumPositions: len(values)}

	total := floats.Sum(values)
	if total <= 0 {
		return c
	}

	weights := make([]float64, len(values))
	copy(weights, values)
	floats.Scale(1/total, weights)
	sort.Sort(sort.Reverse(sort.Float64Slice(weights)))

	c.HerfindahlIndex = round4(floats.Dot(weights, weights))
	c.Top5Weight = round4(floats.Sum(weights[:min(5, len(weights))]) * 100)
	c.Top10Weight = round4(floats.Sum(weights[:min(10, len(weights))]) * 100)
	return c
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
