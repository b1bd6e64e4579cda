package market

import (
	"time"

	"github.com/aristath/portfolio-manager/internal/domain"
	"github.com/shopspring/decimal"
)

// MarketIndex is a headline index value
type MarketIndex struct {
	Value         decimal.Decimal `json:"value"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"changePercent"`
	Name          string          `json:"name"`
	Symbol        string          `json:"symbol"`
	Trend         string          `json:"trend"`
}

type indexSpec struct {
	name    string
	symbol  string
	base    decimal.Decimal
	points  int64
	percent decimal.Decimal
	up      func(seed int64) bool
}

var indexSpecs = []indexSpec{
	{
		name:    "S&P 500",
		symbol:  "SPX",
		base:    decimal.NewFromInt(5821),
		points:  18,
		percent: decimal.RequireFromString("0.31"),
		up:      func(seed int64) bool { return (seed+1)%2 == 0 },
	},
	{
		name:    "NASDAQ",
		symbol:  "NDX",
		base:    decimal.NewFromInt(18542),
		points:  62,
		percent: decimal.RequireFromString("0.34"),
		up:      func(seed int64) bool { return seed%4 != 0 },
	},
	{
		name:    "Dow Jones",
		symbol:  "DJI",
		base:    decimal.NewFromInt(39567),
		points:  95,
		percent: decimal.RequireFromString("0.24"),
		up:      func(seed int64) bool { return (seed+2)%2 == 0 },
	},
}

// IndicesAt returns the simulated US index board for the given instant.
// Direction of each index is derived from the millisecond clock.
func IndicesAt(now time.Time) []MarketIndex {
	seed := now.UnixMilli() % 1000

	indices := make([]MarketIndex, 0, len(indexSpecs))
	for _, spec := range indexSpecs {
		up := spec.up(seed)

		change := decimal.NewFromInt(spec.points)
		percent := spec.percent
		trend := domain.TrendUp
		if !up {
			change = change.Neg()
			percent = percent.Neg()
			trend = domain.TrendDown
		}

		indices = append(indices, MarketIndex{
			Name:          spec.name,
			Symbol:        spec.symbol,
			Value:         spec.base.Add(change).Round(2),
			Change:        change.Round(2),
			ChangePercent: percent.Round(2),
			Trend:         trend,
		})
	}
	return indices
}
