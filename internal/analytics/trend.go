package analytics

import (
	"github.com/montanaflynn/stats"
)

// Trend daily revenue statistics over a series
type Trend struct {
	Mean     float64 `json:"mean"`
	Median   float64 `json:"median"`
	Peak     float64 `json:"peak"`
	PeakDate string  `json:"peak_date,omitempty"`
}

// ComputeTrend summarizes the revenue column of series. An empty series
// yields a zero Trend.
func ComputeTrend(series []DailyPoint) Trend {
	if len(series) == 0 {
		return Trend{}
	}
	revenue := make(stats.Float64Data, 0, len(series))
	for _, p := range series {
		f, _ := p.Revenue.Float64()
		revenue = append(revenue, f)
	}

	var t Trend
	t.Mean, _ = stats.Round(mustStat(revenue.Mean()), 2)
	t.Median, _ = stats.Round(mustStat(revenue.Median()), 2)
	t.Peak = mustStat(revenue.Max())
	if t.Peak > 0 {
		for _, p := range series {
			if f, _ := p.Revenue.Float64(); f == t.Peak {
				t.PeakDate = p.Date
				break
			}
		}
	}
	return t
}

// mustStat drops the error stats returns for empty input, which callers rule out
func mustStat(v float64, _ error) float64 {
	return v
}
