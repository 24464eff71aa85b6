package backtest

import (
	"sort"
)

// ProfileComparison summarizes one profile's run for side-by-side
// ranking.
type ProfileComparison struct {
	Profile          string
	Score            float64
	TotalReturn      float64
	AnnualizedReturn float64
	SharpeRatio      float64
	SortinoRatio     float64
	MaxDrawdown      float64
	WinRate          float64
	TotalTrades      int
	ProfitFactor     float64
	FinalValue       float64
}

// compareScore ranks runs by total return in percent plus ten times the
// Sharpe ratio.
func compareScore(r *Result) float64 {
	return r.TotalReturn*100 + r.SharpeRatio*10
}

// CompareProfiles ranks completed runs best first.
func CompareProfiles(results map[string]*Result) []ProfileComparison {
	comparisons := make([]ProfileComparison, 0, len(results))
	for name, result := range results {
		if result == nil {
			continue
		}
		comparisons = append(comparisons, ProfileComparison{
			Profile:          name,
			Score:            compareScore(result),
			TotalReturn:      result.TotalReturn,
			AnnualizedReturn: result.AnnualizedReturn,
			SharpeRatio:      result.SharpeRatio,
			SortinoRatio:     result.SortinoRatio,
			MaxDrawdown:      result.MaxDrawdown,
			WinRate:          result.WinRate,
			TotalTrades:      result.TotalTrades,
			ProfitFactor:     result.ProfitFactor,
			FinalValue:       result.FinalValue,
		})
	}

	sort.Slice(comparisons, func(i, j int) bool {
		if comparisons[i].Score != comparisons[j].Score {
			return comparisons[i].Score > comparisons[j].Score
		}
		return comparisons[i].Profile < comparisons[j].Profile
	})

	return comparisons
}
