package backtest

import (
	"math"

	"github.com/rs/zerolog"

	"backfolio/internal/models"
	"backfolio/internal/portfolio"
)

// Result holds the trade log, equity curve and derived metrics of one
// backtest run. Returns, drawdown and win rate are fractions; display
// layers convert to percent.
type Result struct {
	Profile        string
	InitialCash    float64
	FinalCash      float64
	FinalValue     float64
	EquityCurve    []models.EquityPoint
	TradeLog       []models.Transaction
	FinalPositions map[string]models.Position
	SkippedSignals int

	TotalReturn        float64
	AnnualizedReturn   float64
	SharpeRatio        float64
	SortinoRatio       float64
	CalmarRatio        float64
	MaxDrawdown        float64
	TotalTrades        int
	WinningTrades      int
	LosingTrades       int
	NaiveWinningTrades int
	WinRate            float64
	AvgWin             float64
	AvgLoss            float64
	ProfitFactor       float64
	RealizedPnL        float64
	FeesPaid           float64
}

// computeMetrics derives all summary metrics from the equity curve and
// trade log.
func (r *Result) computeMetrics(logger zerolog.Logger) {
	r.TotalTrades = len(r.TradeLog)
	if r.InitialCash > 0 {
		r.TotalReturn = (r.FinalValue - r.InitialCash) / r.InitialCash
	}

	returns := dailyReturns(r.EquityCurve)
	r.SharpeRatio = sharpeRatio(returns)
	r.SortinoRatio = sortinoRatio(returns)
	r.MaxDrawdown = maxDrawdown(r.InitialCash, r.EquityCurve)
	r.AnnualizedReturn = annualizedReturn(r.InitialCash, r.FinalValue, r.EquityCurve)
	if r.MaxDrawdown > 0 {
		r.CalmarRatio = r.AnnualizedReturn / r.MaxDrawdown
	}

	for _, tx := range r.TradeLog {
		r.FeesPaid += tx.Fee
	}

	// FIFO attribution is authoritative for win and loss counts.
	attributions := portfolio.RealizedBySell(r.TradeLog)
	var totalWins, totalLosses float64
	for _, a := range attributions {
		r.RealizedPnL += a.Realized
		if a.Profitable() {
			r.WinningTrades++
			totalWins += a.Realized
		} else {
			r.LosingTrades++
			totalLosses += -a.Realized
		}
	}
	if r.WinningTrades > 0 {
		r.AvgWin = totalWins / float64(r.WinningTrades)
	}
	if r.LosingTrades > 0 {
		r.AvgLoss = -totalLosses / float64(r.LosingTrades)
	}
	if totalLosses > 0 {
		r.ProfitFactor = totalWins / totalLosses
	}
	if len(attributions) > 0 {
		r.WinRate = float64(r.WinningTrades) / float64(len(attributions))
	}

	// The revenue-versus-cost shortcut counts every sell with positive
	// revenue as a win; kept for display comparison only.
	for _, tx := range r.TradeLog {
		if tx.Side == models.DirectionSell && tx.GrossValue() > 0 {
			r.NaiveWinningTrades++
		}
	}
	if r.NaiveWinningTrades != r.WinningTrades {
		logger.Debug().
			Int("naive", r.NaiveWinningTrades).
			Int("fifo", r.WinningTrades).
			Msg("Naive win count differs from FIFO attribution")
	}
}

// dailyReturns computes period-over-period returns of the equity curve.
func dailyReturns(curve []models.EquityPoint) []float64 {
	if len(curve) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].TotalValue
		if prev > 0 {
			returns = append(returns, (curve[i].TotalValue-prev)/prev)
		} else {
			returns = append(returns, 0)
		}
	}
	return returns
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// populationStdDev is the standard deviation with divisor n, matching
// the simplified Sharpe definition.
func populationStdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	avg := mean(values)
	var variance float64
	for _, v := range values {
		variance += (v - avg) * (v - avg)
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}

// sharpeRatio is mean daily return over its standard deviation, 0 when
// the deviation is 0.
func sharpeRatio(returns []float64) float64 {
	stdev := populationStdDev(returns)
	if stdev == 0 {
		return 0
	}
	return mean(returns) / stdev
}

// sortinoRatio is mean daily return over the downside deviation, 0 when
// there are no negative returns.
func sortinoRatio(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	var downside float64
	for _, r := range returns {
		if r < 0 {
			downside += r * r
		}
	}
	downside = math.Sqrt(downside / float64(len(returns)))
	if downside == 0 {
		return 0
	}
	return mean(returns) / downside
}

// maxDrawdown walks the equity curve with a running peak that only
// increases and returns the largest peak-to-value decline.
func maxDrawdown(initial float64, curve []models.EquityPoint) float64 {
	peak := initial
	var maxDD float64
	for _, point := range curve {
		if point.TotalValue > peak {
			peak = point.TotalValue
		}
		if peak > 0 {
			dd := (peak - point.TotalValue) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// annualizedReturn converts the total return to a compound annual rate
// using the curve's calendar span.
func annualizedReturn(initial, final float64, curve []models.EquityPoint) float64 {
	if len(curve) < 2 || initial <= 0 || final <= 0 {
		return 0
	}
	days := curve[len(curve)-1].Date.Sub(curve[0].Date).Hours() / 24
	if days <= 0 {
		return 0
	}
	years := days / 365
	return math.Pow(final/initial, 1/years) - 1
}
