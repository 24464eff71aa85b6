package backtest

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"
	"backfolio/internal/models"
	"backfolio/internal/strategy"
)

// randomWalkDays builds a chronological day slice with random-walk
// prices for two symbols and random LSTM signals.
func randomWalkDays(rng *rand.Rand, count int) []models.DayRecord {
	symbols := []string{"AAPL", "MSFT"}
	prices := map[string]float64{"AAPL": 100, "MSFT": 50}
	directions := []models.Direction{models.DirectionBuy, models.DirectionSell, models.DirectionHold}

	days := make([]models.DayRecord, count)
	for i := range days {
		dayPrices := make(map[string]float64, len(symbols))
		daySignals := make(map[string][]models.Signal)
		for _, symbol := range symbols {
			prices[symbol] *= 1 + (rng.Float64()-0.5)*0.08
			if prices[symbol] < 1 {
				prices[symbol] = 1
			}
			dayPrices[symbol] = prices[symbol]

			if rng.Intn(2) == 0 {
				daySignals[symbol] = []models.Signal{{
					Source:     models.SourceLSTM,
					Direction:  directions[rng.Intn(len(directions))],
					Confidence: rng.Float64(),
				}}
			}
		}
		days[i] = models.DayRecord{
			Date:    baseDate.AddDate(0, 0, i),
			Prices:  dayPrices,
			Signals: daySignals,
		}
	}
	return days
}

// TestProperty_RunInvariants drives random market histories through the
// simulator and checks the structural invariants every run must hold.
func TestProperty_RunInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	seedGen := gen.Int64Range(0, math.MaxInt64)
	dayCountGen := gen.IntRange(1, 40)

	properties.Property("Every run satisfies the accounting invariants", prop.ForAll(
		func(seed int64, dayCount int) bool {
			rng := rand.New(rand.NewSource(seed))
			days := randomWalkDays(rng, dayCount)

			initial := 10000.0
			sim, err := NewSimulator(Config{
				InitialCash: initial,
				Profile:     strategy.DefaultProfiles()[strategy.ProfileAggressive],
				Combiner:    lstmCombiner(),
			}, zerolog.Nop())
			if err != nil {
				t.Logf("FAILED: NewSimulator: %v", err)
				return false
			}

			result, err := sim.Run(days)
			if err != nil {
				t.Logf("FAILED: Run: %v (seed=%d, days=%d)", err, seed, dayCount)
				return false
			}

			if len(result.EquityCurve) != dayCount {
				t.Logf("FAILED: curve has %d points for %d days (seed=%d)", len(result.EquityCurve), dayCount, seed)
				return false
			}
			// The first sample precedes any trade.
			if result.EquityCurve[0].TotalValue != initial {
				t.Logf("FAILED: first equity sample %.6f, want %.6f (seed=%d)", result.EquityCurve[0].TotalValue, initial, seed)
				return false
			}

			if result.FinalCash < 0 {
				t.Logf("FAILED: final cash negative: %.6f (seed=%d)", result.FinalCash, seed)
				return false
			}
			for symbol, pos := range result.FinalPositions {
				if pos.Quantity <= 0 {
					t.Logf("FAILED: final position %s has quantity %d (seed=%d)", symbol, pos.Quantity, seed)
					return false
				}
			}

			// Final value reconciles against cash plus marked positions.
			lastPrices := days[len(days)-1].Prices
			value := result.FinalCash
			for symbol, pos := range result.FinalPositions {
				value += float64(pos.Quantity) * lastPrices[symbol]
			}
			if math.Abs(result.FinalValue-value) > 1e-6 {
				t.Logf("FAILED: FinalValue=%.6f, recomputed=%.6f (seed=%d)", result.FinalValue, value, seed)
				return false
			}

			wantReturn := (result.FinalValue - initial) / initial
			if math.Abs(result.TotalReturn-wantReturn) > 1e-9 {
				t.Logf("FAILED: TotalReturn=%.10f, want=%.10f (seed=%d)", result.TotalReturn, wantReturn, seed)
				return false
			}

			if result.MaxDrawdown < 0 || result.MaxDrawdown >= 1 {
				t.Logf("FAILED: MaxDrawdown=%.6f outside [0, 1) (seed=%d)", result.MaxDrawdown, seed)
				return false
			}

			var fees float64
			for _, transaction := range result.TradeLog {
				fees += transaction.Fee
			}
			if math.Abs(result.FeesPaid-fees) > 1e-9 {
				t.Logf("FAILED: FeesPaid=%.10f, log sums to %.10f (seed=%d)", result.FeesPaid, fees, seed)
				return false
			}

			if result.SkippedSignals != 0 {
				t.Logf("FAILED: %d signals skipped though every symbol was priced (seed=%d)", result.SkippedSignals, seed)
				return false
			}

			return true
		},
		seedGen,
		dayCountGen,
	))

	properties.TestingRun(t)
}

// TestProperty_RunsAreReproducible checks that the same history always
// produces the same result.
func TestProperty_RunsAreReproducible(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	seedGen := gen.Int64Range(0, math.MaxInt64)
	dayCountGen := gen.IntRange(1, 30)

	properties.Property("Identical histories yield identical results", prop.ForAll(
		func(seed int64, dayCount int) bool {
			rng := rand.New(rand.NewSource(seed))
			days := randomWalkDays(rng, dayCount)

			cfg := Config{
				InitialCash: 10000,
				Profile:     strategy.DefaultProfiles()[strategy.ProfileAggressive],
				Combiner:    lstmCombiner(),
			}

			first, err := mustRun(cfg, days)
			if err != nil {
				t.Logf("FAILED: first run: %v (seed=%d)", err, seed)
				return false
			}
			second, err := mustRun(cfg, days)
			if err != nil {
				t.Logf("FAILED: second run: %v (seed=%d)", err, seed)
				return false
			}

			if first.FinalValue != second.FinalValue ||
				first.TotalReturn != second.TotalReturn ||
				first.SharpeRatio != second.SharpeRatio ||
				len(first.TradeLog) != len(second.TradeLog) {
				t.Logf("FAILED: runs diverged (seed=%d, days=%d)", seed, dayCount)
				return false
			}
			for i := range first.TradeLog {
				if first.TradeLog[i] != second.TradeLog[i] {
					t.Logf("FAILED: trade %d differs (seed=%d)", i, seed)
					return false
				}
			}

			return true
		},
		seedGen,
		dayCountGen,
	))

	properties.TestingRun(t)
}

func mustRun(cfg Config, days []models.DayRecord) (*Result, error) {
	sim, err := NewSimulator(cfg, zerolog.Nop())
	if err != nil {
		return nil, err
	}
	return sim.Run(days)
}
