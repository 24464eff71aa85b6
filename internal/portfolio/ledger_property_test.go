package portfolio

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"backfolio/internal/models"
)

// TestProperty_CashNeverNegative runs random order sequences and checks
// that cash stays non-negative, that no zero-quantity position survives,
// and that a rejected order leaves the ledger untouched.
func TestProperty_CashNeverNegative(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	// Generator for the sequence seed
	seedGen := gen.Int64Range(0, math.MaxInt64)

	// Generator for the number of orders per sequence
	opCountGen := gen.IntRange(1, 60)

	properties.Property("Cash stays non-negative across random order sequences", prop.ForAll(
		func(seed int64, opCount int) bool {
			rng := rand.New(rand.NewSource(seed))

			ledger, err := NewLedger(LedgerConfig{InitialCash: 5000})
			if err != nil {
				t.Logf("FAILED: NewLedger: %v", err)
				return false
			}

			symbols := []string{"AAPL", "MSFT", "GOOG"}
			for i := 0; i < opCount; i++ {
				symbol := symbols[rng.Intn(len(symbols))]
				side := models.DirectionBuy
				if rng.Intn(2) == 1 {
					side = models.DirectionSell
				}
				quantity := int64(rng.Intn(50) + 1)
				price := 1 + rng.Float64()*200

				cashBefore := ledger.Cash()
				countBefore := ledger.TransactionCount()

				if _, err := ledger.Execute(symbol, side, quantity, price); err != nil {
					// Rejected orders must not mutate anything.
					if ledger.Cash() != cashBefore || ledger.TransactionCount() != countBefore {
						t.Logf("FAILED: rejected %s order mutated state (seed=%d, op=%d)", side, seed, i)
						return false
					}
				}

				if ledger.Cash() < 0 {
					t.Logf("FAILED: cash went negative: %.6f (seed=%d, op=%d)", ledger.Cash(), seed, i)
					return false
				}

				for sym, pos := range ledger.Positions() {
					if pos.Quantity <= 0 {
						t.Logf("FAILED: position %s has quantity %d (seed=%d, op=%d)", sym, pos.Quantity, seed, i)
						return false
					}
				}
			}

			return true
		},
		seedGen,
		opCountGen,
	))

	properties.TestingRun(t)
}

// TestProperty_RoundTripAtSamePriceCostsOnlyFees checks that buying and
// immediately selling at the same price loses exactly the two fees.
func TestProperty_RoundTripAtSamePriceCostsOnlyFees(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	quantityGen := gen.Int64Range(1, 100)
	priceGen := gen.Float64Range(1, 500)

	properties.Property("Round trip at one price loses exactly two fees", prop.ForAll(
		func(quantity int64, price float64) bool {
			initial := 100000.0
			ledger, err := NewLedger(LedgerConfig{InitialCash: initial})
			if err != nil {
				t.Logf("FAILED: NewLedger: %v", err)
				return false
			}

			if _, err := ledger.Execute("AAPL", models.DirectionBuy, quantity, price); err != nil {
				t.Logf("FAILED: buy %d @ %.4f: %v", quantity, price, err)
				return false
			}
			if _, err := ledger.Execute("AAPL", models.DirectionSell, quantity, price); err != nil {
				t.Logf("FAILED: sell %d @ %.4f: %v", quantity, price, err)
				return false
			}

			gross := float64(quantity) * price
			wantLoss := 2 * gross * ledger.FeeRate()
			loss := initial - ledger.Cash()

			if math.Abs(loss-wantLoss) > 1e-6 {
				t.Logf("FAILED: loss=%.10f, want=%.10f (quantity=%d, price=%.4f)", loss, wantLoss, quantity, price)
				return false
			}
			if _, ok := ledger.Position("AAPL"); ok {
				t.Logf("FAILED: position survived full liquidation (quantity=%d)", quantity)
				return false
			}

			return true
		},
		quantityGen,
		priceGen,
	))

	properties.TestingRun(t)
}

// TestProperty_AverageCostWithinBuyPriceBounds checks that after any
// sequence of buys the average cost lies between the lowest and highest
// buy price and the quantity is the sum of all buys.
func TestProperty_AverageCostWithinBuyPriceBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	seedGen := gen.Int64Range(0, math.MaxInt64)
	buyCountGen := gen.IntRange(1, 8)

	properties.Property("Average cost stays within buy price bounds", prop.ForAll(
		func(seed int64, buyCount int) bool {
			rng := rand.New(rand.NewSource(seed))

			ledger, err := NewLedger(LedgerConfig{InitialCash: 50000})
			if err != nil {
				t.Logf("FAILED: NewLedger: %v", err)
				return false
			}

			minPrice := math.MaxFloat64
			maxPrice := 0.0
			var totalQuantity int64

			for i := 0; i < buyCount; i++ {
				quantity := int64(rng.Intn(20) + 1)
				price := 10 + rng.Float64()*190

				if _, err := ledger.Execute("INFY", models.DirectionBuy, quantity, price); err != nil {
					t.Logf("FAILED: buy %d @ %.4f: %v", quantity, price, err)
					return false
				}

				totalQuantity += quantity
				minPrice = math.Min(minPrice, price)
				maxPrice = math.Max(maxPrice, price)

				pos, ok := ledger.Position("INFY")
				if !ok {
					t.Logf("FAILED: position missing after buy (seed=%d, op=%d)", seed, i)
					return false
				}
				if pos.Quantity != totalQuantity {
					t.Logf("FAILED: quantity=%d, want=%d (seed=%d, op=%d)", pos.Quantity, totalQuantity, seed, i)
					return false
				}
				if pos.AverageCost < minPrice-tolerance || pos.AverageCost > maxPrice+tolerance {
					t.Logf("FAILED: average cost %.6f outside [%.6f, %.6f] (seed=%d, op=%d)",
						pos.AverageCost, minPrice, maxPrice, seed, i)
					return false
				}
			}

			return true
		},
		seedGen,
		buyCountGen,
	))

	properties.TestingRun(t)
}

// TestProperty_FullLiquidationReconciles checks the accounting identity
// tying the ledger to FIFO attribution: after selling everything,
// final cash equals initial cash plus realized P&L minus all fees paid.
func TestProperty_FullLiquidationReconciles(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	seedGen := gen.Int64Range(0, math.MaxInt64)

	properties.Property("Final cash = initial + realized P&L - fees after liquidation", prop.ForAll(
		func(seed int64) bool {
			rng := rand.New(rand.NewSource(seed))

			initial := 100000.0
			ledger, err := NewLedger(LedgerConfig{InitialCash: initial})
			if err != nil {
				t.Logf("FAILED: NewLedger: %v", err)
				return false
			}

			symbols := []string{"AAPL", "MSFT"}
			for _, symbol := range symbols {
				buys := rng.Intn(4) + 1
				for i := 0; i < buys; i++ {
					quantity := int64(rng.Intn(20) + 1)
					price := 10 + rng.Float64()*190
					if _, err := ledger.Execute(symbol, models.DirectionBuy, quantity, price); err != nil {
						t.Logf("FAILED: buy %s %d @ %.4f: %v", symbol, quantity, price, err)
						return false
					}
				}
			}

			for _, symbol := range symbols {
				pos, ok := ledger.Position(symbol)
				if !ok {
					t.Logf("FAILED: position %s missing before liquidation (seed=%d)", symbol, seed)
					return false
				}
				price := 10 + rng.Float64()*190
				if _, err := ledger.Execute(symbol, models.DirectionSell, pos.Quantity, price); err != nil {
					t.Logf("FAILED: liquidate %s: %v", symbol, err)
					return false
				}
			}

			if len(ledger.Positions()) != 0 {
				t.Logf("FAILED: positions remain after liquidation (seed=%d)", seed)
				return false
			}

			var fees float64
			for _, transaction := range ledger.Transactions() {
				fees += transaction.Fee
			}

			want := initial + RealizedPnL(ledger.Transactions()) - fees
			if math.Abs(ledger.Cash()-want) > 1e-6 {
				t.Logf("FAILED: cash=%.10f, want=%.10f (seed=%d)", ledger.Cash(), want, seed)
				return false
			}

			return true
		},
		seedGen,
	))

	properties.TestingRun(t)
}

// TestProperty_RealizedAttributionIsDeterministic checks that FIFO
// attribution is a pure function of the transaction log.
func TestProperty_RealizedAttributionIsDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	seedGen := gen.Int64Range(0, math.MaxInt64)
	opCountGen := gen.IntRange(1, 40)

	properties.Property("RealizedBySell returns identical results on repeat calls", prop.ForAll(
		func(seed int64, opCount int) bool {
			rng := rand.New(rand.NewSource(seed))

			ledger, err := NewLedger(LedgerConfig{InitialCash: 50000})
			if err != nil {
				t.Logf("FAILED: NewLedger: %v", err)
				return false
			}

			symbols := []string{"AAPL", "MSFT"}
			for i := 0; i < opCount; i++ {
				symbol := symbols[rng.Intn(len(symbols))]
				side := models.DirectionBuy
				if rng.Intn(2) == 1 {
					side = models.DirectionSell
				}
				quantity := int64(rng.Intn(10) + 1)
				price := 10 + rng.Float64()*90
				// Rejected orders are fine; they never reach the log.
				ledger.Execute(symbol, side, quantity, price)
			}

			log := ledger.Transactions()
			first := RealizedBySell(log)
			second := RealizedBySell(log)

			if len(first) != len(second) {
				t.Logf("FAILED: attribution count changed between calls: %d vs %d (seed=%d)", len(first), len(second), seed)
				return false
			}

			var total float64
			for i := range first {
				if first[i] != second[i] {
					t.Logf("FAILED: attribution %d differs: %+v vs %+v (seed=%d)", i, first[i], second[i], seed)
					return false
				}
				total += first[i].Realized
			}

			if math.Abs(RealizedPnL(log)-total) > tolerance {
				t.Logf("FAILED: RealizedPnL=%.10f, sum of attributions=%.10f (seed=%d)", RealizedPnL(log), total, seed)
				return false
			}

			return true
		},
		seedGen,
		opCountGen,
	))

	properties.TestingRun(t)
}
