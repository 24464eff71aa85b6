package portfolio

import (
	"testing"

	"backfolio/internal/models"
)

// ledgerWithHoldings builds a ledger holding 10 AAPL @ 100 and
// 20 MSFT @ 50, leaving 7998 cash.
func ledgerWithHoldings(t *testing.T) *Ledger {
	t.Helper()
	ledger := newTestLedger(t, 10000)
	if _, err := ledger.Execute("AAPL", models.DirectionBuy, 10, 100.0); err != nil {
		t.Fatalf("Buy AAPL failed: %v", err)
	}
	if _, err := ledger.Execute("MSFT", models.DirectionBuy, 20, 50.0); err != nil {
		t.Fatalf("Buy MSFT failed: %v", err)
	}
	return ledger
}

func TestSnapshotValuesPositions(t *testing.T) {
	ledger := ledgerWithHoldings(t)
	prices := map[string]float64{"AAPL": 110.0, "MSFT": 40.0}

	summary := ledger.Snapshot(prices)

	if !almostEqual(summary.Cash, 7998.0) {
		t.Errorf("Cash = %v, want 7998.0", summary.Cash)
	}
	if !almostEqual(summary.MarketValue, 1900.0) {
		t.Errorf("MarketValue = %v, want 1900.0", summary.MarketValue)
	}
	if !almostEqual(summary.TotalValue, 9898.0) {
		t.Errorf("TotalValue = %v, want 9898.0", summary.TotalValue)
	}
	if !almostEqual(summary.UnrealizedPnL, -100.0) {
		t.Errorf("UnrealizedPnL = %v, want -100.0", summary.UnrealizedPnL)
	}

	if len(summary.Positions) != 2 {
		t.Fatalf("len(Positions) = %d, want 2", len(summary.Positions))
	}
	if summary.Positions[0].Symbol != "AAPL" || summary.Positions[1].Symbol != "MSFT" {
		t.Errorf("Positions not sorted by symbol: %s, %s", summary.Positions[0].Symbol, summary.Positions[1].Symbol)
	}

	aapl := summary.Positions[0]
	if !aapl.Priced {
		t.Error("AAPL should be priced")
	}
	if !almostEqual(aapl.MarketValue, 1100.0) {
		t.Errorf("AAPL MarketValue = %v, want 1100.0", aapl.MarketValue)
	}
	if !almostEqual(aapl.UnrealizedPnL, 100.0) {
		t.Errorf("AAPL UnrealizedPnL = %v, want 100.0", aapl.UnrealizedPnL)
	}
	if !almostEqual(aapl.Weight, 1100.0/9898.0*100) {
		t.Errorf("AAPL Weight = %v, want %v", aapl.Weight, 1100.0/9898.0*100)
	}

	weightSum := summary.CashWeight
	for _, ps := range summary.Positions {
		weightSum += ps.Weight
	}
	if !almostEqual(weightSum, 100.0) {
		t.Errorf("Weights sum to %v, want 100.0", weightSum)
	}
}

func TestSnapshotUnpricedPosition(t *testing.T) {
	ledger := ledgerWithHoldings(t)

	summary := ledger.Snapshot(map[string]float64{"AAPL": 110.0})

	if !almostEqual(summary.MarketValue, 1100.0) {
		t.Errorf("MarketValue = %v, want 1100.0 (unpriced MSFT excluded)", summary.MarketValue)
	}
	if !almostEqual(summary.TotalValue, 9098.0) {
		t.Errorf("TotalValue = %v, want 9098.0", summary.TotalValue)
	}

	if len(summary.Positions) != 2 {
		t.Fatalf("len(Positions) = %d, want 2 (unpriced rows are still listed)", len(summary.Positions))
	}
	msft := summary.Positions[1]
	if msft.Priced {
		t.Error("MSFT should be reported unpriced")
	}
	if msft.MarketValue != 0 || msft.UnrealizedPnL != 0 || msft.Weight != 0 {
		t.Errorf("Unpriced MSFT must not contribute values: %+v", msft)
	}
}

func TestSnapshotEmptyLedger(t *testing.T) {
	ledger := newTestLedger(t, 10000)

	summary := ledger.Snapshot(nil)

	if !almostEqual(summary.TotalValue, 10000.0) {
		t.Errorf("TotalValue = %v, want 10000.0", summary.TotalValue)
	}
	if !almostEqual(summary.CashWeight, 100.0) {
		t.Errorf("CashWeight = %v, want 100.0", summary.CashWeight)
	}
	if len(summary.Positions) != 0 {
		t.Errorf("len(Positions) = %d, want 0", len(summary.Positions))
	}
}

func TestSimulateScenario(t *testing.T) {
	ledger := ledgerWithHoldings(t)
	prices := map[string]float64{"AAPL": 110.0, "MSFT": 40.0}
	cashBefore := ledger.Cash()

	result := ledger.SimulateScenario(prices, -10)

	if result.ChangePct != -10 {
		t.Errorf("ChangePct = %v, want -10", result.ChangePct)
	}
	if !almostEqual(result.CurrentValue, 9898.0) {
		t.Errorf("CurrentValue = %v, want 9898.0", result.CurrentValue)
	}
	// Only the 1900 of market value is shocked; cash is untouched.
	if !almostEqual(result.Delta, -190.0) {
		t.Errorf("Delta = %v, want -190.0", result.Delta)
	}
	if !almostEqual(result.ProjectedValue, 9708.0) {
		t.Errorf("ProjectedValue = %v, want 9708.0", result.ProjectedValue)
	}
	if !almostEqual(result.DeltaPct, -190.0/9898.0*100) {
		t.Errorf("DeltaPct = %v, want %v", result.DeltaPct, -190.0/9898.0*100)
	}

	if !almostEqual(ledger.Cash(), cashBefore) {
		t.Error("SimulateScenario must not modify the ledger")
	}
	if pos, ok := ledger.Position("AAPL"); !ok || pos.Quantity != 10 {
		t.Error("SimulateScenario must not modify positions")
	}
}

func TestSuggestRebalance(t *testing.T) {
	ledger := ledgerWithHoldings(t)
	prices := map[string]float64{"AAPL": 110.0, "MSFT": 40.0, "GOOG": 100.0}

	// AAPL sits at ~11.1% of the 9898 total, MSFT at ~8.1%.
	targets := map[string]float64{
		"AAPL": 20.0, // underweight, expect a buy
		"MSFT": 8.5,  // within the one-point band, expect nothing
		"GOOG": 5.0,  // unheld but priced, expect a buy from zero
		"NFLX": 5.0,  // no price, expect a skip
	}

	suggestions := ledger.SuggestRebalance(targets, prices)

	if len(suggestions) != 2 {
		t.Fatalf("len(suggestions) = %d, want 2: %+v", len(suggestions), suggestions)
	}

	aapl := suggestions[0]
	if aapl.Symbol != "AAPL" || aapl.Side != models.DirectionBuy {
		t.Errorf("First suggestion = %+v, want AAPL BUY", aapl)
	}
	// 20% of 9898 is 1979.60 against 1100 held.
	if !almostEqual(aapl.ValueDelta, 879.6) {
		t.Errorf("AAPL ValueDelta = %v, want 879.6", aapl.ValueDelta)
	}

	goog := suggestions[1]
	if goog.Symbol != "GOOG" || goog.Side != models.DirectionBuy {
		t.Errorf("Second suggestion = %+v, want GOOG BUY", goog)
	}
	if goog.CurrentWeight != 0 {
		t.Errorf("GOOG CurrentWeight = %v, want 0", goog.CurrentWeight)
	}
	if !almostEqual(goog.ValueDelta, 9898.0*0.05) {
		t.Errorf("GOOG ValueDelta = %v, want %v", goog.ValueDelta, 9898.0*0.05)
	}
}

func TestSuggestRebalanceSell(t *testing.T) {
	ledger := ledgerWithHoldings(t)
	prices := map[string]float64{"AAPL": 110.0, "MSFT": 40.0}

	suggestions := ledger.SuggestRebalance(map[string]float64{"AAPL": 5.0}, prices)

	if len(suggestions) != 1 {
		t.Fatalf("len(suggestions) = %d, want 1", len(suggestions))
	}
	s := suggestions[0]
	if s.Side != models.DirectionSell {
		t.Errorf("Side = %v, want SELL", s.Side)
	}
	// 1100 held against 5% of 9898 = 494.90.
	if !almostEqual(s.ValueDelta, 605.1) {
		t.Errorf("ValueDelta = %v, want 605.1", s.ValueDelta)
	}
}

func TestSuggestRebalanceSkipsUnpricedHolding(t *testing.T) {
	ledger := ledgerWithHoldings(t)
	// MSFT is held but has no price, so its target cannot be acted on.
	prices := map[string]float64{"AAPL": 110.0}

	suggestions := ledger.SuggestRebalance(map[string]float64{"MSFT": 50.0}, prices)

	if len(suggestions) != 0 {
		t.Errorf("Expected no suggestions for an unpriced holding, got %+v", suggestions)
	}
}

func TestFilterTransactions(t *testing.T) {
	log := []models.Transaction{
		tx(1, "AAPL", models.DirectionBuy, 10, 100.0),
		tx(2, "MSFT", models.DirectionBuy, 20, 50.0),
		tx(3, "AAPL", models.DirectionSell, 5, 110.0),
		tx(4, "AAPL", models.DirectionBuy, 5, 105.0),
		tx(5, "MSFT", models.DirectionSell, 20, 55.0),
	}

	tests := []struct {
		name    string
		filter  TransactionFilter
		wantIDs []int64
	}{
		{"no filter", TransactionFilter{}, []int64{1, 2, 3, 4, 5}},
		{"by symbol", TransactionFilter{Symbol: "AAPL"}, []int64{1, 3, 4}},
		{"by side", TransactionFilter{Side: models.DirectionSell}, []int64{3, 5}},
		{"symbol and side", TransactionFilter{Symbol: "AAPL", Side: models.DirectionBuy}, []int64{1, 4}},
		{"last two", TransactionFilter{Limit: 2}, []int64{4, 5}},
		{"symbol with limit", TransactionFilter{Symbol: "AAPL", Limit: 1}, []int64{4}},
		{"no match", TransactionFilter{Symbol: "GOOG"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterTransactions(log, tt.filter)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.wantIDs))
			}
			for i, transaction := range got {
				if transaction.ID != tt.wantIDs[i] {
					t.Errorf("got[%d].ID = %d, want %d", i, transaction.ID, tt.wantIDs[i])
				}
			}
		})
	}
}

func TestLedgerMetrics(t *testing.T) {
	ledger := ledgerWithHoldings(t)
	if _, err := ledger.Execute("AAPL", models.DirectionSell, 4, 110.0); err != nil {
		t.Fatalf("Sell failed: %v", err)
	}

	metrics := ledger.Metrics(map[string]float64{"AAPL": 120.0, "MSFT": 55.0})

	if metrics.TradeCount != 3 || metrics.BuyCount != 2 || metrics.SellCount != 1 {
		t.Errorf("Counts = %d/%d/%d, want 3/2/1", metrics.TradeCount, metrics.BuyCount, metrics.SellCount)
	}
	if !almostEqual(metrics.FeesPaid, 2.44) {
		t.Errorf("FeesPaid = %v, want 2.44", metrics.FeesPaid)
	}
	if !almostEqual(metrics.RealizedPnL, 40.0) {
		t.Errorf("RealizedPnL = %v, want 40.0 (4 shares up 10)", metrics.RealizedPnL)
	}
	// 6 AAPL up 20 plus 20 MSFT up 5.
	if !almostEqual(metrics.UnrealizedPnL, 220.0) {
		t.Errorf("UnrealizedPnL = %v, want 220.0", metrics.UnrealizedPnL)
	}
	if metrics.PositionCount != 2 {
		t.Errorf("PositionCount = %d, want 2", metrics.PositionCount)
	}

	// MSFT is the largest holding: 1100 of the 10257.56 total.
	wantLargest := 1100.0 / (8437.56 + 1820.0) * 100
	if !almostEqual(metrics.LargestWeight, wantLargest) {
		t.Errorf("LargestWeight = %v, want %v", metrics.LargestWeight, wantLargest)
	}
}
