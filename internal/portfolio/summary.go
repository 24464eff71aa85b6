package portfolio

import (
	"sort"

	"backfolio/internal/models"
)

// PositionSummary is the valuation of one open position.
type PositionSummary struct {
	Symbol        string
	Quantity      int64
	AverageCost   float64
	Price         float64
	MarketValue   float64
	UnrealizedPnL float64
	Weight        float64 // percent of total value
	Priced        bool    // false when no price was supplied
}

// Summary is a point-in-time valuation of the ledger.
type Summary struct {
	Cash          float64
	MarketValue   float64
	TotalValue    float64
	UnrealizedPnL float64
	CashWeight    float64 // percent of total value
	Positions     []PositionSummary
}

// Snapshot values the ledger against the given prices. Positions whose
// symbol has no price are reported with Priced=false and excluded from
// market value and weights.
func (l *Ledger) Snapshot(prices map[string]float64) Summary {
	symbols := make([]string, 0, len(l.positions))
	for symbol := range l.positions {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	summary := Summary{Cash: l.cash}
	for _, symbol := range symbols {
		pos := l.positions[symbol]
		ps := PositionSummary{
			Symbol:      symbol,
			Quantity:    pos.Quantity,
			AverageCost: pos.AverageCost,
		}
		if price, ok := prices[symbol]; ok {
			ps.Priced = true
			ps.Price = price
			ps.MarketValue = float64(pos.Quantity) * price
			ps.UnrealizedPnL = float64(pos.Quantity) * (price - pos.AverageCost)
			summary.MarketValue += ps.MarketValue
			summary.UnrealizedPnL += ps.UnrealizedPnL
		}
		summary.Positions = append(summary.Positions, ps)
	}

	summary.TotalValue = summary.Cash + summary.MarketValue
	if summary.TotalValue > 0 {
		summary.CashWeight = summary.Cash / summary.TotalValue * 100
		for i := range summary.Positions {
			if summary.Positions[i].Priced {
				summary.Positions[i].Weight = summary.Positions[i].MarketValue / summary.TotalValue * 100
			}
		}
	}

	return summary
}

// RebalanceSuggestion is one adjustment needed to reach a target weight.
type RebalanceSuggestion struct {
	Symbol        string
	Side          models.Direction
	CurrentWeight float64 // percent
	TargetWeight  float64 // percent
	ValueDelta    float64 // absolute currency amount to trade
}

// rebalanceBand is the tolerated deviation from a target weight, in
// percentage points.
const rebalanceBand = 1.0

// SuggestRebalance compares current position weights against target
// weights (percent of total value) and suggests trades for symbols more
// than one percentage point off target. Unpriced positions are skipped.
func (l *Ledger) SuggestRebalance(targets map[string]float64, prices map[string]float64) []RebalanceSuggestion {
	summary := l.Snapshot(prices)
	if summary.TotalValue <= 0 {
		return nil
	}

	current := make(map[string]float64, len(summary.Positions))
	priced := make(map[string]bool, len(summary.Positions))
	for _, ps := range summary.Positions {
		current[ps.Symbol] = ps.Weight
		priced[ps.Symbol] = ps.Priced
	}

	symbols := make([]string, 0, len(targets))
	for symbol := range targets {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	var out []RebalanceSuggestion
	for _, symbol := range symbols {
		if held, ok := priced[symbol]; ok && !held {
			continue
		}
		if _, ok := prices[symbol]; !ok {
			continue
		}

		target := targets[symbol]
		diff := target - current[symbol]
		if diff > -rebalanceBand && diff < rebalanceBand {
			continue
		}

		side := models.DirectionBuy
		if diff < 0 {
			side = models.DirectionSell
			diff = -diff
		}
		out = append(out, RebalanceSuggestion{
			Symbol:        symbol,
			Side:          side,
			CurrentWeight: current[symbol],
			TargetWeight:  target,
			ValueDelta:    diff / 100 * summary.TotalValue,
		})
	}

	return out
}

// ScenarioResult is the hypothetical outcome of a uniform price shock.
type ScenarioResult struct {
	ChangePct      float64
	CurrentValue   float64
	ProjectedValue float64
	Delta          float64
	DeltaPct       float64
}

// SimulateScenario applies a uniform percentage change to every priced
// position and reports the hypothetical portfolio value. The ledger is
// not modified.
func (l *Ledger) SimulateScenario(prices map[string]float64, changePct float64) ScenarioResult {
	summary := l.Snapshot(prices)

	shocked := make(map[string]float64, len(prices))
	for symbol, price := range prices {
		shocked[symbol] = price * (1 + changePct/100)
	}
	projected := l.Snapshot(shocked)

	result := ScenarioResult{
		ChangePct:      changePct,
		CurrentValue:   summary.TotalValue,
		ProjectedValue: projected.TotalValue,
		Delta:          projected.TotalValue - summary.TotalValue,
	}
	if summary.TotalValue > 0 {
		result.DeltaPct = result.Delta / summary.TotalValue * 100
	}
	return result
}

// TransactionFilter selects transactions from a log.
type TransactionFilter struct {
	Symbol string
	Side   models.Direction
	Limit  int // most recent N when > 0
}

// FilterTransactions returns the transactions matching the filter, in
// log order.
func FilterTransactions(transactions []models.Transaction, filter TransactionFilter) []models.Transaction {
	var out []models.Transaction
	for _, tx := range transactions {
		if filter.Symbol != "" && tx.Symbol != filter.Symbol {
			continue
		}
		if filter.Side != "" && tx.Side != filter.Side {
			continue
		}
		out = append(out, tx)
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[len(out)-filter.Limit:]
	}
	return out
}

// LedgerMetrics summarizes trading activity and current exposure.
type LedgerMetrics struct {
	TradeCount    int
	BuyCount      int
	SellCount     int
	FeesPaid      float64
	RealizedPnL   float64
	UnrealizedPnL float64
	PositionCount int
	LargestWeight float64 // percent
}

// Metrics computes activity and exposure metrics for the ledger.
func (l *Ledger) Metrics(prices map[string]float64) LedgerMetrics {
	m := LedgerMetrics{TradeCount: len(l.transactions)}
	for _, tx := range l.transactions {
		m.FeesPaid += tx.Fee
		switch tx.Side {
		case models.DirectionBuy:
			m.BuyCount++
		case models.DirectionSell:
			m.SellCount++
		}
	}
	m.RealizedPnL = RealizedPnL(l.transactions)

	summary := l.Snapshot(prices)
	m.UnrealizedPnL = summary.UnrealizedPnL
	m.PositionCount = len(summary.Positions)
	for _, ps := range summary.Positions {
		if ps.Weight > m.LargestWeight {
			m.LargestWeight = ps.Weight
		}
	}
	return m
}
