// Package backtest replays daily price and signal history through the
// portfolio ledger and derives performance metrics.
package backtest

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"backfolio/internal/errors"
	"backfolio/internal/logging"
	"backfolio/internal/models"
	"backfolio/internal/portfolio"
	"backfolio/internal/signal"
	"backfolio/internal/strategy"
)

// Config holds simulator construction parameters.
type Config struct {
	InitialCash float64
	FeeRate     float64 // zero means the ledger default
	Profile     strategy.Profile
	Combiner    *signal.Combiner // nil means default weights
}

// Simulator replays day records under one strategy profile. Each Run
// builds a private ledger, so independent simulators may run in
// parallel.
type Simulator struct {
	cfg    Config
	logger zerolog.Logger
}

// NewSimulator creates a simulator for the given configuration.
func NewSimulator(cfg Config, logger zerolog.Logger) (*Simulator, error) {
	if cfg.InitialCash <= 0 {
		return nil, errors.NewValidationError("initial_cash", cfg.InitialCash, "must be positive")
	}
	if cfg.FeeRate < 0 {
		return nil, errors.NewValidationError("fee_rate", cfg.FeeRate, "must not be negative")
	}
	if err := cfg.Profile.Validate(); err != nil {
		return nil, err
	}
	if cfg.Combiner == nil {
		cfg.Combiner = signal.NewCombiner(signal.CombinerConfig{})
	}
	return &Simulator{cfg: cfg, logger: logging.WithProfile(logger, cfg.Profile.Name)}, nil
}

// Run replays the day records in order and returns the completed result.
// Days must be sorted chronologically. The equity curve samples the
// portfolio value at the start of each day, before that day's trades.
func (s *Simulator) Run(days []models.DayRecord) (*Result, error) {
	if len(days) == 0 {
		return nil, errors.NewValidationError("days", len(days), "must not be empty")
	}
	for i := 1; i < len(days); i++ {
		if days[i].Date.Before(days[i-1].Date) {
			return nil, errors.NewValidationError("days", days[i].Date, "must be in chronological order")
		}
	}

	// The ledger clock is pinned to the simulated day so transaction
	// timestamps are reproducible.
	var current time.Time
	ledger, err := portfolio.NewLedger(portfolio.LedgerConfig{
		InitialCash: s.cfg.InitialCash,
		FeeRate:     s.cfg.FeeRate,
		Clock:       func() time.Time { return current },
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int("days", len(days)).
		Float64("initial_cash", s.cfg.InitialCash).
		Msg("Backtest started")

	result := &Result{
		Profile:     s.cfg.Profile.Name,
		InitialCash: s.cfg.InitialCash,
		EquityCurve: make([]models.EquityPoint, 0, len(days)),
	}
	lastPrices := make(map[string]float64)

	for _, day := range days {
		current = day.Date
		for symbol, price := range day.Prices {
			lastPrices[symbol] = price
		}

		// Equity sample reads the state before the day's trades and
		// sizes every trade evaluated below.
		dayValue := totalValue(ledger, day.Prices)
		result.EquityCurve = append(result.EquityCurve, models.EquityPoint{
			Date:       day.Date,
			TotalValue: dayValue,
		})

		for _, symbol := range signaledSymbols(day) {
			price, ok := day.Prices[symbol]
			if !ok {
				result.SkippedSignals++
				skipErr := errors.NewDataError("price", symbol, "no price for day", errors.ErrNoPriceData)
				s.logger.Debug().Err(skipErr).Str("symbol", symbol).Msg("Signal skipped")
				continue
			}

			decision := s.cfg.Combiner.Combine(day.Signals[symbol])
			rec := strategy.Recommend(decision, s.cfg.Profile)
			logging.LogDecision(s.logger, symbol, string(rec.Action), decision.Confidence, decision.SignalCount)

			switch rec.Action {
			case models.DirectionBuy:
				if ledger.Cash() <= 0 {
					continue
				}
				quantity := int64(dayValue * rec.PositionFraction / price)
				if quantity == 0 {
					logging.LogSkip(s.logger, symbol, string(rec.Action), "sized to zero")
					continue
				}
				if err := s.execute(ledger, symbol, models.DirectionBuy, quantity, price); err != nil {
					return nil, err
				}

			case models.DirectionSell:
				pos, held := ledger.Position(symbol)
				if !held {
					continue
				}
				if err := s.execute(ledger, symbol, models.DirectionSell, pos.Quantity, price); err != nil {
					return nil, err
				}
			}
		}
	}

	result.TradeLog = ledger.Transactions()
	result.FinalPositions = ledger.Positions()
	result.FinalCash = ledger.Cash()
	result.FinalValue = totalValue(ledger, lastPrices)
	result.computeMetrics(s.logger)

	s.logger.Info().
		Float64("final_value", result.FinalValue).
		Float64("total_return", result.TotalReturn).
		Int("trades", result.TotalTrades).
		Msg("Backtest finished")

	return result, nil
}

// execute runs one trade, treating insufficient funds or position as a
// skip rather than a failure.
func (s *Simulator) execute(ledger *portfolio.Ledger, symbol string, side models.Direction, quantity int64, price float64) error {
	tx, err := ledger.Execute(symbol, side, quantity, price)
	if err != nil {
		if errors.Is(err, errors.ErrInsufficientFunds) || errors.Is(err, errors.ErrInsufficientPosition) {
			logging.LogSkip(s.logger, symbol, string(side), err.Error())
			return nil
		}
		return err
	}
	logging.LogTrade(s.logger, tx.Symbol, string(tx.Side), tx.Quantity, tx.Price, tx.Fee)
	return nil
}

// totalValue is cash plus the market value of priced positions.
func totalValue(ledger *portfolio.Ledger, prices map[string]float64) float64 {
	value := ledger.Cash()
	for symbol, pos := range ledger.Positions() {
		if price, ok := prices[symbol]; ok {
			value += float64(pos.Quantity) * price
		}
	}
	return value
}

// signaledSymbols returns the day's signaled symbols in sorted order so
// runs are reproducible.
func signaledSymbols(day models.DayRecord) []string {
	symbols := make([]string, 0, len(day.Signals))
	for symbol := range day.Signals {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}
