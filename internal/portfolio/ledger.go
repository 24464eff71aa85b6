// Package portfolio implements cash and position accounting for a
// single portfolio.
package portfolio

import (
	"fmt"
	"time"

	"backfolio/internal/errors"
	"backfolio/internal/models"
)

const (
	// DefaultFeeRate is the proportional fee charged on both sides of a trade.
	DefaultFeeRate = 0.001
	// DefaultInitialCash is the starting cash balance when none is configured.
	DefaultInitialCash = 10000.0
)

// Clock supplies transaction timestamps. The simulator injects a clock
// pinned to the simulated day.
type Clock func() time.Time

// LedgerConfig holds ledger construction parameters.
type LedgerConfig struct {
	InitialCash float64
	FeeRate     float64 // zero means DefaultFeeRate
	Clock       Clock   // nil means time.Now
}

// Ledger owns the cash balance, open positions and transaction log of
// one portfolio. It is not safe for concurrent use; callers serialize
// access.
type Ledger struct {
	cash         float64
	feeRate      float64
	clock        Clock
	positions    map[string]models.Position
	transactions []models.Transaction
	nextID       int64
}

// NewLedger creates a ledger with the given starting cash.
func NewLedger(cfg LedgerConfig) (*Ledger, error) {
	if cfg.InitialCash <= 0 {
		return nil, errors.NewValidationError("initial_cash", cfg.InitialCash, "must be positive")
	}
	if cfg.FeeRate < 0 {
		return nil, errors.NewValidationError("fee_rate", cfg.FeeRate, "must not be negative")
	}

	feeRate := cfg.FeeRate
	if feeRate == 0 {
		feeRate = DefaultFeeRate
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Ledger{
		cash:      cfg.InitialCash,
		feeRate:   feeRate,
		clock:     clock,
		positions: make(map[string]models.Position),
		nextID:    1,
	}, nil
}

// Execute applies a buy or sell to the ledger. On any error the ledger
// state is unchanged.
func (l *Ledger) Execute(symbol string, side models.Direction, quantity int64, price float64) (models.Transaction, error) {
	if symbol == "" {
		return models.Transaction{}, errors.NewValidationError("symbol", symbol, "must not be empty")
	}
	if quantity <= 0 {
		return models.Transaction{}, errors.NewValidationError("quantity", quantity, "must be positive")
	}
	if price <= 0 {
		return models.Transaction{}, errors.NewValidationError("price", price, "must be positive")
	}

	switch side {
	case models.DirectionBuy:
		return l.buy(symbol, quantity, price)
	case models.DirectionSell:
		return l.sell(symbol, quantity, price)
	default:
		return models.Transaction{}, errors.NewValidationError("side", string(side), "must be BUY or SELL")
	}
}

func (l *Ledger) buy(symbol string, quantity int64, price float64) (models.Transaction, error) {
	gross := float64(quantity) * price
	fee := gross * l.feeRate
	cost := gross + fee

	if cost > l.cash {
		return models.Transaction{}, errors.NewTradeError(
			symbol, string(models.DirectionBuy), quantity, price,
			fmt.Sprintf("need %.2f, have %.2f", cost, l.cash),
			errors.ErrInsufficientFunds,
		)
	}

	l.cash -= cost

	pos := l.positions[symbol]
	newQty := pos.Quantity + quantity
	pos.AverageCost = (float64(pos.Quantity)*pos.AverageCost + gross) / float64(newQty)
	pos.Quantity = newQty
	pos.Symbol = symbol
	l.positions[symbol] = pos

	return l.record(symbol, models.DirectionBuy, quantity, price, fee), nil
}

func (l *Ledger) sell(symbol string, quantity int64, price float64) (models.Transaction, error) {
	pos, ok := l.positions[symbol]
	if !ok || pos.Quantity < quantity {
		var held int64
		if ok {
			held = pos.Quantity
		}
		return models.Transaction{}, errors.NewTradeError(
			symbol, string(models.DirectionSell), quantity, price,
			fmt.Sprintf("hold %d, tried to sell %d", held, quantity),
			errors.ErrInsufficientPosition,
		)
	}

	gross := float64(quantity) * price
	fee := gross * l.feeRate
	l.cash += gross - fee

	pos.Quantity -= quantity
	if pos.Quantity == 0 {
		delete(l.positions, symbol)
	} else {
		l.positions[symbol] = pos
	}

	return l.record(symbol, models.DirectionSell, quantity, price, fee), nil
}

func (l *Ledger) record(symbol string, side models.Direction, quantity int64, price, fee float64) models.Transaction {
	tx := models.Transaction{
		ID:        l.nextID,
		Symbol:    symbol,
		Side:      side,
		Quantity:  quantity,
		Price:     price,
		Fee:       fee,
		Timestamp: l.clock(),
	}
	l.nextID++
	l.transactions = append(l.transactions, tx)
	return tx
}

// Cash returns the current cash balance.
func (l *Ledger) Cash() float64 {
	return l.cash
}

// FeeRate returns the proportional fee rate.
func (l *Ledger) FeeRate() float64 {
	return l.feeRate
}

// Position returns the open position for a symbol.
func (l *Ledger) Position(symbol string) (models.Position, bool) {
	pos, ok := l.positions[symbol]
	return pos, ok
}

// Positions returns a copy of all open positions.
func (l *Ledger) Positions() map[string]models.Position {
	out := make(map[string]models.Position, len(l.positions))
	for symbol, pos := range l.positions {
		out[symbol] = pos
	}
	return out
}

// Transactions returns a copy of the transaction log in execution order.
func (l *Ledger) Transactions() []models.Transaction {
	out := make([]models.Transaction, len(l.transactions))
	copy(out, l.transactions)
	return out
}

// TransactionCount returns the number of executed transactions.
func (l *Ledger) TransactionCount() int {
	return len(l.transactions)
}
