// Package models provides domain models for the portfolio engine.
package models

import (
	"time"
)

// Direction represents the direction of a signal, decision or trade.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
	DirectionHold Direction = "HOLD"
)

// Valid reports whether the direction is one of BUY, SELL or HOLD.
func (d Direction) Valid() bool {
	switch d {
	case DirectionBuy, DirectionSell, DirectionHold:
		return true
	}
	return false
}

// Tradable reports whether the direction results in an order (BUY or SELL).
func (d Direction) Tradable() bool {
	return d == DirectionBuy || d == DirectionSell
}

// SignalSource identifies the model that produced a signal.
// The set is open: unknown sources are accepted and weighted with the
// combiner's fallback weight.
type SignalSource string

const (
	SourceSVM  SignalSource = "SVM"
	SourceLSTM SignalSource = "LSTM"
	SourceNLP  SignalSource = "NLP"
)

// Transaction records a single executed trade. Transactions are append-only:
// once created by the ledger they are never mutated or deleted.
type Transaction struct {
	ID        int64
	Symbol    string
	Side      Direction
	Quantity  int64
	Price     float64
	Fee       float64
	Timestamp time.Time
}

// GrossValue returns quantity times price, before fees.
func (t Transaction) GrossValue() float64 {
	return float64(t.Quantity) * t.Price
}

// NetValue returns the cash effect of the transaction: cost including fee
// for buys, revenue net of fee for sells.
func (t Transaction) NetValue() float64 {
	if t.Side == DirectionBuy {
		return t.GrossValue() + t.Fee
	}
	return t.GrossValue() - t.Fee
}

// Position represents a holding in a single symbol.
// A position with quantity zero is never retained; the ledger removes it.
type Position struct {
	Symbol      string
	Quantity    int64
	AverageCost float64
}

// CostBasis returns the total cost basis of the position.
func (p Position) CostBasis() float64 {
	return float64(p.Quantity) * p.AverageCost
}

// DayRecord is one day of market history: closing prices and the signals
// produced for that day, keyed by symbol.
type DayRecord struct {
	Date    time.Time
	Prices  map[string]float64
	Signals map[string][]Signal
}

// EquityPoint is one sample of total portfolio value over time.
type EquityPoint struct {
	Date       time.Time
	TotalValue float64
}
