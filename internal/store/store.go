// Package store persists backtest runs and their trade logs.
package store

import (
	"context"
	"time"

	"backfolio/internal/backtest"
	"backfolio/internal/models"
)

// RunStore defines the interface for run journal persistence.
type RunStore interface {
	SaveRun(ctx context.Context, run *Run, trades []models.Transaction) error
	GetRuns(ctx context.Context, filter RunFilter) ([]Run, error)
	GetRun(ctx context.Context, id string) (*Run, error)
	GetRunTrades(ctx context.Context, runID string) ([]models.Transaction, error)
	Close() error
}

// Run is one journaled backtest run.
type Run struct {
	ID        string
	CreatedAt time.Time
	Profile   string
	Source    string // "csv" or "synthetic"
	Symbols   []string
	Days      int
	Seed      int64

	InitialCash      float64
	FeeRate          float64
	FinalValue       float64
	TotalReturn      float64
	AnnualizedReturn float64
	SharpeRatio      float64
	SortinoRatio     float64
	CalmarRatio      float64
	MaxDrawdown      float64
	WinRate          float64
	TotalTrades      int
	WinningTrades    int
	LosingTrades     int
	RealizedPnL      float64
	FeesPaid         float64
}

// RunFilter selects journaled runs.
type RunFilter struct {
	Profile string
	Since   time.Time
	Limit   int
}

// NewRunFromResult builds a journal record from a completed backtest.
// The ID is assigned by SaveRun.
func NewRunFromResult(result *backtest.Result, source string, symbols []string, days int, seed int64, feeRate float64) *Run {
	return &Run{
		Profile:          result.Profile,
		Source:           source,
		Symbols:          symbols,
		Days:             days,
		Seed:             seed,
		InitialCash:      result.InitialCash,
		FeeRate:          feeRate,
		FinalValue:       result.FinalValue,
		TotalReturn:      result.TotalReturn,
		AnnualizedReturn: result.AnnualizedReturn,
		SharpeRatio:      result.SharpeRatio,
		SortinoRatio:     result.SortinoRatio,
		CalmarRatio:      result.CalmarRatio,
		MaxDrawdown:      result.MaxDrawdown,
		WinRate:          result.WinRate,
		TotalTrades:      result.TotalTrades,
		WinningTrades:    result.WinningTrades,
		LosingTrades:     result.LosingTrades,
		RealizedPnL:      result.RealizedPnL,
		FeesPaid:         result.FeesPaid,
	}
}
