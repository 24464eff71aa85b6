package models

import (
	"encoding/json"
	"time"
)

// Signal is a single directional prediction from one source model.
// Signals are immutable once produced.
type Signal struct {
	Source     SignalSource
	Direction  Direction
	Confidence float64 // 0-1
	Timestamp  time.Time
	// Detail carries the source-specific payload. It is stored and passed
	// through opaquely; the engine never interprets it.
	Detail json.RawMessage
}

// CombinedDecision is the fused outcome of one set of signals.
type CombinedDecision struct {
	Direction   Direction
	Confidence  float64
	Scores      map[Direction]float64
	SignalCount int
}

// Score returns the weighted score for a direction, zero if absent.
func (d CombinedDecision) Score(dir Direction) float64 {
	return d.Scores[dir]
}
