// Package signal fuses directional signals from multiple model sources
// into a single scored decision.
package signal

import (
	"strings"

	"backfolio/internal/models"
)

// DefaultFallbackWeight is applied to sources without a configured weight.
const DefaultFallbackWeight = 0.33

// DefaultWeights returns the standard per-source weights.
func DefaultWeights() map[models.SignalSource]float64 {
	return map[models.SignalSource]float64{
		models.SourceSVM:  0.3,
		models.SourceLSTM: 0.4,
		models.SourceNLP:  0.3,
	}
}

// CombinerConfig holds combiner construction parameters.
type CombinerConfig struct {
	Weights        map[models.SignalSource]float64 // nil means DefaultWeights
	FallbackWeight float64                         // zero means DefaultFallbackWeight
}

// Combiner fuses signals into one decision. It holds only configuration
// and is safe to share across goroutines.
type Combiner struct {
	weights  map[models.SignalSource]float64
	fallback float64
}

// NewCombiner creates a combiner with the given weights.
func NewCombiner(cfg CombinerConfig) *Combiner {
	weights := cfg.Weights
	if weights == nil {
		weights = DefaultWeights()
	}
	normalized := make(map[models.SignalSource]float64, len(weights))
	for source, w := range weights {
		normalized[canonicalSource(source)] = w
	}

	fallback := cfg.FallbackWeight
	if fallback == 0 {
		fallback = DefaultFallbackWeight
	}

	return &Combiner{weights: normalized, fallback: fallback}
}

func canonicalSource(source models.SignalSource) models.SignalSource {
	return models.SignalSource(strings.ToUpper(string(source)))
}

// Weight returns the weight for a source. Unknown sources take the
// fallback weight.
func (c *Combiner) Weight(source models.SignalSource) float64 {
	if w, ok := c.weights[canonicalSource(source)]; ok {
		return w
	}
	return c.fallback
}

// Combine groups the signals by direction, scores each direction as the
// sum of confidence times source weight, and picks the top score. HOLD
// wins any tie for the top score. Confidence is the winning direction's
// score divided by the number of input signals, so sparse signal sets
// yield low confidence. Empty input yields {HOLD, 0}.
func (c *Combiner) Combine(signals []models.Signal) models.CombinedDecision {
	scores := map[models.Direction]float64{
		models.DirectionBuy:  0,
		models.DirectionSell: 0,
		models.DirectionHold: 0,
	}

	decision := models.CombinedDecision{
		Direction:   models.DirectionHold,
		Scores:      scores,
		SignalCount: len(signals),
	}
	if len(signals) == 0 {
		return decision
	}

	for _, s := range signals {
		if _, ok := scores[s.Direction]; !ok {
			continue
		}
		scores[s.Direction] += s.Confidence * c.Weight(s.Source)
	}

	winner := models.DirectionHold
	best := scores[models.DirectionHold]
	tied := false
	for _, dir := range []models.Direction{models.DirectionBuy, models.DirectionSell} {
		if scores[dir] > best {
			winner = dir
			best = scores[dir]
			tied = false
		} else if scores[dir] == best && dir != winner {
			tied = true
		}
	}
	if tied {
		winner = models.DirectionHold
	}

	decision.Direction = winner
	decision.Confidence = scores[winner] / float64(len(signals))
	return decision
}
