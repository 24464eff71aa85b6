package strategy

import (
	"backfolio/internal/models"
)

// Recommendation is the policy output for one combined decision.
type Recommendation struct {
	Action           models.Direction
	PositionFraction float64 // fraction of total portfolio value, [0, 1]
	StopLoss         float64
	TakeProfit       float64
}

// Recommend applies the profile's eligibility gate and sizing rule to a
// combined decision. The action is forced to HOLD unless the decision
// confidence meets the profile minimum and enough signals contributed.
// When eligible, the position fraction scales with confidence and never
// exceeds the profile cap. Stop loss and take profit pass through from
// the profile. Pure function: no state, same inputs same output.
func Recommend(decision models.CombinedDecision, profile Profile) Recommendation {
	rec := Recommendation{
		Action:     models.DirectionHold,
		StopLoss:   profile.StopLossFraction,
		TakeProfit: profile.TakeProfitFraction,
	}

	if !decision.Direction.Tradable() {
		return rec
	}
	if decision.Confidence < profile.MinConfidence {
		return rec
	}
	if decision.SignalCount < profile.RequiredSignalCount {
		return rec
	}

	rec.Action = decision.Direction
	rec.PositionFraction = profile.MaxPositionFraction * decision.Confidence
	if rec.PositionFraction > profile.MaxPositionFraction {
		rec.PositionFraction = profile.MaxPositionFraction
	}
	return rec
}
