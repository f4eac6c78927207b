package simulator

import "math"

// InfeasibleReward scores an operating point the circuit cannot run at.
const InfeasibleReward = -20.0

// Reward trades uranium lost to the raffinate against strip liquor strength.
func Reward(r Results) float64 {
	wastedPenalty := -5 / 1.61 * (r.WastedUranium - 0.23)
	concentrationReward := 1 / 8.97 * (r.StripLiquorConcentration - 7.33)
	return wastedPenalty + concentrationReward
}

// Best is the highest-reward trial seen so far. The zero value holds nothing;
// use NewBest to start a fold.
type Best struct {
	Reward float64 `json:"reward" yaml:"reward"`
	Trial  *Trial  `json:"trial,omitempty" yaml:"trial,omitempty"`
}

func NewBest() Best {
	return Best{Reward: math.Inf(-1)}
}

// Fold keeps the trial with the strictly higher reward, so earlier trials win ties.
func (b Best) Fold(t *Trial) Best {
	if t == nil || t.Reward <= b.Reward {
		return b
	}
	return Best{Reward: t.Reward, Trial: t}
}

// Found reports whether any trial has been folded in.
func (b Best) Found() bool {
	return b.Trial != nil
}
