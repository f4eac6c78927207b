package simulator

import (
	"math"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"sxsim/model"
)

// Action bounds of the environment. Stage counts are pinned to 4 and 5.
var (
	ActionMin = model.Action{NumStageExtract: 4, NumStageStrip: 5, OAExtract: 1, OAStrip: 1.5, TentativeBO: 0.005, TentativeDR: 0.008}
	ActionMax = model.Action{NumStageExtract: 4, NumStageStrip: 5, OAExtract: 2, OAStrip: 3.5, TentativeBO: 0.1, TentativeDR: 0.8}
)

// Clamp bounds every field of an action to [ActionMin, ActionMax].
func Clamp(a model.Action) model.Action {
	v, lo, hi := a.Vector(), ActionMin.Vector(), ActionMax.Vector()
	for i := range v {
		v[i] = math.Min(math.Max(v[i], lo[i]), hi[i])
	}
	return model.ActionFromVector(v)
}

// Step is the outcome of one environment step. Every episode is a single step.
type Step struct {
	Action   model.Action `json:"action"`
	Reward   float64      `json:"reward"`
	Feasible bool         `json:"feasible"`
	Trial    *Trial       `json:"trial,omitempty"`
	Done     bool         `json:"done"`
}

// Env adapts the simulator to a one-step episodic environment. It keeps its own
// best trial and is not safe for concurrent use.
type Env struct {
	sim   *Simulator
	ended bool
	steps int
	best  Best
}

func NewEnv(sim *Simulator) *Env {
	return &Env{sim: sim, best: NewBest()}
}

// Reset starts a new episode. The observation is a constant zero.
func (e *Env) Reset() float64 {
	e.ended = false
	return 0
}

// Step runs the clamped action and ends the episode. Stepping an ended episode
// resets it first.
func (e *Env) Step(a model.Action) (Step, error) {
	if e.ended {
		e.Reset()
	}
	a = Clamp(a)
	e.steps++
	e.ended = true

	res := Step{Action: a, Done: true}
	trial, err := e.sim.Run(ParamsFromAction(a))
	switch {
	case errors.Is(err, ErrInfeasible):
		res.Reward = InfeasibleReward
		log.WithField("step", e.steps).WithError(err).Debug("infeasible action")
		return res, nil
	case err != nil:
		return res, err
	}

	trial.Run = e.steps
	res.Trial, res.Reward, res.Feasible = trial, trial.Reward, true
	if prev := e.best; trial.Reward > prev.Reward {
		e.best = prev.Fold(trial)
		log.WithFields(log.Fields{
			"step":   e.steps,
			"reward": trial.Reward,
			"wasted": trial.Results.WastedUranium,
			"strip":  trial.Results.StripLiquorConcentration,
		}).Info("new best action")
	}
	return res, nil
}

func (e *Env) Best() Best { return e.best }

func (e *Env) Steps() int { return e.steps }
