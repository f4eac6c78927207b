package mccabe_thiele

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"sxsim/model"
)

var ErrInfeasible = errors.New("infeasible staircase")

// Roots whose imaginary part is within this distance of zero count as real.
const imagTolerance = 1e-8

// Config describes one staircase.
//
// Inlet is the concentration of the rich boundary on the isotherm's input axis.
// Min is the lowest concentration the lean boundary can reach; nil disables the floor.
type Config struct {
	Isotherm      model.Polynomial
	OperatingLine model.Polynomial
	Inlet         float64
	NumStages     int
	Efficiency    float64
	Min           *float64
}

// Floor is a helper for Config.Min.
func Floor(v float64) *float64 {
	return &v
}

// McCabeThiele steps between the operating line and the isotherm.
// An infeasible configuration sets the error flag instead of failing the caller.
type McCabeThiele struct {
	cfg Config

	staircase      []model.Segment
	convergedEarly bool
	floorStage     int
	error          bool
	err            error
}

// New builds and solves the staircase.
func New(cfg Config) *McCabeThiele {
	m := &McCabeThiele{
		cfg:       cfg,
		staircase: make([]model.Segment, 0, 2*max(cfg.NumStages, 0)),
	}
	m.solve()
	return m
}

func (m *McCabeThiele) solve() {
	c := m.cfg
	if c.NumStages <= 0 {
		m.fail(errors.Wrapf(ErrInfeasible, "stage count %d must be positive", c.NumStages))
		return
	}
	if c.Efficiency <= 0 || c.Efficiency > 1 {
		m.fail(errors.Wrapf(ErrInfeasible, "stage efficiency %v outside (0, 1]", c.Efficiency))
		return
	}

	x := c.Inlet
	y := c.OperatingLine.Eval(x)
	if eq := c.Isotherm.Eval(x); y > eq {
		m.fail(errors.Wrapf(ErrInfeasible, "operating line %.6f above isotherm %.6f at inlet %.6f", y, eq, x))
		return
	}

	for stage := 1; stage <= c.NumStages; stage++ {
		root, err := m.equilibrium(y)
		if err != nil {
			m.fail(errors.WithMessagef(err, "stage %d", stage))
			return
		}
		xNew := x - (x-root)*c.Efficiency

		if c.Min != nil && xNew < *c.Min {
			if m.convergedEarly {
				m.fail(errors.Wrapf(ErrInfeasible, "floor %.6f crossed again at stage %d, first reached at stage %d",
					*c.Min, stage, m.floorStage))
				return
			}
			xNew = *c.Min
			m.convergedEarly = true
			m.floorStage = stage
		}

		yNext := c.OperatingLine.Eval(xNew)
		m.staircase = append(m.staircase,
			model.Segment{From: model.Coordinate{X: x, Y: y}, To: model.Coordinate{X: xNew, Y: y}},
			model.Segment{From: model.Coordinate{X: xNew, Y: y}, To: model.Coordinate{X: xNew, Y: yNext}},
		)
		log.WithFields(log.Fields{
			"stage": stage,
			"root":  root,
			"x":     xNew,
			"y":     yNext,
		}).Debug("stage solved")

		x, y = xNew, yNext
	}

	if c.Min != nil && !m.convergedEarly {
		m.fail(errors.Wrapf(ErrInfeasible, "floor %.6f not reached in %d stages, lean end at %.6f",
			*c.Min, c.NumStages, x))
	}
}

// equilibrium finds the isotherm input that gives y. Real roots above the inlet are
// discarded and the rest are scanned from the largest down.
func (m *McCabeThiele) equilibrium(y float64) (float64, error) {
	roots, err := m.cfg.Isotherm.Shift(-y).Roots()
	if err != nil {
		return 0, errors.Wrap(ErrInfeasible, err.Error())
	}

	candidates := make([]float64, 0, len(roots))
	for _, r := range roots {
		if math.Abs(imag(r)) > imagTolerance {
			continue
		}
		if real(r) <= m.cfg.Inlet {
			candidates = append(candidates, real(r))
		}
	}
	if len(candidates) == 0 {
		return 0, errors.Wrapf(ErrInfeasible, "no real equilibrium root below %.6f for y = %.6f", m.cfg.Inlet, y)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(candidates)))
	return candidates[0], nil
}

func (m *McCabeThiele) fail(err error) {
	m.error = true
	m.err = err
	log.WithError(err).Debug("staircase rejected")
}

// Error reports whether the configuration is infeasible.
func (m *McCabeThiele) Error() bool {
	return m.error
}

// Err gives the reason behind Error, nil when feasible.
func (m *McCabeThiele) Err() error {
	return m.err
}

// TopCoordinate is the end of the first segment, the rich boundary pair.
func (m *McCabeThiele) TopCoordinate() model.Coordinate {
	if len(m.staircase) == 0 {
		return model.Coordinate{}
	}
	return m.staircase[0].To
}

// BottomCoordinate is the end of the last segment, the lean boundary pair.
func (m *McCabeThiele) BottomCoordinate() model.Coordinate {
	if len(m.staircase) == 0 {
		return model.Coordinate{}
	}
	return m.staircase[len(m.staircase)-1].To
}

// FloorStage is the 1-based stage that reached the floor, 0 if none did.
func (m *McCabeThiele) FloorStage() int {
	return m.floorStage
}

func (m *McCabeThiele) Staircase() []model.Segment {
	res := make([]model.Segment, len(m.staircase))
	copy(res, m.staircase)
	return res
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
