package isotherm

import (
	"math"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"sxsim/model"
)

// Options bound the candidate polynomial degrees.
// ZeroIntercept fixes the degree-0 coefficient at zero instead of fitting it.
type Options struct {
	MinDegree     int
	MaxDegree     int
	ZeroIntercept bool
}

func DefaultOptions() Options {
	return Options{MinDegree: 2, MaxDegree: 5}
}

// Model is a fitted equilibrium curve. It is immutable and safe to share between runs.
type Model struct {
	xLabel string
	yLabel string

	opts   Options
	degree int
	scores map[int]float64
	poly   model.Polynomial
}

// New loads a data file and fits it.
func New(path, xLabel, yLabel string, opts Options) (*Model, error) {
	t, err := Load(path, xLabel, yLabel)
	if err != nil {
		return nil, err
	}
	return Fit(t, opts)
}

// Fit picks the degree with the lowest leave-one-out MSE, scanning degrees in
// ascending order and keeping the first minimum, then refits on every row.
func Fit(t *Table, opts Options) (*Model, error) {
	if opts.MinDegree < 1 || opts.MinDegree > opts.MaxDegree {
		return nil, errors.Wrapf(ErrData, "invalid degree range [%d, %d]", opts.MinDegree, opts.MaxDegree)
	}
	if len(t.X) != len(t.Y) {
		return nil, errors.Wrapf(ErrData, "%d x values for %d y values", len(t.X), len(t.Y))
	}
	if t.Len() < opts.MaxDegree+1 {
		return nil, errors.Wrapf(ErrData, "%d rows cannot cross-validate degree %d, need at least %d",
			t.Len(), opts.MaxDegree, opts.MaxDegree+1)
	}

	m := &Model{
		xLabel: t.XLabel,
		yLabel: t.YLabel,
		opts:   opts,
		scores: make(map[int]float64, opts.MaxDegree-opts.MinDegree+1),
	}

	bestScore := math.Inf(1)
	for degree := opts.MinDegree; degree <= opts.MaxDegree; degree++ {
		score, err := looMSE(t.X, t.Y, degree, opts.ZeroIntercept)
		if err != nil {
			return nil, err
		}
		m.scores[degree] = score
		if score < bestScore {
			bestScore = score
			m.degree = degree
		}
	}
	if m.degree == 0 {
		return nil, errors.Wrap(ErrData, "no candidate degree produced a finite score")
	}

	poly, err := leastSquares(t.X, t.Y, m.degree, opts.ZeroIntercept)
	if err != nil {
		return nil, err
	}
	m.poly = poly

	log.WithFields(log.Fields{
		"x":      t.XLabel,
		"y":      t.YLabel,
		"rows":   t.Len(),
		"degree": m.degree,
		"mse":    bestScore,
	}).Debug("isotherm fitted")
	return m, nil
}

// looMSE holds out each row once and averages the squared prediction errors.
func looMSE(xs, ys []float64, degree int, zeroIntercept bool) (float64, error) {
	n := len(xs)
	trainX := make([]float64, 0, n-1)
	trainY := make([]float64, 0, n-1)

	sum := 0.0
	for i := 0; i < n; i++ {
		trainX, trainY = trainX[:0], trainY[:0]
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			trainX = append(trainX, xs[j])
			trainY = append(trainY, ys[j])
		}
		p, err := leastSquares(trainX, trainY, degree, zeroIntercept)
		if err != nil {
			return 0, err
		}
		d := p.Eval(xs[i]) - ys[i]
		sum += d * d
	}
	return sum / float64(n), nil
}

// leastSquares solves the Vandermonde system for the given degree. Underdetermined
// systems get the minimum-norm solution.
func leastSquares(xs, ys []float64, degree int, zeroIntercept bool) (model.Polynomial, error) {
	first := 0
	if zeroIntercept {
		first = 1
	}
	cols := degree - first + 1

	a := mat.NewDense(len(xs), cols, nil)
	for i, x := range xs {
		for j := 0; j < cols; j++ {
			a.Set(i, j, math.Pow(x, float64(first+j)))
		}
	}
	b := mat.NewVecDense(len(ys), append([]float64(nil), ys...))

	var coef mat.VecDense
	if err := coef.SolveVec(a, b); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
			return nil, errors.Wrapf(ErrData, "degree %d least squares: %v", degree, err)
		}
		log.WithField("degree", degree).Debugf("ill-conditioned fit: %v", err)
	}

	p := make(model.Polynomial, degree+1)
	for j := 0; j < cols; j++ {
		p[first+j] = coef.AtVec(j)
	}
	return p, nil
}

// CharacteristicPoly returns a copy of the fitted polynomial.
func (m *Model) CharacteristicPoly() model.Polynomial {
	return model.NewPolynomial(m.poly...)
}

func (m *Model) Predict(x float64) float64 {
	return m.poly.Eval(x)
}

func (m *Model) Degree() int { return m.degree }
func (m *Model) XLabel() string { return m.xLabel }
func (m *Model) YLabel() string { return m.yLabel }
func (m *Model) Options() Options { return m.opts }

// Scores returns the cross-validated MSE of every candidate degree.
func (m *Model) Scores() map[int]float64 {
	res := make(map[int]float64, len(m.scores))
	for k, v := range m.scores {
		res[k] = v
	}
	return res
}
