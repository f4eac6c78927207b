package model

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Polynomial stores coefficients in ascending order: c[0] + c[1]*x + c[2]*x^2 + ...
type Polynomial []float64

func NewPolynomial(coef ...float64) Polynomial {
	p := make(Polynomial, len(coef))
	copy(p, coef)
	return p
}

// Degree ignores trailing zero coefficients. The zero polynomial has degree 0.
func (p Polynomial) Degree() int {
	return len(p.trim()) - 1
}

func (p Polynomial) trim() Polynomial {
	n := len(p)
	for n > 1 && p[n-1] == 0 {
		n--
	}
	if n == 0 {
		return Polynomial{0}
	}
	return p[:n]
}

// Eval uses Horner's scheme.
func (p Polynomial) Eval(x float64) float64 {
	res := 0.0
	for i := len(p) - 1; i >= 0; i-- {
		res = res*x + p[i]
	}
	return res
}

// Shift returns p(x) + c.
func (p Polynomial) Shift(c float64) Polynomial {
	q := NewPolynomial(p...)
	if len(q) == 0 {
		q = Polynomial{0}
	}
	q[0] += c
	return q
}

// Roots returns every complex root of p. Degree 0 polynomials have none.
// Roots of degree >= 2 are the eigenvalues of the companion matrix.
func (p Polynomial) Roots() ([]complex128, error) {
	c := p.trim()
	n := len(c) - 1
	switch n {
	case 0:
		return nil, nil
	case 1:
		return []complex128{complex(-c[0]/c[1], 0)}, nil
	}

	companion := mat.NewDense(n, n, nil)
	for i := 1; i < n; i++ {
		companion.Set(i, i-1, 1)
	}
	for i := 0; i < n; i++ {
		companion.Set(i, n-1, -c[i]/c[n])
	}

	var eig mat.Eigen
	if ok := eig.Factorize(companion, mat.EigenNone); !ok {
		return nil, errors.Errorf("eigen decomposition of degree %d companion matrix did not converge", n)
	}
	return eig.Values(nil), nil
}

func (p Polynomial) String() string {
	terms := make([]string, 0, len(p))
	for i, c := range p {
		switch i {
		case 0:
			terms = append(terms, fmt.Sprintf("%g", c))
		case 1:
			terms = append(terms, fmt.Sprintf("%g·x", c))
		default:
			terms = append(terms, fmt.Sprintf("%g·x^%d", c, i))
		}
	}
	return strings.Join(terms, " + ")
}
