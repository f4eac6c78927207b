package unit

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"sxsim/isotherm"
	"sxsim/mccabe_thiele"
	"sxsim/stream"
)

var (
	ErrConfiguration = errors.New("unit configuration error")
	ErrMassBalance   = errors.New("mass balance failed")
)

// Unit is the contract shared by every unit operation of the circuit.
type Unit interface {
	Name() string
	// MassBalance reports inlet minus outlet mass as text.
	MassBalance() string
	// Error reports an infeasible configuration. Outlets are not set when true.
	Error() bool
	OperatingConditions() map[string]float64
	// PressureDrop is not modelled and is always zero.
	PressureDrop() float64
}

var (
	_ Unit = (*Extraction)(nil)
	_ Unit = (*Stripping)(nil)
	_ Unit = (*PLSMixer)(nil)
)

// NotSolved replaces the residual of a unit whose outlets were never written.
const NotSolved = "not solved"

// uranium is the lumped uranium species carried through extraction and stripping.
var uranium = stream.UO2SO4

// Organic phase make-up by volume.
type OrganicMakeup struct {
	Extractant float64 // Cyanex923
	Modifier   float64 // Isodecanol
	Diluent    float64 // ShellSolD70
}

func DefaultOrganicMakeup() OrganicMakeup {
	return OrganicMakeup{Extractant: 0.10, Modifier: 0.05, Diluent: 0.85}
}

func (o OrganicMakeup) components(volume float64) ([]*stream.Component, error) {
	total := o.Extractant + o.Modifier + o.Diluent
	if total <= 0 || o.Extractant < 0 || o.Modifier < 0 || o.Diluent < 0 {
		return nil, errors.Wrapf(ErrConfiguration, "organic make-up %+v", o)
	}
	res := make([]*stream.Component, 0, 3)
	for _, part := range []struct {
		species stream.Species
		frac    float64
	}{
		{stream.Cyanex923, o.Extractant},
		{stream.Isodecanol, o.Modifier},
		{stream.ShellSolD70, o.Diluent},
	} {
		c, err := part.species.Volume(volume * part.frac / total)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, nil
}

// withUranium copies components, dropping any uranium, then appends uranium of the given mass.
func withUranium(components []*stream.Component, mass float64) []*stream.Component {
	res := make([]*stream.Component, 0, len(components)+1)
	for _, c := range components {
		if c.Name() == uranium.Name {
			continue
		}
		res = append(res, c.Clone())
	}
	return append(res, uranium.Mass(mass))
}

// uraniumMass is zero when the stream carries no uranium.
func uraniumMass(s *stream.Stream) float64 {
	m, err := s.Property(uranium.Name, stream.MassFlowProperty)
	if err != nil {
		return 0
	}
	return m
}

func balance(in, out []*stream.Stream) float64 {
	res := 0.0
	for _, s := range in {
		res += s.TotalMass()
	}
	for _, s := range out {
		res -= s.TotalMass()
	}
	return res
}

func round4(v float64) float64 {
	r := math.Round(v*1e4) / 1e4
	if r == 0 {
		return 0 // no "-0.0000"
	}
	return r
}

func checkBalance(name string, in, out []*stream.Stream) error {
	if r := round4(balance(in, out)); r != 0 {
		return errors.Wrapf(ErrMassBalance, "%s: residual %.4f kg/h", name, r)
	}
	return nil
}

// balanceString reports the residual. A unit whose staircase was rejected never
// wrote its outlets, so it has no balance to report.
func balanceString(name string, solved bool, in, out []*stream.Stream) string {
	if !solved {
		return fmt.Sprintf("%s Mass Balance : %s", name, NotSolved)
	}
	return fmt.Sprintf("%s Mass Balance : %.4f", name, round4(balance(in, out)))
}

func solve(iso *isotherm.Model, cfg mccabe_thiele.Config) *mccabe_thiele.McCabeThiele {
	cfg.Isotherm = iso.CharacteristicPoly()
	return mccabe_thiele.New(cfg)
}

// solventVolume is the organic volume without the uranium it carries.
func solventVolume(s *stream.Stream) float64 {
	v, err := s.Property(uranium.Name, stream.VolumeFlowProperty)
	if err != nil {
		return s.TotalVolume()
	}
	return s.TotalVolume() - v
}
