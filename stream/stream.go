package stream

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Property names accepted by Stream.Property.
type Property string

const (
	MassFlowProperty       Property = "mass_flow"
	MolarFlowProperty      Property = "molar_flow"
	VolumeFlowProperty     Property = "volume_flow"
	MassFractionProperty   Property = "mass_fraction"
	MolarFractionProperty  Property = "molar_fraction"
	VolumeFractionProperty Property = "volume_fraction"
)

// Stream is a set of components flowing from one unit to another.
// Origin and Destination are only used to draw the flowsheet.
type Stream struct {
	Number      int
	Origin      string
	Destination string
	Recycle     bool

	components []*Component
	indices    map[string]int

	totalMass   float64
	totalMolar  float64
	totalVolume float64
}

// New takes ownership of the given components.
func New(number int, origin, destination string, components ...*Component) *Stream {
	s := &Stream{
		Number:      number,
		Origin:      origin,
		Destination: destination,
	}
	s.UpdateComponents(components)
	return s
}

// UpdateComponents replaces the component list. It is the only way a stream changes.
func (s *Stream) UpdateComponents(components []*Component) {
	sorted := make([]*Component, len(components))
	copy(sorted, components)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Name() < sorted[j].Name()
	})
	s.components = sorted
	s.indices = make(map[string]int, len(sorted))
	for i, c := range sorted {
		s.indices[c.Name()] = i
	}
	s.updateTotals()
}

func (s *Stream) updateTotals() {
	s.totalMass, s.totalMolar, s.totalVolume = 0, 0, 0
	for _, c := range s.components {
		s.totalMass += c.MassFlow()
		s.totalMolar += c.MolarFlow()
		if c.HasVolume() {
			s.totalVolume += c.VolumeFlow()
		}
	}
}

func (s *Stream) TotalMass() float64 { return s.totalMass }
func (s *Stream) TotalMolarFlow() float64 { return s.totalMolar }
func (s *Stream) TotalVolume() float64 { return s.totalVolume }

// Density is undefined for a stream without volume.
func (s *Stream) Density() (float64, bool) {
	if s.totalVolume == 0 {
		return 0, false
	}
	return s.totalMass / s.totalVolume, true
}

// Components returns copies of the components in name order.
func (s *Stream) Components() []*Component {
	res := make([]*Component, len(s.components))
	for i, c := range s.components {
		res[i] = c.Clone()
	}
	return res
}

// Index returns the position of a species in the sorted component list.
func (s *Stream) Index(name string) (int, bool) {
	i, ok := s.indices[name]
	return i, ok
}

func (s *Stream) Has(name string) bool {
	_, ok := s.indices[name]
	return ok
}

func (s *Stream) IsEmpty() bool {
	return len(s.components) == 0
}

// StateVector is [mass, molar, volume] per component in name order.
func (s *Stream) StateVector() [][3]float64 {
	res := make([][3]float64, len(s.components))
	for i, c := range s.components {
		res[i] = [3]float64{c.MassFlow(), c.MolarFlow(), c.VolumeFlow()}
	}
	return res
}

// Property looks up a flow or a fraction of the named species.
func (s *Stream) Property(name string, property Property) (float64, error) {
	idx, ok := s.indices[name]
	if !ok {
		return 0, errors.Wrapf(ErrNotFound, "component %s not found in stream %d", name, s.Number)
	}
	c := s.components[idx]

	switch property {
	case MassFlowProperty:
		return c.MassFlow(), nil
	case MolarFlowProperty:
		return c.MolarFlow(), nil
	case VolumeFlowProperty:
		return c.VolumeFlow(), nil
	case MassFractionProperty:
		if s.totalMass > 0 {
			return c.MassFlow() / s.totalMass, nil
		}
		return 0, nil
	case MolarFractionProperty:
		if s.totalMolar > 0 {
			return c.MolarFlow() / s.totalMolar, nil
		}
		return 0, nil
	case VolumeFractionProperty:
		if s.totalVolume > 0 && c.HasVolume() {
			return c.VolumeFlow() / s.totalVolume, nil
		}
		return 0, nil
	}
	return 0, errors.Wrapf(ErrInvalidProperty, "property %q is not a valid query", string(property))
}

// Concentration is the mass flow of a species per total volume flow, kg/m^3 (= g/L).
// A species missing from the stream has zero concentration.
func (s *Stream) Concentration(name string) float64 {
	idx, ok := s.indices[name]
	if !ok || s.totalVolume == 0 {
		return 0
	}
	return s.components[idx].MassFlow() / s.totalVolume
}

// Combine merges the components of several streams by species, summing mass flow.
// The result is a fresh component list owned by the caller.
func Combine(streams ...*Stream) []*Component {
	var (
		order  []string
		merged = make(map[string]*Component)
	)
	for _, s := range streams {
		for _, c := range s.components {
			acc, ok := merged[c.Name()]
			if !ok {
				merged[c.Name()] = c.Clone()
				order = append(order, c.Name())
				continue
			}
			acc.setMassFlow(acc.MassFlow() + c.MassFlow())
		}
	}

	res := make([]*Component, 0, len(order))
	for _, name := range order {
		res = append(res, merged[name])
	}
	return res
}

func (s *Stream) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Stream %d from %s to %s:", s.Number, s.Origin, s.Destination)
	for i, c := range s.components {
		fmt.Fprintf(&b, "\n%d: %s - Mass flow: %.6f kg/h, Molar flow: %.6f mol/h, Volume flow: %.6f m^3/h",
			i, c.Name(), c.MassFlow(), c.MolarFlow(), c.VolumeFlow())
	}
	return b.String()
}
