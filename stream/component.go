package stream

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrInvalidConfiguration = errors.New("invalid component configuration")
	ErrNotFound             = errors.New("component not found")
	ErrInvalidProperty      = errors.New("invalid property")
)

// FlowKind selects which representation of a flow is being set.
type FlowKind int

const (
	Mass FlowKind = iota
	Molar
	Volume
)

func (k FlowKind) String() string {
	switch k {
	case Mass:
		return "mass"
	case Molar:
		return "molar"
	case Volume:
		return "volume"
	}
	return fmt.Sprintf("FlowKind(%d)", int(k))
}

// Component is the flow of one species.
//
//	mass flow   kg/h
//	molar flow  mol/h
//	volume flow m^3/h
type Component struct {
	species Species

	massFlow   float64
	molarFlow  float64
	volumeFlow float64
}

// NewComponent validates the species and sets its initial flow.
func NewComponent(species Species, flow float64, kind FlowKind) (*Component, error) {
	if species.MolecularWeight <= 0 {
		return nil, errors.Wrapf(ErrInvalidConfiguration, "component %s: molecular weight must be positive", species.Name)
	}
	if species.HasVolume && species.Density <= 0 {
		return nil, errors.Wrapf(ErrInvalidConfiguration, "component %s: a component with volume needs a density", species.Name)
	}
	if !species.HasVolume && species.Density != 0 {
		return nil, errors.Wrapf(ErrInvalidConfiguration, "component %s: a component without volume cannot have a density", species.Name)
	}
	c := &Component{species: species}
	if err := c.SetFlow(flow, kind); err != nil {
		return nil, err
	}
	return c, nil
}

// SetFlow sets one representation and recomputes the other two.
func (c *Component) SetFlow(value float64, kind FlowKind) error {
	switch kind {
	case Mass:
		c.setMassFlow(value)
	case Molar:
		c.setMolarFlow(value)
	case Volume:
		if !c.species.HasVolume {
			return errors.Wrapf(ErrInvalidConfiguration, "component %s: volume flow cannot be set for a component without volume", c.species.Name)
		}
		c.setVolumeFlow(value)
	default:
		return errors.Wrapf(ErrInvalidConfiguration, "component %s: unknown flow kind %v", c.species.Name, kind)
	}
	return nil
}

func (c *Component) setMassFlow(mass float64) {
	c.massFlow = mass
	c.molarFlow = mass / c.species.MolecularWeight * 1000
	c.volumeFlow = c.volumeOf(mass)
}

func (c *Component) setMolarFlow(molar float64) {
	c.molarFlow = molar
	c.massFlow = molar * c.species.MolecularWeight / 1000
	c.volumeFlow = c.volumeOf(c.massFlow)
}

func (c *Component) setVolumeFlow(volume float64) {
	c.volumeFlow = volume
	c.massFlow = volume * c.species.Density
	c.molarFlow = c.massFlow / c.species.MolecularWeight * 1000
}

func (c *Component) volumeOf(mass float64) float64 {
	if !c.species.HasVolume {
		return 0
	}
	return mass / c.species.Density
}

func (c *Component) Name() string { return c.species.Name }
func (c *Component) Species() Species { return c.species }
func (c *Component) HasVolume() bool { return c.species.HasVolume }
func (c *Component) MassFlow() float64 { return c.massFlow }
func (c *Component) MolarFlow() float64 { return c.molarFlow }
func (c *Component) VolumeFlow() float64 {
	return c.volumeFlow
}

// Clone returns an independent copy; streams never share component instances.
func (c *Component) Clone() *Component {
	cp := *c
	return &cp
}

func (c *Component) String() string {
	return fmt.Sprintf("Component %s\n\tMass Flow: %v kg/h\n\tMolar Flow: %v mol/h\n\tVolumetric Flow: %v m^3/h",
		c.species.Name, c.massFlow, c.molarFlow, c.volumeFlow)
}
