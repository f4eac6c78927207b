package stream

// Species carries the physical constants of one chemical species.
// Density is in kg/m^3 and must be zero for species without volume.
type Species struct {
	Name            string
	MolecularWeight float64 // g/mol
	HasVolume       bool
	Density         float64 // kg/m^3
}

// Mass returns a component of s with the given mass flow.
// It panics if s itself is inconsistent; use NewComponent for species built at runtime.
func (s Species) Mass(flow float64) *Component {
	return mustComponent(NewComponent(s, flow, Mass))
}

// Molar returns a component of s with the given molar flow.
func (s Species) Molar(flow float64) *Component {
	return mustComponent(NewComponent(s, flow, Molar))
}

// Volume returns a component of s with the given volume flow.
// Species without volume return ErrInvalidConfiguration.
func (s Species) Volume(flow float64) (*Component, error) {
	return NewComponent(s, flow, Volume)
}

func mustComponent(c *Component, err error) *Component {
	if err != nil {
		panic(err)
	}
	return c
}

// Species handled by the circuit.
var (
	Water       = Species{Name: "Water", MolecularWeight: 18.015, HasVolume: true, Density: 1000}
	H2SO4       = Species{Name: "H2SO4", MolecularWeight: 98.079, HasVolume: true, Density: 1830}
	Cyanex923   = Species{Name: "Cyanex923", MolecularWeight: 689.11, HasVolume: true, Density: 880}
	Isodecanol  = Species{Name: "Isodecanol", MolecularWeight: 158.28, HasVolume: true, Density: 840}
	ShellSolD70 = Species{Name: "ShellSolD70", MolecularWeight: 174, HasVolume: true, Density: 796}
	UO2SO4      = Species{Name: "UO2SO4", MolecularWeight: 366.09, HasVolume: true, Density: 3280}

	UO2_2p  = Species{Name: "UO2_2p", MolecularWeight: 270.03}
	SO4_2m  = Species{Name: "SO4(2-)", MolecularWeight: 96.06}
	H_1p    = Species{Name: "H(+)", MolecularWeight: 1.01}
	Mg      = Species{Name: "Mg", MolecularWeight: 24.305}
	Fe      = Species{Name: "Fe", MolecularWeight: 55.845}
	SiO2    = Species{Name: "SiO2", MolecularWeight: 60.08}
	Al2SiO5 = Species{Name: "Al2SiO5", MolecularWeight: 162.05}
	MN2_1p  = Species{Name: "MN2(+)", MolecularWeight: 109.88}
	Al_3p   = Species{Name: "Al(3+)", MolecularWeight: 26.98}
)

var catalog = map[string]Species{}

func init() {
	for _, s := range []Species{
		Water, H2SO4, Cyanex923, Isodecanol, ShellSolD70, UO2SO4,
		UO2_2p, SO4_2m, H_1p, Mg, Fe, SiO2, Al2SiO5, MN2_1p, Al_3p,
	} {
		catalog[s.Name] = s
	}
}

// Lookup finds a catalog species by name.
func Lookup(name string) (Species, bool) {
	s, ok := catalog[name]
	return s, ok
}
