package unit

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sxsim/isotherm"
	"sxsim/stream"
)

// fitExact fits noiseless data through the origin so the polynomial is f itself.
func fitExact(t *testing.T, f func(float64) float64, degree int) *isotherm.Model {
	t.Helper()
	tbl := &isotherm.Table{XLabel: "x", YLabel: "y"}
	for i := 0; i <= 10; i++ {
		x := float64(i) * 2
		tbl.X = append(tbl.X, x)
		tbl.Y = append(tbl.Y, f(x))
	}
	m, err := isotherm.Fit(tbl, isotherm.Options{MinDegree: degree, MaxDegree: degree, ZeroIntercept: true})
	require.NoError(t, err)
	return m
}

// plsAt builds one cubic metre of water holding UO2SO4 at exactly conc g/L.
func plsAt(t *testing.T, conc float64) *stream.Stream {
	t.Helper()
	water, err := stream.Water.Volume(1)
	require.NoError(t, err)
	mass := conc / (1 - conc/stream.UO2SO4.Density)
	s := stream.New(1, "Mixer", "Extraction", water, stream.UO2SO4.Mass(mass))
	require.InDelta(t, conc, s.Concentration(stream.UO2SO4.Name), 1e-9)
	return s
}

func assertClosed(t *testing.T, in, out []*stream.Stream) {
	t.Helper()
	assert.Less(t, math.Abs(balance(in, out)), 1e-4)
}

// y = 2x against y = (x - 0.9) + 0.05:
// 15 -> 7.075 -> 3.1125 -> 1.13125 -> 0.140625, clamped to 0.9 on stage 4.
func extractionConfig(t *testing.T) ExtractionConfig {
	return ExtractionConfig{
		Isotherm:    fitExact(t, func(x float64) float64 { return 2 * x }, 1),
		NumStages:   4,
		Efficiency:  1,
		OARatio:     1,
		TentativeBO: 0.05,
		TentativeDR: 0.9,
	}
}

func TestExtractionReachesFloorOnLastStage(t *testing.T) {
	pls := plsAt(t, 15)
	lean, loaded, raffinate := stream.New(2, "", ""), stream.New(3, "", ""), stream.New(4, "", "")

	e, err := NewExtraction(extractionConfig(t), pls, lean, loaded, raffinate)
	require.NoError(t, err)
	require.False(t, e.Error(), "%v", e.Err())
	assert.Equal(t, 4, e.FloorStage())
	assert.Len(t, e.Staircase(), 8)

	assert.InDelta(t, 14.15, e.LoadedOrgConcentration(), 1e-9)
	assert.InDelta(t, 0.05, e.StrippedOrgConcentration(), 1e-9)
	assert.InDelta(t, 14.15, e.TentativeLoadedConcentration(), 1e-9)

	volume := pls.TotalVolume()
	u, err := loaded.Property(stream.UO2SO4.Name, stream.MassFlowProperty)
	require.NoError(t, err)
	assert.InDelta(t, 14.15*volume, u, 1e-9)
	u, err = raffinate.Property(stream.UO2SO4.Name, stream.MassFlowProperty)
	require.NoError(t, err)
	assert.InDelta(t, 0.9*volume, u, 1e-9)

	assert.InDelta(t, (15-e.RaffinateConcentration())/4, e.ExtractionPerStage(), 1e-12)
	assert.InDelta(t, 3.525, e.ExtractionPerStage(), 0.01)

	seed := e.Seed()
	require.Len(t, seed.Components(), len(loaded.Components()))
	for _, c := range seed.Components() {
		if c.Name() == stream.UO2SO4.Name {
			continue
		}
		v, err := loaded.Property(c.Name(), stream.VolumeFlowProperty)
		require.NoError(t, err)
		assert.InDelta(t, c.VolumeFlow(), v, 1e-12, c.Name())
	}

	assertClosed(t, []*stream.Stream{pls, lean}, []*stream.Stream{loaded, raffinate})
	assert.Equal(t, "Extraction Mass Balance : 0.0000", e.MassBalance())
	assert.Equal(t, 0.0, e.PressureDrop())
}

func TestExtractionSizesOrganic(t *testing.T) {
	pls := plsAt(t, 15)
	cfg := extractionConfig(t)
	cfg.OARatio = 1.5
	cfg.NumStages = 20 // infeasible, sizing still happens
	lean := stream.New(2, "", "")

	e, err := NewExtraction(cfg, pls, lean, stream.New(3, "", ""), stream.New(4, "", ""))
	require.NoError(t, err)

	solvents := 1.5 * pls.TotalVolume()
	for name, frac := range map[string]float64{
		stream.Cyanex923.Name:   0.10,
		stream.Isodecanol.Name:  0.05,
		stream.ShellSolD70.Name: 0.85,
	} {
		v, err := lean.Property(name, stream.VolumeFlowProperty)
		require.NoError(t, err)
		assert.InDelta(t, frac*solvents, v, 1e-12, name)
	}
	u, err := lean.Property(stream.UO2SO4.Name, stream.MassFlowProperty)
	require.NoError(t, err)
	assert.InDelta(t, 0.05*solvents, u, 1e-12)
	assert.Equal(t, 1.5, e.OperatingConditions()["oa_ratio"])
}

func TestExtractionInfeasibleLeavesOutletsUntouched(t *testing.T) {
	cfg := extractionConfig(t)
	cfg.OARatio = 0.4 // (15 - 0.9)/0.4 + 0.05 = 35.3 above 2*15

	loaded, raffinate := stream.New(3, "", ""), stream.New(4, "", "")
	e, err := NewExtraction(cfg, plsAt(t, 15), stream.New(2, "", ""), loaded, raffinate)
	require.NoError(t, err)

	assert.True(t, e.Error())
	assert.Empty(t, e.Staircase())
	assert.True(t, loaded.IsEmpty())
	assert.True(t, raffinate.IsEmpty())
	assert.Equal(t, 0.0, loaded.TotalMass())
	assert.Equal(t, 0.0, raffinate.TotalMass())
	assert.Equal(t, 0.0, e.ExtractionPerStage())
	assert.Equal(t, "Extraction Mass Balance : not solved", e.MassBalance())

	// The seed still carries the estimate the operating line gave.
	seed := e.Seed()
	assert.InDelta(t, 35.3, e.TentativeLoadedConcentration(), 1e-9)
	u, err := seed.Property(stream.UO2SO4.Name, stream.MassFlowProperty)
	require.NoError(t, err)
	assert.InDelta(t, 35.3*0.4*plsAt(t, 15).TotalVolume(), u, 1e-9)
}

func TestExtractionConfigurationErrors(t *testing.T) {
	water, err := stream.Water.Volume(1)
	require.NoError(t, err)

	tcs := map[string]struct {
		mutate func(*ExtractionConfig)
		pls    *stream.Stream
	}{
		"no isotherm":      {mutate: func(c *ExtractionConfig) { c.Isotherm = nil }, pls: plsAt(t, 15)},
		"zero oa":          {mutate: func(c *ExtractionConfig) { c.OARatio = 0 }, pls: plsAt(t, 15)},
		"negative dr":      {mutate: func(c *ExtractionConfig) { c.TentativeDR = -1 }, pls: plsAt(t, 15)},
		"no uranium":       {mutate: func(*ExtractionConfig) {}, pls: stream.New(1, "", "", water)},
		"bad organic make": {mutate: func(c *ExtractionConfig) { c.Organic = OrganicMakeup{Extractant: -1} }, pls: plsAt(t, 15)},
	}
	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			cfg := extractionConfig(t)
			tc.mutate(&cfg)
			_, err := NewExtraction(cfg, tc.pls, stream.New(2, "", ""), stream.New(3, "", ""), stream.New(4, "", ""))
			assert.True(t, errors.Is(err, ErrConfiguration), "%v", err)
		})
	}
}

func loadedOrganic(t *testing.T, volume, conc float64) *stream.Stream {
	t.Helper()
	solvents, err := DefaultOrganicMakeup().components(volume)
	require.NoError(t, err)
	return stream.New(3, "Extraction", "Stripping", withUranium(solvents, conc*volume)...)
}

// 18x + 0.4x^2 against 3x - 0.018 reaches 0.006 on the fifth stage at 95 % efficiency.
func strippingConfig(t *testing.T) StrippingConfig {
	return StrippingConfig{
		Isotherm:        fitExact(t, func(x float64) float64 { return 18*x + 0.4*x*x }, 2),
		NumStages:       5,
		Efficiency:      0.95,
		OARatio:         3,
		LoadedOrgConc:   6.18,
		StrippedOrgConc: 0.006,
	}
}

func TestStrippingBackComputesStrippedOrganic(t *testing.T) {
	loaded := loadedOrganic(t, 1.5, 6.18)
	agent, stripped, liquor := stream.New(5, "", ""), stream.New(2, "", ""), stream.New(6, "", "")

	s, err := NewStripping(strippingConfig(t), loaded, agent, stripped, liquor)
	require.NoError(t, err)
	require.False(t, s.Error(), "%v", s.Err())
	assert.Equal(t, 5, s.FloorStage())

	assert.InDelta(t, 3*6.18-3*0.006, s.StripConcentration(), 1e-9)
	stairs := s.Staircase()
	require.Len(t, stairs, 10)
	first, last := stairs[0].To.X, stairs[9].To.X
	assert.Equal(t, 0.006, last)
	assert.Less(t, first, 6.18)
	assert.InDelta(t, (first-last)/5, s.StrippingPerStage(), 1e-12)
	assert.InDelta(t, 0.251833, s.StrippingPerStage(), 1e-3)

	u, err := stripped.Property(stream.UO2SO4.Name, stream.MassFlowProperty)
	require.NoError(t, err)
	assert.InDelta(t, 0.006*1.5, u, 1e-9)
	assert.True(t, stripped.Has(stream.Cyanex923.Name))

	u, err = liquor.Property(stream.UO2SO4.Name, stream.MassFlowProperty)
	require.NoError(t, err)
	assert.InDelta(t, 6.18*1.5-0.006*1.5, u, 1e-9)

	assertClosed(t, []*stream.Stream{loaded, agent}, []*stream.Stream{stripped, liquor})
}

func TestStrippingKeepsSuppliedStrippedOrganic(t *testing.T) {
	loaded := loadedOrganic(t, 1.5, 6.18)
	stripped := loadedOrganic(t, 1.5, 0.01)
	agent, liquor := stream.New(5, "", ""), stream.New(6, "", "")

	_, err := NewStripping(strippingConfig(t), loaded, agent, stripped, liquor)
	require.NoError(t, err)

	u, err := liquor.Property(stream.UO2SO4.Name, stream.MassFlowProperty)
	require.NoError(t, err)
	assert.InDelta(t, (6.18-0.01)*1.5, u, 1e-9)
	assertClosed(t, []*stream.Stream{loaded, agent}, []*stream.Stream{stripped, liquor})
}

func TestStrippingAgentMolarity(t *testing.T) {
	agent := stream.New(5, "", "")
	_, err := NewStripping(strippingConfig(t), loadedOrganic(t, 1.5, 6.18), agent, stream.New(2, "", ""), stream.New(6, "", ""))
	require.NoError(t, err)

	assert.InDelta(t, 0.5, agent.TotalVolume(), 1e-12)
	mol, err := agent.Property(stream.H2SO4.Name, stream.MolarFlowProperty)
	require.NoError(t, err)
	// mol/h over m^3/h, per litre
	assert.InDelta(t, DefaultStripAcidMolarity, mol/agent.TotalVolume()/1000, 1e-9)
}

func TestStrippingInfeasible(t *testing.T) {
	cfg := strippingConfig(t)
	cfg.NumStages = 2
	stripped, liquor := stream.New(2, "", ""), stream.New(6, "", "")

	s, err := NewStripping(cfg, loadedOrganic(t, 1.5, 6.18), stream.New(5, "", ""), stripped, liquor)
	require.NoError(t, err)
	assert.True(t, s.Error())
	assert.True(t, stripped.IsEmpty())
	assert.True(t, liquor.IsEmpty())
	assert.Equal(t, "Stripping Mass Balance : not solved", s.MassBalance())
}

func TestStrippingConfigurationErrors(t *testing.T) {
	tcs := map[string]func(*StrippingConfig){
		"no isotherm":       func(c *StrippingConfig) { c.Isotherm = nil },
		"zero oa":           func(c *StrippingConfig) { c.OARatio = 0 },
		"negative floor":    func(c *StrippingConfig) { c.StrippedOrgConc = -0.1 },
		"impossible acid":   func(c *StrippingConfig) { c.AcidMolarity = 30 },
		"negative molarity": func(c *StrippingConfig) { c.AcidMolarity = -1 },
	}
	for name, mutate := range tcs {
		t.Run(name, func(t *testing.T) {
			cfg := strippingConfig(t)
			mutate(&cfg)
			_, err := NewStripping(cfg, loadedOrganic(t, 1.5, 6.18), stream.New(5, "", ""), stream.New(2, "", ""), stream.New(6, "", ""))
			assert.True(t, errors.Is(err, ErrConfiguration), "%v", err)
		})
	}

	_, err := NewStripping(strippingConfig(t), stream.New(3, "", ""), stream.New(5, "", ""), stream.New(2, "", ""), stream.New(6, "", ""))
	assert.True(t, errors.Is(err, ErrConfiguration))
}

func rawPLS(t *testing.T, uranyl, sulfate float64) *stream.Stream {
	t.Helper()
	water, err := stream.Water.Volume(1)
	require.NoError(t, err)
	return stream.New(0, "Leach", "Mixer",
		water,
		stream.UO2_2p.Molar(uranyl),
		stream.SO4_2m.Molar(sulfate),
		stream.Fe.Mass(0.5),
	)
}

func molar(t *testing.T, s *stream.Stream, name string) float64 {
	t.Helper()
	v, err := s.Property(name, stream.MolarFlowProperty)
	require.NoError(t, err)
	return v
}

func TestPLSMixerConvertsUranyl(t *testing.T) {
	pls, acid, out := rawPLS(t, 10, 30), stream.New(7, "", ""), stream.New(1, "", "")

	m, err := NewPLSMixer(PLSMixerConfig{}, pls, acid, out)
	require.NoError(t, err)
	assert.False(t, m.Error())

	assert.False(t, out.Has(stream.UO2_2p.Name))
	assert.InDelta(t, 10, molar(t, out, stream.UO2SO4.Name), 1e-9)
	assert.InDelta(t, 20, molar(t, out, stream.SO4_2m.Name), 1e-9)
	assert.Equal(t, 10.0, m.Converted())
	assert.Equal(t, 0.0, m.Residual())
	assert.True(t, out.Has(stream.Fe.Name))

	assertClosed(t, []*stream.Stream{pls, acid}, []*stream.Stream{out})
	assert.Equal(t, "PLSMixer Mass Balance : 0.0000", m.MassBalance())
}

func TestPLSMixerSizesAcid(t *testing.T) {
	pls, acid := rawPLS(t, 10, 30), stream.New(7, "", "")
	_, err := NewPLSMixer(PLSMixerConfig{AcidMolarityTarget: 5}, pls, acid, stream.New(1, "", ""))
	require.NoError(t, err)

	mass := pls.TotalVolume() * 1000 * 5 / (ConcentratedAcidMolarity - 5) * ConcentratedAcidDensity / 1000
	assert.InDelta(t, mass, acid.TotalMass(), 1e-9)
	h2so4, err := acid.Property(stream.H2SO4.Name, stream.MassFractionProperty)
	require.NoError(t, err)
	assert.InDelta(t, 0.98, h2so4, 1e-12)
}

func TestPLSMixerSulfateShortfall(t *testing.T) {
	pls, acid, out := rawPLS(t, 30, 10), stream.New(7, "", ""), stream.New(1, "", "")

	m, err := NewPLSMixer(PLSMixerConfig{}, pls, acid, out)
	require.NoError(t, err)
	assert.False(t, m.Error())

	assert.InDelta(t, 30, molar(t, out, stream.UO2_2p.Name), 1e-9)
	assert.InDelta(t, 10, molar(t, out, stream.SO4_2m.Name), 1e-9)
	assert.False(t, out.Has(stream.UO2SO4.Name))
	assert.Equal(t, 30.0, m.Residual())
	assertClosed(t, []*stream.Stream{pls, acid}, []*stream.Stream{out})
}

func TestPLSMixerAddsToExistingComplex(t *testing.T) {
	pls := rawPLS(t, 10, 30)
	pls.UpdateComponents(append(pls.Components(), stream.UO2SO4.Molar(2)))
	out := stream.New(1, "", "")

	_, err := NewPLSMixer(PLSMixerConfig{}, pls, stream.New(7, "", ""), out)
	require.NoError(t, err)
	assert.InDelta(t, 12, molar(t, out, stream.UO2SO4.Name), 1e-9)
}

func TestPLSMixerMissingSpecies(t *testing.T) {
	water, err := stream.Water.Volume(1)
	require.NoError(t, err)

	tcs := map[string]*stream.Stream{
		"no sulfate": stream.New(0, "", "", water.Clone(), stream.UO2_2p.Molar(1)),
		"no uranyl":  stream.New(0, "", "", water.Clone(), stream.SO4_2m.Molar(1)),
	}
	for name, pls := range tcs {
		t.Run(name, func(t *testing.T) {
			_, err := NewPLSMixer(PLSMixerConfig{}, pls, stream.New(7, "", ""), stream.New(1, "", ""))
			assert.True(t, errors.Is(err, ErrConfiguration))
		})
	}

	_, err = NewPLSMixer(PLSMixerConfig{AcidMolarityTarget: 18}, rawPLS(t, 1, 1), stream.New(7, "", ""), stream.New(1, "", ""))
	assert.True(t, errors.Is(err, ErrConfiguration))
}
