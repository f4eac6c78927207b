package unit

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"sxsim/stream"
)

// 98 %w/w sulfuric acid.
const (
	ConcentratedAcidMolarity = 17.987  // mol/L
	ConcentratedAcidDensity  = 1800.12 // kg/m^3
	concentratedAcidPurity   = 0.98
)

const DefaultAcidMolarityTarget = 5.0

type PLSMixerConfig struct {
	Name string
	// AcidMolarityTarget is the H2SO4 molarity the acid dose is sized for, mol/L.
	AcidMolarityTarget float64
}

// PLSMixer doses concentrated acid into the leach liquor and complexes the free
// uranyl with sulfate.
type PLSMixer struct {
	cfg PLSMixerConfig

	pls       *stream.Stream
	acid      *stream.Stream
	acidicPLS *stream.Stream

	converted float64 // mol/h of uranyl turned into UO2SO4
	residual  float64 // mol/h of uranyl left for lack of sulfate
}

func NewPLSMixer(cfg PLSMixerConfig, pls, acid, acidicPLS *stream.Stream) (*PLSMixer, error) {
	if cfg.Name == "" {
		cfg.Name = "PLSMixer"
	}
	if cfg.AcidMolarityTarget == 0 {
		cfg.AcidMolarityTarget = DefaultAcidMolarityTarget
	}
	if cfg.AcidMolarityTarget < 0 || cfg.AcidMolarityTarget >= ConcentratedAcidMolarity {
		return nil, errors.Wrapf(ErrConfiguration, "%s: acid target %v mol/L must be in [0, %v)",
			cfg.Name, cfg.AcidMolarityTarget, ConcentratedAcidMolarity)
	}

	m := &PLSMixer{cfg: cfg, pls: pls, acid: acid, acidicPLS: acidicPLS}
	m.sizeAcid()
	if err := m.combine(); err != nil {
		return nil, err
	}
	return m, checkBalance(cfg.Name, m.inlets(), m.outlets())
}

// sizeAcid doses enough 98 % acid that the target molarity holds over the PLS volume
// after dilution by the acid itself.
func (m *PLSMixer) sizeAcid() {
	needed := m.pls.TotalVolume() * 1000 * m.cfg.AcidMolarityTarget // mol/h, m^3 to L
	liters := needed / (ConcentratedAcidMolarity - m.cfg.AcidMolarityTarget)
	mass := liters * ConcentratedAcidDensity / 1000

	m.acid.UpdateComponents([]*stream.Component{
		stream.H2SO4.Mass(mass * concentratedAcidPurity),
		stream.Water.Mass(mass * (1 - concentratedAcidPurity)),
	})
}

func (m *PLSMixer) combine() error {
	components := stream.Combine(m.acid, m.pls)
	index := make(map[string]*stream.Component, len(components))
	for _, c := range components {
		index[c.Name()] = c
	}

	uranyl, okU := index[stream.UO2_2p.Name]
	sulfate, okS := index[stream.SO4_2m.Name]
	if !okU || !okS {
		return errors.Wrapf(ErrConfiguration, "%s: inlets must carry both %s and %s",
			m.cfg.Name, stream.UO2_2p.Name, stream.SO4_2m.Name)
	}

	uMol, sMol := uranyl.MolarFlow(), sulfate.MolarFlow()
	if sMol < uMol {
		m.residual = uMol
		log.WithFields(log.Fields{
			"unit":    m.cfg.Name,
			"uranyl":  uMol,
			"sulfate": sMol,
		}).Warn("not enough sulfate to complex uranyl, leaving it unconverted")
		m.acidicPLS.UpdateComponents(components)
		return nil
	}

	m.converted = uMol
	if err := sulfate.SetFlow(sMol-uMol, stream.Molar); err != nil {
		return err
	}

	res := make([]*stream.Component, 0, len(components)+1)
	for _, c := range components {
		if c.Name() != uranyl.Name() {
			res = append(res, c)
		}
	}
	if existing, ok := index[uranium.Name]; ok {
		if err := existing.SetFlow(existing.MolarFlow()+uMol, stream.Molar); err != nil {
			return err
		}
	} else {
		res = append(res, uranium.Molar(uMol))
	}
	m.acidicPLS.UpdateComponents(res)
	return nil
}

func (m *PLSMixer) inlets() []*stream.Stream  { return []*stream.Stream{m.acid, m.pls} }
func (m *PLSMixer) outlets() []*stream.Stream { return []*stream.Stream{m.acidicPLS} }

func (m *PLSMixer) Name() string { return m.cfg.Name }

// Error is always false; a sulfate shortfall only leaves uranyl unconverted.
func (m *PLSMixer) Error() bool { return false }

// Converted is the uranyl turned into UO2SO4, mol/h.
func (m *PLSMixer) Converted() float64 { return m.converted }

// Residual is the uranyl left unconverted, mol/h.
func (m *PLSMixer) Residual() float64 { return m.residual }

func (m *PLSMixer) MassBalance() string {
	return balanceString(m.cfg.Name, true, m.inlets(), m.outlets())
}

func (m *PLSMixer) OperatingConditions() map[string]float64 {
	return map[string]float64{
		"acid_molarity_target": m.cfg.AcidMolarityTarget,
		"acid_mass":            m.acid.TotalMass(),
		"converted_uranyl":     m.converted,
		"residual_uranyl":      m.residual,
	}
}

func (m *PLSMixer) PressureDrop() float64 { return 0 }
