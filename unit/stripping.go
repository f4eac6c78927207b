package unit

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"sxsim/isotherm"
	"sxsim/mccabe_thiele"
	"sxsim/model"
	"sxsim/stream"
)

const DefaultStripAcidMolarity = 0.2

// StrippingConfig sizes the stripping contactor bank.
//
// LoadedOrgConc and StrippedOrgConc are the organic uranium at the rich and lean
// ends, g/L, normally taken from the extraction result.
type StrippingConfig struct {
	Name            string
	Isotherm        *isotherm.Model
	NumStages       int
	Efficiency      float64
	OARatio         float64
	AcidMolarity    float64
	LoadedOrgConc   float64
	StrippedOrgConc float64
}

// Stripping moves uranium from the loaded organic into a dilute sulfuric acid.
type Stripping struct {
	cfg StrippingConfig

	loadedOrganic   *stream.Stream
	strippingAgent  *stream.Stream
	strippedOrganic *stream.Stream
	stripLiquor     *stream.Stream

	organicVolume float64
	agentVolume   float64

	mcct *mccabe_thiele.McCabeThiele
}

// NewStripping sizes the stripping agent, solves the staircase and writes the strip
// liquor. An empty stripped organic stream is rebuilt from the lean end of the staircase.
func NewStripping(cfg StrippingConfig, loadedOrganic, strippingAgent, strippedOrganic, stripLiquor *stream.Stream) (*Stripping, error) {
	if cfg.Name == "" {
		cfg.Name = "Stripping"
	}
	if cfg.AcidMolarity == 0 {
		cfg.AcidMolarity = DefaultStripAcidMolarity
	}
	if cfg.Isotherm == nil {
		return nil, errors.Wrapf(ErrConfiguration, "%s: no isotherm", cfg.Name)
	}
	if cfg.OARatio <= 0 {
		return nil, errors.Wrapf(ErrConfiguration, "%s: O/A ratio %v must be positive", cfg.Name, cfg.OARatio)
	}
	if cfg.StrippedOrgConc < 0 {
		return nil, errors.Wrapf(ErrConfiguration, "%s: negative stripped organic concentration %v",
			cfg.Name, cfg.StrippedOrgConc)
	}
	if loadedOrganic.TotalVolume() <= 0 {
		return nil, errors.Wrapf(ErrConfiguration, "%s: loaded organic stream %d has no volume",
			cfg.Name, loadedOrganic.Number)
	}

	s := &Stripping{
		cfg:             cfg,
		loadedOrganic:   loadedOrganic,
		strippingAgent:  strippingAgent,
		strippedOrganic: strippedOrganic,
		stripLiquor:     stripLiquor,
		organicVolume:   solventVolume(loadedOrganic),
	}
	s.agentVolume = s.organicVolume / cfg.OARatio

	if err := s.sizeAgent(); err != nil {
		return nil, err
	}

	s.mcct = solve(cfg.Isotherm, mccabe_thiele.Config{
		OperatingLine: s.OperatingLine(),
		Inlet:         cfg.LoadedOrgConc,
		NumStages:     cfg.NumStages,
		Efficiency:    cfg.Efficiency,
		Min:           mccabe_thiele.Floor(cfg.StrippedOrgConc),
	})

	fields := log.Fields{
		"unit":   cfg.Name,
		"oa":     cfg.OARatio,
		"stages": cfg.NumStages,
		"loaded": cfg.LoadedOrgConc,
	}
	if s.mcct.Error() {
		log.WithFields(fields).WithError(s.mcct.Err()).Debug("stripping infeasible")
		return s, nil
	}

	if err := s.writeOutlets(); err != nil {
		return nil, err
	}
	fields["strip"] = s.StripConcentration()
	log.WithFields(fields).Debug("stripping solved")
	return s, checkBalance(cfg.Name, s.inlets(), s.outlets())
}

// OperatingLine passes through (s, 0) with slope O/A.
func (s *Stripping) OperatingLine() model.Polynomial {
	return model.NewPolynomial(-s.cfg.OARatio*s.cfg.StrippedOrgConc, s.cfg.OARatio)
}

// sizeAgent makes up the acid by volume so that it holds AcidMolarity mol/L of H2SO4.
func (s *Stripping) sizeAgent() error {
	// mol/L * g/mol / (kg/m^3 = g/L) is the acid volume fraction.
	frac := s.cfg.AcidMolarity * stream.H2SO4.MolecularWeight / stream.H2SO4.Density
	if s.cfg.AcidMolarity < 0 || frac > 1 {
		return errors.Wrapf(ErrConfiguration, "%s: acid molarity %v out of range", s.cfg.Name, s.cfg.AcidMolarity)
	}
	acid, err := stream.H2SO4.Volume(frac * s.agentVolume)
	if err != nil {
		return err
	}
	water, err := stream.Water.Volume((1 - frac) * s.agentVolume)
	if err != nil {
		return err
	}
	s.strippingAgent.UpdateComponents([]*stream.Component{water, acid})
	return nil
}

func (s *Stripping) writeOutlets() error {
	if s.strippedOrganic.IsEmpty() {
		leanU := s.mcct.BottomCoordinate().X * s.organicVolume
		s.strippedOrganic.UpdateComponents(withUranium(s.loadedOrganic.Components(), leanU))
	}

	liquorU := uraniumMass(s.loadedOrganic) - uraniumMass(s.strippedOrganic)
	if liquorU < 0 {
		return errors.Wrapf(ErrConfiguration, "%s: stripped organic carries %.4f kg/h more uranium than loaded organic",
			s.cfg.Name, -liquorU)
	}
	s.stripLiquor.UpdateComponents(withUranium(s.strippingAgent.Components(), liquorU))
	return nil
}

func (s *Stripping) inlets() []*stream.Stream {
	return []*stream.Stream{s.loadedOrganic, s.strippingAgent}
}

func (s *Stripping) outlets() []*stream.Stream {
	return []*stream.Stream{s.strippedOrganic, s.stripLiquor}
}

func (s *Stripping) Name() string { return s.cfg.Name }

func (s *Stripping) Error() bool { return s.mcct.Error() }

func (s *Stripping) Err() error { return s.mcct.Err() }

// StripConcentration is the aqueous uranium of the strip liquor, g/L.
func (s *Stripping) StripConcentration() float64 {
	return s.mcct.TopCoordinate().Y
}

// StrippingPerStage is the organic uranium drop from the first stage outlet to the
// last, averaged over the stage count, g/L.
func (s *Stripping) StrippingPerStage() float64 {
	if s.Error() {
		return 0
	}
	top, bottom := s.mcct.TopCoordinate(), s.mcct.BottomCoordinate()
	return (top.X - bottom.X) / float64(s.cfg.NumStages)
}

func (s *Stripping) Staircase() []model.Segment { return s.mcct.Staircase() }

func (s *Stripping) FloorStage() int { return s.mcct.FloorStage() }

func (s *Stripping) MassBalance() string {
	return balanceString(s.cfg.Name, !s.Error(), s.inlets(), s.outlets())
}

func (s *Stripping) OperatingConditions() map[string]float64 {
	return map[string]float64{
		"oa_ratio":       s.cfg.OARatio,
		"num_stages":     float64(s.cfg.NumStages),
		"efficiency":     s.cfg.Efficiency,
		"acid_molarity":  s.cfg.AcidMolarity,
		"loaded_conc":    s.cfg.LoadedOrgConc,
		"stripped_conc":  s.cfg.StrippedOrgConc,
		"organic_volume": s.organicVolume,
		"agent_volume":   s.agentVolume,
	}
}

func (s *Stripping) PressureDrop() float64 { return 0 }
