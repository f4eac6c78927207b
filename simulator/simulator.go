package simulator

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"sxsim/isotherm"
	"sxsim/model"
	"sxsim/stream"
	"sxsim/unit"
)

// ErrInfeasible marks an operating point the staircase cannot realise. Sweeps skip it.
var ErrInfeasible = errors.New("infeasible operating point")

const DefaultEfficiency = 0.95

// Settings are shared by every run of a Simulator and never mutated by a run.
type Settings struct {
	// Feed is the leach liquor entering the acid mixer, cloned for each run.
	Feed []*stream.Component

	ExtractionIsotherm *isotherm.Model
	StrippingIsotherm  *isotherm.Model

	ExtractionEfficiency float64
	StrippingEfficiency  float64
	AcidMolarityTarget   float64
	StripAcidMolarity    float64
	Organic              unit.OrganicMakeup
}

// DefaultFeed is the leach overflow in kg/h, uranium as free uranyl.
func DefaultFeed() []*stream.Component {
	return []*stream.Component{
		stream.Water.Mass(1075.428),
		stream.H_1p.Mass(0.004993),
		stream.UO2_2p.Mass(12.2445),
		stream.SO4_2m.Mass(33.40968),
		stream.Fe.Mass(6.3524),
		stream.MN2_1p.Mass(1.063569),
		stream.Mg.Mass(3.262506),
		stream.SiO2.Mass(3.871035),
		stream.Al_3p.Mass(1.331062),
	}
}

// Simulator runs the mixer, extraction and stripping chain for one set of Params.
// It is safe for concurrent use: each run builds its streams in its own Arena.
type Simulator struct {
	settings Settings
}

func New(settings Settings) (*Simulator, error) {
	if settings.ExtractionIsotherm == nil || settings.StrippingIsotherm == nil {
		return nil, errors.Wrap(unit.ErrConfiguration, "simulator needs both isotherms")
	}
	if len(settings.Feed) == 0 {
		return nil, errors.Wrap(unit.ErrConfiguration, "simulator needs a feed")
	}
	if settings.ExtractionEfficiency == 0 {
		settings.ExtractionEfficiency = DefaultEfficiency
	}
	if settings.StrippingEfficiency == 0 {
		settings.StrippingEfficiency = DefaultEfficiency
	}
	return &Simulator{settings: settings}, nil
}

// Params is one operating point of the circuit.
type Params struct {
	NumStageExtract int     `json:"num_stage_extract" yaml:"num_stage_extract"`
	NumStageStrip   int     `json:"num_stage_strip" yaml:"num_stage_strip"`
	OAExtract       float64 `json:"oa_extract" yaml:"oa_extract"`
	OAStrip         float64 `json:"oa_strip" yaml:"oa_strip"`
	TentativeBO     float64 `json:"tentative_bo" yaml:"tentative_bo"`
	TentativeDR     float64 `json:"tentative_dr" yaml:"tentative_dr"`
}

// ParamsFromAction truncates the stage counts of an action.
func ParamsFromAction(a model.Action) Params {
	return Params{
		NumStageExtract: int(a.NumStageExtract),
		NumStageStrip:   int(a.NumStageStrip),
		OAExtract:       a.OAExtract,
		OAStrip:         a.OAStrip,
		TentativeBO:     a.TentativeBO,
		TentativeDR:     a.TentativeDR,
	}
}

type Results struct {
	// WastedUranium is the UO2SO4 lost with the raffinate, kg/h.
	WastedUranium            float64 `json:"wasted_uranium" yaml:"wasted_uranium"`
	StripLiquorConcentration float64 `json:"strip_liq_conc" yaml:"strip_liq_conc"`
	ExtractionPerStage       float64 `json:"extraction_per_stage" yaml:"extraction_per_stage"`
	StrippingPerStage        float64 `json:"stripping_per_stage" yaml:"stripping_per_stage"`
}

// Trial is the record of one feasible run.
type Trial struct {
	Run     int     `json:"run" yaml:"run"`
	Params  Params  `json:"params" yaml:"params"`
	Results Results `json:"results" yaml:"results"`
	Reward  float64 `json:"reward" yaml:"reward"`
}

// Circuit is everything one run built.
type Circuit struct {
	Params     Params
	Arena      *Arena
	Mixer      *unit.PLSMixer
	Extraction *unit.Extraction
	Stripping  *unit.Stripping

	Raffinate   *stream.Stream
	StripLiquor *stream.Stream
}

// Units lists the units built so far in flow order.
func (c *Circuit) Units() []unit.Unit {
	var res []unit.Unit
	if c.Mixer != nil {
		res = append(res, c.Mixer)
	}
	if c.Extraction != nil {
		res = append(res, c.Extraction)
	}
	if c.Stripping != nil {
		res = append(res, c.Stripping)
	}
	return res
}

// Build runs the chain and returns the circuit. An infeasible unit stops the chain
// and the partial circuit comes back with an error wrapping ErrInfeasible.
func (s *Simulator) Build(p Params) (*Circuit, error) {
	a := &Arena{}
	c := &Circuit{Params: p, Arena: a}

	feed := make([]*stream.Component, len(s.settings.Feed))
	for i, comp := range s.settings.Feed {
		feed[i] = comp.Clone()
	}
	overflow := a.Stream(1, "In", "PLSMixer", feed...)
	acid := a.Stream(2, "In", "PLSMixer")
	acidicPLS := a.Stream(3, "PLSMixer", "Extraction")
	loaded := a.Stream(4, "Extraction", "Stripping")
	barren := a.Stream(5, "Stripping", "Extraction")
	barren.Recycle = true
	c.Raffinate = a.Stream(6, "Extraction", "Out")
	diluteAcid := a.Stream(7, "In", "Stripping")
	c.StripLiquor = a.Stream(8, "Stripping", "Out")

	var err error
	c.Mixer, err = unit.NewPLSMixer(unit.PLSMixerConfig{
		AcidMolarityTarget: s.settings.AcidMolarityTarget,
	}, overflow, acid, acidicPLS)
	if err != nil {
		return c, err
	}

	c.Extraction, err = unit.NewExtraction(unit.ExtractionConfig{
		Isotherm:    s.settings.ExtractionIsotherm,
		NumStages:   p.NumStageExtract,
		Efficiency:  s.settings.ExtractionEfficiency,
		OARatio:     p.OAExtract,
		TentativeBO: p.TentativeBO,
		TentativeDR: p.TentativeDR,
		Organic:     s.settings.Organic,
	}, acidicPLS, barren, loaded, c.Raffinate)
	if err != nil {
		return c, err
	}
	if c.Extraction.Error() {
		return c, errors.Wrapf(ErrInfeasible, "extraction: %v", c.Extraction.Err())
	}

	c.Stripping, err = unit.NewStripping(unit.StrippingConfig{
		Isotherm:        s.settings.StrippingIsotherm,
		NumStages:       p.NumStageStrip,
		Efficiency:      s.settings.StrippingEfficiency,
		OARatio:         p.OAStrip,
		AcidMolarity:    s.settings.StripAcidMolarity,
		LoadedOrgConc:   c.Extraction.LoadedOrgConcentration(),
		StrippedOrgConc: c.Extraction.StrippedOrgConcentration(),
	}, loaded, diluteAcid, barren, c.StripLiquor)
	if err != nil {
		return c, err
	}
	if c.Stripping.Error() {
		return c, errors.Wrapf(ErrInfeasible, "stripping: %v", c.Stripping.Err())
	}
	return c, nil
}

// Run builds the circuit and reports its results. Infeasible points return an
// error wrapping ErrInfeasible; anything else is a defect to stop on.
func (s *Simulator) Run(p Params) (*Trial, error) {
	c, err := s.Build(p)
	if err != nil {
		return nil, err
	}
	return c.Trial()
}

// Trial reads the results off a fully built circuit.
func (c *Circuit) Trial() (*Trial, error) {
	if c.Extraction == nil || c.Stripping == nil || c.Extraction.Error() || c.Stripping.Error() {
		return nil, errors.Wrap(ErrInfeasible, "circuit not solved")
	}
	wasted, err := c.Raffinate.Property(stream.UO2SO4.Name, stream.MassFlowProperty)
	if err != nil {
		return nil, err
	}
	p := c.Params
	t := &Trial{
		Params: p,
		Results: Results{
			WastedUranium:            wasted,
			StripLiquorConcentration: c.Stripping.StripConcentration(),
			ExtractionPerStage:       c.Extraction.ExtractionPerStage(),
			StrippingPerStage:        c.Stripping.StrippingPerStage(),
		},
	}
	t.Reward = Reward(t.Results)

	log.WithFields(log.Fields{
		"params": p,
		"wasted": wasted,
		"strip":  t.Results.StripLiquorConcentration,
		"reward": t.Reward,
	}).Debug("run finished")
	return t, nil
}
