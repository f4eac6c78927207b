package unit

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"sxsim/isotherm"
	"sxsim/mccabe_thiele"
	"sxsim/model"
	"sxsim/stream"
)

// ExtractionConfig sizes the extraction contactor bank.
//
// TentativeBO is the uranium left on the stripped organic entering the bank and
// TentativeDR the uranium target in the raffinate, both g/L.
type ExtractionConfig struct {
	Name        string
	Isotherm    *isotherm.Model
	NumStages   int
	Efficiency  float64
	OARatio     float64
	TentativeBO float64
	TentativeDR float64
	Organic     OrganicMakeup
}

// Extraction moves uranium from the acidic PLS into the organic phase.
//
// The stripped organic inlet is sized from the PLS volume and the O/A ratio. The
// outlets are only written when the staircase is feasible.
type Extraction struct {
	cfg ExtractionConfig

	pls             *stream.Stream
	strippedOrganic *stream.Stream
	loadedOrganic   *stream.Stream
	raffinate       *stream.Stream

	feedConcentration float64
	aqueousVolume     float64
	organicVolume     float64

	// seed is the loaded organic composition at the tentative concentration.
	seed []*stream.Component

	mcct *mccabe_thiele.McCabeThiele
}

// NewExtraction sizes the organic feed, solves the staircase and writes the outlets.
// An infeasible staircase is not an error: check Error on the returned unit.
func NewExtraction(cfg ExtractionConfig, pls, strippedOrganic, loadedOrganic, raffinate *stream.Stream) (*Extraction, error) {
	if cfg.Name == "" {
		cfg.Name = "Extraction"
	}
	if cfg.Organic == (OrganicMakeup{}) {
		cfg.Organic = DefaultOrganicMakeup()
	}
	if cfg.Isotherm == nil {
		return nil, errors.Wrapf(ErrConfiguration, "%s: no isotherm", cfg.Name)
	}
	if cfg.OARatio <= 0 {
		return nil, errors.Wrapf(ErrConfiguration, "%s: O/A ratio %v must be positive", cfg.Name, cfg.OARatio)
	}
	if cfg.TentativeBO < 0 || cfg.TentativeDR < 0 {
		return nil, errors.Wrapf(ErrConfiguration, "%s: negative boundary concentration BO=%v DR=%v",
			cfg.Name, cfg.TentativeBO, cfg.TentativeDR)
	}
	if !pls.Has(uranium.Name) {
		return nil, errors.Wrapf(ErrConfiguration, "%s: feed stream %d carries no %s", cfg.Name, pls.Number, uranium.Name)
	}
	if pls.TotalVolume() <= 0 {
		return nil, errors.Wrapf(ErrConfiguration, "%s: feed stream %d has no volume", cfg.Name, pls.Number)
	}

	e := &Extraction{
		cfg:               cfg,
		pls:               pls,
		strippedOrganic:   strippedOrganic,
		loadedOrganic:     loadedOrganic,
		raffinate:         raffinate,
		feedConcentration: pls.Concentration(uranium.Name),
		aqueousVolume:     pls.TotalVolume(),
	}
	e.organicVolume = cfg.OARatio * e.aqueousVolume

	if err := e.sizeOrganic(); err != nil {
		return nil, err
	}

	e.mcct = solve(cfg.Isotherm, mccabe_thiele.Config{
		OperatingLine: e.OperatingLine(),
		Inlet:         e.feedConcentration,
		NumStages:     cfg.NumStages,
		Efficiency:    cfg.Efficiency,
		Min:           mccabe_thiele.Floor(cfg.TentativeDR),
	})

	fields := log.Fields{
		"unit":      cfg.Name,
		"oa":        cfg.OARatio,
		"stages":    cfg.NumStages,
		"feed":      e.feedConcentration,
		"tentative": e.TentativeLoadedConcentration(),
	}
	if e.mcct.Error() {
		log.WithFields(fields).WithError(e.mcct.Err()).Debug("extraction infeasible")
		return e, nil
	}

	if err := e.writeOutlets(); err != nil {
		return nil, err
	}
	fields["loaded"] = e.LoadedOrgConcentration()
	log.WithFields(fields).Debug("extraction solved")
	return e, checkBalance(cfg.Name, e.inlets(), e.outlets())
}

// OperatingLine passes through (DR, BO) with slope 1/OA.
func (e *Extraction) OperatingLine() model.Polynomial {
	slope := 1 / e.cfg.OARatio
	return model.NewPolynomial(e.cfg.TentativeBO-e.cfg.TentativeDR*slope, slope)
}

func (e *Extraction) sizeOrganic() error {
	solvents, err := e.cfg.Organic.components(e.organicVolume)
	if err != nil {
		return errors.WithMessage(err, e.cfg.Name)
	}
	e.strippedOrganic.UpdateComponents(withUranium(solvents, e.cfg.TentativeBO*e.organicVolume))
	e.seed = withUranium(solvents, e.TentativeLoadedConcentration()*e.organicVolume)
	return nil
}

func (e *Extraction) writeOutlets() error {
	loadedU := e.LoadedOrgConcentration() * e.organicVolume
	raffinateU := uraniumMass(e.pls) + uraniumMass(e.strippedOrganic) - loadedU
	if raffinateU < 0 {
		return errors.Wrapf(ErrConfiguration, "%s: loaded organic takes %.4f kg/h more uranium than fed",
			e.cfg.Name, -raffinateU)
	}
	e.loadedOrganic.UpdateComponents(withUranium(e.seed, loadedU))
	e.raffinate.UpdateComponents(withUranium(e.pls.Components(), raffinateU))
	return nil
}

func (e *Extraction) inlets() []*stream.Stream  { return []*stream.Stream{e.pls, e.strippedOrganic} }
func (e *Extraction) outlets() []*stream.Stream { return []*stream.Stream{e.loadedOrganic, e.raffinate} }

func (e *Extraction) Name() string { return e.cfg.Name }

func (e *Extraction) Error() bool { return e.mcct.Error() }

// Err is the reason the staircase was rejected, nil when feasible.
func (e *Extraction) Err() error { return e.mcct.Err() }

// LoadedOrgConcentration is the organic uranium leaving the first stage, g/L.
func (e *Extraction) LoadedOrgConcentration() float64 {
	return e.mcct.TopCoordinate().Y
}

// StrippedOrgConcentration is the organic uranium at the lean end, g/L.
func (e *Extraction) StrippedOrgConcentration() float64 {
	return e.mcct.BottomCoordinate().Y
}

// TentativeLoadedConcentration is the loaded organic the operating line predicts
// for the feed, before any staircase is drawn.
func (e *Extraction) TentativeLoadedConcentration() float64 {
	return e.OperatingLine().Eval(e.feedConcentration)
}

// Seed is the loaded organic composition the solver starts from. The loaded
// organic outlet takes it over with the solved uranium in place of the estimate.
func (e *Extraction) Seed() *stream.Stream {
	seed := make([]*stream.Component, len(e.seed))
	for i, c := range e.seed {
		seed[i] = c.Clone()
	}
	return stream.New(e.loadedOrganic.Number, e.loadedOrganic.Origin, e.loadedOrganic.Destination, seed...)
}

func (e *Extraction) FeedConcentration() float64 { return e.feedConcentration }

// RaffinateConcentration is the uranium left in the raffinate, g/L.
func (e *Extraction) RaffinateConcentration() float64 {
	return e.raffinate.Concentration(uranium.Name)
}

// ExtractionPerStage is the average aqueous uranium drop per stage, g/L.
func (e *Extraction) ExtractionPerStage() float64 {
	if e.Error() {
		return 0
	}
	return (e.feedConcentration - e.RaffinateConcentration()) / float64(e.cfg.NumStages)
}

func (e *Extraction) Staircase() []model.Segment { return e.mcct.Staircase() }

func (e *Extraction) FloorStage() int { return e.mcct.FloorStage() }

func (e *Extraction) MassBalance() string {
	return balanceString(e.cfg.Name, !e.Error(), e.inlets(), e.outlets())
}

func (e *Extraction) OperatingConditions() map[string]float64 {
	return map[string]float64{
		"oa_ratio":       e.cfg.OARatio,
		"num_stages":     float64(e.cfg.NumStages),
		"efficiency":     e.cfg.Efficiency,
		"tentative_bo":   e.cfg.TentativeBO,
		"tentative_dr":   e.cfg.TentativeDR,
		"feed_conc":      e.feedConcentration,
		"aqueous_volume": e.aqueousVolume,
		"organic_volume": e.organicVolume,
	}
}

func (e *Extraction) PressureDrop() float64 { return 0 }
