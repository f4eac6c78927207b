package config

import (
	"os"
	"runtime"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"

	"sxsim/isotherm"
	"sxsim/simulator"
	"sxsim/stream"
	"sxsim/unit"
)

const DefaultPath = "conf/config.ini"

type Config struct {
	Server ServerConfig
	Log    LogConfig

	// Feed is the leach overflow entering the mixer, species name to kg/h.
	Feed []FeedEntry

	ExtractionIsotherm IsothermConfig
	StrippingIsotherm  IsothermConfig

	Extraction ExtractionConfig
	Stripping  StrippingConfig
	Mixer      MixerConfig

	Run   simulator.Params
	Sweep SweepConfig
}

type ServerConfig struct {
	Addr        string
	HistorySize int
}

type LogConfig struct {
	Level string
}

type FeedEntry struct {
	Species string
	Flow    float64
}

type IsothermConfig struct {
	Path          string
	XLabel        string
	YLabel        string
	MinDegree     int
	MaxDegree     int
	ZeroIntercept bool
}

type ExtractionConfig struct {
	Efficiency float64
	Extractant float64
	Modifier   float64
	Diluent    float64
}

type StrippingConfig struct {
	Efficiency   float64
	AcidMolarity float64
}

type MixerConfig struct {
	AcidMolarityTarget float64
}

type SweepConfig struct {
	Workers int
	// Grid is an optional YAML grid file; empty means the default grid.
	Grid   string
	Output string
}

// Load reads an ini file. A missing file yields the defaults.
func Load(path string) (Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		if !os.IsNotExist(errors.Cause(err)) {
			return Config{}, errors.Wrapf(err, "load config %s", path)
		}
		log.WithField("path", path).Warn("config file not found, using defaults")
		file = ini.Empty()
	}
	return loadCfg(file)
}

// Parse reads ini content from memory.
func Parse(data []byte) (Config, error) {
	file, err := ini.Load(data)
	if err != nil {
		return Config{}, errors.Wrap(err, "parse config")
	}
	return loadCfg(file)
}

func loadCfg(file *ini.File) (Config, error) {
	makeup := unit.DefaultOrganicMakeup()
	cfg := Config{
		Server: ServerConfig{
			Addr:        file.Section("server").Key("addr").MustString(":9000"),
			HistorySize: file.Section("server").Key("history_size").MustInt(32),
		},
		Log: LogConfig{
			Level: file.Section("log").Key("level").MustString("info"),
		},
		ExtractionIsotherm: loadIsotherm(file.Section("isotherm.extraction"),
			"data/UeqExtractionData.csv", "U(aq)", "U(org)", true),
		StrippingIsotherm: loadIsotherm(file.Section("isotherm.stripping"),
			"data/UeqStrippingData.csv", "U(org)", "U(aq)", false),
		Extraction: ExtractionConfig{
			Efficiency: file.Section("extraction").Key("efficiency").MustFloat64(simulator.DefaultEfficiency),
			Extractant: file.Section("extraction").Key("extractant").MustFloat64(makeup.Extractant),
			Modifier:   file.Section("extraction").Key("modifier").MustFloat64(makeup.Modifier),
			Diluent:    file.Section("extraction").Key("diluent").MustFloat64(makeup.Diluent),
		},
		Stripping: StrippingConfig{
			Efficiency:   file.Section("stripping").Key("efficiency").MustFloat64(simulator.DefaultEfficiency),
			AcidMolarity: file.Section("stripping").Key("acid_molarity").MustFloat64(unit.DefaultStripAcidMolarity),
		},
		Mixer: MixerConfig{
			AcidMolarityTarget: file.Section("mixer").Key("acid_molarity_target").MustFloat64(unit.DefaultAcidMolarityTarget),
		},
		Run: simulator.Params{
			NumStageExtract: file.Section("run").Key("num_stage_extract").MustInt(4),
			NumStageStrip:   file.Section("run").Key("num_stage_strip").MustInt(5),
			OAExtract:       file.Section("run").Key("oa_extract").MustFloat64(1.75),
			OAStrip:         file.Section("run").Key("oa_strip").MustFloat64(3.5),
			TentativeBO:     file.Section("run").Key("tentative_bo").MustFloat64(0.006),
			TentativeDR:     file.Section("run").Key("tentative_dr").MustFloat64(0.3),
		},
		Sweep: SweepConfig{
			Workers: file.Section("sweep").Key("workers").MustInt(runtime.NumCPU()),
			Grid:    file.Section("sweep").Key("grid").String(),
			Output:  file.Section("sweep").Key("output").MustString("trials.yaml"),
		},
	}

	feed := file.Section("feed")
	for _, key := range feed.Keys() {
		flow, err := key.Float64()
		if err != nil {
			return cfg, errors.Wrapf(unit.ErrConfiguration, "feed %s: %v", key.Name(), err)
		}
		cfg.Feed = append(cfg.Feed, FeedEntry{Species: key.Name(), Flow: flow})
	}
	return cfg, nil
}

// Only the extraction curve is forced through the origin by default; the stripping
// curve keeps a fitted intercept.
func loadIsotherm(section *ini.Section, path, x, y string, zeroIntercept bool) IsothermConfig {
	return IsothermConfig{
		Path:          section.Key("path").MustString(path),
		XLabel:        section.Key("x").MustString(x),
		YLabel:        section.Key("y").MustString(y),
		MinDegree:     section.Key("min_degree").MustInt(2),
		MaxDegree:     section.Key("max_degree").MustInt(5),
		ZeroIntercept: section.Key("zero_intercept").MustBool(zeroIntercept),
	}
}

// ApplyLogging sets the logrus level.
func (c Config) ApplyLogging() error {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return errors.Wrapf(err, "log level %q", c.Log.Level)
	}
	log.SetLevel(level)
	return nil
}

// FeedComponents resolves the configured feed against the species catalog.
// An empty feed section gives the default overflow.
func (c Config) FeedComponents() ([]*stream.Component, error) {
	if len(c.Feed) == 0 {
		return simulator.DefaultFeed(), nil
	}
	res := make([]*stream.Component, 0, len(c.Feed))
	for _, f := range c.Feed {
		species, ok := stream.Lookup(f.Species)
		if !ok {
			return nil, errors.Wrapf(stream.ErrNotFound, "feed species %s", f.Species)
		}
		comp, err := stream.NewComponent(species, f.Flow, stream.Mass)
		if err != nil {
			return nil, err
		}
		res = append(res, comp)
	}
	return res, nil
}

func (ic IsothermConfig) Fit() (*isotherm.Model, error) {
	return isotherm.New(ic.Path, ic.XLabel, ic.YLabel, isotherm.Options{
		MinDegree:     ic.MinDegree,
		MaxDegree:     ic.MaxDegree,
		ZeroIntercept: ic.ZeroIntercept,
	})
}

// NewSimulator fits both isotherms and builds the simulator.
func (c Config) NewSimulator() (*simulator.Simulator, error) {
	feed, err := c.FeedComponents()
	if err != nil {
		return nil, err
	}
	ext, err := c.ExtractionIsotherm.Fit()
	if err != nil {
		return nil, errors.WithMessage(err, "extraction isotherm")
	}
	strip, err := c.StrippingIsotherm.Fit()
	if err != nil {
		return nil, errors.WithMessage(err, "stripping isotherm")
	}

	log.WithFields(log.Fields{
		"extraction_degree": ext.Degree(),
		"extraction_poly":   ext.CharacteristicPoly().String(),
		"stripping_degree":  strip.Degree(),
		"stripping_poly":    strip.CharacteristicPoly().String(),
	}).Info("isotherms fitted")

	return simulator.New(simulator.Settings{
		Feed:                 feed,
		ExtractionIsotherm:   ext,
		StrippingIsotherm:    strip,
		ExtractionEfficiency: c.Extraction.Efficiency,
		StrippingEfficiency:  c.Stripping.Efficiency,
		AcidMolarityTarget:   c.Mixer.AcidMolarityTarget,
		StripAcidMolarity:    c.Stripping.AcidMolarity,
		Organic: unit.OrganicMakeup{
			Extractant: c.Extraction.Extractant,
			Modifier:   c.Extraction.Modifier,
			Diluent:    c.Extraction.Diluent,
		},
	})
}
