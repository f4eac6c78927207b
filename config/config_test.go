package config

import (
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sxsim/simulator"
	"sxsim/stream"
	"sxsim/unit"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte(""))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 32, cfg.Server.HistorySize)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "U(aq)", cfg.ExtractionIsotherm.XLabel)
	assert.Equal(t, "U(org)", cfg.StrippingIsotherm.XLabel)
	assert.True(t, cfg.ExtractionIsotherm.ZeroIntercept)
	assert.False(t, cfg.StrippingIsotherm.ZeroIntercept)
	assert.Equal(t, 3.5, cfg.Run.OAStrip)
	assert.Equal(t, simulator.DefaultEfficiency, cfg.Extraction.Efficiency)
	assert.Equal(t, unit.DefaultStripAcidMolarity, cfg.Stripping.AcidMolarity)
	assert.Equal(t, unit.DefaultAcidMolarityTarget, cfg.Mixer.AcidMolarityTarget)
	assert.Equal(t, 4, cfg.Run.NumStageExtract)
	assert.Equal(t, 0.3, cfg.Run.TentativeDR)
	assert.Empty(t, cfg.Sweep.Grid)
	assert.Empty(t, cfg.Feed)

	feed, err := cfg.FeedComponents()
	require.NoError(t, err)
	assert.Len(t, feed, len(simulator.DefaultFeed()))
}

func TestParseOverrides(t *testing.T) {
	data := []byte(`
[run]
oa_extract = 1.5
num_stage_strip = 6

[mixer]
acid_molarity_target = 4.5

[feed]
Water = 1000
UO2_2p = 10
SO4(2-) = 30
`)
	cfg, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, 1.5, cfg.Run.OAExtract)
	assert.Equal(t, 6, cfg.Run.NumStageStrip)
	assert.Equal(t, 4.5, cfg.Mixer.AcidMolarityTarget)
	assert.Equal(t, []FeedEntry{{"Water", 1000}, {"UO2_2p", 10}, {"SO4(2-)", 30}}, cfg.Feed)

	feed, err := cfg.FeedComponents()
	require.NoError(t, err)
	require.Len(t, feed, 3)
	assert.Equal(t, stream.SO4_2m.Name, feed[2].Name())
	assert.Equal(t, 30.0, feed[2].MassFlow())
}

func TestFeedErrors(t *testing.T) {
	_, err := Parse([]byte("[feed]\nWater = lots\n"))
	assert.True(t, errors.Is(err, unit.ErrConfiguration))

	cfg, err := Parse([]byte("[feed]\nUnobtainium = 1\n"))
	require.NoError(t, err)
	_, err = cfg.FeedComponents()
	assert.True(t, errors.Is(err, stream.ErrNotFound))
}

func TestLoad(t *testing.T) {
	cfg, err := Load("../conf/config.ini")
	require.NoError(t, err)
	assert.Len(t, cfg.Feed, 9)
	assert.Equal(t, 4, cfg.Sweep.Workers)
	assert.Equal(t, "trials.yaml", cfg.Sweep.Output)

	missing, err := Load(filepath.Join(t.TempDir(), "missing.ini"))
	require.NoError(t, err)
	assert.Equal(t, ":9000", missing.Server.Addr)
}

func TestApplyLogging(t *testing.T) {
	level := log.GetLevel()
	defer log.SetLevel(level)

	cfg := Config{Log: LogConfig{Level: "warn"}}
	require.NoError(t, cfg.ApplyLogging())
	assert.Equal(t, log.WarnLevel, log.GetLevel())

	cfg.Log.Level = "chatty"
	assert.Error(t, cfg.ApplyLogging())
}

func TestNewSimulator(t *testing.T) {
	cfg, err := Load("../conf/config.ini")
	require.NoError(t, err)
	cfg.ExtractionIsotherm.Path = "../data/UeqExtractionData.csv"
	cfg.StrippingIsotherm.Path = "../data/UeqStrippingData.csv"

	sim, err := cfg.NewSimulator()
	require.NoError(t, err)
	trial, err := sim.Run(cfg.Run)
	require.NoError(t, err)
	assert.InDelta(t, 0.914, trial.Reward, 0.02)

	cfg.StrippingIsotherm.Path = "../data/missing.csv"
	_, err = cfg.NewSimulator()
	assert.Error(t, err)
}
