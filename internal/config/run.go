package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/ridingcast/internal/census"
	"github.com/ridingcast/internal/classify"
	"github.com/ridingcast/internal/normalize"
	"github.com/ridingcast/internal/source"
)

// Environment variables that override the run file.
const (
	EnvSeed         = "RIDINGCAST_SEED"
	EnvTestFraction = "RIDINGCAST_TEST_FRACTION"
	EnvDBDriver     = "RIDINGCAST_DB_DRIVER"
	EnvDBDSN        = "RIDINGCAST_DB_DSN"
	EnvVerbose      = "RIDINGCAST_VERBOSE"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid run config")

// Run describes one training or prediction run.
type Run struct {
	Census    CensusSource   `yaml:"census"`
	Elections ElectionSource `yaml:"elections"`
	Prune     Prune          `yaml:"prune"`
	Train     Train          `yaml:"train"`
	Predict   Predict        `yaml:"predict"`
	Export    Export         `yaml:"export"`
	Serve     Serve          `yaml:"serve"`
}

type CensusSource struct {
	Path     string                  `yaml:"path"`
	Encoding string                  `yaml:"encoding"`
	GeoLevel string                  `yaml:"geo_level"`
	Columns  normalize.CensusColumns `yaml:"columns"`
}

// Year is one election: its per-candidate results and national totals.
type Year struct {
	Year     int    `yaml:"year"`
	Results  string `yaml:"results"`
	National string `yaml:"national"`
}

type ElectionSource struct {
	Encoding        string                    `yaml:"encoding"`
	Columns         normalize.ResultColumns   `yaml:"columns"`
	NationalColumns normalize.NationalColumns `yaml:"national_columns"`
	Years           []Year                    `yaml:"years"`
}

type Prune struct {
	ZeroThreshold float64 `yaml:"zero_threshold"`
	Missing       float64 `yaml:"missing"`
	Standardize   bool    `yaml:"standardize"`
}

type Train struct {
	TestFraction  float64  `yaml:"test_fraction"`
	Seed          int64    `yaml:"seed"`
	SelectorTrees int      `yaml:"selector_trees"`
	SelfPairing   bool     `yaml:"self_pairing"`
	Models        []string `yaml:"models"`
	Verbose       bool     `yaml:"verbose"`
}

type Predict struct {
	BaseYear         int                  `yaml:"base_year"`
	Polls            string               `yaml:"polls"`
	Weights          string               `yaml:"weights"`
	WeightColumns    source.WeightColumns `yaml:"weight_columns"`
	NormalizeWeights bool                 `yaml:"normalize_weights"`
}

type Export struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type Serve struct {
	Addr string `yaml:"addr"`
}

// Default returns a run with the stock column names and thresholds and no
// input files.
func Default() *Run {
	return &Run{
		Census: CensusSource{
			Encoding: source.EncodingLatin1,
			GeoLevel: "Federal electoral district",
			Columns:  normalize.DefaultCensusColumns(),
		},
		Elections: ElectionSource{
			Encoding:        source.EncodingUTF8,
			Columns:         normalize.DefaultResultColumns(),
			NationalColumns: normalize.DefaultNationalColumns(),
		},
		Prune: Prune{
			ZeroThreshold: census.DefaultZeroThreshold,
			Missing:       normalize.Missing,
			Standardize:   true,
		},
		Train: Train{
			TestFraction:  0.2,
			SelectorTrees: 10,
			SelfPairing:   true,
			Models:        classify.Names(),
		},
		Predict: Predict{
			WeightColumns: source.DefaultWeightColumns(),
		},
		Export: Export{
			Driver: "sqlite",
			DSN:    "ridingcast.db",
		},
		Serve: Serve{
			Addr: ":8080",
		},
	}
}

// Load reads a YAML run file over the defaults, applies environment
// overrides and validates the result. Relative paths in the file are
// resolved against the file's directory.
func Load(path string) (*Run, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run config: %w", err)
	}
	defer f.Close()

	run := Default()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(run); err != nil {
		return nil, fmt.Errorf("failed to parse run config %s: %w", path, err)
	}

	run.resolve(filepath.Dir(path))
	run.ApplyEnv()
	if err := run.Validate(); err != nil {
		return nil, err
	}
	return run, nil
}

// ApplyEnv overrides the seed, test fraction and export target from the
// environment.
func (r *Run) ApplyEnv() {
	r.Train.Seed = GetEnvInt64(EnvSeed, r.Train.Seed)
	r.Train.TestFraction = GetEnvFloat(EnvTestFraction, r.Train.TestFraction)
	r.Export.Driver = GetEnv(EnvDBDriver, r.Export.Driver)
	r.Export.DSN = GetEnv(EnvDBDSN, r.Export.DSN)
}

func (r *Run) resolve(dir string) {
	abs := func(p *string) {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
	abs(&r.Census.Path)
	for i := range r.Elections.Years {
		abs(&r.Elections.Years[i].Results)
		abs(&r.Elections.Years[i].National)
	}
	abs(&r.Predict.Polls)
	abs(&r.Predict.Weights)
}

// YearNumbers lists the configured election years in file order.
func (r *Run) YearNumbers() []int {
	out := make([]int, len(r.Elections.Years))
	for i, y := range r.Elections.Years {
		out[i] = y.Year
	}
	return out
}

// Validate checks ranges and cross-references. Input files are not opened.
func (r *Run) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
	}

	if r.Census.Path == "" {
		return invalid("census.path is required")
	}
	if r.Census.GeoLevel == "" {
		return invalid("census.geo_level is required")
	}
	if len(r.Elections.Years) == 0 {
		return invalid("at least one election year is required")
	}
	seen := make(map[int]bool)
	for _, y := range r.Elections.Years {
		if seen[y.Year] {
			return invalid("election year %d listed twice", y.Year)
		}
		seen[y.Year] = true
		if y.Results == "" || y.National == "" {
			return invalid("election year %d needs results and national files", y.Year)
		}
	}

	if r.Prune.ZeroThreshold < 0 || r.Prune.ZeroThreshold > 1 {
		return invalid("prune.zero_threshold %v outside [0, 1]", r.Prune.ZeroThreshold)
	}
	if r.Train.TestFraction <= 0 || r.Train.TestFraction >= 1 {
		return invalid("train.test_fraction %v outside (0, 1)", r.Train.TestFraction)
	}
	if r.Train.SelectorTrees < 1 {
		return invalid("train.selector_trees must be positive")
	}
	if len(r.Train.Models) == 0 {
		return invalid("train.models is empty")
	}
	for _, m := range r.Train.Models {
		if !slices.Contains(classify.Names(), m) {
			return invalid("unknown model %q (known: %v)", m, classify.Names())
		}
	}

	if r.Predict.Polls != "" && !seen[r.Predict.BaseYear] {
		return invalid("predict.base_year %d is not a configured election year", r.Predict.BaseYear)
	}

	switch r.Export.Driver {
	case "sqlite", "postgres":
	default:
		return invalid("export.driver %q must be sqlite or postgres", r.Export.Driver)
	}
	return nil
}
