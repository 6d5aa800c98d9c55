// Package pipeline wires the loaders, merger and model harness into the
// train and predict runs driven by a run config.
package pipeline

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/ridingcast/internal/census"
	"github.com/ridingcast/internal/config"
	"github.com/ridingcast/internal/debug"
	"github.com/ridingcast/internal/election"
	"github.com/ridingcast/internal/frame"
	"github.com/ridingcast/internal/normalize"
	"github.com/ridingcast/internal/party"
	"github.com/ridingcast/internal/source"
)

// Pipeline runs the stages configured by a run file.
type Pipeline struct {
	run        *config.Run
	localDebug bool
}

// NewPipeline creates a pipeline for a validated run config.
func NewPipeline(run *config.Run, localDebug bool) *Pipeline {
	return &Pipeline{run: run, localDebug: localDebug}
}

// Sources are the normalized inputs of a run.
type Sources struct {
	Census    *frame.Frame      // pruned, and standardized when configured
	Features  map[string]string // census column to characteristic name
	Districts map[string]string // district id to name
	Dropped   []string
	Scaler    *census.Scaler
	Results   map[int]*frame.Frame
	National  map[int]party.Shares
}

// Load reads and normalizes the census and every configured election year.
func (p *Pipeline) Load() (*Sources, error) {
	debug.DebugHeader(p.localDebug)
	defer debug.DebugFooter(p.localDebug)

	src := &Sources{
		Results:  make(map[int]*frame.Frame),
		National: make(map[int]party.Shares),
	}
	debug.Step("Load run inputs", "years", p.run.YearNumbers())
	if err := p.loadCensus(src); err != nil {
		return nil, err
	}
	for _, y := range p.run.Elections.Years {
		if err := p.loadYear(src, y); err != nil {
			return nil, err
		}
	}
	return src, nil
}

// LoadCensus reads and prunes only the census.
func (p *Pipeline) LoadCensus() (*Sources, error) {
	src := &Sources{}
	if err := p.loadCensus(src); err != nil {
		return nil, err
	}
	return src, nil
}

func (p *Pipeline) loadCensus(src *Sources) error {
	done := debug.DebugTiming(p.localDebug, "census load")
	defer done()

	cfg := p.run.Census
	debug.Step("Load census data", "path", cfg.Path, "geo_level", cfg.GeoLevel)
	n := normalize.NewCensusNormalizer(cfg.Columns, cfg.GeoLevel, p.localDebug)
	if err := source.Each(cfg.Path, source.Options{Encoding: cfg.Encoding}, n.Add); err != nil {
		return fmt.Errorf("failed to load census: %w", err)
	}
	ds := n.Finalize()
	if n.Stats.Coerced > 0 {
		debug.Warn("census values could not be parsed", "count", n.Stats.Coerced)
	}
	debug.Step("Census records loaded", "districts", len(ds.Records), "characteristics", len(ds.Characteristics), "stats", n.Stats.String())

	f := ds.ToFrame()
	pruned, dropped := census.Prune(f, p.run.Prune.ZeroThreshold, p.run.Prune.Missing)
	debug.Step("Prune census characteristics", "dropped", len(dropped), "kept", len(pruned.Columns))
	src.Dropped = dropped
	src.Districts = ds.Names()
	src.Features = make(map[string]string, len(pruned.Columns))
	for _, col := range pruned.Columns {
		if id, err := strconv.Atoi(col); err == nil {
			src.Features[col] = ds.Characteristics[id]
		}
	}

	if p.run.Prune.Standardize {
		scaled, scaler, err := census.Standardize(pruned)
		if err != nil {
			return fmt.Errorf("failed to standardize census: %w", err)
		}
		src.Census, src.Scaler = scaled, scaler
		return nil
	}

	// without imputation any gap would reach the models as NaN
	sparse := columnsWithNaN(pruned)
	if len(sparse) > 0 {
		debug.Warn("dropping census columns with gaps", "count", len(sparse))
		pruned = pruned.Drop(sparse)
		src.Dropped = append(src.Dropped, sparse...)
	}
	src.Census = pruned
	return nil
}

func (p *Pipeline) loadYear(src *Sources, y config.Year) error {
	cfg := p.run.Elections
	opts := source.Options{Encoding: cfg.Encoding}

	debug.Step("Load election results", "year", y.Year)
	rows, err := source.ReadCSV(y.Results, opts)
	if err != nil {
		return fmt.Errorf("failed to load %d results: %w", y.Year, err)
	}
	results, stats, err := normalize.NormalizeResults(rows, cfg.Columns)
	if err != nil {
		return fmt.Errorf("failed to normalize %d results: %w", y.Year, err)
	}
	debug.DebugOutput(p.localDebug, "%d results: %d districts, %s", y.Year, len(results), stats)
	if stats.Coerced > 0 {
		debug.Warn("vote percentages could not be parsed", "year", y.Year, "count", stats.Coerced)
	}
	if winners := election.Winners(results); len(winners) < len(results) {
		debug.Warn("districts without a winner", "year", y.Year, "count", len(results)-len(winners))
	}
	src.Results[y.Year] = election.ToFrame(results)

	rows, err = source.ReadCSV(y.National, opts)
	if err != nil {
		return fmt.Errorf("failed to load %d national totals: %w", y.Year, err)
	}
	national, _, err := normalize.NormalizeNational(rows, cfg.NationalColumns)
	if err != nil {
		return fmt.Errorf("failed to normalize %d national totals: %w", y.Year, err)
	}
	if err := national.Validate(0.02); err != nil {
		debug.Warn("national totals do not sum to one", "year", y.Year, "err", err)
	}
	src.National[y.Year] = national
	return nil
}

func columnsWithNaN(f *frame.Frame) []string {
	var out []string
	for j, col := range f.Columns {
		for _, row := range f.Data {
			if math.IsNaN(row[j]) {
				out = append(out, col)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}
