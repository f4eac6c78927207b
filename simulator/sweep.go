package simulator

import (
	"context"
	"io"
	"os"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// progressEvery is the number of finished runs between progress lines.
const progressEvery = 100

// Grid is the cartesian product of operating points a sweep visits.
type Grid struct {
	ExtractionStages []int     `yaml:"extraction_stages"`
	StrippingStages  []int     `yaml:"stripping_stages"`
	OAExtraction     []float64 `yaml:"oa_extraction"`
	OAStripping      []float64 `yaml:"oa_stripping"`
	TentativeBO      []float64 `yaml:"tentative_bo"`
	TentativeDR      []float64 `yaml:"tentative_dr"`
}

func DefaultGrid() Grid {
	return Grid{
		ExtractionStages: []int{4},
		StrippingStages:  []int{5},
		OAExtraction:     Linspace(1.2, 1.75, 7),
		OAStripping:      Linspace(2.0, 3.5, 7),
		TentativeBO:      Linspace(0.005, 0.008, 7),
		TentativeDR:      Linspace(0.1, 0.8, 7),
	}
}

// LoadGrid reads a grid from a YAML file. Missing keys keep the default axes.
func LoadGrid(path string) (Grid, error) {
	g := DefaultGrid()
	raw, err := os.ReadFile(path)
	if err != nil {
		return g, errors.WithMessagef(err, "read grid %s", path)
	}
	if err := yaml.Unmarshal(raw, &g); err != nil {
		return g, errors.Wrapf(err, "parse grid %s", path)
	}
	return g, nil
}

// Linspace returns n evenly spaced values from start to stop inclusive.
func Linspace(start, stop float64, n int) []float64 {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []float64{start}
	}
	step := (stop - start) / float64(n-1)
	res := make([]float64, n)
	for i := range res {
		res[i] = start + float64(i)*step
	}
	res[n-1] = stop
	return res
}

func (g Grid) Size() int {
	return len(g.ExtractionStages) * len(g.StrippingStages) * len(g.OAExtraction) *
		len(g.OAStripping) * len(g.TentativeBO) * len(g.TentativeDR)
}

// Params enumerates the grid with the tentative DR varying fastest. The run index
// of an operating point is its position plus one.
func (g Grid) Params() []Params {
	res := make([]Params, 0, g.Size())
	for _, ne := range g.ExtractionStages {
		for _, ns := range g.StrippingStages {
			for _, oae := range g.OAExtraction {
				for _, oas := range g.OAStripping {
					for _, bo := range g.TentativeBO {
						for _, dr := range g.TentativeDR {
							res = append(res, Params{
								NumStageExtract: ne,
								NumStageStrip:   ns,
								OAExtract:       oae,
								OAStrip:         oas,
								TentativeBO:     bo,
								TentativeDR:     dr,
							})
						}
					}
				}
			}
		}
	}
	return res
}

// Report is the outcome of a sweep. Trials holds feasible runs keyed by run index.
type Report struct {
	Total  int            `yaml:"total"`
	Trials map[int]*Trial `yaml:"trials"`
	Best   Best           `yaml:"best"`
}

// Feasible lists the run indices of feasible trials in ascending order.
func (r *Report) Feasible() []int {
	res := make([]int, 0, len(r.Trials))
	for run := range r.Trials {
		res = append(res, run)
	}
	sort.Ints(res)
	return res
}

// Sweep runs every point of the grid on at most workers goroutines. Infeasible
// points are skipped; any other error cancels the sweep.
func (s *Simulator) Sweep(ctx context.Context, g Grid, workers int) (*Report, error) {
	if workers <= 0 {
		workers = 1
	}
	params := g.Params()
	report := &Report{
		Total:  len(params),
		Trials: make(map[int]*Trial),
	}

	var (
		mu   sync.Mutex
		done int64
	)
	errGrp, dCtx := errgroup.WithContext(ctx)
	errGrp.SetLimit(workers)

	log.WithFields(log.Fields{
		"runs":    report.Total,
		"workers": workers,
	}).Info("sweep started")

	for i, p := range params {
		if dCtx.Err() != nil {
			break
		}
		run, p := i+1, p
		errGrp.Go(func() error {
			select {
			case <-dCtx.Done():
				return errors.Wrapf(dCtx.Err(), "run %d", run)
			default:
			}

			trial, err := s.Run(p)
			if n := atomic.AddInt64(&done, 1); n%progressEvery == 0 {
				log.WithField("done", n).Infof("%.2f%% complete", float64(n)/float64(report.Total)*100)
			}
			switch {
			case errors.Is(err, ErrInfeasible):
				return nil
			case err != nil:
				return errors.WithMessagef(err, "run %d %+v", run, p)
			}

			trial.Run = run
			mu.Lock()
			report.Trials[run] = trial
			mu.Unlock()
			return nil
		})
	}
	if err := errGrp.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report.Best = NewBest()
	for _, run := range report.Feasible() {
		report.Best = report.Best.Fold(report.Trials[run])
	}

	fields := log.Fields{"feasible": len(report.Trials), "runs": report.Total}
	if report.Best.Found() {
		fields["best_run"] = report.Best.Trial.Run
		fields["best_reward"] = report.Best.Reward
	}
	log.WithFields(fields).Info("sweep finished")
	return report, nil
}

// WriteReport encodes the report as YAML.
func WriteReport(w io.Writer, r *Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return errors.Wrap(err, "encode sweep report")
	}
	return enc.Close()
}
