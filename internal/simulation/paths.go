package simulation

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/alitto/pond"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat/distuv"

	"portfolio-montecarlo/internal/domain"
)

// progressLogEvery is the trial interval between progress log lines.
const progressLogEvery = 10

// generator fills an ensemble with simulated portfolio trajectories.
// Each trial draws from its own PCG stream keyed by (seed, trial), so the
// ensemble is identical for a given seed regardless of worker count.
type generator struct {
	params   []domain.ReturnParameters
	weights  []float64
	horizon  int
	seed     uint64
	logger   *zap.Logger
	progress ProgressFunc

	mu   sync.Mutex
	done int
}

// generate runs every trial into ens. Workers > 1 fan trials out over a pond pool.
func (g *generator) generate(ctx context.Context, ens *domain.Ensemble, workers int) error {
	total := ens.TrialCount()
	if workers <= 1 || total <= 1 {
		for i := 0; i < total; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			g.simulateTrial(i, ens.Trials[i])
			g.markDone(total)
		}
		return ctx.Err()
	}

	pool := pond.New(workers, total, pond.MinWorkers(1))
	for i := 0; i < total; i++ {
		if ctx.Err() != nil {
			break
		}
		trial := i
		pool.Submit(func() {
			if ctx.Err() != nil {
				return
			}
			g.simulateTrial(trial, ens.Trials[trial])
			g.markDone(total)
		})
	}
	pool.StopAndWait()

	return ctx.Err()
}

// simulateTrial writes one cumulative-return trajectory of horizon+1 values into out.
// Asset prices follow p[t] = p[t-1] * (1 + N(mean, stddev)) starting at the last close.
// The portfolio return of day t is the weighted sum of per-asset simple returns;
// day 0 has no prior price and counts as a zero return.
func (g *generator) simulateTrial(trial int, out []float64) {
	src := rand.NewPCG(g.seed, uint64(trial))

	paths := make([][]float64, len(g.params))
	for s, p := range g.params {
		dist := distuv.Normal{Mu: p.Mean, Sigma: p.StdDev, Src: src}
		path := make([]float64, g.horizon+1)
		path[0] = p.LastClose
		for t := 1; t <= g.horizon; t++ {
			path[t] = path[t-1] * (1 + dist.Rand())
		}
		paths[s] = path
	}

	out[0] = 1
	for t := 1; t <= g.horizon; t++ {
		r := 0.0
		for s, path := range paths {
			r += g.weights[s] * (path[t]/path[t-1] - 1)
		}
		out[t] = out[t-1] * (1 + r)
	}
}

func (g *generator) markDone(total int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.done++
	if g.done%progressLogEvery == 0 || g.done == total {
		g.logger.Debug("simulation progress",
			zap.Int("done", g.done),
			zap.Int("total", total),
		)
	}
	if g.progress != nil {
		g.progress(g.done, total)
	}
}
