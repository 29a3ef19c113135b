// Package sim estimates empirical stopping behavior by replaying many
// synthetic audits in which the reported tallies are the truth.
package sim

import (
	"context"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"

	"gorla/domain/core"
	"gorla/domain/election"
	"gorla/internal/audit"
	"gorla/internal/engine"
)

// Result aggregates the trials of one simulation.
type Result struct {
	Trials int `json:"trials"`
	// StoppedByRound counts trials whose first stop occurred at each
	// schedule index.
	StoppedByRound []int `json:"stopped_by_round"`
	// StopRate is the fraction of trials that stopped within the
	// schedule.
	StopRate float64 `json:"stop_rate"`
	// AvgBallots is the mean cumulative sample over all trials,
	// counting the full schedule for trials that never stopped.
	AvgBallots float64 `json:"avg_ballots"`
}

// Options configure a simulation run.
type Options struct {
	Trials  int
	Workers int
	Seed    int64
}

// Run simulates the given engine and cumulative round schedule against
// a world in which the announced tallies are correct, drawing samples
// with or without replacement as the engine requires.
func Run(ctx context.Context, pair election.Pairwise, tag engine.Tag, params engine.Params, schedule []int, opts Options) (Result, error) {
	if opts.Trials < 1 {
		return Result{}, core.NewInvalidParamsError("trials", "must be at least 1")
	}
	if len(schedule) < 1 {
		return Result{}, core.NewInvalidRoundError("round schedule must contain at least 1 round")
	}
	workers := opts.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	if workers > opts.Trials {
		workers = opts.Trials
	}

	type partial struct {
		stoppedByRound []int
		ballots        int64
	}

	g, ctx := errgroup.WithContext(ctx)
	parts := make([]partial, workers)
	for w := 0; w < workers; w++ {
		w := w
		lo := w * opts.Trials / workers
		hi := (w + 1) * opts.Trials / workers
		g.Go(func() error {
			rng := rand.New(rand.NewSource(opts.Seed + int64(w)))
			p := partial{stoppedByRound: make([]int, len(schedule))}
			for t := lo; t < hi; t++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				stopIdx, sampled, err := runTrial(pair, tag, params, schedule, rng)
				if err != nil {
					return err
				}
				if stopIdx >= 0 {
					p.stoppedByRound[stopIdx]++
				}
				p.ballots += int64(sampled)
			}
			parts[w] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	res := Result{Trials: opts.Trials, StoppedByRound: make([]int, len(schedule))}
	var ballots int64
	stopped := 0
	for _, p := range parts {
		for i, c := range p.stoppedByRound {
			res.StoppedByRound[i] += c
			stopped += c
		}
		ballots += p.ballots
	}
	res.StopRate = float64(stopped) / float64(opts.Trials)
	res.AvgBallots = float64(ballots) / float64(opts.Trials)
	return res, nil
}

// runTrial executes one synthetic audit. Returns the schedule index of
// the stopping round (-1 if none) and the cumulative ballots drawn.
func runTrial(pair election.Pairwise, tag engine.Tag, params engine.Params, schedule []int, rng *rand.Rand) (int, int, error) {
	eng, err := engine.New(tag, pair, params)
	if err != nil {
		return 0, 0, err
	}
	a, err := audit.New(pair, eng, 1.0)
	if err != nil {
		return 0, 0, err
	}

	share := pair.WinnerShare()
	remWinner := pair.WinnerBallots
	remTotal := pair.Pool
	kw, kl, prev := 0, 0, 0
	for i, n := range schedule {
		delta := n - prev
		for d := 0; d < delta; d++ {
			if eng.Replacement() {
				if rng.Float64() < share {
					kw++
				} else {
					kl++
				}
			} else {
				// Urn draw without replacement.
				if rng.Float64() < float64(remWinner)/float64(remTotal) {
					kw++
					remWinner--
				} else {
					kl++
				}
				remTotal--
			}
		}
		prev = n
		dec, err := a.ExecuteRound(n, kw, kl)
		if err != nil {
			return 0, 0, err
		}
		if dec.Stopped {
			return i, n, nil
		}
	}
	return -1, schedule[len(schedule)-1], nil
}
