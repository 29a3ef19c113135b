package engine

import (
	"math"

	"gorla/domain/core"
	"gorla/domain/election"
	"gorla/internal/dist"
)

// bravo implements the sequential BRAVO test. The running log likelihood
// ratio of an exchangeable sample depends only on the cumulative winner
// count, so the cumulative (n, k) pair determines the statistic.
type bravo struct {
	pair  election.Pairwise
	alpha float64
	// logWin and logLose are the per-ballot increments
	// log(pa/p0) and log((1-pa)/(1-p0)).
	logWin  float64
	logLose float64
	pa      float64
	cache   memo
}

func newBRAVO(pair election.Pairwise, alpha float64) *bravo {
	pa := pair.WinnerShare()
	p0 := pair.TiedShare()
	return &bravo{
		pair:    pair,
		alpha:   alpha,
		logWin:  math.Log(pa / p0),
		logLose: math.Log((1 - pa) / (1 - p0)),
		pa:      pa,
		cache:   newMemo(),
	}
}

func (e *bravo) Tag() Tag          { return TagBRAVO }
func (e *bravo) Alpha() float64    { return e.alpha }
func (e *bravo) Replacement() bool { return true }

func (e *bravo) MinSampleSize() int {
	// An all-winner sample of n ballots accumulates n*logWin.
	return int(math.Ceil(math.Log(1/e.alpha) / e.logWin))
}

// LLR returns the running log likelihood ratio at cumulative (n, k).
func (e *bravo) LLR(n, k int) float64 {
	return float64(k)*e.logWin + float64(n-k)*e.logLose
}

func (e *bravo) PValue(n, k int) (float64, error) {
	if n < 1 {
		return 0, core.NewInvalidRoundError("sample size must be at least 1")
	}
	if k < 0 || k > n {
		return 0, core.NewInvalidRoundError("winner count must be within the sample")
	}
	// Inverse of the sequential likelihood ratio, capped at 1.
	return dist.Clamp01(math.Exp(-e.LLR(n, k))), nil
}

// Kmin has the closed form
//
//	kmin = ceil( (log(1/alpha) - n*logLose) / (logWin - logLose) )
func (e *bravo) Kmin(n int) (int, bool) {
	if kmin, ok, hit := e.cache.get(n); hit {
		return kmin, ok
	}
	raw := (math.Log(1/e.alpha) - float64(n)*e.logLose) / (e.logWin - e.logLose)
	kmin := int(math.Ceil(raw))
	// Guard the boundary: ceil of an exact integer must still satisfy
	// the threshold, and float rounding can land one short.
	for kmin <= n && e.LLR(n, kmin) < math.Log(1/e.alpha) {
		kmin++
	}
	if kmin < 0 {
		kmin = 0
	}
	ok := kmin <= n
	e.cache.put(n, kmin, ok)
	if !ok {
		return 0, false
	}
	return kmin, true
}

func (e *bravo) StoppingProb(n int) (float64, error) {
	if n < 1 {
		return 0, core.NewInvalidRoundError("sample size must be at least 1")
	}
	kmin, ok := e.Kmin(n)
	if !ok {
		return 0, nil
	}
	return dist.BinomSF(kmin, n, e.pa), nil
}
