package engine

import (
	"math"

	"gorla/domain/core"
	"gorla/domain/election"
	"gorla/internal/dist"
)

// athena extends the Minerva tail-ratio test with a delta-scaled point
// condition on the likelihood ratio at the observed count.
//
// The risk measure folds both conditions into a single number:
//
//	risk = max( sf0/sfA, (alpha/delta) * pmf0/pmfA )
//
// so that risk <= alpha exactly when the tail condition
// alpha*sfA > sf0 and the point condition delta*pmfA > pmf0 both hold.
// With delta = 1 the decisions coincide with Minerva whenever the tail
// condition binds.
type athena struct {
	pair  election.Pairwise
	alpha float64
	delta float64
	pa    float64
	p0    float64
	cache memo
}

func newAthena(pair election.Pairwise, alpha, delta float64) *athena {
	return &athena{
		pair:  pair,
		alpha: alpha,
		delta: delta,
		pa:    pair.WinnerShare(),
		p0:    pair.TiedShare(),
		cache: newMemo(),
	}
}

func (e *athena) Tag() Tag          { return TagAthena }
func (e *athena) Alpha() float64    { return e.alpha }
func (e *athena) Replacement() bool { return true }

func (e *athena) MinSampleSize() int {
	// The tail condition alone bounds the minimum; the point condition
	// can only push kmin upward within a round, not shrink the round.
	return int(math.Ceil(math.Log(1/e.alpha) / math.Log(e.pa/e.p0)))
}

// ratio computes the combined Athena risk measure at (n, k).
func (e *athena) ratio(n, k int) (float64, error) {
	tail, err := tailRatio(n, k, e.p0, e.pa)
	if err != nil {
		return 0, err
	}
	logPoint0 := dist.BinomLogPMF(k, n, e.p0)
	logPointA := dist.BinomLogPMF(k, n, e.pa)
	if math.IsInf(logPointA, -1) {
		if math.IsInf(logPoint0, -1) {
			// Off-support point, the tail condition decides alone.
			return tail, nil
		}
		return 1, nil
	}
	point := math.Exp(logPoint0-logPointA) * e.alpha / e.delta
	return dist.Clamp01(math.Max(tail, point)), nil
}

func (e *athena) PValue(n, k int) (float64, error) {
	if n < 1 {
		return 0, core.NewInvalidRoundError("sample size must be at least 1")
	}
	if k < 0 || k > n {
		return 0, core.NewInvalidRoundError("winner count must be within the sample")
	}
	return e.ratio(n, k)
}

func (e *athena) Kmin(n int) (int, bool) {
	if kmin, ok, hit := e.cache.get(n); hit {
		return kmin, ok
	}
	// Both the tail ratio and the point likelihood ratio are monotone
	// non-increasing in k for pa > p0, so the combined measure is too.
	kmin, ok := kminSearch(n, func(k int) bool {
		r, err := e.ratio(n, k)
		return err == nil && r <= e.alpha
	})
	e.cache.put(n, kmin, ok)
	return kmin, ok
}

func (e *athena) StoppingProb(n int) (float64, error) {
	if n < 1 {
		return 0, core.NewInvalidRoundError("sample size must be at least 1")
	}
	kmin, ok := e.Kmin(n)
	if !ok {
		return 0, nil
	}
	return dist.BinomSF(kmin, n, e.pa), nil
}
