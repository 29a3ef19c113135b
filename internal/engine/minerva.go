package engine

import (
	"math"

	"gorla/domain/core"
	"gorla/domain/election"
	"gorla/internal/dist"
)

// minerva implements the Minerva ratio-of-tails test: the risk measure
// is the binomial upper tail at the tied share divided by the upper tail
// at the announced share.
type minerva struct {
	pair  election.Pairwise
	alpha float64
	pa    float64 // announced winner share
	p0    float64 // tied share, floor(pool/2)/pool
	cache memo
}

func newMinerva(pair election.Pairwise, alpha float64) *minerva {
	return &minerva{
		pair:  pair,
		alpha: alpha,
		pa:    pair.WinnerShare(),
		p0:    pair.TiedShare(),
		cache: newMemo(),
	}
}

func (e *minerva) Tag() Tag          { return TagMinerva }
func (e *minerva) Alpha() float64    { return e.alpha }
func (e *minerva) Replacement() bool { return true }

// MinSampleSize is the smallest n whose all-winner sample can satisfy
// the ratio test.
func (e *minerva) MinSampleSize() int {
	return int(math.Ceil(math.Log(1/e.alpha) / math.Log(e.pa/e.p0)))
}

// tailRatio computes sf(k; n, p0) / sf(k; n, pa) in log space.
func tailRatio(n, k int, p0, pa float64) (float64, error) {
	logNull := dist.BinomLogSF(k, n, p0)
	logAnnounced := dist.BinomLogSF(k, n, pa)
	if math.IsInf(logAnnounced, -1) {
		if math.IsInf(logNull, -1) {
			return 0, core.ErrNumericFailure
		}
		// The announced-world tail is empty while the null tail is not:
		// the observation contradicts the announced outcome maximally.
		return 1, nil
	}
	return dist.Clamp01(math.Exp(logNull - logAnnounced)), nil
}

func (e *minerva) PValue(n, k int) (float64, error) {
	if n < 1 {
		return 0, core.NewInvalidRoundError("sample size must be at least 1")
	}
	if k < 0 || k > n {
		return 0, core.NewInvalidRoundError("winner count must be within the sample")
	}
	return tailRatio(n, k, e.p0, e.pa)
}

func (e *minerva) Kmin(n int) (int, bool) {
	if kmin, ok, hit := e.cache.get(n); hit {
		return kmin, ok
	}
	kmin, ok := kminSearch(n, func(k int) bool {
		pv, err := tailRatio(n, k, e.p0, e.pa)
		return err == nil && pv <= e.alpha
	})
	e.cache.put(n, kmin, ok)
	return kmin, ok
}

func (e *minerva) StoppingProb(n int) (float64, error) {
	if n < 1 {
		return 0, core.NewInvalidRoundError("sample size must be at least 1")
	}
	kmin, ok := e.Kmin(n)
	if !ok {
		return 0, nil
	}
	return dist.BinomSF(kmin, n, e.pa), nil
}
