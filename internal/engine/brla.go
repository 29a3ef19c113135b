package engine

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"gorla/domain/core"
	"gorla/domain/election"
	"gorla/internal/dist"
)

// brla implements the Bayesian risk-limiting audit without replacement.
//
// The risk is the posterior probability that the winner holds no more
// than half of the pool. For PLURALITY pairs this enumerates the
// hypergeometric likelihood over possible true winner totals under the
// tie-weighted prior described at posteriorTail (not a uniform prior);
// for MAJORITY pairs the prior on the winner share is uniform, the
// posterior is Beta(k+1, n-k+1) and the risk is its mass at or below
// one half.
type brla struct {
	pair     election.Pairwise
	alpha    float64
	majority bool
	cache    memo
	minN     int // lazily computed minimum sample size, 0 until known
}

func newBRLA(pair election.Pairwise, alpha float64) *brla {
	return &brla{
		pair:     pair,
		alpha:    alpha,
		majority: pair.Type == election.Majority,
		cache:    newMemo(),
	}
}

func (e *brla) Tag() Tag          { return TagBRLA }
func (e *brla) Alpha() float64    { return e.alpha }
func (e *brla) Replacement() bool { return false }

func (e *brla) MinSampleSize() int {
	if e.minN > 0 {
		return e.minN
	}
	// Smallest n whose all-winner sample meets the risk limit. The
	// all-winner risk is non-increasing in n, so bisect.
	lo, hi := 1, e.pair.Pool
	for lo < hi {
		mid := (lo + hi) / 2
		risk, err := e.PValue(mid, mid)
		if err == nil && risk <= e.alpha {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	e.minN = lo
	return lo
}

func (e *brla) PValue(n, k int) (float64, error) {
	if n < 1 || n > e.pair.Pool {
		return 0, core.NewInvalidRoundError("sample size must be within the ballot pool")
	}
	if k < 0 || k > n {
		return 0, core.NewInvalidRoundError("winner count must be within the sample")
	}
	if e.majority {
		return e.betaTail(n, k), nil
	}
	return e.posteriorTail(n, k)
}

// betaTail is the posterior probability that the winner share is at most
// one half, under a uniform prior: Beta(k+1, n-k+1) mass on [0, 1/2].
func (e *brla) betaTail(n, k int) float64 {
	post := distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k + 1)}
	return dist.Clamp01(post.CDF(0.5))
}

// posteriorTail enumerates the hypergeometric likelihood over true
// winner totals x in the pool. The prior places half its mass on the
// exact tie x = pool/2 and spreads the other half uniformly over the
// winning totals x > pool/2; totals below the tie carry no prior mass.
// The risk is the normalized posterior mass at the tie.
func (e *brla) posteriorTail(n, k int) (float64, error) {
	N := e.pair.Pool
	m := N / 2

	logNum := math.Log(0.5) + dist.HyperLogPMF(k, N, m, n)
	logS, err := e.logLikelihoodSum(n, k, m+1)
	if err != nil {
		return 0, err
	}
	logAlt := math.Log(0.5/float64(N-m)) + logS
	if math.IsInf(logNum, -1) {
		if math.IsInf(logAlt, -1) {
			return 0, core.ErrNumericFailure
		}
		return 0, nil
	}
	logDen := dist.LogAdd(logNum, logAlt)
	return dist.Clamp01(math.Exp(logNum - logDen)), nil
}

// logLikelihoodSum returns log sum over x in [lo, N] of the
// hypergeometric pmf of k at population winner total x. The terms are
// unimodal in x, so the sum walks outward from the mode and terminates
// once terms stop contributing.
func (e *brla) logLikelihoodSum(n, k, lo int) (float64, error) {
	N := e.pair.Pool
	hi := N - n + k // largest x with n-k losers still available
	if hi > N {
		hi = N
	}
	if lo > hi {
		return math.Inf(-1), nil
	}
	// Posterior mode over x for fixed (k, n).
	mode := int(float64(k) * float64(N+1) / float64(n))
	if mode < lo {
		mode = lo
	}
	if mode > hi {
		mode = hi
	}
	lhMode := dist.HyperLogPMF(k, N, mode, n)
	if math.IsInf(lhMode, -1) {
		return math.Inf(-1), core.ErrNumericFailure
	}

	const relTol = 1e-18
	relSum := 1.0

	// Walk upward from the mode.
	term := 1.0
	for x := mode; x < hi; x++ {
		r := upRatio(x, N, n, k)
		term *= r
		relSum += term
		if r < 1 && term < relSum*relTol {
			break
		}
	}
	// Walk downward from the mode.
	term = 1.0
	for x := mode; x > lo; x-- {
		r := upRatio(x-1, N, n, k)
		if r == 0 {
			break
		}
		term /= r
		relSum += term
		if term < relSum*relTol {
			break
		}
	}
	return lhMode + math.Log(relSum), nil
}

// upRatio is pmf(k; N, x+1, n) / pmf(k; N, x, n).
func upRatio(x, N, n, k int) float64 {
	den := float64(x+1-k) * float64(N-x)
	if den <= 0 {
		return 0
	}
	return float64(x+1) * float64(N-x-n+k) / den
}

func (e *brla) Kmin(n int) (int, bool) {
	if kmin, ok, hit := e.cache.get(n); hit {
		return kmin, ok
	}
	kmin, ok := kminSearch(n, func(k int) bool {
		risk, err := e.PValue(n, k)
		return err == nil && risk <= e.alpha
	})
	e.cache.put(n, kmin, ok)
	return kmin, ok
}

func (e *brla) StoppingProb(n int) (float64, error) {
	if n < 1 || n > e.pair.Pool {
		return 0, core.NewInvalidRoundError("sample size must be within the ballot pool")
	}
	kmin, ok := e.Kmin(n)
	if !ok {
		return 0, nil
	}
	// Draws are without replacement from a pool holding the reported
	// winner total.
	return dist.HyperSF(kmin, e.pair.Pool, e.pair.WinnerBallots, n), nil
}
