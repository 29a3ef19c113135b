package engine

import (
	"errors"
	"fmt"

	"gorla/domain/core"
)

// Recommendation is the solver's answer for a prospective round.
type Recommendation struct {
	SampleSize int     `json:"sample_size"`
	Kmin       int     `json:"kmin"`
	Prob       float64 `json:"stopping_probability"`
}

// UnattainableError reports that no sample size within the cap reaches
// the target stopping probability, together with the best achievable.
type UnattainableError struct {
	Best    float64
	MaxSize int
}

func (e *UnattainableError) Error() string {
	return fmt.Sprintf("%v: best stopping probability %.6f at sample size %d",
		core.ErrUnattainable, e.Best, e.MaxSize)
}

func (e *UnattainableError) Unwrap() error { return core.ErrUnattainable }

// stabilityWindow is how many consecutive sizes must hold the target
// before a recommendation is accepted. The stopping probability rises
// in n overall but dips whenever kmin increments; the window must
// exceed the spacing of those dips near the crossing.
const stabilityWindow = 64

// NextSampleSize finds the smallest sample size n in [1, nMax] from
// which the stopping probability under the announced tallies reaches
// target and keeps it for every larger size.
//
// The stopping probability is non-decreasing in n apart from a sawtooth
// at each kmin increment, so the solver probes exponentially from the
// engine's minimum sample size, bisects the bracket, then advances past
// any dip above the bisection point. A recommendation one ballot short
// of a dip would be useless to an auditor, hence the stable crossing
// rather than the first.
func NextSampleSize(e Engine, nMax int, target float64) (Recommendation, error) {
	if target <= 0 || target >= 1 {
		return Recommendation{}, core.NewInvalidParamsError("target", "must be strictly between 0 and 1")
	}
	if nMax < 1 {
		return Recommendation{}, core.NewInvalidParamsError("max sample size", "must be at least 1")
	}

	meets := func(n int) (bool, error) {
		p, err := e.StoppingProb(n)
		if err != nil {
			if errors.Is(err, core.ErrNumericFailure) {
				// An unevaluable point cannot witness the target.
				return false, nil
			}
			return false, err
		}
		return p >= target, nil
	}

	lo := e.MinSampleSize()
	if lo < 1 {
		lo = 1
	}
	if lo > nMax {
		return Recommendation{}, unattainable(e, nMax)
	}

	// Exponential probe for a size that reaches the target.
	probe := lo
	last := lo - 1
	for {
		ok, err := meets(probe)
		if err != nil {
			return Recommendation{}, err
		}
		if ok {
			break
		}
		if probe == nMax {
			return Recommendation{}, unattainable(e, nMax)
		}
		last = probe
		probe = min(probe*2, nMax)
	}

	// Bisect (last, probe] for the first satisfying size.
	loB, hiB := last+1, probe
	for loB < hiB {
		mid := (loB + hiB) / 2
		ok, err := meets(mid)
		if err != nil {
			return Recommendation{}, err
		}
		if ok {
			hiB = mid
		} else {
			loB = mid + 1
		}
	}

	// Advance past sawtooth dips: the answer must start a run of
	// satisfying sizes at least stabilityWindow long (or touching the
	// cap).
	answer := loB
	streak := 0
	for m := loB + 1; m <= nMax && streak < stabilityWindow; m++ {
		ok, err := meets(m)
		if err != nil {
			return Recommendation{}, err
		}
		if ok {
			streak++
			continue
		}
		answer = m + 1
		streak = 0
	}
	if answer > nMax {
		return Recommendation{}, unattainable(e, nMax)
	}
	if ok, err := meets(answer); err != nil {
		return Recommendation{}, err
	} else if !ok {
		return Recommendation{}, unattainable(e, nMax)
	}

	prob, err := e.StoppingProb(answer)
	if err != nil {
		return Recommendation{}, err
	}
	kmin, ok := e.Kmin(answer)
	if !ok {
		return Recommendation{}, fmt.Errorf("%w: no stopping size at recommended round", core.ErrNumericFailure)
	}
	return Recommendation{SampleSize: answer, Kmin: kmin, Prob: prob}, nil
}

func unattainable(e Engine, nMax int) error {
	best, err := e.StoppingProb(nMax)
	if err != nil {
		best = 0
	}
	return &UnattainableError{Best: best, MaxSize: nMax}
}
