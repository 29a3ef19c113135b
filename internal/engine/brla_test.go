package engine

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/stat/distuv"
)

func TestBRLA_SeventyThirtyStops(t *testing.T) {
	pair := pluralityPair(t, 1000, 700, 300)
	eng, err := New(TagBRLA, pair, Params{Alpha: 0.1})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	risk, err := eng.PValue(200, 175)
	if err != nil {
		t.Fatalf("PValue: %v", err)
	}
	if risk > 0.1 {
		t.Errorf("risk at (200, 175) = %g, want <= 0.1", risk)
	}
}

func TestBRLA_PValueMonotoneInK(t *testing.T) {
	pair := pluralityPair(t, 1000, 700, 300)
	eng, err := New(TagBRLA, pair, Params{Alpha: 0.1})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	n := 60
	prev := 2.0
	for k := 0; k <= n; k++ {
		risk, err := eng.PValue(n, k)
		if err != nil {
			t.Fatalf("PValue(%d, %d): %v", n, k, err)
		}
		if risk < 0 || risk > 1 {
			t.Fatalf("risk out of [0,1]: %g", risk)
		}
		if risk > prev+1e-9 {
			t.Fatalf("risk not non-increasing at k=%d: %g > %g", k, risk, prev)
		}
		prev = risk
	}
}

func TestBRLA_EvenSplitIsRisky(t *testing.T) {
	pair := pluralityPair(t, 1000, 700, 300)
	eng, err := New(TagBRLA, pair, Params{Alpha: 0.1})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	// A dead-even sample lends no support to the announced outcome.
	risk, err := eng.PValue(100, 50)
	if err != nil {
		t.Fatalf("PValue: %v", err)
	}
	if risk <= 0.1 {
		t.Errorf("risk at an even split = %g, want > 0.1", risk)
	}
}

func TestBRLA_KminBoundary(t *testing.T) {
	pair := pluralityPair(t, 1000, 700, 300)
	eng, err := New(TagBRLA, pair, Params{Alpha: 0.1})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	for _, n := range []int{50, 100, 200} {
		kmin, ok := eng.Kmin(n)
		if !ok {
			t.Fatalf("no kmin at n=%d", n)
		}
		at, err := eng.PValue(n, kmin)
		if err != nil {
			t.Fatalf("PValue at kmin: %v", err)
		}
		if at > 0.1 {
			t.Errorf("risk at kmin(%d)=%d is %g, want <= alpha", n, kmin, at)
		}
		below, err := eng.PValue(n, kmin-1)
		if err != nil {
			t.Fatalf("PValue below kmin: %v", err)
		}
		if below <= 0.1 {
			t.Errorf("risk below kmin(%d) is %g, want > alpha", n, below)
		}
		if kmin < n/2 {
			t.Errorf("kmin(%d) = %d below half the sample", n, kmin)
		}
	}
}

func TestBRLA_MajorityUsesBetaPosterior(t *testing.T) {
	pair := majorityPair(t, 100000, 60000)
	eng, err := New(TagBRLA, pair, Params{Alpha: 0.1})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	n, k := 100, 60
	risk, err := eng.PValue(n, k)
	if err != nil {
		t.Fatalf("PValue: %v", err)
	}
	want := distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k + 1)}.CDF(0.5)
	if math.Abs(risk-want) > 1e-12 {
		t.Errorf("majority posterior tail = %g, want Beta(%d,%d) mass %g", risk, k+1, n-k+1, want)
	}
}

func TestBRLA_WithoutReplacement(t *testing.T) {
	pair := pluralityPair(t, 1000, 700, 300)
	eng, err := New(TagBRLA, pair, Params{Alpha: 0.1})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	if eng.Replacement() {
		t.Error("BRLA must sample without replacement")
	}
}

func TestBRLA_StoppingProbIncreases(t *testing.T) {
	pair := pluralityPair(t, 1000, 700, 300)
	eng, err := New(TagBRLA, pair, Params{Alpha: 0.1})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	small, err := eng.StoppingProb(40)
	if err != nil {
		t.Fatalf("StoppingProb(40): %v", err)
	}
	large, err := eng.StoppingProb(200)
	if err != nil {
		t.Fatalf("StoppingProb(200): %v", err)
	}
	if large <= small {
		t.Errorf("stopping probability did not grow: %g at 40 vs %g at 200", small, large)
	}
	if large <= 0.9 {
		t.Errorf("a 200-ballot round of a 70/30 contest should very likely stop, got %g", large)
	}
}
