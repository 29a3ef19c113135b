package engine

import (
	"testing"

	"gorla/domain/election"
)

func majorityPair(t *testing.T, ballots, winner int) election.Pairwise {
	t.Helper()
	contest, err := election.New(ballots,
		map[string]int{"A": winner, "B": ballots - winner}, []string{"A"}, election.Majority)
	if err != nil {
		t.Fatalf("contest: %v", err)
	}
	pair, err := contest.PairwiseReduction("A", "B", election.PoolRelevant)
	if err != nil {
		t.Fatalf("pairwise: %v", err)
	}
	return pair
}

func pluralityPair(t *testing.T, ballots, vw, vl int) election.Pairwise {
	t.Helper()
	contest, err := election.New(ballots,
		map[string]int{"A": vw, "B": vl}, []string{"A"}, election.Plurality)
	if err != nil {
		t.Fatalf("contest: %v", err)
	}
	pair, err := contest.PairwiseReduction("A", "B", election.PoolRelevant)
	if err != nil {
		t.Fatalf("pairwise: %v", err)
	}
	return pair
}

func TestMinerva_SixtyFortyRoundStops(t *testing.T) {
	pair := majorityPair(t, 100000, 60000)
	eng, err := New(TagMinerva, pair, Params{Alpha: 0.1})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}

	pv, err := eng.PValue(100, 60)
	if err != nil {
		t.Fatalf("p-value: %v", err)
	}
	if pv > 0.1 {
		t.Errorf("p-value at (100, 60) = %g, want <= 0.1", pv)
	}
	if pv <= 0 {
		t.Errorf("p-value at (100, 60) = %g, want positive", pv)
	}
}

func TestMinerva_PValueBounds(t *testing.T) {
	pair := pluralityPair(t, 10000, 7000, 3000)
	eng, err := New(TagMinerva, pair, Params{Alpha: 0.1})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	for _, n := range []int{1, 10, 50, 200} {
		for k := 0; k <= n; k++ {
			pv, err := eng.PValue(n, k)
			if err != nil {
				t.Fatalf("PValue(%d, %d): %v", n, k, err)
			}
			if pv < 0 || pv > 1 {
				t.Fatalf("PValue(%d, %d) = %g out of [0,1]", n, k, pv)
			}
		}
	}
}

func TestMinerva_PValueMonotoneInK(t *testing.T) {
	pair := majorityPair(t, 100000, 60000)
	eng, err := New(TagMinerva, pair, Params{Alpha: 0.1})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	n := 150
	prev := 2.0
	for k := 0; k <= n; k++ {
		pv, err := eng.PValue(n, k)
		if err != nil {
			t.Fatalf("PValue(%d, %d): %v", n, k, err)
		}
		if pv > prev+1e-12 {
			t.Fatalf("p-value not non-increasing at k=%d: %g > %g", k, pv, prev)
		}
		prev = pv
	}
}

func TestMinerva_KminBoundary(t *testing.T) {
	pair := majorityPair(t, 100000, 60000)
	eng, err := New(TagMinerva, pair, Params{Alpha: 0.1})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	for _, n := range []int{50, 100, 111, 200, 500} {
		kmin, ok := eng.Kmin(n)
		if !ok {
			t.Fatalf("no kmin at n=%d", n)
		}
		if kmin > n {
			t.Fatalf("kmin(%d) = %d exceeds the sample", n, kmin)
		}
		at, err := eng.PValue(n, kmin)
		if err != nil {
			t.Fatalf("PValue at kmin: %v", err)
		}
		if at > 0.1 {
			t.Errorf("p-value at kmin(%d)=%d is %g, want <= alpha", n, kmin, at)
		}
		if kmin > 0 {
			below, err := eng.PValue(n, kmin-1)
			if err != nil {
				t.Fatalf("PValue below kmin: %v", err)
			}
			if below <= 0.1 {
				t.Errorf("p-value below kmin(%d) is %g, want > alpha", n, below)
			}
		}
	}
}

func TestMinerva_KminBelowMinSampleSize(t *testing.T) {
	pair := majorityPair(t, 100000, 60000)
	eng, err := New(TagMinerva, pair, Params{Alpha: 0.1})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	minN := eng.MinSampleSize()
	if minN < 1 {
		t.Fatalf("minimum sample size = %d", minN)
	}
	if _, ok := eng.Kmin(minN - 1); ok {
		t.Errorf("kmin exists below the minimum sample size %d", minN)
	}
	if _, ok := eng.Kmin(minN); !ok {
		t.Errorf("kmin missing at the minimum sample size %d", minN)
	}
}

func TestMinerva_KminMemoized(t *testing.T) {
	pair := majorityPair(t, 100000, 60000)
	eng, err := New(TagMinerva, pair, Params{Alpha: 0.1})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	first, ok1 := eng.Kmin(137)
	second, ok2 := eng.Kmin(137)
	if ok1 != ok2 || first != second {
		t.Errorf("memoized kmin disagrees: (%d,%t) vs (%d,%t)", first, ok1, second, ok2)
	}
}

func TestEngineFactory_Validation(t *testing.T) {
	pair := pluralityPair(t, 1000, 700, 300)
	tests := []struct {
		name        string
		tag         Tag
		params      Params
		expectError bool
	}{
		{"valid minerva", TagMinerva, Params{Alpha: 0.1}, false},
		{"valid brla", TagBRLA, Params{Alpha: 0.1}, false},
		{"valid athena", TagAthena, Params{Alpha: 0.1, Delta: 1}, false},
		{"valid bravo", TagBRAVO, Params{Alpha: 0.1}, false},
		{"alpha zero", TagMinerva, Params{Alpha: 0}, true},
		{"alpha one", TagMinerva, Params{Alpha: 1}, true},
		{"athena delta zero", TagAthena, Params{Alpha: 0.1, Delta: 0}, true},
		{"athena delta negative", TagAthena, Params{Alpha: 0.1, Delta: -1}, true},
		{"unknown tag", Tag("providence"), Params{Alpha: 0.1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.tag, pair, tt.params)
			if tt.expectError && err == nil {
				t.Error("expected error, got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
