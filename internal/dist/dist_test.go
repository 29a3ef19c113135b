package dist

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/stat/distuv"
)

func TestBinomPMF_SumsToOne(t *testing.T) {
	cases := []struct {
		n int
		p float64
	}{
		{10, 0.5},
		{100, 0.3},
		{1000, 0.75},
		{1000, 0.01},
	}
	for _, c := range cases {
		sum := 0.0
		for k := 0; k <= c.n; k++ {
			pmf := BinomPMF(k, c.n, c.p)
			if pmf < 0 {
				t.Fatalf("BinomPMF(%d; %d, %g) = %g < 0", k, c.n, c.p, pmf)
			}
			sum += pmf
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("sum of BinomPMF(.; %d, %g) = %.12f, want 1", c.n, c.p, sum)
		}
	}
}

func TestBinomSF_PMFConsistency(t *testing.T) {
	n, p := 500, 0.6
	for k := 0; k < n; k++ {
		lhs := BinomSF(k, n, p) - BinomSF(k+1, n, p)
		rhs := BinomPMF(k, n, p)
		if math.Abs(lhs-rhs) > 1e-10 {
			t.Fatalf("sf(%d)-sf(%d) = %g, pmf = %g", k, k+1, lhs, rhs)
		}
	}
}

func TestBinomSF_Monotone(t *testing.T) {
	n, p := 777, 0.42
	prev := 1.1
	for k := 0; k <= n+1; k++ {
		sf := BinomSF(k, n, p)
		if sf > prev+1e-12 {
			t.Fatalf("BinomSF not monotone at k=%d: %g > %g", k, sf, prev)
		}
		prev = sf
	}
	if BinomSF(0, n, p) != 1 {
		t.Error("BinomSF(0) must be 1")
	}
	if BinomSF(n+1, n, p) != 0 {
		t.Error("BinomSF(n+1) must be 0")
	}
}

func TestBinomCDF_AgreesWithGonum(t *testing.T) {
	cases := []struct {
		n int
		p float64
	}{
		{50, 0.5},
		{200, 0.7},
		{1000, 0.1},
	}
	for _, c := range cases {
		oracle := distuv.Binomial{N: float64(c.n), P: c.p}
		for _, k := range []int{0, 1, c.n / 4, c.n / 2, 3 * c.n / 4, c.n - 1} {
			got := BinomCDF(k, c.n, c.p)
			want := oracle.CDF(float64(k))
			if math.Abs(got-want) > 1e-9 {
				t.Errorf("BinomCDF(%d; %d, %g) = %.12f, gonum %.12f", k, c.n, c.p, got, want)
			}
		}
	}
}

func TestBinomLogSF_LargeN(t *testing.T) {
	// Far tail at n = 1e6: linear space underflows, the log form must
	// stay finite and ordered.
	n := 1000000
	a := BinomLogSF(520000, n, 0.5)
	b := BinomLogSF(540000, n, 0.5)
	if math.IsNaN(a) || math.IsNaN(b) || math.IsInf(a, -1) || math.IsInf(b, -1) {
		t.Fatalf("log tails not finite: %g, %g", a, b)
	}
	if b >= a {
		t.Errorf("deeper tail must be smaller: logSF(540k)=%g >= logSF(520k)=%g", b, a)
	}
	if a >= 0 {
		t.Errorf("tail beyond the mean must have negative log: %g", a)
	}
	// Consistency with the linear form where it does not underflow.
	k := 500500
	lin := BinomSF(k, n, 0.5)
	logv := math.Exp(BinomLogSF(k, n, 0.5))
	if lin <= 0 || math.Abs(lin-logv)/lin > 1e-8 {
		t.Errorf("linear %g and log %g forms disagree", lin, logv)
	}
}

func TestHyperPMF_SumsToOne(t *testing.T) {
	cases := []struct {
		N, K, n int
	}{
		{100, 60, 30},
		{5000, 1500, 300},
		{1000, 500, 200},
	}
	for _, c := range cases {
		sum := 0.0
		for k := 0; k <= c.n; k++ {
			sum += HyperPMF(k, c.N, c.K, c.n)
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("sum of HyperPMF(.; %d, %d, %d) = %.12f, want 1", c.N, c.K, c.n, sum)
		}
	}
}

func TestHyperSF_PMFConsistency(t *testing.T) {
	N, K, n := 2000, 900, 150
	for k := 0; k < n; k++ {
		lhs := HyperSF(k, N, K, n) - HyperSF(k+1, N, K, n)
		rhs := HyperPMF(k, N, K, n)
		if math.Abs(lhs-rhs) > 1e-10 {
			t.Fatalf("sf(%d)-sf(%d) = %g, pmf = %g", k, k+1, lhs, rhs)
		}
	}
}

func TestHyperSF_SupportEdges(t *testing.T) {
	// n > N-K forces a minimum number of successes in any draw.
	N, K, n := 100, 90, 50
	lo := n - (N - K) // 40
	if got := HyperSF(lo, N, K, n); got != 1 {
		t.Errorf("HyperSF at the support floor = %g, want 1", got)
	}
	if got := HyperSF(n+1, N, K, n); got != 0 {
		t.Errorf("HyperSF past the sample = %g, want 0", got)
	}
}

func TestHyperSF_SkewedPopulation(t *testing.T) {
	// K and N-K differ by many orders of magnitude.
	N := 100000000
	K := 100
	n := 1000
	sf1 := HyperSF(1, N, K, n)
	if sf1 <= 0 || sf1 >= 1 {
		t.Fatalf("HyperSF(1) = %g, want interior probability", sf1)
	}
	// P(X >= 1) is roughly n*K/N for a rare population.
	approx := 1 - math.Pow(1-float64(K)/float64(N), float64(n))
	if math.Abs(sf1-approx)/approx > 0.05 {
		t.Errorf("HyperSF(1) = %g, binomial approximation %g", sf1, approx)
	}
}

func TestLogChoose(t *testing.T) {
	if got := LogChoose(10, 3); math.Abs(got-math.Log(120)) > 1e-12 {
		t.Errorf("LogChoose(10,3) = %g, want log(120)", got)
	}
	if !math.IsInf(LogChoose(5, 7), -1) {
		t.Error("LogChoose out of range must be -Inf")
	}
}

func TestClamp01(t *testing.T) {
	if Clamp01(1.5) != 1 || Clamp01(-0.2) != 0 || Clamp01(math.NaN()) != 0 {
		t.Error("Clamp01 must map into [0,1]")
	}
	if Clamp01(0.25) != 0.25 {
		t.Error("Clamp01 must not disturb interior values")
	}
}

func TestLogAdd(t *testing.T) {
	got := LogAdd(math.Log(0.25), math.Log(0.5))
	if math.Abs(got-math.Log(0.75)) > 1e-12 {
		t.Errorf("LogAdd = %g, want log(0.75)", got)
	}
	if LogAdd(math.Inf(-1), math.Log(0.5)) != math.Log(0.5) {
		t.Error("LogAdd with -Inf must return the other term")
	}
}
