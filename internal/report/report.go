// Package report summarizes completed audit transcripts and renders
// them for humans.
package report

import (
	"fmt"
	"strings"

	"github.com/montanaflynn/stats"

	"gorla/internal/audit"
	"gorla/internal/engine"
)

// Summary condenses an audit transcript.
type Summary struct {
	Rounds       int     `json:"rounds"`
	TotalSampled int     `json:"total_sampled"`
	FinalRisk    float64 `json:"final_risk"`
	MeanRisk     float64 `json:"mean_risk"`
	MinRisk      float64 `json:"min_risk"`
	MaxRisk      float64 `json:"max_risk"`
	// Sprobs holds the non-cumulative probability of stopping at each
	// executed round under the announced tallies, treating each round
	// size as if it were reached fresh.
	Sprobs []float64 `json:"stopping_probabilities"`
	// ExpectedBallots is the expected number audited under the
	// transcript's round schedule, escalating to the full pool when no
	// round stops.
	ExpectedBallots float64 `json:"expected_ballots"`
}

// Summarize computes a Summary for a record, using the engine for the
// stopping-probability schedule.
func Summarize(rec audit.Record, eng engine.Engine) (Summary, error) {
	if len(rec.Rounds) == 0 {
		return Summary{}, fmt.Errorf("transcript has no rounds")
	}

	risks := make([]float64, 0, len(rec.Rounds))
	for _, r := range rec.Rounds {
		risks = append(risks, r.Risk)
	}
	mean, err := stats.Mean(risks)
	if err != nil {
		return Summary{}, err
	}
	lo, err := stats.Min(risks)
	if err != nil {
		return Summary{}, err
	}
	hi, err := stats.Max(risks)
	if err != nil {
		return Summary{}, err
	}

	// Per-round stop chances, then the expected ballots under the
	// schedule: sum of n_i times the chance round i is the first stop,
	// plus the full pool weighted by the chance no round stops.
	sprobs := make([]float64, 0, len(rec.Rounds))
	survive := 1.0
	expected := 0.0
	for _, r := range rec.Rounds {
		p, err := eng.StoppingProb(r.Size)
		if err != nil {
			p = 0
		}
		sprobs = append(sprobs, p)
		expected += float64(r.Size) * survive * p
		survive *= 1 - p
	}
	expected += survive * float64(rec.Pool)

	last := rec.Rounds[len(rec.Rounds)-1]
	return Summary{
		Rounds:          len(rec.Rounds),
		TotalSampled:    last.Size,
		FinalRisk:       last.Risk,
		MeanRisk:        mean,
		MinRisk:         lo,
		MaxRisk:         hi,
		Sprobs:          sprobs,
		ExpectedBallots: expected,
	}, nil
}

// Markdown renders a record and its summary as a markdown report.
func Markdown(rec audit.Record, sum Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Audit %s\n\n", rec.ID)
	fmt.Fprintf(&b, "**Engine:** %s  \n", rec.Engine)
	fmt.Fprintf(&b, "**Risk limit:** %.6g  \n", rec.Alpha)
	if rec.Engine == engine.TagAthena {
		fmt.Fprintf(&b, "**Delta:** %.6g  \n", rec.Delta)
	}
	fmt.Fprintf(&b, "**Contest:** %s (%d) vs %s (%d), pool %d  \n",
		rec.Winner, rec.WinnerVotes, rec.Loser, rec.LoserVotes, rec.Pool)
	fmt.Fprintf(&b, "**Status:** %s (%s)\n\n", rec.Status, rec.Reason)

	b.WriteString("| Round | Size | Winner | Loser | kmin | Risk | Decision |\n")
	b.WriteString("|------:|-----:|-------:|------:|-----:|-----:|:---------|\n")
	for _, r := range rec.Rounds {
		kmin := "-"
		if r.Kmin != nil {
			kmin = fmt.Sprintf("%d", *r.Kmin)
		}
		fmt.Fprintf(&b, "| %d | %d | %d | %d | %s | %.6g | %s |\n",
			r.Index, r.Size, r.WinnerBallots, r.LoserBallots, kmin, r.Risk, r.Decision)
	}

	fmt.Fprintf(&b, "\n**Final risk:** %.6g  \n", sum.FinalRisk)
	fmt.Fprintf(&b, "**Risk range:** %.6g to %.6g (mean %.6g)  \n", sum.MinRisk, sum.MaxRisk, sum.MeanRisk)
	fmt.Fprintf(&b, "**Ballots sampled:** %d  \n", sum.TotalSampled)
	fmt.Fprintf(&b, "**Expected ballots under this schedule:** %.1f\n", sum.ExpectedBallots)
	return b.String()
}
