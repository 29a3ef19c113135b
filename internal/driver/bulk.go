package driver

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"gorla/domain/election"
	"gorla/internal/audit"
	"gorla/internal/engine"
)

// Observation is one observed round in bulk mode: cumulative winner and
// loser counts.
type Observation struct {
	WinnerBallots int `json:"winner_ballots"`
	LoserBallots  int `json:"loser_ballots"`
}

// BulkRequest replays a fixed round schedule against a contest.
type BulkRequest struct {
	Contest     *election.Contest
	Engine      engine.Tag
	Alpha       float64
	Delta       float64
	MaxFraction float64
	// Schedule is the cumulative round schedule.
	Schedule []int
	// Observations, when present, must match the schedule length; the
	// audit is then executed and decisions are printed. When absent
	// only the kmin schedule is generated.
	Observations []Observation
}

// ParseSchedule parses a space separated list of integers, the
// round-list argument format.
func ParseSchedule(s string) ([]int, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, fmt.Errorf("expected space separated list of integers")
	}
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("expected space separated list of integers: %q", f)
		}
		out = append(out, v)
	}
	return out, nil
}

// ParseObservations parses observed round counts. Each argument is
// either "<winner>:<loser>" or "@<file>" naming a JSON list of
// observations.
func ParseObservations(args []string) ([]Observation, error) {
	if len(args) == 0 {
		return nil, nil
	}
	if strings.HasPrefix(args[0], "@") {
		data, err := os.ReadFile(strings.TrimPrefix(args[0], "@"))
		if err != nil {
			return nil, fmt.Errorf("read observations file: %w", err)
		}
		var obs []Observation
		if err := json.Unmarshal(data, &obs); err != nil {
			return nil, fmt.Errorf("malformed observations file: %w", err)
		}
		return obs, nil
	}
	obs := make([]Observation, 0, len(args))
	for _, arg := range args {
		parts := strings.SplitN(arg, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("expected <winner>:<loser>, got %q", arg)
		}
		kw, err1 := strconv.Atoi(parts[0])
		kl, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("expected <winner>:<loser>, got %q", arg)
		}
		obs = append(obs, Observation{WinnerBallots: kw, LoserBallots: kl})
	}
	return obs, nil
}

// RunBulk generates the kmin schedule and, when observations are
// supplied, replays the audit and prints the same decisions the
// interactive mode would have produced.
func RunBulk(req BulkRequest, out io.Writer) error {
	winner := req.Contest.Winners[0]
	loser, err := req.Contest.TopLoser()
	if err != nil {
		return err
	}
	pair, err := req.Contest.PairwiseReduction(winner, loser, election.PoolRelevant)
	if err != nil {
		return err
	}
	eng, err := engine.New(req.Engine, pair, engine.Params{Alpha: req.Alpha, Delta: req.Delta})
	if err != nil {
		return err
	}
	a, err := audit.New(pair, eng, req.MaxFraction)
	if err != nil {
		return err
	}

	entries, err := engine.KminSchedule(eng, req.Schedule, a.MaxSampleSize())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Round schedule for %s vs %s (%s, alpha %g):\n",
		pair.Winner, pair.Loser, req.Engine, req.Alpha)
	fmt.Fprintf(out, "Minimum sample size: %d\n", eng.MinSampleSize())
	for i, entry := range entries {
		kmin := "none"
		if entry.Kmin != nil {
			kmin = strconv.Itoa(*entry.Kmin)
		}
		fmt.Fprintf(out, "Round %d: size %d, minimum winner ballots %s\n", i+1, entry.Size, kmin)
	}

	if len(req.Observations) == 0 {
		return nil
	}
	if len(req.Observations) != len(req.Schedule) {
		return fmt.Errorf("expected %d observations, got %d", len(req.Schedule), len(req.Observations))
	}
	for i, ob := range req.Observations {
		dec, err := a.ExecuteRound(req.Schedule[i], ob.WinnerBallots, ob.LoserBallots)
		if err != nil {
			return err
		}
		printBanner(out, i+1, dec)
		if dec.Stopped {
			break
		}
	}
	fmt.Fprintf(out, "\nAudit status: %s (%s)\n", a.Status(), a.Reason())
	return nil
}

// RunBulkElection generates kmin schedules for every contest of an
// election, one block per contest in deterministic order.
func RunBulkElection(elect *election.Election, req BulkRequest, out io.Writer) error {
	keys := make([]string, 0, len(elect.Contests))
	for key := range elect.Contests {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		fmt.Fprintf(out, "\n=== Contest %s ===\n", key)
		contestReq := req
		contestReq.Contest = elect.Contests[key]
		contestReq.Observations = nil
		if err := RunBulk(contestReq, out); err != nil {
			return fmt.Errorf("contest %q: %w", key, err)
		}
	}
	return nil
}
