package election

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"gorla/domain/core"
)

// ContestType indicates what type of vote variation was used in the contest.
type ContestType string

const (
	Plurality ContestType = "PLURALITY"
	Majority  ContestType = "MAJORITY"
)

// ParseContestType parses a contest type string
func ParseContestType(s string) (ContestType, error) {
	switch ContestType(s) {
	case Plurality, Majority:
		return ContestType(s), nil
	}
	return "", core.NewInvalidContestError(fmt.Sprintf("unknown contest type %q", s))
}

// PoolPolicy controls how the ballot pool of a pairwise reduction is formed
// for PLURALITY contests with unreported (undervote) ballots.
type PoolPolicy string

const (
	// PoolRelevant restricts the pool to winner plus loser ballots.
	// Unreported ballots count as neither.
	PoolRelevant PoolPolicy = "relevant"
	// PoolFull keeps the full contest ballot count as the pool.
	PoolFull PoolPolicy = "full"
)

// Contest holds reported results from a single contest within an election.
//
// Tally values are reported counts per candidate; their sum may be less than
// Ballots when undervotes are present, never more.
type Contest struct {
	Ballots int            `json:"ballots"`
	Tally   map[string]int `json:"tallies"`
	Winners []string       `json:"winners"`
	Type    ContestType    `json:"type"`
}

// Pairwise is the winner-versus-loser reduction of a contest: the unit an
// audit engine operates on.
type Pairwise struct {
	Winner        string
	Loser         string
	WinnerBallots int
	LoserBallots  int
	// Pool is the number of ballots the sample is drawn from.
	Pool int
	// ContestBallots is the total ballot count of the parent contest,
	// which bounds the maximum sample regardless of pool policy.
	ContestBallots int
	// Type is the vote variation of the parent contest.
	Type ContestType
}

// New validates and constructs a Contest.
func New(ballots int, tally map[string]int, winners []string, ctype ContestType) (*Contest, error) {
	if ballots < 1 {
		return nil, core.NewInvalidContestError("total ballots must be at least 1")
	}
	if len(tally) < 2 {
		return nil, core.NewInvalidContestError("contest requires at least 2 candidates")
	}
	if len(winners) < 1 {
		return nil, core.NewInvalidContestError("contest requires at least 1 reported winner")
	}
	sum := 0
	for name, votes := range tally {
		if votes < 0 {
			return nil, core.NewInvalidContestError(fmt.Sprintf("negative tally for %q", name))
		}
		sum += votes
	}
	if sum > ballots {
		return nil, core.NewInvalidContestError("tally sum exceeds total ballots")
	}

	isWinner := make(map[string]bool, len(winners))
	for _, w := range winners {
		votes, ok := tally[w]
		if !ok {
			return nil, core.NewInvalidContestError(fmt.Sprintf("winner %q not in tallies", w))
		}
		if votes <= 0 {
			return nil, core.NewInvalidContestError(fmt.Sprintf("winner %q has no reported votes", w))
		}
		isWinner[w] = true
	}

	switch ctype {
	case Plurality:
		for _, w := range winners {
			for name, votes := range tally {
				if isWinner[name] {
					continue
				}
				if tally[w] <= votes {
					return nil, core.NewInvalidContestError(
						fmt.Sprintf("winner %q does not strictly exceed %q", w, name))
				}
			}
		}
	case Majority:
		for _, w := range winners {
			// Strict majority: 2*Vw > N covers odd ballot counts exactly.
			if 2*tally[w] <= ballots {
				return nil, core.NewInvalidContestError(
					fmt.Sprintf("majority winner %q does not exceed half the ballots", w))
			}
		}
	default:
		return nil, core.NewInvalidContestError(fmt.Sprintf("unknown contest type %q", ctype))
	}

	c := &Contest{
		Ballots: ballots,
		Tally:   make(map[string]int, len(tally)),
		Winners: append([]string(nil), winners...),
		Type:    ctype,
	}
	for name, votes := range tally {
		c.Tally[name] = votes
	}
	return c, nil
}

// Candidates returns the candidate names in deterministic order.
func (c *Contest) Candidates() []string {
	names := make([]string, 0, len(c.Tally))
	for name := range c.Tally {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsWinner reports whether name is a reported winner.
func (c *Contest) IsWinner(name string) bool {
	for _, w := range c.Winners {
		if w == name {
			return true
		}
	}
	return false
}

// TopLoser returns the non-winner with the largest reported tally.
func (c *Contest) TopLoser() (string, error) {
	best := ""
	bestVotes := -1
	for _, name := range c.Candidates() {
		if c.IsWinner(name) {
			continue
		}
		if c.Tally[name] > bestVotes {
			best = name
			bestVotes = c.Tally[name]
		}
	}
	if best == "" {
		return "", core.NewInvalidContestError("contest has no reported loser")
	}
	return best, nil
}

// PairwiseReduction reduces the contest to a reported winner versus a
// reported loser.
//
// For MAJORITY contests the loser side absorbs every non-winner ballot plus
// undervotes, and the pool is the full ballot count. For PLURALITY contests
// the pool follows the given policy.
func (c *Contest) PairwiseReduction(winner, loser string, policy PoolPolicy) (Pairwise, error) {
	if !c.IsWinner(winner) {
		return Pairwise{}, core.NewInvalidContestError(fmt.Sprintf("%q is not a reported winner", winner))
	}
	if c.IsWinner(loser) {
		return Pairwise{}, core.NewInvalidContestError(fmt.Sprintf("%q is not a reported loser", loser))
	}
	if _, ok := c.Tally[loser]; !ok && c.Type == Plurality {
		return Pairwise{}, core.NewInvalidContestError(fmt.Sprintf("loser %q not in tallies", loser))
	}

	vw := c.Tally[winner]
	var vl, pool int
	switch c.Type {
	case Majority:
		vl = c.Ballots - vw
		pool = c.Ballots
	default:
		vl = c.Tally[loser]
		if policy == PoolFull {
			pool = c.Ballots
		} else {
			pool = vw + vl
		}
	}

	if vw <= vl {
		return Pairwise{}, core.NewInvalidContestError("reported winner does not lead reported loser")
	}
	return Pairwise{
		Winner:         winner,
		Loser:          loser,
		WinnerBallots:  vw,
		LoserBallots:   vl,
		Pool:           pool,
		ContestBallots: c.Ballots,
		Type:           c.Type,
	}, nil
}

// Margin returns the reported pairwise margin (Vw - Vl) / pool.
func (p Pairwise) Margin() float64 {
	return float64(p.WinnerBallots-p.LoserBallots) / float64(p.Pool)
}

// WinnerShare returns the announced winner proportion Vw / pool.
func (p Pairwise) WinnerShare() float64 {
	return float64(p.WinnerBallots) / float64(p.Pool)
}

// TiedShare returns the null proportion under an exactly tied pool.
// Not 0.5 for odd pools.
func (p Pairwise) TiedShare() float64 {
	return float64(p.Pool/2) / float64(p.Pool)
}

// contestRecord is the JSON wire form of a contest file.
type contestRecord struct {
	Ballots int            `json:"ballots"`
	Tallies map[string]int `json:"tallies"`
	Winners []string       `json:"winners"`
	Type    string         `json:"type"`
}

// FromRecord builds a validated Contest from its plain wire record.
func FromRecord(data []byte) (*Contest, error) {
	var rec contestRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, core.NewInvalidContestError(fmt.Sprintf("malformed contest record: %v", err))
	}
	ctype, err := ParseContestType(rec.Type)
	if err != nil {
		return nil, err
	}
	return New(rec.Ballots, rec.Tallies, rec.Winners, ctype)
}

// LoadContestFile reads and validates a contest JSON file.
func LoadContestFile(path string) (*Contest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read contest file: %w", err)
	}
	return FromRecord(data)
}
