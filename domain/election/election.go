package election

import (
	"encoding/json"
	"fmt"
	"os"

	"gorla/domain/core"
)

// Election holds a collection of named contests.
type Election struct {
	Name     string              `json:"name"`
	Ballots  int                 `json:"total_ballots"`
	Contests map[string]*Contest `json:"contests"`
}

type electionRecord struct {
	Name     string                     `json:"name"`
	Ballots  int                        `json:"total_ballots"`
	Contests map[string]json.RawMessage `json:"contests"`
}

// NewElection validates and constructs an Election.
func NewElection(name string, ballots int, contests map[string]*Contest) (*Election, error) {
	if name == "" {
		return nil, core.NewInvalidContestError("election requires a name")
	}
	if len(contests) == 0 {
		return nil, core.NewInvalidContestError("election requires at least one contest")
	}
	for key, c := range contests {
		if c.Ballots > ballots && ballots > 0 {
			return nil, core.NewInvalidContestError(
				fmt.Sprintf("contest %q reports more ballots than the election", key))
		}
	}
	return &Election{Name: name, Ballots: ballots, Contests: contests}, nil
}

// LoadElectionFile reads and validates an election JSON file, validating
// each contained contest.
func LoadElectionFile(path string) (*Election, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read election file: %w", err)
	}
	var rec electionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, core.NewInvalidContestError(fmt.Sprintf("malformed election record: %v", err))
	}
	contests := make(map[string]*Contest, len(rec.Contests))
	for key, raw := range rec.Contests {
		c, err := FromRecord(raw)
		if err != nil {
			return nil, fmt.Errorf("contest %q: %w", key, err)
		}
		contests[key] = c
	}
	return NewElection(rec.Name, rec.Ballots, contests)
}
