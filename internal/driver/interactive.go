// Package driver implements the terminal surfaces over the audit core:
// the interactive prompt loop and the bulk round-schedule replay. Both
// read and write plain streams so they can be scripted and tested.
package driver

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gorla/domain/election"
	"gorla/internal/audit"
	"gorla/internal/engine"
)

// ErrInputClosed reports that the input stream ended mid-session.
var ErrInputClosed = errors.New("input stream closed")

// Interactive drives an audit round by round from a prompt loop.
type Interactive struct {
	in  *bufio.Scanner
	out io.Writer
}

// NewInteractive creates an interactive session over the given streams.
func NewInteractive(in io.Reader, out io.Writer) *Interactive {
	return &Interactive{in: bufio.NewScanner(in), out: out}
}

func (s *Interactive) printf(format string, args ...interface{}) {
	fmt.Fprintf(s.out, format, args...)
}

// readLine fetches the next input line, failing when the stream ends.
func (s *Interactive) readLine() (string, error) {
	if !s.in.Scan() {
		return "", ErrInputClosed
	}
	return strings.TrimSpace(s.in.Text()), nil
}

// promptInt keeps prompting until a valid integer in [lo, hi] arrives.
func (s *Interactive) promptInt(prompt string, lo, hi int) (int, error) {
	for {
		s.printf("%s: ", prompt)
		line, err := s.readLine()
		if err != nil {
			return 0, err
		}
		v, err := strconv.Atoi(line)
		if err != nil || v < lo || v > hi {
			s.printf("Please enter an integer between %d and %d.\n", lo, hi)
			continue
		}
		return v, nil
	}
}

// promptFloat keeps prompting until a valid float in (lo, hi) arrives,
// or in (lo, hi] when inclusiveHi is set.
func (s *Interactive) promptFloat(prompt string, lo, hi float64, inclusiveHi bool) (float64, error) {
	for {
		s.printf("%s: ", prompt)
		line, err := s.readLine()
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseFloat(line, 64)
		ok := err == nil && v > lo && (v < hi || (inclusiveHi && v == hi))
		if !ok {
			s.printf("Please enter a number between %g and %g.\n", lo, hi)
			continue
		}
		return v, nil
	}
}

func (s *Interactive) promptString(prompt string) (string, error) {
	for {
		s.printf("%s: ", prompt)
		line, err := s.readLine()
		if err != nil {
			return "", err
		}
		if line == "" {
			s.printf("Please enter a value.\n")
			continue
		}
		return line, nil
	}
}

func (s *Interactive) promptYesNo(prompt string) (bool, error) {
	for {
		s.printf("%s (y/n): ", prompt)
		line, err := s.readLine()
		if err != nil {
			return false, err
		}
		switch strings.ToLower(line) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		s.printf("Please answer y or n.\n")
	}
}

// promptContest collects the contest fields in their fixed order.
func (s *Interactive) promptContest() (*election.Contest, error) {
	for {
		ballots, err := s.promptInt("Enter total number of ballots cast", 1, 1<<40)
		if err != nil {
			return nil, err
		}
		numCandidates, err := s.promptInt("Enter number of candidates", 2, 1000)
		if err != nil {
			return nil, err
		}
		tally := make(map[string]int, numCandidates)
		for i := 0; i < numCandidates; i++ {
			name, err := s.promptString(fmt.Sprintf("Enter name of candidate %d", i+1))
			if err != nil {
				return nil, err
			}
			votes, err := s.promptInt(fmt.Sprintf("Enter reported votes for %s", name), 0, ballots)
			if err != nil {
				return nil, err
			}
			tally[name] = votes
		}
		numWinners, err := s.promptInt("Enter number of winners", 1, numCandidates-1)
		if err != nil {
			return nil, err
		}
		winners := make([]string, 0, numWinners)
		for i := 0; i < numWinners; i++ {
			w, err := s.promptString(fmt.Sprintf("Enter name of winner %d", i+1))
			if err != nil {
				return nil, err
			}
			winners = append(winners, w)
		}
		typeStr, err := s.promptString("Enter contest type (PLURALITY or MAJORITY)")
		if err != nil {
			return nil, err
		}
		ctype, err := election.ParseContestType(strings.ToUpper(typeStr))
		if err != nil {
			s.printf("%v\n", err)
			continue
		}
		contest, err := election.New(ballots, tally, winners, ctype)
		if err != nil {
			s.printf("%v\n", err)
			continue
		}
		return contest, nil
	}
}

// Run executes the full interactive session. A clean completion (the
// audit reaching any terminal state) returns nil; a closed input stream
// returns ErrInputClosed.
func (s *Interactive) Run() error {
	s.printf("\nWelcome to the gorla auditing tool!\n\n")

	var tag engine.Tag
	for {
		raw, err := s.promptString("Select an audit type (brla, minerva, athena, bravo)")
		if err != nil {
			return err
		}
		tag, err = engine.ParseTag(strings.ToLower(raw))
		if err != nil {
			s.printf("%v\n", err)
			continue
		}
		break
	}
	alpha, err := s.promptFloat("Enter desired risk limit (e.g. use 0.1 for 10%)", 0, 1, false)
	if err != nil {
		return err
	}
	maxFraction, err := s.promptFloat("Enter maximum fraction of ballots to draw during audit", 0, 1, true)
	if err != nil {
		return err
	}
	delta := 1.0
	if tag == engine.TagAthena {
		delta, err = s.promptFloat("Enter delta", 0, 1e9, true)
		if err != nil {
			return err
		}
	}

	contest, err := s.promptContest()
	if err != nil {
		return err
	}
	winner := contest.Winners[0]
	loser, err := contest.TopLoser()
	if err != nil {
		s.printf("%v\n", err)
		return err
	}
	pair, err := contest.PairwiseReduction(winner, loser, election.PoolRelevant)
	if err != nil {
		s.printf("%v\n", err)
		return err
	}
	eng, err := engine.New(tag, pair, engine.Params{Alpha: alpha, Delta: delta})
	if err != nil {
		s.printf("%v\n", err)
		return err
	}
	a, err := audit.New(pair, eng, maxFraction)
	if err != nil {
		s.printf("%v\n", err)
		return err
	}

	s.printf("\nAuditing %s (%d) vs %s (%d) at risk limit %g, drawing at most %d ballots.\n",
		pair.Winner, pair.WinnerBallots, pair.Loser, pair.LoserBallots, alpha, a.MaxSampleSize())

	for !a.Status().Complete() {
		wantRec, err := s.promptYesNo("Would you like a recommended sample size for this round?")
		if err != nil {
			return err
		}
		if wantRec {
			target, err := s.promptFloat("Enter target stopping probability", 0, 1, false)
			if err != nil {
				return err
			}
			rec, err := a.NextSampleSize(target)
			if err != nil {
				s.printf("%v\n", err)
			} else {
				s.printf("Recommended next sample size: %d\n", rec.SampleSize)
			}
		}

		n, err := s.promptInt("Enter next sample size (as a running total)", 1, a.MaxSampleSize())
		if err != nil {
			return err
		}
		kw, err := s.promptInt(fmt.Sprintf("Enter total number of votes for %s found in sample", pair.Winner), 0, n)
		if err != nil {
			return err
		}
		kl, err := s.promptInt(fmt.Sprintf("Enter total number of votes for %s found in sample", pair.Loser), 0, n)
		if err != nil {
			return err
		}

		dec, err := a.ExecuteRound(n, kw, kl)
		if err != nil {
			s.printf("%v\n", err)
			continue
		}
		printBanner(s.out, len(a.Transcript()), dec)

		if !dec.Stopped && !a.Status().Complete() {
			force, err := s.promptYesNo("Would you like to force stop the audit")
			if err != nil {
				return err
			}
			if force {
				if err := a.ForceStop(); err != nil {
					s.printf("%v\n", err)
				}
			}
		}
	}

	s.printf("\nAudit complete: %s (%s)\n", a.Status(), a.Reason())
	return nil
}

// printBanner renders the per-round result banner.
func printBanner(out io.Writer, round int, dec audit.Decision) {
	met := "False"
	if dec.Stopped {
		met = "True"
	}
	kmin := "none"
	if dec.Kmin != nil {
		kmin = strconv.Itoa(*dec.Kmin)
	}
	fmt.Fprintf(out, "\n---------- Round %d ----------\n", round)
	fmt.Fprintf(out, "Risk level: %.6g\n", dec.Risk)
	fmt.Fprintf(out, "Minimum winner ballots to stop: %s\n", kmin)
	fmt.Fprintf(out, "Stopping Condition Met? %s\n", met)
	fmt.Fprintf(out, "------------------------------\n")
}
