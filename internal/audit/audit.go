// Package audit implements the round-by-round lifecycle shared by every
// risk engine: transcript bookkeeping, observation validation, risk
// accumulation and the stop/continue decision.
package audit

import (
	"fmt"
	"math"

	"gorla/domain/core"
	"gorla/domain/election"
	"gorla/internal/engine"
)

// Status is the lifecycle state of an audit.
type Status string

const (
	StatusNotStarted Status = "NOT_STARTED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusStopped    Status = "COMPLETE_STOPPED"
	StatusExhausted  Status = "COMPLETE_EXHAUSTED"
	StatusForced     Status = "COMPLETE_FORCED"
)

// Complete reports whether the audit has reached a terminal state.
func (s Status) Complete() bool {
	return s == StatusStopped || s == StatusExhausted || s == StatusForced
}

// Reason records why an audit stopped.
type Reason string

const (
	ReasonNone        Reason = "NONE"
	ReasonRiskMet     Reason = "RISK_MET"
	ReasonForced      Reason = "FORCED"
	ReasonExceededMax Reason = "EXCEEDED_MAX"
)

// Decision is the outcome of a single executed round.
type Decision struct {
	Stopped bool    `json:"stopped"`
	Risk    float64 `json:"risk"`
	Kmin    *int    `json:"kmin"`
}

// Round is one immutable transcript entry. Counts are cumulative.
type Round struct {
	Index         int     `json:"round"`
	Size          int     `json:"size"`
	WinnerBallots int     `json:"winner_ballots"`
	LoserBallots  int     `json:"loser_ballots"`
	Kmin          *int    `json:"kmin"`
	Risk          float64 `json:"risk"`
	Decision      string  `json:"decision"`
}

const (
	decisionStop     = "STOP"
	decisionContinue = "CONTINUE"
)

// Audit owns the mutable state of one running audit: its transcript,
// current risk and lifecycle status. A single caller drives it at a
// time; the underlying engine and contest are never mutated.
type Audit struct {
	id          core.AuditID
	pair        election.Pairwise
	eng         engine.Engine
	maxFraction float64
	maxSample   int

	status Status
	reason Reason
	risk   float64
	rounds []Round
}

// New creates an audit over a pairwise contest with the given engine.
func New(pair election.Pairwise, eng engine.Engine, maxFraction float64) (*Audit, error) {
	if maxFraction <= 0 || maxFraction > 1 {
		return nil, core.NewInvalidParamsError("max fraction to draw", "must be in (0, 1]")
	}
	maxSample := int(math.Floor(maxFraction * float64(pair.ContestBallots)))
	if maxSample > pair.Pool {
		maxSample = pair.Pool
	}
	if maxSample < 1 {
		return nil, core.NewInvalidParamsError("max fraction to draw", "permits no ballots at all")
	}
	return &Audit{
		id:          core.NewAuditID(),
		pair:        pair,
		eng:         eng,
		maxFraction: maxFraction,
		maxSample:   maxSample,
		status:      StatusNotStarted,
		reason:      ReasonNone,
		risk:        1,
	}, nil
}

// ID returns the audit identifier.
func (a *Audit) ID() core.AuditID { return a.id }

// Engine returns the active risk engine.
func (a *Audit) Engine() engine.Engine { return a.eng }

// Pair returns the pairwise contest under audit.
func (a *Audit) Pair() election.Pairwise { return a.pair }

// Status returns the lifecycle state.
func (a *Audit) Status() Status { return a.status }

// Reason returns why the audit completed, or ReasonNone.
func (a *Audit) Reason() Reason { return a.reason }

// Risk returns the current risk measure.
func (a *Audit) Risk() float64 { return a.risk }

// MaxFraction returns the configured draw cap as a fraction.
func (a *Audit) MaxFraction() float64 { return a.maxFraction }

// MaxSampleSize returns the largest permissible cumulative sample.
func (a *Audit) MaxSampleSize() int { return a.maxSample }

// Transcript returns a copy of the executed rounds.
func (a *Audit) Transcript() []Round {
	out := make([]Round, len(a.rounds))
	copy(out, a.rounds)
	return out
}

func (a *Audit) lastRound() (Round, bool) {
	if len(a.rounds) == 0 {
		return Round{}, false
	}
	return a.rounds[len(a.rounds)-1], true
}

// validateObservation checks a new cumulative observation against the
// transcript without mutating any state.
func (a *Audit) validateObservation(n, kw, kl int) error {
	if a.status.Complete() {
		return fmt.Errorf("%w: status %s", core.ErrAuditComplete, a.status)
	}
	if kw < 0 || kl < 0 {
		return core.NewInvalidRoundError("observed counts must be non-negative")
	}
	if n > a.maxSample {
		return core.NewInvalidRoundError(
			fmt.Sprintf("cumulative sample %d exceeds the maximum of %d", n, a.maxSample))
	}
	prevN, prevKw, prevKl := 0, 0, 0
	if last, ok := a.lastRound(); ok {
		prevN, prevKw, prevKl = last.Size, last.WinnerBallots, last.LoserBallots
	}
	if n <= prevN {
		return core.NewInvalidRoundError("cumulative sample sizes must strictly increase")
	}
	if kw < prevKw || kl < prevKl {
		return core.NewInvalidRoundError("cumulative counts cannot decrease")
	}
	if (kw-prevKw)+(kl-prevKl) > n-prevN {
		return core.NewInvalidRoundError("new winner and loser ballots exceed the round delta")
	}
	return nil
}

// ExecuteRound records a cumulative observation (sample size, winner
// count, loser count), computes the engine risk and decides whether the
// audit stops. Validation failures leave the audit untouched.
func (a *Audit) ExecuteRound(n, kw, kl int) (Decision, error) {
	if err := a.validateObservation(n, kw, kl); err != nil {
		return Decision{}, err
	}

	risk, err := a.eng.PValue(n, kw)
	if err != nil {
		// A numeric failure is reported without consuming the round;
		// the caller may retry with a different sample size.
		return Decision{}, err
	}

	var kminPtr *int
	if kmin, ok := a.eng.Kmin(n); ok {
		k := kmin
		kminPtr = &k
	}

	a.risk = risk
	stopped := risk <= a.eng.Alpha()
	decision := decisionContinue
	switch {
	case stopped:
		a.status = StatusStopped
		a.reason = ReasonRiskMet
		decision = decisionStop
	case n >= a.maxSample:
		a.status = StatusExhausted
		a.reason = ReasonExceededMax
	default:
		a.status = StatusInProgress
	}

	a.rounds = append(a.rounds, Round{
		Index:         len(a.rounds) + 1,
		Size:          n,
		WinnerBallots: kw,
		LoserBallots:  kl,
		Kmin:          kminPtr,
		Risk:          risk,
		Decision:      decision,
	})
	return Decision{Stopped: stopped, Risk: risk, Kmin: kminPtr}, nil
}

// ForceStop ends an in-progress audit without the risk condition being
// met. The transcript keeps its rounds; the completion reason carries
// the forced flag.
func (a *Audit) ForceStop() error {
	if a.status != StatusInProgress {
		return fmt.Errorf("%w: force stop requires an in-progress audit", core.ErrInvalidRound)
	}
	a.status = StatusForced
	a.reason = ReasonForced
	return nil
}

// NextSampleSize recommends the smallest round size from which the
// stopping probability under the announced tallies reaches target and
// stays there for every larger size (see engine.NextSampleSize).
func (a *Audit) NextSampleSize(target float64) (engine.Recommendation, error) {
	if a.status.Complete() {
		return engine.Recommendation{}, fmt.Errorf("%w: status %s", core.ErrAuditComplete, a.status)
	}
	rec, err := engine.NextSampleSize(a.eng, a.maxSample, target)
	if err != nil {
		return engine.Recommendation{}, err
	}
	if last, ok := a.lastRound(); ok && rec.SampleSize <= last.Size {
		// The naive recommendation is already behind the transcript;
		// the next draw must at least extend it.
		rec.SampleSize = last.Size + 1
		if rec.SampleSize > a.maxSample {
			return engine.Recommendation{}, &engine.UnattainableError{Best: 0, MaxSize: a.maxSample}
		}
		if kmin, ok := a.eng.Kmin(rec.SampleSize); ok {
			rec.Kmin = kmin
		}
		if p, err := a.eng.StoppingProb(rec.SampleSize); err == nil {
			rec.Prob = p
		}
	}
	return rec, nil
}
