// Package app wires the audit core to its collaborators: session
// bookkeeping, archiving and export.
package app

import (
	"context"
	"fmt"
	"sync"

	"gorla/domain/core"
	"gorla/domain/election"
	"gorla/internal/audit"
	"gorla/internal/engine"
	"gorla/internal/report"
	"gorla/ports"
)

// AuditRequest describes a new audit over a contest record.
type AuditRequest struct {
	Contest     *election.Contest
	Winner      string // empty selects the first reported winner
	Loser       string // empty selects the top reported loser
	Engine      engine.Tag
	Alpha       float64
	Delta       float64
	MaxFraction float64
	PoolPolicy  election.PoolPolicy
}

// session pairs a live audit with the parameters it was built from.
type session struct {
	audit *audit.Audit
	delta float64
}

// Workbench is the orchestration service for running audits. It owns
// the live audit sessions; archive and exporter are optional.
type Workbench struct {
	mu       sync.RWMutex
	sessions map[core.AuditID]*session

	archive  ports.AuditArchive
	exporter ports.TranscriptExporter
}

// NewWorkbench creates a workbench. Both collaborators may be nil.
func NewWorkbench(archive ports.AuditArchive, exporter ports.TranscriptExporter) *Workbench {
	return &Workbench{
		sessions: make(map[core.AuditID]*session),
		archive:  archive,
		exporter: exporter,
	}
}

// CreateAudit validates the request, constructs the engine and
// registers a new audit session.
func (w *Workbench) CreateAudit(req AuditRequest) (core.AuditID, error) {
	if req.Contest == nil {
		return "", core.NewInvalidContestError("contest is required")
	}
	winner := req.Winner
	if winner == "" {
		winner = req.Contest.Winners[0]
	}
	loser := req.Loser
	if loser == "" {
		top, err := req.Contest.TopLoser()
		if err != nil {
			return "", err
		}
		loser = top
	}
	policy := req.PoolPolicy
	if policy == "" {
		policy = election.PoolRelevant
	}
	pair, err := req.Contest.PairwiseReduction(winner, loser, policy)
	if err != nil {
		return "", err
	}
	eng, err := engine.New(req.Engine, pair, engine.Params{
		Alpha: req.Alpha,
		Delta: req.Delta,
	})
	if err != nil {
		return "", err
	}
	a, err := audit.New(pair, eng, req.MaxFraction)
	if err != nil {
		return "", err
	}

	w.mu.Lock()
	w.sessions[a.ID()] = &session{audit: a, delta: req.Delta}
	w.mu.Unlock()
	return a.ID(), nil
}

func (w *Workbench) get(id core.AuditID) (*session, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s, ok := w.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrAuditNotFound, id)
	}
	return s, nil
}

// ExecuteRound feeds a cumulative observation into an audit and
// archives the record once the audit completes.
func (w *Workbench) ExecuteRound(ctx context.Context, id core.AuditID, n, kw, kl int) (audit.Decision, error) {
	s, err := w.get(id)
	if err != nil {
		return audit.Decision{}, err
	}
	dec, err := s.audit.ExecuteRound(n, kw, kl)
	if err != nil {
		return audit.Decision{}, err
	}
	if s.audit.Status().Complete() && w.archive != nil {
		if err := w.archive.SaveAudit(ctx, s.audit.ToRecord(s.delta)); err != nil {
			return dec, fmt.Errorf("archive audit: %w", err)
		}
	}
	return dec, nil
}

// ForceStop force-stops an in-progress audit and archives it.
func (w *Workbench) ForceStop(ctx context.Context, id core.AuditID) error {
	s, err := w.get(id)
	if err != nil {
		return err
	}
	if err := s.audit.ForceStop(); err != nil {
		return err
	}
	if w.archive != nil {
		if err := w.archive.SaveAudit(ctx, s.audit.ToRecord(s.delta)); err != nil {
			return fmt.Errorf("archive audit: %w", err)
		}
	}
	return nil
}

// Recommend returns the smallest next round size from which every
// larger size also reaches the target stopping probability.
func (w *Workbench) Recommend(id core.AuditID, target float64) (engine.Recommendation, error) {
	s, err := w.get(id)
	if err != nil {
		return engine.Recommendation{}, err
	}
	return s.audit.NextSampleSize(target)
}

// Record snapshots an audit session.
func (w *Workbench) Record(id core.AuditID) (audit.Record, error) {
	s, err := w.get(id)
	if err != nil {
		return audit.Record{}, err
	}
	return s.audit.ToRecord(s.delta), nil
}

// Report renders the markdown report for an audit session.
func (w *Workbench) Report(id core.AuditID) (string, error) {
	s, err := w.get(id)
	if err != nil {
		return "", err
	}
	rec := s.audit.ToRecord(s.delta)
	sum, err := report.Summarize(rec, s.audit.Engine())
	if err != nil {
		return "", err
	}
	return report.Markdown(rec, sum), nil
}

// Export writes the transcript through the configured exporter.
func (w *Workbench) Export(id core.AuditID) (string, error) {
	if w.exporter == nil {
		return "", fmt.Errorf("no exporter configured")
	}
	s, err := w.get(id)
	if err != nil {
		return "", err
	}
	return w.exporter.Export(s.audit.ToRecord(s.delta))
}
