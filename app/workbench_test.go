package app

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gorla/domain/core"
	"gorla/domain/election"
	"gorla/internal/audit"
	"gorla/internal/engine"
)

// memoryArchive keeps saved records in memory for assertions.
type memoryArchive struct {
	saved []audit.Record
}

func (m *memoryArchive) SaveAudit(_ context.Context, rec audit.Record) error {
	m.saved = append(m.saved, rec)
	return nil
}

func (m *memoryArchive) GetAudit(_ context.Context, id core.AuditID) (audit.Record, error) {
	for _, rec := range m.saved {
		if rec.ID == id {
			return rec, nil
		}
	}
	return audit.Record{}, core.ErrAuditNotFound
}

func (m *memoryArchive) ListAudits(_ context.Context) ([]audit.Record, error) {
	return m.saved, nil
}

func testContest(t *testing.T) *election.Contest {
	t.Helper()
	contest, err := election.New(100000, map[string]int{"A": 60000, "B": 40000}, []string{"A"}, election.Majority)
	require.NoError(t, err)
	return contest
}

func TestWorkbench_FullLifecycle(t *testing.T) {
	archive := &memoryArchive{}
	w := NewWorkbench(archive, nil)

	id, err := w.CreateAudit(AuditRequest{
		Contest:     testContest(t),
		Engine:      engine.TagMinerva,
		Alpha:       0.1,
		MaxFraction: 0.1,
	})
	require.NoError(t, err)

	rec, err := w.Recommend(id, 0.7)
	require.NoError(t, err)
	assert.Equal(t, 111, rec.SampleSize)

	dec, err := w.ExecuteRound(context.Background(), id, 100, 60, 40)
	require.NoError(t, err)
	assert.True(t, dec.Stopped)

	// Completion archives the record.
	require.Len(t, archive.saved, 1)
	assert.Equal(t, audit.StatusStopped, archive.saved[0].Status)

	record, err := w.Record(id)
	require.NoError(t, err)
	assert.Len(t, record.Rounds, 1)

	md, err := w.Report(id)
	require.NoError(t, err)
	assert.True(t, strings.Contains(md, "COMPLETE_STOPPED"))
}

func TestWorkbench_ForceStopArchives(t *testing.T) {
	archive := &memoryArchive{}
	w := NewWorkbench(archive, nil)

	id, err := w.CreateAudit(AuditRequest{
		Contest:     testContest(t),
		Engine:      engine.TagBRAVO,
		Alpha:       0.1,
		MaxFraction: 0.1,
	})
	require.NoError(t, err)

	_, err = w.ExecuteRound(context.Background(), id, 100, 52, 48)
	require.NoError(t, err)
	require.Empty(t, archive.saved)

	require.NoError(t, w.ForceStop(context.Background(), id))
	require.Len(t, archive.saved, 1)
	assert.Equal(t, audit.ReasonForced, archive.saved[0].Reason)
}

func TestWorkbench_DefaultsWinnerAndLoser(t *testing.T) {
	w := NewWorkbench(nil, nil)
	contest, err := election.New(1000, map[string]int{"A": 500, "B": 300, "C": 150}, []string{"A"}, election.Plurality)
	require.NoError(t, err)

	id, err := w.CreateAudit(AuditRequest{
		Contest:     contest,
		Engine:      engine.TagBRLA,
		Alpha:       0.1,
		MaxFraction: 0.2,
	})
	require.NoError(t, err)

	rec, err := w.Record(id)
	require.NoError(t, err)
	assert.Equal(t, "A", rec.Winner)
	assert.Equal(t, "B", rec.Loser)
	assert.Equal(t, 800, rec.Pool)
}

func TestWorkbench_UnknownAudit(t *testing.T) {
	w := NewWorkbench(nil, nil)
	_, err := w.Record(core.NewAuditID())
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestWorkbench_InvalidRequests(t *testing.T) {
	w := NewWorkbench(nil, nil)
	contest := testContest(t)

	cases := []struct {
		name string
		req  AuditRequest
	}{
		{"missing contest", AuditRequest{Engine: engine.TagMinerva, Alpha: 0.1, MaxFraction: 0.1}},
		{"bad engine", AuditRequest{Contest: contest, Engine: engine.Tag("nope"), Alpha: 0.1, MaxFraction: 0.1}},
		{"bad alpha", AuditRequest{Contest: contest, Engine: engine.TagMinerva, Alpha: 2, MaxFraction: 0.1}},
		{"bad fraction", AuditRequest{Contest: contest, Engine: engine.TagMinerva, Alpha: 0.1, MaxFraction: 0}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := w.CreateAudit(c.req)
			assert.Error(t, err)
		})
	}
}
