package excel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"gorla/domain/core"
	"gorla/internal/audit"
	"gorla/internal/engine"
)

func sampleRecord() audit.Record {
	kmin := 64
	return audit.Record{
		ID:          core.NewAuditID(),
		Engine:      engine.TagMinerva,
		Alpha:       0.1,
		MaxFraction: 0.1,
		Winner:      "A",
		Loser:       "B",
		WinnerVotes: 60000,
		LoserVotes:  40000,
		Pool:        100000,
		Status:      audit.StatusStopped,
		Reason:      audit.ReasonRiskMet,
		Rounds: []audit.Round{
			{Index: 1, Size: 100, WinnerBallots: 60, LoserBallots: 40, Kmin: &kmin, Risk: 0.052, Decision: "STOP"},
		},
		CreatedAt: core.Now(),
	}
}

func TestTranscriptWriter_Export(t *testing.T) {
	dir := t.TempDir()
	writer := NewTranscriptWriter(dir)

	path, err := writer.Export(sampleRecord())
	require.NoError(t, err)
	require.Contains(t, path, dir)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	engineCell, err := f.GetCellValue("Transcript", "B2")
	require.NoError(t, err)
	assert.Equal(t, "minerva", engineCell)

	// Header row sits two rows under the parameter block.
	header, err := f.GetCellValue("Transcript", "A12")
	require.NoError(t, err)
	assert.Equal(t, "Round", header)

	size, err := f.GetCellValue("Transcript", "B13")
	require.NoError(t, err)
	assert.Equal(t, "100", size)
}
