package excel

import (
	"fmt"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"gorla/internal/audit"
	"gorla/ports"
)

// TranscriptWriter exports audit records as Excel workbooks, one sheet
// per audit.
type TranscriptWriter struct {
	dir string
}

// NewTranscriptWriter creates a writer placing workbooks under dir.
func NewTranscriptWriter(dir string) ports.TranscriptExporter {
	return &TranscriptWriter{dir: dir}
}

// Export writes the record to <dir>/audit-<id>.xlsx and returns the path.
func (w *TranscriptWriter) Export(rec audit.Record) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Transcript"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return "", err
	}

	params := [][]interface{}{
		{"Audit ID", rec.ID.String()},
		{"Engine", string(rec.Engine)},
		{"Risk limit", rec.Alpha},
		{"Delta", rec.Delta},
		{"Max fraction", rec.MaxFraction},
		{"Winner", fmt.Sprintf("%s (%d)", rec.Winner, rec.WinnerVotes)},
		{"Loser", fmt.Sprintf("%s (%d)", rec.Loser, rec.LoserVotes)},
		{"Pool", rec.Pool},
		{"Status", string(rec.Status)},
		{"Reason", string(rec.Reason)},
	}
	for i, row := range params {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return "", err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return "", err
		}
	}

	headerRow := len(params) + 2
	header := []interface{}{"Round", "Size", "Winner ballots", "Loser ballots", "kmin", "Risk", "Decision"}
	cell, err := excelize.CoordinatesToCellName(1, headerRow)
	if err != nil {
		return "", err
	}
	if err := f.SetSheetRow(sheet, cell, &header); err != nil {
		return "", err
	}

	for i, r := range rec.Rounds {
		var kmin interface{}
		if r.Kmin != nil {
			kmin = *r.Kmin
		}
		row := []interface{}{r.Index, r.Size, r.WinnerBallots, r.LoserBallots, kmin, r.Risk, r.Decision}
		cell, err := excelize.CoordinatesToCellName(1, headerRow+1+i)
		if err != nil {
			return "", err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return "", err
		}
	}

	path := filepath.Join(w.dir, fmt.Sprintf("audit-%s.xlsx", rec.ID))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}
	return path, nil
}
