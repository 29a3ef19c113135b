package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"gorla/domain/core"
	"gorla/internal/audit"
	"gorla/internal/engine"
	"gorla/ports"
)

// AuditRepositoryImpl implements the AuditArchive port for PostgreSQL
type AuditRepositoryImpl struct {
	db *sqlx.DB
}

// NewAuditRepository creates a new PostgreSQL audit archive
func NewAuditRepository(db *sqlx.DB) ports.AuditArchive {
	return &AuditRepositoryImpl{db: db}
}

type auditRow struct {
	ID          string    `db:"id"`
	Engine      string    `db:"engine"`
	Alpha       float64   `db:"alpha"`
	Delta       float64   `db:"delta"`
	MaxFraction float64   `db:"max_fraction"`
	Winner      string    `db:"winner"`
	Loser       string    `db:"loser"`
	WinnerVotes int       `db:"winner_votes"`
	LoserVotes  int       `db:"loser_votes"`
	Pool        int       `db:"pool"`
	Status      string    `db:"status"`
	Reason      string    `db:"reason"`
	CreatedAt   time.Time `db:"created_at"`
}

type roundRow struct {
	AuditID       string  `db:"audit_id"`
	Round         int     `db:"round"`
	Size          int     `db:"size"`
	WinnerBallots int     `db:"winner_ballots"`
	LoserBallots  int     `db:"loser_ballots"`
	Kmin          *int    `db:"kmin"`
	Risk          float64 `db:"risk"`
	Decision      string  `db:"decision"`
}

// SaveAudit upserts an audit record and rewrites its rounds atomically
func (r *AuditRepositoryImpl) SaveAudit(ctx context.Context, rec audit.Record) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO audits (id, engine, alpha, delta, max_fraction, winner, loser,
			winner_votes, loser_votes, pool, status, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, reason = EXCLUDED.reason
	`, rec.ID.String(), string(rec.Engine), rec.Alpha, rec.Delta, rec.MaxFraction,
		rec.Winner, rec.Loser, rec.WinnerVotes, rec.LoserVotes, rec.Pool,
		string(rec.Status), string(rec.Reason), rec.CreatedAt.Time())
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM audit_rounds WHERE audit_id = $1`, rec.ID.String()); err != nil {
		return err
	}
	for _, round := range rec.Rounds {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO audit_rounds (audit_id, round, size, winner_ballots, loser_ballots, kmin, risk, decision)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, rec.ID.String(), round.Index, round.Size, round.WinnerBallots,
			round.LoserBallots, round.Kmin, round.Risk, round.Decision)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetAudit retrieves an audit record with its rounds
func (r *AuditRepositoryImpl) GetAudit(ctx context.Context, id core.AuditID) (audit.Record, error) {
	var row auditRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, engine, alpha, delta, max_fraction, winner, loser,
			winner_votes, loser_votes, pool, status, reason, created_at
		FROM audits WHERE id = $1
	`, id.String())
	if err != nil {
		return audit.Record{}, fmt.Errorf("%w: %s", core.ErrAuditNotFound, id)
	}

	var roundRows []roundRow
	err = r.db.SelectContext(ctx, &roundRows, `
		SELECT audit_id, round, size, winner_ballots, loser_ballots, kmin, risk, decision
		FROM audit_rounds WHERE audit_id = $1 ORDER BY round
	`, id.String())
	if err != nil {
		return audit.Record{}, err
	}
	return toRecord(row, roundRows), nil
}

// ListAudits returns all archived audits, rounds included
func (r *AuditRepositoryImpl) ListAudits(ctx context.Context) ([]audit.Record, error) {
	var rows []auditRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, engine, alpha, delta, max_fraction, winner, loser,
			winner_votes, loser_votes, pool, status, reason, created_at
		FROM audits ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	records := make([]audit.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := r.GetAudit(ctx, core.AuditID(row.ID))
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func toRecord(row auditRow, rounds []roundRow) audit.Record {
	rec := audit.Record{
		ID:          core.AuditID(row.ID),
		Engine:      engine.Tag(row.Engine),
		Alpha:       row.Alpha,
		Delta:       row.Delta,
		MaxFraction: row.MaxFraction,
		Winner:      row.Winner,
		Loser:       row.Loser,
		WinnerVotes: row.WinnerVotes,
		LoserVotes:  row.LoserVotes,
		Pool:        row.Pool,
		Status:      audit.Status(row.Status),
		Reason:      audit.Reason(row.Reason),
		CreatedAt:   core.At(row.CreatedAt),
	}
	for _, rr := range rounds {
		rec.Rounds = append(rec.Rounds, audit.Round{
			Index:         rr.Round,
			Size:          rr.Size,
			WinnerBallots: rr.WinnerBallots,
			LoserBallots:  rr.LoserBallots,
			Kmin:          rr.Kmin,
			Risk:          rr.Risk,
			Decision:      rr.Decision,
		})
	}
	return rec
}
