package postgres

import (
	"github.com/jmoiron/sqlx"
)

// Migrate creates the archive schema if it does not exist
func Migrate(db *sqlx.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS audits (
		id UUID PRIMARY KEY,
		engine TEXT NOT NULL,
		alpha DOUBLE PRECISION NOT NULL,
		delta DOUBLE PRECISION NOT NULL DEFAULT 0,
		max_fraction DOUBLE PRECISION NOT NULL,
		winner TEXT NOT NULL,
		loser TEXT NOT NULL,
		winner_votes INTEGER NOT NULL,
		loser_votes INTEGER NOT NULL,
		pool INTEGER NOT NULL,
		status TEXT NOT NULL,
		reason TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS audit_rounds (
		audit_id UUID NOT NULL REFERENCES audits(id) ON DELETE CASCADE,
		round INTEGER NOT NULL,
		size INTEGER NOT NULL,
		winner_ballots INTEGER NOT NULL,
		loser_ballots INTEGER NOT NULL,
		kmin INTEGER,
		risk DOUBLE PRECISION NOT NULL,
		decision TEXT NOT NULL,
		PRIMARY KEY (audit_id, round)
	);
	`
	_, err := db.Exec(schema)
	return err
}
