package audit

import (
	"encoding/json"

	"gorla/domain/core"
	"gorla/internal/engine"
)

// Record is the serializable snapshot of an audit: parameters plus the
// full transcript. It is what the archive stores and the exporters
// consume.
type Record struct {
	ID          core.AuditID   `json:"id"`
	Engine      engine.Tag     `json:"engine"`
	Alpha       float64        `json:"alpha"`
	Delta       float64        `json:"delta,omitempty"`
	MaxFraction float64        `json:"max_fraction"`
	Winner      string         `json:"winner"`
	Loser       string         `json:"loser"`
	WinnerVotes int            `json:"winner_votes"`
	LoserVotes  int            `json:"loser_votes"`
	Pool        int            `json:"pool"`
	Status      Status         `json:"status"`
	Reason      Reason         `json:"reason"`
	Rounds      []Round        `json:"rounds"`
	CreatedAt   core.Timestamp `json:"created_at"`
}

// ToRecord snapshots the audit. Delta is meaningful only for Athena and
// left zero otherwise.
func (a *Audit) ToRecord(delta float64) Record {
	return Record{
		ID:          a.id,
		Engine:      a.eng.Tag(),
		Alpha:       a.eng.Alpha(),
		Delta:       delta,
		MaxFraction: a.maxFraction,
		Winner:      a.pair.Winner,
		Loser:       a.pair.Loser,
		WinnerVotes: a.pair.WinnerBallots,
		LoserVotes:  a.pair.LoserBallots,
		Pool:        a.pair.Pool,
		Status:      a.status,
		Reason:      a.reason,
		Rounds:      a.Transcript(),
		CreatedAt:   core.Now(),
	}
}

// TranscriptJSON serializes the rounds alone, the wire layout consumed
// by downstream transcript tooling.
func (a *Audit) TranscriptJSON() ([]byte, error) {
	return json.MarshalIndent(a.Transcript(), "", "  ")
}
