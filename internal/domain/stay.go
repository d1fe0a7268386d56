package domain

import "time"

// Stay is one residency interval of a lote inside a zone
// (corresponds to the stays table). A nil ZoneID models "unassigned".
// Invariant: a lote has at most one stay with exit_time IS NULL.
type Stay struct {
	StayID string  `db:"stay_id"` // UUID, PRIMARY KEY
	LoteID string  `db:"lote_id"` // UUID, NOT NULL, REFERENCES lotes(lote_id)
	ZoneID *string `db:"zone_id"` // UUID, nullable, REFERENCES zones(zone_id)

	EntryTime time.Time  `db:"entry_time"` // TIMESTAMPTZ, NOT NULL
	ExitTime  *time.Time `db:"exit_time"`  // TIMESTAMPTZ, nullable while open

	CreatedAt time.Time `db:"created_at"` // TIMESTAMPTZ, NOT NULL
}

// IsOpen reports whether the lote is still resident.
func (s *Stay) IsOpen() bool {
	return s.ExitTime == nil
}

// LastActivity is the timestamp new movement must not precede:
// exit_time for a closed stay, entry_time for an open one.
func (s *Stay) LastActivity() time.Time {
	if s.ExitTime != nil {
		return *s.ExitTime
	}
	return s.EntryTime
}
