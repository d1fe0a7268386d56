package domain

import "time"

// TargetRange is the desired band for one environmental metric inside a zone.
// Readings inside [Min, Max] count toward the pct_in_target statistic.
type TargetRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Zone is a physical location tied to one production stage
// (corresponds to the zones table).
type Zone struct {
	ZoneID string `db:"zone_id"` // UUID, PRIMARY KEY
	OrgID  string `db:"org_id"`  // UUID, NOT NULL

	Name  string `db:"name"`  // VARCHAR(100), NOT NULL
	Stage string `db:"stage"` // VARCHAR(30), NOT NULL, one of stages.All()

	// TargetRanges maps a sensor type (temperature, humidity, ...) to its
	// desired band. Stored as JSONB.
	TargetRanges map[string]TargetRange `db:"target_ranges"`

	IsActive bool `db:"is_active"` // soft-deactivation only once referenced

	CreatedAt time.Time `db:"created_at"` // TIMESTAMPTZ, NOT NULL
	UpdatedAt time.Time `db:"updated_at"` // TIMESTAMPTZ, NOT NULL
}
