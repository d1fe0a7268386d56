package domain

import (
	"encoding/json"
	"time"
)

// QrSnapshot is a frozen public traceability document for one lote
// (corresponds to the qr_snapshots table). SnapshotData is never mutated after
// creation; re-generation inserts a new row, rotate issues a new token for the
// same row, revoke flips IsActive.
type QrSnapshot struct {
	SnapshotID string `db:"snapshot_id"` // UUID, PRIMARY KEY
	LoteID     string `db:"lote_id"`     // UUID, NOT NULL, REFERENCES lotes(lote_id)

	PublicToken  string          `db:"public_token"`  // VARCHAR(64), UNIQUE
	SnapshotData json.RawMessage `db:"snapshot_data"` // JSONB, frozen TraceDocument

	ScanCount int  `db:"scan_count"` // INTEGER, best-effort counter
	IsActive  bool `db:"is_active"`  // BOOLEAN, DEFAULT true

	CreatedAt time.Time `db:"created_at"` // TIMESTAMPTZ, NOT NULL
	UpdatedAt time.Time `db:"updated_at"` // TIMESTAMPTZ, NOT NULL
}

// TraceDocument is the shape serialized into QrSnapshot.SnapshotData.
type TraceDocument struct {
	Lote     TraceLote     `json:"lote"`
	Phases   []TracePhase  `json:"phases"`
	Metadata TraceMetadata `json:"metadata"`
}

// TraceLote is the lote header of a trace document.
type TraceLote struct {
	LoteID         string          `json:"lote_id"`
	Identification string          `json:"identification"`
	FoodRegime     string          `json:"food_regime"`
	InitialAnimals int             `json:"initial_animals"`
	PieceType      string          `json:"piece_type,omitempty"`
	ParentLoteID   string          `json:"parent_lote_id,omitempty"`
	CustomFields   json.RawMessage `json:"custom_fields,omitempty"`
}

// TracePhase is one production stage of a trace document, in canonical stage
// order regardless of the order stays were persisted in.
type TracePhase struct {
	Stage     string    `json:"stage"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	// DurationDays is floor((end-start)/24h).
	DurationDays int      `json:"duration_days"`
	Zones        []string `json:"zones"`

	// Sensors aggregates public, non-simulated readings by sensor type.
	Sensors []TraceSensorStats `json:"sensors"`
}

// TraceSensorStats is the per-sensor-type aggregate inside one phase.
// Avg, Min and Max are rounded to one decimal.
type TraceSensorStats struct {
	SensorType string  `json:"sensor_type"`
	Count      int     `json:"count"`
	Avg        float64 `json:"avg"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	// PctInTarget is only set when the zone defines a target range for this
	// sensor type.
	PctInTarget *int `json:"pct_in_target,omitempty"`
}

// TraceMetadata describes when and for whom the document was generated.
type TraceMetadata struct {
	GeneratedAt time.Time `json:"generated_at"`
	LoteID      string    `json:"lote_id"`
	PhaseCount  int       `json:"phase_count"`
}
