package domain

import "time"

// SensorReading is one immutable sample in the append-only time series
// (corresponds to the sensor_readings table).
type SensorReading struct {
	ID       int64  `db:"id"`        // BIGSERIAL, PRIMARY KEY
	SensorID string `db:"sensor_id"` // UUID, NOT NULL, REFERENCES sensors(sensor_id)

	Value     float64   `db:"value"`     // DOUBLE PRECISION, NOT NULL
	Timestamp time.Time `db:"timestamp"` // TIMESTAMPTZ, NOT NULL

	// IsSimulated is true only for readings created through the explicit
	// simulation operation, never for ingested data.
	IsSimulated bool `db:"is_simulated"` // BOOLEAN, DEFAULT false

	CreatedAt time.Time `db:"created_at"` // TIMESTAMPTZ, NOT NULL
}
