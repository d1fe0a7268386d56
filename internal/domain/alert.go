package domain

import "time"

// Alert types.
const (
	AlertTypeMinBreach = "min_breach"
	AlertTypeMaxBreach = "max_breach"
)

// Alert is a derived fact created when a persisted reading falls outside the
// sensor's validation band (corresponds to the alerts table). At most one
// alert is created per reading. Mutated only by the mark-read action.
type Alert struct {
	AlertID  string `db:"alert_id"`  // UUID, PRIMARY KEY
	SensorID string `db:"sensor_id"` // UUID, NOT NULL, REFERENCES sensors(sensor_id)
	ZoneID   string `db:"zone_id"`   // UUID, NOT NULL, REFERENCES zones(zone_id)
	OrgID    string `db:"org_id"`    // UUID, NOT NULL

	AlertType string  `db:"alert_type"` // VARCHAR(20), CHECK IN ('min_breach', 'max_breach')
	Value     float64 `db:"value"`      // DOUBLE PRECISION, NOT NULL
	Threshold float64 `db:"threshold"`  // DOUBLE PRECISION, the bound that was crossed

	IsRead bool `db:"is_read"` // BOOLEAN, DEFAULT false

	CreatedAt time.Time `db:"created_at"` // TIMESTAMPTZ, NOT NULL
}
