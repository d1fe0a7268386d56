package domain

import "time"

// Sensor is an environmental sensor mounted in a zone
// (corresponds to the sensors table).
type Sensor struct {
	SensorID string `db:"sensor_id"` // UUID, PRIMARY KEY
	ZoneID   string `db:"zone_id"`   // UUID, NOT NULL, REFERENCES zones(zone_id)
	OrgID    string `db:"org_id"`    // UUID, NOT NULL

	Name       string `db:"name"`        // VARCHAR(100), NOT NULL
	SensorType string `db:"sensor_type"` // VARCHAR(50), metric name (temperature, humidity, ...)

	// Validation bounds; a reading strictly outside the band creates an alert.
	ValidationMin *float64 `db:"validation_min"` // DOUBLE PRECISION, nullable
	ValidationMax *float64 `db:"validation_max"` // DOUBLE PRECISION, nullable

	// IsPublic controls visibility in traceability snapshots.
	IsPublic bool `db:"is_public"` // BOOLEAN, DEFAULT false

	// Broker ingestion configuration. Sensors sharing (host, port, username)
	// are multiplexed onto one connection.
	BrokerHost     string `db:"broker_host"`     // VARCHAR(255)
	BrokerPort     int    `db:"broker_port"`     // INTEGER
	BrokerUsername string `db:"broker_username"` // VARCHAR(100)
	BrokerPassword string `db:"broker_password"` // VARCHAR(100)
	BrokerTopic    string `db:"broker_topic"`    // VARCHAR(255)

	// FieldPath is the dot path into the JSON payload that holds the numeric
	// value, e.g. "decoded_payload.temperature". Compiled once at subscribe
	// time; misconfiguration fails fast instead of silently dropping readings.
	FieldPath string `db:"field_path"` // VARCHAR(255)

	IsActive bool `db:"is_active"` // BOOLEAN, DEFAULT true

	CreatedAt time.Time `db:"created_at"` // TIMESTAMPTZ, NOT NULL
	UpdatedAt time.Time `db:"updated_at"` // TIMESTAMPTZ, NOT NULL
}

// HasBrokerConfig reports whether the sensor should be fed by the broker pool.
func (s *Sensor) HasBrokerConfig() bool {
	return s.BrokerHost != "" && s.BrokerTopic != ""
}
