package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/domain"
)

// PostgresSensorsRepository implements SensorsRepository over sensors.
type PostgresSensorsRepository struct {
	db DBTX
}

// NewPostgresSensorsRepository creates the repository.
func NewPostgresSensorsRepository(db DBTX) *PostgresSensorsRepository {
	return &PostgresSensorsRepository{db: db}
}

var _ SensorsRepository = (*PostgresSensorsRepository)(nil)

const sensorColumns = `
	sensor_id, zone_id, org_id, name, sensor_type,
	validation_min, validation_max, is_public,
	broker_host, broker_port, broker_username, broker_password, broker_topic,
	field_path, is_active, created_at, updated_at
`

// GetSensor loads one sensor.
func (r *PostgresSensorsRepository) GetSensor(ctx context.Context, sensorID string) (*domain.Sensor, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sensorColumns+` FROM sensors WHERE sensor_id = $1`,
		sensorID,
	)

	sensor, err := scanSensor(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("sensor %s: %w", sensorID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan sensor: %w", err)
	}
	return sensor, nil
}

// ListBrokerSensors returns active sensors with broker ingestion config; the
// connection pool reconciles its subscriptions against this set.
func (r *PostgresSensorsRepository) ListBrokerSensors(ctx context.Context) ([]*domain.Sensor, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sensorColumns+` FROM sensors
		 WHERE is_active = true AND broker_host <> '' AND broker_topic <> ''
		 ORDER BY broker_host, broker_port, broker_username, sensor_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query broker sensors: %w", err)
	}
	defer rows.Close()

	return collectSensors(rows)
}

// ListSensorsByZones returns the sensors attached to any of the zones.
func (r *PostgresSensorsRepository) ListSensorsByZones(ctx context.Context, zoneIDs []string) ([]*domain.Sensor, error) {
	if len(zoneIDs) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(zoneIDs))
	args := make([]interface{}, len(zoneIDs))
	for i, id := range zoneIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := `SELECT ` + sensorColumns + ` FROM sensors
		 WHERE zone_id IN (` + strings.Join(placeholders, ", ") + `)
		 ORDER BY sensor_id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sensors by zones: %w", err)
	}
	defer rows.Close()

	return collectSensors(rows)
}

func collectSensors(rows *sql.Rows) ([]*domain.Sensor, error) {
	var sensors []*domain.Sensor
	for rows.Next() {
		sensor, err := scanSensor(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sensor: %w", err)
		}
		sensors = append(sensors, sensor)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sensors: %w", err)
	}
	return sensors, nil
}

func scanSensor(scan func(dest ...interface{}) error) (*domain.Sensor, error) {
	var sensor domain.Sensor
	var validationMin, validationMax sql.NullFloat64
	var brokerHost, brokerUsername, brokerPassword, brokerTopic, fieldPath sql.NullString
	var brokerPort sql.NullInt64

	err := scan(
		&sensor.SensorID,
		&sensor.ZoneID,
		&sensor.OrgID,
		&sensor.Name,
		&sensor.SensorType,
		&validationMin,
		&validationMax,
		&sensor.IsPublic,
		&brokerHost,
		&brokerPort,
		&brokerUsername,
		&brokerPassword,
		&brokerTopic,
		&fieldPath,
		&sensor.IsActive,
		&sensor.CreatedAt,
		&sensor.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if validationMin.Valid {
		v := validationMin.Float64
		sensor.ValidationMin = &v
	}
	if validationMax.Valid {
		v := validationMax.Float64
		sensor.ValidationMax = &v
	}
	if brokerHost.Valid {
		sensor.BrokerHost = brokerHost.String
	}
	if brokerPort.Valid {
		sensor.BrokerPort = int(brokerPort.Int64)
	}
	if brokerUsername.Valid {
		sensor.BrokerUsername = brokerUsername.String
	}
	if brokerPassword.Valid {
		sensor.BrokerPassword = brokerPassword.String
	}
	if brokerTopic.Valid {
		sensor.BrokerTopic = brokerTopic.String
	}
	if fieldPath.Valid {
		sensor.FieldPath = fieldPath.String
	}

	return &sensor, nil
}
