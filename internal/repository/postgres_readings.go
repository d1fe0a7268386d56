package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/domain"
)

// PostgresReadingsRepository implements ReadingsRepository over
// sensor_readings.
type PostgresReadingsRepository struct {
	db DBTX
}

// NewPostgresReadingsRepository creates the repository.
func NewPostgresReadingsRepository(db DBTX) *PostgresReadingsRepository {
	return &PostgresReadingsRepository{db: db}
}

var _ ReadingsRepository = (*PostgresReadingsRepository)(nil)

// InsertReading appends one sample to the time series.
func (r *PostgresReadingsRepository) InsertReading(ctx context.Context, reading *domain.SensorReading) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO sensor_readings (sensor_id, value, timestamp, is_simulated, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		reading.SensorID,
		reading.Value,
		reading.Timestamp,
		reading.IsSimulated,
		time.Now(),
	).Scan(&reading.ID)
	if err != nil {
		return fmt.Errorf("failed to insert reading: %w", err)
	}

	return nil
}

// ListReadingsForZones returns public, non-simulated readings for sensors in
// any of the zones, with timestamp in [from, to]. Ordered by timestamp then id
// so aggregation over the result is deterministic.
func (r *PostgresReadingsRepository) ListReadingsForZones(ctx context.Context, zoneIDs []string, from, to time.Time) ([]*ReadingWithSensor, error) {
	if len(zoneIDs) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(zoneIDs))
	args := []interface{}{from, to}
	for i, id := range zoneIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+3)
		args = append(args, id)
	}

	query := `
		SELECT
			sr.id, sr.sensor_id, sr.value, sr.timestamp, sr.is_simulated, sr.created_at,
			s.sensor_type, s.zone_id, s.is_public
		FROM sensor_readings sr
		JOIN sensors s ON sr.sensor_id = s.sensor_id
		WHERE sr.timestamp >= $1 AND sr.timestamp <= $2
		  AND sr.is_simulated = false
		  AND s.is_public = true
		  AND s.zone_id IN (` + strings.Join(placeholders, ", ") + `)
		ORDER BY sr.timestamp ASC, sr.id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	var results []*ReadingWithSensor
	for rows.Next() {
		var rw ReadingWithSensor
		if err := rows.Scan(
			&rw.ID,
			&rw.SensorID,
			&rw.Value,
			&rw.Timestamp,
			&rw.IsSimulated,
			&rw.CreatedAt,
			&rw.SensorType,
			&rw.ZoneID,
			&rw.IsPublic,
		); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		results = append(results, &rw)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate readings: %w", err)
	}

	return results, nil
}
