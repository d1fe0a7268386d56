package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/domain"
)

// PostgresZonesRepository implements ZonesRepository over zones.
type PostgresZonesRepository struct {
	db DBTX
}

// NewPostgresZonesRepository creates the repository.
func NewPostgresZonesRepository(db DBTX) *PostgresZonesRepository {
	return &PostgresZonesRepository{db: db}
}

var _ ZonesRepository = (*PostgresZonesRepository)(nil)

// WithTx returns a copy bound to the transaction.
func (r *PostgresZonesRepository) WithTx(tx *sql.Tx) ZonesRepository {
	return &PostgresZonesRepository{db: tx}
}

// GetZone loads one zone.
func (r *PostgresZonesRepository) GetZone(ctx context.Context, zoneID string) (*domain.Zone, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT zone_id, org_id, name, stage, target_ranges, is_active, created_at, updated_at
		 FROM zones WHERE zone_id = $1`,
		zoneID,
	)

	var zone domain.Zone
	var targetRanges []byte
	err := row.Scan(
		&zone.ZoneID,
		&zone.OrgID,
		&zone.Name,
		&zone.Stage,
		&targetRanges,
		&zone.IsActive,
		&zone.CreatedAt,
		&zone.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("zone %s: %w", zoneID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan zone: %w", err)
	}

	if len(targetRanges) > 0 {
		if err := json.Unmarshal(targetRanges, &zone.TargetRanges); err != nil {
			return nil, fmt.Errorf("failed to decode target_ranges for zone %s: %w", zoneID, err)
		}
	}

	return &zone, nil
}

// GetZonesByIDs loads several zones at once, keyed by zone_id. Missing ids are
// simply absent from the result.
func (r *PostgresZonesRepository) GetZonesByIDs(ctx context.Context, zoneIDs []string) (map[string]*domain.Zone, error) {
	result := make(map[string]*domain.Zone, len(zoneIDs))
	if len(zoneIDs) == 0 {
		return result, nil
	}

	placeholders := make([]string, len(zoneIDs))
	args := make([]interface{}, len(zoneIDs))
	for i, id := range zoneIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := `SELECT zone_id, org_id, name, stage, target_ranges, is_active, created_at, updated_at
		 FROM zones WHERE zone_id IN (` + strings.Join(placeholders, ", ") + `)`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query zones: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var zone domain.Zone
		var targetRanges []byte
		if err := rows.Scan(
			&zone.ZoneID,
			&zone.OrgID,
			&zone.Name,
			&zone.Stage,
			&targetRanges,
			&zone.IsActive,
			&zone.CreatedAt,
			&zone.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan zone: %w", err)
		}

		if len(targetRanges) > 0 {
			if err := json.Unmarshal(targetRanges, &zone.TargetRanges); err != nil {
				return nil, fmt.Errorf("failed to decode target_ranges for zone %s: %w", zone.ZoneID, err)
			}
		}

		z := zone
		result[z.ZoneID] = &z
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate zones: %w", err)
	}

	return result, nil
}
