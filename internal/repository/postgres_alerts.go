package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/domain"
)

// PostgresAlertsRepository implements AlertsRepository over alerts.
type PostgresAlertsRepository struct {
	db DBTX
}

// NewPostgresAlertsRepository creates the repository.
func NewPostgresAlertsRepository(db DBTX) *PostgresAlertsRepository {
	return &PostgresAlertsRepository{db: db}
}

var _ AlertsRepository = (*PostgresAlertsRepository)(nil)

const alertColumns = `alert_id, sensor_id, zone_id, org_id, alert_type, value, threshold, is_read, created_at`

// CreateAlert inserts one breach alert. Appends are shared-nothing; no
// deduplication is performed here.
func (r *PostgresAlertsRepository) CreateAlert(ctx context.Context, alert *domain.Alert) error {
	if alert.AlertID == "" {
		return fmt.Errorf("alert_id is required")
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO alerts (alert_id, sensor_id, zone_id, org_id, alert_type, value, threshold, is_read, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		alert.AlertID,
		alert.SensorID,
		alert.ZoneID,
		alert.OrgID,
		alert.AlertType,
		alert.Value,
		alert.Threshold,
		alert.IsRead,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}

	return nil
}

// ListAlerts returns alerts for an organization with optional filters and
// pagination, newest first.
func (r *PostgresAlertsRepository) ListAlerts(ctx context.Context, orgID string, filters AlertFilters, page, size int) ([]*domain.Alert, int, error) {
	if orgID == "" {
		return nil, 0, fmt.Errorf("org_id is required")
	}

	where := []string{"org_id = $1"}
	args := []interface{}{orgID}
	argN := 2

	if filters.SensorID != "" {
		where = append(where, fmt.Sprintf("sensor_id = $%d", argN))
		args = append(args, filters.SensorID)
		argN++
	}
	if filters.ZoneID != "" {
		where = append(where, fmt.Sprintf("zone_id = $%d", argN))
		args = append(args, filters.ZoneID)
		argN++
	}
	if filters.AlertType != "" {
		where = append(where, fmt.Sprintf("alert_type = $%d", argN))
		args = append(args, filters.AlertType)
		argN++
	}
	if filters.Unread {
		where = append(where, "is_read = false")
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM alerts WHERE "+whereClause, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count alerts: %w", err)
	}

	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	offset := (page - 1) * size

	query := `SELECT ` + alertColumns + ` FROM alerts WHERE ` + whereClause +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argN, argN+1)
	args = append(args, size, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*domain.Alert
	for rows.Next() {
		var alert domain.Alert
		if err := rows.Scan(
			&alert.AlertID,
			&alert.SensorID,
			&alert.ZoneID,
			&alert.OrgID,
			&alert.AlertType,
			&alert.Value,
			&alert.Threshold,
			&alert.IsRead,
			&alert.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, &alert)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate alerts: %w", err)
	}

	return alerts, total, nil
}

// MarkAlertRead acknowledges one alert.
func (r *PostgresAlertsRepository) MarkAlertRead(ctx context.Context, orgID, alertID string) error {
	if orgID == "" {
		return fmt.Errorf("org_id is required")
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE alerts SET is_read = true WHERE alert_id = $1 AND org_id = $2`,
		alertID, orgID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark alert read: %w", err)
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("alert %s: %w", alertID, ErrNotFound)
	}

	return nil
}
