package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/domain"
)

// PostgresStaysRepository implements StaysRepository over stays.
type PostgresStaysRepository struct {
	db DBTX
}

// NewPostgresStaysRepository creates the repository.
func NewPostgresStaysRepository(db DBTX) *PostgresStaysRepository {
	return &PostgresStaysRepository{db: db}
}

var _ StaysRepository = (*PostgresStaysRepository)(nil)

const stayColumns = `stay_id, lote_id, zone_id, entry_time, exit_time, created_at`

// WithTx returns a copy bound to the transaction.
func (r *PostgresStaysRepository) WithTx(tx *sql.Tx) StaysRepository {
	return &PostgresStaysRepository{db: tx}
}

// GetOpenStay returns the stay with exit_time IS NULL, or (nil, nil).
func (r *PostgresStaysRepository) GetOpenStay(ctx context.Context, loteID string) (*domain.Stay, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+stayColumns+` FROM stays
		 WHERE lote_id = $1 AND exit_time IS NULL
		 ORDER BY entry_time DESC
		 LIMIT 1`,
		loteID,
	)

	stay, err := scanStayRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query open stay: %w", err)
	}
	return stay, nil
}

// GetLatestStay returns the most recent stay by entry_time, or (nil, nil).
func (r *PostgresStaysRepository) GetLatestStay(ctx context.Context, loteID string) (*domain.Stay, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+stayColumns+` FROM stays
		 WHERE lote_id = $1
		 ORDER BY entry_time DESC, created_at DESC
		 LIMIT 1`,
		loteID,
	)

	stay, err := scanStayRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest stay: %w", err)
	}
	return stay, nil
}

// ListStays returns all stays for a lote ordered by entry_time.
func (r *PostgresStaysRepository) ListStays(ctx context.Context, loteID string) ([]*domain.Stay, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+stayColumns+` FROM stays
		 WHERE lote_id = $1
		 ORDER BY entry_time ASC, created_at ASC`,
		loteID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query stays: %w", err)
	}
	defer rows.Close()

	var stays []*domain.Stay
	for rows.Next() {
		var stay domain.Stay
		var zoneID sql.NullString
		var exitTime sql.NullTime
		if err := rows.Scan(
			&stay.StayID,
			&stay.LoteID,
			&zoneID,
			&stay.EntryTime,
			&exitTime,
			&stay.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan stay: %w", err)
		}
		if zoneID.Valid {
			stay.ZoneID = &zoneID.String
		}
		if exitTime.Valid {
			t := exitTime.Time
			stay.ExitTime = &t
		}
		stays = append(stays, &stay)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stays: %w", err)
	}

	return stays, nil
}

// CreateStay appends a new interval to the ledger.
func (r *PostgresStaysRepository) CreateStay(ctx context.Context, stay *domain.Stay) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO stays (stay_id, lote_id, zone_id, entry_time, exit_time, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		stay.StayID,
		stay.LoteID,
		stay.ZoneID,
		stay.EntryTime,
		stay.ExitTime,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert stay: %w", err)
	}

	return nil
}

// CloseStay sets exit_time on an open stay. Closing an already-closed stay is
// rejected; the ledger is append-and-close only.
func (r *PostgresStaysRepository) CloseStay(ctx context.Context, stayID string, exitTime time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE stays SET exit_time = $1 WHERE stay_id = $2 AND exit_time IS NULL`,
		exitTime, stayID,
	)
	if err != nil {
		return fmt.Errorf("failed to close stay: %w", err)
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("open stay %s: %w", stayID, ErrNotFound)
	}

	return nil
}

func scanStayRow(row *sql.Row) (*domain.Stay, error) {
	var stay domain.Stay
	var zoneID sql.NullString
	var exitTime sql.NullTime

	err := row.Scan(
		&stay.StayID,
		&stay.LoteID,
		&zoneID,
		&stay.EntryTime,
		&exitTime,
		&stay.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if zoneID.Valid {
		stay.ZoneID = &zoneID.String
	}
	if exitTime.Valid {
		t := exitTime.Time
		stay.ExitTime = &t
	}

	return &stay, nil
}
