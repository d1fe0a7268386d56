package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/domain"
)

// PostgresSnapshotsRepository implements SnapshotsRepository over
// qr_snapshots.
type PostgresSnapshotsRepository struct {
	db DBTX
}

// NewPostgresSnapshotsRepository creates the repository.
func NewPostgresSnapshotsRepository(db DBTX) *PostgresSnapshotsRepository {
	return &PostgresSnapshotsRepository{db: db}
}

var _ SnapshotsRepository = (*PostgresSnapshotsRepository)(nil)

const snapshotColumns = `snapshot_id, lote_id, public_token, snapshot_data, scan_count, is_active, created_at, updated_at`

// CreateSnapshot inserts a new immutable snapshot row.
func (r *PostgresSnapshotsRepository) CreateSnapshot(ctx context.Context, snapshot *domain.QrSnapshot) error {
	now := time.Now()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO qr_snapshots (snapshot_id, lote_id, public_token, snapshot_data, scan_count, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		snapshot.SnapshotID,
		snapshot.LoteID,
		snapshot.PublicToken,
		snapshot.SnapshotData,
		snapshot.ScanCount,
		snapshot.IsActive,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	return nil
}

// GetByID loads one snapshot regardless of active state.
func (r *PostgresSnapshotsRepository) GetByID(ctx context.Context, snapshotID string) (*domain.QrSnapshot, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM qr_snapshots WHERE snapshot_id = $1`,
		snapshotID,
	)
	return scanSnapshot(row, snapshotID)
}

// GetActiveByToken resolves a public token; revoked tokens do not resolve.
func (r *PostgresSnapshotsRepository) GetActiveByToken(ctx context.Context, token string) (*domain.QrSnapshot, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM qr_snapshots WHERE public_token = $1 AND is_active = true`,
		token,
	)
	return scanSnapshot(row, token)
}

// RotateToken replaces the public token; snapshot_data is untouched.
func (r *PostgresSnapshotsRepository) RotateToken(ctx context.Context, snapshotID, newToken string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE qr_snapshots SET public_token = $1, is_active = true, updated_at = $2 WHERE snapshot_id = $3`,
		newToken, time.Now(), snapshotID,
	)
	if err != nil {
		return fmt.Errorf("failed to rotate token: %w", err)
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("snapshot %s: %w", snapshotID, ErrNotFound)
	}

	return nil
}

// Revoke deactivates the token. The row and its data remain.
func (r *PostgresSnapshotsRepository) Revoke(ctx context.Context, snapshotID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE qr_snapshots SET is_active = false, updated_at = $1 WHERE snapshot_id = $2`,
		time.Now(), snapshotID,
	)
	if err != nil {
		return fmt.Errorf("failed to revoke snapshot: %w", err)
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("snapshot %s: %w", snapshotID, ErrNotFound)
	}

	return nil
}

// IncrementScanCount bumps the counter. Best-effort: callers log and ignore
// errors, the counter is not required to be exact.
func (r *PostgresSnapshotsRepository) IncrementScanCount(ctx context.Context, snapshotID string, delta int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE qr_snapshots SET scan_count = scan_count + $1, updated_at = $2 WHERE snapshot_id = $3`,
		delta, time.Now(), snapshotID,
	)
	if err != nil {
		return fmt.Errorf("failed to increment scan count: %w", err)
	}

	return nil
}

func scanSnapshot(row *sql.Row, key string) (*domain.QrSnapshot, error) {
	var snapshot domain.QrSnapshot
	err := row.Scan(
		&snapshot.SnapshotID,
		&snapshot.LoteID,
		&snapshot.PublicToken,
		&snapshot.SnapshotData,
		&snapshot.ScanCount,
		&snapshot.IsActive,
		&snapshot.CreatedAt,
		&snapshot.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("snapshot %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan snapshot: %w", err)
	}

	return &snapshot, nil
}
