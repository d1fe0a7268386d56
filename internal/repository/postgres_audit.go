package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/domain"
)

// PostgresAuditRepository implements AuditRepository over audit_log.
type PostgresAuditRepository struct {
	db DBTX
}

// NewPostgresAuditRepository creates the repository.
func NewPostgresAuditRepository(db DBTX) *PostgresAuditRepository {
	return &PostgresAuditRepository{db: db}
}

var _ AuditRepository = (*PostgresAuditRepository)(nil)

// WithTx returns a copy bound to the transaction, so audit entries commit or
// roll back together with the movement they describe.
func (r *PostgresAuditRepository) WithTx(tx *sql.Tx) AuditRepository {
	return &PostgresAuditRepository{db: tx}
}

// CreateEntry appends one audit entry.
func (r *PostgresAuditRepository) CreateEntry(ctx context.Context, entry *domain.AuditEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_log (entry_id, lote_id, action, actor_type, actor_id, before, after, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.EntryID,
		entry.LoteID,
		entry.Action,
		entry.ActorType,
		entry.ActorID,
		nullableJSON(entry.Before),
		nullableJSON(entry.After),
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}

	return nil
}

// ListEntries returns audit entries for a lote, newest first.
func (r *PostgresAuditRepository) ListEntries(ctx context.Context, loteID string, page, size int) ([]*domain.AuditEntry, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM audit_log WHERE lote_id = $1`, loteID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit entries: %w", err)
	}

	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	offset := (page - 1) * size

	rows, err := r.db.QueryContext(ctx,
		`SELECT entry_id, lote_id, action, actor_type, actor_id, before, after, created_at
		 FROM audit_log
		 WHERE lote_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		loteID, size, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*domain.AuditEntry
	for rows.Next() {
		var entry domain.AuditEntry
		var actorID sql.NullString
		var before, after []byte
		if err := rows.Scan(
			&entry.EntryID,
			&entry.LoteID,
			&entry.Action,
			&entry.ActorType,
			&actorID,
			&before,
			&after,
			&entry.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if actorID.Valid {
			entry.ActorID = actorID.String
		}
		entry.Before = before
		entry.After = after
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate audit entries: %w", err)
	}

	return entries, total, nil
}

func nullableJSON(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
