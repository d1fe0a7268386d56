package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/domain"
)

// PostgresLotesRepository implements LotesRepository over lotes.
type PostgresLotesRepository struct {
	db DBTX
}

// NewPostgresLotesRepository creates the repository.
func NewPostgresLotesRepository(db DBTX) *PostgresLotesRepository {
	return &PostgresLotesRepository{db: db}
}

var _ LotesRepository = (*PostgresLotesRepository)(nil)

const loteColumns = `
	lote_id, org_id, identification, initial_animals, final_animals,
	food_regime, custom_fields, status, parent_lote_id, piece_type,
	created_at, updated_at
`

// WithTx returns a copy bound to the transaction.
func (r *PostgresLotesRepository) WithTx(tx *sql.Tx) LotesRepository {
	return &PostgresLotesRepository{db: tx}
}

// GetLote loads one lote.
func (r *PostgresLotesRepository) GetLote(ctx context.Context, loteID string) (*domain.Lote, error) {
	query := `SELECT ` + loteColumns + ` FROM lotes WHERE lote_id = $1`
	return r.scanLote(r.db.QueryRowContext(ctx, query, loteID), loteID)
}

// GetLoteForUpdate loads one lote with a row lock. Inside a transaction this
// serializes concurrent movement on the same lote.
func (r *PostgresLotesRepository) GetLoteForUpdate(ctx context.Context, loteID string) (*domain.Lote, error) {
	query := `SELECT ` + loteColumns + ` FROM lotes WHERE lote_id = $1 FOR UPDATE`
	return r.scanLote(r.db.QueryRowContext(ctx, query, loteID), loteID)
}

func (r *PostgresLotesRepository) scanLote(row *sql.Row, loteID string) (*domain.Lote, error) {
	var lote domain.Lote
	var finalAnimals sql.NullInt64
	var parentLoteID, pieceType sql.NullString

	err := row.Scan(
		&lote.LoteID,
		&lote.OrgID,
		&lote.Identification,
		&lote.InitialAnimals,
		&finalAnimals,
		&lote.FoodRegime,
		&lote.CustomFields,
		&lote.Status,
		&parentLoteID,
		&pieceType,
		&lote.CreatedAt,
		&lote.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("lote %s: %w", loteID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan lote: %w", err)
	}

	if finalAnimals.Valid {
		n := int(finalAnimals.Int64)
		lote.FinalAnimals = &n
	}
	if parentLoteID.Valid {
		lote.ParentLoteID = &parentLoteID.String
	}
	if pieceType.Valid {
		lote.PieceType = &pieceType.String
	}

	return &lote, nil
}

// CreateLote inserts a new lote. CustomFields defaults to '{}' when empty.
func (r *PostgresLotesRepository) CreateLote(ctx context.Context, lote *domain.Lote) error {
	customFields := lote.CustomFields
	if len(customFields) == 0 {
		customFields = []byte(`{}`)
	}

	now := time.Now()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO lotes (
			lote_id, org_id, identification, initial_animals, final_animals,
			food_regime, custom_fields, status, parent_lote_id, piece_type,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		lote.LoteID,
		lote.OrgID,
		lote.Identification,
		lote.InitialAnimals,
		lote.FinalAnimals,
		lote.FoodRegime,
		customFields,
		lote.Status,
		lote.ParentLoteID,
		lote.PieceType,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert lote: %w", err)
	}

	return nil
}

// UpdateLoteStatus flips the status (active/finished).
func (r *PostgresLotesRepository) UpdateLoteStatus(ctx context.Context, loteID, status string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE lotes SET status = $1, updated_at = $2 WHERE lote_id = $3`,
		status, time.Now(), loteID,
	)
	if err != nil {
		return fmt.Errorf("failed to update lote status: %w", err)
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("lote %s: %w", loteID, ErrNotFound)
	}

	return nil
}
