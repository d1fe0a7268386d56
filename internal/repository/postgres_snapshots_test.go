package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/domain"
)

func setupMockSnapshotsDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresSnapshotsRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewPostgresSnapshotsRepository(db)
	return db, mock, repo
}

func TestCreateSnapshot_Success(t *testing.T) {
	db, mock, repo := setupMockSnapshotsDB(t)
	defer db.Close()

	snapshot := &domain.QrSnapshot{
		SnapshotID:   uuid.New().String(),
		LoteID:       uuid.New().String(),
		PublicToken:  uuid.New().String(),
		SnapshotData: []byte(`{"lote":{},"phases":[]}`),
		IsActive:     true,
	}

	mock.ExpectExec(`INSERT INTO qr_snapshots`).
		WithArgs(snapshot.SnapshotID, snapshot.LoteID, snapshot.PublicToken,
			snapshot.SnapshotData, 0, true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.CreateSnapshot(context.Background(), snapshot)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetActiveByToken_Found(t *testing.T) {
	db, mock, repo := setupMockSnapshotsDB(t)
	defer db.Close()

	token := uuid.New().String()
	snapshotID := uuid.New().String()
	loteID := uuid.New().String()
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"snapshot_id", "lote_id", "public_token", "snapshot_data", "scan_count", "is_active", "created_at", "updated_at",
	}).AddRow(snapshotID, loteID, token, []byte(`{"phases":[]}`), 3, true, now, now)

	mock.ExpectQuery(`SELECT .* FROM qr_snapshots WHERE public_token`).
		WithArgs(token).
		WillReturnRows(rows)

	snapshot, err := repo.GetActiveByToken(context.Background(), token)

	require.NoError(t, err)
	assert.Equal(t, snapshotID, snapshot.SnapshotID)
	assert.Equal(t, 3, snapshot.ScanCount)
	assert.True(t, snapshot.IsActive)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetActiveByToken_RevokedOrUnknown(t *testing.T) {
	db, mock, repo := setupMockSnapshotsDB(t)
	defer db.Close()

	token := uuid.New().String()

	mock.ExpectQuery(`SELECT .* FROM qr_snapshots WHERE public_token`).
		WithArgs(token).
		WillReturnError(sql.ErrNoRows)

	snapshot, err := repo.GetActiveByToken(context.Background(), token)

	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, snapshot)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRotateToken_Success(t *testing.T) {
	db, mock, repo := setupMockSnapshotsDB(t)
	defer db.Close()

	snapshotID := uuid.New().String()
	newToken := uuid.New().String()

	mock.ExpectExec(`UPDATE qr_snapshots SET public_token`).
		WithArgs(newToken, sqlmock.AnyArg(), snapshotID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.RotateToken(context.Background(), snapshotID, newToken)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRevoke_NotFound(t *testing.T) {
	db, mock, repo := setupMockSnapshotsDB(t)
	defer db.Close()

	snapshotID := uuid.New().String()

	mock.ExpectExec(`UPDATE qr_snapshots SET is_active = false`).
		WithArgs(sqlmock.AnyArg(), snapshotID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Revoke(context.Background(), snapshotID)

	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementScanCount_BestEffort(t *testing.T) {
	db, mock, repo := setupMockSnapshotsDB(t)
	defer db.Close()

	snapshotID := uuid.New().String()

	mock.ExpectExec(`UPDATE qr_snapshots SET scan_count = scan_count \+ \$1`).
		WithArgs(1, sqlmock.AnyArg(), snapshotID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.IncrementScanCount(context.Background(), snapshotID, 1)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
