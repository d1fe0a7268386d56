package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/domain"
)

// ErrNotFound is returned when a row does not exist or belongs to another
// organization.
var ErrNotFound = errors.New("not found")

// DBTX is satisfied by both *sql.DB and *sql.Tx so repositories can run
// inside the movement transaction unchanged.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// LotesRepository persists lote rows. Lotes are never deleted, only marked
// finished.
type LotesRepository interface {
	GetLote(ctx context.Context, loteID string) (*domain.Lote, error)
	// GetLoteForUpdate locks the lote row (SELECT ... FOR UPDATE). Only
	// meaningful inside a transaction; it serializes concurrent movement on
	// the same lote.
	GetLoteForUpdate(ctx context.Context, loteID string) (*domain.Lote, error)
	CreateLote(ctx context.Context, lote *domain.Lote) error
	UpdateLoteStatus(ctx context.Context, loteID, status string) error
	WithTx(tx *sql.Tx) LotesRepository
}

// ZonesRepository reads zone rows.
type ZonesRepository interface {
	GetZone(ctx context.Context, zoneID string) (*domain.Zone, error)
	GetZonesByIDs(ctx context.Context, zoneIDs []string) (map[string]*domain.Zone, error)
	WithTx(tx *sql.Tx) ZonesRepository
}

// StaysRepository is the stay ledger: append and close primitives plus the
// reads the movement coordinator and snapshot aggregator need.
type StaysRepository interface {
	// GetOpenStay returns the stay with exit_time IS NULL, or (nil, nil) when
	// the lote has none.
	GetOpenStay(ctx context.Context, loteID string) (*domain.Stay, error)
	// GetLatestStay returns the most recent stay by entry_time, open or
	// closed, or (nil, nil) when the lote has none.
	GetLatestStay(ctx context.Context, loteID string) (*domain.Stay, error)
	ListStays(ctx context.Context, loteID string) ([]*domain.Stay, error)
	CreateStay(ctx context.Context, stay *domain.Stay) error
	CloseStay(ctx context.Context, stayID string, exitTime time.Time) error
	WithTx(tx *sql.Tx) StaysRepository
}

// SensorsRepository reads sensor rows.
type SensorsRepository interface {
	GetSensor(ctx context.Context, sensorID string) (*domain.Sensor, error)
	// ListBrokerSensors returns active sensors with broker ingestion
	// configuration; the connection pool reconciles against this set.
	ListBrokerSensors(ctx context.Context) ([]*domain.Sensor, error)
	ListSensorsByZones(ctx context.Context, zoneIDs []string) ([]*domain.Sensor, error)
}

// ReadingWithSensor joins a reading with the sensor attributes the snapshot
// aggregator groups by.
type ReadingWithSensor struct {
	domain.SensorReading
	SensorType string `db:"sensor_type"`
	ZoneID     string `db:"zone_id"`
	IsPublic   bool   `db:"is_public"`
}

// ReadingsRepository is the append-only reading time series.
type ReadingsRepository interface {
	InsertReading(ctx context.Context, reading *domain.SensorReading) error
	// ListReadingsForZones returns public, non-simulated readings for sensors
	// attached to any of the zones, with timestamp in [from, to], ordered by
	// timestamp then id so aggregation is deterministic.
	ListReadingsForZones(ctx context.Context, zoneIDs []string, from, to time.Time) ([]*ReadingWithSensor, error)
}

// AlertFilters narrows alert listings.
type AlertFilters struct {
	SensorID  string
	ZoneID    string
	AlertType string
	// Unread selects only is_read = false when true.
	Unread bool
}

// AlertsRepository persists breach alerts.
type AlertsRepository interface {
	CreateAlert(ctx context.Context, alert *domain.Alert) error
	ListAlerts(ctx context.Context, orgID string, filters AlertFilters, page, size int) ([]*domain.Alert, int, error)
	MarkAlertRead(ctx context.Context, orgID, alertID string) error
}

// SnapshotsRepository persists immutable trace documents keyed by public
// token.
type SnapshotsRepository interface {
	CreateSnapshot(ctx context.Context, snapshot *domain.QrSnapshot) error
	GetByID(ctx context.Context, snapshotID string) (*domain.QrSnapshot, error)
	// GetActiveByToken only resolves tokens with is_active = true.
	GetActiveByToken(ctx context.Context, token string) (*domain.QrSnapshot, error)
	RotateToken(ctx context.Context, snapshotID, newToken string) error
	Revoke(ctx context.Context, snapshotID string) error
	// IncrementScanCount is best-effort; callers log and ignore failures.
	IncrementScanCount(ctx context.Context, snapshotID string, delta int) error
}

// AuditRepository appends audit entries.
type AuditRepository interface {
	CreateEntry(ctx context.Context, entry *domain.AuditEntry) error
	ListEntries(ctx context.Context, loteID string, page, size int) ([]*domain.AuditEntry, int, error)
	WithTx(tx *sql.Tx) AuditRepository
}
