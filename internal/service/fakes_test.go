package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/domain"
	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/notify"
	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/repository"
)

// In-memory repository fakes. WithTx returns the fake itself; transactional
// scenarios drive Begin/Commit expectations through sqlmock instead.

type fakeLotesRepo struct {
	mu    sync.Mutex
	lotes map[string]*domain.Lote
}

func newFakeLotesRepo() *fakeLotesRepo {
	return &fakeLotesRepo{lotes: make(map[string]*domain.Lote)}
}

func (f *fakeLotesRepo) GetLote(_ context.Context, loteID string) (*domain.Lote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lote, ok := f.lotes[loteID]
	if !ok {
		return nil, fmt.Errorf("lote %s: %w", loteID, repository.ErrNotFound)
	}
	cp := *lote
	return &cp, nil
}

func (f *fakeLotesRepo) GetLoteForUpdate(ctx context.Context, loteID string) (*domain.Lote, error) {
	return f.GetLote(ctx, loteID)
}

func (f *fakeLotesRepo) CreateLote(_ context.Context, lote *domain.Lote) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *lote
	f.lotes[lote.LoteID] = &cp
	return nil
}

func (f *fakeLotesRepo) UpdateLoteStatus(_ context.Context, loteID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	lote, ok := f.lotes[loteID]
	if !ok {
		return fmt.Errorf("lote %s: %w", loteID, repository.ErrNotFound)
	}
	lote.Status = status
	return nil
}

func (f *fakeLotesRepo) WithTx(*sql.Tx) repository.LotesRepository { return f }

type fakeZonesRepo struct {
	zones map[string]*domain.Zone
}

func newFakeZonesRepo(zones ...*domain.Zone) *fakeZonesRepo {
	f := &fakeZonesRepo{zones: make(map[string]*domain.Zone)}
	for _, z := range zones {
		f.zones[z.ZoneID] = z
	}
	return f
}

func (f *fakeZonesRepo) GetZone(_ context.Context, zoneID string) (*domain.Zone, error) {
	zone, ok := f.zones[zoneID]
	if !ok {
		return nil, fmt.Errorf("zone %s: %w", zoneID, repository.ErrNotFound)
	}
	return zone, nil
}

func (f *fakeZonesRepo) GetZonesByIDs(_ context.Context, zoneIDs []string) (map[string]*domain.Zone, error) {
	out := make(map[string]*domain.Zone)
	for _, id := range zoneIDs {
		if zone, ok := f.zones[id]; ok {
			out[id] = zone
		}
	}
	return out, nil
}

func (f *fakeZonesRepo) WithTx(*sql.Tx) repository.ZonesRepository { return f }

type fakeStaysRepo struct {
	mu    sync.Mutex
	stays []*domain.Stay
}

func newFakeStaysRepo(stays ...*domain.Stay) *fakeStaysRepo {
	return &fakeStaysRepo{stays: stays}
}

func (f *fakeStaysRepo) GetOpenStay(_ context.Context, loteID string) (*domain.Stay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, stay := range f.stays {
		if stay.LoteID == loteID && stay.ExitTime == nil {
			return stay, nil
		}
	}
	return nil, nil
}

func (f *fakeStaysRepo) GetLatestStay(_ context.Context, loteID string) (*domain.Stay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *domain.Stay
	for _, stay := range f.stays {
		if stay.LoteID != loteID {
			continue
		}
		if latest == nil || stay.EntryTime.After(latest.EntryTime) {
			latest = stay
		}
	}
	return latest, nil
}

func (f *fakeStaysRepo) ListStays(_ context.Context, loteID string) ([]*domain.Stay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Stay
	for _, stay := range f.stays {
		if stay.LoteID == loteID {
			out = append(out, stay)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EntryTime.Before(out[j].EntryTime) })
	return out, nil
}

func (f *fakeStaysRepo) CreateStay(_ context.Context, stay *domain.Stay) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stays = append(f.stays, stay)
	return nil
}

func (f *fakeStaysRepo) CloseStay(_ context.Context, stayID string, exitTime time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, stay := range f.stays {
		if stay.StayID == stayID && stay.ExitTime == nil {
			t := exitTime
			stay.ExitTime = &t
			return nil
		}
	}
	return fmt.Errorf("stay %s: %w", stayID, repository.ErrNotFound)
}

func (f *fakeStaysRepo) WithTx(*sql.Tx) repository.StaysRepository { return f }

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []*domain.AuditEntry
}

func (f *fakeAuditRepo) CreateEntry(_ context.Context, entry *domain.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAuditRepo) ListEntries(_ context.Context, loteID string, page, size int) ([]*domain.AuditEntry, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.AuditEntry
	for _, e := range f.entries {
		if e.LoteID == loteID {
			out = append(out, e)
		}
	}
	return out, len(out), nil
}

func (f *fakeAuditRepo) WithTx(*sql.Tx) repository.AuditRepository { return f }

func (f *fakeAuditRepo) actions(loteID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.entries {
		if e.LoteID == loteID {
			out = append(out, e.Action)
		}
	}
	return out
}

type fakeSensorsRepo struct {
	sensors map[string]*domain.Sensor
}

func newFakeSensorsRepo(sensors ...*domain.Sensor) *fakeSensorsRepo {
	f := &fakeSensorsRepo{sensors: make(map[string]*domain.Sensor)}
	for _, s := range sensors {
		f.sensors[s.SensorID] = s
	}
	return f
}

func (f *fakeSensorsRepo) GetSensor(_ context.Context, sensorID string) (*domain.Sensor, error) {
	sensor, ok := f.sensors[sensorID]
	if !ok {
		return nil, fmt.Errorf("sensor %s: %w", sensorID, repository.ErrNotFound)
	}
	return sensor, nil
}

func (f *fakeSensorsRepo) ListBrokerSensors(_ context.Context) ([]*domain.Sensor, error) {
	var out []*domain.Sensor
	for _, s := range f.sensors {
		if s.IsActive && s.HasBrokerConfig() {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSensorsRepo) ListSensorsByZones(_ context.Context, zoneIDs []string) ([]*domain.Sensor, error) {
	var out []*domain.Sensor
	for _, s := range f.sensors {
		for _, id := range zoneIDs {
			if s.ZoneID == id {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

type fakeReadingsRepo struct {
	mu       sync.Mutex
	readings []*domain.SensorReading
	// joined rows returned by ListReadingsForZones, keyed by nothing: the fake
	// filters by zone via the sensors map.
	sensors map[string]*domain.Sensor
	nextID  int64
}

func newFakeReadingsRepo(sensors *fakeSensorsRepo) *fakeReadingsRepo {
	return &fakeReadingsRepo{sensors: sensors.sensors, nextID: 1}
}

func (f *fakeReadingsRepo) InsertReading(_ context.Context, reading *domain.SensorReading) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	reading.ID = f.nextID
	f.nextID++
	cp := *reading
	f.readings = append(f.readings, &cp)
	return nil
}

func (f *fakeReadingsRepo) ListReadingsForZones(_ context.Context, zoneIDs []string, from, to time.Time) ([]*repository.ReadingWithSensor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	zones := make(map[string]bool)
	for _, id := range zoneIDs {
		zones[id] = true
	}

	var out []*repository.ReadingWithSensor
	for _, r := range f.readings {
		sensor, ok := f.sensors[r.SensorID]
		if !ok || !sensor.IsPublic || r.IsSimulated || !zones[sensor.ZoneID] {
			continue
		}
		if r.Timestamp.Before(from) || r.Timestamp.After(to) {
			continue
		}
		out = append(out, &repository.ReadingWithSensor{
			SensorReading: *r,
			SensorType:    sensor.SensorType,
			ZoneID:        sensor.ZoneID,
			IsPublic:      sensor.IsPublic,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID < out[j].ID
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

type fakeAlertsRepo struct {
	mu     sync.Mutex
	alerts []*domain.Alert
}

func (f *fakeAlertsRepo) CreateAlert(_ context.Context, alert *domain.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *alert
	f.alerts = append(f.alerts, &cp)
	return nil
}

func (f *fakeAlertsRepo) ListAlerts(_ context.Context, orgID string, filters repository.AlertFilters, page, size int) ([]*domain.Alert, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Alert
	for _, a := range f.alerts {
		if a.OrgID != orgID {
			continue
		}
		if filters.SensorID != "" && a.SensorID != filters.SensorID {
			continue
		}
		if filters.AlertType != "" && a.AlertType != filters.AlertType {
			continue
		}
		if filters.Unread && a.IsRead {
			continue
		}
		out = append(out, a)
	}
	return out, len(out), nil
}

func (f *fakeAlertsRepo) MarkAlertRead(_ context.Context, orgID, alertID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.alerts {
		if a.AlertID == alertID && a.OrgID == orgID {
			a.IsRead = true
			return nil
		}
	}
	return fmt.Errorf("alert %s: %w", alertID, repository.ErrNotFound)
}

type fakeSnapshotsRepo struct {
	mu        sync.Mutex
	snapshots map[string]*domain.QrSnapshot
}

func newFakeSnapshotsRepo() *fakeSnapshotsRepo {
	return &fakeSnapshotsRepo{snapshots: make(map[string]*domain.QrSnapshot)}
}

func (f *fakeSnapshotsRepo) CreateSnapshot(_ context.Context, snapshot *domain.QrSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *snapshot
	f.snapshots[snapshot.SnapshotID] = &cp
	return nil
}

func (f *fakeSnapshotsRepo) GetByID(_ context.Context, snapshotID string) (*domain.QrSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.snapshots[snapshotID]
	if !ok {
		return nil, fmt.Errorf("snapshot %s: %w", snapshotID, repository.ErrNotFound)
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSnapshotsRepo) GetActiveByToken(_ context.Context, token string) (*domain.QrSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.snapshots {
		if s.PublicToken == token && s.IsActive {
			cp := *s
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("token: %w", repository.ErrNotFound)
}

func (f *fakeSnapshotsRepo) RotateToken(_ context.Context, snapshotID, newToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.snapshots[snapshotID]
	if !ok {
		return fmt.Errorf("snapshot %s: %w", snapshotID, repository.ErrNotFound)
	}
	s.PublicToken = newToken
	return nil
}

func (f *fakeSnapshotsRepo) Revoke(_ context.Context, snapshotID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.snapshots[snapshotID]
	if !ok {
		return fmt.Errorf("snapshot %s: %w", snapshotID, repository.ErrNotFound)
	}
	s.IsActive = false
	return nil
}

func (f *fakeSnapshotsRepo) IncrementScanCount(_ context.Context, snapshotID string, delta int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.snapshots[snapshotID]
	if !ok {
		return fmt.Errorf("snapshot %s: %w", snapshotID, repository.ErrNotFound)
	}
	s.ScanCount += delta
	return nil
}

// fakeSnapshotGenerator stands in for the aggregator in movement tests.
type fakeSnapshotGenerator struct {
	generated []string
	token     string
	err       error
}

func (f *fakeSnapshotGenerator) GenerateSnapshot(_ context.Context, req GenerateSnapshotRequest) (*GenerateSnapshotResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.generated = append(f.generated, req.LoteID)
	return &GenerateSnapshotResponse{
		Snapshot: &domain.QrSnapshot{
			SnapshotID:  "snap-1",
			LoteID:      req.LoteID,
			PublicToken: f.token,
			IsActive:    true,
		},
	}, nil
}

func (f *fakeSnapshotGenerator) RotateToken(context.Context, string) (*domain.QrSnapshot, error) {
	return nil, nil
}

func (f *fakeSnapshotGenerator) Revoke(context.Context, string) error { return nil }

type fakeNotifier struct {
	mu     sync.Mutex
	events []*notify.AlertEvent
}

func (f *fakeNotifier) NotifyAlert(_ context.Context, event *notify.AlertEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}
