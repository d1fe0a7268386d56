package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/domain"
	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/repository"
	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/stages"
)

// SnapshotService reduces a lote's residency history and sensor time series
// into an immutable per-phase traceability document keyed by a public token.
type SnapshotService interface {
	GenerateSnapshot(ctx context.Context, req GenerateSnapshotRequest) (*GenerateSnapshotResponse, error)
	// RotateToken issues a new public token for an existing snapshot; the
	// stored document is untouched.
	RotateToken(ctx context.Context, snapshotID string) (*domain.QrSnapshot, error)
	// Revoke deactivates a snapshot's token.
	Revoke(ctx context.Context, snapshotID string) error
}

// GenerateSnapshotRequest identifies the lote to aggregate.
type GenerateSnapshotRequest struct {
	LoteID string
}

// GenerateSnapshotResponse carries the persisted snapshot and the decoded
// document.
type GenerateSnapshotResponse struct {
	Snapshot *domain.QrSnapshot
	Document *domain.TraceDocument
}

type snapshotService struct {
	lotesRepo     repository.LotesRepository
	staysRepo     repository.StaysRepository
	zonesRepo     repository.ZonesRepository
	readingsRepo  repository.ReadingsRepository
	snapshotsRepo repository.SnapshotsRepository
	logger        *zap.Logger

	// now is injectable so aggregation is deterministic under test.
	now func() time.Time
}

// NewSnapshotService creates the aggregator.
func NewSnapshotService(
	lotesRepo repository.LotesRepository,
	staysRepo repository.StaysRepository,
	zonesRepo repository.ZonesRepository,
	readingsRepo repository.ReadingsRepository,
	snapshotsRepo repository.SnapshotsRepository,
	logger *zap.Logger,
) SnapshotService {
	return &snapshotService{
		lotesRepo:     lotesRepo,
		staysRepo:     staysRepo,
		zonesRepo:     zonesRepo,
		readingsRepo:  readingsRepo,
		snapshotsRepo: snapshotsRepo,
		logger:        logger,
		now:           time.Now,
	}
}

// GenerateSnapshot builds and persists a new trace document for the lote.
// Re-generation always inserts a new row; previously issued tokens stay valid
// until explicitly revoked.
func (s *snapshotService) GenerateSnapshot(ctx context.Context, req GenerateSnapshotRequest) (*GenerateSnapshotResponse, error) {
	if req.LoteID == "" {
		return nil, validationf("lote_id is required")
	}

	lote, err := s.lotesRepo.GetLote(ctx, req.LoteID)
	if err != nil {
		return nil, err
	}

	doc, err := s.buildDocument(ctx, lote)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode trace document: %w", err)
	}

	snapshot := &domain.QrSnapshot{
		SnapshotID:   uuid.New().String(),
		LoteID:       lote.LoteID,
		PublicToken:  uuid.New().String(),
		SnapshotData: data,
		IsActive:     true,
	}
	if err := s.snapshotsRepo.CreateSnapshot(ctx, snapshot); err != nil {
		return nil, err
	}

	s.logger.Info("trace snapshot generated",
		zap.String("lote_id", lote.LoteID),
		zap.String("snapshot_id", snapshot.SnapshotID),
		zap.Int("phases", len(doc.Phases)),
	)

	return &GenerateSnapshotResponse{Snapshot: snapshot, Document: doc}, nil
}

// RotateToken issues a new token for the same stored document.
func (s *snapshotService) RotateToken(ctx context.Context, snapshotID string) (*domain.QrSnapshot, error) {
	if snapshotID == "" {
		return nil, validationf("snapshot_id is required")
	}

	newToken := uuid.New().String()
	if err := s.snapshotsRepo.RotateToken(ctx, snapshotID, newToken); err != nil {
		return nil, err
	}

	snapshot, err := s.snapshotsRepo.GetByID(ctx, snapshotID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("snapshot token rotated", zap.String("snapshot_id", snapshotID))
	return snapshot, nil
}

// Revoke deactivates the snapshot's token.
func (s *snapshotService) Revoke(ctx context.Context, snapshotID string) error {
	if snapshotID == "" {
		return validationf("snapshot_id is required")
	}

	if err := s.snapshotsRepo.Revoke(ctx, snapshotID); err != nil {
		return err
	}

	s.logger.Info("snapshot revoked", zap.String("snapshot_id", snapshotID))
	return nil
}

// buildDocument aggregates the lote's lineage-merged stays and public sensor
// readings into phases ordered by the canonical stage order.
func (s *snapshotService) buildDocument(ctx context.Context, lote *domain.Lote) (*domain.TraceDocument, error) {
	stayList, err := s.staysRepo.ListStays(ctx, lote.LoteID)
	if err != nil {
		return nil, err
	}

	// Pre-split phases are inherited from the parent's history.
	if lote.IsSplitPiece() {
		parentStays, err := s.staysRepo.ListStays(ctx, *lote.ParentLoteID)
		if err != nil {
			return nil, err
		}
		stayList = append(stayList, parentStays...)
	}

	sort.SliceStable(stayList, func(i, j int) bool {
		return stayList[i].EntryTime.Before(stayList[j].EntryTime)
	})

	zoneIDs := distinctZoneIDs(stayList)
	zones, err := s.zonesRepo.GetZonesByIDs(ctx, zoneIDs)
	if err != nil {
		return nil, err
	}

	phases, err := s.buildPhases(ctx, stayList, zones)
	if err != nil {
		return nil, err
	}

	doc := &domain.TraceDocument{
		Lote: domain.TraceLote{
			LoteID:         lote.LoteID,
			Identification: lote.Identification,
			FoodRegime:     lote.FoodRegime,
			InitialAnimals: lote.InitialAnimals,
			CustomFields:   lote.CustomFields,
		},
		Phases: phases,
		Metadata: domain.TraceMetadata{
			GeneratedAt: s.now(),
			LoteID:      lote.LoteID,
			PhaseCount:  len(phases),
		},
	}
	if lote.PieceType != nil {
		doc.Lote.PieceType = *lote.PieceType
	}
	if lote.ParentLoteID != nil {
		doc.Lote.ParentLoteID = *lote.ParentLoteID
	}

	return doc, nil
}

func (s *snapshotService) buildPhases(ctx context.Context, stayList []*domain.Stay, zones map[string]*domain.Zone) ([]domain.TracePhase, error) {
	// Group stays by their zone's stage. Stays without a zone (unassigned)
	// carry no environment and are not rendered as phases.
	byStage := make(map[string][]*domain.Stay)
	for _, stay := range stayList {
		if stay.ZoneID == nil {
			continue
		}
		zone, ok := zones[*stay.ZoneID]
		if !ok {
			return nil, fmt.Errorf("zone %s referenced by stay %s: %w", *stay.ZoneID, stay.StayID, repository.ErrNotFound)
		}
		byStage[zone.Stage] = append(byStage[zone.Stage], stay)
	}

	// Canonical stage order, not chronological discovery order.
	phases := make([]domain.TracePhase, 0, len(byStage))
	for _, stage := range stages.All() {
		group, ok := byStage[stage]
		if !ok {
			continue
		}

		phase, err := s.buildPhase(ctx, stage, group, zones)
		if err != nil {
			return nil, err
		}
		phases = append(phases, *phase)
	}

	return phases, nil
}

func (s *snapshotService) buildPhase(ctx context.Context, stage string, group []*domain.Stay, zones map[string]*domain.Zone) (*domain.TracePhase, error) {
	start := group[0].EntryTime
	end := start
	zoneNames := make([]string, 0, len(group))
	zoneIDs := make([]string, 0, len(group))
	seenZones := make(map[string]bool)

	for _, stay := range group {
		if stay.EntryTime.Before(start) {
			start = stay.EntryTime
		}
		stayEnd := s.now()
		if stay.ExitTime != nil {
			stayEnd = *stay.ExitTime
		}
		if stayEnd.After(end) {
			end = stayEnd
		}

		if !seenZones[*stay.ZoneID] {
			seenZones[*stay.ZoneID] = true
			zoneIDs = append(zoneIDs, *stay.ZoneID)
			zoneNames = append(zoneNames, zones[*stay.ZoneID].Name)
		}
	}

	readings, err := s.readingsRepo.ListReadingsForZones(ctx, zoneIDs, start, end)
	if err != nil {
		return nil, err
	}

	return &domain.TracePhase{
		Stage:        stage,
		StartTime:    start,
		EndTime:      end,
		DurationDays: int(end.Sub(start).Hours() / 24),
		Zones:        zoneNames,
		Sensors:      aggregateReadings(readings, zones),
	}, nil
}

// aggregateReadings groups readings by sensor type and computes avg/min/max
// (one decimal) plus the share of values inside the zone's target range when
// one is configured. Types are emitted in alphabetical order so documents are
// deterministic.
func aggregateReadings(readings []*repository.ReadingWithSensor, zones map[string]*domain.Zone) []domain.TraceSensorStats {
	type acc struct {
		count     int
		sum       float64
		min       float64
		max       float64
		inTarget  int
		withRange int
	}

	byType := make(map[string]*acc)
	for _, r := range readings {
		a, ok := byType[r.SensorType]
		if !ok {
			a = &acc{min: r.Value, max: r.Value}
			byType[r.SensorType] = a
		}

		a.count++
		a.sum += r.Value
		if r.Value < a.min {
			a.min = r.Value
		}
		if r.Value > a.max {
			a.max = r.Value
		}

		if zone, ok := zones[r.ZoneID]; ok {
			if rng, ok := zone.TargetRanges[r.SensorType]; ok {
				a.withRange++
				if r.Value >= rng.Min && r.Value <= rng.Max {
					a.inTarget++
				}
			}
		}
	}

	types := make([]string, 0, len(byType))
	for sensorType := range byType {
		types = append(types, sensorType)
	}
	sort.Strings(types)

	stats := make([]domain.TraceSensorStats, 0, len(types))
	for _, sensorType := range types {
		a := byType[sensorType]
		st := domain.TraceSensorStats{
			SensorType: sensorType,
			Count:      a.count,
			Avg:        round1(a.sum / float64(a.count)),
			Min:        round1(a.min),
			Max:        round1(a.max),
		}
		if a.withRange > 0 {
			pct := int(math.Round(100 * float64(a.inTarget) / float64(a.withRange)))
			st.PctInTarget = &pct
		}
		stats = append(stats, st)
	}

	return stats
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func distinctZoneIDs(stayList []*domain.Stay) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, stay := range stayList {
		if stay.ZoneID == nil || seen[*stay.ZoneID] {
			continue
		}
		seen[*stay.ZoneID] = true
		ids = append(ids, *stay.ZoneID)
	}
	return ids
}
