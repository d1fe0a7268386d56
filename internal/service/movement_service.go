package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/domain"
	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/repository"
	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/stages"
)

// MovementService coordinates stage transitions: it validates ordering and
// chronology, closes the current stay, opens the next one (or finalizes the
// lote), and optionally splits the lote into sub-lotes. The whole sequence
// runs in one transaction with a row lock on the lote, so concurrent moves on
// the same lote serialize instead of racing the stay ledger.
type MovementService interface {
	MoveLote(ctx context.Context, req MoveLoteRequest) (*MoveLoteResponse, error)
}

// SubLoteSpec describes one piece to split off a parent lote. Quantities are
// caller-supplied and deliberately not validated against the parent's animal
// count.
type SubLoteSpec struct {
	Identification string
	Quantity       int
	PieceType      string
}

// MoveLoteRequest is the moveLote operation input. Target is either a zone
// (TargetZoneID) or the terminal finished marker (Finish).
type MoveLoteRequest struct {
	LoteID       string
	TargetZoneID string
	Finish       bool
	EntryTime    time.Time

	// SubLotes triggers the split path when the target zone is in the split
	// stage.
	SubLotes []SubLoteSpec

	// GenerateTrace requests a traceability snapshot when the lote arrives at
	// the distribution stage.
	GenerateTrace bool

	Actor domain.Actor
}

// TraceRef points at a freshly generated public snapshot.
type TraceRef struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

// MoveLoteResponse is the moveLote operation output.
type MoveLoteResponse struct {
	Message    string    `json:"message"`
	SubLoteIDs []string  `json:"sublote_ids,omitempty"`
	Trace      *TraceRef `json:"trace,omitempty"`
}

type movementService struct {
	db            *sql.DB
	lotesRepo     repository.LotesRepository
	zonesRepo     repository.ZonesRepository
	staysRepo     repository.StaysRepository
	auditRepo     repository.AuditRepository
	snapshots     SnapshotService
	publicBaseURL string
	logger        *zap.Logger
}

// NewMovementService creates the movement coordinator. snapshots may be used
// after a successful move to publish a trace document.
func NewMovementService(
	db *sql.DB,
	lotesRepo repository.LotesRepository,
	zonesRepo repository.ZonesRepository,
	staysRepo repository.StaysRepository,
	auditRepo repository.AuditRepository,
	snapshots SnapshotService,
	publicBaseURL string,
	logger *zap.Logger,
) MovementService {
	return &movementService{
		db:            db,
		lotesRepo:     lotesRepo,
		zonesRepo:     zonesRepo,
		staysRepo:     staysRepo,
		auditRepo:     auditRepo,
		snapshots:     snapshots,
		publicBaseURL: publicBaseURL,
		logger:        logger,
	}
}

// MoveLote performs one stage transition.
func (s *movementService) MoveLote(ctx context.Context, req MoveLoteRequest) (*MoveLoteResponse, error) {
	if req.LoteID == "" {
		return nil, validationf("lote_id is required")
	}
	if req.EntryTime.IsZero() {
		return nil, validationf("entry_time is required")
	}
	if req.Finish == (req.TargetZoneID != "") {
		return nil, validationf("target must be exactly one of a zone or the finished marker")
	}
	if req.Finish && len(req.SubLotes) > 0 {
		return nil, validationf("sub-lotes cannot be created when finishing a lote")
	}
	for i, spec := range req.SubLotes {
		if spec.Identification == "" {
			return nil, validationf("sub-lote %d: identification is required", i)
		}
		if spec.Quantity <= 0 {
			return nil, validationf("sub-lote %d: quantity must be positive", i)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin movement transaction: %w", err)
	}
	defer tx.Rollback()

	lotes := s.lotesRepo.WithTx(tx)
	zones := s.zonesRepo.WithTx(tx)
	stays := s.staysRepo.WithTx(tx)
	audit := s.auditRepo.WithTx(tx)

	// Row lock: serializes concurrent moves on the same lote for the whole
	// close/open/split sequence.
	lote, err := lotes.GetLoteForUpdate(ctx, req.LoteID)
	if err != nil {
		return nil, err
	}
	if lote.Status == domain.LoteStatusFinished {
		return nil, validationf("lote %s is finished and cannot move", lote.LoteID)
	}

	var targetZone *domain.Zone
	targetStage := stages.Finished
	if !req.Finish {
		targetZone, err = zones.GetZone(ctx, req.TargetZoneID)
		if err != nil {
			return nil, err
		}
		if targetZone.OrgID != lote.OrgID {
			return nil, fmt.Errorf("zone %s: %w", req.TargetZoneID, repository.ErrNotFound)
		}
		if !targetZone.IsActive {
			return nil, validationf("zone %s is deactivated", targetZone.ZoneID)
		}
		targetStage = targetZone.Stage
		if !stages.IsValid(targetStage) {
			return nil, validationf("zone %s has unknown stage %q", targetZone.ZoneID, targetStage)
		}
	}
	if len(req.SubLotes) > 0 && targetStage != stages.SplitStage {
		return nil, validationf("sub-lotes can only be created when entering the %s stage", stages.SplitStage)
	}

	openStay, err := stays.GetOpenStay(ctx, req.LoteID)
	if err != nil {
		return nil, err
	}

	currentStage, err := s.stageOf(ctx, zones, openStay)
	if err != nil {
		return nil, err
	}

	// Ordering rule: strictly forward only.
	if !stages.IsForward(currentStage, targetStage) {
		return nil, validationf("cannot move from stage %s to %s", currentStage, targetStage)
	}

	// Chronology rule: entry_time must not precede the latest recorded
	// activity, open or closed.
	latestStay, err := stays.GetLatestStay(ctx, req.LoteID)
	if err != nil {
		return nil, err
	}
	if latestStay != nil && req.EntryTime.Before(latestStay.LastActivity()) {
		return nil, validationf("entry_time %s precedes the lote's last activity %s",
			req.EntryTime.Format(time.RFC3339), latestStay.LastActivity().Format(time.RFC3339))
	}

	if openStay != nil {
		if err := stays.CloseStay(ctx, openStay.StayID, req.EntryTime); err != nil {
			return nil, err
		}
		if err := s.auditStayClosed(ctx, audit, req.Actor, openStay, req.EntryTime); err != nil {
			return nil, err
		}
	}

	resp := &MoveLoteResponse{}

	switch {
	case len(req.SubLotes) > 0:
		resp.SubLoteIDs, err = s.splitLote(ctx, lotes, stays, audit, lote, targetZone, req)
		if err != nil {
			return nil, err
		}
		resp.Message = fmt.Sprintf("lote %s split into %d sub-lotes", lote.Identification, len(resp.SubLoteIDs))

	case req.Finish:
		if err := s.finishLote(ctx, lotes, audit, lote, req.Actor); err != nil {
			return nil, err
		}
		resp.Message = fmt.Sprintf("lote %s finished", lote.Identification)

	default:
		if err := s.openStay(ctx, stays, audit, lote.LoteID, targetZone, req.EntryTime, req.Actor); err != nil {
			return nil, err
		}
		resp.Message = fmt.Sprintf("lote %s moved to zone %s", lote.Identification, targetZone.Name)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit movement: %w", err)
	}

	s.logger.Info("lote moved",
		zap.String("lote_id", req.LoteID),
		zap.String("from_stage", currentStage),
		zap.String("to_stage", targetStage),
		zap.String("actor", req.Actor.String()),
		zap.Int("sublotes", len(resp.SubLoteIDs)),
	)

	// Snapshot generation happens after commit; a failure here must not undo
	// the movement, so it degrades to a log entry.
	if req.GenerateTrace && targetStage == stages.TraceStage {
		gen, err := s.snapshots.GenerateSnapshot(ctx, GenerateSnapshotRequest{LoteID: req.LoteID})
		if err != nil {
			s.logger.Error("snapshot generation after arrival failed",
				zap.String("lote_id", req.LoteID),
				zap.Error(err),
			)
		} else {
			resp.Trace = &TraceRef{
				Token: gen.Snapshot.PublicToken,
				URL:   s.publicBaseURL + "/" + gen.Snapshot.PublicToken,
			}
		}
	}

	return resp, nil
}

// stageOf derives the lote's current stage from its open stay.
func (s *movementService) stageOf(ctx context.Context, zones repository.ZonesRepository, openStay *domain.Stay) (string, error) {
	if openStay == nil || openStay.ZoneID == nil {
		return stages.Unassigned, nil
	}
	zone, err := zones.GetZone(ctx, *openStay.ZoneID)
	if err != nil {
		return "", err
	}
	return zone.Stage, nil
}

// splitLote creates the sub-lotes, opens their stays in the target zone and
// marks the parent finished. Child quantities are not reconciled against the
// parent's animal count.
func (s *movementService) splitLote(
	ctx context.Context,
	lotes repository.LotesRepository,
	stays repository.StaysRepository,
	audit repository.AuditRepository,
	parent *domain.Lote,
	targetZone *domain.Zone,
	req MoveLoteRequest,
) ([]string, error) {
	subLoteIDs := make([]string, 0, len(req.SubLotes))

	for _, spec := range req.SubLotes {
		pieceType := spec.PieceType
		child := &domain.Lote{
			LoteID:         uuid.New().String(),
			OrgID:          parent.OrgID,
			Identification: spec.Identification,
			InitialAnimals: spec.Quantity,
			FoodRegime:     parent.FoodRegime,
			CustomFields:   parent.CustomFields,
			Status:         domain.LoteStatusActive,
			ParentLoteID:   &parent.LoteID,
		}
		if pieceType != "" {
			child.PieceType = &pieceType
		}

		if err := lotes.CreateLote(ctx, child); err != nil {
			return nil, err
		}
		if err := s.openStay(ctx, stays, audit, child.LoteID, targetZone, req.EntryTime, req.Actor); err != nil {
			return nil, err
		}

		after, _ := json.Marshal(map[string]interface{}{
			"lote_id":         child.LoteID,
			"identification":  child.Identification,
			"initial_animals": child.InitialAnimals,
			"piece_type":      pieceType,
			"parent_lote_id":  parent.LoteID,
		})
		if err := audit.CreateEntry(ctx, &domain.AuditEntry{
			EntryID:   uuid.New().String(),
			LoteID:    parent.LoteID,
			Action:    domain.AuditSubLoteCreated,
			ActorType: req.Actor.Type,
			ActorID:   req.Actor.UserID,
			After:     after,
		}); err != nil {
			return nil, err
		}

		subLoteIDs = append(subLoteIDs, child.LoteID)
	}

	if err := s.finishLote(ctx, lotes, audit, parent, req.Actor); err != nil {
		return nil, err
	}

	return subLoteIDs, nil
}

func (s *movementService) finishLote(
	ctx context.Context,
	lotes repository.LotesRepository,
	audit repository.AuditRepository,
	lote *domain.Lote,
	actor domain.Actor,
) error {
	if err := lotes.UpdateLoteStatus(ctx, lote.LoteID, domain.LoteStatusFinished); err != nil {
		return err
	}

	before, _ := json.Marshal(map[string]string{"status": lote.Status})
	after, _ := json.Marshal(map[string]string{"status": domain.LoteStatusFinished})
	return audit.CreateEntry(ctx, &domain.AuditEntry{
		EntryID:   uuid.New().String(),
		LoteID:    lote.LoteID,
		Action:    domain.AuditLoteFinished,
		ActorType: actor.Type,
		ActorID:   actor.UserID,
		Before:    before,
		After:     after,
	})
}

func (s *movementService) openStay(
	ctx context.Context,
	stays repository.StaysRepository,
	audit repository.AuditRepository,
	loteID string,
	zone *domain.Zone,
	entryTime time.Time,
	actor domain.Actor,
) error {
	stay := &domain.Stay{
		StayID:    uuid.New().String(),
		LoteID:    loteID,
		ZoneID:    &zone.ZoneID,
		EntryTime: entryTime,
	}
	if err := stays.CreateStay(ctx, stay); err != nil {
		return err
	}

	after, _ := json.Marshal(map[string]interface{}{
		"stay_id":    stay.StayID,
		"zone_id":    zone.ZoneID,
		"entry_time": entryTime,
	})
	return audit.CreateEntry(ctx, &domain.AuditEntry{
		EntryID:   uuid.New().String(),
		LoteID:    loteID,
		Action:    domain.AuditStayOpened,
		ActorType: actor.Type,
		ActorID:   actor.UserID,
		After:     after,
	})
}

func (s *movementService) auditStayClosed(
	ctx context.Context,
	audit repository.AuditRepository,
	actor domain.Actor,
	stay *domain.Stay,
	exitTime time.Time,
) error {
	before, _ := json.Marshal(map[string]interface{}{
		"stay_id":    stay.StayID,
		"zone_id":    stay.ZoneID,
		"entry_time": stay.EntryTime,
		"exit_time":  nil,
	})
	after, _ := json.Marshal(map[string]interface{}{
		"stay_id":    stay.StayID,
		"zone_id":    stay.ZoneID,
		"entry_time": stay.EntryTime,
		"exit_time":  exitTime,
	})
	return audit.CreateEntry(ctx, &domain.AuditEntry{
		EntryID:   uuid.New().String(),
		LoteID:    stay.LoteID,
		Action:    domain.AuditStayClosed,
		ActorType: actor.Type,
		ActorID:   actor.UserID,
		Before:    before,
		After:     after,
	})
}
