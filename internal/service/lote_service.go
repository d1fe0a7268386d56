package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/domain"
	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/repository"
)

// LoteService covers lote intake and read access to a lote's history.
type LoteService interface {
	// CreateLote registers a new root lote. It starts in the unassigned stage
	// with no stay; the first movement opens its first stay.
	CreateLote(ctx context.Context, req CreateLoteRequest) (*CreateLoteResponse, error)
	GetLote(ctx context.Context, loteID string) (*GetLoteResponse, error)
	ListAuditEntries(ctx context.Context, loteID string, page, size int) (*ListAuditEntriesResponse, error)
}

// CreateLoteRequest is the lote intake input.
type CreateLoteRequest struct {
	OrgID          string
	Identification string
	InitialAnimals int
	FoodRegime     string
	CustomFields   json.RawMessage
	Actor          domain.Actor
}

// CreateLoteResponse returns the created lote.
type CreateLoteResponse struct {
	Lote *domain.Lote
}

// GetLoteResponse is a lote with its full stay ledger, ordered by entry time.
type GetLoteResponse struct {
	Lote  *domain.Lote
	Stays []*domain.Stay
}

// ListAuditEntriesResponse is one page of a lote's audit trail.
type ListAuditEntriesResponse struct {
	Entries []*domain.AuditEntry
	Total   int
	Page    int
	Size    int
}

type loteService struct {
	lotesRepo repository.LotesRepository
	staysRepo repository.StaysRepository
	auditRepo repository.AuditRepository
	logger    *zap.Logger
}

var _ LoteService = (*loteService)(nil)

// NewLoteService creates the lote intake and query service.
func NewLoteService(
	lotesRepo repository.LotesRepository,
	staysRepo repository.StaysRepository,
	auditRepo repository.AuditRepository,
	logger *zap.Logger,
) LoteService {
	return &loteService{
		lotesRepo: lotesRepo,
		staysRepo: staysRepo,
		auditRepo: auditRepo,
		logger:    logger,
	}
}

func (s *loteService) CreateLote(ctx context.Context, req CreateLoteRequest) (*CreateLoteResponse, error) {
	if req.OrgID == "" {
		return nil, validationf("org_id is required")
	}
	if req.Identification == "" {
		return nil, validationf("identification is required")
	}
	if req.InitialAnimals <= 0 {
		return nil, validationf("initial_animals must be positive")
	}

	customFields := req.CustomFields
	if len(customFields) == 0 {
		customFields = json.RawMessage(`{}`)
	}

	lote := &domain.Lote{
		LoteID:         uuid.New().String(),
		OrgID:          req.OrgID,
		Identification: req.Identification,
		InitialAnimals: req.InitialAnimals,
		FoodRegime:     req.FoodRegime,
		CustomFields:   customFields,
		Status:         domain.LoteStatusActive,
	}
	if err := s.lotesRepo.CreateLote(ctx, lote); err != nil {
		return nil, err
	}

	after, _ := json.Marshal(map[string]interface{}{
		"lote_id":         lote.LoteID,
		"identification":  lote.Identification,
		"initial_animals": lote.InitialAnimals,
		"food_regime":     lote.FoodRegime,
	})
	if err := s.auditRepo.CreateEntry(ctx, &domain.AuditEntry{
		EntryID:   uuid.New().String(),
		LoteID:    lote.LoteID,
		Action:    domain.AuditLoteCreated,
		ActorType: req.Actor.Type,
		ActorID:   req.Actor.UserID,
		After:     after,
	}); err != nil {
		return nil, err
	}

	s.logger.Info("lote created",
		zap.String("lote_id", lote.LoteID),
		zap.String("identification", lote.Identification),
		zap.Int("initial_animals", lote.InitialAnimals),
	)

	return &CreateLoteResponse{Lote: lote}, nil
}

func (s *loteService) GetLote(ctx context.Context, loteID string) (*GetLoteResponse, error) {
	if loteID == "" {
		return nil, validationf("lote_id is required")
	}

	lote, err := s.lotesRepo.GetLote(ctx, loteID)
	if err != nil {
		return nil, err
	}

	stays, err := s.staysRepo.ListStays(ctx, loteID)
	if err != nil {
		return nil, err
	}

	return &GetLoteResponse{Lote: lote, Stays: stays}, nil
}

func (s *loteService) ListAuditEntries(ctx context.Context, loteID string, page, size int) (*ListAuditEntriesResponse, error) {
	if loteID == "" {
		return nil, validationf("lote_id is required")
	}
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 200 {
		size = 50
	}

	entries, total, err := s.auditRepo.ListEntries(ctx, loteID, page, size)
	if err != nil {
		return nil, err
	}

	return &ListAuditEntriesResponse{
		Entries: entries,
		Total:   total,
		Page:    page,
		Size:    size,
	}, nil
}
