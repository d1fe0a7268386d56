package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/domain"
	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/service"
)

// LoteHandler exposes lote intake, lookup, movement and the audit trail.
type LoteHandler struct {
	lotes     service.LoteService
	movements service.MovementService
	logger    *zap.Logger
}

func NewLoteHandler(lotes service.LoteService, movements service.MovementService, logger *zap.Logger) *LoteHandler {
	return &LoteHandler{lotes: lotes, movements: movements, logger: logger}
}

// ServeHTTP dispatches /api/v1/lotes and /api/v1/lotes/{id}[/move|/audit].
func (h *LoteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/lotes")
	path = strings.TrimPrefix(path, "/")

	switch {
	case path == "" && r.Method == http.MethodPost:
		h.CreateLote(w, r)
	case path != "" && !strings.Contains(path, "/") && r.Method == http.MethodGet:
		h.GetLote(w, r, path)
	case strings.HasSuffix(path, "/move") && r.Method == http.MethodPost:
		h.MoveLote(w, r, strings.TrimSuffix(path, "/move"))
	case strings.HasSuffix(path, "/audit") && r.Method == http.MethodGet:
		h.ListAudit(w, r, strings.TrimSuffix(path, "/audit"))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type createLoteBody struct {
	Identification string          `json:"identification"`
	InitialAnimals int             `json:"initial_animals"`
	FoodRegime     string          `json:"food_regime"`
	CustomFields   json.RawMessage `json:"custom_fields"`
}

func (h *LoteHandler) CreateLote(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgIDFromReq(w, r)
	if !ok {
		return
	}

	var body createLoteBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}

	resp, err := h.lotes.CreateLote(r.Context(), service.CreateLoteRequest{
		OrgID:          orgID,
		Identification: body.Identification,
		InitialAnimals: body.InitialAnimals,
		FoodRegime:     body.FoodRegime,
		CustomFields:   body.CustomFields,
		Actor:          actorFromReq(r),
	})
	if err != nil {
		h.logger.Error("CreateLote failed", zap.Error(err))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, Ok(resp.Lote))
}

func (h *LoteHandler) GetLote(w http.ResponseWriter, r *http.Request, loteID string) {
	resp, err := h.lotes.GetLote(r.Context(), loteID)
	if err != nil {
		h.logger.Error("GetLote failed", zap.String("lote_id", loteID), zap.Error(err))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"lote":  resp.Lote,
		"stays": resp.Stays,
	}))
}

type subLoteBody struct {
	Identification string `json:"identification"`
	Quantity       int    `json:"quantity"`
	PieceType      string `json:"piece_type"`
}

type moveLoteBody struct {
	TargetZoneID  string        `json:"target_zone_id"`
	Finish        bool          `json:"finish"`
	EntryTime     time.Time     `json:"entry_time"`
	SubLotes      []subLoteBody `json:"sub_lotes"`
	GenerateTrace bool          `json:"generate_trace"`
}

func (h *LoteHandler) MoveLote(w http.ResponseWriter, r *http.Request, loteID string) {
	var body moveLoteBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}

	req := service.MoveLoteRequest{
		LoteID:        loteID,
		TargetZoneID:  body.TargetZoneID,
		Finish:        body.Finish,
		EntryTime:     body.EntryTime,
		GenerateTrace: body.GenerateTrace,
		Actor:         actorFromReq(r),
	}
	for _, sub := range body.SubLotes {
		req.SubLotes = append(req.SubLotes, service.SubLoteSpec{
			Identification: sub.Identification,
			Quantity:       sub.Quantity,
			PieceType:      sub.PieceType,
		})
	}

	resp, err := h.movements.MoveLote(r.Context(), req)
	if err != nil {
		h.logger.Warn("MoveLote rejected",
			zap.String("lote_id", loteID),
			zap.Error(err),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(resp))
}

func (h *LoteHandler) ListAudit(w http.ResponseWriter, r *http.Request, loteID string) {
	page := parseInt(r.URL.Query().Get("page"), 1)
	size := parseInt(r.URL.Query().Get("size"), 50)

	resp, err := h.lotes.ListAuditEntries(r.Context(), loteID, page, size)
	if err != nil {
		h.logger.Error("ListAuditEntries failed", zap.String("lote_id", loteID), zap.Error(err))
		writeError(w, err)
		return
	}

	entries := resp.Entries
	if entries == nil {
		entries = []*domain.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items": entries,
		"pagination": map[string]any{
			"page":  resp.Page,
			"size":  resp.Size,
			"total": resp.Total,
		},
	}))
}
