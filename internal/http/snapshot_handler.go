package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/service"
)

// SnapshotHandler manages trace snapshots: generation on demand, token
// rotation and revocation.
type SnapshotHandler struct {
	snapshots service.SnapshotService
	logger    *zap.Logger

	// publicBaseURL prefixes tokens in responses so callers get a usable link.
	publicBaseURL string
}

func NewSnapshotHandler(snapshots service.SnapshotService, publicBaseURL string, logger *zap.Logger) *SnapshotHandler {
	return &SnapshotHandler{snapshots: snapshots, publicBaseURL: publicBaseURL, logger: logger}
}

// ServeHTTP dispatches /api/v1/snapshots/{id}/rotate and .../revoke.
func (h *SnapshotHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/v1/snapshots/")
	switch {
	case strings.HasSuffix(path, "/rotate"):
		h.Rotate(w, r, strings.TrimSuffix(path, "/rotate"))
	case strings.HasSuffix(path, "/revoke"):
		h.Revoke(w, r, strings.TrimSuffix(path, "/revoke"))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type generateSnapshotBody struct {
	LoteID string `json:"lote_id"`
}

// Generate handles POST /api/v1/snapshots.
func (h *SnapshotHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var body generateSnapshotBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}

	resp, err := h.snapshots.GenerateSnapshot(r.Context(), service.GenerateSnapshotRequest{LoteID: body.LoteID})
	if err != nil {
		h.logger.Error("GenerateSnapshot failed", zap.String("lote_id", body.LoteID), zap.Error(err))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, Ok(map[string]any{
		"snapshot_id": resp.Snapshot.SnapshotID,
		"token":       resp.Snapshot.PublicToken,
		"url":         h.publicBaseURL + "/" + resp.Snapshot.PublicToken,
		"document":    resp.Document,
	}))
}

func (h *SnapshotHandler) Rotate(w http.ResponseWriter, r *http.Request, snapshotID string) {
	snapshot, err := h.snapshots.RotateToken(r.Context(), snapshotID)
	if err != nil {
		h.logger.Error("RotateToken failed", zap.String("snapshot_id", snapshotID), zap.Error(err))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"snapshot_id": snapshot.SnapshotID,
		"token":       snapshot.PublicToken,
		"url":         h.publicBaseURL + "/" + snapshot.PublicToken,
	}))
}

func (h *SnapshotHandler) Revoke(w http.ResponseWriter, r *http.Request, snapshotID string) {
	if err := h.snapshots.Revoke(r.Context(), snapshotID); err != nil {
		h.logger.Error("Revoke failed", zap.String("snapshot_id", snapshotID), zap.Error(err))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{"revoked": true}))
}
