package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/service"
)

// TraceHandler is the public, unauthenticated traceability endpoint hit by QR
// code scans.
type TraceHandler struct {
	traces service.TraceService
	logger *zap.Logger
}

func NewTraceHandler(traces service.TraceService, logger *zap.Logger) *TraceHandler {
	return &TraceHandler{traces: traces, logger: logger}
}

// GetTrace handles GET /trace/{token}. The stored document is returned as-is;
// nothing is recomputed at read time.
func (h *TraceHandler) GetTrace(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.URL.Path, "/trace/")
	if token == "" || strings.Contains(token, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	resp, err := h.traces.ResolveTrace(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"document":   resp.Document,
		"scan_count": resp.ScanCount,
	}))
}
