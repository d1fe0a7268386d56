package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/domain"
	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/service"
)

// AlertHandler lists threshold breach alerts and marks them read.
type AlertHandler struct {
	alerts service.AlertService
	logger *zap.Logger
}

func NewAlertHandler(alerts service.AlertService, logger *zap.Logger) *AlertHandler {
	return &AlertHandler{alerts: alerts, logger: logger}
}

// ServeHTTP dispatches /api/v1/alerts and /api/v1/alerts/{id}/read.
func (h *AlertHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/api/v1/alerts" && r.Method == http.MethodGet:
		h.ListAlerts(w, r)
	case strings.HasSuffix(path, "/read") && r.Method == http.MethodPut:
		alertID := strings.TrimSuffix(path, "/read")
		alertID = strings.TrimPrefix(alertID, "/api/v1/alerts/")
		if alertID != "" && !strings.Contains(alertID, "/") {
			h.MarkRead(w, r, alertID)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *AlertHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgIDFromReq(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	req := service.ListAlertsRequest{
		OrgID:     orgID,
		SensorID:  strings.TrimSpace(q.Get("sensor_id")),
		ZoneID:    strings.TrimSpace(q.Get("zone_id")),
		AlertType: strings.TrimSpace(q.Get("alert_type")),
		Unread:    q.Get("unread") == "true",
		Page:      parseInt(q.Get("page"), 1),
		Size:      parseInt(q.Get("size"), 50),
	}

	resp, err := h.alerts.ListAlerts(r.Context(), req)
	if err != nil {
		h.logger.Error("ListAlerts failed", zap.Error(err))
		writeError(w, err)
		return
	}

	alerts := resp.Alerts
	if alerts == nil {
		alerts = []*domain.Alert{}
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items": alerts,
		"pagination": map[string]any{
			"page":  resp.Page,
			"size":  resp.Size,
			"total": resp.Total,
		},
	}))
}

func (h *AlertHandler) MarkRead(w http.ResponseWriter, r *http.Request, alertID string) {
	orgID, ok := orgIDFromReq(w, r)
	if !ok {
		return
	}

	if err := h.alerts.MarkAlertRead(r.Context(), orgID, alertID); err != nil {
		h.logger.Error("MarkAlertRead failed", zap.String("alert_id", alertID), zap.Error(err))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{"read": true}))
}
