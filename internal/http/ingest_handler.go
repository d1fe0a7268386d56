package httpapi

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/service"
)

// IngestHandler is the HTTP push ingestion path, for sensors that cannot
// publish to a broker, plus the reading simulation endpoint.
type IngestHandler struct {
	ingest service.IngestService
	logger *zap.Logger
}

func NewIngestHandler(ingest service.IngestService, logger *zap.Logger) *IngestHandler {
	return &IngestHandler{ingest: ingest, logger: logger}
}

type pushReadingBody struct {
	SensorID  string    `json:"sensor_id"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// PushReading handles POST /api/v1/readings.
func (h *IngestHandler) PushReading(w http.ResponseWriter, r *http.Request) {
	var body pushReadingBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}

	resp, err := h.ingest.HandleReading(r.Context(), service.HandleReadingRequest{
		SensorID:  body.SensorID,
		Value:     body.Value,
		Timestamp: body.Timestamp,
	})
	if err != nil {
		h.logger.Error("PushReading failed", zap.String("sensor_id", body.SensorID), zap.Error(err))
		writeError(w, err)
		return
	}

	result := map[string]any{"reading_id": resp.Reading.ID}
	if resp.Alert != nil {
		result["alert"] = resp.Alert
	}
	writeJSON(w, http.StatusCreated, Ok(result))
}

type simulateBody struct {
	Count           int     `json:"count"`
	MinValue        float64 `json:"min_value"`
	MaxValue        float64 `json:"max_value"`
	IntervalSeconds int     `json:"interval_seconds"`
}

// SimulateReadings handles POST /api/v1/sensors/{id}/simulate.
func (h *IngestHandler) SimulateReadings(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/sensors/")
	sensorID := strings.TrimSuffix(path, "/simulate")
	if sensorID == "" || strings.Contains(sensorID, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var body simulateBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}

	resp, err := h.ingest.SimulateReadings(r.Context(), service.SimulateReadingsRequest{
		SensorID:        sensorID,
		Count:           body.Count,
		MinValue:        body.MinValue,
		MaxValue:        body.MaxValue,
		IntervalSeconds: body.IntervalSeconds,
	})
	if err != nil {
		h.logger.Error("SimulateReadings failed", zap.String("sensor_id", sensorID), zap.Error(err))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, Ok(map[string]any{"inserted": resp.Inserted}))
}
