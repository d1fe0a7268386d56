package service

import (
	"context"
	"math/rand"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/domain"
	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/notify"
	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/repository"
	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/pkg/redisx"
)

// IngestService persists incoming sensor readings and raises threshold alerts.
// Both ingestion paths (broker pool and HTTP push) converge here.
type IngestService interface {
	HandleReading(ctx context.Context, req HandleReadingRequest) (*HandleReadingResponse, error)
	// SimulateReadings inserts synthetic readings marked is_simulated. They
	// never raise alerts and never appear in trace documents.
	SimulateReadings(ctx context.Context, req SimulateReadingsRequest) (*SimulateReadingsResponse, error)
}

// HandleReadingRequest carries one extracted sample.
type HandleReadingRequest struct {
	SensorID  string
	Value     float64
	Timestamp time.Time // zero means "now"
}

// HandleReadingResponse reports the persisted reading and the alert, if the
// value breached the sensor's validation band.
type HandleReadingResponse struct {
	Reading *domain.SensorReading
	Alert   *domain.Alert
}

// SimulateReadingsRequest describes a batch of synthetic readings spread
// backwards from now at the given interval.
type SimulateReadingsRequest struct {
	SensorID        string
	Count           int
	MinValue        float64
	MaxValue        float64
	IntervalSeconds int
}

// SimulateReadingsResponse reports how many readings were inserted.
type SimulateReadingsResponse struct {
	Inserted int
}

type ingestService struct {
	sensorsRepo  repository.SensorsRepository
	readingsRepo repository.ReadingsRepository
	alertsRepo   repository.AlertsRepository

	redisClient *redis.Client
	alertStream string
	notifier    notify.Notifier // nil when no webhook is configured
	logger      *zap.Logger
	now         func() time.Time
}

var _ IngestService = (*ingestService)(nil)

// NewIngestService creates the ingestion service. notifier may be nil.
func NewIngestService(
	sensorsRepo repository.SensorsRepository,
	readingsRepo repository.ReadingsRepository,
	alertsRepo repository.AlertsRepository,
	redisClient *redis.Client,
	alertStream string,
	notifier notify.Notifier,
	logger *zap.Logger,
) IngestService {
	return &ingestService{
		sensorsRepo:  sensorsRepo,
		readingsRepo: readingsRepo,
		alertsRepo:   alertsRepo,
		redisClient:  redisClient,
		alertStream:  alertStream,
		notifier:     notifier,
		logger:       logger,
		now:          time.Now,
	}
}

// HandleReading persists the reading, then checks the validation band. The
// reading is stored even when it breaches; the alert is a derived fact. Alert
// fan-out (Redis stream, webhook) is best-effort and never fails the request.
func (s *ingestService) HandleReading(ctx context.Context, req HandleReadingRequest) (*HandleReadingResponse, error) {
	if req.SensorID == "" {
		return nil, validationf("sensor_id is required")
	}

	sensor, err := s.sensorsRepo.GetSensor(ctx, req.SensorID)
	if err != nil {
		return nil, err
	}
	if !sensor.IsActive {
		return nil, validationf("sensor %s is inactive", sensor.SensorID)
	}

	timestamp := req.Timestamp
	if timestamp.IsZero() {
		timestamp = s.now()
	}

	reading := &domain.SensorReading{
		SensorID:    sensor.SensorID,
		Value:       req.Value,
		Timestamp:   timestamp,
		IsSimulated: false,
	}
	if err := s.readingsRepo.InsertReading(ctx, reading); err != nil {
		return nil, err
	}

	resp := &HandleReadingResponse{Reading: reading}

	alert := breachAlert(sensor, req.Value)
	if alert == nil {
		return resp, nil
	}

	if err := s.alertsRepo.CreateAlert(ctx, alert); err != nil {
		return nil, err
	}
	resp.Alert = alert

	s.logger.Warn("sensor reading breached validation band",
		zap.String("sensor_id", sensor.SensorID),
		zap.String("alert_type", alert.AlertType),
		zap.Float64("value", alert.Value),
		zap.Float64("threshold", alert.Threshold),
	)

	s.fanOutAlert(ctx, sensor, alert)
	return resp, nil
}

// breachAlert returns a new alert when value falls strictly outside the
// sensor's band, or nil. Min is checked first so a misconfigured band
// (min > max) still produces a single alert.
func breachAlert(sensor *domain.Sensor, value float64) *domain.Alert {
	var alertType string
	var threshold float64

	switch {
	case sensor.ValidationMin != nil && value < *sensor.ValidationMin:
		alertType = domain.AlertTypeMinBreach
		threshold = *sensor.ValidationMin
	case sensor.ValidationMax != nil && value > *sensor.ValidationMax:
		alertType = domain.AlertTypeMaxBreach
		threshold = *sensor.ValidationMax
	default:
		return nil
	}

	return &domain.Alert{
		AlertID:   uuid.New().String(),
		SensorID:  sensor.SensorID,
		ZoneID:    sensor.ZoneID,
		OrgID:     sensor.OrgID,
		AlertType: alertType,
		Value:     value,
		Threshold: threshold,
	}
}

func (s *ingestService) fanOutAlert(ctx context.Context, sensor *domain.Sensor, alert *domain.Alert) {
	event := &notify.AlertEvent{
		AlertID:    alert.AlertID,
		SensorID:   alert.SensorID,
		SensorName: sensor.Name,
		ZoneID:     alert.ZoneID,
		AlertType:  alert.AlertType,
		Value:      alert.Value,
		Threshold:  alert.Threshold,
		CreatedAt:  alert.CreatedAt,
	}

	if s.redisClient != nil && s.alertStream != "" {
		if _, err := redisx.PublishJSONToStream(ctx, s.redisClient, s.alertStream, event); err != nil {
			s.logger.Error("failed to publish alert to stream",
				zap.String("alert_id", alert.AlertID),
				zap.Error(err),
			)
		}
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyAlert(ctx, event); err != nil {
			s.logger.Error("failed to deliver alert webhook",
				zap.String("alert_id", alert.AlertID),
				zap.Error(err),
			)
		}
	}
}

// SimulateReadings spreads Count synthetic readings backwards from now at
// IntervalSeconds spacing, with values drawn uniformly from [MinValue,
// MaxValue].
func (s *ingestService) SimulateReadings(ctx context.Context, req SimulateReadingsRequest) (*SimulateReadingsResponse, error) {
	if req.SensorID == "" {
		return nil, validationf("sensor_id is required")
	}
	if req.Count <= 0 {
		return nil, validationf("count must be positive")
	}
	if req.MaxValue < req.MinValue {
		return nil, validationf("max_value must be >= min_value")
	}

	sensor, err := s.sensorsRepo.GetSensor(ctx, req.SensorID)
	if err != nil {
		return nil, err
	}

	interval := time.Duration(req.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}

	end := s.now()
	inserted := 0
	for i := 0; i < req.Count; i++ {
		reading := &domain.SensorReading{
			SensorID:    sensor.SensorID,
			Value:       req.MinValue + rand.Float64()*(req.MaxValue-req.MinValue),
			Timestamp:   end.Add(-time.Duration(req.Count-1-i) * interval),
			IsSimulated: true,
		}
		if err := s.readingsRepo.InsertReading(ctx, reading); err != nil {
			return nil, err
		}
		inserted++
	}

	s.logger.Info("simulated readings inserted",
		zap.String("sensor_id", sensor.SensorID),
		zap.Int("count", inserted),
	)

	return &SimulateReadingsResponse{Inserted: inserted}, nil
}
