package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/domain"
	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/repository"
)

// AlertService lists breach alerts and marks them read.
type AlertService interface {
	ListAlerts(ctx context.Context, req ListAlertsRequest) (*ListAlertsResponse, error)
	MarkAlertRead(ctx context.Context, orgID, alertID string) error
}

// ListAlertsRequest filters and paginates alert listings.
type ListAlertsRequest struct {
	OrgID     string
	SensorID  string
	ZoneID    string
	AlertType string
	Unread    bool
	Page      int
	Size      int
}

// ListAlertsResponse is one page of alerts plus the total match count.
type ListAlertsResponse struct {
	Alerts []*domain.Alert
	Total  int
	Page   int
	Size   int
}

type alertService struct {
	alertsRepo repository.AlertsRepository
	logger     *zap.Logger
}

var _ AlertService = (*alertService)(nil)

// NewAlertService creates the alert query service.
func NewAlertService(alertsRepo repository.AlertsRepository, logger *zap.Logger) AlertService {
	return &alertService{alertsRepo: alertsRepo, logger: logger}
}

func (s *alertService) ListAlerts(ctx context.Context, req ListAlertsRequest) (*ListAlertsResponse, error) {
	if req.OrgID == "" {
		return nil, validationf("org_id is required")
	}
	if req.AlertType != "" &&
		req.AlertType != domain.AlertTypeMinBreach &&
		req.AlertType != domain.AlertTypeMaxBreach {
		return nil, validationf("unknown alert_type %q", req.AlertType)
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	size := req.Size
	if size < 1 || size > 200 {
		size = 50
	}

	filters := repository.AlertFilters{
		SensorID:  req.SensorID,
		ZoneID:    req.ZoneID,
		AlertType: req.AlertType,
		Unread:    req.Unread,
	}

	alerts, total, err := s.alertsRepo.ListAlerts(ctx, req.OrgID, filters, page, size)
	if err != nil {
		return nil, err
	}

	return &ListAlertsResponse{
		Alerts: alerts,
		Total:  total,
		Page:   page,
		Size:   size,
	}, nil
}

func (s *alertService) MarkAlertRead(ctx context.Context, orgID, alertID string) error {
	if orgID == "" || alertID == "" {
		return validationf("org_id and alert_id are required")
	}

	if err := s.alertsRepo.MarkAlertRead(ctx, orgID, alertID); err != nil {
		return err
	}

	s.logger.Info("alert marked read", zap.String("alert_id", alertID))
	return nil
}
