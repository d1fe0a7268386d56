package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/domain"
	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/repository"
)

func seedAlert(t *testing.T, repo *fakeAlertsRepo, id, orgID, alertType string, read bool) {
	t.Helper()
	require.NoError(t, repo.CreateAlert(context.Background(), &domain.Alert{
		AlertID:   id,
		SensorID:  "s1",
		ZoneID:    "z1",
		OrgID:     orgID,
		AlertType: alertType,
		Value:     25.0,
		Threshold: 20.0,
		IsRead:    read,
	}))
}

func TestListAlerts_ScopedToOrg(t *testing.T) {
	repo := &fakeAlertsRepo{}
	seedAlert(t, repo, "a1", testOrgID, domain.AlertTypeMaxBreach, false)
	seedAlert(t, repo, "a2", "other-org", domain.AlertTypeMaxBreach, false)
	svc := NewAlertService(repo, zap.NewNop())

	resp, err := svc.ListAlerts(context.Background(), ListAlertsRequest{OrgID: testOrgID})

	require.NoError(t, err)
	assert.Equal(t, 1, resp.Total)
	require.Len(t, resp.Alerts, 1)
	assert.Equal(t, "a1", resp.Alerts[0].AlertID)
}

func TestListAlerts_UnreadFilter(t *testing.T) {
	repo := &fakeAlertsRepo{}
	seedAlert(t, repo, "a1", testOrgID, domain.AlertTypeMinBreach, true)
	seedAlert(t, repo, "a2", testOrgID, domain.AlertTypeMinBreach, false)
	svc := NewAlertService(repo, zap.NewNop())

	resp, err := svc.ListAlerts(context.Background(), ListAlertsRequest{OrgID: testOrgID, Unread: true})

	require.NoError(t, err)
	require.Len(t, resp.Alerts, 1)
	assert.Equal(t, "a2", resp.Alerts[0].AlertID)
}

func TestListAlerts_UnknownTypeRejected(t *testing.T) {
	svc := NewAlertService(&fakeAlertsRepo{}, zap.NewNop())

	_, err := svc.ListAlerts(context.Background(), ListAlertsRequest{
		OrgID:     testOrgID,
		AlertType: "overheat",
	})

	assert.ErrorIs(t, err, ErrValidation)
}

func TestMarkAlertRead(t *testing.T) {
	repo := &fakeAlertsRepo{}
	seedAlert(t, repo, "a1", testOrgID, domain.AlertTypeMaxBreach, false)
	svc := NewAlertService(repo, zap.NewNop())

	require.NoError(t, svc.MarkAlertRead(context.Background(), testOrgID, "a1"))
	assert.True(t, repo.alerts[0].IsRead)

	// Cross-org mark-read behaves like a missing row.
	err := svc.MarkAlertRead(context.Background(), "other-org", "a1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
