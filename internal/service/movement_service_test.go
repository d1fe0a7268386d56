package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/domain"
	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/repository"
	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/stages"
)

const testOrgID = "org-1"

type movementFixture struct {
	db        *sql.DB
	mock      sqlmock.Sqlmock
	lotes     *fakeLotesRepo
	zones     *fakeZonesRepo
	stays     *fakeStaysRepo
	audit     *fakeAuditRepo
	snapshots *fakeSnapshotGenerator
	svc       MovementService
}

func newMovementFixture(t *testing.T, zones ...*domain.Zone) *movementFixture {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &movementFixture{
		db:        db,
		mock:      mock,
		lotes:     newFakeLotesRepo(),
		zones:     newFakeZonesRepo(zones...),
		stays:     newFakeStaysRepo(),
		audit:     &fakeAuditRepo{},
		snapshots: &fakeSnapshotGenerator{token: "tok-123"},
	}
	f.svc = NewMovementService(db, f.lotes, f.zones, f.stays, f.audit, f.snapshots,
		"http://trace.local/trace", zap.NewNop())
	return f
}

func (f *movementFixture) expectTx() {
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
}

func (f *movementFixture) expectRollback() {
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
}

func activeLote(id string) *domain.Lote {
	return &domain.Lote{
		LoteID:         id,
		OrgID:          testOrgID,
		Identification: "L-" + id,
		InitialAnimals: 120,
		FoodRegime:     "bellota",
		Status:         domain.LoteStatusActive,
	}
}

func zoneInStage(id, stage string) *domain.Zone {
	return &domain.Zone{
		ZoneID:   id,
		OrgID:    testOrgID,
		Name:     "zone-" + id,
		Stage:    stage,
		IsActive: true,
	}
}

func TestMoveLote_FirstMoveOpensStay(t *testing.T) {
	zone := zoneInStage("z1", stages.Breeding)
	f := newMovementFixture(t, zone)
	lote := activeLote("l1")
	require.NoError(t, f.lotes.CreateLote(context.Background(), lote))

	f.expectTx()

	resp, err := f.svc.MoveLote(context.Background(), MoveLoteRequest{
		LoteID:       "l1",
		TargetZoneID: "z1",
		EntryTime:    time.Now(),
		Actor:        domain.UserActor("u1"),
	})

	require.NoError(t, err)
	assert.Contains(t, resp.Message, "moved to zone")

	open, err := f.stays.GetOpenStay(context.Background(), "l1")
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, "z1", *open.ZoneID)

	assert.Equal(t, []string{domain.AuditStayOpened}, f.audit.actions("l1"))
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestMoveLote_ForwardMoveClosesPreviousStay(t *testing.T) {
	breeding := zoneInStage("z1", stages.Breeding)
	fattening := zoneInStage("z2", stages.Fattening)
	f := newMovementFixture(t, breeding, fattening)
	require.NoError(t, f.lotes.CreateLote(context.Background(), activeLote("l1")))

	entry := time.Now().Add(-48 * time.Hour)
	z1 := "z1"
	require.NoError(t, f.stays.CreateStay(context.Background(), &domain.Stay{
		StayID: uuid.New().String(), LoteID: "l1", ZoneID: &z1, EntryTime: entry,
	}))

	f.expectTx()

	moveTime := time.Now()
	_, err := f.svc.MoveLote(context.Background(), MoveLoteRequest{
		LoteID:       "l1",
		TargetZoneID: "z2",
		EntryTime:    moveTime,
		Actor:        domain.SystemActor(),
	})
	require.NoError(t, err)

	all, err := f.stays.ListStays(context.Background(), "l1")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.False(t, all[0].IsOpen())
	assert.WithinDuration(t, moveTime, *all[0].ExitTime, time.Second)
	assert.True(t, all[1].IsOpen())

	assert.Equal(t, []string{domain.AuditStayClosed, domain.AuditStayOpened}, f.audit.actions("l1"))
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestMoveLote_BackwardMoveRejected(t *testing.T) {
	breeding := zoneInStage("z1", stages.Breeding)
	curing := zoneInStage("z2", stages.Curing)
	f := newMovementFixture(t, breeding, curing)
	require.NoError(t, f.lotes.CreateLote(context.Background(), activeLote("l1")))

	z2 := "z2"
	require.NoError(t, f.stays.CreateStay(context.Background(), &domain.Stay{
		StayID: uuid.New().String(), LoteID: "l1", ZoneID: &z2,
		EntryTime: time.Now().Add(-time.Hour),
	}))

	f.expectRollback()

	_, err := f.svc.MoveLote(context.Background(), MoveLoteRequest{
		LoteID:       "l1",
		TargetZoneID: "z1",
		EntryTime:    time.Now(),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "cannot move from stage curing to breeding")
}

func TestMoveLote_SameStageRejected(t *testing.T) {
	a := zoneInStage("z1", stages.Fattening)
	b := zoneInStage("z2", stages.Fattening)
	f := newMovementFixture(t, a, b)
	require.NoError(t, f.lotes.CreateLote(context.Background(), activeLote("l1")))

	z1 := "z1"
	require.NoError(t, f.stays.CreateStay(context.Background(), &domain.Stay{
		StayID: uuid.New().String(), LoteID: "l1", ZoneID: &z1,
		EntryTime: time.Now().Add(-time.Hour),
	}))

	f.expectRollback()

	_, err := f.svc.MoveLote(context.Background(), MoveLoteRequest{
		LoteID:       "l1",
		TargetZoneID: "z2",
		EntryTime:    time.Now(),
	})

	assert.ErrorIs(t, err, ErrValidation)
}

func TestMoveLote_EntryTimeBeforeLastActivityRejected(t *testing.T) {
	breeding := zoneInStage("z1", stages.Breeding)
	fattening := zoneInStage("z2", stages.Fattening)
	f := newMovementFixture(t, breeding, fattening)
	require.NoError(t, f.lotes.CreateLote(context.Background(), activeLote("l1")))

	z1 := "z1"
	require.NoError(t, f.stays.CreateStay(context.Background(), &domain.Stay{
		StayID: uuid.New().String(), LoteID: "l1", ZoneID: &z1,
		EntryTime: time.Now().Add(-time.Hour),
	}))

	f.expectRollback()

	_, err := f.svc.MoveLote(context.Background(), MoveLoteRequest{
		LoteID:       "l1",
		TargetZoneID: "z2",
		EntryTime:    time.Now().Add(-2 * time.Hour),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "precedes")
}

func TestMoveLote_FinishClosesStayAndMarksLote(t *testing.T) {
	distribution := zoneInStage("z1", stages.Distribution)
	f := newMovementFixture(t, distribution)
	require.NoError(t, f.lotes.CreateLote(context.Background(), activeLote("l1")))

	z1 := "z1"
	require.NoError(t, f.stays.CreateStay(context.Background(), &domain.Stay{
		StayID: uuid.New().String(), LoteID: "l1", ZoneID: &z1,
		EntryTime: time.Now().Add(-time.Hour),
	}))

	f.expectTx()

	resp, err := f.svc.MoveLote(context.Background(), MoveLoteRequest{
		LoteID:    "l1",
		Finish:    true,
		EntryTime: time.Now(),
		Actor:     domain.UserActor("u1"),
	})
	require.NoError(t, err)
	assert.Contains(t, resp.Message, "finished")

	lote, err := f.lotes.GetLote(context.Background(), "l1")
	require.NoError(t, err)
	assert.Equal(t, domain.LoteStatusFinished, lote.Status)

	open, err := f.stays.GetOpenStay(context.Background(), "l1")
	require.NoError(t, err)
	assert.Nil(t, open)

	assert.Equal(t, []string{domain.AuditStayClosed, domain.AuditLoteFinished}, f.audit.actions("l1"))
}

func TestMoveLote_FinishedLoteCannotMove(t *testing.T) {
	zone := zoneInStage("z1", stages.Breeding)
	f := newMovementFixture(t, zone)
	lote := activeLote("l1")
	lote.Status = domain.LoteStatusFinished
	require.NoError(t, f.lotes.CreateLote(context.Background(), lote))

	f.expectRollback()

	_, err := f.svc.MoveLote(context.Background(), MoveLoteRequest{
		LoteID:       "l1",
		TargetZoneID: "z1",
		EntryTime:    time.Now(),
	})

	assert.ErrorIs(t, err, ErrValidation)
}

func TestMoveLote_TargetMustBeZoneOrFinish(t *testing.T) {
	f := newMovementFixture(t)

	_, err := f.svc.MoveLote(context.Background(), MoveLoteRequest{
		LoteID:    "l1",
		EntryTime: time.Now(),
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.MoveLote(context.Background(), MoveLoteRequest{
		LoteID:       "l1",
		TargetZoneID: "z1",
		Finish:       true,
		EntryTime:    time.Now(),
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMoveLote_CrossOrgZoneLooksMissing(t *testing.T) {
	zone := zoneInStage("z1", stages.Breeding)
	zone.OrgID = "other-org"
	f := newMovementFixture(t, zone)
	require.NoError(t, f.lotes.CreateLote(context.Background(), activeLote("l1")))

	f.expectRollback()

	_, err := f.svc.MoveLote(context.Background(), MoveLoteRequest{
		LoteID:       "l1",
		TargetZoneID: "z1",
		EntryTime:    time.Now(),
	})

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMoveLote_SplitCreatesSubLotesAndFinishesParent(t *testing.T) {
	slaughter := zoneInStage("z1", stages.Slaughter)
	curing := zoneInStage("z2", stages.Curing)
	f := newMovementFixture(t, slaughter, curing)

	parent := activeLote("l1")
	parent.CustomFields = []byte(`{"farm":"dehesa-7"}`)
	require.NoError(t, f.lotes.CreateLote(context.Background(), parent))

	z1 := "z1"
	require.NoError(t, f.stays.CreateStay(context.Background(), &domain.Stay{
		StayID: uuid.New().String(), LoteID: "l1", ZoneID: &z1,
		EntryTime: time.Now().Add(-time.Hour),
	}))

	f.expectTx()

	resp, err := f.svc.MoveLote(context.Background(), MoveLoteRequest{
		LoteID:       "l1",
		TargetZoneID: "z2",
		EntryTime:    time.Now(),
		SubLotes: []SubLoteSpec{
			{Identification: "L-l1-jamon", Quantity: 200, PieceType: "jamon"},
			{Identification: "L-l1-paleta", Quantity: 180, PieceType: "paleta"},
		},
		Actor: domain.UserActor("u1"),
	})
	require.NoError(t, err)
	require.Len(t, resp.SubLoteIDs, 2)

	parent, err = f.lotes.GetLote(context.Background(), "l1")
	require.NoError(t, err)
	assert.Equal(t, domain.LoteStatusFinished, parent.Status)

	for i, childID := range resp.SubLoteIDs {
		child, err := f.lotes.GetLote(context.Background(), childID)
		require.NoError(t, err)
		assert.Equal(t, "l1", *child.ParentLoteID)
		assert.Equal(t, "bellota", child.FoodRegime)
		assert.JSONEq(t, `{"farm":"dehesa-7"}`, string(child.CustomFields))
		assert.Equal(t, domain.LoteStatusActive, child.Status)
		if i == 0 {
			assert.Equal(t, "jamon", *child.PieceType)
			assert.Equal(t, 200, child.InitialAnimals)
		}

		open, err := f.stays.GetOpenStay(context.Background(), childID)
		require.NoError(t, err)
		require.NotNil(t, open)
		assert.Equal(t, "z2", *open.ZoneID)
	}

	actions := f.audit.actions("l1")
	assert.Contains(t, actions, domain.AuditStayClosed)
	assert.Contains(t, actions, domain.AuditSubLoteCreated)
	assert.Contains(t, actions, domain.AuditLoteFinished)
}

func TestMoveLote_SubLotesOnlyIntoSplitStage(t *testing.T) {
	fattening := zoneInStage("z1", stages.Fattening)
	f := newMovementFixture(t, fattening)
	require.NoError(t, f.lotes.CreateLote(context.Background(), activeLote("l1")))

	f.expectRollback()

	_, err := f.svc.MoveLote(context.Background(), MoveLoteRequest{
		LoteID:       "l1",
		TargetZoneID: "z1",
		EntryTime:    time.Now(),
		SubLotes:     []SubLoteSpec{{Identification: "p1", Quantity: 10}},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), stages.SplitStage)
}

func TestMoveLote_SubLotesWithFinishRejected(t *testing.T) {
	f := newMovementFixture(t)

	_, err := f.svc.MoveLote(context.Background(), MoveLoteRequest{
		LoteID:    "l1",
		Finish:    true,
		EntryTime: time.Now(),
		SubLotes:  []SubLoteSpec{{Identification: "p1", Quantity: 10}},
	})

	assert.ErrorIs(t, err, ErrValidation)
}

func TestMoveLote_GenerateTraceAtDistribution(t *testing.T) {
	curing := zoneInStage("z1", stages.Curing)
	distribution := zoneInStage("z2", stages.Distribution)
	f := newMovementFixture(t, curing, distribution)
	require.NoError(t, f.lotes.CreateLote(context.Background(), activeLote("l1")))

	z1 := "z1"
	require.NoError(t, f.stays.CreateStay(context.Background(), &domain.Stay{
		StayID: uuid.New().String(), LoteID: "l1", ZoneID: &z1,
		EntryTime: time.Now().Add(-time.Hour),
	}))

	f.expectTx()

	resp, err := f.svc.MoveLote(context.Background(), MoveLoteRequest{
		LoteID:        "l1",
		TargetZoneID:  "z2",
		EntryTime:     time.Now(),
		GenerateTrace: true,
	})
	require.NoError(t, err)

	require.NotNil(t, resp.Trace)
	assert.Equal(t, "tok-123", resp.Trace.Token)
	assert.Equal(t, "http://trace.local/trace/tok-123", resp.Trace.URL)
	assert.Equal(t, []string{"l1"}, f.snapshots.generated)
}

func TestMoveLote_SnapshotFailureDoesNotUndoMove(t *testing.T) {
	curing := zoneInStage("z1", stages.Curing)
	distribution := zoneInStage("z2", stages.Distribution)
	f := newMovementFixture(t, curing, distribution)
	f.snapshots.err = assert.AnError
	require.NoError(t, f.lotes.CreateLote(context.Background(), activeLote("l1")))

	z1 := "z1"
	require.NoError(t, f.stays.CreateStay(context.Background(), &domain.Stay{
		StayID: uuid.New().String(), LoteID: "l1", ZoneID: &z1,
		EntryTime: time.Now().Add(-time.Hour),
	}))

	f.expectTx()

	resp, err := f.svc.MoveLote(context.Background(), MoveLoteRequest{
		LoteID:        "l1",
		TargetZoneID:  "z2",
		EntryTime:     time.Now(),
		GenerateTrace: true,
	})

	require.NoError(t, err)
	assert.Nil(t, resp.Trace)

	open, err := f.stays.GetOpenStay(context.Background(), "l1")
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, "z2", *open.ZoneID)
}

func TestMoveLote_GenerateTraceIgnoredBeforeDistribution(t *testing.T) {
	fattening := zoneInStage("z1", stages.Fattening)
	f := newMovementFixture(t, fattening)
	require.NoError(t, f.lotes.CreateLote(context.Background(), activeLote("l1")))

	f.expectTx()

	resp, err := f.svc.MoveLote(context.Background(), MoveLoteRequest{
		LoteID:        "l1",
		TargetZoneID:  "z1",
		EntryTime:     time.Now(),
		GenerateTrace: true,
	})

	require.NoError(t, err)
	assert.Nil(t, resp.Trace)
	assert.Empty(t, f.snapshots.generated)
}

func TestMoveLote_DeactivatedZoneRejected(t *testing.T) {
	zone := zoneInStage("z1", stages.Breeding)
	zone.IsActive = false
	f := newMovementFixture(t, zone)
	require.NoError(t, f.lotes.CreateLote(context.Background(), activeLote("l1")))

	f.expectRollback()

	_, err := f.svc.MoveLote(context.Background(), MoveLoteRequest{
		LoteID:       "l1",
		TargetZoneID: "z1",
		EntryTime:    time.Now(),
	})

	assert.ErrorIs(t, err, ErrValidation)
}
