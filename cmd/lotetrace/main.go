package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/config"
	httpapi "github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/http"
	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/ingest"
	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/notify"
	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/repository"
	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/service"
	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/pkg/database"
	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/pkg/logger"
	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/pkg/redisx"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "lotetrace")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	redisClient := redisx.NewClient(redisx.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisx.Ping(context.Background(), redisClient); err != nil {
		// Redis only backs best-effort counters and alert fan-out; the service
		// still runs without it.
		log.Warn("redis unavailable", zap.Error(err))
	}
	defer redisx.Close(redisClient)

	// Repositories
	lotesRepo := repository.NewPostgresLotesRepository(db)
	zonesRepo := repository.NewPostgresZonesRepository(db)
	staysRepo := repository.NewPostgresStaysRepository(db)
	sensorsRepo := repository.NewPostgresSensorsRepository(db)
	readingsRepo := repository.NewPostgresReadingsRepository(db)
	alertsRepo := repository.NewPostgresAlertsRepository(db)
	snapshotsRepo := repository.NewPostgresSnapshotsRepository(db)
	auditRepo := repository.NewPostgresAuditRepository(db)

	// Services
	var notifier notify.Notifier
	if cfg.Webhook.URL != "" {
		notifier = notify.NewWebhookNotifier(cfg.Webhook.URL, cfg.Webhook.Timeout, log)
	}

	snapshotSvc := service.NewSnapshotService(lotesRepo, staysRepo, zonesRepo, readingsRepo, snapshotsRepo, log)
	movementSvc := service.NewMovementService(db, lotesRepo, zonesRepo, staysRepo, auditRepo, snapshotSvc, cfg.Trace.PublicBaseURL, log)
	loteSvc := service.NewLoteService(lotesRepo, staysRepo, auditRepo, log)
	ingestSvc := service.NewIngestService(sensorsRepo, readingsRepo, alertsRepo, redisClient, cfg.Ingest.AlertStream, notifier, log)
	traceSvc := service.NewTraceService(snapshotsRepo, redisClient, log)
	alertSvc := service.NewAlertService(alertsRepo, log)

	// HTTP surface
	router := httpapi.NewRouter(log)
	router.RegisterLoteRoutes(httpapi.NewLoteHandler(loteSvc, movementSvc, log))
	router.RegisterSnapshotRoutes(httpapi.NewSnapshotHandler(snapshotSvc, cfg.Trace.PublicBaseURL, log))
	router.RegisterTraceRoutes(httpapi.NewTraceHandler(traceSvc, log))
	router.RegisterIngestRoutes(httpapi.NewIngestHandler(ingestSvc, log))
	router.RegisterAlertRoutes(httpapi.NewAlertHandler(alertSvc, log))

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Broker ingestion pool
	var pool *ingest.Pool
	if cfg.Ingest.Enabled {
		pool = ingest.NewPool(ingest.PoolConfig{
			QoS:               cfg.Ingest.QoS,
			ClientIDPrefix:    cfg.Ingest.ClientIDPrefix,
			ReconcileInterval: cfg.Ingest.ReconcileInterval,
		}, sensorsRepo, ingestSvc, log)
		pool.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("HTTP server stopped", zap.Error(err))
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown incomplete", zap.Error(err))
	}
	if pool != nil {
		pool.Stop()
	}
}
