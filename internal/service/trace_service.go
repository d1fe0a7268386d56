package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/domain"
	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/internal/repository"
)

// TraceService is the public, unauthenticated traceability surface: it
// resolves tokens to stored documents and counts scans.
type TraceService interface {
	ResolveTrace(ctx context.Context, token string) (*ResolveTraceResponse, error)
}

// ResolveTraceResponse carries the stored document exactly as generated.
type ResolveTraceResponse struct {
	Document  json.RawMessage
	ScanCount int
}

type traceService struct {
	snapshotsRepo repository.SnapshotsRepository
	redisClient   *redis.Client
	logger        *zap.Logger
}

var _ TraceService = (*traceService)(nil)

// NewTraceService creates the public trace resolver. redisClient may be nil.
func NewTraceService(snapshotsRepo repository.SnapshotsRepository, redisClient *redis.Client, logger *zap.Logger) TraceService {
	return &traceService{
		snapshotsRepo: snapshotsRepo,
		redisClient:   redisClient,
		logger:        logger,
	}
}

// ResolveTrace looks up an active token and returns the frozen document.
// Revoked and unknown tokens are indistinguishable to the caller. The scan
// counter is best-effort: failures are logged and never block the response.
func (s *traceService) ResolveTrace(ctx context.Context, token string) (*ResolveTraceResponse, error) {
	if token == "" {
		return nil, validationf("token is required")
	}

	snapshot, err := s.snapshotsRepo.GetActiveByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	scanCount := s.countScan(ctx, snapshot)

	return &ResolveTraceResponse{
		Document:  json.RawMessage(snapshot.SnapshotData),
		ScanCount: scanCount,
	}, nil
}

func (s *traceService) countScan(ctx context.Context, snapshot *domain.QrSnapshot) int {
	if err := s.snapshotsRepo.IncrementScanCount(ctx, snapshot.SnapshotID, 1); err != nil {
		s.logger.Warn("failed to increment scan count",
			zap.String("snapshot_id", snapshot.SnapshotID),
			zap.Error(err),
		)
		return snapshot.ScanCount
	}

	// Mirror the live counter in Redis so dashboards can read it without
	// hitting Postgres.
	if s.redisClient != nil {
		key := fmt.Sprintf("trace:scans:%s", snapshot.SnapshotID)
		if err := s.redisClient.Incr(ctx, key).Err(); err != nil {
			s.logger.Warn("failed to mirror scan count in redis",
				zap.String("snapshot_id", snapshot.SnapshotID),
				zap.Error(err),
			)
		}
	}

	return snapshot.ScanCount + 1
}
