package job

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/maheshrc27/postcast/internal/scheduler"
)

type EngagementSyncer interface {
	SyncEngagement(ctx context.Context, windowDays, batchLimit int) (scheduler.SyncResult, error)
}

type EngagementSyncJob struct {
	syncer     EngagementSyncer
	windowDays int
	batchLimit int
}

func NewEngagementSyncJob(syncer EngagementSyncer, windowDays, batchLimit int) *EngagementSyncJob {
	return &EngagementSyncJob{
		syncer:     syncer,
		windowDays: windowDays,
		batchLimit: batchLimit,
	}
}

func (j *EngagementSyncJob) Run() {
	logger := slog.With("job", "engagement_sync", "trace_id", uuid.NewString())

	res, err := j.syncer.SyncEngagement(context.Background(), j.windowDays, j.batchLimit)
	if err != nil {
		logger.Error("engagement sync aborted", "synced", res.Synced, "failed", res.Failed, "err", err)
		return
	}
	logger.Info("engagement sync finished", "synced", res.Synced, "failed", res.Failed)
}
