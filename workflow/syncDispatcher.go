package workflow

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/WRENCH-CLOUD/machnix-sub003/config"
	"github.com/WRENCH-CLOUD/machnix-sub003/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SyncDispatcher drains the estimate sync outbox in the background. Task
// mutations only enqueue; this loop does the actual recompute, so a slow or
// failing sync never blocks a request.
type SyncDispatcher struct {
	DB           *gorm.DB
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int

	instanceId string
}

func NewSyncDispatcher(db *gorm.DB) *SyncDispatcher {
	host, _ := os.Hostname()
	return &SyncDispatcher{
		DB:           db,
		PollInterval: 2 * time.Second,
		BatchSize:    20,
		MaxAttempts:  8,
		instanceId:   fmt.Sprintf("%s-%s", host, uuid.NewString()[:8]),
	}
}

// Run polls until the context is cancelled. Meant to be launched as a
// goroutine from main.
func (d *SyncDispatcher) Run(ctx context.Context) {
	logger := config.GetLogger()
	logger.WithField("instance", d.instanceId).Info("estimate sync dispatcher started")

	ticker := time.NewTicker(d.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.WithField("instance", d.instanceId).Info("estimate sync dispatcher stopped")
			return
		case <-ticker.C:
			// Pausing here rather than at enqueue time means outbox rows
			// keep accumulating while disabled and drain on re-enable.
			if config.EstimateSyncDisabled() {
				continue
			}
			d.processBatch(ctx)
		}
	}
}

func (d *SyncDispatcher) processBatch(ctx context.Context) {
	logger := config.GetLogger()

	records, err := models.ClaimSyncBatch(d.DB.WithContext(ctx), d.instanceId, d.BatchSize)
	if err != nil {
		config.LogError(logger, "workflow", "processBatch", "claim sync batch", nil, err)
		return
	}

	for _, record := range records {
		if err := d.applyRecord(ctx, record); err != nil {
			recordSyncDispatch("failed")
			config.LogError(logger, "workflow", "processBatch", "apply estimate sync",
				map[string]interface{}{"recordId": record.ID, "jobcardId": record.JobcardId}, err)
			if err := models.MarkSyncFailed(d.DB.WithContext(ctx), record, err, d.MaxAttempts); err != nil {
				config.LogError(logger, "workflow", "processBatch", "mark sync failed", nil, err)
			}
			continue
		}
		recordSyncDispatch("succeeded")
		if err := models.MarkSyncSucceeded(d.DB.WithContext(ctx), record); err != nil {
			config.LogError(logger, "workflow", "processBatch", "mark sync succeeded", nil, err)
		}
	}
}

func (d *SyncDispatcher) applyRecord(ctx context.Context, record *models.EstimateSyncRecord) error {
	return d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return models.ApplyEstimateSync(tx, record.GarageId, record.JobcardId)
	})
}
