package models

import (
	"time"

	"gorm.io/gorm"
)

// EstimateSyncRecord is an outbox row written in the same transaction as the
// task mutation that requires a resync. The dispatcher claims rows after
// commit, so a sync failure can never roll back a finished transition.
type EstimateSyncRecord struct {
	ID            int        `gorm:"primary_key" json:"id"`
	GarageId      string     `gorm:"index;not null" json:"garageId"`
	JobcardId     int        `gorm:"index;not null" json:"jobcardId"`
	TaskId        int        `gorm:"index" json:"taskId"`
	Status        SyncStatus `gorm:"type:varchar(12);default:PENDING;index" json:"status"`
	Attempts      int        `gorm:"default:0" json:"attempts"`
	LastError     string     `gorm:"type:text" json:"lastError"`
	NextAttemptAt time.Time  `gorm:"index" json:"nextAttemptAt"`
	ClaimedBy     string     `gorm:"size:64" json:"claimedBy"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

// EnqueueEstimateSync records that the job card's estimate is stale. Must run
// inside the same transaction as the task change it reflects.
func EnqueueEstimateSync(tx *gorm.DB, garageId string, jobcardId int, taskId int) error {
	record := EstimateSyncRecord{
		GarageId:      garageId,
		JobcardId:     jobcardId,
		TaskId:        taskId,
		Status:        SyncStatusPending,
		NextAttemptAt: time.Now(),
	}
	return tx.Create(&record).Error
}

// ClaimSyncBatch marks up to limit due records PROCESSING and returns them.
// SKIP LOCKED keeps concurrent dispatcher instances off each other's rows.
func ClaimSyncBatch(db *gorm.DB, claimedBy string, limit int) ([]*EstimateSyncRecord, error) {
	var claimed []*EstimateSyncRecord
	err := db.Transaction(func(tx *gorm.DB) error {
		var records []*EstimateSyncRecord
		err := tx.Raw(`
			SELECT * FROM estimate_sync_records
			WHERE status = ? AND next_attempt_at <= ?
			ORDER BY id
			LIMIT ?
			FOR UPDATE SKIP LOCKED`,
			SyncStatusPending, time.Now(), limit).
			Scan(&records).Error
		if err != nil {
			return err
		}
		for _, record := range records {
			err := tx.Model(record).Updates(map[string]interface{}{
				"Status":    SyncStatusProcessing,
				"ClaimedBy": claimedBy,
			}).Error
			if err != nil {
				return err
			}
		}
		claimed = records
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func MarkSyncSucceeded(db *gorm.DB, record *EstimateSyncRecord) error {
	return db.Model(record).Updates(map[string]interface{}{
		"Status":    SyncStatusSucceeded,
		"LastError": "",
	}).Error
}

// MarkSyncFailed schedules a retry with exponential backoff, or parks the
// record as DEAD once maxAttempts is spent.
func MarkSyncFailed(db *gorm.DB, record *EstimateSyncRecord, cause error, maxAttempts int) error {
	attempts := record.Attempts + 1
	updates := map[string]interface{}{
		"Attempts":  attempts,
		"LastError": cause.Error(),
	}
	if attempts >= maxAttempts {
		updates["Status"] = SyncStatusDead
	} else {
		backoff := time.Duration(1<<min(attempts, 6)) * time.Second
		updates["Status"] = SyncStatusPending
		updates["NextAttemptAt"] = time.Now().Add(backoff)
	}
	return db.Model(record).Updates(updates).Error
}
