package models

import (
	"context"
	"errors"
	"time"

	"github.com/WRENCH-CLOUD/machnix-sub003/config"
	"github.com/WRENCH-CLOUD/machnix-sub003/utils"
	"gorm.io/gorm"
)

// Allocation is the audit record of a stock movement for one task: created on
// approval, flipped to consumed on completion or released on cancellation.
// Records are never deleted; a re-approved task gets a fresh one.
type Allocation struct {
	ID              int              `gorm:"primary_key" json:"id"`
	GarageId        string           `gorm:"index;not null" json:"garageId"`
	TaskId          int              `gorm:"index;not null" json:"taskId"`
	InventoryItemId int              `gorm:"index;not null" json:"inventoryItemId"`
	Qty             int              `gorm:"not null" json:"qty"`
	Status          AllocationStatus `gorm:"type:varchar(10);not null" json:"status"`
	CreatedAt       time.Time        `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time        `gorm:"autoUpdateTime" json:"updatedAt"`
}

func createAllocation(tx *gorm.DB, garageId string, taskId int, itemId int, qty int) (*Allocation, error) {
	allocation := Allocation{
		GarageId:        garageId,
		TaskId:          taskId,
		InventoryItemId: itemId,
		Qty:             qty,
		Status:          AllocationStatusReserved,
	}
	if err := tx.Create(&allocation).Error; err != nil {
		return nil, err
	}
	return &allocation, nil
}

func getAllocation(tx *gorm.DB, garageId string, allocationId int) (*Allocation, error) {
	var allocation Allocation
	err := tx.Where("garage_id = ?", garageId).First(&allocation, allocationId).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &allocation, nil
}

func setAllocationStatus(tx *gorm.DB, garageId string, allocationId int, status AllocationStatus) error {
	result := tx.Model(&Allocation{}).
		Where("id = ? AND garage_id = ?", allocationId, garageId).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrorRecordNotFound
	}
	return nil
}

func GetAllocationsByTask(ctx context.Context, taskId int) ([]*Allocation, error) {

	garageId, ok := utils.GetGarageIdFromContext(ctx)
	if !ok || garageId == "" {
		return nil, errors.New("garage id is required")
	}

	db := config.GetDB()
	var allocations []*Allocation
	err := db.WithContext(ctx).
		Where("garage_id = ? AND task_id = ?", garageId, taskId).
		Order("id desc").
		Find(&allocations).Error
	if err != nil {
		return nil, err
	}
	return allocations, nil
}
