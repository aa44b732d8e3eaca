package models

import (
	"github.com/WRENCH-CLOUD/machnix-sub003/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TxStores bundles the persistence operations a status transition needs,
// bound to one transaction and one garage. Everything it touches commits or
// rolls back together.
type TxStores struct {
	tx       *gorm.DB
	garageId string
}

func NewTxStores(tx *gorm.DB, garageId string) *TxStores {
	return &TxStores{tx: tx, garageId: garageId}
}

// GetTaskForUpdate loads the task under a row lock so concurrent transitions
// on the same task serialize instead of racing.
func (s *TxStores) GetTaskForUpdate(jobcardId int, taskId int) (*Task, error) {
	var task Task
	err := s.tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("garage_id = ? AND jobcard_id = ?", s.garageId, jobcardId).
		First(&task, taskId).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &task, nil
}

func (s *TxStores) UpdateTaskFields(task *Task, updates map[string]interface{}) error {
	return s.tx.Model(task).Updates(updates).Error
}

func (s *TxStores) ReserveStock(itemId int, qty int) (*StockLevel, error) {
	return reserveStock(s.tx, s.garageId, itemId, qty)
}

func (s *TxStores) UnreserveStock(itemId int, qty int) (*StockLevel, error) {
	return unreserveStock(s.tx, s.garageId, itemId, qty)
}

func (s *TxStores) ConsumeReservedStock(itemId int, qty int) (*StockLevel, error) {
	return consumeReservedStock(s.tx, s.garageId, itemId, qty)
}

func (s *TxStores) CreateAllocation(taskId int, itemId int, qty int) (*Allocation, error) {
	return createAllocation(s.tx, s.garageId, taskId, itemId, qty)
}

func (s *TxStores) GetAllocation(allocationId int) (*Allocation, error) {
	return getAllocation(s.tx, s.garageId, allocationId)
}

func (s *TxStores) SetAllocationStatus(allocationId int, status AllocationStatus) error {
	return setAllocationStatus(s.tx, s.garageId, allocationId, status)
}

func (s *TxStores) EnqueueEstimateSync(jobcardId int, taskId int) error {
	return EnqueueEstimateSync(s.tx, s.garageId, jobcardId, taskId)
}
