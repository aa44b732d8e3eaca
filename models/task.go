package models

import (
	"context"
	"errors"
	"time"

	"github.com/WRENCH-CLOUD/machnix-sub003/config"
	"github.com/WRENCH-CLOUD/machnix-sub003/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Task is one unit of work on a job card, optionally tied to a part
// replacement. Price fields are snapshots taken at creation so later catalog
// changes never move an agreed estimate.
type Task struct {
	ID                int             `gorm:"primary_key" json:"id"`
	GarageId          string          `gorm:"index;not null" json:"garageId"`
	JobcardId         int             `gorm:"index;not null" json:"jobcardId"`
	TaskName          string          `gorm:"size:100;not null" json:"taskName"`
	Description       string          `gorm:"type:text" json:"description"`
	ActionType        TaskActionType  `gorm:"type:varchar(10);default:NO_CHANGE" json:"actionType"`
	InventoryItemId   *int            `gorm:"index" json:"inventoryItemId"`
	Qty               *int            `json:"qty"`
	UnitPriceSnapshot decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unitPriceSnapshot"`
	LaborCostSnapshot decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"laborCostSnapshot"`
	TaxRateSnapshot   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"taxRateSnapshot"`
	TaskStatus        TaskStatus      `gorm:"type:varchar(15);default:DRAFT;index" json:"taskStatus"`
	AllocationId      *int            `gorm:"index" json:"allocationId"`
	EstimateItemId    *int            `json:"estimateItemId"`
	ApprovedBy        *int            `json:"approvedBy"`
	CompletedBy       *int            `json:"completedBy"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
	DeletedAt         gorm.DeletedAt  `gorm:"index" json:"-"`
}

type NewTask struct {
	TaskName        string          `json:"taskName" binding:"required"`
	Description     string          `json:"description"`
	ActionType      TaskActionType  `json:"actionType" binding:"required,actiontype"`
	InventoryItemId *int            `json:"inventoryItemId"`
	Qty             *int            `json:"qty"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	LaborCost       decimal.Decimal `json:"laborCost"`
	TaxRate         decimal.Decimal `json:"taxRate"`
}

// lockedStatuses are the states in which task fields may no longer change.
var lockedStatuses = map[TaskStatus]bool{
	TaskStatusApproved:  true,
	TaskStatusCompleted: true,
}

// validate input for both create & update. (id = 0 for create)
//
// The part-replacement rule is a biconditional: REPLACED tasks must name an
// item and a positive qty, and only REPLACED tasks may.
func (input *NewTask) validate(ctx context.Context, garageId string) error {
	if !input.ActionType.IsValid() {
		return errors.New("invalid action type")
	}
	if input.ActionType == TaskActionReplaced {
		if input.InventoryItemId == nil || *input.InventoryItemId == 0 {
			return errors.New("inventory item is required for part replacement")
		}
		if input.Qty == nil || *input.Qty <= 0 {
			return errors.New("qty must be a positive integer for part replacement")
		}
		if err := utils.ValidateResourceId[InventoryItem](ctx, garageId, *input.InventoryItemId); err != nil {
			return errors.New("inventory item not found")
		}
	} else {
		if input.InventoryItemId != nil && *input.InventoryItemId != 0 {
			return errors.New("inventory item is only allowed for part replacement")
		}
		if input.Qty != nil && *input.Qty != 0 {
			return errors.New("qty is only allowed for part replacement")
		}
	}
	if input.UnitPrice.IsNegative() || input.LaborCost.IsNegative() || input.TaxRate.IsNegative() {
		return errors.New("prices cannot be negative")
	}
	return nil
}

func CreateTask(ctx context.Context, jobcardId int, input *NewTask) (*Task, error) {

	garageId, ok := utils.GetGarageIdFromContext(ctx)
	if !ok || garageId == "" {
		return nil, errors.New("garage id is required")
	}

	jobCard, err := utils.FetchModel[JobCard](ctx, garageId, jobcardId)
	if err != nil {
		return nil, err
	}
	if jobCard.Status == JobCardStatusClosed {
		return nil, errors.New("cannot add task to closed job card")
	}

	if err := input.validate(ctx, garageId); err != nil {
		return nil, err
	}

	unitPrice := input.UnitPrice
	if input.ActionType == TaskActionReplaced && unitPrice.IsZero() {
		item, err := utils.FetchModel[InventoryItem](ctx, garageId, *input.InventoryItemId)
		if err != nil {
			return nil, err
		}
		unitPrice = item.UnitPrice
	}

	task := Task{
		GarageId:          garageId,
		JobcardId:         jobcardId,
		TaskName:          input.TaskName,
		Description:       input.Description,
		ActionType:        input.ActionType,
		InventoryItemId:   input.InventoryItemId,
		Qty:               input.Qty,
		UnitPriceSnapshot: unitPrice,
		LaborCostSnapshot: input.LaborCost,
		TaxRateSnapshot:   input.TaxRate,
		TaskStatus:        TaskStatusDraft,
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&task).Error; err != nil {
			return err
		}
		return EnqueueEstimateSync(tx, garageId, jobcardId, task.ID)
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTask applies field edits. Edits to locked fields fail with
// ErrTaskLocked once the task is APPROVED/COMPLETED, or while a reservation is
// held (the allocation quantity must stay truthful to the task).
func UpdateTask(ctx context.Context, jobcardId int, taskId int, input *NewTask) (*Task, error) {

	garageId, ok := utils.GetGarageIdFromContext(ctx)
	if !ok || garageId == "" {
		return nil, errors.New("garage id is required")
	}

	task, err := fetchTaskOfJobcard(ctx, garageId, jobcardId, taskId)
	if err != nil {
		return nil, err
	}

	if lockedStatuses[task.TaskStatus] && input.editsLockedFields(task) {
		return nil, ErrTaskLocked
	}
	if task.AllocationId != nil && input.editsReplacementFields(task) {
		return nil, ErrTaskLocked
	}

	if err := input.validate(ctx, garageId); err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(task).Updates(map[string]interface{}{
			"TaskName":          input.TaskName,
			"Description":       input.Description,
			"ActionType":        input.ActionType,
			"InventoryItemId":   input.InventoryItemId,
			"Qty":               input.Qty,
			"UnitPriceSnapshot": input.UnitPrice,
			"LaborCostSnapshot": input.LaborCost,
			"TaxRateSnapshot":   input.TaxRate,
		}).Error; err != nil {
			return err
		}
		return EnqueueEstimateSync(tx, garageId, jobcardId, task.ID)
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (input *NewTask) editsLockedFields(task *Task) bool {
	if input.TaskName != task.TaskName || input.ActionType != task.ActionType {
		return true
	}
	if !intPtrEqual(input.InventoryItemId, task.InventoryItemId) || !intPtrEqual(input.Qty, task.Qty) {
		return true
	}
	if !input.UnitPrice.Equal(task.UnitPriceSnapshot) ||
		!input.LaborCost.Equal(task.LaborCostSnapshot) ||
		!input.TaxRate.Equal(task.TaxRateSnapshot) {
		return true
	}
	return false
}

func (input *NewTask) editsReplacementFields(task *Task) bool {
	return input.ActionType != task.ActionType ||
		!intPtrEqual(input.InventoryItemId, task.InventoryItemId) ||
		!intPtrEqual(input.Qty, task.Qty)
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// SoftDeleteTask marks the task deleted. COMPLETED tasks are immutable history
// and cannot be deleted; tasks holding a reservation must be cancelled first.
func SoftDeleteTask(ctx context.Context, jobcardId int, taskId int) (*Task, error) {

	garageId, ok := utils.GetGarageIdFromContext(ctx)
	if !ok || garageId == "" {
		return nil, errors.New("garage id is required")
	}

	task, err := fetchTaskOfJobcard(ctx, garageId, jobcardId, taskId)
	if err != nil {
		return nil, err
	}

	if task.TaskStatus == TaskStatusCompleted {
		return nil, ErrTaskLocked
	}
	if task.AllocationId != nil {
		return nil, errors.New("task holds a stock reservation; cancel it first")
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(task).Error; err != nil {
			return err
		}
		return EnqueueEstimateSync(tx, garageId, jobcardId, task.ID)
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func GetTask(ctx context.Context, jobcardId int, taskId int) (*Task, error) {
	garageId, ok := utils.GetGarageIdFromContext(ctx)
	if !ok || garageId == "" {
		return nil, errors.New("garage id is required")
	}
	return fetchTaskOfJobcard(ctx, garageId, jobcardId, taskId)
}

func GetTasksByJobCard(ctx context.Context, jobcardId int) ([]*Task, error) {
	garageId, ok := utils.GetGarageIdFromContext(ctx)
	if !ok || garageId == "" {
		return nil, errors.New("garage id is required")
	}
	if err := utils.ValidateResourceId[JobCard](ctx, garageId, jobcardId); err != nil {
		return nil, err
	}

	db := config.GetDB()
	var tasks []*Task
	err := db.WithContext(ctx).
		Where("garage_id = ? AND jobcard_id = ?", garageId, jobcardId).
		Order("id").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// A task id from another job card (or another garage) must read as missing.
func fetchTaskOfJobcard(ctx context.Context, garageId string, jobcardId int, taskId int) (*Task, error) {
	db := config.GetDB()
	var task Task
	err := db.WithContext(ctx).
		Where("garage_id = ? AND jobcard_id = ?", garageId, jobcardId).
		First(&task, taskId).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &task, nil
}
