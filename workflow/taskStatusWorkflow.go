package workflow

import (
	"context"
	"errors"

	"github.com/WRENCH-CLOUD/machnix-sub003/config"
	"github.com/WRENCH-CLOUD/machnix-sub003/models"
	"github.com/WRENCH-CLOUD/machnix-sub003/utils"
	"gorm.io/gorm"
)

// TransitionStores is the slice of persistence a status transition touches.
// models.TxStores is the real implementation; tests substitute fakes.
type TransitionStores interface {
	GetTaskForUpdate(jobcardId int, taskId int) (*models.Task, error)
	UpdateTaskFields(task *models.Task, updates map[string]interface{}) error
	ReserveStock(itemId int, qty int) (*models.StockLevel, error)
	UnreserveStock(itemId int, qty int) (*models.StockLevel, error)
	ConsumeReservedStock(itemId int, qty int) (*models.StockLevel, error)
	CreateAllocation(taskId int, itemId int, qty int) (*models.Allocation, error)
	GetAllocation(allocationId int) (*models.Allocation, error)
	SetAllocationStatus(allocationId int, status models.AllocationStatus) error
	EnqueueEstimateSync(jobcardId int, taskId int) error
}

// allowedTransitions is the whole lifecycle. Anything not listed here is
// rejected, including no-op transitions to the current status.
var allowedTransitions = map[models.TaskStatus][]models.TaskStatus{
	models.TaskStatusDraft:      {models.TaskStatusApproved, models.TaskStatusCancelled},
	models.TaskStatusApproved:   {models.TaskStatusInProgress, models.TaskStatusCancelled},
	models.TaskStatusInProgress: {models.TaskStatusCompleted, models.TaskStatusApproved},
	models.TaskStatusCompleted:  {},
	models.TaskStatusCancelled:  {models.TaskStatusDraft},
}

// AllowedTargets returns the legal next statuses from the given one.
func AllowedTargets(from models.TaskStatus) []models.TaskStatus {
	targets := allowedTransitions[from]
	out := make([]models.TaskStatus, len(targets))
	copy(out, targets)
	return out
}

func transitionAllowed(from models.TaskStatus, to models.TaskStatus) bool {
	for _, t := range allowedTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// TransitionResult reports the outcome of a successful transition. Inventory
// is nil when the transition moved no stock.
type TransitionResult struct {
	Task      *models.Task       `json:"task"`
	Inventory *models.StockLevel `json:"inventoryUpdate"`
}

// Transition moves a task to the requested status and applies the inventory
// side effect for that edge, all against the given stores. The caller owns
// the transaction boundary; any error here must abort the whole thing.
func Transition(stores TransitionStores, jobcardId int, taskId int, to models.TaskStatus, actorId *int) (*TransitionResult, error) {

	task, err := stores.GetTaskForUpdate(jobcardId, taskId)
	if err != nil {
		return nil, err
	}

	from := task.TaskStatus
	if !transitionAllowed(from, to) {
		recordTransition(from, to, "rejected")
		return nil, &InvalidTransitionError{From: from, To: to, Allowed: AllowedTargets(from)}
	}

	result := &TransitionResult{Task: task}
	updates := map[string]interface{}{"TaskStatus": to}

	switch {
	case from == models.TaskStatusDraft && to == models.TaskStatusApproved:
		if task.ActionType == models.TaskActionReplaced {
			if task.InventoryItemId == nil || task.Qty == nil {
				return nil, errors.New("replacement task is missing item or qty")
			}
			level, err := stores.ReserveStock(*task.InventoryItemId, *task.Qty)
			if err != nil {
				var insufficient *models.InsufficientStockError
				if errors.As(err, &insufficient) {
					recordInsufficientStock()
					recordTransition(from, to, "insufficient_stock")
				}
				return nil, err
			}
			allocation, err := stores.CreateAllocation(task.ID, *task.InventoryItemId, *task.Qty)
			if err != nil {
				return nil, err
			}
			updates["AllocationId"] = allocation.ID
			result.Inventory = level
		}
		updates["ApprovedBy"] = actorId

	case to == models.TaskStatusCompleted:
		if task.ActionType == models.TaskActionReplaced && task.AllocationId != nil {
			// The allocation is the record of what was reserved; consume
			// exactly that, not whatever the task fields say today.
			allocation, err := stores.GetAllocation(*task.AllocationId)
			if err != nil {
				return nil, err
			}
			level, err := stores.ConsumeReservedStock(allocation.InventoryItemId, allocation.Qty)
			if err != nil {
				return nil, err
			}
			if err := stores.SetAllocationStatus(allocation.ID, models.AllocationStatusConsumed); err != nil {
				return nil, err
			}
			result.Inventory = level
		}
		updates["CompletedBy"] = actorId

	case to == models.TaskStatusCancelled:
		if task.AllocationId != nil {
			allocation, err := stores.GetAllocation(*task.AllocationId)
			if err != nil {
				return nil, err
			}
			level, err := stores.UnreserveStock(allocation.InventoryItemId, allocation.Qty)
			if err != nil {
				return nil, err
			}
			if err := stores.SetAllocationStatus(allocation.ID, models.AllocationStatusReleased); err != nil {
				return nil, err
			}
			updates["AllocationId"] = nil
			result.Inventory = level
		}

	case from == models.TaskStatusCancelled && to == models.TaskStatusDraft:
		// Reopen as a fresh draft. Any prior allocation was already released
		// on cancellation.
		updates["ApprovedBy"] = nil
		updates["CompletedBy"] = nil

	case from == models.TaskStatusInProgress && to == models.TaskStatusApproved:
		// Rework: the reservation made on approval is still held, nothing to
		// move.
	}

	if err := stores.UpdateTaskFields(task, updates); err != nil {
		return nil, err
	}
	if err := stores.EnqueueEstimateSync(jobcardId, task.ID); err != nil {
		return nil, err
	}

	recordTransition(from, to, "applied")
	return result, nil
}

// TransitionTaskStatus is the transactional entry point: one transaction per
// transition, so the status change, stock movement, allocation record and
// sync enqueue land together or not at all.
func TransitionTaskStatus(ctx context.Context, jobcardId int, taskId int, to models.TaskStatus) (*TransitionResult, error) {

	garageId, ok := utils.GetGarageIdFromContext(ctx)
	if !ok || garageId == "" {
		return nil, errors.New("garage id is required")
	}

	var actorId *int
	if userId, ok := utils.GetUserIdFromContext(ctx); ok && userId != 0 {
		actorId = &userId
	}

	var result *TransitionResult
	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stores := models.NewTxStores(tx, garageId)
		var err error
		result, err = Transition(stores, jobcardId, taskId, to, actorId)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
