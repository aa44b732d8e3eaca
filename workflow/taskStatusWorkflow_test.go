package workflow

import (
	"errors"
	"testing"

	"github.com/WRENCH-CLOUD/machnix-sub003/models"
	"github.com/WRENCH-CLOUD/machnix-sub003/utils"
)

// NOTE: These tests are intentionally DB-free. They validate the lifecycle
// semantics against fake stores: the transition table, the inventory side
// effect per edge, and that a failed side effect leaves the task untouched.
//
// Full DB integration tests require Postgres; see the models package.

type fakeStores struct {
	task        *models.Task
	stockOnHand int
	reserved    int

	allocations  map[int]*models.Allocation
	nextAllocId  int
	taskUpdates  []map[string]interface{}
	syncEnqueues int

	failCreateAllocation bool
	failUpdateTask       bool
}

func newFakeStores(task *models.Task, onHand int, reserved int) *fakeStores {
	return &fakeStores{
		task:        task,
		stockOnHand: onHand,
		reserved:    reserved,
		allocations: map[int]*models.Allocation{},
		nextAllocId: 1,
	}
}

func (f *fakeStores) seedAllocation(id int, itemId int, qty int) {
	f.allocations[id] = &models.Allocation{
		ID:              id,
		TaskId:          f.task.ID,
		InventoryItemId: itemId,
		Qty:             qty,
		Status:          models.AllocationStatusReserved,
	}
	if id >= f.nextAllocId {
		f.nextAllocId = id + 1
	}
}

func (f *fakeStores) GetTaskForUpdate(jobcardId int, taskId int) (*models.Task, error) {
	if f.task == nil || f.task.ID != taskId || f.task.JobcardId != jobcardId {
		return nil, utils.ErrorRecordNotFound
	}
	return f.task, nil
}

func (f *fakeStores) UpdateTaskFields(task *models.Task, updates map[string]interface{}) error {
	if f.failUpdateTask {
		return errors.New("update failed")
	}
	f.taskUpdates = append(f.taskUpdates, updates)
	if v, ok := updates["TaskStatus"]; ok {
		task.TaskStatus = v.(models.TaskStatus)
	}
	if v, ok := updates["AllocationId"]; ok {
		if v == nil {
			task.AllocationId = nil
		} else {
			id := v.(int)
			task.AllocationId = &id
		}
	}
	return nil
}

func (f *fakeStores) level() *models.StockLevel {
	return &models.StockLevel{
		ItemId:        1,
		StockOnHand:   f.stockOnHand,
		StockReserved: f.reserved,
		Available:     f.stockOnHand - f.reserved,
	}
}

func (f *fakeStores) ReserveStock(itemId int, qty int) (*models.StockLevel, error) {
	if f.reserved+qty > f.stockOnHand {
		return nil, &models.InsufficientStockError{
			ItemId:         itemId,
			StockAvailable: f.stockOnHand - f.reserved,
			StockRequested: qty,
		}
	}
	f.reserved += qty
	return f.level(), nil
}

func (f *fakeStores) UnreserveStock(itemId int, qty int) (*models.StockLevel, error) {
	f.reserved -= qty
	if f.reserved < 0 {
		f.reserved = 0
	}
	return f.level(), nil
}

func (f *fakeStores) ConsumeReservedStock(itemId int, qty int) (*models.StockLevel, error) {
	if f.reserved < qty || f.stockOnHand < qty {
		return nil, &models.InsufficientStockError{
			ItemId:         itemId,
			StockAvailable: f.reserved,
			StockRequested: qty,
		}
	}
	f.reserved -= qty
	f.stockOnHand -= qty
	return f.level(), nil
}

func (f *fakeStores) CreateAllocation(taskId int, itemId int, qty int) (*models.Allocation, error) {
	if f.failCreateAllocation {
		return nil, errors.New("allocation insert failed")
	}
	id := f.nextAllocId
	f.nextAllocId++
	allocation := &models.Allocation{ID: id, TaskId: taskId, InventoryItemId: itemId, Qty: qty, Status: models.AllocationStatusReserved}
	f.allocations[id] = allocation
	return allocation, nil
}

func (f *fakeStores) GetAllocation(allocationId int) (*models.Allocation, error) {
	allocation, ok := f.allocations[allocationId]
	if !ok {
		return nil, utils.ErrorRecordNotFound
	}
	return allocation, nil
}

func (f *fakeStores) SetAllocationStatus(allocationId int, status models.AllocationStatus) error {
	allocation, ok := f.allocations[allocationId]
	if !ok {
		return utils.ErrorRecordNotFound
	}
	allocation.Status = status
	return nil
}

func (f *fakeStores) EnqueueEstimateSync(jobcardId int, taskId int) error {
	f.syncEnqueues++
	return nil
}

func replacedTask(status models.TaskStatus) *models.Task {
	item := 1
	qty := 3
	return &models.Task{
		ID:              10,
		JobcardId:       5,
		TaskName:        "Replace brake pads",
		ActionType:      models.TaskActionReplaced,
		InventoryItemId: &item,
		Qty:             &qty,
		TaskStatus:      status,
	}
}

func repairTask(status models.TaskStatus) *models.Task {
	return &models.Task{
		ID:         10,
		JobcardId:  5,
		TaskName:   "Adjust clutch",
		ActionType: models.TaskActionRepaired,
		TaskStatus: status,
	}
}

func TestTransitionTable_OnlyListedEdgesPass(t *testing.T) {
	all := []models.TaskStatus{
		models.TaskStatusDraft,
		models.TaskStatusApproved,
		models.TaskStatusInProgress,
		models.TaskStatusCompleted,
		models.TaskStatusCancelled,
	}
	for _, from := range all {
		for _, to := range all {
			f := newFakeStores(repairTask(from), 0, 0)
			_, err := Transition(f, 5, 10, to, nil)

			if transitionAllowed(from, to) {
				if err != nil {
					t.Fatalf("%s -> %s should be allowed, got %v", from, to, err)
				}
				continue
			}
			var invalid *InvalidTransitionError
			if !errors.As(err, &invalid) {
				t.Fatalf("%s -> %s should be rejected, got %v", from, to, err)
			}
			if invalid.From != from || invalid.To != to {
				t.Fatalf("error edge mismatch: %+v", invalid)
			}
			if len(f.taskUpdates) != 0 {
				t.Fatalf("%s -> %s rejected but task was updated", from, to)
			}
		}
	}
}

func TestCompletedIsTerminal(t *testing.T) {
	if targets := AllowedTargets(models.TaskStatusCompleted); len(targets) != 0 {
		t.Fatalf("COMPLETED must have no outgoing edges, got %v", targets)
	}
}

func TestApprove_ReplacedTask_ReservesAndAllocates(t *testing.T) {
	f := newFakeStores(replacedTask(models.TaskStatusDraft), 10, 2)
	actor := 7

	result, err := Transition(f, 5, 10, models.TaskStatusApproved, &actor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.reserved != 5 {
		t.Fatalf("expected reserved=5 after reserving 3 on top of 2, got %d", f.reserved)
	}
	if f.stockOnHand != 10 {
		t.Fatalf("approval must not change stock on hand, got %d", f.stockOnHand)
	}
	if result.Inventory == nil || result.Inventory.Available != 5 {
		t.Fatalf("expected inventory snapshot with available=5, got %+v", result.Inventory)
	}
	if len(f.allocations) != 1 || f.allocations[1].Status != models.AllocationStatusReserved {
		t.Fatalf("expected one reserved allocation, got %v", f.allocations)
	}
	if f.task.AllocationId == nil || *f.task.AllocationId != 1 {
		t.Fatalf("task should point at the allocation, got %v", f.task.AllocationId)
	}
	if f.syncEnqueues != 1 {
		t.Fatalf("expected one estimate sync enqueue, got %d", f.syncEnqueues)
	}
	if got := f.taskUpdates[0]["ApprovedBy"]; got != &actor {
		t.Fatalf("expected approver stamp, got %v", got)
	}
}

func TestApprove_RepairTask_DoesNotTouchInventory(t *testing.T) {
	f := newFakeStores(repairTask(models.TaskStatusDraft), 10, 0)

	result, err := Transition(f, 5, 10, models.TaskStatusApproved, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Inventory != nil {
		t.Fatalf("repair approval moved inventory: %+v", result.Inventory)
	}
	if f.reserved != 0 || len(f.allocations) != 0 {
		t.Fatalf("repair approval must not reserve or allocate")
	}
}

func TestApprove_InsufficientStock_LeavesTaskUntouched(t *testing.T) {
	f := newFakeStores(replacedTask(models.TaskStatusDraft), 4, 2) // available = 2, need 3

	_, err := Transition(f, 5, 10, models.TaskStatusApproved, nil)

	var insufficient *models.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if insufficient.StockAvailable != 2 || insufficient.StockRequested != 3 {
		t.Fatalf("wrong stock numbers in error: %+v", insufficient)
	}
	if f.task.TaskStatus != models.TaskStatusDraft {
		t.Fatalf("task status must stay DRAFT, got %s", f.task.TaskStatus)
	}
	if len(f.taskUpdates) != 0 || len(f.allocations) != 0 || f.syncEnqueues != 0 {
		t.Fatalf("rejection must have no side effects")
	}
}

func TestApprove_AllocationInsertFailure_StopsBeforeTaskUpdate(t *testing.T) {
	f := newFakeStores(replacedTask(models.TaskStatusDraft), 10, 0)
	f.failCreateAllocation = true

	_, err := Transition(f, 5, 10, models.TaskStatusApproved, nil)
	if err == nil {
		t.Fatal("expected error from allocation insert")
	}
	if len(f.taskUpdates) != 0 {
		t.Fatal("task must not be updated when a side effect fails")
	}
	if f.syncEnqueues != 0 {
		t.Fatal("sync must not be enqueued when a side effect fails")
	}
}

func TestComplete_ReplacedTask_ConsumesReservation(t *testing.T) {
	task := replacedTask(models.TaskStatusInProgress)
	allocId := 1
	task.AllocationId = &allocId

	f := newFakeStores(task, 10, 3)
	f.seedAllocation(1, 1, 3)
	actor := 9

	result, err := Transition(f, 5, 10, models.TaskStatusCompleted, &actor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.stockOnHand != 7 || f.reserved != 0 {
		t.Fatalf("expected onHand=7 reserved=0, got %d/%d", f.stockOnHand, f.reserved)
	}
	if result.Inventory.Available != 7 {
		t.Fatalf("consumption must not change availability beyond the physical drop, got %d", result.Inventory.Available)
	}
	if f.allocations[1].Status != models.AllocationStatusConsumed {
		t.Fatalf("allocation should be consumed, got %s", f.allocations[1].Status)
	}
	if f.task.TaskStatus != models.TaskStatusCompleted {
		t.Fatalf("task should be COMPLETED, got %s", f.task.TaskStatus)
	}
}

func TestComplete_ConsumesAllocationQty_NotTaskQty(t *testing.T) {
	// The allocation records what was actually reserved; completion must
	// move that amount even if the task fields disagree.
	task := replacedTask(models.TaskStatusInProgress)
	allocId := 1
	task.AllocationId = &allocId
	staleQty := 5
	task.Qty = &staleQty

	f := newFakeStores(task, 10, 2)
	f.seedAllocation(1, 1, 2)

	result, err := Transition(f, 5, 10, models.TaskStatusCompleted, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.stockOnHand != 8 || f.reserved != 0 {
		t.Fatalf("expected the recorded 2 units consumed, got onHand=%d reserved=%d", f.stockOnHand, f.reserved)
	}
	if result.Inventory.StockOnHand != 8 {
		t.Fatalf("expected onHand=8 in the snapshot, got %d", result.Inventory.StockOnHand)
	}
}

func TestCancel_ReleasesAllocationQty_NotTaskQty(t *testing.T) {
	task := replacedTask(models.TaskStatusApproved)
	allocId := 1
	task.AllocationId = &allocId
	staleQty := 5
	task.Qty = &staleQty

	f := newFakeStores(task, 10, 2)
	f.seedAllocation(1, 1, 2)

	if _, err := Transition(f, 5, 10, models.TaskStatusCancelled, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.reserved != 0 || f.stockOnHand != 10 {
		t.Fatalf("expected the recorded 2 units released, got onHand=%d reserved=%d", f.stockOnHand, f.reserved)
	}
}

func TestComplete_DanglingAllocationPointerFails(t *testing.T) {
	task := replacedTask(models.TaskStatusInProgress)
	allocId := 99
	task.AllocationId = &allocId

	f := newFakeStores(task, 10, 3)

	_, err := Transition(f, 5, 10, models.TaskStatusCompleted, nil)
	if !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("expected not-found for a dangling allocation, got %v", err)
	}
	if len(f.taskUpdates) != 0 {
		t.Fatal("a failed side effect must leave the task untouched")
	}
}

func TestCancelApproved_ReleasesReservation(t *testing.T) {
	task := replacedTask(models.TaskStatusApproved)
	allocId := 1
	task.AllocationId = &allocId

	f := newFakeStores(task, 10, 3)
	f.seedAllocation(1, 1, 3)

	result, err := Transition(f, 5, 10, models.TaskStatusCancelled, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.reserved != 0 || f.stockOnHand != 10 {
		t.Fatalf("release must restore availability without touching on hand, got %d/%d", f.stockOnHand, f.reserved)
	}
	if f.allocations[1].Status != models.AllocationStatusReleased {
		t.Fatalf("allocation should be released, got %s", f.allocations[1].Status)
	}
	if f.task.AllocationId != nil {
		t.Fatal("task should drop its allocation pointer on cancel")
	}
	if result.Inventory.Available != 10 {
		t.Fatalf("expected available=10, got %d", result.Inventory.Available)
	}
}

func TestCancelDraft_NoInventoryMovement(t *testing.T) {
	f := newFakeStores(replacedTask(models.TaskStatusDraft), 10, 0)

	result, err := Transition(f, 5, 10, models.TaskStatusCancelled, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Inventory != nil || f.reserved != 0 {
		t.Fatal("cancelling a draft must not move stock")
	}
}

func TestReworkToApproved_KeepsReservation(t *testing.T) {
	task := replacedTask(models.TaskStatusInProgress)
	allocId := 1
	task.AllocationId = &allocId

	f := newFakeStores(task, 10, 3)
	f.seedAllocation(1, 1, 3)

	result, err := Transition(f, 5, 10, models.TaskStatusApproved, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.reserved != 3 || f.stockOnHand != 10 {
		t.Fatalf("rework must keep the reservation, got %d/%d", f.stockOnHand, f.reserved)
	}
	if result.Inventory != nil {
		t.Fatal("rework must not report an inventory change")
	}
	if f.allocations[1].Status != models.AllocationStatusReserved {
		t.Fatalf("allocation should stay reserved, got %s", f.allocations[1].Status)
	}
}

func TestReopenCancelled_ClearsActorStamps(t *testing.T) {
	task := repairTask(models.TaskStatusCancelled)
	actor := 3
	task.ApprovedBy = &actor

	f := newFakeStores(task, 0, 0)

	_, err := Transition(f, 5, 10, models.TaskStatusDraft, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	updates := f.taskUpdates[0]
	if v, ok := updates["ApprovedBy"]; !ok || v != nil {
		t.Fatalf("reopen must clear ApprovedBy, got %v", v)
	}
}

func TestReapproveAfterCancel_CreatesFreshAllocation(t *testing.T) {
	// Full cycle: approve, cancel, reopen, approve again.
	f := newFakeStores(replacedTask(models.TaskStatusDraft), 10, 0)

	steps := []models.TaskStatus{
		models.TaskStatusApproved,
		models.TaskStatusCancelled,
		models.TaskStatusDraft,
		models.TaskStatusApproved,
	}
	for _, to := range steps {
		if _, err := Transition(f, 5, 10, to, nil); err != nil {
			t.Fatalf("step to %s failed: %v", to, err)
		}
	}

	if len(f.allocations) != 2 {
		t.Fatalf("expected two allocation records over the cycle, got %d", len(f.allocations))
	}
	if f.allocations[1].Status != models.AllocationStatusReleased {
		t.Fatalf("first allocation should be released, got %s", f.allocations[1].Status)
	}
	if f.allocations[2].Status != models.AllocationStatusReserved {
		t.Fatalf("second allocation should be reserved, got %s", f.allocations[2].Status)
	}
	if f.reserved != 3 {
		t.Fatalf("expected reserved=3 after re-approval, got %d", f.reserved)
	}
}

func TestTransition_MissingTask(t *testing.T) {
	f := newFakeStores(nil, 0, 0)
	_, err := Transition(f, 5, 10, models.TaskStatusApproved, nil)
	if !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestInvalidTransitionError_CarriesAllowedTargets(t *testing.T) {
	f := newFakeStores(repairTask(models.TaskStatusDraft), 0, 0)
	_, err := Transition(f, 5, 10, models.TaskStatusCompleted, nil)

	var invalid *InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	want := []models.TaskStatus{models.TaskStatusApproved, models.TaskStatusCancelled}
	if len(invalid.Allowed) != len(want) {
		t.Fatalf("allowed mismatch: %v", invalid.Allowed)
	}
	for i := range want {
		if invalid.Allowed[i] != want[i] {
			t.Fatalf("allowed mismatch at %d: %v", i, invalid.Allowed)
		}
	}
}
