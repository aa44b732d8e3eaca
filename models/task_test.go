package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func lockedGuardTask() *Task {
	itemId := 7
	qty := 2
	return &Task{
		ID:                10,
		TaskName:          "Replace brake pads",
		ActionType:        TaskActionReplaced,
		InventoryItemId:   &itemId,
		Qty:               &qty,
		UnitPriceSnapshot: decimal.NewFromInt(40000),
		LaborCostSnapshot: decimal.NewFromInt(10000),
		TaxRateSnapshot:   decimal.NewFromFloat(0.05),
		TaskStatus:        TaskStatusCompleted,
	}
}

func matchingInput(task *Task) *NewTask {
	return &NewTask{
		TaskName:        task.TaskName,
		Description:     task.Description,
		ActionType:      task.ActionType,
		InventoryItemId: task.InventoryItemId,
		Qty:             task.Qty,
		UnitPrice:       task.UnitPriceSnapshot,
		LaborCost:       task.LaborCostSnapshot,
		TaxRate:         task.TaxRateSnapshot,
	}
}

func TestEditsLockedFields_QtyChangeOnCompletedTask(t *testing.T) {
	task := lockedGuardTask()
	input := matchingInput(task)
	newQty := 5
	input.Qty = &newQty

	if !lockedStatuses[task.TaskStatus] {
		t.Fatalf("COMPLETED must be a locked status")
	}
	if !input.editsLockedFields(task) {
		t.Fatalf("qty change must count as a locked-field edit")
	}
}

func TestEditsLockedFields_IdenticalInputIsNotAnEdit(t *testing.T) {
	task := lockedGuardTask()
	input := matchingInput(task)

	if input.editsLockedFields(task) {
		t.Fatalf("unchanged fields must not trip the lock")
	}
	if input.editsReplacementFields(task) {
		t.Fatalf("unchanged replacement fields must not trip the allocation guard")
	}
}

func TestEditsLockedFields_CoversEveryLockedField(t *testing.T) {
	task := lockedGuardTask()
	otherItem := 8
	otherQty := 9

	cases := map[string]func(*NewTask){
		"taskName":   func(in *NewTask) { in.TaskName = "Something else" },
		"actionType": func(in *NewTask) { in.ActionType = TaskActionRepaired },
		"item":       func(in *NewTask) { in.InventoryItemId = &otherItem },
		"item nil":   func(in *NewTask) { in.InventoryItemId = nil },
		"qty":        func(in *NewTask) { in.Qty = &otherQty },
		"unitPrice":  func(in *NewTask) { in.UnitPrice = decimal.NewFromInt(1) },
		"laborCost":  func(in *NewTask) { in.LaborCost = decimal.NewFromInt(1) },
		"taxRate":    func(in *NewTask) { in.TaxRate = decimal.NewFromFloat(0.2) },
	}
	for name, mutate := range cases {
		input := matchingInput(task)
		mutate(input)
		if !input.editsLockedFields(task) {
			t.Fatalf("%s change must count as a locked-field edit", name)
		}
	}
}

func TestEditsReplacementFields_TracksAllocationTruth(t *testing.T) {
	task := lockedGuardTask()
	task.TaskStatus = TaskStatusInProgress

	input := matchingInput(task)
	input.Description = "progress notes"
	if input.editsReplacementFields(task) {
		t.Fatalf("description edits must stay allowed while a reservation is held")
	}

	otherQty := 4
	input = matchingInput(task)
	input.Qty = &otherQty
	if !input.editsReplacementFields(task) {
		t.Fatalf("qty edits must be blocked while a reservation is held")
	}

	input = matchingInput(task)
	input.ActionType = TaskActionNoChange
	input.InventoryItemId = nil
	input.Qty = nil
	if !input.editsReplacementFields(task) {
		t.Fatalf("action type edits must be blocked while a reservation is held")
	}
}

func TestIntPtrEqual(t *testing.T) {
	a, b, c := 3, 3, 4
	if !intPtrEqual(nil, nil) || !intPtrEqual(&a, &b) {
		t.Fatalf("equal pointers reported unequal")
	}
	if intPtrEqual(&a, nil) || intPtrEqual(nil, &a) || intPtrEqual(&a, &c) {
		t.Fatalf("unequal pointers reported equal")
	}
}
