package models

import (
	"strings"
	"testing"

	"github.com/WRENCH-CLOUD/machnix-sub003/utils"
	"github.com/shopspring/decimal"
)

func TestLineTotals_ReplacedTask(t *testing.T) {
	task := &Task{
		ActionType:        TaskActionReplaced,
		InventoryItemId:   utils.NewInt(1),
		Qty:               utils.NewInt(4),
		UnitPriceSnapshot: decimal.RequireFromString("12500.50"),
		LaborCostSnapshot: decimal.NewFromInt(8000),
		TaxRateSnapshot:   decimal.RequireFromString("0.05"),
	}

	lineTotal, taxAmount := task.lineTotals()

	// 4 * 12500.50 + 8000 = 58002
	if lineTotal.Cmp(decimal.NewFromInt(58002)) != 0 {
		t.Fatalf("expected lineTotal=58002, got %s", lineTotal)
	}
	if taxAmount.Cmp(decimal.RequireFromString("2900.10")) != 0 {
		t.Fatalf("expected taxAmount=2900.10, got %s", taxAmount)
	}
}

func TestLineTotals_RepairTask_LaborOnly(t *testing.T) {
	task := &Task{
		ActionType:        TaskActionRepaired,
		UnitPriceSnapshot: decimal.NewFromInt(99999), // must be ignored without a part
		LaborCostSnapshot: decimal.NewFromInt(15000),
		TaxRateSnapshot:   decimal.Zero,
	}

	lineTotal, taxAmount := task.lineTotals()

	if lineTotal.Cmp(decimal.NewFromInt(15000)) != 0 {
		t.Fatalf("expected lineTotal=15000, got %s", lineTotal)
	}
	if !taxAmount.IsZero() {
		t.Fatalf("expected zero tax, got %s", taxAmount)
	}
}

func TestInsufficientStockError_Message(t *testing.T) {
	err := &InsufficientStockError{ItemId: 7, StockAvailable: 2, StockRequested: 5}
	msg := err.Error()
	if msg == "" {
		t.Fatal("expected a message")
	}
	for _, want := range []string{"2", "5"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message %q should mention %q", msg, want)
		}
	}
}
