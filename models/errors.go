package models

import (
	"errors"
	"fmt"
)

// ErrTaskLocked is returned when a field edit or delete is attempted on a task
// whose status forbids it (APPROVED/COMPLETED for edits, COMPLETED for delete).
var ErrTaskLocked = errors.New("task is locked")

// InsufficientStockError is returned when a reservation cannot be satisfied.
// It carries the numbers the caller needs to correct the request.
type InsufficientStockError struct {
	ItemId         int
	StockAvailable int
	StockRequested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for item %d: available=%d requested=%d",
		e.ItemId, e.StockAvailable, e.StockRequested)
}
