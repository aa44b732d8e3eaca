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

// Estimate is the running quote for a job card, recomputed from its tasks by
// the sync dispatcher after every task mutation. One estimate per job card.
type Estimate struct {
	ID          int             `gorm:"primary_key" json:"id"`
	GarageId    string          `gorm:"index;not null" json:"garageId"`
	JobcardId   int             `gorm:"uniqueIndex;not null" json:"jobcardId"`
	SubTotal    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"subTotal"`
	TaxTotal    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"taxTotal"`
	GrandTotal  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"grandTotal"`
	LastSyncAt  *time.Time      `json:"lastSyncAt"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
	Items       []EstimateItem  `gorm:"foreignKey:EstimateId" json:"items"`
}

// EstimateItem mirrors one task's contribution to the quote. Rebuilt from
// scratch on every sync so the set always matches the live tasks.
type EstimateItem struct {
	ID          int             `gorm:"primary_key" json:"id"`
	GarageId    string          `gorm:"index;not null" json:"garageId"`
	EstimateId  int             `gorm:"index;not null" json:"estimateId"`
	TaskId      int             `gorm:"index;not null" json:"taskId"`
	Description string          `gorm:"size:200" json:"description"`
	Qty         int             `gorm:"default:0" json:"qty"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unitPrice"`
	LaborCost   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"laborCost"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"lineTotal"`
	TaxAmount   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"taxAmount"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"createdAt"`
}

func GetEstimateByJobCard(ctx context.Context, jobcardId int) (*Estimate, error) {

	garageId, ok := utils.GetGarageIdFromContext(ctx)
	if !ok || garageId == "" {
		return nil, errors.New("garage id is required")
	}
	if err := utils.ValidateResourceId[JobCard](ctx, garageId, jobcardId); err != nil {
		return nil, err
	}

	db := config.GetDB()
	var estimate Estimate
	err := db.WithContext(ctx).Preload("Items").
		Where("garage_id = ? AND jobcard_id = ?", garageId, jobcardId).
		First(&estimate).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &estimate, nil
}

// lineTotals computes a task's money amounts from its snapshots. Part cost is
// qty times unit price, labor is flat, tax applies to their sum.
func (task *Task) lineTotals() (lineTotal decimal.Decimal, taxAmount decimal.Decimal) {
	lineTotal = task.LaborCostSnapshot
	if task.ActionType == TaskActionReplaced && task.Qty != nil {
		partCost := task.UnitPriceSnapshot.Mul(decimal.NewFromInt(int64(*task.Qty)))
		lineTotal = lineTotal.Add(partCost)
	}
	taxAmount = lineTotal.Mul(task.TaxRateSnapshot)
	return lineTotal, taxAmount
}

// ApplyEstimateSync recomputes the job card's estimate from its live tasks.
// The rebuild is idempotent: running it twice for the same task set produces
// identical rows and totals, which is what lets the dispatcher retry freely.
func ApplyEstimateSync(tx *gorm.DB, garageId string, jobcardId int) error {

	var estimate Estimate
	err := tx.Where("garage_id = ? AND jobcard_id = ?", garageId, jobcardId).
		First(&estimate).Error
	if err != nil {
		return utils.ErrorRecordNotFound
	}

	var tasks []*Task
	err = tx.Where("garage_id = ? AND jobcard_id = ? AND task_status <> ?",
		garageId, jobcardId, TaskStatusCancelled).
		Order("id").
		Find(&tasks).Error
	if err != nil {
		return err
	}

	if err := tx.Where("garage_id = ? AND estimate_id = ?", garageId, estimate.ID).
		Delete(&EstimateItem{}).Error; err != nil {
		return err
	}

	subTotal := decimal.Zero
	taxTotal := decimal.Zero
	for _, task := range tasks {
		lineTotal, taxAmount := task.lineTotals()
		qty := 0
		if task.Qty != nil {
			qty = *task.Qty
		}
		item := EstimateItem{
			GarageId:    garageId,
			EstimateId:  estimate.ID,
			TaskId:      task.ID,
			Description: task.TaskName,
			Qty:         qty,
			UnitPrice:   task.UnitPriceSnapshot,
			LaborCost:   task.LaborCostSnapshot,
			LineTotal:   lineTotal,
			TaxAmount:   taxAmount,
		}
		if err := tx.Create(&item).Error; err != nil {
			return err
		}
		if err := tx.Model(&Task{}).
			Where("id = ? AND garage_id = ?", task.ID, garageId).
			Update("estimate_item_id", item.ID).Error; err != nil {
			return err
		}
		subTotal = subTotal.Add(lineTotal)
		taxTotal = taxTotal.Add(taxAmount)
	}

	now := time.Now()
	return tx.Model(&estimate).Updates(map[string]interface{}{
		"SubTotal":   subTotal,
		"TaxTotal":   taxTotal,
		"GrandTotal": subTotal.Add(taxTotal),
		"LastSyncAt": &now,
	}).Error
}
