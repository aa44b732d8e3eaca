package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/WRENCH-CLOUD/machnix-sub003/config"
	"github.com/WRENCH-CLOUD/machnix-sub003/utils"
	"github.com/bsm/redislock"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Invoice struct {
	ID            int             `gorm:"primary_key" json:"id"`
	GarageId      string          `gorm:"index;not null" json:"garageId"`
	InvoiceNumber string          `gorm:"size:20;not null" json:"invoiceNumber"`
	JobcardId     int             `gorm:"uniqueIndex;not null" json:"jobcardId"`
	Status        InvoiceStatus   `gorm:"type:varchar(10);default:Draft" json:"status"`
	SubTotal      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"subTotal"`
	TaxTotal      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"taxTotal"`
	GrandTotal    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"grandTotal"`
	IssuedAt      *time.Time      `json:"issuedAt"`
	PaidAt        *time.Time      `json:"paidAt"`
	CreatedBy     *int            `json:"createdBy"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
}

// advisoryLockJobCard serializes invoice generation per job card. The lock is
// transaction scoped, so it releases on commit or rollback.
func advisoryLockJobCard(tx *gorm.DB, garageId string, jobcardId int) error {
	return tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?), ?)", garageId, jobcardId).Error
}

// GenerateInvoice issues the invoice for a job card once every remaining task
// is COMPLETED. Exactly one invoice can exist per job card; concurrent calls
// serialize on an advisory lock and the loser sees the duplicate.
func GenerateInvoice(ctx context.Context, jobcardId int) (*Invoice, error) {

	garageId, ok := utils.GetGarageIdFromContext(ctx)
	if !ok || garageId == "" {
		return nil, errors.New("garage id is required")
	}

	if err := utils.ValidateResourceId[JobCard](ctx, garageId, jobcardId); err != nil {
		return nil, err
	}

	userId, _ := utils.GetUserIdFromContext(ctx)

	// Redis lock is a best-effort optimization to avoid in-request blocking.
	// Correctness does not depend on Redis: the advisory lock below is the
	// real serialization point.
	if redisLock := config.GetRedisLock(); redisLock != nil {
		key := fmt.Sprintf("lock:invoice:%s:%d", garageId, jobcardId)
		lock, err := redisLock.Obtain(ctx, key, 30*time.Second, nil)
		if err == nil {
			defer func() {
				if releaseErr := lock.Release(ctx); releaseErr != nil {
					config.LogError(config.GetLogger(), "invoice.go", "GenerateInvoice", "release redis lock", key, releaseErr)
				}
			}()
		} else if err != redislock.ErrNotObtained {
			config.LogError(config.GetLogger(), "invoice.go", "GenerateInvoice", "obtain redis lock", key, err)
		}
	}

	var invoice Invoice
	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := advisoryLockJobCard(tx, garageId, jobcardId); err != nil {
			return err
		}

		var existing int64
		err := tx.Model(&Invoice{}).
			Where("garage_id = ? AND jobcard_id = ?", garageId, jobcardId).
			Count(&existing).Error
		if err != nil {
			return err
		}
		if existing > 0 {
			return errors.New("invoice already exists for this job card")
		}

		var openTasks int64
		err = tx.Model(&Task{}).
			Where("garage_id = ? AND jobcard_id = ? AND task_status NOT IN ?",
				garageId, jobcardId,
				[]TaskStatus{TaskStatusCompleted, TaskStatusCancelled}).
			Count(&openTasks).Error
		if err != nil {
			return err
		}
		if openTasks > 0 {
			return errors.New("all tasks must be completed before invoicing")
		}

		var estimate Estimate
		err = tx.Where("garage_id = ? AND jobcard_id = ?", garageId, jobcardId).
			First(&estimate).Error
		if err != nil {
			return utils.ErrorRecordNotFound
		}

		invoiceNumber, err := NextDocumentNumber(tx, garageId, DocTypeInvoice)
		if err != nil {
			return err
		}

		now := time.Now()
		invoice = Invoice{
			GarageId:      garageId,
			InvoiceNumber: invoiceNumber,
			JobcardId:     jobcardId,
			Status:        InvoiceStatusIssued,
			SubTotal:      estimate.SubTotal,
			TaxTotal:      estimate.TaxTotal,
			GrandTotal:    estimate.GrandTotal,
			IssuedAt:      &now,
		}
		if userId != 0 {
			invoice.CreatedBy = &userId
		}
		return tx.Create(&invoice).Error
	})
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func MarkInvoicePaid(ctx context.Context, id int) (*Invoice, error) {

	garageId, ok := utils.GetGarageIdFromContext(ctx)
	if !ok || garageId == "" {
		return nil, errors.New("garage id is required")
	}

	invoice, err := utils.FetchModel[Invoice](ctx, garageId, id)
	if err != nil {
		return nil, err
	}
	if invoice.Status == InvoiceStatusPaid {
		return invoice, nil
	}
	if invoice.Status != InvoiceStatusIssued {
		return nil, errors.New("only issued invoices can be marked paid")
	}

	now := time.Now()
	db := config.GetDB()
	err = db.WithContext(ctx).Model(invoice).Updates(map[string]interface{}{
		"Status": InvoiceStatusPaid,
		"PaidAt": &now,
	}).Error
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

func GetInvoice(ctx context.Context, id int) (*Invoice, error) {
	garageId, ok := utils.GetGarageIdFromContext(ctx)
	if !ok || garageId == "" {
		return nil, errors.New("garage id is required")
	}
	return utils.FetchModel[Invoice](ctx, garageId, id)
}

func GetInvoices(ctx context.Context, status *InvoiceStatus) ([]*Invoice, error) {

	garageId, ok := utils.GetGarageIdFromContext(ctx)
	if !ok || garageId == "" {
		return nil, errors.New("garage id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("garage_id = ?", garageId)
	if status != nil {
		dbCtx = dbCtx.Where("status = ?", *status)
	}

	var invoices []*Invoice
	if err := dbCtx.Order("id desc").Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}
