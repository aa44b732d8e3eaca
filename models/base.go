package models

import (
	"fmt"

	"github.com/WRENCH-CLOUD/machnix-sub003/config"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DocTypeJobCard = "JC"
	DocTypeInvoice = "INV"
)

// DocumentNumberSequence hands out per-garage document numbers (job cards,
// invoices). Rows are claimed FOR UPDATE so numbering has no gaps under
// concurrent writers inside the same transaction boundary.
type DocumentNumberSequence struct {
	ID          int    `gorm:"primary_key" json:"id"`
	GarageId    string `gorm:"index:idx_doc_seq,unique;not null" json:"garageId"`
	DocType     string `gorm:"index:idx_doc_seq,unique;size:10;not null" json:"docType"`
	Prefix      string `gorm:"size:10" json:"prefix"`
	NextNumber  int    `gorm:"not null;default:1" json:"nextNumber"`
	NumberWidth int    `gorm:"not null;default:6" json:"numberWidth"`
}

// NextDocumentNumber claims and formats the next number for docType.
// Must be called inside the caller's transaction.
func NextDocumentNumber(tx *gorm.DB, garageId string, docType string) (string, error) {
	var seq DocumentNumberSequence
	err := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("garage_id = ? AND doc_type = ?", garageId, docType).
		First(&seq).Error
	if err != nil {
		return "", err
	}

	n := seq.NextNumber
	if err := tx.Model(&DocumentNumberSequence{}).
		Where("id = ?", seq.ID).
		Update("next_number", gorm.Expr("next_number + 1")).Error; err != nil {
		return "", err
	}

	prefix := seq.Prefix
	if prefix == "" {
		prefix = docType
	}
	return fmt.Sprintf("%s-%0*d", prefix, seq.NumberWidth, n), nil
}

func MigrateTable() {
	db := config.GetDB()
	err := db.AutoMigrate(
		&Garage{},
		&Subscription{},
		&User{},
		&Customer{},
		&Vehicle{},
		&JobCard{},
		&Task{},
		&InventoryItem{},
		&Allocation{},
		&Estimate{},
		&EstimateItem{},
		&Invoice{},
		&EstimateSyncRecord{},
		&DocumentNumberSequence{},
	)
	if err != nil {
		config.GetLogger().Panic(err.Error())
	}
}
