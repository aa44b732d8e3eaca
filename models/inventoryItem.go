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

// InventoryItem tracks a part with two counters: StockOnHand is the physical
// quantity, StockReserved is the share of it promised to approved tasks.
// Available stock is always the difference, never stored.
type InventoryItem struct {
	ID            int             `gorm:"primary_key" json:"id"`
	GarageId      string          `gorm:"index:idx_item_sku,unique;not null" json:"garageId"`
	Sku           string          `gorm:"index:idx_item_sku,unique;size:50;not null" json:"sku"`
	ItemName      string          `gorm:"size:100;not null" json:"itemName"`
	Description   string          `gorm:"type:text" json:"description"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unitPrice"`
	StockOnHand   int             `gorm:"default:0" json:"stockOnHand"`
	StockReserved int             `gorm:"default:0" json:"stockReserved"`
	ReorderLevel  int             `gorm:"default:0" json:"reorderLevel"`
	IsActive      *bool           `gorm:"default:true" json:"isActive"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
}

type NewInventoryItem struct {
	Sku          string          `json:"sku" binding:"required"`
	ItemName     string          `json:"itemName" binding:"required"`
	Description  string          `json:"description"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	StockOnHand  int             `json:"stockOnHand"`
	ReorderLevel int             `json:"reorderLevel"`
}

// StockLevel is the post-transition snapshot returned to callers so the client
// can refresh its view without a second read.
type StockLevel struct {
	ItemId        int `json:"itemId"`
	StockOnHand   int `json:"stockOnHand"`
	StockReserved int `json:"stockReserved"`
	Available     int `json:"available"`
}

func (item *InventoryItem) toStockLevel() *StockLevel {
	return &StockLevel{
		ItemId:        item.ID,
		StockOnHand:   item.StockOnHand,
		StockReserved: item.StockReserved,
		Available:     item.StockOnHand - item.StockReserved,
	}
}

func (input *NewInventoryItem) validate(ctx context.Context, garageId string, id int) error {
	if err := utils.ValidateUnique[InventoryItem](ctx, garageId, "sku", input.Sku, id); err != nil {
		return errors.New("sku already exists")
	}
	if input.StockOnHand < 0 || input.ReorderLevel < 0 {
		return errors.New("stock quantities cannot be negative")
	}
	if input.UnitPrice.IsNegative() {
		return errors.New("unit price cannot be negative")
	}
	return nil
}

func CreateInventoryItem(ctx context.Context, input *NewInventoryItem) (*InventoryItem, error) {

	garageId, ok := utils.GetGarageIdFromContext(ctx)
	if !ok || garageId == "" {
		return nil, errors.New("garage id is required")
	}

	if err := input.validate(ctx, garageId, 0); err != nil {
		return nil, err
	}

	item := InventoryItem{
		GarageId:     garageId,
		Sku:          input.Sku,
		ItemName:     input.ItemName,
		Description:  input.Description,
		UnitPrice:    input.UnitPrice,
		StockOnHand:  input.StockOnHand,
		ReorderLevel: input.ReorderLevel,
		IsActive:     utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&item).Error; err != nil {
		if utils.IsDuplicateKeyError(err) {
			return nil, errors.New("sku already exists")
		}
		return nil, err
	}
	return &item, nil
}

func UpdateInventoryItem(ctx context.Context, id int, input *NewInventoryItem) (*InventoryItem, error) {

	garageId, ok := utils.GetGarageIdFromContext(ctx)
	if !ok || garageId == "" {
		return nil, errors.New("garage id is required")
	}

	item, err := utils.FetchModel[InventoryItem](ctx, garageId, id)
	if err != nil {
		return nil, err
	}

	if err := input.validate(ctx, garageId, id); err != nil {
		return nil, err
	}
	if input.StockOnHand < item.StockReserved {
		return nil, errors.New("stock on hand cannot drop below reserved quantity")
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(item).Updates(map[string]interface{}{
		"Sku":          input.Sku,
		"ItemName":     input.ItemName,
		"Description":  input.Description,
		"UnitPrice":    input.UnitPrice,
		"StockOnHand":  input.StockOnHand,
		"ReorderLevel": input.ReorderLevel,
	}).Error
	if err != nil {
		return nil, err
	}
	return item, nil
}

// RestockInventoryItem adds received quantity on top of the current counter.
func RestockInventoryItem(ctx context.Context, id int, qty int) (*InventoryItem, error) {

	garageId, ok := utils.GetGarageIdFromContext(ctx)
	if !ok || garageId == "" {
		return nil, errors.New("garage id is required")
	}
	if qty <= 0 {
		return nil, errors.New("restock qty must be a positive integer")
	}

	db := config.GetDB()
	result := db.WithContext(ctx).Model(&InventoryItem{}).
		Where("id = ? AND garage_id = ?", id, garageId).
		UpdateColumn("stock_on_hand", gorm.Expr("stock_on_hand + ?", qty))
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, utils.ErrorRecordNotFound
	}
	return utils.FetchModel[InventoryItem](ctx, garageId, id)
}

func DeactivateInventoryItem(ctx context.Context, id int) (*InventoryItem, error) {

	garageId, ok := utils.GetGarageIdFromContext(ctx)
	if !ok || garageId == "" {
		return nil, errors.New("garage id is required")
	}

	item, err := utils.FetchModel[InventoryItem](ctx, garageId, id)
	if err != nil {
		return nil, err
	}
	if item.StockReserved > 0 {
		return nil, errors.New("cannot deactivate item with reserved stock")
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(item).Update("IsActive", false).Error; err != nil {
		return nil, err
	}
	return item, nil
}

func GetInventoryItem(ctx context.Context, id int) (*InventoryItem, error) {
	garageId, ok := utils.GetGarageIdFromContext(ctx)
	if !ok || garageId == "" {
		return nil, errors.New("garage id is required")
	}
	return utils.FetchModel[InventoryItem](ctx, garageId, id)
}

func GetInventoryItems(ctx context.Context, search *string, lowStockOnly bool) ([]*InventoryItem, error) {

	garageId, ok := utils.GetGarageIdFromContext(ctx)
	if !ok || garageId == "" {
		return nil, errors.New("garage id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("garage_id = ?", garageId)
	if search != nil && *search != "" {
		dbCtx = dbCtx.Where("item_name ILIKE ? OR sku ILIKE ?", "%"+*search+"%", "%"+*search+"%")
	}
	if lowStockOnly {
		dbCtx = dbCtx.Where("stock_on_hand - stock_reserved <= reorder_level")
	}

	var items []*InventoryItem
	if err := dbCtx.Order("item_name").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// reserveStock moves qty from available into reserved with one conditional
// UPDATE. The guard lives in the WHERE clause so two concurrent reservations
// can never both pass a stale availability check; zero rows means either the
// guard failed or the item is gone, and the follow-up read tells which.
func reserveStock(tx *gorm.DB, garageId string, itemId int, qty int) (*StockLevel, error) {
	result := tx.Model(&InventoryItem{}).
		Where("id = ? AND garage_id = ? AND stock_reserved + ? <= stock_on_hand", itemId, garageId, qty).
		UpdateColumn("stock_reserved", gorm.Expr("stock_reserved + ?", qty))
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		var item InventoryItem
		err := tx.Where("garage_id = ?", garageId).First(&item, itemId).Error
		if err != nil {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, &InsufficientStockError{
			ItemId:         itemId,
			StockAvailable: item.StockOnHand - item.StockReserved,
			StockRequested: qty,
		}
	}
	return readStockLevel(tx, garageId, itemId)
}

// unreserveStock returns qty to the available pool. GREATEST floors the
// counter at zero so a double release never goes negative.
func unreserveStock(tx *gorm.DB, garageId string, itemId int, qty int) (*StockLevel, error) {
	result := tx.Model(&InventoryItem{}).
		Where("id = ? AND garage_id = ?", itemId, garageId).
		UpdateColumn("stock_reserved", gorm.Expr("GREATEST(stock_reserved - ?, 0)", qty))
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, utils.ErrorRecordNotFound
	}
	return readStockLevel(tx, garageId, itemId)
}

// consumeReservedStock turns a reservation into a physical decrement: both
// counters drop together so available stock is unchanged by consumption.
func consumeReservedStock(tx *gorm.DB, garageId string, itemId int, qty int) (*StockLevel, error) {
	result := tx.Model(&InventoryItem{}).
		Where("id = ? AND garage_id = ? AND stock_reserved >= ? AND stock_on_hand >= ?", itemId, garageId, qty, qty).
		UpdateColumns(map[string]interface{}{
			"stock_on_hand":  gorm.Expr("stock_on_hand - ?", qty),
			"stock_reserved": gorm.Expr("stock_reserved - ?", qty),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		var item InventoryItem
		err := tx.Where("garage_id = ?", garageId).First(&item, itemId).Error
		if err != nil {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, &InsufficientStockError{
			ItemId:         itemId,
			StockAvailable: item.StockReserved,
			StockRequested: qty,
		}
	}
	return readStockLevel(tx, garageId, itemId)
}

func readStockLevel(tx *gorm.DB, garageId string, itemId int) (*StockLevel, error) {
	var item InventoryItem
	err := tx.Where("garage_id = ?", garageId).First(&item, itemId).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return item.toStockLevel(), nil
}
