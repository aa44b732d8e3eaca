package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/WRENCH-CLOUD/machnix-sub003/config"
	"github.com/WRENCH-CLOUD/machnix-sub003/utils"
)

type Customer struct {
	ID        int       `gorm:"primary_key" json:"id"`
	GarageId  string    `gorm:"index;not null" json:"garageId"`
	Name      string    `gorm:"index;size:100;not null" json:"name" binding:"required"`
	Email     string    `gorm:"size:255" json:"email"`
	Phone     string    `gorm:"size:20" json:"phone"`
	Mobile    string    `gorm:"size:20" json:"mobile"`
	Address   string    `gorm:"type:text" json:"address"`
	Notes     string    `gorm:"type:text" json:"notes"`
	IsActive  *bool     `gorm:"not null;default:true" json:"isActive"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

type NewCustomer struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Mobile  string `json:"mobile"`
	Address string `json:"address"`
	Notes   string `json:"notes"`
}

// validate input for both create & update. (id = 0 for create)

func (input *NewCustomer) validate(ctx context.Context, garageId string, id int) error {
	if len(strings.TrimSpace(input.Phone)) > 0 {
		if err := utils.ValidateUnique[Customer](ctx, garageId, "phone", input.Phone, id); err != nil {
			return err
		}
	}
	if len(strings.TrimSpace(input.Mobile)) > 0 {
		if err := utils.ValidateUnique[Customer](ctx, garageId, "mobile", input.Mobile, id); err != nil {
			return err
		}
	}
	return nil
}

func CreateCustomer(ctx context.Context, input *NewCustomer) (*Customer, error) {

	garageId, ok := utils.GetGarageIdFromContext(ctx)
	if !ok || garageId == "" {
		return nil, errors.New("garage id is required")
	}

	if err := input.validate(ctx, garageId, 0); err != nil {
		return nil, err
	}

	customer := Customer{
		GarageId: garageId,
		Name:     input.Name,
		Email:    input.Email,
		Phone:    input.Phone,
		Mobile:   input.Mobile,
		Address:  input.Address,
		Notes:    input.Notes,
		IsActive: utils.NewTrue(),
	}

	// db action
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func UpdateCustomer(ctx context.Context, id int, input *NewCustomer) (*Customer, error) {

	garageId, ok := utils.GetGarageIdFromContext(ctx)
	if !ok || garageId == "" {
		return nil, errors.New("garage id is required")
	}

	if err := input.validate(ctx, garageId, id); err != nil {
		return nil, err
	}

	customer, err := utils.FetchModel[Customer](ctx, garageId, id)
	if err != nil {
		return nil, err
	}

	// db action
	db := config.GetDB()
	err = db.WithContext(ctx).Model(customer).Updates(map[string]interface{}{
		"Name":    input.Name,
		"Email":   input.Email,
		"Phone":   input.Phone,
		"Mobile":  input.Mobile,
		"Address": input.Address,
		"Notes":   input.Notes,
	}).Error
	if err != nil {
		return nil, err
	}
	return customer, nil
}

func DeleteCustomer(ctx context.Context, id int) (*Customer, error) {

	garageId, ok := utils.GetGarageIdFromContext(ctx)
	if !ok || garageId == "" {
		return nil, errors.New("garage id is required")
	}

	customer, err := utils.FetchModel[Customer](ctx, garageId, id)
	if err != nil {
		return nil, err
	}

	// refuse while open job cards reference the customer
	openCount, err := utils.ResourceCountWhere[JobCard](ctx, garageId, "customer_id = ? AND status = ?", id, JobCardStatusOpen)
	if err != nil {
		return nil, err
	}
	if openCount > 0 {
		return nil, errors.New("customer has open job cards")
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(customer).Update("IsActive", false).Error; err != nil {
		return nil, err
	}
	return customer, nil
}

func GetCustomer(ctx context.Context, id int) (*Customer, error) {
	garageId, ok := utils.GetGarageIdFromContext(ctx)
	if !ok || garageId == "" {
		return nil, errors.New("garage id is required")
	}
	return utils.FetchModel[Customer](ctx, garageId, id)
}

func GetCustomers(ctx context.Context, name *string) ([]*Customer, error) {
	garageId, ok := utils.GetGarageIdFromContext(ctx)
	if !ok || garageId == "" {
		return nil, errors.New("garage id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("garage_id = ?", garageId)
	if name != nil && strings.TrimSpace(*name) != "" {
		dbCtx = dbCtx.Where("name ILIKE ?", "%"+strings.TrimSpace(*name)+"%")
	}
	var customers []*Customer
	if err := dbCtx.Order("name").Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}
