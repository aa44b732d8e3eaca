package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/WRENCH-CLOUD/machnix-sub003/config"
	"github.com/WRENCH-CLOUD/machnix-sub003/utils"
)

type Vehicle struct {
	ID           int       `gorm:"primary_key" json:"id"`
	GarageId     string    `gorm:"index;not null" json:"garageId"`
	CustomerId   int       `gorm:"index;not null" json:"customerId"`
	Registration string    `gorm:"size:20;not null" json:"registration" binding:"required"`
	Vin          string    `gorm:"size:17" json:"vin"`
	Make         string    `gorm:"size:50" json:"make"`
	Model        string    `gorm:"size:50" json:"model"`
	Year         int       `json:"year"`
	Color        string    `gorm:"size:30" json:"color"`
	Odometer     int       `json:"odometer"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

type NewVehicle struct {
	Registration string `json:"registration" binding:"required"`
	Vin          string `json:"vin"`
	Make         string `json:"make"`
	Model        string `json:"model"`
	Year         int    `json:"year"`
	Color        string `json:"color"`
	Odometer     int    `json:"odometer"`
}

// validate input for both create & update. (id = 0 for create)

func (input *NewVehicle) validate(ctx context.Context, garageId string, id int) error {
	if err := utils.ValidateUnique[Vehicle](ctx, garageId, "registration", input.Registration, id); err != nil {
		return err
	}
	if len(strings.TrimSpace(input.Vin)) > 0 {
		if err := utils.ValidateUnique[Vehicle](ctx, garageId, "vin", input.Vin, id); err != nil {
			return err
		}
	}
	return nil
}

func CreateVehicle(ctx context.Context, customerId int, input *NewVehicle) (*Vehicle, error) {

	garageId, ok := utils.GetGarageIdFromContext(ctx)
	if !ok || garageId == "" {
		return nil, errors.New("garage id is required")
	}

	if err := utils.ValidateResourceId[Customer](ctx, garageId, customerId); err != nil {
		return nil, errors.New("customer not found")
	}
	if err := input.validate(ctx, garageId, 0); err != nil {
		return nil, err
	}

	vehicle := Vehicle{
		GarageId:     garageId,
		CustomerId:   customerId,
		Registration: strings.ToUpper(strings.TrimSpace(input.Registration)),
		Vin:          strings.ToUpper(strings.TrimSpace(input.Vin)),
		Make:         input.Make,
		Model:        input.Model,
		Year:         input.Year,
		Color:        input.Color,
		Odometer:     input.Odometer,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&vehicle).Error; err != nil {
		return nil, err
	}
	return &vehicle, nil
}

func UpdateVehicle(ctx context.Context, id int, input *NewVehicle) (*Vehicle, error) {

	garageId, ok := utils.GetGarageIdFromContext(ctx)
	if !ok || garageId == "" {
		return nil, errors.New("garage id is required")
	}

	if err := input.validate(ctx, garageId, id); err != nil {
		return nil, err
	}

	vehicle, err := utils.FetchModel[Vehicle](ctx, garageId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(vehicle).Updates(map[string]interface{}{
		"Registration": strings.ToUpper(strings.TrimSpace(input.Registration)),
		"Vin":          strings.ToUpper(strings.TrimSpace(input.Vin)),
		"Make":         input.Make,
		"Model":        input.Model,
		"Year":         input.Year,
		"Color":        input.Color,
		"Odometer":     input.Odometer,
	}).Error
	if err != nil {
		return nil, err
	}
	return vehicle, nil
}

func DeleteVehicle(ctx context.Context, id int) (*Vehicle, error) {

	garageId, ok := utils.GetGarageIdFromContext(ctx)
	if !ok || garageId == "" {
		return nil, errors.New("garage id is required")
	}

	vehicle, err := utils.FetchModel[Vehicle](ctx, garageId, id)
	if err != nil {
		return nil, err
	}

	openCount, err := utils.ResourceCountWhere[JobCard](ctx, garageId, "vehicle_id = ? AND status = ?", id, JobCardStatusOpen)
	if err != nil {
		return nil, err
	}
	if openCount > 0 {
		return nil, errors.New("vehicle has open job cards")
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(vehicle).Error; err != nil {
		return nil, err
	}
	return vehicle, nil
}

func GetVehicle(ctx context.Context, id int) (*Vehicle, error) {
	garageId, ok := utils.GetGarageIdFromContext(ctx)
	if !ok || garageId == "" {
		return nil, errors.New("garage id is required")
	}
	return utils.FetchModel[Vehicle](ctx, garageId, id)
}

func GetVehiclesByCustomer(ctx context.Context, customerId int) ([]*Vehicle, error) {
	garageId, ok := utils.GetGarageIdFromContext(ctx)
	if !ok || garageId == "" {
		return nil, errors.New("garage id is required")
	}
	if err := utils.ValidateResourceId[Customer](ctx, garageId, customerId); err != nil {
		return nil, errors.New("customer not found")
	}

	db := config.GetDB()
	var vehicles []*Vehicle
	err := db.WithContext(ctx).
		Where("garage_id = ? AND customer_id = ?", garageId, customerId).
		Order("registration").
		Find(&vehicles).Error
	if err != nil {
		return nil, err
	}
	return vehicles, nil
}
