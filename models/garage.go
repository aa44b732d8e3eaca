package models

import (
	"context"
	"errors"
	"time"

	"github.com/WRENCH-CLOUD/machnix-sub003/config"
	"github.com/WRENCH-CLOUD/machnix-sub003/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Garage is the tenant. Every domain record carries its id in garage_id.
type Garage struct {
	ID        uuid.UUID `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"index;size:100;not null" json:"name" binding:"required"`
	Email     string    `gorm:"size:255" json:"email"`
	Phone     string    `gorm:"size:20" json:"phone"`
	Address   string    `gorm:"type:text" json:"address"`
	Country   string    `gorm:"size:100" json:"country"`
	City      string    `gorm:"size:100" json:"city"`
	Timezone  string    `gorm:"size:50" json:"timezone"`
	IsActive  *bool     `gorm:"not null;default:true" json:"isActive"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

type NewGarage struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Country  string `json:"country"`
	City     string `json:"city"`
	Timezone string `json:"timezone"`

	OwnerUsername string `json:"ownerUsername" binding:"required"`
	OwnerName     string `json:"ownerName" binding:"required"`
	OwnerPassword string `json:"ownerPassword" binding:"required,min=8"`
}

const trialDays = 14

// CreateGarage provisions a tenant: the garage row, its trial subscription,
// the owner user account and the document number sequences.
func CreateGarage(ctx context.Context, input *NewGarage) (*Garage, error) {

	garage := Garage{
		ID:       uuid.New(),
		Name:     input.Name,
		Email:    input.Email,
		Phone:    input.Phone,
		Address:  input.Address,
		Country:  input.Country,
		City:     input.City,
		Timezone: input.Timezone,
		IsActive: utils.NewTrue(),
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&garage).Error; err != nil {
			return err
		}

		sub := Subscription{
			GarageId:    garage.ID.String(),
			Plan:        SubscriptionPlanStarter,
			Status:      SubscriptionStatusTrial,
			TrialEndsAt: time.Now().UTC().AddDate(0, 0, trialDays),
		}
		if err := tx.Create(&sub).Error; err != nil {
			return err
		}

		hashed, err := utils.HashPassword(input.OwnerPassword)
		if err != nil {
			return err
		}
		owner := User{
			GarageId: garage.ID.String(),
			Username: input.OwnerUsername,
			Name:     input.OwnerName,
			Password: hashed,
			Role:     UserRoleOwner,
			IsActive: utils.NewTrue(),
		}
		if err := tx.Create(&owner).Error; err != nil {
			return err
		}

		for _, docType := range []string{DocTypeJobCard, DocTypeInvoice} {
			seq := DocumentNumberSequence{
				GarageId:    garage.ID.String(),
				DocType:     docType,
				NextNumber:  1,
				NumberWidth: 6,
			}
			if err := tx.Create(&seq).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &garage, nil
}

func GetGarage(ctx context.Context, garageId string) (*Garage, error) {
	db := config.GetDB()
	var garage Garage
	if err := db.WithContext(ctx).Where("id = ?", garageId).First(&garage).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &garage, nil
}

// GetGarages is admin-only; callers must have the tenant-scope bypass in ctx.
func GetGarages(ctx context.Context) ([]*Garage, error) {
	if isAdmin, _ := utils.GetIsAdminFromContext(ctx); !isAdmin {
		return nil, errors.New("unauthorized")
	}
	db := config.GetDB()
	var garages []*Garage
	if err := db.WithContext(ctx).Order("created_at").Find(&garages).Error; err != nil {
		return nil, err
	}
	return garages, nil
}
