package models

import (
	"context"
	"errors"
	"time"

	"github.com/WRENCH-CLOUD/machnix-sub003/config"
	"github.com/WRENCH-CLOUD/machnix-sub003/utils"
)

// Subscription gates write access per garage. Billing/payment collection is a
// provider concern outside this service; only the gate state lives here.
type Subscription struct {
	ID               int                `gorm:"primary_key" json:"id"`
	GarageId         string             `gorm:"uniqueIndex;not null" json:"garageId"`
	Plan             SubscriptionPlan   `gorm:"type:varchar(20);default:Starter" json:"plan"`
	Status           SubscriptionStatus `gorm:"type:varchar(20);default:Trial" json:"status"`
	TrialEndsAt      time.Time          `json:"trialEndsAt"`
	CurrentPeriodEnd *time.Time         `json:"currentPeriodEnd"`
	CreatedAt        time.Time          `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt        time.Time          `gorm:"autoUpdateTime" json:"updatedAt"`
}

type NewSubscription struct {
	Plan             SubscriptionPlan   `json:"plan" binding:"required"`
	Status           SubscriptionStatus `json:"status" binding:"required,subscriptionstatus"`
	CurrentPeriodEnd *time.Time         `json:"currentPeriodEnd"`
}

// pastDueGraceDays keeps a garage writable while a renewal payment settles.
const pastDueGraceDays = 7

/*
caches:
	Subscription:$garageId
*/

func (sub Subscription) RemoveInstanceRedis() error {
	return config.RemoveRedisKey("Subscription:" + sub.GarageId)
}

// IsWritable reports whether the garage may perform write operations now.
func (sub *Subscription) IsWritable(now time.Time) bool {
	switch sub.Status {
	case SubscriptionStatusActive:
		return sub.CurrentPeriodEnd == nil || now.Before(*sub.CurrentPeriodEnd)
	case SubscriptionStatusTrial:
		return now.Before(sub.TrialEndsAt)
	case SubscriptionStatusPastDue:
		if sub.CurrentPeriodEnd == nil {
			return false
		}
		return now.Before(sub.CurrentPeriodEnd.AddDate(0, 0, pastDueGraceDays))
	default:
		return false
	}
}

// GetSubscription reads through the Redis cache.
func GetSubscription(ctx context.Context, garageId string) (*Subscription, error) {
	var sub Subscription
	exists, err := config.GetRedisObject("Subscription:"+garageId, &sub)
	if err != nil {
		return nil, err
	}
	if exists {
		return &sub, nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Where("garage_id = ?", garageId).First(&sub).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	// best effort: gate re-reads the DB after TTL anyway
	_ = config.SetRedisObject("Subscription:"+garageId, &sub, 5*time.Minute)
	return &sub, nil
}

// UpdateSubscription is admin-only (platform console / billing webhook stub).
func UpdateSubscription(ctx context.Context, garageId string, input *NewSubscription) (*Subscription, error) {
	if isAdmin, _ := utils.GetIsAdminFromContext(ctx); !isAdmin {
		return nil, errors.New("unauthorized")
	}

	db := config.GetDB()
	var sub Subscription
	if err := db.WithContext(ctx).Where("garage_id = ?", garageId).First(&sub).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	err := db.WithContext(ctx).Model(&sub).Updates(map[string]interface{}{
		"Plan":             input.Plan,
		"Status":           input.Status,
		"CurrentPeriodEnd": input.CurrentPeriodEnd,
	}).Error
	if err != nil {
		return nil, err
	}

	if err := sub.RemoveInstanceRedis(); err != nil {
		config.LogError(config.GetLogger(), "subscription.go", "UpdateSubscription", "RemoveInstanceRedis", garageId, err)
	}
	return &sub, nil
}
