package models

import (
	"context"
	"errors"
	"time"

	"github.com/WRENCH-CLOUD/machnix-sub003/config"
	"github.com/WRENCH-CLOUD/machnix-sub003/utils"
	"gorm.io/gorm"
)

type JobCard struct {
	ID            int           `gorm:"primary_key" json:"id"`
	GarageId      string        `gorm:"index;not null" json:"garageId"`
	JobCardNumber string        `gorm:"size:20;not null" json:"jobCardNumber"`
	CustomerId    int           `gorm:"index;not null" json:"customerId"`
	VehicleId     int           `gorm:"index;not null" json:"vehicleId"`
	Status        JobCardStatus `gorm:"type:varchar(10);default:Open" json:"status"`
	Complaint     string        `gorm:"type:text" json:"complaint"`
	Diagnosis     string        `gorm:"type:text" json:"diagnosis"`
	OdometerIn    int           `json:"odometerIn"`
	PromisedAt    *time.Time    `json:"promisedAt"`
	ClosedAt      *time.Time    `json:"closedAt"`
	CreatedBy     int           `json:"createdBy"`
	CreatedAt     time.Time     `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time     `gorm:"autoUpdateTime" json:"updatedAt"`

	Tasks []Task `gorm:"foreignKey:JobcardId" json:"tasks,omitempty"`
}

type NewJobCard struct {
	CustomerId int        `json:"customerId" binding:"required"`
	VehicleId  int        `json:"vehicleId" binding:"required"`
	Complaint  string     `json:"complaint"`
	Diagnosis  string     `json:"diagnosis"`
	OdometerIn int        `json:"odometerIn"`
	PromisedAt *time.Time `json:"promisedAt"`
}

// validate input for both create & update. (id = 0 for create)

func (input *NewJobCard) validate(ctx context.Context, garageId string, _ int) error {
	if err := utils.ValidateResourceId[Customer](ctx, garageId, input.CustomerId); err != nil {
		return errors.New("customer not found")
	}
	var vehicle *Vehicle
	vehicle, err := utils.FetchModel[Vehicle](ctx, garageId, input.VehicleId)
	if err != nil {
		return errors.New("vehicle not found")
	}
	if vehicle.CustomerId != input.CustomerId {
		return errors.New("vehicle does not belong to customer")
	}
	return nil
}

func CreateJobCard(ctx context.Context, input *NewJobCard) (*JobCard, error) {

	garageId, ok := utils.GetGarageIdFromContext(ctx)
	if !ok || garageId == "" {
		return nil, errors.New("garage id is required")
	}
	userId, _ := utils.GetUserIdFromContext(ctx)

	if err := input.validate(ctx, garageId, 0); err != nil {
		return nil, err
	}

	var jobCard JobCard
	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		number, err := NextDocumentNumber(tx, garageId, DocTypeJobCard)
		if err != nil {
			return err
		}
		jobCard = JobCard{
			GarageId:      garageId,
			JobCardNumber: number,
			CustomerId:    input.CustomerId,
			VehicleId:     input.VehicleId,
			Status:        JobCardStatusOpen,
			Complaint:     input.Complaint,
			Diagnosis:     input.Diagnosis,
			OdometerIn:    input.OdometerIn,
			PromisedAt:    input.PromisedAt,
			CreatedBy:     userId,
		}
		if err := tx.Create(&jobCard).Error; err != nil {
			return err
		}
		estimate := Estimate{
			GarageId:  garageId,
			JobcardId: jobCard.ID,
		}
		return tx.Create(&estimate).Error
	})
	if err != nil {
		return nil, err
	}
	return &jobCard, nil
}

func UpdateJobCard(ctx context.Context, id int, input *NewJobCard) (*JobCard, error) {

	garageId, ok := utils.GetGarageIdFromContext(ctx)
	if !ok || garageId == "" {
		return nil, errors.New("garage id is required")
	}

	jobCard, err := utils.FetchModel[JobCard](ctx, garageId, id)
	if err != nil {
		return nil, err
	}
	if jobCard.Status == JobCardStatusClosed {
		return nil, errors.New("cannot update job card that is already closed")
	}

	if err := input.validate(ctx, garageId, id); err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(jobCard).Updates(map[string]interface{}{
		"CustomerId": input.CustomerId,
		"VehicleId":  input.VehicleId,
		"Complaint":  input.Complaint,
		"Diagnosis":  input.Diagnosis,
		"OdometerIn": input.OdometerIn,
		"PromisedAt": input.PromisedAt,
	}).Error
	if err != nil {
		return nil, err
	}
	return jobCard, nil
}

// CloseJobCard is only legal once no task is still ACTIVE (DRAFT/APPROVED/IN_PROGRESS).
func CloseJobCard(ctx context.Context, id int) (*JobCard, error) {

	garageId, ok := utils.GetGarageIdFromContext(ctx)
	if !ok || garageId == "" {
		return nil, errors.New("garage id is required")
	}

	jobCard, err := utils.FetchModel[JobCard](ctx, garageId, id)
	if err != nil {
		return nil, err
	}
	if jobCard.Status == JobCardStatusClosed {
		return nil, errors.New("job card is already closed")
	}

	activeCount, err := utils.ResourceCountWhere[Task](ctx, garageId,
		"jobcard_id = ? AND task_status IN ? AND deleted_at IS NULL",
		id, []TaskStatus{TaskStatusDraft, TaskStatusApproved, TaskStatusInProgress})
	if err != nil {
		return nil, err
	}
	if activeCount > 0 {
		return nil, errors.New("job card has unfinished tasks")
	}

	now := time.Now().UTC()
	db := config.GetDB()
	err = db.WithContext(ctx).Model(jobCard).Updates(map[string]interface{}{
		"Status":   JobCardStatusClosed,
		"ClosedAt": &now,
	}).Error
	if err != nil {
		return nil, err
	}
	return jobCard, nil
}

func GetJobCard(ctx context.Context, id int) (*JobCard, error) {
	garageId, ok := utils.GetGarageIdFromContext(ctx)
	if !ok || garageId == "" {
		return nil, errors.New("garage id is required")
	}
	return utils.FetchModel[JobCard](ctx, garageId, id, "Tasks")
}

func GetJobCards(ctx context.Context, customerId *int, status *JobCardStatus) ([]*JobCard, error) {
	garageId, ok := utils.GetGarageIdFromContext(ctx)
	if !ok || garageId == "" {
		return nil, errors.New("garage id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("garage_id = ?", garageId)
	if customerId != nil && *customerId != 0 {
		dbCtx = dbCtx.Where("customer_id = ?", *customerId)
	}
	if status != nil && *status != "" {
		dbCtx = dbCtx.Where("status = ?", *status)
	}
	var jobCards []*JobCard
	if err := dbCtx.Order("id DESC").Find(&jobCards).Error; err != nil {
		return nil, err
	}
	return jobCards, nil
}
