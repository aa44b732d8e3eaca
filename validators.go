package main

import (
	"github.com/WRENCH-CLOUD/machnix-sub003/models"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Custom binding validations for enum-valued request fields. Registered at
// startup so gin's ShouldBindJSON rejects bad enum strings before any handler
// logic runs.
func init() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("actiontype", func(fl validator.FieldLevel) bool {
		return models.TaskActionType(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("taskstatus", func(fl validator.FieldLevel) bool {
		return models.TaskStatus(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("subscriptionstatus", func(fl validator.FieldLevel) bool {
		_, err := models.ParseSubscriptionStatus(fl.Field().String())
		return err == nil
	})
}
