package main

import (
	"errors"
	"net/http"

	"github.com/WRENCH-CLOUD/machnix-sub003/middlewares"
	"github.com/WRENCH-CLOUD/machnix-sub003/models"
	"github.com/WRENCH-CLOUD/machnix-sub003/utils"
	"github.com/gin-gonic/gin"
)

// Platform admin surface: garage onboarding and subscription management.
func registerAdminRoutes(r *gin.Engine) {
	admin := r.Group("/api/admin", middlewares.RequireSession(), middlewares.RequireAdmin())
	{
		admin.POST("/garages", createGarageHandler)
		admin.GET("/garages", listGaragesHandler)
		admin.GET("/garages/:garageId", getGarageHandler)
		admin.PUT("/garages/:garageId/subscription", updateSubscriptionHandler)
	}
}

func createGarageHandler(c *gin.Context) {
	var input models.NewGarage
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	garage, err := models.CreateGarage(c.Request.Context(), &input)
	if err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusCreated, garage)
}

func listGaragesHandler(c *gin.Context) {
	garages, err := models.GetGarages(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, garages)
}

func getGarageHandler(c *gin.Context) {
	garage, err := models.GetGarage(c.Request.Context(), c.Param("garageId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, garage)
}

func updateSubscriptionHandler(c *gin.Context) {
	var input models.NewSubscription
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	sub, err := models.UpdateSubscription(c.Request.Context(), c.Param("garageId"), &input)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			respondError(c, err)
			return
		}
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}
