package middlewares

import (
	"net/http"
	"time"

	"github.com/WRENCH-CLOUD/machnix-sub003/config"
	"github.com/WRENCH-CLOUD/machnix-sub003/models"
	"github.com/WRENCH-CLOUD/machnix-sub003/utils"
	"github.com/gin-gonic/gin"
)

// SubscriptionMiddleware blocks write verbs for garages whose subscription
// has lapsed. Reads stay open so a lapsed garage can still look at its data.
func SubscriptionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !config.SubscriptionGateEnabled() {
			c.Next()
			return
		}
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}
		if isAdmin, _ := utils.GetIsAdminFromContext(c.Request.Context()); isAdmin {
			c.Next()
			return
		}

		garageId, ok := utils.GetGarageIdFromContext(c.Request.Context())
		if !ok || garageId == "" {
			c.Next()
			return
		}

		sub, err := models.GetSubscription(c.Request.Context(), garageId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "PERSISTENCE_FAILURE"})
			c.Abort()
			return
		}
		if !sub.IsWritable(time.Now()) {
			c.JSON(http.StatusPaymentRequired, gin.H{
				"error":   "SUBSCRIPTION_REQUIRED",
				"message": "subscription is not active",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
