package middlewares

import (
	"net/http"

	"github.com/WRENCH-CLOUD/machnix-sub003/config"
	"github.com/WRENCH-CLOUD/machnix-sub003/models"
	"github.com/WRENCH-CLOUD/machnix-sub003/utils"
	"github.com/gin-gonic/gin"
)

// SessionMiddleware resolves the token header into the session user and
// stamps the tenant onto the request context. Requests without a token pass
// through; route groups that need auth add RequireSession behind this.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Request.Header.Get("token")
		if token == "" {
			c.Next()
			return
		}
		username, exists, err := config.GetRedisValue("Token:" + token)
		if err != nil || !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		user, err := models.FindUserByUsername(c.Request.Context(), username)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		ctx := utils.SetTokenInContext(c.Request.Context(), token)
		ctx = utils.SetUsernameInContext(ctx, user.Username)
		ctx = utils.SetUserIdInContext(ctx, user.ID)
		ctx = utils.SetUserNameInContext(ctx, user.Name)
		ctx = utils.SetGarageIdInContext(ctx, user.GarageId)
		if user.Role == models.UserRoleAdmin {
			ctx = utils.SetIsAdminInContext(ctx, true)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireSession rejects requests that did not establish a session.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		garageId, ok := utils.GetGarageIdFromContext(c.Request.Context())
		isAdmin, _ := utils.GetIsAdminFromContext(c.Request.Context())
		if (!ok || garageId == "") && !isAdmin {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAdmin guards the platform admin surface.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		isAdmin, _ := utils.GetIsAdminFromContext(c.Request.Context())
		if !isAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			c.Abort()
			return
		}
		c.Next()
	}
}
