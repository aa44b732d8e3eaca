package middlewares

import (
	"net/http"
	"strings"

	"github.com/WRENCH-CLOUD/machnix-sub003/models"
	"github.com/WRENCH-CLOUD/machnix-sub003/utils"
	"github.com/gin-gonic/gin"
)

// AuthMiddleware is the stateless alternative to the token header: a Bearer
// JWT issued at login, for API clients that do not carry a redis-backed
// session. Requests without an Authorization header pass through.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.Request.Header.Get("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			c.Next()
			return
		}

		claims, err := utils.JwtValidate(strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		user, err := models.FindUserById(c.Request.Context(), claims.ID)
		if err != nil || user.IsActive == nil || !*user.IsActive {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		ctx := utils.SetUsernameInContext(c.Request.Context(), user.Username)
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
