package middleware

import (
	"context"
	"strings"
	"tp_portal_backend/internal/config"
	"tp_portal_backend/internal/model"
	"tp_portal_backend/internal/util"
	"tp_portal_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SessionValidator rejects tokens that verify but may no longer be used:
// signed out, or belonging to a suspended account.
type SessionValidator interface {
	ValidateSession(ctx context.Context, claims *util.Claims) error
}

func tokenFrom(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		return strings.TrimPrefix(header, "Bearer ")
	}
	// browsers cannot set headers on a WebSocket upgrade
	return c.Query("token")
}

func AuthMiddleware(cfg *config.Config, sessions SessionValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := tokenFrom(c)
		if tokenString == "" {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		claims, err := util.ParseJWT(tokenString, cfg.JWT.Secret)
		if err != nil {
			logger.Log.Debug("JWT rejected", zap.Error(err))
			util.Unauthorized(c)
			c.Abort()
			return
		}

		if sessions != nil {
			if err := sessions.ValidateSession(c.Request.Context(), claims); err != nil {
				logger.Log.Debug("Session rejected", zap.Uint("userId", claims.UserID), zap.Error(err))
				util.HandleError(c, err)
				c.Abort()
				return
			}
		}

		c.Set("user", claims)
		c.Next()
	}
}

// RoleMiddleware lets through the listed roles. Admins pass every role check.
func RoleMiddleware(roles ...model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := util.GetUserFromContext(c)
		if user == nil {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		hasRole := user.Role == model.Admin
		for _, role := range roles {
			if user.Role == role {
				hasRole = true
				break
			}
		}

		if !hasRole {
			util.Forbidden(c)
			c.Abort()
			return
		}
		c.Next()
	}
}
