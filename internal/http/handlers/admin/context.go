package admin

import (
	handlershared "github.com/altan-shop/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func getAdminID(c *gin.Context) (uint, bool) {
	return handlershared.GetContextUintWithKeys(c, "admin_id", "error.admin_id_invalid", "error.admin_id_type_invalid")
}

func currentAdminID(c *gin.Context) uint {
	if value, ok := c.Get("admin_id"); ok {
		if id, ok := value.(uint); ok {
			return id
		}
	}
	return 0
}

func currentUsername(c *gin.Context) string {
	if value, ok := c.Get("admin_username"); ok {
		if name, ok := value.(string); ok {
			return name
		}
	}
	return ""
}
