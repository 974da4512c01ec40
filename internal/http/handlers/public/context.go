package public

import (
	"strconv"

	handlershared "github.com/altan-shop/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func getUserID(c *gin.Context) (uint, bool) {
	return handlershared.GetContextUintWithKeys(c, "user_id", "error.user_id_invalid", "error.user_id_type_invalid")
}

// optionalUserID 可选登录接口读取用户 ID，游客返回空串
func optionalUserID(c *gin.Context) string {
	raw, ok := c.Get("user_id")
	if !ok {
		return ""
	}
	if id, ok := raw.(uint); ok && id > 0 {
		return strconv.FormatUint(uint64(id), 10)
	}
	return ""
}

func userIDString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
