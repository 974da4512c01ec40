package shared

import (
	"github.com/altan-shop/internal/http/response"
	"github.com/altan-shop/internal/i18n"
	"github.com/altan-shop/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError 返回国际化错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, key string, err error) {
	appErr := localizedError(c, code, key, err)
	response.Error(c, appErr.Code, appErr.Message)
}

// RespondErrorStatus 与 RespondError 相同，但 HTTP 状态码跟随业务码
func RespondErrorStatus(c *gin.Context, code int, key string, err error) {
	appErr := localizedError(c, code, key, err)
	response.ErrorWithStatus(c, appErr.Code, appErr.Message)
}

func localizedError(c *gin.Context, code int, key string, err error) *response.AppError {
	locale := i18n.ResolveLocale(c)
	appErr := response.WrapError(code, i18n.T(locale, key), err)
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"message", appErr.Message,
			"error", err,
		)
	}
	return appErr
}

// RespondErrorWithMsg 返回自定义消息错误响应，并在有原始错误时记录日志。
func RespondErrorWithMsg(c *gin.Context, code int, msg string, err error) {
	appErr := response.WrapError(code, msg, err)
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"message", appErr.Message,
			"error", err,
		)
	}
	response.Error(c, appErr.Code, appErr.Message)
}
