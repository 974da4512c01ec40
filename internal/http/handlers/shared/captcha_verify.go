package shared

import (
	"errors"

	"github.com/altan-shop/internal/http/response"
	"github.com/altan-shop/internal/i18n"
	"github.com/altan-shop/internal/service"

	"github.com/gin-gonic/gin"
)

// VerifyCaptcha 按场景校验验证码，失败时已写入响应并返回 false
func VerifyCaptcha(c *gin.Context, svc *service.CaptchaService, scene string, payload CaptchaPayloadRequest) bool {
	if svc == nil || !svc.IsSceneEnabled(scene) {
		return true
	}
	err := svc.Verify(scene, payload.ToServicePayload())
	if err == nil {
		return true
	}
	switch {
	case errors.Is(err, service.ErrCaptchaRequired):
		RespondError(c, response.CodeBadRequest, "error.captcha_required", nil)
	case errors.Is(err, service.ErrCaptchaInvalid):
		RespondError(c, response.CodeBadRequest, "error.captcha_invalid", nil)
	case errors.Is(err, service.ErrCaptchaConfigInvalid):
		RespondError(c, response.CodeInternal, "error.captcha_config_invalid", err)
	default:
		RespondError(c, response.CodeInternal, "error.captcha_verify_failed", err)
	}
	return false
}

// RespondWeakPassword 将密码策略错误翻译为带参数的提示
func RespondWeakPassword(c *gin.Context, err error) {
	locale := i18n.ResolveLocale(c)
	var perr interface {
		Key() string
		Args() []interface{}
	}
	if errors.As(err, &perr) {
		RespondErrorWithMsg(c, response.CodeBadRequest, i18n.Sprintf(locale, perr.Key(), perr.Args()...), nil)
		return
	}
	RespondError(c, response.CodeBadRequest, "error.password_weak", nil)
}
