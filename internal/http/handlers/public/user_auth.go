package public

import (
	"errors"
	"strings"

	"github.com/altan-shop/internal/constants"
	"github.com/altan-shop/internal/http/handlers/shared"
	"github.com/altan-shop/internal/http/response"
	"github.com/altan-shop/internal/models"
	"github.com/altan-shop/internal/service"

	"github.com/gin-gonic/gin"
)

// UserRegisterRequest 注册请求
type UserRegisterRequest struct {
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"display_name"`
}

// UserLoginRequest 登录请求
type UserLoginRequest struct {
	Email          string                       `json:"email" binding:"required"`
	Password       string                       `json:"password" binding:"required"`
	CaptchaPayload shared.CaptchaPayloadRequest `json:"captcha_payload"`
}

// RefreshTokenRequest 刷新令牌请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// GoogleLoginRequest Google 登录请求，id_token 与 code 二选一
type GoogleLoginRequest struct {
	IDToken     string `json:"id_token"`
	Code        string `json:"code"`
	RedirectURL string `json:"redirect_url"`
}

func sessionMeta(c *gin.Context) service.SessionMeta {
	return service.SessionMeta{
		UserAgent: c.Request.UserAgent(),
		ClientIP:  c.ClientIP(),
	}
}

func respondSession(c *gin.Context, user *models.User, tokens *service.TokenPair) {
	response.Success(c, gin.H{
		"user":               user,
		"token":              tokens.AccessToken,
		"expires_at":         tokens.AccessExpiresAt,
		"refresh_token":      tokens.RefreshToken,
		"refresh_expires_at": tokens.RefreshExpiresAt,
		"token_type":         tokens.TokenType,
	})
}

func respondUserAuthError(c *gin.Context, err error, fallbackKey string) {
	if errors.Is(err, service.ErrWeakPassword) {
		shared.RespondWeakPassword(c, err)
		return
	}
	shared.RespondMapped(c, err, userAuthErrorRules, response.CodeInternal, fallbackKey)
}

// UserRegister 邮箱注册并直接登录
func (h *Handler) UserRegister(c *gin.Context) {
	var req UserRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	user, tokens, err := h.UserAuthService.Register(req.Email, req.Password, strings.TrimSpace(req.DisplayName), sessionMeta(c))
	if err != nil {
		respondUserAuthError(c, err, "error.register_failed")
		return
	}
	respondSession(c, user, tokens)
}

// UserLogin 邮箱密码登录
func (h *Handler) UserLogin(c *gin.Context) {
	var req UserLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if !shared.VerifyCaptcha(c, h.CaptchaService, constants.CaptchaSceneUserLogin, req.CaptchaPayload) {
		return
	}
	user, tokens, err := h.UserAuthService.Login(req.Email, req.Password, sessionMeta(c))
	if err != nil {
		respondUserAuthError(c, err, "error.login_failed")
		return
	}
	respondSession(c, user, tokens)
}

// UserGoogleLogin Google 登录
func (h *Handler) UserGoogleLogin(c *gin.Context) {
	var req GoogleLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if strings.TrimSpace(req.IDToken) == "" && strings.TrimSpace(req.Code) == "" {
		respondError(c, response.CodeBadRequest, "error.google_token_required", nil)
		return
	}
	user, tokens, err := h.UserAuthService.LoginWithGoogle(c.Request.Context(), service.GoogleLoginInput{
		IDToken:     strings.TrimSpace(req.IDToken),
		Code:        strings.TrimSpace(req.Code),
		RedirectURL: strings.TrimSpace(req.RedirectURL),
	}, sessionMeta(c))
	if err != nil {
		respondUserAuthError(c, err, "error.login_failed")
		return
	}
	respondSession(c, user, tokens)
}

// UserRefreshToken 轮换刷新令牌
func (h *Handler) UserRefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	user, tokens, err := h.UserAuthService.Refresh(strings.TrimSpace(req.RefreshToken), sessionMeta(c))
	if err != nil {
		respondUserAuthError(c, err, "error.refresh_token_invalid")
		return
	}
	respondSession(c, user, tokens)
}

// UserLogout 注销，吊销所有刷新令牌并使访问令牌失效
func (h *Handler) UserLogout(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	if err := h.UserAuthService.Logout(uid); err != nil {
		respondUserAuthError(c, err, "error.logout_failed")
		return
	}
	response.Success(c, gin.H{"logged_out": true})
}

// GetCurrentUser 当前登录用户
func (h *Handler) GetCurrentUser(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	user, err := h.UserAuthService.Me(uid)
	if err != nil {
		respondUserAuthError(c, err, "error.user_fetch_failed")
		return
	}
	response.Success(c, user)
}
