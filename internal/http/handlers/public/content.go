package public

import (
	"strings"

	"github.com/altan-shop/internal/http/response"
	"github.com/altan-shop/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// ListActiveBankAccounts 收款银行账户
func (h *Handler) ListActiveBankAccounts(c *gin.Context) {
	rows, err := h.ContentService.ActiveBankAccounts(c.Request.Context())
	if err != nil {
		respondError(c, response.CodeInternal, "error.content_fetch_failed", err)
		return
	}
	response.Success(c, rows)
}

// ListBanners 轮播图，可按 position 过滤
func (h *Handler) ListBanners(c *gin.Context) {
	rows, err := h.ContentService.ActiveBanners(c.Request.Context(), c.Query("position"))
	if err != nil {
		respondError(c, response.CodeInternal, "error.content_fetch_failed", err)
		return
	}
	response.Success(c, rows)
}

// ListPartners 合作伙伴
func (h *Handler) ListPartners(c *gin.Context) {
	rows, err := h.ContentService.ActivePartners(c.Request.Context())
	if err != nil {
		respondError(c, response.CodeInternal, "error.content_fetch_failed", err)
		return
	}
	response.Success(c, rows)
}

// GetFooter 页脚
func (h *Handler) GetFooter(c *gin.Context) {
	footer, err := h.ContentService.ActiveFooter(c.Request.Context())
	if err != nil {
		respondError(c, response.CodeInternal, "error.content_fetch_failed", err)
		return
	}
	response.Success(c, footer)
}

// ListActiveGiftSettings 满额赠品；带 amount 时只返回已达门槛的
func (h *Handler) ListActiveGiftSettings(c *gin.Context) {
	var amount *models.Money
	if raw := strings.TrimSpace(c.Query("amount")); raw != "" {
		value, err := decimal.NewFromString(raw)
		if err != nil || value.IsNegative() {
			respondError(c, response.CodeBadRequest, "error.bad_request", nil)
			return
		}
		money := models.NewMoneyFromDecimal(value)
		amount = &money
	}
	rows, err := h.ContentService.ActiveGiftSettings(c.Request.Context(), amount)
	if err != nil {
		respondError(c, response.CodeInternal, "error.content_fetch_failed", err)
		return
	}
	response.Success(c, rows)
}
