package admin

import (
	"strconv"
	"strings"
	"time"

	"github.com/altan-shop/internal/http/handlers/shared"
	"github.com/altan-shop/internal/http/response"
	"github.com/altan-shop/internal/models"
	"github.com/altan-shop/internal/repository"
	"github.com/altan-shop/internal/service"

	"github.com/gin-gonic/gin"
)

var couponErrorRules = []shared.ErrorRule{
	{Target: service.ErrCouponNotFound, Code: response.CodeNotFound, Key: "error.coupon_not_found"},
	{Target: service.ErrCouponInvalid, Code: response.CodeBadRequest, Key: "error.coupon_invalid"},
	{Target: service.ErrCouponCodeExists, Code: response.CodeBadRequest, Key: "error.coupon_code_exists"},
	{Target: service.ErrCouponPercentage, Code: response.CodeBadRequest, Key: "error.coupon_percentage_invalid"},
	{Target: service.ErrCouponCodeExhausted, Code: response.CodeInternal, Key: "error.coupon_code_exhausted"},
	{Target: service.ErrInvalidInput, Code: response.CodeBadRequest, Key: "error.bad_request"},
}

// CouponRequest 创建/更新优惠券
type CouponRequest struct {
	Code               string       `json:"code"`
	Description        string       `json:"description"`
	DiscountPercentage models.Money `json:"discount_percentage"`
	IsManual           bool         `json:"is_manual"`
	IsActive           *bool        `json:"is_active"`
	ExpiresAt          *time.Time   `json:"expires_at"`
}

func (r CouponRequest) toInput() service.CouponInput {
	return service.CouponInput{
		Code:               r.Code,
		Description:        r.Description,
		DiscountPercentage: r.DiscountPercentage,
		IsManual:           r.IsManual,
		IsActive:           r.IsActive,
		ExpiresAt:          r.ExpiresAt,
	}
}

// GenerateCouponsRequest 批量生成系统券
type GenerateCouponsRequest struct {
	Count              int          `json:"count" binding:"required,min=1"`
	Description        string       `json:"description"`
	DiscountPercentage models.Money `json:"discount_percentage"`
	ExpiresAt          *time.Time   `json:"expires_at"`
}

// GetAdminCoupons 优惠券列表
func (h *Handler) GetAdminCoupons(c *gin.Context) {
	page, pageSize := shared.ParsePage(c)
	coupons, total, err := h.CouponAdminService.List(repository.CouponListFilter{
		Page:     page,
		PageSize: pageSize,
		Code:     strings.TrimSpace(c.Query("code")),
		IsActive: shared.ParseOptionalBool(c, "is_active"),
		IsManual: shared.ParseOptionalBool(c, "is_manual"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.coupon_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, coupons, response.BuildPagination(page, pageSize, total))
}

// CreateCoupon 创建优惠券
func (h *Handler) CreateCoupon(c *gin.Context) {
	var req CouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	coupon, err := h.CouponAdminService.Create(req.toInput())
	if err != nil {
		shared.RespondMapped(c, err, couponErrorRules, response.CodeInternal, "error.coupon_save_failed")
		return
	}
	response.Success(c, coupon)
}

// GenerateCoupons 批量生成系统券
func (h *Handler) GenerateCoupons(c *gin.Context) {
	var req GenerateCouponsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	coupons, err := h.CouponAdminService.Generate(service.GenerateCouponsInput{
		Count:              req.Count,
		Description:        req.Description,
		DiscountPercentage: req.DiscountPercentage,
		ExpiresAt:          req.ExpiresAt,
	})
	if err != nil {
		shared.RespondMapped(c, err, couponErrorRules, response.CodeInternal, "error.coupon_save_failed")
		return
	}
	requestLog(c).Infow("admin_coupons_generated", "operator_admin_id", currentAdminID(c), "count", len(coupons))
	response.Success(c, coupons)
}

// UpdateCoupon 更新优惠券
func (h *Handler) UpdateCoupon(c *gin.Context) {
	id, ok := shared.ParseUintParam(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	var req CouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	coupon, err := h.CouponAdminService.Update(id, req.toInput())
	if err != nil {
		shared.RespondMapped(c, err, couponErrorRules, response.CodeInternal, "error.coupon_save_failed")
		return
	}
	response.Success(c, coupon)
}

// DeleteCoupon 删除优惠券
func (h *Handler) DeleteCoupon(c *gin.Context) {
	id, ok := shared.ParseUintParam(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	if err := h.CouponAdminService.Delete(id); err != nil {
		shared.RespondMapped(c, err, couponErrorRules, response.CodeInternal, "error.coupon_delete_failed")
		return
	}
	response.Success(c, nil)
}

// GetCouponUsages 核销记录
func (h *Handler) GetCouponUsages(c *gin.Context) {
	page, pageSize := shared.ParsePage(c)
	var couponID uint
	if raw := strings.TrimSpace(c.Query("coupon_id")); raw != "" {
		value, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(c, response.CodeBadRequest, "error.bad_request", nil)
			return
		}
		couponID = uint(value)
	}
	usages, total, err := h.CouponAdminService.ListUsages(repository.CouponUsageListFilter{
		Page:     page,
		PageSize: pageSize,
		CouponID: couponID,
		UserID:   strings.TrimSpace(c.Query("user_id")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.coupon_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, usages, response.BuildPagination(page, pageSize, total))
}
