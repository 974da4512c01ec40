package public

import (
	"github.com/altan-shop/internal/http/handlers/shared"
	"github.com/altan-shop/internal/http/response"
	"github.com/altan-shop/internal/models"

	"github.com/gin-gonic/gin"
)

// ValidateCouponRequest 校验优惠码请求
type ValidateCouponRequest struct {
	Code     string       `json:"code" binding:"required"`
	Subtotal models.Money `json:"subtotal"`
}

// ValidateCoupon 校验优惠码并返回折扣金额
func (h *Handler) ValidateCoupon(c *gin.Context) {
	var req ValidateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if req.Subtotal.IsNegative() {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	result, err := h.CouponService.Validate(req.Code, req.Subtotal, optionalUserID(c))
	if err != nil {
		shared.RespondMapped(c, err, couponErrorRules, response.CodeInternal, "error.coupon_validate_failed")
		return
	}
	response.Success(c, result)
}
