package admin

import (
	"strconv"
	"strings"
	"time"

	"github.com/altan-shop/internal/constants"
	"github.com/altan-shop/internal/http/handlers/shared"
	"github.com/altan-shop/internal/http/response"
	"github.com/altan-shop/internal/repository"
	"github.com/altan-shop/internal/service"

	"github.com/gin-gonic/gin"
)

var orderErrorRules = []shared.ErrorRule{
	{Target: service.ErrOrderNotFound, Code: response.CodeNotFound, Key: "error.order_not_found"},
	{Target: service.ErrOrderStatusInvalid, Code: response.CodeBadRequest, Key: "error.order_status_invalid"},
	{Target: service.ErrOrderStatusTransition, Code: response.CodeBadRequest, Key: "error.order_status_transition"},
	{Target: service.ErrPaymentStatusInvalid, Code: response.CodeBadRequest, Key: "error.payment_status_invalid"},
	{Target: service.ErrPaymentStatusTransition, Code: response.CodeBadRequest, Key: "error.payment_status_transition"},
	{Target: service.ErrPaymentStatusChanged, Code: response.CodeBadRequest, Key: "error.payment_status_changed"},
}

// UpdateOrderStatusRequest 更新履约状态
type UpdateOrderStatusRequest struct {
	OrderStatus *constants.OrderStatus `json:"order_status" binding:"required,order_status"`
}

// UpdatePaymentStatusRequest 更新支付状态
type UpdatePaymentStatusRequest struct {
	PaymentStatus *constants.PaymentStatus `json:"payment_status" binding:"required,payment_status"`
}

func parseOptionalInt(c *gin.Context, name string) *int {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &value
}

func parseOptionalTime(c *gin.Context, name string) *time.Time {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if value, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return &value
		}
	}
	return nil
}

// GetAdminOrders 后台订单列表
func (h *Handler) GetAdminOrders(c *gin.Context) {
	page, pageSize := shared.ParsePage(c)
	filter := repository.OrderListFilter{
		Page:          page,
		PageSize:      pageSize,
		UserID:        strings.TrimSpace(c.Query("user_id")),
		OrderNumber:   strings.TrimSpace(c.Query("order_number")),
		PhoneNumber:   strings.TrimSpace(c.Query("phone")),
		Keyword:       strings.TrimSpace(c.Query("keyword")),
		PaymentStatus: parseOptionalInt(c, "payment_status"),
		OrderStatus:   parseOptionalInt(c, "order_status"),
		PaymentMethod: parseOptionalInt(c, "payment_method"),
		CreatedFrom:   parseOptionalTime(c, "created_from"),
		CreatedTo:     parseOptionalTime(c, "created_to"),
	}
	orders, total, err := h.OrderService.ListForAdmin(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.order_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, orders, response.BuildPagination(page, pageSize, total))
}

// GetAdminOrder 后台订单详情
func (h *Handler) GetAdminOrder(c *gin.Context) {
	id, ok := shared.ParseUintParam(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.order_id_invalid", nil)
		return
	}
	order, err := h.OrderService.GetByID(id, "")
	if err != nil {
		shared.RespondMapped(c, err, orderErrorRules, response.CodeInternal, "error.order_fetch_failed")
		return
	}
	response.Success(c, gin.H{
		"order":            order,
		"payment_deadline": h.OrderService.PaymentDeadline(order),
	})
}

// UpdateOrderStatus 更新履约状态
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	id, ok := shared.ParseUintParam(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.order_id_invalid", nil)
		return
	}
	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.order_status_invalid", err)
		return
	}
	order, err := h.OrderService.UpdateStatus(id, *req.OrderStatus)
	if err != nil {
		shared.RespondMapped(c, err, orderErrorRules, response.CodeInternal, "error.order_update_failed")
		return
	}
	requestLog(c).Infow("admin_order_status_updated",
		"operator_admin_id", currentAdminID(c),
		"order_id", id,
		"order_status", order.OrderStatus.String(),
	)
	response.Success(c, order)
}

// UpdateOrderPayment 更新支付状态（人工确认银行转账、退款）
func (h *Handler) UpdateOrderPayment(c *gin.Context) {
	id, ok := shared.ParseUintParam(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.order_id_invalid", nil)
		return
	}
	var req UpdatePaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.payment_status_invalid", err)
		return
	}
	order, err := h.OrderService.UpdatePaymentStatus(id, *req.PaymentStatus)
	if err != nil {
		shared.RespondMapped(c, err, orderErrorRules, response.CodeInternal, "error.order_update_failed")
		return
	}
	requestLog(c).Infow("admin_order_payment_updated",
		"operator_admin_id", currentAdminID(c),
		"order_id", id,
		"payment_status", order.PaymentStatus.String(),
	)
	response.Success(c, order)
}

// DeleteAdminOrder 删除订单
func (h *Handler) DeleteAdminOrder(c *gin.Context) {
	id, ok := shared.ParseUintParam(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.order_id_invalid", nil)
		return
	}
	if err := h.OrderService.Delete(id); err != nil {
		shared.RespondMapped(c, err, orderErrorRules, response.CodeInternal, "error.order_delete_failed")
		return
	}
	requestLog(c).Infow("admin_order_deleted", "operator_admin_id", currentAdminID(c), "order_id", id)
	response.Success(c, nil)
}
