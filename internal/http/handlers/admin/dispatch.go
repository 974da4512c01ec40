package admin

import (
	"strconv"
	"strings"

	"github.com/altan-shop/internal/http/handlers/shared"
	"github.com/altan-shop/internal/http/response"
	"github.com/altan-shop/internal/repository"
	"github.com/altan-shop/internal/service"

	"github.com/gin-gonic/gin"
)

var dispatchErrorRules = []shared.ErrorRule{
	{Target: service.ErrDispatchNotFound, Code: response.CodeNotFound, Key: "error.dispatch_not_found"},
	{Target: service.ErrDispatchNotRetryable, Code: response.CodeBadRequest, Key: "error.dispatch_not_retryable"},
	{Target: service.ErrCourierNotConfigured, Code: response.CodeBadRequest, Key: "error.courier_not_configured"},
	{Target: service.ErrOrderNotFound, Code: response.CodeNotFound, Key: "error.order_not_found"},
}

// GetAdminDispatches 派单记录
func (h *Handler) GetAdminDispatches(c *gin.Context) {
	page, pageSize := shared.ParsePage(c)
	var orderID uint
	if raw := strings.TrimSpace(c.Query("order_id")); raw != "" {
		value, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(c, response.CodeBadRequest, "error.bad_request", nil)
			return
		}
		orderID = uint(value)
	}
	rows, total, err := h.DeliveryService.List(repository.DispatchListFilter{
		Page:     page,
		PageSize: pageSize,
		OrderID:  orderID,
		Status:   strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.dispatch_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}

// RetryDispatch 重新派单（仅失败记录）
func (h *Handler) RetryDispatch(c *gin.Context) {
	id, ok := shared.ParseUintParam(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	record, err := h.DeliveryService.Retry(c.Request.Context(), id)
	if err != nil {
		shared.RespondMapped(c, err, dispatchErrorRules, response.CodeInternal, "error.dispatch_retry_failed")
		return
	}
	status := ""
	if record != nil {
		status = record.Status
	}
	requestLog(c).Infow("admin_dispatch_retried",
		"operator_admin_id", currentAdminID(c),
		"dispatch_id", id,
		"status", status,
	)
	response.Success(c, record)
}
