package public

import (
	"io"
	"strings"

	"github.com/altan-shop/internal/http/handlers/shared"
	"github.com/altan-shop/internal/http/response"
	"github.com/altan-shop/internal/models"
	"github.com/altan-shop/internal/payment/qpay"
	"github.com/altan-shop/internal/service"

	"github.com/gin-gonic/gin"
)

const maxWebhookBodyBytes = 64 << 10

// CreateInvoiceRequest 创建 QPay 发票请求
type CreateInvoiceRequest struct {
	OrderID     uint          `json:"order_id" binding:"required"`
	Amount      *models.Money `json:"amount"`
	Description string        `json:"description"`
}

// CreateQPayInvoice 为订单创建 QPay 发票，已有发票时直接复用；失败时 HTTP 状态码与业务码一致
func (h *Handler) CreateQPayInvoice(c *gin.Context) {
	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondErrorStatus(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	result, err := h.PaymentService.CreateInvoice(c.Request.Context(), service.CreateInvoiceInput{
		OrderID:     req.OrderID,
		Amount:      req.Amount,
		Description: strings.TrimSpace(req.Description),
	})
	if err != nil {
		shared.RespondMappedStatus(c, err, paymentErrorRules, response.CodeInternal, "error.payment_create_failed")
		return
	}
	response.Success(c, result)
}

// CheckQPayPayment 查询发票支付状态
func (h *Handler) CheckQPayPayment(c *gin.Context) {
	invoiceID := strings.TrimSpace(c.Param("invoiceId"))
	if invoiceID == "" {
		shared.RespondErrorStatus(c, response.CodeBadRequest, "error.invoice_id_invalid", nil)
		return
	}
	result, err := h.PaymentService.CheckStatus(c.Request.Context(), invoiceID)
	if err != nil {
		shared.RespondMappedStatus(c, err, paymentErrorRules, response.CodeInternal, "error.payment_check_failed")
		return
	}
	response.Success(c, result)
}

// QPayWebhook QPay 异步回调，无论处理结果如何都返回 200
func (h *Handler) QPayWebhook(c *gin.Context) {
	log := shared.RequestLog(c)
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		log.Warnw("qpay_webhook_read_failed", "error", err)
		response.Success(c, gin.H{"received": false})
		return
	}
	payload, err := qpay.ParseWebhook(body, c.Request.URL.Query())
	if err != nil {
		log.Warnw("qpay_webhook_invalid", "error", err, "body", string(body))
		response.Success(c, gin.H{"received": false})
		return
	}
	result, err := h.PaymentService.HandleWebhook(c.Request.Context(), payload)
	if err != nil {
		log.Errorw("qpay_webhook_handle_failed",
			"invoice_id", payload.ObjectID,
			"payment_status", payload.PaymentStatus,
			"error", err,
		)
		response.Success(c, gin.H{"received": true})
		return
	}
	log.Infow("qpay_webhook_handled", "invoice_id", payload.ObjectID, "payment_status", payload.PaymentStatus)
	response.Success(c, gin.H{"received": true, "result": result})
}
