package public

import (
	"strings"

	"github.com/altan-shop/internal/constants"
	"github.com/altan-shop/internal/http/handlers/shared"
	"github.com/altan-shop/internal/http/response"
	"github.com/altan-shop/internal/models"
	"github.com/altan-shop/internal/repository"
	"github.com/altan-shop/internal/service"

	"github.com/gin-gonic/gin"
)

// OrderItemRequest 订单项快照
type OrderItemRequest struct {
	ProductID string       `json:"product_id" binding:"required"`
	Name      string       `json:"name" binding:"required"`
	NameMN    string       `json:"name_mn"`
	SKU       string       `json:"sku"`
	Image     string       `json:"image"`
	Price     models.Money `json:"price"`
	Quantity  int          `json:"quantity" binding:"required,min=1"`
}

// CreateOrderRequest 创建订单请求
type CreateOrderRequest struct {
	CustomerName    string                       `json:"customer_name" binding:"required"`
	PhoneNumber     string                       `json:"phone_number" binding:"required,mn_phone"`
	Email           string                       `json:"email" binding:"omitempty,email"`
	ShippingAddress string                       `json:"shipping_address"`
	City            string                       `json:"city"`
	District        string                       `json:"district"`
	Khoroo          string                       `json:"khoroo"`
	AddressLine     string                       `json:"address_line"`
	IsPickup        bool                         `json:"is_pickup"`
	Notes           string                       `json:"notes"`
	Items           []OrderItemRequest           `json:"items" binding:"required,min=1,dive"`
	CouponCode      string                       `json:"coupon_code"`
	PaymentMethod   constants.PaymentMethod      `json:"payment_method" binding:"payment_method"`
	GrandTotal      *models.Money                `json:"grand_total"`
	CaptchaPayload  shared.CaptchaPayloadRequest `json:"captcha_payload"`
}

// QuoteOrderRequest 报价请求
type QuoteOrderRequest struct {
	Items      []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
	CouponCode string             `json:"coupon_code"`
	IsPickup   bool               `json:"is_pickup"`
}

func toServiceItems(items []OrderItemRequest) []service.CreateOrderItem {
	result := make([]service.CreateOrderItem, 0, len(items))
	for _, item := range items {
		result = append(result, service.CreateOrderItem{
			ProductID: strings.TrimSpace(item.ProductID),
			Name:      strings.TrimSpace(item.Name),
			NameMN:    strings.TrimSpace(item.NameMN),
			SKU:       strings.TrimSpace(item.SKU),
			Image:     strings.TrimSpace(item.Image),
			Price:     item.Price,
			Quantity:  item.Quantity,
		})
	}
	return result
}

// QuoteOrder 服务端计算订单金额
func (h *Handler) QuoteOrder(c *gin.Context) {
	var req QuoteOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	quote, err := h.OrderService.Quote(service.QuoteInput{
		UserID:     optionalUserID(c),
		Items:      toServiceItems(req.Items),
		CouponCode: req.CouponCode,
		IsPickup:   req.IsPickup,
	})
	if err != nil {
		shared.RespondMapped(c, err, shared.ConcatRules(orderInputErrorRules, couponErrorRules), response.CodeInternal, "error.order_quote_failed")
		return
	}
	response.Success(c, quote)
}

// CreateOrder 创建订单，游客需通过验证码场景校验
func (h *Handler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	userID := optionalUserID(c)
	if userID == "" && !shared.VerifyCaptcha(c, h.CaptchaService, constants.CaptchaSceneGuestCreateOrder, req.CaptchaPayload) {
		return
	}

	order, err := h.OrderService.Create(service.CreateOrderInput{
		UserID:          userID,
		CustomerName:    req.CustomerName,
		PhoneNumber:     req.PhoneNumber,
		Email:           req.Email,
		ShippingAddress: req.ShippingAddress,
		City:            req.City,
		District:        req.District,
		Khoroo:          req.Khoroo,
		AddressLine:     req.AddressLine,
		IsPickup:        req.IsPickup,
		Notes:           req.Notes,
		Items:           toServiceItems(req.Items),
		CouponCode:      req.CouponCode,
		PaymentMethod:   req.PaymentMethod,
		GrandTotal:      req.GrandTotal,
	})
	if err != nil {
		shared.RespondMapped(c, err, orderCreateErrorRules, response.CodeInternal, "error.order_create_failed")
		return
	}
	response.Success(c, gin.H{
		"order":            order,
		"payment_deadline": h.OrderService.PaymentDeadline(order),
	})
}

// ListOrders 当前用户订单列表
func (h *Handler) ListOrders(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := shared.ParsePage(c)
	orders, total, err := h.OrderService.ListByUser(repository.OrderListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   userIDString(uid),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.order_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, orders, response.BuildPagination(page, pageSize, total))
}

// GetOrder 当前用户订单详情，仅限本人
func (h *Handler) GetOrder(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := shared.ParseUintParam(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.order_id_invalid", nil)
		return
	}
	order, err := h.OrderService.GetByID(id, userIDString(uid))
	if err != nil {
		shared.RespondMapped(c, err, orderQueryErrorRules, response.CodeInternal, "error.order_fetch_failed")
		return
	}
	response.Success(c, order)
}

// GetOrderByNumber 按订单号查询，手机号必须匹配
func (h *Handler) GetOrderByNumber(c *gin.Context) {
	orderNumber, phone, ok := orderLookupParams(c)
	if !ok {
		return
	}
	order, err := h.OrderService.GetByOrderNumber(orderNumber, phone)
	if err != nil {
		shared.RespondMapped(c, err, orderQueryErrorRules, response.CodeInternal, "error.order_fetch_failed")
		return
	}
	response.Success(c, order)
}

// GetOrderInvoice 发票视图，同时触发地址入簿与派单
func (h *Handler) GetOrderInvoice(c *gin.Context) {
	orderNumber, phone, ok := orderLookupParams(c)
	if !ok {
		return
	}
	order, err := h.OrderService.ViewInvoice(orderNumber, phone)
	if err != nil {
		shared.RespondMapped(c, err, orderQueryErrorRules, response.CodeInternal, "error.order_fetch_failed")
		return
	}
	var bankAccounts []models.BankAccount
	if order.PaymentMethod == constants.PaymentMethodBank {
		accounts, err := h.ContentService.ActiveBankAccounts(c.Request.Context())
		if err != nil {
			shared.RequestLog(c).Warnw("invoice_bank_accounts_load_failed", "order_number", order.OrderNumber, "error", err)
		}
		bankAccounts = accounts
	}
	response.Success(c, gin.H{
		"order":         order,
		"bank_accounts": bankAccounts,
	})
}

func orderLookupParams(c *gin.Context) (string, string, bool) {
	orderNumber := strings.TrimSpace(c.Param("orderNumber"))
	phone := strings.TrimSpace(c.Query("phone"))
	if orderNumber == "" || phone == "" {
		respondError(c, response.CodeBadRequest, "error.order_lookup_invalid", nil)
		return "", "", false
	}
	return orderNumber, phone, true
}
