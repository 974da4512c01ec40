package service

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/altan-shop/internal/config"
	"github.com/altan-shop/internal/constants"
	"github.com/altan-shop/internal/logger"
	"github.com/altan-shop/internal/models"
	"github.com/altan-shop/internal/queue"
	"github.com/altan-shop/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const orderNumberRetries = 3

// OrderService 订单服务
type OrderService struct {
	cfg           config.OrderConfig
	orderRepo     repository.OrderRepository
	couponService *CouponService
	sideEffects   *OrderSideEffects
	queueClient   *queue.Client
	now           func() time.Time
}

// NewOrderService 创建订单服务
func NewOrderService(cfg config.OrderConfig, orderRepo repository.OrderRepository, couponService *CouponService, sideEffects *OrderSideEffects, queueClient *queue.Client) *OrderService {
	return &OrderService{
		cfg:           cfg,
		orderRepo:     orderRepo,
		couponService: couponService,
		sideEffects:   sideEffects,
		queueClient:   queueClient,
		now:           time.Now,
	}
}

// CreateOrderItem 下单商品快照
type CreateOrderItem struct {
	ProductID string
	Name      string
	NameMN    string
	SKU       string
	Image     string
	Price     models.Money
	Quantity  int
}

// CreateOrderInput 创建订单输入
type CreateOrderInput struct {
	UserID          string // 为空表示游客
	CustomerName    string
	PhoneNumber     string
	Email           string
	ShippingAddress string
	City            string
	District        string
	Khoroo          string
	AddressLine     string
	IsPickup        bool
	Notes           string
	Items           []CreateOrderItem
	CouponCode      string
	PaymentMethod   constants.PaymentMethod
	GrandTotal      *models.Money // 前端提交的应付金额
}

// QuoteInput 报价输入
type QuoteInput struct {
	UserID     string
	Items      []CreateOrderItem
	CouponCode string
	IsPickup   bool
}

// OrderQuote 服务端报价
type OrderQuote struct {
	Currency       string            `json:"currency"`
	Subtotal       models.Money      `json:"subtotal"`
	DiscountAmount models.Money      `json:"discount_amount"`
	ShippingCost   models.Money      `json:"shipping_cost"`
	Tax            models.Money      `json:"tax"`
	GrandTotal     models.Money      `json:"grand_total"`
	FreeShipping   bool              `json:"free_shipping"`
	Coupon         *CouponValidation `json:"coupon,omitempty"`
}

// Quote 计算订单金额：小计、优惠、运费（超过包邮门槛免运费）、税费、应付
func (s *OrderService) Quote(input QuoteInput) (*OrderQuote, error) {
	if err := validateOrderItems(input.Items); err != nil {
		return nil, err
	}
	subtotal := decimal.Zero
	for _, item := range input.Items {
		subtotal = subtotal.Add(item.Price.Decimal.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	subtotal = subtotal.Round(2)

	quote := &OrderQuote{
		Currency: s.currency(),
		Subtotal: models.NewMoneyFromDecimal(subtotal),
	}
	discount := decimal.Zero
	if code := NormalizeCouponCode(input.CouponCode); code != "" {
		validation, err := s.couponService.Validate(code, quote.Subtotal, input.UserID)
		if err != nil {
			return nil, err
		}
		quote.Coupon = validation
		discount = validation.DiscountAmount.Decimal
	}

	shipping := decimal.NewFromFloat(s.cfg.ShippingFee).Round(2)
	threshold := decimal.NewFromFloat(s.cfg.FreeShippingThreshold)
	if input.IsPickup || (threshold.IsPositive() && subtotal.GreaterThan(threshold)) {
		shipping = decimal.Zero
		quote.FreeShipping = true
	}
	taxable := subtotal.Sub(discount)
	tax := decimal.Zero
	if s.cfg.TaxRate > 0 && taxable.IsPositive() {
		tax = taxable.Mul(decimal.NewFromFloat(s.cfg.TaxRate)).Div(decimal.NewFromInt(100)).Round(2)
	}

	quote.DiscountAmount = models.NewMoneyFromDecimal(discount)
	quote.ShippingCost = models.NewMoneyFromDecimal(shipping)
	quote.Tax = models.NewMoneyFromDecimal(tax)
	quote.GrandTotal = models.NewMoneyFromDecimal(taxable.Add(shipping).Add(tax))
	return quote, nil
}

// Create 创建订单：订单、订单项与优惠券核销在同一事务内完成
func (s *OrderService) Create(input CreateOrderInput) (*models.Order, error) {
	if err := validateOrderItems(input.Items); err != nil {
		return nil, err
	}
	customer := strings.TrimSpace(input.CustomerName)
	phone := normalizePhone(input.PhoneNumber)
	if customer == "" || phone == "" {
		return nil, ErrOrderCustomerRequired
	}
	if !input.PaymentMethod.Valid() {
		return nil, ErrPaymentMethodInvalid
	}
	shippingAddress := composeShippingAddress(input)
	if !input.IsPickup && shippingAddress == "" {
		return nil, ErrOrderAddressRequired
	}

	now := s.now()
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		userID = fmt.Sprintf("%s%d", constants.GuestUserPrefix, now.UnixMilli())
	}

	quote, err := s.Quote(QuoteInput{
		UserID:     userID,
		Items:      input.Items,
		CouponCode: input.CouponCode,
		IsPickup:   input.IsPickup,
	})
	if err != nil {
		return nil, err
	}
	grandTotal := quote.GrandTotal
	if input.GrandTotal != nil {
		if input.GrandTotal.Decimal.IsNegative() {
			return nil, ErrOrderTotalInvalid
		}
		grandTotal = models.NewMoneyFromDecimal(input.GrandTotal.Decimal)
		if !grandTotal.Equal(quote.GrandTotal) {
			logger.Warnw("order_total_mismatch",
				"user_id", userID,
				"submitted", grandTotal.String(),
				"quoted", quote.GrandTotal.String(),
			)
		}
	}

	order := &models.Order{
		UserID:          userID,
		CustomerName:    customer,
		PhoneNumber:     phone,
		Email:           strings.TrimSpace(input.Email),
		ShippingAddress: shippingAddress,
		City:            strings.TrimSpace(input.City),
		District:        strings.TrimSpace(input.District),
		Khoroo:          strings.TrimSpace(input.Khoroo),
		AddressLine:     strings.TrimSpace(input.AddressLine),
		IsPickup:        input.IsPickup,
		Notes:           strings.TrimSpace(input.Notes),
		Currency:        quote.Currency,
		Subtotal:        quote.Subtotal,
		ShippingCost:    quote.ShippingCost,
		Tax:             quote.Tax,
		DiscountAmount:  quote.DiscountAmount,
		GrandTotal:      grandTotal,
		PaymentMethod:   input.PaymentMethod,
		PaymentStatus:   constants.PaymentStatusPending,
		OrderStatus:     constants.OrderStatusProcessing,
	}
	if quote.Coupon != nil {
		order.CouponID = &quote.Coupon.CouponID
		order.CouponCode = quote.Coupon.Code
	}

	var createErr error
	for attempt := 0; attempt < orderNumberRetries; attempt++ {
		order.ID = 0
		order.OrderNumber = generateOrderNumber(now)
		createErr = s.createInTx(order, buildOrderItems(input.Items), quote)
		if createErr == nil || isCouponError(createErr) {
			break
		}
		logger.Warnw("order_create_attempt_failed", "order_number", order.OrderNumber, "attempt", attempt+1, "error", createErr)
	}
	if createErr != nil {
		if isCouponError(createErr) {
			return nil, createErr
		}
		logger.Errorw("order_create_failed", "user_id", userID, "error", createErr)
		return nil, ErrOrderCreateFailed
	}

	s.schedulePaymentTimeout(order)
	logger.Infow("order_created",
		"order_id", order.ID,
		"order_number", order.OrderNumber,
		"user_id", order.UserID,
		"payment_method", order.PaymentMethod.String(),
		"grand_total", order.GrandTotal.String(),
	)
	return order, nil
}

func (s *OrderService) createInTx(order *models.Order, items []models.OrderItem, quote *OrderQuote) error {
	return models.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.orderRepo.WithTx(tx).Create(order, items); err != nil {
			return err
		}
		if quote.Coupon == nil {
			return nil
		}
		_, err := s.couponService.RecordUsage(tx, quote.Coupon.Coupon, order.UserID, order.ID, quote.DiscountAmount)
		return err
	})
}

func (s *OrderService) schedulePaymentTimeout(order *models.Order) {
	if order.PaymentMethod != constants.PaymentMethodQPay || s.cfg.PaymentExpireMinutes <= 0 || !s.queueClient.Enabled() {
		return
	}
	delay := time.Duration(s.cfg.PaymentExpireMinutes) * time.Minute
	if err := s.queueClient.EnqueueOrderPaymentTimeout(queue.OrderPaymentTimeoutPayload{OrderID: order.ID}, delay); err != nil {
		logger.Warnw("order_enqueue_payment_timeout_failed", "order_id", order.ID, "order_number", order.OrderNumber, "error", err)
	}
}

func isCouponError(err error) bool {
	for _, target := range []error{
		ErrCouponInvalid, ErrCouponNotFound, ErrCouponInactive, ErrCouponExpired,
		ErrCouponAlreadyUsed, ErrCouponGuestManual,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func validateOrderItems(items []CreateOrderItem) error {
	if len(items) == 0 {
		return ErrInvalidOrderItem
	}
	for _, item := range items {
		if item.Quantity < 1 || strings.TrimSpace(item.Name) == "" || item.Price.Decimal.IsNegative() {
			return ErrInvalidOrderItem
		}
	}
	return nil
}

func buildOrderItems(items []CreateOrderItem) []models.OrderItem {
	rows := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		price := models.NewMoneyFromDecimal(item.Price.Decimal)
		rows = append(rows, models.OrderItem{
			ProductID: strings.TrimSpace(item.ProductID),
			Name:      strings.TrimSpace(item.Name),
			NameMN:    strings.TrimSpace(item.NameMN),
			SKU:       strings.TrimSpace(item.SKU),
			Image:     strings.TrimSpace(item.Image),
			Price:     price,
			Quantity:  item.Quantity,
			LineTotal: models.NewMoneyFromDecimal(price.Decimal.Mul(decimal.NewFromInt(int64(item.Quantity)))),
		})
	}
	return rows
}

// composeShippingAddress 未提交完整地址时由结构化字段拼接
func composeShippingAddress(input CreateOrderInput) string {
	if address := strings.TrimSpace(input.ShippingAddress); address != "" {
		return address
	}
	parts := make([]string, 0, 4)
	for _, part := range []string{input.City, input.District, input.Khoroo, input.AddressLine} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, ", ")
}

// generateOrderNumber ORD + YYYYMMDD + 6 位随机数
func generateOrderNumber(now time.Time) string {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return fmt.Sprintf("ORD%s%06d", now.Format("20060102"), now.UnixNano()%1_000_000)
	}
	return fmt.Sprintf("ORD%s%06d", now.Format("20060102"), n.Int64())
}

func (s *OrderService) currency() string {
	if currency := strings.TrimSpace(s.cfg.Currency); currency != "" {
		return strings.ToUpper(currency)
	}
	return "MNT"
}
