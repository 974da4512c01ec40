package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/altan-shop/internal/constants"
	"github.com/altan-shop/internal/logger"
	"github.com/altan-shop/internal/models"
	"github.com/altan-shop/internal/payment/qpay"
	"github.com/altan-shop/internal/repository"
)

// QPayGateway QPay 网关能力
type QPayGateway interface {
	GetToken(ctx context.Context) (string, error)
	CreateInvoice(ctx context.Context, in qpay.InvoiceRequest) (*qpay.Invoice, error)
	CheckPayment(ctx context.Context, invoiceID string) (*qpay.CheckResult, error)
	CancelInvoice(ctx context.Context, invoiceID string) error
}

// PaymentService QPay 支付服务
type PaymentService struct {
	orderRepo     repository.OrderRepository
	gateway       QPayGateway
	sideEffects   *OrderSideEffects
	receiverCode  string
	expireMinutes int
	now           func() time.Time
}

// PaymentServiceOptions 支付服务依赖
type PaymentServiceOptions struct {
	OrderRepo     repository.OrderRepository
	Gateway       QPayGateway // 为空表示未配置 QPay
	SideEffects   *OrderSideEffects
	ReceiverCode  string
	ExpireMinutes int
}

// NewPaymentService 创建支付服务
func NewPaymentService(opts PaymentServiceOptions) *PaymentService {
	return &PaymentService{
		orderRepo:     opts.OrderRepo,
		gateway:       opts.Gateway,
		sideEffects:   opts.SideEffects,
		receiverCode:  strings.TrimSpace(opts.ReceiverCode),
		expireMinutes: opts.ExpireMinutes,
		now:           time.Now,
	}
}

// CreateInvoiceInput 创建发票输入
type CreateInvoiceInput struct {
	OrderID     uint
	Amount      *models.Money // 为空时使用订单应付金额
	Description string
}

// InvoiceResult 发票信息
type InvoiceResult struct {
	OrderID     uint                `json:"order_id"`
	OrderNumber string              `json:"order_number"`
	InvoiceID   string              `json:"invoice_id"`
	QRText      string              `json:"qr_text"`
	QRImage     string              `json:"qr_image"`
	ShortURL    string              `json:"short_url,omitempty"`
	URLs        models.InvoiceLinks `json:"urls,omitempty"`
	Amount      models.Money        `json:"amount"`
	Reused      bool                `json:"reused"`
}

// PaymentStatusResult 支付查询结果
type PaymentStatusResult struct {
	OrderID       uint                    `json:"order_id"`
	OrderNumber   string                  `json:"order_number"`
	InvoiceID     string                  `json:"invoice_id"`
	PaymentStatus constants.PaymentStatus `json:"payment_status"`
	Paid          bool                    `json:"paid"`
	PaidAt        *time.Time              `json:"paid_at,omitempty"`
}

// Enabled 是否已配置 QPay
func (s *PaymentService) Enabled() bool {
	return s != nil && s.gateway != nil
}

// GetToken 获取 QPay 访问令牌
func (s *PaymentService) GetToken(ctx context.Context) (string, error) {
	if !s.Enabled() {
		return "", ErrPaymentProviderNotConfigured
	}
	token, err := s.gateway.GetToken(ctx)
	if err != nil {
		logger.Warnw("qpay_get_token_failed", "error", err)
		return "", ErrPaymentGatewayFailed
	}
	return token, nil
}

// CreateInvoice 为订单创建 QPay 发票，金额必须等于订单应付金额
func (s *PaymentService) CreateInvoice(ctx context.Context, input CreateInvoiceInput) (*InvoiceResult, error) {
	if !s.Enabled() {
		return nil, ErrPaymentProviderNotConfigured
	}
	order, err := s.orderRepo.GetByID(input.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.PaymentMethod != constants.PaymentMethodQPay {
		return nil, ErrNotQPayOrder
	}
	switch order.PaymentStatus {
	case constants.PaymentStatusPending:
	case constants.PaymentStatusPaid:
		return nil, ErrOrderAlreadyPaid
	default:
		return nil, ErrOrderPaymentClosed
	}
	if input.Amount != nil && !input.Amount.Equal(order.GrandTotal) {
		return nil, ErrInvoiceAmountMismatch
	}
	if order.InvoiceID != "" && (order.QRText != "" || order.QRImage != "") {
		return &InvoiceResult{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			InvoiceID:   order.InvoiceID,
			QRText:      order.QRText,
			QRImage:     order.QRImage,
			ShortURL:    order.QPayShortURL,
			URLs:        order.QPayLinks,
			Amount:      order.GrandTotal,
			Reused:      true,
		}, nil
	}

	description := strings.TrimSpace(input.Description)
	if description == "" {
		description = order.OrderNumber
	}
	receiver := s.receiverCode
	if receiver == "" {
		receiver = order.PhoneNumber
	}
	invoice, err := s.gateway.CreateInvoice(ctx, qpay.InvoiceRequest{
		SenderInvoiceNo: order.OrderNumber,
		ReceiverCode:    receiver,
		Description:     description,
		Amount:          order.GrandTotal.Decimal,
	})
	if err != nil {
		logger.Errorw("qpay_create_invoice_failed", "order_id", order.ID, "order_number", order.OrderNumber, "error", err)
		return nil, ErrPaymentGatewayFailed
	}

	links := invoiceLinks(invoice.URLs)
	if _, err := s.orderRepo.UpdateFields(order.ID, map[string]interface{}{
		"invoice_id":     invoice.InvoiceID,
		"qr_image":       invoice.QRImage,
		"qr_text":        invoice.QRText,
		"qpay_short_url": invoice.ShortURL,
		"qpay_links":     links,
	}); err != nil {
		return nil, err
	}
	order.InvoiceID = invoice.InvoiceID
	order.QRImage = invoice.QRImage
	order.QRText = invoice.QRText
	order.QPayShortURL = invoice.ShortURL
	order.QPayLinks = links
	logger.Infow("qpay_invoice_created",
		"order_id", order.ID,
		"order_number", order.OrderNumber,
		"invoice_id", invoice.InvoiceID,
		"amount", order.GrandTotal.String(),
	)
	s.sideEffects.AfterInvoice(order, constants.DispatchTriggerInvoiceCreated)

	return &InvoiceResult{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		InvoiceID:   invoice.InvoiceID,
		QRText:      invoice.QRText,
		QRImage:     invoice.QRImage,
		ShortURL:    invoice.ShortURL,
		URLs:        links,
		Amount:      order.GrandTotal,
	}, nil
}

// CheckStatus 查询发票支付状态；网关确认已支付时通过条件更新切换为 Paid，
// 只有切换成功的一方触发支付后的派单。
func (s *PaymentService) CheckStatus(ctx context.Context, invoiceID string) (*PaymentStatusResult, error) {
	if !s.Enabled() {
		return nil, ErrPaymentProviderNotConfigured
	}
	invoiceID = strings.TrimSpace(invoiceID)
	if invoiceID == "" {
		return nil, ErrInvoiceNotFound
	}
	order, err := s.orderRepo.GetByInvoiceID(invoiceID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrInvoiceNotFound
	}
	if order.PaymentStatus != constants.PaymentStatusPending {
		return statusResult(order), nil
	}

	result, err := s.gateway.CheckPayment(ctx, invoiceID)
	if err != nil {
		logger.Warnw("qpay_check_payment_failed", "order_id", order.ID, "invoice_id", invoiceID, "error", err)
		return nil, ErrPaymentGatewayFailed
	}
	if !result.IsPaid() {
		return statusResult(order), nil
	}
	return s.markPaid(order)
}

func invoiceLinks(urls []qpay.BankURL) models.InvoiceLinks {
	if len(urls) == 0 {
		return nil
	}
	links := make(models.InvoiceLinks, 0, len(urls))
	for _, u := range urls {
		links = append(links, models.InvoiceLink{Name: u.Name, Description: u.Description, Logo: u.Logo, Link: u.Link})
	}
	return links
}

func (s *PaymentService) markPaid(order *models.Order) (*PaymentStatusResult, error) {
	paidAt := s.now()
	won, err := s.orderRepo.MarkPaymentStatus(order.ID, constants.PaymentStatusPending, constants.PaymentStatusPaid, map[string]interface{}{
		"paid_at": paidAt,
	})
	if err != nil {
		return nil, err
	}
	updated, err := s.orderRepo.GetByID(order.ID)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrOrderNotFound
	}
	if won {
		logger.Infow("qpay_payment_confirmed",
			"order_id", updated.ID,
			"order_number", updated.OrderNumber,
			"invoice_id", updated.InvoiceID,
		)
		s.sideEffects.AfterPayment(updated)
	}
	return statusResult(updated), nil
}

// ExpireOrder 支付超时：最后确认一次网关，仍未支付则置为 Failed 并作废发票
func (s *PaymentService) ExpireOrder(ctx context.Context, orderID uint) error {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return err
	}
	if order == nil || order.PaymentStatus != constants.PaymentStatusPending {
		return nil
	}
	_, err = s.closeUnpaid(ctx, order, "order_payment_expired")
	return err
}

// closeUnpaid 先回查网关：已支付则按支付处理，否则条件更新为 Failed 并作废发票。
// 返回更新后的订单状态。
func (s *PaymentService) closeUnpaid(ctx context.Context, order *models.Order, event string) (*PaymentStatusResult, error) {
	if s.Enabled() && order.InvoiceID != "" {
		result, err := s.gateway.CheckPayment(ctx, order.InvoiceID)
		if err != nil {
			logger.Warnw("qpay_check_payment_failed", "order_id", order.ID, "invoice_id", order.InvoiceID, "error", err)
			return nil, ErrPaymentGatewayFailed
		}
		if result.IsPaid() {
			return s.markPaid(order)
		}
	}
	won, err := s.orderRepo.MarkPaymentStatus(order.ID, constants.PaymentStatusPending, constants.PaymentStatusFailed, nil)
	if err != nil {
		return nil, err
	}
	if won {
		logger.Infow(event, "order_id", order.ID, "order_number", order.OrderNumber, "invoice_id", order.InvoiceID)
		if s.Enabled() && order.InvoiceID != "" {
			if err := s.gateway.CancelInvoice(ctx, order.InvoiceID); err != nil {
				logger.Warnw("qpay_cancel_invoice_failed", "order_id", order.ID, "invoice_id", order.InvoiceID, "error", err)
			}
		}
	}
	current, err := s.orderRepo.GetByID(order.ID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrOrderNotFound
	}
	return statusResult(current), nil
}

// ReconcileResult 对账结果
type ReconcileResult struct {
	Checked int
	Paid    int
	Expired int
	Failed  int
}

// ReconcilePending 扫描待支付的 QPay 订单：补漏回调并处理超时
func (s *PaymentService) ReconcilePending(ctx context.Context, minAge time.Duration, limit int) (*ReconcileResult, error) {
	if !s.Enabled() {
		return &ReconcileResult{}, nil
	}
	now := s.now()
	orders, err := s.orderRepo.ListPendingQPay(now.Add(-minAge), limit)
	if err != nil {
		return nil, err
	}
	result := &ReconcileResult{}
	for i := range orders {
		if ctx.Err() != nil {
			break
		}
		order := &orders[i]
		result.Checked++
		if s.expireMinutes > 0 && now.Sub(order.CreatedAt) >= time.Duration(s.expireMinutes)*time.Minute {
			if err := s.ExpireOrder(ctx, order.ID); err != nil {
				result.Failed++
				logger.Warnw("qpay_reconcile_expire_failed", "order_id", order.ID, "error", err)
				continue
			}
			current, err := s.orderRepo.GetByID(order.ID)
			if err == nil && current != nil && current.PaymentStatus == constants.PaymentStatusPaid {
				result.Paid++
			} else {
				result.Expired++
			}
			continue
		}
		status, err := s.CheckStatus(ctx, order.InvoiceID)
		if err != nil {
			result.Failed++
			logger.Warnw("qpay_reconcile_check_failed", "order_id", order.ID, "invoice_id", order.InvoiceID, "error", err)
			continue
		}
		if status.Paid {
			result.Paid++
		}
	}
	return result, nil
}

// HandleWebhook 处理 QPay 回调；回调内容不直接信任，一律回查网关
func (s *PaymentService) HandleWebhook(ctx context.Context, payload *qpay.WebhookPayload) (*PaymentStatusResult, error) {
	if payload == nil || payload.ObjectID == "" {
		return nil, ErrInvoiceNotFound
	}
	if payload.ObjectType != "" && payload.ObjectType != qpay.ObjectTypeInvoice {
		logger.Infow("qpay_webhook_ignored", "object_type", payload.ObjectType, "object_id", payload.ObjectID)
		return nil, nil
	}
	switch payload.PaymentStatus {
	case constants.QPayStatusCancelled, constants.QPayStatusFailed:
		return s.failByInvoice(ctx, payload.ObjectID)
	default:
		return s.CheckStatus(ctx, payload.ObjectID)
	}
}

func (s *PaymentService) failByInvoice(ctx context.Context, invoiceID string) (*PaymentStatusResult, error) {
	if !s.Enabled() {
		return nil, ErrPaymentProviderNotConfigured
	}
	order, err := s.orderRepo.GetByInvoiceID(invoiceID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrInvoiceNotFound
	}
	if order.PaymentStatus != constants.PaymentStatusPending {
		return statusResult(order), nil
	}
	return s.closeUnpaid(ctx, order, "qpay_payment_failed")
}

func statusResult(order *models.Order) *PaymentStatusResult {
	return &PaymentStatusResult{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		InvoiceID:     order.InvoiceID,
		PaymentStatus: order.PaymentStatus,
		Paid:          order.PaymentStatus == constants.PaymentStatusPaid,
		PaidAt:        order.PaidAt,
	}
}

// IsPaymentGatewayError 是否为网关侧错误
func IsPaymentGatewayError(err error) bool {
	return errors.Is(err, ErrPaymentGatewayFailed) || errors.Is(err, ErrPaymentProviderNotConfigured)
}
