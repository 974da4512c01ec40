package constants

import "strings"

// PaymentMethod 支付方式
type PaymentMethod int

// 支付方式常量（数值与前端保持一致）
const (
	PaymentMethodQPay      PaymentMethod = 0
	PaymentMethodBank      PaymentMethod = 1 // 现金 / 银行转账
	PaymentMethodCard      PaymentMethod = 2
	PaymentMethodSocialPay PaymentMethod = 3
)

var paymentMethodNames = map[PaymentMethod]string{
	PaymentMethodQPay:      "qpay",
	PaymentMethodBank:      "bank",
	PaymentMethodCard:      "card",
	PaymentMethodSocialPay: "socialpay",
}

// Valid 是否为已知支付方式
func (m PaymentMethod) Valid() bool {
	_, ok := paymentMethodNames[m]
	return ok
}

func (m PaymentMethod) String() string {
	if name, ok := paymentMethodNames[m]; ok {
		return name
	}
	return "unknown"
}

// PaymentStatus 支付状态
type PaymentStatus int

// 支付状态常量
const (
	PaymentStatusPending  PaymentStatus = 0
	PaymentStatusPaid     PaymentStatus = 1
	PaymentStatusFailed   PaymentStatus = 2
	PaymentStatusRefunded PaymentStatus = 3
)

var paymentStatusNames = map[PaymentStatus]string{
	PaymentStatusPending:  "pending",
	PaymentStatusPaid:     "paid",
	PaymentStatusFailed:   "failed",
	PaymentStatusRefunded: "refunded",
}

// Valid 是否为已知支付状态
func (s PaymentStatus) Valid() bool {
	_, ok := paymentStatusNames[s]
	return ok
}

func (s PaymentStatus) String() string {
	if name, ok := paymentStatusNames[s]; ok {
		return name
	}
	return "unknown"
}

// CanTransitionTo 支付状态单调流转：Pending -> Paid/Failed，Paid -> Refunded
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	switch s {
	case PaymentStatusPending:
		return next == PaymentStatusPaid || next == PaymentStatusFailed
	case PaymentStatusPaid:
		return next == PaymentStatusRefunded
	default:
		return false
	}
}

// OrderStatus 履约状态
type OrderStatus int

// 订单状态常量
const (
	OrderStatusProcessing OrderStatus = 0
	OrderStatusShipped    OrderStatus = 1
	OrderStatusDelivered  OrderStatus = 2
	OrderStatusCancelled  OrderStatus = 3
)

var orderStatusNames = map[OrderStatus]string{
	OrderStatusProcessing: "processing",
	OrderStatusShipped:    "shipped",
	OrderStatusDelivered:  "delivered",
	OrderStatusCancelled:  "cancelled",
}

// Valid 是否为已知订单状态
func (s OrderStatus) Valid() bool {
	_, ok := orderStatusNames[s]
	return ok
}

func (s OrderStatus) String() string {
	if name, ok := orderStatusNames[s]; ok {
		return name
	}
	return "unknown"
}

// IsTerminal Delivered / Cancelled 为终态
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo 订单状态流转规则
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s == next {
		return false
	}
	switch s {
	case OrderStatusProcessing:
		return next == OrderStatusShipped || next == OrderStatusCancelled
	case OrderStatusShipped:
		return next == OrderStatusDelivered || next == OrderStatusCancelled
	default:
		return false
	}
}

// 游客用户 ID 前缀
const GuestUserPrefix = "guest_"

// IsGuestUserID 判断是否为游客订单
func IsGuestUserID(userID string) bool {
	return strings.HasPrefix(strings.TrimSpace(userID), GuestUserPrefix)
}

// 配送派单类型与触发节点
const (
	DispatchTypeDeliveryCreate = "delivery_create"

	DispatchTriggerInvoiceCreated    = "invoice_created"
	DispatchTriggerInvoiceDownloaded = "invoice_downloaded"
	DispatchTriggerPaymentConfirmed  = "payment_confirmed"
	DispatchTriggerAdminRetry        = "admin_retry"
)

// 派单记录状态
const (
	DispatchStatusPending = "pending"
	DispatchStatusSent    = "sent"
	DispatchStatusFailed  = "failed"
	DispatchStatusSkipped = "skipped"
)

// QPay 支付状态（网关返回值）
const (
	QPayStatusPaid      = "PAID"
	QPayStatusNew       = "NEW"
	QPayStatusFailed    = "FAILED"
	QPayStatusCancelled = "CANCELLED"
	QPayStatusRefunded  = "REFUNDED"
)

// QPay 对象类型
const (
	QPayObjectInvoice = "INVOICE"
)

// 用户登录来源
const (
	UserProviderPassword = "password"
	UserProviderGoogle   = "google"
)

// 用户状态
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 验证码场景
const (
	CaptchaSceneAdminLogin       = "admin_login"
	CaptchaSceneUserLogin        = "user_login"
	CaptchaSceneGuestCreateOrder = "guest_create_order"
)

// 轮播图位置
const (
	BannerPositionHomeHero = "home_hero"
	BannerPositionHomeMid  = "home_mid"
)

// 异步队列
const (
	QueueDefault = "default"

	TaskDeliveryDispatch    = "delivery:dispatch"
	TaskAddressCapture      = "address:capture"
	TaskOrderPaymentTimeout = "order:payment_timeout"
)
