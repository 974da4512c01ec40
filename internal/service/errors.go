package service

import "errors"

// 通用
var (
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrQueueUnavailable   = errors.New("queue unavailable")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrWeakPassword       = errors.New("weak password")
)

// 订单
var (
	ErrOrderNotFound           = errors.New("order not found")
	ErrOrderCreateFailed       = errors.New("order create failed")
	ErrInvalidOrderItem        = errors.New("invalid order item")
	ErrOrderCustomerRequired   = errors.New("customer name and phone are required")
	ErrOrderAddressRequired    = errors.New("shipping address is required")
	ErrOrderPhoneMismatch      = errors.New("order phone mismatch")
	ErrOrderStatusInvalid      = errors.New("order status invalid")
	ErrOrderStatusTransition   = errors.New("order status transition not allowed")
	ErrPaymentStatusInvalid    = errors.New("payment status invalid")
	ErrPaymentStatusChanged    = errors.New("payment status changed concurrently")
	ErrPaymentMethodInvalid    = errors.New("payment method invalid")
	ErrOrderAlreadyPaid        = errors.New("order already paid")
	ErrOrderPaymentClosed      = errors.New("order payment closed")
	ErrOrderTotalInvalid       = errors.New("order total invalid")
	ErrPaymentStatusTransition = errors.New("payment status transition not allowed")
)

// 支付
var (
	ErrPaymentProviderNotConfigured = errors.New("payment provider not configured")
	ErrPaymentGatewayFailed         = errors.New("payment gateway request failed")
	ErrInvoiceNotFound              = errors.New("invoice not found")
	ErrInvoiceAmountMismatch        = errors.New("invoice amount mismatch")
	ErrNotQPayOrder                 = errors.New("order is not paid by qpay")
)

// 优惠券
var (
	ErrCouponInvalid       = errors.New("coupon code invalid")
	ErrCouponNotFound      = errors.New("coupon not found")
	ErrCouponInactive      = errors.New("coupon inactive")
	ErrCouponExpired       = errors.New("coupon expired")
	ErrCouponAlreadyUsed   = errors.New("coupon already used")
	ErrCouponGuestManual   = errors.New("guests cannot use this coupon")
	ErrCouponCodeExists    = errors.New("coupon code exists")
	ErrCouponCodeExhausted = errors.New("coupon code space exhausted")
	ErrCouponPercentage    = errors.New("coupon percentage invalid")
)

// 地址
var (
	ErrAddressNotFound = errors.New("address not found")
	ErrAddressInvalid  = errors.New("address invalid")
)

// 配送
var (
	ErrDispatchNotFound     = errors.New("dispatch not found")
	ErrDispatchNotRetryable = errors.New("dispatch not retryable")
	ErrCourierNotConfigured = errors.New("courier not configured")
)

// 用户
var (
	ErrUserNotFound          = errors.New("user not found")
	ErrUserDisabled          = errors.New("user disabled")
	ErrEmailExists           = errors.New("email already registered")
	ErrInvalidEmail          = errors.New("invalid email")
	ErrRefreshTokenInvalid   = errors.New("refresh token invalid")
	ErrGoogleNotConfigured   = errors.New("google sign-in not configured")
	ErrGoogleTokenInvalid    = errors.New("google token invalid")
	ErrGoogleEmailUnverified = errors.New("google email not verified")
)

// 验证码
var (
	ErrCaptchaRequired      = errors.New("captcha required")
	ErrCaptchaInvalid       = errors.New("captcha invalid")
	ErrCaptchaConfigInvalid = errors.New("captcha config invalid")
)
