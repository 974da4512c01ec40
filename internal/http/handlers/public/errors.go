package public

import (
	"github.com/altan-shop/internal/http/handlers/shared"
	"github.com/altan-shop/internal/http/response"
	"github.com/altan-shop/internal/service"
)

var couponErrorRules = []shared.ErrorRule{
	{Target: service.ErrCouponInvalid, Code: response.CodeBadRequest, Key: "error.coupon_invalid"},
	{Target: service.ErrCouponNotFound, Code: response.CodeBadRequest, Key: "error.coupon_not_found"},
	{Target: service.ErrCouponInactive, Code: response.CodeBadRequest, Key: "error.coupon_inactive"},
	{Target: service.ErrCouponExpired, Code: response.CodeBadRequest, Key: "error.coupon_expired"},
	{Target: service.ErrCouponAlreadyUsed, Code: response.CodeBadRequest, Key: "error.coupon_already_used"},
	{Target: service.ErrCouponGuestManual, Code: response.CodeBadRequest, Key: "error.coupon_guest_not_allowed"},
}

var orderInputErrorRules = []shared.ErrorRule{
	{Target: service.ErrInvalidOrderItem, Code: response.CodeBadRequest, Key: "error.order_item_invalid"},
	{Target: service.ErrOrderCustomerRequired, Code: response.CodeBadRequest, Key: "error.order_customer_required"},
	{Target: service.ErrOrderAddressRequired, Code: response.CodeBadRequest, Key: "error.order_address_required"},
	{Target: service.ErrPaymentMethodInvalid, Code: response.CodeBadRequest, Key: "error.payment_method_invalid"},
	{Target: service.ErrOrderTotalInvalid, Code: response.CodeBadRequest, Key: "error.order_total_invalid"},
	{Target: service.ErrInvalidInput, Code: response.CodeBadRequest, Key: "error.bad_request"},
}

var orderCreateErrorRules = shared.ConcatRules(orderInputErrorRules, couponErrorRules, []shared.ErrorRule{
	{Target: service.ErrOrderCreateFailed, Code: response.CodeInternal, Key: "error.order_create_failed"},
})

var orderQueryErrorRules = []shared.ErrorRule{
	{Target: service.ErrOrderNotFound, Code: response.CodeNotFound, Key: "error.order_not_found"},
	{Target: service.ErrOrderPhoneMismatch, Code: response.CodeNotFound, Key: "error.order_not_found"},
}

var paymentErrorRules = []shared.ErrorRule{
	{Target: service.ErrOrderNotFound, Code: response.CodeNotFound, Key: "error.order_not_found"},
	{Target: service.ErrInvoiceNotFound, Code: response.CodeNotFound, Key: "error.invoice_not_found"},
	{Target: service.ErrInvoiceAmountMismatch, Code: response.CodeBadRequest, Key: "error.invoice_amount_mismatch"},
	{Target: service.ErrNotQPayOrder, Code: response.CodeBadRequest, Key: "error.order_not_qpay"},
	{Target: service.ErrOrderAlreadyPaid, Code: response.CodeBadRequest, Key: "error.order_already_paid"},
	{Target: service.ErrOrderPaymentClosed, Code: response.CodeBadRequest, Key: "error.order_payment_closed"},
	{Target: service.ErrPaymentProviderNotConfigured, Code: response.CodeInternal, Key: "error.payment_provider_not_configured"},
	{Target: service.ErrPaymentGatewayFailed, Code: response.CodeInternal, Key: "error.payment_gateway_failed"},
}

var addressErrorRules = []shared.ErrorRule{
	{Target: service.ErrAddressInvalid, Code: response.CodeBadRequest, Key: "error.address_invalid"},
	{Target: service.ErrAddressNotFound, Code: response.CodeNotFound, Key: "error.address_not_found"},
}

var userAuthErrorRules = []shared.ErrorRule{
	{Target: service.ErrInvalidEmail, Code: response.CodeBadRequest, Key: "error.email_invalid"},
	{Target: service.ErrEmailExists, Code: response.CodeBadRequest, Key: "error.email_exists"},
	{Target: service.ErrInvalidCredentials, Code: response.CodeUnauthorized, Key: "error.login_invalid"},
	{Target: service.ErrUserDisabled, Code: response.CodeUnauthorized, Key: "error.user_disabled"},
	{Target: service.ErrUserNotFound, Code: response.CodeNotFound, Key: "error.user_not_found"},
	{Target: service.ErrRefreshTokenInvalid, Code: response.CodeUnauthorized, Key: "error.refresh_token_invalid"},
	{Target: service.ErrGoogleNotConfigured, Code: response.CodeBadRequest, Key: "error.google_not_configured"},
	{Target: service.ErrGoogleTokenInvalid, Code: response.CodeUnauthorized, Key: "error.google_token_invalid"},
	{Target: service.ErrGoogleEmailUnverified, Code: response.CodeUnauthorized, Key: "error.google_email_unverified"},
}
