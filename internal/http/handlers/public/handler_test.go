package public

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/altan-shop/internal/cache"
	"github.com/altan-shop/internal/config"
	"github.com/altan-shop/internal/constants"
	"github.com/altan-shop/internal/http/validation"
	"github.com/altan-shop/internal/models"
	"github.com/altan-shop/internal/payment/qpay"
	"github.com/altan-shop/internal/provider"
	"github.com/altan-shop/internal/repository"
	"github.com/altan-shop/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type stubGateway struct {
	mu       sync.Mutex
	paid     bool
	invoices int
}

func (g *stubGateway) GetToken(ctx context.Context) (string, error) { return "tok", nil }

func (g *stubGateway) CreateInvoice(ctx context.Context, in qpay.InvoiceRequest) (*qpay.Invoice, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.invoices++
	return &qpay.Invoice{InvoiceID: "inv-" + in.SenderInvoiceNo, QRText: "000201", QRImage: "png"}, nil
}

func (g *stubGateway) CheckPayment(ctx context.Context, invoiceID string) (*qpay.CheckResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	status := "NEW"
	if g.paid {
		status = qpay.StatusPaid
	}
	return &qpay.CheckResult{Count: 1, Rows: []qpay.PaymentRow{{PaymentID: "p-1", PaymentStatus: status}}}, nil
}

func (g *stubGateway) CancelInvoice(ctx context.Context, invoiceID string) error { return nil }

type envelope struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

type handlerFixture struct {
	db      *gorm.DB
	gateway *stubGateway
	engine  *gin.Engine
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if err := validation.Register(); err != nil {
		t.Fatalf("register validators failed: %v", err)
	}
	dsn := fmt.Sprintf("file:public_handler_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	_ = cache.InitRedis(nil)

	orderCfg := config.OrderConfig{Currency: "MNT", ShippingFee: 5000, FreeShippingThreshold: 100000, PaymentExpireMinutes: 30}
	gateway := &stubGateway{}
	c := &provider.Container{
		OrderRepo:   repository.NewOrderRepository(db),
		AddressRepo: repository.NewAddressRepository(db),
	}
	c.CouponService = service.NewCouponService(repository.NewCouponRepository(db), repository.NewCouponUsageRepository(db))
	c.AddressService = service.NewAddressService(c.AddressRepo, nil)
	c.DeliveryService = service.NewDeliveryService(c.OrderRepo, repository.NewDeliveryDispatchRepository(db), nil, nil, nil)
	c.SideEffects = service.NewOrderSideEffects(nil, c.DeliveryService, c.AddressService, 5*time.Second)
	c.OrderService = service.NewOrderService(orderCfg, c.OrderRepo, c.CouponService, c.SideEffects, nil)
	c.PaymentService = service.NewPaymentService(service.PaymentServiceOptions{
		OrderRepo:     c.OrderRepo,
		Gateway:       gateway,
		SideEffects:   c.SideEffects,
		ExpireMinutes: 30,
	})
	c.CaptchaService = service.NewCaptchaService(config.CaptchaConfig{})
	c.ContentService = service.NewContentService(service.ContentRepositories{
		BankAccounts: repository.NewBankAccountRepository(db),
		Banners:      repository.NewBannerRepository(db),
		Partners:     repository.NewPartnerRepository(db),
		Footers:      repository.NewFooterRepository(db),
		GiftSettings: repository.NewGiftSettingRepository(db),
	})

	h := New(c)
	r := gin.New()
	// 测试中通过 X-Test-User 头模拟已登录用户
	withUser := func(ctx *gin.Context) {
		if ctx.GetHeader("X-Test-User") != "" {
			ctx.Set("user_id", uint(7))
		}
		ctx.Next()
	}
	r.POST("/api/order/quote", withUser, h.QuoteOrder)
	r.POST("/api/order", withUser, h.CreateOrder)
	r.GET("/api/order/number/:orderNumber", h.GetOrderByNumber)
	r.GET("/api/order/number/:orderNumber/invoice", h.GetOrderInvoice)
	r.POST("/api/qpay/checkout/invoice", h.CreateQPayInvoice)
	r.POST("/api/qpay/webhook", h.QPayWebhook)
	r.POST("/api/coupons/validate", withUser, h.ValidateCoupon)
	r.GET("/api/bank-accounts/active", h.ListActiveBankAccounts)

	return &handlerFixture{db: db, gateway: gateway, engine: r}
}

func (f *handlerFixture) do(t *testing.T, method, path string, body interface{}, loggedIn bool) envelope {
	t.Helper()
	status, resp := f.doStatus(t, method, path, body, loggedIn)
	if status != http.StatusOK {
		t.Fatalf("%s %s: http status want 200 got %d", method, path, status)
	}
	return resp
}

func (f *handlerFixture) doStatus(t *testing.T, method, path string, body interface{}, loggedIn bool) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body failed: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if loggedIn {
		req.Header.Set("X-Test-User", "1")
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	var resp envelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("%s %s: decode envelope failed: %v (%s)", method, path, err, w.Body.String())
	}
	return w.Code, resp
}

func (f *handlerFixture) createCoupon(t *testing.T, code string, pct int64, manual bool) {
	t.Helper()
	coupon := &models.Coupon{Code: code, DiscountPercentage: models.NewMoneyFromInt(pct), IsManual: manual, IsActive: true}
	if err := f.db.Create(coupon).Error; err != nil {
		t.Fatalf("create coupon failed: %v", err)
	}
}

func scarfOrderItems() []map[string]interface{} {
	return []map[string]interface{}{
		{"product_id": "p-1", "name": "Cashmere scarf", "name_mn": "Ноолууран ороолт", "price": "60000", "quantity": 2},
	}
}

func TestQuoteOrderWithCoupon(t *testing.T) {
	f := newHandlerFixture(t)
	f.createCoupon(t, "SAVE20", 20, true)

	resp := f.do(t, http.MethodPost, "/api/order/quote", map[string]interface{}{
		"items":       scarfOrderItems(),
		"coupon_code": "save20",
	}, true)
	if resp.StatusCode != 0 {
		t.Fatalf("quote failed: %d %s", resp.StatusCode, resp.Msg)
	}
	var quote struct {
		Subtotal       string `json:"subtotal"`
		DiscountAmount string `json:"discount_amount"`
		ShippingCost   string `json:"shipping_cost"`
		GrandTotal     string `json:"grand_total"`
	}
	if err := json.Unmarshal(resp.Data, &quote); err != nil {
		t.Fatalf("decode quote failed: %v", err)
	}
	if quote.Subtotal != "120000.00" || quote.DiscountAmount != "24000.00" || quote.ShippingCost != "0.00" || quote.GrandTotal != "96000.00" {
		t.Fatalf("unexpected quote: %+v", quote)
	}
}

func TestQuoteOrderGuestCannotUseManualCoupon(t *testing.T) {
	f := newHandlerFixture(t)
	f.createCoupon(t, "SAVE20", 20, true)

	resp := f.do(t, http.MethodPost, "/api/order/quote", map[string]interface{}{
		"items":       scarfOrderItems(),
		"coupon_code": "SAVE20",
	}, false)
	if resp.StatusCode != 400 {
		t.Fatalf("guest manual coupon should be 400, got %d", resp.StatusCode)
	}
}

func TestQuoteOrderRejectsEmptyItems(t *testing.T) {
	f := newHandlerFixture(t)
	resp := f.do(t, http.MethodPost, "/api/order/quote", map[string]interface{}{"items": []interface{}{}}, false)
	if resp.StatusCode != 400 {
		t.Fatalf("empty items should be 400, got %d", resp.StatusCode)
	}
}

func createOrder(t *testing.T, f *handlerFixture, method constants.PaymentMethod) (uint, string) {
	t.Helper()
	resp := f.do(t, http.MethodPost, "/api/order", map[string]interface{}{
		"customer_name":    "Бат",
		"phone_number":     "+976 9911-2233",
		"shipping_address": "Улаанбаатар, СБД, 1-р хороо",
		"city":             "Улаанбаатар",
		"district":         "СБД",
		"address_line":     "5-р байр",
		"items":            scarfOrderItems(),
		"payment_method":   int(method),
	}, true)
	if resp.StatusCode != 0 {
		t.Fatalf("create order failed: %d %s", resp.StatusCode, resp.Msg)
	}
	var data struct {
		Order struct {
			ID          uint   `json:"id"`
			OrderNumber string `json:"order_number"`
			PhoneNumber string `json:"phone_number"`
			GrandTotal  string `json:"grand_total"`
		} `json:"order"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("decode order failed: %v", err)
	}
	if data.Order.PhoneNumber != "99112233" {
		t.Fatalf("phone should be normalized, got %s", data.Order.PhoneNumber)
	}
	return data.Order.ID, data.Order.OrderNumber
}

func TestCreateOrderAndLookupByPhone(t *testing.T) {
	f := newHandlerFixture(t)
	_, orderNumber := createOrder(t, f, constants.PaymentMethodQPay)

	resp := f.do(t, http.MethodGet, "/api/order/number/"+orderNumber+"?phone=99112233", nil, false)
	if resp.StatusCode != 0 {
		t.Fatalf("lookup failed: %d %s", resp.StatusCode, resp.Msg)
	}

	resp = f.do(t, http.MethodGet, "/api/order/number/"+orderNumber+"?phone=88887777", nil, false)
	if resp.StatusCode != 404 {
		t.Fatalf("phone mismatch should be 404, got %d", resp.StatusCode)
	}

	resp = f.do(t, http.MethodGet, "/api/order/number/"+orderNumber, nil, false)
	if resp.StatusCode != 400 {
		t.Fatalf("missing phone should be 400, got %d", resp.StatusCode)
	}
}

func TestCreateOrderRejectsInvalidPhone(t *testing.T) {
	f := newHandlerFixture(t)
	resp := f.do(t, http.MethodPost, "/api/order", map[string]interface{}{
		"customer_name":    "Бат",
		"phone_number":     "12",
		"shipping_address": "Улаанбаатар",
		"items":            scarfOrderItems(),
	}, true)
	if resp.StatusCode != 400 {
		t.Fatalf("invalid phone should be 400, got %d", resp.StatusCode)
	}
}

func TestInvoiceViewIncludesBankAccounts(t *testing.T) {
	f := newHandlerFixture(t)
	if err := f.db.Create(&models.BankAccount{BankName: "Хаан банк", AccountName: "Altan LLC", AccountNumber: "5000123456", IsActive: true}).Error; err != nil {
		t.Fatalf("create bank account failed: %v", err)
	}
	_, orderNumber := createOrder(t, f, constants.PaymentMethodBank)

	resp := f.do(t, http.MethodGet, "/api/order/number/"+orderNumber+"/invoice?phone=99112233", nil, false)
	if resp.StatusCode != 0 {
		t.Fatalf("invoice view failed: %d %s", resp.StatusCode, resp.Msg)
	}
	var data struct {
		BankAccounts []models.BankAccount `json:"bank_accounts"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("decode invoice failed: %v", err)
	}
	if len(data.BankAccounts) != 1 {
		t.Fatalf("expected bank accounts for bank transfer order, got %d", len(data.BankAccounts))
	}
}

func TestQPayInvoiceReusedAndWebhookMarksPaid(t *testing.T) {
	f := newHandlerFixture(t)
	orderID, _ := createOrder(t, f, constants.PaymentMethodQPay)

	var invoiceID string
	for i := 0; i < 2; i++ {
		resp := f.do(t, http.MethodPost, "/api/qpay/checkout/invoice", map[string]interface{}{"order_id": orderID}, false)
		if resp.StatusCode != 0 {
			t.Fatalf("create invoice failed: %d %s", resp.StatusCode, resp.Msg)
		}
		var data struct {
			InvoiceID string `json:"invoice_id"`
		}
		_ = json.Unmarshal(resp.Data, &data)
		if data.InvoiceID == "" {
			t.Fatalf("invoice id missing: %s", resp.Data)
		}
		invoiceID = data.InvoiceID
	}
	if f.gateway.invoices != 1 {
		t.Fatalf("invoice should be reused, gateway called %d times", f.gateway.invoices)
	}

	f.gateway.paid = true
	resp := f.do(t, http.MethodPost, "/api/qpay/webhook", map[string]interface{}{
		"object_type":    "invoice",
		"object_id":      invoiceID,
		"payment_status": "PAID",
	}, false)
	if resp.StatusCode != 0 {
		t.Fatalf("webhook should always succeed, got %d", resp.StatusCode)
	}

	var order models.Order
	if err := f.db.First(&order, orderID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if order.PaymentStatus != constants.PaymentStatusPaid {
		t.Fatalf("order should be paid, got %v", order.PaymentStatus)
	}
}

func TestQPayWebhookAlwaysReturnsSuccess(t *testing.T) {
	f := newHandlerFixture(t)
	for _, body := range []interface{}{
		map[string]interface{}{},
		map[string]interface{}{"object_type": "invoice", "object_id": "missing", "payment_status": "PAID"},
	} {
		resp := f.do(t, http.MethodPost, "/api/qpay/webhook", body, false)
		if resp.StatusCode != 0 {
			t.Fatalf("webhook must answer success, got %d for %v", resp.StatusCode, body)
		}
	}
}

func TestQPayInvoiceErrorsCarryHTTPStatus(t *testing.T) {
	f := newHandlerFixture(t)

	status, resp := f.doStatus(t, http.MethodPost, "/api/qpay/checkout/invoice", map[string]interface{}{"order_id": 99999}, false)
	if status != http.StatusNotFound || resp.StatusCode != 404 {
		t.Fatalf("unknown order should be 404/404, got %d/%d", status, resp.StatusCode)
	}
	status, resp = f.doStatus(t, http.MethodPost, "/api/qpay/checkout/invoice", map[string]interface{}{}, false)
	if status != http.StatusBadRequest || resp.StatusCode != 400 {
		t.Fatalf("missing order id should be 400/400, got %d/%d", status, resp.StatusCode)
	}

	orderID, _ := createOrder(t, f, constants.PaymentMethodQPay)
	status, resp = f.doStatus(t, http.MethodPost, "/api/qpay/checkout/invoice", map[string]interface{}{"order_id": orderID, "amount": "1"}, false)
	if status != http.StatusBadRequest || resp.StatusCode != 400 {
		t.Fatalf("amount mismatch should be 400/400, got %d/%d", status, resp.StatusCode)
	}
	status, resp = f.doStatus(t, http.MethodPost, "/api/qpay/checkout/invoice", map[string]interface{}{"order_id": orderID}, false)
	if status != http.StatusOK || resp.StatusCode != 0 {
		t.Fatalf("valid invoice should be 200/0, got %d/%d", status, resp.StatusCode)
	}
}

func TestValidateCouponEndpoint(t *testing.T) {
	f := newHandlerFixture(t)
	f.createCoupon(t, "SAVE20", 20, true)

	resp := f.do(t, http.MethodPost, "/api/coupons/validate", map[string]interface{}{"code": "SAVE20", "subtotal": "120000"}, true)
	if resp.StatusCode != 0 {
		t.Fatalf("validate failed: %d %s", resp.StatusCode, resp.Msg)
	}
	resp = f.do(t, http.MethodPost, "/api/coupons/validate", map[string]interface{}{"code": "NOPE", "subtotal": "120000"}, true)
	if resp.StatusCode != 404 && resp.StatusCode != 400 {
		t.Fatalf("unknown coupon should fail, got %d", resp.StatusCode)
	}
}
