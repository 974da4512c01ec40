package admin

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/altan-shop/internal/authz"
	"github.com/altan-shop/internal/cache"
	"github.com/altan-shop/internal/config"
	"github.com/altan-shop/internal/constants"
	"github.com/altan-shop/internal/http/validation"
	"github.com/altan-shop/internal/models"
	"github.com/altan-shop/internal/provider"
	"github.com/altan-shop/internal/repository"
	"github.com/altan-shop/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type envelope struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

type adminFixture struct {
	db     *gorm.DB
	c      *provider.Container
	engine *gin.Engine
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if err := validation.Register(); err != nil {
		t.Fatalf("register validators failed: %v", err)
	}
	dsn := fmt.Sprintf("file:admin_handler_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	_ = cache.InitRedis(nil)

	cfg := &config.Config{
		JWT:   config.JWTConfig{SecretKey: "admin-test-secret-0123456789abcdef", ExpireHours: 2},
		Order: config.OrderConfig{Currency: "MNT", ShippingFee: 5000, FreeShippingThreshold: 100000},
	}
	c := &provider.Container{
		Config:          cfg,
		AdminRepo:       repository.NewAdminRepository(db),
		OrderRepo:       repository.NewOrderRepository(db),
		CouponRepo:      repository.NewCouponRepository(db),
		CouponUsageRepo: repository.NewCouponUsageRepository(db),
		DispatchRepo:    repository.NewDeliveryDispatchRepository(db),
	}
	authzService, err := authz.NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	c.AuthzService = authzService
	c.AuthzAuditService = service.NewAuthzAuditService(repository.NewAuthzAuditLogRepository(db))
	c.AuthService = service.NewAuthService(cfg, c.AdminRepo)
	c.CaptchaService = service.NewCaptchaService(config.CaptchaConfig{})
	c.CouponService = service.NewCouponService(c.CouponRepo, c.CouponUsageRepo)
	c.CouponAdminService = service.NewCouponAdminService(c.CouponRepo, c.CouponUsageRepo)
	c.DeliveryService = service.NewDeliveryService(c.OrderRepo, c.DispatchRepo, nil, nil, nil)
	c.SideEffects = service.NewOrderSideEffects(nil, c.DeliveryService, nil, time.Second)
	c.OrderService = service.NewOrderService(cfg.Order, c.OrderRepo, c.CouponService, c.SideEffects, nil)
	c.ContentService = service.NewContentService(service.ContentRepositories{
		BankAccounts: repository.NewBankAccountRepository(db),
		Banners:      repository.NewBannerRepository(db),
		Partners:     repository.NewPartnerRepository(db),
		Footers:      repository.NewFooterRepository(db),
		GiftSettings: repository.NewGiftSettingRepository(db),
	})

	h := New(c)
	r := gin.New()
	r.POST("/api/admin/login", h.AdminLogin)
	authorized := r.Group("/api/admin", func(ctx *gin.Context) {
		ctx.Set("admin_id", uint(1))
		ctx.Set("admin_username", "admin")
		ctx.Next()
	})
	authorized.GET("/orders", h.GetAdminOrders)
	authorized.GET("/orders/:id", h.GetAdminOrder)
	authorized.PATCH("/orders/:id/status", h.UpdateOrderStatus)
	authorized.PATCH("/orders/:id/payment", h.UpdateOrderPayment)
	authorized.DELETE("/orders/:id", h.DeleteAdminOrder)
	authorized.POST("/coupons", h.CreateCoupon)
	authorized.POST("/coupons/generate", h.GenerateCoupons)
	authorized.GET("/coupons", h.GetAdminCoupons)
	authorized.GET("/dispatches", h.GetAdminDispatches)
	authorized.POST("/authz/roles", h.CreateAuthzRole)
	authorized.POST("/authz/policies", h.GrantAuthzPolicy)
	authorized.PUT("/authz/admins/:id/roles", h.SetAuthzAdminRoles)
	authorized.GET("/authz/admins/:id/roles", h.GetAuthzAdminRoles)
	authorized.GET("/authz/audit-logs", h.ListAuthzAuditLogs)
	h.RegisterContentRoutes(authorized)

	return &adminFixture{db: db, c: c, engine: r}
}

func (f *adminFixture) do(t *testing.T, method, path string, body interface{}) envelope {
	t.Helper()
	var payload []byte
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body failed: %v", err)
		}
		payload = raw
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("%s %s: http status want 200 got %d", method, path, w.Code)
	}
	var resp envelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("%s %s: decode failed: %v (%s)", method, path, err, w.Body.String())
	}
	return resp
}

func (f *adminFixture) createOrder(t *testing.T) *models.Order {
	t.Helper()
	order, err := f.c.OrderService.Create(service.CreateOrderInput{
		UserID:          "guest_1767225600",
		CustomerName:    "Бат",
		PhoneNumber:     "99112233",
		ShippingAddress: "Улаанбаатар, СБД",
		PaymentMethod:   constants.PaymentMethodBank,
		Items: []service.CreateOrderItem{
			{ProductID: "p-1", Name: "Cashmere scarf", Price: models.NewMoneyFromInt(60000), Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	return order
}

func TestAdminLogin(t *testing.T) {
	f := newAdminFixture(t)
	if _, _, err := f.c.AuthService.EnsureAdmin("admin", "Str0ngPass!", true); err != nil {
		t.Fatalf("ensure admin failed: %v", err)
	}

	resp := f.do(t, http.MethodPost, "/api/admin/login", map[string]string{"username": "admin", "password": "Str0ngPass!"})
	if resp.StatusCode != 0 {
		t.Fatalf("login failed: %d %s", resp.StatusCode, resp.Msg)
	}
	var data LoginResponse
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("decode login failed: %v", err)
	}
	if data.Token == "" || data.User["username"] != "admin" || data.User["is_super"] != true {
		t.Fatalf("unexpected login response: %+v", data)
	}
	if _, err := f.c.AuthService.ParseJWT(data.Token); err != nil {
		t.Fatalf("issued token should parse: %v", err)
	}

	resp = f.do(t, http.MethodPost, "/api/admin/login", map[string]string{"username": "admin", "password": "wrong"})
	if resp.StatusCode != 401 {
		t.Fatalf("wrong password should be 401, got %d", resp.StatusCode)
	}
}

func TestAdminOrderPaymentAndStatus(t *testing.T) {
	f := newAdminFixture(t)
	order := f.createOrder(t)
	path := fmt.Sprintf("/api/admin/orders/%d", order.ID)

	resp := f.do(t, http.MethodPatch, path+"/payment", map[string]int{"payment_status": int(constants.PaymentStatusPaid)})
	if resp.StatusCode != 0 {
		t.Fatalf("mark paid failed: %d %s", resp.StatusCode, resp.Msg)
	}
	f.c.SideEffects.Wait()
	resp = f.do(t, http.MethodPatch, path+"/payment", map[string]int{"payment_status": int(constants.PaymentStatusPending)})
	if resp.StatusCode != 400 {
		t.Fatalf("paid -> pending should be rejected, got %d", resp.StatusCode)
	}
	resp = f.do(t, http.MethodPatch, path+"/payment", map[string]int{"payment_status": 42})
	if resp.StatusCode != 400 {
		t.Fatalf("unknown payment status should be 400, got %d", resp.StatusCode)
	}
	resp = f.do(t, http.MethodPatch, path+"/status", map[string]int{"order_status": 99})
	if resp.StatusCode != 400 {
		t.Fatalf("unknown order status should be 400, got %d", resp.StatusCode)
	}

	resp = f.do(t, http.MethodGet, path, nil)
	if resp.StatusCode != 0 {
		t.Fatalf("get order failed: %d", resp.StatusCode)
	}
	var detail struct {
		Order models.Order `json:"order"`
	}
	_ = json.Unmarshal(resp.Data, &detail)
	got := detail.Order
	if got.PaymentStatus != constants.PaymentStatusPaid || got.PaidAt == nil {
		t.Fatalf("order should be paid with paid_at, got %+v", got)
	}

	resp = f.do(t, http.MethodDelete, path, nil)
	if resp.StatusCode != 0 {
		t.Fatalf("delete failed: %d", resp.StatusCode)
	}
	resp = f.do(t, http.MethodGet, path, nil)
	if resp.StatusCode != 404 {
		t.Fatalf("deleted order should be 404, got %d", resp.StatusCode)
	}
}

func TestAdminCouponsCreateAndGenerate(t *testing.T) {
	f := newAdminFixture(t)

	resp := f.do(t, http.MethodPost, "/api/admin/coupons", map[string]interface{}{
		"code":                "save20",
		"discount_percentage": "20",
		"is_manual":           true,
	})
	if resp.StatusCode != 0 {
		t.Fatalf("create coupon failed: %d %s", resp.StatusCode, resp.Msg)
	}
	resp = f.do(t, http.MethodPost, "/api/admin/coupons", map[string]interface{}{
		"code":                "SAVE20",
		"discount_percentage": "20",
	})
	if resp.StatusCode != 400 {
		t.Fatalf("duplicate code should be 400, got %d", resp.StatusCode)
	}
	resp = f.do(t, http.MethodPost, "/api/admin/coupons", map[string]interface{}{
		"code":                "TOOMUCH",
		"discount_percentage": "150",
	})
	if resp.StatusCode != 400 {
		t.Fatalf("percentage over 100 should be 400, got %d", resp.StatusCode)
	}

	resp = f.do(t, http.MethodPost, "/api/admin/coupons/generate", map[string]interface{}{
		"count":               3,
		"discount_percentage": "10",
	})
	if resp.StatusCode != 0 {
		t.Fatalf("generate failed: %d %s", resp.StatusCode, resp.Msg)
	}
	var generated []models.Coupon
	_ = json.Unmarshal(resp.Data, &generated)
	if len(generated) != 3 {
		t.Fatalf("expected 3 generated coupons, got %d", len(generated))
	}
	for _, coupon := range generated {
		if coupon.IsManual {
			t.Fatalf("generated coupons must be system coupons: %+v", coupon)
		}
	}

	resp = f.do(t, http.MethodGet, "/api/admin/coupons?is_manual=false", nil)
	var listed []models.Coupon
	_ = json.Unmarshal(resp.Data, &listed)
	if resp.StatusCode != 0 || len(listed) != 3 {
		t.Fatalf("unexpected system coupon list: %d %d", resp.StatusCode, len(listed))
	}
}

func TestAdminContentPartialUpdate(t *testing.T) {
	f := newAdminFixture(t)

	resp := f.do(t, http.MethodPost, "/api/admin/bank-accounts", map[string]interface{}{
		"id":             99,
		"bank_name":      "Хаан банк",
		"account_name":   "Altan LLC",
		"account_number": "5000123456",
		"is_active":      true,
	})
	if resp.StatusCode != 0 {
		t.Fatalf("create bank account failed: %d %s", resp.StatusCode, resp.Msg)
	}
	var created models.BankAccount
	_ = json.Unmarshal(resp.Data, &created)
	if created.ID == 0 || created.ID == 99 {
		t.Fatalf("client supplied id must be ignored, got %d", created.ID)
	}

	path := fmt.Sprintf("/api/admin/bank-accounts/%d", created.ID)
	resp = f.do(t, http.MethodPut, path, map[string]interface{}{"is_active": false})
	if resp.StatusCode != 0 {
		t.Fatalf("update failed: %d %s", resp.StatusCode, resp.Msg)
	}
	var updated models.BankAccount
	_ = json.Unmarshal(resp.Data, &updated)
	if updated.IsActive || updated.AccountNumber != "5000123456" || updated.BankName != "Хаан банк" {
		t.Fatalf("partial update should keep other fields: %+v", updated)
	}

	resp = f.do(t, http.MethodPost, "/api/admin/bank-accounts", map[string]interface{}{"bank_name": "Голомт"})
	if resp.StatusCode != 400 {
		t.Fatalf("incomplete bank account should be 400, got %d", resp.StatusCode)
	}

	resp = f.do(t, http.MethodDelete, path, nil)
	if resp.StatusCode != 0 {
		t.Fatalf("delete failed: %d", resp.StatusCode)
	}
	resp = f.do(t, http.MethodGet, path, nil)
	if resp.StatusCode != 404 {
		t.Fatalf("deleted content should be 404, got %d", resp.StatusCode)
	}
}

func TestAdminDispatchListEmpty(t *testing.T) {
	f := newAdminFixture(t)
	resp := f.do(t, http.MethodGet, "/api/admin/dispatches", nil)
	if resp.StatusCode != 0 {
		t.Fatalf("list dispatches failed: %d %s", resp.StatusCode, resp.Msg)
	}
}

func TestAdminAuthzChangesAreAudited(t *testing.T) {
	f := newAdminFixture(t)

	if resp := f.do(t, http.MethodPost, "/api/admin/authz/roles", map[string]string{"role": "warehouse"}); resp.StatusCode != 0 {
		t.Fatalf("create role failed: %d %s", resp.StatusCode, resp.Msg)
	}
	resp := f.do(t, http.MethodPost, "/api/admin/authz/policies", map[string]string{
		"role":   "warehouse",
		"object": "/admin/dispatches",
		"action": "GET",
	})
	if resp.StatusCode != 0 {
		t.Fatalf("grant policy failed: %d %s", resp.StatusCode, resp.Msg)
	}
	if resp := f.do(t, http.MethodPut, "/api/admin/authz/admins/5/roles", map[string][]string{"roles": {"warehouse"}}); resp.StatusCode != 0 {
		t.Fatalf("set admin roles failed: %d %s", resp.StatusCode, resp.Msg)
	}

	resp = f.do(t, http.MethodGet, "/api/admin/authz/audit-logs", nil)
	if resp.StatusCode != 0 {
		t.Fatalf("list audit logs failed: %d %s", resp.StatusCode, resp.Msg)
	}
	var logs []models.AuthzAuditLog
	if err := json.Unmarshal(resp.Data, &logs); err != nil {
		t.Fatalf("decode audit logs failed: %v", err)
	}
	if len(logs) != 3 {
		t.Fatalf("expected 3 audit records, got %d", len(logs))
	}
	latest := logs[0]
	if latest.Action != service.AuthzAuditAdminRolesSet || latest.TargetAdminID == nil || *latest.TargetAdminID != 5 {
		t.Fatalf("unexpected latest record: %+v", latest)
	}
	if latest.OperatorAdminID != 1 || latest.OperatorUsername != "admin" || latest.Method != http.MethodPut {
		t.Fatalf("operator not captured: %+v", latest)
	}

	resp = f.do(t, http.MethodGet, "/api/admin/authz/audit-logs?action=policy_grant", nil)
	_ = json.Unmarshal(resp.Data, &logs)
	if len(logs) != 1 || logs[0].Object != "/admin/dispatches" || logs[0].Detail["policy_action"] != "GET" {
		t.Fatalf("unexpected filtered records: %+v", logs)
	}
}
