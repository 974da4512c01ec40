package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/altan-shop/internal/delivery/echuchu"
	"github.com/altan-shop/internal/models"
	"github.com/altan-shop/internal/payment/qpay"
	"github.com/altan-shop/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	return db
}

func createTestCoupon(t *testing.T, db *gorm.DB, code string, pct int64, manual bool) *models.Coupon {
	t.Helper()
	coupon := &models.Coupon{
		Code:               code,
		DiscountPercentage: models.NewMoneyFromInt(pct),
		IsManual:           manual,
		IsActive:           true,
	}
	if err := db.Create(coupon).Error; err != nil {
		t.Fatalf("create coupon failed: %v", err)
	}
	return coupon
}

type fakeCourier struct {
	mu      sync.Mutex
	calls   int
	keys    []string
	failErr error
}

func (f *fakeCourier) CreateDelivery(ctx context.Context, parcel echuchu.Parcel) (*echuchu.CreateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.keys = append(f.keys, parcel.IdempotencyKey)
	if f.failErr != nil {
		return nil, f.failErr
	}
	return &echuchu.CreateResult{DeliveryID: fmt.Sprintf("d-%d", f.calls), TrackingNo: fmt.Sprintf("EC%03d", f.calls)}, nil
}

func (f *fakeCourier) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeQPay struct {
	mu        sync.Mutex
	paid      bool
	checks    int
	invoices  int
	cancelled []string
	checkErr  error
}

func (f *fakeQPay) GetToken(ctx context.Context) (string, error) {
	return "tok", nil
}

func (f *fakeQPay) CreateInvoice(ctx context.Context, in qpay.InvoiceRequest) (*qpay.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invoices++
	return &qpay.Invoice{
		InvoiceID: fmt.Sprintf("inv-%s", in.SenderInvoiceNo),
		QRText:    "000201",
		QRImage:   "png",
		ShortURL:  "https://s.qpay.mn/" + in.SenderInvoiceNo,
		URLs: []qpay.BankURL{
			{Name: "Khan bank", Link: "khanbank://q?qPay_QRcode=000201"},
			{Name: "Golomt bank", Link: "golomtbank://q?qPay_QRcode=000201"},
		},
	}, nil
}

func (f *fakeQPay) CheckPayment(ctx context.Context, invoiceID string) (*qpay.CheckResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks++
	if f.checkErr != nil {
		return nil, f.checkErr
	}
	status := "NEW"
	if f.paid {
		status = qpay.StatusPaid
	}
	return &qpay.CheckResult{Count: 1, Rows: []qpay.PaymentRow{{PaymentID: "p-1", PaymentStatus: status}}}, nil
}

func (f *fakeQPay) CancelInvoice(ctx context.Context, invoiceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, invoiceID)
	return nil
}

type serviceFixture struct {
	db          *gorm.DB
	orderRepo   *repository.GormOrderRepository
	dispatch    *repository.GormDeliveryDispatchRepository
	courier     *fakeCourier
	gateway     *fakeQPay
	coupons     *CouponService
	addresses   *AddressService
	delivery    *DeliveryService
	sideEffects *OrderSideEffects
	orders      *OrderService
	payments    *PaymentService
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	db := setupServiceTestDB(t)
	f := &serviceFixture{
		db:        db,
		orderRepo: repository.NewOrderRepository(db),
		dispatch:  repository.NewDeliveryDispatchRepository(db),
		courier:   &fakeCourier{},
		gateway:   &fakeQPay{},
	}
	f.coupons = NewCouponService(repository.NewCouponRepository(db), repository.NewCouponUsageRepository(db))
	f.addresses = NewAddressService(repository.NewAddressRepository(db), nil)
	f.delivery = NewDeliveryService(f.orderRepo, f.dispatch, f.courier, nil, nil)
	f.sideEffects = NewOrderSideEffects(nil, f.delivery, f.addresses, 5*time.Second)
	f.orders = NewOrderService(testOrderConfig(), f.orderRepo, f.coupons, f.sideEffects, nil)
	f.payments = NewPaymentService(PaymentServiceOptions{
		OrderRepo:     f.orderRepo,
		Gateway:       f.gateway,
		SideEffects:   f.sideEffects,
		ExpireMinutes: 30,
	})
	return f
}
