package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/altan-shop/internal/constants"
	"github.com/altan-shop/internal/models"
	"github.com/altan-shop/internal/payment/qpay"
)

func createInvoicedOrder(t *testing.T, f *serviceFixture) (*models.Order, *InvoiceResult) {
	t.Helper()
	order, err := f.orders.Create(baseOrderInput("7"))
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	invoice, err := f.payments.CreateInvoice(context.Background(), CreateInvoiceInput{OrderID: order.ID})
	if err != nil {
		t.Fatalf("create invoice failed: %v", err)
	}
	f.sideEffects.Wait()
	return order, invoice
}

func TestCreateInvoiceRequiresExactAmount(t *testing.T) {
	f := newServiceFixture(t)
	order, err := f.orders.Create(baseOrderInput("7"))
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	wrong := models.NewMoneyFromInt(1000)
	if _, err := f.payments.CreateInvoice(context.Background(), CreateInvoiceInput{OrderID: order.ID, Amount: &wrong}); !errors.Is(err, ErrInvoiceAmountMismatch) {
		t.Fatalf("expected amount mismatch, got %v", err)
	}
	exact := order.GrandTotal
	invoice, err := f.payments.CreateInvoice(context.Background(), CreateInvoiceInput{OrderID: order.ID, Amount: &exact})
	if err != nil {
		t.Fatalf("create invoice failed: %v", err)
	}
	f.sideEffects.Wait()
	if invoice.InvoiceID == "" || invoice.Reused {
		t.Fatalf("unexpected invoice: %+v", invoice)
	}

	if invoice.ShortURL == "" || len(invoice.URLs) != 2 {
		t.Fatalf("new invoice should carry deep links: %+v", invoice)
	}

	again, err := f.payments.CreateInvoice(context.Background(), CreateInvoiceInput{OrderID: order.ID})
	if err != nil || !again.Reused || again.InvoiceID != invoice.InvoiceID {
		t.Fatalf("second call should reuse invoice: %+v %v", again, err)
	}
	if again.ShortURL != invoice.ShortURL || len(again.URLs) != 2 || again.URLs[0].Link != "khanbank://q?qPay_QRcode=000201" {
		t.Fatalf("reused invoice lost deep links: %+v", again)
	}
	if f.gateway.invoices != 1 {
		t.Fatalf("gateway should be called once, got %d", f.gateway.invoices)
	}

	stored, _ := f.orderRepo.GetByID(order.ID)
	if stored.InvoiceID != invoice.InvoiceID || stored.QRImage == "" {
		t.Fatalf("invoice not persisted: %+v", stored)
	}
	var addresses []models.Address
	f.db.Find(&addresses)
	if len(addresses) != 1 || addresses[0].UserID != 7 || !addresses[0].IsDefault {
		t.Fatalf("address should be captured for signed-in user: %+v", addresses)
	}
	if f.courier.Calls() != 1 {
		t.Fatalf("invoice creation should dispatch once, got %d", f.courier.Calls())
	}
}

func TestCreateInvoiceRejectsNonQPayOrder(t *testing.T) {
	f := newServiceFixture(t)
	input := baseOrderInput("7")
	input.PaymentMethod = constants.PaymentMethodBank
	order, err := f.orders.Create(input)
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if _, err := f.payments.CreateInvoice(context.Background(), CreateInvoiceInput{OrderID: order.ID}); !errors.Is(err, ErrNotQPayOrder) {
		t.Fatalf("expected not qpay order, got %v", err)
	}

	disabled := NewPaymentService(PaymentServiceOptions{OrderRepo: f.orderRepo})
	if _, err := disabled.CreateInvoice(context.Background(), CreateInvoiceInput{OrderID: order.ID}); !errors.Is(err, ErrPaymentProviderNotConfigured) {
		t.Fatalf("expected provider not configured, got %v", err)
	}
}

func TestCheckStatusFlipsPaymentOnce(t *testing.T) {
	f := newServiceFixture(t)
	sqlDB, _ := f.db.DB()
	sqlDB.SetMaxOpenConns(1)
	order, invoice := createInvoicedOrder(t, f)

	pending, err := f.payments.CheckStatus(context.Background(), invoice.InvoiceID)
	if err != nil || pending.Paid || pending.PaymentStatus != constants.PaymentStatusPending {
		t.Fatalf("unpaid invoice should stay pending: %+v %v", pending, err)
	}

	f.gateway.paid = true
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.payments.CheckStatus(context.Background(), invoice.InvoiceID); err != nil {
				t.Errorf("check status failed: %v", err)
			}
		}()
	}
	wg.Wait()
	f.sideEffects.Wait()

	stored, _ := f.orderRepo.GetByID(order.ID)
	if stored.PaymentStatus != constants.PaymentStatusPaid || stored.PaidAt == nil {
		t.Fatalf("order should be paid: %+v", stored)
	}
	var dispatches int64
	f.db.Model(&models.DeliveryDispatch{}).Count(&dispatches)
	if dispatches != 1 || f.courier.Calls() != 1 {
		t.Fatalf("courier must be called once, dispatches=%d calls=%d", dispatches, f.courier.Calls())
	}

	checks := f.gateway.checks
	if _, err := f.payments.CheckStatus(context.Background(), invoice.InvoiceID); err != nil {
		t.Fatalf("repeat check failed: %v", err)
	}
	if f.gateway.checks != checks {
		t.Fatalf("paid order should not call gateway again")
	}
}

func TestHandleWebhook(t *testing.T) {
	f := newServiceFixture(t)
	_, invoice := createInvoicedOrder(t, f)

	result, err := f.payments.HandleWebhook(context.Background(), &qpay.WebhookPayload{
		ObjectType:    qpay.ObjectTypeInvoice,
		ObjectID:      invoice.InvoiceID,
		PaymentStatus: qpay.StatusPaid,
	})
	if err != nil {
		t.Fatalf("webhook failed: %v", err)
	}
	if result.Paid {
		t.Fatalf("paid webhook must be verified against gateway")
	}

	result, err = f.payments.HandleWebhook(context.Background(), &qpay.WebhookPayload{
		ObjectType:    qpay.ObjectTypeInvoice,
		ObjectID:      invoice.InvoiceID,
		PaymentStatus: constants.QPayStatusCancelled,
	})
	if err != nil || result.PaymentStatus != constants.PaymentStatusFailed {
		t.Fatalf("cancelled webhook should fail payment: %+v %v", result, err)
	}
	if len(f.gateway.cancelled) != 1 || f.gateway.cancelled[0] != invoice.InvoiceID {
		t.Fatalf("failed invoice should be cancelled at the gateway: %v", f.gateway.cancelled)
	}

	if _, err := f.payments.HandleWebhook(context.Background(), &qpay.WebhookPayload{ObjectType: qpay.ObjectTypeInvoice, ObjectID: "missing"}); !errors.Is(err, ErrInvoiceNotFound) {
		t.Fatalf("expected invoice not found, got %v", err)
	}
}

func TestExpireOrderAndReconcile(t *testing.T) {
	f := newServiceFixture(t)
	expired, expiredInvoice := createInvoicedOrder(t, f)
	fresh, _ := createInvoicedOrder(t, f)
	f.db.Model(&models.Order{}).Where("id = ?", expired.ID).Update("created_at", time.Now().Add(-time.Hour))

	result, err := f.payments.ReconcilePending(context.Background(), 0, 10)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if result.Checked != 2 || result.Expired != 1 || result.Paid != 0 {
		t.Fatalf("unexpected reconcile result: %+v", result)
	}
	stored, _ := f.orderRepo.GetByID(expired.ID)
	if stored.PaymentStatus != constants.PaymentStatusFailed {
		t.Fatalf("expired order should fail: %s", stored.PaymentStatus)
	}
	if len(f.gateway.cancelled) != 1 || f.gateway.cancelled[0] != expiredInvoice.InvoiceID {
		t.Fatalf("expired invoice should be cancelled: %v", f.gateway.cancelled)
	}

	f.gateway.paid = true
	if err := f.payments.ExpireOrder(context.Background(), fresh.ID); err != nil {
		t.Fatalf("expire failed: %v", err)
	}
	stored, _ = f.orderRepo.GetByID(fresh.ID)
	if stored.PaymentStatus != constants.PaymentStatusPaid {
		t.Fatalf("paid at the last moment should be honored: %s", stored.PaymentStatus)
	}
	f.sideEffects.Wait()
}

func TestCancelledWebhookHonorsGatewayPayment(t *testing.T) {
	f := newServiceFixture(t)
	order, invoice := createInvoicedOrder(t, f)
	cancelled := &qpay.WebhookPayload{
		ObjectType:    qpay.ObjectTypeInvoice,
		ObjectID:      invoice.InvoiceID,
		PaymentStatus: constants.QPayStatusCancelled,
	}

	f.gateway.checkErr = errors.New("gateway down")
	if _, err := f.payments.HandleWebhook(context.Background(), cancelled); !errors.Is(err, ErrPaymentGatewayFailed) {
		t.Fatalf("unverifiable cancel should report gateway failure, got %v", err)
	}
	stored, _ := f.orderRepo.GetByID(order.ID)
	if stored.PaymentStatus != constants.PaymentStatusPending {
		t.Fatalf("unverified cancel must not touch the order: %s", stored.PaymentStatus)
	}

	f.gateway.checkErr = nil
	f.gateway.paid = true
	result, err := f.payments.HandleWebhook(context.Background(), cancelled)
	if err != nil || !result.Paid || result.PaymentStatus != constants.PaymentStatusPaid {
		t.Fatalf("gateway says paid, order must be paid: %+v %v", result, err)
	}
	f.sideEffects.Wait()
	if len(f.gateway.cancelled) != 0 {
		t.Fatalf("paid invoice must not be cancelled: %v", f.gateway.cancelled)
	}
	if f.courier.Calls() != 1 {
		t.Fatalf("delivery must be sent exactly once, got %d", f.courier.Calls())
	}

	checks := f.gateway.checks
	result, err = f.payments.HandleWebhook(context.Background(), cancelled)
	if err != nil || result.PaymentStatus != constants.PaymentStatusPaid {
		t.Fatalf("late cancel must not change a paid order: %+v %v", result, err)
	}
	if f.gateway.checks != checks {
		t.Fatalf("settled order should not call the gateway again")
	}
}

func TestCloseUnpaidReturnsCurrentStateWhenRaceLost(t *testing.T) {
	f := newServiceFixture(t)
	order, _ := createInvoicedOrder(t, f)
	stale, _ := f.orderRepo.GetByID(order.ID)

	paidAt := time.Now()
	if _, err := f.orderRepo.MarkPaymentStatus(order.ID, constants.PaymentStatusPending, constants.PaymentStatusPaid, map[string]interface{}{"paid_at": paidAt}); err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}
	result, err := f.payments.closeUnpaid(context.Background(), stale, "qpay_payment_failed")
	if err != nil {
		t.Fatalf("close unpaid failed: %v", err)
	}
	if result.PaymentStatus != constants.PaymentStatusPaid || !result.Paid || result.PaidAt == nil {
		t.Fatalf("result should reflect the stored order, got %+v", result)
	}
}
