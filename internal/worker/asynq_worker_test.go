package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/altan-shop/internal/config"
	"github.com/altan-shop/internal/models"
	"github.com/altan-shop/internal/provider"
	"github.com/altan-shop/internal/queue"
	"github.com/altan-shop/internal/repository"
	"github.com/altan-shop/internal/service"

	"github.com/glebarez/sqlite"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

func setupWorkerTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:worker_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
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

func newTask(t *testing.T, taskType string, payload interface{}) *asynq.Task {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload failed: %v", err)
	}
	return asynq.NewTask(taskType, body)
}

func TestHandleAddressCaptureSavesUserAddress(t *testing.T) {
	db := setupWorkerTestDB(t)
	addressRepo := repository.NewAddressRepository(db)
	consumer := NewConsumer(&provider.Container{
		OrderRepo:      repository.NewOrderRepository(db),
		AddressRepo:    addressRepo,
		AddressService: service.NewAddressService(addressRepo, nil),
	})

	order := &models.Order{
		OrderNumber:     "ORD20260101000001",
		UserID:          "7",
		CustomerName:    "Бат",
		PhoneNumber:     "99112233",
		ShippingAddress: "Улаанбаатар, СБД, 1-р хороо, 5-р байр",
		City:            "Улаанбаатар",
		District:        "СБД",
		Khoroo:          "1-р хороо",
		AddressLine:     "5-р байр",
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	task := newTask(t, queue.TaskAddressCapture, queue.AddressCapturePayload{OrderID: order.ID})
	if err := consumer.handleAddressCapture(context.Background(), task); err != nil {
		t.Fatalf("address capture failed: %v", err)
	}
	rows, err := consumer.AddressService.List(7)
	if err != nil || len(rows) != 1 {
		t.Fatalf("expected one captured address, got %+v %v", rows, err)
	}
	if !rows[0].IsDefault {
		t.Fatalf("first captured address should be default")
	}

	// 重复任务不产生重复地址
	if err := consumer.handleAddressCapture(context.Background(), task); err != nil {
		t.Fatalf("repeated capture failed: %v", err)
	}
	rows, _ = consumer.AddressService.List(7)
	if len(rows) != 1 {
		t.Fatalf("duplicate address created: %d", len(rows))
	}
}

func TestHandleAddressCaptureSkipsGuestAndMissingOrder(t *testing.T) {
	db := setupWorkerTestDB(t)
	addressRepo := repository.NewAddressRepository(db)
	consumer := NewConsumer(&provider.Container{
		OrderRepo:      repository.NewOrderRepository(db),
		AddressRepo:    addressRepo,
		AddressService: service.NewAddressService(addressRepo, nil),
	})

	guest := &models.Order{
		OrderNumber:     "ORD20260101000002",
		UserID:          "guest_1767225600",
		CustomerName:    "Зочин",
		PhoneNumber:     "88112233",
		ShippingAddress: "Улаанбаатар, БЗД",
		City:            "Улаанбаатар",
		AddressLine:     "БЗД",
	}
	if err := db.Create(guest).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	for _, id := range []uint{guest.ID, 9999} {
		task := newTask(t, queue.TaskAddressCapture, queue.AddressCapturePayload{OrderID: id})
		if err := consumer.handleAddressCapture(context.Background(), task); err != nil {
			t.Fatalf("order %d: capture should be skipped silently, got %v", id, err)
		}
	}
	var count int64
	db.Model(&models.Address{}).Count(&count)
	if count != 0 {
		t.Fatalf("no address should be saved, got %d", count)
	}
}

func TestHandlersRejectBrokenPayload(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})
	broken := asynq.NewTask(queue.TaskDeliveryDispatch, []byte("{"))
	if err := consumer.handleDeliveryDispatch(context.Background(), broken); err == nil {
		t.Fatalf("broken dispatch payload should return error")
	}
	if err := consumer.handleOrderPaymentTimeout(context.Background(), asynq.NewTask(queue.TaskOrderPaymentTimeout, []byte("x"))); err == nil {
		t.Fatalf("broken timeout payload should return error")
	}

	empty := newTask(t, queue.TaskDeliveryDispatch, queue.DeliveryDispatchPayload{})
	if err := consumer.handleDeliveryDispatch(context.Background(), empty); err != nil {
		t.Fatalf("zero order id should be skipped, got %v", err)
	}
	timeout := newTask(t, queue.TaskOrderPaymentTimeout, queue.OrderPaymentTimeoutPayload{OrderID: 3})
	if err := consumer.handleOrderPaymentTimeout(context.Background(), timeout); err != nil {
		t.Fatalf("missing payment service should be skipped, got %v", err)
	}
}

func TestReconcileSettingsDefaults(t *testing.T) {
	interval, batch := reconcileSettings(config.QPayConfig{})
	if interval != defaultReconcileInterval || batch != defaultReconcileBatchSize {
		t.Fatalf("unexpected defaults: %v %d", interval, batch)
	}
	interval, batch = reconcileSettings(config.QPayConfig{ReconcileIntervalSeconds: 30, ReconcileBatchSize: 10})
	if interval != 30*time.Second || batch != 10 {
		t.Fatalf("configured values ignored: %v %d", interval, batch)
	}
}

func TestServiceWithoutQueueStopsOnCancel(t *testing.T) {
	svc, err := NewService(&config.Config{}, NewConsumer(&provider.Container{}))
	if err != nil {
		t.Fatalf("new service failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Start(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("start should return nil after cancel, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("service did not stop after cancel")
	}
	if err := svc.Stop(context.Background()); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
}
