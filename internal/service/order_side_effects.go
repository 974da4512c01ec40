package service

import (
	"context"
	"sync"
	"time"

	"github.com/altan-shop/internal/constants"
	"github.com/altan-shop/internal/logger"
	"github.com/altan-shop/internal/models"
	"github.com/altan-shop/internal/queue"
)

const defaultSideEffectTimeout = 15 * time.Second

// OrderSideEffects 订单的非关键副作用（地址入簿、快递派单）。
// 队列可用时投递 asynq 任务，否则在独立 goroutine 中带超时执行；错误只记日志。
type OrderSideEffects struct {
	queueClient *queue.Client
	delivery    *DeliveryService
	address     *AddressService
	timeout     time.Duration
	wg          sync.WaitGroup
}

// NewOrderSideEffects 创建副作用调度器
func NewOrderSideEffects(queueClient *queue.Client, delivery *DeliveryService, address *AddressService, timeout time.Duration) *OrderSideEffects {
	if timeout <= 0 {
		timeout = defaultSideEffectTimeout
	}
	return &OrderSideEffects{
		queueClient: queueClient,
		delivery:    delivery,
		address:     address,
		timeout:     timeout,
	}
}

// AfterInvoice 发票生成 / 下载后：记录地址并派单
func (e *OrderSideEffects) AfterInvoice(order *models.Order, trigger string) {
	if e == nil || order == nil {
		return
	}
	e.captureAddress(order)
	e.dispatch(order, trigger)
}

// AfterPayment 支付确认后派单
func (e *OrderSideEffects) AfterPayment(order *models.Order) {
	if e == nil || order == nil {
		return
	}
	e.dispatch(order, constants.DispatchTriggerPaymentConfirmed)
}

// Wait 等待进程内副作用执行完毕（关闭服务与测试使用）
func (e *OrderSideEffects) Wait() {
	if e == nil {
		return
	}
	e.wg.Wait()
}

func (e *OrderSideEffects) captureAddress(order *models.Order) {
	if e.address == nil || order.IsGuest() || order.IsPickup {
		return
	}
	if e.queueClient.Enabled() {
		err := e.queueClient.EnqueueAddressCapture(queue.AddressCapturePayload{OrderID: order.ID})
		if err == nil {
			return
		}
		logger.Warnw("order_enqueue_address_capture_failed", "order_id", order.ID, "error", err)
	}
	snapshot := *order
	e.goWithTimeout("address_capture", order.ID, func(context.Context) error {
		_, err := e.address.SaveFromOrder(&snapshot)
		return err
	})
}

func (e *OrderSideEffects) dispatch(order *models.Order, trigger string) {
	if e.delivery == nil || !e.delivery.TriggerEnabled(trigger) {
		return
	}
	if e.queueClient.Enabled() {
		err := e.queueClient.EnqueueDeliveryDispatch(queue.DeliveryDispatchPayload{OrderID: order.ID, Trigger: trigger})
		if err == nil {
			return
		}
		logger.Warnw("order_enqueue_delivery_dispatch_failed", "order_id", order.ID, "trigger", trigger, "error", err)
	}
	orderID := order.ID
	e.goWithTimeout("delivery_dispatch", orderID, func(ctx context.Context) error {
		_, err := e.delivery.NotifyByID(ctx, orderID, trigger)
		return err
	})
}

func (e *OrderSideEffects) goWithTimeout(name string, orderID uint, fn func(ctx context.Context) error) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.Errorw("order_side_effect_panic", "side_effect", name, "order_id", orderID, "panic", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			logger.Warnw("order_side_effect_failed", "side_effect", name, "order_id", orderID, "error", err)
		}
	}()
}
