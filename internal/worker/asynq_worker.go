package worker

import (
	"context"
	"encoding/json"

	"github.com/altan-shop/internal/logger"
	"github.com/altan-shop/internal/provider"
	"github.com/altan-shop/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskDeliveryDispatch, c.handleDeliveryDispatch)
	mux.HandleFunc(queue.TaskAddressCapture, c.handleAddressCapture)
	mux.HandleFunc(queue.TaskOrderPaymentTimeout, c.handleOrderPaymentTimeout)
}

func (c *Consumer) handleDeliveryDispatch(ctx context.Context, task *asynq.Task) error {
	if c == nil || c.Container == nil || task == nil {
		logger.Debugw("worker_delivery_dispatch_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.DeliveryDispatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_delivery_dispatch_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_delivery_dispatch_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	if c.DeliveryService == nil {
		logger.Warnw("worker_delivery_dispatch_skip_service_nil", "order_id", payload.OrderID)
		return nil
	}
	record, err := c.DeliveryService.NotifyByID(ctx, payload.OrderID, payload.Trigger)
	if err != nil {
		// 已落库的失败记录由后台手动重试，不再交给队列重放
		if record != nil {
			logger.Warnw("worker_delivery_dispatch_failed_recorded",
				"order_id", payload.OrderID,
				"trigger", payload.Trigger,
				"dispatch_id", record.ID,
				"error", err,
			)
			return nil
		}
		logger.Warnw("worker_delivery_dispatch_failed", "order_id", payload.OrderID, "trigger", payload.Trigger, "error", err)
		return err
	}
	return nil
}

func (c *Consumer) handleAddressCapture(_ context.Context, task *asynq.Task) error {
	if c == nil || c.Container == nil || task == nil {
		logger.Debugw("worker_address_capture_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.AddressCapturePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_address_capture_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 || c.OrderRepo == nil || c.AddressService == nil {
		logger.Debugw("worker_address_capture_skip", "order_id", payload.OrderID)
		return nil
	}
	order, err := c.OrderRepo.GetByID(payload.OrderID)
	if err != nil {
		logger.Warnw("worker_address_capture_fetch_order_failed", "order_id", payload.OrderID, "error", err)
		return err
	}
	if order == nil {
		logger.Debugw("worker_address_capture_skip_order_not_found", "order_id", payload.OrderID)
		return nil
	}
	if _, err := c.AddressService.SaveFromOrder(order); err != nil {
		logger.Warnw("worker_address_capture_save_failed", "order_id", order.ID, "user_id", order.UserID, "error", err)
		return err
	}
	return nil
}

func (c *Consumer) handleOrderPaymentTimeout(ctx context.Context, task *asynq.Task) error {
	if c == nil || c.Container == nil || task == nil {
		logger.Debugw("worker_order_payment_timeout_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OrderPaymentTimeoutPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_order_payment_timeout_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 || c.PaymentService == nil {
		logger.Debugw("worker_order_payment_timeout_skip", "order_id", payload.OrderID)
		return nil
	}
	if err := c.PaymentService.ExpireOrder(ctx, payload.OrderID); err != nil {
		logger.Warnw("worker_order_payment_timeout_failed", "order_id", payload.OrderID, "error", err)
		return err
	}
	return nil
}
