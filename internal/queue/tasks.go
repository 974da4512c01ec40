package queue

import (
	"encoding/json"

	"github.com/altan-shop/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskDeliveryDispatch 快递派单任务
	TaskDeliveryDispatch = constants.TaskDeliveryDispatch
	// TaskAddressCapture 下单地址入簿任务
	TaskAddressCapture = constants.TaskAddressCapture
	// TaskOrderPaymentTimeout 支付超时任务
	TaskOrderPaymentTimeout = constants.TaskOrderPaymentTimeout
)

// DeliveryDispatchPayload 派单任务载荷
type DeliveryDispatchPayload struct {
	OrderID uint   `json:"order_id"`
	Trigger string `json:"trigger"`
}

// AddressCapturePayload 地址入簿任务载荷
type AddressCapturePayload struct {
	OrderID uint `json:"order_id"`
}

// OrderPaymentTimeoutPayload 支付超时任务载荷
type OrderPaymentTimeoutPayload struct {
	OrderID uint `json:"order_id"`
}

func newTask(taskType string, payload interface{}) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, body), nil
}

// NewDeliveryDispatchTask 创建派单任务
func NewDeliveryDispatchTask(payload DeliveryDispatchPayload) (*asynq.Task, error) {
	return newTask(TaskDeliveryDispatch, payload)
}

// NewAddressCaptureTask 创建地址入簿任务
func NewAddressCaptureTask(payload AddressCapturePayload) (*asynq.Task, error) {
	return newTask(TaskAddressCapture, payload)
}

// NewOrderPaymentTimeoutTask 创建支付超时任务
func NewOrderPaymentTimeoutTask(payload OrderPaymentTimeoutPayload) (*asynq.Task, error) {
	return newTask(TaskOrderPaymentTimeout, payload)
}
