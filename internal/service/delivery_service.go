package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/altan-shop/internal/constants"
	"github.com/altan-shop/internal/delivery/echuchu"
	"github.com/altan-shop/internal/logger"
	"github.com/altan-shop/internal/models"
	"github.com/altan-shop/internal/repository"
)

// CourierClient 快递接口
type CourierClient interface {
	CreateDelivery(ctx context.Context, parcel echuchu.Parcel) (*echuchu.CreateResult, error)
}

// DeliveryService 快递派单服务
type DeliveryService struct {
	orderRepo      repository.OrderRepository
	dispatchRepo   repository.DeliveryDispatchRepository
	courier        CourierClient
	triggers       map[string]bool
	pickupKeywords []string
	staleAfter     time.Duration
}

// defaultDispatchStaleAfter pending 记录超过该时长未更新即视为卡住
const defaultDispatchStaleAfter = 15 * time.Second

// NewDeliveryService 创建派单服务，courier 为空表示未启用快递对接
func NewDeliveryService(orderRepo repository.OrderRepository, dispatchRepo repository.DeliveryDispatchRepository, courier CourierClient, triggers, pickupKeywords []string) *DeliveryService {
	allowed := make(map[string]bool, len(triggers))
	for _, trigger := range triggers {
		if trigger = strings.TrimSpace(trigger); trigger != "" {
			allowed[trigger] = true
		}
	}
	return &DeliveryService{
		orderRepo:      orderRepo,
		dispatchRepo:   dispatchRepo,
		courier:        courier,
		triggers:       allowed,
		pickupKeywords: pickupKeywords,
		staleAfter:     defaultDispatchStaleAfter,
	}
}

// SetStaleAfter 设置 pending 记录的接管阈值，一般与副作用超时一致
func (s *DeliveryService) SetStaleAfter(d time.Duration) {
	if d > 0 {
		s.staleAfter = d
	}
}

func (s *DeliveryService) isStalePending(record *models.DeliveryDispatch) bool {
	return record.Status == constants.DispatchStatusPending && time.Since(record.UpdatedAt) > s.staleAfter
}

// DispatchKey 幂等键 <order_id>:<dispatch_type>
func DispatchKey(orderID uint, dispatchType string) string {
	return fmt.Sprintf("%d:%s", orderID, dispatchType)
}

// TriggerEnabled 触发点是否在允许列表中
func (s *DeliveryService) TriggerEnabled(trigger string) bool {
	if trigger == constants.DispatchTriggerAdminRetry {
		return true
	}
	if len(s.triggers) == 0 {
		return true
	}
	return s.triggers[trigger]
}

// NotifyByID 按订单 ID 派单
func (s *DeliveryService) NotifyByID(ctx context.Context, orderID uint, trigger string) (*models.DeliveryDispatch, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return s.Notify(ctx, order, trigger)
}

// Notify 通知快递创建派单。
// 幂等键在外呼之前落库：sent / skipped / pending 的记录不会重复外呼，failed 与超时未更新的 pending 可以重新抢占。
func (s *DeliveryService) Notify(ctx context.Context, order *models.Order, trigger string) (record *models.DeliveryDispatch, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorw("delivery_dispatch_panic", "trigger", trigger, "panic", r)
			record, err = nil, fmt.Errorf("delivery dispatch panic: %v", r)
		}
	}()
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if !s.TriggerEnabled(trigger) {
		logger.Debugw("delivery_dispatch_trigger_disabled", "order_id", order.ID, "trigger", trigger)
		return nil, nil
	}
	if s.courier == nil {
		logger.Debugw("delivery_dispatch_skip_not_configured", "order_id", order.ID, "trigger", trigger)
		return nil, nil
	}

	record, proceed, err := s.claim(order.ID, trigger)
	if err != nil || !proceed {
		return record, err
	}

	if order.Items == nil {
		if full, loadErr := s.orderRepo.GetByID(order.ID); loadErr == nil && full != nil {
			order = full
		}
	}
	if reason := s.skipReason(order); reason != "" {
		if err := s.dispatchRepo.MarkSkipped(record.ID, reason); err != nil {
			return record, err
		}
		record.Status = constants.DispatchStatusSkipped
		record.LastError = reason
		logger.Infow("delivery_dispatch_skipped", "order_id", order.ID, "order_number", order.OrderNumber, "reason", reason)
		return record, nil
	}

	result, callErr := s.courier.CreateDelivery(ctx, buildParcel(order, record.IdempotencyKey))
	if callErr != nil {
		if err := s.dispatchRepo.MarkFailed(record.ID, callErr.Error()); err != nil {
			logger.Errorw("delivery_dispatch_mark_failed_error", "dispatch_id", record.ID, "error", err)
		}
		record.Status = constants.DispatchStatusFailed
		record.LastError = callErr.Error()
		record.Attempts++
		return record, callErr
	}
	if err := s.dispatchRepo.MarkSent(record.ID, result.Reference()); err != nil {
		return record, err
	}
	record.Status = constants.DispatchStatusSent
	record.CourierRef = result.Reference()
	record.Attempts++
	logger.Infow("delivery_dispatch_sent",
		"order_id", order.ID,
		"order_number", order.OrderNumber,
		"trigger", trigger,
		"courier_ref", record.CourierRef,
	)
	return record, nil
}

// claim 抢占幂等键，proceed=false 表示已处理或正在处理
func (s *DeliveryService) claim(orderID uint, trigger string) (*models.DeliveryDispatch, bool, error) {
	key := DispatchKey(orderID, constants.DispatchTypeDeliveryCreate)
	record := &models.DeliveryDispatch{
		OrderID:        orderID,
		DispatchType:   constants.DispatchTypeDeliveryCreate,
		IdempotencyKey: key,
		Trigger:        trigger,
		Status:         constants.DispatchStatusPending,
	}
	claimed, err := s.dispatchRepo.Claim(record)
	if err != nil {
		return nil, false, err
	}
	if claimed {
		return record, true, nil
	}
	existing, err := s.dispatchRepo.GetByKey(key)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, nil
	}
	var reclaimed bool
	switch {
	case existing.Status == constants.DispatchStatusFailed:
		reclaimed, err = s.dispatchRepo.Reclaim(existing.ID)
	case s.isStalePending(existing):
		reclaimed, err = s.dispatchRepo.ReclaimStale(existing.ID, time.Now().Add(-s.staleAfter))
		if err == nil && reclaimed {
			logger.Warnw("delivery_dispatch_stale_reclaimed", "order_id", orderID, "dispatch_id", existing.ID, "trigger", trigger)
		}
	default:
		logger.Debugw("delivery_dispatch_duplicate", "order_id", orderID, "status", existing.Status, "trigger", trigger)
		return existing, false, nil
	}
	if err != nil {
		return existing, false, err
	}
	if !reclaimed {
		return existing, false, nil
	}
	existing.Status = constants.DispatchStatusPending
	return existing, true, nil
}

func (s *DeliveryService) skipReason(order *models.Order) string {
	if order.IsPickup || IsPickupAddress(order.ShippingAddress, s.pickupKeywords) {
		return "pickup_or_empty_address"
	}
	if len(order.Items) == 0 {
		return "no_items"
	}
	return ""
}

func buildParcel(order *models.Order, key string) echuchu.Parcel {
	items := make([]echuchu.Item, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, echuchu.Item{Name: item.DisplayName(), Quantity: item.Quantity})
	}
	return echuchu.Parcel{
		ExternalID:     order.OrderNumber,
		IdempotencyKey: key,
		ReceiverName:   order.CustomerName,
		ReceiverPhone:  order.PhoneNumber,
		City:           order.City,
		District:       order.District,
		Khoroo:         order.Khoroo,
		Address:        order.ShippingAddress,
		Description:    echuchu.FlattenItems(items),
		Note:           order.Notes,
		Amount:         order.GrandTotal.String(),
		Paid:           order.PaymentStatus == constants.PaymentStatusPaid,
	}
}

// Retry 后台重试失败或卡在 pending 的派单
func (s *DeliveryService) Retry(ctx context.Context, dispatchID uint) (*models.DeliveryDispatch, error) {
	record, err := s.dispatchRepo.GetByID(dispatchID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrDispatchNotFound
	}
	if record.Status != constants.DispatchStatusFailed && !s.isStalePending(record) {
		return record, ErrDispatchNotRetryable
	}
	if s.courier == nil {
		return record, ErrCourierNotConfigured
	}
	return s.NotifyByID(ctx, record.OrderID, constants.DispatchTriggerAdminRetry)
}

// List 派单记录
func (s *DeliveryService) List(filter repository.DispatchListFilter) ([]models.DeliveryDispatch, int64, error) {
	return s.dispatchRepo.List(filter)
}
