package service

import (
	"strings"
	"time"

	"github.com/altan-shop/internal/constants"
	"github.com/altan-shop/internal/logger"
	"github.com/altan-shop/internal/models"
	"github.com/altan-shop/internal/repository"
)

// ListByUser 用户订单列表
func (s *OrderService) ListByUser(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	if strings.TrimSpace(filter.UserID) == "" {
		return nil, 0, ErrInvalidInput
	}
	return s.orderRepo.ListByUser(filter)
}

// ListForAdmin 后台订单列表
func (s *OrderService) ListForAdmin(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.ListAdmin(filter)
}

// GetByID 获取订单（userID 非空时校验归属）
func (s *OrderService) GetByID(id uint, userID string) (*models.Order, error) {
	if id == 0 {
		return nil, ErrOrderNotFound
	}
	var (
		order *models.Order
		err   error
	)
	if userID = strings.TrimSpace(userID); userID != "" {
		order, err = s.orderRepo.GetByIDAndUser(id, userID)
	} else {
		order, err = s.orderRepo.GetByID(id)
	}
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// GetByOrderNumber 按订单号查询，phone 非空时必须与下单手机号一致
func (s *OrderService) GetByOrderNumber(orderNumber, phone string) (*models.Order, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	if orderNumber == "" {
		return nil, ErrOrderNotFound
	}
	order, err := s.orderRepo.GetByOrderNumber(orderNumber)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if phone = strings.TrimSpace(phone); phone != "" && normalizePhone(phone) != normalizePhone(order.PhoneNumber) {
		return nil, ErrOrderPhoneMismatch
	}
	return order, nil
}

// ViewInvoice 顾客查看/下载发票，触发 invoice_downloaded 派单节点
func (s *OrderService) ViewInvoice(orderNumber, phone string) (*models.Order, error) {
	order, err := s.GetByOrderNumber(orderNumber, phone)
	if err != nil {
		return nil, err
	}
	s.sideEffects.AfterInvoice(order, constants.DispatchTriggerInvoiceDownloaded)
	return order, nil
}

// UpdateStatus 更新履约状态
func (s *OrderService) UpdateStatus(id uint, status constants.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, ErrOrderStatusInvalid
	}
	order, err := s.GetByID(id, "")
	if err != nil {
		return nil, err
	}
	if order.OrderStatus == status {
		return order, nil
	}
	if !order.OrderStatus.CanTransitionTo(status) {
		return nil, ErrOrderStatusTransition
	}
	updates := map[string]interface{}{}
	if status == constants.OrderStatusCancelled {
		updates["cancelled_at"] = s.now()
	}
	ok, err := s.orderRepo.UpdateOrderStatus(order.ID, order.OrderStatus, status, updates)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrOrderStatusTransition
	}
	logger.Infow("order_status_updated",
		"order_id", order.ID,
		"order_number", order.OrderNumber,
		"from", order.OrderStatus.String(),
		"to", status.String(),
	)
	return s.GetByID(order.ID, "")
}

// UpdatePaymentStatus 后台更新支付状态（Pending→Paid/Failed，Paid→Refunded）
func (s *OrderService) UpdatePaymentStatus(id uint, status constants.PaymentStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, ErrPaymentStatusInvalid
	}
	order, err := s.GetByID(id, "")
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus == status {
		return order, nil
	}
	if !order.PaymentStatus.CanTransitionTo(status) {
		return nil, ErrPaymentStatusTransition
	}
	updates := map[string]interface{}{}
	if status == constants.PaymentStatusPaid {
		updates["paid_at"] = s.now()
	}
	won, err := s.orderRepo.MarkPaymentStatus(order.ID, order.PaymentStatus, status, updates)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, ErrPaymentStatusChanged
	}
	logger.Infow("order_payment_status_updated",
		"order_id", order.ID,
		"order_number", order.OrderNumber,
		"from", order.PaymentStatus.String(),
		"to", status.String(),
	)
	updated, err := s.GetByID(order.ID, "")
	if err != nil {
		return nil, err
	}
	if status == constants.PaymentStatusPaid {
		s.sideEffects.AfterPayment(updated)
	}
	return updated, nil
}

// Delete 后台删除订单（软删除）
func (s *OrderService) Delete(id uint) error {
	ok, err := s.orderRepo.Delete(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrOrderNotFound
	}
	return nil
}

// PaymentDeadline 待支付订单的过期时间
func (s *OrderService) PaymentDeadline(order *models.Order) *time.Time {
	if order == nil || s.cfg.PaymentExpireMinutes <= 0 || order.PaymentStatus != constants.PaymentStatusPending {
		return nil
	}
	deadline := order.CreatedAt.Add(time.Duration(s.cfg.PaymentExpireMinutes) * time.Minute)
	return &deadline
}

// normalizePhone 去掉空白、连字符与 +976 国家码
func normalizePhone(phone string) string {
	phone = strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(phone))
	phone = strings.TrimPrefix(phone, "+976")
	return phone
}
