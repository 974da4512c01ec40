package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/altan-shop/internal/constants"
	"github.com/altan-shop/internal/models"

	"gorm.io/gorm"
)

// OrderRepository 订单数据访问接口
type OrderRepository interface {
	Create(order *models.Order, items []models.OrderItem) error
	GetByID(id uint) (*models.Order, error)
	GetByIDAndUser(id uint, userID string) (*models.Order, error)
	GetByOrderNumber(orderNumber string) (*models.Order, error)
	GetByInvoiceID(invoiceID string) (*models.Order, error)
	ListByUser(filter OrderListFilter) ([]models.Order, int64, error)
	ListAdmin(filter OrderListFilter) ([]models.Order, int64, error)
	ListPendingQPay(createdBefore time.Time, limit int) ([]models.Order, error)
	UpdateFields(id uint, updates map[string]interface{}) (bool, error)
	UpdateOrderStatus(id uint, from, to constants.OrderStatus, updates map[string]interface{}) (bool, error)
	MarkPaymentStatus(id uint, from, to constants.PaymentStatus, updates map[string]interface{}) (bool, error)
	Delete(id uint) (bool, error)
	WithTx(tx *gorm.DB) *GormOrderRepository
}

// GormOrderRepository GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderRepository) WithTx(tx *gorm.DB) *GormOrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

func withItems(query *gorm.DB) *gorm.DB {
	return query.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("id asc")
	})
}

func firstOrNil(query *gorm.DB) (*models.Order, error) {
	var order models.Order
	if err := withItems(query).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// Create 创建订单与订单项（调用方负责事务）
func (r *GormOrderRepository) Create(order *models.Order, items []models.OrderItem) error {
	if err := r.db.Omit("Items").Create(order).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].OrderID = order.ID
	}
	if len(items) > 0 {
		if err := r.db.CreateInBatches(&items, 100).Error; err != nil {
			return err
		}
	}
	order.Items = items
	return nil
}

// GetByID 根据 ID 获取订单
func (r *GormOrderRepository) GetByID(id uint) (*models.Order, error) {
	return firstOrNil(r.db.Where("id = ?", id))
}

// GetByIDAndUser 获取用户自己的订单
func (r *GormOrderRepository) GetByIDAndUser(id uint, userID string) (*models.Order, error) {
	return firstOrNil(r.db.Where("id = ? AND user_id = ?", id, userID))
}

// GetByOrderNumber 根据订单号获取订单
func (r *GormOrderRepository) GetByOrderNumber(orderNumber string) (*models.Order, error) {
	return firstOrNil(r.db.Where("order_number = ?", strings.TrimSpace(orderNumber)))
}

// GetByInvoiceID 根据 QPay 发票号获取订单
func (r *GormOrderRepository) GetByInvoiceID(invoiceID string) (*models.Order, error) {
	invoiceID = strings.TrimSpace(invoiceID)
	if invoiceID == "" {
		return nil, nil
	}
	return firstOrNil(r.db.Where("invoice_id = ?", invoiceID))
}

// ListByUser 用户订单列表（新订单在前）
func (r *GormOrderRepository) ListByUser(filter OrderListFilter) ([]models.Order, int64, error) {
	query := r.db.Model(&models.Order{}).Where("user_id = ?", filter.UserID)
	query = r.applyFilter(query, filter)
	return countAndFind[models.Order](query, filter.Page, filter.PageSize, "created_at desc, id desc", withItems)
}

// ListAdmin 后台订单列表
func (r *GormOrderRepository) ListAdmin(filter OrderListFilter) ([]models.Order, int64, error) {
	query := r.db.Model(&models.Order{})
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	query = r.applyFilter(query, filter)
	return countAndFind[models.Order](query, filter.Page, filter.PageSize, "created_at desc, id desc", withItems)
}

func (r *GormOrderRepository) applyFilter(query *gorm.DB, filter OrderListFilter) *gorm.DB {
	if filter.OrderNumber != "" {
		query = query.Where("order_number = ?", strings.TrimSpace(filter.OrderNumber))
	}
	if filter.PhoneNumber != "" {
		query = query.Where("phone_number = ?", strings.TrimSpace(filter.PhoneNumber))
	}
	if cond, args := buildLikeCondition(r.db, filter.Keyword, "order_number", "customer_name", "phone_number"); cond != "" {
		query = query.Where(cond, args...)
	}
	if filter.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *filter.PaymentStatus)
	}
	if filter.OrderStatus != nil {
		query = query.Where("order_status = ?", *filter.OrderStatus)
	}
	if filter.PaymentMethod != nil {
		query = query.Where("payment_method = ?", *filter.PaymentMethod)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}
	return query
}

// ListPendingQPay 查询已开票但仍待支付的 QPay 订单（用于对账）
func (r *GormOrderRepository) ListPendingQPay(createdBefore time.Time, limit int) ([]models.Order, error) {
	query := r.db.Model(&models.Order{}).
		Where("payment_method = ? AND payment_status = ?", constants.PaymentMethodQPay, constants.PaymentStatusPending).
		Where("invoice_id IS NOT NULL AND invoice_id <> ''").
		Where("created_at <= ?", createdBefore)
	if limit > 0 {
		query = query.Limit(limit)
	}
	var orders []models.Order
	if err := query.Order("id asc").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateFields 部分更新订单字段，返回是否命中
func (r *GormOrderRepository) UpdateFields(id uint, updates map[string]interface{}) (bool, error) {
	if len(updates) == 0 {
		return false, nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	result := r.db.Model(&models.Order{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// UpdateOrderStatus 条件更新订单状态，仅当当前状态为 from 时生效
func (r *GormOrderRepository) UpdateOrderStatus(id uint, from, to constants.OrderStatus, updates map[string]interface{}) (bool, error) {
	values := map[string]interface{}{
		"order_status": to,
		"updated_at":   time.Now(),
	}
	for key, value := range updates {
		values[key] = value
	}
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND order_status = ?", id, from).
		Updates(values)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkPaymentStatus 单条条件 UPDATE 切换支付状态：
// UPDATE orders SET payment_status=? WHERE id=? AND payment_status=?
// 并发的轮询与回调只有一方会得到 true。
func (r *GormOrderRepository) MarkPaymentStatus(id uint, from, to constants.PaymentStatus, updates map[string]interface{}) (bool, error) {
	values := map[string]interface{}{
		"payment_status": to,
		"updated_at":     time.Now(),
	}
	for key, value := range updates {
		values[key] = value
	}
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", id, from).
		Updates(values)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Delete 软删除订单
func (r *GormOrderRepository) Delete(id uint) (bool, error) {
	result := r.db.Delete(&models.Order{}, id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
