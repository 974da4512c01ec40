package repository

import (
	"errors"
	"time"

	"github.com/altan-shop/internal/constants"
	"github.com/altan-shop/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeliveryDispatchRepository 派单记录数据访问接口
type DeliveryDispatchRepository interface {
	Claim(record *models.DeliveryDispatch) (bool, error)
	GetByKey(key string) (*models.DeliveryDispatch, error)
	GetByID(id uint) (*models.DeliveryDispatch, error)
	Reclaim(id uint) (bool, error)
	ReclaimStale(id uint, before time.Time) (bool, error)
	MarkSent(id uint, courierRef string) error
	MarkFailed(id uint, reason string) error
	MarkSkipped(id uint, reason string) error
	List(filter DispatchListFilter) ([]models.DeliveryDispatch, int64, error)
}

// GormDeliveryDispatchRepository GORM 实现
type GormDeliveryDispatchRepository struct {
	db *gorm.DB
}

// NewDeliveryDispatchRepository 创建派单记录仓库
func NewDeliveryDispatchRepository(db *gorm.DB) *GormDeliveryDispatchRepository {
	return &GormDeliveryDispatchRepository{db: db}
}

// Claim 以幂等键抢占派单，已存在时返回 false
func (r *GormDeliveryDispatchRepository) Claim(record *models.DeliveryDispatch) (bool, error) {
	if record.Status == "" {
		record.Status = constants.DispatchStatusPending
	}
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "idempotency_key"}},
		DoNothing: true,
	}).Create(record)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// GetByKey 根据幂等键获取记录
func (r *GormDeliveryDispatchRepository) GetByKey(key string) (*models.DeliveryDispatch, error) {
	var record models.DeliveryDispatch
	if err := r.db.Where("idempotency_key = ?", key).Take(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// GetByID 根据 ID 获取记录
func (r *GormDeliveryDispatchRepository) GetByID(id uint) (*models.DeliveryDispatch, error) {
	var record models.DeliveryDispatch
	if err := r.db.First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// Reclaim 失败记录重新置为 pending（条件更新，只有一方能抢到）
func (r *GormDeliveryDispatchRepository) Reclaim(id uint) (bool, error) {
	result := r.db.Model(&models.DeliveryDispatch{}).
		Where("id = ? AND status = ?", id, constants.DispatchStatusFailed).
		Updates(map[string]interface{}{
			"status":     constants.DispatchStatusPending,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ReclaimStale 接管长时间停留在 pending 的记录（进程中途退出留下的半成品）
func (r *GormDeliveryDispatchRepository) ReclaimStale(id uint, before time.Time) (bool, error) {
	result := r.db.Model(&models.DeliveryDispatch{}).
		Where("id = ? AND status = ? AND updated_at < ?", id, constants.DispatchStatusPending, before).
		Update("updated_at", time.Now())
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *GormDeliveryDispatchRepository) finish(id uint, updates map[string]interface{}) error {
	updates["attempts"] = gorm.Expr("attempts + ?", 1)
	updates["updated_at"] = time.Now()
	return r.db.Model(&models.DeliveryDispatch{}).Where("id = ?", id).Updates(updates).Error
}

// MarkSent 标记派单成功
func (r *GormDeliveryDispatchRepository) MarkSent(id uint, courierRef string) error {
	now := time.Now()
	return r.finish(id, map[string]interface{}{
		"status":      constants.DispatchStatusSent,
		"courier_ref": courierRef,
		"last_error":  "",
		"sent_at":     &now,
	})
}

// MarkFailed 标记派单失败
func (r *GormDeliveryDispatchRepository) MarkFailed(id uint, reason string) error {
	return r.finish(id, map[string]interface{}{
		"status":     constants.DispatchStatusFailed,
		"last_error": reason,
	})
}

// MarkSkipped 标记无需派单（自取 / 无商品）
func (r *GormDeliveryDispatchRepository) MarkSkipped(id uint, reason string) error {
	return r.db.Model(&models.DeliveryDispatch{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":     constants.DispatchStatusSkipped,
		"last_error": reason,
		"updated_at": time.Now(),
	}).Error
}

// List 派单记录列表
func (r *GormDeliveryDispatchRepository) List(filter DispatchListFilter) ([]models.DeliveryDispatch, int64, error) {
	query := r.db.Model(&models.DeliveryDispatch{})
	if filter.OrderID != 0 {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	return countAndFind[models.DeliveryDispatch](query, filter.Page, filter.PageSize, "id desc")
}
