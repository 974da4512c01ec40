package repository

import (
	"github.com/altan-shop/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CouponUsageRepository 优惠券使用记录数据访问接口
type CouponUsageRepository interface {
	Insert(usage *models.CouponUsage) (bool, error)
	ExistsByUser(couponID uint, userID string) (bool, error)
	ExistsByCoupon(couponID uint) (bool, error)
	ListByCoupon(filter CouponUsageListFilter) ([]models.CouponUsage, int64, error)
	WithTx(tx *gorm.DB) *GormCouponUsageRepository
}

// GormCouponUsageRepository GORM 实现
type GormCouponUsageRepository struct {
	db *gorm.DB
}

// NewCouponUsageRepository 创建优惠券使用记录仓库
func NewCouponUsageRepository(db *gorm.DB) *GormCouponUsageRepository {
	return &GormCouponUsageRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCouponUsageRepository) WithTx(tx *gorm.DB) *GormCouponUsageRepository {
	if tx == nil {
		return r
	}
	return &GormCouponUsageRepository{db: tx}
}

// Insert 写入核销记录，redemption_key 冲突时不写入并返回 false
func (r *GormCouponUsageRepository) Insert(usage *models.CouponUsage) (bool, error) {
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "redemption_key"}},
		DoNothing: true,
	}).Create(usage)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ExistsByUser 用户是否已使用过该券
func (r *GormCouponUsageRepository) ExistsByUser(couponID uint, userID string) (bool, error) {
	var count int64
	if err := r.db.Model(&models.CouponUsage{}).
		Where("coupon_id = ? AND user_id = ?", couponID, userID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ExistsByCoupon 该券是否已被任何人使用
func (r *GormCouponUsageRepository) ExistsByCoupon(couponID uint) (bool, error) {
	var count int64
	if err := r.db.Model(&models.CouponUsage{}).
		Where("coupon_id = ?", couponID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByCoupon 获取优惠券的使用记录
func (r *GormCouponUsageRepository) ListByCoupon(filter CouponUsageListFilter) ([]models.CouponUsage, int64, error) {
	query := r.db.Model(&models.CouponUsage{})
	if filter.CouponID != 0 {
		query = query.Where("coupon_id = ?", filter.CouponID)
	}
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	return countAndFind[models.CouponUsage](query, filter.Page, filter.PageSize, "id desc")
}
