package models

import (
	"time"

	"gorm.io/gorm"
)

// Coupon 优惠券
type Coupon struct {
	ID                 uint           `gorm:"primarykey" json:"id"`                                  // 主键
	Code               string         `gorm:"type:varchar(32);uniqueIndex;not null" json:"code"`     // 优惠码（大写）
	Description        string         `gorm:"type:varchar(255)" json:"description"`                  // 说明
	DiscountPercentage Money          `gorm:"type:decimal(5,2);not null" json:"discount_percentage"` // 折扣百分比
	IsManual           bool           `gorm:"not null;default:false;index" json:"is_manual"`         // 手动创建（每人限用一次）；否则为系统生成（全局限用一次）
	IsActive           bool           `gorm:"not null;default:false" json:"is_active"`               // 是否启用
	ExpiresAt          *time.Time     `gorm:"index" json:"expires_at"`                               // 过期时间
	CreatedAt          time.Time      `gorm:"index" json:"created_at"`                               // 创建时间
	UpdatedAt          time.Time      `gorm:"index" json:"updated_at"`                               // 更新时间
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`                                        // 软删除时间
}

// TableName 指定表名
func (Coupon) TableName() string {
	return "coupons"
}

// IsExpired 是否已过期
func (c *Coupon) IsExpired(now time.Time) bool {
	return c != nil && c.ExpiresAt != nil && !c.ExpiresAt.After(now)
}

// CouponUsage 优惠券使用记录（核销台账）
type CouponUsage struct {
	ID             uint      `gorm:"primarykey" json:"id"`                                         // 主键
	CouponID       uint      `gorm:"index;not null" json:"coupon_id"`                              // 优惠券ID
	UserID         string    `gorm:"type:varchar(64);index;not null" json:"user_id"`               // 用户ID
	OrderID        uint      `gorm:"index;not null" json:"order_id"`                               // 订单ID
	RedemptionKey  string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"-"`              // 核销唯一键
	DiscountAmount Money     `gorm:"type:decimal(20,2);not null;default:0" json:"discount_amount"` // 优惠金额
	UsedAt         time.Time `gorm:"index;not null" json:"used_at"`                                // 使用时间
}

// TableName 指定表名
func (CouponUsage) TableName() string {
	return "coupon_usages"
}
