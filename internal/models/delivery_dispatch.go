package models

import "time"

// DeliveryDispatch 快递派单记录（幂等键在外呼前落库）
type DeliveryDispatch struct {
	ID             uint       `gorm:"primarykey" json:"id"`                                         // 主键
	OrderID        uint       `gorm:"index;not null" json:"order_id"`                               // 订单ID
	DispatchType   string     `gorm:"type:varchar(32);not null" json:"dispatch_type"`               // 派单类型
	IdempotencyKey string     `gorm:"type:varchar(96);uniqueIndex;not null" json:"idempotency_key"` // 幂等键 order_id:dispatch_type
	Trigger        string     `gorm:"type:varchar(32);not null" json:"trigger"`                     // 首次触发节点
	Status         string     `gorm:"type:varchar(16);not null;index" json:"status"`                // pending/sent/failed/skipped
	Attempts       int        `gorm:"not null;default:0" json:"attempts"`                           // 外呼次数
	CourierRef     string     `gorm:"type:varchar(128)" json:"courier_ref"`                         // 快递单号 / 对方单据
	LastError      string     `gorm:"type:text" json:"last_error"`                                  // 最近一次失败原因
	SentAt         *time.Time `json:"sent_at"`                                                      // 派单成功时间
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`                                      // 创建时间
	UpdatedAt      time.Time  `json:"updated_at"`                                                   // 更新时间
}

// TableName 指定表名
func (DeliveryDispatch) TableName() string {
	return "delivery_dispatches"
}
