package models

import "time"

// Address 用户收货地址
type Address struct {
	ID        uint      `gorm:"primarykey" json:"id"`                                                                                    // 主键
	UserID    uint      `gorm:"not null;uniqueIndex:uk_addresses_user_location,priority:1;index" json:"user_id"`                         // 用户ID
	City      string    `gorm:"type:varchar(120);not null;uniqueIndex:uk_addresses_user_location,priority:2" json:"city"`                // 城市 / 省
	District  string    `gorm:"type:varchar(120);not null;default:'';uniqueIndex:uk_addresses_user_location,priority:3" json:"district"` // 区（缺省为空串）
	Khoroo    string    `gorm:"type:varchar(120);not null;default:'';uniqueIndex:uk_addresses_user_location,priority:4" json:"khoroo"`   // 街道（缺省为空串）
	Address   string    `gorm:"type:varchar(500);not null;uniqueIndex:uk_addresses_user_location,priority:5" json:"address"`             // 详细地址
	IsDefault bool      `gorm:"not null;default:false;index" json:"is_default"`                                                          // 是否默认地址
	CreatedAt time.Time `gorm:"index" json:"created_at"`                                                                                 // 创建时间
	UpdatedAt time.Time `json:"updated_at"`                                                                                              // 更新时间
}

// TableName 指定表名
func (Address) TableName() string {
	return "addresses"
}
