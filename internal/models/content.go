package models

import (
	"time"

	"gorm.io/gorm"
)

// BankAccount 银行转账收款账户
type BankAccount struct {
	ID            uint           `gorm:"primarykey" json:"id"`                            // 主键
	BankName      string         `gorm:"type:varchar(120);not null" json:"bank_name"`     // 银行名称
	AccountName   string         `gorm:"type:varchar(120);not null" json:"account_name"`  // 户名
	AccountNumber string         `gorm:"type:varchar(64);not null" json:"account_number"` // 账号
	IBAN          string         `gorm:"column:iban;type:varchar(64)" json:"iban"`        // IBAN
	Logo          string         `gorm:"type:varchar(500)" json:"logo"`                   // 银行图标
	IsActive      bool           `gorm:"not null;default:false;index" json:"is_active"`   // 是否启用
	SortOrder     int            `gorm:"default:0;index" json:"sort_order"`               // 排序
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`                         // 创建时间
	UpdatedAt     time.Time      `json:"updated_at"`                                      // 更新时间
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`                                  // 软删除
}

// TableName 指定表名
func (BankAccount) TableName() string {
	return "bank_accounts"
}

// Partner 合作伙伴
type Partner struct {
	ID        uint           `gorm:"primarykey" json:"id"`                          // 主键
	Name      string         `gorm:"type:varchar(120);not null" json:"name"`        // 名称
	Logo      string         `gorm:"type:varchar(500);not null" json:"logo"`        // 标志
	Link      string         `gorm:"type:varchar(1000)" json:"link"`                // 官网链接
	IsActive  bool           `gorm:"not null;default:false;index" json:"is_active"` // 是否启用
	SortOrder int            `gorm:"default:0;index" json:"sort_order"`             // 排序
	CreatedAt time.Time      `gorm:"index" json:"created_at"`                       // 创建时间
	UpdatedAt time.Time      `json:"updated_at"`                                    // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                                // 软删除
}

// TableName 指定表名
func (Partner) TableName() string {
	return "partners"
}

// Footer 页脚信息
type Footer struct {
	ID          uint      `gorm:"primarykey" json:"id"`                          // 主键
	CompanyName string    `gorm:"type:varchar(200)" json:"company_name"`         // 公司名称
	Description string    `gorm:"type:text" json:"description"`                  // 简介
	Phone       string    `gorm:"type:varchar(64)" json:"phone"`                 // 电话
	Email       string    `gorm:"type:varchar(255)" json:"email"`                // 邮箱
	Address     string    `gorm:"type:varchar(500)" json:"address"`              // 地址
	Facebook    string    `gorm:"type:varchar(500)" json:"facebook"`             // Facebook 链接
	Instagram   string    `gorm:"type:varchar(500)" json:"instagram"`            // Instagram 链接
	Copyright   string    `gorm:"type:varchar(255)" json:"copyright"`            // 版权声明
	IsActive    bool      `gorm:"not null;default:false;index" json:"is_active"` // 是否启用
	CreatedAt   time.Time `gorm:"index" json:"created_at"`                       // 创建时间
	UpdatedAt   time.Time `json:"updated_at"`                                    // 更新时间
}

// TableName 指定表名
func (Footer) TableName() string {
	return "footers"
}

// GiftSetting 满额赠品设置
type GiftSetting struct {
	ID             uint           `gorm:"primarykey" json:"id"`                                          // 主键
	Title          string         `gorm:"type:varchar(200);not null" json:"title"`                       // 标题
	Description    string         `gorm:"type:text" json:"description"`                                  // 说明
	GiftName       string         `gorm:"type:varchar(200);not null" json:"gift_name"`                   // 赠品名称
	Image          string         `gorm:"type:varchar(500)" json:"image"`                                // 赠品图片
	MinOrderAmount Money          `gorm:"type:decimal(20,2);not null;default:0" json:"min_order_amount"` // 满额门槛
	IsActive       bool           `gorm:"not null;default:false;index" json:"is_active"`                 // 是否启用
	StartsAt       *time.Time     `gorm:"index" json:"starts_at"`                                        // 开始时间
	EndsAt         *time.Time     `gorm:"index" json:"ends_at"`                                          // 结束时间
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`                                       // 创建时间
	UpdatedAt      time.Time      `json:"updated_at"`                                                    // 更新时间
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`                                                // 软删除
}

// TableName 指定表名
func (GiftSetting) TableName() string {
	return "gift_settings"
}
