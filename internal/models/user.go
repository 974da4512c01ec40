package models

import (
	"time"

	"gorm.io/gorm"
)

// User 用户表
type User struct {
	ID                 uint           `gorm:"primarykey" json:"id"`                                         // 主键
	Email              string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`          // 邮箱
	PasswordHash       string         `gorm:"not null;default:''" json:"-"`                                 // 密码哈希（Google 用户为空）
	DisplayName        string         `gorm:"default:''" json:"display_name"`                               // 昵称
	PhoneNumber        string         `gorm:"type:varchar(32);default:''" json:"phone_number"`              // 手机号
	Provider           string         `gorm:"type:varchar(20);not null;default:'password'" json:"provider"` // 注册来源
	GoogleSubject      *string        `gorm:"type:varchar(64);uniqueIndex" json:"-"`                        // Google 账号 sub
	Locale             string         `gorm:"default:'mn-MN'" json:"locale"`                                // 语言偏好
	Status             string         `gorm:"default:'active'" json:"status"`                               // 账号状态
	TokenVersion       uint64         `gorm:"not null;default:0" json:"-"`                                  // Token 版本（用于全量失效）
	TokenInvalidBefore *time.Time     `gorm:"index" json:"-"`                                               // 该时间点前签发的 Token 失效
	LastLoginAt        *time.Time     `json:"last_login_at"`                                                // 最后登录时间
	CreatedAt          time.Time      `gorm:"index" json:"created_at"`                                      // 创建时间
	UpdatedAt          time.Time      `gorm:"index" json:"updated_at"`                                      // 更新时间
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`                                               // 软删除时间
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// RefreshToken 刷新令牌（只存哈希，使用后轮换）
type RefreshToken struct {
	ID        uint       `gorm:"primarykey" json:"id"`                        // 主键
	UserID    uint       `gorm:"index;not null" json:"user_id"`               // 用户ID
	TokenHash string     `gorm:"type:char(64);uniqueIndex;not null" json:"-"` // 令牌 SHA-256
	ExpiresAt time.Time  `gorm:"index;not null" json:"expires_at"`            // 过期时间
	UsedAt    *time.Time `json:"used_at"`                                     // 轮换时间
	RevokedAt *time.Time `json:"revoked_at"`                                  // 吊销时间
	UserAgent string     `gorm:"type:varchar(255)" json:"user_agent"`         // 客户端标识
	ClientIP  string     `gorm:"type:varchar(64)" json:"client_ip"`           // 客户端IP
	CreatedAt time.Time  `gorm:"index" json:"created_at"`                     // 创建时间
}

// TableName 指定表名
func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

// Usable 未使用、未吊销且未过期
func (t *RefreshToken) Usable(now time.Time) bool {
	return t != nil && t.UsedAt == nil && t.RevokedAt == nil && t.ExpiresAt.After(now)
}
