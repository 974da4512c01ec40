package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// JSON 以 JSON 文本存储的键值对
type JSON map[string]interface{}

// Value 实现 driver.Valuer 接口
func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan 实现 sql.Scanner 接口
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSON)
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return nil
	}
	return json.Unmarshal(raw, j)
}

// AuthzAuditLog 后台角色与授权变更记录
type AuthzAuditLog struct {
	ID               uint      `gorm:"primarykey" json:"id"`
	OperatorAdminID  uint      `gorm:"index;not null" json:"operator_admin_id"`
	OperatorUsername string    `gorm:"type:varchar(100);not null;default:''" json:"operator_username"`
	TargetAdminID    *uint     `gorm:"index" json:"target_admin_id,omitempty"`
	Action           string    `gorm:"type:varchar(60);index;not null" json:"action"` // role_create / role_delete / policy_grant / policy_revoke / admin_roles_set
	Role             string    `gorm:"type:varchar(120);index;not null;default:''" json:"role"`
	Object           string    `gorm:"type:varchar(255);not null;default:''" json:"object"`
	Method           string    `gorm:"type:varchar(20);not null;default:''" json:"method"`
	RequestID        string    `gorm:"type:varchar(64);not null;default:''" json:"request_id"`
	Detail           JSON      `gorm:"type:json" json:"detail"`
	CreatedAt        time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (AuthzAuditLog) TableName() string {
	return "authz_audit_logs"
}
