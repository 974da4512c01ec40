package service

import (
	"strings"
	"time"

	"github.com/altan-shop/internal/models"
	"github.com/altan-shop/internal/repository"
)

// 授权审计动作
const (
	AuthzAuditRoleCreate    = "role_create"
	AuthzAuditRoleDelete    = "role_delete"
	AuthzAuditPolicyGrant   = "policy_grant"
	AuthzAuditPolicyRevoke  = "policy_revoke"
	AuthzAuditAdminRolesSet = "admin_roles_set"
)

// AuthzAuditRecordInput 审计记录输入
type AuthzAuditRecordInput struct {
	OperatorAdminID  uint
	OperatorUsername string
	TargetAdminID    *uint
	Action           string
	Role             string
	Object           string
	Method           string
	RequestID        string
	Detail           models.JSON
}

// AuthzAuditService 记录角色、策略与管理员授权的变更
type AuthzAuditService struct {
	repo repository.AuthzAuditLogRepository
	now  func() time.Time
}

// NewAuthzAuditService 创建授权审计服务
func NewAuthzAuditService(repo repository.AuthzAuditLogRepository) *AuthzAuditService {
	return &AuthzAuditService{repo: repo, now: time.Now}
}

// Record 写入审计记录，缺少操作人或动作时忽略
func (s *AuthzAuditService) Record(input AuthzAuditRecordInput) error {
	if s == nil || s.repo == nil {
		return nil
	}
	action := strings.TrimSpace(input.Action)
	if input.OperatorAdminID == 0 || action == "" {
		return nil
	}
	return s.repo.Create(&models.AuthzAuditLog{
		OperatorAdminID:  input.OperatorAdminID,
		OperatorUsername: strings.TrimSpace(input.OperatorUsername),
		TargetAdminID:    input.TargetAdminID,
		Action:           action,
		Role:             strings.TrimSpace(input.Role),
		Object:           strings.TrimSpace(input.Object),
		Method:           strings.ToUpper(strings.TrimSpace(input.Method)),
		RequestID:        strings.TrimSpace(input.RequestID),
		Detail:           input.Detail,
		CreatedAt:        s.now(),
	})
}

// List 后台查询
func (s *AuthzAuditService) List(filter repository.AuthzAuditLogListFilter) ([]models.AuthzAuditLog, int64, error) {
	if s == nil || s.repo == nil {
		return []models.AuthzAuditLog{}, 0, nil
	}
	filter.Action = strings.TrimSpace(filter.Action)
	filter.Role = strings.TrimSpace(filter.Role)
	return s.repo.List(filter)
}
