package admin

import (
	"net/url"
	"strings"

	"github.com/altan-shop/internal/http/handlers/shared"
	"github.com/altan-shop/internal/http/response"
	"github.com/altan-shop/internal/logger"
	"github.com/altan-shop/internal/models"
	"github.com/altan-shop/internal/repository"
	"github.com/altan-shop/internal/service"

	"github.com/gin-gonic/gin"
)

type authzRolePayload struct {
	Role string `json:"role" binding:"required"`
}

type authzPolicyPayload struct {
	Role   string `json:"role" binding:"required"`
	Object string `json:"object" binding:"required"`
	Action string `json:"action" binding:"required"`
}

type authzSetAdminRolesPayload struct {
	Roles []string `json:"roles"`
}

func decodeRoleParam(raw string) string {
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return strings.TrimSpace(raw)
	}
	return strings.TrimSpace(decoded)
}

// recordAuthzAudit 审计写入失败只记日志，不影响已生效的授权变更
func (h *Handler) recordAuthzAudit(c *gin.Context, input service.AuthzAuditRecordInput) {
	input.OperatorAdminID = currentAdminID(c)
	input.OperatorUsername = currentUsername(c)
	input.Method = c.Request.Method
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok {
			input.RequestID = id
		}
	}
	if err := h.AuthzAuditService.Record(input); err != nil {
		requestLog(c).Warnw("admin_authz_audit_record_failed", "action", input.Action, "error", err)
	}
}

// ListAuthzAuditLogs 授权变更记录
func (h *Handler) ListAuthzAuditLogs(c *gin.Context) {
	page, pageSize := shared.ParsePage(c)
	filter := repository.AuthzAuditLogListFilter{
		Page:        page,
		PageSize:    pageSize,
		Action:      c.Query("action"),
		Role:        c.Query("role"),
		CreatedFrom: parseOptionalTime(c, "created_from"),
		CreatedTo:   parseOptionalTime(c, "created_to"),
	}
	if value := parseOptionalInt(c, "operator_admin_id"); value != nil && *value > 0 {
		filter.OperatorAdminID = uint(*value)
	}
	if value := parseOptionalInt(c, "target_admin_id"); value != nil && *value > 0 {
		filter.TargetAdminID = uint(*value)
	}
	logs, total, err := h.AuthzAuditService.List(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.config_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, logs, response.BuildPagination(page, pageSize, total))
}

// ListAuthzRoles 获取角色列表
func (h *Handler) ListAuthzRoles(c *gin.Context) {
	roles, err := h.AuthzService.ListRoles()
	if err != nil {
		respondError(c, response.CodeInternal, "error.config_fetch_failed", err)
		return
	}
	response.Success(c, roles)
}

// ListAuthzAdmins 获取管理员列表及其角色
func (h *Handler) ListAuthzAdmins(c *gin.Context) {
	admins, err := h.AuthService.ListAdmins()
	if err != nil {
		respondError(c, response.CodeInternal, "error.config_fetch_failed", err)
		return
	}

	items := make([]gin.H, 0, len(admins))
	for _, admin := range admins {
		roles, roleErr := h.AuthzService.GetAdminRoles(admin.ID)
		if roleErr != nil {
			respondError(c, response.CodeInternal, "error.config_fetch_failed", roleErr)
			return
		}
		items = append(items, gin.H{
			"id":            admin.ID,
			"username":      admin.Username,
			"is_super":      admin.IsSuper,
			"last_login_at": admin.LastLoginAt,
			"created_at":    admin.CreatedAt,
			"roles":         roles,
		})
	}
	response.Success(c, items)
}

// CreateAuthzRole 创建角色
func (h *Handler) CreateAuthzRole(c *gin.Context) {
	var req authzRolePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	role, err := h.AuthzService.EnsureRole(req.Role)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	logger.Infow("admin_authz_role_created",
		"operator_admin_id", currentAdminID(c),
		"operator_username", currentUsername(c),
		"role", role,
	)
	h.recordAuthzAudit(c, service.AuthzAuditRecordInput{Action: service.AuthzAuditRoleCreate, Role: role})
	response.Success(c, gin.H{"role": role})
}

// DeleteAuthzRole 删除角色
func (h *Handler) DeleteAuthzRole(c *gin.Context) {
	role := decodeRoleParam(c.Param("role"))
	if role == "" {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	if err := h.AuthzService.DeleteRole(role); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	logger.Infow("admin_authz_role_deleted",
		"operator_admin_id", currentAdminID(c),
		"role", role,
	)
	h.recordAuthzAudit(c, service.AuthzAuditRecordInput{Action: service.AuthzAuditRoleDelete, Role: role})
	response.Success(c, nil)
}

// GetAuthzRolePolicies 获取角色策略
func (h *Handler) GetAuthzRolePolicies(c *gin.Context) {
	role := decodeRoleParam(c.Param("role"))
	if role == "" {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	policies, err := h.AuthzService.GetRolePolicies(role)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	response.Success(c, policies)
}

// GrantAuthzPolicy 授予角色策略
func (h *Handler) GrantAuthzPolicy(c *gin.Context) {
	var req authzPolicyPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if err := h.AuthzService.GrantRolePolicy(req.Role, req.Object, req.Action); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	logger.Infow("admin_authz_policy_granted",
		"operator_admin_id", currentAdminID(c),
		"role", req.Role,
		"object", req.Object,
		"action", req.Action,
	)
	h.recordAuthzAudit(c, service.AuthzAuditRecordInput{
		Action: service.AuthzAuditPolicyGrant,
		Role:   req.Role,
		Object: req.Object,
		Detail: models.JSON{"policy_action": req.Action},
	})
	response.Success(c, nil)
}

// RevokeAuthzPolicy 撤销角色策略
func (h *Handler) RevokeAuthzPolicy(c *gin.Context) {
	var req authzPolicyPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if err := h.AuthzService.RevokeRolePolicy(req.Role, req.Object, req.Action); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	logger.Infow("admin_authz_policy_revoked",
		"operator_admin_id", currentAdminID(c),
		"role", req.Role,
		"object", req.Object,
		"action", req.Action,
	)
	h.recordAuthzAudit(c, service.AuthzAuditRecordInput{
		Action: service.AuthzAuditPolicyRevoke,
		Role:   req.Role,
		Object: req.Object,
		Detail: models.JSON{"policy_action": req.Action},
	})
	response.Success(c, nil)
}

// GetAuthzAdminRoles 获取管理员角色
func (h *Handler) GetAuthzAdminRoles(c *gin.Context) {
	adminID, ok := shared.ParseUintParam(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.admin_id_invalid", nil)
		return
	}
	roles, err := h.AuthzService.GetAdminRoles(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.config_fetch_failed", err)
		return
	}
	response.Success(c, gin.H{"admin_id": adminID, "roles": roles})
}

// SetAuthzAdminRoles 覆盖设置管理员角色
func (h *Handler) SetAuthzAdminRoles(c *gin.Context) {
	adminID, ok := shared.ParseUintParam(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.admin_id_invalid", nil)
		return
	}
	var req authzSetAdminRolesPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if err := h.AuthzService.SetAdminRoles(adminID, req.Roles); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	logger.Infow("admin_authz_admin_roles_updated",
		"operator_admin_id", currentAdminID(c),
		"target_admin_id", adminID,
		"roles", req.Roles,
	)
	h.recordAuthzAudit(c, service.AuthzAuditRecordInput{
		Action:        service.AuthzAuditAdminRolesSet,
		TargetAdminID: &adminID,
		Detail:        models.JSON{"roles": req.Roles},
	})
	response.Success(c, nil)
}
