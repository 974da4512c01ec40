package admin

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/altan-shop/internal/http/handlers/shared"
	"github.com/altan-shop/internal/http/response"
	"github.com/altan-shop/internal/models"
	"github.com/altan-shop/internal/repository"
	"github.com/altan-shop/internal/service"

	"github.com/gin-gonic/gin"
)

const maxContentBodyBytes = 1 << 20

var contentErrorRules = []shared.ErrorRule{
	{Target: service.ErrNotFound, Code: response.CodeNotFound, Key: "error.content_not_found"},
	{Target: service.ErrInvalidInput, Code: response.CodeBadRequest, Key: "error.content_invalid"},
}

// 请求体中不允许覆盖的字段
var contentProtectedFields = []string{"id", "created_at", "updated_at", "deleted_at"}

// contentResource 单类站点内容的增删改查接口
type contentResource[T any] struct {
	name string
	crud *service.ContentCRUD[T]
}

// RegisterContentRoutes 挂载银行账户、轮播图、合作伙伴、页脚、满额赠品的后台接口
func (h *Handler) RegisterContentRoutes(group *gin.RouterGroup) {
	mountContent(group, "/bank-accounts", contentResource[models.BankAccount]{name: "bank_account", crud: h.ContentService.BankAccounts})
	mountContent(group, "/banners", contentResource[models.Banner]{name: "banner", crud: h.ContentService.Banners})
	mountContent(group, "/partners", contentResource[models.Partner]{name: "partner", crud: h.ContentService.Partners})
	mountContent(group, "/footers", contentResource[models.Footer]{name: "footer", crud: h.ContentService.Footers})
	mountContent(group, "/gift-settings", contentResource[models.GiftSetting]{name: "gift_setting", crud: h.ContentService.GiftSettings})
}

func mountContent[T any](group *gin.RouterGroup, path string, r contentResource[T]) {
	group.GET(path, r.list)
	group.GET(path+"/:id", r.get)
	group.POST(path, r.create)
	group.PUT(path+"/:id", r.update)
	group.DELETE(path+"/:id", r.delete)
}

func (r contentResource[T]) list(c *gin.Context) {
	page, pageSize := shared.ParsePage(c)
	rows, total, err := r.crud.List(repository.ContentListFilter{
		Page:     page,
		PageSize: pageSize,
		Search:   strings.TrimSpace(c.Query("search")),
		IsActive: shared.ParseOptionalBool(c, "is_active"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.content_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}

func (r contentResource[T]) get(c *gin.Context) {
	id, ok := shared.ParseUintParam(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	row, err := r.crud.Get(id)
	if err != nil {
		shared.RespondMapped(c, err, contentErrorRules, response.CodeInternal, "error.content_fetch_failed")
		return
	}
	response.Success(c, row)
}

func (r contentResource[T]) create(c *gin.Context) {
	body, err := readContentBody(c)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	row := new(T)
	if err := json.Unmarshal(body, row); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if err := r.crud.Create(c.Request.Context(), row); err != nil {
		shared.RespondMapped(c, err, contentErrorRules, response.CodeInternal, "error.content_save_failed")
		return
	}
	requestLog(c).Infow("admin_content_created", "resource", r.name, "operator_admin_id", currentAdminID(c))
	response.Success(c, row)
}

// update 只覆盖请求体中出现的字段
func (r contentResource[T]) update(c *gin.Context) {
	id, ok := shared.ParseUintParam(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	body, err := readContentBody(c)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	var decoded T
	if err := json.Unmarshal(body, &decoded); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	row, err := r.crud.Update(c.Request.Context(), id, func(current *T) {
		_ = json.Unmarshal(body, current)
	})
	if err != nil {
		shared.RespondMapped(c, err, contentErrorRules, response.CodeInternal, "error.content_save_failed")
		return
	}
	requestLog(c).Infow("admin_content_updated", "resource", r.name, "id", id, "operator_admin_id", currentAdminID(c))
	response.Success(c, row)
}

func (r contentResource[T]) delete(c *gin.Context) {
	id, ok := shared.ParseUintParam(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	if err := r.crud.Delete(c.Request.Context(), id); err != nil {
		shared.RespondMapped(c, err, contentErrorRules, response.CodeInternal, "error.content_delete_failed")
		return
	}
	requestLog(c).Infow("admin_content_deleted", "resource", r.name, "id", id, "operator_admin_id", currentAdminID(c))
	response.Success(c, nil)
}

// readContentBody 读取请求体并剔除受保护字段
func readContentBody(c *gin.Context) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxContentBodyBytes))
	if err != nil {
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	for _, key := range contentProtectedFields {
		delete(fields, key)
	}
	return json.Marshal(fields)
}
