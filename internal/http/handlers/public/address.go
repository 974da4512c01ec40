package public

import (
	"github.com/altan-shop/internal/http/handlers/shared"
	"github.com/altan-shop/internal/http/response"
	"github.com/altan-shop/internal/service"

	"github.com/gin-gonic/gin"
)

// SaveAddressRequest 保存地址请求
type SaveAddressRequest struct {
	City      string `json:"city" binding:"required"`
	District  string `json:"district"`
	Khoroo    string `json:"khoroo"`
	Address   string `json:"address" binding:"required"`
	IsDefault bool   `json:"is_default"`
}

// ListAddresses 当前用户地址簿
func (h *Handler) ListAddresses(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	rows, err := h.AddressService.List(uid)
	if err != nil {
		respondError(c, response.CodeInternal, "error.address_fetch_failed", err)
		return
	}
	response.Success(c, rows)
}

// SaveAddress 保存地址；完全相同的地址直接返回已有记录
func (h *Handler) SaveAddress(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req SaveAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	result, err := h.AddressService.Save(uid, service.AddressInput{
		City:      req.City,
		District:  req.District,
		Khoroo:    req.Khoroo,
		Address:   req.Address,
		IsDefault: req.IsDefault,
	})
	if err != nil {
		shared.RespondMapped(c, err, addressErrorRules, response.CodeInternal, "error.address_save_failed")
		return
	}
	response.Success(c, gin.H{
		"address":      result.Address,
		"is_duplicate": result.IsDuplicate,
	})
}

// SetDefaultAddress 设为默认地址
func (h *Handler) SetDefaultAddress(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := shared.ParseUintParam(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.address_id_invalid", nil)
		return
	}
	address, err := h.AddressService.SetDefault(uid, id)
	if err != nil {
		shared.RespondMapped(c, err, addressErrorRules, response.CodeInternal, "error.address_save_failed")
		return
	}
	response.Success(c, address)
}

// DeleteAddress 删除地址
func (h *Handler) DeleteAddress(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := shared.ParseUintParam(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.address_id_invalid", nil)
		return
	}
	if err := h.AddressService.Delete(uid, id); err != nil {
		shared.RespondMapped(c, err, addressErrorRules, response.CodeInternal, "error.address_delete_failed")
		return
	}
	response.Success(c, gin.H{"deleted": true})
}
