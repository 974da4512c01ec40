package service

import (
	"strconv"
	"strings"

	"github.com/altan-shop/internal/logger"
	"github.com/altan-shop/internal/models"
	"github.com/altan-shop/internal/repository"

	"gorm.io/gorm"
)

// AddressService 收货地址服务
type AddressService struct {
	repo           repository.AddressRepository
	pickupKeywords []string
}

// NewAddressService 创建地址服务
func NewAddressService(repo repository.AddressRepository, pickupKeywords []string) *AddressService {
	return &AddressService{repo: repo, pickupKeywords: pickupKeywords}
}

// AddressInput 保存地址输入
type AddressInput struct {
	City      string
	District  string
	Khoroo    string
	Address   string
	IsDefault bool
}

// SaveAddressResult 保存结果，命中已有地址时 IsDuplicate=true
type SaveAddressResult struct {
	Address     *models.Address `json:"address"`
	IsDuplicate bool            `json:"is_duplicate"`
}

func normalizeAddressInput(userID uint, input AddressInput) models.Address {
	return models.Address{
		UserID:    userID,
		City:      strings.TrimSpace(input.City),
		District:  strings.TrimSpace(input.District),
		Khoroo:    strings.TrimSpace(input.Khoroo),
		Address:   strings.TrimSpace(input.Address),
		IsDefault: input.IsDefault,
	}
}

// List 用户地址列表（默认地址在前）
func (s *AddressService) List(userID uint) ([]models.Address, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByUser(userID)
}

// Save 保存地址：完全相同的地址直接返回已有记录；
// 设为默认时在同一事务内清除其它默认；首个地址自动成为默认。
func (s *AddressService) Save(userID uint, input AddressInput) (*SaveAddressResult, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	candidate := normalizeAddressInput(userID, input)
	if candidate.City == "" || candidate.Address == "" {
		return nil, ErrAddressInvalid
	}

	var result *SaveAddressResult
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindExact(candidate)
		if err != nil {
			return err
		}
		if existing == nil {
			count, err := repo.CountByUser(userID)
			if err != nil {
				return err
			}
			if count == 0 {
				candidate.IsDefault = true
			}
			inserted, err := repo.InsertIgnore(&candidate)
			if err != nil {
				return err
			}
			if !inserted {
				// 并发写入同一地址，读取胜出方
				existing, err = repo.FindExact(candidate)
				if err != nil {
					return err
				}
				if existing == nil {
					return ErrAddressInvalid
				}
			} else {
				if candidate.IsDefault {
					if err := repo.ClearDefault(userID, candidate.ID); err != nil {
						return err
					}
				}
				result = &SaveAddressResult{Address: &candidate}
				return nil
			}
		}

		if input.IsDefault && !existing.IsDefault {
			if err := repo.ClearDefault(userID, existing.ID); err != nil {
				return err
			}
			if err := repo.SetDefault(existing.ID); err != nil {
				return err
			}
			existing.IsDefault = true
		}
		result = &SaveAddressResult{Address: existing, IsDuplicate: true}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SetDefault 设为默认地址
func (s *AddressService) SetDefault(userID, addressID uint) (*models.Address, error) {
	var address *models.Address
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		row, err := repo.GetByIDAndUser(addressID, userID)
		if err != nil {
			return err
		}
		if row == nil {
			return ErrAddressNotFound
		}
		if err := repo.ClearDefault(userID, row.ID); err != nil {
			return err
		}
		if err := repo.SetDefault(row.ID); err != nil {
			return err
		}
		row.IsDefault = true
		address = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return address, nil
}

// Delete 删除地址，删除默认地址时将最早的地址提升为默认
func (s *AddressService) Delete(userID, addressID uint) error {
	return models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		row, err := repo.GetByIDAndUser(addressID, userID)
		if err != nil {
			return err
		}
		if row == nil {
			return ErrAddressNotFound
		}
		if _, err := repo.Delete(row.ID, userID); err != nil {
			return err
		}
		if !row.IsDefault {
			return nil
		}
		next, err := repo.FirstByUser(userID)
		if err != nil || next == nil {
			return err
		}
		return repo.SetDefault(next.ID)
	})
}

// SaveFromOrder 下单时顺带记录地址；游客、自取订单跳过
func (s *AddressService) SaveFromOrder(order *models.Order) (*SaveAddressResult, error) {
	if order == nil || order.IsGuest() || order.IsPickup || IsPickupAddress(order.ShippingAddress, s.pickupKeywords) {
		return nil, nil
	}
	userID, err := strconv.ParseUint(strings.TrimSpace(order.UserID), 10, 64)
	if err != nil || userID == 0 {
		return nil, nil
	}
	line := strings.TrimSpace(order.AddressLine)
	if line == "" {
		line = strings.TrimSpace(order.ShippingAddress)
	}
	if strings.TrimSpace(order.City) == "" || line == "" {
		return nil, nil
	}
	result, err := s.Save(uint(userID), AddressInput{
		City:     order.City,
		District: order.District,
		Khoroo:   order.Khoroo,
		Address:  line,
	})
	if err != nil {
		logger.Warnw("address_capture_failed", "order_id", order.ID, "user_id", order.UserID, "error", err)
		return nil, err
	}
	return result, nil
}

// IsPickupAddress 判断是否为到店自取（空地址也视为无需配送）
// 地址整体等于自取标识才算，含有 "pickup" 字样的普通地址仍需派送
func IsPickupAddress(address string, keywords []string) bool {
	normalized := strings.ToLower(strings.TrimSpace(address))
	if normalized == "" {
		return true
	}
	if len(keywords) == 0 {
		keywords = defaultPickupKeywords
	}
	for _, keyword := range keywords {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword != "" && normalized == keyword {
			return true
		}
	}
	return false
}

var defaultPickupKeywords = []string{"pickup", "store pickup", "өөрөө авах"}
