package service

import (
	"strings"
	"time"

	"github.com/altan-shop/internal/models"
	"github.com/altan-shop/internal/repository"

	"github.com/shopspring/decimal"
)

const maxGenerateBatch = 500

// CouponAdminService 优惠券管理服务
type CouponAdminService struct {
	repo      repository.CouponRepository
	usageRepo repository.CouponUsageRepository
}

// NewCouponAdminService 创建优惠券管理服务
func NewCouponAdminService(repo repository.CouponRepository, usageRepo repository.CouponUsageRepository) *CouponAdminService {
	return &CouponAdminService{repo: repo, usageRepo: usageRepo}
}

// CouponInput 创建/更新优惠券输入
type CouponInput struct {
	Code               string
	Description        string
	DiscountPercentage models.Money
	IsManual           bool
	IsActive           *bool
	ExpiresAt          *time.Time
}

// GenerateCouponsInput 批量生成系统券输入
type GenerateCouponsInput struct {
	Count              int
	Description        string
	DiscountPercentage models.Money
	ExpiresAt          *time.Time
}

func validatePercentage(pct models.Money) error {
	if !pct.Decimal.IsPositive() || pct.Decimal.GreaterThan(decimal.NewFromInt(100)) {
		return ErrCouponPercentage
	}
	return nil
}

// Create 创建优惠券，手动券使用后台指定的码
func (s *CouponAdminService) Create(input CouponInput) (*models.Coupon, error) {
	if err := validatePercentage(input.DiscountPercentage); err != nil {
		return nil, err
	}
	code := NormalizeCouponCode(input.Code)
	if code == "" {
		if input.IsManual {
			return nil, ErrCouponInvalid
		}
		generated, err := GenerateCouponCode(s.repo, nil)
		if err != nil {
			return nil, err
		}
		code = generated
	} else {
		exists, err := s.repo.Contains(code)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrCouponCodeExists
		}
	}
	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}
	coupon := &models.Coupon{
		Code:               code,
		Description:        strings.TrimSpace(input.Description),
		DiscountPercentage: models.NewMoneyFromDecimal(input.DiscountPercentage.Decimal),
		IsManual:           input.IsManual,
		IsActive:           isActive,
		ExpiresAt:          input.ExpiresAt,
	}
	if err := s.repo.Create(coupon); err != nil {
		return nil, err
	}
	return coupon, nil
}

// Generate 批量生成系统券（每张全局限用一次）
func (s *CouponAdminService) Generate(input GenerateCouponsInput) ([]models.Coupon, error) {
	if input.Count <= 0 || input.Count > maxGenerateBatch {
		return nil, ErrInvalidInput
	}
	if err := validatePercentage(input.DiscountPercentage); err != nil {
		return nil, err
	}
	batch := make(map[string]struct{}, input.Count)
	used := CouponCodeSetFunc(func(code string) (bool, error) {
		if _, ok := batch[code]; ok {
			return true, nil
		}
		return s.repo.Contains(code)
	})
	coupons := make([]models.Coupon, 0, input.Count)
	for i := 0; i < input.Count; i++ {
		code, err := GenerateCouponCode(used, nil)
		if err != nil {
			return nil, err
		}
		batch[code] = struct{}{}
		coupons = append(coupons, models.Coupon{
			Code:               code,
			Description:        strings.TrimSpace(input.Description),
			DiscountPercentage: models.NewMoneyFromDecimal(input.DiscountPercentage.Decimal),
			IsActive:           true,
			ExpiresAt:          input.ExpiresAt,
		})
	}
	if err := s.repo.CreateBatch(coupons); err != nil {
		return nil, err
	}
	return coupons, nil
}

// Update 更新优惠券
func (s *CouponAdminService) Update(id uint, input CouponInput) (*models.Coupon, error) {
	coupon, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}
	if err := validatePercentage(input.DiscountPercentage); err != nil {
		return nil, err
	}
	if code := NormalizeCouponCode(input.Code); code != "" && code != coupon.Code {
		exists, err := s.repo.Contains(code)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrCouponCodeExists
		}
		coupon.Code = code
	}
	coupon.Description = strings.TrimSpace(input.Description)
	coupon.DiscountPercentage = models.NewMoneyFromDecimal(input.DiscountPercentage.Decimal)
	coupon.IsManual = input.IsManual
	coupon.ExpiresAt = input.ExpiresAt
	if input.IsActive != nil {
		coupon.IsActive = *input.IsActive
	}
	if err := s.repo.Update(coupon); err != nil {
		return nil, err
	}
	return coupon, nil
}

// Delete 删除优惠券
func (s *CouponAdminService) Delete(id uint) error {
	coupon, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if coupon == nil {
		return ErrCouponNotFound
	}
	return s.repo.Delete(id)
}

// List 优惠券列表
func (s *CouponAdminService) List(filter repository.CouponListFilter) ([]models.Coupon, int64, error) {
	return s.repo.List(filter)
}

// ListUsages 核销记录
func (s *CouponAdminService) ListUsages(filter repository.CouponUsageListFilter) ([]models.CouponUsage, int64, error) {
	return s.usageRepo.ListByCoupon(filter)
}
