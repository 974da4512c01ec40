package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/altan-shop/internal/constants"
	"github.com/altan-shop/internal/models"
	"github.com/altan-shop/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CouponService 优惠券服务
type CouponService struct {
	couponRepo repository.CouponRepository
	usageRepo  repository.CouponUsageRepository
	now        func() time.Time
}

// NewCouponService 创建优惠券服务
func NewCouponService(couponRepo repository.CouponRepository, usageRepo repository.CouponUsageRepository) *CouponService {
	return &CouponService{
		couponRepo: couponRepo,
		usageRepo:  usageRepo,
		now:        time.Now,
	}
}

// CouponValidation 校验结果
type CouponValidation struct {
	Coupon             *models.Coupon `json:"-"`
	CouponID           uint           `json:"coupon_id"`
	Code               string         `json:"code"`
	DiscountPercentage models.Money   `json:"discount_percentage"`
	DiscountAmount     models.Money   `json:"discount_amount"`
	IsManual           bool           `json:"is_manual"`
}

// NormalizeCouponCode 去空白并转大写
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate 校验优惠码并计算折扣 subtotal * pct / 100（保留 2 位）
func (s *CouponService) Validate(code string, subtotal models.Money, userID string) (*CouponValidation, error) {
	normalized := NormalizeCouponCode(code)
	if normalized == "" {
		return nil, ErrCouponInvalid
	}
	coupon, err := s.couponRepo.GetByCode(normalized)
	if err != nil {
		return nil, err
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}
	if err := s.checkUsable(s.usageRepo, coupon, userID); err != nil {
		return nil, err
	}
	return &CouponValidation{
		Coupon:             coupon,
		CouponID:           coupon.ID,
		Code:               coupon.Code,
		DiscountPercentage: coupon.DiscountPercentage,
		DiscountAmount:     CalculateCouponDiscount(subtotal, coupon.DiscountPercentage),
		IsManual:           coupon.IsManual,
	}, nil
}

func (s *CouponService) checkUsable(usageRepo repository.CouponUsageRepository, coupon *models.Coupon, userID string) error {
	if !coupon.IsActive {
		return ErrCouponInactive
	}
	if coupon.IsExpired(s.now()) {
		return ErrCouponExpired
	}
	userID = strings.TrimSpace(userID)
	if coupon.IsManual {
		if userID == "" || constants.IsGuestUserID(userID) {
			return ErrCouponGuestManual
		}
		used, err := usageRepo.ExistsByUser(coupon.ID, userID)
		if err != nil {
			return err
		}
		if used {
			return ErrCouponAlreadyUsed
		}
		return nil
	}
	used, err := usageRepo.ExistsByCoupon(coupon.ID)
	if err != nil {
		return err
	}
	if used {
		return ErrCouponAlreadyUsed
	}
	return nil
}

// CalculateCouponDiscount 百分比折扣，不超过小计
func CalculateCouponDiscount(subtotal, percentage models.Money) models.Money {
	if !subtotal.Decimal.IsPositive() || !percentage.Decimal.IsPositive() {
		return models.NewMoneyFromDecimal(decimal.Zero)
	}
	discount := subtotal.Decimal.Mul(percentage.Decimal).Div(decimal.NewFromInt(100)).Round(2)
	if discount.GreaterThan(subtotal.Decimal) {
		discount = subtotal.Decimal
	}
	return models.NewMoneyFromDecimal(discount)
}

// CouponRedemptionKey 核销唯一键：系统券全局一次，手动券每用户一次
func CouponRedemptionKey(coupon *models.Coupon, userID string) string {
	if coupon.IsManual {
		return fmt.Sprintf("coupon:%d:user:%s", coupon.ID, strings.TrimSpace(userID))
	}
	return fmt.Sprintf("coupon:%d", coupon.ID)
}

// RecordUsage 在调用方事务内核销优惠券。
// 唯一键冲突（并发核销）返回 ErrCouponAlreadyUsed。
func (s *CouponService) RecordUsage(tx *gorm.DB, coupon *models.Coupon, userID string, orderID uint, discount models.Money) (*models.CouponUsage, error) {
	if coupon == nil || orderID == 0 {
		return nil, ErrCouponInvalid
	}
	usageRepo := s.usageRepo
	if tx != nil {
		usageRepo = s.usageRepo.WithTx(tx)
	}
	if err := s.checkUsable(usageRepo, coupon, userID); err != nil {
		return nil, err
	}
	usage := &models.CouponUsage{
		CouponID:       coupon.ID,
		UserID:         strings.TrimSpace(userID),
		OrderID:        orderID,
		RedemptionKey:  CouponRedemptionKey(coupon, userID),
		DiscountAmount: discount,
		UsedAt:         s.now(),
	}
	inserted, err := usageRepo.Insert(usage)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return nil, ErrCouponAlreadyUsed
	}
	return usage, nil
}
