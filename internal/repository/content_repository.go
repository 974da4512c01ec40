package repository

import (
	"errors"
	"time"

	"github.com/altan-shop/internal/models"

	"gorm.io/gorm"
)

// ContentRepository 后台内容（银行账户、轮播、合作伙伴、页脚、赠品）通用数据访问接口
type ContentRepository[T any] interface {
	List(filter ContentListFilter) ([]T, int64, error)
	ListActive(now time.Time) ([]T, error)
	GetByID(id uint) (*T, error)
	Create(row *T) error
	Update(row *T) error
	Delete(id uint) (bool, error)
}

// GormContentRepository GORM 通用实现
type GormContentRepository[T any] struct {
	db           *gorm.DB
	searchFields []string
	orderBy      string
	windowed     bool // 是否带有效期字段
	startColumn  string
	endColumn    string
}

// NewBankAccountRepository 银行账户仓库
func NewBankAccountRepository(db *gorm.DB) *GormContentRepository[models.BankAccount] {
	return &GormContentRepository[models.BankAccount]{
		db:           db,
		searchFields: []string{"bank_name", "account_name", "account_number"},
		orderBy:      "sort_order desc, id asc",
	}
}

// NewPartnerRepository 合作伙伴仓库
func NewPartnerRepository(db *gorm.DB) *GormContentRepository[models.Partner] {
	return &GormContentRepository[models.Partner]{
		db:           db,
		searchFields: []string{"name"},
		orderBy:      "sort_order desc, id asc",
	}
}

// NewFooterRepository 页脚仓库
func NewFooterRepository(db *gorm.DB) *GormContentRepository[models.Footer] {
	return &GormContentRepository[models.Footer]{
		db:           db,
		searchFields: []string{"company_name"},
		orderBy:      "id desc",
	}
}

// NewGiftSettingRepository 赠品设置仓库
func NewGiftSettingRepository(db *gorm.DB) *GormContentRepository[models.GiftSetting] {
	return &GormContentRepository[models.GiftSetting]{
		db:           db,
		searchFields: []string{"title", "gift_name"},
		orderBy:      "min_order_amount asc, id asc",
		windowed:     true,
		startColumn:  "starts_at",
		endColumn:    "ends_at",
	}
}

// NewBannerRepository 轮播图仓库
func NewBannerRepository(db *gorm.DB) *GormContentRepository[models.Banner] {
	return &GormContentRepository[models.Banner]{
		db:           db,
		searchFields: []string{"title", "title_mn"},
		orderBy:      "sort_order desc, created_at desc",
		windowed:     true,
		startColumn:  "start_at",
		endColumn:    "end_at",
	}
}

// List 后台列表
func (r *GormContentRepository[T]) List(filter ContentListFilter) ([]T, int64, error) {
	query := r.db.Model(new(T))
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if cond, args := buildLikeCondition(r.db, filter.Search, r.searchFields...); cond != "" {
		query = query.Where(cond, args...)
	}
	return countAndFind[T](query, filter.Page, filter.PageSize, r.orderBy)
}

// ListActive 前台可见记录
func (r *GormContentRepository[T]) ListActive(now time.Time) ([]T, error) {
	return r.ListActiveWhere(now, nil)
}

// ListActiveWhere 前台可见记录，可附加额外条件
func (r *GormContentRepository[T]) ListActiveWhere(now time.Time, scope func(*gorm.DB) *gorm.DB) ([]T, error) {
	query := r.db.Model(new(T)).Where("is_active = ?", true)
	if r.windowed {
		query = query.Where("("+r.startColumn+" IS NULL OR "+r.startColumn+" <= ?)", now).
			Where("("+r.endColumn+" IS NULL OR "+r.endColumn+" >= ?)", now)
	}
	if scope != nil {
		query = scope(query)
	}
	var rows []T
	if err := query.Order(r.orderBy).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetByID 根据 ID 获取
func (r *GormContentRepository[T]) GetByID(id uint) (*T, error) {
	row := new(T)
	if err := r.db.First(row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return row, nil
}

// Create 创建
func (r *GormContentRepository[T]) Create(row *T) error {
	return r.db.Create(row).Error
}

// Update 保存
func (r *GormContentRepository[T]) Update(row *T) error {
	return r.db.Save(row).Error
}

// Delete 删除
func (r *GormContentRepository[T]) Delete(id uint) (bool, error) {
	result := r.db.Delete(new(T), id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
