package service

import (
	"context"
	"strings"
	"time"

	"github.com/altan-shop/internal/cache"
	"github.com/altan-shop/internal/constants"
	"github.com/altan-shop/internal/models"
	"github.com/altan-shop/internal/repository"
)

// ContentCRUD 后台内容通用增删改查，写操作后清理对应公共缓存
type ContentCRUD[T any] struct {
	repo     repository.ContentRepository[T]
	cacheKey string
	validate func(*T) error
}

// NewContentCRUD 创建通用内容服务
func NewContentCRUD[T any](repo repository.ContentRepository[T], cacheKey string, validate func(*T) error) *ContentCRUD[T] {
	return &ContentCRUD[T]{repo: repo, cacheKey: cacheKey, validate: validate}
}

// List 后台分页列表
func (s *ContentCRUD[T]) List(filter repository.ContentListFilter) ([]T, int64, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	return s.repo.List(filter)
}

// Get 获取单条
func (s *ContentCRUD[T]) Get(id uint) (*T, error) {
	if id == 0 {
		return nil, ErrNotFound
	}
	row, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, ErrNotFound
	}
	return row, nil
}

// Create 创建
func (s *ContentCRUD[T]) Create(ctx context.Context, row *T) error {
	if row == nil {
		return ErrInvalidInput
	}
	if s.validate != nil {
		if err := s.validate(row); err != nil {
			return err
		}
	}
	if err := s.repo.Create(row); err != nil {
		return err
	}
	cache.InvalidateContent(ctx, s.cacheKey)
	return nil
}

// Update 读取后交给 apply 修改字段再保存
func (s *ContentCRUD[T]) Update(ctx context.Context, id uint, apply func(*T)) (*T, error) {
	row, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if apply != nil {
		apply(row)
	}
	if s.validate != nil {
		if err := s.validate(row); err != nil {
			return nil, err
		}
	}
	if err := s.repo.Update(row); err != nil {
		return nil, err
	}
	cache.InvalidateContent(ctx, s.cacheKey)
	return row, nil
}

// Delete 删除
func (s *ContentCRUD[T]) Delete(ctx context.Context, id uint) error {
	deleted, err := s.repo.Delete(id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	cache.InvalidateContent(ctx, s.cacheKey)
	return nil
}

// listActive 前台可见列表，经 Redis 缓存
func (s *ContentCRUD[T]) listActive(ctx context.Context, now time.Time) ([]T, error) {
	return cache.Remember(ctx, s.cacheKey, func() ([]T, error) {
		rows, err := s.repo.ListActive(now)
		if err != nil {
			return nil, err
		}
		if rows == nil {
			rows = []T{}
		}
		return rows, nil
	})
}

// ContentService 站点内容服务（银行账户、轮播图、合作伙伴、页脚、满额赠品）
type ContentService struct {
	BankAccounts *ContentCRUD[models.BankAccount]
	Banners      *ContentCRUD[models.Banner]
	Partners     *ContentCRUD[models.Partner]
	Footers      *ContentCRUD[models.Footer]
	GiftSettings *ContentCRUD[models.GiftSetting]

	now func() time.Time
}

// ContentRepositories 内容服务依赖的仓库
type ContentRepositories struct {
	BankAccounts repository.ContentRepository[models.BankAccount]
	Banners      repository.ContentRepository[models.Banner]
	Partners     repository.ContentRepository[models.Partner]
	Footers      repository.ContentRepository[models.Footer]
	GiftSettings repository.ContentRepository[models.GiftSetting]
}

// NewContentService 创建内容服务
func NewContentService(repos ContentRepositories) *ContentService {
	return &ContentService{
		BankAccounts: NewContentCRUD(repos.BankAccounts, cache.ContentBankAccounts, validateBankAccount),
		Banners:      NewContentCRUD(repos.Banners, cache.ContentBanners, validateBanner),
		Partners:     NewContentCRUD(repos.Partners, cache.ContentPartners, validatePartner),
		Footers:      NewContentCRUD(repos.Footers, cache.ContentFooter, nil),
		GiftSettings: NewContentCRUD(repos.GiftSettings, cache.ContentGiftSettings, validateGiftSetting),
		now:          time.Now,
	}
}

// ActiveBankAccounts 前台展示的收款账户
func (s *ContentService) ActiveBankAccounts(ctx context.Context) ([]models.BankAccount, error) {
	return s.BankAccounts.listActive(ctx, s.now())
}

// ActiveBanners 前台轮播图，position 为空时返回全部位置
func (s *ContentService) ActiveBanners(ctx context.Context, position string) ([]models.Banner, error) {
	rows, err := s.Banners.listActive(ctx, s.now())
	if err != nil {
		return nil, err
	}
	position = strings.ToLower(strings.TrimSpace(position))
	if position == "" {
		return rows, nil
	}
	filtered := make([]models.Banner, 0, len(rows))
	for _, row := range rows {
		if strings.EqualFold(row.Position, position) {
			filtered = append(filtered, row)
		}
	}
	return filtered, nil
}

// ActivePartners 前台合作伙伴
func (s *ContentService) ActivePartners(ctx context.Context) ([]models.Partner, error) {
	return s.Partners.listActive(ctx, s.now())
}

// ActiveFooter 最新启用的页脚，没有时返回 nil
func (s *ContentService) ActiveFooter(ctx context.Context) (*models.Footer, error) {
	rows, err := s.Footers.listActive(ctx, s.now())
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	footer := rows[0]
	return &footer, nil
}

// ActiveGiftSettings 当前生效的满额赠品；amount 非空时只返回已达门槛的
func (s *ContentService) ActiveGiftSettings(ctx context.Context, amount *models.Money) ([]models.GiftSetting, error) {
	rows, err := s.GiftSettings.listActive(ctx, s.now())
	if err != nil {
		return nil, err
	}
	if amount == nil {
		return rows, nil
	}
	eligible := make([]models.GiftSetting, 0, len(rows))
	for _, row := range rows {
		if amount.GreaterThanOrEqual(row.MinOrderAmount.Decimal) {
			eligible = append(eligible, row)
		}
	}
	return eligible, nil
}

func validateBankAccount(row *models.BankAccount) error {
	row.BankName = strings.TrimSpace(row.BankName)
	row.AccountName = strings.TrimSpace(row.AccountName)
	row.AccountNumber = strings.TrimSpace(row.AccountNumber)
	row.IBAN = strings.ToUpper(strings.ReplaceAll(row.IBAN, " ", ""))
	if row.BankName == "" || row.AccountName == "" || row.AccountNumber == "" {
		return ErrInvalidInput
	}
	return nil
}

func validateBanner(row *models.Banner) error {
	row.Position = strings.ToLower(strings.TrimSpace(row.Position))
	row.Image = strings.TrimSpace(row.Image)
	if row.Position == "" {
		row.Position = constants.BannerPositionHomeHero
	}
	if row.Image == "" {
		return ErrInvalidInput
	}
	if row.StartAt != nil && row.EndAt != nil && row.EndAt.Before(*row.StartAt) {
		return ErrInvalidInput
	}
	return nil
}

func validatePartner(row *models.Partner) error {
	row.Name = strings.TrimSpace(row.Name)
	row.Logo = strings.TrimSpace(row.Logo)
	if row.Name == "" || row.Logo == "" {
		return ErrInvalidInput
	}
	return nil
}

func validateGiftSetting(row *models.GiftSetting) error {
	row.Title = strings.TrimSpace(row.Title)
	row.GiftName = strings.TrimSpace(row.GiftName)
	if row.Title == "" || row.GiftName == "" || row.MinOrderAmount.IsNegative() {
		return ErrInvalidInput
	}
	if row.StartsAt != nil && row.EndsAt != nil && row.EndsAt.Before(*row.StartsAt) {
		return ErrInvalidInput
	}
	return nil
}
