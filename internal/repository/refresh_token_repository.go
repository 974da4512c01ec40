package repository

import (
	"errors"
	"time"

	"github.com/altan-shop/internal/models"

	"gorm.io/gorm"
)

// RefreshTokenRepository 刷新令牌数据访问接口
type RefreshTokenRepository interface {
	Create(token *models.RefreshToken) error
	GetByHash(hash string) (*models.RefreshToken, error)
	MarkUsed(id uint, at time.Time) (bool, error)
	RevokeByUser(userID uint, at time.Time) error
	WithTx(tx *gorm.DB) *GormRefreshTokenRepository
}

// GormRefreshTokenRepository GORM 实现
type GormRefreshTokenRepository struct {
	db *gorm.DB
}

// NewRefreshTokenRepository 创建刷新令牌仓库
func NewRefreshTokenRepository(db *gorm.DB) *GormRefreshTokenRepository {
	return &GormRefreshTokenRepository{db: db}
}

// WithTx 绑定事务
func (r *GormRefreshTokenRepository) WithTx(tx *gorm.DB) *GormRefreshTokenRepository {
	if tx == nil {
		return r
	}
	return &GormRefreshTokenRepository{db: tx}
}

// Create 保存刷新令牌
func (r *GormRefreshTokenRepository) Create(token *models.RefreshToken) error {
	return r.db.Create(token).Error
}

// GetByHash 根据哈希获取令牌
func (r *GormRefreshTokenRepository) GetByHash(hash string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	if err := r.db.Where("token_hash = ?", hash).Take(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &token, nil
}

// MarkUsed 轮换时标记已使用，并发重放只有一次成功
func (r *GormRefreshTokenRepository) MarkUsed(id uint, at time.Time) (bool, error) {
	result := r.db.Model(&models.RefreshToken{}).
		Where("id = ? AND used_at IS NULL AND revoked_at IS NULL", id).
		Update("used_at", at)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// RevokeByUser 吊销用户全部未使用令牌
func (r *GormRefreshTokenRepository) RevokeByUser(userID uint, at time.Time) error {
	return r.db.Model(&models.RefreshToken{}).
		Where("user_id = ? AND used_at IS NULL AND revoked_at IS NULL", userID).
		Update("revoked_at", at).Error
}
