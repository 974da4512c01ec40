package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/altan-shop/internal/models"

	"gorm.io/gorm"
)

// UserRepository 用户数据访问接口
type UserRepository interface {
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByGoogleSubject(subject string) (*models.User, error)
	Create(user *models.User) error
	Update(user *models.User) error
	TouchLogin(id uint, at time.Time) error
}

// GormUserRepository GORM 实现
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓库
func NewUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) firstOrNil(query *gorm.DB) (*models.User, error) {
	var user models.User
	if err := query.First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetByID 根据 ID 获取用户
func (r *GormUserRepository) GetByID(id uint) (*models.User, error) {
	return r.firstOrNil(r.db.Where("id = ?", id))
}

// GetByEmail 根据邮箱获取用户（邮箱统一小写）
func (r *GormUserRepository) GetByEmail(email string) (*models.User, error) {
	return r.firstOrNil(r.db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))))
}

// GetByGoogleSubject 根据 Google sub 获取用户
func (r *GormUserRepository) GetByGoogleSubject(subject string) (*models.User, error) {
	if strings.TrimSpace(subject) == "" {
		return nil, nil
	}
	return r.firstOrNil(r.db.Where("google_subject = ?", subject))
}

// Create 创建用户
func (r *GormUserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// Update 更新用户
func (r *GormUserRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// TouchLogin 记录最后登录时间
func (r *GormUserRepository) TouchLogin(id uint, at time.Time) error {
	return r.db.Model(&models.User{}).Where("id = ?", id).Update("last_login_at", at).Error
}
