package repository

import (
	"errors"
	"time"

	"github.com/altan-shop/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AddressRepository 收货地址数据访问接口
type AddressRepository interface {
	ListByUser(userID uint) ([]models.Address, error)
	GetByIDAndUser(id, userID uint) (*models.Address, error)
	FindExact(address models.Address) (*models.Address, error)
	InsertIgnore(address *models.Address) (bool, error)
	CountByUser(userID uint) (int64, error)
	ClearDefault(userID uint, exceptID uint) error
	SetDefault(id uint) error
	Delete(id, userID uint) (bool, error)
	FirstByUser(userID uint) (*models.Address, error)
	WithTx(tx *gorm.DB) *GormAddressRepository
}

// GormAddressRepository GORM 实现
type GormAddressRepository struct {
	db *gorm.DB
}

// NewAddressRepository 创建收货地址仓库
func NewAddressRepository(db *gorm.DB) *GormAddressRepository {
	return &GormAddressRepository{db: db}
}

// WithTx 绑定事务
func (r *GormAddressRepository) WithTx(tx *gorm.DB) *GormAddressRepository {
	if tx == nil {
		return r
	}
	return &GormAddressRepository{db: tx}
}

func (r *GormAddressRepository) takeOrNil(query *gorm.DB) (*models.Address, error) {
	var address models.Address
	if err := query.Take(&address).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &address, nil
}

// ListByUser 地址列表：默认地址在前
func (r *GormAddressRepository) ListByUser(userID uint) ([]models.Address, error) {
	var addresses []models.Address
	if err := r.db.Where("user_id = ?", userID).
		Order("is_default desc, id asc").
		Find(&addresses).Error; err != nil {
		return nil, err
	}
	return addresses, nil
}

// GetByIDAndUser 获取用户的某个地址
func (r *GormAddressRepository) GetByIDAndUser(id, userID uint) (*models.Address, error) {
	return r.takeOrNil(r.db.Where("id = ? AND user_id = ?", id, userID))
}

// FindExact 按规范化后的五元组精确匹配
func (r *GormAddressRepository) FindExact(address models.Address) (*models.Address, error) {
	return r.takeOrNil(r.db.Where(
		"user_id = ? AND city = ? AND district = ? AND khoroo = ? AND address = ?",
		address.UserID, address.City, address.District, address.Khoroo, address.Address,
	))
}

// InsertIgnore 插入地址，唯一索引冲突时返回 false
func (r *GormAddressRepository) InsertIgnore(address *models.Address) (bool, error) {
	result := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(address)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CountByUser 用户地址数量
func (r *GormAddressRepository) CountByUser(userID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&models.Address{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ClearDefault 取消用户其余地址的默认标记
func (r *GormAddressRepository) ClearDefault(userID uint, exceptID uint) error {
	return r.db.Model(&models.Address{}).
		Where("user_id = ? AND id <> ? AND is_default = ?", userID, exceptID, true).
		Updates(map[string]interface{}{"is_default": false, "updated_at": time.Now()}).Error
}

// SetDefault 设置默认地址
func (r *GormAddressRepository) SetDefault(id uint) error {
	return r.db.Model(&models.Address{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_default": true, "updated_at": time.Now()}).Error
}

// Delete 删除用户地址
func (r *GormAddressRepository) Delete(id, userID uint) (bool, error) {
	result := r.db.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Address{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// FirstByUser 最早创建的地址
func (r *GormAddressRepository) FirstByUser(userID uint) (*models.Address, error) {
	return r.takeOrNil(r.db.Where("user_id = ?", userID).Order("id asc"))
}
