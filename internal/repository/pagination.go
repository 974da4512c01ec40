package repository

import "gorm.io/gorm"

// applyPagination 应用分页参数，统一处理非法页码与偏移量。
func applyPagination(query *gorm.DB, page, pageSize int) *gorm.DB {
	if query == nil || pageSize <= 0 {
		return query
	}
	if page < 1 {
		page = 1
	}
	return query.Limit(pageSize).Offset((page - 1) * pageSize)
}

// countAndFind 先统计总数再分页查询，scopes 仅作用于查询阶段（如 Preload）
func countAndFind[T any](query *gorm.DB, page, pageSize int, orderBy string, scopes ...func(*gorm.DB) *gorm.DB) ([]T, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []T
	if err := applyPagination(query, page, pageSize).Scopes(scopes...).Order(orderBy).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
