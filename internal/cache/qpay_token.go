package cache

import (
	"context"
	"time"
)

const qpayTokenKey = "qpay:access_token"

// QPayTokenStore 基于 Redis 的 QPay 访问令牌缓存，多实例共享同一令牌
type QPayTokenStore struct{}

// NewQPayTokenStore 创建令牌缓存
func NewQPayTokenStore() *QPayTokenStore {
	return &QPayTokenStore{}
}

// GetToken 读取令牌
func (QPayTokenStore) GetToken(ctx context.Context) (string, bool, error) {
	return GetString(ctx, qpayTokenKey)
}

// SetToken 写入令牌，空令牌表示失效
func (QPayTokenStore) SetToken(ctx context.Context, token string, ttl time.Duration) error {
	return SetString(ctx, qpayTokenKey, token, ttl)
}
