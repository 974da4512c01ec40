package cache

import (
	"context"
	"time"
)

// 公共内容缓存键
const (
	ContentBankAccounts = "content:bank_accounts"
	ContentBanners      = "content:banners"
	ContentPartners     = "content:partners"
	ContentFooter       = "content:footer"
	ContentGiftSettings = "content:gift_settings"

	contentCacheTTL = 5 * time.Minute
)

// Remember 命中缓存直接返回，否则加载并写回
func Remember[T any](ctx context.Context, key string, load func() (T, error)) (T, error) {
	var cached T
	if hit, err := GetJSON(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}
	value, err := load()
	if err != nil {
		return value, err
	}
	_ = SetJSON(ctx, key, value, contentCacheTTL)
	return value, nil
}

// InvalidateContent 后台修改内容后清理公共缓存
func InvalidateContent(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		keys = []string{ContentBankAccounts, ContentBanners, ContentPartners, ContentFooter, ContentGiftSettings}
	}
	_ = Del(ctx, keys...)
}
