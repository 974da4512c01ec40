package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDisabledCacheIsNoop(t *testing.T) {
	if err := InitRedis(nil); err != nil {
		t.Fatalf("init disabled redis failed: %v", err)
	}
	if Enabled() {
		t.Fatalf("cache should be disabled")
	}
	store := NewQPayTokenStore()
	if err := store.SetToken(context.Background(), "tok", time.Minute); err != nil {
		t.Fatalf("set token on disabled cache failed: %v", err)
	}
	if _, hit, err := store.GetToken(context.Background()); hit || err != nil {
		t.Fatalf("disabled cache should miss, hit=%v err=%v", hit, err)
	}
}

func TestRememberLoadsOnMiss(t *testing.T) {
	_ = InitRedis(nil)
	calls := 0
	load := func() ([]string, error) {
		calls++
		return []string{"a"}, nil
	}
	for i := 0; i < 2; i++ {
		got, err := Remember(context.Background(), ContentBanners, load)
		if err != nil || len(got) != 1 {
			t.Fatalf("unexpected remember result: %v %v", got, err)
		}
	}
	if calls != 2 {
		t.Fatalf("disabled cache should load every time, got %d", calls)
	}

	boom := errors.New("boom")
	if _, err := Remember(context.Background(), ContentFooter, func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("loader error not returned: %v", err)
	}
}

func TestBuildKey(t *testing.T) {
	if got := BuildKey(" qpay:access_token "); got != redisPrefix+":qpay:access_token" {
		t.Fatalf("unexpected key: %s", got)
	}
}
