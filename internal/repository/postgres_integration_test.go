//go:build integration

package repository

import (
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/altan-shop/internal/constants"
	"github.com/altan-shop/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupPostgresIntegrationDB 初始化 PostgreSQL 集成测试数据库。
func setupPostgresIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("skip postgres integration test: TEST_POSTGRES_DSN is empty")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open postgres failed: %v", err)
	}
	all := models.AllModels()
	_ = db.Migrator().DropTable(all...)
	if err := db.AutoMigrate(all...); err != nil {
		t.Fatalf("migrate postgres models failed: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Migrator().DropTable(all...)
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestPostgresConcurrentPaymentFlipHasSingleWinner(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewOrderRepository(db)
	order := &models.Order{OrderNumber: "ORD20250101999999", UserID: "1", CustomerName: "Bat", PhoneNumber: "99112233"}
	if err := repo.Create(order, nil); err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	var winners int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := repo.MarkPaymentStatus(order.ID, constants.PaymentStatusPending, constants.PaymentStatusPaid, map[string]interface{}{"paid_at": time.Now()})
			if err != nil {
				t.Errorf("flip failed: %v", err)
				return
			}
			if won {
				atomic.AddInt32(&winners, 1)
			}
		}()
	}
	wg.Wait()
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
}

func TestPostgresDispatchClaimOnConflict(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewDeliveryDispatchRepository(db)
	for i, want := range []bool{true, false} {
		claimed, err := repo.Claim(&models.DeliveryDispatch{
			OrderID:        1,
			DispatchType:   constants.DispatchTypeDeliveryCreate,
			IdempotencyKey: "1:delivery_create",
			Trigger:        constants.DispatchTriggerInvoiceCreated,
		})
		if err != nil {
			t.Fatalf("claim %d failed: %v", i, err)
		}
		if claimed != want {
			t.Fatalf("claim %d: want %v got %v", i, want, claimed)
		}
	}
}
