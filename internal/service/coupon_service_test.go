package service

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/altan-shop/internal/models"
	"github.com/altan-shop/internal/repository"
)

func TestCalculateCouponDiscount(t *testing.T) {
	got := CalculateCouponDiscount(models.NewMoneyFromInt(120000), models.NewMoneyFromInt(20))
	if !got.Equal(models.NewMoneyFromInt(24000)) {
		t.Fatalf("expected 24000, got %s", got)
	}
	capped := CalculateCouponDiscount(models.NewMoneyFromInt(100), models.NewMoneyFromInt(150))
	if !capped.Equal(models.NewMoneyFromInt(100)) {
		t.Fatalf("discount should be capped at subtotal, got %s", capped)
	}
	if !CalculateCouponDiscount(models.NewMoneyFromInt(0), models.NewMoneyFromInt(20)).IsZero() {
		t.Fatalf("zero subtotal should give zero discount")
	}
}

func TestValidateCouponRules(t *testing.T) {
	f := newServiceFixture(t)
	createTestCoupon(t, f.db, "SAVE20", 20, true)
	inactive := createTestCoupon(t, f.db, "OFF", 10, true)
	f.db.Model(inactive).Update("is_active", false)
	expired := createTestCoupon(t, f.db, "OLD", 10, false)
	f.db.Model(expired).Update("expires_at", time.Now().Add(-time.Minute))

	subtotal := models.NewMoneyFromInt(120000)
	validation, err := f.coupons.Validate(" save20 ", subtotal, "7")
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if validation.Code != "SAVE20" || !validation.DiscountAmount.Equal(models.NewMoneyFromInt(24000)) {
		t.Fatalf("unexpected validation: %+v", validation)
	}

	cases := []struct {
		code   string
		userID string
		want   error
	}{
		{"", "7", ErrCouponInvalid},
		{"NOPE", "7", ErrCouponNotFound},
		{"OFF", "7", ErrCouponInactive},
		{"OLD", "7", ErrCouponExpired},
		{"SAVE20", "guest_1700000000000", ErrCouponGuestManual},
		{"SAVE20", "", ErrCouponGuestManual},
	}
	for _, tc := range cases {
		if _, err := f.coupons.Validate(tc.code, subtotal, tc.userID); !errors.Is(err, tc.want) {
			t.Fatalf("code %q user %q: expected %v, got %v", tc.code, tc.userID, tc.want, err)
		}
	}
}

func TestRecordUsageIsIdempotentPerRedemptionKey(t *testing.T) {
	f := newServiceFixture(t)
	manual := createTestCoupon(t, f.db, "SAVE20", 20, true)
	generated := createTestCoupon(t, f.db, "ABCDEF", 10, false)
	discount := models.NewMoneyFromInt(100)

	if _, err := f.coupons.RecordUsage(f.db, manual, "7", 1, discount); err != nil {
		t.Fatalf("record usage failed: %v", err)
	}
	if _, err := f.coupons.RecordUsage(f.db, manual, "7", 2, discount); !errors.Is(err, ErrCouponAlreadyUsed) {
		t.Fatalf("same user should be rejected, got %v", err)
	}
	if _, err := f.coupons.RecordUsage(f.db, manual, "8", 3, discount); err != nil {
		t.Fatalf("other user should redeem manual coupon: %v", err)
	}

	if _, err := f.coupons.RecordUsage(f.db, generated, "7", 4, discount); err != nil {
		t.Fatalf("record generated usage failed: %v", err)
	}
	if _, err := f.coupons.RecordUsage(f.db, generated, "8", 5, discount); !errors.Is(err, ErrCouponAlreadyUsed) {
		t.Fatalf("generated coupon is single use globally, got %v", err)
	}
	if CouponRedemptionKey(manual, "7") != "coupon:1:user:7" || CouponRedemptionKey(generated, "7") != "coupon:2" {
		t.Fatalf("unexpected redemption keys")
	}
}

func TestGenerateCouponCode(t *testing.T) {
	rnd := bytes.NewReader([]byte{0, 1, 2, 3, 4, 5, 250, 6})
	code, err := GenerateCouponCode(nil, rnd)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if code != "ABCDEF" {
		t.Fatalf("expected ABCDEF, got %s", code)
	}

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := GenerateCouponCode(CouponCodeSetFunc(func(c string) (bool, error) { return seen[c], nil }), nil)
		if err != nil {
			t.Fatalf("generate failed: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("unexpected code length: %s", code)
		}
		for _, r := range code {
			if r < 'A' || r > 'Z' {
				t.Fatalf("unexpected character in %s", code)
			}
		}
		if seen[code] {
			t.Fatalf("duplicate code generated: %s", code)
		}
		seen[code] = true
	}

	always := CouponCodeSetFunc(func(string) (bool, error) { return true, nil })
	if _, err := GenerateCouponCode(always, nil); !errors.Is(err, ErrCouponCodeExhausted) {
		t.Fatalf("expected exhausted, got %v", err)
	}
}

func TestCouponAdminGenerateBatch(t *testing.T) {
	f := newServiceFixture(t)
	admin := NewCouponAdminService(repository.NewCouponRepository(f.db), repository.NewCouponUsageRepository(f.db))

	coupons, err := admin.Generate(GenerateCouponsInput{Count: 20, DiscountPercentage: models.NewMoneyFromInt(15)})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	unique := map[string]bool{}
	for _, c := range coupons {
		if c.IsManual || !c.IsActive || len(c.Code) != 6 {
			t.Fatalf("unexpected generated coupon: %+v", c)
		}
		unique[c.Code] = true
	}
	if len(unique) != 20 {
		t.Fatalf("expected 20 unique codes, got %d", len(unique))
	}
	if _, err := admin.Generate(GenerateCouponsInput{Count: 1, DiscountPercentage: models.NewMoneyFromInt(120)}); !errors.Is(err, ErrCouponPercentage) {
		t.Fatalf("expected percentage error, got %v", err)
	}

	if _, err := admin.Create(CouponInput{Code: "save20", DiscountPercentage: models.NewMoneyFromInt(20), IsManual: true}); err != nil {
		t.Fatalf("create manual coupon failed: %v", err)
	}
	if _, err := admin.Create(CouponInput{Code: "SAVE20", DiscountPercentage: models.NewMoneyFromInt(20), IsManual: true}); !errors.Is(err, ErrCouponCodeExists) {
		t.Fatalf("expected code exists, got %v", err)
	}
}
