package config

import (
	"testing"

	"github.com/spf13/viper"
)

func TestLoadBindsFrontendEnvAliases(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("NEXT_PUBLIC_API_URL", "https://shop.example.mn/")
	t.Setenv("QPAY_LOGIN", "merchant")
	t.Setenv("QPAY_INVOICE_CODE", "SHOP_INVOICE")
	t.Setenv("JWT_SECRET", "access-secret")
	t.Setenv("JWT_REFRESH_SECRET", "refresh-secret")
	t.Setenv("GOOGLE_CLIENT_ID", "client-id.apps.googleusercontent.com")

	cfg := Load()
	if cfg.Server.PublicURL != "https://shop.example.mn" {
		t.Fatalf("unexpected public url: %q", cfg.Server.PublicURL)
	}
	if cfg.QPay.Login != "merchant" || cfg.QPay.InvoiceCode != "SHOP_INVOICE" {
		t.Fatalf("qpay env not bound: %+v", cfg.QPay)
	}
	if cfg.UserJWT.SecretKey != "access-secret" || cfg.UserJWT.RefreshSecretKey != "refresh-secret" {
		t.Fatalf("jwt env not bound: %+v", cfg.UserJWT)
	}
	if !cfg.Google.Enabled() {
		t.Fatalf("google should be enabled when client id is set")
	}
	if got := cfg.QPayCallbackURL(); got != "https://shop.example.mn/api/qpay/webhook" {
		t.Fatalf("unexpected callback url: %s", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg := Load()
	if cfg.Order.FreeShippingThreshold != 100000 {
		t.Fatalf("unexpected free shipping threshold: %v", cfg.Order.FreeShippingThreshold)
	}
	if cfg.Order.Currency != "MNT" {
		t.Fatalf("unexpected currency: %s", cfg.Order.Currency)
	}
	if len(cfg.Delivery.Triggers) != 3 {
		t.Fatalf("expected three delivery triggers, got %v", cfg.Delivery.Triggers)
	}
	if cfg.FlowControl.Rules["qpay_check"] <= 0 {
		t.Fatalf("qpay_check flow rule missing: %v", cfg.FlowControl.Rules)
	}
}
