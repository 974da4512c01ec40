package qpay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type memoryTokenStore struct {
	token string
	sets  int
}

func (s *memoryTokenStore) GetToken(ctx context.Context) (string, bool, error) {
	return s.token, s.token != "", nil
}

func (s *memoryTokenStore) SetToken(ctx context.Context, token string, ttl time.Duration) error {
	s.token = token
	s.sets++
	return nil
}

func newTestServer(t *testing.T, tokenCalls *int32, paid bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/auth/token", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "merchant" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		atomic.AddInt32(tokenCalls, 1)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "tok-1",
			"expires_in":   time.Now().Add(time.Hour).Unix(),
		})
	})
	mux.HandleFunc("/v2/invoice", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["invoice_code"] != "SHOP_INVOICE" || body["callback_url"] != "https://api.example.mn/api/qpay/webhook" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"invoice_id":    "inv-1",
			"qr_text":       "000201",
			"qr_image":      "base64png",
			"qPay_shortUrl": "https://s.qpay.mn/x",
			"urls": []map[string]string{
				{"name": "Khan bank", "link": "khanbank://q?qPay_QRcode=000201"},
			},
		})
	})
	mux.HandleFunc("/v2/payment/check", func(w http.ResponseWriter, r *http.Request) {
		status := "NEW"
		if paid {
			status = "PAID"
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"count":       1,
			"paid_amount": 96000,
			"rows": []map[string]interface{}{
				{"payment_id": "p-1", "payment_status": status, "payment_amount": 96000.00, "payment_currency": "MNT"},
			},
		})
	})
	return httptest.NewServer(mux)
}

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:     baseURL + "/",
		Login:       "merchant",
		Password:    "secret",
		InvoiceCode: "SHOP_INVOICE",
		CallbackURL: "https://api.example.mn/api/qpay/webhook",
	}
}

func TestCreateInvoiceCachesToken(t *testing.T) {
	var tokenCalls int32
	srv := newTestServer(t, &tokenCalls, false)
	defer srv.Close()

	store := &memoryTokenStore{}
	client := NewClient(testConfig(srv.URL), store)
	for i := 0; i < 2; i++ {
		invoice, err := client.CreateInvoice(context.Background(), InvoiceRequest{
			SenderInvoiceNo: "ORD20260101123456",
			Description:     "ORD20260101123456",
			Amount:          decimal.NewFromInt(96000),
		})
		if err != nil {
			t.Fatalf("create invoice failed: %v", err)
		}
		if invoice.InvoiceID != "inv-1" || invoice.ShortURL == "" || len(invoice.URLs) != 1 {
			t.Fatalf("unexpected invoice: %+v", invoice)
		}
	}
	if got := atomic.LoadInt32(&tokenCalls); got != 1 {
		t.Fatalf("token should be requested once, got %d", got)
	}
	if store.token != "tok-1" {
		t.Fatalf("token not written to store: %q", store.token)
	}
}

func TestCheckPaymentDetectsPaidRow(t *testing.T) {
	var tokenCalls int32
	srv := newTestServer(t, &tokenCalls, true)
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), nil)
	result, err := client.CheckPayment(context.Background(), "inv-1")
	if err != nil {
		t.Fatalf("check payment failed: %v", err)
	}
	if !result.IsPaid() {
		t.Fatalf("expected paid result: %+v", result)
	}
	if !result.PaidAmount.Equal(decimal.NewFromInt(96000)) || !result.Rows[0].PaymentAmount.Equal(decimal.NewFromInt(96000)) {
		t.Fatalf("numeric amounts not decoded: %+v", result)
	}
}

func TestCheckPaymentAcceptsQuotedAmounts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v2/auth/token" {
			_, _ = w.Write([]byte(`{"access_token":"tok-1","expires_in":3600}`))
			return
		}
		_, _ = w.Write([]byte(`{"count":1,"paid_amount":"96000.00","rows":[{"payment_id":"p-1","payment_status":"PAID","payment_amount":"96000.00"}]}`))
	}))
	defer srv.Close()

	result, err := NewClient(testConfig(srv.URL), nil).CheckPayment(context.Background(), "inv-1")
	if err != nil {
		t.Fatalf("check payment failed: %v", err)
	}
	if !result.IsPaid() || !result.PaidAmount.Equal(decimal.NewFromInt(96000)) {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestGetTokenRejectsBadCredentials(t *testing.T) {
	var tokenCalls int32
	srv := newTestServer(t, &tokenCalls, false)
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Password = "wrong"
	_, err := NewClient(cfg, nil).GetToken(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestValidateConfigRequiresCallback(t *testing.T) {
	cfg := testConfig("https://merchant.qpay.mn")
	cfg.CallbackURL = ""
	cfg.Normalize()
	if err := ValidateConfig(&cfg); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected config invalid, got %v", err)
	}
}

func TestResolveExpiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	if got := resolveExpiry(1_700_003_600, now); !got.Equal(time.Unix(1_700_003_600, 0)) {
		t.Fatalf("absolute expiry not honored: %v", got)
	}
	if got := resolveExpiry(3600, now); !got.Equal(now.Add(time.Hour)) {
		t.Fatalf("relative expiry not honored: %v", got)
	}
}

func TestParseWebhook(t *testing.T) {
	payload, err := ParseWebhook([]byte(`{"object_type":"invoice","object_id":" inv-1 ","payment_status":"paid"}`), nil)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if payload.ObjectType != ObjectTypeInvoice || payload.ObjectID != "inv-1" || payload.PaymentStatus != StatusPaid {
		t.Fatalf("unexpected payload: %+v", payload)
	}

	payload, err = ParseWebhook(nil, url.Values{"invoice_id": []string{"inv-2"}})
	if err != nil || payload.ObjectID != "inv-2" {
		t.Fatalf("query fallback failed: %+v %v", payload, err)
	}

	if _, err := ParseWebhook([]byte(`{}`), nil); !errors.Is(err, ErrResponseInvalid) {
		t.Fatalf("expected invalid payload error, got %v", err)
	}
}
