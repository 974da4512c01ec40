package echuchu

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCreateDeliverySendsBearerAndIdempotencyKey(t *testing.T) {
	var got Parcel
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != createPath {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("Authorization") != "Bearer key-1" || r.Header.Get("Idempotency-Key") != "7:delivery_create" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"success":true,"data":{"delivery_id":"d-1","tracking_no":"EC123"}}`))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, APIKey: "key-1"})
	result, err := client.CreateDelivery(context.Background(), Parcel{
		ExternalID:     "ORD20260101000001",
		IdempotencyKey: "7:delivery_create",
		ReceiverName:   "Бат",
		ReceiverPhone:  "99112233",
		Address:        "Улаанбаатар, СБД, 1-р хороо",
		Description:    "Цүнх x2, Малгай x1",
	})
	if err != nil {
		t.Fatalf("create delivery failed: %v", err)
	}
	if result.Reference() != "EC123" {
		t.Fatalf("unexpected reference: %s", result.Reference())
	}
	if got.Description != "Цүнх x2, Малгай x1" || got.ExternalID != "ORD20260101000001" {
		t.Fatalf("unexpected parcel: %+v", got)
	}
}

func TestCreateDeliveryUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, APIKey: "key-1", Timeout: time.Second})
	if _, err := client.CreateDelivery(context.Background(), Parcel{ExternalID: "x"}); !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("expected request failed, got %v", err)
	}

	srv2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"message":"address rejected"}`))
	}))
	defer srv2.Close()
	client = NewClient(Config{BaseURL: srv2.URL, APIKey: "key-1"})
	if _, err := client.CreateDelivery(context.Background(), Parcel{ExternalID: "x"}); !errors.Is(err, ErrResponseInvalid) {
		t.Fatalf("expected response invalid, got %v", err)
	}
}

func TestValidateConfig(t *testing.T) {
	cfg := Config{BaseURL: " https://api.e-chuchu.mn/ "}
	cfg.Normalize()
	if cfg.BaseURL != "https://api.e-chuchu.mn" {
		t.Fatalf("base url not normalized: %s", cfg.BaseURL)
	}
	if err := ValidateConfig(&cfg); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("missing api key should fail, got %v", err)
	}
}

func TestFlattenItems(t *testing.T) {
	got := FlattenItems([]Item{{Name: "Цүнх", Quantity: 2}, {Name: " ", Quantity: 1}, {Name: "Малгай", Quantity: 1}})
	if got != "Цүнх x2, Малгай x1" {
		t.Fatalf("unexpected flatten result: %q", got)
	}
}
