package models

import (
	"encoding/json"
	"testing"
)

func TestMoneyUnmarshalAcceptsNumberAndString(t *testing.T) {
	var payload struct {
		A Money `json:"a"`
		B Money `json:"b"`
	}
	if err := json.Unmarshal([]byte(`{"a":96000,"b":"24000.005"}`), &payload); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if payload.A.String() != "96000.00" {
		t.Fatalf("unexpected a: %s", payload.A.String())
	}
	if payload.B.String() != "24000.01" {
		t.Fatalf("unexpected b: %s", payload.B.String())
	}
}

func TestMoneyMarshalFixedScale(t *testing.T) {
	raw, err := json.Marshal(NewMoneyFromInt(120000).Sub(MoneyFromFloat(24000)))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(raw) != `"96000.00"` {
		t.Fatalf("unexpected json: %s", raw)
	}
}

func TestOpenDialectorRejectsUnknownDriver(t *testing.T) {
	if _, err := OpenDialector("oracle", ""); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
	for _, driver := range []string{"sqlite", "postgres", "mysql"} {
		if _, err := OpenDialector(driver, "dsn"); err != nil {
			t.Fatalf("driver %s should be supported: %v", driver, err)
		}
	}
}
