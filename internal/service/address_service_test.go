package service

import (
	"errors"
	"testing"

	"github.com/altan-shop/internal/models"
	"github.com/altan-shop/internal/repository"
)

func TestAddressSaveDeduplicates(t *testing.T) {
	f := newServiceFixture(t)
	input := AddressInput{City: "Улаанбаатар", District: "СБД", Khoroo: "1-р хороо", Address: "Энхтайваны 5"}

	first, err := f.addresses.Save(7, input)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if first.IsDuplicate || !first.Address.IsDefault {
		t.Fatalf("first address should be new default: %+v", first)
	}
	again, err := f.addresses.Save(7, AddressInput{City: " Улаанбаатар ", District: "СБД", Khoroo: "1-р хороо", Address: "Энхтайваны 5 "})
	if err != nil {
		t.Fatalf("save duplicate failed: %v", err)
	}
	if !again.IsDuplicate || again.Address.ID != first.Address.ID {
		t.Fatalf("identical address should be reused: %+v", again)
	}

	second, err := f.addresses.Save(7, AddressInput{City: "Дархан", Address: "3-р хороолол", IsDefault: true})
	if err != nil {
		t.Fatalf("save second failed: %v", err)
	}
	list, err := f.addresses.List(7)
	if err != nil || len(list) != 2 {
		t.Fatalf("expected 2 addresses, got %d (%v)", len(list), err)
	}
	defaults := 0
	for _, a := range list {
		if a.IsDefault {
			defaults++
			if a.ID != second.Address.ID {
				t.Fatalf("new default should win")
			}
		}
	}
	if defaults != 1 {
		t.Fatalf("exactly one default expected, got %d", defaults)
	}

	if _, err := f.addresses.Save(7, AddressInput{City: "", Address: "x"}); !errors.Is(err, ErrAddressInvalid) {
		t.Fatalf("expected invalid address, got %v", err)
	}
}

func TestAddressDeleteDefaultPromotesNext(t *testing.T) {
	f := newServiceFixture(t)
	first, _ := f.addresses.Save(7, AddressInput{City: "Улаанбаатар", Address: "A"})
	second, _ := f.addresses.Save(7, AddressInput{City: "Улаанбаатар", Address: "B"})

	if err := f.addresses.Delete(7, first.Address.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	list, _ := f.addresses.List(7)
	if len(list) != 1 || list[0].ID != second.Address.ID || !list[0].IsDefault {
		t.Fatalf("remaining address should become default: %+v", list)
	}
	if err := f.addresses.Delete(8, second.Address.ID); !errors.Is(err, ErrAddressNotFound) {
		t.Fatalf("other user cannot delete, got %v", err)
	}
	if _, err := f.addresses.SetDefault(8, second.Address.ID); !errors.Is(err, ErrAddressNotFound) {
		t.Fatalf("other user cannot set default, got %v", err)
	}
}

func TestSaveFromOrderSkipsGuestAndPickup(t *testing.T) {
	f := newServiceFixture(t)
	svc := NewAddressService(repository.NewAddressRepository(f.db), []string{"pickup"})

	orders := []*models.Order{
		{UserID: "guest_1700000000000", City: "Улаанбаатар", ShippingAddress: "Энхтайваны 5"},
		{UserID: "7", City: "Улаанбаатар", ShippingAddress: " Pickup ", IsPickup: false},
		{UserID: "7", City: "Улаанбаатар", ShippingAddress: "Энхтайваны 5", IsPickup: true},
	}
	for _, order := range orders {
		result, err := svc.SaveFromOrder(order)
		if err != nil || result != nil {
			t.Fatalf("order %+v should be skipped: %+v %v", order, result, err)
		}
	}
	result, err := svc.SaveFromOrder(&models.Order{UserID: "7", City: "Улаанбаатар", ShippingAddress: "Улаанбаатар, Энхтайваны 5", AddressLine: "Энхтайваны 5"})
	if err != nil || result == nil || result.Address.Address != "Энхтайваны 5" {
		t.Fatalf("address should be captured from order: %+v %v", result, err)
	}
	tower, err := svc.SaveFromOrder(&models.Order{UserID: "7", City: "Улаанбаатар", ShippingAddress: "СБД, Pickup Tower 12 тоот", AddressLine: "Pickup Tower 12 тоот"})
	if err != nil || tower == nil {
		t.Fatalf("address mentioning pickup should be captured: %+v %v", tower, err)
	}
	if !IsPickupAddress("", nil) || IsPickupAddress("Энхтайваны 5", nil) {
		t.Fatalf("unexpected pickup detection")
	}
}
