package memory

import (
	"context"
	"errors"
	"testing"

	"revenue-feature-lab/internal/domain"
	"revenue-feature-lab/internal/storage"
)

func TestRateStore_InsertBulkAndGetAll(t *testing.T) {
	store := NewRateStore()
	ctx := context.Background()

	rates := []*domain.ExchangeRate{
		{Currency: "USD", Date: day(2), Rate: 0.79},
		{Currency: "EUR", Date: day(2), Rate: 0.85},
		{Currency: "USD", Date: day(1), Rate: 0.78},
	}
	if err := store.InsertBulk(ctx, rates); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	all, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 rates, got %d", len(all))
	}
	if all[0].Rate != 0.78 || all[1].Currency != "EUR" {
		t.Errorf("Unexpected order: %+v", all)
	}

	table := domain.NewRateTable(all)
	if r, ok := table.Lookup("EUR", day(2)); !ok || r != 0.85 {
		t.Errorf("Expected EUR 0.85, got %v %v", r, ok)
	}
}

func TestRateStore_DuplicateKey(t *testing.T) {
	store := NewRateStore()
	ctx := context.Background()

	rates := []*domain.ExchangeRate{{Currency: "USD", Date: day(1), Rate: 0.78}}
	if err := store.InsertBulk(ctx, rates); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	if err := store.InsertBulk(ctx, rates); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestRateStore_IntraBatchDuplicate(t *testing.T) {
	store := NewRateStore()
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.ExchangeRate{
		{Currency: "USD", Date: day(1), Rate: 0.78},
		{Currency: "USD", Date: day(1), Rate: 0.80},
	})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	all, _ := store.GetAll(ctx)
	if len(all) != 0 {
		t.Errorf("Expected 0 rates (rollback), got %d", len(all))
	}
}
