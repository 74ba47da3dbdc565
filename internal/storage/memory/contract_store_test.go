package memory

import (
	"context"
	"errors"
	"testing"

	"fundflow-lab/internal/domain"
	"fundflow-lab/internal/storage"
)

func TestContractStore_InsertAndGet(t *testing.T) {
	store := NewContractStore()
	ctx := context.Background()

	c := &domain.Contract{
		Address:        "0xaa",
		Creator:        "0xc1",
		CreationTxHash: "0x01",
		BlockNumber:    100,
		Timestamp:      1700000000,
	}

	if err := store.Insert(ctx, c); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByAddress(ctx, "0xaa")
	if err != nil {
		t.Fatalf("GetByAddress failed: %v", err)
	}
	if got.Creator != "0xc1" {
		t.Errorf("Creator mismatch: got %s, want 0xc1", got.Creator)
	}

	// Mutating the returned copy must not affect the store
	got.Creator = "0xff"
	again, _ := store.GetByAddress(ctx, "0xaa")
	if again.Creator != "0xc1" {
		t.Errorf("store was mutated through returned pointer")
	}
}

func TestContractStore_Errors(t *testing.T) {
	store := NewContractStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil, got %v", err)
	}
	if err := store.Insert(ctx, &domain.Contract{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty address, got %v", err)
	}

	c := &domain.Contract{Address: "0xaa", Creator: "0xc1"}
	if err := store.Insert(ctx, c); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Insert(ctx, c); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	if _, err := store.GetByAddress(ctx, "0xbb"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestContractStore_InsertBulkAtomic(t *testing.T) {
	store := NewContractStore()
	ctx := context.Background()

	batch := []*domain.Contract{
		{Address: "0xbb", Creator: "0xc1"},
		{Address: "0xaa", Creator: "0xc1"},
		{Address: "0xbb", Creator: "0xc2"}, // intra-batch duplicate
	}
	if err := store.InsertBulk(ctx, batch); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey, got %v", err)
	}

	addrs, _ := store.ListAddresses(ctx)
	if len(addrs) != 0 {
		t.Fatalf("failed batch left %d contracts behind", len(addrs))
	}

	if err := store.InsertBulk(ctx, batch[:2]); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	addrs, err := store.ListAddresses(ctx)
	if err != nil {
		t.Fatalf("ListAddresses failed: %v", err)
	}
	if len(addrs) != 2 || addrs[0] != "0xaa" || addrs[1] != "0xbb" {
		t.Errorf("ListAddresses = %v, want [0xaa 0xbb]", addrs)
	}
}
