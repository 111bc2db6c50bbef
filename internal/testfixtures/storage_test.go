package testfixtures

import (
	"context"
	"errors"
	"testing"

	"github.com/example/ticketdesk/internal/persistence"
)

func TestFlakyStoreInjectsFailures(t *testing.T) {
	ctx := context.Background()
	store := NewFlakyStore()

	if err := store.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if store.SetCalls("k") != 1 {
		t.Fatalf("expected one recorded Set, got %d", store.SetCalls("k"))
	}

	store.FailSet(ErrInjected)
	if err := store.Set(ctx, "k", "other"); !errors.Is(err, ErrInjected) {
		t.Fatalf("expected injected error, got %v", err)
	}
	if raw, _ := store.Raw("k"); raw != "v" {
		t.Fatalf("failed Set must not write, got %q", raw)
	}

	store.FailGet(ErrInjected)
	if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrInjected) {
		t.Fatalf("expected injected error, got %v", err)
	}
	store.FailGet(nil)

	store.FailRemove(ErrInjected)
	if err := store.Remove(ctx, "k"); !errors.Is(err, ErrInjected) {
		t.Fatalf("expected injected error, got %v", err)
	}
	store.FailRemove(nil)
	if err := store.Remove(ctx, "k"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := store.Get(ctx, "k"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if store.RemoveCalls("k") != 1 {
		t.Fatalf("expected one recorded Remove, got %d", store.RemoveCalls("k"))
	}
	if keys := store.Keys(); len(keys) != 0 {
		t.Fatalf("expected no keys after remove, got %v", keys)
	}
}

func TestFlakyStoreKeys(t *testing.T) {
	store := NewFlakyStore()
	store.Seed("b", "2")
	store.Seed("a", "1")

	keys := store.Keys()
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Fatalf("expected sorted keys [a b], got %v", keys)
	}
}
