package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/tjfontaine/hookgate/internal/core/ports"
)

func TestMemoryStore_AppendAndList(t *testing.T) {
	store := New()
	ctx := context.Background()

	for _, rec := range []*ports.EventRecord{
		{Kind: "retry", OperationID: "op-1"},
		{Kind: "error", OperationID: "op-2"},
		{Kind: "block", OperationID: "op-1"},
	} {
		if err := store.AppendEvent(ctx, rec); err != nil {
			t.Fatalf("AppendEvent() error = %v", err)
		}
	}

	got, err := store.ListEvents(ctx, ports.ListOptions{OperationID: "op-1"})
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(got) != 2 || got[0].Kind != "retry" || got[1].Kind != "block" {
		t.Fatalf("unexpected events: %+v", got)
	}
	if got[0].ID != 1 || got[1].ID != 3 {
		t.Errorf("IDs = %d, %d", got[0].ID, got[1].ID)
	}
	if got[0].CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	errs, _ := store.ListEvents(ctx, ports.ListOptions{Kind: "error"})
	if len(errs) != 1 || errs[0].OperationID != "op-2" {
		t.Errorf("kind filter: %+v", errs)
	}

	limited, _ := store.ListEvents(ctx, ports.ListOptions{Limit: 1})
	if len(limited) != 1 {
		t.Errorf("limit: got %d", len(limited))
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := New()
	ctx := context.Background()

	rec := &ports.EventRecord{Kind: "retry", OperationID: "op"}
	store.AppendEvent(ctx, rec)
	rec.Kind = "mutated"

	got, _ := store.ListEvents(ctx, ports.ListOptions{})
	got[0].Reason = "mutated"

	again, _ := store.ListEvents(ctx, ports.ListOptions{})
	if again[0].Kind != "retry" || again[0].Reason != "" {
		t.Errorf("store shares records with callers: %+v", again[0])
	}
}

func TestMemoryStore_Capacity(t *testing.T) {
	store := NewWithCapacity(3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		store.AppendEvent(ctx, &ports.EventRecord{Kind: "retry", OperationID: fmt.Sprintf("op-%d", i)})
	}

	got, _ := store.ListEvents(ctx, ports.ListOptions{})
	if len(got) != 3 {
		t.Fatalf("got %d events, want 3", len(got))
	}
	if got[0].OperationID != "op-2" || got[2].OperationID != "op-4" {
		t.Errorf("expected the newest events, got %s..%s", got[0].OperationID, got[2].OperationID)
	}

	if err := store.AppendEvent(ctx, nil); err != nil {
		t.Errorf("AppendEvent(nil) error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
