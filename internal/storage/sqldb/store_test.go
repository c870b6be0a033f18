package sqldb

import (
	"context"
	"testing"
	"time"

	"github.com/tjfontaine/hookgate/internal/core/ports"
)

func TestNew_UnsupportedDriver(t *testing.T) {
	if _, err := New(Config{Driver: "postgres", DSN: "postgres://x"}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestSQLDBStore_AppendAndList(t *testing.T) {
	store, err := NewSQLite("file:memdb1?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("NewSQLite() error = %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	records := []*ports.EventRecord{
		{Kind: "retry", Hook: "before", OperationID: "op-1", Attempt: 0, Path: "/a", Method: "GET", Reason: "busy", DelayNS: int64(100 * time.Millisecond)},
		{Kind: "block", Hook: "before", OperationID: "op-1", Attempt: 1, Path: "/a", Method: "GET", Reason: "denied"},
		{Kind: "error", Hook: "after", Handler: "audit", OperationID: "op-2", Error: "after hook audit failed: boom"},
	}
	for _, rec := range records {
		if err := store.AppendEvent(ctx, rec); err != nil {
			t.Fatalf("AppendEvent() error = %v", err)
		}
		if rec.ID == 0 {
			t.Error("AppendEvent() did not set ID")
		}
		if rec.CreatedAt.IsZero() {
			t.Error("AppendEvent() did not set CreatedAt")
		}
	}

	got, err := store.ListEvents(ctx, ports.ListOptions{OperationID: "op-1"})
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListEvents() returned %d events, want 2", len(got))
	}
	if got[0].Kind != "retry" || got[1].Kind != "block" {
		t.Errorf("order = %s, %s", got[0].Kind, got[1].Kind)
	}
	if got[0].DelayNS != int64(100*time.Millisecond) || got[0].Reason != "busy" || got[0].Method != "GET" {
		t.Errorf("unexpected record: %+v", got[0])
	}
	if got[1].Attempt != 1 {
		t.Errorf("Attempt = %d, want 1", got[1].Attempt)
	}

	errs, err := store.ListEvents(ctx, ports.ListOptions{Kind: "error"})
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(errs) != 1 || errs[0].Handler != "audit" || errs[0].Error == "" {
		t.Errorf("unexpected error events: %+v", errs)
	}
}

func TestSQLDBStore_ListLimit(t *testing.T) {
	store, err := NewSQLite("file:memdb2?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("NewSQLite() error = %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := store.AppendEvent(ctx, &ports.EventRecord{Kind: "retry", OperationID: "op"}); err != nil {
			t.Fatal(err)
		}
	}

	got, err := store.ListEvents(ctx, ports.ListOptions{Limit: 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Errorf("got %d events, want 3", len(got))
	}

	none, err := store.ListEvents(ctx, ports.ListOptions{OperationID: "missing"})
	if err != nil {
		t.Fatal(err)
	}
	if none == nil || len(none) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", none)
	}
}

func TestSQLDBStore_AppendNil(t *testing.T) {
	store, err := NewSQLite("file:memdb3?mode=memory&cache=shared")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if err := store.AppendEvent(context.Background(), nil); err != nil {
		t.Errorf("AppendEvent(nil) error = %v", err)
	}
}
