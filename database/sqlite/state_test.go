package sqlite

import (
	"context"
	"database/sql"
	"reflect"
	"testing"

	_ "modernc.org/sqlite"
)

func openMemoryDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	// Each connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestStateStore_ApplyOrderAndIdempotence(t *testing.T) {
	ctx := context.Background()
	db := openMemoryDB(t)

	store, err := NewStateStore(ctx, db, "")
	if err != nil {
		t.Fatalf("NewStateStore failed: %v", err)
	}
	if store.Table() != "schema_migrations" {
		t.Errorf("Expected default table name, got %s", store.Table())
	}

	for _, name := range []string{"0002_b", "0001_a", "0002_b"} {
		if err := store.MarkApplied(ctx, name); err != nil {
			t.Fatalf("MarkApplied(%s) failed: %v", name, err)
		}
	}

	applied, err := store.AppliedMigrations(ctx)
	if err != nil {
		t.Fatalf("AppliedMigrations failed: %v", err)
	}
	if want := []string{"0002_b", "0001_a"}; !reflect.DeepEqual(applied, want) {
		t.Errorf("Expected %v, got %v", want, applied)
	}
}

func TestStateStore_UnapplyAndReapply(t *testing.T) {
	ctx := context.Background()
	db := openMemoryDB(t)

	store, err := NewStateStore(ctx, db, "custom_state")
	if err != nil {
		t.Fatalf("NewStateStore failed: %v", err)
	}

	for _, name := range []string{"a", "b", "c"} {
		if err := store.MarkApplied(ctx, name); err != nil {
			t.Fatalf("MarkApplied(%s) failed: %v", name, err)
		}
	}

	if err := store.MarkUnapplied(ctx, "a"); err != nil {
		t.Fatalf("MarkUnapplied failed: %v", err)
	}
	// Unknown and repeated unapply are no-ops
	if err := store.MarkUnapplied(ctx, "a"); err != nil {
		t.Fatalf("MarkUnapplied (repeat) failed: %v", err)
	}
	if err := store.MarkUnapplied(ctx, "missing"); err != nil {
		t.Fatalf("MarkUnapplied (unknown) failed: %v", err)
	}

	applied, err := store.AppliedMigrations(ctx)
	if err != nil {
		t.Fatalf("AppliedMigrations failed: %v", err)
	}
	if want := []string{"b", "c"}; !reflect.DeepEqual(applied, want) {
		t.Errorf("Expected %v, got %v", want, applied)
	}

	if err := store.MarkApplied(ctx, "a"); err != nil {
		t.Fatalf("MarkApplied (reapply) failed: %v", err)
	}

	applied, err = store.AppliedMigrations(ctx)
	if err != nil {
		t.Fatalf("AppliedMigrations failed: %v", err)
	}
	if want := []string{"b", "c", "a"}; !reflect.DeepEqual(applied, want) {
		t.Errorf("Expected reapplied migration at the end, got %v", applied)
	}
}

func TestStateStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	db := openMemoryDB(t)

	first, err := NewStateStore(ctx, db, "")
	if err != nil {
		t.Fatalf("NewStateStore failed: %v", err)
	}
	if err := first.MarkApplied(ctx, "0001_init"); err != nil {
		t.Fatalf("MarkApplied failed: %v", err)
	}

	second, err := NewStateStore(ctx, db, "")
	if err != nil {
		t.Fatalf("NewStateStore (second) failed: %v", err)
	}

	applied, err := second.AppliedMigrations(ctx)
	if err != nil {
		t.Fatalf("AppliedMigrations failed: %v", err)
	}
	if len(applied) != 1 || applied[0] != "0001_init" {
		t.Errorf("Expected existing state to be kept, got %v", applied)
	}
}
