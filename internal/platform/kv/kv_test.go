package kv_test

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"testing"

	apperrors "tabclock/internal/platform/errors"
	"tabclock/internal/platform/kv"
)

func openSQLite(t *testing.T) *kv.SQLiteStore {
	t.Helper()
	store, err := kv.OpenSQLite(filepath.Join(t.TempDir(), "nested", "tabclock.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoresGetSetDelete(t *testing.T) {
	t.Parallel()
	stores := map[string]kv.Store{"sqlite": openSQLite(t), "memory": kv.NewMemory()}
	for name, store := range stores {
		ctx := context.Background()
		if _, err := store.Get(ctx, "missing"); !errors.Is(err, apperrors.ErrNotFound) {
			t.Fatalf("%s: expected not found, got %v", name, err)
		}
		if err := store.Set(ctx, "k", []byte(`{"a":1}`)); err != nil {
			t.Fatalf("%s: set: %v", name, err)
		}
		if err := store.Set(ctx, "k", []byte(`{"a":2}`)); err != nil {
			t.Fatalf("%s: overwrite: %v", name, err)
		}
		got, err := store.Get(ctx, "k")
		if err != nil || string(got) != `{"a":2}` {
			t.Fatalf("%s: get = %q, %v", name, got, err)
		}
		if err := store.Delete(ctx, "k"); err != nil {
			t.Fatalf("%s: delete: %v", name, err)
		}
		if err := store.Delete(ctx, "k"); err != nil {
			t.Fatalf("%s: second delete should be a no-op: %v", name, err)
		}
		if _, err := store.Get(ctx, "k"); !errors.Is(err, apperrors.ErrNotFound) {
			t.Fatalf("%s: expected not found after delete, got %v", name, err)
		}
	}
}

func TestUpdateIsAtomicPerKey(t *testing.T) {
	t.Parallel()
	stores := map[string]kv.Store{"sqlite": openSQLite(t), "memory": kv.NewMemory()}
	for name, store := range stores {
		ctx := context.Background()
		incr := func(current []byte) ([]byte, error) {
			n := 0
			if len(current) > 0 {
				v, err := strconv.Atoi(string(current))
				if err != nil {
					return nil, err
				}
				n = v
			}
			return []byte(strconv.Itoa(n + 1)), nil
		}
		for i := 0; i < 5; i++ {
			if err := store.Update(ctx, "counter", incr); err != nil {
				t.Fatalf("%s: update: %v", name, err)
			}
		}
		failing := errors.New("boom")
		if err := store.Update(ctx, "counter", func([]byte) ([]byte, error) { return nil, failing }); !errors.Is(err, failing) {
			t.Fatalf("%s: expected fn error, got %v", name, err)
		}
		got, err := store.Get(ctx, "counter")
		if err != nil || string(got) != "5" {
			t.Fatalf("%s: failed update must keep prior value, got %q %v", name, got, err)
		}
	}
}

func TestJSONHelpers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := openSQLite(t)
	var out map[string]int
	ok, err := kv.GetJSON(ctx, store, "doc", &out)
	if err != nil || ok {
		t.Fatalf("absent key should report false, got %v %v", ok, err)
	}
	if err := kv.SetJSON(ctx, store, "doc", map[string]int{"x": 3}); err != nil {
		t.Fatalf("set json: %v", err)
	}
	ok, err = kv.GetJSON(ctx, store, "doc", &out)
	if err != nil || !ok || out["x"] != 3 {
		t.Fatalf("get json = %v %v %v", out, ok, err)
	}
	if err := store.Set(ctx, "bad", []byte("{")); err != nil {
		t.Fatalf("set raw: %v", err)
	}
	if _, err := kv.GetJSON(ctx, store, "bad", &out); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "tabclock.db")
	first, err := kv.OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := first.Set(context.Background(), "k", []byte("v")); err != nil {
		t.Fatalf("set: %v", err)
	}
	_ = first.Close()
	second, err := kv.OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()
	got, err := second.Get(context.Background(), "k")
	if err != nil || string(got) != "v" {
		t.Fatalf("expected persisted value, got %q %v", got, err)
	}
}
