package kvstore

import (
	"context"
	"os"
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "linkbook-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// forEachStore runs fn against both Store implementations.
func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Helper()
	t.Run("SQLite", func(t *testing.T) { fn(t, testDB(t)) })
	t.Run("Mem", func(t *testing.T) { fn(t, NewMemStore()) })
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM kv`).Scan(&count); err != nil {
		t.Fatalf("kv table missing: %v", err)
	}
}

func TestGet_Missing(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		v, ok, err := s.Get(context.Background(), "absent")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok || v != nil {
			t.Errorf("Get(absent) = %q, %v; want nil, false", v, ok)
		}
	})
}

func TestPutAndGet_Verbatim(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		want := []byte(`{"Home":"# Home\n[[A]]"}`)
		if err := s.Put(ctx, "notes", want); err != nil {
			t.Fatalf("Put: %v", err)
		}
		got, ok, err := s.Get(ctx, "notes")
		if err != nil || !ok {
			t.Fatalf("Get: ok=%v err=%v", ok, err)
		}
		if string(got) != string(want) {
			t.Errorf("value = %q, want %q", got, want)
		}
	})
}

func TestPutOverwrites(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_ = s.Put(ctx, "k", []byte("v1"))
		_ = s.Put(ctx, "k", []byte("v2"))
		got, _, _ := s.Get(ctx, "k")
		if string(got) != "v2" {
			t.Errorf("value = %q, want v2", got)
		}
	})
}

func TestPutMany(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		entries := map[string][]byte{
			"notes":     []byte("{}"),
			"noteOrder": []byte("[]"),
			"positions": []byte("{}"),
		}
		if err := s.PutMany(ctx, entries); err != nil {
			t.Fatalf("PutMany: %v", err)
		}
		for k, want := range entries {
			got, ok, err := s.Get(ctx, k)
			if err != nil || !ok {
				t.Fatalf("Get(%s): ok=%v err=%v", k, ok, err)
			}
			if string(got) != string(want) {
				t.Errorf("%s = %q, want %q", k, got, want)
			}
		}
	})
}

func TestMemStore_CopiesValues(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	buf := []byte("abc")
	_ = s.Put(ctx, "k", buf)
	buf[0] = 'X'
	got, _, _ := s.Get(ctx, "k")
	if string(got) != "abc" {
		t.Errorf("stored value mutated through caller slice: %q", got)
	}
}

func TestDB_PersistsAcrossReopen(t *testing.T) {
	f, err := os.CreateTemp("", "linkbook-reopen-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	ctx := context.Background()
	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := db.Put(ctx, "noteOrder", []byte(`["Home"]`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	db.Close()

	db, err = Open(f.Name())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	got, ok, _ := db.Get(ctx, "noteOrder")
	if !ok || string(got) != `["Home"]` {
		t.Errorf("after reopen = %q, %v", got, ok)
	}
}
