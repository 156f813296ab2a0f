// Package testutil provides shared test helpers for setting up stores and notebooks.
package testutil

import (
	"context"
	"math/rand/v2"
	"os"
	"testing"

	"github.com/starford/linkbook/internal/kvstore"
	"github.com/starford/linkbook/internal/layout"
	"github.com/starford/linkbook/internal/notebook"
)

// TestStore creates a temporary SQLite store that is automatically cleaned up.
func TestStore(t *testing.T) *kvstore.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "linkbook-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := kvstore.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestNotebook opens a notebook over a fresh SQLite store with a
// deterministic placer. Extra options are applied after the defaults.
func TestNotebook(t *testing.T, opts ...notebook.Option) *notebook.Notebook {
	t.Helper()
	base := []notebook.Option{
		notebook.WithPlacer(layout.NewPlacer(rand.New(rand.NewPCG(1, 2)))),
	}
	nb, err := notebook.New(context.Background(), TestStore(t), append(base, opts...)...)
	if err != nil {
		t.Fatal(err)
	}
	return nb
}
