package mirror

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testMirror(t *testing.T) *Mirror {
	t.Helper()
	m, err := New(t.TempDir(), quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func readFile(t *testing.T, m *Mirror, note string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(m.Root(), FileName(note)))
	if err != nil {
		t.Fatalf("read %s: %v", note, err)
	}
	return string(data)
}

func TestSync_WritesAllNotes(t *testing.T) {
	m := testMirror(t)
	notes := map[string]string{"Home": "# Home\n[[A]]", "A": "# A"}
	if err := m.Sync(notes); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	for name, want := range notes {
		if got := readFile(t, m, name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
}

func TestSync_SkipsUnchanged(t *testing.T) {
	m := testMirror(t)
	_ = m.Sync(map[string]string{"Home": "# Home"})

	path := filepath.Join(m.Root(), FileName("Home"))
	old := time.Now().Add(-time.Hour)
	_ = os.Chtimes(path, old, old)

	_ = m.Sync(map[string]string{"Home": "# Home"})
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(old) {
		t.Error("unchanged note was rewritten")
	}
}

func TestSync_RemovesDeletedNotes(t *testing.T) {
	m := testMirror(t)
	_ = m.Sync(map[string]string{"Home": "# Home", "Old": "# Old"})
	_ = m.Sync(map[string]string{"Home": "# Home"})

	if _, err := os.Stat(filepath.Join(m.Root(), FileName("Old"))); !os.IsNotExist(err) {
		t.Errorf("stale file still present: %v", err)
	}
}

func TestSync_KeepsUntrackedFiles(t *testing.T) {
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, "Ideas.md"), []byte("# Ideas"), 0o644)

	m, err := New(dir, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	_ = m.Sync(map[string]string{"Home": "# Home"})
	_ = m.Sync(map[string]string{"Home": "# Home\nedited"})

	data, err := os.ReadFile(filepath.Join(dir, "Ideas.md"))
	if err != nil {
		t.Fatalf("hand-written file removed: %v", err)
	}
	if string(data) != "# Ideas" {
		t.Errorf("hand-written file changed: %q", data)
	}
}

func TestImport_AppliesUntrackedFiles(t *testing.T) {
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, "Ideas.md"), []byte("# Ideas\n[[Later]]"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "Home.md"), []byte("# Home"), 0o644)

	m, err := New(dir, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	_ = m.Sync(map[string]string{"Home": "# Home"})

	a := &applied{edits: make(map[string]string)}
	n, err := m.Import(context.Background(), a.apply)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if n != 1 {
		t.Errorf("imported %d files, want 1", n)
	}
	if got, ok := a.get("Ideas"); !ok || got != "# Ideas\n[[Later]]" {
		t.Errorf("Ideas applied as %q, %v", got, ok)
	}
	if _, ok := a.get("Home"); ok {
		t.Error("tracked file re-imported")
	}

	// Once imported the file is tracked: a later sync that drops the note
	// removes it like any other mirrored note.
	_ = m.Sync(map[string]string{"Home": "# Home", "Ideas": "# Ideas\n[[Later]]"})
	if readFile(t, m, "Ideas") != "# Ideas\n[[Later]]" {
		t.Error("imported file rewritten")
	}
	_ = m.Sync(map[string]string{"Home": "# Home"})
	if _, err := os.Stat(filepath.Join(dir, "Ideas.md")); !os.IsNotExist(err) {
		t.Errorf("deleted note's file still present: %v", err)
	}
}

func TestImport_RejectedFileStaysUntracked(t *testing.T) {
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, "Bad.md"), []byte("x"), 0o644)

	m, err := New(dir, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	_ = m.Sync(map[string]string{"Home": "# Home"})

	reject := func(context.Context, string, string) error { return os.ErrInvalid }
	if n, _ := m.Import(context.Background(), reject); n != 0 {
		t.Errorf("imported %d files, want 0", n)
	}
	_ = m.Sync(map[string]string{"Home": "# Home"})
	if _, err := os.Stat(filepath.Join(dir, "Bad.md")); err != nil {
		t.Errorf("rejected file removed: %v", err)
	}
}

func TestObserve(t *testing.T) {
	m := testMirror(t)
	_ = m.Sync(map[string]string{"Home": "# Home"})
	if m.observe("Home", []byte("# Home")) {
		t.Error("own write reported as change")
	}
	if !m.observe("Home", []byte("# Home\nedited")) {
		t.Error("external edit not reported")
	}
	if m.observe("Home", []byte("# Home\nedited")) {
		t.Error("same edit reported twice")
	}
}

type applied struct {
	mu    sync.Mutex
	edits map[string]string
}

func (a *applied) apply(_ context.Context, name, content string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.edits[name] = content
	return nil
}

func (a *applied) get(name string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	v, ok := a.edits[name]
	return v, ok
}

func TestWatch_ExternalEditApplied(t *testing.T) {
	m := testMirror(t)
	_ = m.Sync(map[string]string{"Home": "# Home"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := &applied{edits: make(map[string]string)}
	go Watch(ctx, m, quietLogger(), got.apply)
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(m.Root(), "Home.md"), []byte("# Home\n[[Ideas]]"), 0o644)
	_ = os.WriteFile(filepath.Join(m.Root(), "Fresh%20Note.md"), []byte("# Fresh Note"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		v, ok := got.get("Home")
		return ok && v == "# Home\n[[Ideas]]"
	}, "external edit of Home not applied")

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, ok := got.get("Fresh Note")
		return ok
	}, "new file not applied")
}

func TestWatch_IgnoresOwnWrites(t *testing.T) {
	m := testMirror(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := &applied{edits: make(map[string]string)}
	go Watch(ctx, m, quietLogger(), got.apply)
	time.Sleep(100 * time.Millisecond)

	_ = m.Sync(map[string]string{"Home": "# Home", "A": "# A"})
	time.Sleep(500 * time.Millisecond)

	got.mu.Lock()
	defer got.mu.Unlock()
	if len(got.edits) != 0 {
		t.Errorf("own writes applied as external edits: %v", got.edits)
	}
}
