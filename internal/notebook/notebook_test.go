package notebook

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/linkbook/internal/apperr"
	"github.com/starford/linkbook/internal/corpus"
	"github.com/starford/linkbook/internal/graph"
	"github.com/starford/linkbook/internal/kvstore"
	"github.com/starford/linkbook/internal/layout"
	"github.com/starford/linkbook/internal/linksync"
	"github.com/starford/linkbook/internal/mirror"
)

func newNotebook(t *testing.T, store kvstore.Store, opts ...Option) *Notebook {
	t.Helper()
	base := []Option{WithPlacer(layout.NewPlacer(rand.New(rand.NewPCG(1, 2))))}
	n, err := New(context.Background(), store, append(base, opts...)...)
	require.NoError(t, err)
	return n
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) listen(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) take() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.events
	r.events = nil
	return out
}

func content(t *testing.T, n *Notebook, name string) string {
	t.Helper()
	v, err := n.Note(name)
	require.NoError(t, err)
	return v.Content
}

func TestNew_FreshStoreOpensHome(t *testing.T) {
	store := kvstore.NewMemStore()
	n := newNotebook(t, store)

	snap := n.Snapshot()
	assert.Equal(t, corpus.HomeNote, snap.Active)
	assert.Equal(t, []string{corpus.HomeNote}, snap.Order)
	assert.Equal(t, "# Home", snap.Buffer)
	require.NotNil(t, snap.Graph)
	assert.Len(t, snap.Graph.Nodes, 1)
	assert.Empty(t, snap.Graph.Edges)

	raw, ok, err := store.Get(context.Background(), KeyOrder)
	require.NoError(t, err)
	require.True(t, ok, "first pass must persist")
	assert.JSONEq(t, `["Home"]`, string(raw))
}

func TestEdit_CreatesLinkedNote(t *testing.T) {
	n := newNotebook(t, kvstore.NewMemStore())

	res := n.EditActiveNoteContent(context.Background(), "# Home\nSee [[Brand New]]")
	assert.Equal(t, []string{"Brand New"}, res.Created)
	assert.Equal(t, "# Brand New", content(t, n, "Brand New"))

	snap := n.Snapshot()
	assert.Equal(t, []string{"Home", "Brand New"}, snap.Order)
	assert.Equal(t, "# Home\nSee [[Brand New]]", snap.Buffer)
	assert.Equal(t, []graph.Edge{{From: "Home", To: "Brand New"}}, snap.Graph.Edges)
}

func TestEdit_PrefixRename(t *testing.T) {
	ctx := context.Background()
	n := newNotebook(t, kvstore.NewMemStore())

	n.EditActiveNoteContent(ctx, "# Home\n[[Proj]]")
	require.NoError(t, n.ApplyExternalEdit(ctx, "Proj", "# Proj\nbody"))

	res := n.EditActiveNoteContent(ctx, "# Home\n[[Project Plan]]")
	assert.Equal(t, []linksync.Rename{{From: "Proj", To: "Project Plan"}}, res.Renamed)
	assert.Empty(t, res.Created)
	assert.Empty(t, res.Deleted)

	assert.False(t, n.Has("Proj"))
	assert.Equal(t, "# Project Plan\nbody", content(t, n, "Project Plan"))
	assert.Equal(t, []string{"Home", "Project Plan"}, n.Order())
}

func TestEdit_NoRenameStrategy(t *testing.T) {
	ctx := context.Background()
	n := newNotebook(t, kvstore.NewMemStore(), WithRenameStrategy(linksync.NoRename{}))

	n.EditActiveNoteContent(ctx, "# Home\n[[Proj]]")
	res := n.EditActiveNoteContent(ctx, "# Home\n[[Project Plan]]")

	assert.Equal(t, []string{"Project Plan"}, res.Created)
	assert.Equal(t, []string{"Proj"}, res.Deleted)
	assert.Equal(t, []string{"Home", "Project Plan"}, n.Order())
}

func TestEdit_DeletesUnreferencedNote(t *testing.T) {
	ctx := context.Background()
	n := newNotebook(t, kvstore.NewMemStore())

	n.EditActiveNoteContent(ctx, "# Home\n[[A]]")
	res := n.EditActiveNoteContent(ctx, "# Home")

	assert.Equal(t, []string{"A"}, res.Deleted)
	assert.False(t, n.Has("A"))
	assert.Equal(t, []string{"Home"}, n.Order())
}

func TestEdit_KeepsNoteReferencedElsewhere(t *testing.T) {
	ctx := context.Background()
	n := newNotebook(t, kvstore.NewMemStore())

	n.EditActiveNoteContent(ctx, "# Home\n[[A]] [[B]]")
	require.NoError(t, n.ApplyExternalEdit(ctx, "B", "# B\n[[A]]"))

	res := n.EditActiveNoteContent(ctx, "# Home\n[[B]]")
	assert.Empty(t, res.Deleted)
	assert.True(t, n.Has("A"))
}

func TestEdit_Idempotent(t *testing.T) {
	ctx := context.Background()
	n := newNotebook(t, kvstore.NewMemStore())

	text := "# Home\n[[A]] [[B]] [[A]]"
	n.EditActiveNoteContent(ctx, text)
	before := n.Snapshot()

	res := n.EditActiveNoteContent(ctx, text)
	assert.True(t, res.Empty())
	after := n.Snapshot()
	assert.Equal(t, before.Order, after.Order)
	assert.Equal(t, before.Graph, after.Graph)
	assert.Len(t, after.Graph.Edges, 3, "duplicate links keep duplicate edges")
}

func TestCreateNote(t *testing.T) {
	ctx := context.Background()
	n := newNotebook(t, kvstore.NewMemStore())

	name, ok := n.CreateNote(ctx, "")
	require.True(t, ok)
	assert.Equal(t, "New Note", name)

	name, ok = n.CreateNote(ctx, "")
	require.True(t, ok)
	assert.Equal(t, "New Note 1", name)
	assert.Equal(t, "New Note 1", n.Snapshot().Active)

	_, ok = n.CreateNote(ctx, "New Note")
	assert.False(t, ok, "taken name")
	_, ok = n.CreateNote(ctx, "   ")
	assert.False(t, ok, "blank name")

	name, ok = n.CreateNote(ctx, "Ideas")
	require.True(t, ok)
	assert.Equal(t, "Ideas", name)
	assert.Equal(t, "# Ideas", n.Snapshot().Buffer)
}

func TestRenameNote_LeavesReferencesByDefault(t *testing.T) {
	ctx := context.Background()
	n := newNotebook(t, kvstore.NewMemStore())
	n.EditActiveNoteContent(ctx, "# Home\n[[A]]")

	require.True(t, n.RenameNote(ctx, "A", "B"))

	assert.Equal(t, "# Home\n[[A]]", content(t, n, "Home"))
	assert.Equal(t, "# B", content(t, n, "B"))
	// The dangling link is healed by the projection pass.
	assert.Equal(t, "# A", content(t, n, "A"))
}

func TestRenameNote_RewritesReferences(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	n := newNotebook(t, kvstore.NewMemStore(), WithRewriteOnRename(true), WithListener(rec.listen))
	n.EditActiveNoteContent(ctx, "# Home\n[[A]]")
	rec.take()

	require.True(t, n.RenameNote(ctx, "A", "B"))

	assert.Equal(t, "# Home\n[[B]]", content(t, n, "Home"))
	assert.False(t, n.Has("A"))
	assert.Equal(t, "# Home\n[[B]]", n.Snapshot().Buffer, "active buffer follows the rewrite")
	assert.Equal(t, []Event{
		{Kind: EventNoteRenamed, Note: "B", OldName: "A"},
		{Kind: EventNoteUpdated, Note: "Home"},
	}, rec.take())

	// Removing the rewritten link deletes the renamed note.
	res := n.EditActiveNoteContent(ctx, "# Home")
	assert.Equal(t, []string{"B"}, res.Deleted)
}

func TestRenameNote_Refusals(t *testing.T) {
	ctx := context.Background()
	n := newNotebook(t, kvstore.NewMemStore())
	n.EditActiveNoteContent(ctx, "# Home\n[[A]] [[B]]")

	assert.False(t, n.RenameNote(ctx, "Home", "Start"), "Home is reserved")
	assert.False(t, n.RenameNote(ctx, "A", "B"), "target taken")
	assert.False(t, n.RenameNote(ctx, "A", ""), "empty name")
	assert.False(t, n.RenameNote(ctx, "Missing", "C"), "missing source")
	assert.Equal(t, []string{"Home", "A", "B"}, n.Order())
}

func TestRenameNote_RoundTrip(t *testing.T) {
	ctx := context.Background()
	n := newNotebook(t, kvstore.NewMemStore())

	_, ok := n.CreateNote(ctx, "Draft")
	require.True(t, ok)
	n.EditActiveNoteContent(ctx, "# Draft\nbody")
	_, err := n.MoveNode(ctx, "Draft", layout.Point{X: 300, Y: 450})
	require.NoError(t, err)

	before, err := n.Note("Draft")
	require.NoError(t, err)
	order := n.Order()

	require.True(t, n.RenameNote(ctx, "Draft", "Final"))
	assert.Equal(t, "Final", n.Snapshot().Active)
	assert.Equal(t, "# Final\nbody", n.Snapshot().Buffer)

	require.True(t, n.RenameNote(ctx, "Final", "Draft"))
	after, err := n.Note("Draft")
	require.NoError(t, err)
	assert.Equal(t, before.Content, after.Content)
	assert.Equal(t, before.Position, after.Position)
	assert.Equal(t, order, n.Order())
	assert.Equal(t, "Draft", n.Snapshot().Active)
}

func TestDeleteNote(t *testing.T) {
	ctx := context.Background()
	n := newNotebook(t, kvstore.NewMemStore())

	assert.ErrorIs(t, n.DeleteNote(ctx, "Home"), apperr.ErrReservedNote)
	assert.ErrorIs(t, n.DeleteNote(ctx, "Missing"), apperr.ErrNotFound)

	_, ok := n.CreateNote(ctx, "Scratch")
	require.True(t, ok)
	require.NoError(t, n.DeleteNote(ctx, "Scratch"))

	snap := n.Snapshot()
	assert.Equal(t, corpus.HomeNote, snap.Active, "deleting the active note opens Home")
	assert.Equal(t, "# Home", snap.Buffer)
	assert.Equal(t, []string{"Home"}, snap.Order)
}

func TestOpenNote(t *testing.T) {
	ctx := context.Background()
	n := newNotebook(t, kvstore.NewMemStore())

	assert.ErrorIs(t, n.OpenNote(ctx, ""), apperr.ErrInvalidName)

	require.NoError(t, n.OpenNote(ctx, "Journal"))
	snap := n.Snapshot()
	assert.Equal(t, "Journal", snap.Active)
	assert.Equal(t, "# Journal", snap.Buffer)

	// Edits now go to the opened note.
	n.EditActiveNoteContent(ctx, "# Journal\n[[Day 1]]")
	assert.Equal(t, "# Home", content(t, n, "Home"))
	assert.True(t, n.Has("Day 1"))
}

func TestOpenNote_PrimesLinkSet(t *testing.T) {
	ctx := context.Background()
	n := newNotebook(t, kvstore.NewMemStore())
	n.EditActiveNoteContent(ctx, "# Home\n[[A]]")

	require.NoError(t, n.OpenNote(ctx, "A"))
	n.EditActiveNoteContent(ctx, "# A\n[[B]]")
	res := n.EditActiveNoteContent(ctx, "# A")

	assert.Equal(t, []string{"B"}, res.Deleted)
	assert.True(t, n.Has("A"), "links of the previously active note are not reconciled")
}

func TestApplyExternalEdit(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	n := newNotebook(t, kvstore.NewMemStore(), WithListener(rec.listen))
	rec.take()

	require.NoError(t, n.ApplyExternalEdit(ctx, "Outside", "# Outside\n[[Target]]"))
	assert.Equal(t, "# Outside\n[[Target]]", content(t, n, "Outside"))
	assert.True(t, n.Has("Target"), "projection heals links of any note")
	assert.Equal(t, []Event{
		{Kind: EventNoteCreated, Note: "Outside"},
		{Kind: EventNoteUpdated, Note: "Outside"},
		{Kind: EventNoteCreated, Note: "Target"},
	}, rec.take())

	require.NoError(t, n.ApplyExternalEdit(ctx, "Outside", "# Outside\n[[Target]]"))
	assert.Empty(t, rec.take(), "unchanged content is ignored")

	require.NoError(t, n.ApplyExternalEdit(ctx, "Home", "# Home\n[[Outside]]"))
	assert.Equal(t, "# Home\n[[Outside]]", n.Snapshot().Buffer, "active note edits reach the buffer")

	assert.ErrorIs(t, n.ApplyExternalEdit(ctx, "", "x"), apperr.ErrInvalidName)
}

func TestMoveNode_Snaps(t *testing.T) {
	ctx := context.Background()
	n := newNotebook(t, kvstore.NewMemStore(), WithSnapGrid(layout.DefaultGridSize))

	got, err := n.MoveNode(ctx, "Home", layout.Point{X: 123, Y: 77})
	require.NoError(t, err)
	assert.Equal(t, layout.Point{X: 100, Y: 100}, got)

	v, err := n.Note("Home")
	require.NoError(t, err)
	require.NotNil(t, v.Position)
	assert.Equal(t, got, *v.Position)

	_, err = n.MoveNode(ctx, "Missing", layout.Point{})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMoveNode_NoSnap(t *testing.T) {
	n := newNotebook(t, kvstore.NewMemStore())
	got, err := n.MoveNode(context.Background(), "Home", layout.Point{X: 123, Y: 77})
	require.NoError(t, err)
	assert.Equal(t, layout.Point{X: 123, Y: 77}, got)
}

func TestReorderNote(t *testing.T) {
	ctx := context.Background()
	n := newNotebook(t, kvstore.NewMemStore())
	n.EditActiveNoteContent(ctx, "# Home\n[[A]] [[B]]")

	require.NoError(t, n.ReorderNote(ctx, "B", 0))
	assert.Equal(t, []string{"B", "Home", "A"}, n.Order())

	require.NoError(t, n.ReorderNote(ctx, "B", 99))
	assert.Equal(t, []string{"Home", "A", "B"}, n.Order())

	assert.ErrorIs(t, n.ReorderNote(ctx, "Missing", 0), apperr.ErrNotFound)
}

func TestNote_Backlinks(t *testing.T) {
	ctx := context.Background()
	n := newNotebook(t, kvstore.NewMemStore())
	n.EditActiveNoteContent(ctx, "# Home\n[[A]] [[B]]")
	require.NoError(t, n.ApplyExternalEdit(ctx, "B", "# B\n[[A]]"))

	v, err := n.Note("A")
	require.NoError(t, err)
	assert.Equal(t, []string{"Home", "B"}, v.Backlinks)
	assert.Equal(t, []string{}, v.Links)
	assert.False(t, v.Active)

	_, err = n.Note("Missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPersistence_Reload(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemStore()

	n := newNotebook(t, store)
	n.EditActiveNoteContent(ctx, "# Home\n[[A]] [[B]]")
	require.NoError(t, n.ReorderNote(ctx, "B", 0))
	_, err := n.MoveNode(ctx, "A", layout.Point{X: 700, Y: 700})
	require.NoError(t, err)

	reloaded := newNotebook(t, store)
	assert.Equal(t, n.Order(), reloaded.Order())
	assert.Equal(t, n.Notes(), reloaded.Notes())
	v, err := reloaded.Note("A")
	require.NoError(t, err)
	assert.Equal(t, &layout.Point{X: 700, Y: 700}, v.Position)
	assert.Equal(t, corpus.HomeNote, reloaded.Snapshot().Active)
}

func TestPersistence_StoredKeys(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemStore()
	n := newNotebook(t, store)
	n.EditActiveNoteContent(ctx, "# Home\n[[A]]")

	raw, ok, err := store.Get(ctx, KeyNotes)
	require.NoError(t, err)
	require.True(t, ok)
	var notes map[string]string
	require.NoError(t, json.Unmarshal(raw, &notes))
	assert.Equal(t, map[string]string{"Home": "# Home\n[[A]]", "A": "# A"}, notes)

	raw, ok, err = store.Get(ctx, KeyPositions)
	require.NoError(t, err)
	require.True(t, ok)
	var positions map[string]layout.Point
	require.NoError(t, json.Unmarshal(raw, &positions))
	assert.Contains(t, positions, "A")
}

func TestPersistence_CorruptDataStartsFresh(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemStore()
	require.NoError(t, store.Put(ctx, KeyNotes, []byte("not json")))

	n := newNotebook(t, store)
	assert.Equal(t, []string{"Home"}, n.Order())
}

func TestPersistence_RepairsOrder(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemStore()
	require.NoError(t, store.PutMany(ctx, map[string][]byte{
		KeyNotes: []byte(`{"A":"# A","Home":"# Home"}`),
		KeyOrder: []byte(`["A","Ghost","A"]`),
	}))

	n := newNotebook(t, store)
	assert.Equal(t, []string{"A", "Home"}, n.Order())
}

func TestListener_EditEvents(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	n := newNotebook(t, kvstore.NewMemStore(), WithListener(rec.listen))
	assert.Equal(t, []Event{{Kind: EventNoteOpened, Note: "Home"}}, rec.take())

	n.EditActiveNoteContent(ctx, "# Home\n[[X]]")
	assert.Equal(t, []Event{
		{Kind: EventNoteCreated, Note: "X"},
		{Kind: EventNoteUpdated, Note: "Home"},
	}, rec.take())
}

func TestConcurrentEdits(t *testing.T) {
	ctx := context.Background()
	n := newNotebook(t, kvstore.NewMemStore())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n.EditActiveNoteContent(ctx, "# Home\n[[A]]")
			_ = n.Snapshot()
		}()
	}
	wg.Wait()
	assert.Equal(t, []string{"Home", "A"}, n.Order())
}

func TestCreateNoteWithContent(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	n := newNotebook(t, kvstore.NewMemStore(), WithListener(rec.listen))
	rec.take()

	name, ok, res := n.CreateNoteWithContent(ctx, "Ideas", "# Ideas\n[[Later]]")
	require.True(t, ok)
	assert.Equal(t, "Ideas", name)
	assert.Equal(t, []string{"Later"}, res.Created)
	assert.Equal(t, "# Ideas\n[[Later]]", content(t, n, "Ideas"))
	assert.Equal(t, "# Home", content(t, n, "Home"))

	snap := n.Snapshot()
	assert.Equal(t, "Ideas", snap.Active)
	assert.Equal(t, "# Ideas\n[[Later]]", snap.Buffer)
	assert.Equal(t, []Event{
		{Kind: EventNoteCreated, Note: "Ideas"},
		{Kind: EventNoteOpened, Note: "Ideas"},
		{Kind: EventNoteCreated, Note: "Later"},
		{Kind: EventNoteUpdated, Note: "Ideas"},
	}, rec.take())

	_, ok, _ = n.CreateNoteWithContent(ctx, "Ideas", "overwrite")
	assert.False(t, ok)
	assert.Equal(t, "# Ideas\n[[Later]]", content(t, n, "Ideas"))
}

func TestListener_DeliveryFollowsOperationOrder(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	var armed sync.Once
	blocking := make(chan struct{})
	release := make(chan struct{})
	gate := false

	n := newNotebook(t, kvstore.NewMemStore(),
		WithListener(func(ev Event) {
			if gate && ev.Note == "First" {
				armed.Do(func() {
					close(blocking)
					<-release
				})
			}
		}),
		WithListener(rec.listen),
	)
	rec.take()
	gate = true

	done := make(chan struct{})
	go func() {
		n.CreateNote(ctx, "First")
		close(done)
	}()
	<-blocking

	// The second operation completes its pass while the first is still
	// delivering; its events must wait.
	second := make(chan struct{})
	go func() {
		n.CreateNote(ctx, "Second")
		close(second)
	}()
	require.Eventually(t, func() bool { return n.Has("Second") }, time.Second, 5*time.Millisecond)
	close(release)
	<-done
	<-second

	var notes []string
	for _, ev := range rec.take() {
		notes = append(notes, ev.Note)
	}
	assert.Equal(t, []string{"First", "First", "Second", "Second"}, notes)
}

func TestReadOnly_WritesNothing(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemStore()
	n := newNotebook(t, store, WithReadOnly())

	n.EditActiveNoteContent(ctx, "# Home\n[[A]]")
	assert.True(t, n.Has("A"))

	_, ok, err := store.Get(ctx, KeyNotes)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMirror_ExistingFilesImportedNotDeleted(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	ideas := filepath.Join(dir, mirror.FileName("Ideas"))
	require.NoError(t, os.WriteFile(ideas, []byte("# Ideas\n[[Later]]"), 0o644))

	m, err := mirror.New(dir, nil)
	require.NoError(t, err)
	n := newNotebook(t, kvstore.NewMemStore(), WithMirror(m))

	_, err = os.Stat(ideas)
	require.NoError(t, err, "opening the notebook removed a hand-written file")

	imported, err := m.Import(ctx, n.ApplyExternalEdit)
	require.NoError(t, err)
	assert.Equal(t, 1, imported)
	assert.Equal(t, "# Ideas\n[[Later]]", content(t, n, "Ideas"))
	assert.True(t, n.Has("Later"))

	data, err := os.ReadFile(ideas)
	require.NoError(t, err)
	assert.Equal(t, "# Ideas\n[[Later]]", string(data))
	_, err = os.Stat(filepath.Join(dir, mirror.FileName("Later")))
	assert.NoError(t, err)
}
