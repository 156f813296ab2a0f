package notebook

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/starford/linkbook/internal/corpus"
	"github.com/starford/linkbook/internal/layout"
)

// Storage keys. They match the keys of the browser build so exported
// data stays interchangeable.
const (
	KeyNotes     = "notes"
	KeyOrder     = "noteOrder"
	KeyPositions = "positions"
)

// load reads the persisted corpus. Missing or unreadable data yields a
// corpus holding only Home.
func (n *Notebook) load(ctx context.Context) (*corpus.Corpus, error) {
	var st corpus.State

	raw, ok, err := n.store.Get(ctx, KeyNotes)
	if err != nil {
		return nil, fmt.Errorf("notebook: load notes: %w", err)
	}
	if !ok {
		n.logger.Info("notebook: no stored notes, starting fresh")
		return corpus.New(n.placer), nil
	}
	if err := json.Unmarshal(raw, &st.Notes); err != nil {
		n.logger.Warn("notebook: stored notes unreadable, starting fresh", slog.String("error", err.Error()))
		return corpus.New(n.placer), nil
	}

	if raw, ok, err = n.store.Get(ctx, KeyOrder); err != nil {
		return nil, fmt.Errorf("notebook: load order: %w", err)
	} else if ok {
		if err := json.Unmarshal(raw, &st.Order); err != nil {
			n.logger.Warn("notebook: stored order unreadable, rebuilding", slog.String("error", err.Error()))
			st.Order = nil
		}
	}

	if raw, ok, err = n.store.Get(ctx, KeyPositions); err != nil {
		return nil, fmt.Errorf("notebook: load positions: %w", err)
	} else if ok {
		st.Positions = make(map[string]layout.Point)
		if err := json.Unmarshal(raw, &st.Positions); err != nil {
			n.logger.Warn("notebook: stored positions unreadable, dropping", slog.String("error", err.Error()))
			st.Positions = nil
		}
	}

	return corpus.FromState(st, n.placer), nil
}

// persist writes the three keys in one batch. Failures are logged and do
// not fail the operation that triggered them.
func (n *Notebook) persist(ctx context.Context) {
	if n.readOnly {
		return
	}
	st := n.corpus.State()
	entries := make(map[string][]byte, 3)
	for key, v := range map[string]any{
		KeyNotes:     st.Notes,
		KeyOrder:     st.Order,
		KeyPositions: st.Positions,
	} {
		data, err := json.Marshal(v)
		if err != nil {
			n.logger.Error("notebook: encode failed", slog.String("key", key), slog.String("error", err.Error()))
			return
		}
		entries[key] = data
	}
	if err := n.store.PutMany(context.WithoutCancel(ctx), entries); err != nil {
		n.logger.Error("notebook: persist failed", slog.String("error", err.Error()))
	}

	if n.mirror != nil {
		if err := n.mirror.Sync(st.Notes); err != nil {
			n.logger.Warn("notebook: mirror sync failed", slog.String("error", err.Error()))
		}
	}
}
