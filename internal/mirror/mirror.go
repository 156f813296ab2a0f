// Package mirror keeps a directory of Markdown files in step with the note
// corpus and feeds edits made to those files back into it.
package mirror

import (
	"context"
	"log/slog"
	"sort"
	"sync"
)

// Mirror writes one file per note. It remembers the checksum of every file it
// wrote or observed so unchanged notes are skipped and its own writes are not
// mistaken for external edits.
type Mirror struct {
	fs     *FS
	logger *slog.Logger

	mu     sync.Mutex
	sums   map[string]string
	loaded bool
}

// New creates a Mirror rooted at dir.
func New(dir string, logger *slog.Logger) (*Mirror, error) {
	fs, err := NewFS(dir)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Mirror{fs: fs, logger: logger, sums: make(map[string]string)}, nil
}

// Root returns the mirror directory.
func (m *Mirror) Root() string { return m.fs.Root() }

// Sync brings the directory up to date with notes:
//   - new/changed notes are written
//   - files of notes that no longer exist are removed
//
// Only files the mirror wrote or observed are ever removed. Files found on
// the first Sync that belong to no note are left alone until Import.
func (m *Mirror) Sync(notes map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.loaded {
		entries, err := m.fs.List()
		if err != nil {
			return err
		}
		for _, e := range entries {
			if _, ok := notes[e.Name]; ok {
				m.sums[e.Name] = e.Checksum
			}
		}
		m.loaded = true
	}

	names := make([]string, 0, len(notes))
	for n := range notes {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, name := range names {
		data := []byte(notes[name])
		cs := sum(data)
		if m.sums[name] == cs {
			continue
		}
		if err := m.fs.Write(name, data); err != nil {
			m.logger.Warn("mirror: write failed", slog.String("note", name), slog.String("error", err.Error()))
			continue
		}
		m.sums[name] = cs
		m.logger.Debug("mirror: wrote", slog.String("note", name))
	}

	for name := range m.sums {
		if _, ok := notes[name]; ok {
			continue
		}
		if err := m.fs.Delete(name); err != nil {
			m.logger.Warn("mirror: delete failed", slog.String("note", name), slog.String("error", err.Error()))
		} else {
			m.logger.Debug("mirror: removed stale", slog.String("note", name))
		}
		delete(m.sums, name)
	}
	return nil
}

// Import hands every note file the mirror does not track yet to apply, so
// notes written by hand before the mirror started join the corpus. Files
// apply rejects stay untracked and on disk. It returns how many files were
// imported.
func (m *Mirror) Import(ctx context.Context, apply ApplyFunc) (int, error) {
	entries, err := m.fs.List()
	if err != nil {
		return 0, err
	}
	imported := 0
	for _, e := range entries {
		if m.tracked(e.Name) {
			continue
		}
		data, err := m.fs.Read(e.Name)
		if err != nil {
			m.logger.Warn("mirror: import read failed", slog.String("note", e.Name), slog.String("error", err.Error()))
			continue
		}
		m.observe(e.Name, data)
		if err := apply(ctx, e.Name, string(data)); err != nil {
			m.forget(e.Name)
			m.logger.Warn("mirror: import failed", slog.String("note", e.Name), slog.String("error", err.Error()))
			continue
		}
		imported++
	}
	return imported, nil
}

func (m *Mirror) tracked(note string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sums[note]
	return ok
}

func (m *Mirror) forget(note string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sums, note)
}

// observe records data as the known content of note and reports whether it
// differs from what the mirror last wrote or saw.
func (m *Mirror) observe(note string, data []byte) bool {
	cs := sum(data)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sums[note] == cs {
		return false
	}
	m.sums[note] = cs
	return true
}
