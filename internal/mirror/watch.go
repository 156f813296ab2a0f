package mirror

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ApplyFunc receives the content of a note file that changed on disk.
type ApplyFunc func(ctx context.Context, name, content string) error

// settle is how long a file must stay quiet before its content is applied.
// Editors often emit several writes for one save.
const settle = 100 * time.Millisecond

// Watch follows the mirror directory and calls apply for every note file
// whose content differs from what the mirror last wrote. Removals are not
// propagated; the next Sync restores the file. Watch returns when ctx is
// cancelled.
func Watch(ctx context.Context, m *Mirror, logger *slog.Logger, apply ApplyFunc) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(m.Root()); err != nil {
		return err
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("watcher: started", slog.String("root", m.Root()))

	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerCh <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(settle)
			timerCh = timer.C
		} else {
			timer.Reset(settle)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			for name := range pending {
				delete(pending, name)
				m.applyFromDisk(ctx, name, logger, apply)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			name, ok := NoteName(ev.Name)
			if !ok {
				continue
			}
			if info, statErr := os.Stat(ev.Name); statErr != nil || info.IsDir() {
				continue
			}
			pending[name] = struct{}{}
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func (m *Mirror) applyFromDisk(ctx context.Context, name string, logger *slog.Logger, apply ApplyFunc) {
	data, err := m.fs.Read(name)
	if err != nil {
		logger.Warn("watcher: read failed", slog.String("note", name), slog.String("error", err.Error()))
		return
	}
	if !m.observe(name, data) {
		return
	}
	if err := apply(ctx, name, string(data)); err != nil {
		logger.Warn("watcher: apply failed", slog.String("note", name), slog.String("error", err.Error()))
		return
	}
	logger.Debug("watcher: applied", slog.String("note", name))
}
