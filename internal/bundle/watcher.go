package bundle

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/hpml/internal/storage"
)

// ChangeCallback is called when a watched artifact's content changes on
// disk. checksum is "" when the file was removed.
type ChangeCallback func(path, checksum string)

const watchDebounce = 200 * time.Millisecond

// Watch reports on-disk changes to the given artifact files until ctx is
// cancelled. Changes are logged and passed to cb (if non-nil); the loaded
// model is never replaced, a restart is required to pick up a new bundle.
//
// The parent directories are watched rather than the files, so atomic
// rename-based writes are seen. Events are debounced per file and compared
// by checksum to skip writes that did not change content.
func Watch(ctx context.Context, paths []string, logger *slog.Logger, cb ChangeCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	known := make(map[string]string, len(paths))
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		known[abs], _ = storage.Checksum(abs)
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			return err
		}
	}

	logger.Info("watcher: started", slog.Int("files", len(known)))

	pending := make(map[string]bool)
	var timer *time.Timer
	var timerCh <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(watchDebounce)
			timerCh = timer.C
		} else {
			timer.Reset(watchDebounce)
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
			for p := range pending {
				sum, _ := storage.Checksum(p)
				if sum == known[p] {
					continue
				}
				known[p] = sum
				if sum == "" {
					logger.Warn("watcher: artifact removed, running model unchanged", slog.String("path", p))
				} else {
					logger.Warn("watcher: artifact changed on disk, restart to load it",
						slog.String("path", p),
						slog.String("checksum", sum))
				}
				if cb != nil {
					cb(p, sum)
				}
			}
			clear(pending)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(ev.Name)
			if err != nil {
				continue
			}
			if _, watched := known[abs]; !watched {
				continue
			}
			pending[abs] = true
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
