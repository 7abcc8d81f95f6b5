package docloader

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/memsqld/memsqld/internal/store"
)

// Load reads path, builds a Database from it, and publishes it to st.
// Called once at startup and again on every reload watch event.
func Load(ctx context.Context, path string, st *store.Store) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	doc, err := Parse(data)
	if err != nil {
		return err
	}
	db, err := Build(ctx, doc)
	if err != nil {
		return err
	}
	st.Publish(db)
	return nil
}

// Watch reloads the document at path and republishes it to st whenever
// the file changes on disk, until ctx is canceled. The watch is placed on
// the file's directory rather than on the file itself, so an editor that
// replaces the file (renames over it rather than writing in place) still
// produces an event for path. A Write, Create or Rename event on path
// triggers a reload after a 50ms debounce; Remove events are ignored.
func Watch(ctx context.Context, path string, st *store.Store, log *zap.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		return err
	}

	var debounce *time.Timer
	reload := func() {
		if err := Load(ctx, path, st); err != nil {
			if log != nil {
				log.Error("document reload failed, keeping previous snapshot", zap.String("path", path), zap.Error(err))
			}
			return
		}
		if log != nil {
			log.Info("document reloaded", zap.String("path", path))
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(50*time.Millisecond, reload)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			if log != nil {
				log.Error("document watch error", zap.Error(err))
			}
		}
	}
}
