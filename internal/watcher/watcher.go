// Package watcher detects deletion of the vigil database file so the
// daemon can react instead of silently writing into a stale handle.
// The parent directory is watched because fsnotify cannot watch a path
// that no longer exists.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// debounce absorbs the remove/create pair an atomic replace produces,
// so swapping the file in place never fires the deletion callback.
const debounce = 100 * time.Millisecond

// Watcher fires onDelete when the target file (or its parent
// directory) is removed and stays removed past the debounce window.
type Watcher struct {
	target   string
	parent   string
	onDelete func()
	fsw      *fsnotify.Watcher
}

// New creates a watcher for the given file path.
func New(target string, onDelete func()) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		target:   filepath.Clean(target),
		parent:   filepath.Dir(filepath.Clean(target)),
		onDelete: onDelete,
		fsw:      fsw,
	}, nil
}

// Serve watches until the context is cancelled. Implements
// suture.Service so it can live in the scheduler tree.
func (w *Watcher) Serve(ctx context.Context) error {
	if err := w.fsw.Add(w.parent); err != nil {
		return err
	}
	defer w.fsw.Close()

	var pending *time.Timer
	defer func() {
		if pending != nil {
			pending.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			name := filepath.Clean(event.Name)

			switch {
			case event.Op&fsnotify.Remove != 0 && (name == w.target || name == w.parent):
				log.Info().Str("path", name).Msg("database path removed")
				if pending != nil {
					pending.Stop()
				}
				pending = time.AfterFunc(debounce, w.fire)

			case event.Op&fsnotify.Create != 0 && name == w.target:
				// Replaced within the debounce window: not a deletion.
				if pending != nil && pending.Stop() {
					log.Info().Str("path", name).Msg("database recreated, deletion cancelled")
					pending = nil
				}

			case event.Op&fsnotify.Create != 0 && name == w.parent:
				if err := w.fsw.Add(w.parent); err != nil {
					log.Warn().Err(err).Str("path", w.parent).Msg("re-watch after recreation failed")
				}
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("watch error")
		}
	}
}

func (w *Watcher) String() string { return "db-watcher" }

func (w *Watcher) fire() {
	// The file may have come back while the timer was queued.
	if _, err := os.Stat(w.target); err == nil {
		return
	}
	log.Warn().Str("path", w.target).Msg("database deleted")
	if w.onDelete != nil {
		w.onDelete()
	}
}
