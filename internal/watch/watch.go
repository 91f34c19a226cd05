// Package watch cancels a context when watched files change. The
// rebuild loop arms a watch, waits for the context, and bakes again.
package watch

import (
	"context"
	"io/fs"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/AiCodeCraft/spacebake/internal/errs"
)

// Returns a context cancelled when anything under the given paths is
// written, created, removed, renamed, or chmodded. Directories are
// watched recursively as they are at call time.
//
// The cancel cause names the triggering event; a plain cancel through
// the returned function leaves the cause as context.Canceled.
func UntilChange(ctx context.Context, paths ...string) (context.Context, context.CancelFunc, error) {
	cctx, cancel := context.WithCancelCause(ctx)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		cancel(err)
		return nil, nil, errs.Wrap(ErrWatch, err)
	}

	go func() {
		defer w.Close()

		for {
			select {
			case <-cctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				cancel(errs.Wrapf(ErrChanged, "%s (%s)", event.Name, event.Op))
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				cancel(errs.Wrap(ErrWatch, err))
			}
		}
	}()

	for _, p := range paths {
		if err := addTree(w, p); err != nil {
			cancel(err)
			return nil, nil, err
		}
	}

	return cctx, func() { cancel(nil) }, nil
}

// Registers a path with the watcher; directories recursively, plain
// files directly.
func addTree(w *fsnotify.Watcher, root string) error {
	err := filepath.WalkDir(root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || p == root {
			return w.Add(p)
		}
		return nil
	})
	if err != nil {
		return errs.Wrapf(ErrWatch, "watch %s: %w", root, err)
	}
	return nil
}
