package config

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/naosoccer/stack/logging"
	"github.com/naosoccer/stack/robot"
	"github.com/naosoccer/stack/utils"
)

// DefaultDebounce is how long the watcher waits for files to settle before it reloads.
const DefaultDebounce = 200 * time.Millisecond

// Reloader accepts a newly loaded document.
type Reloader interface {
	Replace(document map[string]any) error
}

// Watcher reloads the parameters of a robot when any of its parameter files change.
type Watcher struct {
	root     string
	ids      robot.IDs
	reloader Reloader
	logger   logging.Logger

	watcher   *fsnotify.Watcher
	debounced func(func())
	workers   utils.StoppableWorkers
}

// NewWatcher starts watching the parameter root and the location directory of the robot.
func NewWatcher(root string, ids robot.IDs, reloader Reloader, debounceInterval time.Duration, logger logging.Logger) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	directories := []string{root, filepath.Join(root, LocationFor(ids.HeadID))}
	for i, directory := range directories {
		if err := watcher.Add(directory); err != nil {
			// the location directory is optional
			if i > 0 && errors.Is(err, os.ErrNotExist) {
				logger.Debugw("not watching missing location directory", "directory", directory)
				continue
			}
			//nolint:errcheck
			watcher.Close()
			return nil, errors.Wrapf(err, "watching %s", directory)
		}
	}
	w := &Watcher{
		root:      root,
		ids:       ids,
		reloader:  reloader,
		logger:    logger,
		watcher:   watcher,
		debounced: debounce.New(debounceInterval),
	}
	w.workers = utils.NewStoppableWorkersWithContext(context.Background(), func(err *utils.PanicError) {
		logger.Errorw("parameter watcher panicked", "error", err)
	}, w.watch)
	return w, nil
}

func (w *Watcher) watch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Ext(event.Name) != ".json" || event.Op == fsnotify.Chmod {
				continue
			}
			w.logger.Debugw("parameter file changed", "file", event.Name, "op", event.Op.String())
			w.debounced(func() { w.reload(ctx) })
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warnw("watching parameters failed", "error", err)
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	document, _, err := Load(w.root, w.ids)
	if err == nil {
		err = w.reloader.Replace(document)
	}
	if err != nil {
		w.logger.Warnw("keeping previous parameters", "error", err)
		return
	}
	w.logger.Info("reloaded parameters")
}

// Close stops watching.
func (w *Watcher) Close() error {
	w.workers.Stop()
	return w.watcher.Close()
}
