package catalog

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ErrWatcherFailed indicates the filesystem watcher failed to initialize.
var ErrWatcherFailed = errors.New("failed to initialize filesystem watcher")

// Watcher hot-reloads a catalog file. The background monitor uses it so
// an operator can widen the sampling space without restarting remedyd.
//
// The parent directory is watched rather than the file itself: editors
// and atomic writers replace the inode, which would silently detach a
// per-file watch.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	updates chan *Catalog
	stop    chan struct{}
	logger  *zap.Logger
}

// NewWatcher creates a watcher for the catalog file at path.
func NewWatcher(path string, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}
	return &Watcher{
		path:    path,
		watcher: watcher,
		updates: make(chan *Catalog, 1),
		stop:    make(chan struct{}),
		logger:  logger,
	}, nil
}

// Start begins watching. Reloaded catalogs arrive on Updates; a file
// change that fails to parse or validate is logged and dropped, the
// previous catalog stays in effect.
func (w *Watcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watching catalog directory %s: %w", dir, err)
	}
	go w.processEvents(ctx)
	return nil
}

// Stop stops the watcher and cleans up resources.
func (w *Watcher) Stop() {
	select {
	case <-w.stop:
		// Already stopped
		return
	default:
		close(w.stop)
		_ = w.watcher.Close()
	}
}

// Updates returns the channel delivering reloaded catalogs.
func (w *Watcher) Updates() <-chan *Catalog {
	return w.updates
}

func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("catalog watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload() {
	cat, err := Load(w.path)
	if err != nil {
		w.logger.Warn("catalog reload rejected", zap.String("path", w.path), zap.Error(err))
		return
	}
	w.logger.Info("catalog reloaded",
		zap.String("path", w.path),
		zap.Int("space_size", cat.SpaceSize()),
	)
	// Coalesce: only the newest pending catalog matters.
	select {
	case <-w.updates:
	default:
	}
	w.updates <- cat
}
