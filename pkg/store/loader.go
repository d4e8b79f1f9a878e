package store

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Loader supplies the current store to the query path. Implementations
// return a store that callers must treat as read-only.
type Loader interface {
	// Load returns the current store. Errors wrap ErrLoad.
	Load(ctx context.Context) (*Store, error)

	// Close releases any resources held by the loader.
	Close() error
}

// FileLoader re-reads the store file on every call. Queries always observe
// the latest published store at the cost of per-request I/O.
type FileLoader struct {
	path string
}

// NewFileLoader returns a loader that reads path fresh on each Load.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{path: path}
}

func (l *FileLoader) Load(ctx context.Context) (*Store, error) {
	return Load(l.path)
}

func (l *FileLoader) Close() error { return nil }

// WatchLoader holds the store in memory and swaps it when the file changes
// on disk. Ingestion publishes by renaming a temp file over the store path,
// so a single Create/Rename event marks each new generation. Staleness
// semantics match FileLoader: readers see the last published store.
type WatchLoader struct {
	path    string
	logger  *zap.Logger
	watcher *fsnotify.Watcher

	mu      sync.RWMutex
	current *Store
	loaded  bool
}

// NewWatchLoader returns a loader that caches the store and reloads it when
// the file at path is replaced.
func NewWatchLoader(path string, logger *zap.Logger) (*WatchLoader, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	path = abs

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	l := &WatchLoader{
		path:    path,
		logger:  logger,
		watcher: watcher,
	}

	// Watch the directory, not the file: the rename publish replaces the
	// inode, which would silently detach a file-level watch.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}

	go l.watch()

	return l, nil
}

func (l *WatchLoader) Load(ctx context.Context) (*Store, error) {
	l.mu.RLock()
	if l.loaded {
		defer l.mu.RUnlock()
		return l.current, nil
	}
	l.mu.RUnlock()

	return l.reload()
}

func (l *WatchLoader) reload() (*Store, error) {
	s, err := Load(l.path)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.current = s
	l.loaded = true
	l.mu.Unlock()

	return s, nil
}

func (l *WatchLoader) watch() {
	for {
		select {
		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if event.Name != l.path {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
				continue
			}

			if _, err := l.reload(); err != nil {
				l.logger.Warn("store reload failed", zap.String("path", l.path), zap.Error(err))
				continue
			}
			l.logger.Info("store reloaded", zap.String("path", l.path))

		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			l.logger.Warn("store watcher error", zap.Error(err))
		}
	}
}

func (l *WatchLoader) Close() error {
	return l.watcher.Close()
}
