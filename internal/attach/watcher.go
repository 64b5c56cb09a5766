package attach

import (
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"codemate/internal/logging"
)

// Watcher flags attached files that change on disk after attachment.
// The attached snapshot is what the pipelines operate on; the watcher only
// warns, it performs no conflict resolution.
type Watcher struct {
	mu       sync.Mutex
	fw       *fsnotify.Watcher
	byPath   map[string]string // path -> fileName
	onChange func(fileName string)
	logger   *zap.Logger
	done     chan struct{}
}

// NewWatcher starts a filesystem watcher. onChange is invoked with the
// attached file name whenever its backing file is written or removed.
func NewWatcher(onChange func(fileName string)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fw:       fw,
		byPath:   make(map[string]string),
		onChange: onChange,
		logger:   logging.Named("attach.watcher"),
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Track replaces the watched set with the given path -> fileName mapping.
func (w *Watcher) Track(paths map[string]string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for path := range w.byPath {
		if _, keep := paths[path]; !keep {
			_ = w.fw.Remove(path)
			delete(w.byPath, path)
		}
	}
	for path, name := range paths {
		if _, ok := w.byPath[path]; !ok {
			if err := w.fw.Add(path); err != nil {
				w.logger.Warn("cannot watch attached file", zap.String("path", path), zap.Error(err))
				continue
			}
			w.byPath[path] = name
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fw.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.mu.Lock()
			name, tracked := w.byPath[ev.Name]
			w.mu.Unlock()
			if !tracked {
				continue
			}
			w.logger.Info("attached file changed on disk",
				zap.String("file", name), zap.String("op", ev.Op.String()))
			if w.onChange != nil {
				w.onChange(name)
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}
