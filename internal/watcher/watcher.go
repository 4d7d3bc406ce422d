package watcher

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sigbridge/internal/logger"
	"sigbridge/internal/model"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

var ErrAlreadyStarted = errors.New("watcher already started")

// Watcher observes the directory holding the source file and reports
// modifications of that one file. Everything else in the directory is
// ignored.
type Watcher struct {
	fw       *fsnotify.Watcher
	target   model.WatchTarget
	onChange func(model.ChangeEvent)

	mu       sync.Mutex
	started  bool
	errCh    chan error
	doneCh   chan struct{}
	exitCh   chan struct{}
	stopOnce sync.Once
}

func New() (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &Watcher{
		fw:     fw,
		errCh:  make(chan error, 1),
		doneCh: make(chan struct{}),
		exitCh: make(chan struct{}),
	}, nil
}

// Start subscribes to the source's directory and calls onChange from a
// background goroutine for every qualifying event. Any error returned here
// means no event will ever be delivered.
func (w *Watcher) Start(target model.WatchTarget, onChange func(model.ChangeEvent)) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return ErrAlreadyStarted
	}

	dir := target.WatchDir()
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("watch directory not found: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch path %s is not a directory", dir)
	}

	if err := w.fw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w.target = target
	w.onChange = onChange
	w.started = true
	go w.run()

	logger.Log.Info("watcher started",
		zap.String("dir", dir),
		zap.String("file", filepath.Base(target.Source)))
	return nil
}

// Err delivers at most one failure that happened after Start returned.
// The watcher delivers no more events once it has reported one.
func (w *Watcher) Err() <-chan error {
	return w.errCh
}

func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.doneCh)
		_ = w.fw.Close()

		w.mu.Lock()
		started := w.started
		w.mu.Unlock()

		if started {
			<-w.exitCh
		}
	})
}

func (w *Watcher) run() {
	defer close(w.exitCh)

	for {
		select {
		case <-w.doneCh:
			logger.Log.Debug("watcher stopping")
			return

		case fsEvent, ok := <-w.fw.Events:
			if !ok {
				return
			}

			if w.isWatchDirGone(fsEvent) {
				w.fail(fmt.Errorf("watched directory %s was %s", w.target.WatchDir(), opVerb(fsEvent.Op)))
				return
			}

			event, ok := w.qualify(fsEvent)
			if !ok {
				logger.Log.Debug("event dropped",
					zap.String("op", fsEvent.Op.String()),
					zap.String("path", fsEvent.Name))
				continue
			}

			w.onChange(event)

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}

			if errors.Is(err, fsnotify.ErrEventOverflow) {
				// Whatever was lost may have been a write to the source.
				logger.Log.Warn("watcher event queue overflowed",
					zap.Error(err))
				w.onChange(model.ChangeEvent{
					Path:      w.target.Source,
					Kind:      model.EventModified,
					Timestamp: time.Now(),
				})
				continue
			}

			w.fail(fmt.Errorf("watcher error: %w", err))
			return
		}
	}
}

func (w *Watcher) qualify(fsEvent fsnotify.Event) (model.ChangeEvent, bool) {
	path, err := filepath.Abs(fsEvent.Name)
	if err != nil {
		return model.ChangeEvent{}, false
	}
	path = filepath.Clean(path)

	if !w.target.IsSource(path) {
		return model.ChangeEvent{}, false
	}

	kind := toEventKind(fsEvent.Op)
	if kind != model.EventModified {
		return model.ChangeEvent{}, false
	}

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return model.ChangeEvent{}, false
	}

	return model.ChangeEvent{
		Path:      path,
		Kind:      kind,
		Timestamp: time.Now(),
	}, true
}

func (w *Watcher) isWatchDirGone(fsEvent fsnotify.Event) bool {
	if !fsEvent.Op.Has(fsnotify.Remove) && !fsEvent.Op.Has(fsnotify.Rename) {
		return false
	}

	return filepath.Clean(fsEvent.Name) == w.target.WatchDir()
}

func (w *Watcher) fail(err error) {
	logger.Log.Error("watcher failed",
		zap.Error(err))

	select {
	case w.errCh <- err:
	default:
	}
}

func toEventKind(op fsnotify.Op) model.EventKind {
	switch {
	case op.Has(fsnotify.Write), op.Has(fsnotify.Create):
		return model.EventModified
	default:
		return model.EventOther
	}
}

func opVerb(op fsnotify.Op) string {
	if op.Has(fsnotify.Rename) {
		return "renamed"
	}

	return "removed"
}
