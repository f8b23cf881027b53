// Package watcher observes a single directory for newly created files and
// forwards each creation to a handler.
package watcher

import (
	"context"
	"errors"
	"os"
	"sync"

	"log/slog"

	"github.com/fsnotify/fsnotify"

	"snapship/internal/logging"
)

// Event describes one filesystem creation inside the watch directory.
type Event struct {
	Path  string
	IsDir bool
}

// Handler consumes creation events. Implementations must return quickly;
// long-running work belongs in a goroutine owned by the handler.
type Handler interface {
	HandleCreate(ctx context.Context, event Event)
}

// Watcher subscribes to creation events in one directory. Subdirectories are
// not monitored, and modify/delete/rename events are not dispatched.
type Watcher struct {
	dir     string
	handler Handler
	logger  *slog.Logger

	mu      sync.Mutex
	running bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a watcher for dir that dispatches to handler.
func New(dir string, handler Handler, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Watcher{
		dir:     dir,
		handler: handler,
		logger:  logger.With(logging.String(logging.FieldComponent, "watcher")),
	}
}

// Start subscribes to the watch directory and begins dispatching events. It
// fails when the directory cannot be watched or the watcher already runs.
func (w *Watcher) Start(ctx context.Context) error {
	if w == nil || w.handler == nil {
		return errors.New("watcher unavailable")
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return errors.New("watcher already running")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(w.dir); err != nil {
		_ = fsw.Close()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.ctx = runCtx
	w.cancel = cancel
	w.running = true

	w.wg.Add(1)
	go w.loop(fsw)

	w.logger.Info("watching directory", logging.String("dir", w.dir))
	return nil
}

// Stop cancels the subscription and waits for the dispatch loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	w.running = false
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
}

func (w *Watcher) loop(fsw *fsnotify.Watcher) {
	defer w.wg.Done()
	defer fsw.Close()

	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			w.dispatch(event.Name)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", logging.Error(err))
		}
	}
}

func (w *Watcher) dispatch(path string) {
	isDir := false
	if info, err := os.Stat(path); err == nil {
		isDir = info.IsDir()
	}
	// A failed stat means the entry vanished immediately; the pipeline's own
	// existence check handles that case.
	w.handler.HandleCreate(w.ctx, Event{Path: path, IsDir: isDir})
}
