package watcher_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"snapship/internal/logging"
	"snapship/internal/testsupport"
	"snapship/internal/watcher"
)

type recordingHandler struct {
	mu     sync.Mutex
	events []watcher.Event
}

func (h *recordingHandler) HandleCreate(_ context.Context, event watcher.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
}

func (h *recordingHandler) snapshot() []watcher.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]watcher.Event(nil), h.events...)
}

func waitForEvents(t *testing.T, handler *recordingHandler, want int) []watcher.Event {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		events := handler.snapshot()
		if len(events) >= want {
			return events
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %d events, have %d", want, len(events))
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestWatcherDispatchesCreatedFiles(t *testing.T) {
	dir := t.TempDir()
	handler := &recordingHandler{}

	w := watcher.New(dir, handler, logging.NewNop())
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "photo.jpg")
	testsupport.WriteFile(t, path, 64)

	events := waitForEvents(t, handler, 1)
	if events[0].Path != path {
		t.Fatalf("unexpected event path: %q", events[0].Path)
	}
	if events[0].IsDir {
		t.Fatal("expected file event, got directory")
	}
}

func TestWatcherMarksDirectories(t *testing.T) {
	dir := t.TempDir()
	handler := &recordingHandler{}

	w := watcher.New(dir, handler, logging.NewNop())
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	sub := filepath.Join(dir, "subdir")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	events := waitForEvents(t, handler, 1)
	if events[0].Path != sub {
		t.Fatalf("unexpected event path: %q", events[0].Path)
	}
	if !events[0].IsDir {
		t.Fatal("expected directory event")
	}
}

func TestWatcherDoesNotMonitorSubdirectories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	handler := &recordingHandler{}
	w := watcher.New(dir, handler, logging.NewNop())
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	testsupport.WriteFile(t, filepath.Join(sub, "hidden.jpg"), 16)
	testsupport.WriteFile(t, filepath.Join(dir, "visible.jpg"), 16)

	events := waitForEvents(t, handler, 1)
	for _, event := range events {
		if filepath.Dir(event.Path) != dir {
			t.Fatalf("received event outside watch dir: %q", event.Path)
		}
	}
}

func TestStartFailsForMissingDirectory(t *testing.T) {
	handler := &recordingHandler{}
	w := watcher.New(filepath.Join(t.TempDir(), "does-not-exist"), handler, logging.NewNop())
	if err := w.Start(context.Background()); err == nil {
		w.Stop()
		t.Fatal("expected error for missing directory")
	}
}

func TestStartTwiceFails(t *testing.T) {
	dir := t.TempDir()
	handler := &recordingHandler{}

	w := watcher.New(dir, handler, logging.NewNop())
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	if err := w.Start(context.Background()); err == nil {
		t.Fatal("expected error for second start")
	}
}

func TestStopWithoutStartIsNoOp(t *testing.T) {
	w := watcher.New(t.TempDir(), &recordingHandler{}, logging.NewNop())
	w.Stop()
}
