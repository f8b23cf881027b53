package daemon_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"snapship/internal/config"
	"snapship/internal/daemon"
	"snapship/internal/journal"
	"snapship/internal/logging"
	"snapship/internal/pipeline"
	"snapship/internal/testsupport"
)

func newDaemon(t *testing.T, cfg *config.Config, store *journal.Store) *daemon.Daemon {
	t.Helper()

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	pl := pipeline.New(cfg, store, nil, logging.NewNop(), pipeline.WithDebounce(10*time.Millisecond))
	d, err := daemon.New(cfg, store, logging.NewNop(), pl)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})
	return d
}

func TestStartStopLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newDaemon(t, cfg, nil)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	status := d.Status()
	if !status.Running {
		t.Fatal("expected running status after Start")
	}
	if status.WatchDir != cfg.Paths.WatchDir {
		t.Fatalf("watch dir = %s, want %s", status.WatchDir, cfg.Paths.WatchDir)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.LogDir, daemon.LockFileName)); err != nil {
		t.Fatalf("lock file missing: %v", err)
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("expected stopped status after Stop")
	}
}

func TestStartTwiceFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newDaemon(t, cfg, nil)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := d.Start(context.Background()); err == nil {
		t.Fatal("expected error starting an already-running daemon")
	}
}

func TestSecondInstanceRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first := newDaemon(t, cfg, nil)
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("start first daemon: %v", err)
	}

	second := newDaemon(t, cfg, nil)
	if err := second.Start(context.Background()); err == nil {
		t.Fatal("expected second instance to fail on the lock")
	}

	running, err := daemon.InstanceRunning(cfg)
	if err != nil {
		t.Fatalf("InstanceRunning: %v", err)
	}
	if !running {
		t.Fatal("lock probe should report a running instance")
	}

	first.Stop()
	running, err = daemon.InstanceRunning(cfg)
	if err != nil {
		t.Fatalf("InstanceRunning after stop: %v", err)
	}
	if running {
		t.Fatal("lock probe should report no instance after Stop")
	}
}

func TestDaemonProcessesFileEndToEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithUploadURL(server.URL))
	store := testsupport.MustOpenJournal(t, cfg)
	d := newDaemon(t, cfg, store)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	src := filepath.Join(cfg.Paths.WatchDir, "shot.jpg")
	testsupport.WriteFile(t, src, 1024)

	archived := filepath.Join(cfg.Paths.ArchiveDir, "shot.jpg")
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(archived); err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if _, err := os.Stat(archived); err != nil {
		t.Fatalf("file never reached the archive: %v", err)
	}

	d.Stop()
	uploaded, failed := d.Counts()
	if uploaded != 1 || failed != 0 {
		t.Fatalf("counts = (%d, %d), want (1, 0)", uploaded, failed)
	}
}
