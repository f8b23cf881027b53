package daemon

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"log/slog"

	"github.com/gofrs/flock"

	"snapship/internal/config"
	"snapship/internal/journal"
	"snapship/internal/logging"
	"snapship/internal/pipeline"
	"snapship/internal/watcher"
)

// LockFileName is the flock target that enforces one daemon per log directory.
const LockFileName = "snapship.lock"

// Daemon coordinates the watcher and upload pipeline and enforces
// single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *journal.Store
	pipeline *pipeline.Pipeline
	watcher  *watcher.Watcher

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	WatchDir      string
	ArchiveDir    string
	UploadURL     string
	InFlight      []string
	Uploaded      int64
	Failed        int64
	JournalDBPath string
	LockFilePath  string
}

// InstanceRunning reports whether a daemon process currently holds the lock
// for the configured log directory.
func InstanceRunning(cfg *config.Config) (bool, error) {
	if cfg == nil {
		return false, errors.New("configuration unavailable")
	}
	lock := flock.New(filepath.Join(cfg.Paths.LogDir, LockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("probe lock: %w", err)
	}
	if !ok {
		return true, nil
	}
	_ = lock.Unlock()
	return false, nil
}

// New constructs a daemon around an assembled pipeline. The watcher is built
// here so events cannot flow before Start wires the run context.
func New(cfg *config.Config, store *journal.Store, logger *slog.Logger, pl *pipeline.Pipeline) (*Daemon, error) {
	if cfg == nil || logger == nil || pl == nil {
		return nil, errors.New("daemon requires config, logger, and pipeline")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, LockFileName)
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		pipeline: pl,
		watcher:  watcher.New(cfg.Paths.WatchDir, pl, logger),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and launches the pipeline and watcher.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another snapship instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.pipeline.Start(d.ctx); err != nil {
		d.releaseAfterFailedStart()
		return fmt.Errorf("start pipeline: %w", err)
	}
	if err := d.watcher.Start(d.ctx); err != nil {
		d.pipeline.Stop()
		d.releaseAfterFailedStart()
		return fmt.Errorf("start watcher: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("snapship daemon started", logging.String("lock", d.lockPath))
	return nil
}

func (d *Daemon) releaseAfterFailedStart() {
	_ = d.lock.Unlock()
	if d.cancel != nil {
		d.cancel()
	}
	d.ctx = nil
	d.cancel = nil
}

// Stop halts event intake, drains in-flight uploads, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.watcher.Stop()
	d.pipeline.Stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("snapship daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Counts reports uploads completed and failed during this run.
func (d *Daemon) Counts() (uploaded, failed int64) {
	return d.pipeline.Counts()
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	uploaded, failed := d.pipeline.Counts()
	return Status{
		Running:       d.running.Load(),
		WatchDir:      d.cfg.Paths.WatchDir,
		ArchiveDir:    d.cfg.Paths.ArchiveDir,
		UploadURL:     d.cfg.Upload.URL,
		InFlight:      d.pipeline.InFlight(),
		Uploaded:      uploaded,
		Failed:        failed,
		JournalDBPath: d.cfg.DatabasePath(),
		LockFilePath:  d.lockPath,
	}
}
