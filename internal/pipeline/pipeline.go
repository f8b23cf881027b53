package pipeline

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"snapship/internal/archive"
	"snapship/internal/config"
	"snapship/internal/imagefile"
	"snapship/internal/inflight"
	"snapship/internal/journal"
	"snapship/internal/logging"
	"snapship/internal/notifications"
	"snapship/internal/services"
	"snapship/internal/uploader"
	"snapship/internal/watcher"
)

const defaultDrainGrace = 10 * time.Second

type uploadClient interface {
	Upload(ctx context.Context, path string) error
}

type fileArchiver interface {
	Archive(src string) (string, error)
}

type journalWriter interface {
	Append(ctx context.Context, record *journal.Record) (*journal.Record, error)
}

// Pipeline drives each detected file through filter, debounce, upload, and
// archive. Every file runs in its own goroutine so a slow upload never delays
// detection of the next file.
type Pipeline struct {
	cfg      *config.Config
	logger   *slog.Logger
	filter   *imagefile.Filter
	tracker  *inflight.Tracker
	uploads  uploadClient
	archiver fileArchiver
	journal  journalWriter
	notifier notifications.Service

	debounce   time.Duration
	drainGrace time.Duration

	uploaded atomic.Int64
	failed   atomic.Int64

	mu      sync.Mutex
	running bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option customizes a pipeline.
type Option func(*Pipeline)

// WithDebounce overrides the settle delay between detection and upload.
func WithDebounce(debounce time.Duration) Option {
	return func(p *Pipeline) {
		if debounce >= 0 {
			p.debounce = debounce
		}
	}
}

// WithDrainGrace overrides how long Stop waits for in-flight files before
// cancelling them.
func WithDrainGrace(grace time.Duration) Option {
	return func(p *Pipeline) {
		if grace > 0 {
			p.drainGrace = grace
		}
	}
}

// New assembles a pipeline from the config. The journal store may be nil, in
// which case outcomes are only logged.
func New(cfg *config.Config, store *journal.Store, notifier notifications.Service, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}

	p := &Pipeline{
		cfg:        cfg,
		logger:     logger.With(logging.String(logging.FieldComponent, "pipeline")),
		filter:     imagefile.NewFilter(cfg.Watch.Extensions),
		tracker:    inflight.NewTracker(),
		uploads:    uploader.NewFromConfig(cfg),
		archiver:   archive.NewArchiver(cfg.Paths.ArchiveDir, logger),
		notifier:   notifier,
		debounce:   cfg.DebounceInterval(),
		drainGrace: defaultDrainGrace,
	}
	if store != nil {
		p.journal = store
	}

	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start prepares the pipeline for event dispatch.
func (p *Pipeline) Start(ctx context.Context) error {
	if p == nil {
		return errors.New("pipeline unavailable")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return errors.New("pipeline already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.ctx = runCtx
	p.cancel = cancel
	p.running = true
	return nil
}

// Stop waits for in-flight files to finish, cancelling whatever remains after
// the drain grace elapses.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel := p.cancel
	p.running = false
	p.cancel = nil
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(p.drainGrace):
		p.logger.Warn("shutdown grace elapsed; cancelling in-flight uploads",
			logging.Int("in_flight", p.tracker.Len()),
		)
		cancel()
		<-done
	}
	cancel()
}

// HandleCreate implements the watcher handler. Directories, non-image names,
// and paths already in flight are discarded here; everything else gets its own
// processing goroutine.
func (p *Pipeline) HandleCreate(_ context.Context, event watcher.Event) {
	if event.IsDir {
		p.logger.Debug("ignoring directory", logging.String(logging.FieldFile, event.Path))
		return
	}
	if !p.filter.Allows(event.Path) {
		p.logger.Debug("ignoring non-image file", logging.String(logging.FieldFile, event.Path))
		return
	}
	if !p.tracker.TryAcquire(event.Path) {
		p.logger.Debug("duplicate event for in-flight file", logging.String(logging.FieldFile, event.Path))
		return
	}

	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		p.tracker.Release(event.Path)
		return
	}
	ctx := p.ctx
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		defer p.tracker.Release(event.Path)
		defer func() {
			if r := recover(); r != nil {
				p.failed.Add(1)
				p.logger.Error("unexpected failure while processing file",
					logging.String(logging.FieldFile, event.Path),
					logging.Any("panic", r),
					logging.String(logging.FieldErrorHint, "report this; the file was left in the watch directory"),
				)
			}
		}()
		p.process(ctx, event.Path)
	}()
}

func (p *Pipeline) process(ctx context.Context, path string) {
	detectedAt := time.Now().UTC()
	requestID := uuid.NewString()
	ctx = services.WithRequestID(ctx, requestID)
	ctx = services.WithFilePath(ctx, path)
	logger := logging.WithContext(ctx, p.logger)

	logger.Info("image detected", logging.Duration("debounce", p.debounce))

	if !p.waitForSettle(ctx) {
		logger.Info("shutdown before upload; file left in watch directory")
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			p.recordVanished(logger, path, detectedAt, requestID)
			return
		}
		wrapped := services.Wrap(services.ErrValidation, "pipeline", "stat file", "Failed to inspect watched file", err)
		logger.Error("cannot inspect watched file",
			logging.Error(wrapped),
			logging.String(logging.FieldErrorHint, "check directory permissions"),
		)
		p.recordFailure(logger, path, detectedAt, requestID, 0, wrapped)
		return
	}
	size := info.Size()

	started := time.Now()
	if err := p.uploads.Upload(ctx, path); err != nil {
		if errors.Is(err, services.ErrFileVanished) {
			p.recordVanished(logger, path, detectedAt, requestID)
			return
		}
		wrapped := services.Wrap(services.ErrTransport, "pipeline", "upload", "Upload failed", err)
		logger.Error("upload attempt failed",
			logging.Error(wrapped),
			logging.String(logging.FieldErrorHint, "the file stays in the watch directory; fix the cause and recreate it to retry"),
		)
		p.recordFailure(logger, path, detectedAt, requestID, size, wrapped)
		return
	}

	target, err := p.archiver.Archive(path)
	if err != nil {
		logger.Error("upload succeeded but archive move failed; file remains in watch directory",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "move or delete the file manually to avoid re-uploading it"),
			logging.String(logging.FieldImpact, "the endpoint received the image but the local copy was not archived"),
		)
		p.recordFailure(logger, path, detectedAt, requestID, size, err)
		return
	}

	p.uploaded.Add(1)
	logger.Info("upload complete",
		logging.String("size", humanize.Bytes(uint64(size))),
		logging.String("destination", target),
		logging.Duration("elapsed", time.Since(started)),
	)
	p.appendRecord(logger, &journal.Record{
		RequestID:   requestID,
		SourcePath:  path,
		FileName:    filepath.Base(path),
		SizeBytes:   size,
		Status:      journal.StatusArchived,
		ArchivePath: target,
		DetectedAt:  detectedAt,
	})
	p.notify(notifications.EventUploadSucceeded, notifications.Payload{
		"fileName":    filepath.Base(path),
		"archiveName": filepath.Base(target),
	})
}

// waitForSettle blocks for the debounce interval so the producer can finish
// writing. Returns false when shutdown interrupts the wait.
func (p *Pipeline) waitForSettle(ctx context.Context) bool {
	if p.debounce <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-time.After(p.debounce):
		return true
	case <-ctx.Done():
		return false
	}
}

func (p *Pipeline) recordVanished(logger *slog.Logger, path string, detectedAt time.Time, requestID string) {
	logger.Info("file vanished before upload; nothing to do")
	p.appendRecord(logger, &journal.Record{
		RequestID:    requestID,
		SourcePath:   path,
		FileName:     filepath.Base(path),
		Status:       journal.StatusVanished,
		ErrorMessage: "file removed before upload",
		DetectedAt:   detectedAt,
	})
}

func (p *Pipeline) recordFailure(logger *slog.Logger, path string, detectedAt time.Time, requestID string, size int64, err error) {
	p.failed.Add(1)
	p.appendRecord(logger, &journal.Record{
		RequestID:    requestID,
		SourcePath:   path,
		FileName:     filepath.Base(path),
		SizeBytes:    size,
		Status:       services.JournalStatus(err),
		ErrorMessage: err.Error(),
		DetectedAt:   detectedAt,
	})
	p.notify(notifications.EventUploadFailed, notifications.Payload{
		"fileName": filepath.Base(path),
		"reason":   err.Error(),
	})
}

// appendRecord writes the journal row with a fresh context so terminal
// outcomes land even while the run context is being torn down.
func (p *Pipeline) appendRecord(logger *slog.Logger, record *journal.Record) {
	if p.journal == nil {
		return
	}
	if _, err := p.journal.Append(context.Background(), record); err != nil {
		logger.Warn("failed to journal upload outcome", logging.Error(err))
	}
}

func (p *Pipeline) notify(event notifications.Event, payload notifications.Payload) {
	if err := p.notifier.Publish(context.Background(), event, payload); err != nil {
		p.logger.Warn("notification delivery failed",
			logging.String(logging.FieldEventType, string(event)),
			logging.Error(err),
		)
	}
}

// InFlight returns the paths currently being processed.
func (p *Pipeline) InFlight() []string {
	return p.tracker.Active()
}

// Counts returns how many files were uploaded and how many failed since start.
func (p *Pipeline) Counts() (uploaded, failed int64) {
	return p.uploaded.Load(), p.failed.Load()
}

// CountsPayload renders the counters for the shutdown notification.
func (p *Pipeline) CountsPayload() notifications.Payload {
	uploaded, failed := p.Counts()
	return notifications.Payload{
		"uploaded": strconv.FormatInt(uploaded, 10),
		"failed":   strconv.FormatInt(failed, 10),
	}
}
