// Package daemonrun assembles and runs the foreground daemon process: logger,
// journal store, notifier, pipeline, watcher, PID file, and signal handling.
package daemonrun

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"log/slog"

	"snapship/internal/config"
	"snapship/internal/daemon"
	"snapship/internal/journal"
	"snapship/internal/logging"
	"snapship/internal/notifications"
	"snapship/internal/pipeline"
	"snapship/internal/preflight"
	"snapship/internal/services"
)

// PIDFileName is the file under the log directory holding the daemon PID.
const PIDFileName = "snapship.pid"

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel string
}

// Run starts the snapship daemon and blocks until SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return services.Wrap(services.ErrConfiguration, "daemon", "run", "configuration is required", nil)
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare directories: %w", err)
	}

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("snapship-%s.log", runID))

	level := strings.TrimSpace(opts.LogLevel)
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update snapship.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "snapship-*.log", Exclude: []string{logPath}},
	)

	pidPath := filepath.Join(cfg.Paths.LogDir, PIDFileName)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := journal.Open(cfg)
	if err != nil {
		logger.Error("open journal store", logging.Error(err))
		return err
	}
	defer store.Close()

	notifier := notifications.NewService(cfg)
	pl := pipeline.New(cfg, store, notifier, logger)
	d, err := daemon.New(cfg, store, logger, pl)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	runPreflight(signalCtx, cfg, logger)

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check directory permissions and whether another instance holds the lock"),
		)
		return err
	}

	logStartupSummary(logger, cfg)
	publish(signalCtx, logger, notifier, notifications.EventStarted, notifications.Payload{
		"watchDir": cfg.Paths.WatchDir,
	})

	<-signalCtx.Done()
	logger.Info("snapship daemon shutting down")
	d.Stop()

	uploaded, failed := d.Counts()
	logger.Info("run summary",
		logging.String(logging.FieldEventType, "daemon_stopped"),
		logging.Int64("uploaded", uploaded),
		logging.Int64("failed", failed),
	)
	publish(context.Background(), logger, notifier, notifications.EventStopped, pl.CountsPayload())
	return nil
}

func runPreflight(ctx context.Context, cfg *config.Config, logger *slog.Logger) {
	for _, result := range preflight.RunAll(ctx, cfg) {
		if result.Passed {
			logger.Debug("preflight check passed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
			)
			continue
		}
		logger.Warn("preflight check failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "the daemon stays up, but uploads may fail until this is fixed"),
		)
	}
}

func logStartupSummary(logger *slog.Logger, cfg *config.Config) {
	endpoint := cfg.Upload.URL
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Host != "" {
		endpoint = parsed.Host
	}
	logger.Info("watching for new images",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("watch_dir", cfg.Paths.WatchDir),
		logging.String("archive_dir", cfg.Paths.ArchiveDir),
		logging.String("endpoint", endpoint),
		logging.Duration("debounce", cfg.DebounceInterval()),
		logging.String("extensions", strings.Join(cfg.Watch.Extensions, ",")),
	)
}

func publish(ctx context.Context, logger *slog.Logger, notifier notifications.Service, event notifications.Event, payload notifications.Payload) {
	if err := notifier.Publish(ctx, event, payload); err != nil {
		logger.Warn("notification delivery failed",
			logging.String(logging.FieldEventType, string(event)),
			logging.Error(err),
		)
	}
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "snapship.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
