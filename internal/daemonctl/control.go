// Package daemonctl manages the daemon process from the CLI side: detached
// launch, PID discovery, and signal-based shutdown.
package daemonctl

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"snapship/internal/config"
	"snapship/internal/daemon"
	"snapship/internal/daemonrun"
)

// ErrDaemonNotRunning indicates no live daemon process was found.
var ErrDaemonNotRunning = errors.New("daemon not running")

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	ConfigPath string
	LogLevel   string
}

// StopResult captures daemon stop/termination outcome.
type StopResult struct {
	ForcedKill bool
	PID        int
}

// PIDPath returns the daemon PID file location for the given config.
func PIDPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.LogDir, daemonrun.PIDFileName)
}

// Launch starts a detached daemon process running the `run` subcommand.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}

	args := []string{"run"}
	if cfgPath := strings.TrimSpace(opts.ConfigPath); cfgPath != "" {
		args = append(args, "--config", cfgPath)
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		args = append(args, "--log-level", level)
	}

	proc := exec.Command(executablePath, args...)
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// ReadPID parses the PID file. A missing file maps to ErrDaemonNotRunning.
func ReadPID(pidPath string) (int, error) {
	data, err := os.ReadFile(pidPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, ErrDaemonNotRunning
		}
		return 0, fmt.Errorf("read pid file %q: %w", pidPath, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("pid file %q holds no valid pid", pidPath)
	}
	return pid, nil
}

func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	if err == nil {
		return true
	}
	// EPERM means the process exists but belongs to someone else.
	return errors.Is(err, syscall.EPERM)
}

// ProcessInfo reports whether the daemon process is alive and its PID when
// the PID file yields one.
func ProcessInfo(cfg *config.Config) (bool, int, error) {
	pid, err := ReadPID(PIDPath(cfg))
	if err != nil {
		if errors.Is(err, ErrDaemonNotRunning) {
			return false, 0, nil
		}
		return false, 0, err
	}
	if !processAlive(pid) {
		return false, pid, nil
	}
	return true, pid, nil
}

// WaitForStart polls until a launched daemon holds the instance lock.
func WaitForStart(cfg *config.Config, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		running, err := daemon.InstanceRunning(cfg)
		if err == nil && running {
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return fmt.Errorf("daemon failed to start within %s", timeout)
}

// WaitForShutdown polls until the given process disappears.
func WaitForShutdown(pid int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return fmt.Errorf("daemon pid %d still alive after %s", pid, timeout)
}

// StopAndTerminate signals the daemon with SIGTERM and escalates to SIGKILL
// when it does not exit within the grace period.
func StopAndTerminate(cfg *config.Config, grace time.Duration) (StopResult, error) {
	pidPath := PIDPath(cfg)
	pid, err := ReadPID(pidPath)
	if err != nil {
		return StopResult{}, err
	}
	if pid == os.Getpid() {
		return StopResult{}, fmt.Errorf("refusing to stop current process (pid %d)", pid)
	}
	if !processAlive(pid) {
		// Stale PID file from a crashed run.
		_ = os.Remove(pidPath)
		return StopResult{}, ErrDaemonNotRunning
	}

	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		return StopResult{}, fmt.Errorf("signal daemon pid %d: %w", pid, err)
	}
	result := StopResult{PID: pid}
	if err := WaitForShutdown(pid, grace); err == nil {
		return result, nil
	}

	if killErr := syscall.Kill(pid, syscall.SIGKILL); killErr != nil && !errors.Is(killErr, syscall.ESRCH) {
		return result, fmt.Errorf("kill daemon pid %d: %w", pid, killErr)
	}
	_ = os.Remove(pidPath)
	_ = os.Remove(filepath.Join(cfg.Paths.LogDir, daemon.LockFileName))
	result.ForcedKill = true
	return result, nil
}
