package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"snapship/internal/config"
	"snapship/internal/journal"
	"snapship/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	store      *journal.Store
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WatchDir = filepath.Join(base, "incoming")
	cfgVal.Paths.ArchiveDir = filepath.Join(base, "uploaded")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Upload.URL = "http://127.0.0.1:9/upload"
	cfg := &cfgVal

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	store, err := journal.Open(cfg)
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})

	return &cliTestEnv{
		cfg:        cfg,
		store:      store,
		configPath: configPath,
		baseDir:    base,
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\nwatch_dir = %q\narchive_dir = %q\nlog_dir = %q\n\n[upload]\nurl = %q\n",
		cfg.Paths.WatchDir,
		cfg.Paths.ArchiveDir,
		cfg.Paths.LogDir,
		cfg.Upload.URL,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cliArgs := args
	if configPath != "" {
		cliArgs = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(cliArgs)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(line + "\n")
	return err
}

func TestCLIHistoryCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	testsupport.AppendRecord(t, env.store, &journal.Record{
		RequestID:   "req-sunset",
		SourcePath:  filepath.Join(env.cfg.Paths.WatchDir, "sunset.jpg"),
		FileName:    "sunset.jpg",
		SizeBytes:   2048,
		Status:      journal.StatusArchived,
		ArchivePath: filepath.Join(env.cfg.Paths.ArchiveDir, "sunset.jpg"),
	})
	testsupport.AppendRecord(t, env.store, &journal.Record{
		RequestID:    "req-broken",
		SourcePath:   filepath.Join(env.cfg.Paths.WatchDir, "broken.png"),
		FileName:     "broken.png",
		SizeBytes:    1024,
		Status:       journal.StatusFailed,
		ErrorMessage: "upload: unexpected status 502",
	})

	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "sunset.jpg") || !strings.Contains(out, "broken.png") {
		t.Fatalf("history output missing records: %q", out)
	}
	if !strings.Contains(out, "Archived") || !strings.Contains(out, "Failed") {
		t.Fatalf("history output missing status labels: %q", out)
	}

	out, _, err = runCLI(t, []string{"history", "--status", "failed"}, env.configPath)
	if err != nil {
		t.Fatalf("history --status failed: %v", err)
	}
	if !strings.Contains(out, "broken.png") || strings.Contains(out, "sunset.jpg") {
		t.Fatalf("status filter not applied: %q", out)
	}

	if _, _, err := runCLI(t, []string{"history", "--status", "bogus"}, env.configPath); err == nil {
		t.Fatal("expected error for unknown status filter")
	}

	out, _, err = runCLI(t, []string{"history", "clear"}, env.configPath)
	if err != nil {
		t.Fatalf("history clear: %v", err)
	}
	if !strings.Contains(out, "Cleared 2 records") {
		t.Fatalf("unexpected clear output: %q", out)
	}

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history after clear: %v", err)
	}
	if !strings.Contains(out, "No uploads recorded") {
		t.Fatalf("expected empty journal message, got %q", out)
	}
}

func TestCLIConfigCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	target := filepath.Join(env.baseDir, "conf", "config.toml")
	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Wrote sample configuration to "+target) {
		t.Fatalf("unexpected init output: %q", out)
	}
	contents, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample config: %v", err)
	}
	if !strings.Contains(string(contents), "watch_dir") {
		t.Fatalf("sample config missing watch_dir: %s", contents)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected error when config already exists")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}

	out, _, err = runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, "Config path: "+env.configPath) {
		t.Fatalf("validate output missing config path: %q", out)
	}
	if !strings.Contains(out, "Configuration valid") {
		t.Fatalf("unexpected validate output: %q", out)
	}

	out, _, err = runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, "[upload]") || !strings.Contains(out, env.cfg.Paths.WatchDir) {
		t.Fatalf("unexpected show output: %q", out)
	}
}

func TestCLILogsCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	logPath := filepath.Join(env.cfg.Paths.LogDir, "snapship.log")
	if err := os.WriteFile(logPath, []byte("first\nsecond\nthird\n"), 0o644); err != nil {
		t.Fatalf("write log file: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "--lines", "2"}, env.configPath)
	if err != nil {
		t.Fatalf("logs --lines: %v", err)
	}
	if strings.Contains(out, "first") {
		t.Fatalf("logs printed more lines than requested: %q", out)
	}
	if !strings.Contains(out, "second") || !strings.Contains(out, "third") {
		t.Fatalf("unexpected logs output: %q", out)
	}
}

func TestCLILogsFollow(t *testing.T) {
	env := setupCLITestEnv(t)

	logPath := filepath.Join(env.cfg.Paths.LogDir, "snapship.log")
	if err := os.WriteFile(logPath, []byte("line1\n"), 0o644); err != nil {
		t.Fatalf("write log file: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := newRootCommand()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", env.configPath, "logs", "--follow"})
	cmd.SetContext(ctx)

	done := make(chan error, 1)
	go func() {
		done <- cmd.Execute()
	}()

	time.Sleep(100 * time.Millisecond)
	if err := appendLine(logPath, "followed"); err != nil {
		t.Fatalf("append log: %v", err)
	}
	time.Sleep(400 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("logs --follow execute: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("logs --follow did not exit")
	}

	if !strings.Contains(stdout.String(), "followed") {
		t.Fatalf("expected follow output to include appended line, got %q", stdout.String())
	}
}

func TestCLIStatusWhenDaemonNotRunning(t *testing.T) {
	env := setupCLITestEnv(t)

	testsupport.AppendRecord(t, env.store, &journal.Record{
		RequestID:  "req-pier",
		SourcePath: filepath.Join(env.cfg.Paths.WatchDir, "pier.jpg"),
		FileName:   "pier.jpg",
		SizeBytes:  512,
		Status:     journal.StatusArchived,
	})

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "Not running") {
		t.Fatalf("expected daemon reported as not running: %q", out)
	}
	if !strings.Contains(out, "Watch directory") || !strings.Contains(out, "Upload History") {
		t.Fatalf("status output missing sections: %q", out)
	}
	if !strings.Contains(out, "Archived") {
		t.Fatalf("status output missing journal summary: %q", out)
	}
}

func TestCLIVersionCommand(t *testing.T) {
	out, _, err := runCLI(t, []string{"version"}, "")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "snapship dev") {
		t.Fatalf("unexpected version output: %q", out)
	}
}

func TestCLITestNotifyWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"test-notify"}, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	if !strings.Contains(out, "ntfy topic not configured") {
		t.Fatalf("unexpected test-notify output: %q", out)
	}
}
