package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"xmlwatch/internal/config"
	"xmlwatch/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	for _, key := range []string{"LOG_LEVEL", "LOG_DIR", "XMLWATCH_LOG_FORMAT", "XMLWATCH_SOURCE_DIR", "XMLWATCH_DESTINATION_DIR", "XMLWATCH_STATE_DIR", "XMLWATCH_NTFY_TOPIC"} {
		t.Setenv(key, "")
	}
	t.Setenv("HOME", t.TempDir())

	cfg := testsupport.NewConfig(t)
	cfg.Logging.Level = "warn"
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	encoded, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, []byte(encoded), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	return runCLIContext(t, context.Background(), args, configPath)
}

func runCLIContext(t *testing.T, ctx context.Context, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, want string) {
	t.Helper()
	if !strings.Contains(output, want) {
		t.Fatalf("expected output to contain %q, got:\n%s", want, output)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestRootCommandShowsHelp(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, nil, env.configPath)
	if err != nil {
		t.Fatalf("root command: %v", err)
	}
	for _, want := range []string{"run", "process", "history", "config"} {
		requireContains(t, out, want)
	}
}

func TestRunCommandHandlesFilesUntilCancelled(t *testing.T) {
	env := setupCLITestEnv(t)
	backlog := filepath.Join(env.cfg.Paths.SourceDir, "backlog.txt")
	testsupport.WriteFile(t, backlog, []byte("queued before start\n"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		_, _, err := runCLIContext(t, ctx, []string{"run"}, env.configPath)
		done <- err
	}()

	pidPath := filepath.Join(env.cfg.Paths.StateDir, "xmlwatch.pid")
	waitFor(t, "pid file", func() bool {
		_, err := os.Stat(pidPath)
		return err == nil
	})
	if _, err := os.Stat(filepath.Join(env.cfg.Paths.DestinationDir, "backlog.txt")); err != nil {
		t.Fatalf("expected backlog file relocated before workers start: %v", err)
	}

	testsupport.WriteEnvelope(t, env.cfg.Paths.SourceDir, "live.xml",
		testsupport.Part{ID: "1", Filename: "note", Type: "text/plain", Body: []byte("\n\nhello")},
	)
	published := filepath.Join(env.cfg.Paths.DestinationDir, "live.part_note.txt")
	waitFor(t, "live envelope", func() bool {
		_, err := os.Stat(published)
		return err == nil
	})

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after cancellation")
	}

	if _, err := os.Stat(pidPath); !os.IsNotExist(err) {
		t.Fatalf("expected pid file removed on shutdown, stat err=%v", err)
	}
	if _, err := os.Lstat(filepath.Join(env.cfg.Paths.LogDir, logPointerName)); err != nil {
		t.Fatalf("expected current log pointer: %v", err)
	}
	logs, err := filepath.Glob(filepath.Join(env.cfg.Paths.LogDir, "xmlwatch-*.log"))
	if err != nil || len(logs) != 1 {
		t.Fatalf("expected one run log, got %v (err=%v)", logs, err)
	}
}

func TestRunCommandInterruptedDuringBacklogExitsCleanly(t *testing.T) {
	env := setupCLITestEnv(t)
	backlog := filepath.Join(env.cfg.Paths.SourceDir, "pending.txt")
	testsupport.WriteFile(t, backlog, []byte("not yet\n"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := runCLIContext(t, ctx, []string{"run"}, env.configPath); err != nil {
		t.Fatalf("expected clean exit, got %v", err)
	}
	if _, err := os.Stat(backlog); err != nil {
		t.Fatalf("backlog file should remain for the next run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(env.cfg.Paths.StateDir, "xmlwatch.pid")); !os.IsNotExist(err) {
		t.Fatalf("expected no pid file, stat err=%v", err)
	}
}

func TestEnsureCurrentLogPointerReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "xmlwatch-1.log")
	second := filepath.Join(dir, "xmlwatch-2.log")
	for _, path := range []string{first, second} {
		testsupport.WriteFile(t, path, []byte(filepath.Base(path)))
	}
	if err := ensureCurrentLogPointer(dir, first); err != nil {
		t.Fatalf("first pointer: %v", err)
	}
	if err := ensureCurrentLogPointer(dir, second); err != nil {
		t.Fatalf("second pointer: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, logPointerName))
	if err != nil {
		t.Fatalf("read pointer: %v", err)
	}
	if string(data) != "xmlwatch-2.log" {
		t.Fatalf("pointer resolves to %q", data)
	}
}

func TestLogsCommandPrintsCurrentRun(t *testing.T) {
	env := setupCLITestEnv(t)
	runLog := filepath.Join(env.cfg.Paths.LogDir, "xmlwatch-20260101T000000.000Z.log")
	testsupport.WriteFile(t, runLog, []byte("first\nsecond\nthird\n"))
	if err := ensureCurrentLogPointer(env.cfg.Paths.LogDir, runLog); err != nil {
		t.Fatalf("log pointer: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "-n", "2"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if out != "second\nthird\n" {
		t.Fatalf("unexpected logs output %q", out)
	}
}
