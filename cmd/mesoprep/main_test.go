package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"mesoprep/internal/config"
	"mesoprep/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(t.TempDir(), "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestCLIConfigInitAndValidate(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Wrote sample configuration") {
		t.Fatalf("unexpected init output: %q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config not written: %v", err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init without --overwrite to fail on existing file")
	}

	env := setupCLITestEnv(t)
	out, _, err = runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, "Configuration valid") {
		t.Fatalf("unexpected validate output: %q", out)
	}
}

func TestCLIConfigShow(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, env.cfg.Paths.AcquisitionDir) {
		t.Fatalf("config show missing acquisition dir: %q", out)
	}
	if !strings.Contains(out, "trigger_line") {
		t.Fatalf("config show missing timing section: %q", out)
	}
}

func TestCLIProcessAndHistory(t *testing.T) {
	env := setupCLITestEnv(t)
	spec := testsupport.SessionSpec{
		SessionID:     "20000001",
		SubjectID:     "614173",
		ProjectCode:   "OpenScopeDendriteCoupling",
		SyncStart:     time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
		RisingSecond:  10,
		FallingSecond: 70,
	}
	testsupport.WriteDummySession(t, env.cfg, spec)

	out, _, err := runCLI(t, []string{"process", spec.SessionID, "--user", "Test User"}, env.configPath)
	if err != nil {
		t.Fatalf("process: %v\noutput: %s", err, out)
	}
	if !strings.Contains(out, "subject 614173") || !strings.Contains(out, "project OpenScope") {
		t.Fatalf("unexpected process output: %q", out)
	}
	if !strings.Contains(out, "manifest ") {
		t.Fatalf("process output missing manifest path: %q", out)
	}

	entries, err := os.ReadDir(env.cfg.Paths.ManifestDir)
	if err != nil {
		t.Fatalf("read manifest dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 manifest, found %d", len(entries))
	}

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, spec.SessionID) || !strings.Contains(out, "completed") {
		t.Fatalf("unexpected history output: %q", out)
	}
}

func TestCLIProcessContinuesPastFailures(t *testing.T) {
	env := setupCLITestEnv(t)
	spec := testsupport.SessionSpec{
		SessionID:     "20000001",
		SubjectID:     "614173",
		ProjectCode:   "OpenScopeDendriteCoupling",
		SyncStart:     time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
		RisingSecond:  10,
		FallingSecond: 70,
	}
	testsupport.WriteDummySession(t, env.cfg, spec)

	out, _, err := runCLI(t, []string{"process", "29999999", spec.SessionID, "--user", "Test User"}, env.configPath)
	if err == nil {
		t.Fatal("expected process to report the failed session")
	}
	if !strings.Contains(err.Error(), "1 of 2 sessions failed") {
		t.Fatalf("unexpected error: %v", err)
	}
	// The good session still completes.
	if !strings.Contains(out, spec.SessionID+": manifest ") {
		t.Fatalf("expected the remaining session to be processed: %q", out)
	}
}

func TestCLIHistoryEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "No runs recorded") {
		t.Fatalf("unexpected history output: %q", out)
	}
}

func TestCLIPreflight(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"preflight"}, env.configPath)
	if err != nil {
		t.Fatalf("preflight: %v\noutput: %s", err, out)
	}
	if !strings.Contains(out, "transfer destination") {
		t.Fatalf("unexpected preflight output: %q", out)
	}

	if err := os.RemoveAll(env.cfg.Transfer.Destination); err != nil {
		t.Fatalf("remove destination: %v", err)
	}
	if _, _, err := runCLI(t, []string{"preflight"}, env.configPath); err == nil {
		t.Fatal("expected preflight to fail with missing destination")
	}
}
