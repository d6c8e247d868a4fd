package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipcraft/internal/config"
	"clipcraft/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	fake       *testsupport.FakeService
	configPath string
	baseDir    string
	mediaDir   string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.FakeOption) *cliTestEnv {
	t.Helper()

	fake := testsupport.NewFakeService(t, opts...)
	cfg := testsupport.NewConfig(t, testsupport.WithService(fake))
	base := testsupport.BaseDir(cfg)

	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("CLIPCRAFT_SERVICE_URL", "")
	t.Setenv("CLIPCRAFT_NTFY_TOPIC", "")

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		fake:       fake,
		configPath: configPath,
		baseDir:    base,
		mediaDir:   filepath.Join(base, "media"),
	}
}

func (env *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return runCLI(t, args, env.configPath)
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
state_dir = %q
log_dir = %q
download_dir = %q

[service]
base_url = %q
api_root = %q

[polling]
interval_ms = %d
max_attempts = %d
`,
		cfg.Paths.StateDir,
		cfg.Paths.LogDir,
		cfg.Paths.DownloadDir,
		cfg.Service.BaseURL,
		cfg.Service.APIRoot,
		cfg.Polling.IntervalMS,
		cfg.Polling.MaxAttempts,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
