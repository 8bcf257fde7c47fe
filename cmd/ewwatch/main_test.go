package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazz-dev/ewwatch/internal/config"
)

func writeFile(t *testing.T, dir, name, content string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		t.Fatal(err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		config.EnvBotToken, config.EnvChatID, config.EnvSlackWebhookURL, config.EnvWebhookURL,
		config.EnvConnectionAddress, config.EnvLogPath, config.EnvLogLevel, "EW_LOG",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func parse(t *testing.T, args ...string) (*cobra.Command, *flags) {
	t.Helper()
	f := &flags{}
	cmd := &cobra.Command{Use: "test"}
	bindFlags(cmd, f)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("parsing flags: %v", err)
	}
	return cmd, f
}

const baseConfig = `
interval: "10m"
probes:
  connection:
    address: "127.0.0.1:16005"
  log:
    path: "/tmp"
`

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, t.TempDir(), "ewwatch.yml", baseConfig, 0o644)
	cmd, f := parse(t, "--config", path, "-i", "5", "-g", "--log-level", "debug")

	cfg, err := loadConfig(cmd, f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Interval.Duration != 5*time.Minute {
		t.Errorf("expected 5m interval from flag, got %v", cfg.Interval)
	}
	if !cfg.Notify.ReportGoodNews || cfg.Notify.Enabled {
		t.Errorf("unexpected notify settings: %+v", cfg.Notify)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected debug log level, got %q", cfg.LogLevel)
	}
}

func TestLoadConfig_FileWinsOverFlagDefaults(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, t.TempDir(), "ewwatch.yml", baseConfig, 0o644)
	cmd, f := parse(t, "--config", path)

	cfg, err := loadConfig(cmd, f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Interval.Duration != 10*time.Minute {
		t.Errorf("expected interval from file, got %v", cfg.Interval)
	}
}

func TestLoadConfig_TelegramFlagRequiresSecrets(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, t.TempDir(), "ewwatch.yml", baseConfig, 0o644)
	cmd, f := parse(t, "--config", path, "-t")

	_, err := loadConfig(cmd, f)
	if err == nil || !strings.Contains(err.Error(), config.EnvBotToken) {
		t.Fatalf("expected missing BOT_TOKEN error, got %v", err)
	}
}

func TestLoadConfig_ExplicitMissingFile(t *testing.T) {
	clearEnv(t)
	cmd, f := parse(t, "--config", filepath.Join(t.TempDir(), "nope.yml"))
	if _, err := loadConfig(cmd, f); err == nil {
		t.Fatal("expected error for explicit missing config file")
	}
}

func TestLoadConfig_InvalidInterval(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, t.TempDir(), "ewwatch.yml", baseConfig, 0o644)
	cmd, f := parse(t, "--config", path, "-i", "0")
	if _, err := loadConfig(cmd, f); err == nil {
		t.Fatal("expected error for zero interval")
	}
}

func TestVersionCommand(t *testing.T) {
	root := rootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "ewwatch ") {
		t.Errorf("unexpected version output %q", buf.String())
	}
}
