package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/hazz-dev/ewwatch/internal/config"
)

const sniffScript = `#!/bin/sh
echo "Sniffing $1 for wild.wild.wild.wild"
echo "WLF.BHZ.GE.-- (0x32 0x30) 0 i4   40    20.0 2008/12/24 06:07:24.63 (1230098844.6300) 2008/12/24 06:07:26.58 (1230098846.5800) 0x00 0x00 i99 m77 t19 len 224 [D: 5.3s F: 0.0s]"
exec sleep 30
`

// checkEnv starts a TCP listener and writes a config around it.
func checkEnv(t *testing.T, sniffCommand, logContent string) *config.Config {
	t.Helper()
	clearEnv(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	dir := t.TempDir()
	logDir := filepath.Join(dir, "log")
	writeDir(t, logDir)
	writeFile(t, logDir, "import_ack_20240501.log", logContent, 0o644)

	yaml := fmt.Sprintf(`
probes:
  connection:
    address: %q
    timeout: "1s"
  data_flow:
    command: %q
    window: "300ms"
  log:
    path: %q
storage:
  path: %q
`, ln.Addr().String(), sniffCommand, logDir, filepath.Join(dir, "history.db"))

	cfg, err := config.Load(writeFile(t, dir, "ewwatch.yml", yaml, 0o644), true)
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	return cfg
}

func TestExecuteCheck_NoDataIsUnhealthy(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	cfg := checkEnv(t, "true", "connected to 132.247.71.225:16401\n")

	var buf bytes.Buffer
	err := executeCheck(context.Background(), &buf, cfg, zerolog.Nop())
	if !errors.Is(err, errUnhealthy) {
		t.Fatalf("expected errUnhealthy, got %v", err)
	}

	out := buf.String()
	for _, want := range []string{"FAILING", "[PASS] connection", "[FAIL] data-flow", "no data observed", "[PASS] log"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestExecuteCheck_AllHealthy(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	script := writeFile(t, t.TempDir(), "sniffwave", sniffScript, 0o755)
	cfg := checkEnv(t, script, "import started\n")

	var buf bytes.Buffer
	if err := executeCheck(context.Background(), &buf, cfg, zerolog.Nop()); err != nil {
		t.Fatalf("expected healthy check, got %v\n%s", err, buf.String())
	}
	if !strings.Contains(buf.String(), "Earthworm health: OK") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}

	var status bytes.Buffer
	if err := runStatus(context.Background(), &status, cfg.Storage.Path, 5); err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(status.String(), "OK") || !strings.Contains(status.String(), "log=pass") {
		t.Errorf("expected stored report in status output:\n%s", status.String())
	}
}

func TestExecuteCheck_LogTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	script := writeFile(t, t.TempDir(), "sniffwave", sniffScript, 0o755)
	cfg := checkEnv(t, script, "import started\nrecv: Timeout waiting for heartbeat\n")

	var buf bytes.Buffer
	err := executeCheck(context.Background(), &buf, cfg, zerolog.Nop())
	if !errors.Is(err, errUnhealthy) {
		t.Fatalf("expected errUnhealthy, got %v", err)
	}
	if !strings.Contains(buf.String(), "recv: Timeout waiting for heartbeat") {
		t.Errorf("expected matching log line in output:\n%s", buf.String())
	}
}
