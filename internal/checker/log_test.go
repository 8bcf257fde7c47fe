package checker_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hazz-dev/ewwatch/internal/checker"
	"github.com/hazz-dev/ewwatch/internal/config"
)

func writeLog(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func makeLog(t *testing.T, path string) config.Log {
	t.Helper()
	return config.Log{
		Path:      path,
		Match:     "import",
		TailLines: 100,
		Markers:   config.DefaultMarkers,
	}
}

func TestLogChecker_Clean(t *testing.T) {
	path := writeLog(t, t.TempDir(), "import_ack_20240101.log",
		"20240101_UTC_00:00:01 import_ack: socket connected\n20240101_UTC_00:00:02 import_ack: heartbeat received\n")

	result := checker.NewLog(makeLog(t, path)).Check(context.Background())
	if !result.Healthy {
		t.Errorf("expected healthy, got %q", result.Detail)
	}
	if result.Name != checker.NameLog {
		t.Errorf("unexpected name %q", result.Name)
	}
}

func TestLogChecker_ConnectionRefusedAnyCase(t *testing.T) {
	line := "20240101_UTC_00:00:03 import_ack: CONNECTION REFUSED by 132.247.71.225"
	path := writeLog(t, t.TempDir(), "import_ack.log", "all good\n"+line+"\n")

	result := checker.NewLog(makeLog(t, path)).Check(context.Background())
	if result.Healthy {
		t.Fatal("expected unhealthy when log contains connection refused")
	}
	if !strings.Contains(result.Detail, line) {
		t.Errorf("expected matching line in detail, got %q", result.Detail)
	}
}

func TestLogChecker_TCPClientSetupFailure(t *testing.T) {
	path := writeLog(t, t.TempDir(), "import_ack.log",
		"import_ack: Failed to set up TCP client connection to 132.247.71.225:16401\n")

	result := checker.NewLog(makeLog(t, path)).Check(context.Background())
	if result.Healthy {
		t.Error("expected unhealthy for failed TCP client setup")
	}
}

func TestLogChecker_MissingFile(t *testing.T) {
	cfg := makeLog(t, filepath.Join(t.TempDir(), "does-not-exist.log"))

	result := checker.NewLog(cfg).Check(context.Background())
	if result.Healthy {
		t.Error("expected unhealthy for missing log")
	}
	if !strings.HasPrefix(result.Detail, "log unavailable") {
		t.Errorf("expected 'log unavailable' detail, got %q", result.Detail)
	}
}

func TestLogChecker_DirectoryWithoutMatches(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "statmgr.log", "connection refused\n")

	result := checker.NewLog(makeLog(t, dir)).Check(context.Background())
	if result.Healthy {
		t.Error("expected unhealthy with no import logs")
	}
	if !strings.HasPrefix(result.Detail, "log unavailable") {
		t.Errorf("expected 'log unavailable' detail, got %q", result.Detail)
	}
}

func TestLogChecker_DirectoryPicksNewest(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "import_ack_20240101.log", "lost connection to server\n")
	writeLog(t, dir, "import_ack_20240102.log", "reconnected\n")
	writeLog(t, dir, "wave_serverV_20240103.log", "timeout\n")

	result := checker.NewLog(makeLog(t, dir)).Check(context.Background())
	if !result.Healthy {
		t.Errorf("expected newest import log to be scanned, got %q", result.Detail)
	}
	if !strings.Contains(result.Detail, "import_ack_20240102.log") {
		t.Errorf("expected newest file named in detail, got %q", result.Detail)
	}
}

func TestLogChecker_OnlyTailIsScanned(t *testing.T) {
	var b strings.Builder
	b.WriteString("timeout waiting for heartbeat\n")
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&b, "line %d ok\n", i)
	}
	path := writeLog(t, t.TempDir(), "import_ack.log", b.String())

	cfg := makeLog(t, path)
	cfg.TailLines = 10
	result := checker.NewLog(cfg).Check(context.Background())
	if !result.Healthy {
		t.Errorf("old errors outside the tail should be ignored, got %q", result.Detail)
	}
}

func TestLogChecker_DetailIsBounded(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 12; i++ {
		fmt.Fprintf(&b, "attempt %d: connection refused\n", i)
	}
	path := writeLog(t, t.TempDir(), "import_ack.log", b.String())

	result := checker.NewLog(makeLog(t, path)).Check(context.Background())
	if result.Healthy {
		t.Fatal("expected unhealthy")
	}
	if !strings.Contains(result.Detail, "12 matching line(s)") {
		t.Errorf("expected total count, got %q", result.Detail)
	}
	if !strings.Contains(result.Detail, "... and 7 more") {
		t.Errorf("expected truncation marker, got %q", result.Detail)
	}
	if !strings.Contains(result.Detail, "attempt 4:") || strings.Contains(result.Detail, "attempt 5:") {
		t.Errorf("expected only the first five matches listed, got %q", result.Detail)
	}
}

func TestResolveLogFile_FileAndDirectory(t *testing.T) {
	dir := t.TempDir()
	path := writeLog(t, dir, "import_ack.log", "x\n")
	if err := os.Mkdir(filepath.Join(dir, "import_archive"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := checker.ResolveLogFile(path, "ignored")
	if err != nil || got != path {
		t.Errorf("file path should resolve to itself, got %q, %v", got, err)
	}

	got, err = checker.ResolveLogFile(dir, "import")
	if err != nil {
		t.Fatal(err)
	}
	if got != path {
		t.Errorf("expected %s (directories skipped), got %s", path, got)
	}
}

func TestResolveLogFile_FollowsSymlinks(t *testing.T) {
	target := writeLog(t, t.TempDir(), "import_ack_20240102.log", "x\n")
	dir := t.TempDir()
	writeLog(t, dir, "import_ack_20240101.log", "x\n")
	link := filepath.Join(dir, "import_ack_20240102.log")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if err := os.Symlink(filepath.Join(dir, "missing"), filepath.Join(dir, "import_ack_20240103.log")); err != nil {
		t.Fatal(err)
	}

	got, err := checker.ResolveLogFile(dir, "import")
	if err != nil {
		t.Fatal(err)
	}
	if got != link {
		t.Errorf("expected linked log %s (dangling link skipped), got %s", link, got)
	}
}
