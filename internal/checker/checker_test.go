package checker_test

import (
	"testing"
	"time"

	"github.com/hazz-dev/ewwatch/internal/checker"
	"github.com/hazz-dev/ewwatch/internal/config"
)

func TestNew_OrderedCheckers(t *testing.T) {
	probes := config.Default().Probes
	probes.Connection.Address = "127.0.0.1:16005"
	probes.Log.Path = t.TempDir()

	checkers, err := checker.New(probes)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{checker.NameConnection, checker.NameDataFlow, checker.NameLog}
	if len(checkers) != len(want) {
		t.Fatalf("expected %d checkers, got %d", len(want), len(checkers))
	}
	for i, c := range checkers {
		if c.Name() != want[i] {
			t.Errorf("checker %d: expected %q, got %q", i, want[i], c.Name())
		}
	}
}

func TestNewConnection_UnknownMode(t *testing.T) {
	_, err := checker.NewConnection(config.Connection{
		Address: "127.0.0.1:1",
		Timeout: config.Duration{Duration: time.Second},
		Mode:    "icmp",
	})
	if err == nil {
		t.Fatal("expected error for unknown mode, got nil")
	}
}

func TestStatusConstants(t *testing.T) {
	if checker.StatusPass != "pass" {
		t.Errorf("StatusPass should be 'pass', got %q", checker.StatusPass)
	}
	if checker.StatusFail != "fail" {
		t.Errorf("StatusFail should be 'fail', got %q", checker.StatusFail)
	}
	if (checker.CheckResult{Healthy: true}).Status() != checker.StatusPass {
		t.Error("healthy result should map to pass")
	}
	if (checker.CheckResult{}).Status() != checker.StatusFail {
		t.Error("unhealthy result should map to fail")
	}
}
