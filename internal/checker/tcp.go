package checker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/hazz-dev/ewwatch/internal/config"
)

type tcpChecker struct {
	cfg config.Connection
}

func newTCPChecker(cfg config.Connection) *tcpChecker {
	return &tcpChecker{cfg: cfg}
}

func (c *tcpChecker) Name() string { return NameConnection }

func (c *tcpChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	result := CheckResult{
		Name:      NameConnection,
		CheckedAt: start,
	}

	dialer := &net.Dialer{Timeout: c.cfg.Timeout.Duration}
	conn, err := dialer.DialContext(ctx, "tcp", c.cfg.Address)
	result.Duration = time.Since(start)
	if err != nil {
		result.Detail = describeDialError(c.cfg.Address, c.cfg.Timeout.Duration, err)
		return result
	}
	conn.Close()
	result.Healthy = true
	result.Detail = fmt.Sprintf("connected to %s in %s", c.cfg.Address, result.Duration.Round(time.Millisecond))
	return result
}

func describeDialError(addr string, timeout time.Duration, err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Sprintf("dial %s: connection refused", addr)
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Sprintf("dial %s: timed out after %s", addr, timeout)
	case errors.Is(err, syscall.EHOSTUNREACH), errors.Is(err, syscall.ENETUNREACH):
		return fmt.Sprintf("dial %s: host unreachable", addr)
	default:
		return fmt.Sprintf("dial %s: %v", addr, err)
	}
}
