package checker

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/hazz-dev/ewwatch/internal/config"
)

// CommandExecutor abstracts os/exec for testability.
type CommandExecutor interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// HostResolver resolves a host name to its addresses. *net.Resolver satisfies it.
type HostResolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// socketTableChecker looks for an already established connection to the
// upstream address in the host socket table instead of dialing it.
type socketTableChecker struct {
	cfg      config.Connection
	executor CommandExecutor
	resolver HostResolver
}

func newSocketTableChecker(cfg config.Connection) *socketTableChecker {
	return &socketTableChecker{cfg: cfg, executor: &osExecutor{}, resolver: net.DefaultResolver}
}

// NewSocketTableCheckerWithExecutor creates an established-mode checker with a custom executor (for testing).
func NewSocketTableCheckerWithExecutor(cfg config.Connection, exec CommandExecutor) Checker {
	return &socketTableChecker{cfg: cfg, executor: exec, resolver: net.DefaultResolver}
}

// NewSocketTableCheckerWithResolver also replaces host name resolution (for testing).
func NewSocketTableCheckerWithResolver(cfg config.Connection, exec CommandExecutor, r HostResolver) Checker {
	return &socketTableChecker{cfg: cfg, executor: exec, resolver: r}
}

func (c *socketTableChecker) Name() string { return NameConnection }

func (c *socketTableChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	result := CheckResult{
		Name:      NameConnection,
		CheckedAt: start,
	}

	if len(c.cfg.SocketCommand) == 0 {
		result.Detail = "probe execution failed: no socket command configured"
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout.Duration)
	defer cancel()

	name, args := c.cfg.SocketCommand[0], c.cfg.SocketCommand[1:]
	stdout, stderr, err := c.executor.Run(ctx, name, args...)
	result.Duration = time.Since(start)
	if err != nil {
		result.Detail = execFailure(name, err, stderr)
		return result
	}

	peers, err := c.peers(ctx)
	if err != nil {
		result.Detail = fmt.Sprintf("cannot resolve %s: %v", c.cfg.Address, err)
		return result
	}
	if !EstablishedTo(stdout, peers...) {
		result.Detail = fmt.Sprintf("no established connection to %s", c.cfg.Address)
		return result
	}
	result.Healthy = true
	result.Detail = fmt.Sprintf("connection to %s established", c.cfg.Address)
	return result
}

// peers expands the configured address into the numeric ip:port forms the
// socket table prints. Host names resolve to every address they map to.
func (c *socketTableChecker) peers(ctx context.Context) ([]string, error) {
	host, port, err := net.SplitHostPort(c.cfg.Address)
	if err != nil {
		return nil, err
	}
	if ip := net.ParseIP(host); ip != nil {
		return []string{net.JoinHostPort(ip.String(), port)}, nil
	}
	ips, err := c.resolver.LookupHost(ctx, host)
	if err != nil {
		return nil, err
	}
	peers := make([]string, 0, len(ips))
	for _, ip := range ips {
		peers = append(peers, net.JoinHostPort(ip, port))
	}
	return peers, nil
}

// EstablishedTo reports whether socket-table output (ss or netstat) lists an
// established connection whose peer is one of addrs.
func EstablishedTo(output []byte, addrs ...string) bool {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, "ESTAB") {
			continue
		}
		for _, field := range strings.Fields(line) {
			peer := normalizePeer(field)
			for _, addr := range addrs {
				if peer == addr {
					return true
				}
			}
		}
	}
	return false
}

// normalizePeer strips the IPv4-mapped IPv6 form ss prints for dual-stack sockets.
func normalizePeer(field string) string {
	if rest, ok := strings.CutPrefix(field, "[::ffff:"); ok {
		return strings.Replace(rest, "]", "", 1)
	}
	return field
}

func execFailure(name string, err error, stderr []byte) string {
	msg := fmt.Sprintf("probe execution failed: %s: %v", name, err)
	if line := firstLine(stderr); line != "" {
		msg += " (" + line + ")"
	}
	return msg
}

func firstLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	return s
}
