package checker

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hazz-dev/ewwatch/internal/config"
)

const (
	// maxTailBytes bounds how much of a large log is read to find the last lines.
	maxTailBytes = 4 << 20
	// maxDetailLines bounds how many matching lines end up in a report.
	maxDetailLines = 5
)

type logChecker struct {
	cfg     config.Log
	markers []string
}

// NewLog returns the import-ack log checker.
func NewLog(cfg config.Log) Checker {
	markers := make([]string, 0, len(cfg.Markers))
	for _, m := range cfg.Markers {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			markers = append(markers, m)
		}
	}
	if cfg.TailLines <= 0 {
		cfg.TailLines = config.DefaultTailLines
	}
	return &logChecker{cfg: cfg, markers: markers}
}

func (c *logChecker) Name() string { return NameLog }

func (c *logChecker) Check(ctx context.Context) (result CheckResult) {
	start := time.Now()
	result = CheckResult{
		Name:      NameLog,
		CheckedAt: start,
	}
	defer func() { result.Duration = time.Since(start) }()

	if err := ctx.Err(); err != nil {
		result.Detail = fmt.Sprintf("log unavailable: %v", err)
		return result
	}

	path, err := ResolveLogFile(c.cfg.Path, c.cfg.Match)
	if err != nil {
		result.Detail = fmt.Sprintf("log unavailable: %v", err)
		return result
	}

	lines, err := tailLines(path, c.cfg.TailLines)
	if err != nil {
		result.Detail = fmt.Sprintf("log unavailable: %v", err)
		return result
	}

	matches := c.scan(lines)
	if len(matches) > 0 {
		result.Detail = formatMatches(path, matches)
		return result
	}

	result.Healthy = true
	result.Detail = fmt.Sprintf("no connectivity errors in last %d line(s) of %s", len(lines), filepath.Base(path))
	return result
}

func (c *logChecker) scan(lines []string) []string {
	var matches []string
	for _, line := range lines {
		lower := strings.ToLower(line)
		for _, m := range c.markers {
			if strings.Contains(lower, m) {
				matches = append(matches, strings.TrimSpace(line))
				break
			}
		}
	}
	return matches
}

func formatMatches(path string, matches []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d matching line(s)", path, len(matches))
	for i, line := range matches {
		if i == maxDetailLines {
			fmt.Fprintf(&b, "\n... and %d more", len(matches)-maxDetailLines)
			break
		}
		b.WriteString("\n")
		b.WriteString(line)
	}
	return b.String()
}

// ResolveLogFile returns path itself when it is a file. For a directory it
// returns the newest regular file (or symlink to one) whose name contains match: the lexically
// last name wins, modification time breaks ties.
func ResolveLogFile(path, match string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return path, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return "", err
	}

	var (
		best     string
		bestTime time.Time
	)
	for _, e := range entries {
		if !strings.Contains(e.Name(), match) {
			continue
		}
		// Stat follows symlinks so linked log files count and dangling links do not.
		fi, err := os.Stat(filepath.Join(path, e.Name()))
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		if best == "" || e.Name() > best || (e.Name() == best && fi.ModTime().After(bestTime)) {
			best, bestTime = e.Name(), fi.ModTime()
		}
	}
	if best == "" {
		return "", fmt.Errorf("no %q log files in %s", match, path)
	}
	return filepath.Join(path, best), nil
}

// tailLines returns up to n trailing lines of the file at path.
func tailLines(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	skipPartial := false
	if size := info.Size(); size > maxTailBytes {
		if _, err := f.Seek(size-maxTailBytes, io.SeekStart); err != nil {
			return nil, err
		}
		skipPartial = true
	}

	ring := make([]string, 0, n)
	next := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if skipPartial {
			skipPartial = false
			continue
		}
		line := scanner.Text()
		if len(ring) < n {
			ring = append(ring, line)
			continue
		}
		ring[next] = line
		next = (next + 1) % n
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(ring) < n {
		return ring, nil
	}
	return append(ring[next:], ring[:next]...), nil
}
