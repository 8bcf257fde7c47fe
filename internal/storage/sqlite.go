// Package storage keeps a history of health reports in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazz-dev/ewwatch/internal/checker"
	"github.com/hazz-dev/ewwatch/internal/report"
)

const schema = `
CREATE TABLE IF NOT EXISTS reports (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    healthy    INTEGER NOT NULL CHECK(healthy IN (0, 1)),
    created_at TEXT    NOT NULL
);

CREATE TABLE IF NOT EXISTS results (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    report_id   INTEGER NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
    position    INTEGER NOT NULL,
    name        TEXT    NOT NULL,
    healthy     INTEGER NOT NULL CHECK(healthy IN (0, 1)),
    detail      TEXT    NOT NULL DEFAULT '',
    duration_ms INTEGER NOT NULL,
    checked_at  TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_results_report ON results(report_id, position);
CREATE INDEX IF NOT EXISTS idx_results_name ON results(name, id DESC);
`

// DB wraps a SQLite database.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and applies the schema.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite at %q: %w", path, err)
	}
	// One connection: ":memory:" databases are per connection, and writes are
	// serialized by SQLite anyway.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// InsertReport persists a report and its results in one transaction.
func (d *DB) InsertReport(ctx context.Context, r report.Report) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO reports (healthy, created_at) VALUES (?, ?)`,
		boolToInt(r.Healthy),
		formatTime(r.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("inserting report: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading report id: %w", err)
	}

	for i, c := range r.Results {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO results (report_id, position, name, healthy, detail, duration_ms, checked_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, i, c.Name, boolToInt(c.Healthy), c.Detail, c.Duration.Milliseconds(), formatTime(c.CheckedAt),
		)
		if err != nil {
			return fmt.Errorf("inserting result %q: %w", c.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing report: %w", err)
	}
	return nil
}

// LatestReport returns the most recent report, or nil if none is stored.
func (d *DB) LatestReport(ctx context.Context) (*report.Report, error) {
	reports, err := d.History(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, nil
	}
	return &reports[0], nil
}

// History returns up to limit reports, newest first.
func (d *DB) History(ctx context.Context, limit int) ([]report.Report, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, healthy, created_at FROM reports ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying reports: %w", err)
	}

	var (
		ids     []int64
		reports []report.Report
	)
	for rows.Next() {
		var (
			id        int64
			healthy   int
			createdAt string
		)
		if err := rows.Scan(&id, &healthy, &createdAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning report row: %w", err)
		}
		ts, err := parseTime(createdAt)
		if err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
		reports = append(reports, report.Report{Timestamp: ts, Healthy: healthy == 1})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterating report rows: %w", err)
	}
	rows.Close()

	for i, id := range ids {
		results, err := d.results(ctx, id)
		if err != nil {
			return nil, err
		}
		reports[i].Results = results
	}
	return reports, nil
}

func (d *DB) results(ctx context.Context, reportID int64) ([]checker.CheckResult, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT name, healthy, detail, duration_ms, checked_at FROM results WHERE report_id = ? ORDER BY position`,
		reportID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying results for report %d: %w", reportID, err)
	}
	defer rows.Close()

	var out []checker.CheckResult
	for rows.Next() {
		var (
			c          checker.CheckResult
			healthy    int
			durationMs int64
			checkedAt  string
		)
		if err := rows.Scan(&c.Name, &healthy, &c.Detail, &durationMs, &checkedAt); err != nil {
			return nil, fmt.Errorf("scanning result row: %w", err)
		}
		ts, err := parseTime(checkedAt)
		if err != nil {
			return nil, err
		}
		c.Healthy = healthy == 1
		c.Duration = time.Duration(durationMs) * time.Millisecond
		c.CheckedAt = ts
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating result rows: %w", err)
	}
	return out, nil
}

// PassRate returns the percentage of passing runs among the last N runs of
// the named check. It is 0 when the check has never run.
func (d *DB) PassRate(ctx context.Context, name string, last int) (float64, error) {
	var total int
	var passed sql.NullInt64
	err := d.db.QueryRowContext(ctx, `
		SELECT COUNT(*), SUM(healthy)
		FROM (
			SELECT healthy FROM results WHERE name = ? ORDER BY id DESC LIMIT ?
		)
	`, name, last).Scan(&total, &passed)
	if err != nil {
		return 0, fmt.Errorf("calculating pass rate for %q: %w", name, err)
	}
	if total == 0 {
		return 0, nil
	}
	return float64(passed.Int64) / float64(total) * 100, nil
}

// timeLayout has a fixed-width fraction so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ErrNoStore is returned by consumers when history is disabled.
var ErrNoStore = errors.New("report history is disabled")
