package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/hazz-dev/ewwatch/internal/report"
	"github.com/hazz-dev/ewwatch/internal/storage"
)

type statusStore interface {
	History(ctx context.Context, limit int) ([]report.Report, error)
}

func runStatus(ctx context.Context, out io.Writer, path string, limit int) error {
	if path == "" {
		return storage.ErrNoStore
	}
	db, err := storage.Open(path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()
	return executeStatus(ctx, out, db, limit)
}

func executeStatus(ctx context.Context, out io.Writer, db statusStore, limit int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	reports, err := db.History(ctx, limit)
	if err != nil {
		return fmt.Errorf("querying history: %w", err)
	}

	if len(reports) == 0 {
		fmt.Fprintln(out, "No report history. Run 'ewwatch run' or 'ewwatch check' first.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tVERDICT\tCHECKS\tFAILING")
	for _, r := range reports {
		checks := make([]string, 0, len(r.Results))
		for _, c := range r.Results {
			checks = append(checks, fmt.Sprintf("%s=%s", c.Name, c.Status()))
		}
		failing := "—"
		if f := r.Failing(); len(f) > 0 {
			failing = firstLine(f[0].Detail)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			r.Timestamp.Local().Format("2006-01-02 15:04:05"),
			r.Verdict(),
			strings.Join(checks, " "),
			failing,
		)
	}
	w.Flush()
	return nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
