package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"xmlwatch/internal/logging"
)

// FileHandler is the per-file entry point shared by live events and the
// backlog scan.
type FileHandler interface {
	Handle(ctx context.Context, path string) Outcome
}

// ReconcileSummary totals a backlog scan.
type ReconcileSummary struct {
	Seen      int
	Completed int
	Failed    int
	Ignored   int
	Duration  time.Duration
}

// Reconcile hands every regular file already in dir to h, sequentially, in
// directory-listing (lexical) order. Subdirectories are not descended into.
// Per-file failures are counted, not returned. Only an unreadable directory or
// cancellation between files is an error.
func Reconcile(ctx context.Context, h FileHandler, dir string, logger *slog.Logger) (ReconcileSummary, error) {
	logger = logging.NewComponentLogger(logger, "reconcile")
	start := time.Now()
	var summary ReconcileSummary

	entries, err := os.ReadDir(dir)
	if err != nil {
		return summary, fmt.Errorf("read backlog dir %s: %w", dir, err)
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			summary.Duration = time.Since(start)
			return summary, err
		}
		if entry.IsDir() {
			continue
		}
		summary.Seen++
		out := h.Handle(ctx, filepath.Join(dir, entry.Name()))
		switch out.Status {
		case StatusCompleted:
			summary.Completed++
		case StatusFailed:
			summary.Failed++
		default:
			summary.Ignored++
		}
	}

	summary.Duration = time.Since(start)
	logger.Info("backlog reconciled",
		logging.String(logging.FieldPath, dir),
		logging.Int("seen", summary.Seen),
		logging.Int("completed", summary.Completed),
		logging.Int("failed", summary.Failed),
		logging.Int("ignored", summary.Ignored),
		logging.Duration("duration", summary.Duration),
		logging.String(logging.FieldEventType, "backlog_reconciled"),
	)
	return summary, nil
}
