package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"xmlwatch/internal/config"
	"xmlwatch/internal/ingest"
	"xmlwatch/internal/ledger"
	"xmlwatch/internal/logging"
	"xmlwatch/internal/notifications"
	"xmlwatch/internal/preflight"
	"xmlwatch/internal/staging"
	"xmlwatch/internal/watch"
)

// Daemon runs the watch-and-ingest service and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	base     *slog.Logger
	logger   *slog.Logger
	store    *ledger.Store
	notifier notifications.Service
	handler  *ingest.Handler
	watcher  *watch.Watcher

	lockPath string
	pidPath  string
	lock     *flock.Flock

	running atomic.Bool

	mu        sync.Mutex
	startedAt time.Time
	backlog   ingest.ReconcileSummary
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	StartedAt    time.Time
	Backlog      ingest.ReconcileSummary
	Pending      int
	LedgerPath   string
	LockFilePath string
}

// New constructs a daemon. store may be nil to run without a ledger.
func New(cfg *config.Config, store *ledger.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	var recorder ingest.Recorder
	if store != nil {
		recorder = store
	}
	notifier := notifications.NewService(cfg)
	handler := ingest.NewHandler(cfg, recorder, logger, ingest.WithNotifier(notifier))

	return &Daemon{
		cfg:      cfg,
		base:     logger,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		notifier: notifier,
		handler:  handler,
		watcher:  watch.New(cfg, handler, logger),
		lockPath: cfg.LockPath(),
		pidPath:  filepath.Join(cfg.Paths.StateDir, "xmlwatch.pid"),
	}, nil
}

// Start acquires the lock, prepares directories, reconciles the backlog, and
// begins handling live notifications. Any error is fatal for the service and
// leaves nothing running.
func (d *Daemon) Start(ctx context.Context) (err error) {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := d.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	lock, err := AcquireLock(d.lockPath)
	if err != nil {
		return err
	}
	d.lock = lock
	defer func() {
		if err != nil {
			d.watcher.Stop()
			_ = d.lock.Unlock()
			d.lock = nil
		}
	}()

	if err := preflight.Failed(preflight.RunAll(d.cfg)); err != nil {
		return err
	}

	cleaned := staging.CleanStale(ctx, d.cfg.StagingDir(), d.cfg.StaleStagingAge(), d.logger)
	if len(cleaned.Removed) > 0 || len(cleaned.Errors) > 0 {
		d.logger.Info("stale staging cleanup finished",
			logging.Int("removed", len(cleaned.Removed)),
			logging.Int("errors", len(cleaned.Errors)),
			logging.String(logging.FieldEventType, "staging_cleanup_summary"),
		)
	}

	// Subscribe before scanning so files created during the scan are queued
	// rather than missed.
	if err := d.watcher.Subscribe(); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}

	summary, err := ingest.Reconcile(ctx, d.handler, d.cfg.Paths.SourceDir, d.base)
	if err != nil {
		return fmt.Errorf("reconcile backlog: %w", err)
	}

	d.watcher.StartWorkers(ctx)

	if summary.Completed+summary.Failed > 0 {
		if err := d.notifier.NotifyBacklogCompleted(ctx, summary.Seen, summary.Completed, summary.Failed, summary.Duration); err != nil {
			logging.WarnWithContext(d.logger, "backlog notification not sent", "notification_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
				logging.String(logging.FieldImpact, "operator not alerted"),
			)
		}
	}

	if err := writePIDFile(d.pidPath); err != nil {
		logging.WarnWithContext(d.logger, "failed to write pid file", "pid_file_failed",
			logging.String(logging.FieldPath, d.pidPath),
			logging.Error(err),
			logging.String(logging.FieldImpact, "process id not discoverable from state_dir"),
		)
	}

	d.mu.Lock()
	d.startedAt = time.Now()
	d.backlog = summary
	d.mu.Unlock()
	d.running.Store(true)

	d.logger.Info("xmlwatch daemon started",
		logging.String("source_dir", d.cfg.Paths.SourceDir),
		logging.String("destination_dir", d.cfg.Paths.DestinationDir),
		logging.String("lock", d.lockPath),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

// Stop unsubscribes from notifications, waits for in-flight and queued work to
// finish, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.watcher.Stop()
	_ = os.Remove(d.pidPath)
	if d.lock != nil {
		if err := d.lock.Unlock(); err != nil {
			logging.WarnWithContext(d.logger, "failed to release daemon lock", "lock_release_failed",
				logging.String(logging.FieldPath, d.lockPath),
				logging.Error(err),
				logging.String(logging.FieldImpact, "lock is released when the process exits"),
			)
		}
		d.lock = nil
	}
	d.running.Store(false)
	d.logger.Info("xmlwatch daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close stops the daemon and releases the ledger.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	status := Status{
		Running:      d.running.Load(),
		StartedAt:    d.startedAt,
		Backlog:      d.backlog,
		Pending:      d.watcher.Pending(),
		LockFilePath: d.lockPath,
	}
	if d.store != nil {
		status.LedgerPath = d.store.Path()
	}
	return status
}
