package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fsnotify/fsnotify"

	"xmlwatch/internal/config"
	"xmlwatch/internal/ingest"
	"xmlwatch/internal/logging"
)

// Watcher forwards file-creation notifications from one directory to a
// bounded queue consumed by a fixed pool of workers.
type Watcher struct {
	dir       string
	handler   ingest.FileHandler
	workers   int
	queueSize int
	logger    *slog.Logger

	mu         sync.Mutex
	fsw        *fsnotify.Watcher
	events     chan string
	quit       chan struct{}
	loopDone   chan struct{}
	workerWG   sync.WaitGroup
	subscribed bool
	working    bool
}

// New creates a Watcher for cfg's source directory.
func New(cfg *config.Config, handler ingest.FileHandler, logger *slog.Logger) *Watcher {
	workers := cfg.Ingest.Workers
	if workers < 1 {
		workers = 1
	}
	queueSize := cfg.Ingest.QueueSize
	if queueSize < 1 {
		queueSize = 1
	}
	return &Watcher{
		dir:       cfg.Paths.SourceDir,
		handler:   handler,
		workers:   workers,
		queueSize: queueSize,
		logger:    logging.NewComponentLogger(logger, "watch"),
	}
}

// Subscribe establishes the notification subscription. Events are queued but
// not handled until StartWorkers is called. Failure here is fatal for the
// service.
func (w *Watcher) Subscribe() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.subscribed {
		return errors.New("watcher already subscribed")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(w.dir); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	w.fsw = fsw
	w.events = make(chan string, w.queueSize)
	w.quit = make(chan struct{})
	w.loopDone = make(chan struct{})
	w.subscribed = true

	go w.forwardLoop(fsw, w.events, w.quit, w.loopDone)

	w.logger.Info("watch subscription established",
		logging.String(logging.FieldPath, w.dir),
		logging.Int("queue_size", w.queueSize),
		logging.String(logging.FieldEventType, "watch_subscribed"),
	)
	return nil
}

// StartWorkers launches the worker pool. It is a no-op before Subscribe or
// when workers are already running.
func (w *Watcher) StartWorkers(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.subscribed || w.working {
		return
	}
	w.working = true
	events := w.events
	for range w.workers {
		w.workerWG.Add(1)
		go w.worker(ctx, events)
	}
	w.logger.Info("watch workers started",
		logging.Int("workers", w.workers),
		logging.Int("queued", len(events)),
		logging.String(logging.FieldEventType, "watch_workers_started"),
	)
}

// Stop unsubscribes, waits for queued and in-flight work to finish, and
// returns. Events queued while no workers were started are dropped; the next
// backlog scan picks those files up.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.subscribed {
		w.mu.Unlock()
		return
	}
	close(w.quit)
	closeErr := w.fsw.Close()
	loopDone := w.loopDone
	w.mu.Unlock()

	<-loopDone

	w.mu.Lock()
	dropped := 0
	if !w.working {
		dropped = len(w.events)
	}
	close(w.events)
	working := w.working
	w.subscribed = false
	w.working = false
	w.mu.Unlock()

	if working {
		w.workerWG.Wait()
	}

	if closeErr != nil {
		w.logger.Warn("closing fsnotify watcher failed",
			logging.Error(closeErr),
			logging.String(logging.FieldEventType, "watch_close_failed"),
			logging.String(logging.FieldErrorHint, "inotify handles are released at process exit"),
			logging.String(logging.FieldImpact, "none once the process exits"),
		)
	}
	w.logger.Info("watch stopped",
		logging.Int("dropped", dropped),
		logging.String(logging.FieldEventType, "watch_stopped"),
	)
}

// Pending reports how many notifications are queued but not yet taken by a
// worker.
func (w *Watcher) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.events == nil {
		return 0
	}
	return len(w.events)
}

// Running reports whether the subscription is active.
func (w *Watcher) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.subscribed
}

// forwardLoop copies creation events into the bounded queue. A full queue
// blocks here, which leaves further events buffered by fsnotify and the
// kernel rather than dropping them.
func (w *Watcher) forwardLoop(fsw *fsnotify.Watcher, events chan<- string, quit <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-quit:
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			w.logger.Debug("file created",
				logging.String(logging.FieldPath, event.Name),
				logging.String(logging.FieldEventType, "file_created"),
			)
			select {
			case events <- event.Name:
			case <-quit:
				return
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			impact := "some notifications may have been missed"
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				impact = "notifications were dropped by the kernel; restart to rescan the backlog"
			}
			w.logger.Warn("fsnotify error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "watch_error"),
				logging.String(logging.FieldErrorHint, "check fs.inotify limits and source_dir health"),
				logging.String(logging.FieldImpact, impact),
			)
		}
	}
}

func (w *Watcher) worker(ctx context.Context, events <-chan string) {
	defer w.workerWG.Done()
	for path := range events {
		w.handler.Handle(ctx, path)
	}
}
