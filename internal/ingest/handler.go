package ingest

import (
	"context"
	"encoding/hex"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"xmlwatch/internal/config"
	"xmlwatch/internal/envelope"
	"xmlwatch/internal/fileutil"
	"xmlwatch/internal/ledger"
	"xmlwatch/internal/logging"
	"xmlwatch/internal/payload"
	"xmlwatch/internal/staging"
)

// Recorder persists outcomes. *ledger.Store satisfies it.
type Recorder interface {
	Record(ctx context.Context, e ledger.Entry) (int64, error)
}

// Notifier alerts an operator about files left in place after a failure.
type Notifier interface {
	NotifyFileFailed(ctx context.Context, path, reason string, err error) error
}

// Option customizes a Handler.
type Option func(*Handler)

// WithNotifier sends failed outcomes to n.
func WithNotifier(n Notifier) Option {
	return func(h *Handler) {
		h.notifier = n
	}
}

// Handler processes individual files from the watched directory.
type Handler struct {
	destDir     string
	writer      *staging.Writer
	routes      dispatchTable
	dedupWindow time.Duration
	recorder    Recorder
	notifier    Notifier
	logger      *slog.Logger
	now         func() time.Time

	locks *pathLocks

	mu       sync.Mutex
	consumed map[string]time.Time
}

// NewHandler builds a Handler from cfg. recorder may be nil.
func NewHandler(cfg *config.Config, recorder Recorder, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		destDir:     cfg.Paths.DestinationDir,
		writer:      staging.NewWriter(cfg.Paths.DestinationDir, cfg.Paths.StagingSubdir, logger),
		routes:      newDispatchTable(cfg.Ingest.PlainExtensions, cfg.Ingest.EnvelopeExtensions),
		dedupWindow: cfg.DedupWindow(),
		recorder:    recorder,
		logger:      logging.NewComponentLogger(logger, "ingest"),
		now:         time.Now,
		locks:       newPathLocks(),
		consumed:    make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle dispatches path by suffix and runs the matching pipeline to
// completion. Cancelling ctx does not interrupt a started attempt. Handle never
// returns an error; failures are reported in the Outcome and logged.
func (h *Handler) Handle(ctx context.Context, path string) Outcome {
	ctx = context.WithoutCancel(ctx)
	start := h.now()

	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	out := Outcome{Path: path}

	r, ok := h.routes.match(filepath.Base(path))
	if !ok {
		out.Status = StatusIgnored
		out.Reason = "unrecognized extension"
		h.logger.Debug("file ignored",
			logging.String(logging.FieldPath, path),
			logging.String(logging.FieldReason, out.Reason),
			logging.String(logging.FieldEventType, "dispatch_miss"),
		)
		return out
	}
	out.Kind = r.kind

	unlock := h.locks.lock(path)
	defer unlock()

	if reason, skip := h.precheck(path); skip {
		out.Status = StatusIgnored
		out.Reason = reason
		out.Duration = h.now().Sub(start)
		h.report(ctx, start, out)
		return out
	}

	err := r.run(h, ctx, path, &out)
	out.Duration = h.now().Sub(start)
	switch {
	case err == nil:
		out.Status = StatusCompleted
		h.markConsumed(path)
	case errors.Is(err, errVanished):
		out.Status = StatusIgnored
		out.Reason = "file vanished during handling"
	default:
		out.Status = StatusFailed
		out.Err = err
		out.Reason = ErrorKind(err)
	}

	h.report(ctx, start, out)
	return out
}

// precheck decides whether path should be skipped before any work starts.
func (h *Handler) precheck(path string) (string, bool) {
	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if h.recentlyConsumed(path) {
				return "duplicate notification", true
			}
			return "file not found", true
		}
		return "stat failed: " + err.Error(), true
	}
	if info.IsDir() {
		return "directory", true
	}
	if !info.Mode().IsRegular() {
		return "not a regular file", true
	}
	return "", false
}

func (h *Handler) markConsumed(path string) {
	if h.dedupWindow <= 0 {
		return
	}
	now := h.now()
	h.mu.Lock()
	defer h.mu.Unlock()
	for p, at := range h.consumed {
		if now.Sub(at) > h.dedupWindow {
			delete(h.consumed, p)
		}
	}
	h.consumed[path] = now
}

func (h *Handler) recentlyConsumed(path string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	at, ok := h.consumed[path]
	return ok && h.now().Sub(at) <= h.dedupWindow
}

// relocate moves a plain file into the destination under its own base name.
func (h *Handler) relocate(_ context.Context, path string, out *Outcome) error {
	if sum, err := fileutil.HashFile(path); err == nil {
		out.Digest = hex.EncodeToString(sum)
	} else if errors.Is(err, fs.ErrNotExist) {
		return errVanished
	}

	dest := filepath.Join(h.destDir, filepath.Base(path))
	if err := fileutil.MoveFile(path, dest); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if _, statErr := os.Stat(path); errors.Is(statErr, fs.ErrNotExist) {
				return errVanished
			}
		}
		return &StorageError{Op: "move", Path: path, Err: err}
	}
	out.Published = append(out.Published, dest)
	return nil
}

// ingestEnvelope parses the envelope, publishes every Part, and removes the
// source only when all publishes succeeded.
func (h *Handler) ingestEnvelope(ctx context.Context, path string, out *Outcome) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errVanished
		}
		return &StorageError{Op: "read", Path: path, Err: err}
	}
	out.Digest = ledger.Digest(data)

	doc, err := envelope.ParseBytes(path, data)
	if err != nil {
		var me *envelope.MalformedError
		if errors.As(err, &me) && me.Index >= 0 {
			out.Part = &PartRef{Index: me.Index, ID: me.PartID, Filename: me.Filename}
		}
		return err
	}
	out.Parts = doc.Len()

	for i, part := range doc.Parts {
		body, kind := payload.Prepare(part)
		dest, err := h.writer.Publish(ctx, staging.Item{
			Envelope: path,
			Index:    i,
			Filename: part.Filename,
			Kind:     kind,
			Data:     body,
		})
		if err != nil {
			out.Part = &PartRef{Index: i, ID: part.ID, Filename: part.Filename}
			return &StorageError{Op: "publish", Path: path, Err: err}
		}
		out.Published = append(out.Published, dest)
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &StorageError{Op: "remove source", Path: path, Err: err}
	}
	return nil
}

func (h *Handler) report(ctx context.Context, start time.Time, out Outcome) {
	attrs := []logging.Attr{
		logging.String(logging.FieldPath, out.Path),
		logging.String("kind", out.Kind.String()),
		logging.Duration("duration", out.Duration),
	}
	if out.Kind == KindEnvelope {
		attrs = append(attrs, logging.Int("parts", out.Parts), logging.Int("published", len(out.Published)))
	}
	if out.Part != nil {
		attrs = append(attrs,
			logging.Int(logging.FieldPartIndex, out.Part.Index),
			logging.String(logging.FieldPartID, out.Part.ID),
			logging.String(logging.FieldPartFilename, out.Part.Filename),
		)
	}

	switch out.Status {
	case StatusCompleted:
		msg := "envelope ingested"
		if out.Kind == KindPlain {
			msg = "file relocated"
			attrs = append(attrs, logging.String(logging.FieldDestination, out.Published[0]))
		}
		attrs = append(attrs, logging.String(logging.FieldEventType, out.Kind.String()+"_completed"))
		h.logger.Info(msg, logging.Args(attrs...)...)
	case StatusFailed:
		hint := "fix or replace the file in the source directory; it will be retried on the next notification or restart"
		if errors.Is(out.Err, ErrStorage) {
			hint = "check destination_dir free space and permissions"
		}
		attrs = append(attrs,
			logging.String(logging.FieldReason, out.Reason),
			logging.Error(out.Err),
			logging.String(logging.FieldErrorHint, hint),
		)
		logging.ErrorWithContext(h.logger, out.Kind.String()+" failed; source left in place", out.Kind.String()+"_failed", attrs...)
		h.notifyFailure(ctx, out)
	default:
		attrs = append(attrs,
			logging.String(logging.FieldReason, out.Reason),
			logging.String(logging.FieldEventType, "file_ignored"),
		)
		h.logger.Debug("file ignored", logging.Args(attrs...)...)
	}

	h.record(ctx, start, out)
}

func (h *Handler) notifyFailure(ctx context.Context, out Outcome) {
	if h.notifier == nil {
		return
	}
	if err := h.notifier.NotifyFileFailed(ctx, out.Path, out.Reason, out.Err); err != nil {
		logging.WarnWithContext(h.logger, "failure notification not sent", "notification_failed",
			logging.String(logging.FieldPath, out.Path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			logging.String(logging.FieldImpact, "operator not alerted"),
		)
	}
}

func (h *Handler) record(ctx context.Context, start time.Time, out Outcome) {
	if h.recorder == nil {
		return
	}
	entry := ledger.Entry{
		Path:       out.Path,
		Kind:       out.Kind.String(),
		Status:     string(out.Status),
		Parts:      out.Parts,
		Published:  len(out.Published),
		Digest:     out.Digest,
		ErrorKind:  ErrorKind(out.Err),
		StartedAt:  start,
		FinishedAt: start.Add(out.Duration),
	}
	if out.Err != nil {
		entry.Error = out.Err.Error()
	}
	if _, err := h.recorder.Record(ctx, entry); err != nil {
		logging.WarnWithContext(h.logger, "ledger write failed", "ledger_write_failed",
			logging.String(logging.FieldPath, out.Path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check state_dir permissions and free space"),
			logging.String(logging.FieldImpact, "outcome missing from history"),
		)
	}
}
