package staging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"xmlwatch/internal/logging"
	"xmlwatch/internal/payload"
	"xmlwatch/internal/textutil"
)

const (
	// StagedSuffix marks in-progress files inside the staging directory.
	StagedSuffix = ".staging"
	partMarker   = ".part_"
)

// Item is one payload to publish.
type Item struct {
	// Envelope is the source envelope path; its base name without extension
	// prefixes the published name.
	Envelope string
	Index    int
	Filename string
	Kind     payload.Kind
	Data     []byte
}

// Writer stages and publishes payloads into a destination directory.
type Writer struct {
	destDir    string
	stagingDir string
	logger     *slog.Logger
	newID      func() string
}

// NewWriter returns a Writer publishing into destDir and staging under
// destDir/stagingSubdir.
func NewWriter(destDir, stagingSubdir string, logger *slog.Logger) *Writer {
	if strings.TrimSpace(stagingSubdir) == "" {
		stagingSubdir = "temp"
	}
	return &Writer{
		destDir:    destDir,
		stagingDir: filepath.Join(destDir, stagingSubdir),
		logger:     logging.NewComponentLogger(logger, "staging"),
		newID:      uuid.NewString,
	}
}

// DestinationDir returns the directory published files land in.
func (w *Writer) DestinationDir() string { return w.destDir }

// StagingDir returns the directory used for in-progress files.
func (w *Writer) StagingDir() string { return w.stagingDir }

// FinalName computes the published file name for item:
// <envelope stem>.part_<sanitized filename><kind suffix>. An empty or unsafe
// filename falls back to part<index>.
func FinalName(item Item) string {
	base := filepath.Base(item.Envelope)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	name := textutil.SanitizeFileName(item.Filename)
	if name == "" {
		name = fmt.Sprintf("part%d", item.Index)
	}
	return stem + partMarker + name + item.Kind.Suffix()
}

// Publish writes item into a staged file and renames it to its final path,
// replacing any previous file with the same name. The returned path is the
// published destination. ctx is only consulted before the write starts; once
// bytes are being written the attempt runs to completion.
func (w *Writer) Publish(ctx context.Context, item Item) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(w.stagingDir, 0o755); err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}

	final := FinalName(item)
	finalPath := filepath.Join(w.destDir, final)
	stagedPath := filepath.Join(w.stagingDir, final+"."+w.newID()+StagedSuffix)

	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(stagedPath)
		}
	}()

	if err := writeSynced(stagedPath, item.Data); err != nil {
		return "", fmt.Errorf("write staged file %s: %w", stagedPath, err)
	}
	if err := os.Rename(stagedPath, finalPath); err != nil {
		return "", fmt.Errorf("publish %s: %w", finalPath, err)
	}
	committed = true

	w.logger.Debug("payload published",
		logging.String(logging.FieldDestination, finalPath),
		logging.Int(logging.FieldPartIndex, item.Index),
		logging.String("kind", item.Kind.String()),
		logging.Int("bytes", len(item.Data)),
		logging.String(logging.FieldEventType, "payload_published"),
	)
	return finalPath, nil
}

func writeSynced(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
