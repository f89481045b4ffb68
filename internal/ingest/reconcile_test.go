package ingest_test

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"xmlwatch/internal/ingest"
	"xmlwatch/internal/logging"
	"xmlwatch/internal/testsupport"
)

type recordingHandler struct {
	inner ingest.FileHandler
	paths []string
}

func (r *recordingHandler) Handle(ctx context.Context, path string) ingest.Outcome {
	r.paths = append(r.paths, filepath.Base(path))
	return r.inner.Handle(ctx, path)
}

func TestReconcileProcessesBacklogInDirectoryOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := &recordingHandler{inner: ingest.NewHandler(cfg, nil, logging.NewNop())}

	testsupport.WriteEnvelope(t, cfg.Paths.SourceDir, "b.xml",
		testsupport.Part{Filename: "p", Type: "text/plain", Body: []byte("\nB")},
	)
	testsupport.WriteEnvelope(t, cfg.Paths.SourceDir, "c.xml",
		testsupport.Part{Filename: "p", Type: "text/plain", RawBody: "!!"},
	)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.SourceDir, "a.txt"), []byte("A"))
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.SourceDir, "d.bin"), []byte("D"))
	if err := os.Mkdir(filepath.Join(cfg.Paths.SourceDir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.SourceDir, "sub", "deep.txt"), []byte("deep"))

	summary, err := ingest.Reconcile(context.Background(), h, cfg.Paths.SourceDir, logging.NewNop())
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	if !slices.Equal(h.paths, []string{"a.txt", "b.xml", "c.xml", "d.bin"}) {
		t.Fatalf("unexpected handling order: %v", h.paths)
	}
	if summary.Seen != 4 || summary.Completed != 2 || summary.Failed != 1 || summary.Ignored != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	got := testsupport.ReadDirNames(t, cfg.Paths.DestinationDir)
	if !slices.Equal(got, []string{"a.txt", "b.part_p.txt"}) {
		t.Fatalf("unexpected destination contents: %v", got)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.SourceDir, "sub", "deep.txt")); err != nil {
		t.Fatalf("nested file should not be touched: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.SourceDir, "c.xml")); err != nil {
		t.Fatalf("malformed envelope should remain: %v", err)
	}
}

func TestReconcileMissingDirectory(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutDirectories())
	h := ingest.NewHandler(cfg, nil, logging.NewNop())
	if _, err := ingest.Reconcile(context.Background(), h, cfg.Paths.SourceDir, logging.NewNop()); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestReconcileStopsWhenCancelled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.SourceDir, "a.txt"), []byte("A"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := ingest.Reconcile(ctx, ingest.NewHandler(cfg, nil, logging.NewNop()), cfg.Paths.SourceDir, logging.NewNop())
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if summary.Seen != 0 {
		t.Fatalf("expected no files handled, got %+v", summary)
	}
}
