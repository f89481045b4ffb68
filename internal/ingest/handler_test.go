package ingest_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"xmlwatch/internal/envelope"
	"xmlwatch/internal/ingest"
	"xmlwatch/internal/logging"
	"xmlwatch/internal/testsupport"
)

func TestHandleEnvelopePublishesEveryPart(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := ingest.NewHandler(cfg, nil, logging.NewNop())

	binary := []byte{0x00, 0xff, 0x10, '\n', '\n'}
	src := testsupport.WriteEnvelope(t, cfg.Paths.SourceDir, "batch.xml",
		testsupport.Part{ID: "1", Filename: "greeting", Type: "text/plain", Body: []byte("\n\n  \nHello\n\nWorld\n")},
		testsupport.Part{ID: "2", Filename: "note", Type: "application/x-mytext", Body: []byte("\r\nline\r\n")},
		testsupport.Part{ID: "3", Filename: "image.png", Type: "image/png", Body: binary},
	)

	out := h.Handle(context.Background(), src)
	if out.Status != ingest.StatusCompleted {
		t.Fatalf("expected completed, got %s (%v)", out.Status, out.Err)
	}
	if out.Kind != ingest.KindEnvelope || out.Parts != 3 || len(out.Published) != 3 {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("expected source envelope removed, stat err=%v", err)
	}

	want := map[string][]byte{
		"batch.part_greeting.txt":   []byte("Hello\n\nWorld"),
		"batch.part_note.txt":       []byte("line"),
		"batch.part_image.png.data": binary,
	}
	names := testsupport.ReadDirNames(t, cfg.Paths.DestinationDir)
	if len(names) != len(want) {
		t.Fatalf("expected %d published files, got %v", len(want), names)
	}
	for name, content := range want {
		got, err := os.ReadFile(filepath.Join(cfg.Paths.DestinationDir, name))
		if err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
		if !bytes.Equal(got, content) {
			t.Fatalf("%s: got %q want %q", name, got, content)
		}
	}
	if staged := testsupport.ReadDirNames(t, cfg.StagingDir()); len(staged) != 0 {
		t.Fatalf("expected empty staging dir, got %v", staged)
	}
}

func TestHandleBareParts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := ingest.NewHandler(cfg, nil, logging.NewNop())

	src := filepath.Join(cfg.Paths.SourceDir, "bare.xml")
	testsupport.WriteFile(t, src, []byte(testsupport.EnvelopeXML(false,
		testsupport.Part{Filename: "a", Type: "text/plain", Body: []byte("A")},
		testsupport.Part{Filename: "b", Type: "", Body: []byte("B")},
	)))

	out := h.Handle(context.Background(), src)
	if out.Status != ingest.StatusCompleted || len(out.Published) != 2 {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	got := testsupport.ReadDirNames(t, cfg.Paths.DestinationDir)
	if !slices.Equal(got, []string{"bare.part_a.txt", "bare.part_b.data"}) {
		t.Fatalf("unexpected published files: %v", got)
	}
}

func TestHandleMalformedPartLeavesEnvelopeUntouched(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := ingest.NewHandler(cfg, nil, logging.NewNop())

	src := testsupport.WriteEnvelope(t, cfg.Paths.SourceDir, "mixed.xml",
		testsupport.Part{ID: "ok", Filename: "good", Type: "text/plain", Body: []byte("fine")},
		testsupport.Part{ID: "bad", Filename: "broken", Type: "text/plain", RawBody: "***not base64***"},
	)
	before, err := os.ReadFile(src)
	if err != nil {
		t.Fatal(err)
	}

	out := h.Handle(context.Background(), src)
	if out.Status != ingest.StatusFailed {
		t.Fatalf("expected failed, got %s", out.Status)
	}
	if !errors.Is(out.Err, envelope.ErrMalformed) {
		t.Fatalf("expected malformed error, got %v", out.Err)
	}
	if out.Reason != "malformed_envelope" {
		t.Fatalf("unexpected reason %q", out.Reason)
	}
	if out.Part == nil || out.Part.Index != 1 || out.Part.ID != "bad" || out.Part.Filename != "broken" {
		t.Fatalf("expected failing part identity, got %+v", out.Part)
	}

	after, err := os.ReadFile(src)
	if err != nil {
		t.Fatalf("expected source to remain: %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Fatal("source envelope was modified")
	}
	if names := testsupport.ReadDirNames(t, cfg.Paths.DestinationDir); len(names) != 0 {
		t.Fatalf("expected no published files, got %v", names)
	}
}

func TestHandleMissingElementRejectsEnvelope(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := ingest.NewHandler(cfg, nil, logging.NewNop())

	src := filepath.Join(cfg.Paths.SourceDir, "nofilename.xml")
	testsupport.WriteFile(t, src, []byte(`<Root><Parts><Part><Type>text/plain</Type><Body>aGk=</Body></Part></Parts></Root>`))

	out := h.Handle(context.Background(), src)
	if out.Status != ingest.StatusFailed || !errors.Is(out.Err, envelope.ErrMalformed) {
		t.Fatalf("expected malformed failure, got %+v", out)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("source should remain: %v", err)
	}
}

func TestHandleDocumentWithoutPartsKeepsSource(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := ingest.NewHandler(cfg, nil, logging.NewNop())

	src := filepath.Join(cfg.Paths.SourceDir, "settings.xml")
	content := []byte(`<config><setting>x</setting></config>`)
	testsupport.WriteFile(t, src, content)

	out := h.Handle(context.Background(), src)
	if out.Status != ingest.StatusFailed || !errors.Is(out.Err, envelope.ErrMalformed) {
		t.Fatalf("expected malformed failure, got %+v", out)
	}
	got, err := os.ReadFile(src)
	if err != nil {
		t.Fatalf("source should remain: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Fatal("source was modified")
	}
	if names := testsupport.ReadDirNames(t, cfg.Paths.DestinationDir); len(names) != 0 {
		t.Fatalf("expected no published files, got %v", names)
	}
}

func TestHandlePaddedTypeIsBinary(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := ingest.NewHandler(cfg, nil, logging.NewNop())

	src := filepath.Join(cfg.Paths.SourceDir, "padded.xml")
	testsupport.WriteFile(t, src, []byte(`<Root><Parts><Part><Filename>p</Filename><Type> text/plain </Type><Body>aGk=</Body></Part></Parts></Root>`))

	out := h.Handle(context.Background(), src)
	if out.Status != ingest.StatusCompleted {
		t.Fatalf("expected completed, got %s (%v)", out.Status, out.Err)
	}
	got := testsupport.ReadDirNames(t, cfg.Paths.DestinationDir)
	if !slices.Equal(got, []string{"padded.part_p.data"}) {
		t.Fatalf("unexpected published files: %v", got)
	}
}

func TestHandleStorageFailureKeepsSource(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := ingest.NewHandler(cfg, nil, logging.NewNop())

	src := testsupport.WriteEnvelope(t, cfg.Paths.SourceDir, "blocked.xml",
		testsupport.Part{Filename: "first", Type: "text/plain", Body: []byte("one")},
		testsupport.Part{Filename: "second", Type: "application/octet-stream", Body: []byte("two")},
	)
	// A non-empty directory at the second part's final path makes its rename fail.
	blocker := filepath.Join(cfg.Paths.DestinationDir, "blocked.part_second.data")
	if err := os.MkdirAll(filepath.Join(blocker, "child"), 0o755); err != nil {
		t.Fatal(err)
	}

	out := h.Handle(context.Background(), src)
	if out.Status != ingest.StatusFailed {
		t.Fatalf("expected failed, got %s", out.Status)
	}
	if !errors.Is(out.Err, ingest.ErrStorage) || ingest.ErrorKind(out.Err) != "storage" {
		t.Fatalf("expected storage failure, got %v", out.Err)
	}
	if out.Part == nil || out.Part.Index != 1 {
		t.Fatalf("expected failing part index 1, got %+v", out.Part)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("source should remain after storage failure: %v", err)
	}
	if len(out.Published) != 1 {
		t.Fatalf("expected the first part to have been published, got %v", out.Published)
	}
}

func TestHandleIsIdempotentAcrossReprocessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := ingest.NewHandler(cfg, nil, logging.NewNop())

	parts := []testsupport.Part{{Filename: "doc", Type: "text/plain", Body: []byte("v1")}}
	src := testsupport.WriteEnvelope(t, cfg.Paths.SourceDir, "again.xml", parts...)
	if out := h.Handle(context.Background(), src); out.Status != ingest.StatusCompleted {
		t.Fatalf("first pass: %+v", out)
	}

	parts[0].Body = []byte("v2")
	testsupport.WriteEnvelope(t, cfg.Paths.SourceDir, "again.xml", parts...)
	if out := h.Handle(context.Background(), src); out.Status != ingest.StatusCompleted {
		t.Fatalf("second pass: %+v", out)
	}

	got, err := os.ReadFile(filepath.Join(cfg.Paths.DestinationDir, "again.part_doc.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "v2" {
		t.Fatalf("expected last write to win, got %q", got)
	}
	if names := testsupport.ReadDirNames(t, cfg.Paths.DestinationDir); len(names) != 1 {
		t.Fatalf("expected one published file, got %v", names)
	}
}

func TestHandleDuplicateNotificationIsIgnored(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := ingest.NewHandler(cfg, nil, logging.NewNop())

	src := testsupport.WriteEnvelope(t, cfg.Paths.SourceDir, "dup.xml",
		testsupport.Part{Filename: "x", Type: "text/plain", Body: []byte("x")},
	)
	if out := h.Handle(context.Background(), src); out.Status != ingest.StatusCompleted {
		t.Fatalf("first: %+v", out)
	}
	out := h.Handle(context.Background(), src)
	if out.Status != ingest.StatusIgnored || out.Reason != "duplicate notification" {
		t.Fatalf("expected duplicate to be ignored, got %+v", out)
	}
}

func TestHandleSerializesSamePath(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := ingest.NewHandler(cfg, nil, logging.NewNop())

	src := testsupport.WriteEnvelope(t, cfg.Paths.SourceDir, "race.xml",
		testsupport.Part{Filename: "a", Type: "text/plain", Body: bytes.Repeat([]byte("a"), 1<<16)},
		testsupport.Part{Filename: "b", Type: "image/png", Body: bytes.Repeat([]byte{1}, 1<<16)},
	)

	const callers = 8
	results := make([]ingest.Outcome, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = h.Handle(context.Background(), src)
		}()
	}
	wg.Wait()

	completed := 0
	for _, out := range results {
		switch out.Status {
		case ingest.StatusCompleted:
			completed++
		case ingest.StatusIgnored:
		default:
			t.Fatalf("unexpected outcome: %+v", out)
		}
	}
	if completed != 1 {
		t.Fatalf("expected exactly one completed attempt, got %d", completed)
	}
	if names := testsupport.ReadDirNames(t, cfg.Paths.DestinationDir); len(names) != 2 {
		t.Fatalf("expected 2 published files, got %v", names)
	}
}

func TestHandlePlainFileRelocatedVerbatim(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := ingest.NewHandler(cfg, nil, logging.NewNop())

	content := []byte("\n\n  raw plain text, not normalized\r\n\xff")
	src := filepath.Join(cfg.Paths.SourceDir, "report.txt")
	testsupport.WriteFile(t, src, content)

	out := h.Handle(context.Background(), src)
	if out.Status != ingest.StatusCompleted || out.Kind != ingest.KindPlain {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	dest := filepath.Join(cfg.Paths.DestinationDir, "report.txt")
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("content changed: %q", got)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("expected source moved, stat err=%v", err)
	}
	if out.Digest == "" {
		t.Fatal("expected digest for plain file")
	}
}

func TestHandleIgnoresUnknownAndNonFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := ingest.NewHandler(cfg, nil, logging.NewNop())

	other := filepath.Join(cfg.Paths.SourceDir, "image.jpg")
	upper := filepath.Join(cfg.Paths.SourceDir, "SHOUT.XML")
	testsupport.WriteFile(t, other, []byte("x"))
	testsupport.WriteFile(t, upper, []byte("x"))
	dir := filepath.Join(cfg.Paths.SourceDir, "nested.xml")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		path   string
		reason string
	}{
		{other, "unrecognized extension"},
		{upper, "unrecognized extension"},
		{dir, "directory"},
		{filepath.Join(cfg.Paths.SourceDir, "ghost.xml"), "file not found"},
	}
	target := filepath.Join(t.TempDir(), "real.xml")
	testsupport.WriteFile(t, target, []byte("<Root><Parts/></Root>"))
	link := filepath.Join(cfg.Paths.SourceDir, "linked.xml")
	if err := os.Symlink(target, link); err == nil {
		tests = append(tests, struct {
			path   string
			reason string
		}{link, "not a regular file"})
	}
	for _, tt := range tests {
		out := h.Handle(context.Background(), tt.path)
		if out.Status != ingest.StatusIgnored || out.Reason != tt.reason {
			t.Errorf("%s: got status=%s reason=%q, want ignored/%q", tt.path, out.Status, out.Reason, tt.reason)
		}
	}
	for _, path := range []string{other, upper} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("ignored file %s should remain: %v", path, err)
		}
	}
}

func TestHandleRecordsLedgerEntries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	h := ingest.NewHandler(cfg, store, logging.NewNop())

	good := testsupport.WriteEnvelope(t, cfg.Paths.SourceDir, "good.xml",
		testsupport.Part{Filename: "a", Type: "text/plain", Body: []byte("a")},
	)
	bad := testsupport.WriteEnvelope(t, cfg.Paths.SourceDir, "bad.xml",
		testsupport.Part{Filename: "a", Type: "text/plain", RawBody: "@@"},
	)
	h.Handle(context.Background(), good)
	h.Handle(context.Background(), bad)

	entries, err := store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", len(entries))
	}
	if entries[0].Path != bad || entries[0].Status != "failed" || entries[0].ErrorKind != "malformed_envelope" {
		t.Fatalf("unexpected failed entry: %+v", entries[0])
	}
	if entries[1].Path != good || entries[1].Status != "completed" || entries[1].Published != 1 || entries[1].Digest == "" {
		t.Fatalf("unexpected completed entry: %+v", entries[1])
	}
}

func TestClassify(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutDirectories())
	h := ingest.NewHandler(cfg, nil, logging.NewNop())

	tests := map[string]ingest.FileKind{
		"a.txt":     ingest.KindPlain,
		"a.xml":     ingest.KindEnvelope,
		"a.xml.txt": ingest.KindPlain,
		"a.txt.xml": ingest.KindEnvelope,
		"a.XML":     ingest.KindUnknown,
		"a":         ingest.KindUnknown,
	}
	for name, want := range tests {
		if got := h.Classify(name); got != want {
			t.Errorf("Classify(%q) = %s, want %s", name, got, want)
		}
	}
}

type recordingNotifier struct {
	mu    sync.Mutex
	paths []string
	kinds []string
}

func (n *recordingNotifier) NotifyFileFailed(_ context.Context, path, reason string, _ error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
	n.kinds = append(n.kinds, reason)
	return nil
}

func TestHandleNotifiesOnlyFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	notifier := &recordingNotifier{}
	h := ingest.NewHandler(cfg, nil, logging.NewNop(), ingest.WithNotifier(notifier))

	good := testsupport.WriteEnvelope(t, cfg.Paths.SourceDir, "good.xml",
		testsupport.Part{Filename: "a", Type: "text/plain", Body: []byte("ok")},
	)
	bad := testsupport.WriteEnvelope(t, cfg.Paths.SourceDir, "bad.xml",
		testsupport.Part{Filename: "b", Type: "text/plain", RawBody: "%%%"},
	)

	if out := h.Handle(context.Background(), good); out.Status != ingest.StatusCompleted {
		t.Fatalf("expected completed, got %s (%v)", out.Status, out.Err)
	}
	if out := h.Handle(context.Background(), bad); out.Status != ingest.StatusFailed {
		t.Fatalf("expected failed, got %s", out.Status)
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.paths) != 1 || notifier.paths[0] != bad {
		t.Fatalf("expected one notification for %s, got %v", bad, notifier.paths)
	}
	if notifier.kinds[0] != "malformed_envelope" {
		t.Fatalf("unexpected reason %q", notifier.kinds[0])
	}
}
