package main

import (
	"path/filepath"
	"strings"
	"testing"

	"xmlwatch/internal/ledger"
	"xmlwatch/internal/testsupport"
)

func TestHistoryRendersTable(t *testing.T) {
	env := setupCLITestEnv(t)
	for _, name := range []string{"one.txt", "two.txt"} {
		src := filepath.Join(env.cfg.Paths.SourceDir, name)
		testsupport.WriteFile(t, src, []byte(name))
		if _, _, err := runCLI(t, []string{"process", src}, env.configPath); err != nil {
			t.Fatalf("process %s: %v", name, err)
		}
	}

	out, _, err := runCLI(t, []string{"history", "--format", "table", "--limit", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "╭")
	requireContains(t, out, "STATUS")
	requireContains(t, out, "two.txt")
	if strings.Contains(out, "one.txt") {
		t.Fatalf("expected --limit 1 to show only the newest entry:\n%s", out)
	}
	requireContains(t, out, "Totals: completed=2")
}

func TestHistoryRejectsBadFlags(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"history", "--limit", "0"}, env.configPath); err == nil {
		t.Fatal("expected error for zero limit")
	}
	if _, _, err := runCLI(t, []string{"history", "--format", "yaml"}, env.configPath); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestWriteHistoryFormatsFailures(t *testing.T) {
	var b strings.Builder
	writeHistory(&b, "tsv", []ledger.Entry{{
		ID:        7,
		Path:      "/in/bad.xml",
		Kind:      "envelope",
		Status:    "failed",
		Parts:     3,
		Error:     "part 1: body is not valid base64",
		ErrorKind: "malformed_envelope",
	}})
	requireContains(t, b.String(), "7\t-\tfailed\tenvelope\t0/3\t0s\t/in/bad.xml\tmalformed_envelope: part 1: body is not valid base64")
}

func TestFormatCountsSortsStatuses(t *testing.T) {
	got := formatCounts(map[string]int{"ignored": 1, "completed": 4, "failed": 2})
	if got != "Totals: completed=4 failed=2 ignored=1" {
		t.Fatalf("unexpected counts %q", got)
	}
}
