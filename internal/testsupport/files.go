package testsupport

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Part describes one Part element for an envelope fixture. RawBody, when
// set, is written verbatim instead of the base64 encoding of Body.
type Part struct {
	ID       string
	Filename string
	Type     string
	Body     []byte
	RawBody  string
}

// EnvelopeXML renders parts as an envelope. wrapped places them inside a
// Parts container; otherwise they are direct children of the root.
func EnvelopeXML(wrapped bool, parts ...Part) string {
	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<Root>\n")
	if wrapped {
		b.WriteString("  <Parts>\n")
	}
	for _, p := range parts {
		if p.ID != "" {
			fmt.Fprintf(&b, "    <Part id=%q>\n", p.ID)
		} else {
			b.WriteString("    <Part>\n")
		}
		body := p.RawBody
		if body == "" {
			body = base64.StdEncoding.EncodeToString(p.Body)
		}
		fmt.Fprintf(&b, "      <Filename>%s</Filename>\n", p.Filename)
		fmt.Fprintf(&b, "      <Type>%s</Type>\n", p.Type)
		fmt.Fprintf(&b, "      <Body>%s</Body>\n", body)
		b.WriteString("    </Part>\n")
	}
	if wrapped {
		b.WriteString("  </Parts>\n")
	}
	b.WriteString("</Root>\n")
	return b.String()
}

// WriteEnvelope writes a wrapped envelope named name into dir and returns its path.
func WriteEnvelope(t testing.TB, dir, name string, parts ...Part) string {
	t.Helper()
	path := filepath.Join(dir, name)
	WriteFile(t, path, []byte(EnvelopeXML(true, parts...)))
	return path
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path string, content []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// ReadDirNames lists the regular files in dir, sorted.
func ReadDirNames(t testing.TB, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir %s: %v", dir, err)
	}
	var names []string
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			names = append(names, entry.Name())
		}
	}
	return names
}
