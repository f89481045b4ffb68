package payload

import (
	"bytes"
	"testing"

	"xmlwatch/internal/envelope"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		typ  string
		want Kind
	}{
		{"text/plain", KindText},
		{"application/mytext", KindText},
		{"mytext", KindText},
		{"x-mytext-v2", KindText},
		{"Text/Plain", KindBinary},
		{"text/plain; charset=utf-8", KindBinary},
		{"MYTEXT", KindBinary},
		{"text/html", KindBinary},
		{"", KindBinary},
	}
	for _, tt := range tests {
		if got := Classify(tt.typ); got != tt.want {
			t.Errorf("Classify(%q) = %v, want %v", tt.typ, got, tt.want)
		}
	}
}

func TestKindSuffixesDiffer(t *testing.T) {
	if KindText.Suffix() == KindBinary.Suffix() {
		t.Fatal("text and binary suffixes must differ")
	}
	if KindText.String() != "text" || KindBinary.String() != "binary" {
		t.Fatalf("unexpected names: %s %s", KindText, KindBinary)
	}
}

func TestPrepareNormalizesTextOnly(t *testing.T) {
	raw := []byte("\n\n  \nHello\n\nWorld\n")

	got, kind := Prepare(envelope.Part{Type: "text/plain", Body: raw})
	if kind != KindText || string(got) != "Hello\n\nWorld" {
		t.Fatalf("text part: kind=%v body=%q", kind, got)
	}

	got, kind = Prepare(envelope.Part{Type: "application/octet-stream", Body: raw})
	if kind != KindBinary || !bytes.Equal(got, raw) {
		t.Fatalf("binary part: kind=%v body=%q", kind, got)
	}
}
