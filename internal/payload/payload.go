// Package payload classifies decoded Parts and prepares the bytes to publish.
package payload

import (
	"strings"

	"xmlwatch/internal/envelope"
	"xmlwatch/internal/textutil"
)

// Kind is the classification of a Part payload.
type Kind int

const (
	KindBinary Kind = iota
	KindText
)

const (
	plainTextType = "text/plain"
	textMarker    = "mytext"
)

func (k Kind) String() string {
	if k == KindText {
		return "text"
	}
	return "binary"
}

// Suffix is the extension appended to published files of this kind.
func (k Kind) Suffix() string {
	if k == KindText {
		return ".txt"
	}
	return ".data"
}

// Classify returns KindText when typ is exactly "text/plain" or contains
// "mytext" (case-sensitive). Every other value, including empty, is binary.
func Classify(typ string) Kind {
	if typ == plainTextType || strings.Contains(typ, textMarker) {
		return KindText
	}
	return KindBinary
}

// Prepare classifies part and returns the bytes to publish. Text payloads are
// normalized; binary payloads are returned unchanged.
func Prepare(part envelope.Part) ([]byte, Kind) {
	kind := Classify(part.Type)
	if kind == KindText {
		return textutil.StripLeadingBlankLines(part.Body), kind
	}
	return part.Body, kind
}
