package envelope

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

const (
	partElement  = "Part"
	partsElement = "Parts"
)

// rawPart uses pointers so a missing child element can be told apart from an
// empty one.
type rawPart struct {
	ID       string  `xml:"id,attr"`
	Filename *string `xml:"Filename"`
	Type     *string `xml:"Type"`
	Body     *string `xml:"Body"`
}

// ParseFile reads and parses the envelope at path. The file is never modified.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read envelope %s: %w", path, err)
	}
	return ParseBytes(path, data)
}

// ParseBytes parses envelope bytes, attributing errors to source.
func ParseBytes(source string, data []byte) (*Document, error) {
	doc, err := Parse(bytes.NewReader(data))
	if err != nil {
		var me *MalformedError
		if errors.As(err, &me) {
			me.Path = source
		}
		return nil, err
	}
	doc.Source = source
	return doc, nil
}

// Parse decodes every Part element found under the root, at any depth, in
// document order. Elements nested inside a Part are not searched for further
// Parts. A root holding an empty Parts container yields an empty Document; a
// root with neither a Parts container nor any Part is rejected.
func Parse(r io.Reader) (*Document, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charsetReader
	doc := &Document{}
	depth := 0
	sawRoot := false
	sawParts := false

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, malformed("invalid xml", err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				if sawRoot {
					return nil, malformed("multiple root elements", nil)
				}
				sawRoot = true
				depth++
				continue
			}
			if el.Name.Local != partElement {
				if el.Name.Local == partsElement {
					sawParts = true
				}
				depth++
				continue
			}
			part, perr := decodePart(decoder, el, len(doc.Parts))
			if perr != nil {
				return nil, perr
			}
			doc.Parts = append(doc.Parts, part)
		case xml.EndElement:
			depth--
		case xml.CharData:
			if depth == 0 && len(bytes.TrimSpace(el)) > 0 {
				return nil, malformed("text outside root element", nil)
			}
		}
	}

	if !sawRoot {
		return nil, malformed("no root element", nil)
	}
	if !sawParts && len(doc.Parts) == 0 {
		return nil, malformed("no Parts container or Part elements", nil)
	}
	return doc, nil
}

// charsetReader converts envelopes that declare a non-UTF-8 encoding.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, fmt.Errorf("unknown charset %q: %w", label, err)
	}
	if enc == nil {
		if isASCIILabel(label) {
			return input, nil
		}
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}

func isASCIILabel(label string) bool {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "us-ascii", "ascii", "ansi_x3.4-1968", "iso646-us":
		return true
	}
	return false
}

func decodePart(decoder *xml.Decoder, start xml.StartElement, index int) (Part, error) {
	var raw rawPart
	if err := decoder.DecodeElement(&raw, &start); err != nil {
		return Part{}, &MalformedError{Index: index, Reason: "invalid part element", Err: err}
	}

	partErr := func(reason string, err error) error {
		filename := ""
		if raw.Filename != nil {
			filename = *raw.Filename
		}
		return &MalformedError{Index: index, PartID: raw.ID, Filename: filename, Reason: reason, Err: err}
	}

	switch {
	case raw.Filename == nil:
		return Part{}, partErr("missing Filename element", nil)
	case raw.Type == nil:
		return Part{}, partErr("missing Type element", nil)
	case raw.Body == nil:
		return Part{}, partErr("missing Body element", nil)
	}

	body, err := decodeBody(*raw.Body)
	if err != nil {
		return Part{}, partErr("body is not valid base64", err)
	}

	return Part{
		ID:       raw.ID,
		Filename: strings.TrimSpace(*raw.Filename),
		Type:     *raw.Type,
		Body:     body,
	}, nil
}

// decodeBody removes whitespace, including line wrapping, and decodes the
// remainder as padded standard base64.
func decodeBody(text string) ([]byte, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, text)
	if cleaned == "" {
		return []byte{}, nil
	}
	return base64.StdEncoding.DecodeString(cleaned)
}
