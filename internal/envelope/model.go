package envelope

import "fmt"

// Part is one decoded payload inside an envelope.
type Part struct {
	// ID is the optional id attribute. It is not guaranteed to be unique.
	ID       string
	Filename string
	Type     string
	// Body holds the base64-decoded bytes. Empty is valid.
	Body []byte
}

// Label identifies the part in log lines and errors.
func (p Part) Label() string {
	if p.ID != "" {
		return fmt.Sprintf("id=%s filename=%s", p.ID, p.Filename)
	}
	return "filename=" + p.Filename
}

// Document is the ordered set of Parts from one envelope, in source order.
type Document struct {
	Source string
	Parts  []Part
}

// Len returns the number of parts.
func (d *Document) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Parts)
}
