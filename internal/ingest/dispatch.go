package ingest

import (
	"context"
	"strings"
)

// FileKind is the closed set of file variants the handler recognizes.
type FileKind int

const (
	KindUnknown FileKind = iota
	KindPlain
	KindEnvelope
)

func (k FileKind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindEnvelope:
		return "envelope"
	default:
		return "unknown"
	}
}

type routeFunc func(h *Handler, ctx context.Context, path string, out *Outcome) error

type route struct {
	kind     FileKind
	suffixes []string
	run      routeFunc
}

// dispatchTable is consulted in order; the first suffix match wins.
type dispatchTable []route

func newDispatchTable(plain, envelope []string) dispatchTable {
	return dispatchTable{
		{kind: KindPlain, suffixes: plain, run: (*Handler).relocate},
		{kind: KindEnvelope, suffixes: envelope, run: (*Handler).ingestEnvelope},
	}
}

// match returns the route for name. Suffix comparison is case-sensitive.
func (t dispatchTable) match(name string) (route, bool) {
	for _, r := range t {
		for _, suffix := range r.suffixes {
			if suffix != "" && strings.HasSuffix(name, suffix) {
				return r, true
			}
		}
	}
	return route{}, false
}

// Classify returns the FileKind the handler would use for name.
func (h *Handler) Classify(name string) FileKind {
	r, ok := h.routes.match(name)
	if !ok {
		return KindUnknown
	}
	return r.kind
}
