// Package header provides an ordered, case-insensitive header list and the
// denylists applied when relaying requests and responses.
package header

import (
	"net/http"
	"slices"
	"strings"
)

// Field is a single header line.
type Field struct {
	Name  string
	Value string
}

// List is an ordered sequence of header fields. Names compare
// case-insensitively and may repeat.
type List []Field

// FromHTTP converts an http.Header into a List. Keys are emitted in sorted
// order so the result is deterministic; values keep their original order.
func FromHTTP(h http.Header) List {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	l := make(List, 0, len(h))
	for _, k := range keys {
		for _, v := range h[k] {
			l = append(l, Field{Name: k, Value: v})
		}
	}
	return l
}

// Add appends a field.
func (l *List) Add(name, value string) {
	*l = append(*l, Field{Name: name, Value: value})
}

// Get returns the first value for name, or "".
func (l List) Get(name string) string {
	for _, f := range l {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}

// Values returns every value for name in order.
func (l List) Values(name string) []string {
	var out []string
	for _, f := range l {
		if strings.EqualFold(f.Name, name) {
			out = append(out, f.Value)
		}
	}
	return out
}

// Has reports whether name is present.
func (l List) Has(name string) bool {
	return slices.ContainsFunc(l, func(f Field) bool {
		return strings.EqualFold(f.Name, name)
	})
}

// Del removes every field named name.
func (l *List) Del(name string) {
	*l = slices.DeleteFunc(*l, func(f Field) bool {
		return strings.EqualFold(f.Name, name)
	})
}

// CopyTo adds every field to dst in order.
func (l List) CopyTo(dst http.Header) {
	for _, f := range l {
		dst.Add(f.Name, f.Value)
	}
}

// Denylist is a case-insensitive set of header names.
type Denylist map[string]struct{}

// NewDenylist builds a Denylist from names.
func NewDenylist(names ...string) Denylist {
	d := make(Denylist, len(names))
	for _, n := range names {
		d[strings.ToLower(n)] = struct{}{}
	}
	return d
}

// Contains reports whether name is denied.
func (d Denylist) Contains(name string) bool {
	_, ok := d[strings.ToLower(name)]
	return ok
}

// Filter returns a copy of l without the fields named in deny.
// l is left untouched.
func Filter(l List, deny Denylist) List {
	out := make(List, 0, len(l))
	for _, f := range l {
		if deny.Contains(f.Name) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// RequestDenylist holds inbound request headers that are never forwarded
// upstream. Content-Length is recomputed from the forwarded body.
var RequestDenylist = NewDenylist("Host", "Origin", "Referer", "Connection", "Content-Length")

// ResponseDenylist holds upstream response headers that are never relayed
// back to the caller.
var ResponseDenylist = NewDenylist("Content-Encoding", "Transfer-Encoding", "Connection")
