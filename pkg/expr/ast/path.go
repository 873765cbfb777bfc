package ast

import "strings"

// Path is an ordered sequence of field names addressing a value inside a
// document. Paths use dot notation in the surface syntax: doc.user.role
// parses to Path{"user", "role"}.
type Path []string

// ParsePath splits a dot-notation path string into its segments.
// The leading "doc" accessor marker must already be stripped.
func ParsePath(s string) Path {
	if s == "" {
		return nil
	}
	return Path(strings.Split(s, "."))
}

// String renders the path in dot notation.
func (p Path) String() string {
	return strings.Join(p, ".")
}

// Equal reports whether two paths are identical.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i, seg := range p {
		if seg != other[i] {
			return false
		}
	}
	return true
}

// Resolve looks up the path in a nested map document. The second return
// value reports whether every segment was present: a missing segment is
// not an error, it means the document is incomplete at this path.
func (p Path) Resolve(doc map[string]interface{}) (interface{}, bool) {
	if len(p) == 0 {
		return doc, true
	}
	var current interface{} = doc
	for _, seg := range p {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
