// Package field parses field-range specs and extracts matching/display
// slices from a delimited record, following the range grammar and
// half-open byte-range translation of the reference implementation's
// field module.
package field

import (
	"regexp"
	"strconv"
	"strings"
)

// Range is one parsed field-range term: n, n..m, ..m, n.., or .. (whole
// record). Bounds are 1-based as written; negative values count from the
// end (-1 is last).
type Range struct {
	left     int  // 1-based or negative; 0 means "unset" (left-infinite)
	right    int  // 1-based or negative; 0 means "unset" (right-infinite)
	hasLeft  bool
	hasRight bool
	hasSep   bool // ".." was present; false means a bare single index
}

var rangeRE = regexp.MustCompile(`^(-?\d+)?(\.\.)?(-?\d+)?$`)

// Parse parses one range term such as "2", "2..3", "..3", "2..", or "..".
func Parse(s string) (Range, bool) {
	m := rangeRE.FindStringSubmatch(s)
	if m == nil {
		return Range{}, false
	}
	leftStr, sep, rightStr := m[1], m[2], m[3]
	if leftStr == "" && sep == "" && rightStr == "" {
		return Range{}, false
	}
	var r Range
	r.hasSep = sep != ""
	if leftStr != "" {
		n, err := strconv.Atoi(leftStr)
		if err != nil {
			return Range{}, false
		}
		r.left, r.hasLeft = n, true
	}
	if rightStr != "" {
		n, err := strconv.Atoi(rightStr)
		if err != nil {
			return Range{}, false
		}
		r.right, r.hasRight = n, true
	}
	if !r.hasSep && !r.hasLeft {
		return Range{}, false
	}
	return r, true
}

// translateIndex converts a 1-based (possibly negative) index into a
// 0-based offset within a sequence of the given length. The result is not
// clamped: callers check it against [0, length) themselves.
func translateIndex(idx, length int) int {
	if idx > 0 {
		return idx - 1
	}
	if idx < 0 {
		return length + idx
	}
	return 0
}

// Bounds translates the Range into a half-open [begin, end) pair over a
// sequence of `length` elements (e.g. fields). Out-of-range results
// produce an empty (begin==end) slice.
func (r Range) Bounds(length int) (begin, end int) {
	switch {
	case !r.hasSep: // single index
		i := translateIndex(r.left, length)
		if i < 0 || i >= length {
			return 0, 0
		}
		return i, i + 1
	case r.hasLeft && r.hasRight: // n..m inclusive
		b := translateIndex(r.left, length)
		e := translateIndex(r.right, length) + 1
		return clampRange(b, e, length)
	case r.hasLeft: // n..
		b := translateIndex(r.left, length)
		return clampRange(b, length, length)
	case r.hasRight: // ..m
		e := translateIndex(r.right, length) + 1
		return clampRange(0, e, length)
	default: // ".."  whole record
		return 0, length
	}
}

func clampRange(b, e, length int) (int, int) {
	if b < 0 {
		b = 0
	}
	if e > length {
		e = length
	}
	if b >= e || b >= length {
		return 0, 0
	}
	return b, e
}

// Spec is an ordered list of Ranges (as produced by --nth/--with-nth,
// comma-separated).
type Spec []Range

// ParseSpec parses a comma-separated list of range terms.
func ParseSpec(s string) (Spec, bool) {
	if s == "" {
		return nil, true
	}
	parts := strings.Split(s, ",")
	spec := make(Spec, 0, len(parts))
	for _, p := range parts {
		r, ok := Parse(strings.TrimSpace(p))
		if !ok {
			return nil, false
		}
		spec = append(spec, r)
	}
	return spec, true
}

// Splitter splits a record into fields on a delimiter regex and extracts
// byte ranges or transformed text per a Spec. Delimiters are retained as a
// prefix of each field except the first, so rejoining fields is lossless.
type Splitter struct {
	delim *regexp.Regexp
	spec  Spec
}

// NewSplitter builds a Splitter. A nil delim means no splitting: the whole
// record is field 1. An empty spec is a no-op: it matches/displays the
// full text.
func NewSplitter(delim *regexp.Regexp, spec Spec) *Splitter {
	return &Splitter{delim: delim, spec: spec}
}

// fieldRange is a [begin,end) byte range of one field within the record,
// including its leading delimiter (except the first field).
type fieldRange struct{ begin, end int }

func (s *Splitter) splitFields(text string) []fieldRange {
	if s.delim == nil {
		return []fieldRange{{0, len(text)}}
	}
	locs := s.delim.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return []fieldRange{{0, len(text)}}
	}
	var fields []fieldRange
	start := 0
	for _, loc := range locs {
		fields = append(fields, fieldRange{start, loc[0]})
		start = loc[0]
	}
	fields = append(fields, fieldRange{start, len(text)})
	return fields
}

// Ranges returns the byte ranges over `text` selected by the Spec, in spec
// order, used for matching. An empty Spec selects the whole text.
func (s *Splitter) Ranges(text string) [][2]int {
	if len(s.spec) == 0 {
		return [][2]int{{0, len(text)}}
	}
	fields := s.splitFields(text)
	var out [][2]int
	for _, r := range s.spec {
		b, e := r.Bounds(len(fields))
		for i := b; i < e; i++ {
			out = append(out, [2]int{fields[i].begin, fields[i].end})
		}
	}
	return out
}

// Transform returns the concatenation of the selected fields' text: used
// for the rendered display when --with-nth is set, or for the text fed to
// the match engine when --nth is set. An empty Spec returns text unchanged.
func (s *Splitter) Transform(text string) string {
	if len(s.spec) == 0 {
		return text
	}
	var b strings.Builder
	for _, rg := range s.Ranges(text) {
		b.WriteString(text[rg[0]:rg[1]])
	}
	return b.String()
}
