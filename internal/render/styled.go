// Package render implements the display-string data model (spec.md §3) and
// the terminal Renderer (C9, spec.md §4.9) that draws the query line,
// result list, and preview pane from a pure snapshot of Controller state.
package render

import "sort"

// Attr is a bitfield of text attributes, independent of color.
type Attr uint8

const (
	AttrBold Attr = 1 << iota
	AttrItalic
	AttrUnderline
	AttrReverse
)

// TrueColorFlag marks a packed FG/BG value as 24-bit RGB (R<<16|G<<8|B)
// rather than a 0-255 palette index.
const TrueColorFlag = int32(1 << 30)

// Fragment is one (attribute, [begin,end)) span over a Styled string's
// character positions, per spec.md §3's Display-string definition.
type Fragment struct {
	Attr        Attr
	FG, BG      int32
	HasFG, HasBG bool
	Begin, End  int
}

// Styled is a plain string plus a sorted, non-overlapping list of
// Fragments describing attributes over character ranges.
type Styled struct {
	Text      string
	Fragments []Fragment
}

// Plain wraps a plain string with no fragments.
func Plain(s string) Styled { return Styled{Text: s} }

// MergeFragments implements the fragment-merge rule from spec.md §3: newer
// fragments (overlay) override overlapping older ones (base); non-
// overlapping parts of base are preserved verbatim. Both inputs must
// already be sorted and non-overlapping within themselves.
func MergeFragments(base, overlay []Fragment) []Fragment {
	if len(overlay) == 0 {
		return base
	}
	if len(base) == 0 {
		return overlay
	}

	cuts := map[int]struct{}{}
	for _, f := range base {
		cuts[f.Begin] = struct{}{}
		cuts[f.End] = struct{}{}
	}
	for _, f := range overlay {
		cuts[f.Begin] = struct{}{}
		cuts[f.End] = struct{}{}
	}
	points := make([]int, 0, len(cuts))
	for p := range cuts {
		points = append(points, p)
	}
	sort.Ints(points)

	var out []Fragment
	for i := 0; i+1 < len(points); i++ {
		b, e := points[i], points[i+1]
		if ov, ok := findCovering(overlay, b); ok {
			out = append(out, Fragment{Attr: ov.Attr, FG: ov.FG, BG: ov.BG, HasFG: ov.HasFG, HasBG: ov.HasBG, Begin: b, End: e})
			continue
		}
		if bf, ok := findCovering(base, b); ok {
			out = append(out, Fragment{Attr: bf.Attr, FG: bf.FG, BG: bf.BG, HasFG: bf.HasFG, HasBG: bf.HasBG, Begin: b, End: e})
		}
	}
	return coalesce(out)
}

func findCovering(frags []Fragment, pos int) (Fragment, bool) {
	for _, f := range frags {
		if pos >= f.Begin && pos < f.End {
			return f, true
		}
	}
	return Fragment{}, false
}

func coalesce(frags []Fragment) []Fragment {
	if len(frags) == 0 {
		return nil
	}
	out := frags[:1]
	for _, f := range frags[1:] {
		last := &out[len(out)-1]
		if last.End == f.Begin && sameStyle(*last, f) {
			last.End = f.End
			continue
		}
		out = append(out, f)
	}
	return out
}

func sameStyle(a, b Fragment) bool {
	return a.Attr == b.Attr && a.FG == b.FG && a.BG == b.BG && a.HasFG == b.HasFG && a.HasBG == b.HasBG
}
