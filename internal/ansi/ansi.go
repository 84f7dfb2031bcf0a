// Package ansi parses SGR (Select Graphic Rendition) escape sequences
// embedded in ingested text into plain text plus display fragments, per
// spec.md §4.11. The contract is consumed by internal/render, which merges
// these fragments with match highlights using the rule in spec.md §3.
package ansi

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"sk/internal/render"
)

// Parse strips CSI "ESC [ ... m" SGR sequences from raw, returning the
// visible text plus the display fragments those sequences describe, as
// character (rune) offsets into that text. An unterminated sequence and
// everything after it are kept as literal text. Parse is applied when a
// record is displayed; field extraction (internal/field) runs earlier, on
// the raw line including any escape sequences.
func Parse(raw string) (plain string, fragments []render.Fragment) {
	var b strings.Builder
	var cur render.Attr
	fgSet, bgSet := false, false
	var fg, bg int32
	fragStart := 0

	flush := func(end int) {
		if end <= fragStart {
			return
		}
		if cur != 0 || fgSet || bgSet {
			fragments = append(fragments, render.Fragment{
				Attr: cur, FG: fg, BG: bg, HasFG: fgSet, HasBG: bgSet,
				Begin: fragStart, End: end,
			})
		}
		fragStart = end
	}

	i := 0
	for i < len(raw) {
		if raw[i] == 0x1b && i+1 < len(raw) && raw[i+1] == '[' {
			j := i + 2
			for j < len(raw) && raw[j] != 'm' {
				j++
			}
			if j >= len(raw) {
				b.WriteString(raw[i:])
				break // unterminated sequence: stop parsing, keep rest literal
			}
			flush(utf8.RuneCountInString(b.String()))
			applySGR(raw[i+2:j], &cur, &fg, &bg, &fgSet, &bgSet)
			i = j + 1
			continue
		}
		b.WriteByte(raw[i])
		i++
	}
	flush(utf8.RuneCountInString(b.String()))
	return b.String(), fragments
}

func applySGR(codes string, attr *render.Attr, fg, bg *int32, fgSet, bgSet *bool) {
	parts := strings.Split(codes, ";")
	for idx := 0; idx < len(parts); idx++ {
		n, err := strconv.Atoi(parts[idx])
		if err != nil {
			continue
		}
		switch {
		case n == 0:
			*attr = 0
			*fgSet, *bgSet = false, false
		case n == 1:
			*attr |= render.AttrBold
		case n == 3:
			*attr |= render.AttrItalic
		case n == 4:
			*attr |= render.AttrUnderline
		case n == 7:
			*attr |= render.AttrReverse
		case n == 39:
			*fgSet = false
		case n == 49:
			*bgSet = false
		case n >= 30 && n <= 37:
			*fg, *fgSet = int32(n-30), true
		case n >= 90 && n <= 97:
			*fg, *fgSet = int32(n-90+8), true
		case n >= 40 && n <= 47:
			*bg, *bgSet = int32(n-40), true
		case n >= 100 && n <= 107:
			*bg, *bgSet = int32(n-100+8), true
		case n == 38 || n == 48:
			isFg := n == 38
			if idx+1 >= len(parts) {
				break
			}
			mode, _ := strconv.Atoi(parts[idx+1])
			switch mode {
			case 5: // 256-color
				if idx+2 < len(parts) {
					v, _ := strconv.Atoi(parts[idx+2])
					if isFg {
						*fg, *fgSet = int32(v), true
					} else {
						*bg, *bgSet = int32(v), true
					}
				}
				idx += 2
			case 2: // truecolor
				if idx+4 < len(parts) {
					r, _ := strconv.Atoi(parts[idx+2])
					g, _ := strconv.Atoi(parts[idx+3])
					bch, _ := strconv.Atoi(parts[idx+4])
					packed := int32(r)<<16 | int32(g)<<8 | int32(bch) | render.TrueColorFlag
					if isFg {
						*fg, *fgSet = packed, true
					} else {
						*bg, *bgSet = packed, true
					}
				}
				idx += 4
			}
		}
	}
}
