// Package selection implements cursor, viewport, and multi-select state
// over the Ranked Store (the "Selection State"), per spec.md §4.7. Grounded
// on the reference implementation's reserved-header/high-water-mark
// pre-selection idea in item.rs's ItemPool.
package selection

import "sk/internal/record"

// Key identifies a selected record stably across a run: (run, index),
// so selections made before a restart never collide with new records.
type Key = record.Ref

// Selector decides whether a freshly observed record should be
// auto-selected (pre-selection), e.g. from --pre-select-n/--pre-select-pat.
type Selector func(ref record.Ref, raw string) bool

// State holds the cursor, viewport, and selection set over a ranked list.
type State struct {
	itemCursor     int // top-of-viewport index into the Ranked Store
	lineCursor     int // 0-based offset within the viewport
	hscrollOffset  int
	viewportHeight int
	multiSelect    bool

	selected    map[Key]struct{}
	order       []Key // insertion order, for accept()
	selector    Selector
	highWater   int // records already offered to Selector, never re-offered
}

// New creates a State with the given viewport height and multi-select flag.
func New(viewportHeight int, multiSelect bool) *State {
	return &State{
		viewportHeight: viewportHeight,
		multiSelect:    multiSelect,
		selected:       make(map[Key]struct{}),
	}
}

// SetSelector installs a pre-selection predicate.
func (s *State) SetSelector(sel Selector) { s.selector = sel }

// ObserveNew runs the Selector over records newly appended since the last
// call, identified by their 0-based ingestion index range [from, to). Each
// record is checked at most once per run.
func (s *State) ObserveNew(from, to int, at func(i int) (record.Ref, string)) {
	if s.selector == nil {
		return
	}
	if from < s.highWater {
		from = s.highWater
	}
	for i := from; i < to; i++ {
		ref, raw := at(i)
		if s.selector(ref, raw) {
			s.toggleKey(ref)
		}
	}
	if to > s.highWater {
		s.highWater = to
	}
}

// Len is the number of ranked items currently visible, supplied by the
// caller (the Ranked Store's Len at the current epoch).
type Len = int

// MoveCursor moves by delta, clamped to [0, total), adjusting the viewport
// top so item_cursor + line_cursor stays in range.
func (s *State) MoveCursor(delta, total int) {
	if total == 0 {
		return
	}
	abs := s.itemCursor + s.lineCursor + delta
	if abs < 0 {
		abs = 0
	}
	if abs >= total {
		abs = total - 1
	}
	s.setAbsolute(abs, total)
}

func (s *State) setAbsolute(abs, total int) {
	height := s.viewportHeight
	if height <= 0 {
		height = 1
	}
	switch {
	case abs < s.itemCursor:
		s.itemCursor = abs
		s.lineCursor = 0
	case abs >= s.itemCursor+height:
		s.itemCursor = abs - height + 1
		s.lineCursor = height - 1
	default:
		s.lineCursor = abs - s.itemCursor
	}
	maxLine := height - 1
	if maxLine > total-1 {
		maxLine = total - 1
	}
	if s.lineCursor > maxLine {
		s.lineCursor = maxLine
	}
}

// PageDown/PageUp move by a full viewport height; HalfPage variants by half.
func (s *State) PageDown(total int)  { s.MoveCursor(s.viewportHeight, total) }
func (s *State) PageUp(total int)    { s.MoveCursor(-s.viewportHeight, total) }
func (s *State) HalfPageDown(total int) { s.MoveCursor(s.viewportHeight/2, total) }
func (s *State) HalfPageUp(total int)   { s.MoveCursor(-s.viewportHeight/2, total) }

// CurrentIndex returns the absolute ranked-store index currently under the
// cursor, or -1 if there are no items.
func (s *State) CurrentIndex(total int) int {
	if total == 0 {
		return -1
	}
	return s.itemCursor + s.lineCursor
}

// ClickToRow converts a screen row to a line offset, honoring the
// orientation (reverse layouts enumerate rows top-down instead of
// bottom-up); the Renderer supplies which.
func (s *State) ClickToRow(row int, reverse bool, total int) {
	height := s.viewportHeight
	line := row
	if !reverse {
		line = height - 1 - row
	}
	abs := s.itemCursor + line
	if abs < 0 || abs >= total {
		return
	}
	s.setAbsolute(abs, total)
}

// Scroll adjusts horizontal scroll by delta, clamped at 0.
func (s *State) Scroll(delta int) {
	s.hscrollOffset += delta
	if s.hscrollOffset < 0 {
		s.hscrollOffset = 0
	}
}

func (s *State) HScroll() int { return s.hscrollOffset }

// Toggle flips the selection state of the record currently under the
// cursor. With multi-select disabled, the selection is replaced by ref
// alone, even if ref was already selected.
func (s *State) Toggle(ref record.Ref) {
	if !s.multiSelect {
		s.selected = make(map[Key]struct{})
		s.order = nil
		s.selected[ref] = struct{}{}
		s.order = append(s.order, ref)
		return
	}
	s.toggleKey(ref)
}

func (s *State) toggleKey(ref record.Ref) {
	if _, ok := s.selected[ref]; ok {
		delete(s.selected, ref)
		for i, k := range s.order {
			if k == ref {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
		return
	}
	s.selected[ref] = struct{}{}
	s.order = append(s.order, ref)
}

// ToggleAll toggles every currently ranked record, given by the caller as
// a list of refs.
func (s *State) ToggleAll(refs []record.Ref) {
	if !s.multiSelect {
		return
	}
	for _, ref := range refs {
		s.toggleKey(ref)
	}
}

// SelectAll adds every given record to the selection.
func (s *State) SelectAll(refs []record.Ref) {
	if !s.multiSelect {
		return
	}
	for _, ref := range refs {
		if _, ok := s.selected[ref]; !ok {
			s.selected[ref] = struct{}{}
			s.order = append(s.order, ref)
		}
	}
}

// DeselectAll clears the selection set.
func (s *State) DeselectAll() {
	s.selected = make(map[Key]struct{})
	s.order = nil
}

// Selected returns the selection in insertion order. Selected keys may
// reference records that no longer rank; callers resolve them separately.
func (s *State) Selected() []Key {
	out := make([]Key, len(s.order))
	copy(out, s.order)
	return out
}

func (s *State) IsSelected(ref record.Ref) bool {
	_, ok := s.selected[ref]
	return ok
}

func (s *State) SelectedCount() int { return len(s.order) }
