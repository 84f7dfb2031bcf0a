// Package queryedit implements the query edit buffer with cursor, word
// motions, yank, and history navigation (the "Query Model", C10), per
// spec.md §4.10.
package queryedit

import "unicode"

// Buffer is a (before_cursor, after_cursor) split representation so that
// insertion/deletion at the cursor is O(1) (amortized, given slice growth).
type Buffer struct {
	before []rune
	after  []rune
	yank   *string // shared yank register, set via New

	older []string
	newer []string
}

// New creates an empty Buffer sharing the given yank register pointer
// (pass the same pointer to both the fuzzy-query and command-query
// buffers so kills/yanks move between them, per spec.md §4.10).
func New(yank *string) *Buffer {
	return &Buffer{yank: yank}
}

// Text returns the full buffer contents.
func (b *Buffer) Text() string { return string(b.before) + string(b.after) }

// CursorPos returns the cursor's rune offset.
func (b *Buffer) CursorPos() int { return len(b.before) }

// SetText replaces the buffer contents, placing the cursor at the end.
func (b *Buffer) SetText(s string) {
	b.before = []rune(s)
	b.after = nil
}

// InsertRune inserts one rune at the cursor.
func (b *Buffer) InsertRune(r rune) {
	b.before = append(b.before, r)
}

// InsertString inserts text at the cursor.
func (b *Buffer) InsertString(s string) {
	b.before = append(b.before, []rune(s)...)
}

// DeleteBackward removes the rune before the cursor, if any.
func (b *Buffer) DeleteBackward() {
	if len(b.before) == 0 {
		return
	}
	b.before = b.before[:len(b.before)-1]
}

// DeleteForward removes the rune after the cursor, if any.
func (b *Buffer) DeleteForward() {
	if len(b.after) == 0 {
		return
	}
	b.after = b.after[1:]
}

// MoveLeft/MoveRight move the cursor by one rune, clamped to bounds.
func (b *Buffer) MoveLeft() {
	if len(b.before) == 0 {
		return
	}
	n := len(b.before)
	b.after = append([]rune{b.before[n-1]}, b.after...)
	b.before = b.before[:n-1]
}

func (b *Buffer) MoveRight() {
	if len(b.after) == 0 {
		return
	}
	b.before = append(b.before, b.after[0])
	b.after = b.after[1:]
}

// Home/End move the cursor to the start/end of the buffer.
func (b *Buffer) Home() {
	b.after = append(b.before, b.after...)
	b.before = nil
}

func (b *Buffer) End() {
	b.before = append(b.before, b.after...)
	b.after = nil
}

func isWordRune(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }

// WordBackward moves the cursor to the start of the previous alphanumeric
// word.
func (b *Buffer) WordBackward() {
	i := len(b.before)
	for i > 0 && !isWordRune(b.before[i-1]) {
		i--
	}
	for i > 0 && isWordRune(b.before[i-1]) {
		i--
	}
	for len(b.before) > i {
		b.MoveLeft()
	}
}

// WordForward moves the cursor to the end of the next alphanumeric word.
func (b *Buffer) WordForward() {
	i := 0
	for i < len(b.after) && !isWordRune(b.after[i]) {
		i++
	}
	for i < len(b.after) && isWordRune(b.after[i]) {
		i++
	}
	for i > 0 {
		b.MoveRight()
		i--
	}
}

// KillWordBackward deletes the previous alphanumeric word into the yank
// register.
func (b *Buffer) KillWordBackward() {
	start := len(b.before)
	i := start
	for i > 0 && !isWordRune(b.before[i-1]) {
		i--
	}
	for i > 0 && isWordRune(b.before[i-1]) {
		i--
	}
	killed := string(b.before[i:start])
	b.before = b.before[:i]
	if b.yank != nil {
		*b.yank = killed
	}
}

// KillLine deletes from the cursor to the end of the buffer into the yank
// register.
func (b *Buffer) KillLine() {
	killed := string(b.after)
	b.after = nil
	if b.yank != nil {
		*b.yank = killed
	}
}

// Yank inserts the yank register's contents at the cursor.
func (b *Buffer) Yank() {
	if b.yank == nil || *b.yank == "" {
		return
	}
	b.InsertString(*b.yank)
}

// Commit pushes the current text onto the older-history list and clears
// the newer-history list, per spec.md §4.10.
func (b *Buffer) Commit() {
	b.older = append(b.older, b.Text())
	b.newer = nil
}

// HistoryPrev navigates to the previous (older) history entry, pushing the
// current text onto newer so Next can return.
func (b *Buffer) HistoryPrev() {
	if len(b.older) == 0 {
		return
	}
	b.newer = append(b.newer, b.Text())
	last := b.older[len(b.older)-1]
	b.older = b.older[:len(b.older)-1]
	b.SetText(last)
}

// HistoryNext navigates to the next (newer) history entry.
func (b *Buffer) HistoryNext() {
	if len(b.newer) == 0 {
		return
	}
	b.older = append(b.older, b.Text())
	last := b.newer[len(b.newer)-1]
	b.newer = b.newer[:len(b.newer)-1]
	b.SetText(last)
}

// SeedHistory loads prior entries (oldest first) as the "older" stack.
func (b *Buffer) SeedHistory(entries []string) {
	b.older = append([]string(nil), entries...)
}
