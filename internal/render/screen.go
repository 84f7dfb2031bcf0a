// This file implements the terminal drawing half of the Renderer (C9),
// layered over the Styled/Fragment data model in styled.go. Grounded on the
// teacher's tcell-free code having no terminal UI precedent in-pack; the
// screen abstraction itself follows the example pack's tcell-based TUI
// usage pattern (event polling goroutine feeding a channel, a single
// Draw-from-snapshot call per frame) rather than any stdlib approach, since
// the terminal control concern belongs to tcell, not to hand-rolled ANSI
// writes.
package render

import (
	"context"
	"time"

	"github.com/gdamore/tcell/v2"
	runewidth "github.com/mattn/go-runewidth"

	"sk/internal/keymap"
	"sk/internal/theme"
)

// Event is anything the Screen delivers to the Controller: a key press, a
// resize, a mouse action, or a periodic redraw tick.
type Event interface{ isEvent() }

type KeyEvent struct {
	Key  keymap.Key
	Rune rune
}

type ResizeEvent struct{ Width, Height int }

type MouseEvent struct {
	Row, Col int
	Click    bool
	WheelUp  bool
	WheelDown bool
}

type TickEvent struct{}

func (KeyEvent) isEvent()    {}
func (ResizeEvent) isEvent() {}
func (MouseEvent) isEvent()  {}
func (TickEvent) isEvent()   {}

// Screen owns the terminal and draws one Snapshot per frame.
type Screen struct {
	tscreen tcell.Screen
	theme   theme.Theme
	tabstop int
}

// NewScreen initializes a tcell screen in the current terminal.
func NewScreen(th theme.Theme, tabstop int) (*Screen, error) {
	ts, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := ts.Init(); err != nil {
		return nil, err
	}
	ts.EnableMouse()
	if tabstop <= 0 {
		tabstop = 8
	}
	return &Screen{tscreen: ts, theme: th, tabstop: tabstop}, nil
}

// Close restores the terminal.
func (s *Screen) Close() { s.tscreen.Fini() }

// Size returns the current terminal dimensions.
func (s *Screen) Size() (int, int) { return s.tscreen.Size() }

// PollEvents starts a goroutine translating tcell events (plus a periodic
// tick for redraw coalescing) into Events on the returned channel. The
// channel is closed when ctx is canceled.
func (s *Screen) PollEvents(ctx context.Context, tick time.Duration) <-chan Event {
	out := make(chan Event, 16)
	if tick <= 0 {
		tick = 200 * time.Millisecond
	}

	go func() {
		defer close(out)
		ticker := time.NewTicker(tick)
		defer ticker.Stop()
		tcellEvents := make(chan tcell.Event, 16)
		go func() {
			for {
				ev := s.tscreen.PollEvent()
				if ev == nil {
					return
				}
				select {
				case tcellEvents <- ev:
				case <-ctx.Done():
					return
				}
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				select {
				case out <- TickEvent{}:
				case <-ctx.Done():
					return
				}
			case ev := <-tcellEvents:
				translated, ok := translateEvent(ev)
				if !ok {
					continue
				}
				select {
				case out <- translated:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func translateEvent(ev tcell.Event) (Event, bool) {
	switch e := ev.(type) {
	case *tcell.EventKey:
		return KeyEvent{Key: keyFromTcell(e), Rune: e.Rune()}, true
	case *tcell.EventResize:
		w, h := e.Size()
		return ResizeEvent{Width: w, Height: h}, true
	case *tcell.EventMouse:
		col, row := e.Position()
		btn := e.Buttons()
		return MouseEvent{
			Row: row, Col: col,
			Click:     btn&tcell.Button1 != 0,
			WheelUp:   btn&tcell.WheelUp != 0,
			WheelDown: btn&tcell.WheelDown != 0,
		}, true
	}
	return nil, false
}

var namedTcellKeys = map[tcell.Key]string{
	tcell.KeyUp: "up", tcell.KeyDown: "down", tcell.KeyLeft: "left", tcell.KeyRight: "right",
	tcell.KeyEnter: "enter", tcell.KeyEscape: "esc", tcell.KeyTab: "tab", tcell.KeyBacktab: "btab",
	tcell.KeyBackspace: "backspace", tcell.KeyBackspace2: "backspace", tcell.KeyDelete: "delete",
	tcell.KeyHome: "home", tcell.KeyEnd: "end", tcell.KeyPgUp: "pgup", tcell.KeyPgDn: "pgdn",
	tcell.KeyF1: "f1", tcell.KeyF2: "f2", tcell.KeyF3: "f3", tcell.KeyF4: "f4",
	tcell.KeyF5: "f5", tcell.KeyF6: "f6", tcell.KeyF7: "f7", tcell.KeyF8: "f8",
	tcell.KeyF9: "f9", tcell.KeyF10: "f10", tcell.KeyF11: "f11", tcell.KeyF12: "f12",
	tcell.KeyCtrlA: "ctrl-a", tcell.KeyCtrlB: "ctrl-b", tcell.KeyCtrlC: "ctrl-c",
	tcell.KeyCtrlD: "ctrl-d", tcell.KeyCtrlE: "ctrl-e", tcell.KeyCtrlF: "ctrl-f",
	tcell.KeyCtrlG: "ctrl-g", tcell.KeyCtrlJ: "ctrl-j",
	tcell.KeyCtrlK: "ctrl-k", tcell.KeyCtrlL: "ctrl-l", tcell.KeyCtrlN: "ctrl-n",
	tcell.KeyCtrlO: "ctrl-o", tcell.KeyCtrlP: "ctrl-p", tcell.KeyCtrlQ: "ctrl-q",
	tcell.KeyCtrlR: "ctrl-r", tcell.KeyCtrlS: "ctrl-s", tcell.KeyCtrlT: "ctrl-t",
	tcell.KeyCtrlU: "ctrl-u", tcell.KeyCtrlV: "ctrl-v", tcell.KeyCtrlW: "ctrl-w",
	tcell.KeyCtrlX: "ctrl-x", tcell.KeyCtrlY: "ctrl-y", tcell.KeyCtrlZ: "ctrl-z",
}

func keyFromTcell(e *tcell.EventKey) keymap.Key {
	if e.Key() == tcell.KeyRune {
		return keymap.Key{Rune: e.Rune()}
	}
	if name, ok := namedTcellKeys[e.Key()]; ok {
		return keymap.Key{Name: name}
	}
	return keymap.Key{Name: "unknown"}
}

// Row is one line of the results list to draw.
type Row struct {
	Line     Styled
	Selected bool
	Cursor   bool
}

// PreviewPane is the optional preview content to draw alongside the list.
type PreviewPane struct {
	Lines []string
	Title string
}

// Snapshot is the pure, immutable data one frame is drawn from. The
// Renderer never reaches back into Controller state; the caller builds a
// fresh Snapshot each frame.
type Snapshot struct {
	Prompt       string
	Query        string
	QueryCursor  int
	Info         string // e.g. "12/345"
	Rows         []Row
	CursorRow    int // index into Rows currently under the cursor
	Reverse      bool // layout grows downward from the top instead of upward from the bottom
	HScroll      int
	Preview      *PreviewPane
	PreviewRight bool // preview pane on the right instead of below
}

// Draw renders one frame from snap. Must be called from a single
// goroutine (the Controller's event loop).
func (s *Screen) Draw(snap Snapshot) {
	s.tscreen.Clear()
	width, height := s.tscreen.Size()
	if width <= 0 || height <= 0 {
		s.tscreen.Show()
		return
	}

	listWidth := width
	previewWidth := 0
	if snap.Preview != nil && snap.PreviewRight {
		previewWidth = width / 2
		listWidth = width - previewWidth - 1
	}

	listHeight := height - 1 // reserve the query line
	previewTop := 0
	if snap.Preview != nil && !snap.PreviewRight {
		previewTop = height / 2
		listHeight = previewTop - 1
	}

	queryRow := 0
	listTop := 1
	if snap.Reverse {
		queryRow = 0
		listTop = 1
	} else {
		queryRow = height - 1
		listTop = 0
	}

	s.drawQueryLine(0, queryRow, listWidth, snap)
	s.drawList(listTop, listHeight, listWidth, snap)
	if snap.Preview != nil {
		if snap.PreviewRight {
			s.drawPreview(listWidth+1, 0, previewWidth, height-1, snap.Preview)
		} else {
			s.drawPreview(0, previewTop, width, height-previewTop-1, snap.Preview)
		}
	}
	s.tscreen.Show()
}

func (s *Screen) drawQueryLine(x, y, width int, snap Snapshot) {
	style := s.styleFor(theme.RolePrompt, nil)
	col := x
	col = s.putString(col, y, width, snap.Prompt, style)
	queryStyle := s.styleFor(theme.RoleFG, nil)
	s.putString(col, y, width-(col-x), snap.Query, queryStyle)
	cursorCol := col + runewidth.StringWidth(truncateRunes(snap.Query, snap.QueryCursor))
	s.tscreen.ShowCursor(cursorCol, y)
	if snap.Info != "" {
		infoStyle := s.styleFor(theme.RoleInfo, nil)
		infoCol := x + width - runewidth.StringWidth(snap.Info)
		if infoCol > col {
			s.putString(infoCol, y, width, "  "+snap.Info, infoStyle)
		}
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if n > len(r) {
		n = len(r)
	}
	return string(r[:n])
}

func (s *Screen) drawList(top, height, width int, snap Snapshot) {
	if height <= 0 {
		return
	}
	for i := 0; i < height; i++ {
		rowIdx := i
		if !snap.Reverse {
			rowIdx = height - 1 - i
		}
		y := top + i
		if rowIdx >= len(snap.Rows) {
			continue
		}
		row := snap.Rows[rowIdx]
		marker := "  "
		if row.Cursor {
			marker = "> "
		}
		if row.Selected {
			marker = marker[:1] + ">"
		}
		markerStyle := s.styleFor(theme.RoleFG, nil)
		if row.Cursor {
			markerStyle = s.styleFor(theme.RoleCursor, nil)
		}
		col := s.putString(0, y, width, marker, markerStyle)
		s.drawStyled(col, y, width-col, snap.HScroll, row.Line, row.Cursor)
	}
}

func (s *Screen) drawStyled(x, y, width, hscroll int, line Styled, cursor bool) {
	runes := []rune(line.Text)
	base := theme.RoleFG
	baseBG := theme.RoleBG
	if cursor {
		base = theme.RoleCurrent
		baseBG = theme.RoleCurrentBG
	}
	col := x
	for i := hscroll; i < len(runes) && col < x+width; i++ {
		r := runes[i]
		var fragPtr *Fragment
		if f, ok := findCovering(line.Fragments, i); ok {
			fragPtr = &f
		}
		style := s.styleForPair(base, baseBG, fragPtr)
		if r == '\t' {
			next := ((col-x)/s.tabstop + 1) * s.tabstop
			for ; col-x < next && col < x+width; col++ {
				s.tscreen.SetContent(col, y, ' ', nil, style)
			}
			continue
		}
		s.tscreen.SetContent(col, y, r, nil, style)
		col += runewidth.RuneWidth(r)
	}
}

func (s *Screen) drawPreview(x, y, width, height int, p *PreviewPane) {
	if height <= 0 || width <= 0 {
		return
	}
	style := s.styleFor(theme.RolePreviewFG, nil)
	for i := 0; i < height && i < len(p.Lines); i++ {
		s.putString(x, y+i, width, p.Lines[i], style)
	}
}

func (s *Screen) putString(x, y, maxWidth int, text string, style tcell.Style) int {
	col := x
	for _, r := range text {
		if col-x >= maxWidth {
			break
		}
		if r == '\t' {
			r = ' '
		}
		s.tscreen.SetContent(col, y, r, nil, style)
		col += runewidth.RuneWidth(r)
	}
	return col
}

func (s *Screen) styleFor(role theme.Role, frag *Fragment) tcell.Style {
	style := tcell.StyleDefault
	if c := s.theme.Get(role); !c.IsDefault {
		style = style.Foreground(tcellColor(c))
	}
	return applyFragmentAttrs(style, frag)
}

func (s *Screen) styleForPair(fgRole, bgRole theme.Role, frag *Fragment) tcell.Style {
	style := tcell.StyleDefault
	if c := s.theme.Get(fgRole); !c.IsDefault {
		style = style.Foreground(tcellColor(c))
	}
	if c := s.theme.Get(bgRole); !c.IsDefault {
		style = style.Background(tcellColor(c))
	}
	return applyFragmentAttrs(style, frag)
}

func applyFragmentAttrs(style tcell.Style, frag *Fragment) tcell.Style {
	if frag == nil {
		return style
	}
	if frag.HasFG {
		style = style.Foreground(tcellPackedColor(frag.FG))
	}
	if frag.HasBG {
		style = style.Background(tcellPackedColor(frag.BG))
	}
	if frag.Attr&AttrBold != 0 {
		style = style.Bold(true)
	}
	if frag.Attr&AttrItalic != 0 {
		style = style.Italic(true)
	}
	if frag.Attr&AttrUnderline != 0 {
		style = style.Underline(true)
	}
	if frag.Attr&AttrReverse != 0 {
		style = style.Reverse(true)
	}
	return style
}

func tcellColor(c theme.Color) tcell.Color {
	if c.IsDefault {
		return tcell.ColorDefault
	}
	if c.HasRGB {
		return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
	}
	return tcell.PaletteColor(int(c.Index))
}

func tcellPackedColor(packed int32) tcell.Color {
	if packed&TrueColorFlag != 0 {
		v := packed &^ TrueColorFlag
		r := int32((v >> 16) & 0xff)
		g := int32((v >> 8) & 0xff)
		b := int32(v & 0xff)
		return tcell.NewRGBColor(r, g, b)
	}
	return tcell.PaletteColor(int(packed))
}
