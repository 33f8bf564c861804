package layout

import (
	"strings"
	"unicode/utf8"

	runewidth "github.com/mattn/go-runewidth"
	"github.com/micro-editor/tcell/v2"

	"github.com/ellery/scribe/internal/config"
	"github.com/ellery/scribe/internal/pane"
	"github.com/ellery/scribe/internal/signal"
)

const tabWidth = 4

// Text is the editing surface of a document. *document.Buffer implements
// it.
type Text interface {
	Text() string
	Cursor() int
	SetCursor(offset int)
	Insert(offset int, s string)
	Delete(offset, n int)
	CursorLineColumn() (int, int)
	GotoLine(line, column int) bool
}

// TextView draws a document and edits it from key events. It is the view
// a tab drives.
type TextView struct {
	buf Text

	editable      bool
	cursorVisible bool
	highlight     bool
	visible       bool
	busy          bool
	focused       bool

	// first line and column on screen
	top  int
	left int
	// lines of the last render, for paging
	height int

	dropped signal.Signal[[]string]
}

// NewTextView returns a visible, editable view of buf
func NewTextView(buf Text) *TextView {
	return &TextView{
		buf:           buf,
		editable:      true,
		cursorVisible: true,
		visible:       true,
	}
}

func (v *TextView) SetEditable(editable bool)             { v.editable = editable }
func (v *TextView) SetCursorVisible(visible bool)         { v.cursorVisible = visible }
func (v *TextView) SetHighlightCurrentLine(hl bool)       { v.highlight = hl }
func (v *TextView) SetVisible(visible bool)               { v.visible = visible }
func (v *TextView) SetBusy(busy bool)                     { v.busy = busy }
func (v *TextView) GrabFocus()                            { v.focused = true }
func (v *TextView) DroppedURIs() *signal.Signal[[]string] { return &v.dropped }

func (v *TextView) Editable() bool { return v.editable }
func (v *TextView) Visible() bool  { return v.visible }
func (v *TextView) Busy() bool     { return v.busy }

// Focused reports whether the view holds the keyboard focus
func (v *TextView) Focused() bool { return v.focused }

// SetFocused is used by the layout when the active tab changes
func (v *TextView) SetFocused(focused bool) { v.focused = focused }

// Drop reports locations dropped or pasted onto the view
func (v *TextView) Drop(uris []string) {
	if len(uris) > 0 {
		v.dropped.Emit(uris)
	}
}

// ScrollToCursor moves the cursor line to the middle of the last
// rendered height
func (v *TextView) ScrollToCursor() {
	line, _ := v.buf.CursorLineColumn()
	v.top = line - 1 - v.height/2
	if v.top < 0 {
		v.top = 0
	}
}

// Top is the first line on screen, 0-based
func (v *TextView) Top() int { return v.top }

// keepCursorVisible scrolls just enough to show the cursor in a w by h
// region
func (v *TextView) keepCursorVisible(lines []string, w, h int) {
	line, col := v.buf.CursorLineColumn()
	row := line - 1
	if row < v.top {
		v.top = row
	} else if h > 0 && row >= v.top+h {
		v.top = row - h + 1
	}
	x := 0
	if row < len(lines) {
		x = visualColumn(lines[row], col-1)
	}
	if x < v.left {
		v.left = x
	} else if w > 0 && x >= v.left+w {
		v.left = x - w + 1
	}
}

// visualColumn is the screen column of rune index col in line
func visualColumn(line string, col int) int {
	x := 0
	i := 0
	for _, r := range line {
		if i == col {
			break
		}
		x += cellWidth(r, x)
		i++
	}
	return x
}

func cellWidth(r rune, x int) int {
	if r == '\t' {
		return tabWidth - x%tabWidth
	}
	return runewidth.RuneWidth(r)
}

// Render draws the view into r
func (v *TextView) Render(screen tcell.Screen, r pane.Rect) {
	base := config.DefStyle
	fill(screen, r, base)
	v.height = r.H
	if !v.visible || r.W <= 0 || r.H <= 0 {
		return
	}

	lines := strings.Split(v.buf.Text(), "\n")
	if v.cursorVisible {
		v.keepCursorVisible(lines, r.W, r.H)
	}
	textStyle := base
	if v.busy {
		textStyle = config.GetColor("busy")
	}
	curLine, curCol := v.buf.CursorLineColumn()

	for row := 0; row < r.H; row++ {
		idx := v.top + row
		if idx >= len(lines) {
			break
		}
		y := r.Y + row
		style := textStyle
		if v.highlight && idx == curLine-1 {
			style = config.GetColor("current-line")
			fill(screen, pane.Rect{X: r.X, Y: y, W: r.W, H: 1}, style)
		}
		x := 0
		for _, ch := range lines[idx] {
			w := cellWidth(ch, x)
			if x-v.left >= r.W {
				break
			}
			if x >= v.left && w > 0 {
				if ch == '\t' {
					ch = ' '
				}
				screen.SetContent(r.X+x-v.left, y, ch, nil, style)
			}
			x += w
		}
	}

	if v.cursorVisible && v.focused && !v.busy {
		row := curLine - 1 - v.top
		col := 0
		if curLine-1 < len(lines) {
			col = visualColumn(lines[curLine-1], curCol-1) - v.left
		}
		if row >= 0 && row < r.H && col >= 0 && col < r.W {
			screen.ShowCursor(r.X+col, r.Y+row)
		}
	}
}

// HandleEvent moves the cursor and, when the view is editable, edits the
// text. It returns true if the event was consumed.
func (v *TextView) HandleEvent(event tcell.Event) bool {
	ev, ok := event.(*tcell.EventKey)
	if !ok || !v.visible || v.busy {
		return false
	}
	cur := v.buf.Cursor()
	line, col := v.buf.CursorLineColumn()

	switch ev.Key() {
	case tcell.KeyLeft:
		v.buf.SetCursor(cur - 1)
		return true
	case tcell.KeyRight:
		v.buf.SetCursor(cur + 1)
		return true
	case tcell.KeyUp:
		if line > 1 {
			v.buf.GotoLine(line-1, col)
		}
		return true
	case tcell.KeyDown:
		v.buf.GotoLine(line+1, col)
		return true
	case tcell.KeyHome:
		v.buf.GotoLine(line, 1)
		return true
	case tcell.KeyEnd:
		v.buf.GotoLine(line, 1<<30)
		return true
	case tcell.KeyPgUp:
		v.buf.GotoLine(max(1, line-v.page()), col)
		return true
	case tcell.KeyPgDn:
		v.buf.GotoLine(line+v.page(), col)
		return true
	}

	if !v.editable {
		return false
	}
	switch ev.Key() {
	case tcell.KeyRune:
		v.buf.Insert(cur, string(ev.Rune()))
	case tcell.KeyEnter:
		v.buf.Insert(cur, "\n")
	case tcell.KeyTab:
		v.buf.Insert(cur, "\t")
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if cur > 0 {
			v.buf.Delete(cur-1, 1)
		}
	case tcell.KeyDelete:
		if cur < utf8.RuneCountInString(v.buf.Text()) {
			v.buf.Delete(cur, 1)
		}
	default:
		return false
	}
	return true
}

func (v *TextView) page() int {
	if v.height > 1 {
		return v.height - 1
	}
	return 1
}
