package layout

import (
	"fmt"

	runewidth "github.com/mattn/go-runewidth"
	"github.com/micro-editor/tcell/v2"

	"github.com/ellery/scribe/internal/config"
	"github.com/ellery/scribe/internal/fileio"
	"github.com/ellery/scribe/internal/pane"
	"github.com/ellery/scribe/internal/tab"
)

// QuickFindPicker is a modal for jumping to an open tab by fuzzy name
type QuickFindPicker struct {
	Active  bool
	ScreenW int
	ScreenH int

	// Input field
	Query  []rune
	cursor int

	// Results
	Find        func(query string) []*tab.Tab
	Results     []*tab.Tab
	SelectedIdx int
	TopLine     int

	// Dimensions
	Width      int
	Height     int
	ListHeight int

	// Callbacks
	OnSelect func(t *tab.Tab)
	OnCancel func()
}

// NewQuickFindPicker creates a picker over find, usually
// (*pane.Manager).FindTabs
func NewQuickFindPicker(find func(string) []*tab.Tab, onSelect func(*tab.Tab), onCancel func()) *QuickFindPicker {
	return &QuickFindPicker{
		Find:       find,
		OnSelect:   onSelect,
		OnCancel:   onCancel,
		Width:      70,
		Height:     18,
		ListHeight: 11,
	}
}

// Show activates the picker
func (p *QuickFindPicker) Show(screenW, screenH int) {
	p.Active = true
	p.ScreenW = screenW
	p.ScreenH = screenH
	p.Query = p.Query[:0]
	p.cursor = 0
	p.SelectedIdx = 0
	p.TopLine = 0
	p.updateResults()
}

// Hide deactivates the picker
func (p *QuickFindPicker) Hide() {
	p.Active = false
	p.Query = p.Query[:0]
	p.Results = nil
}

func (p *QuickFindPicker) box() pane.Rect {
	return centered(p.ScreenW, p.ScreenH, p.Width, p.Height)
}

// HandleEvent processes input events
func (p *QuickFindPicker) HandleEvent(event tcell.Event) bool {
	if !p.Active {
		return false
	}

	switch ev := event.(type) {
	case *tcell.EventKey:
		p.handleKey(ev)
	case *tcell.EventMouse:
		p.handleMouse(ev)
	}
	return true
}

func (p *QuickFindPicker) cancel() {
	p.Hide()
	if p.OnCancel != nil {
		p.OnCancel()
	}
}

func (p *QuickFindPicker) choose(i int) {
	if i < 0 || i >= len(p.Results) {
		return
	}
	t := p.Results[i]
	p.Hide()
	if p.OnSelect != nil {
		p.OnSelect(t)
	}
}

func (p *QuickFindPicker) queryChanged() {
	p.SelectedIdx = 0
	p.TopLine = 0
	p.updateResults()
}

func (p *QuickFindPicker) handleKey(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEscape:
		p.cancel()
	case tcell.KeyEnter:
		p.choose(p.SelectedIdx)
	case tcell.KeyUp:
		if p.SelectedIdx > 0 {
			p.SelectedIdx--
			p.ensureVisible()
		}
	case tcell.KeyDown:
		if p.SelectedIdx < len(p.Results)-1 {
			p.SelectedIdx++
			p.ensureVisible()
		}
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if p.cursor > 0 {
			p.Query = append(p.Query[:p.cursor-1], p.Query[p.cursor:]...)
			p.cursor--
			p.queryChanged()
		}
	case tcell.KeyLeft:
		if p.cursor > 0 {
			p.cursor--
		}
	case tcell.KeyRight:
		if p.cursor < len(p.Query) {
			p.cursor++
		}
	case tcell.KeyCtrlU:
		p.Query = p.Query[:0]
		p.cursor = 0
		p.queryChanged()
	case tcell.KeyRune:
		p.Query = append(p.Query[:p.cursor], append([]rune{ev.Rune()}, p.Query[p.cursor:]...)...)
		p.cursor++
		p.queryChanged()
	}
}

func (p *QuickFindPicker) handleMouse(ev *tcell.EventMouse) {
	if ev.Buttons() != tcell.Button1 {
		return
	}
	x, y := ev.Position()
	box := p.box()
	if !contains(box, x, y) {
		p.cancel()
		return
	}
	listY := box.Y + 4
	if y >= listY && y < listY+p.ListHeight {
		p.choose(p.TopLine + y - listY)
	}
}

func (p *QuickFindPicker) updateResults() {
	if p.Find == nil {
		return
	}
	p.Results = p.Find(string(p.Query))
}

func (p *QuickFindPicker) ensureVisible() {
	if p.SelectedIdx < p.TopLine {
		p.TopLine = p.SelectedIdx
	}
	if p.SelectedIdx >= p.TopLine+p.ListHeight {
		p.TopLine = p.SelectedIdx - p.ListHeight + 1
	}
}

// Render draws the picker
func (p *QuickFindPicker) Render(screen tcell.Screen) {
	if !p.Active {
		return
	}
	box := p.box()
	base := config.GetColor("modal")
	border := config.GetColor("modal.border")
	hint := config.GetColor("modal.hint")
	selected := config.GetColor("modal.selected")

	fill(screen, box, base)
	drawBox(screen, box, border)
	right := box.X + box.W - 1

	title := " Go to Tab "
	drawString(screen, box.X+(box.W-len(title))/2, box.Y, right, title, border)

	// query line, then a separator
	x := drawString(screen, box.X+2, box.Y+2, right, "> ", base)
	drawString(screen, x, box.Y+2, right-1, string(p.Query), base)
	screen.ShowCursor(x+runewidth.StringWidth(string(p.Query[:p.cursor])), box.Y+2)
	for i := box.X + 1; i < right; i++ {
		screen.SetContent(i, box.Y+1, '═', nil, border)
		screen.SetContent(i, box.Y+3, '─', nil, border)
	}

	listY := box.Y + 4
	if len(p.Results) == 0 {
		msg := "No matching tabs"
		drawString(screen, box.X+(box.W-len(msg))/2, listY+p.ListHeight/2, right, msg, hint)
	}
	for i := 0; i < p.ListHeight; i++ {
		idx := p.TopLine + i
		if idx >= len(p.Results) {
			break
		}
		t := p.Results[idx]
		y := listY + i
		style := base
		prefix := "   "
		if idx == p.SelectedIdx {
			style = selected
			prefix = " > "
			fill(screen, pane.Rect{X: box.X + 1, Y: y, W: box.W - 2, H: 1}, style)
		}
		half := box.X + box.W/2
		x := drawString(screen, box.X+1, y, half, prefix, style)
		drawString(screen, x, y, half, truncate(t.Name(), half-x), style)

		where := ""
		if loc := t.Document().Location(); loc != "" {
			where = fileio.DisplayLocation(loc)
		}
		where = truncate(where, right-half-2)
		drawString(screen, right-1-runewidth.StringWidth(where), y, right-1, where, style)
	}

	hints := fmt.Sprintf("[Enter] Open  [Esc] Cancel │ %d tabs", len(p.Results))
	drawString(screen, box.X+(box.W-runewidth.StringWidth(hints))/2, box.Y+box.H-2, right, hints, hint)
}
