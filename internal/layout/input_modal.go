package layout

import (
	runewidth "github.com/mattn/go-runewidth"
	"github.com/micro-editor/tcell/v2"

	"github.com/ellery/scribe/internal/config"
)

// InputModal is a modal dialog that accepts text input, used for Save As
// and Open
type InputModal struct {
	Active   bool
	Title    string
	Prompt   string
	Hint     string
	Callback func(value string, canceled bool)
	ScreenW  int
	ScreenH  int

	value  []rune
	cursor int
}

// NewInputModal creates a new input modal dialog
func NewInputModal() *InputModal {
	return &InputModal{}
}

// Show displays the input modal with a text prompt
func (m *InputModal) Show(title, prompt, defaultValue string, screenW, screenH int, callback func(value string, canceled bool)) {
	m.Active = true
	m.Title = title
	m.Prompt = prompt
	m.value = []rune(defaultValue)
	m.cursor = len(m.value)
	m.ScreenW = screenW
	m.ScreenH = screenH
	m.Callback = callback
	if m.Hint == "" {
		m.Hint = "(enter) ok  (esc) cancel"
	}
}

// Value is the text typed so far
func (m *InputModal) Value() string { return string(m.value) }

// Hide closes the input modal
func (m *InputModal) Hide() {
	m.Active = false
	m.Callback = nil
	m.value = nil
	m.cursor = 0
}

func (m *InputModal) finish(canceled bool) {
	cb := m.Callback
	value := m.Value()
	if canceled {
		value = ""
	}
	m.Hide()
	if cb != nil {
		cb(value, canceled)
	}
}

// HandleEvent processes keyboard events for the input modal
// Returns true if the event was consumed
func (m *InputModal) HandleEvent(event tcell.Event) bool {
	if !m.Active {
		return false
	}

	ev, ok := event.(*tcell.EventKey)
	if !ok {
		return true
	}

	switch ev.Key() {
	case tcell.KeyEscape:
		m.finish(true)
	case tcell.KeyEnter:
		m.finish(false)
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if m.cursor > 0 {
			m.value = append(m.value[:m.cursor-1], m.value[m.cursor:]...)
			m.cursor--
		}
	case tcell.KeyDelete:
		if m.cursor < len(m.value) {
			m.value = append(m.value[:m.cursor], m.value[m.cursor+1:]...)
		}
	case tcell.KeyLeft:
		if m.cursor > 0 {
			m.cursor--
		}
	case tcell.KeyRight:
		if m.cursor < len(m.value) {
			m.cursor++
		}
	case tcell.KeyHome, tcell.KeyCtrlA:
		m.cursor = 0
	case tcell.KeyEnd, tcell.KeyCtrlE:
		m.cursor = len(m.value)
	case tcell.KeyCtrlU:
		m.value = m.value[:0]
		m.cursor = 0
	case tcell.KeyRune:
		m.value = append(m.value[:m.cursor], append([]rune{ev.Rune()}, m.value[m.cursor:]...)...)
		m.cursor++
	}
	return true
}

// Render draws the input modal dialog centered on screen
func (m *InputModal) Render(screen tcell.Screen) {
	if !m.Active {
		return
	}

	contentW := max(runewidth.StringWidth(m.Title), runewidth.StringWidth(m.Prompt)+10, 30)
	box := centered(m.ScreenW, m.ScreenH, max(contentW+6, 50), 9)

	fill(screen, box, config.GetColor("modal"))
	border := config.GetColor("modal.border")
	drawBox(screen, box, border)

	maxX := box.X + box.W - 1
	drawString(screen, box.X+(box.W-runewidth.StringWidth(m.Title))/2, box.Y+1, maxX, m.Title, border)
	for x := box.X + 1; x < maxX; x++ {
		screen.SetContent(x, box.Y+2, '─', nil, border)
	}
	drawString(screen, box.X+3, box.Y+3, maxX, m.Prompt, config.GetColor("modal"))

	// input field, scrolled to keep the cursor in view
	field := config.GetColor("statusline")
	fieldX := box.X + 3
	fieldW := box.W - 6
	for x := fieldX; x < fieldX+fieldW; x++ {
		screen.SetContent(x, box.Y+5, ' ', nil, field)
	}
	start := 0
	for runewidth.StringWidth(string(m.value[start:m.cursor])) >= fieldW {
		start++
	}
	drawString(screen, fieldX, box.Y+5, fieldX+fieldW, string(m.value[start:]), field)
	cx := fieldX + runewidth.StringWidth(string(m.value[start:m.cursor]))
	if cx < fieldX+fieldW {
		screen.ShowCursor(cx, box.Y+5)
	}

	drawString(screen, box.X+(box.W-len(m.Hint))/2, box.Y+7, maxX, m.Hint, config.GetColor("modal.hint"))
}
