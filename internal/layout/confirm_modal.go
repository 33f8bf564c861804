package layout

import (
	runewidth "github.com/mattn/go-runewidth"
	"github.com/micro-editor/tcell/v2"

	"github.com/ellery/scribe/internal/config"
)

// ConfirmModal asks before an action that loses work, such as closing a
// tab with unsaved changes
type ConfirmModal struct {
	Active   bool
	Title    string
	Message  string
	Warning  string // shown in the danger color, e.g. "Unsaved changes will be lost"
	Callback func(confirmed bool)
	ScreenW  int
	ScreenH  int
}

const confirmOptions = "(y)es  (n)o  (esc)ape"

// NewConfirmModal creates a new confirmation modal dialog
func NewConfirmModal() *ConfirmModal {
	return &ConfirmModal{}
}

// Show displays the confirmation modal
func (m *ConfirmModal) Show(title, message, warning string, screenW, screenH int, callback func(confirmed bool)) {
	m.Active = true
	m.Title = title
	m.Message = message
	m.Warning = warning
	m.ScreenW = screenW
	m.ScreenH = screenH
	m.Callback = callback
}

// Hide closes the modal
func (m *ConfirmModal) Hide() {
	m.Active = false
	m.Callback = nil
}

func (m *ConfirmModal) answer(confirmed bool) {
	cb := m.Callback
	m.Hide()
	if cb != nil {
		cb(confirmed)
	}
}

// HandleEvent processes keyboard events for the modal
// Returns true if the event was consumed
func (m *ConfirmModal) HandleEvent(event tcell.Event) bool {
	if !m.Active {
		return false
	}

	ev, ok := event.(*tcell.EventKey)
	if !ok {
		return true
	}

	switch ev.Key() {
	case tcell.KeyEscape:
		m.answer(false)
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'y', 'Y':
			m.answer(true)
		case 'n', 'N':
			m.answer(false)
		}
	}
	return true
}

// Render draws the confirmation modal centered on screen
func (m *ConfirmModal) Render(screen tcell.Screen) {
	if !m.Active {
		return
	}

	contentW := max(runewidth.StringWidth(m.Title), runewidth.StringWidth(m.Message),
		runewidth.StringWidth(m.Warning), len(confirmOptions))
	box := centered(m.ScreenW, m.ScreenH, max(contentW+6, 45), 9)

	fill(screen, box, config.GetColor("modal"))
	danger := config.GetColor("modal.danger")
	drawBox(screen, box, danger)

	maxX := box.X + box.W - 1
	center := func(s string, y int, style tcell.Style) {
		x := box.X + (box.W-runewidth.StringWidth(s))/2
		drawString(screen, x, y, maxX, s, style)
	}
	center(m.Title, box.Y+1, danger)
	for x := box.X + 1; x < maxX; x++ {
		screen.SetContent(x, box.Y+2, '─', nil, danger)
	}
	center(m.Message, box.Y+4, config.GetColor("modal"))
	if m.Warning != "" {
		center(m.Warning, box.Y+5, danger)
	}
	center(confirmOptions, box.Y+7, config.GetColor("modal.hint"))
}
