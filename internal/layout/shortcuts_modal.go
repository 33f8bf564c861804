package layout

import (
	"sort"

	runewidth "github.com/mattn/go-runewidth"
	"github.com/micro-editor/tcell/v2"

	"github.com/ellery/scribe/internal/config"
)

// ShortcutsModal lists the active key bindings
type ShortcutsModal struct {
	Active  bool
	ScreenW int
	ScreenH int

	entries []shortcutEntry
}

// shortcutEntry represents a single shortcut in the help display
type shortcutEntry struct {
	key    string
	action string
}

// NewShortcutsModal creates a new shortcuts modal
func NewShortcutsModal() *ShortcutsModal {
	return &ShortcutsModal{}
}

// Show displays bindings, sorted by action then key
func (m *ShortcutsModal) Show(bindings map[string]string, screenW, screenH int) {
	m.Active = true
	m.ScreenW = screenW
	m.ScreenH = screenH
	m.entries = m.entries[:0]
	for k, a := range bindings {
		m.entries = append(m.entries, shortcutEntry{key: k, action: a})
	}
	sort.Slice(m.entries, func(i, j int) bool {
		if m.entries[i].action != m.entries[j].action {
			return m.entries[i].action < m.entries[j].action
		}
		return m.entries[i].key < m.entries[j].key
	})
}

// Hide closes the modal
func (m *ShortcutsModal) Hide() {
	m.Active = false
}

// HandleEvent closes the modal on Esc or Enter and consumes everything
// else while it is open
func (m *ShortcutsModal) HandleEvent(event tcell.Event) bool {
	if !m.Active {
		return false
	}
	if ev, ok := event.(*tcell.EventKey); ok {
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyEnter:
			m.Hide()
		}
	}
	return true
}

// Render draws the modal centered on screen
func (m *ShortcutsModal) Render(screen tcell.Screen) {
	if !m.Active {
		return
	}
	keyW := 0
	actionW := 0
	for _, e := range m.entries {
		keyW = max(keyW, runewidth.StringWidth(e.key))
		actionW = max(actionW, runewidth.StringWidth(e.action))
	}
	box := centered(m.ScreenW, m.ScreenH, max(keyW+actionW+9, 40), len(m.entries)+5)

	fill(screen, box, config.GetColor("modal"))
	border := config.GetColor("modal.border")
	drawBox(screen, box, border)

	title := "Key Bindings"
	drawString(screen, box.X+(box.W-len(title))/2, box.Y+1, box.X+box.W-1, title, border)

	maxX := box.X + box.W - 2
	rows := box.H - 4
	for i, e := range m.entries {
		if i >= rows {
			break
		}
		y := box.Y + 2 + i
		drawString(screen, box.X+3, y, maxX, e.key, config.GetColor("modal").Bold(true))
		drawString(screen, box.X+3+keyW+3, y, maxX, e.action, config.GetColor("modal"))
	}

	hint := "(esc) close"
	drawString(screen, box.X+(box.W-len(hint))/2, box.Y+box.H-2, maxX, hint, config.GetColor("modal.hint"))
}

