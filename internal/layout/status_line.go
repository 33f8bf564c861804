package layout

import (
	"fmt"
	"strings"

	runewidth "github.com/mattn/go-runewidth"
	"github.com/micro-editor/tcell/v2"

	"github.com/ellery/scribe/internal/config"
	"github.com/ellery/scribe/internal/pane"
	"github.com/ellery/scribe/internal/tab"
)

// positioned and summarized are optional document capabilities the
// status line reports when present
type positioned interface {
	CursorLineColumn() (int, int)
}

type summarized interface {
	ChangeSummary() (added, removed int)
}

// StatusLine renders the bottom row for the active tab
type StatusLine struct {
	Region pane.Rect
	// Message is shown on the right until cleared
	Message string
}

// Left is the left part: name and state
func (s *StatusLine) Left(t *tab.Tab) string {
	if t == nil {
		return " No document"
	}
	parts := []string{" " + t.Name()}
	if st := t.State(); st != tab.StateNormal {
		parts = append(parts, "["+st.String()+"]")
	}
	if !t.Editable() {
		parts = append(parts, "[read-only]")
	}
	return strings.Join(parts, " ")
}

// Right is the right part: position, changes, encoding and auto-save
func (s *StatusLine) Right(t *tab.Tab) string {
	var parts []string
	if s.Message != "" {
		parts = append(parts, s.Message)
	}
	if t == nil {
		return strings.Join(parts, "  ")
	}
	doc := t.Document()
	if p, ok := doc.(positioned); ok {
		line, col := p.CursorLineColumn()
		parts = append(parts, fmt.Sprintf("Ln %d, Col %d", line, col))
	}
	if c, ok := doc.(summarized); ok {
		if added, removed := c.ChangeSummary(); added+removed > 0 {
			parts = append(parts, fmt.Sprintf("+%d -%d", added, removed))
		}
	}
	if enc := doc.File().Encoding(); enc != nil {
		parts = append(parts, enc.String())
	}
	if t.AutoSaveEnabled() {
		parts = append(parts, "autosave")
	}
	return strings.Join(parts, "  ") + " "
}

// Render draws the status line for t, which may be nil
func (s *StatusLine) Render(screen tcell.Screen, t *tab.Tab) {
	style := config.GetColor("statusline")
	fill(screen, s.Region, style)
	maxX := s.Region.X + s.Region.W
	right := s.Right(t)
	rx := maxX - runewidth.StringWidth(right)
	left := truncate(s.Left(t), rx-s.Region.X-1)
	drawString(screen, s.Region.X, s.Region.Y, rx, left, style)
	drawString(screen, max(rx, s.Region.X), s.Region.Y, maxX, right, style)
}
