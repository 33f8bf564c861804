package layout

import (
	runewidth "github.com/mattn/go-runewidth"
	"github.com/micro-editor/tcell/v2"

	"github.com/ellery/scribe/internal/config"
	"github.com/ellery/scribe/internal/pane"
	"github.com/ellery/scribe/internal/tab"
)

// iconGlyphs maps the icon names tabs and bars report to terminal glyphs
var iconGlyphs = map[string]string{
	"printer-printing": "⎙",
	"printer":          "⎙",
	"document-print":   "⎙",
	"dialog-error":     "✖",
	"dialog-warning":   "⚠",
	"document-open":    "↓",
	"document-revert":  "↺",
	"document-save":    "↑",
}

// Glyph returns the glyph of an icon name, empty when there is none
func Glyph(icon string) string { return iconGlyphs[icon] }

// tabHit is the span of one label on the strip
type tabHit struct {
	start, end int
	close      int
	index      int
}

// TabBar renders the tab strip of one notebook
type TabBar struct {
	Region  pane.Rect
	Focused bool // notebook is the active one

	hits []tabHit
}

// NewTabBar creates a new tab bar
func NewTabBar() *TabBar {
	return &TabBar{}
}

// label is the text of one tab: " icon name x "
func label(t *tab.Tab) string {
	s := " "
	if g := Glyph(t.Icon()); g != "" {
		s += g + " "
	}
	return s + t.Name() + " × "
}

// Render draws the labels of nb left to right. When they do not fit, the
// strip scrolls so the current tab stays visible.
func (b *TabBar) Render(screen tcell.Screen, nb *pane.Notebook) {
	b.hits = b.hits[:0]
	fill(screen, b.Region, config.GetColor("tabbar"))

	tabs := nb.Tabs()
	labels := make([]string, len(tabs))
	widths := make([]int, len(tabs))
	for i, t := range tabs {
		labels[i] = label(t)
		widths[i] = runewidth.StringWidth(labels[i]) + 1
	}

	first := 0
	cur := nb.CurrentIndex()
	for cur >= 0 && first < cur && sum(widths[first:cur+1]) > b.Region.W {
		first++
	}

	maxX := b.Region.X + b.Region.W
	x := b.Region.X
	for i := first; i < len(tabs) && x < maxX; i++ {
		style := config.GetColor("tab")
		switch {
		case i == cur && b.Focused:
			style = config.GetColor("tab.active")
		case i == cur:
			style = config.GetColor("tab.inactivepane")
		}
		start := x
		x = drawString(screen, x, b.Region.Y, maxX, labels[i], style)
		b.hits = append(b.hits, tabHit{start: start, end: x, close: x - 2, index: i})
		x++
	}
}

func sum(ws []int) int {
	n := 0
	for _, w := range ws {
		n += w
	}
	return n
}

// TabAt returns the index of the tab under x, y and whether the click hit
// its close button. The index is -1 outside of any label.
func (b *TabBar) TabAt(x, y int) (int, bool) {
	if y != b.Region.Y {
		return -1, false
	}
	for _, h := range b.hits {
		if x >= h.start && x < h.end {
			return h.index, x == h.close
		}
	}
	return -1, false
}

// IsInTabBar checks if the given coordinates are within the tab bar region
func (b *TabBar) IsInTabBar(x, y int) bool {
	return contains(b.Region, x, y)
}
