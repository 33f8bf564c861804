package layout

import (
	runewidth "github.com/mattn/go-runewidth"
	"github.com/micro-editor/tcell/v2"

	"github.com/ellery/scribe/internal/pane"
)

// fill paints r with spaces
func fill(screen tcell.Screen, r pane.Rect, style tcell.Style) {
	for y := r.Y; y < r.Y+r.H; y++ {
		for x := r.X; x < r.X+r.W; x++ {
			screen.SetContent(x, y, ' ', nil, style)
		}
	}
}

// drawString draws s from x, clipped at maxX, and returns the column after
// the last cell written. Wide runes take two cells.
func drawString(screen tcell.Screen, x, y, maxX int, s string, style tcell.Style) int {
	for _, r := range s {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		if x+w > maxX {
			break
		}
		screen.SetContent(x, y, r, nil, style)
		if w == 2 {
			screen.SetContent(x+1, y, ' ', nil, style)
		}
		x += w
	}
	return x
}

// truncate cuts s to width cells, ending with an ellipsis when cut
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, "…")
}

// drawBox draws a double-line box, the modal frame
func drawBox(screen tcell.Screen, r pane.Rect, style tcell.Style) {
	if r.W < 2 || r.H < 2 {
		return
	}
	right := r.X + r.W - 1
	bottom := r.Y + r.H - 1
	screen.SetContent(r.X, r.Y, '╔', nil, style)
	screen.SetContent(right, r.Y, '╗', nil, style)
	screen.SetContent(r.X, bottom, '╚', nil, style)
	screen.SetContent(right, bottom, '╝', nil, style)
	for x := r.X + 1; x < right; x++ {
		screen.SetContent(x, r.Y, '═', nil, style)
		screen.SetContent(x, bottom, '═', nil, style)
	}
	for y := r.Y + 1; y < bottom; y++ {
		screen.SetContent(r.X, y, '║', nil, style)
		screen.SetContent(right, y, '║', nil, style)
	}
}

// centered returns a w by h rect centered on a screen of sw by sh
func centered(sw, sh, w, h int) pane.Rect {
	if w > sw {
		w = sw
	}
	if h > sh {
		h = sh
	}
	return pane.Rect{X: (sw - w) / 2, Y: (sh - h) / 2, W: w, H: h}
}

// contains reports whether the cell x, y lies in r
func contains(r pane.Rect, x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}
