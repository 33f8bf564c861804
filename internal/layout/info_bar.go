package layout

import (
	"fmt"
	"strings"

	runewidth "github.com/mattn/go-runewidth"
	"github.com/micro-editor/tcell/v2"

	"github.com/ellery/scribe/internal/config"
	"github.com/ellery/scribe/internal/infobar"
	"github.com/ellery/scribe/internal/pane"
)

type buttonHit struct {
	start, end, y int
	response      infobar.Response
}

// InfoBarView draws a tab's message bar above its text and turns keys and
// clicks into responses
type InfoBarView struct {
	Region pane.Rect

	hits []buttonHit
}

// Height is the number of rows bar needs, 0 for no bar
func Height(bar *infobar.Bar) int {
	if bar == nil || !bar.Visible() {
		return 0
	}
	h := 1
	if bar.Secondary() != "" {
		h++
	}
	if bar.HasEncodingChoice() {
		h++
	}
	if bar.IsProgress() {
		h++
	}
	return h
}

// Render draws bar into the view's region
func (v *InfoBarView) Render(screen tcell.Screen, bar *infobar.Bar) {
	v.hits = v.hits[:0]
	if Height(bar) == 0 {
		return
	}
	style := config.GetColor(bar.Type().ColorGroup())
	fill(screen, v.Region, style)
	maxX := v.Region.X + v.Region.W
	y := v.Region.Y

	// buttons go right aligned on the first row
	buttons := bar.Buttons()
	bx := maxX
	for i := len(buttons) - 1; i >= 0; i-- {
		text := "[" + buttons[i].Label + "]"
		bx -= runewidth.StringWidth(text) + 1
		bstyle := style.Reverse(true)
		if buttons[i].Response == bar.DefaultResponse() {
			bstyle = bstyle.Bold(true)
		}
		end := drawString(screen, bx, y, maxX, text, bstyle)
		v.hits = append(v.hits, buttonHit{start: bx, end: end, y: y, response: buttons[i].Response})
	}

	x := v.Region.X + 1
	if g := Glyph(bar.Icon()); g != "" {
		x = drawString(screen, x, y, bx, g+" ", style)
	}
	drawString(screen, x, y, bx-1, truncate(bar.Primary(), bx-1-x), style.Bold(true))
	y++

	if s := bar.Secondary(); s != "" {
		s = strings.ReplaceAll(s, "\n", " ")
		drawString(screen, v.Region.X+1, y, maxX, truncate(s, v.Region.W-2), style)
		y++
	}

	if bar.HasEncodingChoice() {
		text := fmt.Sprintf("Character Encoding: < %s >", infobar.ChoiceLabel(bar.SelectedEncoding()))
		drawString(screen, v.Region.X+1, y, maxX, text, style)
		y++
	}

	if bar.IsProgress() {
		v.renderProgress(screen, bar, pane.Rect{X: v.Region.X + 1, Y: y, W: v.Region.W - 2, H: 1})
	}
}

// renderProgress draws a gauge, or a bouncing block while the total is
// unknown
func (v *InfoBarView) renderProgress(screen tcell.Screen, bar *infobar.Bar, r pane.Rect) {
	detail := bar.Detail()
	gaugeW := r.W
	if detail != "" {
		gaugeW -= runewidth.StringWidth(detail) + 1
	}
	if gaugeW < 3 {
		gaugeW = r.W
		detail = ""
	}
	base := config.GetColor("infobar")
	done := config.GetColor("progress")
	for i := 0; i < gaugeW; i++ {
		screen.SetContent(r.X+i, r.Y, '░', nil, base)
	}
	if p := bar.Pulses(); p > 0 {
		span := gaugeW - 3
		if span < 1 {
			span = 1
		}
		pos := p % (2 * span)
		if pos >= span {
			pos = 2*span - pos
		}
		for i := 0; i < 3 && pos+i < gaugeW; i++ {
			screen.SetContent(r.X+pos+i, r.Y, '█', nil, done)
		}
	} else {
		n := int(bar.Fraction() * float64(gaugeW))
		for i := 0; i < n; i++ {
			screen.SetContent(r.X+i, r.Y, '█', nil, done)
		}
	}
	if detail != "" {
		drawString(screen, r.X+gaugeW+1, r.Y, r.X+r.W, detail, base)
	}
}

// ButtonAt returns the response of the button under x, y
func (v *InfoBarView) ButtonAt(x, y int) (infobar.Response, bool) {
	for _, h := range v.hits {
		if y == h.y && x >= h.start && x < h.end {
			return h.response, true
		}
	}
	return infobar.ResponseNone, false
}

// HandleEvent answers bar from keys and clicks. Enter gives the default
// response and Esc cancels or closes; Up and Down move through the
// encoding menu. It returns true if the event was consumed.
func (v *InfoBarView) HandleEvent(bar *infobar.Bar, event tcell.Event) bool {
	if Height(bar) == 0 {
		return false
	}
	switch ev := event.(type) {
	case *tcell.EventMouse:
		if ev.Buttons() != tcell.Button1 {
			return false
		}
		x, y := ev.Position()
		if r, ok := v.ButtonAt(x, y); ok {
			bar.Respond(r)
			return true
		}
		return contains(v.Region, x, y)

	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEnter:
			if bar.DefaultResponse() == infobar.ResponseNone {
				return false
			}
			bar.ActivateDefault()
			return true
		case tcell.KeyEscape:
			for _, r := range []infobar.Response{infobar.ResponseCancel, infobar.ResponseClose} {
				if bar.HasResponse(r) {
					bar.Respond(r)
					return true
				}
			}
		case tcell.KeyUp, tcell.KeyDown:
			if !bar.HasEncodingChoice() {
				return false
			}
			if ev.Key() == tcell.KeyUp {
				bar.CycleEncoding(-1)
			} else {
				bar.CycleEncoding(1)
			}
			return true
		}
	}
	return false
}
