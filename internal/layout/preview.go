package layout

import (
	"fmt"

	"github.com/micro-editor/tcell/v2"

	"github.com/ellery/scribe/internal/config"
	"github.com/ellery/scribe/internal/pane"
	"github.com/ellery/scribe/internal/printing"
)

const previewHint = "[PgUp/PgDn] page  [p] print  [esc] close"

// PreviewPane shows a print preview in place of the text of its tab, one
// page at a time, as a sheet of paper centered in the region
type PreviewPane struct {
	Region pane.Rect
}

// Render draws the page on display
func (pp *PreviewPane) Render(screen tcell.Screen, p *printing.Preview) {
	fill(screen, pp.Region, config.GetColor("tabbar"))
	if p == nil || pp.Region.H < 3 {
		return
	}
	maxX := pp.Region.X + pp.Region.W
	header := fmt.Sprintf(" Print Preview  Page %d of %d", p.Page()+1, p.PageCount())
	x := drawString(screen, pp.Region.X, pp.Region.Y, maxX, header, config.GetColor("statusline"))
	drawString(screen, max(x+2, maxX-len(previewHint)-1), pp.Region.Y, maxX, previewHint, config.GetColor("tabbar"))
	if p.PageCount() == 0 {
		return
	}

	lines := p.Lines()
	width := 0
	for _, l := range lines {
		width = max(width, len([]rune(l)))
	}
	sheet := pane.Rect{X: pp.Region.X, Y: pp.Region.Y + 1, W: min(width+4, pp.Region.W), H: pp.Region.H - 1}
	sheet.X += (pp.Region.W - sheet.W) / 2
	paper := config.GetColor("preview")
	fill(screen, sheet, paper)
	for i, l := range lines {
		y := sheet.Y + 1 + i
		if y >= sheet.Y+sheet.H {
			break
		}
		drawString(screen, sheet.X+2, y, sheet.X+sheet.W-2, expandTabs(l), paper)
	}
}

func expandTabs(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '\t' {
			for n := tabWidth - len(out)%tabWidth; n > 0; n-- {
				out = append(out, ' ')
			}
			continue
		}
		out = append(out, r)
	}
	return string(out)
}

// HandleEvent pages through p, prints it or closes it. It returns true if
// the event was consumed.
func (pp *PreviewPane) HandleEvent(p *printing.Preview, event tcell.Event) bool {
	ev, ok := event.(*tcell.EventKey)
	if !ok || p == nil {
		return false
	}
	switch ev.Key() {
	case tcell.KeyPgDn, tcell.KeyRight, tcell.KeyDown:
		p.NextPage()
	case tcell.KeyPgUp, tcell.KeyLeft, tcell.KeyUp:
		p.PreviousPage()
	case tcell.KeyEscape:
		p.Close()
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'p', 'P':
			p.Print()
		case 'q':
			p.Close()
		default:
			return false
		}
	default:
		return false
	}
	return true
}
