// Package layout draws the notebooks of a pane.Manager on a tcell screen
// and routes terminal events to the tab, info bar or modal they belong to.
package layout

import (
	"log"

	"github.com/micro-editor/tcell/v2"

	"github.com/ellery/scribe/internal/config"
	"github.com/ellery/scribe/internal/pane"
	"github.com/ellery/scribe/internal/tab"
)

// notebookView holds the widgets of one notebook
type notebookView struct {
	strip   *TabBar
	bar     *InfoBarView
	preview *PreviewPane
	region  pane.Rect
	text    pane.Rect
}

// LayoutManager coordinates the notebooks, the status line and the modal
// dialogs
type LayoutManager struct {
	Panes *pane.Manager

	// Modal dialogs for prompts
	InputModal   *InputModal
	ConfirmModal *ConfirmModal
	Shortcuts    *ShortcutsModal
	QuickFind    *QuickFindPicker

	Status *StatusLine

	ScreenW int // Total screen width
	ScreenH int // Total screen height

	views    map[*pane.Notebook]*notebookView
	dividers []pane.Divider
}

// NewLayoutManager creates a layout over panes
func NewLayoutManager(panes *pane.Manager) *LayoutManager {
	lm := &LayoutManager{
		Panes:        panes,
		InputModal:   NewInputModal(),
		ConfirmModal: NewConfirmModal(),
		Shortcuts:    NewShortcutsModal(),
		Status:       &StatusLine{},
		views:        make(map[*pane.Notebook]*notebookView),
	}
	lm.QuickFind = NewQuickFindPicker(panes.FindTabs, func(t *tab.Tab) {
		panes.SetActiveTab(t)
	}, nil)
	panes.NotebookRemoved.Connect(func(nb *pane.Notebook) {
		delete(lm.views, nb)
	})
	return lm
}

func (lm *LayoutManager) view(nb *pane.Notebook) *notebookView {
	v, ok := lm.views[nb]
	if !ok {
		v = &notebookView{strip: NewTabBar(), bar: &InfoBarView{}, preview: &PreviewPane{}}
		lm.views[nb] = v
	}
	return v
}

// Resize handles screen resize events
func (lm *LayoutManager) Resize(w, h int) {
	lm.ScreenW = w
	lm.ScreenH = h
	lm.arrange()
	log.Printf("SCRIBE Layout: resized to %dx%d", w, h)
}

// arrange computes the regions of every notebook. Each gets its tab strip
// on the first row, the info bar of its current tab below it and the text
// in the rest.
func (lm *LayoutManager) arrange() {
	area := pane.Rect{X: 0, Y: 0, W: lm.ScreenW, H: lm.ScreenH - 1}
	regions, dividers := lm.Panes.Root().Layout(area)
	lm.dividers = dividers
	for nb, r := range regions {
		v := lm.view(nb)
		v.region = r
		v.strip.Region = pane.Rect{X: r.X, Y: r.Y, W: r.W, H: 1}
		barH := 0
		if t := nb.Current(); t != nil {
			barH = min(Height(t.InfoBar()), max(r.H-2, 0))
		}
		v.bar.Region = pane.Rect{X: r.X, Y: r.Y + 1, W: r.W, H: barH}
		v.text = pane.Rect{X: r.X, Y: r.Y + 1 + barH, W: r.W, H: max(r.H-1-barH, 0)}
		v.preview.Region = v.text
	}
	lm.Status.Region = pane.Rect{X: 0, Y: lm.ScreenH - 1, W: lm.ScreenW, H: 1}
}

// Region returns the last computed region of nb
func (lm *LayoutManager) Region(nb *pane.Notebook) pane.Rect {
	if v, ok := lm.views[nb]; ok {
		return v.region
	}
	return pane.Rect{}
}

// TextRegion is where nb's current tab draws its text
func (lm *LayoutManager) TextRegion(nb *pane.Notebook) pane.Rect {
	if v, ok := lm.views[nb]; ok {
		return v.text
	}
	return pane.Rect{}
}

// textView returns the TextView of t, nil for other views
func textView(t *tab.Tab) *TextView {
	if t == nil {
		return nil
	}
	v, _ := t.View().(*TextView)
	return v
}

// Render draws the whole screen
func (lm *LayoutManager) Render(screen tcell.Screen) {
	screen.HideCursor()
	lm.arrange()
	active := lm.Panes.ActiveNotebook()
	activeTab := lm.Panes.ActiveTab()

	for _, nb := range lm.Panes.Notebooks() {
		v := lm.view(nb)
		v.strip.Focused = nb == active
		v.strip.Render(screen, nb)

		t := nb.Current()
		if t == nil {
			fill(screen, pane.Rect{X: v.region.X, Y: v.region.Y + 1, W: v.region.W, H: v.region.H - 1}, config.DefStyle)
			continue
		}
		v.bar.Render(screen, t.InfoBar())
		if tv := textView(t); tv != nil {
			tv.SetFocused(t == activeTab && !lm.modalActive())
			tv.Render(screen, v.text)
		}
		if p := t.Preview(); p != nil && t.State() == tab.StateShowingPrintPreview {
			v.preview.Render(screen, p)
		}
	}
	lm.drawDividers(screen)
	lm.Status.Render(screen, activeTab)

	lm.InputModal.Render(screen)
	lm.ConfirmModal.Render(screen)
	lm.Shortcuts.Render(screen)
	lm.QuickFind.Render(screen)
}

// drawDividers draws the lines between split notebooks
func (lm *LayoutManager) drawDividers(screen tcell.Screen) {
	style := config.GetColor("divider")
	for _, d := range lm.dividers {
		for i := 0; i < d.Len; i++ {
			if d.Vertical {
				screen.SetContent(d.X, d.Y+i, '│', nil, style)
			} else {
				screen.SetContent(d.X+i, d.Y, '─', nil, style)
			}
		}
	}
}

func (lm *LayoutManager) modalActive() bool {
	return lm.InputModal.Active || lm.ConfirmModal.Active || lm.Shortcuts.Active || lm.QuickFind.Active
}

// HandleModalEvent gives the event to the open modal, if any. Modals
// consume everything while they are open.
func (lm *LayoutManager) HandleModalEvent(event tcell.Event) bool {
	switch {
	case lm.ConfirmModal.Active:
		return lm.ConfirmModal.HandleEvent(event)
	case lm.InputModal.Active:
		return lm.InputModal.HandleEvent(event)
	case lm.QuickFind.Active:
		return lm.QuickFind.HandleEvent(event)
	case lm.Shortcuts.Active:
		return lm.Shortcuts.HandleEvent(event)
	}
	return false
}

// NotebookAt returns the notebook whose region holds x, y
func (lm *LayoutManager) NotebookAt(x, y int) *pane.Notebook {
	for _, nb := range lm.Panes.Notebooks() {
		if v, ok := lm.views[nb]; ok && contains(v.region, x, y) {
			return nb
		}
	}
	return nil
}

// HandleEvent routes an event that no modal or key binding took. Mouse
// events go to what is under the pointer; keys go to the active tab's
// print preview, then its info bar, then its text.
func (lm *LayoutManager) HandleEvent(event tcell.Event) bool {
	if ev, ok := event.(*tcell.EventMouse); ok {
		return lm.handleMouse(ev)
	}
	if _, ok := event.(*tcell.EventKey); !ok {
		return false
	}
	nb := lm.Panes.ActiveNotebook()
	t := lm.Panes.ActiveTab()
	if nb == nil || t == nil {
		return false
	}
	v := lm.view(nb)
	if t.State() == tab.StateShowingPrintPreview {
		return v.preview.HandleEvent(t.Preview(), event)
	}
	if v.bar.HandleEvent(t.InfoBar(), event) {
		return true
	}
	if tv := textView(t); tv != nil {
		return tv.HandleEvent(event)
	}
	return false
}

func (lm *LayoutManager) handleMouse(ev *tcell.EventMouse) bool {
	x, y := ev.Position()
	nb := lm.NotebookAt(x, y)
	if nb == nil {
		return false
	}
	v := lm.view(nb)

	switch ev.Buttons() {
	case tcell.Button1:
		if v.strip.IsInTabBar(x, y) {
			i, closeHit := v.strip.TabAt(x, y)
			if i < 0 {
				nb.GrabFocus()
				return true
			}
			t := nb.Tab(i)
			if closeHit {
				nb.RequestClose(t)
			} else {
				lm.Panes.SetActiveTab(t)
			}
			return true
		}
		if t := nb.Current(); t != nil && v.bar.HandleEvent(t.InfoBar(), ev) {
			return true
		}
		if nb != lm.Panes.ActiveNotebook() {
			nb.GrabFocus()
		}
		return true

	case tcell.Button2, tcell.Button3:
		if v.strip.IsInTabBar(x, y) {
			nb.ShowPopupMenu(x, y)
			return true
		}
	}
	return false
}

// ShowInputModal asks for a line of text
func (lm *LayoutManager) ShowInputModal(title, prompt, defaultValue string, callback func(value string, canceled bool)) {
	lm.InputModal.Show(title, prompt, defaultValue, lm.ScreenW, lm.ScreenH, callback)
}

// ShowConfirmModal asks a yes/no question about a destructive action
func (lm *LayoutManager) ShowConfirmModal(title, message, warning string, callback func(confirmed bool)) {
	lm.ConfirmModal.Show(title, message, warning, lm.ScreenW, lm.ScreenH, callback)
}

// ShowShortcuts lists the key bindings
func (lm *LayoutManager) ShowShortcuts(bindings map[string]string) {
	lm.Shortcuts.Show(bindings, lm.ScreenW, lm.ScreenH)
}

// ShowQuickFind opens the tab picker
func (lm *LayoutManager) ShowQuickFind() {
	lm.QuickFind.Show(lm.ScreenW, lm.ScreenH)
}
